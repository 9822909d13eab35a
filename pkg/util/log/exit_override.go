// Copyright 2019 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package log

// SetExitFunc replaces os.Exit as the function Fatalf terminates the
// process with. Tests use it to observe fatal errors. A nil f restores
// os.Exit.
func SetExitFunc(f func(int)) {
	logging.mu.Lock()
	defer logging.mu.Unlock()
	logging.mu.exitFunc = f
}

// ResetExitFunc restores os.Exit.
func ResetExitFunc() {
	SetExitFunc(nil)
}
