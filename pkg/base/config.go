// Copyright 2015 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package base holds the process configuration shared by the command-line
// tools.
package base

import (
	"bytes"
	"context"
	"io"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/sql/sessiondata"
	"github.com/cockroachdb/groupsql/pkg/storage"
	"github.com/cockroachdb/groupsql/pkg/util/humanizeutil"
	"gopkg.in/yaml.v3"
)

// Config is the configuration of a groupsql process. Values are taken from
// the defaults, then from an optional YAML file, then from command-line
// flags.
type Config struct {
	// StoreDir is the directory of the store. An empty StoreDir keeps the
	// data in memory.
	StoreDir string
	// InMemory keeps the data in memory even if StoreDir is set.
	InMemory bool
	// Engine is the storage engine: pebble or btree.
	Engine string
	// CacheSize is the pebble block cache size in bytes.
	CacheSize int64
	// Verbosity is the level up to which VEventf messages are logged.
	Verbosity int32
	// StmtTimeout cancels statements that run longer.
	StmtTimeout time.Duration
	// User is the user sessions run as.
	User string
}

// configFile is the YAML layout of a Config. Sizes are written in human
// form.
type configFile struct {
	StoreDir    string                   `yaml:"store-dir,omitempty"`
	InMemory    bool                     `yaml:"in-memory,omitempty"`
	Engine      string                   `yaml:"engine,omitempty"`
	CacheSize   *humanizeutil.BytesValue `yaml:"cache-size,omitempty"`
	Verbosity   int32                    `yaml:"verbosity,omitempty"`
	StmtTimeout time.Duration            `yaml:"statement-timeout,omitempty"`
	User        string                   `yaml:"user,omitempty"`
}

func (cfg *Config) toFile() configFile {
	return configFile{
		StoreDir:    cfg.StoreDir,
		InMemory:    cfg.InMemory,
		Engine:      cfg.Engine,
		CacheSize:   humanizeutil.NewBytesValue(&cfg.CacheSize),
		Verbosity:   cfg.Verbosity,
		StmtTimeout: cfg.StmtTimeout,
		User:        cfg.User,
	}
}

func (f *configFile) apply(cfg *Config) {
	cfg.StoreDir = f.StoreDir
	cfg.InMemory = f.InMemory
	cfg.Engine = f.Engine
	cfg.Verbosity = f.Verbosity
	cfg.StmtTimeout = f.StmtTimeout
	cfg.User = f.User
}

// MakeDefaultConfig returns a Config holding the defaults.
func MakeDefaultConfig() Config {
	return Config{
		Engine:      DefaultEngine,
		CacheSize:   DefaultCacheSize,
		StmtTimeout: DefaultStmtTimeout,
		User:        DefaultUser,
	}
}

// LoadConfigFile overlays the settings of the YAML file at path on cfg.
// Settings absent from the file keep their value.
func (cfg *Config) LoadConfigFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading config file")
	}
	if err := cfg.ParseYAML(data); err != nil {
		return errors.Wrapf(err, "in %s", path)
	}
	return nil
}

// ParseYAML overlays the settings of a YAML document on cfg.
func (cfg *Config) ParseYAML(data []byte) error {
	next := *cfg
	f := next.toFile()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return errors.Wrap(err, "parsing config")
	}
	f.apply(&next)
	if err := next.Validate(); err != nil {
		return err
	}
	*cfg = next
	return nil
}

// ToYAML renders cfg as a YAML document that ParseYAML accepts.
func (cfg *Config) ToYAML() ([]byte, error) {
	c := *cfg
	f := c.toFile()
	return yaml.Marshal(&f)
}

// Validate checks the settings.
func (cfg *Config) Validate() error {
	if _, err := storage.ParseEngineKind(cfg.Engine); err != nil {
		return err
	}
	if cfg.CacheSize < 0 {
		return errors.Newf("negative cache size %s", humanizeutil.IBytes(cfg.CacheSize))
	}
	if cfg.StmtTimeout < 0 {
		return errors.Newf("negative statement timeout %s", cfg.StmtTimeout)
	}
	return nil
}

// StorageConfig returns the engine configuration.
func (cfg *Config) StorageConfig() (storage.Config, error) {
	kind, err := storage.ParseEngineKind(cfg.Engine)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{
		Kind:      kind,
		Dir:       cfg.StoreDir,
		InMemory:  cfg.InMemory || cfg.StoreDir == "",
		CacheSize: cfg.CacheSize,
	}, nil
}

// OpenEngine opens the configured engine.
func (cfg *Config) OpenEngine(ctx context.Context) (storage.Engine, error) {
	sc, err := cfg.StorageConfig()
	if err != nil {
		return nil, err
	}
	return storage.Open(ctx, sc)
}

// NewSession returns the session data of a new session.
func (cfg *Config) NewSession() *sessiondata.SessionData {
	sd := sessiondata.New(cfg.User, ApplicationName)
	sd.StmtTimeout = cfg.StmtTimeout
	return sd
}
