// Copyright 2020 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package explain renders operator trees. Operators describe themselves to
// an OutputBuilder, which can then format the tree as text, JSON or a DOT
// graph.
package explain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/emicklei/dot"
)

// Node is implemented by everything that can appear in an explained tree.
type Node interface {
	// Explain emits the node, and recursively its inputs, into ob. It calls
	// EnterNode once, then AddField any number of times, explains its
	// inputs, and finally calls LeaveNode.
	Explain(ob *OutputBuilder)
}

// Field is a key/value attribute of a node.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type node struct {
	Name     string  `json:"name"`
	Fields   []Field `json:"fields,omitempty"`
	Children []*node `json:"children,omitempty"`
}

// OutputBuilder accumulates the tree emitted by Explain calls.
type OutputBuilder struct {
	// fields are added outside of any node and are printed before the tree.
	fields []Field
	roots  []*node
	stack  []*node
}

// NewOutputBuilder returns an empty builder.
func NewOutputBuilder() *OutputBuilder {
	return &OutputBuilder{}
}

// Explain returns a builder holding the tree of n.
func Explain(n Node) *OutputBuilder {
	ob := NewOutputBuilder()
	n.Explain(ob)
	return ob
}

// EnterNode starts a new node. Subsequent fields are added to it, and
// nodes entered before the matching LeaveNode become its children.
func (ob *OutputBuilder) EnterNode(name string) {
	n := &node{Name: name}
	if len(ob.stack) == 0 {
		ob.roots = append(ob.roots, n)
	} else {
		parent := ob.stack[len(ob.stack)-1]
		parent.Children = append(parent.Children, n)
	}
	ob.stack = append(ob.stack, n)
}

// LeaveNode ends the current node.
func (ob *OutputBuilder) LeaveNode() {
	if len(ob.stack) == 0 {
		panic(errors.AssertionFailedf("LeaveNode without EnterNode"))
	}
	ob.stack = ob.stack[:len(ob.stack)-1]
}

// AddField adds a key/value attribute to the current node. Outside of any
// node it adds a top-level field.
func (ob *OutputBuilder) AddField(key, value string) {
	f := Field{Key: key, Value: value}
	if len(ob.stack) == 0 {
		ob.fields = append(ob.fields, f)
		return
	}
	n := ob.stack[len(ob.stack)-1]
	n.Fields = append(n.Fields, f)
}

// Attrf is like AddField with a formatted value.
func (ob *OutputBuilder) Attrf(key, format string, args ...interface{}) {
	ob.AddField(key, fmt.Sprintf(format, args...))
}

// BuildString renders the tree as text, for example:
//
//	• delete
//	│ table: customer
//	│
//	└── • group scan
//	      group: customer
func (ob *OutputBuilder) BuildString() string {
	var sb strings.Builder
	for _, f := range ob.fields {
		fmt.Fprintf(&sb, "%s: %s\n", f.Key, f.Value)
	}
	if len(ob.fields) > 0 && len(ob.roots) > 0 {
		sb.WriteByte('\n')
	}
	for i, n := range ob.roots {
		if i > 0 {
			sb.WriteByte('\n')
		}
		writeNode(&sb, n, "", "")
	}
	return sb.String()
}

func writeNode(sb *strings.Builder, n *node, prefix, childPrefix string) {
	sb.WriteString(prefix)
	sb.WriteString("• ")
	sb.WriteString(n.Name)
	sb.WriteByte('\n')
	fieldPrefix := childPrefix + "  "
	if len(n.Children) > 0 {
		fieldPrefix = childPrefix + "│ "
	}
	for _, f := range n.Fields {
		fmt.Fprintf(sb, "%s%s: %s\n", fieldPrefix, f.Key, f.Value)
	}
	for i, c := range n.Children {
		if i > 0 || len(n.Fields) > 0 {
			sb.WriteString(childPrefix)
			sb.WriteString("│\n")
		}
		if i == len(n.Children)-1 {
			writeNode(sb, c, childPrefix+"└── ", childPrefix+"    ")
		} else {
			writeNode(sb, c, childPrefix+"├── ", childPrefix+"│   ")
		}
	}
}

// BuildStringRows returns the lines of BuildString.
func (ob *OutputBuilder) BuildStringRows() []string {
	s := strings.TrimSuffix(ob.BuildString(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

type jsonPlan struct {
	Fields []Field `json:"fields,omitempty"`
	Nodes  []*node `json:"nodes"`
}

// BuildJSON renders the tree as indented JSON.
func (ob *OutputBuilder) BuildJSON() ([]byte, error) {
	p := jsonPlan{Fields: ob.fields, Nodes: ob.roots}
	if p.Nodes == nil {
		p.Nodes = []*node{}
	}
	b, err := json.MarshalIndent(p, "", "  ")
	return b, errors.Wrap(err, "encoding plan")
}

// BuildDOT renders the tree as a Graphviz graph with an edge from every
// node to each of its inputs.
func (ob *OutputBuilder) BuildDOT() string {
	g := dot.NewGraph(dot.Directed)
	g.Attr("rankdir", "TB")
	var id int
	var add func(n *node) dot.Node
	add = func(n *node) dot.Node {
		id++
		label := n.Name
		for _, f := range n.Fields {
			label += fmt.Sprintf("\n%s: %s", f.Key, f.Value)
		}
		gn := g.Node(fmt.Sprintf("n%d", id)).Label(label).Attr("shape", "box")
		for _, c := range n.Children {
			g.Edge(gn, add(c))
		}
		return gn
	}
	for _, n := range ob.roots {
		add(n)
	}
	return g.String()
}
