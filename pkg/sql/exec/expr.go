// Copyright 2017 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package exec

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/sql/pgwire/pgcode"
	"github.com/cockroachdb/groupsql/pkg/sql/pgwire/pgerror"
	"github.com/cockroachdb/groupsql/pkg/sql/rowenc"
	"github.com/cockroachdb/groupsql/pkg/sql/sem/tree"
)

// Bindings holds the values of the positional parameters of one execution.
// Parameter $1 is the first value.
type Bindings []tree.Datum

// MakeBindings returns bindings holding vals.
func MakeBindings(vals ...tree.Datum) Bindings { return Bindings(vals) }

// Get returns the value of parameter $n.
func (b Bindings) Get(n int) (tree.Datum, error) {
	if n < 1 || n > len(b) {
		return nil, pgerror.Newf(pgcode.UndefinedParameter, "no value provided for placeholder: $%d", n)
	}
	return b[n-1], nil
}

// Expr is a scalar expression evaluated against a row.
type Expr interface {
	fmt.Stringer
	// Eval computes the value of the expression. row is nil for expressions
	// evaluated outside of any row, such as index scan bounds.
	Eval(row *rowenc.Row, b Bindings) (tree.Datum, error)
}

// ColumnRef is the value of a column of rows of one type.
type ColumnRef struct {
	Type    *rowenc.RowType
	Ordinal int
}

var _ Expr = &ColumnRef{}

// NewColumnRef returns a reference to the named column of rt.
func NewColumnRef(rt *rowenc.RowType, name string) (*ColumnRef, error) {
	ord, ok := rt.ColumnOrdinal(name)
	if !ok {
		return nil, pgerror.Newf(pgcode.UndefinedColumn, "column %q does not exist in %s", name, rt)
	}
	return &ColumnRef{Type: rt, Ordinal: ord}, nil
}

// Eval is part of the Expr interface.
func (c *ColumnRef) Eval(row *rowenc.Row, _ Bindings) (tree.Datum, error) {
	if row == nil {
		return nil, errors.AssertionFailedf("column %s referenced outside of a row", c)
	}
	if !row.Type.Is(c.Type) {
		return nil, errors.AssertionFailedf("column of %s evaluated against a %s row", c.Type, row.Type)
	}
	return row.Datum(c.Ordinal)
}

func (c *ColumnRef) String() string { return c.Type.Names[c.Ordinal] }

// Literal is a constant.
type Literal struct {
	Datum tree.Datum
}

var _ Expr = &Literal{}

// Eval is part of the Expr interface.
func (l *Literal) Eval(*rowenc.Row, Bindings) (tree.Datum, error) { return l.Datum, nil }

func (l *Literal) String() string { return l.Datum.String() }

// Param is a positional parameter, bound per execution.
type Param struct {
	N int
}

var _ Expr = &Param{}

// Eval is part of the Expr interface.
func (p *Param) Eval(_ *rowenc.Row, b Bindings) (tree.Datum, error) { return b.Get(p.N) }

func (p *Param) String() string { return fmt.Sprintf("$%d", p.N) }

// ComparisonOp is a comparison operator.
type ComparisonOp int

const (
	EQ ComparisonOp = iota
	NE
	LT
	LE
	GT
	GE
)

var comparisonOpNames = [...]string{EQ: "=", NE: "<>", LT: "<", LE: "<=", GT: ">", GE: ">="}

func (op ComparisonOp) String() string {
	if int(op) < len(comparisonOpNames) {
		return comparisonOpNames[op]
	}
	return fmt.Sprintf("ComparisonOp(%d)", int(op))
}

// Comparison compares two values. A comparison involving NULL is NULL.
type Comparison struct {
	Op          ComparisonOp
	Left, Right Expr
}

var _ Expr = &Comparison{}

// Eval is part of the Expr interface.
func (c *Comparison) Eval(row *rowenc.Row, b Bindings) (tree.Datum, error) {
	l, err := c.Left.Eval(row, b)
	if err != nil {
		return nil, err
	}
	r, err := c.Right.Eval(row, b)
	if err != nil {
		return nil, err
	}
	if l == tree.DNull || r == tree.DNull {
		return tree.DNull, nil
	}
	cmp, err := l.Compare(r)
	if err != nil {
		return nil, pgerror.Wrapf(err, pgcode.DatatypeMismatch, "comparing %s", c)
	}
	var res bool
	switch c.Op {
	case EQ:
		res = cmp == 0
	case NE:
		res = cmp != 0
	case LT:
		res = cmp < 0
	case LE:
		res = cmp <= 0
	case GT:
		res = cmp > 0
	case GE:
		res = cmp >= 0
	default:
		return nil, errors.AssertionFailedf("unknown comparison %s", c.Op)
	}
	return tree.MakeDBool(res), nil
}

func (c *Comparison) String() string {
	return fmt.Sprintf("%s %s %s", c.Left, c.Op, c.Right)
}

// asBool interprets a datum as a three-valued boolean. ok is false for NULL.
func asBool(d tree.Datum) (val, ok bool, err error) {
	if d == tree.DNull {
		return false, false, nil
	}
	v, isBool := d.(*tree.DBool)
	if !isBool {
		return false, false, pgerror.Newf(pgcode.DatatypeMismatch,
			"argument of boolean expression must be type bool, not %s", d.ResolvedType())
	}
	return bool(*v), true, nil
}

// And is the three-valued conjunction of its operands.
type And struct {
	Left, Right Expr
}

var _ Expr = &And{}

// Eval is part of the Expr interface.
func (a *And) Eval(row *rowenc.Row, b Bindings) (tree.Datum, error) {
	l, err := a.Left.Eval(row, b)
	if err != nil {
		return nil, err
	}
	lv, lok, err := asBool(l)
	if err != nil {
		return nil, err
	}
	if lok && !lv {
		return tree.DBoolFalse, nil
	}
	r, err := a.Right.Eval(row, b)
	if err != nil {
		return nil, err
	}
	rv, rok, err := asBool(r)
	if err != nil {
		return nil, err
	}
	switch {
	case rok && !rv:
		return tree.DBoolFalse, nil
	case lok && rok:
		return tree.DBoolTrue, nil
	}
	return tree.DNull, nil
}

func (a *And) String() string { return fmt.Sprintf("(%s AND %s)", a.Left, a.Right) }

// Or is the three-valued disjunction of its operands.
type Or struct {
	Left, Right Expr
}

var _ Expr = &Or{}

// Eval is part of the Expr interface.
func (o *Or) Eval(row *rowenc.Row, b Bindings) (tree.Datum, error) {
	l, err := o.Left.Eval(row, b)
	if err != nil {
		return nil, err
	}
	lv, lok, err := asBool(l)
	if err != nil {
		return nil, err
	}
	if lok && lv {
		return tree.DBoolTrue, nil
	}
	r, err := o.Right.Eval(row, b)
	if err != nil {
		return nil, err
	}
	rv, rok, err := asBool(r)
	if err != nil {
		return nil, err
	}
	switch {
	case rok && rv:
		return tree.DBoolTrue, nil
	case lok && rok:
		return tree.DBoolFalse, nil
	}
	return tree.DNull, nil
}

func (o *Or) String() string { return fmt.Sprintf("(%s OR %s)", o.Left, o.Right) }

// Not negates its operand. NOT NULL is NULL.
type Not struct {
	Input Expr
}

var _ Expr = &Not{}

// Eval is part of the Expr interface.
func (n *Not) Eval(row *rowenc.Row, b Bindings) (tree.Datum, error) {
	d, err := n.Input.Eval(row, b)
	if err != nil {
		return nil, err
	}
	v, ok, err := asBool(d)
	if err != nil || !ok {
		return tree.DNull, err
	}
	return tree.MakeDBool(!v), nil
}

func (n *Not) String() string { return fmt.Sprintf("NOT %s", n.Input) }

// IsNull is true if its operand is NULL.
type IsNull struct {
	Input Expr
}

var _ Expr = &IsNull{}

// Eval is part of the Expr interface.
func (n *IsNull) Eval(row *rowenc.Row, b Bindings) (tree.Datum, error) {
	d, err := n.Input.Eval(row, b)
	if err != nil {
		return nil, err
	}
	return tree.MakeDBool(d == tree.DNull), nil
}

func (n *IsNull) String() string { return fmt.Sprintf("%s IS NULL", n.Input) }

// evalPredicate returns true if the predicate is true for row. NULL is not
// true.
func evalPredicate(p Expr, row *rowenc.Row, b Bindings) (bool, error) {
	d, err := p.Eval(row, b)
	if err != nil {
		return false, err
	}
	v, ok, err := asBool(d)
	return ok && v, err
}

// evalExprs evaluates a list of expressions.
func evalExprs(exprs []Expr, row *rowenc.Row, b Bindings) (tree.Datums, error) {
	res := make(tree.Datums, len(exprs))
	for i, e := range exprs {
		d, err := e.Eval(row, b)
		if err != nil {
			return nil, err
		}
		res[i] = d
	}
	return res, nil
}
