package algebra

import (
	"fmt"
	"strings"

	"github.com/polypheny/polypheny-go/types"
)

// RexKind tags the shape of a scalar expression node.
type RexKind int

const (
	RexInputRef RexKind = iota
	RexLiteral
	RexCall
	RexOver
	RexFieldAccess
	RexCorrelVariable
)

// Operator identifies a scalar function/operator invoked by a Call or
// Over expression. Name is matched case-insensitively by the validator's
// function-resolution pass (§4.4).
type Operator struct {
	Name      string
	IsAggregate bool
	IsWindow    bool
	Monotonic   bool // true for single-arg calls that preserve input collation (§4.2)
}

func (o Operator) String() string { return strings.ToUpper(o.Name) }

// RexNode is a node of the scalar-expression tree. Every node carries its
// own resolved Type so downstream consumers never need to re-infer it.
type RexNode interface {
	Kind() RexKind
	Type() *types.Type
	Children() []RexNode
	String() string
}

// InputRef references field i of the enclosing AlgNode's input row type
// (inputs concatenated left-to-right for multi-input operators).
type InputRef struct {
	Index int
	Typ   *types.Type
}

func (r *InputRef) Kind() RexKind     { return RexInputRef }
func (r *InputRef) Type() *types.Type { return r.Typ }
func (r *InputRef) Children() []RexNode { return nil }
func (r *InputRef) String() string    { return fmt.Sprintf("$%d", r.Index) }

// Literal is a typed constant value. Value holds a Go-native
// representation (int64, float64, string, bool, *decimal-ish struct, nil
// for NULL) appropriate to Typ.Kind.
type Literal struct {
	Value interface{}
	Typ   *types.Type
}

func (l *Literal) Kind() RexKind     { return RexLiteral }
func (l *Literal) Type() *types.Type { return l.Typ }
func (l *Literal) Children() []RexNode { return nil }
func (l *Literal) String() string {
	if l.Value == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", l.Value)
}

// Call applies Op to Args; Typ is the resolved return type chosen by
// overload resolution (§4.4).
type Call struct {
	Op   Operator
	Args []RexNode
	Typ  *types.Type
}

func (c *Call) Kind() RexKind     { return RexCall }
func (c *Call) Type() *types.Type { return c.Typ }
func (c *Call) Children() []RexNode { return c.Args }
func (c *Call) String() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", c.Op, strings.Join(parts, ", "))
}

// WindowSpec describes the PARTITION BY / ORDER BY / frame of a window
// function invocation.
type WindowSpec struct {
	PartitionKeys []int
	OrderBy       Collation
	FrameStart    *int // nil = UNBOUNDED PRECEDING
	FrameEnd      *int // nil = UNBOUNDED FOLLOWING
}

// Over is a window-function call: Op applied to Args within Spec.
type Over struct {
	Op   Operator
	Args []RexNode
	Spec WindowSpec
	Typ  *types.Type
}

func (o *Over) Kind() RexKind     { return RexOver }
func (o *Over) Type() *types.Type { return o.Typ }
func (o *Over) Children() []RexNode { return o.Args }
func (o *Over) String() string {
	parts := make([]string, len(o.Args))
	for i, a := range o.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s(%s) OVER (...)", o.Op, strings.Join(parts, ", "))
}

// FieldAccess projects a named field out of a record-typed expression
// (document/nested-struct field dereference).
type FieldAccess struct {
	Struct RexNode
	Name   string
	Typ    *types.Type
}

func (f *FieldAccess) Kind() RexKind       { return RexFieldAccess }
func (f *FieldAccess) Type() *types.Type   { return f.Typ }
func (f *FieldAccess) Children() []RexNode { return []RexNode{f.Struct} }
func (f *FieldAccess) String() string      { return fmt.Sprintf("%s.%s", f.Struct, f.Name) }

// CorrelVariable references a value supplied by an enclosing Correlate
// operator (§4.2 Correlate), identified by correlation id and field name.
type CorrelVariable struct {
	CorrelationID string
	Field         string
	Typ           *types.Type
}

func (c *CorrelVariable) Kind() RexKind       { return RexCorrelVariable }
func (c *CorrelVariable) Type() *types.Type   { return c.Typ }
func (c *CorrelVariable) Children() []RexNode { return nil }
func (c *CorrelVariable) String() string      { return fmt.Sprintf("$cor{%s}.%s", c.CorrelationID, c.Field) }

// RexEqual reports structural equality of two scalar expression trees.
func RexEqual(a, b RexNode) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case *InputRef:
		return av.Index == b.(*InputRef).Index
	case *Literal:
		bv := b.(*Literal)
		return fmt.Sprintf("%v", av.Value) == fmt.Sprintf("%v", bv.Value) && types.Equal(av.Typ, bv.Typ)
	case *Call:
		bv := b.(*Call)
		if av.Op.Name != bv.Op.Name || len(av.Args) != len(bv.Args) {
			return false
		}
		for i := range av.Args {
			if !RexEqual(av.Args[i], bv.Args[i]) {
				return false
			}
		}
		return true
	case *FieldAccess:
		bv := b.(*FieldAccess)
		return av.Name == bv.Name && RexEqual(av.Struct, bv.Struct)
	case *CorrelVariable:
		bv := b.(*CorrelVariable)
		return av.CorrelationID == bv.CorrelationID && av.Field == bv.Field
	default:
		return false
	}
}
