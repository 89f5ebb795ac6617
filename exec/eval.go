package exec

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/polypheny/polypheny-go/algebra"
	"github.com/polypheny/polypheny-go/types"
)

// Eval evaluates expr against row, resolving InputRef by position. It
// implements exactly the operator set the validator (C4) currently
// lowers scalar expressions to (§4.4): AND/OR and the six comparison
// operators, plus NULL-aware three-valued logic.
func Eval(expr algebra.RexNode, row Row) (interface{}, error) {
	switch e := expr.(type) {
	case *algebra.Literal:
		return e.Value, nil
	case *algebra.InputRef:
		if e.Index < 0 || e.Index >= len(row) {
			return nil, ErrUnsupportedExpr.New(fmt.Sprintf("input ref $%d out of range for row of %d", e.Index, len(row)))
		}
		return row[e.Index], nil
	case *algebra.Call:
		return evalCall(e, row)
	case *algebra.CorrelVariable:
		return evalCorrelVariable(e)
	default:
		return nil, ErrUnsupportedExpr.New(expr.String())
	}
}

func evalCorrelVariable(c *algebra.CorrelVariable) (interface{}, error) {
	bound, ok := correlationBindings.Load(c.CorrelationID)
	if !ok {
		return nil, ErrUnsupportedExpr.New(fmt.Sprintf("correlation variable %q has no active binding", c.CorrelationID))
	}
	vars := bound.(map[string]interface{})
	return vars[c.Field], nil
}

// EvalBool evaluates expr and applies SQL's WHERE-clause rule: NULL (and
// non-boolean garbage) is treated as false, never as an error.
func EvalBool(expr algebra.RexNode, row Row) (bool, error) {
	if expr == nil {
		return true, nil
	}
	v, err := Eval(expr, row)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	return ok && b, nil
}

func evalCall(c *algebra.Call, row Row) (interface{}, error) {
	name := strings.ToUpper(c.Op.Name)
	switch name {
	case "AND":
		l, err := EvalBool(c.Args[0], row)
		if err != nil {
			return nil, err
		}
		if !l {
			return false, nil
		}
		return EvalBool(c.Args[1], row)
	case "OR":
		l, err := EvalBool(c.Args[0], row)
		if err != nil {
			return nil, err
		}
		if l {
			return true, nil
		}
		return EvalBool(c.Args[1], row)
	case "=", "<>", "<", ">", "<=", ">=":
		return evalComparison(name, c, row)
	default:
		return nil, ErrUnsupportedExpr.New(c.String())
	}
}

func evalComparison(op string, c *algebra.Call, row Row) (interface{}, error) {
	l, err := Eval(c.Args[0], row)
	if err != nil {
		return nil, err
	}
	r, err := Eval(c.Args[1], row)
	if err != nil {
		return nil, err
	}
	if l == nil || r == nil {
		return nil, nil // unknown, per SQL three-valued logic
	}
	cmp, err := compare(l, r)
	if err != nil {
		return nil, err
	}
	switch op {
	case "=":
		return cmp == 0, nil
	case "<>":
		return cmp != 0, nil
	case "<":
		return cmp < 0, nil
	case ">":
		return cmp > 0, nil
	case "<=":
		return cmp <= 0, nil
	case ">=":
		return cmp >= 0, nil
	}
	panic("unreachable")
}

// compare orders two already-evaluated values, coercing numeric kinds to
// float64 the way types.LeastRestrictive's callers expect two comparable
// operands to have already been coerced by the validator; string and bool
// compare natively.
func compare(l, r interface{}) (int, error) {
	if lf, ok := asFloat(l); ok {
		if rf, ok := asFloat(r); ok {
			switch {
			case lf < rf:
				return -1, nil
			case lf > rf:
				return 1, nil
			default:
				return 0, nil
			}
		}
	}
	if ls, ok := l.(string); ok {
		if rs, ok := r.(string); ok {
			return strings.Compare(ls, rs), nil
		}
	}
	if lb, ok := l.(bool); ok {
		if rb, ok := r.(bool); ok {
			if lb == rb {
				return 0, nil
			}
			if !lb {
				return -1, nil
			}
			return 1, nil
		}
	}
	return 0, ErrUnsupportedExpr.New(fmt.Sprintf("cannot compare %T and %T", l, r))
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case decimal.Decimal:
		f, _ := n.Float64()
		return f, true
	default:
		return 0, false
	}
}

// zeroValueFor returns the output type's zero value, used by Aggregate
// as a SUM's result when its group received no input values (§4.2).
func zeroValueFor(t *types.Type) interface{} {
	switch t.Kind {
	case types.BigInt, types.Integer, types.SmallInt, types.TinyInt:
		return int64(0)
	case types.Double, types.Float, types.Decimal:
		return float64(0)
	default:
		return nil
	}
}
