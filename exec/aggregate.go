package exec

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/polypheny/polypheny-go/algebra"
	"github.com/polypheny/polypheny-go/session"
)

// aggregateIter hash-groups its fully materialized input by GroupKeys
// and folds each AggCall over every group (§4.2 Aggregate). The whole
// input must be seen before the first group can be finalized, so Drain
// runs eagerly the first time Next is called.
type aggregateIter struct {
	input     Iterator
	groupKeys []int
	aggs      []algebra.AggCall

	rows []Row
	pos  int
}

func (a *aggregateIter) Next(ctx *session.Context) (Row, bool, error) {
	if err := ctx.CheckSuspension(); err != nil {
		return nil, false, err
	}
	if a.rows == nil {
		if err := a.compute(ctx); err != nil {
			return nil, false, err
		}
	}
	if a.pos >= len(a.rows) {
		return nil, false, nil
	}
	row := a.rows[a.pos]
	a.pos++
	return row, true, nil
}

func (a *aggregateIter) compute(ctx *session.Context) error {
	in, err := Drain(ctx, a.input)
	if err != nil {
		return err
	}
	type group struct {
		key  string
		keys Row
		acc  []aggState
	}
	order := []string{}
	groups := map[string]*group{}
	for _, row := range in {
		key := groupKey(row, a.groupKeys)
		g, ok := groups[key]
		if !ok {
			g = &group{key: key, keys: projectKeys(row, a.groupKeys), acc: newAggStates(a.aggs)}
			groups[key] = g
			order = append(order, key)
		}
		for i, agg := range a.aggs {
			if err := g.acc[i].add(agg, row); err != nil {
				return err
			}
		}
	}
	if len(in) == 0 && len(a.groupKeys) == 0 {
		// SELECT COUNT(*) ... with no GROUP BY over an empty input still
		// produces one row of aggregate defaults (§4.2).
		order = []string{""}
		groups[""] = &group{acc: newAggStates(a.aggs)}
	}
	out := make([]Row, 0, len(order))
	for _, k := range order {
		g := groups[k]
		row := make(Row, 0, len(a.groupKeys)+len(a.aggs))
		row = append(row, g.keys...)
		for i, agg := range a.aggs {
			row = append(row, g.acc[i].result(agg))
		}
		out = append(out, row)
	}
	a.rows = out
	return nil
}

func groupKey(row Row, keys []int) string {
	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "%v\x1f", row[k])
	}
	return sb.String()
}

func projectKeys(row Row, keys []int) Row {
	out := make(Row, len(keys))
	for i, k := range keys {
		out[i] = row[k]
	}
	return out
}

// aggState accumulates one AggCall's running value across a group. SUM
// and AVG switch to decimal.Decimal accumulation the moment the first
// DECIMAL value arrives, keeping it exact instead of round-tripping
// through float64 the way the plain numeric path does.
type aggState struct {
	count     int64
	sum       float64
	sumDec    decimal.Decimal
	isDecimal bool
	min       interface{}
	max       interface{}
	seen      map[string]bool // DISTINCT tracking, keyed by distinctKey
}

func newAggStates(aggs []algebra.AggCall) []aggState {
	out := make([]aggState, len(aggs))
	for i, a := range aggs {
		if a.Distinct {
			out[i].seen = map[string]bool{}
		}
	}
	return out
}

// distinctKey normalizes a value for DISTINCT tracking. decimal.Decimal
// wraps a *big.Int, so two equal decimals can carry different pointers
// and must not be used as map keys directly; its String() form is a
// stable stand-in.
func distinctKey(v interface{}) string {
	if d, ok := v.(decimal.Decimal); ok {
		return d.String()
	}
	return fmt.Sprintf("%v", v)
}

func (s *aggState) add(agg algebra.AggCall, row Row) error {
	var v interface{}
	if len(agg.Args) > 0 {
		val, err := Eval(agg.Args[0], row)
		if err != nil {
			return err
		}
		v = val
	}
	if agg.Distinct && v != nil {
		key := distinctKey(v)
		if s.seen[key] {
			return nil
		}
		s.seen[key] = true
	}
	switch strings.ToUpper(agg.Op.Name) {
	case "COUNT":
		if len(agg.Args) == 0 || v != nil {
			s.count++
		}
	case "SUM", "AVG":
		if v != nil {
			if d, ok := v.(decimal.Decimal); ok {
				if s.count == 0 {
					s.isDecimal = true
				}
				s.sumDec = s.sumDec.Add(d)
				s.count++
				break
			}
			f, ok := asFloat(v)
			if !ok {
				return ErrUnsupportedExpr.New(fmt.Sprintf("%s over non-numeric value %v", agg.Op, v))
			}
			s.sum += f
			s.count++
		}
	case "MIN":
		if v != nil {
			if s.min == nil {
				s.min = v
			} else if cmp, err := compare(v, s.min); err == nil && cmp < 0 {
				s.min = v
			}
		}
	case "MAX":
		if v != nil {
			if s.max == nil {
				s.max = v
			} else if cmp, err := compare(v, s.max); err == nil && cmp > 0 {
				s.max = v
			}
		}
	default:
		return ErrUnsupportedExpr.New(agg.Op.String())
	}
	return nil
}

func (s *aggState) result(agg algebra.AggCall) interface{} {
	switch strings.ToUpper(agg.Op.Name) {
	case "COUNT":
		return s.count
	case "SUM":
		if s.count == 0 {
			return zeroValueFor(agg.Typ)
		}
		if s.isDecimal {
			return s.sumDec
		}
		return s.sum
	case "AVG":
		if s.count == 0 {
			return nil
		}
		if s.isDecimal {
			return s.sumDec.Div(decimal.NewFromInt(s.count))
		}
		return s.sum / float64(s.count)
	case "MIN":
		return s.min
	case "MAX":
		return s.max
	default:
		return nil
	}
}

func (a *aggregateIter) Close(ctx *session.Context) error { return a.input.Close(ctx) }

func (e *Executor) compileAggregate(ctx *session.Context, n *algebra.Aggregate) (Iterator, error) {
	in, err := e.compileChild(ctx, n.Inputs()[0])
	if err != nil {
		return nil, err
	}
	return &aggregateIter{input: in, groupKeys: n.GroupKeys, aggs: n.Aggs}, nil
}
