package exec

import (
	"github.com/polypheny/polypheny-go/adapter"
	"github.com/polypheny/polypheny-go/algebra"
	"github.com/polypheny/polypheny-go/router"
	"github.com/polypheny/polypheny-go/session"
)

// countIter yields exactly one ROWCOUNT row, the shape every DML
// statement returns to the caller (§4.7).
type countIter struct {
	n    int64
	done bool
}

func (c *countIter) Next(ctx *session.Context) (Row, bool, error) {
	if c.done {
		return nil, false, nil
	}
	c.done = true
	return Row{c.n}, true, nil
}

func (c *countIter) Close(ctx *session.Context) error { return nil }

// compileModify invokes the adapter directly; a lone PhysicalModify only
// appears this way in tests or tools that route a single-placement
// write without going through Multiplex.
func (e *Executor) compileModify(ctx *session.Context, n *router.PhysicalModify) (Iterator, error) {
	count, err := e.runModify(ctx, n)
	if err != nil {
		return nil, err
	}
	return &countIter{n: count}, nil
}

func (e *Executor) runModify(ctx *session.Context, n *router.PhysicalModify) (int64, error) {
	a, ok := e.registry.Get(n.AdapterID)
	if !ok {
		return 0, ErrUnknownAdapter.New(n.AdapterID)
	}
	plan, err := buildPlan(n)
	if err != nil {
		return 0, err
	}
	switch n.ModOp {
	case algebra.Insert:
		return a.Insert(ctx, n.Allocation, plan)
	case algebra.Update:
		return a.Update(ctx, n.Allocation, plan)
	case algebra.Delete:
		return a.Delete(ctx, n.Allocation, plan)
	default:
		return 0, ErrUnsupportedNode.New("PhysicalModify with unsupported ModOp")
	}
}

// buildPlan evaluates n's Rex expressions (constants, by construction of
// the router's fan-out, §4.6) into the adapter-facing Plan shape.
func buildPlan(n *router.PhysicalModify) (adapter.Plan, error) {
	plan := adapter.Plan{Columns: n.Columns, Filter: n.Filter}
	if n.Rows != nil {
		rows := make([]adapter.Row, len(n.Rows))
		for i, r := range n.Rows {
			row := make(adapter.Row, len(r))
			for j, expr := range r {
				v, err := Eval(expr, nil)
				if err != nil {
					return adapter.Plan{}, err
				}
				row[j] = v
			}
			rows[i] = row
		}
		plan.Rows = rows
	}
	if n.Set != nil {
		plan.Set = n.Set
	}
	return plan, nil
}

// compileMultiplex runs every target placement's write and sums the
// resulting row counts into the single ROWCOUNT the caller sees (§4.6
// DML fan-out, §4.7). Each target is enlisted on the transaction already
// by the router; the executor only has to invoke the adapters.
func (e *Executor) compileMultiplex(ctx *session.Context, n *router.Multiplex) (Iterator, error) {
	var total int64
	for _, target := range n.Targets {
		c, err := e.runModify(ctx, target)
		if err != nil {
			return nil, err
		}
		total += c
	}
	return &countIter{n: total}, nil
}
