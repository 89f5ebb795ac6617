package exec

import (
	"fmt"

	"github.com/polypheny/polypheny-go/adapter"
	"github.com/polypheny/polypheny-go/algebra"
	"github.com/polypheny/polypheny-go/router"
	"github.com/polypheny/polypheny-go/session"
)

// Executor compiles a routed physical plan into an Iterator tree and
// drives DML Multiplex nodes to completion. It is the last stage of the
// pipeline (parser -> planner -> router -> executor, §4.7).
type Executor struct {
	registry *adapter.Registry
}

// New builds an Executor bound to the adapter registry every compiled
// Scan/Modify leaf dispatches into.
func New(registry *adapter.Registry) *Executor {
	return &Executor{registry: registry}
}

// Compile walks plan bottom-up, turning each node into an Iterator.
// plan is the tree router.Route produced: a mix of plain algebra.AlgNode
// (Values, Filter, Project, Aggregate, Join, Sort, SetOp, Exchange,
// Correlate) and the router's physical leaves (PhysicalScan,
// PhysicalModify, Multiplex). Any other node, Window included, is
// reported as ErrUnsupportedNode.
func (e *Executor) Compile(ctx *session.Context, plan algebra.AlgNode) (Iterator, error) {
	switch n := plan.(type) {
	case *router.PhysicalScan:
		return e.compileScan(ctx, n)
	case *router.Multiplex:
		return e.compileMultiplex(ctx, n)
	case *router.PhysicalModify:
		return e.compileModify(ctx, n)
	case *algebra.Values:
		return newValuesIter(n), nil
	case *algebra.Filter:
		return e.compileFilter(ctx, n)
	case *algebra.Project:
		return e.compileProject(ctx, n)
	case *algebra.Aggregate:
		return e.compileAggregate(ctx, n)
	case *algebra.Join:
		return e.compileJoin(ctx, n)
	case *algebra.SetOp:
		return e.compileSetOp(ctx, n)
	case *algebra.Sort:
		return e.compileSort(ctx, n)
	case *algebra.Exchange:
		return e.compileExchange(ctx, n)
	case *algebra.Correlate:
		return e.compileCorrelate(ctx, n)
	default:
		return nil, ErrUnsupportedNode.New(fmt.Sprintf("%T", plan))
	}
}

// compileChild is the one recursive entry point every compileX helper
// uses for its own inputs, so Compile's node-type switch lives in
// exactly one place.
func (e *Executor) compileChild(ctx *session.Context, n algebra.AlgNode) (Iterator, error) {
	return e.Compile(ctx, n)
}

// Run fully drains plan and returns every produced row. Engine.Query
// calls it, so every result reaches its caller fully materialized.
func (e *Executor) Run(ctx *session.Context, plan algebra.AlgNode) ([]Row, error) {
	it, err := e.Compile(ctx, plan)
	if err != nil {
		return nil, err
	}
	defer it.Close(ctx)
	return Drain(ctx, it)
}
