package exec

import (
	"github.com/polypheny/polypheny-go/adapter"
	"github.com/polypheny/polypheny-go/router"
	"github.com/polypheny/polypheny-go/session"
)

// scanIter adapts an adapter.RowStream (C9) to exec's Iterator, the one
// place the executor crosses from the coordinator into a store.
type scanIter struct {
	stream adapter.RowStream
}

func (s *scanIter) Next(ctx *session.Context) (Row, bool, error) {
	if err := ctx.CheckSuspension(); err != nil {
		return nil, false, err
	}
	row, ok, err := s.stream.Next(ctx)
	if err != nil || !ok {
		return nil, false, err
	}
	return Row(row), true, nil
}

func (s *scanIter) Close(ctx *session.Context) error {
	return s.stream.Close()
}

func (e *Executor) compileScan(ctx *session.Context, n *router.PhysicalScan) (Iterator, error) {
	a, ok := e.registry.Get(n.AdapterID)
	if !ok {
		return nil, ErrUnknownAdapter.New(n.AdapterID)
	}
	stream, err := a.Scan(ctx, n.Allocation, n.Columns, n.Predicate)
	if err != nil {
		return nil, err
	}
	return &scanIter{stream: stream}, nil
}
