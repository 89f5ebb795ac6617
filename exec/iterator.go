// Package exec is the executor (C7): it compiles a routed physical plan
// (produced by router, C6) into a tree of pull-based row iterators and
// drives it to completion, mirroring the teacher's sql.RowIter pipeline
// (dolthub-go-mysql-server's sql/rowexec package never shipped
// implementation bodies in this retrieval pack, only its _test.go files,
// so the iterator shape here is reconstructed from those tests' usage of
// sql.RowIter.Next/Close plus the adapter.RowStream contract C9 already
// commits every store to).
package exec

import (
	"github.com/polypheny/polypheny-go/session"
)

// Row is one row moving through the executor: positional values in the
// producing operator's RowType() field order.
type Row []interface{}

// Iterator is the pull-based contract every physical operator
// implements (§4.7). Next returns the next row, or ok=false once the
// operator is exhausted; operators must tolerate repeated Close calls.
type Iterator interface {
	Next(ctx *session.Context) (row Row, ok bool, err error)
	Close(ctx *session.Context) error
}

// Fetch pulls up to n rows from it, stopping early (with a shorter,
// possibly empty slice) once it is exhausted. This is the batch-sized
// pull the coordinator uses to drain a remote Exchange leg in chunks
// instead of one row at a time (§5).
func Fetch(ctx *session.Context, it Iterator, n int) ([]Row, bool, error) {
	rows := make([]Row, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.CheckSuspension(); err != nil {
			return rows, false, err
		}
		row, ok, err := it.Next(ctx)
		if err != nil {
			return rows, false, err
		}
		if !ok {
			return rows, false, nil
		}
		rows = append(rows, row)
	}
	return rows, true, nil
}

// Drain pulls every remaining row from it, used by operators (Sort,
// the join's right side, Aggregate, SetOp) that must materialize input before
// producing their first output row.
func Drain(ctx *session.Context, it Iterator) ([]Row, error) {
	var out []Row
	for {
		if err := ctx.CheckSuspension(); err != nil {
			return out, err
		}
		row, ok, err := it.Next(ctx)
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, row)
	}
}
