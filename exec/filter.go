package exec

import (
	"github.com/polypheny/polypheny-go/algebra"
	"github.com/polypheny/polypheny-go/session"
)

// filterIter pulls from its input until Cond evaluates true, mirroring
// the teacher's filter iterator's skip-until-match loop.
type filterIter struct {
	input Iterator
	cond  algebra.RexNode
}

func (f *filterIter) Next(ctx *session.Context) (Row, bool, error) {
	for {
		if err := ctx.CheckSuspension(); err != nil {
			return nil, false, err
		}
		row, ok, err := f.input.Next(ctx)
		if err != nil || !ok {
			return nil, false, err
		}
		keep, err := EvalBool(f.cond, row)
		if err != nil {
			return nil, false, err
		}
		if keep {
			return row, true, nil
		}
	}
}

func (f *filterIter) Close(ctx *session.Context) error { return f.input.Close(ctx) }

func (e *Executor) compileFilter(ctx *session.Context, n *algebra.Filter) (Iterator, error) {
	in, err := e.compileChild(ctx, n.Inputs()[0])
	if err != nil {
		return nil, err
	}
	return &filterIter{input: in, cond: n.Cond}, nil
}
