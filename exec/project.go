package exec

import (
	"github.com/polypheny/polypheny-go/algebra"
	"github.com/polypheny/polypheny-go/session"
)

// projectIter re-evaluates Exprs against each input row, producing the
// narrower/reordered/computed output row (§4.2 Project).
type projectIter struct {
	input Iterator
	exprs []algebra.RexNode
}

func (p *projectIter) Next(ctx *session.Context) (Row, bool, error) {
	if err := ctx.CheckSuspension(); err != nil {
		return nil, false, err
	}
	in, ok, err := p.input.Next(ctx)
	if err != nil || !ok {
		return nil, false, err
	}
	out := make(Row, len(p.exprs))
	for i, e := range p.exprs {
		v, err := Eval(e, in)
		if err != nil {
			return nil, false, err
		}
		out[i] = v
	}
	return out, true, nil
}

func (p *projectIter) Close(ctx *session.Context) error { return p.input.Close(ctx) }

func (e *Executor) compileProject(ctx *session.Context, n *algebra.Project) (Iterator, error) {
	in, err := e.compileChild(ctx, n.Inputs()[0])
	if err != nil {
		return nil, err
	}
	return &projectIter{input: in, exprs: n.Exprs}, nil
}
