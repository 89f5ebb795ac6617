package exec

import (
	"github.com/polypheny/polypheny-go/algebra"
	"github.com/polypheny/polypheny-go/session"
)

// valuesIter evaluates a VALUES literal list row by row, the leaf an
// INSERT's source and ad-hoc row constructors compile to.
type valuesIter struct {
	rows []algebra.RexNode
	pos  int
	all  [][]algebra.RexNode
}

func newValuesIter(v *algebra.Values) *valuesIter {
	return &valuesIter{all: v.Rows}
}

func (it *valuesIter) Next(ctx *session.Context) (Row, bool, error) {
	if err := ctx.CheckSuspension(); err != nil {
		return nil, false, err
	}
	if it.pos >= len(it.all) {
		return nil, false, nil
	}
	exprs := it.all[it.pos]
	it.pos++
	row := make(Row, len(exprs))
	for i, e := range exprs {
		v, err := Eval(e, nil)
		if err != nil {
			return nil, false, err
		}
		row[i] = v
	}
	return row, true, nil
}

func (it *valuesIter) Close(ctx *session.Context) error { return nil }
