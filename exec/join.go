package exec

import (
	"github.com/polypheny/polypheny-go/algebra"
	"github.com/polypheny/polypheny-go/session"
)

// joinIter is a block nested-loop join: the right input is materialized
// once (Drain), then each left row is probed against every right row.
// This is the teacher's simplest join strategy and the only one this
// executor implements (the planner has no hash-join rule); it is
// correct for every JoinType the algebra defines, which a hash join
// restricted to equi-conditions is not.
type joinIter struct {
	left       Iterator
	leftArity  int
	right      []Row
	rightArity int
	rightMatched []bool
	joinType   algebra.JoinType
	cond       algebra.RexNode

	haveLeft    bool
	curLeft     Row
	rightPos    int
	leftMatched bool

	leftDone     bool
	rightDrainAt int
}

// Next implements the join as a loop over (left row, right position)
// state carried across calls, since one left row can yield many, one, or
// zero output rows depending on JoinType and how many right rows match.
func (j *joinIter) Next(ctx *session.Context) (Row, bool, error) {
	for {
		if err := ctx.CheckSuspension(); err != nil {
			return nil, false, err
		}

		if j.leftDone {
			return j.nextUnmatchedRight()
		}

		if !j.haveLeft {
			row, ok, err := j.left.Next(ctx)
			if err != nil {
				return nil, false, err
			}
			if !ok {
				j.leftDone = true
				continue
			}
			j.curLeft = row
			j.rightPos = 0
			j.leftMatched = false
			j.haveLeft = true
		}

		for j.rightPos < len(j.right) {
			idx := j.rightPos
			rRow := j.right[idx]
			j.rightPos++
			combined := append(append(Row{}, j.curLeft...), rRow...)
			match, err := EvalBool(j.cond, combined)
			if err != nil {
				return nil, false, err
			}
			if !match {
				continue
			}
			j.leftMatched = true
			j.rightMatched[idx] = true
			switch j.joinType {
			case algebra.SemiJoin:
				leftRow := j.curLeft
				j.haveLeft = false // one match suffices; move to next left row
				return leftRow, true, nil
			case algebra.AntiJoin:
				continue // anti only emits on exhaustion without a match
			default:
				return combined, true, nil
			}
		}

		// right side exhausted for this left row
		leftRow := j.curLeft
		matched := j.leftMatched
		j.haveLeft = false

		switch j.joinType {
		case algebra.AntiJoin:
			if !matched {
				return leftRow, true, nil
			}
		case algebra.LeftJoin, algebra.FullJoin:
			if !matched {
				return append(append(Row{}, leftRow...), make(Row, j.rightArity)...), true, nil
			}
		}
		// InnerJoin/RightJoin/SemiJoin with no match on this left row
		// produce nothing for it; the outer loop advances to the next one.
	}
}

// nextUnmatchedRight emits the RightJoin/FullJoin rows for right-side
// rows no left row ever matched, once the left input is exhausted.
func (j *joinIter) nextUnmatchedRight() (Row, bool, error) {
	if j.joinType != algebra.RightJoin && j.joinType != algebra.FullJoin {
		return nil, false, nil
	}
	for j.rightDrainAt < len(j.right) {
		idx := j.rightDrainAt
		j.rightDrainAt++
		if j.rightMatched[idx] {
			continue
		}
		out := append(make(Row, j.leftArity), j.right[idx]...)
		return out, true, nil
	}
	return nil, false, nil
}

func (j *joinIter) Close(ctx *session.Context) error { return j.left.Close(ctx) }

func (e *Executor) compileJoin(ctx *session.Context, n *algebra.Join) (Iterator, error) {
	inputs := n.Inputs()
	left, err := e.compileChild(ctx, inputs[0])
	if err != nil {
		return nil, err
	}
	rightIt, err := e.compileChild(ctx, inputs[1])
	if err != nil {
		return nil, err
	}
	rightRows, err := Drain(ctx, rightIt)
	if err != nil {
		return nil, err
	}
	if err := rightIt.Close(ctx); err != nil {
		return nil, err
	}
	leftArity := len(inputs[0].RowType().Fields)
	rightArity := len(inputs[1].RowType().Fields)
	return &joinIter{
		left:         left,
		leftArity:    leftArity,
		right:        rightRows,
		rightArity:   rightArity,
		rightMatched: make([]bool, len(rightRows)),
		joinType:     n.JoinType,
		cond:         n.Cond,
	}, nil
}
