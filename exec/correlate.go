package exec

import (
	"sync"

	"github.com/polypheny/polypheny-go/algebra"
	"github.com/polypheny/polypheny-go/session"
)

// correlationBindings holds the current left row of every in-flight
// Correlate, keyed by correlation id, so a CorrelVariable anywhere in the
// right subtree can resolve against it without every Eval call needing
// to thread an extra binding argument through the whole plan (§4.2
// Correlate; the decorrelation pass that would remove the need for this
// at runtime is future planner work, not yet implemented).
var correlationBindings sync.Map // correlationID -> map[string]interface{}

// correlateIter evaluates the right subtree once per left row, with that
// row's fields bound under CorrelationID for the duration of the call.
type correlateIter struct {
	left          Iterator
	correlationID string
	leftFields    []string
	compileRight  func(ctx *session.Context) (Iterator, error)
	joinType      algebra.JoinType

	rightIt     Iterator
	haveLeft    bool
	curLeft     Row
	leftMatched bool
}

func (c *correlateIter) Next(ctx *session.Context) (Row, bool, error) {
	for {
		if err := ctx.CheckSuspension(); err != nil {
			return nil, false, err
		}
		if !c.haveLeft {
			row, ok, err := c.left.Next(ctx)
			if err != nil || !ok {
				return nil, false, err
			}
			c.curLeft = row
			c.haveLeft = true
			c.leftMatched = false
			c.bind(row)
			rightIt, err := c.compileRight(ctx)
			if err != nil {
				c.unbind()
				return nil, false, err
			}
			c.rightIt = rightIt
		}

		rRow, ok, err := c.rightIt.Next(ctx)
		if err != nil {
			c.unbind()
			return nil, false, err
		}
		if ok {
			c.leftMatched = true
			return append(append(Row{}, c.curLeft...), rRow...), true, nil
		}

		c.rightIt.Close(ctx)
		c.unbind()
		matched := c.leftMatched
		leftRow := c.curLeft
		c.haveLeft = false
		if c.joinType == algebra.LeftJoin && !matched {
			return leftRow, true, nil
		}
	}
}

func (c *correlateIter) bind(row Row) {
	vars := make(map[string]interface{}, len(c.leftFields))
	for i, name := range c.leftFields {
		if i < len(row) {
			vars[name] = row[i]
		}
	}
	correlationBindings.Store(c.correlationID, vars)
}

func (c *correlateIter) unbind() {
	correlationBindings.Delete(c.correlationID)
}

func (c *correlateIter) Close(ctx *session.Context) error {
	if c.rightIt != nil {
		c.rightIt.Close(ctx)
	}
	c.unbind()
	return c.left.Close(ctx)
}

func (e *Executor) compileCorrelate(ctx *session.Context, n *algebra.Correlate) (Iterator, error) {
	inputs := n.Inputs()
	left, err := e.compileChild(ctx, inputs[0])
	if err != nil {
		return nil, err
	}
	right := inputs[1]
	fields := make([]string, len(inputs[0].RowType().Fields))
	for i, f := range inputs[0].RowType().Fields {
		fields[i] = f.Name
	}
	return &correlateIter{
		left:          left,
		correlationID: n.CorrelationID,
		leftFields:    fields,
		joinType:      n.JoinType,
		compileRight:  func(ctx *session.Context) (Iterator, error) { return e.compileChild(ctx, right) },
	}, nil
}
