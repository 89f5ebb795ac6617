package exec

import (
	"github.com/polypheny/polypheny-go/algebra"
	"github.com/polypheny/polypheny-go/session"
)

// exchangeBatchSize is the capacity of the bounded channel between a
// local Exchange's producer goroutine and its consumer (rows are sent one
// at a time), and the number of rows a remote Exchange sends per batch.
const exchangeBatchSize = 128

// localExchange runs its child on its own goroutine and forwards rows
// through a bounded channel, giving the plan fragment above the Exchange
// a separate "executor thread" from the fragment below it (§4.2
// Exchange, §5 Concurrency) without leaving the process. This is the
// default: exec only reaches for exchange_remote.go's grpc transport
// when the two sides are known to run in separate processes, which this
// package leaves to its caller to decide (see DESIGN.md).
type localExchange struct {
	rows chan Row
	errs chan error
	done chan struct{}
}

func newLocalExchange(ctx *session.Context, child Iterator) *localExchange {
	ex := &localExchange{
		rows: make(chan Row, exchangeBatchSize),
		errs: make(chan error, 1),
		done: make(chan struct{}),
	}
	go ex.pump(ctx, child)
	return ex
}

func (ex *localExchange) pump(ctx *session.Context, child Iterator) {
	defer close(ex.rows)
	defer child.Close(ctx)
	for {
		row, ok, err := child.Next(ctx)
		if err != nil {
			select {
			case ex.errs <- err:
			default:
			}
			return
		}
		if !ok {
			return
		}
		select {
		case ex.rows <- row:
		case <-ex.done:
			return
		}
	}
}

func (ex *localExchange) Next(ctx *session.Context) (Row, bool, error) {
	if err := ctx.CheckSuspension(); err != nil {
		return nil, false, err
	}
	row, ok := <-ex.rows
	if !ok {
		select {
		case err := <-ex.errs:
			return nil, false, err
		default:
			return nil, false, nil
		}
	}
	return row, true, nil
}

func (ex *localExchange) Close(ctx *session.Context) error {
	select {
	case <-ex.done:
	default:
		close(ex.done)
	}
	return nil
}

func (e *Executor) compileExchange(ctx *session.Context, n *algebra.Exchange) (Iterator, error) {
	child, err := e.compileChild(ctx, n.Inputs()[0])
	if err != nil {
		return nil, err
	}
	return newLocalExchange(ctx, child), nil
}
