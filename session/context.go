// Package session provides the per-request Context threaded through every
// stage of the pipeline (C2-C9), replacing the teacher's *sql.Context with
// one that also carries a cancellation flag and a deadline (§5
// Concurrency & Resource Model); the active Transaction is not part of it.
package session

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Context wraps a standard context.Context with the fields every
// pipeline stage needs: the session/user identity, a logger, and (once a
// transaction has begun) a cancellation flag checked at every suspension
// point (§5).
type Context struct {
	context.Context

	SessionID uint32
	User      string
	Log       *logrus.Entry

	cancelled int32
	deadline  time.Time
}

// NewContext builds a Context rooted at parent with a fresh logger entry.
func NewContext(parent context.Context, sessionID uint32, user string) *Context {
	if parent == nil {
		parent = context.Background()
	}
	return &Context{
		Context:   parent,
		SessionID: sessionID,
		User:      user,
		Log:       logrus.WithFields(logrus.Fields{"session": sessionID, "user": user}),
	}
}

// NewEmptyContext builds a Context suitable for tests and standalone tool
// invocations, mirroring the teacher's sql.NewEmptyContext().
func NewEmptyContext() *Context {
	return NewContext(context.Background(), 0, "")
}

// Cancel sets the cancellation flag; in-flight operators observe it at
// their next suspension point (§5).
func (c *Context) Cancel() {
	atomic.StoreInt32(&c.cancelled, 1)
}

// Cancelled reports whether Cancel has been called.
func (c *Context) Cancelled() bool {
	return atomic.LoadInt32(&c.cancelled) != 0
}

// WithDeadline attaches a hard transaction deadline (§5); per-operation
// timeouts are advisory and not modeled here.
func (c *Context) WithDeadline(d time.Time) *Context {
	cp := *c
	cp.deadline = d
	return &cp
}

// DeadlineExceeded reports whether a deadline was set and has passed.
func (c *Context) DeadlineExceeded() bool {
	return !c.deadline.IsZero() && time.Now().After(c.deadline)
}

// CheckSuspension is called at every blocking adapter call, lock
// acquisition, channel send/receive and fetch boundary (§5). It returns a
// non-nil error if the request should unwind now.
func (c *Context) CheckSuspension() error {
	if c.Cancelled() {
		return ErrCancelled.New()
	}
	if c.DeadlineExceeded() {
		return ErrTransactionTimeout.New()
	}
	return nil
}
