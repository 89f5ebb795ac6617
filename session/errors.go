package session

import "gopkg.in/src-d/go-errors.v1"

var (
	// ErrCancelled is returned when a request unwinds because its
	// cancellation flag was set (§5, §7).
	ErrCancelled = errors.NewKind("request cancelled")
	// ErrTransactionTimeout is returned when a request unwinds because its
	// transaction deadline has passed (§5, §7).
	ErrTransactionTimeout = errors.NewKind("transaction deadline exceeded")
)
