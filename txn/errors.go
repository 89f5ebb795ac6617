// Package txn implements the transaction manager (C8): transaction
// lifecycle, per-entity locks with deadlock detection, adapter
// enlistment, and two-phase commit with a background reconciler for
// partial-commit failures (§4.8, §5, §7).
package txn

import "gopkg.in/src-d/go-errors.v1"

var (
	// ErrDeadlock is reported when the wait-for graph detects a cycle
	// across transactions blocked on entity locks (§4.8, §7).
	ErrDeadlock = errors.NewKind("deadlock detected, transaction %d rolled back")
	// ErrLockTimeout is reported when a lock cannot be acquired before its
	// advisory timeout expires.
	ErrLockTimeout = errors.NewKind("lock timeout acquiring %s lock on entity %d")
	// ErrCommitAborted is reported when two-phase commit phase 1 receives
	// any "no" vote or times out (§4.8, §7).
	ErrCommitAborted = errors.NewKind("commit aborted: %s")
)

// PartialCommitFailed is a successful user-visible result carrying a
// durable follow-up: not an error in the Go sense (callers check for it
// explicitly via Result.PartialFailure in engine.go, built from
// CommitResult.FailedStores), but typed so the reconciler and API layer
// can recognize it, matching §4.8/§7's "successful commit + follow-up
// task" contract.
type PartialCommitFailed struct {
	FailedStores []int64
}

func (e *PartialCommitFailed) Error() string {
	return "partial commit failure, queued for reconciliation"
}
