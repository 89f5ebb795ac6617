package txn

import (
	"fmt"
	"strconv"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/polypheny/polypheny-go/adapter"
	"github.com/polypheny/polypheny-go/session"
)

// CommitResult reports the outcome of two-phase commit (§4.8). See
// Manager.Commit for how a non-nil error differs from a non-empty
// FailedStores list.
type CommitResult struct {
	FailedStores []int64
}

var (
	commitDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "polypheny_commit_duration_seconds",
		Help: "Two-phase commit latency across all enlisted stores.",
	})
	partialCommitFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "polypheny_partial_commit_failures_total",
		Help: "Count of phase-2 commits that failed and were queued for reconciliation.",
	})
)

func init() {
	prometheus.MustRegister(commitDuration, partialCommitFailures)
}

// Coordinator runs two-phase commit against a Registry of adapters and
// hands failed phase-2 commits to a Reconciler for background retry.
type Coordinator struct {
	registry    *adapter.Registry
	reconciler  *Reconciler
	log         *logrus.Entry
}

func NewCoordinator(registry *adapter.Registry, reconciler *Reconciler, log *logrus.Entry) *Coordinator {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Coordinator{registry: registry, reconciler: reconciler, log: log}
}

func (c *Coordinator) token(t *Transaction) adapter.TxnToken {
	return adapter.TxnToken(strconv.FormatInt(t.ID, 10) + "/" + t.CorrelationID.String())
}

// Commit implements §4.8: phase 1 prepare on every involved store; on
// all-yes, phase 2 commit everywhere; on any-no or a prepare error, abort
// everyone who already answered yes.
func (c *Coordinator) Commit(t *Transaction) (*CommitResult, error) {
	stores := t.InvolvedStores()
	if len(stores) == 0 {
		return &CommitResult{}, nil
	}
	timer := prometheus.NewTimer(commitDuration)
	defer timer.ObserveDuration()

	ctx := session.NewEmptyContext()
	token := c.token(t)

	var prepared []int64
	for _, id := range stores {
		a, ok := c.registry.Get(id)
		if !ok {
			return nil, ErrCommitAborted.New(fmt.Sprintf("unknown adapter %d", id))
		}
		if err := a.Prepare(ctx, token); err != nil {
			c.abortPrepared(ctx, token, prepared)
			return nil, ErrCommitAborted.New(err.Error())
		}
		prepared = append(prepared, id)
	}

	var failed []int64
	for _, id := range stores {
		a, _ := c.registry.Get(id)
		if err := a.Commit(ctx, token); err != nil {
			c.log.WithFields(logrus.Fields{"txn": t.ID, "adapter": id, "err": err}).
				Error("phase-2 commit failed, queuing for reconciliation")
			failed = append(failed, id)
		}
	}
	if len(failed) > 0 {
		partialCommitFailures.Inc()
		if c.reconciler != nil {
			c.reconciler.Enqueue(ReconcileTask{TxnID: t.ID, Token: token, FailedStores: failed})
		}
	}
	return &CommitResult{FailedStores: failed}, nil
}

func (c *Coordinator) abortPrepared(ctx *session.Context, token adapter.TxnToken, prepared []int64) {
	for _, id := range prepared {
		if a, ok := c.registry.Get(id); ok {
			_ = a.Rollback(ctx, token)
		}
	}
}

// Rollback sends rollback to every enlisted store regardless of state (§4.8).
func (c *Coordinator) Rollback(t *Transaction) error {
	stores := t.InvolvedStores()
	if len(stores) == 0 {
		return nil
	}
	ctx := session.NewEmptyContext()
	token := c.token(t)
	var merr *multierror.Error
	for _, id := range stores {
		a, ok := c.registry.Get(id)
		if !ok {
			continue
		}
		if err := a.Rollback(ctx, token); err != nil {
			merr = multierror.Append(merr, adapter.NewAdapterError(id, err))
		}
	}
	return merr.ErrorOrNil()
}
