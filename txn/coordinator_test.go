package txn_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/polypheny/polypheny-go/adapter"
	"github.com/polypheny/polypheny-go/adapter/memadapter"
	"github.com/polypheny/polypheny-go/session"
	"github.com/polypheny/polypheny-go/txn"
)

// failingPrepareAdapter wraps an in-memory adapter but always rejects
// Prepare, to exercise the coordinator's phase-1 abort path.
type failingPrepareAdapter struct {
	*memadapter.Adapter
}

func (f failingPrepareAdapter) Prepare(ctx *session.Context, t adapter.TxnToken) error {
	return errors.New("store unavailable")
}

func TestCommitSucceedsAcrossStores(t *testing.T) {
	reg := adapter.NewRegistry()
	reg.Register(memadapter.New(1))
	reg.Register(memadapter.New(2))

	coord := txn.NewCoordinator(reg, nil, nil)
	mgr := txn.NewManager(coord)

	tx := mgr.Begin("tester", 1, txn.Auto, false)
	tx.Enlist(1)
	tx.Enlist(2)

	result, err := mgr.Commit(tx)
	require.NoError(t, err)
	require.Empty(t, result.FailedStores)
}

func TestCommitAbortsOnPrepareFailure(t *testing.T) {
	reg := adapter.NewRegistry()
	reg.Register(memadapter.New(1))
	reg.Register(failingPrepareAdapter{memadapter.New(2)})

	coord := txn.NewCoordinator(reg, nil, nil)
	mgr := txn.NewManager(coord)

	tx := mgr.Begin("tester", 1, txn.Auto, false)
	tx.Enlist(1)
	tx.Enlist(2)

	_, err := mgr.Commit(tx)
	require.Error(t, err)
	require.True(t, txn.ErrCommitAborted.Is(err))
}

func TestReconcilerRetriesFailedStore(t *testing.T) {
	reg := adapter.NewRegistry()
	reg.Register(memadapter.New(1))

	rec := txn.NewReconciler(reg, nil, nil)
	rec.Enqueue(txn.ReconcileTask{TxnID: 1, FailedStores: []int64{1}})
	require.Len(t, rec.Pending(), 1)

	rec.RunOnce()
	require.Empty(t, rec.Pending(), "memadapter.Commit always succeeds, so the task should have drained")
}
