package txn_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/polypheny/polypheny-go/txn"
)

func TestSharedLocksCompatible(t *testing.T) {
	lm := txn.NewLockManager()
	t1 := &txn.Transaction{ID: 1}
	t2 := &txn.Transaction{ID: 2}

	_, err := lm.Acquire(t1, 10, txn.Shared, time.Second)
	require.NoError(t, err)
	_, err = lm.Acquire(t2, 10, txn.Shared, time.Second)
	require.NoError(t, err)
}

func TestExclusiveBlocksShared(t *testing.T) {
	lm := txn.NewLockManager()
	t1 := &txn.Transaction{ID: 1}
	t2 := &txn.Transaction{ID: 2}

	_, err := lm.Acquire(t1, 10, txn.Exclusive, time.Second)
	require.NoError(t, err)

	_, err = lm.Acquire(t2, 10, txn.Shared, 50*time.Millisecond)
	require.Error(t, err)
	require.True(t, txn.ErrLockTimeout.Is(err))
}

func TestDeadlockDetected(t *testing.T) {
	lm := txn.NewLockManager()
	t1 := &txn.Transaction{ID: 1}
	t2 := &txn.Transaction{ID: 2}

	_, err := lm.Acquire(t1, 1, txn.Exclusive, time.Second)
	require.NoError(t, err)
	_, err = lm.Acquire(t2, 2, txn.Exclusive, time.Second)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = lm.Acquire(t1, 2, txn.Exclusive, 2*time.Second)
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = lm.Acquire(t2, 1, txn.Exclusive, 2*time.Second)
	}()
	wg.Wait()

	deadlocked := (errs[0] != nil && txn.ErrDeadlock.Is(errs[0])) || (errs[1] != nil && txn.ErrDeadlock.Is(errs[1]))
	require.True(t, deadlocked, "expected at least one participant to observe a deadlock: %v %v", errs[0], errs[1])
}

func TestReleaseAllWakesWaiters(t *testing.T) {
	lm := txn.NewLockManager()
	t1 := &txn.Transaction{ID: 1}
	t2 := &txn.Transaction{ID: 2}

	_, err := lm.Acquire(t1, 5, txn.Exclusive, time.Second)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := lm.Acquire(t2, 5, txn.Exclusive, 2*time.Second)
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	lm.ReleaseAll(t1)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter was never granted the lock after release")
	}
}
