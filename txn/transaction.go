package txn

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Mode distinguishes autocommit from explicit multi-statement transactions.
type Mode int

const (
	Auto Mode = iota
	Manual
)

// Transaction is the unit of work created when a request begins and
// destroyed on commit or rollback (§3 Transactions, §4.8).
type Transaction struct {
	ID               int64
	CorrelationID    uuid.UUID // process-unique id for cross-coordinator RPC correlation
	User             string
	DefaultNamespace int64
	Mode             Mode
	Analyze          bool

	mu             sync.Mutex
	involvedStores map[int64]struct{}
	acquiredLocks  []LockHandle

	startedAt time.Time
	deadline  time.Time
}

// InvolvedStores returns the sorted adapter ids enlisted on this
// transaction (§3, §4.8 commit enlistment).
func (t *Transaction) InvolvedStores() []int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]int64, 0, len(t.involvedStores))
	for id := range t.involvedStores {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Enlist records that adapterID participates in this transaction's
// commit/rollback, called by the router (C6) the first time it assigns
// work to that adapter.
func (t *Transaction) Enlist(adapterID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.involvedStores == nil {
		t.involvedStores = map[int64]struct{}{}
	}
	t.involvedStores[adapterID] = struct{}{}
}

func (t *Transaction) addLock(h LockHandle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.acquiredLocks = append(t.acquiredLocks, h)
}

func (t *Transaction) locks() []LockHandle {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]LockHandle{}, t.acquiredLocks...)
}

// Manager creates and tracks transactions and owns the shared lock table
// and two-phase-commit coordinator. It is the explicit, per-process
// service that replaces a global transaction-manager singleton (§9).
type Manager struct {
	nextID int64
	locks  *LockManager
	coord  *Coordinator

	mu     sync.Mutex
	active map[int64]*Transaction
}

func NewManager(coord *Coordinator) *Manager {
	return &Manager{
		locks:  NewLockManager(),
		coord:  coord,
		active: map[int64]*Transaction{},
	}
}

// Begin creates a new Transaction in the given mode for user, scoped to
// defaultNamespace.
func (m *Manager) Begin(user string, defaultNamespace int64, mode Mode, analyze bool) *Transaction {
	id := atomic.AddInt64(&m.nextID, 1)
	t := &Transaction{
		ID:               id,
		CorrelationID:    uuid.New(),
		User:             user,
		DefaultNamespace: defaultNamespace,
		Mode:             mode,
		Analyze:          analyze,
		startedAt:        time.Now(),
	}
	m.mu.Lock()
	m.active[id] = t
	m.mu.Unlock()
	return t
}

// Locks exposes the shared lock manager to callers that need to acquire
// or release locks directly (the executor and router, mainly).
func (m *Manager) Locks() *LockManager { return m.locks }

// Commit runs two-phase commit across every store the transaction
// enlisted, then releases its locks and forgets it regardless of outcome.
// A non-nil error means phase 1 aborted (ErrCommitAborted): nothing was
// committed. A non-nil CommitResult.FailedStores with a nil error means
// phase 1 succeeded and commit is durable everywhere that mattered, but
// one or more stores failed phase 2 and were queued for reconciliation
// (§4.8 "successful commit + durable failure note").
func (m *Manager) Commit(t *Transaction) (*CommitResult, error) {
	defer m.finish(t)
	return m.coord.Commit(t)
}

// Rollback sends rollback to every enlisted store regardless of state
// (§4.8), then releases locks and forgets the transaction.
func (m *Manager) Rollback(t *Transaction) error {
	defer m.finish(t)
	return m.coord.Rollback(t)
}

func (m *Manager) finish(t *Transaction) {
	m.locks.ReleaseAll(t)
	m.mu.Lock()
	delete(m.active, t.ID)
	m.mu.Unlock()
}
