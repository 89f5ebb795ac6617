package adapter

import (
	"sync"

	"gopkg.in/src-d/go-errors.v1"
)

// ErrAdapter wraps a store-local failure with the adapter id that
// produced it (§7 AdapterError(adapterId, inner)).
var ErrAdapter = errors.NewKind("adapter %d: %s")

// NewAdapterError builds an ErrAdapter carrying the inner cause's message.
func NewAdapterError(adapterID int64, inner error) error {
	return ErrAdapter.New(adapterID, inner.Error())
}

// Registry holds every deployed Adapter, keyed by adapter id. It replaces
// the teacher's implicit global store manager (§9 "Global state") with an
// explicit service threaded through the engine.
type Registry struct {
	mu       sync.RWMutex
	adapters map[int64]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: map[int64]Adapter{}}
}

func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.ID()] = a
}

func (r *Registry) Get(id int64) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[id]
	return a, ok
}

func (r *Registry) All() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		out = append(out, a)
	}
	return out
}
