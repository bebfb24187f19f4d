package threads

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrCapacityExceeded is returned when more application threads start than the engine was sized for.
var ErrCapacityExceeded = errors.New("thread capacity exceeded")

// Registry maps host thread identifiers to dense logical indices in first-seen order.
// Register is expected to be called from a single notification path; Lookup, Count and
// EffectiveIndex may be called concurrently from any goroutine.
type Registry struct {
	mu       sync.RWMutex
	indices  map[uint64]int
	count    atomic.Int32
	capacity int
	reserved int
}

// NewRegistry creates a registry for up to capacity threads. The host owns `reserved`
// slots directly after slot 0 for its own threads.
func NewRegistry(capacity, reserved int) *Registry {
	return &Registry{
		indices:  make(map[uint64]int, capacity),
		capacity: capacity,
		reserved: reserved,
	}
}

// Register returns the logical index of rawID, assigning the next free one on first sight.
func (r *Registry) Register(rawID uint64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if idx, ok := r.indices[rawID]; ok {
		return idx, nil
	}
	idx := len(r.indices)
	if idx >= r.capacity {
		return -1, fmt.Errorf("%w: thread %d would be logical thread %d, capacity is %d", ErrCapacityExceeded, rawID, idx, r.capacity)
	}
	r.indices[rawID] = idx
	r.count.Add(1)
	return idx, nil
}

// Lookup returns the logical index of an already registered rawID.
func (r *Registry) Lookup(rawID uint64) (int, bool) {
	r.mu.RLock()
	idx, ok := r.indices[rawID]
	r.mu.RUnlock()
	return idx, ok
}

// Count returns the number of registered threads.
func (r *Registry) Count() int {
	return int(r.count.Load())
}

// Capacity returns the maximum number of logical threads.
func (r *Registry) Capacity() int {
	return r.capacity
}

// EffectiveIndex converts a host thread slot into a logical thread index.
// Slot 0 is the initial application thread. Slots 1..reserved belong to the host
// and report false. Later slots are shifted down past the reserved ones.
func (r *Registry) EffectiveIndex(slot uint32) (int, bool) {
	s := int(slot)
	if s == 0 {
		return 0, true
	}
	if s <= r.reserved {
		return 0, false
	}
	return s - r.reserved, true
}
