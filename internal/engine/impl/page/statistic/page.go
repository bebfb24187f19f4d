package statistic

import "sync/atomic"

// NoAccessor marks a page whose first accessor has not been recorded yet.
const NoAccessor = -1

// PageRecord holds the per-thread access counters of one page and the thread that touched it first.
//
// Accesses are plain counters incremented without synchronization; racing increments may be
// lost. FirstAccessor is only ever written by a single compare-and-swap from NoAccessor.
type PageRecord struct {
	Accesses      []uint64
	FirstAccessor atomic.Int32
}

// NewPageRecord creates a record with room for maxThreads counters.
func NewPageRecord(maxThreads int) *PageRecord {
	r := &PageRecord{Accesses: make([]uint64, maxThreads)}
	r.FirstAccessor.Store(NoAccessor)
	return r
}

// MarkFirst records thread as the first accessor unless one is already set.
// It reports whether this call won.
func (r *PageRecord) MarkFirst(thread int32) bool {
	if r.FirstAccessor.Load() != NoAccessor {
		return false
	}
	return r.FirstAccessor.CompareAndSwap(NoAccessor, thread)
}
