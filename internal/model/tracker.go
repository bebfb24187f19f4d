package model

// Tracker is one of the mutually exclusive aggregation modes (communication matrix or page histogram).
// RecordAccess is called concurrently from every traced thread and must not block.
type Tracker interface {
	RecordAccess(key uint64, thread int)
	// SnapshotAndReset returns the interval's counters for the first `threads` logical threads
	// and zeroes them. Long-lived per-key state is kept.
	SnapshotAndReset(threads int) any
	// Keys returns the number of distinct cache lines or pages seen so far.
	Keys() int
	Name() string
}

// EventSink receives the instrumentation callbacks. The engine's Manager implements it;
// event sources (trace replay, NATS subscriber) drive it.
type EventSink interface {
	OnMemoryAccess(addr uint64, slot uint32)
	OnThreadStart(slot uint32) error
	OnProgramExit()
}
