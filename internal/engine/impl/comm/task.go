package comm

import (
	"Go2MemSpectra/internal/config"
	"Go2MemSpectra/internal/engine/impl/comm/statistic"
	"Go2MemSpectra/internal/engine/shardmap"
	"Go2MemSpectra/internal/factory"
	"Go2MemSpectra/internal/model"
	"Go2MemSpectra/internal/snapshot"
	"log"
)

// --- Factory Registration ---

func init() {
	factory.RegisterTracker(config.ModeComm, func(cfg *config.Config) (*factory.TrackerGroup, error) {
		writers := snapshot.BuildWriters(config.ModeComm, cfg.Writers, func(chCfg config.ClickHouseConfig) (model.Writer, error) {
			return NewClickHouseWriter(chCfg)
		})
		tracker := New(cfg.Engine.MaxThreads, cfg.Engine.NumShards)
		return &factory.TrackerGroup{Tracker: tracker, Writers: writers}, nil
	})
}

// --- Tracker Implementation ---

// Tracker estimates inter-thread communication from successive accesses to the same cache line.
// It implements the model.Tracker interface.
//
// RecordAccess takes no lock on the line state or the matrix. Concurrent accessors of
// one line can interleave their transitions and concurrent increments can be lost;
// the matrix is an estimate either way.
type Tracker struct {
	lines  *shardmap.Table[statistic.LineState]
	matrix *statistic.Matrix
}

// New creates a communication tracker for up to maxThreads logical threads.
func New(maxThreads, numShards int) *Tracker {
	log.Printf("Creating comm tracker for %d threads with %d shards", maxThreads, numShards)
	return &Tracker{
		lines: shardmap.New(numShards, func() *statistic.LineState {
			return &statistic.LineState{}
		}),
		matrix: statistic.NewMatrix(maxThreads),
	}
}

// Name returns the name of the tracker.
func (t *Tracker) Name() string {
	return config.ModeComm
}

// RecordAccess runs the line's accessor transition for thread and counts communication.
//
//	both slots empty:        A = t
//	A = a, B empty:          t == a: nothing; else m[t][a]++, B = a, A = t
//	A = a, B = b:            t == a: nothing; t == b: m[t][a]++;
//	                         otherwise m[t][a]++, m[t][b]++; then B = a, A = t
func (t *Tracker) RecordAccess(lineKey uint64, thread int) {
	line := t.lines.GetOrCreate(lineKey)
	tid := uint32(thread) + 1

	a, b := line.A, line.B
	switch {
	case a == 0:
		line.A = tid
		return
	case a == tid:
		return
	case b == 0, b == tid:
		t.matrix.Inc(thread, int(a)-1)
	default:
		t.matrix.Inc(thread, int(a)-1)
		t.matrix.Inc(thread, int(b)-1)
	}
	line.B = a
	line.A = tid
}

// SnapshotAndReset returns the matrix of the first `threads` logical threads and zeroes
// all counters. Line accessor history is left untouched.
func (t *Tracker) SnapshotAndReset(threads int) any {
	if threads > t.matrix.Capacity() {
		threads = t.matrix.Capacity()
	}
	return model.MatrixSnapshot{
		Threads: threads,
		Cells:   t.matrix.CopyAndZero(threads),
	}
}

// Line returns the accessor history of a cache line, if it has been touched.
func (t *Tracker) Line(lineKey uint64) (statistic.LineState, bool) {
	line, ok := t.lines.Get(lineKey)
	if !ok {
		return statistic.LineState{}, false
	}
	return *line, true
}

// Keys returns the number of distinct cache lines seen so far.
func (t *Tracker) Keys() int {
	return t.lines.Len()
}
