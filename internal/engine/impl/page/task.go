package page

import (
	"Go2MemSpectra/internal/config"
	"Go2MemSpectra/internal/engine/impl/page/statistic"
	"Go2MemSpectra/internal/engine/shardmap"
	"Go2MemSpectra/internal/factory"
	"Go2MemSpectra/internal/model"
	"Go2MemSpectra/internal/snapshot"
	"log"
)

// --- Factory Registration ---

func init() {
	factory.RegisterTracker(config.ModePage, func(cfg *config.Config) (*factory.TrackerGroup, error) {
		writers := snapshot.BuildWriters(config.ModePage, cfg.Writers, func(chCfg config.ClickHouseConfig) (model.Writer, error) {
			return NewClickHouseWriter(chCfg)
		})
		tracker := New(cfg.Engine.MaxThreads, cfg.Engine.NumShards)
		return &factory.TrackerGroup{Tracker: tracker, Writers: writers}, nil
	})
}

// --- Tracker Implementation ---

// Tracker builds a per-page access histogram and remembers which thread touched each page first.
// It implements the model.Tracker interface.
type Tracker struct {
	maxThreads int
	pages      *shardmap.Table[statistic.PageRecord]
}

// New creates a page tracker for up to maxThreads logical threads.
func New(maxThreads, numShards int) *Tracker {
	log.Printf("Creating page tracker for %d threads with %d shards", maxThreads, numShards)
	return &Tracker{
		maxThreads: maxThreads,
		pages: shardmap.New(numShards, func() *statistic.PageRecord {
			return statistic.NewPageRecord(maxThreads)
		}),
	}
}

// Name returns the name of the tracker.
func (t *Tracker) Name() string {
	return config.ModePage
}

// RecordAccess counts an access to pageKey by thread and claims the page's first accessor if unset.
func (t *Tracker) RecordAccess(pageKey uint64, thread int) {
	rec := t.pages.GetOrCreate(pageKey)
	rec.Accesses[thread]++
	rec.MarkFirst(int32(thread))
}

// SnapshotAndReset returns every page seen so far with the counters of the first `threads`
// logical threads, then zeroes the counters in place. First accessors are kept.
// Accesses landing between the copy and the reset of a page are lost.
func (t *Tracker) SnapshotAndReset(threads int) any {
	if threads > t.maxThreads {
		threads = t.maxThreads
	}

	entries := t.pages.Entries()
	rows := make([]model.PageRow, len(entries))
	for i, e := range entries {
		counts := make([]uint64, threads)
		copy(counts, e.Value.Accesses[:threads])
		clear(e.Value.Accesses)
		rows[i] = model.PageRow{
			Key:           e.Key,
			FirstAccessor: e.Value.FirstAccessor.Load(),
			Counts:        counts,
		}
	}
	return model.PageSnapshot{Threads: threads, Pages: rows}
}

// FirstAccessor returns the first accessor of a page, or statistic.NoAccessor if the page is unknown.
func (t *Tracker) FirstAccessor(pageKey uint64) int32 {
	rec, ok := t.pages.Get(pageKey)
	if !ok {
		return statistic.NoAccessor
	}
	return rec.FirstAccessor.Load()
}

// Keys returns the number of distinct pages seen so far.
func (t *Tracker) Keys() int {
	return t.pages.Len()
}
