// Package shardmap provides the key -> state tables behind the trackers.
//
// A Table only synchronizes finding or inserting the pointer for a key, and it does so
// without locks: lookups of existing keys go through sync.Map's read path and inserts
// through LoadOrStore. The values it hands out are shared by every caller and are
// mutated without any lock.
package shardmap

import (
	"cmp"
	"slices"
	"sync"
	"sync/atomic"
)

const defaultShardCount = 256

// Shard is a part of a sharded table with its own map and key count.
type Shard[V any] struct {
	items sync.Map     // map[uint64]*V
	count atomic.Int64
	_     [40]byte     // keep neighbouring shard counters off the same cache line
}

// Entry is a key and its shared state pointer.
type Entry[V any] struct {
	Key   uint64
	Value *V
}

// Table is a sharded map from a 64-bit key to lazily created state.
type Table[V any] struct {
	shards     []*Shard[V]
	shardCount uint64
	newValue   func() *V
}

// New creates a table with numShards shards. newValue builds the state for a key
// seen for the first time.
func New[V any](numShards int, newValue func() *V) *Table[V] {
	if numShards <= 0 {
		numShards = defaultShardCount
	}
	t := &Table[V]{
		shards:     make([]*Shard[V], numShards),
		shardCount: uint64(numShards),
		newValue:   newValue,
	}
	for i := range t.shards {
		t.shards[i] = &Shard[V]{}
	}
	return t
}

// shardFor picks the shard of a key with a multiplicative hash. Neighbouring
// cache lines and pages land on different shards.
func (t *Table[V]) shardFor(key uint64) *Shard[V] {
	const goldenRatio = 0x9E3779B97F4A7C15
	return t.shards[((key*goldenRatio)>>32)%t.shardCount]
}

// GetOrCreate returns the state of key, creating it on first use.
// Concurrent first calls for the same key all receive the same pointer; the
// states built by the losers are discarded.
func (t *Table[V]) GetOrCreate(key uint64) *V {
	shard := t.shardFor(key)
	if v, ok := shard.items.Load(key); ok {
		return v.(*V)
	}

	v, loaded := shard.items.LoadOrStore(key, t.newValue())
	if !loaded {
		shard.count.Add(1)
	}
	return v.(*V)
}

// Get returns the state of key if it exists.
func (t *Table[V]) Get(key uint64) (*V, bool) {
	v, ok := t.shardFor(key).items.Load(key)
	if !ok {
		return nil, false
	}
	return v.(*V), true
}

// Len returns the number of keys in the table.
func (t *Table[V]) Len() int {
	n := int64(0)
	for _, shard := range t.shards {
		n += shard.count.Load()
	}
	return int(n)
}

// Entries returns every key with its state pointer, sorted by key.
// Keys inserted while Entries runs may or may not be included.
func (t *Table[V]) Entries() []Entry[V] {
	entries := make([]Entry[V], 0, t.Len())
	for _, shard := range t.shards {
		shard.items.Range(func(k, v any) bool {
			entries = append(entries, Entry[V]{Key: k.(uint64), Value: v.(*V)})
			return true
		})
	}
	slices.SortFunc(entries, func(a, b Entry[V]) int {
		return cmp.Compare(a.Key, b.Key)
	})
	return entries
}
