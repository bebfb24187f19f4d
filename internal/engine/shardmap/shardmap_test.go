package shardmap

import (
	"sync"
	"testing"
	"time"
)

type counter struct {
	n int
}

func newCounter() *counter { return &counter{} }

func TestTable_GetOrCreate(t *testing.T) {
	table := New(4, newCounter)

	a := table.GetOrCreate(7)
	a.n = 3
	if b := table.GetOrCreate(7); b != a {
		t.Fatal("GetOrCreate returned a different pointer for the same key")
	}
	if v, ok := table.Get(7); !ok || v.n != 3 {
		t.Errorf("Get(7) = %+v, %v; expected n=3", v, ok)
	}
	if _, ok := table.Get(8); ok {
		t.Error("Get of an unknown key should fail")
	}
	if table.Len() != 1 {
		t.Errorf("Expected 1 key, got %d", table.Len())
	}
}

func TestTable_EntriesSorted(t *testing.T) {
	table := New(8, newCounter)
	for _, k := range []uint64{42, 3, 1 << 40, 17, 0} {
		table.GetOrCreate(k)
	}

	entries := table.Entries()
	want := []uint64{0, 3, 17, 42, 1 << 40}
	if len(entries) != len(want) {
		t.Fatalf("Expected %d entries, got %d", len(want), len(entries))
	}
	for i, e := range entries {
		if e.Key != want[i] {
			t.Errorf("Entry %d: expected key %d, got %d", i, want[i], e.Key)
		}
	}
}

func TestTable_ConcurrentCreateSharesPointer(t *testing.T) {
	table := New(0, newCounter)
	const goroutines = 16

	results := make([]*counter, goroutines)
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for k := uint64(0); k < 1000; k++ {
				v := table.GetOrCreate(k)
				if k == 500 {
					results[g] = v
				}
			}
		}(g)
	}
	wg.Wait()

	for g := 1; g < goroutines; g++ {
		if results[g] != results[0] {
			t.Fatalf("Goroutine %d got a different state for the same key", g)
		}
	}
	if table.Len() != 1000 {
		t.Errorf("Expected 1000 keys, got %d", table.Len())
	}
}

func TestTable_LookupDoesNotWaitForInsert(t *testing.T) {
	// A single shard puts the existing key and the pending insert side by side.
	building := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	var armed bool

	table := New(1, func() *counter {
		if armed {
			once.Do(func() { close(building) })
			<-release
		}
		return &counter{}
	})
	existing := table.GetOrCreate(1)
	armed = true

	inserted := make(chan *counter)
	go func() {
		inserted <- table.GetOrCreate(2)
	}()
	<-building

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			if table.GetOrCreate(1) != existing {
				t.Error("Existing key returned a different state")
				return
			}
		}
		table.Len()
		table.Entries()
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Lookup of an existing key waited for a concurrent insert")
	}

	close(release)
	if v := <-inserted; v == nil {
		t.Fatal("Insert returned no state")
	}
	if table.Len() != 2 {
		t.Errorf("Expected 2 keys, got %d", table.Len())
	}
}
