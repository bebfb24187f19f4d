package threads

import (
	"errors"
	"sync"
	"testing"
)

func TestRegistry_FirstSeenOrder(t *testing.T) {
	r := NewRegistry(8, 1)

	raw := []uint64{5, 9, 5, 2}
	want := []int{0, 1, 0, 2}
	for i, id := range raw {
		got, err := r.Register(id)
		if err != nil {
			t.Fatalf("Register(%d) failed: %v", id, err)
		}
		if got != want[i] {
			t.Errorf("Register(%d): expected index %d, got %d", id, want[i], got)
		}
	}
	if r.Count() != 3 {
		t.Errorf("Expected 3 threads, got %d", r.Count())
	}
	if idx, ok := r.Lookup(9); !ok || idx != 1 {
		t.Errorf("Lookup(9) = %d, %v; expected 1, true", idx, ok)
	}
	if _, ok := r.Lookup(42); ok {
		t.Error("Lookup of an unregistered id should fail")
	}
}

func TestRegistry_Capacity(t *testing.T) {
	r := NewRegistry(2, 0)
	if _, err := r.Register(10); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := r.Register(11); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := r.Register(10); err != nil {
		t.Errorf("Re-registering a known id should succeed at capacity: %v", err)
	}

	_, err := r.Register(12)
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("Expected ErrCapacityExceeded, got %v", err)
	}
	if r.Count() != 2 {
		t.Errorf("A rejected registration must not change the count, got %d", r.Count())
	}
}

func TestRegistry_EffectiveIndex(t *testing.T) {
	tests := []struct {
		reserved int
		slot     uint32
		want     int
		ok       bool
	}{
		{reserved: 1, slot: 0, want: 0, ok: true},
		{reserved: 1, slot: 1, ok: false},
		{reserved: 1, slot: 2, want: 1, ok: true},
		{reserved: 1, slot: 5, want: 4, ok: true},
		{reserved: 0, slot: 1, want: 1, ok: true},
		{reserved: 2, slot: 2, ok: false},
		{reserved: 2, slot: 3, want: 1, ok: true},
	}
	for _, tt := range tests {
		r := NewRegistry(8, tt.reserved)
		got, ok := r.EffectiveIndex(tt.slot)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("reserved=%d EffectiveIndex(%d) = %d, %v; expected %d, %v", tt.reserved, tt.slot, got, ok, tt.want, tt.ok)
		}
	}
}

func TestRegistry_ConcurrentLookup(t *testing.T) {
	r := NewRegistry(64, 0)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := uint64(0); i < 64; i++ {
			r.Register(i)
		}
	}()
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				r.Lookup(uint64(i % 64))
				r.Count()
			}
		}()
	}
	wg.Wait()

	if r.Count() != 64 {
		t.Errorf("Expected 64 threads, got %d", r.Count())
	}
}
