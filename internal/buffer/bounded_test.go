package buffer

import (
	"sync"
	"testing"
)

func TestBoundedNeverExceedsCapacity(t *testing.T) {
	b := NewBounded[int](25)
	for i := 0; i < 200; i++ {
		b.Push(i)
		if b.Len() > 25 {
			t.Fatalf("buffer exceeded capacity after push %d: len=%d", i, b.Len())
		}
	}
	if b.Len() != 25 {
		t.Errorf("expected full buffer, got %d", b.Len())
	}
	if b.EvictedCount() != 175 {
		t.Errorf("expected 175 evictions, got %d", b.EvictedCount())
	}
}

func TestBoundedRetainsMostRecentNewestFirst(t *testing.T) {
	b := NewBounded[int](3)
	for i := 1; i <= 5; i++ {
		b.Push(i)
	}
	got := b.Items()
	want := []int{5, 4, 3}
	if len(got) != len(want) {
		t.Fatalf("unexpected length: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("items[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestBoundedKeepsDuplicates(t *testing.T) {
	b := NewBounded[string](4)
	b.Push("x")
	b.Push("x")
	if b.Len() != 2 {
		t.Errorf("duplicates must be distinct entries, got len %d", b.Len())
	}
}

func TestBoundedItemsReturnsCopy(t *testing.T) {
	b := NewBounded[int](2)
	b.Push(1)
	items := b.Items()
	items[0] = 99
	if b.Items()[0] != 1 {
		t.Error("mutating the returned slice must not affect the buffer")
	}
}

func TestBoundedConcurrentPushers(t *testing.T) {
	b := NewBounded[int](50)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				b.Push(i)
				if n := b.Len(); n > 50 {
					t.Errorf("observed %d items, capacity is 50", n)
					return
				}
			}
		}()
	}
	wg.Wait()
	if b.Len() != 50 {
		t.Errorf("expected full buffer, got %d", b.Len())
	}
}
