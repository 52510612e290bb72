package heap

import (
	"testing"
)

func newTestAdapter(t *testing.T) (*Adapter, *FreeList) {
	t.Helper()
	mem := newFakeMemory(1, 16)
	f := NewFreeList(mem, mem)
	return NewAdapter(f), f
}

func TestAdapter_AllocResizeFreeScenario(t *testing.T) {
	a, _ := newTestAdapter(t)

	// allocate 16 bytes -> one entry, size 16
	p := a.Reallocate(0, 16)
	if p == 0 {
		t.Fatal("allocation returned null")
	}
	if a.Len() != 1 {
		t.Fatalf("Len = %d, want 1", a.Len())
	}
	if size, ok := a.Recorded(p); !ok || size != 16 {
		t.Fatalf("Recorded(%#x) = %d,%v; want 16,true", p, size, ok)
	}

	// resize to 64 -> one entry (possibly new address), size 64
	q := a.Reallocate(p, 64)
	if q == 0 {
		t.Fatal("resize returned null")
	}
	if a.Len() != 1 {
		t.Fatalf("Len after resize = %d, want 1", a.Len())
	}
	if size, ok := a.Recorded(q); !ok || size != 64 {
		t.Fatalf("Recorded(%#x) = %d,%v; want 64,true", q, size, ok)
	}
	if a.TrackedBytes() != 64 {
		t.Fatalf("TrackedBytes = %d, want 64", a.TrackedBytes())
	}

	// free -> table empty
	if r := a.Reallocate(q, 0); r != 0 {
		t.Fatalf("free returned %#x, want 0", r)
	}
	if a.Len() != 0 || a.TrackedBytes() != 0 {
		t.Fatalf("table not empty after free: len=%d bytes=%d", a.Len(), a.TrackedBytes())
	}
}

func TestAdapter_NopCase(t *testing.T) {
	a, _ := newTestAdapter(t)

	if p := a.Reallocate(0, 0); p != 0 {
		t.Fatalf("nop returned %#x, want 0", p)
	}
	if a.Len() != 0 {
		t.Fatal("nop changed the table")
	}
}

func TestAdapter_FreeUntrackedPanics(t *testing.T) {
	a, _ := newTestAdapter(t)
	p := a.Reallocate(0, 8)

	defer func() {
		if recover() == nil {
			t.Fatal("free of untracked address did not panic")
		}
		// table unchanged before the abort
		if a.Len() != 1 {
			t.Fatalf("table mutated before panic: len=%d", a.Len())
		}
		if _, ok := a.Recorded(p); !ok {
			t.Fatal("live entry lost before panic")
		}
	}()
	a.Reallocate(p+4096, 0)
}

func TestAdapter_ResizeUntrackedPanics(t *testing.T) {
	a, _ := newTestAdapter(t)

	defer func() {
		if recover() == nil {
			t.Fatal("resize of untracked address did not panic")
		}
	}()
	a.Reallocate(0xdead0, 32)
}

func TestAdapter_ResizeGrowThenBack(t *testing.T) {
	a, _ := newTestAdapter(t)

	p := a.Reallocate(0, 32)
	q := a.Reallocate(p, 256)
	if q == 0 {
		t.Fatal("grow returned null")
	}
	r := a.Reallocate(q, 32)
	if r == 0 {
		t.Fatal("shrink returned null")
	}
	if a.Len() != 1 {
		t.Fatalf("Len = %d, want 1", a.Len())
	}
	if size, _ := a.Recorded(r); size != 32 {
		t.Fatalf("table reflects %d, want only the final size 32", size)
	}
}

func TestAdapter_TrackedBytesMatchesRequests(t *testing.T) {
	a, _ := newTestAdapter(t)

	sizes := []uint32{1, 7, 8, 9, 100, 4096}
	ptrs := make([]uint32, 0, len(sizes))
	var want uint64
	for _, s := range sizes {
		p := a.Reallocate(0, s)
		if p == 0 {
			t.Fatalf("allocation of %d failed", s)
		}
		ptrs = append(ptrs, p)
		want += uint64(s)
	}
	if a.TrackedBytes() != want {
		t.Fatalf("TrackedBytes = %d, want %d", a.TrackedBytes(), want)
	}

	for i, p := range ptrs {
		a.Reallocate(p, 0)
		want -= uint64(sizes[i])
		if a.TrackedBytes() != want {
			t.Fatalf("TrackedBytes after free %d = %d, want %d", i, a.TrackedBytes(), want)
		}
	}
}

func TestAdapter_OutOfMemoryReturnsNull(t *testing.T) {
	mem := newFakeMemory(1, 1) // no growth headroom
	f := NewFreeList(mem, mem)
	a := NewAdapter(f)

	if p := a.Reallocate(0, 128); p != 0 {
		t.Fatalf("expected null on out-of-memory, got %#x", p)
	}
	if a.Len() != 0 {
		t.Fatal("failed allocation must not be tracked")
	}
}

func TestAdapter_FailedResizeKeepsEntry(t *testing.T) {
	mem := newFakeMemory(1, 2)
	f := NewFreeList(mem, mem)
	a := NewAdapter(f)

	p := a.Reallocate(0, 64)
	if p == 0 {
		t.Fatal("allocation failed")
	}

	// Larger than the remaining growth headroom.
	if q := a.Reallocate(p, 3*pageSize); q != 0 {
		t.Fatalf("expected null on failed resize, got %#x", q)
	}
	if size, ok := a.Recorded(p); !ok || size != 64 {
		t.Fatalf("original entry must survive a failed resize: %d,%v", size, ok)
	}
}

func TestAdapter_CloseFreesEverything(t *testing.T) {
	a, f := newTestAdapter(t)

	first := a.Reallocate(0, 48)
	a.Reallocate(0, 16)
	a.Reallocate(0, 16)

	a.Close()

	if a.Len() != 0 || a.TrackedBytes() != 0 {
		t.Fatalf("table not cleared: len=%d bytes=%d", a.Len(), a.TrackedBytes())
	}
	// Every block went back to the allocator: the arena is empty again and
	// a fresh allocation lands where the first one did.
	if f.ArenaBytes() != 0 {
		t.Fatalf("allocator still holds %d bytes after teardown", f.ArenaBytes())
	}
	if p, err := f.Alloc(48); err != nil || p != first {
		t.Fatalf("arena not fully reclaimed: p=%d err=%v, want %d", p, err, first)
	}
}

func TestAdapter_CloseIdempotent(t *testing.T) {
	a, _ := newTestAdapter(t)
	a.Reallocate(0, 8)
	a.Close()
	a.Close()
}

func TestAdapter_ReallocateAfterClosePanics(t *testing.T) {
	a, _ := newTestAdapter(t)
	a.Close()

	defer func() {
		if recover() == nil {
			t.Fatal("reallocate after close did not panic")
		}
	}()
	a.Reallocate(0, 8)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		ptr, size uint32
		want      reallocCase
	}{
		{0, 0, caseNop},
		{0, 1, caseAlloc},
		{8, 0, caseFree},
		{8, 1, caseResize},
	}
	for _, tt := range tests {
		if got := classify(tt.ptr, tt.size); got != tt.want {
			t.Errorf("classify(%d, %d) = %d, want %d", tt.ptr, tt.size, got, tt.want)
		}
	}
}
