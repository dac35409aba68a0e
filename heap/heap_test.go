package heap

import (
	"testing"

	"github.com/segheap/segheap/memlib"
)

func newTestHeap(t *testing.T) *Heap {
	t.Helper()

	a, err := memlib.NewArena(1 << 20)
	if err != nil {
		t.Fatalf("NewArena: %v", err)
	}

	h, err := New(a)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	return h
}

func assertClean(t *testing.T, h *Heap) {
	t.Helper()

	if v := h.Check(true); len(v) != 0 {
		t.Fatalf("Check found %d violations: %v", len(v), v)
	}
}

func TestHeap(t *testing.T) {
	t.Run("InitIsConsistent", func(t *testing.T) {
		h := newTestHeap(t)
		assertClean(t, h)

		if h.smallRoot == 0 || h.largeRoot == 0 {
			t.Fatal("both regions should start with one free block")
		}
	})

	t.Run("BasicAllocateFree", func(t *testing.T) {
		h := newTestHeap(t)

		bp, err := h.Allocate(32)
		if err != nil {
			t.Fatalf("Allocate: %v", err)
		}

		for i := 0; i < 32; i++ {
			h.mem[bp+i] = byte(i)
		}

		for i := 0; i < 32; i++ {
			if h.mem[bp+i] != byte(i) {
				t.Fatalf("payload corrupted at offset %d", i)
			}
		}

		assertClean(t, h)

		if err := h.Free(bp); err != nil {
			t.Fatalf("Free: %v", err)
		}

		assertClean(t, h)
	})

	t.Run("RejectsNonPositiveSize", func(t *testing.T) {
		h := newTestHeap(t)

		if _, err := h.Allocate(0); err == nil {
			t.Error("Allocate(0) should fail")
		}

		if _, err := h.Allocate(-1); err == nil {
			t.Error("Allocate(-1) should fail")
		}
	})

	t.Run("SmallAndLargeRequestsLandInTheirRegions", func(t *testing.T) {
		h := newTestHeap(t)

		small, err := h.Allocate(16)
		if err != nil {
			t.Fatalf("Allocate(16): %v", err)
		}

		if !h.isSmallRegion(small) {
			t.Error("a 16-byte request should land in the small region")
		}

		large, err := h.Allocate(4096)
		if err != nil {
			t.Fatalf("Allocate(4096): %v", err)
		}

		if h.isSmallRegion(large) {
			t.Error("a 4096-byte request should land in the large region")
		}

		assertClean(t, h)
	})

	t.Run("DoubleFreeIsRejected", func(t *testing.T) {
		h := newTestHeap(t)

		bp, err := h.Allocate(64)
		if err != nil {
			t.Fatalf("Allocate: %v", err)
		}

		if err := h.Free(bp); err != nil {
			t.Fatalf("first Free: %v", err)
		}

		if err := h.Free(bp); err == nil {
			t.Error("second Free of the same block should fail")
		}
	})

	t.Run("FreeRejectsOutOfRangePointer", func(t *testing.T) {
		h := newTestHeap(t)

		if err := h.Free(-1); err == nil {
			t.Error("Free(-1) should fail")
		}

		if err := h.Free(1 << 30); err == nil {
			t.Error("Free of an address past the heap should fail")
		}

		if err := h.Free(h.interludeOff); err == nil {
			t.Error("Free of the interlude sentinel should fail")
		}
	})

	t.Run("FreeingAdjacentBlocksCoalesces", func(t *testing.T) {
		h := newTestHeap(t)

		a, err := h.Allocate(64)
		if err != nil {
			t.Fatalf("Allocate a: %v", err)
		}

		b, err := h.Allocate(64)
		if err != nil {
			t.Fatalf("Allocate b: %v", err)
		}

		c, err := h.Allocate(64)
		if err != nil {
			t.Fatalf("Allocate c: %v", err)
		}

		if err := h.Free(a); err != nil {
			t.Fatalf("Free a: %v", err)
		}

		if err := h.Free(c); err != nil {
			t.Fatalf("Free c: %v", err)
		}

		assertClean(t, h)

		if err := h.Free(b); err != nil {
			t.Fatalf("Free b: %v", err)
		}

		assertClean(t, h)

		// All three neighbors are free now; they must have merged into
		// one free block starting at a, not three.
		if h.blockAlloc(a) != 0 || h.blockSize(a) < adjustedSize(64)*3 {
			t.Fatal("expected a, b and c to have coalesced into one free block starting at a")
		}
	})

	t.Run("ReallocateShrinksInPlace", func(t *testing.T) {
		h := newTestHeap(t)

		bp, err := h.Allocate(512)
		if err != nil {
			t.Fatalf("Allocate: %v", err)
		}

		for i := 0; i < 512; i++ {
			h.mem[bp+i] = byte(i)
		}

		newbp, err := h.Reallocate(bp, 32)
		if err != nil {
			t.Fatalf("Reallocate: %v", err)
		}

		if newbp != bp {
			t.Errorf("shrinking in place should keep the same pointer, got %d want %d", newbp, bp)
		}

		for i := 0; i < 32; i++ {
			if h.mem[newbp+i] != byte(i) {
				t.Fatalf("payload corrupted at offset %d after shrink", i)
			}
		}

		assertClean(t, h)
	})

	t.Run("ReallocateGrowsByMergingForward", func(t *testing.T) {
		h := newTestHeap(t)

		bp, err := h.Allocate(32)
		if err != nil {
			t.Fatalf("Allocate: %v", err)
		}

		next, err := h.Allocate(256)
		if err != nil {
			t.Fatalf("Allocate next: %v", err)
		}

		if err := h.Free(next); err != nil {
			t.Fatalf("Free next: %v", err)
		}

		for i := 0; i < 32; i++ {
			h.mem[bp+i] = byte(i + 1)
		}

		newbp, err := h.Reallocate(bp, 200)
		if err != nil {
			t.Fatalf("Reallocate: %v", err)
		}

		if newbp != bp {
			t.Errorf("merge-forward growth should keep the same pointer, got %d want %d", newbp, bp)
		}

		for i := 0; i < 32; i++ {
			if h.mem[newbp+i] != byte(i+1) {
				t.Fatalf("payload corrupted at offset %d after grow", i)
			}
		}

		assertClean(t, h)
	})

	t.Run("ReallocateRelocatesWhenNeighborsAreAllocated", func(t *testing.T) {
		h := newTestHeap(t)

		bp, err := h.Allocate(32)
		if err != nil {
			t.Fatalf("Allocate: %v", err)
		}

		// Keep the following block allocated so there is nothing to
		// merge forward into, forcing the relocate case.
		if _, err := h.Allocate(32); err != nil {
			t.Fatalf("Allocate blocker: %v", err)
		}

		for i := 0; i < 32; i++ {
			h.mem[bp+i] = byte(i + 3)
		}

		newbp, err := h.Reallocate(bp, 4096)
		if err != nil {
			t.Fatalf("Reallocate: %v", err)
		}

		if newbp == bp {
			t.Error("growth past a blocked neighbor should relocate")
		}

		for i := 0; i < 32; i++ {
			if h.mem[newbp+i] != byte(i+3) {
				t.Fatalf("payload corrupted at offset %d after relocation", i)
			}
		}

		assertClean(t, h)
	})

	t.Run("ReallocateWithZeroSizeFrees", func(t *testing.T) {
		h := newTestHeap(t)

		bp, err := h.Allocate(64)
		if err != nil {
			t.Fatalf("Allocate: %v", err)
		}

		if _, err := h.Reallocate(bp, 0); err != nil {
			t.Fatalf("Reallocate to 0: %v", err)
		}

		if err := h.Free(bp); err == nil {
			t.Error("block should already be free after Reallocate(bp, 0)")
		}
	})

	t.Run("HeapGrowsWhenNoFreeListCanFit", func(t *testing.T) {
		h := newTestHeap(t)

		var pointers []int

		for i := 0; i < 2000; i++ {
			bp, err := h.Allocate(64)
			if err != nil {
				t.Fatalf("Allocate #%d: %v", i, err)
			}

			pointers = append(pointers, bp)
		}

		assertClean(t, h)

		for _, bp := range pointers {
			if err := h.Free(bp); err != nil {
				t.Fatalf("Free: %v", err)
			}
		}

		assertClean(t, h)
	})
}

func TestTeam(t *testing.T) {
	h := newTestHeap(t)

	info := h.Team()
	if info.Name == "" {
		t.Error("Team().Name should not be empty")
	}
}
