package heap

import "sync"

// Guarded wraps a *Heap with a mutex so multiple goroutines can share one
// allocator instance, the way the reference system allocator in this
// codebase's ambient stack serializes access with its own internal lock.
// Heap itself stays lock-free and single-threaded by contract; Guarded is
// an opt-in wrapper for hosts that need otherwise.
type Guarded struct {
	mu sync.Mutex
	h  *Heap
}

// NewGuarded wraps an already-initialized heap for concurrent use.
func NewGuarded(h *Heap) *Guarded {
	return &Guarded{h: h}
}

func (g *Guarded) Allocate(size int) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.h.Allocate(size)
}

func (g *Guarded) Free(bp int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.h.Free(bp)
}

func (g *Guarded) Reallocate(bp, size int) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.h.Reallocate(bp, size)
}

func (g *Guarded) Check(verbose bool) []Violation {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.h.Check(verbose)
}

func (g *Guarded) Team() TeamInfo {
	return g.h.Team()
}
