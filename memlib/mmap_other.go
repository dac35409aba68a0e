//go:build !unix

package memlib

// Mapped falls back to the plain Arena on platforms without an anonymous
// mmap facility wired up here (e.g. Windows). The fixed-maximum and
// sbrk-growth contract is identical; only the backing storage differs.
type Mapped struct {
	*Arena
}

// NewMapped reserves maxHeap bytes. On non-unix builds this is a plain
// Go-heap-backed Arena rather than a real mmap region.
func NewMapped(maxHeap int) (*Mapped, error) {
	a, err := NewArena(maxHeap)
	if err != nil {
		return nil, err
	}

	return &Mapped{Arena: a}, nil
}

// Close is a no-op; the backing slice is reclaimed by the garbage collector.
func (m *Mapped) Close() error { return nil }
