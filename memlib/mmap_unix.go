//go:build unix

package memlib

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Mapped is a Provider backed by a single anonymous mmap region, reserved
// up front at its full fixed maximum. Unlike Arena, growth does not touch
// Go's heap or GC at all, Sbrk only advances a watermark inside memory
// the kernel already committed to this process, which is the closest
// userspace analogue to the brk()-based growth the allocator was modeled
// on (brk/sbrk itself is not exposed to non-cgo Go programs).
type Mapped struct {
	data []byte
	hi   int
}

// NewMapped reserves maxHeap bytes of anonymous, zero-filled memory.
func NewMapped(maxHeap int) (*Mapped, error) {
	if maxHeap <= 0 {
		return nil, fmt.Errorf("memlib: maxHeap must be positive, got %d", maxHeap)
	}

	data, err := unix.Mmap(-1, 0, maxHeap, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("memlib: mmap %d bytes: %w", maxHeap, err)
	}

	return &Mapped{data: data}, nil
}

func (m *Mapped) Sbrk(n int) (int, bool) {
	if n < 0 || m.hi+n > len(m.data) {
		return 0, false
	}

	base := m.hi
	m.hi += n

	return base, true
}

func (m *Mapped) Lo() int { return 0 }

func (m *Mapped) Hi() int { return m.hi }

func (m *Mapped) MaxHeap() int { return len(m.data) }

func (m *Mapped) Bytes() []byte { return m.data }

// Close unmaps the backing region. A Mapped must not be used afterward.
func (m *Mapped) Close() error {
	if m.data == nil {
		return nil
	}

	err := unix.Munmap(m.data)
	m.data = nil

	return err
}
