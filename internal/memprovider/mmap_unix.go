//go:build unix

package memprovider

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// mmapProvider backs regions with anonymous private mmap'd memory,
// demonstrating the "system-level bulk memory provider" as a literal OS
// collaborator rather than the Go heap. Grow is implemented as
// obtain-new/copy/release-old rather than mremap, so the same code works
// across every unix target golang.org/x/sys/unix supports.
type mmapProvider struct{}

// Mmap returns a Provider backed by anonymous mmap regions. Available on
// unix build targets only; see Heap for a portable default.
func Mmap() Provider {
	return mmapProvider{}
}

func (mmapProvider) Obtain(size int) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}
	buf, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("memprovider: mmap %d bytes: %w", size, err)
	}
	return buf, nil
}

func (p mmapProvider) Grow(buf []byte, newSize int) ([]byte, bool, error) {
	if newSize < len(buf) {
		return nil, false, fmt.Errorf("memprovider: shrink via Grow: %d < %d", newSize, len(buf))
	}
	grown, err := p.Obtain(newSize)
	if err != nil {
		return nil, false, err
	}
	copy(grown, buf)
	if err := p.Release(buf); err != nil {
		return nil, false, fmt.Errorf("memprovider: releasing old region during grow: %w", err)
	}
	return grown, true, nil
}

func (mmapProvider) Release(buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	if err := unix.Munmap(buf); err != nil {
		return fmt.Errorf("memprovider: munmap: %w", err)
	}
	return nil
}

// Pinnable is false: mmap'd regions are not Go-heap memory, and
// runtime.Pinner.Pin panics if asked to pin them. Their addresses are
// already stable for the region's lifetime, so pinning would be both
// illegal and unnecessary.
func (mmapProvider) Pinnable() bool { return false }
