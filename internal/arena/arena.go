// Package arena owns the allocator's two contiguous byte regions: the data
// region (pages) and the Page Allocation Table. It supports create, grow,
// and destroy; it knows nothing about allocation policy, which belongs to
// internal/engine.
package arena

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/hypatia-of-sva/pagealloc/internal/memprovider"
	"github.com/hypatia-of-sva/pagealloc/internal/pat"
	"github.com/hypatia-of-sva/pagealloc/internal/result"
)

// pageSizeGranularity is the page-size step: a legal page size is a
// positive multiple of 64.
const pageSizeGranularity = 64

// pageCountGranularity is the smallest legal page-count step: a positive
// multiple of 4 (one PAT byte describes exactly four pages).
const pageCountGranularity = 4

// Arena is a single contiguous byte region of size page_size*allocated_pages,
// plus its Page Allocation Table. Heap-backed regions are pinned so the
// addresses callers receive stay stable between grows. Grow replaces both
// regions with newly obtained ones, so pointers handed out before a Grow
// no longer address the live data region afterwards.
type Arena struct {
	pageSize uint32
	pages    uint32
	data     []byte
	pat      *pat.Table
	provider memprovider.Provider
	pinner   runtime.Pinner
	closed   bool
}

// New validates page_size (positive multiple of 64) and initial_pages
// (positive multiple of 4), then obtains the data region and PAT from
// provider, zero-initialized so every page begins FREE_ZERO.
func New(pageSize, initialPages uint32, provider memprovider.Provider) (*Arena, error) {
	if pageSize == 0 || pageSize%pageSizeGranularity != 0 {
		return nil, fmt.Errorf("%w: page size %d is not a positive multiple of %d", result.ErrInvalidParameter, pageSize, pageSizeGranularity)
	}
	if initialPages == 0 || initialPages%pageCountGranularity != 0 {
		return nil, fmt.Errorf("%w: initial page count %d is not a positive multiple of %d", result.ErrInvalidParameter, initialPages, pageCountGranularity)
	}
	if provider == nil {
		provider = memprovider.Heap()
	}

	dataSize := int(pageSize) * int(initialPages)
	data, err := provider.Obtain(dataSize)
	if err != nil {
		return nil, fmt.Errorf("%w: obtaining data region: %v", result.ErrOutOfMemory, err)
	}
	patSize := int(initialPages) / pageCountGranularity
	patBytes, err := provider.Obtain(patSize)
	if err != nil {
		return nil, fmt.Errorf("%w: obtaining PAT region: %v", result.ErrOutOfMemory, err)
	}

	a := &Arena{
		pageSize: pageSize,
		pages:    initialPages,
		data:     data,
		pat:      pat.New(patBytes),
		provider: provider,
	}
	a.pin()
	return a, nil
}

// pin pins the data and PAT regions so their addresses stay stable for the
// arena's lifetime. It is a no-op for providers whose regions aren't
// ordinary Go-heap memory (e.g. mmap): their addresses are already stable,
// and runtime.Pinner.Pin would panic if asked to pin them.
func (a *Arena) pin() {
	if !a.provider.Pinnable() {
		return
	}
	if len(a.data) > 0 {
		a.pinner.Pin(&a.data[0])
	}
	if len(a.pat.Bytes()) > 0 {
		a.pinner.Pin(&a.pat.Bytes()[0])
	}
}

// Grow reallocates the data and PAT regions to describe newPages pages. If
// newPages is less than or equal to the current page count the call is a
// no-op success. Newly added pages and the PAT bytes describing them end
// up FREE_ZERO: if the provider cannot guarantee a zeroed tail, Grow zeroes
// it explicitly.
func (a *Arena) Grow(newPages uint32) error {
	if newPages%pageCountGranularity != 0 {
		return fmt.Errorf("%w: new page count %d is not a multiple of %d", result.ErrInvalidParameter, newPages, pageCountGranularity)
	}
	if newPages <= a.pages {
		return nil
	}

	newDataSize := int(a.pageSize) * int(newPages)
	grownData, zeroed, err := a.provider.Grow(a.data, newDataSize)
	if err != nil {
		return fmt.Errorf("%w: growing data region: %v", result.ErrOutOfMemory, err)
	}
	if !zeroed {
		zeroTail(grownData, len(a.data))
	}

	newPatSize := int(newPages) / pageCountGranularity
	grownPat, zeroed, err := a.provider.Grow(a.pat.Bytes(), newPatSize)
	if err != nil {
		return fmt.Errorf("%w: growing PAT region: %v", result.ErrOutOfMemory, err)
	}
	if !zeroed {
		zeroTail(grownPat, len(a.pat.Bytes()))
	}

	a.pinner.Unpin()
	a.data = grownData
	a.pat.SetBytes(grownPat)
	a.pages = newPages
	a.pin()
	return nil
}

func zeroTail(buf []byte, fromLen int) {
	for i := fromLen; i < len(buf); i++ {
		buf[i] = 0
	}
}

// Close releases both regions and drops the descriptor's references to
// them; the page size and page count fields keep their values. No
// allocations may be outstanding; Close does not enforce this, matching
// the spec's documented use-after-close caveat.
func (a *Arena) Close() error {
	if a.closed {
		return nil
	}
	a.pinner.Unpin()
	if err := a.provider.Release(a.data); err != nil {
		return fmt.Errorf("%w: releasing data region: %v", result.ErrUnknown, err)
	}
	if err := a.provider.Release(a.pat.Bytes()); err != nil {
		return fmt.Errorf("%w: releasing PAT region: %v", result.ErrUnknown, err)
	}
	a.data = nil
	a.pat = nil
	a.closed = true
	return nil
}

// PageSize returns the arena's fixed page size in bytes.
func (a *Arena) PageSize() uint32 { return a.pageSize }

// Pages returns the current total page count.
func (a *Arena) Pages() uint32 { return a.pages }

// PAT returns the arena's page allocation table.
func (a *Arena) PAT() *pat.Table { return a.pat }

// Data returns the arena's data region.
func (a *Arena) Data() []byte { return a.data }

// Base returns the pinned address of the data region's first byte. It is
// zero for an empty (zero-page) arena, which New never produces.
func (a *Arena) Base() uintptr {
	if len(a.data) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&a.data[0]))
}

// PageIndexOf converts a pointer into the arena's data region to a page
// index. ok is false if ptr does not fall on a page boundary within the
// arena.
func (a *Arena) PageIndexOf(ptr unsafe.Pointer) (index int, ok bool) {
	base := a.Base()
	addr := uintptr(ptr)
	if addr < base {
		return 0, false
	}
	offset := addr - base
	if offset%uintptr(a.pageSize) != 0 {
		return 0, false
	}
	idx := offset / uintptr(a.pageSize)
	if idx >= uintptr(a.pages) {
		return 0, false
	}
	return int(idx), true
}

// PagePointer returns the address of the first byte of page index.
func (a *Arena) PagePointer(index int) unsafe.Pointer {
	return unsafe.Pointer(&a.data[index*int(a.pageSize)])
}

// ZeroPage clears all bytes of page index.
func (a *Arena) ZeroPage(index int) {
	start := index * int(a.pageSize)
	end := start + int(a.pageSize)
	clear(a.data[start:end])
}
