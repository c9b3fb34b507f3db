// Package engine implements the allocator's core state machine: the
// first-fit search with alignment, commit-phase page marking, the
// in-place-vs-copy resize decision, and the reverse pointer->length
// lookup. It is the "hard engineering" component (spec.md's C4).
package engine

import (
	"fmt"
	"math"
	"unsafe"

	"github.com/hypatia-of-sva/pagealloc/internal/align"
	"github.com/hypatia-of-sva/pagealloc/internal/arena"
	"github.com/hypatia-of-sva/pagealloc/internal/guard"
	"github.com/hypatia-of-sva/pagealloc/internal/pat"
	"github.com/hypatia-of-sva/pagealloc/internal/result"
)

// NoOldSize is the distinguished "unknown old size" sentinel. Any other
// value supplied as oldSize enables the cross-check against the true
// page-quantized size of the allocation. This is the spec's single
// resolution of the original C header's mixed NO_OLD_SIZE_DATA /
// old_size != 0 sentinel handling (spec.md §9).
const NoOldSize = math.MaxUint64

// Index optionally tracks live allocations for introspection. It never
// influences allocation decisions.
type Index interface {
	Insert(headPage, lengthPages int)
	Remove(headPage int)
}

// Observer optionally receives page-occupancy snapshots after successful
// mutating operations, for metrics exposition.
type Observer interface {
	Observe(pagesAllocated, pagesFree uint32, arenaBytes uint64)
}

// Engine is the allocation state machine over one Arena.
type Engine struct {
	arena    *arena.Arena
	sink     result.Sink
	call     guard.Call
	index    Index
	observer Observer
}

// New creates an Engine over a, logging and reporting through sink if
// non-nil.
func New(a *arena.Arena, sink result.Sink) *Engine {
	return &Engine{arena: a, sink: sink}
}

// SetIndex installs an optional allocation index.
func (e *Engine) SetIndex(idx Index) { e.index = idx }

// SetObserver installs an optional metrics observer.
func (e *Engine) SetObserver(obs Observer) { e.observer = obs }

// enter wraps one public entry point with reentrancy detection and
// returns the deferred cleanup. A reentrant call (the registered Sink
// calling back into this Engine synchronously) is reported as
// ErrUnknown rather than being allowed to corrupt the PAT.
func (e *Engine) enter() (leave func(), reentrant bool) {
	if e.call.Enter() {
		return func() {}, true
	}
	return e.call.Leave, false
}

func (e *Engine) log(code result.EventCode, format string, args ...any) {
	result.Emit(e.sink, code, fmt.Sprintf(format, args...))
}

func (e *Engine) reentrantError(op string, errCode result.EventCode) error {
	e.log(errCode, "%s rejected: detected a reentrant call into the same arena", op)
	return fmt.Errorf("%w: reentrant call into the same arena during %s", result.ErrUnknown, op)
}

func (e *Engine) reportOccupancy() {
	if e.observer == nil {
		return
	}
	var allocated uint32
	total := e.arena.Pages()
	for i := 0; i < int(total); i++ {
		if pat.IsAllocated(e.arena.PAT().Get(i)) {
			allocated++
		}
	}
	e.observer.Observe(allocated, total-allocated, uint64(total)*uint64(e.arena.PageSize()))
}

func ceilDiv(size uint64, pageSize uint32) uint64 {
	ps := uint64(pageSize)
	return (size + ps - 1) / ps
}

// Grow delegates to the Arena's grow, logging success/failure.
func (e *Engine) Grow(newPages uint32) error {
	leave, reentrant := e.enter()
	defer leave()
	if reentrant {
		return e.reentrantError("expand", result.EventExpandError)
	}

	if err := e.arena.Grow(newPages); err != nil {
		e.log(result.EventExpandError, "failed to expand allocator memory pages: %v", err)
		return err
	}
	e.log(result.EventExpandSuccess, "successfully expanded the allocator memory pages to %d", newPages)
	e.reportOccupancy()
	return nil
}

// Alloc performs the first-fit scan described in spec.md §4.4.1, honoring
// alignmentBits/offsetToAlignment, and commits the chosen run.
func (e *Engine) Alloc(size uint64, alignmentBits uint, offsetToAlignment uint64, zeroed bool) (unsafe.Pointer, error) {
	leave, reentrant := e.enter()
	defer leave()
	if reentrant {
		return nil, e.reentrantError("alloc", result.EventAllocError)
	}

	if size == 0 {
		e.log(result.EventAllocError, "attempt to allocate 0 bytes")
		return nil, fmt.Errorf("%w: attempt to allocate 0 bytes", result.ErrInvalidParameter)
	}

	needed := ceilDiv(size, e.arena.PageSize())
	total := uint64(e.arena.Pages())
	if needed > total {
		e.log(result.EventAllocError, "asked-for memory (%d pages) exceeds allocator memory pages (%d)", needed, total)
		return nil, fmt.Errorf("%w: requested %d pages, arena has %d", result.ErrOutOfMemory, needed, total)
	}

	start, ok := e.firstFit(int(needed), alignmentBits, offsetToAlignment)
	if !ok {
		e.log(result.EventAllocError, "no free run of %d pages available due to use or fragmentation", needed)
		return nil, fmt.Errorf("%w: no free run of %d pages", result.ErrOutOfMemory, needed)
	}

	if err := e.commitRun(start, int(needed), zeroed); err != nil {
		e.log(result.EventAllocError, "%v", err)
		return nil, err
	}

	e.log(result.EventAllocSuccess, "successfully allocated %d bytes across %d pages at page %d", size, needed, start)
	e.reportOccupancy()
	if e.index != nil {
		e.index.Insert(start, int(needed))
	}
	return e.arena.PagePointer(start), nil
}

// firstFit scans pages 0..N-1 maintaining a candidate run, honoring the
// alignment predicate when opening a run. The lowest-indexed qualifying
// run wins.
func (e *Engine) firstFit(needed int, alignmentBits uint, offsetToAlignment uint64) (start int, ok bool) {
	table := e.arena.PAT()
	total := int(e.arena.Pages())
	base := e.arena.Base()
	pageSize := e.arena.PageSize()

	runStart := -1
	runLength := 0
	for i := 0; i < total; i++ {
		state := table.Get(i)
		if pat.IsFree(state) {
			if runStart == -1 {
				if alignmentBits == 0 || align.Satisfies(base, i, pageSize, alignmentBits, offsetToAlignment) {
					runStart = i
					runLength = 1
				}
				// else: skip this page as a candidate head, but it may
				// still extend a run opened earlier. It cannot, though,
				// since runStart == -1 means no run is open; a
				// misaligned free page simply contributes nothing.
			} else {
				runLength++
			}
			if runStart != -1 && runLength >= needed {
				return runStart, true
			}
		} else {
			runStart = -1
			runLength = 0
		}
	}
	return 0, false
}

// commitRun marks pages [start, start+needed) as the new allocation,
// zeroing FREE_DIRTY pages when zeroed is requested. It validates every
// page before mutating any PAT byte, so a detected corruption leaves the
// PAT and data region unchanged.
func (e *Engine) commitRun(start, needed int, zeroed bool) error {
	table := e.arena.PAT()
	for i := start; i < start+needed; i++ {
		if pat.IsAllocated(table.Get(i)) {
			return fmt.Errorf("%w: page %d was already allocated; the PAT appears to have been externally corrupted", result.ErrUnknown, i)
		}
	}

	for i := start; i < start+needed; i++ {
		if zeroed && table.Get(i) == pat.FreeDirty {
			e.arena.ZeroPage(i)
		}
		if i == start {
			table.Set(i, pat.AllocHead)
		} else {
			table.Set(i, pat.AllocTail)
		}
	}
	return nil
}

// SizeOf returns the page-quantized size of the allocation headed at ptr.
func (e *Engine) SizeOf(ptr unsafe.Pointer) (uint64, error) {
	leave, reentrant := e.enter()
	defer leave()
	if reentrant {
		return 0, e.reentrantError("size_of", result.EventSizeError)
	}

	pages, _, err := e.sizeOfLocked(ptr)
	if err != nil {
		e.log(result.EventSizeError, "%v", err)
		return 0, err
	}
	e.log(result.EventSizeSuccess, "size successfully measured: %d pages", pages)
	return uint64(pages) * uint64(e.arena.PageSize()), nil
}

// sizeOfLocked is the shared head-walk used by SizeOf, Resize and Free. It
// does not log or guard; callers do.
func (e *Engine) sizeOfLocked(ptr unsafe.Pointer) (pages int, headIndex int, err error) {
	if ptr == nil {
		return 0, 0, fmt.Errorf("%w: pointer is nil", result.ErrInvalidParameter)
	}
	headIndex, ok := e.arena.PageIndexOf(ptr)
	if !ok {
		return 0, 0, fmt.Errorf("%w: pointer is outside the arena or not page-aligned", result.ErrInvalidAddress)
	}
	table := e.arena.PAT()
	if table.Get(headIndex) != pat.AllocHead {
		return 0, 0, fmt.Errorf("%w: pointer does not point to the start of an allocation", result.ErrInvalidAddress)
	}

	total := int(e.arena.Pages())
	count := 1
	for i := headIndex + 1; i < total; i++ {
		if table.Get(i) != pat.AllocTail {
			break
		}
		count++
	}
	return count, headIndex, nil
}

// Free marks the allocation's run FREE_DIRTY. Data bytes are left as-is;
// zeroing is deferred to the next allocation that requests it.
func (e *Engine) Free(ptr unsafe.Pointer, oldSize uint64) error {
	leave, reentrant := e.enter()
	defer leave()
	if reentrant {
		return e.reentrantError("free", result.EventFreeError)
	}
	return e.freeLocked(ptr, oldSize)
}

func (e *Engine) freeLocked(ptr unsafe.Pointer, oldSize uint64) error {
	pages, head, err := e.sizeOfLocked(ptr)
	if err != nil {
		e.log(result.EventFreeError, "%v", err)
		return err
	}
	if err := e.crossCheckOldSize(oldSize, pages); err != nil {
		e.log(result.EventFreeError, "%v", err)
		return err
	}

	table := e.arena.PAT()
	for i := head; i < head+pages; i++ {
		table.Set(i, pat.FreeDirty)
	}
	e.log(result.EventFreeSuccess, "pointer deallocated, %d pages marked as freed", pages)
	e.reportOccupancy()
	if e.index != nil {
		e.index.Remove(head)
	}
	return nil
}

func (e *Engine) crossCheckOldSize(oldSize uint64, truePages int) error {
	if oldSize == NoOldSize {
		return nil
	}
	nominal := ceilDiv(oldSize, e.arena.PageSize())
	if nominal != uint64(truePages) {
		return fmt.Errorf("%w: supplied old size implies %d pages, allocation is actually %d pages", result.ErrInvalidAddress, nominal, truePages)
	}
	return nil
}

// Resize implements spec.md §4.4.3: alignment check, no-op, shrink,
// grow-in-place, or grow-by-copy, in that order. allowReloc gates only the
// alignment-mismatch branch (permit relocating when the in-place pointer
// would no longer satisfy the requested alignment); growth that can't
// proceed in place because the adjacent pages aren't free always falls
// back to copying, per spec.md §4.4.3 step 5.
func (e *Engine) Resize(oldPtr unsafe.Pointer, oldSize, newSize uint64, alignmentBits uint, offsetToAlignment uint64, allowReloc, zeroNew bool) (unsafe.Pointer, error) {
	leave, reentrant := e.enter()
	defer leave()
	if reentrant {
		return nil, e.reentrantError("resize", result.EventResizeError)
	}

	if newSize == 0 {
		e.log(result.EventResizeError, "attempt to resize to 0 bytes")
		return nil, fmt.Errorf("%w: attempt to resize to 0 bytes", result.ErrInvalidParameter)
	}

	oldPages, head, err := e.sizeOfLocked(oldPtr)
	if err != nil {
		e.log(result.EventResizeError, "%v", err)
		return nil, err
	}
	if err := e.crossCheckOldSize(oldSize, oldPages); err != nil {
		e.log(result.EventResizeError, "%v", err)
		return nil, err
	}

	newPages := ceilDiv(newSize, e.arena.PageSize())
	if newPages > uint64(e.arena.Pages()) {
		e.log(result.EventResizeError, "asked-for memory (%d pages) exceeds allocator memory pages", newPages)
		return nil, fmt.Errorf("%w: requested %d pages, arena has %d", result.ErrOutOfMemory, newPages, e.arena.Pages())
	}

	if alignmentBits != 0 && !align.Satisfies(e.arena.Base(), head, e.arena.PageSize(), alignmentBits, offsetToAlignment) {
		if !allowReloc {
			e.log(result.EventResizeError, "new alignment was requested but relocation was not allowed")
			return nil, fmt.Errorf("%w: alignment not satisfied and relocation disallowed", result.ErrInvalidAddress)
		}
		e.log(result.EventNote, "resize falling back to copy due to an alignment mismatch")
		return e.resizeCopy(oldPtr, oldSize, newSize, alignmentBits, offsetToAlignment, zeroNew)
	}

	if newPages == uint64(oldPages) {
		e.log(result.EventResizeSuccess, "pointer resized to the same page count and returned unchanged")
		return oldPtr, nil
	}

	if newPages < uint64(oldPages) {
		table := e.arena.PAT()
		for i := head + int(newPages); i < head+oldPages; i++ {
			table.Set(i, pat.FreeDirty)
		}
		e.log(result.EventResizeSuccess, "pointer resized to a smaller page count, superfluous pages marked as freed")
		e.reportOccupancy()
		if e.index != nil {
			e.index.Insert(head, int(newPages))
		}
		return oldPtr, nil
	}

	// Grow: check whether every candidate extension page exists and is free
	// before mutating anything.
	table := e.arena.PAT()
	total := int(e.arena.Pages())
	enoughSpace := true
	for i := head + oldPages; i < head+int(newPages); i++ {
		if i >= total || pat.IsAllocated(table.Get(i)) {
			enoughSpace = false
			break
		}
	}
	if !enoughSpace {
		e.log(result.EventNote, "resize falling back to copy due to insufficient contiguous space")
		return e.resizeCopy(oldPtr, oldSize, newSize, alignmentBits, offsetToAlignment, zeroNew)
	}

	for i := head + oldPages; i < head+int(newPages); i++ {
		if zeroNew && table.Get(i) == pat.FreeDirty {
			e.arena.ZeroPage(i)
		}
		table.Set(i, pat.AllocTail)
	}
	e.log(result.EventResizeSuccess, "pointer resized to a bigger page count, new pages marked as allocated")
	e.reportOccupancy()
	if e.index != nil {
		e.index.Insert(head, int(newPages))
	}
	return oldPtr, nil
}

// resizeCopy allocates a fresh region, moves min(oldSize,newSize) bytes
// from oldPtr, frees the old region, and returns the new pointer. If
// allocation fails its error is propagated and the old allocation is left
// intact.
func (e *Engine) resizeCopy(oldPtr unsafe.Pointer, oldSize, newSize uint64, alignmentBits uint, offsetToAlignment uint64, zeroNew bool) (unsafe.Pointer, error) {
	needed := ceilDiv(newSize, e.arena.PageSize())
	start, ok := e.firstFit(int(needed), alignmentBits, offsetToAlignment)
	if !ok {
		e.log(result.EventResizeError, "no free run of %d pages available for relocation", needed)
		return nil, fmt.Errorf("%w: no free run of %d pages", result.ErrOutOfMemory, needed)
	}
	if err := e.commitRun(start, int(needed), zeroNew); err != nil {
		e.log(result.EventResizeError, "%v", err)
		return nil, err
	}
	newPtr := e.arena.PagePointer(start)

	// min(old_size, new_size): when old_size is unknown, the true
	// page-quantized extent of the old allocation stands in for it.
	oldExtent := oldSize
	if oldSize == NoOldSize {
		oldPages, _, sizeErr := e.sizeOfLocked(oldPtr)
		if sizeErr != nil {
			// Unreachable: oldPtr was already validated by the caller
			// before resizeCopy was reached.
			oldExtent = newSize
		} else {
			oldExtent = uint64(oldPages) * uint64(e.arena.PageSize())
		}
	}
	moveSize := oldExtent
	if newSize < moveSize {
		moveSize = newSize
	}
	src := unsafe.Slice((*byte)(oldPtr), moveSize)
	dst := unsafe.Slice((*byte)(newPtr), moveSize)
	copy(dst, src)

	if err := e.freeLocked(oldPtr, oldSize); err != nil {
		e.log(result.EventResizeError, "relocated successfully but failed to free the old region: %v", err)
		return nil, err
	}

	e.log(result.EventResizeSuccess, "reallocation by copying was successful")
	if e.index != nil {
		e.index.Insert(start, int(needed))
	}
	return newPtr, nil
}
