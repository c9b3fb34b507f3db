// Package pagealloc is a page-based byte allocator: a first-fit allocator
// over a fixed-page-size arena, backed by a 2-bit-per-page Page Allocation
// Table, with in-place or copy-based resize and reverse pointer->length
// lookup.
package pagealloc

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hypatia-of-sva/pagealloc/internal/allocindex"
	"github.com/hypatia-of-sva/pagealloc/internal/arena"
	"github.com/hypatia-of-sva/pagealloc/internal/engine"
	"github.com/hypatia-of-sva/pagealloc/internal/memprovider"
	"github.com/hypatia-of-sva/pagealloc/internal/result"
)

// noOldSize is the distinguished "unknown old size" sentinel: the one
// spec.md §9 documents as disabling Resize/Free's cross-check against the
// allocation's true page-quantized size.
const noOldSize = engine.NoOldSize

// Allocator owns one arena and the engine that allocates pages within it.
// It is not safe for concurrent use: the caller owns the serialization.
type Allocator struct {
	id      uuid.UUID
	arena   *arena.Arena
	engine  *engine.Engine
	sink    Sink
	index   *allocindex.Index
	metrics *metrics
}

// New creates an Allocator per cfg. cfg is deep-copied before use, so the
// caller's Config value may be freely reused or mutated afterward. sink
// (may be nil) receives every subsequent event; it must not call back into
// this Allocator synchronously (see Sink).
func New(cfg Config, sink Sink) (*Allocator, error) {
	cfg, err := cfg.clone()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		result.Emit(sink, result.EventInitError, fmt.Sprintf("refusing to initialize: %v", err))
		return nil, err
	}

	provider := memprovider.Heap()
	if cfg.UseMmap {
		provider = memprovider.Mmap()
	}

	a, err := arena.New(cfg.PageSize, cfg.InitialPages, provider)
	if err != nil {
		result.Emit(sink, result.EventInitError, fmt.Sprintf("failed to initialize arena: %v", err))
		return nil, err
	}

	id := uuid.New()
	eng := engine.New(a, sink)

	al := &Allocator{id: id, arena: a, engine: eng, sink: sink}

	if cfg.TrackAllocations {
		al.index = allocindex.New(binary.BigEndian.Uint64(id[:8]))
		eng.SetIndex(al.index)
	}
	if cfg.MetricsNamespace != "" {
		al.metrics = newMetrics(cfg.MetricsNamespace)
		eng.SetObserver(al.metrics)
	}

	result.Emit(sink, result.EventInitSuccess, fmt.Sprintf("arena %s initialized with %d pages of %d bytes", id, cfg.InitialPages, cfg.PageSize))
	return al, nil
}

// ID returns the Allocator's identity, minted once at New. It appears in
// the messages of the init and deinit events; the other events' messages
// do not carry it.
func (a *Allocator) ID() uuid.UUID {
	return a.id
}

// MetricsCollectors returns the Allocator's Prometheus gauges for
// registration with a prometheus.Registerer of the caller's choosing, or
// nil if Config.MetricsNamespace was empty.
func (a *Allocator) MetricsCollectors() []prometheus.Collector {
	if a.metrics == nil {
		return nil
	}
	return a.metrics.Collectors()
}

// Grow extends the arena by adding pages so that its new page count is
// newPages, a multiple of 4 not smaller than the current count.
func (a *Allocator) Grow(newPages uint32) error {
	return a.engine.Grow(newPages)
}

// Close releases the arena's underlying memory. It is idempotent.
func (a *Allocator) Close() error {
	if err := a.arena.Close(); err != nil {
		result.Emit(a.sink, result.EventDeinitError, fmt.Sprintf("failed to release arena memory: %v", err))
		return err
	}
	result.Emit(a.sink, result.EventDeinitSuccess, fmt.Sprintf("arena %s deinitialized", a.id))
	return nil
}

// Alloc finds the lowest-indexed run of pages able to hold size bytes
// (honoring any WithAlignment/WithOffsetToAlignment constraint) and marks
// it allocated.
func (a *Allocator) Alloc(size uint64, opts ...AllocOption) (unsafe.Pointer, error) {
	o := resolveAllocOptions(opts)
	return a.engine.Alloc(size, o.alignmentBits, o.offsetToAlignment, o.zeroed)
}

// SizeOf returns the page-quantized size of the allocation headed at ptr.
func (a *Allocator) SizeOf(ptr unsafe.Pointer) (uint64, error) {
	return a.engine.SizeOf(ptr)
}

// Free marks oldPtr's allocation free. If WithFreeOldSize was supplied,
// its value is cross-checked against the allocation's true size.
func (a *Allocator) Free(oldPtr unsafe.Pointer, opts ...FreeOption) error {
	o := resolveFreeOptions(opts)
	return a.engine.Free(oldPtr, o.oldSize)
}

// Resize changes oldPtr's allocation to newSize bytes: in place when
// possible (shrink, or grow into adjacent free pages), otherwise by
// relocating to a fresh run and copying min(old, new) bytes across.
// WithAllowRelocate only gates the case where the in-place pointer would
// no longer satisfy a requested alignment; without it, that case fails
// with ErrInvalidAddress rather than move the data. Growth that can't fit
// in the adjacent pages always relocates.
func (a *Allocator) Resize(oldPtr unsafe.Pointer, newSize uint64, opts ...ResizeOption) (unsafe.Pointer, error) {
	o := resolveResizeOptions(opts)
	return a.engine.Resize(oldPtr, o.oldSize, newSize, o.alignmentBits, o.offsetToAlignment, o.allowRelocate, o.zeroNew)
}

// AllocationInfo describes one live allocation as of the moment
// ListAllocations was called.
type AllocationInfo struct {
	// Pointer is the allocation's head address, as returned by Alloc.
	Pointer unsafe.Pointer
	// Size is the allocation's page-quantized size in bytes.
	Size uint64
}

// ListAllocations returns every live allocation in ascending address
// order. It requires Config.TrackAllocations; without it, it returns
// ErrInvalidParameter, since no index was built to answer the query.
//
// This is pure introspection: it walks the optional allocindex.Index
// rather than the arena's Page Allocation Table, so it never contends
// with or influences Alloc/Resize/Free.
func (a *Allocator) ListAllocations() ([]AllocationInfo, error) {
	if a.index == nil {
		return nil, fmt.Errorf("%w: ListAllocations requires Config.TrackAllocations", result.ErrInvalidParameter)
	}
	entries := a.index.Entries()
	out := make([]AllocationInfo, len(entries))
	for i, e := range entries {
		out[i] = AllocationInfo{
			Pointer: a.arena.PagePointer(e.HeadPage),
			Size:    uint64(e.Length) * uint64(a.arena.PageSize()),
		}
	}
	return out, nil
}

// AllocationsIterator returns an allocindex.Iterator over the same live
// allocations ListAllocations reports, for callers that want to walk them
// without materializing a slice. It requires Config.TrackAllocations.
func (a *Allocator) AllocationsIterator() (*allocindex.Iterator, error) {
	if a.index == nil {
		return nil, fmt.Errorf("%w: AllocationsIterator requires Config.TrackAllocations", result.ErrInvalidParameter)
	}
	return allocindex.NewIterator(a.index), nil
}
