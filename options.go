package pagealloc

// AllocOption customizes a single Alloc call.
type AllocOption func(*allocOptions)

type allocOptions struct {
	alignmentBits     uint
	offsetToAlignment uint64
	zeroed            bool
}

// WithAlignment requests that the returned pointer satisfy a 2^bits-byte
// alignment (optionally offset by WithOffsetToAlignment). bits == 0 means
// "no constraint beyond the arena's natural page alignment".
func WithAlignment(bits uint) AllocOption {
	return func(o *allocOptions) { o.alignmentBits = bits }
}

// WithOffsetToAlignment shifts the point at which WithAlignment's
// constraint is measured, e.g. to align a struct field rather than its
// enclosing allocation.
func WithOffsetToAlignment(offset uint64) AllocOption {
	return func(o *allocOptions) { o.offsetToAlignment = offset }
}

// WithZeroed requests that freshly committed pages be zero-filled before
// the pointer is returned. Pages that were never touched are already
// zero; this only matters for pages reused from a prior Free.
func WithZeroed() AllocOption {
	return func(o *allocOptions) { o.zeroed = true }
}

func resolveAllocOptions(opts []AllocOption) allocOptions {
	var o allocOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ResizeOption customizes a single Resize call.
type ResizeOption func(*resizeOptions)

type resizeOptions struct {
	alignmentBits     uint
	offsetToAlignment uint64
	allowRelocate     bool
	zeroNew           bool
	oldSize           uint64
}

// WithResizeAlignment is Resize's analog of WithAlignment.
func WithResizeAlignment(bits uint) ResizeOption {
	return func(o *resizeOptions) { o.alignmentBits = bits }
}

// WithResizeOffsetToAlignment is Resize's analog of WithOffsetToAlignment.
func WithResizeOffsetToAlignment(offset uint64) ResizeOption {
	return func(o *resizeOptions) { o.offsetToAlignment = offset }
}

// WithAllowRelocate permits Resize to fall back to allocate-copy-free when
// the in-place pointer would no longer satisfy a requested alignment.
// Without it, an alignment-violating resize fails with ErrInvalidAddress
// rather than move the data. It does not gate growth: a grow that cannot
// proceed in place because the adjacent pages aren't free always
// relocates, regardless of this option.
func WithAllowRelocate() ResizeOption {
	return func(o *resizeOptions) { o.allowRelocate = true }
}

// WithZeroNew is Resize's analog of WithZeroed, applied to pages newly
// added by growth (in place or via relocation).
func WithZeroNew() ResizeOption {
	return func(o *resizeOptions) { o.zeroNew = true }
}

// WithOldSize supplies the allocation's previously observed size so
// Resize (and Free) can cross-check it against the true page-quantized
// size, catching caller bookkeeping bugs. Omit it (the default,
// engine.NoOldSize) to skip the cross-check.
func WithOldSize(size uint64) ResizeOption {
	return func(o *resizeOptions) { o.oldSize = size }
}

func resolveResizeOptions(opts []ResizeOption) resizeOptions {
	o := resizeOptions{oldSize: noOldSize}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// FreeOption customizes a single Free call.
type FreeOption func(*freeOptions)

type freeOptions struct {
	oldSize uint64
}

// WithFreeOldSize is Free's analog of WithOldSize.
func WithFreeOldSize(size uint64) FreeOption {
	return func(o *freeOptions) { o.oldSize = size }
}

func resolveFreeOptions(opts []FreeOption) freeOptions {
	o := freeOptions{oldSize: noOldSize}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
