package pagealloc

import "github.com/hypatia-of-sva/pagealloc/internal/result"

// EventCode names one event an Allocator may report through its Sink.
type EventCode = result.EventCode

// The full event taxonomy an Allocator reports, one per outcome of each
// public operation plus EventNote for informational diagnostics (e.g. a
// resize falling back to copying).
const (
	EventInitSuccess   = result.EventInitSuccess
	EventInitError     = result.EventInitError
	EventExpandSuccess = result.EventExpandSuccess
	EventExpandError   = result.EventExpandError
	EventDeinitSuccess = result.EventDeinitSuccess
	EventDeinitError   = result.EventDeinitError
	EventAllocSuccess  = result.EventAllocSuccess
	EventAllocError    = result.EventAllocError
	EventResizeSuccess = result.EventResizeSuccess
	EventResizeError   = result.EventResizeError
	EventFreeSuccess   = result.EventFreeSuccess
	EventFreeError     = result.EventFreeError
	EventSizeSuccess   = result.EventSizeSuccess
	EventSizeError     = result.EventSizeError
	EventNote          = result.EventNote
)

// Sink receives every event an Allocator produces. The Allocator invokes
// it synchronously from the calling goroutine; a Sink must not call back
// into the same Allocator (see the reentrancy note on New). A nil Sink is
// a legal no-op.
type Sink = result.Sink
