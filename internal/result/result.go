// Package result holds the allocator's error taxonomy, event taxonomy, and
// logging-sink contract, shared by internal/arena, internal/engine and the
// root pagealloc package without creating an import cycle between them.
package result

import "errors"

// The five-way result taxonomy from the original C allocator's alloc_result
// enum. SUCCESS has no Go analog here: idiomatic Go represents it as a nil
// error instead of a sentinel value.
var (
	// ErrOutOfMemory covers: the underlying system allocator failed, a
	// request exceeds arena capacity, or no free run of the needed length
	// exists.
	ErrOutOfMemory = errors.New("pagealloc: out of memory")
	// ErrInvalidAddress covers: a pointer outside the arena, a pointer not
	// at an ALLOC_HEAD, or a length that disagrees with a supplied old
	// size.
	ErrInvalidAddress = errors.New("pagealloc: invalid address")
	// ErrInvalidParameter covers: a nil receiver/output, zero size,
	// misaligned page size or page count, and other argument-validation
	// failures.
	ErrInvalidParameter = errors.New("pagealloc: invalid parameter")
	// ErrUnknown covers: detected PAT corruption, or a system primitive
	// violating its contract.
	ErrUnknown = errors.New("pagealloc: unknown internal error")
)

// EventCode enumerates every event the logging adapter may report,
// mirroring the original C header's alloc_code enum.
type EventCode int

const (
	EventInitSuccess EventCode = iota
	EventInitError
	EventExpandSuccess
	EventExpandError
	EventDeinitSuccess
	EventDeinitError
	EventAllocSuccess
	EventAllocError
	EventResizeSuccess
	EventResizeError
	EventFreeSuccess
	EventFreeError
	EventSizeSuccess
	EventSizeError
	EventNote
)

// String names an EventCode for log messages and field values.
func (c EventCode) String() string {
	switch c {
	case EventInitSuccess:
		return "init_success"
	case EventInitError:
		return "init_error"
	case EventExpandSuccess:
		return "expand_success"
	case EventExpandError:
		return "expand_error"
	case EventDeinitSuccess:
		return "deinit_success"
	case EventDeinitError:
		return "deinit_error"
	case EventAllocSuccess:
		return "alloc_success"
	case EventAllocError:
		return "alloc_error"
	case EventResizeSuccess:
		return "resize_success"
	case EventResizeError:
		return "resize_error"
	case EventFreeSuccess:
		return "free_success"
	case EventFreeError:
		return "free_error"
	case EventSizeSuccess:
		return "size_success"
	case EventSizeError:
		return "size_error"
	case EventNote:
		return "note"
	default:
		return "unknown_event"
	}
}

// IsError reports whether the event denotes a failed operation.
func (c EventCode) IsError() bool {
	switch c {
	case EventInitError, EventExpandError, EventDeinitError,
		EventAllocError, EventResizeError, EventFreeError, EventSizeError:
		return true
	default:
		return false
	}
}

// Sink receives every significant event the engine produces: the
// success or failure of each operation, plus informational notes (e.g.
// "resize fell back to copy"). The engine invokes it synchronously from
// the calling goroutine and does not retain msg past the call. A nil Sink
// is a legal no-op.
type Sink interface {
	Log(code EventCode, msg string)
}

// Emit calls sink.Log if sink is non-nil.
func Emit(sink Sink, code EventCode, msg string) {
	if sink != nil {
		sink.Log(code, msg)
	}
}
