package pagealloc

import "github.com/hypatia-of-sva/pagealloc/internal/result"

// The allocator's four-way error taxonomy. SUCCESS has no analog: a nil
// error is success. Every operation that fails wraps one of these with
// fmt.Errorf("%w: ...", ...), so errors.Is(err, ErrX) keeps working
// alongside a human-readable message.
var (
	// ErrOutOfMemory: the system memory provider failed, a request
	// exceeds arena capacity, or no free run of the needed length exists.
	ErrOutOfMemory = result.ErrOutOfMemory
	// ErrInvalidAddress: a pointer outside the arena, not at an
	// allocation's head, or a supplied old size that disagrees with the
	// allocation's true page-quantized size.
	ErrInvalidAddress = result.ErrInvalidAddress
	// ErrInvalidParameter: a zero size, a malformed Config, or another
	// argument-validation failure.
	ErrInvalidParameter = result.ErrInvalidParameter
	// ErrUnknown: detected page-table corruption or a reentrant call.
	ErrUnknown = result.ErrUnknown
)
