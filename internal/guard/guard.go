// Package guard offers best-effort detection of a Sink re-entering the
// same Engine call it was invoked from — the one misuse spec.md documents
// explicitly ("the log sink ... must not re-enter the engine on the same
// arena"). It adds no locking: the engine's concurrency model stays
// single-owner, per the Non-goal that thread safety is the caller's job.
package guard

import (
	"sync/atomic"

	"github.com/timandy/routine"
)

// noOwner is never a valid goroutine id; routine.Goid() returns positive
// ids, so 0 doubles as "no call in flight".
const noOwner = 0

// Call tracks which goroutine is currently inside one Engine entry point.
type Call struct {
	owner atomic.Int64
}

// Enter records the calling goroutine as owning the in-flight call.
// reentrant is true if a call was already in flight, meaning either the
// same goroutine recursed (a synchronous sink callback calling back into
// the engine) or a concurrent caller overlapped despite the single-owner
// contract; either way the engine should treat it as a detected misuse.
func (c *Call) Enter() (reentrant bool) {
	gid := routine.Goid()
	return !c.owner.CompareAndSwap(noOwner, gid)
}

// Leave clears the in-flight marker unconditionally. It does not check
// ownership, so a call whose Enter reported reentrant, which never owned
// the marker, must skip Leave to keep the outer call's marker in place.
func (c *Call) Leave() {
	c.owner.Store(noOwner)
}
