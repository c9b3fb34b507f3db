package guard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hypatia-of-sva/pagealloc/internal/guard"
)

func TestEnterLeaveRoundTrip(t *testing.T) {
	var c guard.Call
	reentrant := c.Enter()
	assert.False(t, reentrant)
	c.Leave()

	reentrant = c.Enter()
	assert.False(t, reentrant, "after Leave, a fresh Enter should not be reentrant")
	c.Leave()
}

func TestSynchronousReentryIsDetected(t *testing.T) {
	var c guard.Call
	c.Enter()
	reentrant := c.Enter() // simulates a sink callback calling back in
	assert.True(t, reentrant)
	c.Leave()
}
