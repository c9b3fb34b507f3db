package pat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypatia-of-sva/pagealloc/internal/pat"
)

func TestGetSetRoundTrip(t *testing.T) {
	tbl := pat.New(make([]byte, 2)) // 8 pages
	for i := 0; i < 8; i++ {
		assert.Equal(t, pat.FreeZero, tbl.Get(i), "page %d should start FREE_ZERO", i)
	}

	tbl.Set(0, pat.AllocHead)
	tbl.Set(1, pat.AllocTail)
	tbl.Set(2, pat.AllocTail)
	tbl.Set(3, pat.FreeDirty)

	assert.Equal(t, pat.AllocHead, tbl.Get(0))
	assert.Equal(t, pat.AllocTail, tbl.Get(1))
	assert.Equal(t, pat.AllocTail, tbl.Get(2))
	assert.Equal(t, pat.FreeDirty, tbl.Get(3))
	// Untouched neighbors in the same byte must not be disturbed.
	assert.Equal(t, pat.FreeZero, tbl.Get(4))
}

func TestByteLayoutIsLittleEndianWithinByte(t *testing.T) {
	tbl := pat.New(make([]byte, 1))
	tbl.Set(0, pat.AllocHead)  // AA = 10
	tbl.Set(1, pat.AllocTail)  // BB = 11
	tbl.Set(2, pat.FreeDirty)  // CC = 01
	tbl.Set(3, pat.FreeZero)   // DD = 00
	require.Equal(t, byte(0b00011110), tbl.Bytes()[0])
}

func TestScenario1BasicAllocFreeBytes(t *testing.T) {
	// From spec.md scenario 1: page_size=64, initial_pages=4, alloc(100)
	// spans pages 0,1 (HEAD,TAIL), pages 2,3 remain FREE_ZERO -> 0x0E.
	tbl := pat.New(make([]byte, 1))
	tbl.Set(0, pat.AllocHead)
	tbl.Set(1, pat.AllocTail)
	require.Equal(t, byte(0x0E), tbl.Bytes()[0])

	// free(p, 128) -> both pages FREE_DIRTY -> 0x05.
	tbl.Set(0, pat.FreeDirty)
	tbl.Set(1, pat.FreeDirty)
	require.Equal(t, byte(0x05), tbl.Bytes()[0])
}

func TestIsFreeIsAllocated(t *testing.T) {
	assert.True(t, pat.IsFree(pat.FreeZero))
	assert.True(t, pat.IsFree(pat.FreeDirty))
	assert.False(t, pat.IsFree(pat.AllocHead))
	assert.True(t, pat.IsAllocated(pat.AllocHead))
	assert.True(t, pat.IsAllocated(pat.AllocTail))
	assert.False(t, pat.IsAllocated(pat.FreeZero))
}

func TestSetBytesAfterGrow(t *testing.T) {
	tbl := pat.New(make([]byte, 1))
	tbl.Set(0, pat.AllocHead)
	grown := make([]byte, 2)
	copy(grown, tbl.Bytes())
	tbl.SetBytes(grown)
	require.Equal(t, 8, tbl.Len())
	assert.Equal(t, pat.AllocHead, tbl.Get(0))
	assert.Equal(t, pat.FreeZero, tbl.Get(4))
}
