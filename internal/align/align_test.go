package align_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hypatia-of-sva/pagealloc/internal/align"
)

func TestNoConstraintAlwaysSatisfied(t *testing.T) {
	assert.True(t, align.Satisfies(1, 12345, 64, 0, 999))
}

func TestFastPathAppliesUnderSixBitsWithAlignedOffset(t *testing.T) {
	// alignmentBits <= 6 and offset % 64 == 0: always true, regardless of
	// what the real address would compute to.
	assert.True(t, align.Satisfies(1 /* deliberately misaligned base */, 7, 64, 6, 64))
}

func TestFastPathDoesNotApplyWithUnalignedOffset(t *testing.T) {
	base := uintptr(1 << 16)
	// offset not a multiple of 64 forces the real address check.
	got := align.Satisfies(base, 0, 64, 6, 5)
	want := (base+5)&((1<<6)-1) == 0
	assert.Equal(t, want, got)
}

func TestLargeAlignmentComputesRealAddress(t *testing.T) {
	base := uintptr(1 << 16) // page-aligned to 2^16
	assert.True(t, align.Satisfies(base, 0, 1<<16, 16, 0))
	assert.False(t, align.Satisfies(base, 0, 1<<16, 16, 1))
}

func TestAlignmentAcrossPages(t *testing.T) {
	base := uintptr(0)
	pageSize := uint32(4096)
	// page index 1 at a 4096-byte page size is aligned to 2^12.
	assert.True(t, align.Satisfies(base, 1, pageSize, 12, 0))
	// but not to 2^13 unless the page index is even.
	assert.False(t, align.Satisfies(base, 1, pageSize, 13, 0))
	assert.True(t, align.Satisfies(base, 2, pageSize, 13, 0))
}
