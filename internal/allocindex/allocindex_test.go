package allocindex_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypatia-of-sva/pagealloc/internal/allocindex"
)

func TestInsertOrdersByHeadPage(t *testing.T) {
	idx := allocindex.New(7)
	idx.Insert(10, 2)
	idx.Insert(0, 1)
	idx.Insert(5, 3)

	require.Equal(t, 3, idx.Len())
	entries := idx.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, []allocindex.Entry{
		{HeadPage: 0, Length: 1},
		{HeadPage: 5, Length: 3},
		{HeadPage: 10, Length: 2},
	}, entries)
}

func TestInsertUpdatesExisting(t *testing.T) {
	idx := allocindex.New(1)
	idx.Insert(4, 1)
	idx.Insert(4, 3)
	require.Equal(t, 1, idx.Len())
	assert.Equal(t, 3, idx.Entries()[0].Length)
}

func TestRemove(t *testing.T) {
	idx := allocindex.New(42)
	idx.Insert(0, 1)
	idx.Insert(8, 2)
	idx.Remove(0)
	require.Equal(t, 1, idx.Len())
	assert.Equal(t, []allocindex.Entry{{HeadPage: 8, Length: 2}}, idx.Entries())
}

func TestRemoveMissingIsNoop(t *testing.T) {
	idx := allocindex.New(42)
	idx.Insert(0, 1)
	idx.Remove(99)
	require.Equal(t, 1, idx.Len())
}

func TestManyInsertsStayOrdered(t *testing.T) {
	idx := allocindex.New(99)
	for i := 100; i >= 0; i-- {
		idx.Insert(i, 1)
	}
	entries := idx.Entries()
	require.Len(t, entries, 101)
	for i, e := range entries {
		assert.Equal(t, i, e.HeadPage)
	}
}

func TestIteratorWalksInOrder(t *testing.T) {
	idx := allocindex.New(3)
	idx.Insert(10, 2)
	idx.Insert(0, 1)
	idx.Insert(5, 3)

	it := allocindex.NewIterator(idx)
	var got []allocindex.Entry
	for ok := it.First(); ok; ok = it.Next() {
		got = append(got, allocindex.Entry{HeadPage: it.HeadPage(), Length: it.Length()})
	}
	require.NoError(t, it.Close())

	assert.Equal(t, []allocindex.Entry{
		{HeadPage: 0, Length: 1},
		{HeadPage: 5, Length: 3},
		{HeadPage: 10, Length: 2},
	}, got)
}

func TestIteratorOnEmptyIndexIsNeverValid(t *testing.T) {
	idx := allocindex.New(1)
	it := allocindex.NewIterator(idx)
	assert.False(t, it.First())
	assert.False(t, it.Valid())
}

func TestIteratorFirstResetsPosition(t *testing.T) {
	idx := allocindex.New(1)
	idx.Insert(0, 1)
	idx.Insert(1, 1)

	it := allocindex.NewIterator(idx)
	require.True(t, it.First())
	require.True(t, it.Next())
	require.False(t, it.Next())

	require.True(t, it.First())
	assert.Equal(t, 0, it.HeadPage())
}
