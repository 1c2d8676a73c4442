package tlsf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func walkOffsets(p *Pool) []uintptr {
	var offsets []uintptr
	p.Walk(func(b *Block) { offsets = append(offsets, b.Offset) })
	return offsets
}

func TestPoolPhysicalListCoversRegionExactly(t *testing.T) {
	p := New(1<<16, 16)

	a, err := p.Allocate(100)
	require.NoError(t, err)
	b, err := p.Allocate(200)
	require.NoError(t, err)
	_ = b

	var total uintptr
	var prevEnd uintptr
	p.Walk(func(blk *Block) {
		require.Equal(t, prevEnd, blk.Offset, "physical list must have no gaps or overlaps")
		prevEnd = blk.Offset + blk.Size
		total += blk.Size
	})
	require.Equal(t, p.Size(), total)
	require.NotNil(t, a)
}

func TestPoolAllocateReturnsDistinctNonOverlappingRanges(t *testing.T) {
	p := New(1<<16, 16)

	a, err := p.Allocate(64)
	require.NoError(t, err)
	b, err := p.Allocate(64)
	require.NoError(t, err)

	require.False(t, a.Offset == b.Offset)
	aEnd := a.Offset + a.Size
	require.True(t, aEnd <= b.Offset || b.Offset+b.Size <= a.Offset)
}

func TestPoolFreeMergesAdjacentNeighbors(t *testing.T) {
	p := New(1<<16, 16)

	a, err := p.Allocate(64)
	require.NoError(t, err)
	b, err := p.Allocate(64)
	require.NoError(t, err)
	c, err := p.Allocate(64)
	require.NoError(t, err)

	p.Free(a)
	p.Free(c)
	p.Free(b)

	// After freeing all three in non-physical order, the whole region should
	// have merged back into a single free block.
	blocks := 0
	p.Walk(func(*Block) { blocks++ })
	require.Equal(t, 1, blocks)
}

func TestPoolAllocateFailsWhenExhausted(t *testing.T) {
	p := New(128, 16)

	_, err := p.Allocate(128)
	require.NoError(t, err)

	_, err = p.Allocate(16)
	require.Error(t, err)
}

func TestPoolExpandGrowsCapacity(t *testing.T) {
	p := New(128, 16)

	_, err := p.Allocate(128)
	require.NoError(t, err)
	_, err = p.Allocate(16)
	require.Error(t, err)

	p.Expand(128)
	require.EqualValues(t, 256, p.Size())

	block, err := p.Allocate(64)
	require.NoError(t, err)
	require.EqualValues(t, 128, block.Offset)
}

func TestMappingIsMonotonicForIncreasingSizes(t *testing.T) {
	prevFl, prevSl := mapping(8)
	for size := uintptr(16); size <= 1<<20; size *= 2 {
		fl, sl := mapping(size)
		require.True(t, fl > prevFl || (fl == prevFl && sl >= prevSl))
		prevFl, prevSl = fl, sl
	}
}

func TestPoolDoubleFreePanics(t *testing.T) {
	p := New(1<<16, 16)
	a, err := p.Allocate(64)
	require.NoError(t, err)
	p.Free(a)
	require.Panics(t, func() { p.Free(a) })
}
