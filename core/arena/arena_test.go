package arena

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArenaAllocateBumpsOffset(t *testing.T) {
	a, err := NewDedicated(1 << 20)
	require.NoError(t, err)
	defer a.Destroy()

	require.EqualValues(t, 0, a.Offset())
	a.Allocate(128, 16)
	require.EqualValues(t, 128, a.Offset())
}

func TestArenaClearResetsOffsetKeepsCommit(t *testing.T) {
	a, err := NewDedicated(1 << 20)
	require.NoError(t, err)
	defer a.Destroy()

	a.Allocate(4096, 8)
	committedBefore := a.committed
	a.Clear()
	require.EqualValues(t, 0, a.Offset())
	require.Equal(t, committedBefore, a.committed)
}

func TestScratchLIFORestoresOffset(t *testing.T) {
	h := InitThread()
	defer h.DestroyThread()

	require.EqualValues(t, 0, h.primary.Offset())

	scopeA := h.Open()
	scopeA.Arena().Allocate(128, 16)
	require.EqualValues(t, 128, scopeA.Arena().Offset())

	scopeB := h.Open()
	scopeB.Arena().Allocate(256, 32)
	require.Greater(t, scopeB.Arena().Offset(), uintptr(128))

	scopeB.Close()
	require.EqualValues(t, 128, h.primary.Offset())

	scopeA.Close()
	require.EqualValues(t, 0, h.primary.Offset())
}

func TestScratchConflictSetFallsBackToSecondary(t *testing.T) {
	h := InitThread()
	defer h.DestroyThread()

	outer := h.Open()
	require.Same(t, h.primary, outer.Arena())

	inner := h.Open(h.primary)
	require.Same(t, h.secondary, inner.Arena())

	inner.Close()
	outer.Close()
}

func TestArenaExpandGrowsLastAllocationInPlace(t *testing.T) {
	a, err := NewDedicated(1 << 20)
	require.NoError(t, err)
	defer a.Destroy()

	buf := a.Allocate(16, 8)
	for i := range buf {
		buf[i] = byte(i)
	}

	grown, ok := a.Expand(buf, 16, 32)
	require.True(t, ok)
	require.Len(t, grown, 32)
	for i := 0; i < 16; i++ {
		require.Equal(t, byte(i), grown[i])
	}
}

func TestArenaExpandFailsWhenNotLastAllocation(t *testing.T) {
	a, err := NewDedicated(1 << 20)
	require.NoError(t, err)
	defer a.Destroy()

	first := a.Allocate(16, 8)
	a.Allocate(16, 8)

	_, ok := a.Expand(first, 16, 32)
	require.False(t, ok)
}

func TestArenaAllocateOutOfReservationPanics(t *testing.T) {
	a, err := NewDedicated(4096)
	require.NoError(t, err)
	defer a.Destroy()

	require.Panics(t, func() {
		a.Allocate(1<<20, 8)
	})
}

func TestAllocateSliceTyped(t *testing.T) {
	a, err := NewDedicated(1 << 20)
	require.NoError(t, err)
	defer a.Destroy()

	values := AllocateSlice[uint32](a, 4)
	require.Len(t, values, 4)
	values[2] = 42
	require.EqualValues(t, 42, values[2])
}
