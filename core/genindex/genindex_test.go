package genindex

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPoolGenerateContainsErase(t *testing.T) {
	p := NewPool()
	a := p.Generate()
	require.True(t, p.Contains(a))
	require.Equal(t, 1, p.Len())

	p.Erase(a)
	require.False(t, p.Contains(a))
	require.Equal(t, 0, p.Len())
}

func TestPoolRecyclesSlotAndBumpsGeneration(t *testing.T) {
	p := NewPool()
	a := p.Generate()
	p.Erase(a)

	b := p.Generate()
	require.Equal(t, a.Slot, b.Slot)
	require.Equal(t, a.Gen+1, b.Gen)

	// The stale handle must no longer be considered live even though its
	// slot was reused.
	require.False(t, p.Contains(a))
	require.True(t, p.Contains(b))
}

func TestPoolTombstonesSlotOnGenerationWrap(t *testing.T) {
	p := NewPool()
	k := p.Generate()
	for i := 0; i < 255; i++ {
		p.Erase(k)
		k = p.Generate()
		require.Equal(t, uint32(1), k.Slot)
	}
	// k.Gen is now 255; erasing it wraps the generation counter to 0 and
	// must tombstone the slot rather than recycle it.
	p.Erase(k)
	require.Equal(t, 0, p.Len())

	next := p.Generate()
	require.NotEqual(t, k.Slot, next.Slot, "tombstoned slot must never be reissued")
}

func TestPoolEraseUnknownHandleIsNoop(t *testing.T) {
	p := NewPool()
	require.NotPanics(t, func() { p.Erase(GenIndex{Slot: 99, Gen: 3}) })
}

func TestHandleMapInsertGetErase(t *testing.T) {
	m := NewHandleMap[string]()
	h := m.Insert("mesh.gltf")

	v, ok := m.Get(h)
	require.True(t, ok)
	require.Equal(t, "mesh.gltf", v)

	m.Erase(h)
	_, ok = m.Get(h)
	require.False(t, ok)
}

func TestHandleMapEachVisitsOnlyLive(t *testing.T) {
	m := NewHandleMap[int]()
	a := m.Insert(1)
	_ = m.Insert(2)
	m.Erase(a)

	seen := map[uint32]int{}
	m.Each(func(k GenIndex, v int) { seen[k.Slot] = v })
	require.Len(t, seen, 1)
}

func TestHandleMapSetUpdatesValueInPlace(t *testing.T) {
	m := NewHandleMap[string]()
	h := m.Insert("mesh.gltf")

	ok := m.Set(h, "mesh.gltf (dirty)")
	require.True(t, ok)

	v, ok := m.Get(h)
	require.True(t, ok)
	require.Equal(t, "mesh.gltf (dirty)", v)
}

func TestHandleMapSetReportsFalseForRetiredHandle(t *testing.T) {
	m := NewHandleMap[string]()
	h := m.Insert("mesh.gltf")
	m.Erase(h)

	ok := m.Set(h, "resurrected")
	require.False(t, ok)
}

func TestTypedHandleDistinguishesByType(t *testing.T) {
	type Mesh struct{}
	type Buffer struct{}

	raw := GenIndex{Slot: 5, Gen: 1}
	meshHandle := NewHandle[Mesh](raw)
	bufHandle := NewHandle[Buffer](raw)

	require.Equal(t, raw, meshHandle.GenIndex)
	require.Equal(t, raw, bufHandle.GenIndex)
	require.True(t, NullHandle[Mesh]().IsNull())
}
