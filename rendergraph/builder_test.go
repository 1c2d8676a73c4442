package rendergraph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateBufferReturnsDistinctIDs(t *testing.T) {
	b := NewBuilder()
	a := b.CreateBuffer(BufferDesc{Name: "a"})
	c := b.CreateBuffer(BufferDesc{Name: "c"})
	require.NotEqual(t, a, c)
}

func TestBufferDescRoundTrips(t *testing.T) {
	b := NewBuilder()
	id := b.CreateBuffer(BufferDesc{Name: "positions", Size: 4096})

	desc, ok := b.BufferDesc(id)
	require.True(t, ok)
	require.Equal(t, "positions", desc.Name)
	require.Equal(t, uint64(4096), desc.Size)
}

func TestTextureDescRoundTrips(t *testing.T) {
	b := NewBuilder()
	id := b.CreateTexture(TextureDesc{Name: "color", Width: 800, Height: 600})

	desc, ok := b.TextureDesc(id)
	require.True(t, ok)
	require.Equal(t, uint32(800), desc.Width)
}

func TestCreateSemaphoreReturnsDistinctIDs(t *testing.T) {
	b := NewBuilder()
	s1 := b.CreateSemaphore()
	s2 := b.CreateSemaphore()
	require.NotEqual(t, s1, s2)
}

func TestAddPassReturnsChainablePassBuilder(t *testing.T) {
	b := NewBuilder()
	buf := b.CreateBuffer(BufferDesc{Name: "x"})

	pb := b.AddPass("p", PassUpdate).WritesBuffer(buf, AccessShaderWrite, StageComputeShader).SetUpdate(func(rt RuntimeView) {})
	require.NotNil(t, pb)

	graph, err := b.Compile()
	require.NoError(t, err)
	require.Len(t, graph.Passes, 1)
	require.Equal(t, PassUpdate, graph.Passes[0].Kind())
}
