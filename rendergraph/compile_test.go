package rendergraph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubRuntime struct{}

func (stubRuntime) Buffer(id BufferID) (any, bool)       { return nil, false }
func (stubRuntime) Texture(id TextureID) (any, bool)     { return nil, false }
func (stubRuntime) Semaphore(id SemaphoreID) (any, bool) { return nil, false }

func TestCompileOrdersWriterBeforeReader(t *testing.T) {
	b := NewBuilder()
	buf := b.CreateBuffer(BufferDesc{Name: "positions", Size: 1024})

	var order []string
	b.AddPass("upload", PassHost).WritesBuffer(buf, AccessTransferWrite, StageTransfer).SetHost(func(rt RuntimeView) error {
		order = append(order, "upload")
		return nil
	})
	b.AddPass("draw", PassDevice).ReadsBuffer(buf, AccessVertexRead, StageVertexInput).SetDevice(func(rt RuntimeView, rec CommandRecorder) error {
		order = append(order, "draw")
		return nil
	})

	graph, err := b.Compile()
	require.NoError(t, err)
	require.Len(t, graph.Passes, 2)
	require.Equal(t, "upload", graph.Passes[0].Name())
	require.Equal(t, "draw", graph.Passes[1].Name())

	require.NoError(t, graph.Execute(stubRuntime{}, func() CommandRecorder { return nil }))
	require.Equal(t, []string{"upload", "draw"}, order)
}

func TestCompilePreservesDeclarationOrderAmongIndependentPasses(t *testing.T) {
	b := NewBuilder()
	b.AddPass("a", PassHost).SetHost(func(rt RuntimeView) error { return nil })
	b.AddPass("b", PassHost).SetHost(func(rt RuntimeView) error { return nil })
	b.AddPass("c", PassHost).SetHost(func(rt RuntimeView) error { return nil })

	graph, err := b.Compile()
	require.NoError(t, err)

	var names []string
	for _, p := range graph.Passes {
		names = append(names, p.Name())
	}
	require.Equal(t, []string{"a", "b", "c"}, names)
}

func TestCompileSynthesizesBarrierBetweenProducerAndConsumer(t *testing.T) {
	b := NewBuilder()
	tex := b.CreateTexture(TextureDesc{Name: "color", Width: 1920, Height: 1080})

	b.AddPass("render", PassDevice).WritesTexture(tex, AccessColorAttachmentWrite, StageColorAttachmentOutput).
		SetDevice(func(rt RuntimeView, rec CommandRecorder) error { return nil })
	b.AddPass("post", PassDevice).ReadsTexture(tex, AccessShaderRead, StageFragmentShader).
		SetDevice(func(rt RuntimeView, rec CommandRecorder) error { return nil })

	graph, err := b.Compile()
	require.NoError(t, err)
	require.Len(t, graph.Barriers, 1)
	barrier := graph.Barriers[0]
	require.Equal(t, AccessColorAttachmentWrite, barrier.SrcAccess)
	require.Equal(t, AccessShaderRead, barrier.DstAccess)
	require.Equal(t, 1, barrier.Before)
}

func TestCompileOrdersMultipleReadersAfterSharedWriter(t *testing.T) {
	b := NewBuilder()
	buf := b.CreateBuffer(BufferDesc{Name: "shared"})

	b.AddPass("writer", PassHost).WritesBuffer(buf, AccessShaderWrite, StageFragmentShader).
		SetHost(func(rt RuntimeView) error { return nil })
	b.AddPass("readerA", PassHost).ReadsBuffer(buf, AccessShaderRead, StageFragmentShader).
		SetHost(func(rt RuntimeView) error { return nil })
	b.AddPass("readerB", PassHost).ReadsBuffer(buf, AccessShaderRead, StageFragmentShader).
		SetHost(func(rt RuntimeView) error { return nil })

	graph, err := b.Compile()
	require.NoError(t, err)
	require.Equal(t, "writer", graph.Passes[0].Name())
}

func TestSetCallbackPanicsOnKindMismatch(t *testing.T) {
	b := NewBuilder()
	pb := b.AddPass("wrong", PassHost)
	require.Panics(t, func() { pb.SetDevice(func(rt RuntimeView, rec CommandRecorder) error { return nil }) })
}

func TestExecutePropagatesHostCallbackError(t *testing.T) {
	b := NewBuilder()
	b.AddPass("failing", PassHost).SetHost(func(rt RuntimeView) error { return errors.New("boom") })

	graph, err := b.Compile()
	require.NoError(t, err)

	err = graph.Execute(stubRuntime{}, func() CommandRecorder { return nil })
	require.Error(t, err)
}
