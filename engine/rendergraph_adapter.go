package engine

import (
	"fmt"

	"github.com/oxy-go/ren-core/rendergraph"
	"github.com/cogentcore/webgpu/wgpu"
)

// GraphResources binds a render graph's abstract buffer/texture/semaphore
// IDs to concrete wgpu objects, giving rendergraph.Graph.Execute a
// RuntimeView it can run against without rendergraph itself importing wgpu.
type GraphResources struct {
	buffers    map[rendergraph.BufferID]*wgpu.Buffer
	textures   map[rendergraph.TextureID]*wgpu.TextureView
	semaphores map[rendergraph.SemaphoreID]any
}

// NewGraphResources returns an empty binding table.
func NewGraphResources() *GraphResources {
	return &GraphResources{
		buffers:    make(map[rendergraph.BufferID]*wgpu.Buffer),
		textures:   make(map[rendergraph.TextureID]*wgpu.TextureView),
		semaphores: make(map[rendergraph.SemaphoreID]any),
	}
}

// BindBuffer associates id with an already-created wgpu buffer.
func (g *GraphResources) BindBuffer(id rendergraph.BufferID, buf *wgpu.Buffer) {
	g.buffers[id] = buf
}

// BindTexture associates id with an already-created wgpu texture view.
func (g *GraphResources) BindTexture(id rendergraph.TextureID, view *wgpu.TextureView) {
	g.textures[id] = view
}

// Buffer implements rendergraph.RuntimeView.
func (g *GraphResources) Buffer(id rendergraph.BufferID) (any, bool) {
	b, ok := g.buffers[id]
	return b, ok
}

// Texture implements rendergraph.RuntimeView.
func (g *GraphResources) Texture(id rendergraph.TextureID) (any, bool) {
	t, ok := g.textures[id]
	return t, ok
}

// Semaphore implements rendergraph.RuntimeView.
func (g *GraphResources) Semaphore(id rendergraph.SemaphoreID) (any, bool) {
	s, ok := g.semaphores[id]
	return s, ok
}

// CommandRecorder wraps a *wgpu.CommandEncoder as a rendergraph.CommandRecorder,
// the concrete type a PassDevice callback receives when a Graph executes
// against this package's renderer backend.
type CommandRecorder struct {
	Encoder *wgpu.CommandEncoder
}

// NewCommandRecorderFunc returns the factory rendergraph.Graph.Execute calls
// once per frame to obtain a fresh recorder wrapping encoder.
func NewCommandRecorderFunc(encoder *wgpu.CommandEncoder) func() rendergraph.CommandRecorder {
	return func() rendergraph.CommandRecorder {
		return CommandRecorder{Encoder: encoder}
	}
}

// RecorderFrom asserts rec back to this package's concrete CommandRecorder,
// the way a PassDevice callback recovers the real wgpu encoder from the
// opaque value rendergraph hands it.
func RecorderFrom(rec rendergraph.CommandRecorder) (CommandRecorder, error) {
	cr, ok := rec.(CommandRecorder)
	if !ok {
		return CommandRecorder{}, fmt.Errorf("engine: command recorder is %T, not engine.CommandRecorder", rec)
	}
	return cr, nil
}
