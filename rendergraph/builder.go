package rendergraph

import "github.com/oxy-go/ren-core/core/genindex"

// BufferDesc describes a buffer resource a pass can read or write. Size is
// advisory for PassUpdate callbacks that need to resize a buffer ahead of
// the frame; it is not interpreted by Compile.
type BufferDesc struct {
	Name string
	Size uint64
}

// TextureDesc describes a texture resource a pass can read or write.
type TextureDesc struct {
	Name          string
	Width, Height uint32
}

// Builder accumulates resource declarations and passes for one frame's
// render graph. It is not safe for concurrent use; a single goroutine
// builds a graph, calls Compile, and discards the Builder.
type Builder struct {
	buffers    *genindex.Pool
	bufferDesc []BufferDesc

	textures    *genindex.Pool
	textureDesc []TextureDesc

	semaphores *genindex.Pool

	passes []*Pass
}

// NewBuilder returns an empty Builder ready to accumulate resources and
// passes for one graph.
func NewBuilder() *Builder {
	return &Builder{
		buffers:    genindex.NewPool(),
		textures:   genindex.NewPool(),
		semaphores: genindex.NewPool(),
	}
}

// CreateBuffer declares a new buffer resource and returns its ID.
func (b *Builder) CreateBuffer(desc BufferDesc) BufferID {
	idx := b.buffers.Generate()
	if int(idx.Slot) >= len(b.bufferDesc) {
		grown := make([]BufferDesc, idx.Slot+1)
		copy(grown, b.bufferDesc)
		b.bufferDesc = grown
	}
	b.bufferDesc[idx.Slot] = desc
	return genindex.NewHandle[bufferResource](idx)
}

// CreateTexture declares a new texture resource and returns its ID.
func (b *Builder) CreateTexture(desc TextureDesc) TextureID {
	idx := b.textures.Generate()
	if int(idx.Slot) >= len(b.textureDesc) {
		grown := make([]TextureDesc, idx.Slot+1)
		copy(grown, b.textureDesc)
		b.textureDesc = grown
	}
	b.textureDesc[idx.Slot] = desc
	return genindex.NewHandle[textureResource](idx)
}

// CreateSemaphore declares a new semaphore resource and returns its ID.
// Semaphores carry no descriptor; a pass reading or writing one only ever
// cares about ordering, never about contents.
func (b *Builder) CreateSemaphore() SemaphoreID {
	return genindex.NewHandle[semaphoreResource](b.semaphores.Generate())
}

// BufferDesc returns the descriptor a buffer ID was created with.
func (b *Builder) BufferDesc(id BufferID) (BufferDesc, bool) {
	if !b.buffers.Contains(id.GenIndex) {
		return BufferDesc{}, false
	}
	return b.bufferDesc[id.Slot], true
}

// TextureDesc returns the descriptor a texture ID was created with.
func (b *Builder) TextureDesc(id TextureID) (TextureDesc, bool) {
	if !b.textures.Contains(id.GenIndex) {
		return TextureDesc{}, false
	}
	return b.textureDesc[id.Slot], true
}

// AddPass declares a new pass named name of the given kind and returns a
// PassBuilder for recording its resource reads/writes and callback.
func (b *Builder) AddPass(name string, kind PassKind) *PassBuilder {
	p := &Pass{name: name, kind: kind}
	b.passes = append(b.passes, p)
	return &PassBuilder{pass: p}
}
