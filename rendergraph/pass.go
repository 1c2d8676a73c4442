package rendergraph

// dependency records one resource access a pass declared, used by Compile
// to derive edges between producers and consumers.
type dependency struct {
	kind   resourceKind
	slot   uint32
	access AccessMask
	stage  PipelineStage
	write  bool
}

type resourceKind int

const (
	resourceBuffer resourceKind = iota
	resourceTexture
	resourceSemaphore
)

// Pass is one declared unit of graph work: a name, the kind of callback it
// carries, and its declared resource dependencies. A pass's position in
// Builder.passes is its declaration order, which Compile uses to break
// topological-sort ties deterministically.
type Pass struct {
	name string
	kind PassKind
	deps []dependency

	update UpdateFunc
	host   HostFunc
	device DeviceFunc
}

// Name returns the pass's declared name.
func (p *Pass) Name() string { return p.name }

// Kind returns which callback shape this pass carries.
func (p *Pass) Kind() PassKind { return p.kind }

// PassBuilder records one pass's resource dependencies and callback. It is
// returned by Builder.AddPass and discarded once the pass is fully
// declared; it has no methods of its own beyond the fluent declaration
// calls below.
type PassBuilder struct {
	pass *Pass
}

// ReadsBuffer declares that the pass reads id with the given access and
// pipeline stage. Returns the PassBuilder for chaining.
func (pb *PassBuilder) ReadsBuffer(id BufferID, access AccessMask, stage PipelineStage) *PassBuilder {
	pb.pass.deps = append(pb.pass.deps, dependency{kind: resourceBuffer, slot: id.Slot, access: access, stage: stage})
	return pb
}

// WritesBuffer declares that the pass writes id with the given access and
// pipeline stage. Returns the PassBuilder for chaining.
func (pb *PassBuilder) WritesBuffer(id BufferID, access AccessMask, stage PipelineStage) *PassBuilder {
	pb.pass.deps = append(pb.pass.deps, dependency{kind: resourceBuffer, slot: id.Slot, access: access, stage: stage, write: true})
	return pb
}

// ReadsTexture declares that the pass reads id with the given access and
// pipeline stage. Returns the PassBuilder for chaining.
func (pb *PassBuilder) ReadsTexture(id TextureID, access AccessMask, stage PipelineStage) *PassBuilder {
	pb.pass.deps = append(pb.pass.deps, dependency{kind: resourceTexture, slot: id.Slot, access: access, stage: stage})
	return pb
}

// WritesTexture declares that the pass writes id with the given access and
// pipeline stage. Returns the PassBuilder for chaining.
func (pb *PassBuilder) WritesTexture(id TextureID, access AccessMask, stage PipelineStage) *PassBuilder {
	pb.pass.deps = append(pb.pass.deps, dependency{kind: resourceTexture, slot: id.Slot, access: access, stage: stage, write: true})
	return pb
}

// Signals declares that the pass writes (signals) a semaphore.
func (pb *PassBuilder) Signals(id SemaphoreID, stage PipelineStage) *PassBuilder {
	pb.pass.deps = append(pb.pass.deps, dependency{kind: resourceSemaphore, slot: id.Slot, stage: stage, write: true})
	return pb
}

// Waits declares that the pass reads (waits on) a semaphore.
func (pb *PassBuilder) Waits(id SemaphoreID, stage PipelineStage) *PassBuilder {
	pb.pass.deps = append(pb.pass.deps, dependency{kind: resourceSemaphore, slot: id.Slot, stage: stage})
	return pb
}

// SetUpdate attaches an update callback. The pass must have been declared
// with PassUpdate; SetUpdate panics otherwise, since a pass's kind and its
// callback must always agree.
func (pb *PassBuilder) SetUpdate(fn UpdateFunc) *PassBuilder {
	if pb.pass.kind != PassUpdate {
		panic("rendergraph: SetUpdate on a pass not declared PassUpdate")
	}
	pb.pass.update = fn
	return pb
}

// SetHost attaches a host callback. The pass must have been declared with
// PassHost.
func (pb *PassBuilder) SetHost(fn HostFunc) *PassBuilder {
	if pb.pass.kind != PassHost {
		panic("rendergraph: SetHost on a pass not declared PassHost")
	}
	pb.pass.host = fn
	return pb
}

// SetDevice attaches a device callback. The pass must have been declared
// with PassDevice.
func (pb *PassBuilder) SetDevice(fn DeviceFunc) *PassBuilder {
	if pb.pass.kind != PassDevice {
		panic("rendergraph: SetDevice on a pass not declared PassDevice")
	}
	pb.pass.device = fn
	return pb
}
