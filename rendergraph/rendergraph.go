// Package rendergraph lets renderer code declare passes and the resources
// they read and write without committing to an execution order up front.
// A Builder collects resource declarations and passes; Compile topologically
// schedules the passes from their declared dependencies and synthesizes the
// barriers needed between a producer and the next consumer of a resource.
//
// The package is renderer-agnostic: resource IDs are opaque handles and a
// pass's device callback receives a CommandRecorder interface rather than a
// concrete GPU type, so a caller (typically engine/renderer) supplies the
// concrete resource and command-recording types via RuntimeView.
package rendergraph

import "github.com/oxy-go/ren-core/core/genindex"

// bufferResource, textureResource and semaphoreResource exist only to give
// genindex.Handle distinct type parameters per resource kind, so a BufferID
// can never be passed where a TextureID is expected.
type bufferResource struct{}
type textureResource struct{}
type semaphoreResource struct{}

// BufferID identifies a buffer resource declared on a Builder.
type BufferID = genindex.Handle[bufferResource]

// TextureID identifies a texture resource declared on a Builder.
type TextureID = genindex.Handle[textureResource]

// SemaphoreID identifies a semaphore resource declared on a Builder.
type SemaphoreID = genindex.Handle[semaphoreResource]

// AccessMask describes how a pass touches a resource it reads or writes.
// Values may be OR'd together (e.g. a blit target is both TransferWrite and
// ColorAttachmentWrite across two passes).
type AccessMask uint32

const (
	AccessIndirectRead          AccessMask = 1 << iota // read as an indirect draw/dispatch argument buffer
	AccessVertexRead                                   // read as vertex buffer input
	AccessIndexRead                                    // read as index buffer input
	AccessUniformRead                                  // read through a uniform/constant binding
	AccessShaderRead                                   // read through a storage/sampled binding
	AccessShaderWrite                                  // written through a storage binding
	AccessColorAttachmentRead                          // read as an existing color attachment (blending)
	AccessColorAttachmentWrite                         // written as a color attachment
	AccessDepthStencilRead                             // read as a depth/stencil attachment
	AccessDepthStencilWrite                            // written as a depth/stencil attachment
	AccessTransferRead                                 // read as a copy source
	AccessTransferWrite                                // written as a copy destination
	AccessHostRead                                     // read back to host memory
	AccessHostWrite                                    // written from host memory (upload)
)

// PipelineStage identifies where in the GPU pipeline an access happens,
// used to size the synthesized barrier as tightly as the declared accesses
// allow.
type PipelineStage uint32

const (
	StageTopOfPipe PipelineStage = 1 << iota
	StageDrawIndirect
	StageVertexInput
	StageVertexShader
	StageFragmentShader
	StageColorAttachmentOutput
	StageEarlyFragmentTests
	StageLateFragmentTests
	StageComputeShader
	StageTransfer
	StageHost
	StageBottomOfPipe
)

// PassKind distinguishes the three shapes a pass's callback can take. A
// pass is exactly one kind; Builder.AddPass commits to it via its kind
// argument.
type PassKind int

const (
	// PassUpdate runs before the frame's resource sizes are finalized
	// (e.g. resizing an output buffer to match a new swapchain extent).
	PassUpdate PassKind = iota
	// PassHost runs host-side work with no command recording (e.g.
	// staging buffer uploads).
	PassHost
	// PassDevice records GPU commands against a CommandRecorder.
	PassDevice
)

func (k PassKind) String() string {
	switch k {
	case PassUpdate:
		return "Update"
	case PassHost:
		return "Host"
	case PassDevice:
		return "Device"
	default:
		return "Unknown"
	}
}

// RuntimeView resolves a graph's opaque resource IDs to the concrete
// objects a pass callback needs, and is supplied by whatever owns the
// actual GPU resources (normally an engine/renderer adapter). Pass
// callbacks never see a resource ID's backing descriptor directly.
type RuntimeView interface {
	Buffer(id BufferID) (any, bool)
	Texture(id TextureID) (any, bool)
	Semaphore(id SemaphoreID) (any, bool)
}

// CommandRecorder is the opaque handle a PassDevice callback issues GPU
// commands against; its concrete type is whatever the RuntimeView's owner
// uses (an engine/renderer wrapper around a wgpu.CommandEncoder in
// practice).
type CommandRecorder interface{}

// UpdateFunc is a PassUpdate pass's callback.
type UpdateFunc func(rt RuntimeView)

// HostFunc is a PassHost pass's callback.
type HostFunc func(rt RuntimeView) error

// DeviceFunc is a PassDevice pass's callback.
type DeviceFunc func(rt RuntimeView, rec CommandRecorder) error
