// Package arena implements the bump-pointer memory-arena family: a
// dedicated arena backed by a single virtual-memory reservation, and
// scratch leases (thread-scoped and job-scoped) that rewind an arena's bump
// offset when a lexical scope exits.
package arena

import (
	"fmt"
	"sync"

	"github.com/oxy-go/ren-core/core/vm"
)

// Tag identifies why an arena exists, matching spec.md's ArenaType.
type Tag int

const (
	// Dedicated arenas are created explicitly by a caller and live until
	// Destroy is called on them.
	Dedicated Tag = iota
	// ThreadScratch arenas are the implicit per-thread scratch pool.
	ThreadScratch
	// JobScratch arenas are the implicit per-job scratch pool.
	JobScratch
)

func (t Tag) String() string {
	switch t {
	case Dedicated:
		return "Dedicated"
	case ThreadScratch:
		return "ThreadScratch"
	case JobScratch:
		return "JobScratch"
	default:
		return "Unknown"
	}
}

// MaxDedicatedSize is the default reservation ceiling for a dedicated
// arena, matching the original's 4 GiB default (halved on reservation
// failure, see vm.Reserve).
const MaxDedicatedSize = 4 << 30

// commitChunk is the granularity pages are committed in, a power-of-two
// multiple of the OS page size so the watermark never needs sub-page
// bookkeeping.
const commitChunk = 2 << 20 // 2 MiB, matches THREAD_ALLOCATOR_BLOCK_SIZE in the source this was distilled from.

// Arena is a reserved virtual-address range with a bump pointer and a
// commit watermark. The zero value is not usable; construct with New or
// NewDedicated.
//
// Invariant: offset <= committed <= region.Size. Pages are committed lazily
// in commitChunk-sized pieces as offset crosses committed. Allocations are
// aligned to the caller's requested alignment and are never reused until
// Clear or Destroy.
type Arena struct {
	mu        sync.Mutex
	region    vm.Region
	committed uintptr
	offset    uintptr
	tag       Tag

	// lastAlloc/lastAllocSize track the most recent allocation so Expand can
	// grow it in place without copying.
	lastAlloc     uintptr
	lastAllocSize uintptr
}

// NewDedicated reserves up to maxSize bytes (halving on failure, per
// vm.Reserve) and returns a ready-to-use dedicated arena.
func NewDedicated(maxSize uintptr) (*Arena, error) {
	if maxSize == 0 {
		maxSize = MaxDedicatedSize
	}
	region, err := vm.Reserve(maxSize)
	if err != nil {
		return nil, fmt.Errorf("arena: new dedicated: %w", err)
	}
	return &Arena{region: region, tag: Dedicated}, nil
}

// newScratchBacking is used internally by InitThread and the job-scratch pool to build
// the implicit backing arenas; it is not part of the public API because
// scratch arenas must always be leased through a scope object.
func newScratchBacking(tag Tag) *Arena {
	a, err := NewDedicated(MaxDedicatedSize)
	if err != nil {
		// Scratch arenas back ordinary per-frame/per-job allocation; failing
		// to reserve address space for one is unrecoverable.
		panic(fmt.Sprintf("arena: failed to create %s backing: %v", tag, err))
	}
	a.tag = tag
	return a
}

// Tag reports why this arena was created.
func (a *Arena) Tag() Tag { return a.tag }

// Offset returns the current bump offset, useful for tests asserting the
// scratch LIFO invariant.
func (a *Arena) Offset() uintptr {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.offset
}

// Allocate bumps the arena by size bytes aligned to alignment (must be a
// power of two) and returns the backing slice. Out-of-reservation is fatal,
// matching spec.md §4.1's failure semantics — callers that want a
// recoverable allocator should size their arena generously up front.
func (a *Arena) Allocate(size, alignment uintptr) []byte {
	if alignment == 0 {
		alignment = 1
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	alignedOffset := vm.AlignUp(a.offset, alignment)
	newOffset := alignedOffset + size
	if newOffset > a.region.Size {
		panic(fmt.Sprintf("arena: out of reservation: need %d bytes at offset %d, reservation is %d bytes", size, alignedOffset, a.region.Size))
	}
	if newOffset > a.committed {
		a.growCommitLocked(newOffset)
	}

	a.offset = newOffset
	a.lastAlloc = alignedOffset
	a.lastAllocSize = size
	return a.region.Ptr[alignedOffset:newOffset:newOffset]
}

func (a *Arena) growCommitLocked(need uintptr) {
	newCommitted := vm.AlignUp(need, commitChunk)
	if newCommitted > a.region.Size {
		newCommitted = a.region.Size
	}
	if err := a.region.Commit(newCommitted); err != nil {
		panic(fmt.Sprintf("arena: commit failed: %v", err))
	}
	a.committed = newCommitted
}

// Expand grows the most recent allocation in place from oldSize to newSize
// bytes, returning the new slice and true if the growth happened without
// copying. It returns false when ptr was not the arena's most recent
// allocation or the arena has no room; in that case the caller must
// allocate fresh and copy (the old allocation is leaked within the arena
// until the next Clear, documented in spec.md §8 as "arena expand... old
// memory is leaked within the arena").
func (a *Arena) Expand(ptr []byte, oldSize, newSize uintptr) ([]byte, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(ptr) != int(oldSize) {
		return nil, false
	}
	// Identify "most recent allocation" by offset match, not by pointer
	// identity, since slices are value types.
	base := a.lastAlloc
	if a.lastAllocSize != oldSize || base+oldSize != a.offset {
		return nil, false
	}

	newOffset := base + newSize
	if newOffset > a.region.Size {
		return nil, false
	}
	if newOffset > a.committed {
		a.growCommitLocked(newOffset)
	}
	a.offset = newOffset
	a.lastAllocSize = newSize
	return a.region.Ptr[base:newOffset:newOffset], true
}

// Clear resets the bump offset to zero. Already-committed pages stay
// committed so repeated per-frame use does not re-pay the commit cost.
func (a *Arena) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.offset = 0
	a.lastAlloc = 0
	a.lastAllocSize = 0
}

// Destroy releases the underlying reservation. The arena must not be used
// afterwards.
func (a *Arena) Destroy() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.region.Ptr == nil {
		return nil
	}
	err := a.region.Free()
	a.region = vm.Region{}
	a.committed = 0
	a.offset = 0
	return err
}
