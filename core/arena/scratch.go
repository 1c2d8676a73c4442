package arena

import "sync"

// RestoreTo rewinds the bump offset to a previously observed value. It is
// the primitive Scratch uses to implement its LIFO rewind-on-exit contract;
// callers outside this package should use Scratch instead of calling this
// directly.
func (a *Arena) RestoreTo(offset uintptr) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if offset > a.offset {
		panic("arena: RestoreTo cannot move the bump offset forward")
	}
	a.offset = offset
	a.lastAlloc = 0
	a.lastAllocSize = 0
}

// ThreadHandle is the explicit, caller-owned stand-in for the source's
// thread-local scratch arena. Per the design notes ("wrap the job server,
// scratch-arena thread-local... in an explicit init/shutdown pair and a
// handle threaded through function calls"), a worker goroutine calls
// InitThread once, threads the returned handle through everything it does,
// and calls DestroyThread before exiting.
type ThreadHandle struct {
	primary   *Arena
	secondary *Arena
}

// InitThread creates the primary and secondary scratch arenas for one
// logical worker thread. The secondary arena exists solely so that two
// concurrently live Scratch leases on the same ThreadHandle don't clobber
// each other's bump offset (see Open's conflict-set rule).
func InitThread() *ThreadHandle {
	return &ThreadHandle{
		primary:   newScratchBacking(ThreadScratch),
		secondary: newScratchBacking(ThreadScratch),
	}
}

// DestroyThread releases both backing arenas. The handle must not be used
// afterwards.
func (h *ThreadHandle) DestroyThread() {
	_ = h.primary.Destroy()
	_ = h.secondary.Destroy()
}

// Scratch is a lease on a thread- or job-local arena that restores the
// arena's bump offset when Close is called. Nesting must be LIFO: a
// Scratch must be Closed before any Scratch opened earlier on the same
// backing arena.
type Scratch struct {
	arena       *Arena
	savedOffset uintptr
	closed      bool
}

// Arena returns the arena this scratch lease allocates from.
func (s *Scratch) Arena() *Arena { return s.arena }

// Close restores the bump offset saved when the scratch was opened. Closing
// an already-closed Scratch is a no-op.
func (s *Scratch) Close() {
	if s.closed {
		return
	}
	s.arena.RestoreTo(s.savedOffset)
	s.closed = true
}

// Open leases a scratch arena from h. If any arena in conflicts is h's
// primary arena, the lease falls back to the secondary arena so that two
// concurrently live scratches on one thread never share a bump pointer.
func (h *ThreadHandle) Open(conflicts ...*Arena) *Scratch {
	target := h.primary
	for _, c := range conflicts {
		if c == h.primary {
			target = h.secondary
			break
		}
	}
	return &Scratch{arena: target, savedOffset: target.Offset()}
}

// jobScratchPool recycles the dedicated arenas backing per-job scratch so
// that repeatedly dispatching short jobs does not repeatedly reserve and
// free address space.
var jobScratchPool = sync.Pool{
	New: func() any { return newScratchBacking(JobScratch) },
}

// AcquireJobScratch draws a job-local arena from the free list (or creates
// one), for the lifetime of exactly one running job. The job body opens a
// Scratch on it the same way it would on a ThreadHandle; unlike thread
// scratch, a job scratch arena survives a fiber suspension since it is
// addressed by the job, not by the worker thread that happens to be
// running it at a given moment.
func AcquireJobScratch() *Arena {
	a := jobScratchPool.Get().(*Arena)
	a.Clear()
	return a
}

// ReleaseJobScratch returns a job-local arena to the free list once its
// owning job has completed.
func ReleaseJobScratch(a *Arena) {
	jobScratchPool.Put(a)
}
