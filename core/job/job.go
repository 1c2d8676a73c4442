// Package job implements the fiber-based job scheduler: a fixed pool of
// worker goroutines pulling from priority queues, dispatching child jobs
// and waiting on them via atomic counters, with jobs modeled as
// core/fiber.Fiber so a job that waits on its children suspends instead of
// blocking its worker.
package job

import (
	"sync/atomic"

	"github.com/oxy-go/ren-core/core/fiber"
)

// Priority selects which queue a job is dispatched through. High-priority
// jobs always run before Normal ones; a High-priority parent propagates its
// priority to every child it dispatches, matching the source's
// "job->priority == High ? High : job_desc.priority" rule.
type Priority int

const (
	Normal Priority = iota
	High
)

func (p Priority) String() string {
	if p == High {
		return "High"
	}
	return "Normal"
}

type jobState int32

const (
	stateRunning jobState = iota
	stateSuspended
	stateResumed
)

// Counter tracks how many of a dispatch's child jobs remain outstanding. A
// Job waiting on a Counter suspends its fiber and is re-enqueued by the
// last child to finish.
type Counter struct {
	value  atomic.Int32
	parent *Job
	state  atomic.Int32 // jobState

	next atomic.Pointer[Counter] // free-list link; valid only off-pool
}

// Func is the body a dispatched job runs. ctx exposes this job's identity
// to Dispatch/Wait calls made from inside the job.
type Func func(ctx *Context)

// Job is one scheduled unit of work. Jobs are never touched directly by
// caller code outside this package; callers interact through Context and
// Token.
type Job struct {
	fiber    *fiber.Fiber
	priority Priority
	isMain   bool
	parent   *Job
	counter  *Counter // decremented in our own server's retire step when we finish
	children []*Counter

	server *Server

	next atomic.Pointer[Job] // free-list link; valid only off-pool
}

// Token is a handle on a dispatch's completion counter, returned by
// Context.Dispatch.
type Token struct {
	counter *Counter
}

// Done reports whether every job behind this token has finished.
func (t *Token) Done() bool {
	if t == nil || t.counter == nil {
		return true
	}
	return t.counter.value.Load() == 0
}

// Desc describes one job to dispatch. Main routes the job to the
// single-slot main-thread queue, drained only by Server.RunMainQueue,
// regardless of Priority.
type Desc struct {
	Priority Priority
	Main     bool
	Fn       Func
}

// Context is threaded through a running job's Func, the Go analogue of the
// source's thread-local "currently running job" lookup — passed explicitly
// instead of stored in TLS, since each worker goroutine already only ever
// runs one job fiber at a time.
type Context struct {
	job    *Job
	server *Server
	stop   *StopToken
}

// Stop returns the cooperative stop token this job's dispatch tree was
// launched with, or nil if none was supplied.
func (c *Context) Stop() *StopToken { return c.stop }

// Cancelled reports whether this job's stop token (if any) has been
// signalled.
func (c *Context) Cancelled() bool { return c.stop != nil && c.stop.Stopped() }
