package job

import (
	"sync/atomic"

	"github.com/oxy-go/ren-core/core/fiber"
)

// StopToken is a cooperative cancellation signal threaded through a
// dispatch tree, checked by long-running job bodies (the asset compile
// sweep in particular) between units of work rather than forcibly killed —
// Go has no safe mechanism to cancel a running goroutine from outside.
type StopToken struct {
	stopped atomic.Bool
}

// NewStopToken returns a fresh, unsignalled stop token.
func NewStopToken() *StopToken { return &StopToken{} }

// Stop signals the token. Safe to call more than once or concurrently.
func (t *StopToken) Stop() { t.stopped.Store(true) }

// Stopped reports whether Stop has been called.
func (t *StopToken) Stopped() bool { return t != nil && t.stopped.Load() }

// Dispatch schedules descs as child jobs of the currently running job and
// returns a Token covering all of them. The Token remains valid for
// Wait/Done calls only until the dispatching job itself finishes, matching
// the lifetime a completion counter has in the underlying scheduler.
func (c *Context) Dispatch(descs ...Desc) *Token {
	if len(descs) == 0 {
		return &Token{}
	}

	counter := c.server.getCounter()
	counter.value.Store(int32(len(descs)))
	counter.parent = c.job
	counter.state.Store(int32(stateRunning))
	c.job.children = append(c.job.children, counter)

	parentPriority := c.job.priority
	for _, desc := range descs {
		prio := desc.Priority
		if parentPriority == High {
			prio = High
		}
		child := c.server.getJob()
		child.priority = prio
		child.isMain = desc.Main
		child.parent = c.job
		child.counter = counter
		child.server = c.server

		fn := desc.Fn
		stop := c.stop
		child.fiber = fiber.Go("job", func(self *fiber.Fiber) {
			childCtx := &Context{job: child, server: c.server, stop: stop}
			fn(childCtx)
			childCtx.waitForChildren()
		})

		c.server.dispatched.Add(1)
		c.server.enqueue(child)
	}
	return &Token{counter: counter}
}

// Wait blocks the running job (suspending its fiber, not its worker) until
// every job behind tok has finished.
func (c *Context) Wait(tok *Token) {
	if tok == nil || tok.counter == nil {
		return
	}
	c.waitForCounter(tok.counter)
}

// waitForChildren drains every counter this job itself dispatched, in
// dispatch order, matching job_wait_for_children.
func (c *Context) waitForChildren() {
	for _, counter := range c.job.children {
		c.waitForCounter(counter)
	}
}

func (c *Context) waitForCounter(counter *Counter) {
	if counter.value.Load() == 0 {
		return
	}
	if counter.state.CompareAndSwap(int32(stateRunning), int32(stateSuspended)) {
		c.job.fiber.Suspend()
		return
	}
	// CAS failed only because the counter already finished and flipped the
	// state to Resumed concurrently; nothing to wait for.
}

// Run dispatches a single root job (with no parent) and blocks the calling
// goroutine until it and its entire dispatch tree complete. It is meant
// for driving a self-contained batch of work (the editor's asset compile
// sweep, a CLI subcommand) to completion outside of any other job's
// Context.
func (s *Server) Run(prio Priority, fn Func, stop *StopToken) {
	done := make(chan struct{})
	root := s.getJob()
	root.priority = prio
	root.server = s
	root.fiber = fiber.Go("job-root", func(self *fiber.Fiber) {
		ctx := &Context{job: root, server: s, stop: stop}
		fn(ctx)
		ctx.waitForChildren()
		close(done)
	})
	s.dispatched.Add(1)
	s.enqueue(root)
	<-done
}
