package job

import (
	"sync"
	"sync/atomic"
)

// Stats reports point-in-time counters about a running Server, useful for
// editor diagnostics overlays.
type Stats struct {
	Dispatched int64
	Completed  int64
	Workers    int
}

// Server owns the worker pool and priority queues. The zero value is not
// usable; construct with Launch.
type Server struct {
	high    chan *Job
	normal  chan *Job
	mainJob atomic.Pointer[Job] // single-slot main-thread queue

	stopCh chan struct{}
	wg     sync.WaitGroup

	jobPool     atomic.Pointer[Job]
	counterPool atomic.Pointer[Counter]

	dispatched atomic.Int64
	completed  atomic.Int64

	numWorkers int
}

// Launch starts numWorkers worker goroutines and returns a ready Server.
// Jobs dispatched with Desc.Main set only run when RunMainQueue is
// pumped from the thread that owns the main queue (normally the program's
// entry goroutine), mirroring the source's distinction between ordinary
// worker threads and the thread that drives the window/render loop.
func Launch(numWorkers int) *Server {
	if numWorkers < 1 {
		numWorkers = 1
	}
	s := &Server{
		high:       make(chan *Job, 4096),
		normal:     make(chan *Job, 4096),
		stopCh:     make(chan struct{}),
		numWorkers: numWorkers,
	}
	s.wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go s.workerLoop()
	}
	return s
}

// Stop signals every worker to exit once its current job (if any) suspends
// or finishes, and waits for them to drain.
func (s *Server) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// Stats returns a snapshot of scheduling counters.
func (s *Server) Stats() Stats {
	return Stats{
		Dispatched: s.dispatched.Load(),
		Completed:  s.completed.Load(),
		Workers:    s.numWorkers,
	}
}

func (s *Server) getJob() *Job {
	for {
		head := s.jobPool.Load()
		if head == nil {
			return &Job{}
		}
		next := head.next.Load()
		if s.jobPool.CompareAndSwap(head, next) {
			head.next.Store(nil)
			return head
		}
	}
}

func (s *Server) putJob(j *Job) {
	*j = Job{}
	for {
		head := s.jobPool.Load()
		j.next.Store(head)
		if s.jobPool.CompareAndSwap(head, j) {
			return
		}
	}
}

func (s *Server) getCounter() *Counter {
	for {
		head := s.counterPool.Load()
		if head == nil {
			return &Counter{}
		}
		next := head.next.Load()
		if s.counterPool.CompareAndSwap(head, next) {
			head.next.Store(nil)
			return head
		}
	}
}

func (s *Server) putCounter(c *Counter) {
	*c = Counter{}
	for {
		head := s.counterPool.Load()
		c.next.Store(head)
		if s.counterPool.CompareAndSwap(head, c) {
			return
		}
	}
}

func (s *Server) enqueue(j *Job) {
	switch {
	case j.isMain:
		// Main-thread affinity is orthogonal to priority and takes
		// precedence: a High-priority job that must run on the main
		// thread still only ever goes in the single-slot main queue,
		// never onto the worker pool's high channel.
		s.mainJob.Store(j)
	case j.priority == High:
		s.high <- j
	default:
		s.normal <- j
	}
}

// schedule pulls the next job to run, checking High priority first, then
// (for the main thread only) the single-slot main queue, then Normal. It
// returns nil when the server has been stopped and no job is pending.
func (s *Server) schedule(isMainThread bool) *Job {
	for {
		select {
		case j := <-s.high:
			return j
		default:
		}
		if isMainThread {
			if j := s.mainJob.Swap(nil); j != nil {
				return j
			}
		}
		select {
		case j := <-s.high:
			return j
		case j := <-s.normal:
			return j
		case <-s.stopCh:
			return nil
		}
	}
}

func (s *Server) workerLoop() {
	defer s.wg.Done()
	for {
		j := s.schedule(false)
		if j == nil {
			return
		}
		s.runOnce(j)
	}
}

// RunMainQueue drains and runs exactly one pending main-thread job if one
// is queued, returning whether it ran. Callers that own the main thread
// (e.g. the window/render loop) call this once per frame instead of
// competing with the worker pool for the main queue's single slot.
func (s *Server) RunMainQueue() bool {
	j := s.mainJob.Swap(nil)
	if j == nil {
		return false
	}
	s.runOnce(j)
	return true
}

func (s *Server) runOnce(j *Job) {
	finished := j.fiber.Resume()
	if finished {
		s.retire(j)
	}
}

// retire runs when j's fiber has returned for good: by this point
// waitForChildren has already drained every counter j itself dispatched,
// so those counters are safe to recycle now. j's own completion counter
// (shared with its dispatch siblings) is owned by whichever job dispatched
// j, and is only recycled when THAT job retires — not here — so a Token
// stays valid for as long as the job that created it is still running.
func (s *Server) retire(j *Job) {
	s.completed.Add(1)
	counter := j.counter
	children := j.children
	s.putJob(j)
	for _, c := range children {
		s.putCounter(c)
	}
	if counter == nil {
		return
	}
	remaining := counter.value.Add(-1)
	if remaining != 0 {
		return
	}
	parent := counter.parent
	prev := jobState(counter.state.Swap(int32(stateResumed)))
	if prev == stateSuspended {
		s.enqueue(parent)
	}
}
