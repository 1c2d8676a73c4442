package job

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunExecutesJobBody(t *testing.T) {
	s := Launch(2)
	defer s.Stop()

	var ran atomic.Bool
	s.Run(Normal, func(ctx *Context) { ran.Store(true) }, nil)
	require.True(t, ran.Load())
}

func TestDispatchRunsAllChildrenAndWaits(t *testing.T) {
	s := Launch(4)
	defer s.Stop()

	var count atomic.Int32
	s.Run(Normal, func(ctx *Context) {
		descs := make([]Desc, 8)
		for i := range descs {
			descs[i] = Desc{Fn: func(ctx *Context) { count.Add(1) }}
		}
		tok := ctx.Dispatch(descs...)
		ctx.Wait(tok)
		require.True(t, tok.Done())
	}, nil)

	require.EqualValues(t, 8, count.Load())
}

func TestDispatchParentSuspendsUntilChildrenFinish(t *testing.T) {
	s := Launch(4)
	defer s.Stop()

	var order []int
	var mu sync.Mutex
	record := func(v int) {
		mu.Lock()
		order = append(order, v)
		mu.Unlock()
	}

	s.Run(Normal, func(ctx *Context) {
		tok := ctx.Dispatch(
			Desc{Fn: func(ctx *Context) {
				time.Sleep(20 * time.Millisecond)
				record(1)
			}},
			Desc{Fn: func(ctx *Context) {
				record(2)
			}},
		)
		ctx.Wait(tok)
		record(3)
	}, nil)

	require.Equal(t, []int{2, 1, 3}, order)
}

func TestNestedDispatch(t *testing.T) {
	s := Launch(4)
	defer s.Stop()

	var leafCount atomic.Int32
	s.Run(Normal, func(ctx *Context) {
		tok := ctx.Dispatch(Desc{Fn: func(ctx *Context) {
			inner := ctx.Dispatch(
				Desc{Fn: func(ctx *Context) { leafCount.Add(1) }},
				Desc{Fn: func(ctx *Context) { leafCount.Add(1) }},
			)
			ctx.Wait(inner)
		}})
		ctx.Wait(tok)
	}, nil)

	require.EqualValues(t, 2, leafCount.Load())
}

func TestHighPriorityChildPropagatesFromHighPriorityParent(t *testing.T) {
	s := Launch(2)
	defer s.Stop()

	var sawHigh atomic.Bool
	s.Run(High, func(ctx *Context) {
		tok := ctx.Dispatch(Desc{Priority: Normal, Fn: func(ctx *Context) {
			sawHigh.Store(ctx.job.priority == High)
		}})
		ctx.Wait(tok)
	}, nil)
	require.True(t, sawHigh.Load())
}

func TestStopTokenCancellationIsCooperative(t *testing.T) {
	s := Launch(2)
	defer s.Stop()

	stop := NewStopToken()
	var iterations int
	s.Run(Normal, func(ctx *Context) {
		for i := 0; i < 1000; i++ {
			if ctx.Cancelled() {
				break
			}
			iterations++
			if i == 3 {
				stop.Stop()
			}
		}
	}, stop)

	require.Less(t, iterations, 1000)
	require.True(t, stop.Stopped())
}

func TestMainQueueOnlyRunsViaRunMainQueue(t *testing.T) {
	s := Launch(2)
	defer s.Stop()

	var ran atomic.Bool
	done := make(chan struct{})
	go func() {
		s.Run(Normal, func(ctx *Context) {
			tok := ctx.Dispatch(Desc{Main: true, Fn: func(ctx *Context) { ran.Store(true) }})
			ctx.Wait(tok)
		}, nil)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	require.False(t, ran.Load(), "main-priority job must not run until RunMainQueue is pumped")

	require.Eventually(t, func() bool { return s.RunMainQueue() }, time.Second, time.Millisecond)
	require.True(t, ran.Load())
	<-done
}

func TestStatsReportDispatchedAndCompleted(t *testing.T) {
	s := Launch(2)
	defer s.Stop()

	s.Run(Normal, func(ctx *Context) {
		tok := ctx.Dispatch(Desc{Fn: func(ctx *Context) {}}, Desc{Fn: func(ctx *Context) {}})
		ctx.Wait(tok)
	}, nil)

	require.Eventually(t, func() bool {
		stats := s.Stats()
		return stats.Dispatched >= 3 && stats.Completed >= 3
	}, time.Second, time.Millisecond)
	require.Equal(t, 2, s.Stats().Workers)
}
