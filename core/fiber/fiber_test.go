package fiber

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResumeRunsUntilSuspend(t *testing.T) {
	var reachedA, reachedB bool
	f := Go("test", func(self *Fiber) {
		reachedA = true
		self.Suspend()
		reachedB = true
	})

	finished := f.Resume()
	require.False(t, finished)
	require.True(t, reachedA)
	require.False(t, reachedB)

	finished = f.Resume()
	require.True(t, finished)
	require.True(t, reachedB)
}

func TestResumeAfterFinishPanics(t *testing.T) {
	f := Go("test", func(self *Fiber) {})
	require.True(t, f.Resume())
	require.Panics(t, func() { f.Resume() })
}

func TestMultipleSuspendResumeCycles(t *testing.T) {
	count := 0
	f := Go("counter", func(self *Fiber) {
		for i := 0; i < 5; i++ {
			count++
			self.Suspend()
		}
	})

	for i := 0; i < 5; i++ {
		f.Resume()
	}
	require.Equal(t, 5, count)
	// The fifth resume leaves the fiber parked at its last Suspend; one more
	// resume lets the loop end and fn return.
	require.True(t, f.Resume())
	require.True(t, f.Finished())
}

func TestResumeBlocksUntilSuspendIsCalled(t *testing.T) {
	unblocked := make(chan struct{})
	f := Go("slow", func(self *Fiber) {
		time.Sleep(20 * time.Millisecond)
		close(unblocked)
		self.Suspend()
	})

	f.Resume()
	select {
	case <-unblocked:
	default:
		t.Fatal("Resume returned before the fiber reached Suspend")
	}
}

func TestStartedReflectsFirstResume(t *testing.T) {
	f := Go("lazy", func(self *Fiber) {})
	require.False(t, f.Started())
	f.Resume()
	require.True(t, f.Started())
}
