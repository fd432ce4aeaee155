package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newNop() *zap.Logger { l, _ := zap.NewDevelopment(); return l }

// add returns a task that adds d to n.
func add(n *int32, d int32) TaskFn {
	return func(context.Context) error {
		atomic.AddInt32(n, d)
		return nil
	}
}

func noop(context.Context) error { return nil }

func TestAddTicker_Fires(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	var count int32
	s.AddTicker("tick", 20*time.Millisecond, add(&count, 1))

	time.Sleep(120 * time.Millisecond)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&count), int32(3))
}

func TestAddTicker_Replaces(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	var count1, count2 int32
	s.AddTicker("task", 20*time.Millisecond, add(&count1, 1))
	time.Sleep(30 * time.Millisecond)
	s.AddTicker("task", 20*time.Millisecond, add(&count2, 1))
	time.Sleep(80 * time.Millisecond)

	snap1 := atomic.LoadInt32(&count1)
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, snap1, atomic.LoadInt32(&count1), "old ticker must stop after replacement")
	assert.Positive(t, atomic.LoadInt32(&count2))
}

func TestAddDelay_FiresOnce(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	var count int32
	s.AddDelay("once", 30*time.Millisecond, add(&count, 1))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&count))
}

func TestAddDelay_ReplacesCancelsOld(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	var count int32
	s.AddDelay("d", 500*time.Millisecond, add(&count, 1))
	s.AddDelay("d", 30*time.Millisecond, add(&count, 10))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(10), atomic.LoadInt32(&count))
}

func TestRemove(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	var ticks, delayed int32
	s.AddTicker("task", 20*time.Millisecond, add(&ticks, 1))
	s.AddDelay("d", 100*time.Millisecond, add(&delayed, 1))
	time.Sleep(50 * time.Millisecond)
	s.Remove("task")
	s.Remove("d")
	s.Remove("nope")
	snap := atomic.LoadInt32(&ticks)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, snap, atomic.LoadInt32(&ticks), "ticker must stop after Remove")
	assert.Zero(t, atomic.LoadInt32(&delayed))
}

func TestStop_StopsEverything(t *testing.T) {
	s := New(newNop())

	var c1, c2, d int32
	s.AddTicker("a", 20*time.Millisecond, add(&c1, 1))
	s.AddTicker("b", 20*time.Millisecond, add(&c2, 1))
	s.AddDelay("late", 80*time.Millisecond, add(&d, 1))
	time.Sleep(50 * time.Millisecond)
	s.Stop()
	s.Stop()
	time.Sleep(30 * time.Millisecond)
	snap1, snap2 := atomic.LoadInt32(&c1), atomic.LoadInt32(&c2)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, snap1, atomic.LoadInt32(&c1))
	assert.Equal(t, snap2, atomic.LoadInt32(&c2))
	assert.Zero(t, atomic.LoadInt32(&d))
}

func TestStop_CancelsTaskContext(t *testing.T) {
	s := New(newNop())
	started := make(chan struct{})
	done := make(chan error, 1)
	s.AddDelay("wait", time.Millisecond, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		done <- ctx.Err()
		return nil
	})
	<-started
	s.Stop()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("task context not cancelled")
	}
}

func TestListTickers(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	require.Empty(t, s.ListTickers())
	s.AddTicker("beta", time.Hour, noop)
	s.AddTicker("alpha", time.Hour, noop)
	assert.Equal(t, []string{"alpha", "beta"}, s.ListTickers())

	s.Remove("alpha")
	assert.Equal(t, []string{"beta"}, s.ListTickers())
}

func TestTicker_SurvivesPanicAndError(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	var calls int32
	s.AddTicker("flaky", 15*time.Millisecond, func(context.Context) error {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			panic("oops")
		}
		return errors.New("still failing")
	})
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 3 },
		time.Second, 10*time.Millisecond)
}

type trimmer struct{ calls int32 }

func (tr *trimmer) TrimRecent(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("missing deadline")
	}
	atomic.AddInt32(&tr.calls, 1)
	return nil
}

func TestAddRecentTrim(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	tr := &trimmer{}
	s.AddRecentTrim(tr, 15*time.Millisecond)
	assert.Equal(t, []string{RecentTrimTask}, s.ListTickers())
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&tr.calls) >= 2 },
		time.Second, 10*time.Millisecond)
}
