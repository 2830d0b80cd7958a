package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRunnerRegisterIsIdempotent(t *testing.T) {
	r := NewRunner(func(context.Context, Job) {}, 1, time.Second, zerolog.Nop())
	first := time.Now().Add(time.Hour)

	if !r.Register(Job{RequestID: 1, TargetEmail: "a@example.com"}, first, time.Hour) {
		t.Fatal("first registration rejected")
	}
	if r.Register(Job{RequestID: 1, TargetEmail: "b@example.com"}, first.Add(time.Hour), time.Hour) {
		t.Fatal("duplicate registration accepted")
	}
	if r.Len() != 1 || !r.Has(1) || r.Has(2) {
		t.Fatalf("unexpected registry state: len=%d", r.Len())
	}
	if next, _ := r.NextFire(1); !next.Equal(first) {
		t.Fatalf("duplicate registration changed next fire to %s", next)
	}
}

func TestRunnerDoesNotFireBeforeStart(t *testing.T) {
	var fired atomic.Int32
	r := NewRunner(func(context.Context, Job) { fired.Add(1) }, 1, time.Second, zerolog.Nop())
	r.Register(Job{RequestID: 1}, time.Now(), time.Hour)

	time.Sleep(30 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatal("job fired before Start")
	}

	r.Start(context.Background())
	defer r.Stop()
	waitFor(t, 2*time.Second, func() bool { return fired.Load() == 1 })
}

func TestRunnerKeepsFiringAfterPanic(t *testing.T) {
	var calls atomic.Int32
	r := NewRunner(func(context.Context, Job) {
		if calls.Add(1) == 1 {
			panic("boom")
		}
	}, 1, time.Second, zerolog.Nop())
	r.Start(context.Background())
	defer r.Stop()

	r.Register(Job{RequestID: 5}, time.Now(), 10*time.Millisecond)
	waitFor(t, 2*time.Second, func() bool { return calls.Load() >= 3 })
}

func TestRunnerBoundsConcurrency(t *testing.T) {
	var (
		mu      sync.Mutex
		active  int
		maxSeen int
		total   atomic.Int32
	)
	r := NewRunner(func(context.Context, Job) {
		mu.Lock()
		active++
		if active > maxSeen {
			maxSeen = active
		}
		mu.Unlock()

		time.Sleep(20 * time.Millisecond)

		mu.Lock()
		active--
		mu.Unlock()
		total.Add(1)
	}, 2, time.Second, zerolog.Nop())

	now := time.Now()
	for id := uint(1); id <= 5; id++ {
		r.Register(Job{RequestID: id}, now, time.Hour)
	}
	r.Start(context.Background())
	waitFor(t, 5*time.Second, func() bool { return total.Load() == 5 })
	r.Stop()

	mu.Lock()
	defer mu.Unlock()
	if maxSeen > 2 {
		t.Fatalf("ran %d jobs at once, limit is 2", maxSeen)
	}
}

func TestRunnerDoesNotOverlapItself(t *testing.T) {
	var (
		active  atomic.Int32
		overlap atomic.Bool
		calls   atomic.Int32
	)
	r := NewRunner(func(context.Context, Job) {
		if active.Add(1) > 1 {
			overlap.Store(true)
		}
		time.Sleep(15 * time.Millisecond)
		active.Add(-1)
		calls.Add(1)
	}, 4, time.Second, zerolog.Nop())
	r.Start(context.Background())
	defer r.Stop()

	r.Register(Job{RequestID: 1}, time.Now(), time.Millisecond)
	waitFor(t, 2*time.Second, func() bool { return calls.Load() >= 4 })
	if overlap.Load() {
		t.Fatal("job overlapped itself")
	}
}

func TestRunnerStopCancelsAndWaits(t *testing.T) {
	started := make(chan struct{})
	var finished atomic.Bool
	r := NewRunner(func(ctx context.Context, _ Job) {
		close(started)
		<-ctx.Done()
		finished.Store(true)
	}, 1, time.Minute, zerolog.Nop())
	r.Start(context.Background())
	r.Register(Job{RequestID: 1}, time.Now(), time.Hour)

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("job never started")
	}
	r.Stop()
	if !finished.Load() {
		t.Fatal("Stop returned before the running job finished")
	}
}

func TestRunnerExecutionTimeout(t *testing.T) {
	done := make(chan error, 1)
	r := NewRunner(func(ctx context.Context, _ Job) {
		<-ctx.Done()
		done <- ctx.Err()
	}, 1, 20*time.Millisecond, zerolog.Nop())
	r.Start(context.Background())
	defer r.Stop()
	r.Register(Job{RequestID: 1}, time.Now(), time.Hour)

	select {
	case err := <-done:
		if err != context.DeadlineExceeded {
			t.Fatalf("ctx err = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("execution was not timed out")
	}
}
