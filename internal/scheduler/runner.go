package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

const (
	defaultMaxConcurrent    = 4
	defaultExecutionTimeout = 5 * time.Minute
)

// Job is the runtime registration of one scheduled report request.
type Job struct {
	RequestID   uint
	TargetEmail string
	Region      string
	Product     string
	StartDate   *time.Time
	EndDate     *time.Time
}

type ExecuteFunc func(ctx context.Context, job Job)

type entry struct {
	job      Job
	interval time.Duration
	next     time.Time
	timer    *time.Timer
}

// Runner fires registered jobs on their own timers. Executions run on a bounded
// pool; a job is re-armed only after its previous execution returns.
type Runner struct {
	execute ExecuteFunc
	sem     *semaphore.Weighted
	timeout time.Duration
	logger  zerolog.Logger
	now     func() time.Time

	mutex   sync.Mutex
	entries map[uint]*entry
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	stopped bool
	running sync.WaitGroup
}

func NewRunner(execute ExecuteFunc, maxConcurrent int, timeout time.Duration, logger zerolog.Logger) *Runner {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	if timeout <= 0 {
		timeout = defaultExecutionTimeout
	}
	return &Runner{
		execute: execute,
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
		entries: make(map[uint]*entry),
	}
}

// Register adds job with the given first fire time. It returns false, and changes
// nothing, when a job with the same request id is already registered.
func (r *Runner) Register(job Job, firstFire time.Time, interval time.Duration) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.entries[job.RequestID]; ok {
		return false
	}
	e := &entry{job: job, interval: interval, next: firstFire}
	r.entries[job.RequestID] = e
	if r.started && !r.stopped {
		r.arm(e)
	}
	return true
}

func (r *Runner) Has(requestID uint) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	_, ok := r.entries[requestID]
	return ok
}

func (r *Runner) Len() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.entries)
}

// NextFire returns when the job is due next.
func (r *Runner) NextFire(requestID uint) (time.Time, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	e, ok := r.entries[requestID]
	if !ok {
		return time.Time{}, false
	}
	return e.next, true
}

// Start arms every registered job. Jobs registered afterwards are armed immediately.
func (r *Runner) Start(ctx context.Context) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.started || r.stopped {
		return
	}
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.started = true
	for _, e := range r.entries {
		r.arm(e)
	}
}

// Stop disarms all timers, cancels running executions and waits for them.
func (r *Runner) Stop() {
	r.mutex.Lock()
	if r.stopped {
		r.mutex.Unlock()
		return
	}
	r.stopped = true
	for _, e := range r.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	if r.cancel != nil {
		r.cancel()
	}
	r.mutex.Unlock()

	r.running.Wait()
}

// arm must be called with the mutex held.
func (r *Runner) arm(e *entry) {
	delay := e.next.Sub(r.now())
	if delay < 0 {
		delay = 0
	}
	e.timer = time.AfterFunc(delay, func() { r.fire(e) })
}

func (r *Runner) fire(e *entry) {
	r.mutex.Lock()
	if r.stopped {
		r.mutex.Unlock()
		return
	}
	r.running.Add(1)
	scheduled := e.next
	ctx := r.ctx
	r.mutex.Unlock()
	defer r.running.Done()

	if err := r.sem.Acquire(ctx, 1); err != nil {
		return
	}
	r.run(ctx, e.job)
	r.sem.Release(1)

	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.stopped {
		return
	}
	next := scheduled.Add(e.interval)
	if now := r.now(); next.Before(now) {
		next = now
	}
	e.next = next
	r.arm(e)
}

func (r *Runner) run(ctx context.Context, job Job) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error().
				Uint("schedule_id", job.RequestID).
				Str("panic", fmt.Sprint(p)).
				Msg("scheduled job panicked")
		}
	}()
	r.execute(ctx, job)
}
