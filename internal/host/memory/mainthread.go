package memory

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-theft-craft/blast/internal/world"
	"github.com/go-theft-craft/blast/pkg/world/gen"
)

// ErrStopped is returned by Sync once the main thread has stopped.
var ErrStopped = errors.New("main thread stopped")

// Job states. A queued job is claimed by exactly one of the tick (running)
// or its caller (abandoned).
const (
	jobQueued int32 = iota
	jobRunning
	jobAbandoned
)

type syncJob struct {
	fn    func(world.Writer)
	done  chan struct{}
	err   error // set before done is closed
	state atomic.Int32
}

// MainThread is the reference host's single writer context. Sync jobs queue
// up between ticks and run in order on the tick goroutine.
type MainThread struct {
	world    *World
	interval time.Duration
	log      *slog.Logger

	inbox chan *syncJob
	stop  chan struct{}
	once  sync.Once

	// Extra simulated work per tick, for exercising the throttle.
	load      atomic.Int64
	tick      atomic.Int64 // smoothed tick duration in ns
	ticks     atomic.Int64
	inWriter  atomic.Int32
	maxWriter atomic.Int32
}

// NewMainThread returns a main thread ticking every interval. Call Run to
// start it.
func NewMainThread(w *World, interval time.Duration, log *slog.Logger) *MainThread {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &MainThread{
		world:    w,
		interval: interval,
		log:      log,
		inbox:    make(chan *syncJob, 1024),
		stop:     make(chan struct{}),
	}
}

// Run drives ticks until ctx is cancelled or Stop is called.
func (m *MainThread) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	defer m.Stop()

	var pending []*syncJob
	for {
		select {
		case <-ctx.Done():
			m.abandon(pending)
			return ctx.Err()
		case <-m.stop:
			m.abandon(pending)
			return nil
		case job := <-m.inbox:
			pending = append(pending, job)
		case <-ticker.C:
			m.step(pending)
			clear(pending)
			pending = pending[:0]
		}
	}
}

// Stop ends Run. It is safe to call more than once.
func (m *MainThread) Stop() { m.once.Do(func() { close(m.stop) }) }

func (m *MainThread) step(jobs []*syncJob) {
	start := time.Now()
	if d := time.Duration(m.load.Load()); d > 0 {
		time.Sleep(d)
	}
	for _, job := range jobs {
		if job.state.CompareAndSwap(jobQueued, jobRunning) {
			m.run(job.fn)
		}
		close(job.done)
	}
	elapsed := time.Since(start)

	// Exponential smoothing keeps one slow tick from swinging the throttle.
	prev := m.tick.Load()
	if prev == 0 {
		m.tick.Store(int64(elapsed))
	} else {
		m.tick.Store((prev*4 + int64(elapsed)) / 5)
	}
	m.ticks.Add(1)
}

// run executes fn as the sole writer.
func (m *MainThread) run(fn func(world.Writer)) {
	n := m.inWriter.Add(1)
	defer m.inWriter.Add(-1)
	if n > m.maxWriter.Load() {
		m.maxWriter.Store(n)
	}
	defer func() {
		if r := recover(); r != nil {
			m.log.Warn("sync job panicked", "panic", r)
		}
	}()
	fn(m.world)
}

func (m *MainThread) abandon(jobs []*syncJob) {
	for _, job := range jobs {
		job.err = ErrStopped
		close(job.done)
	}
}

// Sync queues fn for the next tick and waits for it to run. If ctx ends
// before the tick picks the job up it is abandoned and will not run; once
// it has started, Sync waits for it and reports success.
func (m *MainThread) Sync(ctx context.Context, fn func(world.Writer)) error {
	job := &syncJob{fn: fn, done: make(chan struct{})}
	select {
	case m.inbox <- job:
	case <-ctx.Done():
		return ctx.Err()
	case <-m.stop:
		return ErrStopped
	}
	var err error
	select {
	case <-job.done:
		return job.err
	case <-ctx.Done():
		err = ctx.Err()
	case <-m.stop:
		err = ErrStopped
	}
	if job.state.CompareAndSwap(jobQueued, jobAbandoned) {
		return err
	}
	<-job.done
	return job.err
}

// TickDuration implements world.TickSource.
func (m *MainThread) TickDuration() time.Duration { return time.Duration(m.tick.Load()) }

// SetLoad adds d of simulated work to every tick.
func (m *MainThread) SetLoad(d time.Duration) { m.load.Store(int64(d)) }

// Ticks returns how many ticks have run.
func (m *MainThread) Ticks() int64 { return m.ticks.Load() }

// MaxConcurrentWriters returns the highest number of writers ever observed at
// once. Anything above one is a single-writer violation.
func (m *MainThread) MaxConcurrentWriters() int { return int(m.maxWriter.Load()) }

// Host pairs a World with the MainThread that writes it, giving the reader,
// scheduler and tick source the engine needs in one value.
type Host struct {
	*World
	*MainThread
}

// NewHost builds a World over generator with a MainThread ticking every
// interval. The caller runs the main thread.
func NewHost(generator gen.Generator, interval time.Duration, log *slog.Logger) *Host {
	w := NewWorld(generator)
	return &Host{World: w, MainThread: NewMainThread(w, interval, log)}
}
