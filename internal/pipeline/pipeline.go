// Package pipeline applies block changes to the host world. Changes are
// prepared concurrently by a worker pool and committed in batches through
// the host's single writer context, with the batch size driven by the
// measured host tick time.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-theft-craft/blast/internal/metrics"
	"github.com/go-theft-craft/blast/internal/world"
	"github.com/go-theft-craft/blast/pkg/material"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("pipeline closed")

// Change is one requested block mutation. An empty Material leaves the block
// alone; an empty Biome leaves the biome alone.
type Change struct {
	X, Y, Z   int
	Material  material.Material
	CopyState bool // carry shared sub-properties over from the old block
	Update    bool // ask the host for physics/neighbour updates
	Biome     string
}

// Submitter accepts block changes. *Pipeline is the production
// implementation; the destruction algorithms depend only on this.
type Submitter interface {
	Submit(ctx context.Context, ch Change) error
}

type prepared struct {
	key    uint64
	change Change
	block  material.Block
}

// Stats is a point-in-time copy of the pipeline counters.
type Stats struct {
	Submitted  int64
	Committed  int64
	Duplicates int64
	Failed     int64
	Dropped    int64
	Batches    int64
	Pending    int
	QueueDepth int
	BatchSize  int
	Workers    int
}

// Pipeline is safe for concurrent use.
type Pipeline struct {
	sched  world.Scheduler
	source world.BlockSource
	reg    material.Registry
	log    *slog.Logger

	in       chan Change
	prepared chan prepared
	throttle *Throttle

	mu       sync.Mutex
	opts     Options
	pending  map[uint64]struct{}
	inflight int
	idle     chan struct{} // closed while inflight == 0
	dirty    map[world.ChunkPos]struct{}
	workers  []context.CancelFunc
	monStop  context.CancelFunc // nil while the monitor is off
	runCtx   context.Context
	stop     context.CancelFunc
	started  bool
	closed   bool
	wg       sync.WaitGroup

	submitted, committed, duplicates atomic.Int64
	failed, dropped, batches         atomic.Int64
}

// New validates opts and builds a stopped pipeline. source supplies the old
// block when a change asks for CopyState; it may be nil if no change does.
func New(sched world.Scheduler, source world.BlockSource, reg material.Registry, opts Options, log *slog.Logger) (*Pipeline, error) {
	if sched == nil {
		return nil, fmt.Errorf("%w: nil scheduler", ErrInvalidConfig)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if reg == nil {
		reg = material.DefaultRegistry{}
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	idle := make(chan struct{})
	close(idle)
	p := &Pipeline{
		sched:    sched,
		source:   source,
		reg:      reg,
		log:      log,
		in:       make(chan Change, opts.QueueSize),
		prepared: make(chan prepared, opts.BatchSize),
		throttle: NewThrottle(opts.MinBatchSize, opts.BatchSize, opts.StressThreshold, opts.TargetTick, opts.DecreaseFactor, opts.RecoveryFactor),
		opts:     opts,
		pending:  make(map[uint64]struct{}),
		idle:     idle,
		dirty:    make(map[world.ChunkPos]struct{}),
	}
	metrics.PipelineBatchSize.Set(float64(opts.BatchSize))
	return p, nil
}

// Start launches the workers, the committer and the throttle monitor. They
// run until Close or until ctx is cancelled.
func (p *Pipeline) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true
	p.runCtx, p.stop = context.WithCancel(ctx)

	for range p.opts.Workers {
		p.spawnWorkerLocked()
	}
	p.wg.Add(1)
	go p.commitLoop(p.runCtx, p.opts.BatchSize)
	if p.opts.MonitorInterval > 0 {
		p.startMonitorLocked()
	}
	p.log.Debug("pipeline started", "workers", p.opts.Workers, "batch_size", p.opts.BatchSize)
}

func (p *Pipeline) startMonitorLocked() {
	mctx, cancel := context.WithCancel(p.runCtx)
	p.monStop = cancel
	p.wg.Add(1)
	go p.monitor(mctx, p.opts.MonitorInterval)
}

func (p *Pipeline) stopMonitorLocked() {
	if p.monStop != nil {
		p.monStop()
		p.monStop = nil
	}
}

func (p *Pipeline) spawnWorkerLocked() {
	wctx, cancel := context.WithCancel(p.runCtx)
	p.workers = append(p.workers, cancel)
	p.wg.Add(1)
	go p.worker(wctx)
}

// Submit queues a change, blocking while the queue is full. A change whose
// position is already pending is dropped as a duplicate.
func (p *Pipeline) Submit(ctx context.Context, ch Change) error {
	key := world.PackBlock(ch.X, ch.Y, ch.Z)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if _, dup := p.pending[key]; dup {
		p.mu.Unlock()
		p.duplicates.Add(1)
		metrics.PipelineChanges.WithLabelValues("duplicate").Inc()
		return nil
	}
	p.pending[key] = struct{}{}
	p.acquireLocked()
	p.mu.Unlock()

	select {
	case p.in <- ch:
		p.submitted.Add(1)
		metrics.PipelineQueueDepth.Set(float64(len(p.in)))
		return nil
	case <-ctx.Done():
		p.release(key, false)
		return ctx.Err()
	case <-p.stopped():
		p.release(key, false)
		return ErrClosed
	}
}

// stopped is closed once the running pipeline has been stopped. Before
// Start it returns nil, which blocks forever in a select.
func (p *Pipeline) stopped() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.runCtx == nil {
		return nil
	}
	return p.runCtx.Done()
}

// SubmitBatch submits changes in order, stopping at the first error.
func (p *Pipeline) SubmitBatch(ctx context.Context, changes []Change) error {
	for i, ch := range changes {
		if err := p.Submit(ctx, ch); err != nil {
			return fmt.Errorf("submit change %d of %d: %w", i+1, len(changes), err)
		}
	}
	return nil
}

// acquireLocked records one more in-flight change.
func (p *Pipeline) acquireLocked() {
	if p.inflight == 0 {
		p.idle = make(chan struct{})
	}
	p.inflight++
}

// release finishes an in-flight change. dirty marks its chunk as touched.
func (p *Pipeline) release(key uint64, dirty bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.pending, key)
	if dirty {
		x, _, z := world.UnpackBlock(key)
		p.dirty[world.ChunkOf(x, z)] = struct{}{}
	}
	p.inflight--
	if p.inflight == 0 {
		close(p.idle)
	}
}

func (p *Pipeline) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ch := <-p.in:
			metrics.PipelineQueueDepth.Set(float64(len(p.in)))
			key := world.PackBlock(ch.X, ch.Y, ch.Z)
			// A worker retired by Configure still finishes the change it holds.
			pc, ok := p.prepare(p.runCtx, key, ch)
			if !ok {
				p.release(key, false)
				continue
			}
			select {
			case p.prepared <- pc:
			case <-p.runCtx.Done():
				p.dropped.Add(1)
				metrics.PipelineChanges.WithLabelValues("dropped").Inc()
				p.release(key, false)
				return
			}
		}
	}
}

// prepare resolves the final block for ch. A panic drops only this change.
func (p *Pipeline) prepare(ctx context.Context, key uint64, ch Change) (pc prepared, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p.failed.Add(1)
			metrics.PipelineChanges.WithLabelValues("failed").Inc()
			p.log.Debug("prepare change panicked", "x", ch.X, "y", ch.Y, "z", ch.Z, "panic", r)
			ok = false
		}
	}()

	pc = prepared{key: key, change: ch}
	if ch.Material == "" {
		return pc, true
	}
	if ch.CopyState && p.source != nil {
		old := p.source.Block(ctx, ch.X, ch.Y, ch.Z)
		pc.block = material.CopyState(old, ch.Material, p.reg)
	} else {
		pc.block = material.Of(ch.Material)
	}
	return pc, true
}

// commitLoop is the only goroutine that calls the scheduler with writes.
func (p *Pipeline) commitLoop(ctx context.Context, capacity int) {
	defer p.wg.Done()
	batch := make([]prepared, 0, capacity)
	for {
		select {
		case <-ctx.Done():
			return
		case pc := <-p.prepared:
			batch = append(batch[:0], pc)
		}

		limit := p.throttle.Current()
	fill:
		for len(batch) < limit {
			select {
			case pc := <-p.prepared:
				batch = append(batch, pc)
			default:
				break fill
			}
		}

		p.commit(ctx, batch)

		p.mu.Lock()
		pause := p.opts.BatchPause
		p.mu.Unlock()
		if pause > 0 {
			t := time.NewTimer(pause)
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
		}
	}
}

func (p *Pipeline) commit(ctx context.Context, batch []prepared) {
	results := make([]bool, len(batch))
	err := p.sched.Sync(ctx, func(w world.Writer) {
		for i, pc := range batch {
			results[i] = p.apply(w, pc)
		}
	})
	p.batches.Add(1)
	metrics.PipelineCommits.Inc()

	if err != nil {
		p.log.Warn("commit batch failed", "changes", len(batch), "error", err)
		p.dropped.Add(int64(len(batch)))
		metrics.PipelineChanges.WithLabelValues("dropped").Add(float64(len(batch)))
		for _, pc := range batch {
			p.release(pc.key, false)
		}
		return
	}
	for i, pc := range batch {
		p.release(pc.key, results[i])
	}
}

// apply writes one change on the host writer context. Errors and panics
// drop only this change.
func (p *Pipeline) apply(w world.Writer, pc prepared) (ok bool) {
	ch := pc.change
	defer func() {
		if r := recover(); r != nil {
			p.log.Debug("apply change panicked", "x", ch.X, "y", ch.Y, "z", ch.Z, "panic", r)
			ok = false
		}
		if ok {
			p.committed.Add(1)
			metrics.PipelineChanges.WithLabelValues("committed").Inc()
		} else {
			p.failed.Add(1)
			metrics.PipelineChanges.WithLabelValues("failed").Inc()
		}
	}()

	if ch.Material != "" {
		if err := w.SetBlock(ch.X, ch.Y, ch.Z, pc.block, ch.Update); err != nil {
			p.log.Debug("set block failed", "x", ch.X, "y", ch.Y, "z", ch.Z, "material", ch.Material, "error", err)
			return false
		}
	}
	if ch.Biome != "" {
		if err := w.SetBiome(ch.X, ch.Y, ch.Z, ch.Biome); err != nil {
			p.log.Debug("set biome failed", "x", ch.X, "y", ch.Y, "z", ch.Z, "biome", ch.Biome, "error", err)
			return false
		}
	}
	return true
}

// Drain blocks until every accepted change has been committed or dropped.
func (p *Pipeline) Drain(ctx context.Context) error {
	p.mu.Lock()
	idle := p.idle
	p.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain pipeline: %w", ctx.Err())
	case <-p.stopped():
		return fmt.Errorf("drain pipeline: %w", ErrClosed)
	}
}

// Close stops accepting changes, drains what was accepted and stops every
// goroutine. It is safe to call more than once.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	started := p.started
	p.mu.Unlock()

	var err error
	if started {
		err = p.Drain(context.Background())
		p.stop()
		p.wg.Wait()
	}
	p.log.Debug("pipeline closed", "committed", p.committed.Load(), "failed", p.failed.Load())
	if err != nil && !errors.Is(err, ErrClosed) {
		return err
	}
	return nil
}

// Configure applies opts atomically. On a validation error nothing changes.
func (p *Pipeline) Configure(opts ...Option) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	next := p.opts
	for _, opt := range opts {
		opt(&next)
	}
	if next.QueueSize != p.opts.QueueSize {
		return fmt.Errorf("%w: queue size is fixed at construction", ErrInvalidConfig)
	}
	if err := next.Validate(); err != nil {
		return err
	}

	prev := p.opts
	p.opts = next
	if next.BatchSize != prev.BatchSize || next.MinBatchSize != prev.MinBatchSize ||
		next.StressThreshold != prev.StressThreshold || next.TargetTick != prev.TargetTick ||
		next.DecreaseFactor != prev.DecreaseFactor || next.RecoveryFactor != prev.RecoveryFactor {
		p.throttle.reset(next.MinBatchSize, next.BatchSize, next.StressThreshold, next.TargetTick, next.DecreaseFactor, next.RecoveryFactor)
		metrics.PipelineBatchSize.Set(float64(next.BatchSize))
	}
	if p.started && !p.closed {
		for len(p.workers) < next.Workers {
			p.spawnWorkerLocked()
		}
		for len(p.workers) > next.Workers {
			last := len(p.workers) - 1
			p.workers[last]()
			p.workers = p.workers[:last]
		}
		switch {
		case next.MonitorInterval > 0 && p.monStop == nil:
			p.startMonitorLocked()
		case next.MonitorInterval <= 0:
			p.stopMonitorLocked()
		}
	}
	p.log.Debug("pipeline configured", "workers", next.Workers, "batch_size", next.BatchSize, "min_batch_size", next.MinBatchSize)
	return nil
}

// BatchSize returns the batch size currently chosen by the throttle.
func (p *Pipeline) BatchSize() int { return p.throttle.Current() }

// Throttle exposes the batch size controller.
func (p *Pipeline) Throttle() *Throttle { return p.throttle }

// Options returns the configuration in effect.
func (p *Pipeline) Options() Options {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opts
}

// DirtyChunks returns the chunks written since the previous call.
func (p *Pipeline) DirtyChunks() []world.ChunkPos {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]world.ChunkPos, 0, len(p.dirty))
	for pos := range p.dirty {
		out = append(out, pos)
	}
	clear(p.dirty)
	return out
}

// Stats returns the current counters.
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	pending, workers := p.inflight, len(p.workers)
	p.mu.Unlock()
	return Stats{
		Submitted:  p.submitted.Load(),
		Committed:  p.committed.Load(),
		Duplicates: p.duplicates.Load(),
		Failed:     p.failed.Load(),
		Dropped:    p.dropped.Load(),
		Batches:    p.batches.Load(),
		Pending:    pending,
		QueueDepth: len(p.in),
		BatchSize:  p.throttle.Current(),
		Workers:    workers,
	}
}
