// Package explosion wires the destruction algorithms to a host world. An
// Engine owns one snapshot cache and one mutation pipeline per world and
// runs detonations against them.
package explosion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/go-theft-craft/blast/internal/cache"
	"github.com/go-theft-craft/blast/internal/config"
	"github.com/go-theft-craft/blast/internal/crater"
	"github.com/go-theft-craft/blast/internal/journal"
	"github.com/go-theft-craft/blast/internal/metrics"
	"github.com/go-theft-craft/blast/internal/pipeline"
	"github.com/go-theft-craft/blast/internal/shockwave"
	"github.com/go-theft-craft/blast/internal/transform"
	"github.com/go-theft-craft/blast/internal/tree"
	"github.com/go-theft-craft/blast/internal/world"
	"github.com/go-theft-craft/blast/pkg/material"
)

// ErrClosed is returned by Detonate after Close.
var ErrClosed = errors.New("explosion engine closed")

// Host is a world the engine can read and write.
type Host interface {
	world.Reader
	world.Scheduler
}

// Blast describes one detonation.
type Blast struct {
	X, Y, Z int
	// Surface places the blast on the highest solid block of column (X, Z)
	// and ignores Y.
	Surface bool
	// Radius is the outermost shockwave ring.
	Radius int
	// CraterRadius and CraterDepth shape the crater. A zero radius skips
	// the crater.
	CraterRadius float64
	CraterDepth  float64
	// Power scales the configured shockwave power range. Zero means 1.
	Power float64
}

func (b Blast) validate() error {
	switch {
	case b.Radius < 0:
		return fmt.Errorf("blast radius %d is negative", b.Radius)
	case b.CraterRadius < 0:
		return fmt.Errorf("crater radius %g is negative", b.CraterRadius)
	case b.CraterRadius > 0 && b.CraterDepth <= 0:
		return fmt.Errorf("crater depth %g must be positive", b.CraterDepth)
	case b.Power < 0:
		return fmt.Errorf("blast power %g is negative", b.Power)
	}
	return nil
}

// Result summarizes a detonation.
type Result struct {
	RunID uuid.UUID
	// Mutated is the number of distinct positions changed.
	Mutated int
	// EffectiveRadius is the crater radius actually scorched.
	EffectiveRadius int
	Rings           int
	Duration        time.Duration
}

// Instance is the engine state of one world.
type Instance struct {
	Cache    *cache.Cache
	Pipeline *pipeline.Pipeline
}

// Engine is safe for concurrent use.
type Engine struct {
	cfg     *config.Config
	rules   *transform.Engine
	reg     material.Registry
	journal *journal.Journal
	log     *slog.Logger

	ctx  context.Context
	stop context.CancelFunc

	mu     sync.Mutex
	worlds map[string]*Instance
	closed bool
}

// New builds an engine. rules nil means the built-in rules; j may be nil to
// disable journaling.
func New(cfg *config.Config, rules *transform.Engine, j *journal.Journal, log *slog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("explosion config: %w", err)
	}
	if rules == nil {
		rules = transform.Default()
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	ctx, stop := context.WithCancel(context.Background())
	return &Engine{
		cfg:     cfg,
		rules:   rules,
		reg:     material.DefaultRegistry{},
		journal: j,
		log:     log,
		ctx:     ctx,
		stop:    stop,
		worlds:  make(map[string]*Instance),
	}, nil
}

// Instance returns the cache and pipeline of world name, creating them over
// host on first use.
func (e *Engine) Instance(name string, host Host) (*Instance, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}
	if inst, ok := e.worlds[name]; ok {
		return inst, nil
	}
	if host == nil {
		return nil, fmt.Errorf("world %q: nil host", name)
	}

	log := e.log.With("world", name)
	c, err := cache.New(host, e.cfg.CacheOptions(), log)
	if err != nil {
		return nil, fmt.Errorf("world %q cache: %w", name, err)
	}
	p, err := pipeline.New(host, c, e.reg, e.cfg.PipelineOptions(), log)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("world %q pipeline: %w", name, err)
	}
	p.Start(e.ctx)

	inst := &Instance{Cache: c, Pipeline: p}
	e.worlds[name] = inst
	log.Info("world attached")
	return inst, nil
}

// Detonate runs one explosion on world name. The crater is carved and
// committed first; the shockwave then starts at the effective crater radius
// over the same processed-position set, so it never rewrites the interior.
// Written chunks are evicted from the cache before Detonate returns.
func (e *Engine) Detonate(ctx context.Context, name string, host Host, b Blast) (Result, error) {
	if err := b.validate(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	inst, err := e.Instance(name, host)
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	res := Result{RunID: uuid.New()}
	if b.Surface {
		b.Y = inst.Cache.Height(ctx, b.X, b.Z)
	}
	log := e.log.With("world", name, "run", res.RunID)

	seen := world.NewPositionSet()
	runErr := e.carve(ctx, inst, seen, b, &res, log)
	if runErr == nil {
		runErr = e.blast(ctx, inst, seen, b, &res, log)
	}
	if runErr == nil {
		runErr = inst.Pipeline.Drain(ctx)
	}
	e.invalidate(inst)

	res.Mutated = seen.Len()
	res.Duration = time.Since(start)
	seen.Clear()
	metrics.ExplosionDuration.WithLabelValues("detonation").Observe(res.Duration.Seconds())

	if e.journal != nil {
		run := journal.Run{
			ID:              res.RunID,
			World:           name,
			X:               b.X,
			Y:               b.Y,
			Z:               b.Z,
			Radius:          b.Radius,
			CraterRadius:    int(b.CraterRadius),
			Mutated:         res.Mutated,
			Rings:           res.Rings,
			EffectiveRadius: res.EffectiveRadius,
			Duration:        res.Duration,
			StartedAt:       start,
		}
		if runErr != nil {
			run.Error = runErr.Error()
		}
		e.journal.Record(run)
	}

	if runErr != nil {
		log.Warn("detonation interrupted", "mutated", res.Mutated, "error", runErr)
		return res, fmt.Errorf("detonate %s: %w", name, runErr)
	}
	log.Info("detonation complete", "x", b.X, "y", b.Y, "z", b.Z,
		"mutated", res.Mutated, "rings", res.Rings, "crater_radius", res.EffectiveRadius, "took", res.Duration)
	return res, nil
}

// carve runs the crater and waits until its changes are in the world, so
// the shockwave reads the carved terrain.
func (e *Engine) carve(ctx context.Context, inst *Instance, seen *world.PositionSet, b Blast, res *Result, log *slog.Logger) error {
	if b.CraterRadius <= 0 {
		return nil
	}
	c, err := crater.New(inst.Cache, e.rules, inst.Pipeline, seen, e.craterParams(b), log)
	if err != nil {
		return fmt.Errorf("crater: %w", err)
	}
	t := time.Now()
	res.EffectiveRadius, err = c.Create(ctx)
	metrics.ExplosionDuration.WithLabelValues("crater").Observe(time.Since(t).Seconds())
	metrics.ExplosionBlocks.WithLabelValues("crater").Add(float64(c.Changed()))
	if err != nil {
		return err
	}
	if err := inst.Pipeline.Drain(ctx); err != nil {
		return err
	}
	e.invalidate(inst)
	return nil
}

func (e *Engine) blast(ctx context.Context, inst *Instance, seen *world.PositionSet, b Blast, res *Result, log *slog.Logger) error {
	p := e.shockwaveParams(b)
	p.RadiusStart = min(res.EffectiveRadius, b.Radius)
	wave, err := shockwave.New(inst.Cache, e.rules, inst.Pipeline, seen, p, log)
	if err != nil {
		return fmt.Errorf("shockwave: %w", err)
	}
	wave.SetTrees(tree.New(inst.Cache, inst.Pipeline, e.cfg.TreeOptions(), log))

	t := time.Now()
	r, err := wave.Explode(ctx).Wait()
	res.Rings = r.Rings
	metrics.ExplosionDuration.WithLabelValues("shockwave").Observe(time.Since(t).Seconds())
	metrics.ExplosionBlocks.WithLabelValues("shockwave").Add(float64(r.Mutated))
	return err
}

func (e *Engine) invalidate(inst *Instance) {
	for _, pos := range inst.Pipeline.DirtyChunks() {
		inst.Cache.Invalidate(pos)
	}
}

func (e *Engine) shockwaveParams(b Blast) shockwave.Params {
	p := e.cfg.ShockwaveParams()
	p.CenterX, p.CenterY, p.CenterZ = b.X, b.Y, b.Z
	p.Radius = b.Radius
	if b.Power > 0 {
		p.MinPower *= b.Power
		p.MaxPower *= b.Power
	}
	return p
}

func (e *Engine) craterParams(b Blast) crater.Params {
	cc := e.cfg.Crater
	var scorch []material.Material
	for _, m := range cc.Scorch {
		scorch = append(scorch, material.Material(m))
	}
	return crater.Params{
		CenterX:    b.X,
		CenterY:    b.Y,
		CenterZ:    b.Z,
		RadiusX:    b.CraterRadius,
		RadiusZ:    b.CraterRadius,
		RadiusY:    b.CraterDepth,
		Scorch:     scorch,
		RimPower:   cc.RimPower,
		Biome:      cc.Biome,
		RegionSize: cc.RegionSize,
		Workers:    cc.Workers,
	}
}

// Worlds returns the names of the attached worlds.
func (e *Engine) Worlds() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.worlds))
	for name := range e.worlds {
		out = append(out, name)
	}
	return out
}

// Close drains and stops every world's pipeline, releases the caches and
// closes the journal.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	worlds := e.worlds
	e.worlds = nil
	e.mu.Unlock()

	var errs []error
	for name, inst := range worlds {
		if err := inst.Pipeline.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close world %q: %w", name, err))
		}
		inst.Cache.Close()
	}
	e.stop()
	if e.journal != nil {
		if err := e.journal.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close journal: %w", err))
		}
	}
	return errors.Join(errs...)
}
