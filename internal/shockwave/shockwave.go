// Package shockwave runs the expanding-ring blast. Each ring is a band of
// columns at one radius; columns are classified as tree, wall or roof and
// destroyed with power that falls off linearly with radius.
package shockwave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/go-theft-craft/blast/internal/pipeline"
	"github.com/go-theft-craft/blast/internal/transform"
	"github.com/go-theft-craft/blast/internal/tree"
	"github.com/go-theft-craft/blast/internal/world"
	"github.com/go-theft-craft/blast/pkg/material"
	"github.com/go-theft-craft/blast/pkg/noise"
)

// Result summarizes a finished shockwave.
type Result struct {
	Rings   int
	Columns int
	Mutated int
}

// Shockwave is single use.
type Shockwave struct {
	source world.BlockSource
	rules  *transform.Engine
	sink   pipeline.Submitter
	seen   *world.PositionSet
	trees  *tree.Handler
	p      Params
	log    *slog.Logger

	rings   atomic.Int64
	columns atomic.Int64
	mutated atomic.Int64
}

// New prepares a shockwave. seen may be shared with other algorithms of the
// same explosion; nil gives the shockwave its own set.
func New(source world.BlockSource, rules *transform.Engine, sink pipeline.Submitter, seen *world.PositionSet, p Params, log *slog.Logger) (*Shockwave, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if seen == nil {
		seen = world.NewPositionSet()
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Shockwave{source: source, rules: rules, sink: sink, seen: seen, p: p.withDefaults(), log: log}, nil
}

// SetTrees routes tree columns to h. Without a handler trees are treated as
// ordinary roofs.
func (s *Shockwave) SetTrees(h *tree.Handler) { s.trees = h }

// Positions returns the processed position set.
func (s *Shockwave) Positions() *world.PositionSet { return s.seen }

// Job is a running shockwave.
type Job struct {
	cancel context.CancelFunc
	done   chan struct{}
	res    Result
	err    error
}

// Explode starts the shockwave and returns immediately.
func (s *Shockwave) Explode(ctx context.Context) *Job {
	ctx, cancel := context.WithCancel(ctx)
	j := &Job{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(j.done)
		defer cancel()
		j.err = s.Run(ctx)
		j.res = s.result()
	}()
	return j
}

// Wait blocks until the job has finished.
func (j *Job) Wait() (Result, error) {
	<-j.done
	return j.res, j.err
}

// Cancel stops the job. Wait still has to be called to join it.
func (j *Job) Cancel() { j.cancel() }

// Done is closed when the job has finished.
func (j *Job) Done() <-chan struct{} { return j.done }

func (s *Shockwave) result() Result {
	return Result{
		Rings:   int(s.rings.Load()),
		Columns: int(s.columns.Load()),
		Mutated: int(s.mutated.Load()),
	}
}

// Run processes every ring in order on the calling goroutine. A ring's
// workers are joined before the next ring starts.
func (s *Shockwave) Run(ctx context.Context) error {
	for r := s.p.RadiusStart; r <= s.p.Radius; r++ {
		if err := s.ring(ctx, r); err != nil {
			return fmt.Errorf("shockwave ring %d: %w", r, err)
		}
		s.rings.Add(1)
	}
	res := s.result()
	s.log.Debug("shockwave finished", "x", s.p.CenterX, "y", s.p.CenterY, "z", s.p.CenterZ,
		"rings", res.Rings, "columns", res.Columns, "mutated", res.Mutated)
	return nil
}

func (s *Shockwave) ring(ctx context.Context, radius int) error {
	norm := s.p.normalized(s.p.PowerAt(radius))

	work := make(chan Column, s.p.QueueSize)
	g, gctx := errgroup.WithContext(ctx)
	for range s.p.Workers {
		g.Go(func() error {
			for col := range work {
				if err := s.column(gctx, col, norm); err != nil {
					return err
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(work)
		for _, col := range Ring(radius) {
			select {
			case work <- col:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	return g.Wait()
}

// column destroys one column. Failures are contained to the column; only
// cancellation and a closed sink are returned.
func (s *Shockwave) column(ctx context.Context, col Column, norm float64) (err error) {
	x, z := s.p.CenterX+col.DX, s.p.CenterZ+col.DZ
	defer func() {
		if r := recover(); r != nil {
			s.log.Warn("shockwave column panicked", "x", x, "z", z, "panic", r)
			err = nil
		}
	}()
	if err := ctx.Err(); err != nil {
		return err
	}
	s.columns.Add(1)

	minY, _ := s.source.HeightRange()
	top := s.source.Height(ctx, x, z)
	if top < minY || abs(top-s.p.CenterY) > s.p.MaxHeight {
		return nil
	}

	m := s.source.Block(ctx, x, top, z).Material
	switch {
	case s.trees != nil && material.IsTreeBlock(m):
		hit := tree.Hit{X: x, Z: z, Top: top, Power: norm}
		if d := math.Hypot(float64(col.DX), float64(col.DZ)); d > 0 {
			hit.AwayX, hit.AwayZ = float64(col.DX)/d, float64(col.DZ)/d
		}
		n, err := s.trees.Handle(ctx, s.seen, hit)
		s.mutated.Add(int64(n))
		return err
	case s.isWall(ctx, x, top, z):
		return s.wall(ctx, x, top, z, norm)
	default:
		return s.roof(ctx, x, top, z, norm)
	}
}

// isWall reports whether a cardinal neighbour is open at y or y-1.
func (s *Shockwave) isWall(ctx context.Context, x, y, z int) bool {
	for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
		nx, nz := x+d[0], z+d[1]
		if material.IsAir(s.source.Block(ctx, nx, y, nz).Material) ||
			material.IsAir(s.source.Block(ctx, nx, y-1, nz).Material) {
			return true
		}
	}
	return false
}

// wall descends while the column stays wall-like. Below the surface a noise
// sample against the power decides between air and a transformed block.
func (s *Shockwave) wall(ctx context.Context, x, top, z int, norm float64) error {
	minY, _ := s.source.HeightRange()
	for depth := 0; depth < s.p.WallDepth; depth++ {
		y := top - depth
		if y < minY || depth > 0 && !s.isWall(ctx, x, y, z) {
			return nil
		}
		m := s.source.Block(ctx, x, y, z).Material
		if !material.IsSolid(m) {
			continue
		}
		next := s.rules.Transform(m, norm, x, y, z)
		if depth > 0 && next != m && noise.Coherent.UnitAt(x, y, z, 0.3) < norm {
			next = material.Air
		}
		if err := s.mutate(ctx, x, y, z, m, next); err != nil {
			return err
		}
	}
	return nil
}

// roof penetrates down from the surface with decaying power, jumping air
// gaps at a cost.
func (s *Shockwave) roof(ctx context.Context, x, top, z int, norm float64) error {
	minY, _ := s.source.HeightRange()
	fx, fz := float64(x), float64(z)

	pen := math.Pow(norm, 1.2)*s.p.PenetrationScale + noise.Coherent.At(x, 0, z, 0.1)*2
	maxPen := int(min(max(pen, 1), 15))
	decay := min(max(0.85+noise.Coherent.Noise3D(fx*0.07, 100, fz*0.07)*0.1, 0.7), 0.95)

	p := norm
	y := top
	for done := 0; done < maxPen && y >= minY && p > 0.01; {
		m := s.source.Block(ctx, x, y, z).Material
		switch {
		case material.IsLiquid(m) || material.IsIndestructible(m):
			return nil
		case !material.IsSolid(m):
			below, ok := s.nextSolid(ctx, x, y, z, minY)
			if !ok {
				return nil
			}
			y = below
			p *= 1 - s.p.GapCost
			continue
		}
		if err := s.mutate(ctx, x, y, z, m, s.rules.Transform(m, p, x, y, z)); err != nil {
			return err
		}
		p *= decay
		done++
		y--
	}
	return nil
}

// nextSolid casts down from y for at most GapSearch blocks.
func (s *Shockwave) nextSolid(ctx context.Context, x, y, z, minY int) (int, bool) {
	for i := 1; i <= s.p.GapSearch && y-i >= minY; i++ {
		if material.IsSolid(s.source.Block(ctx, x, y-i, z).Material) {
			return y - i, true
		}
	}
	return 0, false
}

// mutate submits m -> next once per position per run.
func (s *Shockwave) mutate(ctx context.Context, x, y, z int, m, next material.Material) error {
	if next == m || !s.seen.Add(x, y, z) {
		return nil
	}
	ch := pipeline.Change{X: x, Y: y, Z: z, Material: next, CopyState: !material.IsAir(next), Update: true}
	if err := s.sink.Submit(ctx, ch); err != nil {
		s.seen.Remove(x, y, z)
		if ctx.Err() != nil || errors.Is(err, pipeline.ErrClosed) {
			return err
		}
		s.log.Debug("shockwave change dropped", "x", x, "y", y, "z", z, "error", err)
		return nil
	}
	s.mutated.Add(1)
	return nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
