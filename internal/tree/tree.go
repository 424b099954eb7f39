// Package tree knocks down trees caught in a blast. Leaves are stripped,
// trunks are either shattered or toppled away from the blast and charred.
package tree

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/go-theft-craft/blast/internal/pipeline"
	"github.com/go-theft-craft/blast/internal/world"
	"github.com/go-theft-craft/blast/pkg/material"
)

// Options tunes a Handler.
type Options struct {
	// BaseSearchDepth bounds how far below the surface block the trunk base
	// is searched for.
	BaseSearchDepth int
	// DestroyThreshold is the normalized power above which logs are removed
	// outright instead of toppled.
	DestroyThreshold float64
	// MaxDisplacement caps how far a toppled log is thrown sideways.
	MaxDisplacement int
	// Lean scales displacement per block of height above the base.
	Lean float64
}

// DefaultOptions returns the tuned defaults.
func DefaultOptions() Options {
	return Options{
		BaseSearchDepth:  24,
		DestroyThreshold: 0.6,
		MaxDisplacement:  6,
		Lean:             0.5,
	}
}

// Hit is a column reached by a blast.
type Hit struct {
	X, Z int
	// Top is the highest solid y of the column.
	Top int
	// Power is the normalized blast power at the column, in [0, 1].
	Power float64
	// AwayX and AwayZ point from the blast centre towards the column.
	AwayX, AwayZ float64
}

// Handler is safe for concurrent use.
type Handler struct {
	source world.BlockSource
	sink   pipeline.Submitter
	opts   Options
	log    *slog.Logger
}

// New returns a tree handler reading through source and writing to sink.
func New(source world.BlockSource, sink pipeline.Submitter, opts Options, log *slog.Logger) *Handler {
	if opts.BaseSearchDepth <= 0 {
		opts.BaseSearchDepth = 24
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Handler{source: source, sink: sink, opts: opts, log: log}
}

// IsTree reports whether the surface block of the column belongs to a tree.
func (h *Handler) IsTree(ctx context.Context, x, top, z int) bool {
	return material.IsTreeBlock(h.source.Block(ctx, x, top, z).Material)
}

// Handle fells the tree in hit's column and returns how many changes it
// submitted. Positions already in seen are left alone. Failures inside one
// tree are logged and swallowed; only cancellation is returned.
func (h *Handler) Handle(ctx context.Context, seen *world.PositionSet, hit Hit) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Warn("tree handler panicked", "x", hit.X, "y", hit.Top, "z", hit.Z, "panic", r)
			err = nil
		}
	}()

	if !h.IsTree(ctx, hit.X, hit.Top, hit.Z) {
		return 0, nil
	}
	base := h.findBase(ctx, hit.X, hit.Top, hit.Z)
	power := clamp01(hit.Power)

	for y := hit.Top; y >= base; y-- {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		m := h.source.Block(ctx, hit.X, y, hit.Z).Material
		var changed int
		var cerr error
		switch {
		case material.IsLeaves(m):
			changed, cerr = h.submit(ctx, seen, hit.X, y, hit.Z, material.Air, false)
		case material.IsLog(m):
			changed, cerr = h.fell(ctx, seen, hit, y, base, m, power)
		default:
			continue
		}
		n += changed
		if cerr != nil {
			if ctx.Err() != nil {
				return n, ctx.Err()
			}
			if errors.Is(cerr, pipeline.ErrClosed) {
				return n, cerr
			}
			h.log.Warn("fell tree", "x", hit.X, "y", y, "z", hit.Z, "error", cerr)
			return n, nil
		}
	}
	return n, nil
}

// findBase walks down from top while the column stays part of the tree.
func (h *Handler) findBase(ctx context.Context, x, top, z int) int {
	minY, _ := h.source.HeightRange()
	base := top
	for depth := 0; depth < h.opts.BaseSearchDepth && base-1 >= minY; depth++ {
		if !material.IsTreeBlock(h.source.Block(ctx, x, base-1, z).Material) {
			break
		}
		base--
	}
	return base
}

func (h *Handler) fell(ctx context.Context, seen *world.PositionSet, hit Hit, y, base int, trunk material.Material, power float64) (int, error) {
	if power > h.opts.DestroyThreshold {
		return h.submit(ctx, seen, hit.X, y, hit.Z, material.Air, false)
	}

	charred := material.CharredWood(material.WoodFamily(trunk))
	shift := h.displacement(y-base, power)
	dx := int(math.Round(hit.AwayX * float64(shift)))
	dz := int(math.Round(hit.AwayZ * float64(shift)))
	if dx == 0 && dz == 0 {
		return h.submit(ctx, seen, hit.X, y, hit.Z, charred, true)
	}

	n, err := h.submit(ctx, seen, hit.X, y, hit.Z, material.Air, false)
	if err != nil {
		return n, err
	}
	tx, tz := hit.X+dx, hit.Z+dz
	if !material.IsAir(h.source.Block(ctx, tx, y, tz).Material) {
		return n, nil
	}
	m, err := h.submit(ctx, seen, tx, y, tz, charred, false)
	return n + m, err
}

// displacement is proportional to height above the base and to power.
func (h *Handler) displacement(height int, power float64) int {
	d := int(math.Round(float64(height) * h.opts.Lean * power))
	return min(max(d, 0), h.opts.MaxDisplacement)
}

func (h *Handler) submit(ctx context.Context, seen *world.PositionSet, x, y, z int, m material.Material, copyState bool) (int, error) {
	if seen != nil && !seen.Add(x, y, z) {
		return 0, nil
	}
	ch := pipeline.Change{X: x, Y: y, Z: z, Material: m, CopyState: copyState, Update: true}
	if err := h.sink.Submit(ctx, ch); err != nil {
		if seen != nil {
			seen.Remove(x, y, z)
		}
		return 0, fmt.Errorf("submit %d,%d,%d: %w", x, y, z, err)
	}
	return 1, nil
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return min(v, 1)
}
