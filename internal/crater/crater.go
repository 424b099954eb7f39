// Package crater carves paraboloid depressions. The interior is cleared down
// to a floor that deepens towards the centre, the floor is scorched, and the
// ring just outside the footprint gets a lighter rim scorch.
package crater

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/go-theft-craft/blast/internal/pipeline"
	"github.com/go-theft-craft/blast/internal/transform"
	"github.com/go-theft-craft/blast/internal/world"
	"github.com/go-theft-craft/blast/pkg/material"
	"github.com/go-theft-craft/blast/pkg/noise"
)

// DefaultScorch is ordered from lightly to heavily charred.
var DefaultScorch = []material.Material{
	material.CoarseDirt,
	material.Gravel,
	material.Tuff,
	material.CobbledDeepslate,
	material.Blackstone,
	material.Basalt,
	material.MagmaBlock,
}

// Params describes one crater.
type Params struct {
	CenterX, CenterY, CenterZ int
	// RadiusX and RadiusZ are the semi-axes of the elliptical footprint.
	RadiusX, RadiusZ float64
	// RadiusY is the paraboloid depth at the centre.
	RadiusY float64
	// Height is how far above the floor blocks are cleared. Zero means
	// twice RadiusY.
	Height int
	// Scorch lists floor materials from lightly to heavily charred. Nil
	// means DefaultScorch.
	Scorch []material.Material
	// RimPower is the transformation power at the footprint edge.
	RimPower float64
	// Biome, when set, is written to every scorched floor column.
	Biome string
	// RegionSize is the side of the chunk-aligned work regions.
	RegionSize int
	// Workers bounds the number of regions processed at once.
	Workers int
}

func (p Params) withDefaults() Params {
	if p.Height <= 0 {
		p.Height = int(math.Ceil(2 * p.RadiusY))
	}
	if len(p.Scorch) == 0 {
		p.Scorch = DefaultScorch
	}
	if p.RimPower <= 0 {
		p.RimPower = 0.5
	}
	if p.RegionSize <= 0 {
		p.RegionSize = 16
	}
	if p.Workers <= 0 {
		p.Workers = 4
	}
	return p
}

// Validate rejects degenerate shapes.
func (p Params) Validate() error {
	if p.RadiusX <= 0 || p.RadiusZ <= 0 {
		return fmt.Errorf("crater radii %g,%g must be positive", p.RadiusX, p.RadiusZ)
	}
	if p.RadiusY < 0 {
		return fmt.Errorf("crater depth %g must not be negative", p.RadiusY)
	}
	return nil
}

// FloorDepth returns the paraboloid depth below the centre for a column at
// normalized squared distance nd from the centre. nd in [0, 1] gives a
// depth in [0, radiusY].
func FloorDepth(radiusY, nd float64) float64 {
	nd = min(max(nd, 0), 1)
	return radiusY * (1 - nd)
}

// Crater carves one crater. A Crater is single use.
type Crater struct {
	source world.BlockSource
	rules  *transform.Engine
	sink   pipeline.Submitter
	seen   *world.PositionSet
	p      Params
	log    *slog.Logger

	mu      sync.Mutex
	maxDist float64
	changed int
}

// New prepares a crater. seen may be shared with other algorithms of the same
// explosion; nil gives the crater its own set.
func New(source world.BlockSource, rules *transform.Engine, sink pipeline.Submitter, seen *world.PositionSet, p Params, log *slog.Logger) (*Crater, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if seen == nil {
		seen = world.NewPositionSet()
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Crater{source: source, rules: rules, sink: sink, seen: seen, p: p.withDefaults(), log: log}, nil
}

// Changed returns how many block changes the crater submitted.
func (c *Crater) Changed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.changed
}

// normDist returns the normalized squared distance of column (x, z).
func (c *Crater) normDist(x, z int) float64 {
	dx := float64(x-c.p.CenterX) / c.p.RadiusX
	dz := float64(z-c.p.CenterZ) / c.p.RadiusZ
	return dx*dx + dz*dz
}

func (c *Crater) bounds(pad int) world.Region {
	rx := int(math.Ceil(c.p.RadiusX)) + pad
	rz := int(math.Ceil(c.p.RadiusZ)) + pad
	return world.Region{
		MinX: c.p.CenterX - rx, MinZ: c.p.CenterZ - rz,
		MaxX: c.p.CenterX + rx, MaxZ: c.p.CenterZ + rz,
	}
}

// Create carves the interior, then scorches the rim, and returns the
// effective crater radius: the largest distance from the centre at which a
// block was scorched.
func (c *Crater) Create(ctx context.Context) (int, error) {
	if err := c.pass(ctx, c.bounds(0), c.carveColumn); err != nil {
		return c.radius(), err
	}
	if err := c.pass(ctx, c.bounds(1), c.rimColumn); err != nil {
		return c.radius(), err
	}
	r := c.radius()
	c.log.Debug("crater carved", "x", c.p.CenterX, "y", c.p.CenterY, "z", c.p.CenterZ, "radius", r, "changes", c.Changed())
	return r, nil
}

func (c *Crater) radius() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int(math.Ceil(c.maxDist))
}

// pass runs fn over every column of bounds, one chunk-aligned region per
// task.
func (c *Crater) pass(ctx context.Context, bounds world.Region, fn func(context.Context, int, int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.p.Workers)
	for _, r := range world.Partition(bounds, c.p.RegionSize) {
		g.Go(func() error {
			c.region(gctx, r, fn)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("crater pass: %w", err)
	}
	return nil
}

// region processes one region. A failure stops only this region.
func (c *Crater) region(ctx context.Context, r world.Region, fn func(context.Context, int, int) error) {
	defer func() {
		if v := recover(); v != nil {
			c.log.Warn("crater region panicked", "min_x", r.MinX, "min_z", r.MinZ, "panic", v)
		}
	}()
	for x := r.MinX; x <= r.MaxX; x++ {
		for z := r.MinZ; z <= r.MaxZ; z++ {
			if ctx.Err() != nil {
				return
			}
			if err := fn(ctx, x, z); err != nil {
				if ctx.Err() == nil {
					c.log.Warn("crater region aborted", "min_x", r.MinX, "min_z", r.MinZ, "error", err)
				}
				return
			}
		}
	}
}

func (c *Crater) carveColumn(ctx context.Context, x, z int) error {
	nd := c.normDist(x, z)
	if nd > 1 {
		return nil
	}
	minY, maxY := c.source.HeightRange()
	floorY := c.p.CenterY - int(FloorDepth(c.p.RadiusY, nd))
	if floorY < minY {
		floorY = minY
	}
	top := min(floorY+c.p.Height, maxY-1)

	for y := top; y > floorY; y-- {
		m := c.source.Block(ctx, x, y, z).Material
		if !clearable(m) {
			continue
		}
		if err := c.submit(ctx, pipeline.Change{X: x, Y: y, Z: z, Material: material.Air}); err != nil {
			return err
		}
	}

	m := c.source.Block(ctx, x, floorY, z).Material
	if !material.IsSolid(m) || material.IsIndestructible(m) {
		return nil
	}
	ch := pipeline.Change{X: x, Y: floorY, Z: z, Material: c.scorch(x, floorY, z, nd), Biome: c.p.Biome}
	if err := c.submit(ctx, ch); err != nil {
		return err
	}
	c.scorched(x, z)
	return nil
}

// scorch picks the floor material, more charred nearer the centre.
func (c *Crater) scorch(x, y, z int, nd float64) material.Material {
	t := 1 - math.Sqrt(nd)
	t += noise.Coherent.At(x, y, z, 0.2) * 0.15
	t = min(max(t, 0), 1)
	i := min(int(t*float64(len(c.p.Scorch))), len(c.p.Scorch)-1)
	return c.p.Scorch[i]
}

func (c *Crater) rimColumn(ctx context.Context, x, z int) error {
	nd := c.normDist(x, z)
	if nd <= 1 || !c.touchesInterior(x, z) {
		return nil
	}
	minY, maxY := c.source.HeightRange()
	top := min(c.p.CenterY+c.p.Height, maxY-1)
	bottom := max(c.p.CenterY-int(math.Ceil(c.p.RadiusY))-1, minY)
	y, ok := c.topSolid(ctx, x, z, bottom, top)
	if !ok {
		return nil
	}
	m := c.source.Block(ctx, x, y, z).Material
	// Power fades with distance past the edge.
	power := c.p.RimPower / nd
	next := c.rules.Transform(m, power, x, y, z)
	if next == m {
		return nil
	}
	if err := c.submit(ctx, pipeline.Change{X: x, Y: y, Z: z, Material: next, CopyState: true}); err != nil {
		return err
	}
	c.scorched(x, z)
	return nil
}

// touchesInterior reports whether any of the 8 neighbours of (x, z) lies
// inside the footprint.
func (c *Crater) touchesInterior(x, z int) bool {
	for dx := -1; dx <= 1; dx++ {
		for dz := -1; dz <= 1; dz++ {
			if (dx != 0 || dz != 0) && c.normDist(x+dx, z+dz) <= 1 {
				return true
			}
		}
	}
	return false
}

// topSolid finds the highest solid block in [bottom, top]. It binary searches
// assuming solid ground below air and falls back to a linear scan when the
// column breaks that assumption.
func (c *Crater) topSolid(ctx context.Context, x, z, bottom, top int) (int, bool) {
	solid := func(y int) bool { return material.IsSolid(c.source.Block(ctx, x, y, z).Material) }

	found := bottom - 1
	for lo, hi := bottom, top; lo <= hi; {
		mid := lo + (hi-lo)/2
		if solid(mid) {
			found = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	if found >= bottom && (found == top || !solid(found+1)) && (found == bottom || solid(found-1)) {
		return found, true
	}
	for y := top; y >= bottom; y-- {
		if solid(y) {
			return y, true
		}
	}
	return 0, false
}

func (c *Crater) submit(ctx context.Context, ch pipeline.Change) error {
	if !c.seen.Add(ch.X, ch.Y, ch.Z) {
		return nil
	}
	if err := c.sink.Submit(ctx, ch); err != nil {
		c.seen.Remove(ch.X, ch.Y, ch.Z)
		if ctx.Err() != nil || errors.Is(err, pipeline.ErrClosed) {
			return err
		}
		c.log.Debug("crater change dropped", "x", ch.X, "y", ch.Y, "z", ch.Z, "error", err)
		return nil
	}
	c.mu.Lock()
	c.changed++
	c.mu.Unlock()
	return nil
}

func (c *Crater) scorched(x, z int) {
	dx := float64(x - c.p.CenterX)
	dz := float64(z - c.p.CenterZ)
	d := math.Sqrt(dx*dx + dz*dz)
	c.mu.Lock()
	c.maxDist = max(c.maxDist, d)
	c.mu.Unlock()
}

func clearable(m material.Material) bool {
	return !material.IsAir(m) && !material.IsLiquid(m) && !material.IsIndestructible(m)
}
