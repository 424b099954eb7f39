package crater

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/go-theft-craft/blast/internal/pipeline"
	"github.com/go-theft-craft/blast/internal/transform"
	"github.com/go-theft-craft/blast/internal/world"
	"github.com/go-theft-craft/blast/pkg/material"
)

// flatSource is stone up to y=9 under a grass layer at y=10.
type flatSource struct {
	overrides map[world.BlockPos]material.Material
}

func (s flatSource) HeightRange() (int, int) { return 0, 64 }
func (s flatSource) Block(_ context.Context, x, y, z int) material.Block {
	if m, ok := s.overrides[world.BlockPos{X: x, Y: y, Z: z}]; ok {
		return material.Of(m)
	}
	switch {
	case y < 10:
		return material.Of(material.Stone)
	case y == 10:
		return material.Of(material.GrassBlock)
	}
	return material.AirBlock
}
func (s flatSource) Height(context.Context, int, int) int { return 10 }

type recorder struct {
	mu      sync.Mutex
	changes map[world.BlockPos]pipeline.Change
}

func newRecorder() *recorder {
	return &recorder{changes: make(map[world.BlockPos]pipeline.Change)}
}

func (r *recorder) Submit(_ context.Context, ch pipeline.Change) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes[world.BlockPos{X: ch.X, Y: ch.Y, Z: ch.Z}] = ch
	return nil
}

func (r *recorder) get(x, y, z int) (pipeline.Change, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.changes[world.BlockPos{X: x, Y: y, Z: z}]
	return ch, ok
}

func testParams() Params {
	return Params{
		CenterY: 10,
		RadiusX: 5, RadiusZ: 5, RadiusY: 3,
		Biome: "scorched_wastes",
	}
}

func carve(t *testing.T, src world.BlockSource, p Params) (*recorder, int) {
	t.Helper()
	rec := newRecorder()
	c, err := New(src, transform.Default(), rec, nil, p, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r, err := c.Create(context.Background())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.Changed() != len(rec.changes) {
		t.Errorf("Changed() = %d, recorded %d", c.Changed(), len(rec.changes))
	}
	return rec, r
}

func TestFloorDepthWithinBounds(t *testing.T) {
	for _, radius := range []int{1, 2, 5, 8, 13, 20} {
		for _, ry := range []float64{0, 1, 4.5, 12} {
			r2 := radius * radius
			for x := -radius; x <= radius; x++ {
				for z := -radius; z <= radius; z++ {
					if x*x+z*z > r2 {
						continue
					}
					nd := float64(x*x+z*z) / float64(r2)
					d := FloorDepth(ry, nd)
					if d < 0 || d > ry {
						t.Fatalf("R=%d ry=%g (%d,%d): depth %g outside [0, %g]", radius, ry, x, z, d, ry)
					}
				}
			}
		}
	}
	if d := FloorDepth(3, 0); d != 3 {
		t.Errorf("centre depth = %g, want 3", d)
	}
	if d := FloorDepth(3, 1); d != 0 {
		t.Errorf("edge depth = %g, want 0", d)
	}
}

func TestCreateCarvesParaboloid(t *testing.T) {
	rec, _ := carve(t, flatSource{}, testParams())

	// Centre: floor at y=7, y=8..10 cleared.
	for y := 8; y <= 10; y++ {
		ch, ok := rec.get(0, y, 0)
		if !ok || ch.Material != material.Air {
			t.Errorf("centre y=%d: %+v, %v; want air", y, ch, ok)
		}
	}
	floor, ok := rec.get(0, 7, 0)
	if !ok {
		t.Fatal("centre floor not scorched")
	}
	if i := slices.Index(DefaultScorch, floor.Material); i < len(DefaultScorch)-3 {
		t.Errorf("centre floor = %s (index %d), want a heavily charred material", floor.Material, i)
	}
	if floor.Biome != "scorched_wastes" {
		t.Errorf("floor biome = %q", floor.Biome)
	}
	if _, ok := rec.get(0, 6, 0); ok {
		t.Error("block below the floor was changed")
	}

	// Every interior column has its floor within the paraboloid.
	for x := -5; x <= 5; x++ {
		for z := -5; z <= 5; z++ {
			if x*x+z*z > 25 {
				continue
			}
			var scorched int
			for y := 0; y <= 10; y++ {
				if ch, ok := rec.get(x, y, z); ok && ch.Material != material.Air {
					scorched++
					if y < 7 || y > 10 {
						t.Errorf("(%d,%d) scorched at y=%d outside [7,10]", x, z, y)
					}
				}
			}
			if scorched != 1 {
				t.Errorf("(%d,%d) has %d scorched blocks, want 1", x, z, scorched)
			}
		}
	}
}

func TestCreateScorchesRim(t *testing.T) {
	rec, radius := carve(t, flatSource{}, testParams())
	if radius < 5 || radius > 7 {
		t.Errorf("effective radius = %d, want 5..7", radius)
	}

	var rim int
	for pos, ch := range rec.changes {
		d2 := pos.X*pos.X + pos.Z*pos.Z
		if d2 <= 25 {
			continue
		}
		if d2 > 7*7*2 {
			t.Errorf("change at %v is beyond the rim", pos)
		}
		if pos.Y != 10 {
			t.Errorf("rim change at %v is not the surface", pos)
		}
		if ch.Material == material.GrassBlock {
			t.Errorf("rim change at %v kept grass", pos)
		}
		rim++
	}
	if rim == 0 {
		t.Error("no rim blocks scorched")
	}
}

func TestCreateSkipsLiquidsAndIndestructible(t *testing.T) {
	src := flatSource{overrides: map[world.BlockPos]material.Material{
		{X: 0, Y: 9, Z: 0}: material.Bedrock,
		{X: 1, Y: 9, Z: 0}: material.Water,
		{X: 0, Y: 8, Z: 1}: material.Bedrock,
	}}
	rec, _ := carve(t, src, testParams())
	if _, ok := rec.get(0, 9, 0); ok {
		t.Error("bedrock was cleared")
	}
	if _, ok := rec.get(1, 9, 0); ok {
		t.Error("water was cleared")
	}
	// Column (0, 1) has its floor at y=8.
	if ch, ok := rec.get(0, 8, 1); ok {
		t.Errorf("bedrock floor was scorched to %s", ch.Material)
	}
}

func TestCreateDeterministic(t *testing.T) {
	a, ra := carve(t, flatSource{}, testParams())
	b, rb := carve(t, flatSource{}, testParams())
	if ra != rb || len(a.changes) != len(b.changes) {
		t.Fatalf("runs differ: radius %d/%d, changes %d/%d", ra, rb, len(a.changes), len(b.changes))
	}
	for pos, ch := range a.changes {
		if other := b.changes[pos]; other != ch {
			t.Errorf("%v: %+v vs %+v", pos, ch, other)
		}
	}
}

func TestCreateSharesProcessedSet(t *testing.T) {
	seen := world.NewPositionSet()
	seen.Add(0, 7, 0)
	rec := newRecorder()
	c, err := New(flatSource{}, transform.Default(), rec, seen, testParams(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Create(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, ok := rec.get(0, 7, 0); ok {
		t.Error("position claimed by another algorithm was changed")
	}
	if seen.Len() != len(rec.changes)+1 {
		t.Errorf("set size = %d, want %d", seen.Len(), len(rec.changes)+1)
	}
}

func TestCreateCancelled(t *testing.T) {
	c, err := New(flatSource{}, transform.Default(), newRecorder(), nil, testParams(), nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Create(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Create = %v, want context.Canceled", err)
	}
}

func TestTopSolidFallsBackToLinearScan(t *testing.T) {
	// The binary search lands on a floating block at y=20, which has air
	// beneath it, so the result is confirmed by scanning.
	src := flatSource{overrides: map[world.BlockPos]material.Material{
		{X: 0, Y: 20, Z: 0}: material.Stone,
	}}
	c, err := New(src, nil, newRecorder(), nil, testParams(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if y, ok := c.topSolid(context.Background(), 0, 0, 0, 40); !ok || y != 20 {
		t.Errorf("topSolid = %d, %v; want 20, true", y, ok)
	}
	if y, ok := c.topSolid(context.Background(), 2, 2, 0, 40); !ok || y != 10 {
		t.Errorf("topSolid = %d, %v; want 10, true", y, ok)
	}
	if _, ok := c.topSolid(context.Background(), 2, 2, 20, 40); ok {
		t.Error("topSolid found a block in an empty range")
	}
}

func TestValidate(t *testing.T) {
	if _, err := New(flatSource{}, nil, newRecorder(), nil, Params{RadiusX: 0, RadiusZ: 3}, nil); err == nil {
		t.Error("zero radius accepted")
	}
	if _, err := New(flatSource{}, nil, newRecorder(), nil, Params{RadiusX: 3, RadiusZ: 3, RadiusY: -1}, nil); err == nil {
		t.Error("negative depth accepted")
	}
}
