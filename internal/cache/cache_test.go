package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-theft-craft/blast/internal/world"
	"github.com/go-theft-craft/blast/pkg/material"
)

// stubReader serves a flat stone world below y=10 and counts loads.
type stubReader struct {
	loads   atomic.Int64
	gate    chan struct{} // when non-nil, loads block until closed
	failing map[world.ChunkPos]bool
	mu      sync.Mutex
	blocks  map[world.BlockPos]material.Block
}

func newStubReader() *stubReader {
	return &stubReader{blocks: make(map[world.BlockPos]material.Block), failing: make(map[world.ChunkPos]bool)}
}

func (r *stubReader) HeightRange() (int, int) { return 0, 32 }

func (r *stubReader) BlockAt(x, y, z int) material.Block {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.blocks[world.BlockPos{X: x, Y: y, Z: z}]; ok {
		return b
	}
	if y >= 0 && y < 10 {
		return material.Of(material.Stone)
	}
	return material.AirBlock
}

func (r *stubReader) HighestSolidY(x, z int) int { return 9 }

func (r *stubReader) LoadChunkSnapshot(ctx context.Context, pos world.ChunkPos) (*world.ChunkSnapshot, error) {
	r.loads.Add(1)
	if r.gate != nil {
		select {
		case <-r.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.failing[pos] {
		return nil, world.ErrChunkUnavailable
	}
	b := world.NewSnapshotBuilder(pos, 0, 32)
	bx, bz := pos.MinBlock()
	for lx := 0; lx < 16; lx++ {
		for lz := 0; lz < 16; lz++ {
			for y := 0; y < 32; y++ {
				b.Set(lx, y, lz, r.BlockAt(bx+lx, y, bz+lz))
			}
		}
	}
	return b.Build(), nil
}

func newTestCache(t *testing.T, r world.Reader, opts Options) *Cache {
	t.Helper()
	c, err := New(r, opts, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestBlockAndHeight(t *testing.T) {
	r := newStubReader()
	r.blocks[world.BlockPos{X: 3, Y: 12, Z: -4}] = material.Of(material.OakLog)
	c := newTestCache(t, r, Options{})
	ctx := context.Background()

	if got := c.Material(ctx, 0, 5, 0); got != material.Stone {
		t.Errorf("Material(0,5,0) = %s, want stone", got)
	}
	if got := c.Material(ctx, 0, 20, 0); got != material.Air {
		t.Errorf("Material(0,20,0) = %s, want air", got)
	}
	if got := c.Material(ctx, 3, 12, -4); got != material.OakLog {
		t.Errorf("Material(3,12,-4) = %s, want oak_log", got)
	}
	if got := c.Height(ctx, 3, -4); got != 12 {
		t.Errorf("Height(3,-4) = %d, want 12", got)
	}
	if got := c.Height(ctx, 100, 100); got != 9 {
		t.Errorf("Height(100,100) = %d, want 9", got)
	}
}

func TestOutOfRangeNeverFetches(t *testing.T) {
	r := newStubReader()
	c := newTestCache(t, r, Options{})
	ctx := context.Background()

	for _, y := range []int{-1, -100, 32, 500} {
		if got := c.Material(ctx, 0, y, 0); got != material.Air {
			t.Errorf("Material(0,%d,0) = %s, want air", y, got)
		}
	}
	if n := r.loads.Load(); n != 0 {
		t.Errorf("loads = %d, want 0", n)
	}
}

func TestConcurrentMissFetchesOnce(t *testing.T) {
	r := newStubReader()
	r.gate = make(chan struct{})
	c := newTestCache(t, r, Options{})
	ctx := context.Background()

	const callers = 32
	var wg sync.WaitGroup
	results := make([]material.Material, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = c.Material(ctx, 5, 5, 5)
		}()
	}

	deadline := time.Now().Add(2 * time.Second)
	for c.Stats().Misses < callers && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	close(r.gate)
	wg.Wait()

	if n := r.loads.Load(); n != 1 {
		t.Errorf("loads = %d, want 1", n)
	}
	for i, m := range results {
		if m != material.Stone {
			t.Errorf("caller %d got %s, want stone", i, m)
		}
	}
}

func TestCachedChunkDoesNotRefetch(t *testing.T) {
	r := newStubReader()
	c := newTestCache(t, r, Options{})
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		c.Material(ctx, i%16, 3, (i*7)%16)
	}
	if n := r.loads.Load(); n != 1 {
		t.Errorf("loads = %d, want 1", n)
	}
	if s := c.Stats(); s.LocalHits != 99 || s.Misses != 1 {
		t.Errorf("stats = %+v, want 99 local hits and 1 miss", s)
	}
}

func TestEvictionDemotesToShared(t *testing.T) {
	r := newStubReader()
	c := newTestCache(t, r, Options{LocalCapacity: 2})
	ctx := context.Background()

	for cx := 0; cx < 4; cx++ {
		c.Material(ctx, cx*16, 3, 0)
	}
	s := c.Stats()
	if s.LocalLen != 2 {
		t.Errorf("local len = %d, want 2", s.LocalLen)
	}
	if s.Demotions != 2 {
		t.Errorf("demotions = %d, want 2", s.Demotions)
	}
	if s.SharedLen != 4 {
		t.Errorf("shared len = %d, want 4", s.SharedLen)
	}

	// Chunk 0 was demoted; reading it again must not hit the host.
	before := r.loads.Load()
	if got := c.Material(ctx, 0, 3, 0); got != material.Stone {
		t.Errorf("Material = %s, want stone", got)
	}
	if r.loads.Load() != before {
		t.Error("demoted chunk was refetched")
	}
	if c.Stats().SharedHits != 1 {
		t.Errorf("shared hits = %d, want 1", c.Stats().SharedHits)
	}
}

func TestSharedTierDecodesCompressedCopy(t *testing.T) {
	r := newStubReader()
	r.blocks[world.BlockPos{X: 1, Y: 20, Z: 1}] = material.Block{
		Material: "oak_stairs",
		State:    material.State{Set: material.PropFacing, Facing: material.South},
	}
	c := newTestCache(t, r, Options{})
	ctx := context.Background()

	snap, err := c.Snapshot(ctx, world.ChunkPos{})
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	_, packed, ok := c.shared.get(world.ChunkPos{}.Pack())
	if !ok {
		t.Fatal("fetched chunk not in shared tier")
	}
	raw, err := c.dec.DecodeAll(packed, nil)
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	decoded, err := world.UnmarshalChunkSnapshot(raw)
	if err != nil {
		t.Fatalf("UnmarshalChunkSnapshot: %v", err)
	}
	if got, want := decoded.Block(1, 20, 1), snap.Block(1, 20, 1); got != want {
		t.Errorf("decoded block = %+v, want %+v", got, want)
	}
}

func TestSharedBudgetEvicts(t *testing.T) {
	tier := newSharedTier(100)
	snap := world.NewSnapshotBuilder(world.ChunkPos{}, 0, 1).Build()
	if n := tier.put(1, snap, make([]byte, 60)); n != 0 {
		t.Errorf("first put evicted %d", n)
	}
	if n := tier.put(2, snap, make([]byte, 60)); n != 1 {
		t.Errorf("second put evicted %d, want 1", n)
	}
	if _, _, ok := tier.get(1); ok {
		t.Error("oldest entry survived eviction")
	}
	if n := tier.put(3, snap, make([]byte, 200)); n != 0 {
		t.Errorf("oversized put evicted %d", n)
	}
	if _, _, ok := tier.get(3); ok {
		t.Error("oversized entry stored")
	}
	if size := tier.size(); size != 60 {
		t.Errorf("size = %d, want 60", size)
	}
}

func TestInvalidate(t *testing.T) {
	r := newStubReader()
	c := newTestCache(t, r, Options{})
	ctx := context.Background()

	if got := c.Material(ctx, 2, 15, 2); got != material.Air {
		t.Fatalf("Material = %s, want air", got)
	}
	r.mu.Lock()
	r.blocks[world.BlockPos{X: 2, Y: 15, Z: 2}] = material.Of(material.Glass)
	r.mu.Unlock()

	if got := c.Material(ctx, 2, 15, 2); got != material.Air {
		t.Errorf("stale read = %s, want cached air", got)
	}
	c.Invalidate(world.ChunkPos{})
	c.Invalidate(world.ChunkPos{X: 99, Z: 99}) // absent
	if got := c.Material(ctx, 2, 15, 2); got != material.Glass {
		t.Errorf("after invalidate = %s, want glass", got)
	}
	if n := r.loads.Load(); n != 2 {
		t.Errorf("loads = %d, want 2", n)
	}
}

func TestFetchErrorDegradesToAir(t *testing.T) {
	r := newStubReader()
	r.failing[world.ChunkPos{X: 1, Z: 1}] = true
	c := newTestCache(t, r, Options{})
	ctx := context.Background()

	if got := c.Material(ctx, 20, 5, 20); got != material.Air {
		t.Errorf("Material on failing chunk = %s, want air", got)
	}
	if got := c.Height(ctx, 20, 20); got != -1 {
		t.Errorf("Height on failing chunk = %d, want -1", got)
	}
	if _, err := c.Snapshot(ctx, world.ChunkPos{X: 1, Z: 1}); !errors.Is(err, world.ErrChunkUnavailable) {
		t.Errorf("Snapshot error = %v, want ErrChunkUnavailable", err)
	}
	if c.Stats().FetchErrors == 0 {
		t.Error("fetch errors not counted")
	}
}

func TestSnapshotHonoursCallerContext(t *testing.T) {
	r := newStubReader()
	r.gate = make(chan struct{})
	defer close(r.gate)
	// Not closed: the abandoned flight may still be running when the test ends.
	c, err := New(r, Options{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.Snapshot(ctx, world.ChunkPos{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestPreload(t *testing.T) {
	r := newStubReader()
	c := newTestCache(t, r, Options{PreloadRate: 1000})
	ctx := context.Background()

	coords := ChunksAround(0, 0, 40)
	coords = append(coords, coords[0]) // duplicate
	if err := c.Preload(ctx, coords, 4); err != nil {
		t.Fatalf("Preload: %v", err)
	}
	want := int64(len(coords) - 1)
	if n := r.loads.Load(); n != want {
		t.Errorf("loads = %d, want %d", n, want)
	}

	// Everything is warm now.
	if err := c.Preload(ctx, coords, 4); err != nil {
		t.Fatalf("second Preload: %v", err)
	}
	if n := r.loads.Load(); n != want {
		t.Errorf("loads after warm preload = %d, want %d", n, want)
	}
}

func TestPreloadCancelled(t *testing.T) {
	r := newStubReader()
	c := newTestCache(t, r, Options{PreloadRate: 1000})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Preload(ctx, ChunksAround(0, 0, 64), 2); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestChunksAround(t *testing.T) {
	got := ChunksAround(0, 0, 16)
	// Blocks -16..16 span chunks -1..1.
	if len(got) != 9 {
		t.Errorf("len = %d, want 9", len(got))
	}
}
