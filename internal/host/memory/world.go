// Package memory is an in-process reference host: generated terrain plus
// block overrides, driven by a single main-thread tick loop.
package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-theft-craft/blast/internal/world"
	"github.com/go-theft-craft/blast/pkg/material"
	"github.com/go-theft-craft/blast/pkg/world/gen"
)

// World tracks block state with a generator for base terrain and overrides
// for modifications. Reads are safe from any goroutine; writes go through
// MainThread.
type World struct {
	mu        sync.RWMutex
	blocks    map[world.BlockPos]material.Block
	biomes    map[[2]int]string
	generator gen.Generator
	chunks    map[world.ChunkPos]*gen.ChunkData

	radius  int // world boundary in chunks, 0 = infinite
	latency atomic.Int64
	loads   atomic.Int64
}

// NewWorld creates a World over generator.
func NewWorld(generator gen.Generator) *World {
	return &World{
		blocks:    make(map[world.BlockPos]material.Block),
		biomes:    make(map[[2]int]string),
		generator: generator,
		chunks:    make(map[world.ChunkPos]*gen.ChunkData),
	}
}

// SetRadius limits the world to chunks within radius of the origin. Chunks
// beyond it are unavailable. Zero removes the limit.
func (w *World) SetRadius(chunks int) {
	w.mu.Lock()
	w.radius = chunks
	w.mu.Unlock()
}

// SetLoadLatency delays every snapshot load, emulating asynchronous chunk
// I/O in a real host.
func (w *World) SetLoadLatency(d time.Duration) { w.latency.Store(int64(d)) }

// Loads returns how many snapshots have been loaded.
func (w *World) Loads() int64 { return w.loads.Load() }

func (w *World) inBounds(pos world.ChunkPos) bool {
	w.mu.RLock()
	r := w.radius
	w.mu.RUnlock()
	return r <= 0 || (abs(pos.X) <= r && abs(pos.Z) <= r)
}

// GetOrGenerateChunk returns the generated chunk, generating and caching it
// if needed.
func (w *World) GetOrGenerateChunk(cx, cz int) *gen.ChunkData {
	pos := world.ChunkPos{X: cx, Z: cz}

	w.mu.RLock()
	if c, ok := w.chunks[pos]; ok {
		w.mu.RUnlock()
		return c
	}
	w.mu.RUnlock()

	c := w.generator.Generate(cx, cz)

	w.mu.Lock()
	// Double-check after acquiring write lock.
	if existing, ok := w.chunks[pos]; ok {
		w.mu.Unlock()
		return existing
	}
	w.chunks[pos] = c
	w.mu.Unlock()
	return c
}

// PreGenerateRadius generates every chunk within radius of the origin and
// returns how many chunks that is.
func (w *World) PreGenerateRadius(radius int) int {
	n := 0
	for cx := -radius; cx <= radius; cx++ {
		for cz := -radius; cz <= radius; cz++ {
			w.GetOrGenerateChunk(cx, cz)
			n++
		}
	}
	return n
}

// HeightRange implements world.Reader.
func (w *World) HeightRange() (minY, maxY int) { return 0, gen.Height }

// BlockAt returns the block at (x, y, z), checking overrides first.
func (w *World) BlockAt(x, y, z int) material.Block {
	if y < 0 || y >= gen.Height {
		return material.AirBlock
	}
	w.mu.RLock()
	b, ok := w.blocks[world.BlockPos{X: x, Y: y, Z: z}]
	w.mu.RUnlock()
	if ok {
		return b
	}
	c := w.GetOrGenerateChunk(x>>4, z>>4)
	return c.BlockAt(x&0xF, y, z&0xF)
}

// HighestSolidY implements world.Reader.
func (w *World) HighestSolidY(x, z int) int {
	for y := gen.Height - 1; y >= 0; y-- {
		if material.IsSolid(w.BlockAt(x, y, z).Material) {
			return y
		}
	}
	return -1
}

// LoadChunkSnapshot captures the current state of one chunk.
func (w *World) LoadChunkSnapshot(ctx context.Context, pos world.ChunkPos) (*world.ChunkSnapshot, error) {
	if !w.inBounds(pos) {
		return nil, fmt.Errorf("load chunk %s: %w", pos, world.ErrChunkUnavailable)
	}
	if d := time.Duration(w.latency.Load()); d > 0 {
		t := time.NewTimer(d)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, fmt.Errorf("load chunk %s: %w", pos, ctx.Err())
		case <-t.C:
		}
	}
	w.loads.Add(1)

	c := w.GetOrGenerateChunk(pos.X, pos.Z)
	bx, bz := pos.MinBlock()
	b := world.NewSnapshotBuilder(pos, 0, gen.Height)

	w.mu.RLock()
	defer w.mu.RUnlock()
	for y := 0; y < gen.Height; y++ {
		for lz := 0; lz < 16; lz++ {
			for lx := 0; lx < 16; lx++ {
				if o, ok := w.blocks[world.BlockPos{X: bx + lx, Y: y, Z: bz + lz}]; ok {
					b.Set(lx, y, lz, o)
					continue
				}
				b.Set(lx, y, lz, c.BlockAt(lx, y, lz))
			}
		}
	}
	return b.Build(), nil
}

// SetBlock stores a block override. Writing the generated block back removes
// the override. physics is accepted for interface compatibility; the
// reference host has no block updates.
func (w *World) SetBlock(x, y, z int, b material.Block, physics bool) error {
	if y < 0 || y >= gen.Height {
		return fmt.Errorf("set block %d,%d,%d: %w", x, y, z, world.ErrOutOfBounds)
	}
	cx, cz := x>>4, z>>4
	if !w.inBounds(world.ChunkPos{X: cx, Z: cz}) {
		return fmt.Errorf("set block %d,%d,%d: %w", x, y, z, world.ErrChunkUnavailable)
	}
	if material.IsAir(b.Material) {
		b = material.AirBlock
	}
	// Ensure the chunk is generated so we know the base state.
	c := w.GetOrGenerateChunk(cx, cz)
	base := c.BlockAt(x&0xF, y, z&0xF)

	w.mu.Lock()
	defer w.mu.Unlock()
	pos := world.BlockPos{X: x, Y: y, Z: z}
	if b == base {
		delete(w.blocks, pos)
	} else {
		w.blocks[pos] = b
	}
	return nil
}

// SetBiome overrides the biome of the column containing (x, z). Biomes are
// per column; y is ignored.
func (w *World) SetBiome(x, _, z int, biome string) error {
	if _, ok := gen.BiomeID(biome); !ok {
		return fmt.Errorf("set biome %q: unknown biome", biome)
	}
	w.mu.Lock()
	w.biomes[[2]int{x, z}] = biome
	w.mu.Unlock()
	return nil
}

// BiomeAt returns the biome name of column (x, z).
func (w *World) BiomeAt(x, z int) string {
	w.mu.RLock()
	b, ok := w.biomes[[2]int{x, z}]
	w.mu.RUnlock()
	if ok {
		return b
	}
	return w.GetOrGenerateChunk(x>>4, z>>4).BiomeAt(x&0xF, z&0xF)
}

// ForEachOverride calls fn for every block override under a read lock.
func (w *World) ForEachOverride(fn func(pos world.BlockPos, b material.Block)) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for pos, b := range w.blocks {
		fn(pos, b)
	}
}

// ForEachBiome calls fn for every biome override under a read lock.
func (w *World) ForEachBiome(fn func(x, z int, biome string)) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for col, b := range w.biomes {
		fn(col[0], col[1], b)
	}
}

// LoadOverrides bulk-loads block and biome overrides, replacing existing ones.
func (w *World) LoadOverrides(blocks map[world.BlockPos]material.Block, biomes map[[2]int]string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.blocks = blocks
	if w.blocks == nil {
		w.blocks = make(map[world.BlockPos]material.Block)
	}
	w.biomes = biomes
	if w.biomes == nil {
		w.biomes = make(map[[2]int]string)
	}
}

// Overrides returns the number of block overrides.
func (w *World) Overrides() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.blocks)
}

// SurfaceHeight returns the generated terrain height at (x, z).
func (w *World) SurfaceHeight(x, z int) int {
	return w.generator.HeightAt(x, z)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
