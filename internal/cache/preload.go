package cache

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/go-theft-craft/blast/internal/world"
)

// Preload warms the cache with coords, batchSize chunks at a time. Batches
// are paced by the preload rate limiter. Chunks that fail to load are
// logged and skipped; only cancellation is returned as an error.
func (c *Cache) Preload(ctx context.Context, coords []world.ChunkPos, batchSize int) error {
	if batchSize <= 0 {
		batchSize = int(c.opts.MaxFetches)
	}
	pending := make([]world.ChunkPos, 0, len(coords))
	seen := make(map[uint64]struct{}, len(coords))
	for _, pos := range coords {
		key := pos.Pack()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if _, ok := c.local.get(key); ok {
			continue
		}
		pending = append(pending, pos)
	}

	for start := 0; start < len(pending); start += batchSize {
		if err := c.pacer.Wait(ctx); err != nil {
			return fmt.Errorf("preload: %w", err)
		}
		batch := pending[start:min(start+batchSize, len(pending))]

		g, gctx := errgroup.WithContext(ctx)
		for _, pos := range batch {
			g.Go(func() error {
				if _, err := c.Snapshot(gctx, pos); err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					c.log.Debug("preload chunk failed", "chunk", pos, "error", err)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("preload: %w", err)
		}
	}
	c.log.Debug("preload complete", "requested", len(coords), "loaded", len(pending))
	return nil
}

// ChunksAround returns the chunk coordinates covering a square of block
// columns centered on (x, z) with the given block radius.
func ChunksAround(x, z, radius int) []world.ChunkPos {
	lo := world.ChunkOf(x-radius, z-radius)
	hi := world.ChunkOf(x+radius, z+radius)
	out := make([]world.ChunkPos, 0, (hi.X-lo.X+1)*(hi.Z-lo.Z+1))
	for cx := lo.X; cx <= hi.X; cx++ {
		for cz := lo.Z; cz <= hi.Z; cz++ {
			out = append(out, world.ChunkPos{X: cx, Z: cz})
		}
	}
	return out
}
