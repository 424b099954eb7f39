// Package cache is a two-tier read cache over immutable chunk snapshots.
//
// The local tier is a bounded LRU. Entries it evicts are demoted to the
// shared tier, which keeps a weak reference to the decoded snapshot plus a
// zstd-compressed copy under a byte budget, so the garbage collector may
// reclaim decoded chunks while the compressed form survives. Misses in both
// tiers are fetched from the host once per key, however many callers ask.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/go-theft-craft/blast/internal/metrics"
	"github.com/go-theft-craft/blast/internal/world"
	"github.com/go-theft-craft/blast/pkg/material"
)

// Options tunes a Cache. Zero fields take the defaults from DefaultOptions.
type Options struct {
	// LocalCapacity is the number of decoded snapshots kept in the LRU tier.
	LocalCapacity int
	// SharedBudget bounds the compressed bytes held by the shared tier.
	SharedBudget int64
	// MaxFetches bounds concurrent host snapshot loads.
	MaxFetches int64
	// FetchTimeout bounds a single host load.
	FetchTimeout time.Duration
	// PreloadRate is the number of preload batches started per second.
	PreloadRate float64
}

// DefaultOptions returns the tuned defaults.
func DefaultOptions() Options {
	return Options{
		LocalCapacity: 256,
		SharedBudget:  64 << 20,
		MaxFetches:    8,
		FetchTimeout:  5 * time.Second,
		PreloadRate:   20,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.LocalCapacity <= 0 {
		o.LocalCapacity = d.LocalCapacity
	}
	if o.SharedBudget <= 0 {
		o.SharedBudget = d.SharedBudget
	}
	if o.MaxFetches <= 0 {
		o.MaxFetches = d.MaxFetches
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = d.FetchTimeout
	}
	if o.PreloadRate <= 0 {
		o.PreloadRate = d.PreloadRate
	}
	return o
}

// Stats is a point-in-time copy of the cache counters.
type Stats struct {
	LocalHits   int64
	SharedHits  int64
	Misses      int64
	Fetches     int64
	FetchErrors int64
	Demotions   int64
	Evictions   int64
	LocalLen    int
	SharedLen   int
	SharedBytes int64
}

// Cache serves block and height queries from chunk snapshots. It is safe
// for concurrent use.
type Cache struct {
	reader     world.Reader
	opts       Options
	log        *slog.Logger
	minY, maxY int

	local  *localTier
	shared *sharedTier

	flights  singleflight.Group
	fetchers *semaphore.Weighted
	pacer    *rate.Limiter
	epoch    atomic.Uint64

	enc *zstd.Encoder
	dec *zstd.Decoder

	localHits, sharedHits, misses atomic.Int64
	fetches, fetchErrors          atomic.Int64
	demotions, evictions          atomic.Int64
}

// New creates a cache in front of reader.
func New(reader world.Reader, opts Options, log *slog.Logger) (*Cache, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	opts = opts.withDefaults()

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	minY, maxY := reader.HeightRange()
	c := &Cache{
		reader:   reader,
		opts:     opts,
		log:      log,
		minY:     minY,
		maxY:     maxY,
		local:    newLocalTier(opts.LocalCapacity),
		shared:   newSharedTier(opts.SharedBudget),
		fetchers: semaphore.NewWeighted(opts.MaxFetches),
		pacer:    rate.NewLimiter(rate.Limit(opts.PreloadRate), 1),
		enc:      enc,
		dec:      dec,
	}
	return c, nil
}

// Close releases the codec resources. The cache must not be used afterwards.
func (c *Cache) Close() {
	c.enc.Close()
	c.dec.Close()
}

// HeightRange returns the world's vertical bounds [minY, maxY).
func (c *Cache) HeightRange() (minY, maxY int) { return c.minY, c.maxY }

// Block returns the block at (x, y, z). Positions outside the vertical
// bounds are air and never trigger a fetch; fetch failures also read as air.
func (c *Cache) Block(ctx context.Context, x, y, z int) material.Block {
	if y < c.minY || y >= c.maxY {
		return material.AirBlock
	}
	snap, err := c.Snapshot(ctx, world.ChunkOf(x, z))
	if err != nil {
		c.log.Debug("block lookup failed", "x", x, "y", y, "z", z, "error", err)
		return material.AirBlock
	}
	return snap.Block(x&15, y, z&15)
}

// Material returns only the material at (x, y, z).
func (c *Cache) Material(ctx context.Context, x, y, z int) material.Material {
	return c.Block(ctx, x, y, z).Material
}

// Height returns the highest solid y of column (x, z), or minY-1 when the
// column is empty or its chunk cannot be loaded.
func (c *Cache) Height(ctx context.Context, x, z int) int {
	snap, err := c.Snapshot(ctx, world.ChunkOf(x, z))
	if err != nil {
		c.log.Debug("height lookup failed", "x", x, "z", z, "error", err)
		return c.minY - 1
	}
	return snap.Height(x&15, z&15)
}

// Snapshot returns the snapshot for pos, fetching it on a miss.
func (c *Cache) Snapshot(ctx context.Context, pos world.ChunkPos) (*world.ChunkSnapshot, error) {
	key := pos.Pack()
	if snap, ok := c.local.get(key); ok {
		c.localHits.Add(1)
		metrics.CacheLookups.WithLabelValues("local_hit").Inc()
		return snap, nil
	}
	if snap, ok := c.fromShared(key); ok {
		c.sharedHits.Add(1)
		metrics.CacheLookups.WithLabelValues("shared_hit").Inc()
		c.promote(key, snap)
		return snap, nil
	}

	c.misses.Add(1)
	metrics.CacheLookups.WithLabelValues("miss").Inc()

	ch := c.flights.DoChan(strconv.FormatUint(key, 36), func() (any, error) {
		return c.fetch(ctx, pos, key)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*world.ChunkSnapshot), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// fetch runs once per key at a time. It rechecks both tiers because a
// previous flight may have filled them after the caller's lookup.
func (c *Cache) fetch(ctx context.Context, pos world.ChunkPos, key uint64) (*world.ChunkSnapshot, error) {
	if snap, ok := c.local.get(key); ok {
		return snap, nil
	}
	if snap, ok := c.fromShared(key); ok {
		c.promote(key, snap)
		return snap, nil
	}

	// Detach from the first caller's cancellation: other callers share this
	// flight and each waits on its own context.
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.FetchTimeout)
	defer cancel()

	if err := c.fetchers.Acquire(fctx, 1); err != nil {
		return nil, fmt.Errorf("acquire fetch slot for chunk %s: %w", pos, err)
	}
	epoch := c.epoch.Load()
	snap, err := c.reader.LoadChunkSnapshot(fctx, pos)
	c.fetchers.Release(1)

	c.fetches.Add(1)
	if err != nil {
		c.fetchErrors.Add(1)
		metrics.CacheFetches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("load chunk %s: %w", pos, err)
	}
	if snap == nil {
		c.fetchErrors.Add(1)
		metrics.CacheFetches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("load chunk %s: %w", pos, world.ErrChunkUnavailable)
	}
	metrics.CacheFetches.WithLabelValues("ok").Inc()

	// An invalidation during the load means the snapshot may be stale; hand
	// it to the waiting callers but do not keep it.
	if c.epoch.Load() != epoch {
		return snap, nil
	}
	c.storeShared(key, snap)
	c.promote(key, snap)
	return snap, nil
}

// promote inserts snap into the local tier and demotes whatever it evicts.
func (c *Cache) promote(key uint64, snap *world.ChunkSnapshot) {
	evictedKey, evicted, ok := c.local.put(key, snap)
	if !ok {
		return
	}
	c.demotions.Add(1)
	metrics.CacheEvictions.WithLabelValues("local").Inc()
	c.storeShared(evictedKey, evicted)
}

func (c *Cache) fromShared(key uint64) (*world.ChunkSnapshot, bool) {
	snap, packed, ok := c.shared.get(key)
	if !ok {
		return nil, false
	}
	if snap != nil {
		return snap, true
	}
	raw, err := c.dec.DecodeAll(packed, nil)
	if err != nil {
		c.log.Warn("decompress shared snapshot", "chunk", world.UnpackChunk(key), "error", err)
		c.shared.remove(key)
		return nil, false
	}
	snap, err = world.UnmarshalChunkSnapshot(raw)
	if err != nil {
		c.log.Warn("decode shared snapshot", "chunk", world.UnpackChunk(key), "error", err)
		c.shared.remove(key)
		return nil, false
	}
	c.shared.rebind(key, snap)
	return snap, true
}

func (c *Cache) storeShared(key uint64, snap *world.ChunkSnapshot) {
	if c.shared.refresh(key, snap) {
		return
	}
	raw, err := snap.MarshalBinary()
	if err != nil {
		c.log.Warn("encode snapshot for shared tier", "chunk", snap.Pos(), "error", err)
		return
	}
	packed := c.enc.EncodeAll(raw, make([]byte, 0, len(raw)/4))
	evicted := c.shared.put(key, snap, packed)
	if evicted > 0 {
		c.evictions.Add(int64(evicted))
		metrics.CacheEvictions.WithLabelValues("shared").Add(float64(evicted))
	}
	metrics.CacheSharedBytes.Set(float64(c.shared.size()))
}

// Invalidate drops pos from both tiers. Absent keys are ignored.
func (c *Cache) Invalidate(pos world.ChunkPos) {
	key := pos.Pack()
	c.epoch.Add(1)
	c.local.remove(key)
	c.shared.remove(key)
	c.flights.Forget(strconv.FormatUint(key, 36))
}

// Stats returns the current counters.
func (c *Cache) Stats() Stats {
	sharedLen, sharedBytes := c.shared.stats()
	return Stats{
		LocalHits:   c.localHits.Load(),
		SharedHits:  c.sharedHits.Load(),
		Misses:      c.misses.Load(),
		Fetches:     c.fetches.Load(),
		FetchErrors: c.fetchErrors.Load(),
		Demotions:   c.demotions.Load(),
		Evictions:   c.evictions.Load(),
		LocalLen:    c.local.len(),
		SharedLen:   sharedLen,
		SharedBytes: sharedBytes,
	}
}
