// Package world defines the boundary between the destruction engine and the
// host world model, plus the coordinate and snapshot types shared by every
// engine component.
package world

import (
	"context"
	"errors"
	"time"

	"github.com/go-theft-craft/blast/pkg/material"
)

var (
	// ErrChunkUnavailable is returned when a chunk cannot be loaded, for
	// example because its region is not resident.
	ErrChunkUnavailable = errors.New("chunk unavailable")
	// ErrOutOfBounds is returned for coordinates outside the world.
	ErrOutOfBounds = errors.New("position out of bounds")
)

// Reader is the read side of the host world. Implementations must be safe
// for concurrent use.
type Reader interface {
	// HeightRange returns the vertical bounds [minY, maxY).
	HeightRange() (minY, maxY int)
	BlockAt(x, y, z int) material.Block
	// HighestSolidY returns the Y of the topmost solid block in the column,
	// or minY-1 when the column is empty.
	HighestSolidY(x, z int) int
	LoadChunkSnapshot(ctx context.Context, pos ChunkPos) (*ChunkSnapshot, error)
}

// Writer mutates the authoritative world. It may only be used inside a
// Scheduler.Sync callback.
type Writer interface {
	// SetBlock replaces the block at (x, y, z). physics requests neighbour
	// updates from the host.
	SetBlock(x, y, z int, b material.Block, physics bool) error
	SetBiome(x, y, z int, biome string) error
}

// Scheduler marshals work onto the host's single writer context. Sync blocks
// until fn has run or ctx is done.
type Scheduler interface {
	Sync(ctx context.Context, fn func(Writer)) error
}

// TickSource is implemented by schedulers that can report how long the last
// host tick took.
type TickSource interface {
	TickDuration() time.Duration
}

// MaterialAt is a convenience wrapper returning only the material of a block.
func MaterialAt(r Reader, x, y, z int) material.Material {
	return r.BlockAt(x, y, z).Material
}

// BlockSource is a read view used by the destruction algorithms. The
// snapshot cache is the usual implementation.
type BlockSource interface {
	HeightRange() (minY, maxY int)
	Block(ctx context.Context, x, y, z int) material.Block
	// Height returns the highest solid y of a column, or minY-1 when empty.
	Height(ctx context.Context, x, z int) int
}
