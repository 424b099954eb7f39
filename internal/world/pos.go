package world

import "fmt"

// ChunkPos identifies a 16x16 chunk column.
type ChunkPos struct{ X, Z int }

// ChunkOf returns the chunk containing block column (x, z).
func ChunkOf(x, z int) ChunkPos {
	return ChunkPos{X: x >> 4, Z: z >> 4}
}

// Pack folds the chunk coordinate into one 64-bit key: x<<32 | z&0xFFFFFFFF.
// Lossless for coordinates in the int32 range.
func (p ChunkPos) Pack() uint64 {
	return uint64(int64(p.X))<<32 | uint64(uint32(int32(p.Z)))
}

// UnpackChunk reverses ChunkPos.Pack.
func UnpackChunk(key uint64) ChunkPos {
	return ChunkPos{X: int(int32(key >> 32)), Z: int(int32(uint32(key)))}
}

// MinBlock returns the block coordinates of the chunk's north-west corner.
func (p ChunkPos) MinBlock() (x, z int) { return p.X << 4, p.Z << 4 }

func (p ChunkPos) String() string { return fmt.Sprintf("%d,%d", p.X, p.Z) }

// BlockPos is a world block position.
type BlockPos struct{ X, Y, Z int }

// Block coordinate packing: 26 bits x, 26 bits z, 12 bits y, all two's
// complement. Lossless for |x|, |z| < 2^25 and y in [-2048, 2048).
const (
	packXZBits = 26
	packYBits  = 12
	packXZMask = 1<<packXZBits - 1
	packYMask  = 1<<packYBits - 1
)

// PackBlock packs a block position into one 64-bit key.
func PackBlock(x, y, z int) uint64 {
	return uint64(x&packXZMask)<<(packXZBits+packYBits) |
		uint64(z&packXZMask)<<packYBits |
		uint64(y&packYMask)
}

// UnpackBlock reverses PackBlock.
func UnpackBlock(key uint64) (x, y, z int) {
	x = int(int64(key) >> (packXZBits + packYBits))
	z = int(int64(key<<packXZBits) >> (packXZBits + packYBits))
	y = int(int64(key<<(64-packYBits)) >> (64 - packYBits))
	return x, y, z
}

// Pack packs p with PackBlock.
func (p BlockPos) Pack() uint64 { return PackBlock(p.X, p.Y, p.Z) }

// Chunk returns the chunk containing p.
func (p BlockPos) Chunk() ChunkPos { return ChunkOf(p.X, p.Z) }
