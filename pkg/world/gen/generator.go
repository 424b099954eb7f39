package gen

import "github.com/go-theft-craft/blast/pkg/material"

// Height is the vertical extent of a generated column: y in [0, Height).
const Height = 256

// Section holds block data for a 16×16×16 vertical slice of a chunk.
// Index = y*256 + z*16 + x, value = generated state index (see States).
type Section struct {
	Blocks [4096]uint16
}

// ChunkData holds the generated terrain for one chunk column.
type ChunkData struct {
	Sections [16]*Section // nil = all-air
	Biomes   [256]byte    // index = z*16 + x → biome ID
}

// Generator produces chunk data deterministically from a seed.
type Generator interface {
	Generate(chunkX, chunkZ int) *ChunkData
	HeightAt(blockX, blockZ int) int
}

// New returns the generator registered under name ("flat" or "default").
func New(name string, seed int64) (Generator, bool) {
	switch name {
	case "flat":
		return NewFlatGenerator(seed), true
	case "default", "":
		return NewDefaultGenerator(seed), true
	}
	return nil, false
}

// SetBlock sets a block state at the given local coordinates within the chunk.
// x, z must be in [0,16), y must be in [0,256).
func (c *ChunkData) SetBlock(x, y, z int, state uint16) {
	sec := y >> 4
	if c.Sections[sec] == nil {
		if state == stateAir {
			return
		}
		c.Sections[sec] = &Section{}
	}
	c.Sections[sec].Blocks[(y&0xF)*256+z*16+x] = state
}

// GetBlock returns the block state at the given local coordinates.
func (c *ChunkData) GetBlock(x, y, z int) uint16 {
	sec := y >> 4
	if c.Sections[sec] == nil {
		return stateAir
	}
	return c.Sections[sec].Blocks[(y&0xF)*256+z*16+x]
}

// BlockAt returns the decoded block at local coordinates. Out-of-range y is air.
func (c *ChunkData) BlockAt(x, y, z int) material.Block {
	if y < 0 || y >= Height {
		return material.AirBlock
	}
	return BlockOf(c.GetBlock(x, y, z))
}

// SetBiome sets the biome ID at the given local x, z coordinates.
func (c *ChunkData) SetBiome(x, z int, biome byte) {
	c.Biomes[z*16+x] = biome
}

// BiomeAt returns the biome name at local x, z.
func (c *ChunkData) BiomeAt(x, z int) string {
	return BiomeName(c.Biomes[z*16+x])
}
