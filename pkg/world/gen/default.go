package gen

import "github.com/go-theft-craft/blast/pkg/noise"

// DefaultGenerator produces hilly terrain with biomes, tunnels, ore and trees.
type DefaultGenerator struct {
	terrain     *noise.Simplex
	detail      *noise.Simplex
	biomeGen    *BiomeGenerator
	underground *Underground
	treeGen     *TreeGenerator
}

// NewDefaultGenerator creates a DefaultGenerator from a seed.
func NewDefaultGenerator(seed int64) *DefaultGenerator {
	return &DefaultGenerator{
		terrain:     noise.New(seed),
		detail:      noise.New(seed + 1),
		biomeGen:    NewBiomeGenerator(seed),
		underground: NewUnderground(seed),
		treeGen:     NewTreeGenerator(seed),
	}
}

func (g *DefaultGenerator) Generate(chunkX, chunkZ int) *ChunkData {
	c := &ChunkData{}

	// Pass 1: heightmap, terrain and biomes. Pass 2: tunnels and ore.
	var heights [16][16]int
	for x := 0; x < 16; x++ {
		for z := 0; z < 16; z++ {
			bx := chunkX*16 + x
			bz := chunkZ*16 + z

			biome := g.biomeGen.BiomeAt(bx, bz)
			c.SetBiome(x, z, biome)

			height := g.terrainHeight(bx, bz, biome)
			heights[x][z] = height

			g.fillColumn(c, x, z, height, biome)
		}
	}

	g.underground.Carve(c, chunkX, chunkZ, &heights)
	g.underground.Seed(c, chunkX, chunkZ, &heights)

	// Pass 3: trees and vegetation.
	g.treeGen.Decorate(c, chunkX, chunkZ, &heights)

	return c
}

func (g *DefaultGenerator) HeightAt(blockX, blockZ int) int {
	biome := g.biomeGen.BiomeAt(blockX, blockZ)
	return g.terrainHeight(blockX, blockZ, biome)
}

// terrainHeight computes the terrain height at a world block coordinate.
// Different biomes scale noise amplitude differently.
func (g *DefaultGenerator) terrainHeight(bx, bz int, biome byte) int {
	nx := float64(bx) / 128.0
	nz := float64(bz) / 128.0
	base := g.terrain.Octave2D(nx, nz, 6, 0.5)

	dx := float64(bx) / 32.0
	dz := float64(bz) / 32.0
	detail := g.detail.Octave2D(dx, dz, 3, 0.5)

	amplitude, baseHeight := biomeTerrainParams(biome)

	h := int(baseHeight + base*amplitude + detail*4.0)
	return max(1, min(h, 240))
}

// biomeTerrainParams returns (amplitude, baseHeight) for terrain noise scaling.
func biomeTerrainParams(biome byte) (amplitude, baseHeight float64) {
	switch biome {
	case biomeOcean:
		return 8.0, 40.0
	case biomePlains, biomeSavanna:
		return 12.0, float64(seaLevel)
	case biomeForest, biomeDarkForest:
		return 16.0, float64(seaLevel) + 2
	case biomeTaiga, biomeSnowyTaiga:
		return 18.0, float64(seaLevel) + 4
	case biomeDesert:
		return 10.0, float64(seaLevel) + 2
	case biomeJungle:
		return 18.0, float64(seaLevel) + 4
	case biomeMountains:
		return 40.0, float64(seaLevel) + 10
	case biomeBeach:
		return 3.0, float64(seaLevel)
	case biomeTundra:
		return 10.0, float64(seaLevel)
	default:
		return 14.0, float64(seaLevel)
	}
}

// fillColumn fills a single block column with terrain blocks.
func (g *DefaultGenerator) fillColumn(c *ChunkData, x, z, height int, biome byte) {
	// Bedrock: y=0 always, y=1..3 randomized.
	c.SetBlock(x, 0, z, stateBedrock)
	for y := 1; y <= 3; y++ {
		bx := x + y*7
		if g.terrain.Noise2D(float64(bx)*0.5, float64(z)*0.5) > 0.0 {
			c.SetBlock(x, y, z, stateBedrock)
		} else {
			c.SetBlock(x, y, z, stateStone)
		}
	}

	stoneTop := max(height-surfaceLayerDepth(biome), 4)
	for y := 4; y <= stoneTop && y <= height; y++ {
		c.SetBlock(x, y, z, stateStone)
	}

	applySurface(c, x, z, height, biome)

	if height < seaLevel {
		for y := height + 1; y <= seaLevel; y++ {
			c.SetBlock(x, y, z, stateWater)
		}
	}
}

// surfaceLayerDepth returns how many blocks of surface material go below the top block.
func surfaceLayerDepth(biome byte) int {
	if biome == biomeDesert {
		return 5
	}
	return 4
}
