package gen

// TreeGenerator places trees and vegetation per biome.
type TreeGenerator struct {
	seed int64
}

// NewTreeGenerator creates a TreeGenerator from a seed.
func NewTreeGenerator(seed int64) *TreeGenerator {
	return &TreeGenerator{seed: seed}
}

// Decorate places trees and vegetation in the chunk.
func (tg *TreeGenerator) Decorate(c *ChunkData, chunkX, chunkZ int, heights *[16][16]int) {
	rng := newChunkRNG(tg.seed, chunkX, chunkZ, 600)

	// Tree density follows the biome at the chunk center.
	centerBiome := c.Biomes[8*16+8]

	for range treesForBiome(centerBiome) {
		x := rng.nextN(16)
		z := rng.nextN(16)
		y := heights[x][z]

		if y <= seaLevel || y >= Height-6 {
			continue
		}
		if !isGrass(c.GetBlock(x, y, z)) {
			continue
		}

		tg.placeTree(c, x, y+1, z, c.Biomes[z*16+x], rng)
	}

	tg.placeVegetation(c, heights, rng)
}

func treesForBiome(biome byte) int {
	switch biome {
	case biomeDesert, biomeOcean, biomeBeach:
		return 0
	case biomePlains, biomeSavanna:
		return 1
	case biomeTundra, biomeSnowyTaiga:
		return 4
	case biomeTaiga:
		return 6
	case biomeForest:
		return 8
	case biomeDarkForest:
		return 10
	case biomeJungle:
		return 12
	default:
		return 2
	}
}

// placeTree places a single tree at the given position. Constrained to chunk bounds.
func (tg *TreeGenerator) placeTree(c *ChunkData, x, baseY, z int, biome byte, rng *chunkRNG) {
	switch biome {
	case biomeTaiga, biomeSnowyTaiga:
		placeSpruce(c, x, baseY, z, rng)
	case biomeForest, biomeDarkForest:
		if rng.nextN(3) == 0 {
			placeRound(c, x, baseY, z, 5+rng.nextN(2), stateBirchLog, stateBirchLeaves, rng)
		} else {
			placeRound(c, x, baseY, z, 4+rng.nextN(3), stateOakLog, stateOakLeaves, rng)
		}
	default:
		placeRound(c, x, baseY, z, 4+rng.nextN(3), stateOakLog, stateOakLeaves, rng)
	}
}

// placeRound places an oak-shaped tree: a trunk topped by a rounded canopy.
func placeRound(c *ChunkData, x, baseY, z, trunkHeight int, log, leaves uint16, rng *chunkRNG) {
	if baseY+trunkHeight+2 >= Height {
		return
	}

	for y := baseY; y < baseY+trunkHeight; y++ {
		setIfInBounds(c, x, y, z, log)
	}

	leafBase := baseY + trunkHeight - 2
	for dy := 0; dy < 4; dy++ {
		y := leafBase + dy
		radius := 2
		if dy >= 2 {
			radius = 1
		}
		for dx := -radius; dx <= radius; dx++ {
			for dz := -radius; dz <= radius; dz++ {
				lx, lz := x+dx, z+dz
				if lx < 0 || lx >= 16 || lz < 0 || lz >= 16 {
					continue
				}
				// Skip corners for round shape on wider layers.
				if radius == 2 && abs(dx) == 2 && abs(dz) == 2 && rng.nextN(2) == 0 {
					continue
				}
				if c.GetBlock(lx, y, lz) == stateAir {
					c.SetBlock(lx, y, lz, leaves)
				}
			}
		}
	}
}

// placeSpruce places a conical spruce tree.
func placeSpruce(c *ChunkData, x, baseY, z int, rng *chunkRNG) {
	trunkHeight := 6 + rng.nextN(4) // 6-9

	if baseY+trunkHeight+1 >= Height {
		return
	}

	for y := baseY; y < baseY+trunkHeight; y++ {
		setIfInBounds(c, x, y, z, stateSpruceLog)
	}

	// Widest at the bottom, narrowing to the top.
	for dy := 1; dy <= trunkHeight; dy++ {
		y := baseY + dy
		radius := min((trunkHeight-dy)/2, 3)
		if radius <= 0 && dy < trunkHeight {
			continue
		}
		if radius >= 2 && dy%2 == 0 {
			continue
		}
		for dx := -radius; dx <= radius; dx++ {
			for dz := -radius; dz <= radius; dz++ {
				lx, lz := x+dx, z+dz
				if lx < 0 || lx >= 16 || lz < 0 || lz >= 16 {
					continue
				}
				if dx == 0 && dz == 0 {
					continue
				}
				if c.GetBlock(lx, y, lz) == stateAir {
					c.SetBlock(lx, y, lz, stateSpruceLeaves)
				}
			}
		}
	}
	c.SetBlock(x, baseY+trunkHeight, z, stateSpruceLeaves)
}

// placeVegetation scatters grass, flowers, cacti and dead bushes.
func (tg *TreeGenerator) placeVegetation(c *ChunkData, heights *[16][16]int, rng *chunkRNG) {
	for range 20 {
		x := rng.nextN(16)
		z := rng.nextN(16)
		y := heights[x][z]
		if y <= seaLevel || y >= Height-4 {
			continue
		}
		biome := c.Biomes[z*16+x]
		top := c.GetBlock(x, y, z)
		if c.GetBlock(x, y+1, z) != stateAir {
			continue
		}

		switch biome {
		case biomeDesert:
			if top != stateSand {
				continue
			}
			if rng.nextN(8) == 0 {
				h := 1 + rng.nextN(3)
				for dy := 1; dy <= h; dy++ {
					c.SetBlock(x, y+dy, z, stateCactus)
				}
			} else if rng.nextN(4) == 0 {
				c.SetBlock(x, y+1, z, stateDeadBush)
			}

		case biomePlains, biomeForest, biomeDarkForest, biomeSavanna, biomeJungle:
			if !isGrass(top) {
				continue
			}
			if rng.nextN(3) == 0 {
				c.SetBlock(x, y+1, z, stateTallGrass)
			} else if rng.nextN(8) == 0 {
				c.SetBlock(x, y+1, z, stateFlower)
			}

		case biomeTaiga, biomeSnowyTaiga, biomeTundra:
			if !isGrass(top) {
				continue
			}
			if rng.nextN(6) == 0 {
				c.SetBlock(x, y+1, z, stateTallGrass)
			}
		}
	}
}

func setIfInBounds(c *ChunkData, x, y, z int, state uint16) {
	if x >= 0 && x < 16 && z >= 0 && z < 16 && y >= 0 && y < Height {
		c.SetBlock(x, y, z, state)
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
