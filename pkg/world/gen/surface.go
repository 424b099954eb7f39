package gen

// layer is depth blocks of one state, laid from the column top downwards.
type layer struct {
	state uint16
	depth int
}

var (
	grassLayers      = []layer{{stateGrass, 1}, {stateDirt, 3}}
	snowyGrassLayers = []layer{{stateSnowyGrass, 1}, {stateDirt, 3}}
	underwaterLayers = []layer{{stateDirt, 4}}
	bareStoneLayers  = []layer{{stateStone, 4}}

	surfaceLayers = map[byte][]layer{
		biomeDesert:     {{stateSand, 4}, {stateSandstone, 2}},
		biomeOcean:      {{stateGravel, 3}, {stateDirt, 2}},
		biomeBeach:      {{stateSand, 4}, {stateSandstone, 1}},
		biomeSnowyTaiga: snowyGrassLayers,
		biomeTundra:     snowyGrassLayers,
	}
)

// treeLine is the height above which mountains are bare stone.
const treeLine = 100

// surfaceFor returns the layers capping a column of the given biome and
// height.
func surfaceFor(biome byte, height int) []layer {
	if l, ok := surfaceLayers[biome]; ok {
		return l
	}
	switch {
	case biome == biomeMountains && height > treeLine:
		return bareStoneLayers
	case height <= seaLevel:
		return underwaterLayers
	}
	return grassLayers
}

// applySurface caps the stone column with its biome layers. The bottom four
// blocks are never overwritten.
func applySurface(c *ChunkData, x, z, height int, biome byte) {
	y := height
	for _, l := range surfaceFor(biome, height) {
		for range l.depth {
			if y <= 3 {
				return
			}
			c.SetBlock(x, y, z, l.state)
			y--
		}
	}
}

func isGrass(state uint16) bool {
	return state == stateGrass || state == stateSnowyGrass
}
