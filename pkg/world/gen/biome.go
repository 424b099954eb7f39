package gen

import "github.com/go-theft-craft/blast/pkg/noise"

// Biome IDs.
const (
	biomeOcean      byte = 0
	biomePlains     byte = 1
	biomeDesert     byte = 2
	biomeMountains  byte = 3
	biomeForest     byte = 4
	biomeTaiga      byte = 5
	biomeTundra     byte = 12
	biomeBeach      byte = 16
	biomeJungle     byte = 21
	biomeDarkForest byte = 29
	biomeSnowyTaiga byte = 30
	biomeSavanna    byte = 35
	biomeScorched   byte = 100
)

var biomeNames = map[byte]string{
	biomeOcean:      "ocean",
	biomePlains:     "plains",
	biomeDesert:     "desert",
	biomeMountains:  "windswept_hills",
	biomeForest:     "forest",
	biomeTaiga:      "taiga",
	biomeTundra:     "snowy_plains",
	biomeBeach:      "beach",
	biomeJungle:     "jungle",
	biomeDarkForest: "dark_forest",
	biomeSnowyTaiga: "snowy_taiga",
	biomeSavanna:    "savanna",
	biomeScorched:   "scorched_wastes",
}

// BiomeName returns the name of a biome ID, or "plains" for unknown IDs.
func BiomeName(id byte) string {
	if name, ok := biomeNames[id]; ok {
		return name
	}
	return "plains"
}

// BiomeID returns the ID for a biome name.
func BiomeID(name string) (byte, bool) {
	for id, n := range biomeNames {
		if n == name {
			return id, true
		}
	}
	return 0, false
}

// BiomeGenerator selects biomes using temperature/rainfall noise fields.
type BiomeGenerator struct {
	tempNoise *noise.Simplex
	rainNoise *noise.Simplex
	terrain   *noise.Simplex
}

// NewBiomeGenerator creates a BiomeGenerator from a seed.
func NewBiomeGenerator(seed int64) *BiomeGenerator {
	return &BiomeGenerator{
		tempNoise: noise.New(seed + 100),
		rainNoise: noise.New(seed + 200),
		terrain:   noise.New(seed),
	}
}

// BiomeAt returns the biome ID at the given world block coordinates.
func (bg *BiomeGenerator) BiomeAt(bx, bz int) byte {
	// Sample temperature and rainfall at large scale.
	tx := float64(bx) / 512.0
	tz := float64(bz) / 512.0
	temp := bg.tempNoise.Octave2D(tx, tz, 4, 0.5)*0.8 + 0.75 // center around 0.75
	rain := bg.rainNoise.Octave2D(tx+100, tz+100, 4, 0.5)*0.5 + 0.5

	// Check for ocean: very low terrain at this position.
	nx := float64(bx) / 128.0
	nz := float64(bz) / 128.0
	terrainBase := bg.terrain.Octave2D(nx, nz, 6, 0.5)
	terrainHeight := 62.0 + terrainBase*8.0
	if terrainHeight < float64(seaLevel)-8 {
		return biomeOcean
	}

	if terrainHeight < float64(seaLevel)-2 {
		return biomeBeach
	}

	return selectBiome(temp, rain)
}

// selectBiome maps temperature and rainfall to a biome ID.
//
//	Temp\Rain     | Dry (<0.3)    | Medium (0.3-0.6) | Wet (>0.6)
//	Cold <0.3     | Tundra        | Snowy Taiga       | Taiga
//	Mild 0.3-0.7  | Plains        | Forest            | Dark Forest
//	Warm 0.7-1.2  | Savanna       | Plains            | Jungle
//	Hot >1.2      | Desert        | Desert            | Jungle
func selectBiome(temp, rain float64) byte {
	switch {
	case temp < 0.3:
		switch {
		case rain < 0.3:
			return biomeTundra
		case rain < 0.6:
			return biomeSnowyTaiga
		default:
			return biomeTaiga
		}
	case temp < 0.7:
		switch {
		case rain < 0.3:
			return biomePlains
		case rain < 0.6:
			return biomeForest
		default:
			return biomeDarkForest
		}
	case temp < 1.2:
		switch {
		case rain < 0.3:
			return biomeSavanna
		case rain < 0.6:
			return biomePlains
		default:
			return biomeJungle
		}
	default:
		if rain > 0.6 {
			return biomeJungle
		}
		return biomeDesert
	}
}
