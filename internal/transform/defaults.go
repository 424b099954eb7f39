package transform

import "github.com/go-theft-craft/blast/pkg/material"

var stoneLike = Materials(
	material.Stone, material.Deepslate, material.Andesite, material.Diorite,
	material.Granite, material.Tuff, material.Cobblestone, material.CobbledDeepslate,
)

// DefaultRules returns the built-in rule set.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "indestructible", Priority: 1000, When: mustCategory("indestructible"), Then: Keep{}},
		{Name: "air", Priority: 900, When: mustCategory("air"), Then: Keep{}},
		{
			Name:     "obsidian-crying",
			Priority: 860,
			When:     AtLeast(0.9, Materials(material.Obsidian)),
			Then:     Chance{Probability: 0.3, Then: Fixed{material.CryingObsidian}},
		},
		{Name: "obsidian", Priority: 850, When: Materials(material.Obsidian, material.CryingObsidian), Then: Keep{}},
		{Name: "liquids", Priority: 800, When: mustCategory("liquid"), Then: Keep{}},
		{Name: "leaves", Priority: 700, When: mustCategory("leaves"), Then: Fixed{material.Air}},
		{Name: "logs-shattered", Priority: 660, When: AtLeast(0.7, mustCategory("log")), Then: Fixed{material.Air}},
		{
			Name:     "logs-charred",
			Priority: 650,
			When:     mustCategory("log"),
			Then: NoisePalette{material.NewPalette(0.2,
				material.Entry{Material: "stripped_dark_oak_log", Weight: 3},
				material.Entry{Material: material.CoalBlock, Weight: 1},
			)},
		},
		{
			Name:     "grass-scorched",
			Priority: 600,
			When:     Materials(material.GrassBlock, material.Podzol, material.Mycelium, material.DirtPath, material.Farmland),
			Then: NoisePalette{material.NewPalette(0.15,
				material.Entry{Material: material.CoarseDirt, Weight: 3},
				material.Entry{Material: material.Dirt, Weight: 2},
				material.Entry{Material: material.RootedDirt, Weight: 1},
			)},
		},
		{
			Name:     "sand-fused",
			Priority: 550,
			When:     AtLeast(0.8, Materials(material.Sand, material.RedSand)),
			Then:     Chance{Probability: 0.35, Then: Fixed{material.Glass}, Else: Fixed{material.Sandstone}},
		},
		{
			Name:     "stone-pulverized",
			Priority: 510,
			When:     AtLeast(0.75, stoneLike),
			Then: NoisePalette{material.NewPalette(0.12,
				material.Entry{Material: material.Gravel, Weight: 3},
				material.Entry{Material: material.Blackstone, Weight: 1},
				material.Entry{Material: material.CobbledDeepslate, Weight: 1},
			)},
		},
		{
			Name:     "stone-cracked",
			Priority: 500,
			When:     stoneLike,
			Then: Chance{Probability: 1, ScaleByPower: true, Then: NoisePalette{material.NewPalette(0.12,
				material.Entry{Material: material.Cobblestone, Weight: 4},
				material.Entry{Material: material.Gravel, Weight: 2},
				material.Entry{Material: material.Andesite, Weight: 1},
			)}},
		},
		{
			Name:     "dirt-loosened",
			Priority: 450,
			When:     Materials(material.Dirt, material.RootedDirt, material.Mud),
			Then:     Chance{Probability: 0.6, ScaleByPower: true, Then: Fixed{material.CoarseDirt}},
		},
		{Name: "plants", Priority: 300, When: mustCategory("plant"), Then: Fixed{material.Air}},
		{Name: "snow", Priority: 200, When: Materials(material.Snow, material.SnowBlock), Then: Fixed{material.Air}},
		{Name: "ice", Priority: 190, When: Materials(material.Ice), Then: Fixed{material.Water}},
		{
			Name:     "rubble",
			Priority: 100,
			When:     AtLeast(0.6, mustCategory("solid")),
			Then: NoisePalette{material.NewPalette(0.1,
				material.Entry{Material: material.Cobblestone, Weight: 2},
				material.Entry{Material: material.Gravel, Weight: 1},
				material.Entry{Material: material.CoarseDirt, Weight: 1},
			)},
		},
	}
}

// Default returns an engine over DefaultRules.
func Default() *Engine {
	e, err := New(DefaultRules()...)
	if err != nil {
		panic("transform: default rules invalid: " + err.Error())
	}
	return e
}
