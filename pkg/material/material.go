package material

import "strings"

// Material is a block type name such as "stone" or "oak_log".
type Material string

const (
	Air     Material = "air"
	CaveAir Material = "cave_air"
	VoidAir Material = "void_air"

	Stone            Material = "stone"
	Cobblestone      Material = "cobblestone"
	MossyCobblestone Material = "mossy_cobblestone"
	Andesite         Material = "andesite"
	Diorite          Material = "diorite"
	Granite          Material = "granite"
	Tuff             Material = "tuff"
	Deepslate        Material = "deepslate"
	CobbledDeepslate Material = "cobbled_deepslate"
	Blackstone       Material = "blackstone"
	Basalt           Material = "basalt"
	SmoothBasalt     Material = "smooth_basalt"
	MagmaBlock       Material = "magma_block"
	Netherrack       Material = "netherrack"
	Obsidian         Material = "obsidian"
	CryingObsidian   Material = "crying_obsidian"
	Bedrock          Material = "bedrock"
	Barrier          Material = "barrier"

	Dirt       Material = "dirt"
	CoarseDirt Material = "coarse_dirt"
	RootedDirt Material = "rooted_dirt"
	GrassBlock Material = "grass_block"
	Podzol     Material = "podzol"
	Mycelium   Material = "mycelium"
	DirtPath   Material = "dirt_path"
	Farmland   Material = "farmland"
	Mud        Material = "mud"
	Clay       Material = "clay"
	Sand       Material = "sand"
	RedSand    Material = "red_sand"
	Sandstone  Material = "sandstone"
	Gravel     Material = "gravel"
	Glass      Material = "glass"
	Terracotta Material = "terracotta"
	SoulSand   Material = "soul_sand"
	SoulSoil   Material = "soul_soil"
	Snow       Material = "snow"
	SnowBlock  Material = "snow_block"
	Ice        Material = "ice"

	CoalOre     Material = "coal_ore"
	IronOre     Material = "iron_ore"
	GoldOre     Material = "gold_ore"
	DiamondOre  Material = "diamond_ore"
	RedstoneOre Material = "redstone_ore"
	LapisOre    Material = "lapis_ore"
	CoalBlock   Material = "coal_block"

	Water Material = "water"
	Lava  Material = "lava"
	Fire  Material = "fire"

	OakLog     Material = "oak_log"
	SpruceLog  Material = "spruce_log"
	BirchLog   Material = "birch_log"
	JungleLog  Material = "jungle_log"
	AcaciaLog  Material = "acacia_log"
	DarkOakLog Material = "dark_oak_log"

	OakLeaves    Material = "oak_leaves"
	SpruceLeaves Material = "spruce_leaves"
	BirchLeaves  Material = "birch_leaves"

	ShortGrass Material = "short_grass"
	TallGrass  Material = "tall_grass"
	Fern       Material = "fern"
	Dandelion  Material = "dandelion"
	Poppy      Material = "poppy"
	DeadBush   Material = "dead_bush"
	Cactus     Material = "cactus"
	SugarCane  Material = "sugar_cane"
	Wheat      Material = "wheat"
)

// IsAir reports whether m is one of the air variants. The empty material is
// treated as air.
func IsAir(m Material) bool {
	switch m {
	case Air, CaveAir, VoidAir, "":
		return true
	}
	return false
}

// IsLiquid reports whether m is a fluid source block.
func IsLiquid(m Material) bool {
	return m == Water || m == Lava || m == "bubble_column"
}

// IsLeaves reports whether m is any leaf block.
func IsLeaves(m Material) bool {
	return strings.HasSuffix(string(m), "_leaves")
}

// IsLog reports whether m is a log, wood, stem or hyphae block, stripped or not.
func IsLog(m Material) bool {
	s := string(m)
	if strings.HasSuffix(s, "melon_stem") || strings.HasSuffix(s, "pumpkin_stem") {
		return false
	}
	return strings.HasSuffix(s, "_log") ||
		strings.HasSuffix(s, "_wood") ||
		strings.HasSuffix(s, "_stem") ||
		strings.HasSuffix(s, "_hyphae")
}

// IsTreeBlock reports whether m belongs to a tree structure.
func IsTreeBlock(m Material) bool {
	return IsLeaves(m) || IsLog(m)
}

// IsPlant reports whether m is non-solid vegetation.
func IsPlant(m Material) bool {
	switch m {
	case ShortGrass, TallGrass, Fern, "large_fern", Dandelion, Poppy, DeadBush, SugarCane, Wheat,
		"carrots", "potatoes", "beetroots", "vine", "sweet_berry_bush", "kelp", "seagrass":
		return true
	}
	s := string(m)
	return strings.HasSuffix(s, "_sapling") || strings.HasSuffix(s, "_tulip") || strings.HasSuffix(s, "_mushroom")
}

// IsIndestructible reports whether explosions must never alter m.
func IsIndestructible(m Material) bool {
	switch m {
	case Bedrock, Barrier, "end_portal_frame", "end_portal", "command_block", "structure_block", "reinforced_deepslate":
		return true
	}
	return false
}

// IsSolid reports whether m occupies its block space.
func IsSolid(m Material) bool {
	return !IsAir(m) && !IsLiquid(m) && !IsPlant(m) && m != Fire && m != Snow
}

var woodFamilies = []string{"dark_oak", "oak", "spruce", "birch", "jungle", "acacia", "mangrove", "cherry", "crimson", "warped"}

// WoodFamily returns the wood family of a log, wood or leaf block ("oak",
// "spruce", ...) or "" when m is not wooden.
func WoodFamily(m Material) string {
	if !IsTreeBlock(m) {
		return ""
	}
	s := strings.TrimPrefix(string(m), "stripped_")
	for _, family := range woodFamilies {
		if strings.HasPrefix(s, family+"_") {
			return family
		}
	}
	return ""
}

// CharredWood returns the burnt replacement for a wood family.
func CharredWood(family string) Material {
	switch family {
	case "crimson", "warped":
		return Material("stripped_" + family + "_stem")
	case "spruce", "dark_oak", "mangrove":
		return Material("stripped_dark_oak_log")
	case "oak", "birch", "jungle", "acacia", "cherry":
		return Material("stripped_" + family + "_log")
	}
	return CoalBlock
}
