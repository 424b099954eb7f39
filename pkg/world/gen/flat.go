package gen

import "github.com/go-theft-craft/blast/pkg/material"

// Generated block states. A chunk section stores these indices; States maps
// them back to blocks.
const (
	stateAir uint16 = iota
	stateStone
	stateGrass
	stateDirt
	stateBedrock
	stateWater
	stateSand
	stateGravel
	stateSandstone
	stateOakLog
	stateSpruceLog
	stateBirchLog
	stateOakLeaves
	stateSpruceLeaves
	stateBirchLeaves
	stateTallGrass
	stateFlower
	stateCactus
	stateDeadBush
	stateCoalOre
	stateIronOre
	stateGoldOre
	stateDiamondOre
	stateRedstoneOre
	stateLapisOre
	stateLava
	stateSnowyGrass
	stateCount
)

var logAxisY = material.State{Set: material.PropAxis, Axis: material.AxisY}

// States is the block for every generated state index.
var States = [stateCount]material.Block{
	stateAir:          material.AirBlock,
	stateStone:        material.Of(material.Stone),
	stateGrass:        {Material: material.GrassBlock, State: material.State{Set: material.PropSnowy}},
	stateDirt:         material.Of(material.Dirt),
	stateBedrock:      material.Of(material.Bedrock),
	stateWater:        material.Of(material.Water),
	stateSand:         material.Of(material.Sand),
	stateGravel:       material.Of(material.Gravel),
	stateSandstone:    material.Of(material.Sandstone),
	stateOakLog:       {Material: material.OakLog, State: logAxisY},
	stateSpruceLog:    {Material: material.SpruceLog, State: logAxisY},
	stateBirchLog:     {Material: material.BirchLog, State: logAxisY},
	stateOakLeaves:    {Material: material.OakLeaves, State: material.State{Set: material.PropWaterlogged}},
	stateSpruceLeaves: {Material: material.SpruceLeaves, State: material.State{Set: material.PropWaterlogged}},
	stateBirchLeaves:  {Material: material.BirchLeaves, State: material.State{Set: material.PropWaterlogged}},
	stateTallGrass:    material.Of(material.ShortGrass),
	stateFlower:       material.Of(material.Dandelion),
	stateCactus:       {Material: material.Cactus, State: material.State{Set: material.PropAge}},
	stateDeadBush:     material.Of(material.DeadBush),
	stateCoalOre:      material.Of(material.CoalOre),
	stateIronOre:      material.Of(material.IronOre),
	stateGoldOre:      material.Of(material.GoldOre),
	stateDiamondOre:   material.Of(material.DiamondOre),
	stateRedstoneOre:  material.Of(material.RedstoneOre),
	stateLapisOre:     material.Of(material.LapisOre),
	stateLava:         material.Of(material.Lava),
	stateSnowyGrass:   {Material: material.GrassBlock, State: material.State{Set: material.PropSnowy, Snowy: true}},
}

// BlockOf returns the block for a generated state index. Unknown indices are air.
func BlockOf(state uint16) material.Block {
	if int(state) >= len(States) {
		return material.AirBlock
	}
	return States[state]
}

const seaLevel = 62

// FlatGenerator generates a classic superflat world:
// bedrock at y=0, stone y=1..2, dirt y=3, grass y=4.
type FlatGenerator struct{}

// NewFlatGenerator creates a FlatGenerator.
func NewFlatGenerator(_ int64) *FlatGenerator {
	return &FlatGenerator{}
}

func (g *FlatGenerator) Generate(_, _ int) *ChunkData {
	c := &ChunkData{}

	for x := 0; x < 16; x++ {
		for z := 0; z < 16; z++ {
			c.SetBlock(x, 0, z, stateBedrock)
			c.SetBlock(x, 1, z, stateStone)
			c.SetBlock(x, 2, z, stateStone)
			c.SetBlock(x, 3, z, stateDirt)
			c.SetBlock(x, 4, z, stateGrass)
			c.SetBiome(x, z, biomePlains)
		}
	}
	return c
}

func (g *FlatGenerator) HeightAt(_, _ int) int {
	return 4 // top solid block is at y=4 (grass)
}
