package material

import "strings"

// PropertyMask is a bit set of block sub-properties.
type PropertyMask uint16

const (
	PropFacing PropertyMask = 1 << iota
	PropHalf
	PropAxis
	PropWaterlogged
	PropSnowy
	PropOpen
	PropPowered
	PropShape
	PropAge
)

// Has reports whether all bits of p are set in m.
func (m PropertyMask) Has(p PropertyMask) bool { return m&p == p }

// Facing is a horizontal or vertical orientation.
type Facing uint8

const (
	North Facing = iota
	East
	South
	West
	Up
	Down
)

// Half distinguishes the lower and upper part of stairs, slabs, doors and trapdoors.
type Half uint8

const (
	Bottom Half = iota
	Top
)

// Axis is the orientation of pillar-like blocks.
type Axis uint8

const (
	AxisY Axis = iota
	AxisX
	AxisZ
)

// RailShape enumerates the ten rail shapes.
type RailShape uint8

const (
	RailNorthSouth RailShape = iota
	RailEastWest
	RailAscendingEast
	RailAscendingWest
	RailAscendingNorth
	RailAscendingSouth
	RailSouthEast
	RailSouthWest
	RailNorthWest
	RailNorthEast
)

// State carries the sub-properties an explosion is allowed to preserve when it
// swaps a block's material. Set records which fields are meaningful.
type State struct {
	Set         PropertyMask
	Facing      Facing
	Half        Half
	Axis        Axis
	Shape       RailShape
	Age         uint8
	Waterlogged bool
	Snowy       bool
	Open        bool
	Powered     bool
}

// Block is a material together with its state. Block is comparable.
type Block struct {
	Material Material
	State    State
}

// Of returns a stateless block of material m.
func Of(m Material) Block { return Block{Material: m} }

// AirBlock is the canonical empty block.
var AirBlock = Block{Material: Air}

// Registry describes which sub-properties each material supports.
type Registry interface {
	Properties(m Material) PropertyMask
	MaxAge(m Material) uint8
}

// DefaultRegistry derives property support from material naming conventions.
type DefaultRegistry struct{}

func (DefaultRegistry) Properties(m Material) PropertyMask {
	s := string(m)
	switch {
	case IsLog(m), m == Basalt, m == "polished_basalt", m == "hay_block", m == "bone_block",
		strings.HasSuffix(s, "_pillar"), m == "chain":
		mask := PropAxis
		if m == "chain" {
			mask |= PropWaterlogged
		}
		return mask
	case strings.HasSuffix(s, "_stairs"):
		return PropFacing | PropHalf | PropWaterlogged
	case strings.HasSuffix(s, "_slab"):
		return PropHalf | PropWaterlogged
	case strings.HasSuffix(s, "_trapdoor"):
		return PropFacing | PropHalf | PropOpen | PropPowered | PropWaterlogged
	case strings.HasSuffix(s, "_door"):
		return PropFacing | PropHalf | PropOpen | PropPowered
	case strings.HasSuffix(s, "_fence_gate"):
		return PropFacing | PropOpen | PropPowered
	case m == "rail":
		return PropShape
	case m == "powered_rail", m == "detector_rail", m == "activator_rail":
		return PropShape | PropPowered
	case m == GrassBlock, m == Podzol, m == Mycelium:
		return PropSnowy
	case IsLeaves(m), m == "lantern", m == "soul_lantern", strings.HasSuffix(s, "_fence"),
		strings.HasSuffix(s, "_wall"), m == "iron_bars", strings.HasSuffix(s, "glass_pane"):
		return PropWaterlogged
	case m == "furnace", m == "blast_furnace", m == "smoker", m == "observer", m == "dispenser", m == "dropper",
		m == "piston", m == "sticky_piston", m == "carved_pumpkin", m == "jack_o_lantern":
		return PropFacing
	}
	if MaxAge(m) > 0 {
		return PropAge
	}
	return 0
}

func (DefaultRegistry) MaxAge(m Material) uint8 { return MaxAge(m) }

// MaxAge returns the largest age value m accepts, or 0 for ageless materials.
func MaxAge(m Material) uint8 {
	switch m {
	case Fire, Cactus, SugarCane, "kelp":
		return 15
	case Wheat, "carrots", "potatoes", "melon_stem", "pumpkin_stem":
		return 7
	case "beetroots", "nether_wart", "sweet_berry_bush", "frosted_ice", "cocoa":
		return 3
	}
	return 0
}

// CopyState builds a block of material to, carrying over the sub-properties
// present on old that to also supports. Age is clamped to the new maximum.
// Unsupported combinations are skipped.
func CopyState(old Block, to Material, reg Registry) Block {
	if reg == nil {
		reg = DefaultRegistry{}
	}
	out := Block{Material: to}
	shared := old.State.Set & reg.Properties(to)
	if shared == 0 {
		return out
	}
	st := &out.State
	if shared.Has(PropFacing) {
		st.Facing = old.State.Facing
	}
	if shared.Has(PropHalf) {
		st.Half = old.State.Half
	}
	if shared.Has(PropAxis) {
		st.Axis = old.State.Axis
	}
	if shared.Has(PropShape) {
		st.Shape = old.State.Shape
	}
	if shared.Has(PropWaterlogged) {
		st.Waterlogged = old.State.Waterlogged
	}
	if shared.Has(PropSnowy) {
		st.Snowy = old.State.Snowy
	}
	if shared.Has(PropOpen) {
		st.Open = old.State.Open
	}
	if shared.Has(PropPowered) {
		st.Powered = old.State.Powered
	}
	if shared.Has(PropAge) {
		st.Age = min(old.State.Age, reg.MaxAge(to))
	}
	st.Set = shared
	return out
}
