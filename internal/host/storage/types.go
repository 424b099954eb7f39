package storage

import "github.com/go-theft-craft/blast/pkg/material"

// WorldData is the persisted form of a reference world's modifications.
type WorldData struct {
	Generator string          `json:"generator"`
	Seed      int64           `json:"seed"`
	Overrides []BlockOverride `json:"overrides"`
	Biomes    []BiomeOverride `json:"biomes,omitempty"`
}

// BlockOverride is a single block override for JSON serialization.
type BlockOverride struct {
	X        int        `json:"x"`
	Y        int        `json:"y"`
	Z        int        `json:"z"`
	Material string     `json:"material"`
	State    *StateData `json:"state,omitempty"`
}

// BiomeOverride is a single column biome override.
type BiomeOverride struct {
	X     int    `json:"x"`
	Z     int    `json:"z"`
	Biome string `json:"biome"`
}

// StateData is the serializable form of material.State.
type StateData struct {
	Set         uint16 `json:"set"`
	Facing      uint8  `json:"facing,omitempty"`
	Half        uint8  `json:"half,omitempty"`
	Axis        uint8  `json:"axis,omitempty"`
	Shape       uint8  `json:"shape,omitempty"`
	Age         uint8  `json:"age,omitempty"`
	Waterlogged bool   `json:"waterlogged,omitempty"`
	Snowy       bool   `json:"snowy,omitempty"`
	Open        bool   `json:"open,omitempty"`
	Powered     bool   `json:"powered,omitempty"`
}

func stateData(s material.State) *StateData {
	if s == (material.State{}) {
		return nil
	}
	return &StateData{
		Set:         uint16(s.Set),
		Facing:      uint8(s.Facing),
		Half:        uint8(s.Half),
		Axis:        uint8(s.Axis),
		Shape:       uint8(s.Shape),
		Age:         s.Age,
		Waterlogged: s.Waterlogged,
		Snowy:       s.Snowy,
		Open:        s.Open,
		Powered:     s.Powered,
	}
}

func (d *StateData) state() material.State {
	if d == nil {
		return material.State{}
	}
	return material.State{
		Set:         material.PropertyMask(d.Set),
		Facing:      material.Facing(d.Facing),
		Half:        material.Half(d.Half),
		Axis:        material.Axis(d.Axis),
		Shape:       material.RailShape(d.Shape),
		Age:         d.Age,
		Waterlogged: d.Waterlogged,
		Snowy:       d.Snowy,
		Open:        d.Open,
		Powered:     d.Powered,
	}
}
