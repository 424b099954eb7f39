package transform

import (
	"github.com/go-theft-craft/blast/pkg/material"
	"github.com/go-theft-craft/blast/pkg/noise"
)

// Outcome produces the replacement material once a rule matches. The
// concrete variants are Fixed, RandomOf, PaletteOutcome, NoisePalette,
// Chance and Keep. Every variant is a pure function of its inputs.
type Outcome interface {
	outcome()
}

// Fixed always yields Material.
type Fixed struct{ Material material.Material }

// RandomOf picks uniformly from Materials by coordinate hash.
type RandomOf struct{ Materials []material.Material }

// PaletteOutcome picks from a weighted palette by coordinate hash.
type PaletteOutcome struct{ Palette material.Palette }

// NoisePalette picks from a weighted palette with coherent noise, so
// neighbouring blocks tend to agree.
type NoisePalette struct{ Palette material.Palette }

// Chance yields Then with the given probability and Else otherwise. When
// ScaleByPower is set the probability is multiplied by the intensity. A nil
// Else keeps the input material.
type Chance struct {
	Probability  float64
	ScaleByPower bool
	Then, Else   Outcome
}

// Keep returns the input material unchanged.
type Keep struct{}

func (Fixed) outcome()          {}
func (RandomOf) outcome()       {}
func (PaletteOutcome) outcome() {}
func (NoisePalette) outcome()   {}
func (Chance) outcome()         {}
func (Keep) outcome()           {}

const (
	randomSalt = 0x72616e646f6d
	chanceSalt = 0x6368616e6365
)

func resolve(o Outcome, m material.Material, intensity float64, x, y, z int, depth uint64) material.Material {
	switch o := o.(type) {
	case Fixed:
		return o.Material
	case RandomOf:
		if len(o.Materials) == 0 {
			return m
		}
		return o.Materials[noise.Hash3(x, y, z, randomSalt+depth)%uint64(len(o.Materials))]
	case PaletteOutcome:
		return o.Palette.At(x, y, z)
	case NoisePalette:
		return o.Palette.WithNoise(x, y, z)
	case Chance:
		p := o.Probability
		if o.ScaleByPower {
			p *= intensity
		}
		if noise.Float3(x, y, z, chanceSalt+depth) < p {
			return resolveOrKeep(o.Then, m, intensity, x, y, z, depth+1)
		}
		return resolveOrKeep(o.Else, m, intensity, x, y, z, depth+1)
	case Keep:
		return m
	}
	return m
}

func resolveOrKeep(o Outcome, m material.Material, intensity float64, x, y, z int, depth uint64) material.Material {
	if o == nil {
		return m
	}
	return resolve(o, m, intensity, x, y, z, depth)
}
