package material

import (
	"fmt"

	"github.com/go-theft-craft/blast/pkg/noise"
)

// Entry is one weighted palette member.
type Entry struct {
	Material Material
	Weight   int
}

// Palette is a weighted set of materials. NoiseScale controls how quickly
// WithNoise varies through space; zero falls back to 0.15.
type Palette struct {
	Entries    []Entry
	NoiseScale float64
}

// NewPalette builds a palette from weighted entries.
func NewPalette(noiseScale float64, entries ...Entry) Palette {
	return Palette{Entries: entries, NoiseScale: noiseScale}
}

// Validate checks that the palette is non-empty and every weight is at least one.
func (p Palette) Validate() error {
	if len(p.Entries) == 0 {
		return fmt.Errorf("palette has no entries")
	}
	for _, e := range p.Entries {
		if e.Weight < 1 {
			return fmt.Errorf("palette entry %q has weight %d, want >= 1", e.Material, e.Weight)
		}
		if e.Material == "" {
			return fmt.Errorf("palette entry has empty material")
		}
	}
	return nil
}

func (p Palette) totalWeight() int {
	total := 0
	for _, e := range p.Entries {
		total += max(e.Weight, 1)
	}
	return total
}

// Pick maps t in [0, 1) onto the cumulative weights.
func (p Palette) Pick(t float64) Material {
	if len(p.Entries) == 0 {
		return Air
	}
	if t < 0 {
		t = 0
	}
	total := p.totalWeight()
	target := int(t * float64(total))
	if target >= total {
		target = total - 1
	}
	for _, e := range p.Entries {
		target -= max(e.Weight, 1)
		if target < 0 {
			return e.Material
		}
	}
	return p.Entries[len(p.Entries)-1].Material
}

// At picks a material from a coordinate hash, so the same position always
// yields the same member but neighbours are uncorrelated.
func (p Palette) At(x, y, z int) Material {
	return p.Pick(noise.Float3(x, y, z, 0x9a1e77e))
}

// WithNoise picks a material from coherent noise sampled at (x, y, z), so
// neighbouring positions tend to share a member.
func (p Palette) WithNoise(x, y, z int) Material {
	scale := p.NoiseScale
	if scale <= 0 {
		scale = 0.15
	}
	t := noise.Coherent.UnitAt(x, y, z, scale)
	return p.Pick(t)
}
