package shockwave

import "fmt"

// Params describes one shockwave.
type Params struct {
	CenterX, CenterY, CenterZ int

	// RadiusStart and Radius bound the rings, inclusive.
	RadiusStart, Radius int
	// MaxPower applies at RadiusStart and falls linearly to MinPower at
	// Radius.
	MinPower, MaxPower float64

	// MaxHeight skips columns whose surface is further than this above or
	// below the centre. Zero means 32.
	MaxHeight int
	// WallDepth is how far wall processing descends from the surface.
	WallDepth int
	// PenetrationScale converts power into roof penetration depth.
	PenetrationScale float64
	// GapSearch bounds the downward search across an air gap.
	GapSearch int
	// GapCost is the fraction of power lost when jumping a gap.
	GapCost float64

	// Workers is the per-ring worker pool size; QueueSize the capacity of
	// the per-ring work channel.
	Workers   int
	QueueSize int
}

// DefaultParams returns a shockwave with the tuned tunables and no geometry.
func DefaultParams() Params {
	return Params{
		MaxPower:         1,
		MaxHeight:        32,
		WallDepth:        6,
		PenetrationScale: 10,
		GapSearch:        8,
		GapCost:          0.15,
		Workers:          4,
		QueueSize:        256,
	}
}

func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.MaxHeight <= 0 {
		p.MaxHeight = d.MaxHeight
	}
	if p.WallDepth <= 0 {
		p.WallDepth = d.WallDepth
	}
	if p.PenetrationScale <= 0 {
		p.PenetrationScale = d.PenetrationScale
	}
	if p.GapSearch <= 0 {
		p.GapSearch = d.GapSearch
	}
	if p.GapCost <= 0 {
		p.GapCost = d.GapCost
	}
	if p.Workers <= 0 {
		p.Workers = d.Workers
	}
	if p.QueueSize <= 0 {
		p.QueueSize = d.QueueSize
	}
	return p
}

// Validate rejects inverted ranges.
func (p Params) Validate() error {
	switch {
	case p.RadiusStart < 0:
		return fmt.Errorf("shockwave start radius %d is negative", p.RadiusStart)
	case p.Radius < p.RadiusStart:
		return fmt.Errorf("shockwave radius %d below start radius %d", p.Radius, p.RadiusStart)
	case p.MinPower < 0 || p.MaxPower < p.MinPower:
		return fmt.Errorf("shockwave power range [%g, %g] is invalid", p.MinPower, p.MaxPower)
	case p.GapCost >= 1:
		return fmt.Errorf("shockwave gap cost %g must be below 1", p.GapCost)
	}
	return nil
}

// PowerAt interpolates the ring power from MaxPower at RadiusStart down to
// MinPower at Radius.
func (p Params) PowerAt(radius int) float64 {
	if p.Radius == p.RadiusStart {
		return p.MaxPower
	}
	t := float64(radius-p.RadiusStart) / float64(p.Radius-p.RadiusStart)
	t = min(max(t, 0), 1)
	return p.MaxPower + (p.MinPower-p.MaxPower)*t
}

// normalized maps a ring power onto [0, 1] relative to MaxPower.
func (p Params) normalized(power float64) float64 {
	if p.MaxPower <= 0 {
		return 0
	}
	return min(max(power/p.MaxPower, 0), 1)
}
