package shockwave

import "math"

// Column is an (x, z) offset from the centre.
type Column struct{ DX, DZ int }

// Ring returns the columns whose distance from the centre rounds to radius:
// (r-0.5)² ≤ dx²+dz² < (r+0.5)². Consecutive rings tile the plane, so each
// column belongs to exactly one ring.
func Ring(radius int) []Column {
	if radius < 0 {
		return nil
	}
	inner := math.Max(float64(radius)-0.5, 0)
	lo := inner * inner
	hi := (float64(radius) + 0.5) * (float64(radius) + 0.5)

	var out []Column
	for dx := -radius - 1; dx <= radius+1; dx++ {
		for dz := -radius - 1; dz <= radius+1; dz++ {
			d2 := float64(dx*dx + dz*dz)
			if d2 >= lo && d2 < hi {
				out = append(out, Column{DX: dx, DZ: dz})
			}
		}
	}
	return out
}
