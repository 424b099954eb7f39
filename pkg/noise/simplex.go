// Package noise is the deterministic randomness shared by the destruction
// engine and the terrain generators: seeded simplex fields for smooth
// variation and coordinate hashes for uncorrelated per-block choices.
//
// Every result depends only on the arguments and the seed. A block sampled
// twice, or from two goroutines, gets the same value.
package noise

// gradients are the twelve cube edge midpoints. 2D noise uses x and y only.
var gradients = [12][3]float64{
	{1, 1, 0}, {-1, 1, 0}, {1, -1, 0}, {-1, -1, 0},
	{1, 0, 1}, {-1, 0, 1}, {1, 0, -1}, {-1, 0, -1},
	{0, 1, 1}, {0, -1, 1}, {0, 1, -1}, {0, -1, -1},
}

const (
	skew2   = 0.36602540378443864676 // (sqrt(3) - 1) / 2
	unskew2 = 0.21132486540518711775 // (3 - sqrt(3)) / 6
	skew3   = 1.0 / 3
	unskew3 = 1.0 / 6
)

// Simplex is a seeded simplex noise field. It is immutable after New and
// safe for concurrent use.
type Simplex struct {
	perm [512]uint8
	grad [512]uint8 // perm[i] % 12
}

// Coherent is the field used where a value must depend on position alone,
// such as scorch texture and palette banding.
var Coherent = New(0x5eed)

// New shuffles the permutation table with a splitmix64 stream drawn from
// seed.
func New(seed int64) *Simplex {
	var p [256]uint8
	for i := range p {
		p[i] = uint8(i)
	}
	state := uint64(seed)
	for i := 255; i > 0; i-- {
		state += 0x9E3779B97F4A7C15
		j := int(mix64(state) % uint64(i+1))
		p[i], p[j] = p[j], p[i]
	}

	s := &Simplex{}
	for i := range s.perm {
		s.perm[i] = p[i&255]
		s.grad[i] = p[i&255] % 12
	}
	return s
}

// Noise2D samples the field in the plane. The result is in [-1, 1].
func (s *Simplex) Noise2D(x, y float64) float64 {
	sk := (x + y) * skew2
	i, j := floor(x+sk), floor(y+sk)
	u := float64(i+j) * unskew2
	x0, y0 := x-float64(i)+u, y-float64(j)+u

	// The middle corner steps along the axis the point is further along.
	mid := [2]int{0, 1}
	if x0 > y0 {
		mid = [2]int{1, 0}
	}
	corners := [3][2]int{{0, 0}, mid, {1, 1}}

	ii, jj := i&255, j&255
	var sum float64
	for k, c := range corners {
		dx := x0 - float64(c[0]) + float64(k)*unskew2
		dy := y0 - float64(c[1]) + float64(k)*unskew2
		g := gradients[s.grad[ii+c[0]+int(s.perm[jj+c[1]])]]
		sum += falloff(0.5-dx*dx-dy*dy) * (g[0]*dx + g[1]*dy)
	}
	return 70 * sum
}

// Noise3D samples the field in space. The result is in [-1, 1].
func (s *Simplex) Noise3D(x, y, z float64) float64 {
	sk := (x + y + z) * skew3
	i, j, k := floor(x+sk), floor(y+sk), floor(z+sk)
	u := float64(i+j+k) * unskew3
	x0, y0, z0 := x-float64(i)+u, y-float64(j)+u, z-float64(k)+u

	// Rank the offsets; the simplex walks the largest axis first.
	var rank [3]int
	if x0 >= y0 {
		rank[0]++
	} else {
		rank[1]++
	}
	if x0 >= z0 {
		rank[0]++
	} else {
		rank[2]++
	}
	if y0 >= z0 {
		rank[1]++
	} else {
		rank[2]++
	}
	corners := [4][3]int{{0, 0, 0}, above(rank, 2), above(rank, 1), {1, 1, 1}}

	ii, jj, kk := i&255, j&255, k&255
	var sum float64
	for n, c := range corners {
		off := float64(n) * unskew3
		dx := x0 - float64(c[0]) + off
		dy := y0 - float64(c[1]) + off
		dz := z0 - float64(c[2]) + off
		g := gradients[s.grad[ii+c[0]+int(s.perm[jj+c[1]+int(s.perm[kk+c[2]])])]]
		sum += falloff(0.6-dx*dx-dy*dy-dz*dz) * (g[0]*dx + g[1]*dy + g[2]*dz)
	}
	return 32 * sum
}

// Octave2D sums octaves of Noise2D at doubling frequency, each weighted by
// persistence relative to the previous one. The result is in [-1, 1].
func (s *Simplex) Octave2D(x, y float64, octaves int, persistence float64) float64 {
	return fractal(octaves, persistence, func(f float64) float64 {
		return s.Noise2D(x*f, y*f)
	})
}

// Octave3D is the 3D counterpart of Octave2D.
func (s *Simplex) Octave3D(x, y, z float64, octaves int, persistence float64) float64 {
	return fractal(octaves, persistence, func(f float64) float64 {
		return s.Noise3D(x*f, y*f, z*f)
	})
}

// At samples the field at block (x, y, z) with every coordinate multiplied
// by scale. Smaller scales give broader features.
func (s *Simplex) At(x, y, z int, scale float64) float64 {
	return s.Noise3D(float64(x)*scale, float64(y)*scale, float64(z)*scale)
}

// UnitAt is At rescaled into [0, 1].
func (s *Simplex) UnitAt(x, y, z int, scale float64) float64 {
	return min(max((s.At(x, y, z, scale)+1)/2, 0), 1)
}

func fractal(octaves int, persistence float64, sample func(freq float64) float64) float64 {
	var sum, norm float64
	amp, freq := 1.0, 1.0
	for range octaves {
		sum += amp * sample(freq)
		norm += amp
		amp *= persistence
		freq *= 2
	}
	if norm == 0 {
		return 0
	}
	return sum / norm
}

// above marks the axes whose rank is at least n.
func above(rank [3]int, n int) [3]int {
	var c [3]int
	for i, r := range rank {
		if r >= n {
			c[i] = 1
		}
	}
	return c
}

func falloff(t float64) float64 {
	if t <= 0 {
		return 0
	}
	t *= t
	return t * t
}

func floor(v float64) int {
	i := int(v)
	if v < float64(i) {
		return i - 1
	}
	return i
}
