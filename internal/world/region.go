package world

// Region is an inclusive rectangle of block columns.
type Region struct {
	MinX, MinZ, MaxX, MaxZ int
}

// Area returns the number of columns in r.
func (r Region) Area() int {
	if r.MaxX < r.MinX || r.MaxZ < r.MinZ {
		return 0
	}
	return (r.MaxX - r.MinX + 1) * (r.MaxZ - r.MinZ + 1)
}

// Contains reports whether column (x, z) lies in r.
func (r Region) Contains(x, z int) bool {
	return x >= r.MinX && x <= r.MaxX && z >= r.MinZ && z <= r.MaxZ
}

// Partition tiles bounds with regions aligned to multiples of size. The
// result covers every column of bounds exactly once.
func Partition(bounds Region, size int) []Region {
	if size <= 0 {
		size = 16
	}
	if bounds.Area() == 0 {
		return nil
	}
	var out []Region
	for x0 := floorDiv(bounds.MinX, size) * size; x0 <= bounds.MaxX; x0 += size {
		for z0 := floorDiv(bounds.MinZ, size) * size; z0 <= bounds.MaxZ; z0 += size {
			out = append(out, Region{
				MinX: max(x0, bounds.MinX),
				MinZ: max(z0, bounds.MinZ),
				MaxX: min(x0+size-1, bounds.MaxX),
				MaxZ: min(z0+size-1, bounds.MaxZ),
			})
		}
	}
	return out
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
