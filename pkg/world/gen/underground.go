package gen

import "github.com/go-theft-craft/blast/pkg/noise"

// Underground hollows tunnels out of the stone and seeds ore pockets. The
// tunnels give explosions real air gaps to cross below the surface.
type Underground struct {
	tunnels *noise.Simplex
	salt    uint64
}

// NewUnderground creates an Underground pass from a seed.
func NewUnderground(seed int64) *Underground {
	return &Underground{tunnels: noise.New(seed + 300), salt: uint64(seed) + 500}
}

const (
	// tunnelBand is the half-width of the noise band carved as tunnel.
	tunnelBand = 0.06
	lavaLevel  = 10
)

// Carve hollows tunnels where the 3D noise field crosses zero. Bedrock and
// the top four blocks of each column are kept.
func (u *Underground) Carve(c *ChunkData, chunkX, chunkZ int, heights *[16][16]int) {
	for x := range 16 {
		for z := range 16 {
			bx, bz := float64(chunkX*16+x), float64(chunkZ*16+z)
			for y := 4; y < heights[x][z]-4; y++ {
				n := u.tunnels.Octave3D(bx/40, float64(y)/20, bz/40, 2, 0.5)
				if n > tunnelBand || n < -tunnelBand {
					continue
				}
				if y < lavaLevel {
					c.SetBlock(x, y, z, stateLava)
				} else {
					c.SetBlock(x, y, z, stateAir)
				}
			}
		}
	}
}

type orePocket struct {
	state   uint16
	maxY    int
	radius  int // pocket radius in blocks
	perSlab int // pockets per chunk
}

var orePockets = []orePocket{
	{stateCoalOre, 128, 2, 10},
	{stateIronOre, 64, 1, 12},
	{stateGoldOre, 32, 1, 2},
	{stateRedstoneOre, 16, 1, 4},
	{stateLapisOre, 32, 1, 1},
	{stateDiamondOre, 16, 1, 1},
}

// Seed places roughly spherical ore pockets in stone. Pocket centres come
// from a coordinate hash, so the same chunk always gets the same ores.
func (u *Underground) Seed(c *ChunkData, chunkX, chunkZ int, heights *[16][16]int) {
	for i, ore := range orePockets {
		for n := range ore.perSlab {
			h := noise.Hash3(chunkX, i*64+n, chunkZ, u.salt)
			x, z := int(h&15), int(h>>4&15)
			y := 1 + int(h>>8%uint64(ore.maxY))
			if y >= heights[x][z] {
				continue
			}
			fillPocket(c, x, y, z, ore.radius, ore.state, heights)
		}
	}
}

func fillPocket(c *ChunkData, cx, cy, cz, r int, state uint16, heights *[16][16]int) {
	for x := max(cx-r, 0); x <= min(cx+r, 15); x++ {
		for z := max(cz-r, 0); z <= min(cz+r, 15); z++ {
			for y := max(cy-r, 1); y <= cy+r && y < heights[x][z]; y++ {
				dx, dy, dz := x-cx, y-cy, z-cz
				if dx*dx+dy*dy+dz*dz > r*r {
					continue
				}
				if c.GetBlock(x, y, z) == stateStone {
					c.SetBlock(x, y, z, state)
				}
			}
		}
	}
}
