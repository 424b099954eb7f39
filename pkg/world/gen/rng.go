package gen

// chunkRNG is a deterministic LCG seeded per chunk, so decoration does not
// depend on generation order.
type chunkRNG struct {
	state int64
}

func newChunkRNG(seed int64, cx, cz int, salt int64) *chunkRNG {
	return &chunkRNG{state: seed ^ (int64(cx)*341873128712 + int64(cz)*132897987541 + salt)}
}

// nextN returns a value in [0, n).
func (r *chunkRNG) nextN(n int) int {
	r.state = r.state*6364136223846793005 + 1442695040888963407
	v := int(r.state>>33) % n
	if v < 0 {
		v = -v
	}
	return v
}
