package noise

// mix64 is the splitmix64 finalizer.
func mix64(h uint64) uint64 {
	h ^= h >> 30
	h *= 0xBF58476D1CE4E5B9
	h ^= h >> 27
	h *= 0x94D049BB133111EB
	h ^= h >> 31
	return h
}

// Hash3 mixes integer block coordinates and a salt into a well-distributed
// 64-bit value.
func Hash3(x, y, z int, salt uint64) uint64 {
	return mix64(uint64(int64(x))*0x9E3779B97F4A7C15 ^
		uint64(int64(y))*0xC2B2AE3D27D4EB4F ^
		uint64(int64(z))*0x165667B19E3779F9 ^
		salt*0xD6E8FEB86659FD93)
}

// Float3 returns a deterministic value in [0, 1) for the given coordinates.
func Float3(x, y, z int, salt uint64) float64 {
	return float64(Hash3(x, y, z, salt)>>11) / (1 << 53)
}
