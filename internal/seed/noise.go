package seed

// PositionStride spreads adjacent positions apart before hashing.
const PositionStride uint64 = 0x982C28C631FE28B3

const (
	noise32Prime1 uint32 = 0xB5297A87
	noise32Prime2 uint32 = 0x68E31DB5
	noise32Prime3 uint32 = 0x1B56C4F5

	noise64Prime1 uint64 = 0xD56AC08568010DB9
	noise64Prime2 uint64 = 0x3EE9CACE50B4F641
	noise64Prime3 uint64 = 0xFB7D9F3F3DCAA0CD
)

// Noise32 mixes a position and an entropy value into a 32-bit seed. It is a
// pure function: identical inputs always give identical output.
func Noise32(position, entropy uint32) uint32 {
	m := position
	m *= noise32Prime1
	m += entropy
	m ^= m >> 15
	m *= noise32Prime2
	m ^= m << 6
	m *= noise32Prime3
	m *= m
	m ^= m >> 16
	return m
}

// Noise64 is the 64-bit counterpart of Noise32.
func Noise64(position, entropy uint64) uint64 {
	m := position
	m *= noise64Prime1
	m += entropy
	m ^= m >> 29
	m *= noise64Prime2
	m ^= m << 6
	m *= noise64Prime3
	m *= m
	m ^= m >> 32
	return m
}

// NoiseAt returns the seed at index i for the given width and entropy.
func NoiseAt(width Width, i int, entropy uint64) uint64 {
	pos := uint64(i) * PositionStride
	if width == Bits64 {
		return Noise64(pos, entropy)
	}
	return uint64(Noise32(uint32(pos), uint32(entropy)))
}
