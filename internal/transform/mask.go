package transform

// Key selects the cipher schedule used for masked entry data. The value is
// the numeric container revision that introduced the schedule; KeyNone
// marks unmasked data.
type Key uint8

// KeyNone disables masking.
const KeyNone Key = 0

// Mask applies the symmetric keystream cipher to data and returns the
// result. The stream is derived from the data length and the key, so
// applying Mask twice restores the input. Masked data is always the stored
// form; masking happens after compression and unmasking before
// decompression.
func Mask(data []byte, key Key) []byte {
	out := make([]byte, len(data))
	state := maskSeed(uint32(len(data)), key)
	for i, b := range data {
		state ^= state << 13
		state ^= state >> 17
		state ^= state << 5
		out[i] = b ^ byte(state)
	}
	return out
}

// maskSeed mixes the stored length and key generation into a nonzero
// keystream seed.
func maskSeed(n uint32, key Key) uint32 {
	seed := n*0x9E3779B1 ^ uint32(key)*0x85EBCA77
	return seed | 1
}
