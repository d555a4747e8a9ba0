package hal

const hexDigits = "0123456789abcdef"

// AppendHex renders value as exactly digits lowercase hex characters,
// most significant first, appending to dst. Digits beyond the value's
// width are zero-filled; digits it doesn't fit in are cut off.
func AppendHex(dst []byte, value uint32, digits int) []byte {
	start := len(dst)
	for i := 0; i < digits; i++ {
		dst = append(dst, '0')
	}
	for i := digits - 1; i >= 0; i-- {
		dst[start+i] = hexDigits[value&0xf]
		value >>= 4
	}
	return dst
}
