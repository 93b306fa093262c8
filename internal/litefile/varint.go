package litefile

// MaxVarintLen is the longest encoding of a 64-bit varint.
const MaxVarintLen = 9

// DecodeVarint decodes a big-endian variable length integer. The first eight
// bytes carry seven bits each with the high bit as a continuation flag, a ninth
// byte contributes all eight bits. It returns the value and the bytes consumed.
func DecodeVarint(buf []byte) (uint64, int, error) {
	var v uint64
	for i := 0; i < MaxVarintLen-1; i++ {
		if i >= len(buf) {
			return 0, 0, &PayloadTooSmallError{Field: FieldVarint, Want: i + 1, Actual: len(buf)}
		}
		v = v<<7 | uint64(buf[i]&0x7f)
		if buf[i]&0x80 == 0 {
			return v, i + 1, nil
		}
	}
	if len(buf) < MaxVarintLen {
		return 0, 0, &PayloadTooSmallError{Field: FieldVarint, Want: MaxVarintLen, Actual: len(buf)}
	}
	return v<<8 | uint64(buf[MaxVarintLen-1]), MaxVarintLen, nil
}

// VarintLen returns how many bytes PutVarint needs for v.
func VarintLen(v uint64) int {
	if v>>56 != 0 {
		return MaxVarintLen
	}
	n := 1
	for v >>= 7; v != 0; v >>= 7 {
		n++
	}
	return n
}

// PutVarint encodes v into buf, which must hold at least VarintLen(v) bytes,
// and returns the number of bytes written.
func PutVarint(buf []byte, v uint64) int {
	n := VarintLen(v)
	if n == MaxVarintLen {
		buf[8] = byte(v)
		v >>= 8
		for i := 7; i >= 0; i-- {
			buf[i] = byte(v&0x7f) | 0x80
			v >>= 7
		}
		return n
	}
	for i := n - 1; i >= 0; i-- {
		buf[i] = byte(v&0x7f) | 0x80
		v >>= 7
	}
	buf[n-1] &= 0x7f
	return n
}
