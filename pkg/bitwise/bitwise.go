// Package bitwise has single-bit helpers for flag bytes and words of any unsigned width.
package bitwise

type Unsigned interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Unset clears bit k (0 is the least significant bit).
func Unset[T Unsigned](n T, k int) T {
	return n &^ (T(1) << k)
}

func Set[T Unsigned](n T, k int) T {
	return n | (T(1) << k)
}

func Toggle[T Unsigned](n T, k int) T {
	return n ^ (T(1) << k)
}

func IsSet[T Unsigned](n T, k int) bool {
	return n&(T(1)<<k) != 0
}

// HasAll reports whether every bit of mask is set in n.
func HasAll[T Unsigned](n, mask T) bool {
	return n&mask == mask
}
