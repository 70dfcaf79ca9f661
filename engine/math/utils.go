package math

import "golang.org/x/exp/constraints"

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// Min returns the smaller of a and b.
func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

// Max returns the larger of a and b.
func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// Share splits total into parts near-equal contiguous ranges and returns the
// offset and size of range idx. The first total%parts ranges get one extra
// element, so the ranges cover [0, total) exactly, without gaps or overlaps.
// parts must be at least 1.
func Share[T constraints.Integer](total, parts, idx T) (offset, size T) {
	local := total / parts
	remain := total % parts
	offset = local*idx + Min(idx, remain)
	size = local
	if idx < remain {
		size++
	}
	return offset, size
}
