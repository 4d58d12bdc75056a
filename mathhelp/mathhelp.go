package mathhelp

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Epsilon absorbs floating point noise when snapping a position to a tile boundary.
const Epsilon = 1e-6

func BetweenInc[T constraints.Integer | constraints.Float](f, p, q T) bool {
	if p <= q {
		return p <= f && f <= q
	}
	return q <= f && f <= p
}

// FloorIndex returns floor(v + Epsilon), never less than zero.
func FloorIndex(v float64) int {
	i := int(math.Floor(v + Epsilon))
	if i < 0 {
		return 0
	}
	return i
}
