package reel

import "math"

// FloatSource yields floats in [0, 1). engine.Stream satisfies it.
type FloatSource interface {
	NextFloat() float64
}

// Permutation draws the values min..min+n-1 in random order by Fisher-Yates
// selection: each float picks an index into the shrinking pool and the picked
// value is removed with an order-preserving splice. n-1 floats are consumed;
// the final value is whatever is left in the pool.
func Permutation(src FloatSource, min, n int) []int {
	if n <= 0 {
		return []int{}
	}
	pool := make([]int, n)
	for i := range pool {
		pool[i] = min + i
	}

	out := make([]int, 0, n)
	for len(pool) > 1 {
		idx := int(math.Floor(src.NextFloat() * float64(len(pool))))
		if idx >= len(pool) {
			idx = len(pool) - 1
		}
		out = append(out, pool[idx])
		pool = append(pool[:idx], pool[idx+1:]...)
	}
	return append(out, pool[0])
}
