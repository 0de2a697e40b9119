// Package reel holds the grid kernel: cyclic row rotation, the left-to-right
// column uniqueness pass and the Grid that owns the rows.
package reel

import (
	"fmt"
	"strings"
)

// Direction is the way a row is rotated.
type Direction string

const (
	Left  Direction = "left"
	Right Direction = "right"
)

// ParseDirection accepts "left" or "right" in any case.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case Left:
		return Left, nil
	case Right:
		return Right, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
	}
}

// Rotate returns a new slice holding row cyclically shifted by steps.
//
// Left moves the first shift elements to the end, Right moves the last shift
// elements to the front. The shift is steps modulo len(row), normalised into
// [0, len(row)), so a negative step count rotates the other way.
func Rotate(row []int, steps int, dir Direction) []int {
	n := len(row)
	out := make([]int, n)
	if n == 0 {
		return out
	}
	shift := ((steps % n) + n) % n
	if dir == Right {
		shift = (n - shift) % n
	}
	copy(out, row[shift:])
	copy(out[n-shift:], row[:shift])
	return out
}
