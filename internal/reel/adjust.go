package reel

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDirection = errors.New("invalid direction")
	ErrUnresolvable     = errors.New("column collision cannot be resolved by rotation")
	ErrRowOutOfRange    = errors.New("row index out of range")
	ErrShape            = errors.New("invalid grid shape")
)

// Adjust makes the values at each of the first columns positions distinct
// across rows, rotating rows in place.
//
// Columns are visited left to right and, within a column, rows top to bottom.
// A row whose value is already present in the column is rotated one step left
// until it is not. Rotating a row also moves its values in columns already
// visited; those are not checked again, so only the most recently visited
// column is guaranteed distinct when Adjust returns.
//
// A row that needs more than len(row) rotations for one column cannot be
// resolved; Adjust stops and returns ErrUnresolvable.
func Adjust(rows [][]int, columns int) error {
	for c := 0; c < columns; c++ {
		seen := make(map[int]struct{}, len(rows))
		for r := range rows {
			if c >= len(rows[r]) {
				return fmt.Errorf("%w: row %d has %d values, column %d requested", ErrShape, r, len(rows[r]), c)
			}
			for attempts := 0; contains(seen, rows[r][c]); attempts++ {
				if attempts == len(rows[r]) {
					return fmt.Errorf("%w: row %d column %d", ErrUnresolvable, r, c)
				}
				rows[r] = Rotate(rows[r], 1, Left)
			}
			seen[rows[r][c]] = struct{}{}
		}
	}
	return nil
}

func contains(set map[int]struct{}, v int) bool {
	_, ok := set[v]
	return ok
}
