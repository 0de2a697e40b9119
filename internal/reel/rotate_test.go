package reel

import (
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotate(t *testing.T) {
	row := []int{1, 2, 3, 4, 5}

	tests := []struct {
		name  string
		steps int
		dir   Direction
		want  []int
	}{
		{"left 2", 2, Left, []int{3, 4, 5, 1, 2}},
		{"right 2", 2, Right, []int{4, 5, 1, 2, 3}},
		{"left 0", 0, Left, []int{1, 2, 3, 4, 5}},
		{"right full turn", 5, Right, []int{1, 2, 3, 4, 5}},
		{"left past length", 7, Left, []int{3, 4, 5, 1, 2}},
		{"negative left is right", -2, Left, []int{4, 5, 1, 2, 3}},
		{"negative right is left", -2, Right, []int{3, 4, 5, 1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Rotate(row, tt.steps, tt.dir)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, []int{1, 2, 3, 4, 5}, row, "input must not be modified")
}

func TestRotateEmpty(t *testing.T) {
	assert.Empty(t, Rotate(nil, 3, Left))
	assert.Empty(t, Rotate([]int{}, 3, Right))
}

func TestRotatePreservesMultiset(t *testing.T) {
	row := []int{9, 4, 17, 2, 33, 8, 1}
	want := sortedCopy(row)

	for steps := -10; steps <= 10; steps++ {
		for _, dir := range []Direction{Left, Right} {
			assert.Equal(t, want, sortedCopy(Rotate(row, steps, dir)), "steps=%d dir=%s", steps, dir)
		}
	}
}

func TestRotatePeriodic(t *testing.T) {
	row := []int{1, 2, 3, 4, 5, 6, 7, 8}
	for _, dir := range []Direction{Left, Right} {
		assert.Equal(t, row, Rotate(row, len(row), dir))
		assert.Equal(t, row, Rotate(row, 3*len(row), dir))
	}
}

func TestRotateComposition(t *testing.T) {
	row := []int{1, 2, 3, 4, 5, 6}
	for a := 0; a < 8; a++ {
		for b := 0; b < 8; b++ {
			composed := Rotate(Rotate(row, a, Left), b, Left)
			assert.Equal(t, Rotate(row, a+b, Left), composed, "a=%d b=%d", a, b)
		}
	}

	// left then right by the same amount is the identity
	assert.Equal(t, row, Rotate(Rotate(row, 4, Left), 4, Right))
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("left")
	require.NoError(t, err)
	assert.Equal(t, Left, d)

	d, err = ParseDirection("  RIGHT ")
	require.NoError(t, err)
	assert.Equal(t, Right, d)

	_, err = ParseDirection("up")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidDirection))
}

func sortedCopy(xs []int) []int {
	out := append([]int(nil), xs...)
	sort.Ints(out)
	return out
}
