package reel

import (
	"fmt"
)

// Dimensions describe the grid shape.
type Dimensions struct {
	Rows      int `json:"rows" yaml:"rows"`
	Length    int `json:"length" yaml:"length"`
	Columns   int `json:"columns" yaml:"columns"`
	Highlight int `json:"highlight" yaml:"highlight"`
	MinValue  int `json:"min_value" yaml:"min_value"`
}

// DefaultDimensions is five rows of 1..50, 39 visible columns, highlight at 18.
func DefaultDimensions() Dimensions {
	return Dimensions{
		Rows:      5,
		Length:    50,
		Columns:   39,
		Highlight: 18,
		MinValue:  1,
	}
}

// Validate checks that the shape can be spun and adjusted.
func (d Dimensions) Validate() error {
	switch {
	case d.Rows < 1:
		return fmt.Errorf("%w: rows must be positive, got %d", ErrShape, d.Rows)
	case d.Length < 1:
		return fmt.Errorf("%w: length must be positive, got %d", ErrShape, d.Length)
	case d.Rows > d.Length:
		return fmt.Errorf("%w: %d rows cannot hold distinct values drawn from %d", ErrShape, d.Rows, d.Length)
	case d.Columns < 1 || d.Columns > d.Length:
		return fmt.Errorf("%w: columns must be between 1 and %d, got %d", ErrShape, d.Length, d.Columns)
	case d.Highlight < 0 || d.Highlight >= d.Columns:
		return fmt.Errorf("%w: highlight must be between 0 and %d, got %d", ErrShape, d.Columns-1, d.Highlight)
	}
	return nil
}

// Grid owns the rows of a reel set. It is not safe for concurrent use.
type Grid struct {
	dims Dimensions
	rows [][]int
}

// NewGrid fills every row with a fresh permutation drawn from src.
func NewGrid(d Dimensions, src FloatSource) (*Grid, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	rows := make([][]int, d.Rows)
	for i := range rows {
		rows[i] = Permutation(src, d.MinValue, d.Length)
	}
	return &Grid{dims: d, rows: rows}, nil
}

// FromRows builds a grid from explicit rows. Every row must have d.Length
// distinct values.
func FromRows(d Dimensions, rows [][]int) (*Grid, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if len(rows) != d.Rows {
		return nil, fmt.Errorf("%w: want %d rows, got %d", ErrShape, d.Rows, len(rows))
	}
	g := &Grid{dims: d, rows: make([][]int, len(rows))}
	for i, row := range rows {
		if len(row) != d.Length {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrShape, i, len(row), d.Length)
		}
		seen := make(map[int]struct{}, len(row))
		for _, v := range row {
			if contains(seen, v) {
				return nil, fmt.Errorf("%w: row %d repeats value %d", ErrShape, i, v)
			}
			seen[v] = struct{}{}
		}
		g.rows[i] = append([]int(nil), row...)
	}
	return g, nil
}

// Dimensions returns the grid shape.
func (g *Grid) Dimensions() Dimensions { return g.dims }

// Rows returns a deep copy of all rows at full length.
func (g *Grid) Rows() [][]int {
	out := make([][]int, len(g.rows))
	for i, row := range g.rows {
		out[i] = append([]int(nil), row...)
	}
	return out
}

// Row returns a copy of row i.
func (g *Grid) Row(i int) ([]int, error) {
	if i < 0 || i >= len(g.rows) {
		return nil, fmt.Errorf("%w: %d", ErrRowOutOfRange, i)
	}
	return append([]int(nil), g.rows[i]...), nil
}

// Visible returns the first Columns values of each row.
func (g *Grid) Visible() [][]int {
	out := make([][]int, len(g.rows))
	for i, row := range g.rows {
		out[i] = append([]int(nil), row[:g.dims.Columns]...)
	}
	return out
}

// Column returns the value at column c for every row.
func (g *Grid) Column(c int) []int {
	out := make([]int, len(g.rows))
	for i, row := range g.rows {
		out[i] = row[c]
	}
	return out
}

// Highlight returns the sampled column.
func (g *Grid) Highlight() []int {
	return g.Column(g.dims.Highlight)
}

// RotateRow rotates a single row without running the uniqueness pass.
func (g *Grid) RotateRow(i, steps int, dir Direction) error {
	if i < 0 || i >= len(g.rows) {
		return fmt.Errorf("%w: %d", ErrRowOutOfRange, i)
	}
	g.rows[i] = Rotate(g.rows[i], steps, dir)
	return nil
}

// Apply rotates every row by its instruction and then runs Adjust over the
// visible columns.
func (g *Grid) Apply(ins []Instruction) error {
	if len(ins) != len(g.rows) {
		return fmt.Errorf("%w: %d instructions for %d rows", ErrShape, len(ins), len(g.rows))
	}
	for i, in := range ins {
		g.rows[i] = Rotate(g.rows[i], in.Steps, in.Direction)
	}
	return Adjust(g.rows, g.dims.Columns)
}

// Clone returns an independent copy.
func (g *Grid) Clone() *Grid {
	return &Grid{dims: g.dims, rows: g.Rows()}
}
