package reel

import "math"

// DefaultMaxSteps is the largest random step count of a spin instruction.
const DefaultMaxSteps = 7

// Instruction rotates one row by Steps in Direction.
type Instruction struct {
	Steps     int       `json:"steps"`
	Direction Direction `json:"direction"`
}

// NextInstructions draws one instruction per row. Each instruction consumes
// two floats: the step count 1..maxSteps, then the direction (left below 0.5).
func NextInstructions(src FloatSource, rows, maxSteps int) []Instruction {
	if maxSteps < 1 {
		maxSteps = 1
	}
	out := make([]Instruction, rows)
	for i := range out {
		steps := 1 + int(math.Floor(src.NextFloat()*float64(maxSteps)))
		if steps > maxSteps {
			steps = maxSteps
		}
		dir := Right
		if src.NextFloat() < 0.5 {
			dir = Left
		}
		out[i] = Instruction{Steps: steps, Direction: dir}
	}
	return out
}
