// Package spin drives the reel grid through phased spin plans. A Machine
// advances one event per Step call; a Runner supplies the timer.
package spin

import "time"

// Phase is one stage of deceleration: Count ticks spaced Delay apart.
type Phase struct {
	Delay time.Duration `json:"delay" yaml:"delay"`
	Count int           `json:"count" yaml:"count"`
}

// Plan is an ordered list of phases consumed front to back.
type Plan []Phase

// DefaultPlan is the fast-to-slow template used for every spin.
func DefaultPlan() Plan {
	return Plan{
		{Delay: 50 * time.Millisecond, Count: 5},
		{Delay: 100 * time.Millisecond, Count: 5},
		{Delay: 200 * time.Millisecond, Count: 4},
		{Delay: 300 * time.Millisecond, Count: 3},
		{Delay: 500 * time.Millisecond, Count: 2},
	}
}

// Clone returns a copy whose counts can be decremented independently.
func (p Plan) Clone() Plan {
	out := make(Plan, len(p))
	copy(out, p)
	return out
}

// Ticks is the number of rotation ticks the plan performs before a result.
func (p Plan) Ticks() int {
	n := 0
	for _, ph := range p {
		if ph.Count > 0 {
			n += ph.Count
		}
	}
	return n
}

// Duration is the total scheduled delay of the plan.
func (p Plan) Duration() time.Duration {
	var d time.Duration
	for _, ph := range p {
		if ph.Count > 0 {
			d += time.Duration(ph.Count) * ph.Delay
		}
	}
	return d
}
