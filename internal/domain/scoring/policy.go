// Package scoring turns sub-criterion marks into a normalized total and
// classifies totals against the approval threshold.
package scoring

import "math"

const (
	// DefaultScale is the top of the normalized score range
	DefaultScale = 20.0
	// DefaultPassThreshold is the lowest normalized score that passes
	DefaultPassThreshold = 11.0
)

// Allowed sub-criterion marks
const (
	MarkNone = 0.0
	MarkHalf = 0.5
	MarkFull = 1.0
)

// Policy holds the normalization scale and the approval threshold
type Policy struct {
	Scale         float64
	PassThreshold float64
}

// DefaultPolicy returns the 0-20 scale with a pass mark of 11
func DefaultPolicy() Policy {
	return Policy{
		Scale:         DefaultScale,
		PassThreshold: DefaultPassThreshold,
	}
}

// ValidMark reports whether p is one of 0, 0.5 or 1
func ValidMark(p float64) bool {
	return p == MarkNone || p == MarkHalf || p == MarkFull
}

// Normalize projects the mean of the marks onto the policy scale, rounded to
// two decimals. An empty set of marks normalizes to zero.
func (p Policy) Normalize(marks []float64) float64 {
	if len(marks) == 0 {
		return 0
	}

	var sum float64
	for _, m := range marks {
		sum += m
	}

	return Round2((sum / float64(len(marks))) * p.Scale)
}

// Passing reports whether a normalized score meets the threshold
func (p Policy) Passing(score float64) bool {
	return score >= p.PassThreshold
}

// Round2 rounds half away from zero to two decimals
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
