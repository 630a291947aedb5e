package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolicy_Normalize(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name  string
		marks []float64
		want  float64
	}{
		{"mixed marks", []float64{1, 0.5, 0, 1}, 12.5},
		{"all full", []float64{1, 1, 1}, 20},
		{"all none", []float64{0, 0}, 0},
		{"thirds round to two decimals", []float64{1, 0, 0}, 6.67},
		{"half marks", []float64{0.5, 0.5, 1}, 13.33},
		{"empty", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, p.Normalize(tt.marks), 1e-9)
		})
	}
}

func TestPolicy_Passing(t *testing.T) {
	p := DefaultPolicy()

	assert.False(t, p.Passing(10.9))
	assert.True(t, p.Passing(11.0))
	assert.True(t, p.Passing(20))
	assert.False(t, p.Passing(0))

	strict := Policy{Scale: 20, PassThreshold: 14}
	assert.False(t, strict.Passing(13.99))
}

func TestValidMark(t *testing.T) {
	for _, m := range []float64{0, 0.5, 1} {
		assert.True(t, ValidMark(m), "mark %v", m)
	}
	for _, m := range []float64{-1, 0.25, 0.75, 2} {
		assert.False(t, ValidMark(m), "mark %v", m)
	}
}
