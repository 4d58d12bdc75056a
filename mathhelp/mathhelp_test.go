package mathhelp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBetweenInc(t *testing.T) {
	assert.True(t, BetweenInc(3, 1, 3))
	assert.True(t, BetweenInc(2, 3, 1))
	assert.False(t, BetweenInc(4, 1, 3))
	assert.True(t, BetweenInc(0.5, 0.0, 1.0))
}

func TestFloorIndex(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{in: 0, want: 0},
		{in: 2.5, want: 2},
		{in: 2.9999999, want: 3},
		{in: 2.99, want: 2},
		{in: -0.5, want: 0},
		{in: -3, want: 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FloorIndex(tt.in), "FloorIndex(%v)", tt.in)
	}
}
