package sigfig

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRound(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in   float64
		want float64
	}{
		{in: 0.75, want: 0.75},
		{in: 2.0 / 3, want: 0.6667},
		{in: 1234.5678, want: 1235},
		{in: -0.000123456, want: -0.0001235},
		{in: 0, want: 0},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, Round(tc.in, Digits), "Round(%v)", tc.in)
	}
	assert.True(t, math.IsNaN(Round(math.NaN(), Digits)))
	assert.True(t, math.IsInf(Round(math.Inf(1), Digits), 1))
}

func TestFormat(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "12350", Format(12345.6, Digits))
	assert.Equal(t, "0.3333", Format(1.0/3, Digits))
	assert.Equal(t, "5", Format(5, Digits))
}
