package problem

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBox(t *testing.T) {
	tests := []struct {
		name      string
		low, high []float64
		wantErr   bool
	}{
		{name: "valid", low: []float64{-1, 0}, high: []float64{1, 0}},
		{name: "empty", low: nil, high: nil, wantErr: true},
		{name: "length mismatch", low: []float64{0}, high: []float64{1, 2}, wantErr: true},
		{name: "inverted", low: []float64{1}, high: []float64{0}, wantErr: true},
		{name: "nan", low: []float64{math.NaN()}, high: []float64{1}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBox(tt.low, tt.high)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
	assert.Panics(t, func() { MustBox([]float64{1}, []float64{0}) })
}

func TestBox(t *testing.T) {
	b, err := UniformBox(3, -1, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, b.Dim())
	assert.True(t, b.Bounded())

	assert.True(t, b.Contains([]float64{0, 1, -1}))
	assert.False(t, b.Contains([]float64{0, 1.1, 0}))
	assert.False(t, b.Contains([]float64{0, 0}))
	assert.False(t, b.Contains([]float64{math.NaN(), 0, 0}))

	assert.Equal(t, []float64{1, -1, 0.5}, b.Clip([]float64{3, -2, 0.5}))

	rng := rand.New(rand.NewPCG(1, 2))
	for range 100 {
		assert.True(t, b.Contains(b.Sample(rng)))
	}

	_, err = UniformBox(0, 0, 1)
	assert.Error(t, err)
}

func TestBox_Unbounded(t *testing.T) {
	inf := math.Inf(1)
	b := MustBox([]float64{0, -inf, -inf}, []float64{inf, 0, inf})
	assert.False(t, b.Bounded())

	rng := rand.New(rand.NewPCG(3, 4))
	for range 100 {
		x := b.Sample(rng)
		assert.True(t, b.Contains(x))
	}
	assert.Equal(t, "Box([0 -Inf -Inf], [+Inf 0 +Inf])", b.String())
}
