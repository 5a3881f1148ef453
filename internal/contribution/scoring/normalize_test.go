package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, Normalize(nil))
	})

	t.Run("single student gets full marks", func(t *testing.T) {
		assert.Equal(t, []float64{10}, Normalize([]float64{3.5}))
	})

	t.Run("all equal values are exactly 10", func(t *testing.T) {
		assert.Equal(t, []float64{10, 10, 10}, Normalize([]float64{0, 0, 0}))
		assert.Equal(t, []float64{10, 10}, Normalize([]float64{42, 42}))
	})

	t.Run("min-max scaling keeps order", func(t *testing.T) {
		got := Normalize([]float64{5, 0, 10, 2.5})
		assert.InDeltaSlice(t, []float64{5, 0, 10, 2.5}, got, 1e-9)
	})

	t.Run("rescales arbitrary ranges", func(t *testing.T) {
		got := Normalize([]float64{100, 300, 200})
		assert.InDeltaSlice(t, []float64{0, 10, 5}, got, 1e-9)
	})

	t.Run("every value stays within bounds", func(t *testing.T) {
		inputs := [][]float64{
			{-5, 3, 1e6},
			{0.1, 0.2, 0.30000000000000004},
			{7},
			{1e-12, 2e-12},
		}
		for _, in := range inputs {
			for _, v := range Normalize(in) {
				assert.GreaterOrEqual(t, v, 0.0)
				assert.LessOrEqual(t, v, 10.0)
			}
		}
	})
}
