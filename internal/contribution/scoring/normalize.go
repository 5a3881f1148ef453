package scoring

import "math"

const (
	scaleMin = 0.0
	scaleMax = 10.0
	epsilon  = 1e-9
)

// Normalize rescales values to [0,10] with min-max scaling. When every value is
// equal (including a single value) each result is 10, so nobody is zeroed out
// for lack of a spread. Output order matches input order.
func Normalize(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}

	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	for i, v := range values {
		out[i] = normalizeValue(v, min, max)
	}
	return out
}

func normalizeValue(v, min, max float64) float64 {
	if math.Abs(max-min) < epsilon {
		return scaleMax
	}
	n := (v-min)/(max-min)*(scaleMax-scaleMin) + scaleMin
	return clamp(n, scaleMin, scaleMax)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
