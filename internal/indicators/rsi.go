package indicators

import "math"

// RSI computes a basic Relative Strength Index with smoothing disabled for simplicity.
func RSI(values []float64, period int) float64 {
	if period <= 0 || len(values) < period+1 {
		return 0
	}

	gain := 0.0
	loss := 0.0
	for i := len(values) - period; i < len(values); i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			gain += change
		} else {
			loss -= change
		}
	}

	if loss == 0 {
		return 100
	}
	rs := gain / loss
	return 100 - (100 / (1 + rs))
}

// RSISeries computes the RSI at every bar. Slots before period+1 samples
// exist are backfilled with the first computable value; if nothing is
// computable the series stays zeroed. NaNs are zeroed, never propagated.
func RSISeries(values []float64, period int) []float64 {
	n := len(values)
	if n == 0 {
		return nil
	}
	out := make([]float64, n)

	firstIdx := -1
	for i := period; i < n; i++ {
		v := RSI(values[:i+1], period)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		out[i] = v
		if firstIdx < 0 {
			firstIdx = i
		}
	}
	if firstIdx > 0 {
		for i := 0; i < firstIdx; i++ {
			out[i] = out[firstIdx]
		}
	}
	return out
}
