package indicators

// SMA calculates the simple moving average for the last period values.
func SMA(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return 0
	}
	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period)
}

// SMASeries returns a series of sliding-window means, length-matched to the
// input. Inputs shorter than period yield a constant series repeating the
// mean of the whole input. Otherwise the first period-1 slots repeat the
// first windowed mean. Callers rely on this exact leading-edge policy.
func SMASeries(values []float64, period int) []float64 {
	n := len(values)
	if n == 0 || period <= 0 {
		return nil
	}
	out := make([]float64, n)

	if n < period {
		mean := 0.0
		for _, v := range values {
			mean += v
		}
		mean /= float64(n)
		for i := range out {
			out[i] = mean
		}
		return out
	}

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	first := sum / float64(period)
	for i := 0; i < period; i++ {
		out[i] = first
	}
	for i := period; i < n; i++ {
		sum += values[i] - values[i-period]
		out[i] = sum / float64(period)
	}
	return out
}
