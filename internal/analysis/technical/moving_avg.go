package technical

// SMA calculates the simple moving average for the given period. Entries
// before the first full window are zero.
func SMA(data []float64, period int) []float64 {
	n := len(data)
	if n < period || period <= 0 {
		return nil
	}

	result := make([]float64, n)
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += data[i]
	}
	result[period-1] = sum / float64(period)

	for i := period; i < n; i++ {
		sum += data[i] - data[i-period]
		result[i] = sum / float64(period)
	}
	return result
}

// EMA calculates the exponential moving average, seeded with the SMA of the
// first period values.
func EMA(data []float64, period int) []float64 {
	n := len(data)
	if n < period || period <= 0 {
		return nil
	}

	ema := make([]float64, n)
	k := 2.0 / float64(period+1)
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += data[i]
	}
	ema[period-1] = sum / float64(period)

	for i := period; i < n; i++ {
		ema[i] = data[i]*k + ema[i-1]*(1-k)
	}
	return ema
}

// latest returns the final value of an indicator series, or false when the
// series could not be computed.
func latest(vals []float64) (float64, bool) {
	if len(vals) == 0 {
		return 0, false
	}
	return vals[len(vals)-1], true
}
