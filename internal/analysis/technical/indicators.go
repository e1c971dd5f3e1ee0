// Package technical computes indicators over weekly price series: moving
// averages, RSI, Bollinger bands and a per-commodity summary.
package technical

import "math"

// RSI calculates the Relative Strength Index with Wilder's smoothing.
// Values are 0 to 100; entries before index period are zero.
func RSI(data []float64, period int) []float64 {
	if period <= 0 {
		period = 14
	}
	n := len(data)
	if n < period+1 {
		return nil
	}

	rsi := make([]float64, n)
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := data[i] - data[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	rsi[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < n; i++ {
		change := data[i] - data[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		rsi[i] = rsiValue(avgGain, avgLoss)
	}
	return rsi
}

func rsiValue(gain, loss float64) float64 {
	if loss == 0 {
		if gain == 0 {
			return 50
		}
		return 100
	}
	return 100 - 100/(1+gain/loss)
}

// Bands is one Bollinger band reading.
type Bands struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// BollingerBands calculates bands of mult population standard deviations
// around the SMA. Defaults: period 20, mult 2.
func BollingerBands(data []float64, period int, mult float64) []Bands {
	if period <= 0 {
		period = 20
	}
	if mult <= 0 {
		mult = 2.0
	}
	n := len(data)
	if n < period {
		return nil
	}

	result := make([]Bands, n)
	for i := period - 1; i < n; i++ {
		window := data[i-period+1 : i+1]
		mean := avg(window)
		sd := stddev(window, mean)
		result[i] = Bands{Upper: mean + mult*sd, Middle: mean, Lower: mean - mult*sd}
	}
	return result
}

// Volatility is the population standard deviation of week-over-week
// percentage changes.
func Volatility(data []float64) float64 {
	if len(data) < 3 {
		return 0
	}
	changes := make([]float64, 0, len(data)-1)
	for i := 1; i < len(data); i++ {
		if data[i-1] != 0 {
			changes = append(changes, (data[i]-data[i-1])/data[i-1]*100)
		}
	}
	return stddev(changes, avg(changes))
}

func avg(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

func stddev(data []float64, mean float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sumSq := 0.0
	for _, v := range data {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(data)))
}
