package technical

import (
	"errors"
	"time"

	"github.com/seenimoa/energybot/pkg/models"
)

// ErrEmptySeries is returned when a summary is requested for no data.
var ErrEmptySeries = errors.New("technical: empty series")

// Indicator periods in weeks.
const (
	ShortPeriod = 4  // about a month
	LongPeriod  = 13 // about a quarter
	RSIPeriod   = 14
	BandPeriod  = 20
)

// Trend classifies the latest price against its moving averages.
type Trend string

const (
	Uptrend   Trend = "uptrend"
	Downtrend Trend = "downtrend"
	Sideways  Trend = "sideways"
)

// Summary is a snapshot of indicators at the latest week. Pointer fields are
// nil when the series is too short for that indicator.
type Summary struct {
	Commodity  models.Commodity `json:"commodity"`
	Week       time.Time        `json:"week"`
	Price      float64          `json:"price"`
	Change     float64          `json:"change_pct"` // vs previous week
	High       float64          `json:"high"`
	Low        float64          `json:"low"`
	SMAShort   *float64         `json:"sma_4,omitempty"`
	SMALong    *float64         `json:"sma_13,omitempty"`
	EMALong    *float64         `json:"ema_13,omitempty"`
	RSI        *float64         `json:"rsi_14,omitempty"`
	Bands      *Bands           `json:"bollinger_20,omitempty"`
	Volatility float64          `json:"volatility_pct"`
	Trend      Trend            `json:"trend"`
}

// Summarize computes the indicator snapshot for s.
func Summarize(s models.Series) (Summary, error) {
	last, ok := s.Last()
	if !ok {
		return Summary{}, ErrEmptySeries
	}
	vals := s.Values()

	sum := Summary{
		Commodity:  s.Commodity,
		Week:       last.Time,
		Price:      last.Value,
		High:       vals[0],
		Low:        vals[0],
		Volatility: Volatility(vals),
		Trend:      Sideways,
	}
	for _, v := range vals {
		sum.High = max(sum.High, v)
		sum.Low = min(sum.Low, v)
	}
	if n := len(vals); n > 1 && vals[n-2] != 0 {
		sum.Change = (vals[n-1] - vals[n-2]) / vals[n-2] * 100
	}

	sum.SMAShort = ptr(latest(SMA(vals, ShortPeriod)))
	sum.SMALong = ptr(latest(SMA(vals, LongPeriod)))
	sum.EMALong = ptr(latest(EMA(vals, LongPeriod)))
	sum.RSI = ptr(latest(RSI(vals, RSIPeriod)))
	if b := BollingerBands(vals, BandPeriod, 2); len(b) > 0 {
		sum.Bands = &b[len(b)-1]
	}

	if sum.SMAShort != nil && sum.SMALong != nil {
		switch {
		case last.Value > *sum.SMAShort && *sum.SMAShort > *sum.SMALong:
			sum.Trend = Uptrend
		case last.Value < *sum.SMAShort && *sum.SMAShort < *sum.SMALong:
			sum.Trend = Downtrend
		}
	}
	return sum, nil
}

func ptr(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}
