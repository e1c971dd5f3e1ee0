package console

import (
	"fmt"
	"strings"

	"github.com/seenimoa/energybot/pkg/models"
	"github.com/seenimoa/energybot/pkg/utils"
)

const maxSparkWidth = 60

var blocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// PlotForecast renders a small text chart of a forecast: title, sparkline
// and the low/high points with their weeks.
func PlotForecast(f models.Forecast) string {
	if len(f.Points) == 0 {
		return ""
	}
	lo, hi := f.Points[0], f.Points[0]
	for _, p := range f.Points {
		if p.Value < lo.Value {
			lo = p
		}
		if p.Value > hi.Value {
			hi = p
		}
	}
	first, _ := f.First()
	last, _ := f.Last()

	var sb strings.Builder
	fmt.Fprintf(&sb, "  Predicted Prices for %s\n", f.Commodity)
	fmt.Fprintf(&sb, "  %s\n", Sparkline(f.Points))
	fmt.Fprintf(&sb, "  %s → %s  Low: %s (%s)  High: %s (%s)\n",
		utils.FormatDate(first.Time), utils.FormatDate(last.Time),
		utils.FormatUSD(lo.Value), utils.FormatDate(lo.Time),
		utils.FormatUSD(hi.Value), utils.FormatDate(hi.Time))
	return sb.String()
}

// Sparkline renders a block sparkline for a time-series, resampled to at
// most 60 characters.
func Sparkline(pts []models.TimePoint) string {
	if len(pts) == 0 {
		return ""
	}
	mn, mx := pts[0].Value, pts[0].Value
	for _, p := range pts {
		if p.Value < mn {
			mn = p.Value
		}
		if p.Value > mx {
			mx = p.Value
		}
	}
	span := mx - mn
	if span == 0 {
		span = 1
	}

	width := len(pts)
	if width > maxSparkWidth {
		width = maxSparkWidth
	}

	var sb strings.Builder
	for i := 0; i < width; i++ {
		idx := i * len(pts) / width
		bi := int((pts[idx].Value - mn) / span * float64(len(blocks)-1))
		bi = max(0, min(bi, len(blocks)-1))
		sb.WriteRune(blocks[bi])
	}
	return sb.String()
}
