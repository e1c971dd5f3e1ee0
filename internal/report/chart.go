// Package report renders price charts and forecast reports as SVG, HTML
// and plain text.
package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/seenimoa/energybot/pkg/models"
	"github.com/seenimoa/energybot/pkg/utils"
)

// ════════════════════════════════════════════════════════════════════
// SVG Chart Generator
// ════════════════════════════════════════════════════════════════════

// ChartConfig holds rendering parameters for SVG charts.
type ChartConfig struct {
	Width        int    // SVG width in pixels (default: 800)
	Height       int    // SVG height in pixels (default: 400)
	MarginTop    int    // top margin (default: 40)
	MarginRight  int    // right margin (default: 60)
	MarginBottom int    // bottom margin (default: 50)
	MarginLeft   int    // left margin (default: 70)
	BgColor      string // background color (default: "#ffffff")
	GridColor    string // grid line color (default: "#e8e8e8")
	TextColor    string // axis label color (default: "#333333")
	FontSize     int    // axis label font size (default: 11)
	Title        string // chart title
}

// DefaultChartConfig returns sensible defaults for chart rendering.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Width:        800,
		Height:       400,
		MarginTop:    40,
		MarginRight:  60,
		MarginBottom: 50,
		MarginLeft:   70,
		BgColor:      "#ffffff",
		GridColor:    "#e8e8e8",
		TextColor:    "#333333",
		FontSize:     11,
	}
}

// plotArea returns the usable drawing area dimensions.
func (c ChartConfig) plotArea() (x, y, w, h int) {
	return c.MarginLeft, c.MarginTop,
		c.Width - c.MarginLeft - c.MarginRight,
		c.Height - c.MarginTop - c.MarginBottom
}

// ════════════════════════════════════════════════════════════════════
// Line Chart
// ════════════════════════════════════════════════════════════════════

// LineChartSeries represents a named data series for line charts. NaN
// values leave a gap.
type LineChartSeries struct {
	Name    string
	Values  []float64
	Color   string // hex color (optional, auto-assigned if empty)
	Markers bool   // draw a dot on every point
	Dashed  bool
}

var defaultColors = []string{"#2196f3", "#ff9800", "#4caf50", "#e91e63"}

// LineChart generates an SVG line chart with one or more series.
// Labels are optional X-axis labels corresponding to data points.
func LineChart(series []LineChartSeries, labels []string, cfg ChartConfig) string {
	if len(series) == 0 {
		return emptySVG(cfg, "No data")
	}
	if cfg.Width == 0 {
		title := cfg.Title
		cfg = DefaultChartConfig()
		cfg.Title = title
	}

	px, py, pw, ph := cfg.plotArea()

	// Find global min/max
	minVal, maxVal := math.MaxFloat64, -math.MaxFloat64
	maxLen := 0
	for _, s := range series {
		maxLen = max(maxLen, len(s.Values))
		for _, v := range s.Values {
			if math.IsNaN(v) {
				continue
			}
			minVal = math.Min(minVal, v)
			maxVal = math.Max(maxVal, v)
		}
	}
	if maxLen == 0 || minVal > maxVal {
		return emptySVG(cfg, "No data points")
	}

	vRange := maxVal - minVal
	if vRange < 0.001 {
		vRange = 1
	}
	minVal -= vRange * 0.05
	maxVal += vRange * 0.05
	vRange = maxVal - minVal

	xAt := func(i int) float64 {
		if maxLen == 1 {
			return float64(px) + float64(pw)/2
		}
		return float64(px) + float64(i)*float64(pw)/float64(maxLen-1)
	}
	yAt := func(v float64) float64 {
		return float64(py+ph) - (v-minVal)/vRange*float64(ph)
	}

	var sb strings.Builder
	sb.WriteString(svgHeader(cfg))
	fmt.Fprintf(&sb, `<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`,
		cfg.Width, cfg.Height, cfg.BgColor)
	if cfg.Title != "" {
		fmt.Fprintf(&sb, `<text x="%d" y="20" font-size="14" font-weight="bold" fill="%s" text-anchor="middle">%s</text>`,
			cfg.Width/2, cfg.TextColor, escapeXML(cfg.Title))
	}

	// Y-axis grid
	gridLines := 5
	for i := 0; i <= gridLines; i++ {
		val := minVal + vRange*float64(i)/float64(gridLines)
		y := py + ph - int(float64(ph)*float64(i)/float64(gridLines))
		fmt.Fprintf(&sb, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s" stroke-dasharray="3,3"/>`,
			px, y, px+pw, y, cfg.GridColor)
		fmt.Fprintf(&sb, `<text x="%d" y="%d" font-size="%d" fill="%s" text-anchor="end">%.1f</text>`,
			px-5, y+4, cfg.FontSize, cfg.TextColor, val)
	}

	for si, s := range series {
		color := s.Color
		if color == "" {
			color = defaultColors[si%len(defaultColors)]
		}

		var pathParts []string
		for i, v := range s.Values {
			if math.IsNaN(v) {
				continue
			}
			cmd := "L"
			if len(pathParts) == 0 {
				cmd = "M"
			}
			pathParts = append(pathParts, fmt.Sprintf("%s%.1f,%.1f", cmd, xAt(i), yAt(v)))
			if s.Markers {
				fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="3" fill="%s"/>`, xAt(i), yAt(v), color)
			}
		}
		if len(pathParts) > 1 {
			dash := ""
			if s.Dashed {
				dash = ` stroke-dasharray="6,4"`
			}
			fmt.Fprintf(&sb, `<path d="%s" fill="none" stroke="%s" stroke-width="2"%s/>`,
				strings.Join(pathParts, " "), color, dash)
		}

		// Legend
		ly := py + 10 + si*16
		fmt.Fprintf(&sb, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s" stroke-width="2"/>`,
			px+10, ly, px+30, ly, color)
		fmt.Fprintf(&sb, `<text x="%d" y="%d" font-size="10" fill="%s">%s</text>`,
			px+35, ly+4, cfg.TextColor, escapeXML(s.Name))
	}

	// X-axis labels
	if len(labels) > 0 {
		interval := max(maxLen/6, 1)
		for i := 0; i < len(labels) && i < maxLen; i += interval {
			fmt.Fprintf(&sb, `<text x="%.1f" y="%d" font-size="%d" fill="%s" text-anchor="middle">%s</text>`,
				xAt(i), py+ph+18, cfg.FontSize-1, cfg.TextColor, escapeXML(labels[i]))
		}
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// ForecastChart draws recent history and the forecast on one week axis.
// The forecast line starts at the last observed week so the two connect.
func ForecastChart(history models.Series, f models.Forecast, cfg ChartConfig) string {
	if cfg.Title == "" {
		cfg.Title = fmt.Sprintf("Predicted Prices for %s", f.Commodity)
	}
	n := len(history.Points) + len(f.Points)
	hist := make([]float64, n)
	pred := make([]float64, n)
	labels := make([]string, 0, n)
	for i := range hist {
		hist[i], pred[i] = math.NaN(), math.NaN()
	}
	for i, p := range history.Points {
		hist[i] = p.Value
		labels = append(labels, utils.FormatDate(p.Time))
	}
	if last, ok := history.Last(); ok && len(f.Points) > 0 {
		pred[len(history.Points)-1] = last.Value
	}
	for i, p := range f.Points {
		pred[len(history.Points)+i] = p.Value
		labels = append(labels, utils.FormatDate(p.Time))
	}

	series := []LineChartSeries{
		{Name: "Forecast", Values: pred, Color: "#1f4fd8", Markers: true, Dashed: true},
	}
	if len(history.Points) > 0 {
		series = append([]LineChartSeries{{Name: "History", Values: hist, Color: "#6b7280"}}, series...)
	}
	return LineChart(series, labels, cfg)
}

// ════════════════════════════════════════════════════════════════════
// Helpers
// ════════════════════════════════════════════════════════════════════

func svgHeader(cfg ChartConfig) string {
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif">`,
		cfg.Width, cfg.Height, cfg.Width, cfg.Height)
}

func emptySVG(cfg ChartConfig, msg string) string {
	if cfg.Width == 0 {
		cfg.Width = 400
	}
	if cfg.Height == 0 {
		cfg.Height = 200
	}
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d"><rect width="%d" height="%d" fill="#f5f5f5"/><text x="%d" y="%d" text-anchor="middle" fill="#999" font-size="14">%s</text></svg>`,
		cfg.Width, cfg.Height, cfg.Width, cfg.Height, cfg.Width/2, cfg.Height/2, escapeXML(msg))
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	return s
}
