package report

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/seenimoa/energybot/pkg/models"
	"github.com/seenimoa/energybot/pkg/utils"
)

// DefaultHistoryWeeks is how much history a report shows before the forecast.
const DefaultHistoryWeeks = 26

// ReportFormat specifies the output format.
type ReportFormat string

const (
	FormatHTML ReportFormat = "html"
	FormatText ReportFormat = "text"
	FormatSVG  ReportFormat = "svg"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (ReportFormat, error) {
	switch f := ReportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatHTML, FormatText, FormatSVG:
		return f, nil
	}
	return "", fmt.Errorf("unknown report format %q (want html, text or svg)", s)
}

// ReportData is everything a forecast report shows.
type ReportData struct {
	Title     string
	Commodity models.Commodity
	Generated string
	History   []PriceRow
	Forecast  []PriceRow
	Verdict   models.Verdict
	Advice    string
	Chart     template.HTML
}

// PriceRow is one formatted table row.
type PriceRow struct {
	Week  string
	Price string
}

// Build assembles report data from recent history and a forecast.
func Build(history models.Series, f models.Forecast, v models.Verdict, now time.Time) (ReportData, error) {
	if len(f.Points) == 0 {
		return ReportData{}, errors.New("report: forecast has no points")
	}
	return ReportData{
		Title:     fmt.Sprintf("%s price outlook", f.Commodity),
		Commodity: f.Commodity,
		Generated: now.UTC().Format("02 Jan 2006 15:04 MST"),
		History:   rows(history.Points),
		Forecast:  rows(f.Points),
		Verdict:   v,
		Advice:    v.Advice(),
		// ForecastChart escapes every text node it writes.
		Chart: template.HTML(ForecastChart(history, f, DefaultChartConfig())),
	}, nil
}

func rows(pts []models.TimePoint) []PriceRow {
	out := make([]PriceRow, len(pts))
	for i, p := range pts {
		out[i] = PriceRow{Week: utils.FormatDate(p.Time), Price: utils.FormatUSD(p.Value)}
	}
	return out
}

var reportTmpl = template.Must(template.New("report").Parse(ReportTemplate))

// GenerateHTML renders the report as a standalone HTML page.
func GenerateHTML(d ReportData) (string, error) {
	var buf bytes.Buffer
	if err := reportTmpl.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}
	return buf.String(), nil
}

// GenerateText renders the report for a terminal.
func GenerateText(d ReportData) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n%s\n", d.Title, strings.Repeat("═", len([]rune(d.Title))))
	fmt.Fprintf(&sb, "Generated: %s\n\n", d.Generated)

	if len(d.History) > 0 {
		sb.WriteString("Recent prices\n")
		sb.WriteString(utils.GridTable(table(d.History)))
		sb.WriteString("\n\n")
	}
	sb.WriteString("Forecast\n")
	sb.WriteString(utils.GridTable(table(d.Forecast)))
	fmt.Fprintf(&sb, "\n\n%s\n", d.Advice)
	return sb.String()
}

func table(rs []PriceRow) [][]string {
	out := [][]string{{"Week", "Price"}}
	for _, r := range rs {
		out = append(out, []string{r.Week, r.Price})
	}
	return out
}

// Render produces the report in the requested format. SVG yields only the chart.
func Render(d ReportData, format ReportFormat) (string, error) {
	switch format {
	case FormatHTML:
		return GenerateHTML(d)
	case FormatText:
		return GenerateText(d), nil
	case FormatSVG:
		return string(d.Chart), nil
	}
	return "", fmt.Errorf("unknown report format %q", format)
}
