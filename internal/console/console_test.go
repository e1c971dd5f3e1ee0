package console

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/seenimoa/energybot/internal/chat"
	"github.com/seenimoa/energybot/internal/forecast"
	"github.com/seenimoa/energybot/internal/store"
	"github.com/seenimoa/energybot/pkg/models"
	"github.com/seenimoa/energybot/pkg/utils"
)

// ════════════════════════════════════════════════════════════════════
// Test Helpers
// ════════════════════════════════════════════════════════════════════

func newDispatcher(t *testing.T, weeks int) *chat.Dispatcher {
	t.Helper()
	g := store.Generator{Weeks: weeks, MinPrice: 50, MaxPrice: 100, Start: utils.DefaultEpoch, Seed: 7}
	st, err := g.Build(context.Background(), []models.Commodity{models.Diesel, models.Petroleum, models.LNG})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return chat.NewDispatcher(st, forecast.NewDefault())
}

func runConsole(t *testing.T, input string, opts ...Option) string {
	t.Helper()
	var out bytes.Buffer
	c := NewWithIO(strings.NewReader(input), &out, opts...)
	if err := c.Run(context.Background(), newDispatcher(t, 52)); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	return out.String()
}

// ════════════════════════════════════════════════════════════════════
// Start date prompt
// ════════════════════════════════════════════════════════════════════

func TestAskStartDate(t *testing.T) {
	var out bytes.Buffer
	c := NewWithIO(strings.NewReader("2024-03-15\n"), &out)
	got, err := c.AskStartDate()
	if err != nil {
		t.Fatalf("AskStartDate() error: %v", err)
	}
	want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if !strings.HasPrefix(out.String(), datePrompt) {
		t.Errorf("prompt missing: %q", out.String())
	}
}

func TestAskStartDateInvalidFallsBack(t *testing.T) {
	for _, answer := range []string{"15/03/2024", "yesterday", "2024-13-01"} {
		var out bytes.Buffer
		c := NewWithIO(strings.NewReader(answer+"\n"), &out)
		got, err := c.AskStartDate()
		if !errors.Is(err, ErrInvalidDateFormat) {
			t.Errorf("%q: err = %v, want ErrInvalidDateFormat", answer, err)
		}
		if !got.Equal(utils.DefaultEpoch) {
			t.Errorf("%q: got %v, want default epoch", answer, got)
		}
		if !strings.Contains(out.String(), "Invalid date format. Using default start date '2024-01-01'.") {
			t.Errorf("%q: notice missing: %q", answer, out.String())
		}
	}
}

func TestAskStartDateEOF(t *testing.T) {
	c := NewWithIO(strings.NewReader(""), io.Discard)
	got, err := c.AskStartDate()
	if err != nil || !got.Equal(utils.DefaultEpoch) {
		t.Errorf("got (%v, %v), want default epoch and nil", got, err)
	}
}

func TestDateThenConversationShareInput(t *testing.T) {
	var out bytes.Buffer
	c := NewWithIO(strings.NewReader("2024-02-01\nhello\nexit\n"), &out)
	if _, err := c.AskStartDate(); err != nil {
		t.Fatal(err)
	}
	if err := c.Run(context.Background(), newDispatcher(t, 52)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Bot: Hello! How can I assist you with energy prices today?") {
		t.Errorf("greeting reply missing:\n%s", out.String())
	}
}

// ════════════════════════════════════════════════════════════════════
// Conversation loop
// ════════════════════════════════════════════════════════════════════

func TestRunBannerAndExit(t *testing.T) {
	out := runConsole(t, "exit\nprice of diesel\n")

	if !strings.HasPrefix(out, "Welcome to the Energy Chatbot!\n") {
		t.Errorf("banner missing:\n%s", out)
	}
	if !strings.Contains(out, "historical data for Diesel, Petroleum, and LNG.") {
		t.Errorf("commodity list missing:\n%s", out)
	}
	if !strings.HasSuffix(out, "You: Goodbye!\n") {
		t.Errorf("expected farewell after exit, got:\n%s", out)
	}
	if strings.Contains(out, "current price") {
		t.Error("input after exit must not be answered")
	}
}

func TestRunQuitCaseInsensitive(t *testing.T) {
	out := runConsole(t, "QUIT\n")
	if !strings.HasSuffix(out, "Goodbye!\n") || strings.Contains(out, "Bot: Goodbye!") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestRunEOFSaysGoodbye(t *testing.T) {
	out := runConsole(t, "hi\n")
	if !strings.Contains(out, "Bot: Hello!") {
		t.Errorf("greeting missing:\n%s", out)
	}
	if !strings.HasSuffix(out, "\nGoodbye!\n") {
		t.Errorf("EOF should end with farewell:\n%s", out)
	}
}

func TestRunSkipsBlankLines(t *testing.T) {
	out := runConsole(t, "\n   \nexit\n")
	if strings.Contains(out, "Bot:") {
		t.Errorf("blank lines should not be answered:\n%s", out)
	}
	if got := strings.Count(out, userPrompt); got != 3 {
		t.Errorf("prompt count = %d, want 3", got)
	}
}

func TestRunPredictPlots(t *testing.T) {
	out := runConsole(t, "predict diesel\nexit\n")
	if !strings.Contains(out, "Bot: Predicted prices for Diesel:") {
		t.Errorf("forecast reply missing:\n%s", out)
	}
	if !strings.Contains(out, "Predicted Prices for Diesel\n") {
		t.Errorf("plot missing:\n%s", out)
	}

	out = runConsole(t, "predict diesel\nexit\n", WithPlot(false))
	if strings.Contains(out, "Predicted Prices for Diesel\n") {
		t.Errorf("plot should be disabled:\n%s", out)
	}
}

func TestRunApologyContinues(t *testing.T) {
	var out bytes.Buffer
	c := NewWithIO(strings.NewReader("predict lng\nhistory lng\nexit\n"), &out)
	if err := c.Run(context.Background(), newDispatcher(t, 6)); err != nil {
		t.Fatal(err)
	}
	s := out.String()
	if !strings.Contains(s, "Bot: Sorry, there isn't enough price history for LNG") {
		t.Errorf("apology missing:\n%s", s)
	}
	if !strings.Contains(s, "Bot: Historical prices for LNG:") {
		t.Errorf("session should continue after apology:\n%s", s)
	}
}

func TestRunInterrupt(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	var out syncBuffer
	c := NewWithIO(pr, &out)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, newDispatcher(t, 52)) }()

	if _, err := io.WriteString(pw, "hello\n"); err != nil {
		t.Fatal(err)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after interrupt")
	}
	if !strings.HasSuffix(out.String(), "\nGoodbye!\n") {
		t.Errorf("interrupt should print farewell:\n%s", out.String())
	}
}

// ════════════════════════════════════════════════════════════════════
// Formatting Helpers
// ════════════════════════════════════════════════════════════════════

func TestJoinAnd(t *testing.T) {
	tests := []struct {
		in   []string
		want string
	}{
		{nil, "no commodities"},
		{[]string{"LNG"}, "LNG"},
		{[]string{"Diesel", "LNG"}, "Diesel and LNG"},
		{[]string{"Diesel", "Petroleum", "LNG"}, "Diesel, Petroleum, and LNG"},
	}
	for _, tc := range tests {
		if got := joinAnd(tc.in); got != tc.want {
			t.Errorf("joinAnd(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func points(vals ...float64) []models.TimePoint {
	pts := make([]models.TimePoint, len(vals))
	for i, v := range vals {
		pts[i] = models.TimePoint{Time: utils.DefaultEpoch.AddDate(0, 0, 7*i), Value: v}
	}
	return pts
}

func TestSparkline(t *testing.T) {
	tests := []struct {
		name string
		pts  []models.TimePoint
		want string
	}{
		{"empty", nil, ""},
		{"rising", points(1, 2, 3, 4, 5, 6, 7, 8), "▁▂▃▄▅▆▇█"},
		{"flat", points(5, 5, 5), "▁▁▁"},
		{"peak", points(0, 10, 0), "▁█▁"},
	}
	for _, tc := range tests {
		if got := Sparkline(tc.pts); got != tc.want {
			t.Errorf("%s: Sparkline() = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestSparklineResamples(t *testing.T) {
	vals := make([]float64, 200)
	for i := range vals {
		vals[i] = float64(i)
	}
	if n := len([]rune(Sparkline(points(vals...)))); n != maxSparkWidth {
		t.Errorf("width = %d, want %d", n, maxSparkWidth)
	}
}

func TestPlotForecast(t *testing.T) {
	f := models.Forecast{Commodity: models.LNG, Horizon: 3, Points: points(70, 90, 60)}
	got := PlotForecast(f)
	for _, want := range []string{
		"Predicted Prices for LNG",
		"Low: $60.00 (2024-01-15)",
		"High: $90.00 (2024-01-08)",
		"2024-01-01 → 2024-01-15",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("plot missing %q:\n%s", want, got)
		}
	}
	if PlotForecast(models.Forecast{}) != "" {
		t.Error("empty forecast should render nothing")
	}
}
