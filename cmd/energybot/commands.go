package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/seenimoa/energybot/api"
	"github.com/seenimoa/energybot/internal/analysis/technical"
	"github.com/seenimoa/energybot/internal/backtest"
	"github.com/seenimoa/energybot/internal/chat"
	"github.com/seenimoa/energybot/internal/console"
	"github.com/seenimoa/energybot/internal/report"
	"github.com/seenimoa/energybot/pkg/models"
	"github.com/seenimoa/energybot/pkg/utils"
)

// --- Chat Command ---

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the interactive chatbot",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		c := console.New(console.WithPlot(cfg.Chat.Plot), console.WithLogger(log))

		start := configuredStart(cfg)
		if cfg.Chat.AskForDate && cfg.Data.File == "" {
			var err error
			if start, err = c.AskStartDate(); err != nil {
				log.Debug().Err(err).Msg("start date prompt")
			}
		}

		rt, err := newApp(ctx, cfg, start)
		if err != nil {
			return err
		}
		return c.Run(ctx, rt.dispatcher)
	},
}

// --- Ask Command ---

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a single question and exit",
	Example: `  energybot ask "What is the current price of Diesel?"
  energybot ask should I hedge or speculate on LNG`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newApp(cmd.Context(), cfg, configuredStart(cfg))
		if err != nil {
			return err
		}
		sess := rt.dispatcher.NewSession()
		defer sess.Close()

		reply, err := sess.Handle(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Println(reply.Text)
		return nil
	},
}

// --- Forecast Command ---

var forecastCmd = &cobra.Command{
	Use:   "forecast [commodity]",
	Short: "Print a price forecast with advice",
	Example: `  energybot forecast diesel
  energybot forecast lng --horizon 4 -o lng.html
  energybot forecast petroleum --format svg > petroleum.svg`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if h, _ := cmd.Flags().GetInt("horizon"); h > 0 {
			cfg.Forecast.Horizon = h
		}
		rt, err := newApp(cmd.Context(), cfg, configuredStart(cfg))
		if err != nil {
			return err
		}
		c, ok := rt.dispatcher.Resolve(args[0])
		if !ok {
			return fmt.Errorf("no data for %q", args[0])
		}
		f, v, err := rt.dispatcher.Forecast(cmd.Context(), c)
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")
		if format == "" && output == "" {
			rows := [][]string{{"Week", "Price"}}
			for _, p := range f.Points {
				rows = append(rows, []string{utils.FormatDate(p.Time), utils.FormatUSD(p.Value)})
			}
			fmt.Printf("Predicted prices for %s:\n", c)
			fmt.Println(utils.GridTable(rows))
			fmt.Print(console.PlotForecast(f))
			fmt.Println(v.Advice())
			return nil
		}
		return writeReport(rt, f, v, format, output)
	},
}

// writeReport renders the forecast report to output, or stdout when empty.
// The format defaults to the output file's extension.
func writeReport(rt *app, f models.Forecast, v models.Verdict, format, output string) error {
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(output), ".")
		if format == "txt" {
			format = string(report.FormatText)
		}
	}
	rf, err := report.ParseFormat(format)
	if err != nil {
		return err
	}
	history, err := rt.dispatcher.History(f.Commodity, report.DefaultHistoryWeeks)
	if err != nil {
		return err
	}
	data, err := report.Build(history, f, v, time.Now())
	if err != nil {
		return err
	}
	out, err := report.Render(data, rf)
	if err != nil {
		return err
	}
	if output == "" {
		fmt.Println(out)
		return nil
	}
	if err := os.WriteFile(output, []byte(out), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	fmt.Printf("Wrote %s report for %s to %s\n", rf, f.Commodity, output)
	return nil
}

func init() {
	forecastCmd.Flags().Int("horizon", 0, "weeks to forecast (default from config)")
	forecastCmd.Flags().String("format", "", "report format: text, html or svg")
	forecastCmd.Flags().StringP("output", "o", "", "write the report to a file")
}

// --- Stats Command ---

var statsCmd = &cobra.Command{
	Use:   "stats [commodity...]",
	Short: "Show moving averages, RSI and trend for commodities",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newApp(cmd.Context(), cfg, configuredStart(cfg))
		if err != nil {
			return err
		}
		commodities := rt.dispatcher.Commodities()
		if len(args) > 0 {
			commodities = commodities[:0:0]
			for _, a := range args {
				c, ok := rt.dispatcher.Resolve(a)
				if !ok {
					return fmt.Errorf("no data for %q", a)
				}
				commodities = append(commodities, c)
			}
		}

		rows := [][]string{{"Commodity", "Week", "Price", "Chg %", "SMA 4", "SMA 13", "RSI 14", "Trend"}}
		for _, c := range commodities {
			sum, err := rt.dispatcher.Indicators(c)
			if err != nil {
				return err
			}
			rows = append(rows, statsRow(sum))
		}
		fmt.Println(utils.GridTable(rows))
		return nil
	},
}

func statsRow(s technical.Summary) []string {
	opt := func(v *float64, format func(float64) string) string {
		if v == nil {
			return "-"
		}
		return format(*v)
	}
	return []string{
		string(s.Commodity),
		utils.FormatDate(s.Week),
		utils.FormatUSD(s.Price),
		fmt.Sprintf("%+.1f", s.Change),
		opt(s.SMAShort, utils.FormatUSD),
		opt(s.SMALong, utils.FormatUSD),
		opt(s.RSI, func(v float64) string { return fmt.Sprintf("%.0f", v) }),
		string(s.Trend),
	}
}

// --- Backtest Command ---

var backtestCmd = &cobra.Command{
	Use:   "backtest [commodity]",
	Short: "Measure forecast accuracy on past weeks",
	Long: `Fits the model on earlier slices of history, projects forward and
compares the projection, and the hedge/speculate advice, with the weeks that
followed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newApp(cmd.Context(), cfg, configuredStart(cfg))
		if err != nil {
			return err
		}
		c, ok := rt.dispatcher.Resolve(args[0])
		if !ok {
			return fmt.Errorf("no data for %q", args[0])
		}
		bc := backtest.DefaultConfig()
		bc.Horizon, _ = cmd.Flags().GetInt("horizon")
		bc.Folds, _ = cmd.Flags().GetInt("folds")
		bc.Step, _ = cmd.Flags().GetInt("step")

		res, err := rt.dispatcher.Backtest(cmd.Context(), c, bc)
		if err != nil {
			return err
		}
		fmt.Print(formatBacktest(res))
		return nil
	},
}

func init() {
	backtestCmd.Flags().Int("horizon", 0, "weeks projected per origin (default from config)")
	backtestCmd.Flags().Int("folds", backtest.DefaultConfig().Folds, "number of forecast origins")
	backtestCmd.Flags().Int("step", 1, "weeks between origins")
}

func formatBacktest(r *backtest.Result) string {
	rows := [][]string{{"Origin", "Advised", "Realised", "MAE"}}
	for _, f := range r.Folds {
		rows = append(rows, []string{
			utils.FormatDate(f.Origin),
			string(f.Advised),
			string(f.Realised),
			utils.FormatUSD(f.MAE),
		})
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Backtest for %s (%d-week horizon, %d folds", r.Commodity, r.Config.Horizon, len(r.Folds))
	if r.Skipped > 0 {
		fmt.Fprintf(&sb, ", %d skipped", r.Skipped)
	}
	sb.WriteString(")\n")
	sb.WriteString(utils.GridTable(rows))
	fmt.Fprintf(&sb, "\nMAE %s  RMSE %s  MAPE %.1f%%  Advice hit rate %.0f%%\n",
		utils.FormatUSD(r.MAE), utils.FormatUSD(r.RMSE), r.MAPE, r.HitRate)
	return sb.String()
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP chat server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.API.Port = port
		}
		rt, err := newApp(ctx, cfg, configuredStart(cfg))
		if err != nil {
			return err
		}

		opts := api.Options{
			Config:     cfg,
			Dispatcher: rt.dispatcher,
			Logger:     log,
			Version:    version,
		}
		if rt.registry != nil {
			opts.Gatherer = rt.registry
		}
		srv, err := api.NewServer(opts)
		if err != nil {
			return err
		}
		fmt.Printf("Starting energybot server on %s\n", cfg.API.Addr())
		return srv.ListenAndServe(ctx, cfg.API.Addr())
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (default from config)")
}

// --- Client Command ---

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Chat with a running energybot server",
	RunE: func(cmd *cobra.Command, args []string) error {
		url, _ := cmd.Flags().GetString("url")
		return runClient(url)
	},
}

func init() {
	clientCmd.Flags().String("url", "http://localhost:5000/chat", "chat endpoint URL")
}

// runClient relays stdin lines to the server's /chat endpoint.
func runClient(url string) error {
	httpClient := &http.Client{Timeout: 30 * time.Second}
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("You: ")
		if !scanner.Scan() {
			fmt.Println("\nChatbot: Goodbye!")
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		reply, err := postChat(httpClient, url, line)
		if err != nil {
			fmt.Printf("Chatbot: Error: %v\n", err)
			continue
		}
		fmt.Printf("Chatbot: %s\n", reply.Text)
		if reply.Terminated {
			return nil
		}
	}
}

func postChat(c *http.Client, url, message string) (chat.Reply, error) {
	body, err := json.Marshal(api.ChatRequest{Message: message})
	if err != nil {
		return chat.Reply{}, err
	}
	resp, err := c.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return chat.Reply{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return chat.Reply{}, fmt.Errorf("server returned %s", resp.Status)
	}
	var reply chat.Reply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return chat.Reply{}, fmt.Errorf("decode reply: %w", err)
	}
	return reply, nil
}
