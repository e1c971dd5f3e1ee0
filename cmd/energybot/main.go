// energybot answers questions about commodity prices: current values,
// ten-week forecasts, recent history and hedge-or-speculate advice.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/seenimoa/energybot/internal/config"
	"github.com/seenimoa/energybot/internal/logger"
	"github.com/seenimoa/energybot/internal/trace"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global state shared by the subcommands.
var (
	cfg           *config.Config
	log           = zerolog.Nop()
	shutdownTrace trace.Shutdown
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "energybot",
	Short: "energybot: a chatbot for commodity price questions",
	Long: `energybot answers questions about Diesel, Petroleum, LNG and other
commodity prices: the current price, a ten-week forecast, recent history and
whether to hedge or speculate.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load .env: %w", err)
		}

		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Logging.Level = strings.ToLower(lvl)
		}

		log, err = logger.New(logger.Config{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Output: cfg.Logging.Output,
		})
		if err != nil {
			return err
		}

		shutdownTrace, err = trace.Init(cmd.Context(), cfg.Tracing.Enabled, version, os.Stderr)
		if err != nil {
			return fmt.Errorf("failed to start tracing: %w", err)
		}
		log.Debug().Str("command", cmd.Name()).Bool("tracing", cfg.Tracing.Enabled).Msg("starting")
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if shutdownTrace == nil {
			return nil
		}
		return shutdownTrace(context.Background())
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(forecastCmd)
	rootCmd.AddCommand(backtestCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(clientCmd)
	rootCmd.AddCommand(statusCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("energybot %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and where each setting came from",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  energybot: System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Println()

		fmt.Println("  Configuration:")
		fmt.Printf("    Commodities:   %s\n", strings.Join(cfg.Data.Commodities, ", "))
		fmt.Printf("    History:       %d weeks from %s\n", cfg.Data.Weeks, cfg.Data.StartDate)
		fmt.Printf("    Forecast:      %d weeks\n", cfg.Forecast.Horizon)
		fmt.Printf("    API Server:    %s\n", cfg.API.Addr())
		fmt.Printf("    Tracing:       %t\n", cfg.Tracing.Enabled)
		fmt.Println()

		fmt.Println("  Sources:")
		for _, s := range config.Report(cfg) {
			fmt.Printf("    %-20s %-30s (%s)\n", s.Name+":", s.Value, s.Source)
		}
		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}
