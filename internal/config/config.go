// Package config handles configuration loading for energybot.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. ENERGYBOT_API_PORT.
const EnvPrefix = "ENERGYBOT"

// DefaultCommodities is the tracked set when none is configured.
var DefaultCommodities = []string{"Diesel", "Petroleum", "LNG"}

// Config represents the complete application configuration.
type Config struct {
	Data     DataConfig     `mapstructure:"data"     yaml:"data"`
	Forecast ForecastConfig `mapstructure:"forecast" yaml:"forecast"`
	Chat     ChatConfig     `mapstructure:"chat"     yaml:"chat"`
	API      APIConfig      `mapstructure:"api"      yaml:"api"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
	Tracing  TracingConfig  `mapstructure:"tracing"  yaml:"tracing"`
	Metrics  MetricsConfig  `mapstructure:"metrics"  yaml:"metrics"`
}

// DataConfig describes where price series come from. When File is set the
// series are read from that CSV; otherwise they are generated.
type DataConfig struct {
	Commodities []string `mapstructure:"commodities" yaml:"commodities"`
	Weeks       int      `mapstructure:"weeks"       yaml:"weeks"`
	MinPrice    float64  `mapstructure:"min_price"   yaml:"min_price"`
	MaxPrice    float64  `mapstructure:"max_price"   yaml:"max_price"`
	StartDate   string   `mapstructure:"start_date"  yaml:"start_date"` // YYYY-MM-DD
	Seed        uint64   `mapstructure:"seed"        yaml:"seed"`       // 0 = time based
	File        string   `mapstructure:"file"        yaml:"file"`
}

// ForecastConfig holds forecast and history window lengths, in weeks.
type ForecastConfig struct {
	Horizon       int `mapstructure:"horizon"        yaml:"horizon"`
	HistoryWindow int `mapstructure:"history_window" yaml:"history_window"`
}

// ChatConfig holds console conversation settings.
type ChatConfig struct {
	Plot       bool `mapstructure:"plot"        yaml:"plot"`
	AskForDate bool `mapstructure:"ask_for_date" yaml:"ask_for_date"`
}

// APIConfig holds HTTP server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
	RateLimit   int      `mapstructure:"rate_limit"   yaml:"rate_limit"` // requests per second, 0 = unlimited
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "console" or "json"
	Output string `mapstructure:"output" yaml:"output"` // "stderr", "stdout" or a file path
}

// TracingConfig toggles the stdout span exporter.
type TracingConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// MetricsConfig toggles the /metrics endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.energybot/config.yaml (home directory)
//  3. /etc/energybot/config.yaml (system)
//
// Environment variables override config file values.
// Format: ENERGYBOT_<SECTION>_<KEY>, e.g., ENERGYBOT_API_PORT
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".energybot"))
	v.AddConfigPath("/etc/energybot")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	overrideFromEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Data defaults
	v.SetDefault("data.commodities", DefaultCommodities)
	v.SetDefault("data.weeks", 52)
	v.SetDefault("data.min_price", 50.0)
	v.SetDefault("data.max_price", 100.0)
	v.SetDefault("data.start_date", "2024-01-01")
	v.SetDefault("data.seed", 0)
	v.SetDefault("data.file", "")

	// Forecast defaults
	v.SetDefault("forecast.horizon", 10)
	v.SetDefault("forecast.history_window", 10)

	// Chat defaults
	v.SetDefault("chat.plot", true)
	v.SetDefault("chat.ask_for_date", true)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 5000)
	v.SetDefault("api.cors_origins", []string{"*"})
	v.SetDefault("api.rate_limit", 20)

	// Logging defaults
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("metrics.enabled", true)
}

// overrideFromEnv re-reads list settings that AutomaticEnv cannot split.
// ENERGYBOT_DATA_COMMODITIES and ENERGYBOT_API_CORS_ORIGINS are comma separated.
func overrideFromEnv(cfg *Config) {
	if raw := os.Getenv(EnvPrefix + "_DATA_COMMODITIES"); raw != "" {
		cfg.Data.Commodities = splitList(raw)
	}
	if raw := os.Getenv(EnvPrefix + "_API_CORS_ORIGINS"); raw != "" {
		cfg.API.CORSOrigins = splitList(raw)
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate rejects settings the bot cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Data.File == "" && len(c.Data.Commodities) == 0:
		return fmt.Errorf("config: data.commodities must not be empty")
	case c.Data.Weeks < 0:
		return fmt.Errorf("config: data.weeks must be >= 0, got %d", c.Data.Weeks)
	case c.Data.MinPrice < 0 || c.Data.MaxPrice < c.Data.MinPrice:
		return fmt.Errorf("config: invalid price range [%g, %g]", c.Data.MinPrice, c.Data.MaxPrice)
	case c.Forecast.Horizon < 1:
		return fmt.Errorf("config: forecast.horizon must be >= 1, got %d", c.Forecast.Horizon)
	case c.Forecast.HistoryWindow < 1:
		return fmt.Errorf("config: forecast.history_window must be >= 1, got %d", c.Forecast.HistoryWindow)
	case c.API.RateLimit < 0:
		return fmt.Errorf("config: api.rate_limit must be >= 0, got %d", c.API.RateLimit)
	case c.API.Port < 0 || c.API.Port > 65535:
		return fmt.Errorf("config: api.port out of range: %d", c.API.Port)
	}
	return nil
}

// Addr returns the host:port the API server listens on.
func (c APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
