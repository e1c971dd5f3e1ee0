package config

import (
	"os"
	"strconv"
	"strings"
)

// Source represents where a setting's effective value comes from.
type Source string

const (
	SourceEnv     Source = "env"
	SourceConfig  Source = "config"
	SourceDefault Source = "default"
)

// SettingStatus describes one effective setting for the status command.
type SettingStatus struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Source Source `json:"source"`
}

// Report lists the settings most worth checking before a session: where
// the price data comes from and where the server and logs go.
func Report(cfg *Config) []SettingStatus {
	dataSource := "synthetic"
	if cfg.Data.File != "" {
		dataSource = cfg.Data.File
	}
	return []SettingStatus{
		checkSetting("data.file", dataSource, cfg.Data.File != ""),
		checkSetting("data.commodities", strings.Join(cfg.Data.Commodities, ", "),
			strings.Join(cfg.Data.Commodities, ",") != strings.Join(DefaultCommodities, ",")),
		checkSetting("data.start_date", cfg.Data.StartDate, cfg.Data.StartDate != "2024-01-01"),
		checkSetting("forecast.horizon", strconv.Itoa(cfg.Forecast.Horizon), cfg.Forecast.Horizon != 10),
		checkSetting("api.port", strconv.Itoa(cfg.API.Port), cfg.API.Port != 5000),
		checkSetting("logging.level", cfg.Logging.Level, cfg.Logging.Level != "warn"),
	}
}

// checkSetting works out whether a value came from the environment, the
// config file, or the built-in default.
func checkSetting(key, value string, changed bool) SettingStatus {
	status := SettingStatus{Name: key, Value: value, Source: SourceDefault}
	if os.Getenv(EnvName(key)) != "" {
		status.Source = SourceEnv
	} else if changed {
		status.Source = SourceConfig
	}
	return status
}

// EnvName returns the environment variable that overrides key.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}
