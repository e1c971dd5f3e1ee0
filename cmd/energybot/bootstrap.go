package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/seenimoa/energybot/internal/chat"
	"github.com/seenimoa/energybot/internal/config"
	"github.com/seenimoa/energybot/internal/forecast"
	"github.com/seenimoa/energybot/internal/metrics"
	"github.com/seenimoa/energybot/internal/store"
	"github.com/seenimoa/energybot/pkg/models"
	"github.com/seenimoa/energybot/pkg/utils"
)

// app is everything a command needs to answer questions.
type app struct {
	dispatcher *chat.Dispatcher
	registry   *prometheus.Registry
}

// configuredStart parses data.start_date, falling back to the default epoch.
func configuredStart(cfg *config.Config) time.Time {
	t, err := utils.ParseDate(cfg.Data.StartDate)
	if err != nil {
		log.Warn().Err(err).Str("start_date", cfg.Data.StartDate).Msg("invalid start date, using default")
		return utils.DefaultEpoch
	}
	return t
}

// loadStore reads the configured CSV or generates synthetic series starting
// at start.
func loadStore(ctx context.Context, cfg *config.Config, start time.Time) (*store.Store, error) {
	if cfg.Data.File != "" {
		log.Debug().Str("file", cfg.Data.File).Msg("loading price file")
		return store.LoadCSVFile(cfg.Data.File)
	}

	seed := cfg.Data.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	g := store.Generator{
		Weeks:    cfg.Data.Weeks,
		MinPrice: cfg.Data.MinPrice,
		MaxPrice: cfg.Data.MaxPrice,
		Start:    start,
		Seed:     seed,
	}
	commodities := make([]models.Commodity, len(cfg.Data.Commodities))
	for i, name := range cfg.Data.Commodities {
		commodities[i] = models.Commodity(name)
	}
	log.Debug().Int("weeks", g.Weeks).Uint64("seed", seed).Time("start", start).Msg("generating price series")
	return g.Build(ctx, commodities)
}

// newApp builds the store, forecaster, metrics and dispatcher.
func newApp(ctx context.Context, cfg *config.Config, start time.Time) (*app, error) {
	st, err := loadStore(ctx, cfg, start)
	if err != nil {
		return nil, err
	}

	opts := []chat.Option{
		chat.WithHorizon(cfg.Forecast.Horizon),
		chat.WithHistoryWindow(cfg.Forecast.HistoryWindow),
		chat.WithLogger(log),
	}
	rt := &app{}
	if cfg.Metrics.Enabled {
		rt.registry = metrics.NewRegistry()
		opts = append(opts, chat.WithMetrics(metrics.New(rt.registry)))
	}
	rt.dispatcher = chat.NewDispatcher(st, forecast.NewDefault(), opts...)
	return rt, nil
}
