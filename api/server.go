// Package api provides the HTTP chat server for energybot.
//
// It exposes the chat endpoint used by the command-line client, a JSON API
// for commodities and forecasts, WebSocket chat and Prometheus metrics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/seenimoa/energybot/internal/analysis/technical"
	"github.com/seenimoa/energybot/internal/backtest"
	"github.com/seenimoa/energybot/internal/chat"
	"github.com/seenimoa/energybot/internal/config"
	"github.com/seenimoa/energybot/internal/forecast"
	"github.com/seenimoa/energybot/internal/infra"
	"github.com/seenimoa/energybot/internal/store"
	"github.com/seenimoa/energybot/pkg/models"
	"github.com/seenimoa/energybot/pkg/utils"
)

// Options configures a Server.
type Options struct {
	Config     *config.Config
	Dispatcher *chat.Dispatcher
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
	Logger   zerolog.Logger
	Version  string
}

// Server is the HTTP API server.
type Server struct {
	router  chi.Router
	cfg     *config.Config
	d       *chat.Dispatcher
	metrics prometheus.Gatherer
	log     zerolog.Logger
	version string
	wsHub   *WSHub
	limiter *infra.RateLimiter
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(opts Options) (*Server, error) {
	if opts.Dispatcher == nil {
		return nil, errors.New("api: dispatcher is required")
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = &config.Config{}
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}
	s := &Server{
		cfg:     cfg,
		d:       opts.Dispatcher,
		metrics: opts.Gatherer,
		log:     opts.Logger,
		version: version,
		wsHub:   NewWSHub(),
	}
	if rps := cfg.API.RateLimit; rps > 0 {
		s.limiter = infra.NewRateLimiter(rps, time.Second/time.Duration(rps))
	}
	s.router = s.buildRouter()
	return s, nil
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully and closes open WebSocket sessions.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	s.log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	s.wsHub.CloseAll()
	return httpSrv.Shutdown(shutdownCtx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	// Plain chat endpoint; request {"message"} and reply {"response"}.
	r.With(s.rateLimit, middleware.Timeout(30*time.Second)).Post("/chat", s.handleChat)

	if s.metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(s.rateLimit, middleware.Timeout(30*time.Second))
			r.Post("/chat", s.handleChatV1)
			r.Get("/commodities", s.handleCommodities)
			r.Get("/commodities/{name}/history", s.handleHistory)
			r.Get("/commodities/{name}/indicators", s.handleIndicators)
			r.Get("/forecast/{name}", s.handleForecast)
			r.Get("/forecast/{name}/report", s.handleForecastReport)
			r.Get("/backtest/{name}", s.handleBacktest)
		})

		r.Get("/config", s.handleGetConfig)
		r.Get("/config/sources", s.handleGetConfigSources)

		r.Get("/ws", s.handleWebSocket)
	})
	r.Get("/ws", s.handleWebSocket)

	return r
}

// requestLogger logs one line per request at debug level.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("elapsed", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}

// rateLimit rejects requests with 429 while the shared token bucket is empty.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			s.writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope for /api/v1 endpoints.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ChatRequest is the body of a chat request.
type ChatRequest struct {
	Message string `json:"message"`
}

// CommodityInfo summarizes one tracked commodity.
type CommodityInfo struct {
	Name   models.Commodity `json:"name"`
	Latest float64          `json:"latest,omitempty"`
	Week   string           `json:"week,omitempty"`
}

// ForecastResponse carries a forecast with its advice.
type ForecastResponse struct {
	Commodity models.Commodity `json:"commodity"`
	Points    []PricePoint     `json:"points"`
	Verdict   models.Verdict   `json:"verdict"`
	Advice    string           `json:"advice"`
}

// PricePoint is a dated price in API responses.
type PricePoint struct {
	Week  string  `json:"week"`
	Price float64 `json:"price"`
}

func toPricePoints(pts []models.TimePoint) []PricePoint {
	out := make([]PricePoint, len(pts))
	for i, p := range pts {
		out[i] = PricePoint{Week: utils.FormatDate(p.Time), Price: p.Value}
	}
	return out
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":      "ok",
			"version":     s.version,
			"commodities": len(s.d.Commodities()),
			"ws_clients":  s.wsHub.ClientCount(),
			"time":        time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// handleChat answers one message in a fresh session. The reply body is the
// bare chat.Reply so simple clients can read "response" directly.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	reply, status, msg := s.chat(r)
	if status != http.StatusOK {
		s.writeJSON(w, status, map[string]string{"error": msg})
		return
	}
	s.writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleChatV1(w http.ResponseWriter, r *http.Request) {
	reply, status, msg := s.chat(r)
	if status != http.StatusOK {
		s.writeError(w, status, msg)
		return
	}
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: reply})
}

func (s *Server) chat(r *http.Request) (chat.Reply, int, string) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return chat.Reply{}, http.StatusBadRequest, "invalid request body"
	}
	if req.Message == "" {
		return chat.Reply{}, http.StatusBadRequest, "message is required"
	}

	sess := s.d.NewSession()
	defer sess.Close()
	reply, err := sess.Handle(r.Context(), req.Message)
	if err != nil {
		return chat.Reply{}, http.StatusInternalServerError, err.Error()
	}
	return reply, http.StatusOK, ""
}

func (s *Server) handleCommodities(w http.ResponseWriter, r *http.Request) {
	commodities := s.d.Commodities()
	out := make([]CommodityInfo, 0, len(commodities))
	for _, c := range commodities {
		info := CommodityInfo{Name: c}
		if p, err := s.d.Latest(c); err == nil {
			info.Latest = p.Value
			info.Week = utils.FormatDate(p.Time)
		}
		out = append(out, info)
	}
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: out})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	c, ok := s.d.Resolve(chi.URLParam(r, "name"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown commodity")
		return
	}
	weeks := s.cfg.Forecast.HistoryWindow
	if weeks < 1 {
		weeks = chat.DefaultHistoryWindow
	}
	if q := r.URL.Query().Get("weeks"); q != "" {
		n, err := parsePositive(q)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "weeks must be a positive integer")
			return
		}
		weeks = n
	}
	series, err := s.d.History(c, weeks)
	if err != nil {
		s.writeError(w, statusFor(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: map[string]interface{}{
		"commodity": c,
		"points":    toPricePoints(series.Points),
	}})
}

// maxBacktestFolds bounds the model fits one request can trigger.
const maxBacktestFolds = 52

func (s *Server) handleIndicators(w http.ResponseWriter, r *http.Request) {
	c, ok := s.d.Resolve(chi.URLParam(r, "name"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown commodity")
		return
	}
	sum, err := s.d.Indicators(c)
	if err != nil {
		s.writeError(w, statusFor(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: sum})
}

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	c, ok := s.d.Resolve(chi.URLParam(r, "name"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown commodity")
		return
	}
	cfg := backtest.DefaultConfig()
	cfg.Horizon = 0
	for param, dst := range map[string]*int{"folds": &cfg.Folds, "horizon": &cfg.Horizon, "step": &cfg.Step} {
		q := r.URL.Query().Get(param)
		if q == "" {
			continue
		}
		n, err := parsePositive(q)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, param+" must be a positive integer")
			return
		}
		*dst = n
	}
	if cfg.Folds > maxBacktestFolds {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("folds must be at most %d", maxBacktestFolds))
		return
	}

	res, err := s.d.Backtest(r.Context(), c, cfg)
	if err != nil {
		s.writeError(w, statusFor(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: res})
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	c, ok := s.d.Resolve(chi.URLParam(r, "name"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown commodity")
		return
	}
	f, v, err := s.d.Forecast(r.Context(), c)
	if err != nil {
		s.writeError(w, statusFor(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: ForecastResponse{
		Commodity: c,
		Points:    toPricePoints(f.Points),
		Verdict:   v,
		Advice:    v.Advice(),
	}})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrUnknownCommodity):
		return http.StatusNotFound
	case errors.Is(err, store.ErrEmptySeries), errors.Is(err, technical.ErrEmptySeries),
		errors.Is(err, forecast.ErrInsufficientHistory),
		errors.Is(err, backtest.ErrNoFolds):
		return http.StatusConflict
	case errors.Is(err, forecast.ErrModelFit):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func parsePositive(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("not a positive integer: %q", s)
	}
	return n, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn().Err(err).Int("status", status).Msg("failed to write JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
