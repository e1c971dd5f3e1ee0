// Package metrics records chat and forecasting activity with Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds the bot's Prometheus collectors. A nil *Recorder is valid
// and records nothing.
type Recorder struct {
	utterances       *prometheus.CounterVec
	failures         *prometheus.CounterVec
	forecastDuration *prometheus.HistogramVec
	sessions         prometheus.Gauge
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		utterances: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "energybot_utterances_total",
				Help: "Utterances handled, by intent",
			},
			[]string{"intent"},
		),
		failures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "energybot_failures_total",
				Help: "Data or model failures turned into apologies, by kind",
			},
			[]string{"kind"},
		),
		forecastDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "energybot_forecast_duration_seconds",
				Help:    "Time spent fitting and projecting a forecast",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"commodity"},
		),
		sessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "energybot_active_sessions",
			Help: "Chat sessions currently running",
		}),
	}
}

// NewRegistry returns a private registry with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return reg
}

// RecordIntent counts one handled utterance.
func (r *Recorder) RecordIntent(intent string) {
	if r == nil {
		return
	}
	r.utterances.WithLabelValues(intent).Inc()
}

// RecordFailure counts one failure converted into a user-facing apology.
func (r *Recorder) RecordFailure(kind string) {
	if r == nil {
		return
	}
	r.failures.WithLabelValues(kind).Inc()
}

// ObserveForecast records the duration of one forecast in seconds.
func (r *Recorder) ObserveForecast(commodity string, seconds float64) {
	if r == nil {
		return
	}
	r.forecastDuration.WithLabelValues(commodity).Observe(seconds)
}

// SessionStarted increments the active session gauge.
func (r *Recorder) SessionStarted() {
	if r == nil {
		return
	}
	r.sessions.Inc()
}

// SessionEnded decrements the active session gauge.
func (r *Recorder) SessionEnded() {
	if r == nil {
		return
	}
	r.sessions.Dec()
}
