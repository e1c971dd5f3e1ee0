package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordIntent("greeting")
	r.RecordIntent("greeting")
	r.RecordIntent("help")
	r.RecordFailure("insufficient_history")
	r.ObserveForecast("Diesel", 0.002)
	r.SessionStarted()
	r.SessionStarted()
	r.SessionEnded()

	if got := testutil.ToFloat64(r.utterances.WithLabelValues("greeting")); got != 2 {
		t.Errorf("greeting count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.failures.WithLabelValues("insufficient_history")); got != 1 {
		t.Errorf("failure count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.sessions); got != 1 {
		t.Errorf("active sessions = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(r.forecastDuration); n != 1 {
		t.Errorf("forecast histogram series = %d, want 1", n)
	}
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	r.RecordIntent("x")
	r.RecordFailure("x")
	r.ObserveForecast("x", 1)
	r.SessionStarted()
	r.SessionEnded()
}

func TestNewRegistryGathers(t *testing.T) {
	reg := NewRegistry()
	New(reg).RecordIntent("help")
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather error: %v", err)
	}
	found := false
	for _, mf := range mfs {
		if mf.GetName() == "energybot_utterances_total" {
			found = true
		}
	}
	if !found {
		t.Error("energybot_utterances_total not gathered")
	}
}
