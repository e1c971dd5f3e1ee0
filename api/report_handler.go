package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/seenimoa/energybot/internal/report"
)

var reportContentTypes = map[report.ReportFormat]string{
	report.FormatHTML: "text/html; charset=utf-8",
	report.FormatText: "text/plain; charset=utf-8",
	report.FormatSVG:  "image/svg+xml",
}

// handleForecastReport renders a forecast as an SVG chart, an HTML page or
// plain text. Query params: format (default svg), weeks of history shown.
func (s *Server) handleForecastReport(w http.ResponseWriter, r *http.Request) {
	c, ok := s.d.Resolve(chi.URLParam(r, "name"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown commodity")
		return
	}

	format := report.FormatSVG
	if q := r.URL.Query().Get("format"); q != "" {
		f, err := report.ParseFormat(q)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		format = f
	}
	weeks := report.DefaultHistoryWeeks
	if q := r.URL.Query().Get("weeks"); q != "" {
		n, err := parsePositive(q)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "weeks must be a positive integer")
			return
		}
		weeks = n
	}

	f, v, err := s.d.Forecast(r.Context(), c)
	if err != nil {
		s.writeError(w, statusFor(err), err.Error())
		return
	}
	history, err := s.d.History(c, weeks)
	if err != nil {
		s.writeError(w, statusFor(err), err.Error())
		return
	}
	data, err := report.Build(history, f, v, time.Now())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out, err := report.Render(data, format)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", reportContentTypes[format])
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(out)); err != nil {
		s.log.Debug().Err(err).Msg("write report")
	}
}
