package api

import (
	"net/http"

	"github.com/seenimoa/energybot/internal/config"
)

// handleGetConfig returns the running configuration.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    s.cfg,
	})
}

// handleGetConfigSources reports where the key settings came from.
func (s *Server) handleGetConfigSources(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    config.Report(s.cfg),
	})
}
