package main

import (
	"net/http"

	"pushrelay/internal/metrics"
)

// handleMetrics exposes the in-memory metrics registry as JSON.
func (s *Server) handleMetrics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot := metrics.GetRegistry().GetSnapshot()
		s.writeJSON(w, http.StatusOK, snapshot)
	}
}
