package api

import (
	"net/http"

	"github.com/keepstack/keepstack-server/internal/domain"
	"github.com/keepstack/keepstack-server/internal/http/response"
)

// handleStats returns totals, per-day activity, top tags and top domains.
// The "period" parameter selects week, month or year; default is week.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	period := domain.StatsPeriod(r.URL.Query().Get("period"))

	stats, err := s.stats.Overview(r.Context(), getUserID(r.Context()), period)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, stats, s.logger)
}
