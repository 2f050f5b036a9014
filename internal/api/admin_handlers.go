package api

import (
	"errors"
	"net/http"

	"github.com/keepstack/keepstack-server/internal/http/response"
	"github.com/keepstack/keepstack-server/internal/store"
)

// handleReindex rebuilds the owner's full-text index from the resources
// table and reports how many rows were indexed.
func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	indexed, err := s.maintenance.Reindex(r.Context(), getUserID(r.Context()))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, map[string]int64{
		"indexed": indexed,
	}, s.logger)
}

// handleVerifyIndex compares the resources table against the index. A
// diverged index returns the report with a 500 so monitors trip on it.
func (s *Server) handleVerifyIndex(w http.ResponseWriter, r *http.Request) {
	report, err := s.maintenance.Verify(r.Context(), getUserID(r.Context()))
	if err != nil {
		if errors.Is(err, store.ErrIndexInconsistent) && report != nil {
			response.JSON(w, http.StatusInternalServerError, report, s.logger)
			return
		}
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, report, s.logger)
}
