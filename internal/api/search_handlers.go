package api

import (
	"net/http"

	"github.com/keepstack/keepstack-server/internal/http/response"
	"github.com/keepstack/keepstack-server/internal/service"
)

// handleSearch runs a free-text search combined with the structured filter.
// Results default to relevance order and carry per-field highlights.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	list, err := s.search.Search(r.Context(), getUserID(r.Context()), query, parseResourceFilter(r))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, list, s.logger)
}

// handleSuggestions returns autocomplete entries for a prefix, tags before
// titles, capped at MaxSuggestions.
func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("q")
	limit := queryInt(r, "limit", service.MaxSuggestions)

	suggestions, err := s.search.Suggest(r.Context(), getUserID(r.Context()), prefix, limit)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, suggestions, s.logger)
}
