package api

import (
	"net/http"

	"github.com/keepstack/keepstack-server/internal/domain"
	"github.com/keepstack/keepstack-server/internal/http/response"
	"github.com/keepstack/keepstack-server/internal/service"
	"github.com/keepstack/keepstack-server/internal/store"
)

func (s *Server) handleCreateReference(w http.ResponseWriter, r *http.Request) {
	var req service.CreateReferenceRequest
	if err := decodeJSON(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	ref, err := s.references.Create(r.Context(), getUserID(r.Context()), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, ref, s.logger)
}

func (s *Server) handleDeleteReference(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt64(r, "id")
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	if err := s.references.Delete(r.Context(), getUserID(r.Context()), id); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// handleListReferences returns the edges around one resource. "direction"
// selects source, target or both; "type" narrows to one edge type.
func (s *Server) handleListReferences(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt64(r, "id")
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	filter := &store.ReferenceFilter{
		Direction: domain.ReferenceDirection(r.URL.Query().Get("direction")),
		Limit:     queryInt(r, "limit", 0),
		Offset:    queryInt(r, "offset", 0),
	}
	if raw := r.URL.Query().Get("type"); raw != "" {
		t := domain.ReferenceType(raw)
		filter.Type = &t
	}

	refs, err := s.references.List(r.Context(), getUserID(r.Context()), id, filter)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, refs, s.logger)
}
