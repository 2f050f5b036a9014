package api

import (
	"net/http"

	"github.com/keepstack/keepstack-server/internal/http/response"
	"github.com/keepstack/keepstack-server/internal/service"
	"github.com/keepstack/keepstack-server/internal/store"
)

func (s *Server) handleCreateResource(w http.ResponseWriter, r *http.Request) {
	var req service.CreateResourceRequest
	if err := decodeJSON(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	record, err := s.resources.Create(r.Context(), getUserID(r.Context()), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, record, s.logger)
}

// handleListResources runs the structured listing. All filter parameters
// come from the query string; see parseResourceFilter.
func (s *Server) handleListResources(w http.ResponseWriter, r *http.Request) {
	list, err := s.resources.List(r.Context(), getUserID(r.Context()), parseResourceFilter(r))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, list, s.logger)
}

func (s *Server) handleGetResource(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt64(r, "id")
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	record, err := s.resources.Get(r.Context(), getUserID(r.Context()), id)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, record, s.logger)
}

func (s *Server) handleUpdateResource(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt64(r, "id")
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	var req service.UpdateResourceRequest
	if err := decodeJSON(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	record, err := s.resources.Update(r.Context(), getUserID(r.Context()), id, req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, record, s.logger)
}

func (s *Server) handleDeleteResource(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt64(r, "id")
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	if err := s.resources.Delete(r.Context(), getUserID(r.Context()), id); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// handleRecordVisit bumps the visit counter without touching updated_at.
func (s *Server) handleRecordVisit(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt64(r, "id")
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	if err := s.resources.RecordVisit(r.Context(), getUserID(r.Context()), id); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// handleBatch applies one action to a set of resource ids atomically.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action       string   `json:"action"`
		IDs          []int64  `json:"ids"`
		Flag         bool     `json:"flag"`
		CollectionID *int64   `json:"collection_id,omitempty"`
		Tags         []string `json:"tags,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	batch := &store.BatchRequest{
		Action:       store.BatchAction(req.Action),
		IDs:          req.IDs,
		Flag:         req.Flag,
		CollectionID: req.CollectionID,
		Tags:         req.Tags,
	}
	result, err := s.resources.Batch(r.Context(), getUserID(r.Context()), batch)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, result, s.logger)
}
