package api

import (
	"net/http"

	"github.com/keepstack/keepstack-server/internal/http/response"
	"github.com/keepstack/keepstack-server/internal/service"
)

func (s *Server) handleCreateCollection(w http.ResponseWriter, r *http.Request) {
	var req service.CreateCollectionRequest
	if err := decodeJSON(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	collection, err := s.collections.Create(r.Context(), getUserID(r.Context()), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, collection, s.logger)
}

func (s *Server) handleListCollections(w http.ResponseWriter, r *http.Request) {
	collections, err := s.collections.List(r.Context(), getUserID(r.Context()))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, collections, s.logger)
}

func (s *Server) handleGetCollection(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt64(r, "id")
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	collection, err := s.collections.Get(r.Context(), getUserID(r.Context()), id)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, collection, s.logger)
}

func (s *Server) handleUpdateCollection(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt64(r, "id")
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	var req service.UpdateCollectionRequest
	if err := decodeJSON(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	collection, err := s.collections.Update(r.Context(), getUserID(r.Context()), id, req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, collection, s.logger)
}

func (s *Server) handleDeleteCollection(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt64(r, "id")
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	if err := s.collections.Delete(r.Context(), getUserID(r.Context()), id); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}
