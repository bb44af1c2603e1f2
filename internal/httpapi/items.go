package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/erauner12/toolbridge-resources/internal/collection"
)

// ============================================================================
// REST CRUD Handlers for Collection Items
// ============================================================================
//
// Endpoints per collection:
// - GET    /v1/{collection}        - List (cursor pagination)
// - POST   /v1/{collection}        - Create (server assigns id)
// - GET    /v1/{collection}/{id}   - Retrieve single
// - PUT    /v1/{collection}/{id}   - Replace attributes
// - PATCH  /v1/{collection}/{id}   - Merge attributes
// - DELETE /v1/{collection}/{id}   - Delete
//
// ============================================================================

const maxBodyBytes = 1 << 20

// parseCollection extracts and validates the collection name from the URL
func parseCollection(w http.ResponseWriter, r *http.Request) (string, bool) {
	coll := chi.URLParam(r, "collection")
	if err := collection.ValidateName(coll); err != nil {
		writeError(w, r, 400, "invalid collection name")
		return "", false
	}
	return coll, true
}

// parseIDParam extracts and validates the item id from the URL
func parseIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, 400, "invalid id")
		return 0, false
	}
	return id, true
}

// decodePayload reads a JSON object body; an empty body is an empty object
func decodePayload(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	var payload map[string]any
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&payload)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, 400, "invalid JSON")
		return nil, false
	}
	if payload == nil {
		payload = map[string]any{}
	}
	return payload, true
}

// writeRepoError maps repository errors onto status codes
func writeRepoError(w http.ResponseWriter, r *http.Request, err error, action string) {
	if errors.Is(err, collection.ErrNotFound) {
		writeError(w, r, 404, "item not found")
		return
	}
	log.Ctx(r.Context()).Error().Err(err).Msg("failed to " + action)
	writeError(w, r, 500, "failed to "+action)
}

// ListItems handles GET /v1/{collection}
func (s *Server) ListItems(w http.ResponseWriter, r *http.Request) {
	coll, ok := parseCollection(w, r)
	if !ok {
		return
	}

	limit := parseLimit(r.URL.Query().Get("limit"), 500, collection.MaxPageSize)
	var cur collection.Cursor
	if raw := r.URL.Query().Get("cursor"); raw != "" {
		cur, ok = collection.DecodeCursor(raw)
		if !ok {
			writeError(w, r, 400, "invalid cursor")
			return
		}
	}

	page, err := s.Repo.List(r.Context(), coll, cur, limit)
	if err != nil {
		writeRepoError(w, r, err, "list items")
		return
	}

	writeJSON(w, 200, page)
}

// CreateItem handles POST /v1/{collection}
func (s *Server) CreateItem(w http.ResponseWriter, r *http.Request) {
	coll, ok := parseCollection(w, r)
	if !ok {
		return
	}
	payload, ok := decodePayload(w, r)
	if !ok {
		return
	}

	item, err := s.Repo.Create(r.Context(), coll, payload)
	if err != nil {
		writeRepoError(w, r, err, "create item")
		return
	}

	log.Ctx(r.Context()).Debug().Str("collection", coll).Interface("id", item["id"]).Msg("item created")
	writeJSON(w, 201, item)
}

// GetItem handles GET /v1/{collection}/{id}
func (s *Server) GetItem(w http.ResponseWriter, r *http.Request) {
	coll, ok := parseCollection(w, r)
	if !ok {
		return
	}
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	item, err := s.Repo.Get(r.Context(), coll, id)
	if err != nil {
		writeRepoError(w, r, err, "get item")
		return
	}

	writeJSON(w, 200, item)
}

// ReplaceItem handles PUT /v1/{collection}/{id}
func (s *Server) ReplaceItem(w http.ResponseWriter, r *http.Request) {
	s.writeItem(w, r, s.Repo.Replace, "replace item")
}

// PatchItem handles PATCH /v1/{collection}/{id}
func (s *Server) PatchItem(w http.ResponseWriter, r *http.Request) {
	s.writeItem(w, r, s.Repo.Merge, "patch item")
}

// writeItem runs a replace or merge against the repository
func (s *Server) writeItem(w http.ResponseWriter, r *http.Request, write func(context.Context, string, int64, map[string]any) (map[string]any, error), action string) {
	coll, ok := parseCollection(w, r)
	if !ok {
		return
	}
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	payload, ok := decodePayload(w, r)
	if !ok {
		return
	}

	item, err := write(r.Context(), coll, id, payload)
	if err != nil {
		writeRepoError(w, r, err, action)
		return
	}

	writeJSON(w, 200, item)
}

// DeleteItem handles DELETE /v1/{collection}/{id}
func (s *Server) DeleteItem(w http.ResponseWriter, r *http.Request) {
	coll, ok := parseCollection(w, r)
	if !ok {
		return
	}
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	if err := s.Repo.Delete(r.Context(), coll, id); err != nil {
		writeRepoError(w, r, err, "delete item")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
