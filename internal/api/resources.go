package api

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/lumen-bridge/internal/resource"
)

// handleListResources returns the mirrored resource graph.
// An optional ?type= parameter filters by resource type.
func (s *Server) handleListResources(w http.ResponseWriter, r *http.Request) {
	filter := resource.Type(r.URL.Query().Get("type"))

	all := s.node.Store().SnapshotAll()
	out := make([]*Resource, 0, len(all))
	for _, res := range all {
		if filter != "" && res.Type != filter {
			continue
		}
		out = append(out, toAPIResource(res))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	writeJSON(w, http.StatusOK, map[string]any{
		"count":     len(out),
		"resources": out,
	})
}

// handleGetResource returns a single mirrored resource by id.
func (s *Server) handleGetResource(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	res, ok := s.node.Store().Snapshot(id)
	if !ok {
		writeNotFound(w, "resource not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, toAPIResource(res))
}

// handleGetOwners returns the ids of the resources that own the given
// resource as a service. Unowned resources get an empty list.
func (s *Server) handleGetOwners(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, ok := s.node.Store().Snapshot(id); !ok {
		writeNotFound(w, "resource not found: "+id)
		return
	}

	owners := s.node.Store().OwnersOf(id)
	if owners == nil {
		owners = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":     id,
		"owners": owners,
	})
}

// handleGetHistory returns recent update notifications for a resource.
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeNotFound(w, "update history is not enabled")
		return
	}

	id := chi.URLParam(r, "id")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	entries, err := s.history.History(r.Context(), id, limit)
	if err != nil {
		s.logger.Error("history query failed", "resource", id, "error", err)
		writeInternalError(w, "failed to read update history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":      id,
		"entries": entries,
	})
}

// Resource is the API representation of a mirrored resource.
type Resource struct {
	ID       string         `json:"id"`
	IDV1     string         `json:"id_v1,omitempty"`
	Type     resource.Type  `json:"type"`
	Updated  string         `json:"updated,omitempty"`
	Attrs    map[string]any `json:"attrs,omitempty"`
	Services []string       `json:"services,omitempty"`
}

func toAPIResource(res *resource.Resource) *Resource {
	return &Resource{
		ID:       res.ID,
		IDV1:     res.IDV1,
		Type:     res.Type,
		Updated:  res.Updated,
		Attrs:    res.Attrs,
		Services: res.ServiceIDs(),
	}
}
