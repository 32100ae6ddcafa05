package syncer

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/vecsync/internal/chunking"
)

// CollectionLister supplies the known collection names for the all-statuses
// endpoint.
type CollectionLister interface {
	Names() ([]string, error)
}

// RegisterRoutes mounts sync endpoints under /api/sync.
func RegisterRoutes(r chi.Router, s *Syncer, lister CollectionLister) {
	r.Route("/api/sync", func(r chi.Router) {
		r.Get("/status", handleAllStatuses(s, lister))
		r.Post("/{collection}", handleSync(s))
		r.Get("/{collection}/status", handleStatus(s))
		r.Delete("/{collection}/vectors", handleDeleteVectors(s))
	})
}

type syncRequest struct {
	ForceReprocess   bool   `json:"force_reprocess"`
	ChunkingStrategy string `json:"chunking_strategy"`
}

func handleSync(s *Syncer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		collection := chi.URLParam(r, "collection")

		var req syncRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "invalid request body", http.StatusBadRequest)
				return
			}
		}

		result, err := s.Sync(r.Context(), collection, SyncOptions{
			ForceReprocess: req.ForceReprocess,
			Strategy:       req.ChunkingStrategy,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func handleStatus(s *Syncer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := s.Status(r.Context(), chi.URLParam(r, "collection"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}

func handleAllStatuses(s *Syncer, lister CollectionLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var known []string
		if lister != nil {
			var err error
			known, err = lister.Names()
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
		}

		statuses, err := s.AllStatuses(r.Context(), known)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, statuses)
	}
}

func handleDeleteVectors(s *Syncer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.DeleteVectors(r.Context(), chi.URLParam(r, "collection")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// writeError maps engine errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrCollectionNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("COLLECTION_NOT_FOUND", err))
	case errors.Is(err, ErrSyncInProgress):
		writeJSON(w, http.StatusConflict, errorBody("SYNC_IN_PROGRESS", err))
	case errors.Is(err, ErrServiceUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorBody("SERVICE_UNAVAILABLE", err))
	case errors.Is(err, chunking.ErrUnknownStrategy):
		writeJSON(w, http.StatusBadRequest, errorBody("INVALID_STRATEGY", err))
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody("INTERNAL", err))
	}
}

func errorBody(code string, err error) map[string]string {
	return map[string]string{"code": code, "error": err.Error()}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
