package search

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the search endpoint under /api/search.
func RegisterRoutes(r chi.Router, engine *Engine) {
	r.Post("/api/search", handleSearch(engine))
}

type searchRequest struct {
	Query               string  `json:"query"`
	Collection          string  `json:"collection,omitempty"`
	Limit               int     `json:"limit,omitempty"`
	SimilarityThreshold float32 `json:"similarity_threshold,omitempty"`
}

func handleSearch(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		results, err := engine.Search(r.Context(), req.Query, req.Collection,
			req.Limit, req.SimilarityThreshold)
		if errors.Is(err, ErrEmptyQuery) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(struct {
			Results []Result `json:"results"`
		}{Results: results})
	}
}
