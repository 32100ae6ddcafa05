package collections

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts collection CRUD endpoints under /api/collections.
func RegisterRoutes(r chi.Router, store *Store) {
	r.Route("/api/collections", func(r chi.Router) {
		r.Get("/", handleList(store))
		r.Post("/", handleCreate(store))
		r.Delete("/{name}", handleDelete(store))
		r.Get("/{name}/files", handleListFiles(store))
		r.Put("/{name}/files/*", handleWriteFile(store))
		r.Delete("/{name}/files/*", handleDeleteFile(store))
	})
}

func handleList(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		infos, err := store.List()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if infos == nil {
			infos = []Info{}
		}
		writeJSON(w, http.StatusOK, infos)
	}
}

func handleCreate(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		err := store.Create(req.Name)
		switch {
		case errors.Is(err, ErrInvalidName):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrAlreadyExists):
			http.Error(w, err.Error(), http.StatusConflict)
		case err != nil:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		default:
			writeJSON(w, http.StatusCreated, map[string]string{"name": req.Name})
		}
	}
}

func handleDelete(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		err := store.Delete(r.Context(), name)
		switch {
		case errors.Is(err, ErrNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case err != nil:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	}
}

func handleListFiles(store *Store) http.HandlerFunc {
	type fileInfo struct {
		Path     string `json:"path"`
		Size     int64  `json:"size"`
		Hash     string `json:"hash"`
		Modified string `json:"modified"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		files, err := store.ListFiles(name)
		if errors.Is(err, ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		infos := make([]fileInfo, len(files))
		for i, f := range files {
			infos[i] = fileInfo{
				Path:     f.Path,
				Size:     f.Size,
				Hash:     f.Hash,
				Modified: f.Modified.UTC().Format("2006-01-02T15:04:05Z"),
			}
		}
		writeJSON(w, http.StatusOK, infos)
	}
}

func handleWriteFile(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		relPath := chi.URLParam(r, "*")

		content, err := io.ReadAll(http.MaxBytesReader(w, r.Body, DefaultMaxFileSize))
		if err != nil {
			http.Error(w, "reading body: "+err.Error(), http.StatusBadRequest)
			return
		}

		err = store.WriteFile(name, relPath, content)
		switch {
		case errors.Is(err, ErrNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, ErrInvalidPath):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case err != nil:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		default:
			writeJSON(w, http.StatusOK, map[string]string{
				"path": relPath,
				"hash": HashBytes(content),
			})
		}
	}
}

func handleDeleteFile(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		relPath := chi.URLParam(r, "*")

		err := store.DeleteFile(name, relPath)
		switch {
		case errors.Is(err, ErrNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, ErrInvalidPath):
			http.Error(w, err.Error(), http.StatusNotFound)
		case err != nil:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
