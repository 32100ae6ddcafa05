// Package search answers similarity queries against the vector index. It is
// lock-free with respect to syncing: a query may run concurrently with a sync
// of the same collection and observe a partially-synced state.
package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/ziadkadry99/vecsync/internal/vectordb"
)

// ErrEmptyQuery is returned for a blank query string.
var ErrEmptyQuery = errors.New("query must not be empty")

// DefaultLimit is used when a request does not specify one.
const DefaultLimit = 10

// Result is one ranked hit.
type Result struct {
	Collection string  `json:"collection"`
	Path       string  `json:"path"`
	ChunkIndex int     `json:"chunk_index"`
	ChunkText  string  `json:"chunk_text"`
	Score      float32 `json:"score"`
	// TotalChunks is how many chunks the source file produced.
	TotalChunks int `json:"total_chunks"`
}

// Engine executes similarity searches.
type Engine struct {
	vectors vectordb.VectorStore
}

// NewEngine creates a search engine over the given vector store.
func NewEngine(vectors vectordb.VectorStore) *Engine {
	return &Engine{vectors: vectors}
}

// Search embeds the query, fetches the limit-nearest chunks (optionally
// restricted to one collection), drops results below threshold, and returns
// them best-first with deterministic tie-breaking. An empty index or nothing
// above the threshold yields an empty slice, not an error.
func (e *Engine) Search(ctx context.Context, query, collection string, limit int, threshold float32) ([]Result, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	hits, err := e.vectors.Search(ctx, query, limit, collection)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	// The store already sorts best-first with deterministic tie-breaking;
	// only the threshold filter remains.
	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		if h.Similarity < threshold {
			continue
		}
		results = append(results, Result{
			Collection:  h.Document.Metadata.Collection,
			Path:        h.Document.Metadata.FilePath,
			ChunkIndex:  h.Document.Metadata.ChunkIndex,
			ChunkText:   h.Document.Content,
			Score:       h.Similarity,
			TotalChunks: h.Document.Metadata.TotalChunks,
		})
	}
	return results, nil
}
