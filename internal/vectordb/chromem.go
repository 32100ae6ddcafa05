package vectordb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	chromem "github.com/philippgille/chromem-go"

	"github.com/ziadkadry99/vecsync/internal/embeddings"
)

const exportFile = "chromem.gob.gz"

// ChromemStore implements VectorStore using chromem-go. Each vecsync
// collection maps to its own chromem collection, so per-collection deletes
// and result counts are exact.
type ChromemStore struct {
	db        *chromem.DB
	embedder  embeddings.Embedder
	embedFunc chromem.EmbeddingFunc
}

// NewChromemStore creates a new in-memory ChromemStore.
func NewChromemStore(embedder embeddings.Embedder) *ChromemStore {
	return &ChromemStore{
		db:        chromem.NewDB(),
		embedder:  embedder,
		embedFunc: embeddings.ToChromemFunc(embedder),
	}
}

func (s *ChromemStore) AddDocuments(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	// Group by collection; chromem collections are created on demand.
	byCollection := make(map[string][]chromem.Document)
	for _, doc := range docs {
		if doc.Metadata.Collection == "" {
			return fmt.Errorf("document %s has no collection", doc.ID)
		}
		byCollection[doc.Metadata.Collection] = append(byCollection[doc.Metadata.Collection], chromem.Document{
			ID:       doc.ID,
			Content:  doc.Content,
			Metadata: metadataToMap(doc.Metadata),
		})
	}

	for name, chromDocs := range byCollection {
		col, err := s.db.GetOrCreateCollection(name, nil, s.embedFunc)
		if err != nil {
			return fmt.Errorf("create collection %q: %w", name, err)
		}
		if err := col.AddDocuments(ctx, chromDocs, 1); err != nil {
			return fmt.Errorf("add documents to %q: %w", name, err)
		}
	}
	return nil
}

func (s *ChromemStore) Search(ctx context.Context, query string, limit int, collection string) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}

	cols := make([]*chromem.Collection, 0, 1)
	if collection != "" {
		col := s.db.GetCollection(collection, s.embedFunc)
		if col == nil {
			return nil, nil
		}
		cols = append(cols, col)
	} else {
		// Re-fetch by name so imported collections get the embedding func
		// attached.
		for name := range s.db.ListCollections() {
			if col := s.db.GetCollection(name, s.embedFunc); col != nil {
				cols = append(cols, col)
			}
		}
	}

	var merged []SearchResult
	for _, col := range cols {
		// chromem-go requires nResults <= collection size.
		n := limit
		if count := col.Count(); count == 0 {
			continue
		} else if n > count {
			n = count
		}

		results, err := col.Query(ctx, query, n, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("chromem query: %w", err)
		}

		for _, r := range results {
			merged = append(merged, SearchResult{
				Document: Document{
					ID:       r.ID,
					Content:  r.Content,
					Metadata: mapToMetadata(r.Metadata),
				},
				Similarity: r.Similarity,
			})
		}
	}

	// Highest similarity first; ties broken by (collection, path, chunk index)
	// so results are deterministic across runs.
	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		am, bm := a.Document.Metadata, b.Document.Metadata
		if am.Collection != bm.Collection {
			return am.Collection < bm.Collection
		}
		if am.FilePath != bm.FilePath {
			return am.FilePath < bm.FilePath
		}
		return am.ChunkIndex < bm.ChunkIndex
	})

	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

func (s *ChromemStore) DeleteByFile(ctx context.Context, collection, filePath string) error {
	col := s.db.GetCollection(collection, s.embedFunc)
	if col == nil {
		return nil
	}
	return col.Delete(ctx, map[string]string{"file_path": filePath}, nil)
}

func (s *ChromemStore) DeleteByCollection(ctx context.Context, collection string) error {
	return s.db.DeleteCollection(collection)
}

func (s *ChromemStore) Count(collection string) int {
	if collection != "" {
		col := s.db.GetCollection(collection, s.embedFunc)
		if col == nil {
			return 0
		}
		return col.Count()
	}

	total := 0
	for _, col := range s.db.ListCollections() {
		total += col.Count()
	}
	return total
}

func (s *ChromemStore) Persist(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create vector dir: %w", err)
	}
	return s.db.ExportToFile(filepath.Join(dir, exportFile), true, "")
}

func (s *ChromemStore) Load(ctx context.Context, dir string) error {
	path := filepath.Join(dir, exportFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		// Nothing persisted yet; start empty.
		return nil
	}
	if err := s.db.ImportFromFile(path, ""); err != nil {
		return fmt.Errorf("import from file: %w", err)
	}
	return nil
}
