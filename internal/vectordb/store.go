package vectordb

import "context"

// VectorStore stores embedded chunks grouped by collection and supports
// similarity search with optional collection filtering. Implementations must
// be safe for concurrent use: searches may run while a sync is writing.
type VectorStore interface {
	// AddDocuments adds or replaces documents. Each document carries its
	// collection in its metadata.
	AddDocuments(ctx context.Context, docs []Document) error

	// Search returns up to limit nearest documents for the query text.
	// collection narrows the search to one collection; empty searches all.
	Search(ctx context.Context, query string, limit int, collection string) ([]SearchResult, error)

	// DeleteByFile removes all documents for one file within a collection.
	DeleteByFile(ctx context.Context, collection, filePath string) error

	// DeleteByCollection removes every document for the collection.
	DeleteByCollection(ctx context.Context, collection string) error

	// Count returns the number of documents stored for the collection,
	// or across all collections when collection is empty.
	Count(collection string) int

	// Persist saves the store's data under the given directory.
	Persist(ctx context.Context, dir string) error

	// Load restores the store's data from the given directory.
	Load(ctx context.Context, dir string) error
}
