package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ziadkadry99/vecsync/internal/chunking"
	"github.com/ziadkadry99/vecsync/internal/collections"
	"github.com/ziadkadry99/vecsync/internal/config"
	"github.com/ziadkadry99/vecsync/internal/db"
	"github.com/ziadkadry99/vecsync/internal/embeddings"
	"github.com/ziadkadry99/vecsync/internal/search"
	"github.com/ziadkadry99/vecsync/internal/syncer"
	"github.com/ziadkadry99/vecsync/internal/vectordb"
)

// engine bundles the wired-up components shared by the CLI commands.
type engine struct {
	cfg     *config.Config
	db      *db.DB
	store   *collections.Store
	vectors vectordb.VectorStore
	syncer  *syncer.Syncer
	search  *search.Engine
}

func (e *engine) Close() {
	if e.db != nil {
		e.db.Close()
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func readLocalFile(path string) ([]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return content, nil
}

// vectorDir is where the chromem export lives inside the data dir.
func vectorDir(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir, "vectordb")
}

// buildEngine opens the metadata database, the collection store, and the
// vector store, and wires the sync and search engines on top.
func buildEngine(ctx context.Context, cfg *config.Config) (*engine, error) {
	database, err := db.Open(filepath.Join(cfg.DataDir, "vecsync.db"))
	if err != nil {
		return nil, err
	}

	store, err := collections.NewStore(filepath.Join(cfg.DataDir, "collections"), collections.Options{
		Include:     cfg.Include,
		Exclude:     cfg.Exclude,
		MaxFileSize: cfg.Sync.MaxFileSize,
	})
	if err != nil {
		database.Close()
		return nil, err
	}

	embedder, err := embeddings.NewFromConfig(cfg.Embedding)
	if err != nil {
		database.Close()
		return nil, err
	}

	vectors := vectordb.NewChromemStore(embedder)
	if err := vectors.Load(ctx, vectorDir(cfg)); err != nil {
		database.Close()
		return nil, fmt.Errorf("loading vector store: %w", err)
	}

	meta := syncer.NewMetadataStore(database)
	sync := syncer.New(store, meta, vectors, syncer.Config{
		StaleTimeout:    cfg.Sync.StaleTimeout,
		CallTimeout:     cfg.Embedding.Timeout,
		DefaultStrategy: chunking.Strategy(cfg.Chunking.Strategy),
		ChunkParams: chunking.Params{
			ChunkSize:  cfg.Chunking.ChunkSize,
			WindowSize: cfg.Chunking.WindowSize,
			Overlap:    cfg.Chunking.Overlap,
		},
		VectorDir: vectorDir(cfg),
	})

	// Deleting a collection from the CLI cascades like the API does.
	store.SetDeleteHook(sync.OnCollectionDeleted)

	return &engine{
		cfg:     cfg,
		db:      database,
		store:   store,
		vectors: vectors,
		syncer:  sync,
		search:  search.NewEngine(vectors),
	}, nil
}
