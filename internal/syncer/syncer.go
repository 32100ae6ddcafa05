// Package syncer keeps the derived vector index consistent with the
// collection file store. It owns the per-collection sync state machine,
// change detection against durable sync metadata, and stale-sync recovery.
package syncer

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/vecsync/internal/chunking"
	"github.com/ziadkadry99/vecsync/internal/collections"
	"github.com/ziadkadry99/vecsync/internal/vectordb"
)

// FileSource is the narrow view of the collection file store the sync engine
// consumes. It never assumes anything about on-disk layout beyond "a list of
// files with content and a path".
type FileSource interface {
	Exists(name string) bool
	ListFiles(name string) ([]collections.File, error)
}

// Config tunes the orchestrator.
type Config struct {
	// StaleTimeout is how long a sync may stay in the syncing state before
	// the sweep presumes it dead and forces sync_error.
	StaleTimeout time.Duration
	// CallTimeout bounds each embedding/vector-index call so one hung file
	// cannot indefinitely delay slot release.
	CallTimeout time.Duration
	// DefaultStrategy is used when a sync request does not name one.
	DefaultStrategy chunking.Strategy
	// ChunkParams are the chunking parameters applied to every strategy.
	ChunkParams chunking.Params
	// VectorDir is where the vector store persists after a successful pass.
	VectorDir string
}

// SyncOptions are the per-request knobs of a sync pass.
type SyncOptions struct {
	// ForceReprocess reclassifies unchanged files as changed.
	ForceReprocess bool
	// Strategy overrides the default chunking strategy. Empty means default.
	Strategy string
}

// Syncer drives collections through the sync lifecycle:
// never_synced → syncing → {in_sync, sync_error} → syncing.
// It enforces one in-flight sync per collection and recovers collections
// whose sync died without cleaning up.
type Syncer struct {
	files      FileSource
	meta       *MetadataStore
	vectors    vectordb.VectorStore
	cfg        Config
	slots      *slotRegistry
	onProgress ProgressFunc
}

// ProgressFunc is called after each file is handled during a sync pass.
type ProgressFunc func(collection, path string)

// New creates a Syncer. files, meta and vectors are required.
func New(files FileSource, meta *MetadataStore, vectors vectordb.VectorStore, cfg Config) *Syncer {
	if cfg.StaleTimeout <= 0 {
		cfg.StaleTimeout = 10 * time.Minute
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	if cfg.DefaultStrategy == "" {
		cfg.DefaultStrategy = chunking.StrategyParagraph
	}
	return &Syncer{
		files:   files,
		meta:    meta,
		vectors: vectors,
		cfg:     cfg,
		slots:   newSlotRegistry(),
	}
}

// SetProgressFunc sets the per-file progress callback.
func (s *Syncer) SetProgressFunc(fn ProgressFunc) {
	s.onProgress = fn
}

func (s *Syncer) progress(collection, path string) {
	if s.onProgress != nil {
		s.onProgress(collection, path)
	}
}

// Sync runs one synchronization pass for the collection. It acquires the
// collection's exclusive slot (failing fast with ErrSyncInProgress when
// held), classifies files, re-embeds new and changed files, drops vectors of
// deleted files, and records a terminal status. Per-file failures are
// recorded without aborting the pass; partial progress is kept.
func (s *Syncer) Sync(ctx context.Context, collection string, opts SyncOptions) (*SyncResult, error) {
	start := time.Now()

	strategyName := opts.Strategy
	if strategyName == "" {
		strategyName = string(s.cfg.DefaultStrategy)
	}
	strategy, err := chunking.ParseStrategy(strategyName)
	if err != nil {
		return nil, err
	}

	if s.vectors == nil {
		return nil, ErrServiceUnavailable
	}
	if !s.files.Exists(collection) {
		return nil, fmt.Errorf("%w: %q", ErrCollectionNotFound, collection)
	}

	token, ok := s.slots.tryAcquire(collection)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSyncInProgress, collection)
	}
	defer s.slots.release(collection, token)

	gen, err := s.meta.BeginSync(ctx, collection, s.cfg.StaleTimeout)
	if err != nil {
		return nil, err
	}

	result, err := s.runPass(ctx, collection, gen, strategy, opts.ForceReprocess)
	if err != nil {
		// Cancellation leaves the status at syncing; the stale sweep (or a
		// clean retry) resolves it. Everything else is recorded terminally.
		if ctx.Err() != nil {
			log.Printf("syncer: sync of %q cancelled: %v", collection, err)
			return nil, err
		}
		if _, ferr := s.meta.FinishSync(context.WithoutCancel(ctx), collection, gen,
			StatusSyncError, 0, 0, 0, err.Error()); ferr != nil {
			log.Printf("syncer: recording failure for %q: %v", collection, ferr)
		}
		return nil, err
	}

	result.Duration = time.Since(start).Round(time.Millisecond).String()
	return result, nil
}

// runPass does the work between slot acquisition and slot release.
func (s *Syncer) runPass(ctx context.Context, collection string, gen int64,
	strategy chunking.Strategy, force bool) (*SyncResult, error) {

	files, err := s.files.ListFiles(collection)
	if err != nil {
		return nil, fmt.Errorf("listing files for %q: %w", collection, err)
	}

	live := make(map[string]string, len(files))
	byPath := make(map[string]collections.File, len(files))
	for _, f := range files {
		live[f.Path] = f.Hash
		byPath[f.Path] = f
	}

	records, err := s.meta.ListRecords(ctx, collection)
	if err != nil {
		return nil, err
	}

	cs := Classify(live, records, force)
	log.Printf("syncer: %s gen=%d: %d unchanged, %d changed, %d new, %d deleted",
		collection, gen, len(cs.Unchanged), len(cs.Changed), len(cs.New), len(cs.Deleted))

	result := &SyncResult{Collection: collection, SkippedFiles: len(cs.Unchanged)}
	var firstErr error

	// New and changed files: re-chunk, re-embed, replace vectors.
	for _, path := range append(append([]string{}, cs.New...), cs.Changed...) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.processFile(ctx, collection, byPath[path], strategy); err != nil {
			log.Printf("syncer: %s/%s: %v", collection, path, err)
			result.FailedFiles++
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		result.ProcessedFiles++
		s.progress(collection, path)
	}

	// Deleted files: drop vectors and the sync record.
	for _, path := range cs.Deleted {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.deleteFile(ctx, collection, path); err != nil {
			log.Printf("syncer: %s/%s: %v", collection, path, err)
			result.FailedFiles++
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		result.DeletedFiles++
	}

	// Recount from the records so totals reflect exactly what landed.
	finalRecords, err := s.meta.ListRecords(ctx, collection)
	if err != nil {
		return nil, err
	}
	totalChunks := 0
	for _, rec := range finalRecords {
		totalChunks += rec.ChunkCount
	}
	result.TotalChunks = totalChunks

	// sync_error only when the pass as a whole made no progress; per-file
	// failures with progress still end in_sync, with the error queryable.
	status := StatusInSync
	var lastError string
	if firstErr != nil {
		lastError = fmt.Sprintf("%d file(s) failed, first error: %v", result.FailedFiles, firstErr)
		if result.ProcessedFiles == 0 && result.DeletedFiles == 0 {
			status = StatusSyncError
		}
	}
	result.Status = status

	syncedFiles := result.ProcessedFiles + result.SkippedFiles
	owned, err := s.meta.FinishSync(ctx, collection, gen, status,
		cs.Total(), syncedFiles, totalChunks, lastError)
	if err != nil {
		return nil, err
	}
	if !owned {
		// The stale sweep disowned this sync; a newer sync owns the status
		// row now. Abandon the terminal write instead of stomping on it.
		log.Printf("syncer: %s gen=%d: %v", collection, gen, errDisowned)
		return result, nil
	}

	if s.cfg.VectorDir != "" {
		if err := s.vectors.Persist(ctx, s.cfg.VectorDir); err != nil {
			log.Printf("syncer: persisting vectors: %v", err)
		}
	}
	return result, nil
}

// processFile replaces one file's vectors and sync record.
func (s *Syncer) processFile(ctx context.Context, collection string,
	f collections.File, strategy chunking.Strategy) error {

	chunks, err := chunking.Chunk(f.Content, strategy, s.cfg.ChunkParams)
	if err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()

	if err := s.vectors.DeleteByFile(callCtx, collection, f.Path); err != nil {
		return fmt.Errorf("deleting old vectors: %w", err)
	}

	if len(chunks) > 0 {
		now := time.Now()
		docs := make([]vectordb.Document, len(chunks))
		for i, chunk := range chunks {
			docs[i] = vectordb.Document{
				ID:      uuid.New().String(),
				Content: chunk,
				Metadata: vectordb.DocumentMetadata{
					Collection:  collection,
					FilePath:    f.Path,
					ChunkIndex:  i,
					TotalChunks: len(chunks),
					ContentHash: f.Hash,
					Strategy:    string(strategy),
					LastUpdated: now,
				},
			}
		}
		if err := s.vectors.AddDocuments(callCtx, docs); err != nil {
			return fmt.Errorf("storing %d chunks: %w", len(chunks), err)
		}
	}

	return s.meta.UpsertRecord(ctx, FileSyncRecord{
		Collection:  collection,
		Path:        f.Path,
		ContentHash: f.Hash,
		ChunkCount:  len(chunks),
	})
}

// deleteFile drops a removed file's vectors and sync record.
func (s *Syncer) deleteFile(ctx context.Context, collection, path string) error {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()

	if err := s.vectors.DeleteByFile(callCtx, collection, path); err != nil {
		return fmt.Errorf("deleting vectors: %w", err)
	}
	return s.meta.DeleteRecord(ctx, collection, path)
}

// Status returns the collection's sync status. The read runs the lazy stale
// check and computes has_pending_changes by re-hashing the live files; it
// never mutates the vector index.
func (s *Syncer) Status(ctx context.Context, collection string) (*CollectionSyncStatus, error) {
	if !s.files.Exists(collection) {
		return nil, fmt.Errorf("%w: %q", ErrCollectionNotFound, collection)
	}

	if err := s.SweepStale(ctx); err != nil {
		return nil, err
	}

	st, err := s.meta.GetStatus(ctx, collection)
	if err != nil {
		return nil, err
	}
	if st == nil {
		st = &CollectionSyncStatus{Collection: collection, Status: StatusNeverSynced}
	}

	pending, err := s.pendingChanges(ctx, collection)
	if err != nil {
		// Pending detection is advisory; the status itself is still valid.
		log.Printf("syncer: pending-change check for %q: %v", collection, err)
	} else {
		st.HasPendingChanges = pending
	}
	return st, nil
}

// AllStatuses returns every collection's status keyed by name, including
// collections that exist but have never been synced.
func (s *Syncer) AllStatuses(ctx context.Context, known []string) (map[string]CollectionSyncStatus, error) {
	if err := s.SweepStale(ctx); err != nil {
		return nil, err
	}

	statuses, err := s.meta.AllStatuses(ctx)
	if err != nil {
		return nil, err
	}
	for _, name := range known {
		if _, ok := statuses[name]; !ok {
			statuses[name] = CollectionSyncStatus{Collection: name, Status: StatusNeverSynced}
		}
	}
	return statuses, nil
}

// pendingChanges re-hashes live files and classifies them against the sync
// records. Classification only; no vector work happens here.
func (s *Syncer) pendingChanges(ctx context.Context, collection string) (bool, error) {
	files, err := s.files.ListFiles(collection)
	if err != nil {
		return false, err
	}
	live := make(map[string]string, len(files))
	for _, f := range files {
		live[f.Path] = f.Hash
	}
	records, err := s.meta.ListRecords(ctx, collection)
	if err != nil {
		return false, err
	}
	cs := Classify(live, records, false)
	return len(cs.Changed)+len(cs.New)+len(cs.Deleted) > 0, nil
}

// SweepStale forces sync_error on every collection whose sync has been in
// the syncing state longer than the stale timeout, and releases their slots.
// A crashed or hung sync must never permanently block future syncs.
func (s *Syncer) SweepStale(ctx context.Context) error {
	stale, err := s.meta.MarkStale(ctx, time.Now().Add(-s.cfg.StaleTimeout))
	if err != nil {
		return err
	}
	for _, name := range stale {
		s.slots.forceRelease(name)
		log.Printf("syncer: %s: %s, forced status to sync_error", name, staleSyncMessage)
	}
	return nil
}

// StartSweeper runs SweepStale on the given interval until ctx is done.
func (s *Syncer) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.SweepStale(ctx); err != nil {
					log.Printf("syncer: stale sweep: %v", err)
				}
			}
		}
	}()
}

// DeleteVectors removes every vector and sync record for the collection
// without touching the collection itself, forcing a clean re-sync. The
// status row is dropped, so the collection reads as never_synced again.
func (s *Syncer) DeleteVectors(ctx context.Context, collection string) error {
	if !s.files.Exists(collection) {
		return fmt.Errorf("%w: %q", ErrCollectionNotFound, collection)
	}

	// Take the slot so the purge cannot race an in-flight sync.
	token, ok := s.slots.tryAcquire(collection)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSyncInProgress, collection)
	}
	defer s.slots.release(collection, token)

	return s.purge(ctx, collection)
}

// OnCollectionDeleted is the cascade hook for the file-collection layer:
// when a collection is deleted, all derived state goes with it.
func (s *Syncer) OnCollectionDeleted(ctx context.Context, collection string) error {
	s.slots.forceRelease(collection)
	return s.purge(ctx, collection)
}

func (s *Syncer) purge(ctx context.Context, collection string) error {
	if err := s.vectors.DeleteByCollection(ctx, collection); err != nil {
		return fmt.Errorf("deleting vectors for %q: %w", collection, err)
	}
	if err := s.meta.DeleteCollection(ctx, collection); err != nil {
		return err
	}
	if s.cfg.VectorDir != "" {
		if err := s.vectors.Persist(ctx, s.cfg.VectorDir); err != nil {
			log.Printf("syncer: persisting vectors: %v", err)
		}
	}
	return nil
}
