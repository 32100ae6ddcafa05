package syncer

import (
	"errors"
	"time"
)

// SyncStatus is the closed set of collection sync states.
type SyncStatus string

const (
	StatusNeverSynced SyncStatus = "never_synced"
	StatusSyncing     SyncStatus = "syncing"
	StatusInSync      SyncStatus = "in_sync"
	StatusSyncError   SyncStatus = "sync_error"
)

// validTransitions is the state machine's transition table. Syncing is
// re-entrant: a later sync moves in_sync or sync_error back to syncing.
var validTransitions = map[SyncStatus][]SyncStatus{
	StatusNeverSynced: {StatusSyncing},
	StatusSyncing:     {StatusInSync, StatusSyncError},
	StatusInSync:      {StatusSyncing},
	StatusSyncError:   {StatusSyncing},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to SyncStatus) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// staleSyncMessage is recorded when the sweep disowns a hung sync.
const staleSyncMessage = "stale sync detected"

// CollectionSyncStatus is the durable per-collection sync record.
type CollectionSyncStatus struct {
	Collection        string     `json:"collection"`
	Status            SyncStatus `json:"status"`
	TotalFiles        int        `json:"total_files"`
	SyncedFiles       int        `json:"synced_files"`
	TotalChunks       int        `json:"total_chunks"`
	Generation        int64      `json:"sync_generation"`
	StartedAt         *time.Time `json:"last_sync_started_at,omitempty"`
	CompletedAt       *time.Time `json:"last_sync_completed_at,omitempty"`
	LastError         string     `json:"last_error,omitempty"`
	HasPendingChanges bool       `json:"has_pending_changes"`
}

// FileSyncRecord is the durable per-file sync record. When its hash matches
// the live file's hash, the file is already represented in the vector index.
type FileSyncRecord struct {
	Collection  string    `json:"collection"`
	Path        string    `json:"path"`
	ContentHash string    `json:"content_hash"`
	ChunkCount  int       `json:"chunk_count"`
	SyncedAt    time.Time `json:"synced_at"`
}

// SyncResult summarizes one completed sync pass.
type SyncResult struct {
	Collection     string     `json:"collection"`
	Status         SyncStatus `json:"status"`
	ProcessedFiles int        `json:"processed_files"`
	SkippedFiles   int        `json:"skipped_files"`
	DeletedFiles   int        `json:"deleted_files"`
	FailedFiles    int        `json:"failed_files"`
	TotalChunks    int        `json:"total_chunks"`
	Duration       string     `json:"duration"`
}

// Sentinel errors, matched with errors.Is and mapped to transport codes in
// routes.go.
var (
	// ErrSyncInProgress means the collection's exclusive sync slot is held.
	// The request is rejected, never queued.
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrCollectionNotFound means the named collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrServiceUnavailable means a required adapter (embedding or vector
	// index) is not configured or reachable.
	ErrServiceUnavailable = errors.New("embedding service unavailable")

	// errDisowned is internal: the stale sweep reassigned this sync's
	// collection, so its terminal writes were abandoned.
	errDisowned = errors.New("sync disowned by stale recovery")
)
