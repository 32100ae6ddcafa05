package syncer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ziadkadry99/vecsync/internal/db"
)

// MetadataStore persists CollectionSyncStatus and FileSyncRecord rows in
// SQLite. Terminal status writes are guarded by the sync generation, so a
// sync that was disowned by the stale sweep cannot overwrite a newer sync's
// result.
type MetadataStore struct {
	db *db.DB
}

// NewMetadataStore creates a MetadataStore backed by the given database.
func NewMetadataStore(database *db.DB) *MetadataStore {
	return &MetadataStore{db: database}
}

// timeFormat is fixed-width (no trimmed fractional zeros) so lexicographic
// order of stored strings equals time order; MarkStale compares them directly
// in SQL.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeFormat) }

func parseTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil
	}
	return &t
}

// GetStatus returns the persisted status row, or nil when the collection has
// never been synced.
func (s *MetadataStore) GetStatus(ctx context.Context, collection string) (*CollectionSyncStatus, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT collection, status, total_files, synced_files, total_chunks,
		       sync_generation, last_sync_started_at, last_sync_completed_at, last_error
		FROM collection_sync_status WHERE collection = ?`, collection)

	status, err := scanStatus(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return status, err
}

// AllStatuses returns every persisted status row keyed by collection name.
func (s *MetadataStore) AllStatuses(ctx context.Context) (map[string]CollectionSyncStatus, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT collection, status, total_files, synced_files, total_chunks,
		       sync_generation, last_sync_started_at, last_sync_completed_at, last_error
		FROM collection_sync_status`)
	if err != nil {
		return nil, fmt.Errorf("querying sync statuses: %w", err)
	}
	defer rows.Close()

	statuses := make(map[string]CollectionSyncStatus)
	for rows.Next() {
		st, err := scanStatus(rows)
		if err != nil {
			return nil, err
		}
		statuses[st.Collection] = *st
	}
	return statuses, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanStatus(row scannable) (*CollectionSyncStatus, error) {
	var st CollectionSyncStatus
	var statusStr string
	var started, completed sql.NullString

	err := row.Scan(&st.Collection, &statusStr, &st.TotalFiles, &st.SyncedFiles,
		&st.TotalChunks, &st.Generation, &started, &completed, &st.LastError)
	if err != nil {
		return nil, err
	}

	st.Status = SyncStatus(statusStr)
	st.StartedAt = parseTime(started)
	st.CompletedAt = parseTime(completed)
	return &st, nil
}

// BeginSync transitions the collection into the syncing state and returns the
// new sync generation. A collection already syncing is rejected with
// ErrSyncInProgress unless its start time is older than staleAfter, in which
// case the stuck row is taken over (a crashed process cannot hold the slot
// forever).
func (s *MetadataStore) BeginSync(ctx context.Context, collection string, staleAfter time.Duration) (int64, error) {
	current, err := s.GetStatus(ctx, collection)
	if err != nil {
		return 0, fmt.Errorf("reading status for %q: %w", collection, err)
	}

	if current != nil && current.Status == StatusSyncing {
		stale := current.StartedAt != nil && time.Since(*current.StartedAt) > staleAfter
		if !stale {
			return 0, fmt.Errorf("%w: %s", ErrSyncInProgress, collection)
		}
	}
	if current != nil && !CanTransition(current.Status, StatusSyncing) && current.Status != StatusSyncing {
		return 0, fmt.Errorf("illegal status transition %s -> %s for %q", current.Status, StatusSyncing, collection)
	}

	now := formatTime(time.Now())
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO collection_sync_status
			(collection, status, sync_generation, last_sync_started_at, last_error)
		VALUES (?, 'syncing', 1, ?, '')
		ON CONFLICT(collection) DO UPDATE SET
			status = 'syncing',
			sync_generation = sync_generation + 1,
			last_sync_started_at = excluded.last_sync_started_at,
			last_error = ''`,
		collection, now)
	if err != nil {
		return 0, fmt.Errorf("starting sync for %q: %w", collection, err)
	}

	var gen int64
	err = s.db.QueryRowContext(ctx,
		`SELECT sync_generation FROM collection_sync_status WHERE collection = ?`,
		collection).Scan(&gen)
	if err != nil {
		return 0, fmt.Errorf("reading sync generation for %q: %w", collection, err)
	}
	return gen, nil
}

// FinishSync records the terminal status of a sync pass. The write only lands
// if the row still belongs to this generation and is still syncing; it
// returns false when the sync was disowned in the meantime.
func (s *MetadataStore) FinishSync(ctx context.Context, collection string, generation int64,
	status SyncStatus, totalFiles, syncedFiles, totalChunks int, lastError string) (bool, error) {

	if status != StatusInSync && status != StatusSyncError {
		return false, fmt.Errorf("illegal terminal status %q", status)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE collection_sync_status SET
			status = ?,
			total_files = ?,
			synced_files = ?,
			total_chunks = ?,
			last_sync_completed_at = ?,
			last_error = ?
		WHERE collection = ? AND sync_generation = ? AND status = 'syncing'`,
		string(status), totalFiles, syncedFiles, totalChunks,
		formatTime(time.Now()), lastError, collection, generation)
	if err != nil {
		return false, fmt.Errorf("finishing sync for %q: %w", collection, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkStale forces syncing → sync_error for every collection whose sync
// started before cutoff, and returns the affected collection names.
func (s *MetadataStore) MarkStale(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT collection FROM collection_sync_status
		WHERE status = 'syncing' AND last_sync_started_at <= ?`,
		formatTime(cutoff))
	if err != nil {
		return nil, fmt.Errorf("finding stale syncs: %w", err)
	}
	defer rows.Close()

	var stale []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		stale = append(stale, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, name := range stale {
		_, err := s.db.ExecContext(ctx, `
			UPDATE collection_sync_status SET
				status = 'sync_error',
				last_error = ?,
				last_sync_completed_at = ?
			WHERE collection = ? AND status = 'syncing'`,
			staleSyncMessage, formatTime(time.Now()), name)
		if err != nil {
			return nil, fmt.Errorf("marking %q stale: %w", name, err)
		}
	}
	return stale, nil
}

// ListRecords returns the collection's file sync records keyed by path.
func (s *MetadataStore) ListRecords(ctx context.Context, collection string) (map[string]FileSyncRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT collection, path, content_hash, chunk_count, synced_at
		FROM file_sync_records WHERE collection = ?`, collection)
	if err != nil {
		return nil, fmt.Errorf("querying sync records for %q: %w", collection, err)
	}
	defer rows.Close()

	records := make(map[string]FileSyncRecord)
	for rows.Next() {
		var rec FileSyncRecord
		var syncedAt sql.NullString
		if err := rows.Scan(&rec.Collection, &rec.Path, &rec.ContentHash, &rec.ChunkCount, &syncedAt); err != nil {
			return nil, err
		}
		if t := parseTime(syncedAt); t != nil {
			rec.SyncedAt = *t
		}
		records[rec.Path] = rec
	}
	return records, rows.Err()
}

// UpsertRecord writes a file's sync record after its vectors are stored.
func (s *MetadataStore) UpsertRecord(ctx context.Context, rec FileSyncRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO file_sync_records (collection, path, content_hash, chunk_count, synced_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(collection, path) DO UPDATE SET
			content_hash = excluded.content_hash,
			chunk_count = excluded.chunk_count,
			synced_at = excluded.synced_at`,
		rec.Collection, rec.Path, rec.ContentHash, rec.ChunkCount, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("upserting sync record %s/%s: %w", rec.Collection, rec.Path, err)
	}
	return nil
}

// DeleteRecord removes one file's sync record.
func (s *MetadataStore) DeleteRecord(ctx context.Context, collection, path string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM file_sync_records WHERE collection = ? AND path = ?`,
		collection, path)
	if err != nil {
		return fmt.Errorf("deleting sync record %s/%s: %w", collection, path, err)
	}
	return nil
}

// DeleteCollection removes the status row and every file record for the
// collection (the metadata half of the deletion cascade).
func (s *MetadataStore) DeleteCollection(ctx context.Context, collection string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM file_sync_records WHERE collection = ?`, collection); err != nil {
		return fmt.Errorf("deleting sync records for %q: %w", collection, err)
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM collection_sync_status WHERE collection = ?`, collection); err != nil {
		return fmt.Errorf("deleting sync status for %q: %w", collection, err)
	}
	return nil
}
