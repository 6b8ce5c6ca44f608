package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("record not found")

// Store runs the persistence queries the application services use.
type Store struct {
	db *sql.DB
}

// NewStore creates a store on top of an open database.
func NewStore(db *DB) *Store {
	return &Store{db: db.Conn()}
}

// GetIndexerSettings retrieves the settings override for an indexer.
func (s *Store) GetIndexerSettings(ctx context.Context, indexerID string) (*IndexerSettings, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT indexer_id, enabled, domain, updated_at
		FROM indexer_settings
		WHERE indexer_id = ?`, indexerID)

	var (
		settings IndexerSettings
		enabled  int64
	)
	if err := row.Scan(&settings.IndexerID, &enabled, &settings.Domain, &settings.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get indexer settings: %w", err)
	}
	settings.Enabled = enabled == 1

	return &settings, nil
}

// ListIndexerSettings returns all persisted settings overrides.
func (s *Store) ListIndexerSettings(ctx context.Context) ([]IndexerSettings, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT indexer_id, enabled, domain, updated_at
		FROM indexer_settings
		ORDER BY indexer_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list indexer settings: %w", err)
	}
	defer rows.Close()

	var all []IndexerSettings
	for rows.Next() {
		var (
			settings IndexerSettings
			enabled  int64
		)
		if err := rows.Scan(&settings.IndexerID, &enabled, &settings.Domain, &settings.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan indexer settings: %w", err)
		}
		settings.Enabled = enabled == 1
		all = append(all, settings)
	}
	return all, rows.Err()
}

// UpsertIndexerSettings writes the settings override for an indexer.
func (s *Store) UpsertIndexerSettings(ctx context.Context, settings IndexerSettings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO indexer_settings (indexer_id, enabled, domain, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(indexer_id) DO UPDATE SET
			enabled = excluded.enabled,
			domain = excluded.domain,
			updated_at = excluded.updated_at`,
		settings.IndexerID, boolToInt64(settings.Enabled), settings.Domain, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert indexer settings: %w", err)
	}
	return nil
}

// GetIndexerStatus retrieves the health snapshot for an indexer.
func (s *Store) GetIndexerStatus(ctx context.Context, indexerID string) (*IndexerStatus, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT indexer_id, status, failure_count, last_error, last_check, last_success
		FROM indexer_status
		WHERE indexer_id = ?`, indexerID)

	status, err := scanIndexerStatus(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get indexer status: %w", err)
	}
	return status, nil
}

// ListIndexerStatuses returns all persisted health snapshots.
func (s *Store) ListIndexerStatuses(ctx context.Context) ([]IndexerStatus, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT indexer_id, status, failure_count, last_error, last_check, last_success
		FROM indexer_status
		ORDER BY indexer_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list indexer statuses: %w", err)
	}
	defer rows.Close()

	var all []IndexerStatus
	for rows.Next() {
		status, err := scanIndexerStatus(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan indexer status: %w", err)
		}
		all = append(all, *status)
	}
	return all, rows.Err()
}

// UpsertIndexerStatus writes the health snapshot for an indexer.
func (s *Store) UpsertIndexerStatus(ctx context.Context, status IndexerStatus) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO indexer_status (indexer_id, status, failure_count, last_error, last_check, last_success)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(indexer_id) DO UPDATE SET
			status = excluded.status,
			failure_count = excluded.failure_count,
			last_error = excluded.last_error,
			last_check = excluded.last_check,
			last_success = excluded.last_success`,
		status.IndexerID, status.Status, int64(status.FailureCount), status.LastError,
		toNullTime(status.LastCheck), toNullTime(status.LastSuccess))
	if err != nil {
		return fmt.Errorf("failed to upsert indexer status: %w", err)
	}
	return nil
}

// InsertSearch appends one search to the history.
func (s *Store) InsertSearch(ctx context.Context, rec SearchRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO search_history (search_id, query, kind, indexers, result_count, duration_ms, errors, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SearchID, rec.Query, rec.Kind, rec.Indexers, int64(rec.ResultCount),
		rec.DurationMS, rec.Errors, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to insert search record: %w", err)
	}
	return nil
}

// ListSearches returns search history newest first.
func (s *Store) ListSearches(ctx context.Context, limit, offset int) ([]SearchRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, search_id, query, kind, indexers, result_count, duration_ms, errors, created_at
		FROM search_history
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`, int64(limit), int64(offset))
	if err != nil {
		return nil, fmt.Errorf("failed to list search history: %w", err)
	}
	defer rows.Close()

	var all []SearchRecord
	for rows.Next() {
		var rec SearchRecord
		var resultCount int64
		if err := rows.Scan(&rec.ID, &rec.SearchID, &rec.Query, &rec.Kind, &rec.Indexers,
			&resultCount, &rec.DurationMS, &rec.Errors, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan search record: %w", err)
		}
		rec.ResultCount = int(resultCount)
		all = append(all, rec)
	}
	return all, rows.Err()
}

// CountSearches returns the total number of search records.
func (s *Store) CountSearches(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM search_history`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count search history: %w", err)
	}
	return count, nil
}

// InsertGrab appends one download grab to the history.
func (s *Store) InsertGrab(ctx context.Context, rec GrabRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO grab_history (indexer_id, source_url, download_url, success, error, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.IndexerID, rec.SourceURL, rec.DownloadURL, boolToInt64(rec.Success),
		rec.Error, rec.DurationMS, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to insert grab record: %w", err)
	}
	return nil
}

// ListGrabs returns grab history newest first.
func (s *Store) ListGrabs(ctx context.Context, limit, offset int) ([]GrabRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, indexer_id, source_url, download_url, success, error, duration_ms, created_at
		FROM grab_history
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`, int64(limit), int64(offset))
	if err != nil {
		return nil, fmt.Errorf("failed to list grab history: %w", err)
	}
	defer rows.Close()

	var all []GrabRecord
	for rows.Next() {
		var rec GrabRecord
		var success int64
		if err := rows.Scan(&rec.ID, &rec.IndexerID, &rec.SourceURL, &rec.DownloadURL,
			&success, &rec.Error, &rec.DurationMS, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan grab record: %w", err)
		}
		rec.Success = success == 1
		all = append(all, rec)
	}
	return all, rows.Err()
}

// CountGrabs returns the total number of grab records.
func (s *Store) CountGrabs(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM grab_history`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count grab history: %w", err)
	}
	return count, nil
}

// PruneHistory deletes search and grab records older than the cutoff
// and reports how many rows went away.
func (s *Store) PruneHistory(ctx context.Context, before time.Time) (int64, error) {
	var total int64
	for _, table := range []string{"search_history", "grab_history"} {
		res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE created_at < ?`, before)
		if err != nil {
			return total, fmt.Errorf("failed to prune %s: %w", table, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			total += n
		}
	}
	return total, nil
}

// ClearHistory deletes all search and grab records.
func (s *Store) ClearHistory(ctx context.Context) error {
	for _, table := range []string{"search_history", "grab_history"} {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

func scanIndexerStatus(scan func(...any) error) (*IndexerStatus, error) {
	var (
		status       IndexerStatus
		failureCount int64
		lastCheck    sql.NullTime
		lastSuccess  sql.NullTime
	)
	if err := scan(&status.IndexerID, &status.Status, &failureCount, &status.LastError,
		&lastCheck, &lastSuccess); err != nil {
		return nil, err
	}
	status.FailureCount = int(failureCount)
	if lastCheck.Valid {
		status.LastCheck = &lastCheck.Time
	}
	if lastSuccess.Valid {
		status.LastSuccess = &lastSuccess.Time
	}
	return &status, nil
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func boolToInt64(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
