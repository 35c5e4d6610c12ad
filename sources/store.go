package sources

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Custom errors for source operations
var (
	ErrSourceNotFound = errors.New("book source not found")
)

// SourceStore persists mapped book sources in SQLite, keyed by source URL.
type SourceStore struct {
	db     *sql.DB
	mapper *Mapper
}

// StoredSource is a book source together with its storage timestamps.
type StoredSource struct {
	BookSource
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SourceFilter represents filtering options for listing sources.
type SourceFilter struct {
	Group   *string // Exact match on bookSourceGroup
	Enabled *bool   // Filter by enabled status
	Limit   int     // Pagination limit
	Offset  int     // Pagination offset
}

// ImportResult reports the outcome of importing a batch of documents.
type ImportResult struct {
	Imported []string           `json:"imported"`
	Rejected []RejectedDocument `json:"rejected"`
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// NewSourceStore creates a new source store with the given database path.
// Imports are mapped with mapper.
func NewSourceStore(dbPath string, mapper *Mapper) (*SourceStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SourceStore{db: db, mapper: mapper}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the book_sources table if it doesn't exist.
func (s *SourceStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS book_sources (
		url TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		source_group TEXT,
		source_type INTEGER NOT NULL DEFAULT 0,
		enabled INTEGER NOT NULL DEFAULT 1,
		custom_order INTEGER NOT NULL DEFAULT 0,
		weight INTEGER NOT NULL DEFAULT 0,
		document TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SourceStore) Close() error {
	return s.db.Close()
}

// UpsertSource inserts a source or replaces the stored source with the same
// URL. The original creation time is kept on replace.
func (s *SourceStore) UpsertSource(source *BookSource) error {
	return upsertSource(s.db, source)
}

func upsertSource(db execer, source *BookSource) error {
	if strings.TrimSpace(source.BookSourceURL) == "" {
		return ErrMissingSourceURL
	}

	data, err := json.Marshal(source)
	if err != nil {
		return fmt.Errorf("failed to marshal book source: %w", err)
	}

	now := time.Now()
	query := `
		INSERT INTO book_sources (
			url, name, source_group, source_type, enabled,
			custom_order, weight, document, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			name = excluded.name,
			source_group = excluded.source_group,
			source_type = excluded.source_type,
			enabled = excluded.enabled,
			custom_order = excluded.custom_order,
			weight = excluded.weight,
			document = excluded.document,
			updated_at = excluded.updated_at
	`

	_, err = db.Exec(query,
		source.BookSourceURL,
		source.BookSourceName,
		nullString(source.BookSourceGroup),
		source.BookSourceType,
		source.Enabled,
		source.CustomOrder,
		source.Weight,
		string(data),
		formatTime(&now),
		formatTime(&now),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert book source: %w", err)
	}

	return nil
}

// Import maps a JSON document or array and stores every accepted source in
// one transaction. Documents the mapper rejects are reported, not fatal.
func (s *SourceStore) Import(data []byte) (*ImportResult, error) {
	batch, err := s.mapper.FromJSONArray(data)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin import: %w", err)
	}
	defer tx.Rollback()

	result := &ImportResult{Imported: []string{}, Rejected: []RejectedDocument{}}
	result.Rejected = append(result.Rejected, batch.Rejected...)
	for i := range batch.Sources {
		if err := upsertSource(tx, &batch.Sources[i]); err != nil {
			return nil, err
		}
		result.Imported = append(result.Imported, batch.Sources[i].BookSourceURL)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit import: %w", err)
	}
	return result, nil
}

// GetSource retrieves a source by URL.
func (s *SourceStore) GetSource(url string) (*StoredSource, error) {
	query := `
		SELECT document, created_at, updated_at
		FROM book_sources
		WHERE url = ?
	`

	var document, createdAtStr, updatedAtStr string
	err := s.db.QueryRow(query, url).Scan(&document, &createdAtStr, &updatedAtStr)
	if err == sql.ErrNoRows {
		return nil, ErrSourceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query book source: %w", err)
	}

	return scanSource(document, createdAtStr, updatedAtStr)
}

// ListSources lists sources ordered by custom order then name.
func (s *SourceStore) ListSources(filter SourceFilter) ([]StoredSource, error) {
	query := `
		SELECT document, created_at, updated_at
		FROM book_sources
	`

	var whereClauses []string
	var args []any

	if filter.Group != nil {
		whereClauses = append(whereClauses, "source_group = ?")
		args = append(args, *filter.Group)
	}

	if filter.Enabled != nil {
		whereClauses = append(whereClauses, "enabled = ?")
		args = append(args, *filter.Enabled)
	}

	if len(whereClauses) > 0 {
		query += " WHERE " + strings.Join(whereClauses, " AND ")
	}

	query += " ORDER BY custom_order, name, url"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	} else if filter.Offset > 0 {
		query += " LIMIT -1"
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query book sources: %w", err)
	}
	defer rows.Close()

	sources := []StoredSource{}
	for rows.Next() {
		var document, createdAtStr, updatedAtStr string
		if err := rows.Scan(&document, &createdAtStr, &updatedAtStr); err != nil {
			return nil, fmt.Errorf("failed to scan book source: %w", err)
		}

		source, err := scanSource(document, createdAtStr, updatedAtStr)
		if err != nil {
			return nil, err
		}
		sources = append(sources, *source)
	}

	return sources, rows.Err()
}

// DeleteSource deletes a source by URL.
func (s *SourceStore) DeleteSource(url string) error {
	result, err := s.db.Exec("DELETE FROM book_sources WHERE url = ?", url)
	if err != nil {
		return fmt.Errorf("failed to delete book source: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrSourceNotFound
	}

	return nil
}

func scanSource(document, createdAtStr, updatedAtStr string) (*StoredSource, error) {
	source := &StoredSource{
		CreatedAt: parseTime(createdAtStr),
		UpdatedAt: parseTime(updatedAtStr),
	}
	if err := json.Unmarshal([]byte(document), &source.BookSource); err != nil {
		return nil, fmt.Errorf("failed to unmarshal book source: %w", err)
	}
	return source, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Helper functions for time formatting
func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	// Strip monotonic clock for consistent storage and comparisons
	return t.Truncate(0).Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t.Truncate(0)
}
