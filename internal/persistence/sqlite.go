package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/a3tai/mcp-pdf-mapper/internal/schema"
)

// SQLiteStore keeps mapping sets in a single SQLite table. The mapping
// set is stored as a JSON TEXT column; SQLite has no native timestamp
// type, so updated_at is stored as an RFC3339Nano string.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS template_mappings (
	template_id TEXT PRIMARY KEY,
	mappings    TEXT NOT NULL,
	updated_at  TEXT NOT NULL
)`

// NewSQLiteStore opens the database at dsn and ensures the schema exists.
func NewSQLiteStore(ctx context.Context, dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		return nil, errors.New("sqlite dsn cannot be empty")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create mappings table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveMappings upserts the template's mapping set, replacing any previous
// row wholesale.
func (s *SQLiteStore) SaveMappings(ctx context.Context, templateID string, mappings map[string]schema.AttributeID) error {
	if mappings == nil {
		mappings = map[string]schema.AttributeID{}
	}
	encoded, err := json.Marshal(mappings)
	if err != nil {
		return fmt.Errorf("failed to encode mappings: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO template_mappings (template_id, mappings, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(template_id) DO UPDATE SET mappings = excluded.mappings, updated_at = excluded.updated_at`,
		templateID, string(encoded), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to store mappings: %w", err)
	}
	return nil
}

// LoadMappings returns the stored mapping set, or an empty map when the
// template has no row.
func (s *SQLiteStore) LoadMappings(ctx context.Context, templateID string) (map[string]schema.AttributeID, error) {
	var encoded string
	err := s.db.QueryRowContext(ctx,
		`SELECT mappings FROM template_mappings WHERE template_id = ?`, templateID).Scan(&encoded)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]schema.AttributeID{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query mappings: %w", err)
	}

	var mappings map[string]schema.AttributeID
	if err := json.Unmarshal([]byte(encoded), &mappings); err != nil {
		return nil, fmt.Errorf("failed to decode stored mappings: %w", err)
	}
	if mappings == nil {
		mappings = map[string]schema.AttributeID{}
	}
	return mappings, nil
}
