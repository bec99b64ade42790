package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rl1809/medstock/internal/core/domain"
	"github.com/rl1809/medstock/internal/logging"
)

// The statements below are valid for both MySQL and SQLite.
const (
	createCollectionsTable = `
		CREATE TABLE IF NOT EXISTS record_collections (
			name VARCHAR(191) NOT NULL PRIMARY KEY,
			data LONGTEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`
	selectCollection  = `SELECT data FROM record_collections WHERE name = ?`
	replaceCollection = `REPLACE INTO record_collections (name, data) VALUES (?, ?)`
)

// SQLAdapter keeps each collection as one row of record_collections.
type SQLAdapter struct {
	db     *sql.DB
	logger logging.Logger
}

func NewSQLAdapter(db *sql.DB, logger logging.Logger) *SQLAdapter {
	return &SQLAdapter{db: db, logger: logger}
}

// Migrate creates the collections table if it does not exist.
func (s *SQLAdapter) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createCollectionsTable); err != nil {
		return fmt.Errorf("create record_collections: %w", err)
	}
	return nil
}

func (s *SQLAdapter) Load(ctx context.Context, name string) ([]domain.Record, error) {
	var data string
	err := s.db.QueryRowContext(ctx, selectCollection, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return []domain.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", name, err)
	}
	if data == "" {
		return []domain.Record{}, nil
	}
	return decodeOrEmpty(ctx, s.logger, name, []byte(data)), nil
}

func (s *SQLAdapter) Save(ctx context.Context, name string, records []domain.Record) error {
	data, err := encodeRecords(records)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, replaceCollection, name, string(data)); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

func (s *SQLAdapter) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
