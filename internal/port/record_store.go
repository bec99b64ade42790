package port

import (
	"context"

	"github.com/rl1809/medstock/internal/core/domain"
)

type RecordStore interface {
	// Load returns every record of the named collection. A missing, empty or
	// malformed collection loads as an empty slice without error.
	Load(ctx context.Context, name string) ([]domain.Record, error)

	// Save replaces the named collection with records.
	Save(ctx context.Context, name string, records []domain.Record) error

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}
