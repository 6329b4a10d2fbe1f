package store

import (
	"context"

	"github.com/me/ytdl-agent/pkg/model"
)

// Store persists job records as a single mapping from job key to record.
// Reads return the whole map and writes replace the whole map; there are
// no partial-key writes.
type Store interface {
	GetAll(ctx context.Context) (map[string]model.Record, error)
	SetAll(ctx context.Context, records map[string]model.Record) error

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}
