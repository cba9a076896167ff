// Package index provides the persisted snapshot index backed by a
// sqlite database. It exclusively owns snapshot identity: logical
// records are created and deleted here and nowhere else.
package index

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // sqlite driver
)

const (
	// defaultPingTimeout bounds the connectivity check on open.
	defaultPingTimeout = 5 * time.Second

	// busyTimeoutMS is how long sqlite waits on a locked database
	// before reporting SQLITE_BUSY.
	busyTimeoutMS = 5000
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	timestamp    TEXT PRIMARY KEY,
	url          TEXT NOT NULL UNIQUE,
	title        TEXT NOT NULL DEFAULT '',
	tags         TEXT NOT NULL DEFAULT '',
	num_outputs  INTEGER NOT NULL DEFAULT 0,
	archive_size INTEGER NOT NULL DEFAULT 0,
	created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS extractor_results (
	snapshot_timestamp TEXT NOT NULL REFERENCES snapshots(timestamp) ON DELETE CASCADE,
	method             TEXT NOT NULL,
	succeeded          INTEGER NOT NULL,
	output_path        TEXT NOT NULL DEFAULT '',
	error              TEXT NOT NULL DEFAULT '',
	started_at         TIMESTAMP NOT NULL,
	duration_ns        INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (snapshot_timestamp, method)
);
`

// Store is the snapshot index repository.
type Store struct {
	db *sqlx.DB
}

// Open connects to the sqlite database at path, creating it if needed,
// and applies the schema.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on", path, busyTimeoutMS)

	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: connect %s: %v", ErrStore, path, err)
	}

	// sqlite serializes writers; a single connection avoids
	// SQLITE_BUSY churn under the worker pool.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), defaultPingTimeout)
	defer cancel()
	if pingErr := db.PingContext(ctx); pingErr != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping: %v", ErrStore, pingErr)
	}

	store := &Store{db: db}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewWithDB wraps an existing database handle. Used by tests.
func NewWithDB(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("%w: apply schema: %v", ErrStore, err)
	}
	return nil
}
