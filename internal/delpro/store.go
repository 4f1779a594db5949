// Package delpro reads the local DelPro herd management database and
// extracts bounded, watermark-ordered batches of new rows for upload.
// The database belongs to the milking system: this package opens it
// read-only, owns no schema, and never writes.
package delpro

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".
)

// ErrDatabaseMissing indicates the configured database file does not
// exist. The milking system may not have created it yet, or the path
// is wrong.
var ErrDatabaseMissing = errors.New("delpro: database file not found")

// busyTimeoutMs is how long a query waits on the milking system's
// write locks before failing.
const busyTimeoutMs = 5000

// Store is a read-only handle on the DelPro database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens the DelPro database file read-only. Opening fails if the
// file does not exist: the sqlite driver would otherwise create an
// empty database at the path and mask a misconfiguration forever.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDatabaseMissing, path)
		}

		return nil, fmt.Errorf("delpro: checking database file: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(%d)", path, busyTimeoutMs)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("delpro: open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("delpro: connecting to database: %w", err)
	}

	logger.Debug("delpro database opened", slog.String("path", path))

	return &Store{db: db, logger: logger}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
