// Package instancedb opens and locates the embedded SQLite database each
// managed instance keeps its authentication and contract-status tables in.
//
// The control plane only ever reads these databases; the instances own
// their schemas and write paths.
package instancedb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sqlite "modernc.org/sqlite"
)

const driverName = "openalgo-sqlite"

func init() {
	sql.Register(driverName, &sqlite.Driver{})
}

// Open opens an existing instance database read-only.
//
// A single connection with a busy timeout keeps us from fighting the
// instance's own writer over the file lock.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("instance database path is required")
	}

	db, err := sql.Open(driverName, "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open instance database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping instance database: %w", err)
	}

	var busyTimeout int
	if err := db.QueryRowContext(pingCtx, "PRAGMA busy_timeout=5000").Scan(&busyTimeout); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return db, nil
}

// HasTable reports whether the open database contains the named table.
func HasTable(ctx context.Context, db *sql.DB, table string) bool {
	var name string
	err := db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
	return err == nil
}
