package instancedb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// candidatePaths lists the known database locations inside an instance
// directory, in search order.
func candidatePaths(instanceDir string) []string {
	return []string{
		filepath.Join(instanceDir, "db", "openalgo.db"),
		filepath.Join(instanceDir, "openalgo.db"),
	}
}

// DatabaseFile returns the first database file found inside an instance
// directory, checking the known candidates and then any renamed .db file
// under db/. Presence only; the file is not opened.
func DatabaseFile(instanceDir string) (string, bool) {
	for _, path := range candidatePaths(instanceDir) {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}

	dbDir := filepath.Join(instanceDir, "db")
	entries, err := os.ReadDir(dbDir)
	if err != nil {
		return "", false
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".db") {
			continue
		}
		return filepath.Join(dbDir, entry.Name()), true
	}
	return "", false
}

// OpenForTable locates and opens the instance database containing the
// given table. It tries the known candidate paths first, then falls back
// to scanning the instance's db directory for any .db file that carries
// the table, since deployments occasionally rename the database file.
//
// The caller owns the returned handle.
func OpenForTable(ctx context.Context, instanceDir, table string) (*sql.DB, error) {
	for _, path := range candidatePaths(instanceDir) {
		db, ok := openIfHasTable(ctx, path, table)
		if ok {
			return db, nil
		}
	}

	dbDir := filepath.Join(instanceDir, "db")
	entries, err := os.ReadDir(dbDir)
	if err != nil {
		return nil, fmt.Errorf("no database with table %q under %s", table, instanceDir)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".db") {
			continue
		}
		db, ok := openIfHasTable(ctx, filepath.Join(dbDir, entry.Name()), table)
		if ok {
			return db, nil
		}
	}

	return nil, fmt.Errorf("no database with table %q under %s", table, instanceDir)
}

func openIfHasTable(ctx context.Context, path, table string) (*sql.DB, bool) {
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return nil, false
	}
	db, err := Open(ctx, path)
	if err != nil {
		return nil, false
	}
	if !HasTable(ctx, db, table) {
		_ = db.Close()
		return nil, false
	}
	return db, true
}
