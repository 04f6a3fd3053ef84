// ABOUTME: SQLite flavour of the SQL store using modernc.org/sqlite
// ABOUTME: Convenience constructor for file-backed databases used by tests and single-host deployments

package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLStore, error) {
	return Open(context.Background(), Options{
		Driver: DriverSQLite,
		Path:   path,
	})
}

// ensureDir creates the parent directory of a database file
func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}
	return nil
}
