package testutil

import (
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"github.com/pkordes/travel-journal/internal/storage"
)

// NewLocalDB opens a fresh device-local SQLite file in the test's temp dir.
func NewLocalDB(t *testing.T) *gorm.DB {
	t.Helper()
	return OpenLocalDB(t, filepath.Join(t.TempDir(), "local.db"))
}

// OpenLocalDB opens the SQLite file at path and closes it on cleanup. Opening
// the same path twice simulates an app restart.
func OpenLocalDB(t *testing.T, path string) *gorm.DB {
	t.Helper()
	db, err := storage.Open(path, nil)
	if err != nil {
		t.Fatalf("testutil.OpenLocalDB: %v", err)
	}
	t.Cleanup(func() { _ = storage.Close(db) })
	return db
}

// NewKV returns a key-value store over a fresh local database.
func NewKV(t *testing.T) *storage.KV {
	t.Helper()
	return storage.NewKV(NewLocalDB(t))
}
