package localstate

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDataDir_Override(t *testing.T) {
	tmp := filepath.Join(t.TempDir(), "state")
	t.Setenv(envHome, tmp)

	dir, err := DataDir()
	if err != nil {
		t.Fatalf("DataDir error: %v", err)
	}
	if dir != tmp {
		t.Fatalf("expected dir %s, got %s", tmp, dir)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("dir not created: %v", err)
	}
}

func TestDBPathAndPhotosDir(t *testing.T) {
	tmp := t.TempDir()
	if p := DBPath(tmp); p != filepath.Join(tmp, dbFilename) {
		t.Fatalf("unexpected DBPath %s", p)
	}
	p, err := PhotosDir(tmp)
	if err != nil {
		t.Fatalf("PhotosDir error: %v", err)
	}
	if fi, err := os.Stat(p); err != nil || !fi.IsDir() {
		t.Fatalf("photos dir not created: %v", err)
	}
}

func TestOpenSQLite_CreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.db")
	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer func() { _ = db.Close() }()

	var name string
	if err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='RecordPartitions'`).Scan(&name); err != nil {
		t.Fatalf("schema missing: %v", err)
	}
	// idempotent
	if err := EnsureSQLiteSchema(db); err != nil {
		t.Fatalf("EnsureSQLiteSchema second run: %v", err)
	}
}
