// Package localstate locates the on-disk state of the sync client and
// prepares its SQLite database.
package localstate

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	envHome    = "RINKU_HOME" // override for tests
	dirName    = ".rinku"     // default under $HOME
	dbFilename = "cache.db"
	photosDir  = "photos"
)

// DataDir returns the directory where local state is stored (~/.rinku).
// It creates the directory with 0700 permissions if it does not exist.
func DataDir() (string, error) {
	if custom := os.Getenv(envHome); custom != "" {
		if err := os.MkdirAll(custom, 0o700); err != nil {
			return "", err
		}
		return custom, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine user home: %w", err)
	}
	dir := filepath.Join(home, dirName)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}

// DBPath returns the path of the record cache database inside dir.
func DBPath(dir string) string {
	return filepath.Join(dir, dbFilename)
}

// PhotosDir returns the photo asset directory inside dir, creating it.
func PhotosDir(dir string) (string, error) {
	p := filepath.Join(dir, photosDir)
	if err := os.MkdirAll(p, 0o700); err != nil {
		return "", err
	}
	return p, nil
}
