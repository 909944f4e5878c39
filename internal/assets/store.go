// Package assets keeps photo bytes on the local filesystem in one flat
// directory. File names are "<ownerID>_<name>", where the owner is the record
// the photo belongs to.
package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mycelian/rinku/internal/types"
)

// ErrAssetNotFound is returned by Load for a missing file.
var ErrAssetNotFound = errors.New("asset not found")

// LocalStorage implements types.AssetStore on a directory. Operations on
// different files are independent and safe for concurrent use.
type LocalStorage struct {
	basePath string // absolute
	log      zerolog.Logger
}

var _ types.AssetStore = (*LocalStorage)(nil)

// NewLocalStorage creates the base directory if needed.
func NewLocalStorage(basePath string, log zerolog.Logger) (*LocalStorage, error) {
	absBasePath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("invalid asset path '%s': %w", basePath, err)
	}
	if err := os.MkdirAll(absBasePath, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create asset directory '%s': %w", absBasePath, err)
	}
	log = log.With().Str("component", "assets").Logger()
	log.Debug().Str("path", absBasePath).Msg("local asset storage initialized")
	return &LocalStorage{basePath: absBasePath, log: log}, nil
}

// Dir returns the absolute base directory.
func (ls *LocalStorage) Dir() string { return ls.basePath }

// Exists reports whether fileName is present.
func (ls *LocalStorage) Exists(fileName string) bool {
	full, err := ls.fullPath(fileName)
	if err != nil {
		return false
	}
	fi, err := os.Stat(full)
	return err == nil && fi.Mode().IsRegular()
}

// Save writes data atomically. An empty fileName generates
// "<ownerID>_<uuid>.jpg".
func (ls *LocalStorage) Save(data []byte, ownerID, fileName string) (string, error) {
	if fileName == "" {
		if ownerID == "" {
			return "", fmt.Errorf("owner id is required to generate a file name")
		}
		fileName = fmt.Sprintf("%s_%s.jpg", ownerID, uuid.NewString())
	}
	full, err := ls.fullPath(fileName)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(ls.basePath, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to write asset '%s': %w", fileName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to close asset '%s': %w", fileName, err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to move asset '%s' into place: %w", fileName, err)
	}
	ls.log.Debug().Str("file", fileName).Int("bytes", len(data)).Msg("asset saved")
	return fileName, nil
}

// Load reads fileName. A missing file yields ErrAssetNotFound.
func (ls *LocalStorage) Load(fileName string) ([]byte, error) {
	full, err := ls.fullPath(fileName)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", fileName, ErrAssetNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read asset '%s': %w", fileName, err)
	}
	return data, nil
}

// Delete removes fileName; deleting a missing file succeeds.
func (ls *LocalStorage) Delete(fileName string) error {
	full, err := ls.fullPath(fileName)
	if err != nil {
		return err
	}
	err = os.Remove(full)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete asset '%s': %w", fileName, err)
	}
	if err == nil {
		ls.log.Debug().Str("file", fileName).Msg("asset deleted")
	}
	return nil
}

// DeleteAll removes every file owned by ownerID. Owner prefixes compare
// case-insensitively, like record ids.
func (ls *LocalStorage) DeleteAll(ownerID string) error {
	if ownerID == "" {
		return fmt.Errorf("owner id is required")
	}
	entries, err := os.ReadDir(ls.basePath)
	if err != nil {
		return fmt.Errorf("failed to list assets: %w", err)
	}
	prefix := types.IDKey(ownerID + "_")
	var errs []error
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		name := e.Name()
		if len(name) < len(ownerID)+1 || types.IDKey(name[:len(ownerID)+1]) != prefix {
			continue
		}
		if err := ls.Delete(name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// fullPath rejects names that would escape the base directory.
func (ls *LocalStorage) fullPath(fileName string) (string, error) {
	if fileName == "" || fileName != filepath.Base(fileName) || strings.HasPrefix(fileName, ".") {
		return "", fmt.Errorf("invalid asset name '%s'", fileName)
	}
	return filepath.Join(ls.basePath, fileName), nil
}
