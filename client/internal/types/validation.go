package types

import (
	"fmt"
	"net/http"
	"strings"
)

// ------------------------------
// Shared Interfaces
// ------------------------------

// HTTPClient interface for dependency injection
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ------------------------------
// Validation
// ------------------------------

// ValidateIDPresent ensures an identifier path segment is usable.
func ValidateIDPresent(id, field string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%s is required", field)
	}
	if strings.ContainsAny(id, "/?#") {
		return fmt.Errorf("%s contains reserved characters", field)
	}
	return nil
}

// ValidateStoragePath ensures a storage path is relative and does not escape
// its bucket.
func ValidateStoragePath(p string) error {
	if strings.TrimSpace(p) == "" {
		return fmt.Errorf("storagePath is required")
	}
	if strings.HasPrefix(p, "/") {
		return fmt.Errorf("storagePath must be relative")
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." || seg == "" {
			return fmt.Errorf("storagePath %q is invalid", p)
		}
	}
	return nil
}
