package client

import (
	"github.com/mycelian/rinku/internal/errors"
)

// IsIrrecoverable reports whether err is a backend failure that a retry
// cannot fix (most 4xx statuses).
func IsIrrecoverable(err error) bool { return errors.IsIrrecoverable(err) }

// StatusCode extracts the HTTP status from a backend error, 0 if none.
func StatusCode(err error) int { return errors.StatusCode(err) }
