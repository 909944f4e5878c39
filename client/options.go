package client

// This file defines functional options that configure the Client during
// construction.

import (
	"fmt"
	"time"

	"github.com/mycelian/rinku/internal/blobstore"
)

// Option configures a Client during construction in New.
//
// Options are applied before the authorization transport wrapper is installed,
// so transport-related options (like debug logging) will be placed underneath
// the API-key wrapper.
type Option func(*Client) error

// WithHTTPTimeout sets the underlying http.Client Timeout.
//
// Prefer per-request context deadlines where possible; this timeout bounds
// the total time spent on a single HTTP request. The value must be greater
// than zero.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("http timeout must be > 0")
		}
		c.http.Timeout = d
		return nil
	}
}

// WithDebugLogging wraps the client's transport so each request/response is
// logged when enabled is true. Do not enable in production: dumps include
// photo bytes and headers.
func WithDebugLogging(enabled bool) Option {
	return func(c *Client) error {
		if enabled {
			c.http.Transport = &debugTransport{base: c.http.Transport}
		}
		return nil
	}
}

// WithBlobStore routes photo bytes through b instead of the backend's
// storage endpoint. Photo metadata still goes to the backend.
func WithBlobStore(b blobstore.Blobs) Option {
	return func(c *Client) error {
		if b == nil {
			return fmt.Errorf("blob store cannot be nil")
		}
		c.blobs = b
		return nil
	}
}

// WithUserID sets the identity asserted on requests from the start.
func WithUserID(id string) Option {
	return func(c *Client) error {
		c.userID = id
		return nil
	}
}
