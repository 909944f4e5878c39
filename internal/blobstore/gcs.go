package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// GCSConfig selects the bucket and, for local development, an emulator
// endpoint such as http://localhost:4443/storage/v1/.
type GCSConfig struct {
	Bucket   string
	Endpoint string
	Timeout  time.Duration
}

// GCS stores photos as objects in a Google Cloud Storage bucket.
type GCS struct {
	client  *storage.Client
	bucket  string
	timeout time.Duration
	log     zerolog.Logger
}

// NewGCS opens a storage client. With an Endpoint set the client talks to
// an emulator without credentials; otherwise application default
// credentials are used.
func NewGCS(ctx context.Context, cfg GCSConfig, log zerolog.Logger) (*GCS, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("gcs: bucket is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	client, err := storage.NewClient(ctx, clientOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("gcs: create client: %w", err)
	}
	log = log.With().Str("component", "blobstore").Str("bucket", cfg.Bucket).Logger()
	log.Info().Bool("emulator", cfg.Endpoint != "").Msg("object storage initialized")
	return &GCS{client: client, bucket: cfg.Bucket, timeout: cfg.Timeout, log: log}, nil
}

func clientOptions(cfg GCSConfig) []option.ClientOption {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	}
	return []option.ClientOption{
		option.WithEndpoint(endpoint),
		option.WithoutAuthentication(),
	}
}

// Put writes data to the object at p, replacing any previous content.
func (g *GCS) Put(ctx context.Context, p string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	w := g.client.Bucket(g.bucket).Object(p).NewWriter(ctx)
	if ct := contentTypeForKey(p); ct != "" {
		w.ContentType = ct
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("gcs: write %s: %w", p, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs: close writer %s: %w", p, err)
	}
	g.log.Debug().Str("path", p).Int("bytes", len(data)).Msg("object written")
	return nil
}

// Get reads the object at p. A missing object yields ErrNotFound.
func (g *GCS) Get(ctx context.Context, p string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	r, err := g.client.Bucket(g.bucket).Object(p).NewReader(ctx)
	if err != nil {
		return nil, mapGCSError(p, err)
	}
	defer func() { _ = r.Close() }()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gcs: read %s: %w", p, err)
	}
	return data, nil
}

// Close releases the underlying storage client.
func (g *GCS) Close() error {
	return g.client.Close()
}

func mapGCSError(p string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return fmt.Errorf("gcs: %s: %w", p, ErrNotFound)
	}
	return fmt.Errorf("gcs: open %s: %w", p, err)
}

func contentTypeForKey(key string) string {
	return mime.TypeByExtension(strings.ToLower(path.Ext(key)))
}
