package client

import (
	"context"
	"net/http"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mycelian/rinku/client/internal/api"
	"github.com/mycelian/rinku/client/internal/types"
	"github.com/mycelian/rinku/devmode"
	"github.com/mycelian/rinku/internal/blobstore"
	domain "github.com/mycelian/rinku/internal/types"
)

// --------------------------------------------------------------------
// Client core
// --------------------------------------------------------------------

// Client is the HTTP remote gateway for loved-one records and photos.
type Client struct {
	baseURL string
	http    *http.Client
	apiKey  string // API key for backend authentication (must be explicitly configured)
	blobs   blobstore.Blobs

	mu     sync.RWMutex
	userID string

	closedOnce uint32 // ensures Close is idempotent
}

var _ domain.Gateway = (*Client)(nil)

// New constructs a Client with the specified baseURL and apiKey.
// Additional options can be provided via functional arguments.
func New(baseURL, apiKey string, opts ...Option) *Client {
	if baseURL == "" {
		panic("baseURL cannot be empty")
	}
	if apiKey == "" {
		panic("apiKey cannot be empty")
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}

	// Auto-enable debug via env variable without changing code.
	if debugLoggingRequested() {
		opts = append(opts, WithDebugLogging(true))
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			panic(err)
		}
	}
	if c.blobs == nil {
		c.blobs = &httpBlobs{c: c}
	}

	// Wrap HTTP transport to automatically add Authorization and user headers
	c.wrapTransportWithAPIKey()

	return c
}

// NewWithDevMode constructs a Client using the shared dev API key that the
// mock backend recognizes. Convenience constructor for local development.
func NewWithDevMode(baseURL string, opts ...Option) *Client {
	return New(baseURL, devmode.APIKey, opts...)
}

// SetUserID changes the default identity asserted on requests. An identity
// attached to the request context with types.WithIdentity takes precedence.
// An empty id stops sending the default.
func (c *Client) SetUserID(id string) {
	c.mu.Lock()
	c.userID = id
	c.mu.Unlock()
}

func (c *Client) currentUserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// wrapTransportWithAPIKey wraps the HTTP client's transport to automatically
// add the Authorization header to all requests using the configured API key.
func (c *Client) wrapTransportWithAPIKey() {
	baseTransport := c.http.Transport
	if baseTransport == nil {
		baseTransport = http.DefaultTransport
	}
	c.http.Transport = &apiKeyTransport{
		base:   baseTransport,
		apiKey: c.apiKey,
		userID: c.currentUserID,
	}
}

// apiKeyTransport wraps an http.RoundTripper to add the Authorization and
// user headers. The user comes from the request context when present.
type apiKeyTransport struct {
	base   http.RoundTripper
	apiKey string
	userID func() string
}

func (t *apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request to avoid modifying the original
	cloned := req.Clone(req.Context())
	cloned.Header.Set("Authorization", "Bearer "+t.apiKey)
	uid := t.userID()
	if id := domain.IdentityFrom(req.Context()); id != nil {
		uid = id.ID
	}
	if uid != "" {
		cloned.Header.Set(devmode.UserHeader, uid)
	}
	return t.base.RoundTrip(cloned)
}

// Close releases idle connections and the blob store. Safe to call multiple times.
func (c *Client) Close() error {
	if !atomic.CompareAndSwapUint32(&c.closedOnce, 0, 1) {
		return nil
	}
	c.http.CloseIdleConnections()
	return c.blobs.Close()
}

// --------------------------------------------------------------------
// Record operations - delegated to internal/api
// --------------------------------------------------------------------

// FetchRecords lists every record visible to the current user.
func (c *Client) FetchRecords(ctx context.Context) ([]domain.RemoteRecord, error) {
	return api.ListLovedOnes(ctx, c.http, c.baseURL)
}

// CreateRecord inserts rec. The returned row carries the id the backend
// actually stored.
func (c *Client) CreateRecord(ctx context.Context, rec domain.RemoteRecord) (*domain.RemoteRecord, error) {
	return api.CreateLovedOne(ctx, c.http, c.baseURL, rec)
}

// UpdateRecord overwrites the remote row with rec.
func (c *Client) UpdateRecord(ctx context.Context, rec domain.RemoteRecord) error {
	return api.UpdateLovedOne(ctx, c.http, c.baseURL, rec)
}

// DeleteRecord removes the remote row; deleting a missing row succeeds.
func (c *Client) DeleteRecord(ctx context.Context, id string) error {
	return api.DeleteLovedOne(ctx, c.http, c.baseURL, id)
}

// --------------------------------------------------------------------
// Photo operations
// --------------------------------------------------------------------

// FetchPhotoMetadata lists the photos registered for recordID.
func (c *Client) FetchPhotoMetadata(ctx context.Context, recordID string) ([]domain.PhotoMetadata, error) {
	return api.ListPhotos(ctx, c.http, c.baseURL, recordID)
}

// DownloadPhoto reads photo bytes from the configured blob store.
func (c *Client) DownloadPhoto(ctx context.Context, storagePath string) ([]byte, error) {
	data, err := c.blobs.Get(ctx, storagePath)
	if err != nil {
		photoBytesTotal.WithLabelValues("download", "error").Inc()
		return nil, err
	}
	photoBytesTotal.WithLabelValues("download", "ok").Add(float64(len(data)))
	return data, nil
}

// UploadPhoto writes data to <recordID>/<fileName> in the blob store and
// registers the metadata row.
func (c *Client) UploadPhoto(ctx context.Context, recordID, fileName string, data []byte) (*domain.PhotoMetadata, error) {
	if err := types.ValidateIDPresent(recordID, "recordId"); err != nil {
		return nil, err
	}
	if err := types.ValidateIDPresent(fileName, "fileName"); err != nil {
		return nil, err
	}
	storagePath := PhotoStoragePath(recordID, fileName)
	if err := c.blobs.Put(ctx, storagePath, data); err != nil {
		photoBytesTotal.WithLabelValues("upload", "error").Inc()
		return nil, err
	}
	photoBytesTotal.WithLabelValues("upload", "ok").Add(float64(len(data)))
	return api.RegisterPhoto(ctx, c.http, c.baseURL, recordID, types.RegisterPhotoRequest{
		FileName:    fileName,
		StoragePath: storagePath,
	})
}

// PhotoStoragePath is the object path a photo is uploaded to. Record ids are
// lowercased to match the backend's canonical form.
func PhotoStoragePath(recordID, fileName string) string {
	return path.Join(strings.ToLower(recordID), fileName)
}

// --------------------------------------------------------------------
// Group & health operations
// --------------------------------------------------------------------

// FetchGroupMembership returns the current user's group id, nil when ungrouped.
func (c *Client) FetchGroupMembership(ctx context.Context) (*string, error) {
	return api.GetGroupMembership(ctx, c.http, c.baseURL)
}

// Ping checks that the backend is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return api.CheckHealth(ctx, c.http, c.baseURL)
}

// --------------------------------------------------------------------
// Default blob store: the backend's storage endpoint
// --------------------------------------------------------------------

type httpBlobs struct{ c *Client }

func (b *httpBlobs) Put(ctx context.Context, storagePath string, data []byte) error {
	return api.PutObject(ctx, b.c.http, b.c.baseURL, storagePath, data)
}

func (b *httpBlobs) Get(ctx context.Context, storagePath string) ([]byte, error) {
	return api.GetObject(ctx, b.c.http, b.c.baseURL, storagePath)
}

func (b *httpBlobs) Close() error { return nil }
