// Package gatewaytest provides an in-memory types.Gateway for tests. It
// lowercases ids on create like the real backend.
package gatewaytest

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mycelian/rinku/internal/types"
)

// ErrInjected is returned by calls configured to fail.
var ErrInjected = errors.New("injected gateway failure")

// Fake is a concurrency-safe in-memory gateway.
type Fake struct {
	mu      sync.Mutex
	records []types.RemoteRecord
	photos  map[string][]types.PhotoMetadata // by lowercased record id
	blobs   map[string][]byte

	// Failure switches. Keys are record ids / storage paths as passed in.
	FailFetch    bool
	FailCreate   map[string]bool
	FailUpdate   bool
	FailDelete   bool
	FailMetadata map[string]bool
	FailDownload map[string]bool
	FailUpload   map[string]bool // by file name

	// FetchHook runs at the start of FetchRecords, outside the lock.
	FetchHook func()
	// DownloadHook runs at the start of DownloadPhoto, outside the lock.
	DownloadHook func(storagePath string)

	calls map[string]int
}

func New() *Fake {
	return &Fake{
		photos:       make(map[string][]types.PhotoMetadata),
		blobs:        make(map[string][]byte),
		FailCreate:   make(map[string]bool),
		FailMetadata: make(map[string]bool),
		FailDownload: make(map[string]bool),
		FailUpload:   make(map[string]bool),
		calls:        make(map[string]int),
	}
}

var _ types.Gateway = (*Fake)(nil)

// Calls returns how many times op was invoked.
func (f *Fake) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Seed stores a remote record as-is.
func (f *Fake) Seed(r types.RemoteRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, r)
}

// SeedPhoto registers a photo and its bytes for recordID.
func (f *Fake) SeedPhoto(recordID, fileName string, data []byte) types.PhotoMetadata {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addPhotoLocked(recordID, fileName, data)
}

func (f *Fake) addPhotoLocked(recordID, fileName string, data []byte) types.PhotoMetadata {
	key := strings.ToLower(recordID)
	sp := path.Join(key, fileName)
	m := types.PhotoMetadata{ID: uuid.NewString(), LovedOneID: key, FileName: fileName, StoragePath: sp, CreatedAt: time.Now().UTC()}
	f.photos[key] = append(f.photos[key], m)
	f.blobs[sp] = append([]byte(nil), data...)
	return m
}

// Records returns a copy of the remote rows.
func (f *Fake) Records() []types.RemoteRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.RemoteRecord(nil), f.records...)
}

// Photos returns the metadata registered for recordID.
func (f *Fake) Photos(recordID string) []types.PhotoMetadata {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.PhotoMetadata(nil), f.photos[strings.ToLower(recordID)]...)
}

func (f *Fake) FetchRecords(ctx context.Context) ([]types.RemoteRecord, error) {
	if f.FetchHook != nil {
		f.FetchHook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["fetch"]++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.FailFetch {
		return nil, ErrInjected
	}
	return append([]types.RemoteRecord(nil), f.records...), nil
}

func (f *Fake) CreateRecord(ctx context.Context, rec types.RemoteRecord) (*types.RemoteRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["create"]++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.FailCreate[rec.ID] || f.FailCreate["*"] {
		return nil, ErrInjected
	}
	rec.ID = strings.ToLower(rec.ID)
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	for _, r := range f.records {
		if r.ID == rec.ID {
			return nil, fmt.Errorf("duplicate id %s", rec.ID)
		}
	}
	now := time.Now().UTC()
	rec.CreatedAt, rec.UpdatedAt = now, now
	f.records = append(f.records, rec)
	out := rec
	return &out, nil
}

func (f *Fake) UpdateRecord(ctx context.Context, rec types.RemoteRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["update"]++
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.FailUpdate {
		return ErrInjected
	}
	for i, r := range f.records {
		if strings.EqualFold(r.ID, rec.ID) {
			rec.ID = r.ID
			rec.CreatedAt = r.CreatedAt
			rec.UpdatedAt = time.Now().UTC()
			f.records[i] = rec
			return nil
		}
	}
	return fmt.Errorf("record %s not found", rec.ID)
}

func (f *Fake) DeleteRecord(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["delete"]++
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.FailDelete {
		return ErrInjected
	}
	for i, r := range f.records {
		if strings.EqualFold(r.ID, id) {
			f.records = append(f.records[:i], f.records[i+1:]...)
			break
		}
	}
	delete(f.photos, strings.ToLower(id))
	return nil
}

func (f *Fake) FetchPhotoMetadata(ctx context.Context, recordID string) ([]types.PhotoMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["metadata"]++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.FailMetadata[recordID] {
		return nil, ErrInjected
	}
	return append([]types.PhotoMetadata(nil), f.photos[strings.ToLower(recordID)]...), nil
}

func (f *Fake) DownloadPhoto(ctx context.Context, storagePath string) ([]byte, error) {
	if f.DownloadHook != nil {
		f.DownloadHook(storagePath)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["download"]++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.FailDownload[storagePath] {
		return nil, ErrInjected
	}
	data, ok := f.blobs[storagePath]
	if !ok {
		return nil, fmt.Errorf("blob %s not found", storagePath)
	}
	return append([]byte(nil), data...), nil
}

func (f *Fake) UploadPhoto(ctx context.Context, recordID, fileName string, data []byte) (*types.PhotoMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["upload"]++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.FailUpload[fileName] {
		return nil, ErrInjected
	}
	m := f.addPhotoLocked(recordID, fileName, data)
	return &m, nil
}
