package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/mycelian/rinku/client/internal/types"
)

func storageURL(baseURL, storagePath string) string {
	segs := strings.Split(storagePath, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/api/storage/%s", baseURL, strings.Join(segs, "/"))
}

// PutObject writes raw bytes at storagePath.
func PutObject(ctx context.Context, httpClient HTTPClient, baseURL, storagePath string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := types.ValidateStoragePath(storagePath); err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, storageURL(baseURL, storagePath), bytes.NewReader(data))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/octet-stream")

	resp, err := do(httpClient, httpReq, "put object")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		return statusError(resp, "put object")
	}
	return nil
}

// GetObject reads the bytes stored at storagePath.
func GetObject(ctx context.Context, httpClient HTTPClient, baseURL, storagePath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := types.ValidateStoragePath(storagePath); err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, storageURL(baseURL, storagePath), nil)
	if err != nil {
		return nil, err
	}
	resp, err := do(httpClient, httpReq, "get object")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, "get object")
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("get object: read body: %w", err)
	}
	return data, nil
}
