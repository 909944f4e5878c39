package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/mycelian/rinku/client/internal/types"
	domain "github.com/mycelian/rinku/internal/types"
)

// ListPhotos returns the photo metadata registered for a loved one.
func ListPhotos(ctx context.Context, httpClient HTTPClient, baseURL, lovedOneID string) ([]domain.PhotoMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := types.ValidateIDPresent(lovedOneID, "lovedOneId"); err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s/api/loved-ones/%s/photos", baseURL, url.PathEscape(lovedOneID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := do(httpClient, httpReq, "list photos")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, "list photos")
	}

	var lr types.ListPhotosResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return nil, fmt.Errorf("list photos: decode: %w", err)
	}
	if lr.Photos == nil {
		return []domain.PhotoMetadata{}, nil
	}
	return lr.Photos, nil
}

// RegisterPhoto records metadata for bytes already written to storage.
func RegisterPhoto(ctx context.Context, httpClient HTTPClient, baseURL, lovedOneID string, req types.RegisterPhotoRequest) (*domain.PhotoMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := types.ValidateIDPresent(lovedOneID, "lovedOneId"); err != nil {
		return nil, err
	}
	if err := types.ValidateStoragePath(req.StoragePath); err != nil {
		return nil, err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s/api/loved-ones/%s/photos", baseURL, url.PathEscape(lovedOneID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := do(httpClient, httpReq, "register photo")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, "register photo")
	}

	var meta domain.PhotoMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("register photo: decode: %w", err)
	}
	return &meta, nil
}
