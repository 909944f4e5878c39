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

// ListLovedOnes returns every record visible to the caller: its own plus
// those shared through its group.
func ListLovedOnes(ctx context.Context, httpClient HTTPClient, baseURL string) ([]domain.RemoteRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/loved-ones", nil)
	if err != nil {
		return nil, err
	}
	resp, err := do(httpClient, httpReq, "list loved ones")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, "list loved ones")
	}

	var lr types.ListLovedOnesResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return nil, fmt.Errorf("list loved ones: decode: %w", err)
	}
	if lr.LovedOnes == nil {
		return []domain.RemoteRecord{}, nil
	}
	return lr.LovedOnes, nil
}

// CreateLovedOne inserts rec and returns the row the backend stored. The
// backend may rewrite the id (it lowercases it).
func CreateLovedOne(ctx context.Context, httpClient HTTPClient, baseURL string, rec domain.RemoteRecord) (*domain.RemoteRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/loved-ones", bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := do(httpClient, httpReq, "create loved one")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, "create loved one")
	}

	var created domain.RemoteRecord
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("create loved one: decode: %w", err)
	}
	return &created, nil
}

// UpdateLovedOne overwrites the remote row identified by rec.ID.
func UpdateLovedOne(ctx context.Context, httpClient HTTPClient, baseURL string, rec domain.RemoteRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := types.ValidateIDPresent(rec.ID, "id"); err != nil {
		return err
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	u := fmt.Sprintf("%s/api/loved-ones/%s", baseURL, url.PathEscape(rec.ID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := do(httpClient, httpReq, "update loved one")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return statusError(resp, "update loved one")
	}
	return nil
}

// DeleteLovedOne removes the remote row. A 404 means it is already gone and
// counts as success.
func DeleteLovedOne(ctx context.Context, httpClient HTTPClient, baseURL, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := types.ValidateIDPresent(id, "id"); err != nil {
		return err
	}
	u := fmt.Sprintf("%s/api/loved-ones/%s", baseURL, url.PathEscape(id))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}
	resp, err := do(httpClient, httpReq, "delete loved one")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusOK, http.StatusNotFound:
		return nil
	default:
		return statusError(resp, "delete loved one")
	}
}
