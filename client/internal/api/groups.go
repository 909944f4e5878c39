package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mycelian/rinku/client/internal/types"
)

// GetGroupMembership returns the caller's group id, nil when ungrouped.
func GetGroupMembership(ctx context.Context, httpClient HTTPClient, baseURL string) (*string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/groups/membership", nil)
	if err != nil {
		return nil, err
	}
	resp, err := do(httpClient, httpReq, "get group membership")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, "get group membership")
	}

	var gr types.GroupMembershipResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return nil, fmt.Errorf("get group membership: decode: %w", err)
	}
	if gr.GroupID != nil && *gr.GroupID == "" {
		return nil, nil
	}
	return gr.GroupID, nil
}
