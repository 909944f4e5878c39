package api

import (
	"context"
	"net/http"
)

// CheckHealth pings the backend health endpoint.
func CheckHealth(ctx context.Context, httpClient HTTPClient, baseURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/health", nil)
	if err != nil {
		return err
	}
	resp, err := do(httpClient, httpReq, "health")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp, "health")
	}
	return nil
}
