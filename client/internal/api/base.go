package api

import (
	"io"
	"net/http"

	"github.com/mycelian/rinku/internal/errors"
)

// HTTPClient interface for dependency injection
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// maxErrorBody caps how much of a failed response body is kept for debugging.
const maxErrorBody = 4 << 10

// statusError drains a bounded prefix of the body into a classified error.
func statusError(resp *http.Response, op string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return errors.NewHTTPError(resp.StatusCode, string(body), op)
}

func do(httpClient HTTPClient, req *http.Request, op string) (*http.Response, error) {
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, errors.NewNetworkError(op, err)
	}
	return resp, nil
}
