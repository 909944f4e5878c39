package client

import (
	"net/http"
	"net/http/httputil"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// debugTransport provides detailed HTTP request/response logging for debugging client issues.
//
// Enable with RINKU_DEBUG=true or DEBUG=true. Bodies are dumped only for
// JSON requests; photo uploads and downloads log headers alone so a sync
// pass does not flood the log with image bytes.
//
// Request and response dumps include the Authorization header, so keep this
// out of production.
type debugTransport struct{ base http.RoundTripper }

func (dt *debugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := dt.base
	if base == nil {
		base = http.DefaultTransport
	}
	if reqDump, err := httputil.DumpRequestOut(req, dumpBody(req.Header)); err == nil {
		log.Debug().Str("method", req.Method).Str("url", req.URL.String()).Str("request_dump", string(reqDump)).Msg("HTTP request")
	}

	resp, err := base.RoundTrip(req)
	if err != nil {
		log.Error().Err(err).Str("method", req.Method).Str("url", req.URL.String()).Msg("HTTP request failed")
		return nil, err
	}

	if respDump, err := httputil.DumpResponse(resp, dumpBody(resp.Header)); err == nil {
		log.Debug().Str("method", req.Method).Str("url", req.URL.String()).Int("status_code", resp.StatusCode).Str("response_dump", string(respDump)).Msg("HTTP response")
	}
	return resp, nil
}

func dumpBody(h http.Header) bool {
	return strings.HasPrefix(h.Get("Content-Type"), "application/json")
}

// debugLoggingRequested checks if HTTP debug logging should be enabled.
//
// Activation methods:
//   - RINKU_DEBUG=true (client-specific debug flag)
//   - DEBUG=true (general debug flag, common in development workflows)
//
// Both environment variables are supported for flexibility:
//   - Use RINKU_DEBUG for targeted sync client debugging
//   - Use DEBUG for broader application debugging that includes HTTP traffic
//
// Returns true if either environment variable is set to "true" (case-sensitive).
func debugLoggingRequested() bool {
	return os.Getenv("RINKU_DEBUG") == "true" || os.Getenv("DEBUG") == "true"
}
