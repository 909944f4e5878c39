package client

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func TestWithHTTPTimeout(t *testing.T) {
	c := &Client{http: &http.Client{}}
	if err := WithHTTPTimeout(5 * time.Second)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.http.Timeout != 5*time.Second {
		t.Fatalf("http timeout not set")
	}
	if err := WithHTTPTimeout(0)(c); err == nil {
		t.Fatalf("expected error for zero timeout")
	}
}

func TestWithDebugLogging_WrapsBaseTransport(t *testing.T) {
	var called bool
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		called = true
		return &http.Response{StatusCode: 200, Body: http.NoBody, Header: make(http.Header)}, nil
	})
	c := &Client{http: &http.Client{Transport: rt}}
	if err := WithDebugLogging(true)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := c.http.Transport.(*debugTransport); !ok {
		t.Fatalf("expected debugTransport, got %T", c.http.Transport)
	}

	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "http://example.com", strings.NewReader(""))
	if _, err := c.http.Do(req); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if !called {
		t.Fatalf("base transport not invoked")
	}
}

func TestWithDebugLogging_Disabled(t *testing.T) {
	c := &Client{http: &http.Client{}}
	_ = WithDebugLogging(false)(c)
	if c.http.Transport != nil {
		t.Fatalf("transport should be untouched, got %T", c.http.Transport)
	}
}

func TestDebugTransport_ErrorPath(t *testing.T) {
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return nil, context.DeadlineExceeded
	})
	dt := &debugTransport{base: rt}
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "http://example.com", http.NoBody)
	if _, err := dt.RoundTrip(req); err == nil {
		t.Fatalf("expected error from underlying transport")
	}
}

func TestNew_AutoEnableDebugViaEnv(t *testing.T) {
	t.Setenv("RINKU_DEBUG", "true")
	c := New("http://example.com", "k")
	akt, ok := c.http.Transport.(*apiKeyTransport)
	if !ok {
		t.Fatalf("expected apiKeyTransport outermost, got %T", c.http.Transport)
	}
	if _, ok := akt.base.(*debugTransport); !ok {
		t.Fatalf("expected debugTransport beneath the API key wrapper when RINKU_DEBUG=true")
	}
}

func TestWithBlobStore_RejectsNil(t *testing.T) {
	c := &Client{http: &http.Client{}}
	if err := WithBlobStore(nil)(c); err == nil {
		t.Fatalf("expected error for nil blob store")
	}
}

func TestNew_PanicsOnMissingArgs(t *testing.T) {
	for _, tc := range []struct{ url, key string }{{"", "k"}, {"http://x", ""}} {
		func() {
			defer func() {
				if recover() == nil {
					t.Fatalf("expected panic for %+v", tc)
				}
			}()
			New(tc.url, tc.key)
		}()
	}
}
