package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestClassifyHTTPError_Categories(t *testing.T) {
	cases := map[int]ErrorCategory{
		400: Irrecoverable,
		401: Irrecoverable,
		404: Irrecoverable,
		408: Recoverable,
		429: Recoverable,
		500: Recoverable,
		503: Recoverable,
		302: Recoverable,
	}
	for code, want := range cases {
		if got := ClassifyHTTPError(code, "", nil).Category; got != want {
			t.Fatalf("status %d: got %s want %s", code, got, want)
		}
	}
}

func TestIsIrrecoverable_Wrapped(t *testing.T) {
	base := NewHTTPError(403, "forbidden", "update loved one")
	wrapped := fmt.Errorf("push: %w", base)
	if !IsIrrecoverable(wrapped) {
		t.Fatal("expected wrapped 403 to be irrecoverable")
	}
	if IsIrrecoverable(NewNetworkError("fetch", stderrors.New("dial tcp"))) {
		t.Fatal("network errors must be recoverable")
	}
	if IsIrrecoverable(stderrors.New("plain")) {
		t.Fatal("plain errors are not classified")
	}
	if StatusCode(wrapped) != 403 {
		t.Fatalf("StatusCode = %d", StatusCode(wrapped))
	}
}

func TestNetworkError_Unwraps(t *testing.T) {
	sentinel := stderrors.New("connection refused")
	err := NewNetworkError("download photo", sentinel)
	if !stderrors.Is(err, sentinel) {
		t.Fatal("expected underlying error to be reachable")
	}
	if err.Error() == "" {
		t.Fatal("empty message")
	}
}
