package main

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mycelian/rinku/internal/mockbackend"
)

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		t.Fatalf("rinku %s: %v", strings.Join(args, " "), err)
	}
	return out.String()
}

func TestCLI_AddListDeleteAgainstMockBackend(t *testing.T) {
	backend := mockbackend.New("", zerolog.Nop())
	srv := httptest.NewServer(backend.Handler())
	defer srv.Close()

	t.Setenv("RINKU_HOME", t.TempDir())
	t.Setenv("RINKU_BACKEND_URL", srv.URL)

	out := runCLI(t, "add", "--user", "u1", "--id", "AB12", "--name", "Ann", "--relationship", "Mother")
	if !strings.Contains(out, "Loved one created: AB12 - Ann") {
		t.Fatalf("unexpected add output: %q", out)
	}
	if recs := backend.Records(); len(recs) != 1 || recs[0].ID != "ab12" {
		t.Fatalf("backend records = %+v", recs)
	}

	out = runCLI(t, "list", "--user", "u1")
	if !strings.Contains(out, "ab12") || !strings.Contains(out, "Ann") {
		t.Fatalf("unexpected list output: %q", out)
	}

	photo := filepath.Join(t.TempDir(), "beach.jpg")
	if err := os.WriteFile(photo, []byte("jpeg"), 0o600); err != nil {
		t.Fatal(err)
	}
	out = runCLI(t, "add-photo", "--user", "u1", "ab12", photo)
	if !strings.Contains(out, "Photo added: ab12_beach.jpg") {
		t.Fatalf("unexpected add-photo output: %q", out)
	}

	out = runCLI(t, "status", "--user", "u1")
	if !strings.Contains(out, "lovedones_u1") || !strings.Contains(out, "Records:     1") {
		t.Fatalf("unexpected status output: %q", out)
	}

	runCLI(t, "delete", "--user", "u1", "ab12")
	if recs := backend.Records(); len(recs) != 0 {
		t.Fatalf("backend still has %+v", recs)
	}
}

func TestCLI_GuestWorksOffline(t *testing.T) {
	t.Setenv("RINKU_HOME", t.TempDir())
	t.Setenv("RINKU_BACKEND_URL", "http://127.0.0.1:1")
	t.Setenv("RINKU_USER", "")

	out := runCLI(t, "add", "--name", "Dee", "--relationship", "Aunt")
	if !strings.Contains(out, "Loved one created:") {
		t.Fatalf("unexpected add output: %q", out)
	}
	out = runCLI(t, "status")
	if !strings.Contains(out, "(guest)") || !strings.Contains(out, "Records:     1") {
		t.Fatalf("unexpected status output: %q", out)
	}
}

func TestCLI_SyncRequiresUser(t *testing.T) {
	t.Setenv("RINKU_USER", "")
	root := NewRootCmd()
	root.SetArgs([]string{"sync"})
	root.SetOut(&bytes.Buffer{})
	if err := root.Execute(); err == nil {
		t.Fatal("expected error without --user")
	}
}
