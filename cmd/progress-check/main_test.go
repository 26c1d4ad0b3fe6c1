package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vlabprogress/internal/core"
	sqlitestore "vlabprogress/internal/infra/persistence/sqlite"
	"vlabprogress/pkg/domain"
)

// seedDatabase writes tracker state into a fresh sqlite file and points the
// command's environment at it.
func seedDatabase(t *testing.T, seed func(ctx context.Context, svc *core.Service)) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "progress.db")
	t.Setenv("VLAB_STORAGE_DRIVER", "sqlite")
	t.Setenv("VLAB_SQLITE_PATH", path)

	store, err := sqlitestore.NewStore(path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	svc := core.NewService(store)
	seed(context.Background(), svc)
	svc.Close()
	if err := store.Close(); err != nil {
		t.Fatalf("close sqlite: %v", err)
	}
}

func TestCLIReportsHealthyState(t *testing.T) {
	seedDatabase(t, func(ctx context.Context, svc *core.Service) {
		svc.SetUser(ctx, domain.User{Name: "Asha Rao", Email: "asha@example.edu", Designation: "Student"})
		svc.InitPage(ctx, "theory")
	})

	var stdout, stderr bytes.Buffer
	if code := cli([]string{"-pretty"}, &stdout, &stderr); code != 0 {
		t.Fatalf("expected exit 0, got %d (stderr %q)", code, stderr.String())
	}

	var report checkReport
	if err := json.Unmarshal(stdout.Bytes(), &report); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if !report.Summary.HasUser || report.Summary.UserHash == "" {
		t.Fatalf("expected seeded identity in summary, got %+v", report.Summary)
	}
	if len(report.Violations) != 0 {
		t.Fatalf("expected no violations, got %v", report.Violations)
	}
}

func TestCLIFlagsInconsistentState(t *testing.T) {
	seedDatabase(t, func(ctx context.Context, svc *core.Service) {
		svc.SetUser(ctx, domain.User{Name: "Asha Rao", Email: "asha@example.edu", Designation: "Student"})
		// Point the identity pointer at a hash no recorded user produces.
		svc.Store().Set(ctx, domain.ActiveUserHashKey, "udeadbeefdeadbeef")
		// Collaborator pages can leave score fields a reader must reject.
		svc.Store().Set(ctx, domain.PretestScoreKey, "12")
		svc.Store().Set(ctx, domain.PretestTotalKey, "10")
	})

	var stdout, stderr bytes.Buffer
	if code := cli(nil, &stdout, &stderr); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "violation") {
		t.Fatalf("expected violation notice on stderr, got %q", stderr.String())
	}

	var report checkReport
	if err := json.Unmarshal(stdout.Bytes(), &report); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(report.Violations) < 2 {
		t.Fatalf("expected pointer and score violations, got %v", report.Violations)
	}
}

func TestCLICountsArchivedReports(t *testing.T) {
	seedDatabase(t, func(ctx context.Context, svc *core.Service) {
		svc.SetUser(ctx, domain.User{Name: "Asha Rao", Email: "asha@example.edu", Designation: "Student"})
	})
	t.Setenv("VLAB_BLOB_DRIVER", "fs")
	t.Setenv("VLAB_BLOB_FS_ROOT", filepath.Join(t.TempDir(), "reportdata"))

	var stdout, stderr bytes.Buffer
	if code := cli([]string{"-archive"}, &stdout, &stderr); code != 0 {
		t.Fatalf("expected exit 0, got %d (stderr %q)", code, stderr.String())
	}
	var report checkReport
	if err := json.Unmarshal(stdout.Bytes(), &report); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if report.ArchivedReports != 0 {
		t.Fatalf("expected empty archive, got %d", report.ArchivedReports)
	}
}

func TestCLIRejectsUnknownFlags(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := cli([]string{"-no-such-flag"}, &stdout, &stderr); code != 2 {
		t.Fatalf("expected exit 2 for bad flags, got %d", code)
	}
}

func TestCLIFailsOnUnknownDriver(t *testing.T) {
	t.Setenv("VLAB_STORAGE_DRIVER", "floppy")
	var stdout, stderr bytes.Buffer
	if code := cli(nil, &stdout, &stderr); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "open store") {
		t.Fatalf("expected store error on stderr, got %q", stderr.String())
	}
}

// TestMainFunctionCoversSuccessAndFailure invokes main with patched exitFunc.
func TestMainFunctionCoversSuccessAndFailure(t *testing.T) {
	seedDatabase(t, func(ctx context.Context, svc *core.Service) {})

	var codes []int
	old := exitFunc
	exitFunc = func(code int) { codes = append(codes, code) }
	defer func() { exitFunc = old }()

	os.Args = []string{"progress-check"}
	main()
	t.Setenv("VLAB_STORAGE_DRIVER", "floppy")
	main()

	if len(codes) != 2 || codes[0] != 0 || codes[1] == 0 {
		t.Fatalf("unexpected exit codes: %v", codes)
	}
}
