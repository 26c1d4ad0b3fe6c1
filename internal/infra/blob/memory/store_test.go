package memory

import (
	"context"
	"io"
	"strings"
	"testing"

	"vlabprogress/internal/blob/core"
)

func TestArchiveCycle(t *testing.T) {
	ctx := context.Background()
	s := New()

	key := "reports/u1a2b3c4d5e6f7081/1700000000000.html"
	if _, err := s.Put(ctx, key, strings.NewReader("<html/>"), core.PutOptions{ContentType: "text/html"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := s.Put(ctx, key, strings.NewReader("again"), core.PutOptions{}); err == nil {
		t.Fatal("expected duplicate put to fail")
	}

	info, rc, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "<html/>" || info.ContentType != "text/html" {
		t.Fatalf("unexpected get %+v body=%q", info, body)
	}

	if _, err := s.Head(ctx, "reports/other/1.html"); err == nil {
		t.Fatal("expected head of missing key to fail")
	}

	ok, err := s.Delete(ctx, key)
	if err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
}

func TestListReturnsSortedCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, k := range []string{"reports/b/2.html", "reports/a/1.html", "snapshots/x.json"} {
		if _, err := s.Put(ctx, k, strings.NewReader("x"), core.PutOptions{Metadata: map[string]string{"m": "1"}}); err != nil {
			t.Fatalf("put %s: %v", k, err)
		}
	}
	infos, err := s.List(ctx, "reports/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "reports/a/1.html" || infos[1].Key != "reports/b/2.html" {
		t.Fatalf("unexpected listing %+v", infos)
	}
	// Mutating the returned metadata must not leak into the store.
	infos[0].Metadata["m"] = "mutated"
	again, _ := s.List(ctx, "reports/")
	if again[0].Metadata["m"] != "1" {
		t.Fatal("expected metadata isolation across List calls")
	}
}

func TestPresignUnsupported(t *testing.T) {
	if _, err := New().PresignURL(context.Background(), "k", core.SignedURLOptions{}); err != core.ErrUnsupported {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}
