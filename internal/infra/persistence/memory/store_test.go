package memory

import (
	"context"
	"reflect"
	"testing"
)

func TestStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	if _, ok, err := s.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected absent key, got ok=%v err=%v", ok, err)
	}
	if err := s.Set(ctx, "k", "v1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(ctx, "k", "v2"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	v, ok, err := s.Get(ctx, "k")
	if err != nil || !ok || v != "v2" {
		t.Fatalf("expected v2, got %q ok=%v err=%v", v, ok, err)
	}
	if err := s.Remove(ctx, "k"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatal("expected key removed")
	}
	if err := s.Remove(ctx, "k"); err != nil {
		t.Fatalf("double remove must not error: %v", err)
	}
}

func TestStoreKeysPrefix(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	for _, k := range []string{"vlab_exp2_b", "vlab_exp2_a", "other"} {
		if err := s.Set(ctx, k, "x"); err != nil {
			t.Fatalf("set %s: %v", k, err)
		}
	}
	keys, err := s.Keys(ctx, "vlab_exp2_")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if want := []string{"vlab_exp2_a", "vlab_exp2_b"}; !reflect.DeepEqual(keys, want) {
		t.Fatalf("expected %v, got %v", want, keys)
	}
	all, err := s.Keys(ctx, "")
	if err != nil || len(all) != 3 {
		t.Fatalf("expected 3 keys, got %v err=%v", all, err)
	}
}

func TestStoreClose(t *testing.T) {
	s := NewStore()
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty store, got %d", s.Len())
	}
}
