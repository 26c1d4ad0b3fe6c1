package core

import (
	"context"
	"fmt"
	"testing"

	memstore "vlabprogress/internal/infra/persistence/memory"
	"vlabprogress/pkg/domain"
)

// failingKV simulates a blocked or quota-exhausted store.
type failingKV struct{}

func (failingKV) Get(context.Context, string) (string, bool, error) {
	return "", false, fmt.Errorf("storage denied")
}
func (failingKV) Set(context.Context, string, string) error { return fmt.Errorf("storage denied") }
func (failingKV) Remove(context.Context, string) error      { return fmt.Errorf("storage denied") }
func (failingKV) Keys(context.Context, string) ([]string, error) {
	return nil, fmt.Errorf("storage denied")
}
func (failingKV) Close() error { return nil }

func TestAccessorAbsorbsDriverFailures(t *testing.T) {
	ctx := context.Background()
	a := NewAccessor(failingKV{})

	if _, ok := a.Get(ctx, "k"); ok {
		t.Fatal("expected failed get to read as absent")
	}
	if a.Set(ctx, "k", "v") {
		t.Fatal("expected failed set to report no effect")
	}
	if a.Remove(ctx, "k") {
		t.Fatal("expected failed remove to report no effect")
	}
	if keys := a.Keys(ctx, ""); keys != nil {
		t.Fatalf("expected failed listing to read empty, got %v", keys)
	}
	if a.DroppedOps() != 4 {
		t.Fatalf("expected 4 dropped ops, got %d", a.DroppedOps())
	}
}

func TestAccessorNotifiesWatchers(t *testing.T) {
	ctx := context.Background()
	a := NewAccessor(memstore.NewStore())

	var events []domain.ChangeEvent
	cancel := a.Watch(func(ev domain.ChangeEvent) { events = append(events, ev) })

	a.Set(ctx, "k", "v")
	a.Remove(ctx, "k")
	a.Notify(domain.ChangeEvent{Key: "external", Value: "x"})

	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Key != "k" || events[0].Value != "v" || events[0].Removed {
		t.Fatalf("unexpected set event %+v", events[0])
	}
	if !events[1].Removed {
		t.Fatalf("expected removal event, got %+v", events[1])
	}
	if events[2].Key != "external" {
		t.Fatalf("expected injected event, got %+v", events[2])
	}

	cancel()
	a.Set(ctx, "k2", "v2")
	if len(events) != 3 {
		t.Fatal("expected no events after cancel")
	}
}

func TestServiceDegradesWhenStorageDenied(t *testing.T) {
	ctx := context.Background()
	svc := NewService(failingKV{})
	defer svc.Close()

	// Every public operation must absorb the failure and settle on the
	// degraded-but-consistent defaults.
	svc.SetUser(ctx, completeUser())
	svc.InitPage(ctx, "theory")
	svc.RecordPageExit(ctx, "theory")
	svc.Mark(ctx, domain.TimestampSimulationStart)
	svc.ResetAll(ctx)

	if svc.HasUser(ctx) {
		t.Fatal("expected no user with denied storage")
	}
	if ok, reason := svc.CanAccessProgressReport(ctx); ok || !reason.Denied() {
		t.Fatal("expected gate closed with denied storage")
	}
}
