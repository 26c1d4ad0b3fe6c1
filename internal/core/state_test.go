package core

import (
	"context"
	"testing"

	"vlabprogress/pkg/domain"
)

func TestLoadStateCorruptDocumentYieldsDefaults(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	svc.store.Set(ctx, domain.StateKey, "{broken json")
	state := svc.LoadState(ctx)
	if state.Version != domain.SchemaVersion || state.User != nil || len(state.Steps) != 0 {
		t.Fatalf("expected fresh defaults, got %+v", state)
	}
}

func TestLoadStateBackfillsUserFromFallback(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	mergeFallback(svc.fallback, map[string]string{
		domain.FallbackUserNameKey:        "Asha Rao",
		domain.FallbackUserEmailKey:       "asha@example.edu",
		domain.FallbackUserDesignationKey: "Student",
	})

	state := svc.LoadState(ctx)
	if state.User == nil || state.User.Email != "asha@example.edu" {
		t.Fatalf("expected user backfilled from fallback, got %+v", state.User)
	}
	if state.User.SubmittedAt == "" {
		t.Fatal("expected submission instant synthesized")
	}
}

func TestLoadStateDurableUserWinsOverFallback(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	svc.SetUser(ctx, completeUser())
	mergeFallback(svc.fallback, map[string]string{
		domain.FallbackUserNameKey:        "Someone Else",
		domain.FallbackUserEmailKey:       "other@example.edu",
		domain.FallbackUserDesignationKey: "Teacher",
	})

	state := svc.LoadState(ctx)
	if state.User == nil || state.User.Email != "asha@example.edu" {
		t.Fatalf("expected durable identity to win, got %+v", state.User)
	}
}

func TestWithStatePersistsMutation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	svc.WithState(ctx, func(state *domain.ProgressState) {
		state.Page("graph").Visits = 3
	})
	if got := svc.LoadState(ctx).Pages["graph"].Visits; got != 3 {
		t.Fatalf("expected mutation persisted, got %d visits", got)
	}
}

func TestLogStepAppends(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	svc.LogStep(ctx, "circuit_connected", map[string]any{"attempts": 2})
	svc.LogStep(ctx, "readings_taken", nil)

	steps := svc.LoadState(ctx).Steps
	if len(steps) != 2 || steps[0].Name != "circuit_connected" || steps[1].Name != "readings_taken" {
		t.Fatalf("unexpected step log %+v", steps)
	}
	if steps[0].TS == "" {
		t.Fatal("expected step timestamped")
	}
}
