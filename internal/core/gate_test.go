package core

import (
	"context"
	"testing"

	"vlabprogress/pkg/domain"
)

func TestAccessGateConjunction(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	ok, reason := svc.CanAccessProgressReport(ctx)
	if ok || reason != domain.AccessNoIdentityNoReport {
		t.Fatalf("expected both preconditions unmet, got ok=%v reason=%s", ok, reason)
	}

	svc.SetUser(ctx, completeUser())
	ok, reason = svc.CanAccessProgressReport(ctx)
	if ok || reason != domain.AccessNoReport {
		t.Fatalf("expected report precondition unmet, got ok=%v reason=%s", ok, reason)
	}

	hash := domain.ComputeUserHash("asha@example.edu")
	svc.store.Set(ctx, domain.ScopedKey(hash, domain.SuffixReportHTML), "<html/>")
	ok, reason = svc.CanAccessProgressReport(ctx)
	if !ok || reason != domain.AccessGranted {
		t.Fatalf("expected access granted, got ok=%v reason=%s", ok, reason)
	}

	svc.ResetAll(ctx)
	svc.store.Set(ctx, domain.SimulationReportHTMLKey, "<html/>")
	ok, reason = svc.CanAccessProgressReport(ctx)
	if ok || reason != domain.AccessNoIdentity {
		t.Fatalf("expected identity precondition unmet, got ok=%v reason=%s", ok, reason)
	}
}

func TestHasSimulationReportCheckOrder(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if svc.HasSimulationReport(ctx) {
		t.Fatal("expected no report initially")
	}

	// Fallback channel only.
	mergeFallback(svc.fallback, map[string]string{domain.FallbackReportHTMLKey: "<html/>"})
	if !svc.HasSimulationReport(ctx) {
		t.Fatal("expected fallback copy to count")
	}
	clearFallbackFields(svc.fallback, domain.FallbackReportHTMLKey)

	// Unscoped slot.
	svc.store.Set(ctx, domain.SimulationReportHTMLKey, "<html/>")
	if !svc.HasSimulationReport(ctx) {
		t.Fatal("expected unscoped copy to count")
	}

	// Blank content never counts.
	svc.store.Set(ctx, domain.SimulationReportHTMLKey, "   ")
	if svc.HasSimulationReport(ctx) {
		t.Fatal("expected blank html to not count")
	}
}

func TestReportLinksReactToStorageChanges(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	state := svc.RegisterReportLink(ctx, "nav-progress-report")
	if state.Enabled || state.Tooltip == "" {
		t.Fatalf("expected link disabled with tooltip, got %+v", state)
	}

	svc.SetUser(ctx, completeUser())
	hash := domain.ComputeUserHash("asha@example.edu")
	// The accessor write fans out to the watcher which refreshes the registry.
	svc.store.Set(ctx, domain.ScopedKey(hash, domain.SuffixReportHTML), "<html/>")

	links := svc.ReportLinkStates()
	got, ok := links["nav-progress-report"]
	if !ok || !got.Enabled || got.Reason != domain.AccessGranted || got.Tooltip != "" {
		t.Fatalf("expected link enabled after report write, got %+v", got)
	}

	svc.UnregisterReportLink("nav-progress-report")
	if len(svc.ReportLinkStates()) != 0 {
		t.Fatal("expected registry emptied")
	}
}

func TestAuthorizeReportNavigation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	ok, reason := svc.AuthorizeReportNavigation(ctx)
	if ok || AccessNotice(reason) == "" {
		t.Fatalf("expected denial with notice wording, got ok=%v reason=%s", ok, reason)
	}
	if svc.LoadState(ctx).Timestamps.ReportViewedAt != "" {
		t.Fatal("expected no view stamp on denial")
	}

	svc.SetUser(ctx, completeUser())
	hash := domain.ComputeUserHash("asha@example.edu")
	svc.store.Set(ctx, domain.ScopedKey(hash, domain.SuffixReportHTML), "<html/>")

	ok, reason = svc.AuthorizeReportNavigation(ctx)
	if !ok || reason != domain.AccessGranted {
		t.Fatalf("expected grant, got ok=%v reason=%s", ok, reason)
	}
	if svc.LoadState(ctx).Timestamps.ReportViewedAt == "" {
		t.Fatal("expected first granted navigation to stamp reportViewedAt")
	}
}

func TestAccessNoticeWording(t *testing.T) {
	cases := map[domain.AccessReason]bool{
		domain.AccessGranted:            false,
		domain.AccessNoIdentity:         true,
		domain.AccessNoReport:           true,
		domain.AccessNoIdentityNoReport: true,
	}
	for reason, wantNotice := range cases {
		if got := AccessNotice(reason) != ""; got != wantNotice {
			t.Fatalf("reason %s: expected notice=%v", reason, wantNotice)
		}
	}
}
