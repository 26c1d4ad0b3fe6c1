package core

import (
	"context"
	"strings"

	"vlabprogress/pkg/domain"
)

// LinkState is the desired presentation of one progress-report link. The UI
// layer owns the actual DOM; this struct carries everything it needs to
// render the enabled/disabled affordance and the tooltip.
type LinkState struct {
	Enabled bool                `json:"enabled"`
	Reason  domain.AccessReason `json:"reason"`
	Tooltip string              `json:"tooltip,omitempty"`
}

// HasSimulationReport reports whether any report slot holds non-blank HTML,
// checking the active identity's scoped slot, then the unscoped slot, then
// the fallback channel.
func (s *Service) HasSimulationReport(ctx context.Context) bool {
	if hash := s.ActiveUserHash(ctx); hash != "" {
		if v, ok := s.store.Get(ctx, domain.ScopedKey(hash, domain.SuffixReportHTML)); ok && strings.TrimSpace(v) != "" {
			return true
		}
	}
	if v, ok := s.store.Get(ctx, domain.SimulationReportHTMLKey); ok && strings.TrimSpace(v) != "" {
		return true
	}
	fields := decodeFallback(s.fallback)
	return strings.TrimSpace(fields[domain.FallbackReportHTMLKey]) != ""
}

// CanAccessProgressReport evaluates the gate predicate: a complete identity
// AND a generated simulation report.
func (s *Service) CanAccessProgressReport(ctx context.Context) (bool, domain.AccessReason) {
	hasUser := s.HasUser(ctx)
	hasReport := s.HasSimulationReport(ctx)
	switch {
	case hasUser && hasReport:
		return true, domain.AccessGranted
	case !hasUser && !hasReport:
		return false, domain.AccessNoIdentityNoReport
	case !hasUser:
		return false, domain.AccessNoIdentity
	default:
		return false, domain.AccessNoReport
	}
}

// RegisterReportLink adds a progress-report link to the registry and returns
// its current state. Registering the same id again is a no-op refresh.
func (s *Service) RegisterReportLink(ctx context.Context, id string) LinkState {
	state := s.computeLinkState(ctx)
	s.mu.Lock()
	s.links[id] = state
	s.mu.Unlock()
	return state
}

// UnregisterReportLink drops a link from the registry.
func (s *Service) UnregisterReportLink(id string) {
	s.mu.Lock()
	delete(s.links, id)
	s.mu.Unlock()
}

// ReportLinkStates returns a copy of the registry.
func (s *Service) ReportLinkStates() map[string]LinkState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]LinkState, len(s.links))
	for id, st := range s.links {
		out[id] = st
	}
	return out
}

// RefreshReportLinks recomputes the gate and applies the result to every
// registered link. Safe to call arbitrarily often; a recompute that lands on
// the same state changes nothing.
func (s *Service) RefreshReportLinks(ctx context.Context) LinkState {
	state := s.computeLinkState(ctx)
	s.mu.Lock()
	for id := range s.links {
		s.links[id] = state
	}
	s.mu.Unlock()
	return state
}

// AuthorizeReportNavigation is the click interception hook: it re-evaluates
// the gate at activation time, stamps the first granted view, and hands the
// denial reason to the caller for the blocking notice.
func (s *Service) AuthorizeReportNavigation(ctx context.Context) (bool, domain.AccessReason) {
	ok, reason := s.CanAccessProgressReport(ctx)
	if ok {
		s.MarkReportViewed(ctx)
	}
	return ok, reason
}

func (s *Service) computeLinkState(ctx context.Context) LinkState {
	ok, reason := s.CanAccessProgressReport(ctx)
	return LinkState{Enabled: ok, Reason: reason, Tooltip: AccessNotice(reason)}
}

// AccessNotice returns the user-facing wording for a denial reason, empty
// when access is granted.
func AccessNotice(reason domain.AccessReason) string {
	switch reason {
	case domain.AccessNoIdentity:
		return "Complete the user form to unlock the progress report."
	case domain.AccessNoReport:
		return "Generate a simulation report to unlock the progress report."
	case domain.AccessNoIdentityNoReport:
		return "Complete the user form and generate a simulation report to unlock the progress report."
	}
	return ""
}
