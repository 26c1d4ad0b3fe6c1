package core

import (
	"context"
	"strconv"

	"vlabprogress/pkg/domain"
)

// Page names with auto-stamp behavior on first entry.
const (
	PageAim          = "aim"
	PageSimulation   = "simulation"
	PageContributors = "contributors"
)

// InitPage records entry into a page: stamps the session start on the first
// page ever, creates or updates the page record, applies the page-specific
// one-time stamps, and arms the session markers consumed by RecordPageExit.
func (s *Service) InitPage(ctx context.Context, page string) {
	_ = s.instrument(ctx, "init_page", func(ctx context.Context) error {
		now := s.now()
		ts := s.timestamp()
		s.WithState(ctx, func(state *domain.ProgressState) {
			state.Timestamps.SetOnce(domain.TimestampSessionStart, ts)
			switch page {
			case PageAim:
				state.Timestamps.SetOnce(domain.TimestampAimAfterIntro, ts)
			case PageSimulation:
				state.Timestamps.SetOnce(domain.TimestampSimulationStart, ts)
			case PageContributors:
				state.Timestamps.SetOnce(domain.TimestampContributorsVisited, ts)
			}
			rec := state.Page(page)
			if rec.FirstEnter == "" {
				rec.FirstEnter = ts
			}
			rec.Visits++
		})
		s.session.Set(domain.SessionCurrentPageKey, page)
		s.session.Set(domain.SessionPageEnterKey, strconv.FormatInt(now.UnixMilli(), 10))
		return nil
	})
}

// RecordPageExit adds the elapsed dwell time to the page named by the session
// marker, falling back to the present page name when the marker is missing
// and to zero elapsed time when the entry instant is missing or invalid. The
// markers are disarmed afterwards so a second exit signal (both a hide and an
// unload handler may fire) adds nothing. Completes synchronously.
func (s *Service) RecordPageExit(ctx context.Context, presentPage string) int64 {
	var elapsed int64
	_ = s.instrument(ctx, "record_page_exit", func(ctx context.Context) error {
		page, ok := s.session.Get(domain.SessionCurrentPageKey)
		if !ok || page == "" {
			page = presentPage
		}
		if raw, ok := s.session.Get(domain.SessionPageEnterKey); ok {
			if enterMs, err := strconv.ParseInt(raw, 10, 64); err == nil {
				elapsed = s.now().UnixMilli() - enterMs
			}
		}
		if elapsed < 0 {
			elapsed = 0
		}
		ts := s.timestamp()
		s.WithState(ctx, func(state *domain.ProgressState) {
			rec := state.Page(page)
			rec.TimeMs += elapsed
			rec.LastExit = ts
		})
		s.session.Remove(domain.SessionCurrentPageKey)
		s.session.Remove(domain.SessionPageEnterKey)
		return nil
	})
	return elapsed
}

// PromptedOnce reports whether the user-form prompt should be shown, flipping
// the session marker on first call so the prompt appears once per session.
func (s *Service) PromptedOnce() bool {
	if _, ok := s.session.Get(domain.SessionPromptedOnceKey); ok {
		return false
	}
	s.session.Set(domain.SessionPromptedOnceKey, "1")
	return true
}
