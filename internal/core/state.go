package core

import (
	"context"
	"fmt"

	"vlabprogress/pkg/domain"
)

// LoadState reads the aggregate document, merging it onto defaults. Missing
// or corrupt storage yields a fresh default document. When the document lacks
// a complete identity, the fallback channel's triple backfills it, with a
// submission instant synthesized if the channel did not carry one.
func (s *Service) LoadState(ctx context.Context) domain.ProgressState {
	raw, _ := s.store.Get(ctx, domain.StateKey)
	state := domain.DecodeState([]byte(raw))
	if state.User == nil || !state.User.Complete() {
		if u, ok := fallbackUser(s.fallback); ok {
			if u.SubmittedAt == "" {
				u.SubmittedAt = s.timestamp()
			}
			state.User = &u
		}
	}
	return state
}

// SaveState persists the whole document, reporting whether the write took
// effect. Partial-field writes never happen; the document is the unit.
func (s *Service) SaveState(ctx context.Context, state domain.ProgressState) bool {
	raw, err := domain.EncodeState(state)
	if err != nil {
		return false
	}
	return s.store.Set(ctx, domain.StateKey, string(raw))
}

// WithState runs the load-merge-mutate-persist sequence so call sites cannot
// forget a step. The mutated document is returned for inspection.
func (s *Service) WithState(ctx context.Context, mutate func(*domain.ProgressState)) domain.ProgressState {
	state := s.LoadState(ctx)
	mutate(&state)
	s.SaveState(ctx, state)
	return state
}

// Mark stamps the named timestamp with the current instant only when unset.
// It reports whether the slot transitioned from unset to set.
func (s *Service) Mark(ctx context.Context, key domain.TimestampKey) bool {
	var set bool
	_ = s.instrument(ctx, "mark", func(ctx context.Context) error {
		s.WithState(ctx, func(state *domain.ProgressState) {
			set = state.Timestamps.SetOnce(key, s.timestamp())
		})
		return nil
	})
	return set
}

// MarkReportViewed stamps the first opening of the progress report.
func (s *Service) MarkReportViewed(ctx context.Context) bool {
	return s.Mark(ctx, domain.TimestampReportViewed)
}

// LogStep appends one instrumentation event to the document's step log.
func (s *Service) LogStep(ctx context.Context, name string, meta map[string]any) {
	_ = s.instrument(ctx, "log_step", func(ctx context.Context) error {
		s.WithState(ctx, func(state *domain.ProgressState) {
			state.Steps = append(state.Steps, domain.Step{Name: name, TS: s.timestamp(), Meta: meta})
		})
		return nil
	})
}

// FormatDuration renders a millisecond count as zero-padded HH:MM:SS.
// Negative input reads as zero.
func FormatDuration(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	totalSeconds := ms / 1000
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
