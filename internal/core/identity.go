package core

import (
	"context"
	"strings"
	"time"

	"vlabprogress/pkg/domain"
)

// SetUser records the submitted identity as the active one and drains the
// unscoped general-key inbox. It reports whether the normalized email was
// seen for the first time on this profile.
//
// Migration precedence:
//   - empty email: the active-identity pointer is cleared and nothing moves;
//   - a new email while a different identity was active: the unscoped keys
//     are cleared outright so the second learner cannot inherit the first
//     learner's leftovers;
//   - every other case (returning identity, same identity, no previous
//     identity): unscoped values are copied into the identity's scoped slots
//     without overwriting existing non-blank scoped data, then drained.
//
// Resubmitting the same identity does not wipe its scoped progress; that is
// the explicit RestartProgress operation.
func (s *Service) SetUser(ctx context.Context, input domain.User) bool {
	var isNew bool
	_ = s.instrument(ctx, "set_user", func(ctx context.Context) error {
		now := s.now().UTC()
		u := input.Trimmed()
		newHash := domain.ComputeUserHash(u.Email)
		prevHash, _ := s.store.Get(ctx, domain.ActiveUserHashKey)

		s.WithState(ctx, func(state *domain.ProgressState) {
			isNew = state.RecordUserHistory(u, now)
			u.SubmittedAt = now.Format(time.RFC3339)
			state.User = &u
			// A fresh submission un-declines.
			state.Flags.ReportDeclined = false
		})

		if newHash == "" {
			s.store.Remove(ctx, domain.ActiveUserHashKey)
		} else {
			s.store.Set(ctx, domain.ActiveUserHashKey, newHash)
		}

		switch {
		case newHash == "":
		case isNew && prevHash != "" && prevHash != newHash:
			for _, key := range domain.GeneralProgressKeys {
				s.store.Remove(ctx, key)
			}
		default:
			s.migrateGeneralKeys(ctx, newHash)
		}

		mergeFallback(s.fallback, map[string]string{
			domain.FallbackUserNameKey:        u.Name,
			domain.FallbackUserEmailKey:       u.Email,
			domain.FallbackUserDesignationKey: u.Designation,
			domain.FallbackUserSubmittedAtKey: u.SubmittedAt,
		})
		s.RefreshReportLinks(ctx)
		return nil
	})
	return isNew
}

// migrateGeneralKeys copies each non-blank unscoped value into the identity's
// scoped slot unless that slot already holds non-blank data, then removes the
// unscoped key whenever the scoped slot ended up non-blank.
func (s *Service) migrateGeneralKeys(ctx context.Context, userHash string) {
	for _, key := range domain.GeneralProgressKeys {
		value, ok := s.store.Get(ctx, key)
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		scoped := domain.ScopedKey(userHash, domain.GeneralKeySuffix(key))
		if cur, curOK := s.store.Get(ctx, scoped); !curOK || strings.TrimSpace(cur) == "" {
			s.store.Set(ctx, scoped, value)
		}
		if after, afterOK := s.store.Get(ctx, scoped); afterOK && strings.TrimSpace(after) != "" {
			s.store.Remove(ctx, key)
		}
	}
}

// HasUser reports whether the loaded document carries a complete identity.
func (s *Service) HasUser(ctx context.Context) bool {
	state := s.LoadState(ctx)
	return state.User != nil && state.User.Complete()
}

// CurrentUser returns the active identity when one is complete.
func (s *Service) CurrentUser(ctx context.Context) (domain.User, bool) {
	state := s.LoadState(ctx)
	if state.User == nil || !state.User.Complete() {
		return domain.User{}, false
	}
	return *state.User, true
}

// ActiveUserHash returns the recorded active-identity hash, empty when none.
func (s *Service) ActiveUserHash(ctx context.Context) string {
	hash, _ := s.store.Get(ctx, domain.ActiveUserHashKey)
	return hash
}

// DeclineReport records that the user dismissed the form prompt. Idempotent.
func (s *Service) DeclineReport(ctx context.Context) {
	s.WithState(ctx, func(state *domain.ProgressState) {
		state.Flags.ReportDeclined = true
	})
}

// ClearDecline re-arms the form prompt. Idempotent.
func (s *Service) ClearDecline(ctx context.Context) {
	s.WithState(ctx, func(state *domain.ProgressState) {
		state.Flags.ReportDeclined = false
	})
}

// ReportDeclined reports the current decline flag.
func (s *Service) ReportDeclined(ctx context.Context) bool {
	return s.LoadState(ctx).Flags.ReportDeclined
}

// RestartProgress wipes the active identity's experiment data (unscoped inbox
// and that identity's scoped slots) while keeping the identity itself. This is
// the deliberate "start over" affordance, deliberately separate from SetUser.
func (s *Service) RestartProgress(ctx context.Context) {
	_ = s.instrument(ctx, "restart_progress", func(ctx context.Context) error {
		hash := s.ActiveUserHash(ctx)
		for _, key := range domain.GeneralProgressKeys {
			s.store.Remove(ctx, key)
		}
		if hash != "" {
			for _, key := range domain.ScopedGeneralKeys(hash) {
				s.store.Remove(ctx, key)
			}
		}
		clearFallbackFields(s.fallback,
			domain.FallbackReportHTMLKey,
			domain.FallbackReportUpdatedAtKey,
		)
		s.LogStep(ctx, "restart_progress", nil)
		s.RefreshReportLinks(ctx)
		return nil
	})
}

// ResetAll wipes everything: the aggregate document, the identity pointer,
// unscoped and current-identity scoped keys, the session markers, and the
// fallback channel's identity and report fields. Individual removal failures
// are absorbed.
func (s *Service) ResetAll(ctx context.Context) {
	_ = s.instrument(ctx, "reset_all", func(ctx context.Context) error {
		hash := s.ActiveUserHash(ctx)
		s.store.Remove(ctx, domain.StateKey)
		s.store.Remove(ctx, domain.ActiveUserHashKey)
		for _, key := range domain.GeneralProgressKeys {
			s.store.Remove(ctx, key)
		}
		if hash != "" {
			for _, key := range domain.ScopedGeneralKeys(hash) {
				s.store.Remove(ctx, key)
			}
		}
		s.session.Remove(domain.SessionCurrentPageKey)
		s.session.Remove(domain.SessionPageEnterKey)
		s.session.Remove(domain.SessionPromptedOnceKey)
		clearFallbackFields(s.fallback,
			domain.FallbackUserNameKey,
			domain.FallbackUserEmailKey,
			domain.FallbackUserDesignationKey,
			domain.FallbackUserSubmittedAtKey,
			domain.FallbackReportHTMLKey,
			domain.FallbackReportUpdatedAtKey,
		)
		s.RefreshReportLinks(ctx)
		return nil
	})
}
