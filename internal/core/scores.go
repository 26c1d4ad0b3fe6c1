package core

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"vlabprogress/pkg/domain"
)

// ErrNoActiveIdentity is returned by operations that require a scoped keyspace.
var ErrNoActiveIdentity = errors.New("no active identity")

// scopedOrGeneral reads a logical field, preferring the active identity's
// scoped slot and falling back to the unscoped inbox.
func (s *Service) scopedOrGeneral(ctx context.Context, userHash, suffix, generalKey string) string {
	if userHash != "" {
		if v, ok := s.store.Get(ctx, domain.ScopedKey(userHash, suffix)); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	v, _ := s.store.Get(ctx, generalKey)
	return v
}

// Assessment returns the validated score readback for one assessment, false
// when the stored fields are absent, non-numeric, or out of range.
func (s *Service) Assessment(ctx context.Context, kind domain.AssessmentKind) (domain.AssessmentSummary, bool) {
	hash := s.ActiveUserHash(ctx)
	var scoreSuffix, totalSuffix, updatedSuffix string
	var scoreKey, totalKey, updatedKey string
	switch kind {
	case domain.AssessmentPretest:
		scoreSuffix, totalSuffix, updatedSuffix = domain.SuffixPretestScore, domain.SuffixPretestTotal, domain.SuffixPretestUpdatedAt
		scoreKey, totalKey, updatedKey = domain.PretestScoreKey, domain.PretestTotalKey, domain.PretestUpdatedAtKey
	case domain.AssessmentPosttest:
		scoreSuffix, totalSuffix, updatedSuffix = domain.SuffixPosttestScore, domain.SuffixPosttestTotal, domain.SuffixPosttestUpdatedAt
		scoreKey, totalKey, updatedKey = domain.PosttestScoreKey, domain.PosttestTotalKey, domain.PosttestUpdatedAtKey
	default:
		return domain.AssessmentSummary{}, false
	}
	return domain.ParseAssessment(kind,
		s.scopedOrGeneral(ctx, hash, scoreSuffix, scoreKey),
		s.scopedOrGeneral(ctx, hash, totalSuffix, totalKey),
		s.scopedOrGeneral(ctx, hash, updatedSuffix, updatedKey),
	)
}

// SimulationReport returns the stored report HTML and its instant, checking
// the scoped slot, the unscoped inbox, then the fallback channel.
func (s *Service) SimulationReport(ctx context.Context) (domain.ExportedReport, bool) {
	hash := s.ActiveUserHash(ctx)
	html := s.scopedOrGeneral(ctx, hash, domain.SuffixReportHTML, domain.SimulationReportHTMLKey)
	updatedAt := s.scopedOrGeneral(ctx, hash, domain.SuffixReportUpdatedAt, domain.SimulationReportUpdatedAtKey)
	if strings.TrimSpace(html) == "" {
		fields := decodeFallback(s.fallback)
		html = fields[domain.FallbackReportHTMLKey]
		if updatedAt == "" {
			updatedAt = fields[domain.FallbackReportUpdatedAtKey]
		}
	}
	if strings.TrimSpace(html) == "" {
		return domain.ExportedReport{}, false
	}
	return domain.ExportedReport{HTML: html, UpdatedAt: updatedAt}, true
}

// ExportSnapshot assembles the portable per-identity data export: raw
// assessment fields, the stored report, and the identity history.
func (s *Service) ExportSnapshot(ctx context.Context) domain.UserDataSnapshot {
	hash := s.ActiveUserHash(ctx)
	snap := domain.UserDataSnapshot{}

	pre := domain.ExportedAssessment{
		Score:     s.scopedOrGeneral(ctx, hash, domain.SuffixPretestScore, domain.PretestScoreKey),
		Total:     s.scopedOrGeneral(ctx, hash, domain.SuffixPretestTotal, domain.PretestTotalKey),
		UpdatedAt: s.scopedOrGeneral(ctx, hash, domain.SuffixPretestUpdatedAt, domain.PretestUpdatedAtKey),
	}
	if pre.Score != "" || pre.Total != "" {
		snap.Pre = &pre
	}
	post := domain.ExportedAssessment{
		Score:     s.scopedOrGeneral(ctx, hash, domain.SuffixPosttestScore, domain.PosttestScoreKey),
		Total:     s.scopedOrGeneral(ctx, hash, domain.SuffixPosttestTotal, domain.PosttestTotalKey),
		UpdatedAt: s.scopedOrGeneral(ctx, hash, domain.SuffixPosttestUpdatedAt, domain.PosttestUpdatedAtKey),
	}
	if post.Score != "" || post.Total != "" {
		snap.Post = &post
	}
	if report, ok := s.SimulationReport(ctx); ok {
		snap.Sim = &domain.ExportedReport{HTML: report.HTML, UpdatedAt: report.UpdatedAt}
	}
	state := s.LoadState(ctx)
	if len(state.UserHistory) > 0 {
		if raw, err := json.Marshal(state.UserHistory); err == nil {
			snap.History = raw
		}
	}
	return snap
}

// ImportSnapshot writes a previously exported snapshot into the active
// identity's scoped keyspace. Requires an active identity.
func (s *Service) ImportSnapshot(ctx context.Context, snap domain.UserDataSnapshot) error {
	return s.instrument(ctx, "import_snapshot", func(ctx context.Context) error {
		hash := s.ActiveUserHash(ctx)
		if hash == "" {
			return ErrNoActiveIdentity
		}
		if snap.Pre != nil {
			s.setScoped(ctx, hash, domain.SuffixPretestScore, snap.Pre.Score)
			s.setScoped(ctx, hash, domain.SuffixPretestTotal, snap.Pre.Total)
			s.setScoped(ctx, hash, domain.SuffixPretestUpdatedAt, snap.Pre.UpdatedAt)
		}
		if snap.Post != nil {
			s.setScoped(ctx, hash, domain.SuffixPosttestScore, snap.Post.Score)
			s.setScoped(ctx, hash, domain.SuffixPosttestTotal, snap.Post.Total)
			s.setScoped(ctx, hash, domain.SuffixPosttestUpdatedAt, snap.Post.UpdatedAt)
		}
		if snap.Sim != nil && strings.TrimSpace(snap.Sim.HTML) != "" {
			s.setScoped(ctx, hash, domain.SuffixReportHTML, snap.Sim.HTML)
			s.setScoped(ctx, hash, domain.SuffixReportUpdatedAt, snap.Sim.UpdatedAt)
		}
		if len(snap.History) > 0 {
			var hist []domain.HistoryEntry
			if err := json.Unmarshal(snap.History, &hist); err == nil && len(hist) > 0 {
				s.WithState(ctx, func(state *domain.ProgressState) {
					for _, entry := range hist {
						mergeHistoryEntry(state, entry)
					}
				})
			}
		}
		s.RefreshReportLinks(ctx)
		return nil
	})
}

func (s *Service) setScoped(ctx context.Context, userHash, suffix, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	s.store.Set(ctx, domain.ScopedKey(userHash, suffix), value)
}

// mergeHistoryEntry upserts an imported history entry by normalized email,
// keeping the earlier firstSeen.
func mergeHistoryEntry(state *domain.ProgressState, entry domain.HistoryEntry) {
	email := domain.NormalizeEmail(entry.Email)
	if email == "" {
		return
	}
	entry.Email = email
	for i := range state.UserHistory {
		if state.UserHistory[i].Email == email {
			if state.UserHistory[i].FirstSeen == "" || (entry.FirstSeen != "" && entry.FirstSeen < state.UserHistory[i].FirstSeen) {
				state.UserHistory[i].FirstSeen = entry.FirstSeen
			}
			if entry.LastSeen > state.UserHistory[i].LastSeen {
				state.UserHistory[i].LastSeen = entry.LastSeen
				state.UserHistory[i].Name = entry.Name
				state.UserHistory[i].Designation = entry.Designation
			}
			return
		}
	}
	state.UserHistory = append(state.UserHistory, entry)
}
