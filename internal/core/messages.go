package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"vlabprogress/pkg/domain"
)

// ErrOriginNotAllowed is returned for messages from unrecognized origins.
var ErrOriginNotAllowed = errors.New("message origin not allowed")

// originAllowed accepts same-context messages (empty origin), the "null"
// origin produced by local-file documents, and any configured origin.
func (s *Service) originAllowed(origin string) bool {
	if origin == "" || origin == "null" {
		return true
	}
	_, ok := s.origins[origin]
	return ok
}

// HandleMessage decodes and dispatches one inbound cross-context message.
// The dispatch is exhaustive over the closed message union.
func (s *Service) HandleMessage(ctx context.Context, origin string, raw []byte) error {
	return s.instrument(ctx, "handle_message", func(ctx context.Context) error {
		if !s.originAllowed(origin) {
			return fmt.Errorf("%w: %q", ErrOriginNotAllowed, origin)
		}
		msg, err := domain.DecodeMessage(raw)
		if err != nil {
			return err
		}
		switch m := msg.(type) {
		case domain.SimulationReportGenerated:
			return s.applyReportGenerated(ctx, m)
		case domain.UserInputSubmitted:
			s.LogStep(ctx, "user_input_submitted", map[string]any{"returnUrl": m.ReturnURL})
			s.ClearDecline(ctx)
			s.RefreshReportLinks(ctx)
			return nil
		case domain.UserInputCancelled:
			s.DeclineReport(ctx)
			s.LogStep(ctx, "user_input_cancel", nil)
			return nil
		default:
			return domain.ErrUnknownMessage{TypeTag: string(msg.Type())}
		}
	})
}

// applyReportGenerated stores a freshly generated report into the active
// identity's scoped slots (or the unscoped inbox when no identity is active),
// mirrors it into the fallback channel, archives it, and refreshes the gate.
func (s *Service) applyReportGenerated(ctx context.Context, m domain.SimulationReportGenerated) error {
	if strings.TrimSpace(m.HTML) == "" {
		return fmt.Errorf("report message carried empty html")
	}
	updatedAt := strings.TrimSpace(m.UpdatedAt)
	if updatedAt == "" {
		updatedAt = s.timestamp()
	}

	hash := s.ActiveUserHash(ctx)
	if hash != "" {
		s.store.Set(ctx, domain.ScopedKey(hash, domain.SuffixReportHTML), m.HTML)
		s.store.Set(ctx, domain.ScopedKey(hash, domain.SuffixReportUpdatedAt), updatedAt)
	} else {
		s.store.Set(ctx, domain.SimulationReportHTMLKey, m.HTML)
		s.store.Set(ctx, domain.SimulationReportUpdatedAtKey, updatedAt)
	}

	mergeFallback(s.fallback, map[string]string{
		domain.FallbackReportHTMLKey:      m.HTML,
		domain.FallbackReportUpdatedAtKey: updatedAt,
	})

	archiveKey := s.archiveReport(ctx, hash, m.HTML, updatedAt)
	if hash != "" {
		s.appendReportRun(ctx, hash, ReportRun{
			UpdatedAt:  updatedAt,
			SizeBytes:  len(m.HTML),
			ArchiveKey: archiveKey,
		})
	}

	s.LogStep(ctx, "simulation_report_generated", map[string]any{"sizeBytes": len(m.HTML)})
	s.RefreshReportLinks(ctx)
	return nil
}
