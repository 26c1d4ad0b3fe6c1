package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"vlabprogress/internal/blob"
	"vlabprogress/pkg/domain"
)

// ReportRun is one entry of a learner's append-only report run history.
type ReportRun struct {
	UpdatedAt  string `json:"updatedAt"`
	SizeBytes  int    `json:"sizeBytes"`
	ArchiveKey string `json:"archiveKey,omitempty"`
}

// archiveReport writes the report HTML into the blob archive under
// reports/<identityHash>/<unix-ms>.html. Archiving is best effort; failures
// are recorded in metrics and an empty key is returned.
func (s *Service) archiveReport(ctx context.Context, userHash, html, updatedAt string) string {
	if s.archive == nil {
		return ""
	}
	owner := userHash
	if owner == "" {
		owner = "anonymous"
	}
	key := fmt.Sprintf("reports/%s/%d.html", owner, s.now().UnixMilli())
	start := time.Now()
	_, err := s.archive.Put(ctx, key, strings.NewReader(html), blob.PutOptions{
		ContentType: "text/html",
		Metadata:    map[string]string{"learner": owner, "updated_at": updatedAt},
	})
	s.metrics.Observe(ctx, "archive_report", err == nil, time.Since(start))
	if err != nil {
		return ""
	}
	return key
}

// appendReportRun appends one run to the identity's scoped run history key.
// A corrupt stored history reads as empty rather than blocking the append.
func (s *Service) appendReportRun(ctx context.Context, userHash string, run ReportRun) {
	key := domain.ScopedKey(userHash, domain.SuffixReportRunHistory)
	var runs []ReportRun
	if raw, ok := s.store.Get(ctx, key); ok && raw != "" {
		_ = json.Unmarshal([]byte(raw), &runs)
	}
	runs = append(runs, run)
	raw, err := json.Marshal(runs)
	if err != nil {
		return
	}
	s.store.Set(ctx, key, string(raw))
}

// ReportRuns returns the identity's recorded report runs, oldest first.
func (s *Service) ReportRuns(ctx context.Context, userHash string) []ReportRun {
	if userHash == "" {
		return nil
	}
	raw, ok := s.store.Get(ctx, domain.ScopedKey(userHash, domain.SuffixReportRunHistory))
	if !ok || raw == "" {
		return nil
	}
	var runs []ReportRun
	if err := json.Unmarshal([]byte(raw), &runs); err != nil {
		return nil
	}
	return runs
}

// ArchivedReports lists the archive entries stored for an identity.
func (s *Service) ArchivedReports(ctx context.Context, userHash string) ([]blob.Info, error) {
	if s.archive == nil {
		return nil, nil
	}
	owner := userHash
	if owner == "" {
		owner = "anonymous"
	}
	return s.archive.List(ctx, "reports/"+owner+"/")
}
