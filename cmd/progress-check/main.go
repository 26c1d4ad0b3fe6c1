// Command progress-check opens the configured progress stores, prints the
// tracker summary as JSON, and verifies the stored state for consistency.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"vlabprogress/internal/blob"
	"vlabprogress/internal/core"
	"vlabprogress/pkg/domain"
)

var exitFunc = os.Exit

// checkReport is the printed output: the aggregate summary plus every
// consistency violation found in the stored state.
type checkReport struct {
	Summary         core.Summary `json:"summary"`
	ArchivedReports int          `json:"archivedReports,omitempty"`
	Violations      []string     `json:"violations,omitempty"`
}

func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("progress-check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var withArchive bool
	var pretty bool
	fs.BoolVar(&withArchive, "archive", false, "open the report archive and count archived reports")
	fs.BoolVar(&pretty, "pretty", false, "indent the JSON output")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	report, err := run(context.Background(), withArchive)
	if err != nil {
		if _, writeErr := fmt.Fprintf(stderr, "Progress check failed: %v\n", err); writeErr != nil {
			return 1
		}
		return 1
	}

	enc := json.NewEncoder(stdout)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(report); err != nil {
		return 1
	}
	if len(report.Violations) > 0 {
		if _, writeErr := fmt.Fprintf(stderr, "Progress check found %d violation(s).\n", len(report.Violations)); writeErr != nil {
			return 1
		}
		return 1
	}
	return 0
}

// run opens the configured stores, builds a tracker over them, and collects
// the summary and consistency findings.
func run(ctx context.Context, withArchive bool) (report checkReport, err error) {
	kv, err := core.OpenKVStore()
	if err != nil {
		return checkReport{}, fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if cerr := kv.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close store: %w", cerr)
		}
	}()

	var opts []core.Option
	if withArchive {
		archive, aerr := blob.Open(ctx)
		if aerr != nil {
			return checkReport{}, fmt.Errorf("open archive: %w", aerr)
		}
		opts = append(opts, core.WithArchive(archive))
	}

	svc := core.NewService(kv, opts...)
	defer svc.Close()

	report.Summary = svc.Summarize(ctx)
	report.Violations = collectViolations(ctx, svc)
	if withArchive {
		infos, lerr := svc.ArchivedReports(ctx, report.Summary.UserHash)
		if lerr != nil {
			return checkReport{}, fmt.Errorf("list archive: %w", lerr)
		}
		report.ArchivedReports = len(infos)
	}
	return report, nil
}

// collectViolations audits the stored state for internal consistency. Each
// finding is a human-readable sentence; an empty result means the store is
// coherent.
func collectViolations(ctx context.Context, svc *core.Service) []string {
	var problems []string
	store := svc.Store()

	if raw, ok := store.Get(ctx, domain.StateKey); ok && raw != "" && !json.Valid([]byte(raw)) {
		problems = append(problems, fmt.Sprintf("state document at %s is not valid JSON", domain.StateKey))
	}

	state := svc.LoadState(ctx)
	hash := svc.ActiveUserHash(ctx)
	switch {
	case hash != "" && (state.User == nil || !state.User.Complete()):
		problems = append(problems, "active identity pointer set but no complete user on record")
	case hash != "" && domain.ComputeUserHash(state.User.Email) != hash:
		problems = append(problems, fmt.Sprintf("identity pointer %s does not match the recorded user (%s)",
			hash, domain.ComputeUserHash(state.User.Email)))
	case hash == "" && state.User != nil && state.User.Complete():
		problems = append(problems, "complete user on record without an identity pointer")
	}

	if hash != "" && state.User != nil {
		inHistory := false
		for _, entry := range state.UserHistory {
			if domain.ComputeUserHash(entry.Email) == hash {
				inHistory = true
				break
			}
		}
		if !inHistory {
			problems = append(problems, "active user missing from the user history")
		}

		historyKey := domain.ScopedKey(hash, domain.SuffixReportRunHistory)
		if raw, ok := store.Get(ctx, historyKey); ok && raw != "" {
			var runs []core.ReportRun
			if err := json.Unmarshal([]byte(raw), &runs); err != nil {
				problems = append(problems, fmt.Sprintf("report run history at %s is not valid JSON", historyKey))
			}
		}
	}

	problems = append(problems, assessmentProblems(ctx, svc, hash)...)
	return problems
}

// assessmentProblems flags stored score fields that are present but would be
// rejected on read, such as non-numeric values or scores above the total.
func assessmentProblems(ctx context.Context, svc *core.Service, hash string) []string {
	type pair struct {
		kind            domain.AssessmentKind
		scoreKey, total string
	}
	pairs := []pair{
		{domain.AssessmentPretest, domain.PretestScoreKey, domain.PretestTotalKey},
		{domain.AssessmentPosttest, domain.PosttestScoreKey, domain.PosttestTotalKey},
	}
	if hash != "" {
		pairs = append(pairs,
			pair{domain.AssessmentPretest, domain.ScopedKey(hash, domain.SuffixPretestScore), domain.ScopedKey(hash, domain.SuffixPretestTotal)},
			pair{domain.AssessmentPosttest, domain.ScopedKey(hash, domain.SuffixPosttestScore), domain.ScopedKey(hash, domain.SuffixPosttestTotal)},
		)
	}

	store := svc.Store()
	var problems []string
	for _, p := range pairs {
		score, _ := store.Get(ctx, p.scoreKey)
		total, _ := store.Get(ctx, p.total)
		if score == "" && total == "" {
			continue
		}
		if _, ok := domain.ParseAssessment(p.kind, score, total, ""); !ok {
			problems = append(problems, fmt.Sprintf("stored %s fields at %s are unreadable (%q of %q)",
				p.kind, p.scoreKey, score, total))
		}
	}
	return problems
}
