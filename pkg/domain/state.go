// Package domain defines the persisted progress aggregate, identity hashing,
// storage contracts, and cross-context message types used by vlabprogress.
package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// SchemaVersion is the current ProgressState document schema version.
const SchemaVersion = 1

// User identifies the active learner recorded on the aggregate document.
type User struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Designation string `json:"designation"`
	SubmittedAt string `json:"submittedAt,omitempty"`
}

// Complete reports whether all three identity fields are non-empty after trimming.
func (u User) Complete() bool {
	return strings.TrimSpace(u.Name) != "" &&
		strings.TrimSpace(u.Email) != "" &&
		strings.TrimSpace(u.Designation) != ""
}

// Trimmed returns a copy with whitespace stripped from every identity field.
func (u User) Trimmed() User {
	return User{
		Name:        strings.TrimSpace(u.Name),
		Email:       strings.TrimSpace(u.Email),
		Designation: strings.TrimSpace(u.Designation),
		SubmittedAt: u.SubmittedAt,
	}
}

// Flags carries declarative user decisions persisted on the document.
type Flags struct {
	// ReportDeclined records that the user dismissed the "fill the form"
	// prompt for the current identity state. A fresh submission clears it.
	ReportDeclined bool `json:"reportDeclined"`
}

// TimestampKey names a one-shot instant on the aggregate document.
type TimestampKey string

// Named instants recorded at most once per document (re-armed only by reset).
const (
	// TimestampSessionStart is stamped on the first page ever tracked.
	TimestampSessionStart TimestampKey = "sessionStart"
	// TimestampAimAfterIntro is stamped when the learner reaches the aim page.
	TimestampAimAfterIntro TimestampKey = "aimAfterIntro"
	// TimestampSimulationStart is stamped on first entry to the simulation page.
	TimestampSimulationStart TimestampKey = "simulationStart"
	// TimestampContributorsVisited is stamped on first entry to the contributors page.
	TimestampContributorsVisited TimestampKey = "contributorsVisited"
	// TimestampReportViewed is stamped when the progress report is first opened.
	TimestampReportViewed TimestampKey = "reportViewedAt"
)

// TimestampKeys lists every supported timestamp key.
var TimestampKeys = []TimestampKey{
	TimestampSessionStart,
	TimestampAimAfterIntro,
	TimestampSimulationStart,
	TimestampContributorsVisited,
	TimestampReportViewed,
}

// Timestamps holds the named instants as RFC 3339 strings; empty means unset.
type Timestamps struct {
	SessionStart        string `json:"sessionStart,omitempty"`
	AimAfterIntro       string `json:"aimAfterIntro,omitempty"`
	SimulationStart     string `json:"simulationStart,omitempty"`
	ContributorsVisited string `json:"contributorsVisited,omitempty"`
	ReportViewedAt      string `json:"reportViewedAt,omitempty"`
}

// Value returns the instant stored under key, or empty when unset or unknown.
func (t Timestamps) Value(key TimestampKey) string {
	switch key {
	case TimestampSessionStart:
		return t.SessionStart
	case TimestampAimAfterIntro:
		return t.AimAfterIntro
	case TimestampSimulationStart:
		return t.SimulationStart
	case TimestampContributorsVisited:
		return t.ContributorsVisited
	case TimestampReportViewed:
		return t.ReportViewedAt
	}
	return ""
}

// SetOnce stores value under key only when the slot is currently unset.
// It reports whether the slot transitioned from unset to set.
func (t *Timestamps) SetOnce(key TimestampKey, value string) bool {
	if t.Value(key) != "" {
		return false
	}
	switch key {
	case TimestampSessionStart:
		t.SessionStart = value
	case TimestampAimAfterIntro:
		t.AimAfterIntro = value
	case TimestampSimulationStart:
		t.SimulationStart = value
	case TimestampContributorsVisited:
		t.ContributorsVisited = value
	case TimestampReportViewed:
		t.ReportViewedAt = value
	default:
		return false
	}
	return true
}

// PageRecord accumulates visit and dwell-time accounting for one page.
type PageRecord struct {
	FirstEnter string `json:"firstEnter,omitempty"`
	LastExit   string `json:"lastExit,omitempty"`
	TimeMs     int64  `json:"timeMs"`
	Visits     int    `json:"visits"`
}

// Step is one entry of the append-only instrumentation log.
type Step struct {
	Name string         `json:"name"`
	TS   string         `json:"ts"`
	Meta map[string]any `json:"meta,omitempty"`
}

// HistoryEntry records one distinct normalized email ever seen on this profile.
type HistoryEntry struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	Designation string `json:"designation"`
	FirstSeen   string `json:"firstSeen"`
	LastSeen    string `json:"lastSeen"`
}

// ProgressState is the sole persisted aggregate describing one learner session.
type ProgressState struct {
	Version     int                    `json:"version"`
	User        *User                  `json:"user"`
	Flags       Flags                  `json:"flags"`
	Timestamps  Timestamps             `json:"timestamps"`
	Pages       map[string]*PageRecord `json:"pages"`
	Steps       []Step                 `json:"steps"`
	UserHistory []HistoryEntry         `json:"userHistory"`
}

// NewProgressState returns a default-initialized document at the current schema version.
func NewProgressState() ProgressState {
	return ProgressState{
		Version: SchemaVersion,
		Pages:   map[string]*PageRecord{},
		Steps:   []Step{},
	}
}

// Clone returns a deep copy of the document.
func (s ProgressState) Clone() ProgressState {
	cp := s
	if s.User != nil {
		u := *s.User
		cp.User = &u
	}
	cp.Pages = make(map[string]*PageRecord, len(s.Pages))
	for name, rec := range s.Pages {
		if rec == nil {
			continue
		}
		r := *rec
		cp.Pages[name] = &r
	}
	cp.Steps = make([]Step, len(s.Steps))
	for i, st := range s.Steps {
		cp.Steps[i] = st
		if st.Meta != nil {
			meta := make(map[string]any, len(st.Meta))
			for k, v := range st.Meta {
				meta[k] = v
			}
			cp.Steps[i].Meta = meta
		}
	}
	cp.UserHistory = append([]HistoryEntry(nil), s.UserHistory...)
	return cp
}

// Page returns the record for name, creating it when absent.
func (s *ProgressState) Page(name string) *PageRecord {
	if s.Pages == nil {
		s.Pages = map[string]*PageRecord{}
	}
	rec, ok := s.Pages[name]
	if !ok || rec == nil {
		rec = &PageRecord{}
		s.Pages[name] = rec
	}
	return rec
}

// RecordUserHistory upserts the history entry keyed by normalized email.
// It reports whether the email was seen for the first time. Blank emails are
// ignored and reported as not new.
func (s *ProgressState) RecordUserHistory(u User, now time.Time) bool {
	email := NormalizeEmail(u.Email)
	if email == "" {
		return false
	}
	ts := now.UTC().Format(time.RFC3339)
	for i := range s.UserHistory {
		if s.UserHistory[i].Email == email {
			s.UserHistory[i].Name = strings.TrimSpace(u.Name)
			s.UserHistory[i].Designation = strings.TrimSpace(u.Designation)
			s.UserHistory[i].LastSeen = ts
			return false
		}
	}
	s.UserHistory = append(s.UserHistory, HistoryEntry{
		Email:       email,
		Name:        strings.TrimSpace(u.Name),
		Designation: strings.TrimSpace(u.Designation),
		FirstSeen:   ts,
		LastSeen:    ts,
	})
	return true
}

// stateDoc shadows ProgressState with raw fields so a malformed field degrades
// to its default instead of rejecting the whole document.
type stateDoc struct {
	Version     json.RawMessage `json:"version"`
	User        json.RawMessage `json:"user"`
	Flags       json.RawMessage `json:"flags"`
	Timestamps  json.RawMessage `json:"timestamps"`
	Pages       json.RawMessage `json:"pages"`
	Steps       json.RawMessage `json:"steps"`
	UserHistory json.RawMessage `json:"userHistory"`
}

// DecodeState parses a stored document, structurally merging it onto defaults.
// Missing, malformed, or mistyped fields fall back to their defaults; the
// result is always usable. Absent or older versions are upgraded in place.
func DecodeState(raw []byte) ProgressState {
	state := NewProgressState()
	if len(raw) == 0 {
		return state
	}
	var doc stateDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return state
	}
	if len(doc.Version) > 0 {
		var v int
		if err := json.Unmarshal(doc.Version, &v); err == nil && v > 0 {
			state.Version = v
		}
	}
	if len(doc.User) > 0 {
		var u *User
		if err := json.Unmarshal(doc.User, &u); err == nil {
			state.User = u
		}
	}
	if len(doc.Flags) > 0 {
		var f Flags
		if err := json.Unmarshal(doc.Flags, &f); err == nil {
			state.Flags = f
		}
	}
	if len(doc.Timestamps) > 0 {
		var t Timestamps
		if err := json.Unmarshal(doc.Timestamps, &t); err == nil {
			state.Timestamps = t
		}
	}
	if len(doc.Pages) > 0 {
		var p map[string]*PageRecord
		if err := json.Unmarshal(doc.Pages, &p); err == nil && p != nil {
			state.Pages = p
		}
	}
	if len(doc.Steps) > 0 {
		var steps []Step
		if err := json.Unmarshal(doc.Steps, &steps); err == nil && steps != nil {
			state.Steps = steps
		}
	}
	if len(doc.UserHistory) > 0 {
		var hist []HistoryEntry
		if err := json.Unmarshal(doc.UserHistory, &hist); err == nil && hist != nil {
			state.UserHistory = hist
		}
	}
	if state.Version < SchemaVersion {
		state.Version = SchemaVersion
	}
	return state
}

// EncodeState serializes the document for storage.
func EncodeState(state ProgressState) ([]byte, error) {
	return json.Marshal(state)
}
