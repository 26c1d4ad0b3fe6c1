package domain

import (
	"testing"
	"time"
)

func TestDecodeStateDefaultsOnGarbage(t *testing.T) {
	for _, raw := range []string{"", "not json", "42", `"string"`, "null"} {
		state := DecodeState([]byte(raw))
		if state.Version != SchemaVersion {
			t.Fatalf("raw %q: expected version %d, got %d", raw, SchemaVersion, state.Version)
		}
		if state.User != nil {
			t.Fatalf("raw %q: expected nil user", raw)
		}
		if state.Pages == nil || state.Steps == nil {
			t.Fatalf("raw %q: expected initialized containers", raw)
		}
	}
}

func TestDecodeStateCoercesMistypedFields(t *testing.T) {
	raw := []byte(`{
		"version": 1,
		"user": {"name":"Asha","email":"a@b.com","designation":"Student"},
		"steps": "not-an-array",
		"userHistory": {"bogus": true},
		"pages": {"index.html": {"timeMs": 1200, "visits": 3}}
	}`)
	state := DecodeState(raw)
	if state.User == nil || state.User.Name != "Asha" {
		t.Fatalf("expected user to survive, got %#v", state.User)
	}
	if len(state.Steps) != 0 {
		t.Fatalf("expected mistyped steps coerced to empty, got %#v", state.Steps)
	}
	if len(state.UserHistory) != 0 {
		t.Fatalf("expected mistyped history coerced to empty, got %#v", state.UserHistory)
	}
	rec, ok := state.Pages["index.html"]
	if !ok || rec.Visits != 3 || rec.TimeMs != 1200 {
		t.Fatalf("expected page record preserved, got %#v", rec)
	}
}

func TestDecodeStateUpgradesMissingVersion(t *testing.T) {
	state := DecodeState([]byte(`{"steps":[]}`))
	if state.Version != SchemaVersion {
		t.Fatalf("expected version upgraded to %d, got %d", SchemaVersion, state.Version)
	}
}

func TestDecodeStateTolerantOfNullTimestamps(t *testing.T) {
	raw := []byte(`{"timestamps":{"sessionStart":null,"simulationStart":"2024-01-01T00:00:00Z"}}`)
	state := DecodeState(raw)
	if state.Timestamps.SessionStart != "" {
		t.Fatalf("expected null timestamp to read as unset, got %q", state.Timestamps.SessionStart)
	}
	if state.Timestamps.SimulationStart != "2024-01-01T00:00:00Z" {
		t.Fatalf("unexpected simulation start %q", state.Timestamps.SimulationStart)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	state := NewProgressState()
	state.User = &User{Name: "Asha", Email: "a@b.com", Designation: "Student", SubmittedAt: "2024-01-01T00:00:00Z"}
	state.Timestamps.SetOnce(TimestampSessionStart, "2024-01-01T00:00:00Z")
	state.Page("aim.html").Visits = 2
	state.Steps = append(state.Steps, Step{Name: "wiring_done", TS: "2024-01-01T00:01:00Z", Meta: map[string]any{"wires": float64(9)}})

	raw, err := EncodeState(state)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got := DecodeState(raw)
	if got.User == nil || *got.User != *state.User {
		t.Fatalf("user mismatch: %#v", got.User)
	}
	if got.Timestamps.SessionStart != state.Timestamps.SessionStart {
		t.Fatalf("timestamp mismatch: %q", got.Timestamps.SessionStart)
	}
	if got.Page("aim.html").Visits != 2 {
		t.Fatalf("page mismatch: %#v", got.Pages)
	}
	if len(got.Steps) != 1 || got.Steps[0].Name != "wiring_done" {
		t.Fatalf("steps mismatch: %#v", got.Steps)
	}
}

func TestTimestampsSetOnce(t *testing.T) {
	var ts Timestamps
	if !ts.SetOnce(TimestampSimulationStart, "first") {
		t.Fatal("expected first set to win")
	}
	if ts.SetOnce(TimestampSimulationStart, "second") {
		t.Fatal("expected second set to be a no-op")
	}
	if got := ts.Value(TimestampSimulationStart); got != "first" {
		t.Fatalf("expected first value retained, got %q", got)
	}
	if ts.SetOnce(TimestampKey("bogus"), "x") {
		t.Fatal("unknown key must not report a transition")
	}
}

func TestRecordUserHistoryUniqueness(t *testing.T) {
	state := NewProgressState()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	if !state.RecordUserHistory(User{Name: "Asha", Email: " A@B.com ", Designation: "Student"}, now) {
		t.Fatal("expected first sighting to be new")
	}
	later := now.Add(time.Hour)
	if state.RecordUserHistory(User{Name: "Asha K", Email: "a@b.com", Designation: "Intern"}, later) {
		t.Fatal("expected same normalized email to not be new")
	}
	if len(state.UserHistory) != 1 {
		t.Fatalf("expected exactly one entry, got %d", len(state.UserHistory))
	}
	entry := state.UserHistory[0]
	if entry.Name != "Asha K" || entry.Designation != "Intern" {
		t.Fatalf("expected latest fields, got %#v", entry)
	}
	if entry.FirstSeen != now.Format(time.RFC3339) {
		t.Fatalf("firstSeen must not change, got %q", entry.FirstSeen)
	}
	if entry.LastSeen != later.Format(time.RFC3339) {
		t.Fatalf("lastSeen must advance, got %q", entry.LastSeen)
	}
}

func TestRecordUserHistoryIgnoresBlankEmail(t *testing.T) {
	state := NewProgressState()
	if state.RecordUserHistory(User{Name: "Nobody"}, time.Now()) {
		t.Fatal("blank email must not create history")
	}
	if len(state.UserHistory) != 0 {
		t.Fatalf("expected no entries, got %d", len(state.UserHistory))
	}
}

func TestCloneIsDeep(t *testing.T) {
	state := NewProgressState()
	state.User = &User{Name: "Asha", Email: "a@b.com", Designation: "Student"}
	state.Page("index.html").Visits = 1
	state.Steps = append(state.Steps, Step{Name: "s", Meta: map[string]any{"k": "v"}})

	cp := state.Clone()
	cp.User.Name = "Changed"
	cp.Page("index.html").Visits = 99
	cp.Steps[0].Meta["k"] = "changed"

	if state.User.Name != "Asha" {
		t.Fatal("clone shares user")
	}
	if state.Page("index.html").Visits != 1 {
		t.Fatal("clone shares page records")
	}
	if state.Steps[0].Meta["k"] != "v" {
		t.Fatal("clone shares step meta")
	}
}

func TestUserComplete(t *testing.T) {
	cases := []struct {
		user User
		want bool
	}{
		{User{Name: "A", Email: "a@b.com", Designation: "Student"}, true},
		{User{Name: "A", Email: "a@b.com"}, false},
		{User{Name: "  ", Email: "a@b.com", Designation: "Student"}, false},
		{User{}, false},
	}
	for i, tc := range cases {
		if got := tc.user.Complete(); got != tc.want {
			t.Fatalf("case %d: expected %v, got %v", i, tc.want, got)
		}
	}
}
