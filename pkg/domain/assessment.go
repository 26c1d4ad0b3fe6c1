package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// AssessmentKind names one of the two assessments taken around the experiment.
type AssessmentKind string

const (
	// AssessmentPretest is taken before the simulation.
	AssessmentPretest AssessmentKind = "pretest"
	// AssessmentPosttest is taken after the simulation.
	AssessmentPosttest AssessmentKind = "posttest"
)

// AssessmentSummary is a validated score readback for one assessment.
type AssessmentSummary struct {
	Kind      AssessmentKind `json:"kind"`
	Score     int            `json:"score"`
	Total     int            `json:"total"`
	UpdatedAt string         `json:"updatedAt,omitempty"`
}

// ParseAssessment validates raw stored score fields. Collaborator pages write
// these as strings; anything non-numeric, out of range, or with a
// non-positive total is treated as "not available" rather than trusted.
func ParseAssessment(kind AssessmentKind, scoreRaw, totalRaw, updatedAt string) (AssessmentSummary, bool) {
	score, err := strconv.Atoi(strings.TrimSpace(scoreRaw))
	if err != nil {
		return AssessmentSummary{}, false
	}
	total, err := strconv.Atoi(strings.TrimSpace(totalRaw))
	if err != nil {
		return AssessmentSummary{}, false
	}
	if total <= 0 || score < 0 || score > total {
		return AssessmentSummary{}, false
	}
	return AssessmentSummary{Kind: kind, Score: score, Total: total, UpdatedAt: strings.TrimSpace(updatedAt)}, true
}

// ExportedAssessment carries raw stored assessment fields in a data export.
type ExportedAssessment struct {
	Score     string `json:"score"`
	Total     string `json:"total"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// ExportedReport carries the stored simulation report in a data export.
type ExportedReport struct {
	HTML      string `json:"html"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// UserDataSnapshot is the portable per-identity export produced by the
// progress report page's download feature and accepted by its import feature.
type UserDataSnapshot struct {
	Pre     *ExportedAssessment `json:"pre,omitempty"`
	Post    *ExportedAssessment `json:"post,omitempty"`
	Sim     *ExportedReport     `json:"sim,omitempty"`
	History json.RawMessage     `json:"history,omitempty"`
}
