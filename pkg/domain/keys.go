package domain

import "strings"

// Storage keys shared with the collaborating assessment and simulation pages.
// These strings are an interop contract and must be preserved bit-for-bit.
const (
	// StateKey holds the ProgressState aggregate as a single JSON blob.
	StateKey = "vlab_exp2_progress_v1"
	// ActiveUserHashKey holds the bare identity hash of the active user.
	ActiveUserHashKey = "vlab_exp2_active_user_hash"

	// keyPrefix namespaces every key written by this experiment.
	keyPrefix = "vlab_exp2_"
	// scopedKeyPrefix prefixes per-identity scoped keys; the identity hash and
	// a field suffix complete the key.
	scopedKeyPrefix = "vlab_exp2_user_"

	// SessionCurrentPageKey is the session-scoped marker naming the open page.
	SessionCurrentPageKey = "vlab_exp2_current_page"
	// SessionPageEnterKey is the session-scoped page entry instant (epoch ms).
	SessionPageEnterKey = "vlab_exp2_page_enter_ms"
	// SessionPromptedOnceKey marks that the user-form prompt was already shown.
	SessionPromptedOnceKey = "vlab_exp2_prompted_once"

	// FallbackSlotPrefix scopes the fallback channel's share of the
	// process-wide string slot so unrelated users of the slot are not clobbered.
	FallbackSlotPrefix = "VLAB_EXP2::"
)

// Unscoped ("general") keys written by pages that do not know the active
// identity at write time. They form a transient inbox drained into scoped
// keys whenever an identity becomes active.
const (
	PretestScoreKey              = "vlab_exp2_pretest_score"
	PretestTotalKey              = "vlab_exp2_pretest_total"
	PretestUpdatedAtKey          = "vlab_exp2_pretest_updated_at"
	PosttestScoreKey             = "vlab_exp2_posttest_score"
	PosttestTotalKey             = "vlab_exp2_posttest_total"
	PosttestUpdatedAtKey         = "vlab_exp2_posttest_updated_at"
	SimulationReportHTMLKey      = "vlab_exp2_simulation_report_html"
	SimulationReportUpdatedAtKey = "vlab_exp2_simulation_report_updated_at"
)

// GeneralProgressKeys lists every unscoped general key in migration order.
var GeneralProgressKeys = []string{
	PretestScoreKey,
	PretestTotalKey,
	PretestUpdatedAtKey,
	PosttestScoreKey,
	PosttestTotalKey,
	PosttestUpdatedAtKey,
	SimulationReportHTMLKey,
	SimulationReportUpdatedAtKey,
}

// Logical field suffixes of the per-identity scoped keyspace.
const (
	SuffixPretestScore      = "pretest_score"
	SuffixPretestTotal      = "pretest_total"
	SuffixPretestUpdatedAt  = "pretest_updated_at"
	SuffixPosttestScore     = "posttest_score"
	SuffixPosttestTotal     = "posttest_total"
	SuffixPosttestUpdatedAt = "posttest_updated_at"
	SuffixReportHTML        = "simulation_report_html"
	SuffixReportUpdatedAt   = "simulation_report_updated_at"
	SuffixReportRunHistory  = "history"
)

// ScopedKey builds the per-identity key for a logical field suffix.
func ScopedKey(userHash, suffix string) string {
	return scopedKeyPrefix + userHash + "_" + suffix
}

// GeneralKeySuffix strips the experiment prefix from an unscoped general key,
// yielding the logical field suffix used for its scoped counterpart.
func GeneralKeySuffix(key string) string {
	return strings.TrimPrefix(key, keyPrefix)
}

// ScopedGeneralKeys returns the scoped counterparts of every general key for
// the given identity hash, plus the per-identity report run history key.
func ScopedGeneralKeys(userHash string) []string {
	out := make([]string, 0, len(GeneralProgressKeys)+1)
	for _, key := range GeneralProgressKeys {
		out = append(out, ScopedKey(userHash, GeneralKeySuffix(key)))
	}
	out = append(out, ScopedKey(userHash, SuffixReportRunHistory))
	return out
}

// Fallback channel field names; identical to the unscoped key vocabulary so
// the channel can be merged into loaded state field-for-field.
const (
	FallbackUserNameKey        = "vlab_exp2_user_name"
	FallbackUserEmailKey       = "vlab_exp2_user_email"
	FallbackUserDesignationKey = "vlab_exp2_user_designation"
	FallbackUserSubmittedAtKey = "vlab_exp2_user_submitted_at"
	FallbackReportHTMLKey      = "vlab_exp2_simulation_report_html"
	FallbackReportUpdatedAtKey = "vlab_exp2_simulation_report_updated_at"
)
