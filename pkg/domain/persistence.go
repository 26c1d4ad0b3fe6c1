package domain

import "context"

// KVStore is the durable key-value contract implemented by storage drivers.
// Values are opaque strings; absent keys are reported via the boolean, not an
// error. Drivers are safe for concurrent use within one process; across
// processes the discipline is read-whole/write-whole with last-writer-wins.
type KVStore interface {
	// Get returns the value stored under key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
	// Keys returns all stored keys with the given prefix in ascending order.
	Keys(ctx context.Context, prefix string) ([]string, error)
	// Close releases driver resources.
	Close() error
}

// SessionStore holds short-lived markers scoped to one browsing session.
// It is process-local and never fails.
type SessionStore interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Remove(key string)
}

// FallbackSlot is the process-wide string slot used to carry identity and
// report data across same-tab navigations when durable storage is blocked
// (the window.name analog). Implementations never fail; a load after a failed
// store simply observes the previous contents.
type FallbackSlot interface {
	Load() string
	Store(value string)
}

// ChangeEvent describes one observed write to shared storage.
type ChangeEvent struct {
	Key     string
	Value   string
	Removed bool
}

// ChangeWatcher receives storage change notifications. Handlers run
// synchronously on the writer's goroutine and must be idempotent; they are
// invoked for every write, including redundant ones.
type ChangeWatcher func(ChangeEvent)

// AccessReason explains why progress-report access is granted or denied.
type AccessReason string

// Reason codes exposed to the UI layer for the blocking notice wording.
const (
	// AccessGranted means both preconditions hold.
	AccessGranted AccessReason = "granted"
	// AccessNoIdentity means the user form has not been completed.
	AccessNoIdentity AccessReason = "no_identity"
	// AccessNoReport means no simulation report has been generated yet.
	AccessNoReport AccessReason = "no_report"
	// AccessNoIdentityNoReport means both preconditions are unmet.
	AccessNoIdentityNoReport AccessReason = "no_identity_no_report"
)

// Denied reports whether the reason describes a denied access check.
func (r AccessReason) Denied() bool { return r != AccessGranted }
