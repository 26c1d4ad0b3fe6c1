package core

import (
	"encoding/json"
	"strings"
	"sync"

	"vlabprogress/pkg/domain"
)

// maxFallbackReportBytes caps the report HTML mirrored into the fallback slot.
// The slot travels with every same-tab navigation, so oversized payloads are
// dropped rather than carried.
const maxFallbackReportBytes = 1_500_000

var _ domain.FallbackSlot = (*MemoryFallbackSlot)(nil)

// MemoryFallbackSlot is the in-process default fallback slot, the analog of
// window.name for same-tab navigation without durable storage.
type MemoryFallbackSlot struct {
	mu    sync.Mutex
	value string
}

// NewMemoryFallbackSlot returns an empty slot.
func NewMemoryFallbackSlot() *MemoryFallbackSlot { return &MemoryFallbackSlot{} }

// Load returns the slot contents.
func (s *MemoryFallbackSlot) Load() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Store replaces the slot contents.
func (s *MemoryFallbackSlot) Store(value string) {
	s.mu.Lock()
	s.value = value
	s.mu.Unlock()
}

// decodeFallback parses the slot's share of the string. Slots without the
// experiment prefix, or with unparseable JSON after it, read as empty.
func decodeFallback(slot domain.FallbackSlot) map[string]string {
	raw := slot.Load()
	if !strings.HasPrefix(raw, domain.FallbackSlotPrefix) {
		return map[string]string{}
	}
	payload := strings.TrimPrefix(raw, domain.FallbackSlotPrefix)
	fields := map[string]string{}
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return map[string]string{}
	}
	return fields
}

// mergeFallback read-merges updates into the slot, preserving fields it does
// not touch. Blank update values delete their field. Report HTML over the
// size cap is skipped.
func mergeFallback(slot domain.FallbackSlot, updates map[string]string) {
	fields := decodeFallback(slot)
	for key, value := range updates {
		if key == domain.FallbackReportHTMLKey && len(value) > maxFallbackReportBytes {
			continue
		}
		if value == "" {
			delete(fields, key)
			continue
		}
		fields[key] = value
	}
	writeFallback(slot, fields)
}

// clearFallbackFields removes the named fields from the slot.
func clearFallbackFields(slot domain.FallbackSlot, keys ...string) {
	fields := decodeFallback(slot)
	for _, key := range keys {
		delete(fields, key)
	}
	writeFallback(slot, fields)
}

func writeFallback(slot domain.FallbackSlot, fields map[string]string) {
	if len(fields) == 0 {
		// Leave the slot to other users once this experiment has nothing in it.
		if strings.HasPrefix(slot.Load(), domain.FallbackSlotPrefix) {
			slot.Store("")
		}
		return
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return
	}
	slot.Store(domain.FallbackSlotPrefix + string(raw))
}

// fallbackUser extracts a complete identity triple from the slot, reporting
// whether all three fields were present.
func fallbackUser(slot domain.FallbackSlot) (domain.User, bool) {
	fields := decodeFallback(slot)
	u := domain.User{
		Name:        fields[domain.FallbackUserNameKey],
		Email:       fields[domain.FallbackUserEmailKey],
		Designation: fields[domain.FallbackUserDesignationKey],
		SubmittedAt: fields[domain.FallbackUserSubmittedAtKey],
	}
	return u, u.Complete()
}
