// Package core implements the progress tracker service: identity and
// migration management, the persisted progress document, the report access
// gate, page lifecycle accounting, and the cross-context message dispatcher.
package core

import (
	"context"
	"sync"
	"time"

	"vlabprogress/internal/blob"
	"vlabprogress/pkg/domain"
)

// Service is the tracker engine. One instance is constructed per process and
// passed by reference to consumers; it holds no package-level state so tests
// can run isolated instances side by side.
type Service struct {
	store    *Accessor
	session  domain.SessionStore
	fallback domain.FallbackSlot
	archive  blob.Store
	metrics  MetricsRecorder
	tracer   Tracer
	now      func() time.Time
	origins  map[string]struct{}

	mu      sync.Mutex
	links   map[string]LinkState
	unwatch func()
}

// Option configures a Service.
type Option func(*Service)

// WithSessionStore replaces the default in-process session marker store.
func WithSessionStore(ss domain.SessionStore) Option {
	return func(s *Service) { s.session = ss }
}

// WithFallbackSlot replaces the default in-process fallback slot.
func WithFallbackSlot(slot domain.FallbackSlot) Option {
	return func(s *Service) { s.fallback = slot }
}

// WithArchive enables archiving of generated simulation reports.
func WithArchive(store blob.Store) Option {
	return func(s *Service) { s.archive = store }
}

// WithMetricsRecorder sets the metrics sink.
func WithMetricsRecorder(rec MetricsRecorder) Option {
	return func(s *Service) { s.metrics = rec }
}

// WithTracer sets the tracer.
func WithTracer(tr Tracer) Option {
	return func(s *Service) { s.tracer = tr }
}

// WithNow injects the clock, for deterministic tests.
func WithNow(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithAllowedOrigins adds message origins accepted beyond the same-context
// and "null" (local file) defaults.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Service) {
		for _, o := range origins {
			s.origins[o] = struct{}{}
		}
	}
}

// NewService constructs a tracker over the given durable store. The service
// reacts to every observed storage change by recomputing the report access
// gate, the analog of cross-tab storage event handling.
func NewService(kv domain.KVStore, opts ...Option) *Service {
	s := &Service{
		store:    NewAccessor(kv),
		session:  NewSessionStore(),
		fallback: NewMemoryFallbackSlot(),
		metrics:  NopMetricsRecorder{},
		tracer:   NopTracer{},
		now:      time.Now,
		origins:  make(map[string]struct{}),
		links:    make(map[string]LinkState),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.unwatch = s.store.Watch(func(domain.ChangeEvent) {
		s.RefreshReportLinks(context.Background())
	})
	return s
}

// Store exposes the never-fails storage accessor.
func (s *Service) Store() *Accessor { return s.store }

// Close detaches the service from its storage watcher. The durable store
// itself stays open; its lifetime belongs to the caller.
func (s *Service) Close() {
	if s.unwatch != nil {
		s.unwatch()
		s.unwatch = nil
	}
}

// timestamp renders the current instant in the document's RFC 3339 form.
func (s *Service) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// instrument wraps an operation with tracing and metrics.
func (s *Service) instrument(ctx context.Context, operation string, fn func(context.Context) error) error {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, operation)
	err := fn(ctx)
	span.End(err)
	s.metrics.Observe(ctx, operation, err == nil, time.Since(start))
	return err
}

// Summary is the aggregate view printed by the progress-check command.
type Summary struct {
	HasUser       bool                `json:"hasUser"`
	UserHash      string              `json:"userHash,omitempty"`
	User          *domain.User        `json:"user,omitempty"`
	CanAccess     bool                `json:"canAccessProgressReport"`
	AccessReason  domain.AccessReason `json:"accessReason"`
	Pages         map[string]int64    `json:"pageTimeMs"`
	StepCount     int                 `json:"stepCount"`
	HistoryCount  int                 `json:"historyCount"`
	SchemaVersion int                 `json:"schemaVersion"`
}

// Summarize reports the current identity, predicates, and page accounting.
func (s *Service) Summarize(ctx context.Context) Summary {
	state := s.LoadState(ctx)
	canAccess, reason := s.CanAccessProgressReport(ctx)
	pages := make(map[string]int64, len(state.Pages))
	for name, rec := range state.Pages {
		if rec != nil {
			pages[name] = rec.TimeMs
		}
	}
	return Summary{
		HasUser:       state.User != nil && state.User.Complete(),
		UserHash:      s.ActiveUserHash(ctx),
		User:          state.User,
		CanAccess:     canAccess,
		AccessReason:  reason,
		Pages:         pages,
		StepCount:     len(state.Steps),
		HistoryCount:  len(state.UserHistory),
		SchemaVersion: state.Version,
	}
}
