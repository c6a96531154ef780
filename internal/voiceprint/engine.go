package voiceprint

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/voicegate/internal/mfcc"
	"github.com/lexiqai/voicegate/internal/observability"
	"github.com/lexiqai/voicegate/internal/resilience"
	"github.com/lexiqai/voicegate/internal/template"
)

// Engine owns the enrolled template and answers verification queries.
//
// Verify and IsEnrolled may run concurrently with each other. Enroll and
// Clear are serialized; the template pointer is swapped under a write lock so
// a verification never observes a half-replaced template.
type Engine struct {
	extractor *mfcc.Extractor
	threshold float64
	store     template.Store
	retry     *resilience.RetryConfig
	logger    zerolog.Logger
	metrics   *observability.Metrics

	writeMu sync.Mutex // serializes Enroll and Clear, held across persistence

	mu      sync.RWMutex
	current []float64 // nil when Unenrolled; never mutated once published
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger (default: discard).
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics enables Prometheus recording.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New builds an Engine and loads any persisted template from store (nil keeps
// the template in memory only). A missing
// record starts the engine Unenrolled. A corrupt or unreadable record is
// logged and also starts it Unenrolled, which leaves the gate open until the
// owner enrolls again.
func New(ctx context.Context, cfg Config, store template.Store, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	extractor, err := mfcc.New(cfg.Features)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		extractor: extractor,
		threshold: cfg.Threshold,
		store:     store,
		retry:     cfg.Retry,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		e.store = template.NewMemory(extractor.Dimension())
	}

	vec, err := e.loadTemplate(ctx)
	switch {
	case err == nil:
		e.current = vec
		e.logger.Info().Int("dimension", len(vec)).Msg("Voiceprint template loaded")
	case errors.Is(err, template.ErrNotFound):
		e.logger.Info().Msg("No voiceprint enrolled")
	default:
		e.logger.Warn().Err(err).Msg("Voiceprint template unusable, starting unenrolled")
		e.metrics.RecordError("load", "voiceprint")
	}
	e.metrics.SetEnrolled(e.current != nil)

	return e, nil
}

// loadTemplate reads the persisted template, checking its dimension.
func (e *Engine) loadTemplate(ctx context.Context) ([]float64, error) {
	vec, err := e.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if len(vec) != e.extractor.Dimension() {
		return nil, fmt.Errorf("%w: dimension %d, want %d", template.ErrCorrupt, len(vec), e.extractor.Dimension())
	}
	return vec, nil
}

// Threshold returns the similarity cut-off.
func (e *Engine) Threshold() float64 {
	return e.threshold
}

// Extractor returns the shared feature extractor.
func (e *Engine) Extractor() *mfcc.Extractor {
	return e.extractor
}

// State reports whether a template is enrolled.
func (e *Engine) State() State {
	if e.IsEnrolled() {
		return Enrolled
	}
	return Unenrolled
}

// IsEnrolled reports whether a template is present.
func (e *Engine) IsEnrolled() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.current != nil
}

// Template returns a copy of the enrolled template, or nil.
func (e *Engine) Template() []float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.current)
}

// Enroll replaces the template with the mean MFCC vector pooled across all
// frames of all utterances. Nothing changes if the pool is empty
// (ErrNoValidFrames) or the template cannot be persisted.
func (e *Engine) Enroll(ctx context.Context, utterances [][]int16) error {
	var pool [][]float64
	for _, u := range utterances {
		pool = append(pool, e.extractor.Extract(u)...)
	}
	if len(pool) == 0 {
		e.metrics.RecordEnrollment(false)
		return ErrNoValidFrames
	}
	mean := MeanVector(pool)

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	if err := e.persist(ctx, func(ctx context.Context) error {
		return e.store.Save(ctx, mean)
	}); err != nil {
		e.metrics.RecordEnrollment(false)
		e.metrics.RecordError("save", "voiceprint")
		return fmt.Errorf("persist voiceprint: %w", err)
	}

	e.mu.Lock()
	e.current = mean
	e.mu.Unlock()

	e.metrics.RecordEnrollment(true)
	e.metrics.SetEnrolled(true)
	e.logger.Info().
		Int("utterances", len(utterances)).
		Int("frames", len(pool)).
		Msg("Voiceprint enrolled")
	return nil
}

// Clear forgets the template and deletes its durable record. The in-memory
// state is always reset; a failed delete is logged.
func (e *Engine) Clear(ctx context.Context) {
	_ = e.Remove(ctx)
}

// Remove is Clear that also returns a failed delete. The engine is
// Unenrolled either way, but after a failure the old record may be loaded
// again on the next start.
func (e *Engine) Remove(ctx context.Context) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	e.mu.Lock()
	e.current = nil
	e.mu.Unlock()

	e.metrics.RecordClear()
	e.metrics.SetEnrolled(false)

	if err := e.persist(ctx, e.store.Delete); err != nil {
		e.logger.Error().Err(err).Msg("Failed to delete voiceprint record")
		e.metrics.RecordError("delete", "voiceprint")
		return fmt.Errorf("delete voiceprint: %w", err)
	}
	e.logger.Info().Msg("Voiceprint cleared")
	return nil
}

// Verify reports whether pcm was spoken by the enrolled speaker, along with
// the cosine similarity score.
func (e *Engine) Verify(pcm []int16) (passed bool, similarity float64) {
	r := e.Evaluate(pcm)
	return r.Passed, r.Similarity
}

// Evaluate is Verify with the frame count and enrollment state attached.
func (e *Engine) Evaluate(pcm []int16) Result {
	start := time.Now()

	e.mu.RLock()
	tmpl := e.current
	e.mu.RUnlock()

	if tmpl == nil {
		e.metrics.RecordVerification(observability.OutcomeOpen, 0, time.Since(start).Seconds())
		return Result{Passed: true}
	}

	frames := e.extractor.Extract(pcm)
	if len(frames) == 0 {
		e.metrics.RecordVerification(observability.OutcomeUnreadable, 0, time.Since(start).Seconds())
		return Result{Enrolled: true}
	}

	sim := CosineSimilarity(MeanVector(frames), tmpl)
	r := Result{
		Passed:     sim >= e.threshold,
		Similarity: sim,
		Frames:     len(frames),
		Enrolled:   true,
	}

	outcome := observability.OutcomeReject
	if r.Passed {
		outcome = observability.OutcomePass
	}
	e.metrics.RecordVerification(outcome, sim, time.Since(start).Seconds())
	e.logger.Debug().
		Bool("passed", r.Passed).
		Float64("similarity", sim).
		Int("frames", r.Frames).
		Msg("Voiceprint verified")
	return r
}

// persist runs a store operation with retries. Corrupt-record errors are not
// retried.
func (e *Engine) persist(ctx context.Context, op resilience.RetryableFunc) error {
	return resilience.Retry(ctx, op, e.retry, func(err error) bool {
		return !errors.Is(err, template.ErrCorrupt) && resilience.IsTransient(err)
	})
}
