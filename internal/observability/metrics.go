package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Verification outcomes
const (
	OutcomeOpen       = "open"       // nobody enrolled, gate is open
	OutcomePass       = "pass"       // similarity met the threshold
	OutcomeReject     = "reject"     // similarity below the threshold
	OutcomeUnreadable = "unreadable" // enrolled but the query produced no frames
)

var (
	verifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicegate_verifications_total",
		Help: "Total number of voiceprint verifications by outcome",
	}, []string{"outcome"})

	similarity = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voicegate_similarity",
		Help:    "Cosine similarity of scored verifications",
		Buckets: []float64{-0.5, 0, 0.25, 0.5, 0.6, 0.7, 0.75, 0.8, 0.82, 0.85, 0.9, 0.95, 1.0},
	})

	verifyLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voicegate_verify_latency_seconds",
		Help:    "Verification latency in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
	})

	enrollments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicegate_enrollments_total",
		Help: "Total number of enrollment attempts by status",
	}, []string{"status"})

	clears = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicegate_clears_total",
		Help: "Total number of voiceprint resets",
	})

	enrolled = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voicegate_enrolled",
		Help: "1 when a voiceprint is enrolled, 0 otherwise",
	})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicegate_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	captureSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voicegate_capture_sessions",
		Help: "Number of connected microphone streams",
	})

	audioSamples = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicegate_audio_samples_total",
		Help: "Total microphone samples written to the rolling buffer",
	})
)

// Metrics records engine and host metrics. The zero value is ready to use;
// a nil *Metrics records nothing.
type Metrics struct{}

// NewMetrics returns the process-wide metrics recorder
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordVerification records a verification outcome and, when scored, its similarity
func (m *Metrics) RecordVerification(outcome string, score float64, seconds float64) {
	if m == nil {
		return
	}
	verifications.WithLabelValues(outcome).Inc()
	verifyLatency.Observe(seconds)
	if outcome == OutcomePass || outcome == OutcomeReject {
		similarity.Observe(score)
	}
}

// RecordEnrollment records an enrollment attempt
func (m *Metrics) RecordEnrollment(success bool) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	enrollments.WithLabelValues(status).Inc()
}

// RecordClear records a voiceprint reset
func (m *Metrics) RecordClear() {
	if m == nil {
		return
	}
	clears.Inc()
}

// SetEnrolled updates the enrolled gauge
func (m *Metrics) SetEnrolled(isEnrolled bool) {
	if m == nil {
		return
	}
	if isEnrolled {
		enrolled.Set(1)
	} else {
		enrolled.Set(0)
	}
}

// RecordError records an error
func (m *Metrics) RecordError(errorType, component string) {
	if m == nil {
		return
	}
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// CaptureStarted records a new microphone stream
func (m *Metrics) CaptureStarted() {
	if m == nil {
		return
	}
	captureSessions.Inc()
}

// CaptureEnded records a closed microphone stream
func (m *Metrics) CaptureEnded() {
	if m == nil {
		return
	}
	captureSessions.Dec()
}

// RecordAudioSamples records samples ingested from a microphone stream
func (m *Metrics) RecordAudioSamples(n int) {
	if m == nil {
		return
	}
	audioSamples.Add(float64(n))
}
