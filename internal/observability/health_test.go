package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestHealthCheckHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthCheckHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
	var status HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Status != "healthy" || status.Service != "voicegate" {
		t.Errorf("Unexpected status %+v", status)
	}
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]HealthCheckFunc
		wantCode   int
		wantStatus string
	}{
		{
			name:       "all healthy",
			checks:     map[string]HealthCheckFunc{"store": func(context.Context) error { return nil }},
			wantCode:   http.StatusOK,
			wantStatus: "ready",
		},
		{
			name:       "store down",
			checks:     map[string]HealthCheckFunc{"store": func(context.Context) error { return errors.New("closed") }},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "not_ready",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			ReadinessHandler(tt.checks)(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("Expected status %d, got %d", tt.wantCode, rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Expected JSON content type, got %q", ct)
			}
			var status HealthStatus
			if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if status.Status != tt.wantStatus {
				t.Errorf("Expected status %q, got %q", tt.wantStatus, status.Status)
			}
		})
	}
}

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn", false)

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("Expected info message to be filtered at warn level")
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, `"service":"voicegate"`) {
		t.Errorf("Expected warn message with service field, got %q", out)
	}
}

func TestParseLevel_Default(t *testing.T) {
	if ParseLevel("verbose") != ParseLevel("info") {
		t.Error("Expected unknown level to default to info")
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.RecordVerification(OutcomePass, 0.9, 0.01)
	m.RecordEnrollment(true)
	m.RecordClear()
	m.SetEnrolled(true)
	m.RecordError("persist", "engine")
	m.CaptureStarted()
	m.CaptureEnded()
	m.RecordAudioSamples(160)
}

func TestWithCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	logger, id := WithCorrelationID(base, "req-42")
	if id != "req-42" {
		t.Errorf("Expected id 'req-42', got '%s'", id)
	}
	logger.Info().Msg("hello")
	if !strings.Contains(buf.String(), `"correlation_id":"req-42"`) {
		t.Errorf("Expected correlation_id in log line, got %s", buf.String())
	}

	_, generated := WithCorrelationID(base, "")
	if generated == "" {
		t.Error("Expected a generated correlation id")
	}
}
