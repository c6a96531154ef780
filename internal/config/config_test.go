package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

var configKeys = []string{
	"PORT",
	"VOICEPRINT_BACKEND",
	"VOICEPRINT_FILE",
	"VOICEPRINT_BADGER_DIR",
	"VOICEPRINT_THRESHOLD",
	"RING_BUFFER_SECONDS",
	"VERIFY_WINDOW_SECONDS",
	"ENROLL_MIN_RMS",
	"PERSIST_RETRY_ATTEMPTS",
	"PERSIST_RETRY_BACKOFF",
	"LOG_LEVEL",
	"LOG_PRETTY",
	"METRICS_ENABLED",
}

// clearEnv unsets every key this package reads and restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		if value, ok := os.LookupEnv(key); ok {
			os.Unsetenv(key)
			t.Cleanup(func() { os.Setenv(key, value) })
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected default Port '8080', got '%s'", cfg.Port)
	}

	if cfg.VoiceprintBackend != BackendFile {
		t.Errorf("Expected default VoiceprintBackend 'file', got '%s'", cfg.VoiceprintBackend)
	}

	if cfg.VoiceprintFile != "voiceprint.json" {
		t.Errorf("Expected default VoiceprintFile 'voiceprint.json', got '%s'", cfg.VoiceprintFile)
	}

	if cfg.VoiceprintBadgerDir != "data/voiceprint" {
		t.Errorf("Expected default VoiceprintBadgerDir 'data/voiceprint', got '%s'", cfg.VoiceprintBadgerDir)
	}

	if cfg.VoiceprintThreshold != 0.82 {
		t.Errorf("Expected default VoiceprintThreshold 0.82, got %f", cfg.VoiceprintThreshold)
	}

	if cfg.RingBufferSeconds != 3.0 {
		t.Errorf("Expected default RingBufferSeconds 3.0, got %f", cfg.RingBufferSeconds)
	}

	if cfg.VerifyWindowSeconds != 3.0 {
		t.Errorf("Expected default VerifyWindowSeconds 3.0, got %f", cfg.VerifyWindowSeconds)
	}

	if cfg.EnrollMinRMS != 0.01 {
		t.Errorf("Expected default EnrollMinRMS 0.01, got %f", cfg.EnrollMinRMS)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	os.Setenv("VOICEPRINT_BACKEND", "badger")
	os.Setenv("VOICEPRINT_BADGER_DIR", "/var/lib/voicegate")
	os.Setenv("VOICEPRINT_THRESHOLD", "0.9")
	os.Setenv("RING_BUFFER_SECONDS", "5")
	os.Setenv("VERIFY_WINDOW_SECONDS", "2.5")
	defer os.Unsetenv("VOICEPRINT_BACKEND")
	defer os.Unsetenv("VOICEPRINT_BADGER_DIR")
	defer os.Unsetenv("VOICEPRINT_THRESHOLD")
	defer os.Unsetenv("RING_BUFFER_SECONDS")
	defer os.Unsetenv("VERIFY_WINDOW_SECONDS")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}

	if cfg.VoiceprintBackend != BackendBadger {
		t.Errorf("Expected VoiceprintBackend 'badger', got '%s'", cfg.VoiceprintBackend)
	}

	if cfg.VoiceprintBadgerDir != "/var/lib/voicegate" {
		t.Errorf("Expected VoiceprintBadgerDir '/var/lib/voicegate', got '%s'", cfg.VoiceprintBadgerDir)
	}

	if cfg.VoiceprintThreshold != 0.9 {
		t.Errorf("Expected VoiceprintThreshold 0.9, got %f", cfg.VoiceprintThreshold)
	}

	if cfg.VerifyWindowSeconds != 2.5 {
		t.Errorf("Expected VerifyWindowSeconds 2.5, got %f", cfg.VerifyWindowSeconds)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "unknown backend",
			env:     map[string]string{"VOICEPRINT_BACKEND": "redis"},
			wantErr: "VOICEPRINT_BACKEND",
		},
		{
			name:    "threshold too high",
			env:     map[string]string{"VOICEPRINT_THRESHOLD": "1.5"},
			wantErr: "VOICEPRINT_THRESHOLD",
		},
		{
			name:    "threshold too low",
			env:     map[string]string{"VOICEPRINT_THRESHOLD": "-2"},
			wantErr: "VOICEPRINT_THRESHOLD",
		},
		{
			name:    "zero ring buffer",
			env:     map[string]string{"RING_BUFFER_SECONDS": "0"},
			wantErr: "RING_BUFFER_SECONDS",
		},
		{
			name:    "negative verify window",
			env:     map[string]string{"VERIFY_WINDOW_SECONDS": "-1"},
			wantErr: "VERIFY_WINDOW_SECONDS",
		},
		{
			name:    "verify window exceeds ring",
			env:     map[string]string{"RING_BUFFER_SECONDS": "2", "VERIFY_WINDOW_SECONDS": "3"},
			wantErr: "exceeds",
		},
		{
			name:    "no retry attempts",
			env:     map[string]string{"PERSIST_RETRY_ATTEMPTS": "0"},
			wantErr: "PERSIST_RETRY_ATTEMPTS",
		},
		{
			name:    "not a number",
			env:     map[string]string{"VOICEPRINT_THRESHOLD": "high"},
			wantErr: "failed to load config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				os.Setenv(k, v)
				defer os.Unsetenv(k)
			}

			_, err := LoadFromEnv()
			if err == nil {
				t.Fatal("Expected error for invalid configuration")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfig_ResilienceDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.PersistRetryAttempts != 3 {
		t.Errorf("Expected default PersistRetryAttempts 3, got %d", cfg.PersistRetryAttempts)
	}

	if cfg.PersistBackoff() != 50*time.Millisecond {
		t.Errorf("Expected default PersistBackoff 50ms, got %v", cfg.PersistBackoff())
	}
}

func TestConfig_ObservabilityDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("Expected default LogLevel 'info', got '%s'", cfg.LogLevel)
	}

	if cfg.LogPretty {
		t.Error("Expected default LogPretty false, got true")
	}

	if !cfg.MetricsEnabled {
		t.Error("Expected default MetricsEnabled true, got false")
	}
}
