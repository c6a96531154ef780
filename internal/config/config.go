package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Template storage backends
const (
	BackendFile   = "file"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Config holds all configuration for the voiceprint gate service
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"8080"`

	// Template storage
	VoiceprintBackend   string `envconfig:"VOICEPRINT_BACKEND" default:"file"`                // file, badger, memory
	VoiceprintFile      string `envconfig:"VOICEPRINT_FILE" default:"voiceprint.json"`        // Record path for the file backend
	VoiceprintBadgerDir string `envconfig:"VOICEPRINT_BADGER_DIR" default:"data/voiceprint"` // Directory for the badger backend

	// Verification
	VoiceprintThreshold float64 `envconfig:"VOICEPRINT_THRESHOLD" default:"0.82"` // Cosine similarity required to pass

	// Audio processing configuration
	RingBufferSeconds   float64 `envconfig:"RING_BUFFER_SECONDS" default:"3.0"`   // Trailing microphone audio kept in memory
	VerifyWindowSeconds float64 `envconfig:"VERIFY_WINDOW_SECONDS" default:"3.0"` // Audio read from the ring when a trigger fires
	EnrollMinRMS        float64 `envconfig:"ENROLL_MIN_RMS" default:"0.01"`       // Enrollment takes quieter than this are rejected

	// Resilience configuration
	PersistRetryAttempts int `envconfig:"PERSIST_RETRY_ATTEMPTS" default:"3"` // Attempts per template save/delete
	PersistRetryBackoff  int `envconfig:"PERSIST_RETRY_BACKOFF" default:"50"` // Initial backoff in milliseconds

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks value ranges that envconfig cannot express
func (c *Config) Validate() error {
	switch c.VoiceprintBackend {
	case BackendFile:
		if c.VoiceprintFile == "" {
			return fmt.Errorf("VOICEPRINT_FILE is required for the file backend")
		}
	case BackendBadger:
		if c.VoiceprintBadgerDir == "" {
			return fmt.Errorf("VOICEPRINT_BADGER_DIR is required for the badger backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("VOICEPRINT_BACKEND must be one of file, badger, memory; got %q", c.VoiceprintBackend)
	}

	if c.VoiceprintThreshold < -1 || c.VoiceprintThreshold > 1 {
		return fmt.Errorf("VOICEPRINT_THRESHOLD must be in [-1, 1], got %v", c.VoiceprintThreshold)
	}
	if c.RingBufferSeconds <= 0 {
		return fmt.Errorf("RING_BUFFER_SECONDS must be positive, got %v", c.RingBufferSeconds)
	}
	if c.VerifyWindowSeconds <= 0 {
		return fmt.Errorf("VERIFY_WINDOW_SECONDS must be positive, got %v", c.VerifyWindowSeconds)
	}
	if c.VerifyWindowSeconds > c.RingBufferSeconds {
		return fmt.Errorf("VERIFY_WINDOW_SECONDS (%v) exceeds RING_BUFFER_SECONDS (%v)", c.VerifyWindowSeconds, c.RingBufferSeconds)
	}
	if c.EnrollMinRMS < 0 {
		return fmt.Errorf("ENROLL_MIN_RMS must not be negative, got %v", c.EnrollMinRMS)
	}
	if c.PersistRetryAttempts < 1 {
		return fmt.Errorf("PERSIST_RETRY_ATTEMPTS must be at least 1, got %d", c.PersistRetryAttempts)
	}
	if c.PersistRetryBackoff < 0 {
		return fmt.Errorf("PERSIST_RETRY_BACKOFF must not be negative, got %d", c.PersistRetryBackoff)
	}

	return nil
}

// PersistBackoff returns the initial persistence retry backoff
func (c *Config) PersistBackoff() time.Duration {
	return time.Duration(c.PersistRetryBackoff) * time.Millisecond
}
