// Package template persists the enrolled voiceprint: a single vector of
// float64 cepstral means. Exactly one record exists per installation and its
// absence means nobody is enrolled. The record carries no schema version.
package template

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// Sentinel errors.
var (
	// ErrNotFound is returned by Load when no template has been saved.
	ErrNotFound = errors.New("template: not found")

	// ErrCorrupt is returned by Load when the record exists but cannot be
	// decoded into a vector of the expected dimension.
	ErrCorrupt = errors.New("template: corrupt record")
)

// Store is the durable home of the enrolled template.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Load returns the stored vector, ErrNotFound, or ErrCorrupt.
	Load(ctx context.Context) ([]float64, error)

	// Save replaces the stored vector.
	Save(ctx context.Context, vec []float64) error

	// Delete removes the record. No error if it does not exist.
	Delete(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}

// checkVector validates a decoded vector against the expected dimension.
func checkVector(vec []float64, dim int) error {
	if len(vec) != dim {
		return fmt.Errorf("%w: expected %d values, got %d", ErrCorrupt, dim, len(vec))
	}
	for i, v := range vec {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: value %d is not finite", ErrCorrupt, i)
		}
	}
	return nil
}

// Pinger is implemented by stores that can report backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}
