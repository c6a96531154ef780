// Package voiceprint gates a trigger behind a locally computed voiceprint.
//
// An Engine is either Unenrolled or Enrolled. Enroll pools the MFCC frames of
// every supplied utterance into one mean vector and persists it, replacing any
// earlier template. Verify reduces a query to its mean MFCC vector and compares
// it with the template by cosine similarity:
//
//   - Unenrolled: every query passes with similarity 0 (open until the owner
//     opts in).
//   - Enrolled, query shorter than one frame: fails with similarity 0.
//   - Enrolled: passes when similarity >= Threshold.
//
// Clear returns the engine to Unenrolled and deletes the durable record.
package voiceprint

import (
	"errors"
	"fmt"

	"github.com/lexiqai/voicegate/internal/audio"
	"github.com/lexiqai/voicegate/internal/mfcc"
	"github.com/lexiqai/voicegate/internal/resilience"
)

// ErrNoValidFrames is returned by Enroll when the utterances together are too
// short to produce a single frame.
var ErrNoValidFrames = errors.New("voiceprint: no valid frames in enrollment audio")

// DefaultThreshold is the empirically chosen cosine similarity cut-off. It has
// no documented false-accept/false-reject analysis; tune it per deployment.
const DefaultThreshold = 0.82

// State is the enrollment state of an Engine.
type State int

const (
	// Unenrolled means no template exists and verification is open.
	Unenrolled State = iota

	// Enrolled means a template exists and verification is gated.
	Enrolled
)

func (s State) String() string {
	switch s {
	case Unenrolled:
		return "unenrolled"
	case Enrolled:
		return "enrolled"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Config controls feature extraction and matching.
type Config struct {
	Features  mfcc.Config
	Threshold float64

	// Retry governs template persistence. Nil uses resilience defaults.
	Retry *resilience.RetryConfig
}

// DefaultConfig returns the standard 16 kHz configuration.
func DefaultConfig() Config {
	return Config{
		Features:  mfcc.DefaultConfig(),
		Threshold: DefaultThreshold,
	}
}

// Validate checks the feature configuration and the threshold range.
func (c Config) Validate() error {
	if err := c.Features.Validate(); err != nil {
		return err
	}
	if c.Threshold < -1 || c.Threshold > 1 {
		return fmt.Errorf("voiceprint: threshold %v outside [-1, 1]", c.Threshold)
	}
	return nil
}

// Result is the outcome of a verification.
type Result struct {
	Passed     bool
	Similarity float64
	Frames     int  // MFCC frames extracted from the query
	Enrolled   bool // whether a template was consulted
}

// ComputeRMS returns the root mean square of the normalized samples. The
// enrollment flow uses it to reject silent takes before calling Enroll.
func ComputeRMS(pcm []int16) float64 {
	return audio.ComputeRMS(pcm)
}
