// Package mfcc computes Mel-frequency cepstral coefficients from 16-bit PCM.
//
// The pipeline per utterance is:
//
//  1. normalize int16 samples to [-1, 1)
//  2. first-order pre-emphasis over the whole signal
//  3. overlapping frames (a short tail is dropped, never padded)
//  4. Hamming window
//  5. zero-padded radix-2 FFT power spectrum, bins 0..N/2
//  6. triangular Mel filterbank, floored natural log
//  7. unnormalized DCT-II, first NumCoefficients outputs including C0
//
// Default parameters:
//
//	SampleRate:      16000
//	FrameLength:     400 (25 ms)
//	FrameHop:        160 (10 ms)
//	PreEmphasis:     0.97
//	NumFilters:      26
//	NumCoefficients: 13
//	FFTSize:         512
//	EnergyFloor:     1e-10
//
// Stored voiceprints depend on these exact formulas. C0 is kept and the DCT
// is not orthonormalized; changing either invalidates enrolled templates.
package mfcc

import (
	"errors"
	"fmt"
)

// Config is the immutable feature extraction configuration.
type Config struct {
	SampleRate      int     // audio sample rate in Hz
	FrameLength     int     // samples per frame
	FrameHop        int     // samples between frame starts
	PreEmphasis     float64 // first-order pre-emphasis coefficient
	NumFilters      int     // triangular Mel filters
	NumCoefficients int     // cepstral coefficients kept per frame
	FFTSize         int     // zero-padded transform length; 0 derives the next power of two
	EnergyFloor     float64 // floor applied to filter energies before the log
}

// DefaultConfig returns the configuration for 16 kHz mono speech.
func DefaultConfig() Config {
	return Config{
		SampleRate:      16000,
		FrameLength:     400,
		FrameHop:        160,
		PreEmphasis:     0.97,
		NumFilters:      26,
		NumCoefficients: 13,
		FFTSize:         512,
		EnergyFloor:     1e-10,
	}
}

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("mfcc: invalid config")

// Validate checks that the configuration describes a usable pipeline.
func (c Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("%w: sample rate must be positive", ErrInvalidConfig)
	case c.FrameLength <= 1:
		return fmt.Errorf("%w: frame length must be greater than 1", ErrInvalidConfig)
	case c.FrameHop <= 0 || c.FrameHop > c.FrameLength:
		return fmt.Errorf("%w: hop must be in [1, frame length]", ErrInvalidConfig)
	case c.NumFilters <= 0:
		return fmt.Errorf("%w: filter count must be positive", ErrInvalidConfig)
	case c.NumCoefficients <= 0 || c.NumCoefficients > c.NumFilters:
		return fmt.Errorf("%w: coefficient count must be in [1, filter count]", ErrInvalidConfig)
	case c.EnergyFloor <= 0:
		return fmt.Errorf("%w: energy floor must be positive", ErrInvalidConfig)
	}
	if c.FFTSize != 0 && (c.FFTSize < c.FrameLength || !isPow2(c.FFTSize)) {
		return fmt.Errorf("%w: fft size %d must be a power of two >= frame length", ErrInvalidConfig, c.FFTSize)
	}
	return nil
}

// withDefaults fills derived fields.
func (c Config) withDefaults() Config {
	if c.FFTSize == 0 {
		c.FFTSize = nextPow2(c.FrameLength)
	}
	return c
}

// FrameCount returns the number of frames produced for n samples.
func (c Config) FrameCount(n int) int {
	if n < c.FrameLength {
		return 0
	}
	return (n-c.FrameLength)/c.FrameHop + 1
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func isPow2(n int) bool {
	return n > 0 && n&(n-1) == 0
}
