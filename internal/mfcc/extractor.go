package mfcc

import (
	"github.com/lexiqai/voicegate/internal/audio"
)

// Extractor turns PCM into MFCC vectors. Its tables are built once and only
// read afterwards, so one Extractor may be shared by concurrent callers.
type Extractor struct {
	cfg    Config
	window []float64
	bank   FilterBank
	dct    dctTable
}

// New validates cfg and precomputes the window, filterbank and DCT basis.
func New(cfg Config) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	return &Extractor{
		cfg:    cfg,
		window: hammingWindow(cfg.FrameLength),
		bank:   NewFilterBank(cfg),
		dct:    newDCTTable(cfg.NumCoefficients, cfg.NumFilters),
	}, nil
}

// Config returns the resolved configuration.
func (e *Extractor) Config() Config {
	return e.cfg
}

// Dimension returns the length of every MFCC vector.
func (e *Extractor) Dimension() int {
	return e.cfg.NumCoefficients
}

// Extract computes one MFCC vector per frame of pcm. Input shorter than one
// frame yields an empty result.
func (e *Extractor) Extract(pcm []int16) [][]float64 {
	cfg := e.cfg
	numFrames := cfg.FrameCount(len(pcm))
	if numFrames == 0 {
		return nil
	}

	signal := audio.Normalize(pcm)
	preEmphasize(signal, cfg.PreEmphasis)

	// Working buffers, local so concurrent calls never share state
	real := make([]float64, cfg.FFTSize)
	imag := make([]float64, cfg.FFTSize)
	power := make([]float64, cfg.FFTSize/2+1)
	logMel := make([]float64, cfg.NumFilters)

	features := make([][]float64, numFrames)
	for t := range features {
		start := t * cfg.FrameHop
		for i := 0; i < cfg.FrameLength; i++ {
			real[i] = signal[start+i] * e.window[i]
		}
		for i := cfg.FrameLength; i < cfg.FFTSize; i++ {
			real[i] = 0
		}

		powerSpectrum(real, imag, power)
		e.bank.apply(power, cfg.EnergyFloor, logMel)

		coeffs := make([]float64, cfg.NumCoefficients)
		e.dct.apply(logMel, coeffs)
		features[t] = coeffs
	}
	return features
}

// preEmphasize applies y[n] = x[n] - coef*x[n-1] in place, leaving y[0] = x[0].
func preEmphasize(x []float64, coef float64) {
	for i := len(x) - 1; i > 0; i-- {
		x[i] -= coef * x[i-1]
	}
}
