package mfcc

import "math"

// Filter is one triangular Mel filter over the power-spectrum bins.
// Weights is zero outside [Lo, Hi], rises linearly on [Lo, Mid] and falls
// linearly on [Mid, Hi].
type Filter struct {
	Lo, Mid, Hi int
	Weights     []float64
}

// FilterBank is the set of Mel filters derived from a Config.
type FilterBank []Filter

// hzToMel converts frequency in Hz to the HTK mel scale.
func hzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

// melToHz converts mel scale frequency back to Hz.
func melToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

// NewFilterBank lays out cfg.NumFilters triangles between 0 Hz and Nyquist.
func NewFilterBank(cfg Config) FilterBank {
	cfg = cfg.withDefaults()
	halfFFT := cfg.FFTSize/2 + 1
	maxBin := cfg.FFTSize / 2

	lowMel := hzToMel(0)
	highMel := hzToMel(float64(cfg.SampleRate) / 2)

	// NumFilters + 2 equally spaced anchors in mel space
	bins := make([]int, cfg.NumFilters+2)
	step := (highMel - lowMel) / float64(cfg.NumFilters+1)
	for i := range bins {
		hz := melToHz(lowMel + float64(i)*step)
		bin := int(math.Floor(float64(cfg.FFTSize+1) * hz / float64(cfg.SampleRate)))
		bins[i] = min(max(bin, 0), maxBin)
	}

	bank := make(FilterBank, cfg.NumFilters)
	for m := range bank {
		lo, mid, hi := bins[m], bins[m+1], bins[m+2]
		weights := make([]float64, halfFFT)

		// a degenerate side (mid == lo or hi == mid) stays zero
		for k := lo; k < mid; k++ {
			weights[k] = float64(k-lo) / float64(mid-lo)
		}
		for k := mid; k < hi; k++ {
			weights[k] = float64(hi-k) / float64(hi-mid)
		}
		bank[m] = Filter{Lo: lo, Mid: mid, Hi: hi, Weights: weights}
	}
	return bank
}

// apply writes the floored log energy of each filter into out.
func (fb FilterBank) apply(power []float64, floor float64, out []float64) {
	for m, f := range fb {
		sum := 0.0
		for k := f.Lo; k <= f.Hi; k++ {
			sum += f.Weights[k] * power[k]
		}
		if sum < floor {
			sum = floor
		}
		out[m] = math.Log(sum)
	}
}
