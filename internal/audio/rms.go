package audio

import (
	"math"
)

// ComputeRMS returns the root mean square of the normalized samples.
// An empty buffer yields 0.
func ComputeRMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, sample := range samples {
		v := float64(sample) / 32768.0
		sum += v * v
	}

	return math.Sqrt(sum / float64(len(samples)))
}

// IsSilent reports whether a take is too quiet to be worth enrolling
func IsSilent(samples []int16, minRMS float64) bool {
	return ComputeRMS(samples) < minRMS
}
