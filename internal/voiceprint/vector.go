package voiceprint

import "math"

// normFloor guards cosine similarity against near-zero vectors.
const normFloor = 1e-10

// MeanVector returns the per-dimension arithmetic mean of frames, or nil when
// frames is empty.
func MeanVector(frames [][]float64) []float64 {
	if len(frames) == 0 {
		return nil
	}
	mean := make([]float64, len(frames[0]))
	for _, f := range frames {
		for i, v := range f {
			mean[i] += v
		}
	}
	n := float64(len(frames))
	for i := range mean {
		mean[i] /= n
	}
	return mean
}

// CosineSimilarity returns dot(a, b) / (|a| * |b|), or 0 if either norm is
// below 1e-10 or the lengths differ.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	na = math.Sqrt(na)
	nb = math.Sqrt(nb)
	if na < normFloor || nb < normFloor {
		return 0
	}
	return dot / (na * nb)
}
