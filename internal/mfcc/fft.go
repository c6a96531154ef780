package mfcc

import "math"

// fft performs an in-place iterative radix-2 Cooley-Tukey FFT.
// real and imag must have the same power-of-2 length.
func fft(real, imag []float64) {
	n := len(real)
	if n <= 1 {
		return
	}

	// Bit-reversal permutation
	j := 0
	for i := 0; i < n-1; i++ {
		if i < j {
			real[i], real[j] = real[j], real[i]
			imag[i], imag[j] = imag[j], imag[i]
		}
		k := n >> 1
		for k <= j {
			j -= k
			k >>= 1
		}
		j += k
	}

	for size := 2; size <= n; size <<= 1 {
		half := size >> 1
		angle := -2.0 * math.Pi / float64(size)
		wR := math.Cos(angle)
		wI := math.Sin(angle)

		for start := 0; start < n; start += size {
			tR, tI := 1.0, 0.0
			for k := 0; k < half; k++ {
				u := start + k
				v := u + half

				tmpR := tR*real[v] - tI*imag[v]
				tmpI := tR*imag[v] + tI*real[v]

				real[v] = real[u] - tmpR
				imag[v] = imag[u] - tmpI
				real[u] += tmpR
				imag[u] += tmpI

				// twiddle advances by one step of this stage
				tR, tI = tR*wR-tI*wI, tR*wI+tI*wR
			}
		}
	}
}

// powerSpectrum transforms a zero-padded frame held in real (imag is scratch)
// and writes |X[k]|^2 for k in [0, len(real)/2] into out.
func powerSpectrum(real, imag, out []float64) {
	for i := range imag {
		imag[i] = 0
	}
	fft(real, imag)
	for k := range out {
		out[k] = real[k]*real[k] + imag[k]*imag[k]
	}
}
