package mfcc

import "math"

// hammingWindow generates a Hamming window of the given length.
func hammingWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// dctTable holds the unnormalized DCT-II basis, [numCoefficients][numFilters]:
//
//	table[n][m] = cos(pi * n * (2m + 1) / (2 * numFilters))
type dctTable [][]float64

func newDCTTable(numCoefficients, numFilters int) dctTable {
	t := make(dctTable, numCoefficients)
	for n := range t {
		row := make([]float64, numFilters)
		for m := range row {
			row[m] = math.Cos(math.Pi * float64(n) * float64(2*m+1) / float64(2*numFilters))
		}
		t[n] = row
	}
	return t
}

func (t dctTable) apply(in, out []float64) {
	for n, row := range t {
		sum := 0.0
		for m, c := range row {
			sum += in[m] * c
		}
		out[n] = sum
	}
}
