package audio

import (
	"encoding/binary"
	"errors"
)

// Fixed capture format: 16 kHz, 16-bit signed little-endian, mono.
const (
	SampleRate     = 16000
	BytesPerSample = 2
)

// ErrOddLength is returned when a PCM16 byte stream is not sample aligned
var ErrOddLength = errors.New("PCM data length must be even (16-bit samples)")

// BytesToSamples decodes little-endian PCM16 bytes into samples
func BytesToSamples(pcmData []byte) ([]int16, error) {
	if len(pcmData)%BytesPerSample != 0 {
		return nil, ErrOddLength
	}
	return DecodeSamples(pcmData), nil
}

// DecodeSamples decodes little-endian PCM16 bytes, ignoring a trailing odd byte
func DecodeSamples(pcmData []byte) []int16 {
	samples := make([]int16, len(pcmData)/BytesPerSample)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcmData[i*2:]))
	}
	return samples
}

// SamplesToBytes encodes samples as little-endian PCM16 bytes
func SamplesToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// Normalize converts samples to float64 in [-1, 1)
func Normalize(samples []int16) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = float64(s) / 32768.0
	}
	return out
}
