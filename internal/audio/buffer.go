package audio

import (
	"sync"
)

// RollingBuffer is a thread-safe ring of int16 samples that always holds the
// most recent audio. Once full, each write overwrites the oldest samples.
type RollingBuffer struct {
	buffer     []int16
	sampleRate int
	write      int // next write position
	count      int // valid samples, saturates at len(buffer)
	mu         sync.Mutex
}

// NewRollingBuffer creates a buffer holding seconds of audio at sampleRate
func NewRollingBuffer(sampleRate int, seconds float64) *RollingBuffer {
	capacity := int(float64(sampleRate) * seconds)
	if capacity < 1 {
		capacity = 1
	}
	return &RollingBuffer{
		buffer:     make([]int16, capacity),
		sampleRate: sampleRate,
	}
}

// Write appends samples, overwriting the oldest data when capacity is exceeded
func (rb *RollingBuffer) Write(samples []int16) {
	if len(samples) == 0 {
		return
	}

	rb.mu.Lock()
	defer rb.mu.Unlock()

	size := len(rb.buffer)

	// Only the trailing capacity samples of an oversized batch can survive
	if len(samples) > size {
		skipped := len(samples) - size
		rb.write = (rb.write + skipped) % size
		samples = samples[skipped:]
	}

	n := copy(rb.buffer[rb.write:], samples)
	if n < len(samples) {
		copy(rb.buffer, samples[n:])
	}
	rb.write = (rb.write + len(samples)) % size

	rb.count += len(samples)
	if rb.count > size {
		rb.count = size
	}
}

// Read returns a copy of the most recent seconds of audio, oldest first.
// Fewer samples are returned when the buffer holds less than requested.
func (rb *RollingBuffer) Read(seconds float64) []int16 {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	// Clamp in float so +Inf or huge requests cannot overflow the int conversion.
	var want int
	switch f := seconds * float64(rb.sampleRate); {
	case !(f > 0):
		want = 0
	case f >= float64(rb.count):
		want = rb.count
	default:
		want = int(f)
	}
	out := make([]int16, want)
	if want == 0 {
		return out
	}

	size := len(rb.buffer)
	start := (rb.write - want + size) % size
	n := copy(out, rb.buffer[start:min(start+want, size)])
	if n < want {
		copy(out[n:], rb.buffer[:want-n])
	}
	return out
}

// Len returns the number of valid samples currently held
func (rb *RollingBuffer) Len() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.count
}

// Capacity returns the maximum number of samples the buffer can hold
func (rb *RollingBuffer) Capacity() int {
	return len(rb.buffer)
}

// SampleRate returns the sample rate used to convert seconds to samples
func (rb *RollingBuffer) SampleRate() int {
	return rb.sampleRate
}
