package audio

import (
	"math"
	"sync"
	"testing"
)

func TestRollingBuffer_Write(t *testing.T) {
	rb := NewRollingBuffer(10, 1)

	rb.Write([]int16{1, 2, 3, 4, 5})
	if rb.Len() != 5 {
		t.Errorf("Expected length 5, got %d", rb.Len())
	}

	rb.Write([]int16{6, 7, 8})
	if rb.Len() != 8 {
		t.Errorf("Expected length 8, got %d", rb.Len())
	}
}

func TestRollingBuffer_ReadEmpty(t *testing.T) {
	rb := NewRollingBuffer(16000, 3)

	out := rb.Read(3)
	if out == nil {
		t.Fatal("Expected non-nil empty slice")
	}
	if len(out) != 0 {
		t.Errorf("Expected 0 samples from empty buffer, got %d", len(out))
	}
}

func TestRollingBuffer_ReadMoreThanAvailable(t *testing.T) {
	rb := NewRollingBuffer(10, 1)
	rb.Write([]int16{1, 2, 3})

	out := rb.Read(1)
	if len(out) != 3 {
		t.Fatalf("Expected 3 samples, got %d", len(out))
	}
	for i, v := range []int16{1, 2, 3} {
		if out[i] != v {
			t.Errorf("Expected %d at position %d, got %d", v, i, out[i])
		}
	}
}

func TestRollingBuffer_ReadMostRecent(t *testing.T) {
	rb := NewRollingBuffer(10, 1)
	rb.Write([]int16{1, 2, 3, 4, 5, 6})

	// 0.3s at 10 Hz is the last 3 samples
	out := rb.Read(0.3)
	expected := []int16{4, 5, 6}
	if len(out) != len(expected) {
		t.Fatalf("Expected %d samples, got %d", len(expected), len(out))
	}
	for i := range expected {
		if out[i] != expected[i] {
			t.Errorf("Expected %d at position %d, got %d", expected[i], i, out[i])
		}
	}
}

func TestRollingBuffer_WrapAround(t *testing.T) {
	rb := NewRollingBuffer(5, 1)

	rb.Write([]int16{1, 2, 3, 4})
	rb.Write([]int16{5, 6, 7})

	if rb.Len() != 5 {
		t.Errorf("Expected length to saturate at 5, got %d", rb.Len())
	}

	out := rb.Read(1)
	expected := []int16{3, 4, 5, 6, 7}
	for i := range expected {
		if out[i] != expected[i] {
			t.Errorf("Expected %d at position %d, got %d", expected[i], i, out[i])
		}
	}
}

func TestRollingBuffer_OversizedWrite(t *testing.T) {
	rb := NewRollingBuffer(4, 1)
	rb.Write([]int16{9})
	rb.Write([]int16{1, 2, 3, 4, 5, 6, 7})

	out := rb.Read(1)
	expected := []int16{4, 5, 6, 7}
	if len(out) != len(expected) {
		t.Fatalf("Expected %d samples, got %d", len(expected), len(out))
	}
	for i := range expected {
		if out[i] != expected[i] {
			t.Errorf("Expected %d at position %d, got %d", expected[i], i, out[i])
		}
	}
}

func TestRollingBuffer_ExactRecall(t *testing.T) {
	rb := NewRollingBuffer(16000, 3)
	if rb.Capacity() != 48000 {
		t.Fatalf("Expected capacity 48000, got %d", rb.Capacity())
	}

	// Values are written in uneven batches to exercise every wrap position.
	const total = 50000
	batch := make([]int16, 0, 777)
	for i := 0; i < total; i++ {
		batch = append(batch, int16(i))
		if len(batch) == cap(batch) {
			rb.Write(batch)
			batch = batch[:0]
		}
	}
	rb.Write(batch)

	out := rb.Read(3)
	if len(out) != 48000 {
		t.Fatalf("Expected 48000 samples, got %d", len(out))
	}
	for i, v := range out {
		if want := int16(2000 + i); v != want {
			t.Fatalf("Expected %d at position %d, got %d", want, i, v)
		}
	}
}

func TestRollingBuffer_ReadIsCopy(t *testing.T) {
	rb := NewRollingBuffer(10, 1)
	rb.Write([]int16{1, 2, 3})

	out := rb.Read(1)
	out[0] = 42

	again := rb.Read(1)
	if again[0] != 1 {
		t.Errorf("Expected buffer contents unchanged, got %d", again[0])
	}
}

func TestRollingBuffer_ReadUnboundedRequest(t *testing.T) {
	rb := NewRollingBuffer(16000, 3)
	samples := make([]int16, 50000)
	for i := range samples {
		samples[i] = int16(i)
	}
	rb.Write(samples)

	tests := []struct {
		name    string
		seconds float64
		want    int
	}{
		{"positive infinity", math.Inf(1), 48000},
		{"huge", 1e300, 48000},
		{"max float", math.MaxFloat64, 48000},
		{"nan", math.NaN(), 0},
		{"negative", -1, 0},
		{"negative infinity", math.Inf(-1), 0},
	}

	last := 49999
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rb.Read(tt.seconds)
			if len(got) != tt.want {
				t.Fatalf("Expected %d samples, got %d", tt.want, len(got))
			}
			if tt.want > 0 && (got[0] != int16(2000) || got[len(got)-1] != int16(last)) {
				t.Errorf("Expected samples 2000..49999, got %d..%d", got[0], got[len(got)-1])
			}
		})
	}
}

func TestRollingBuffer_ConcurrentWriteRead(t *testing.T) {
	rb := NewRollingBuffer(16000, 1)

	// Every batch is constant-valued and ascending, so a consistent snapshot
	// is non-decreasing.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		batch := make([]int16, 160)
		for b := 0; b < 2000; b++ {
			for i := range batch {
				batch[i] = int16(b % 30000)
			}
			rb.Write(batch)
		}
	}()

	for i := 0; i < 200; i++ {
		out := rb.Read(0.5)
		for j := 1; j < len(out); j++ {
			if out[j] < out[j-1] && out[j-1]-out[j] < 20000 {
				t.Fatalf("Snapshot out of order at %d: %d then %d", j, out[j-1], out[j])
			}
		}
	}
	wg.Wait()
}
