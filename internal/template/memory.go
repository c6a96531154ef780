package template

import (
	"context"
	"slices"
	"sync"
)

// Memory is an in-process Store, useful for tests and ephemeral deployments.
type Memory struct {
	mu  sync.RWMutex
	vec []float64
	dim int
}

// NewMemory creates an empty Memory store for vectors of length dim.
func NewMemory(dim int) *Memory {
	return &Memory{dim: dim}
}

func (m *Memory) Load(context.Context) ([]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.vec == nil {
		return nil, ErrNotFound
	}
	return slices.Clone(m.vec), nil
}

func (m *Memory) Save(_ context.Context, vec []float64) error {
	if err := checkVector(vec, m.dim); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vec = slices.Clone(vec)
	return nil
}

func (m *Memory) Delete(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vec = nil
	return nil
}

func (m *Memory) Close() error {
	return nil
}
