package template

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// File stores the template as a JSON array in a single file. Saves write a
// sibling temp file and rename it over the record.
type File struct {
	path string
	dim  int
	mu   sync.Mutex
}

// NewFile creates a File store at path. Parent directories are created on
// the first Save.
func NewFile(path string, dim int) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return &File{path: abs, dim: dim}, nil
}

// Path returns the absolute record path.
func (f *File) Path() string {
	return f.path
}

func (f *File) Load(context.Context) ([]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}

	var vec []float64
	if err := json.Unmarshal(data, &vec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := checkVector(vec, f.dim); err != nil {
		return nil, err
	}
	return vec, nil
}

func (f *File) Save(_ context.Context, vec []float64) error {
	if err := checkVector(vec, f.dim); err != nil {
		return err
	}
	data, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("encode template: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create template dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write template: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync template: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close template: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace template: %w", err)
	}
	return nil
}

func (f *File) Delete(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Ping reports whether the record's directory is reachable. A directory that
// does not exist yet is fine; Save creates it.
func (f *File) Ping(context.Context) error {
	_, err := os.Stat(filepath.Dir(f.path))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (f *File) Close() error {
	return nil
}
