package template

import (
	"context"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// templateKey is the single badger key holding the msgpack-encoded vector.
var templateKey = []byte("voiceprint:template")

// Badger is a Store backed by BadgerDB v4.
type Badger struct {
	db  *badger.DB
	dim int
}

// BadgerOptions configures the BadgerDB store.
type BadgerOptions struct {
	// Dir is the directory for BadgerDB data files.
	// Required unless InMemory is set.
	Dir string

	// InMemory runs BadgerDB without disk persistence.
	InMemory bool

	// Dim is the expected template length.
	Dim int

	// Logger receives badger's warnings and errors. Zero value discards them.
	Logger zerolog.Logger
}

// NewBadger opens a BadgerDB-backed Store.
func NewBadger(opts BadgerOptions) (*Badger, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("template: BadgerOptions.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = badger.DefaultOptions("").WithInMemory(true)
	}
	dbOpts = dbOpts.WithLogger(badgerLogger{opts.Logger.With().Str("component", "badger").Logger()})

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Badger{db: db, dim: opts.Dim}, nil
}

func (b *Badger) Load(context.Context) ([]float64, error) {
	var val []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(templateKey)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}

	var vec []float64
	if err := msgpack.Unmarshal(val, &vec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := checkVector(vec, b.dim); err != nil {
		return nil, err
	}
	return vec, nil
}

func (b *Badger) Save(_ context.Context, vec []float64) error {
	if err := checkVector(vec, b.dim); err != nil {
		return err
	}
	data, err := msgpack.Marshal(vec)
	if err != nil {
		return fmt.Errorf("encode template: %w", err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(templateKey, data)
	})
}

func (b *Badger) Delete(context.Context) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(templateKey)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	return err
}

// Ping reports whether the database is open and readable.
func (b *Badger) Ping(context.Context) error {
	if b.db.IsClosed() {
		return errors.New("template: badger is closed")
	}
	return b.db.View(func(*badger.Txn) error { return nil })
}

func (b *Badger) Close() error {
	return b.db.Close()
}

// putRaw writes an arbitrary value under the template key. Tests use it to
// plant corrupt records.
func (b *Badger) putRaw(val []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(templateKey, val)
	})
}

// badgerLogger routes badger output onto zerolog, dropping info and debug.
type badgerLogger struct {
	logger zerolog.Logger
}

func (l badgerLogger) Errorf(f string, v ...interface{})   { l.logger.Error().Msgf(f, v...) }
func (l badgerLogger) Warningf(f string, v ...interface{}) { l.logger.Warn().Msgf(f, v...) }
func (badgerLogger) Infof(string, ...interface{})          {}
func (badgerLogger) Debugf(string, ...interface{})         {}
