// Package storage provides the key-value stores the ledger persists into.
package storage

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/oneshot/config"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("key not found")

// DB is the interface for key-value storage.
type DB interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	Has(key []byte) (bool, error)
	// ForEach iterates over all keys with the given prefix in ascending key
	// order. The callback receives a copy of the key and value.
	// Return a non-nil error from fn to stop iteration early.
	ForEach(prefix []byte, fn func(key, value []byte) error) error
	Close() error
}

// Writer is the write half shared by DB and Batch, so stores can stage
// their updates into either.
type Writer interface {
	Put(key, value []byte) error
	Delete(key []byte) error
}

// Batch buffers writes until Commit applies them together.
type Batch interface {
	Writer
	Commit() error
}

// Batcher is implemented by stores that can commit a batch atomically.
type Batcher interface {
	NewBatch() Batch
}

// NewBatch returns an atomic batch when db supports one, and a buffered
// best-effort batch otherwise.
func NewBatch(db DB) Batch {
	if b, ok := db.(Batcher); ok {
		return b.NewBatch()
	}
	return &fallbackBatch{db: db}
}

// Open opens the store selected by the configuration.
func Open(cfg *config.Config) (DB, error) {
	switch cfg.Storage {
	case config.StorageMemory, "":
		return NewMemory(), nil
	case config.StorageBadger:
		return NewBadger(cfg.LedgerDir())
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}
}

type batchOp struct {
	key   []byte
	value []byte // nil means delete
}

// fallbackBatch applies buffered writes one at a time.
type fallbackBatch struct {
	db  DB
	ops []batchOp
}

func (fb *fallbackBatch) Put(key, value []byte) error {
	fb.ops = append(fb.ops, batchOp{key: clone(key), value: nonNil(value)})
	return nil
}

func (fb *fallbackBatch) Delete(key []byte) error {
	fb.ops = append(fb.ops, batchOp{key: clone(key)})
	return nil
}

func (fb *fallbackBatch) Commit() error {
	for _, op := range fb.ops {
		var err error
		if op.value == nil {
			err = fb.db.Delete(op.key)
		} else {
			err = fb.db.Put(op.key, op.value)
		}
		if err != nil {
			return err
		}
	}
	fb.ops = nil
	return nil
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// nonNil copies value so an empty put is not mistaken for a delete.
func nonNil(value []byte) []byte {
	if value == nil {
		return []byte{}
	}
	return clone(value)
}
