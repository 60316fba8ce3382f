package storage

// PrefixDB wraps a DB and prepends a fixed prefix to all keys.
// The ledger keeps its UTxO set, supply book and block log in separate
// namespaces of one underlying database.
type PrefixDB struct {
	inner  DB
	prefix []byte
}

// NewPrefixDB creates a new PrefixDB wrapping inner with the given prefix.
func NewPrefixDB(inner DB, prefix []byte) *PrefixDB {
	return &PrefixDB{inner: inner, prefix: clone(prefix)}
}

func (p *PrefixDB) prefixed(key []byte) []byte {
	out := make([]byte, len(p.prefix)+len(key))
	copy(out, p.prefix)
	copy(out[len(p.prefix):], key)
	return out
}

// Get retrieves a value by key.
func (p *PrefixDB) Get(key []byte) ([]byte, error) {
	return p.inner.Get(p.prefixed(key))
}

// Put stores a key-value pair.
func (p *PrefixDB) Put(key, value []byte) error {
	return p.inner.Put(p.prefixed(key), value)
}

// Delete removes a key.
func (p *PrefixDB) Delete(key []byte) error {
	return p.inner.Delete(p.prefixed(key))
}

// Has checks if a key exists.
func (p *PrefixDB) Has(key []byte) (bool, error) {
	return p.inner.Has(p.prefixed(key))
}

// ForEach iterates over keys with the given prefix inside the namespace.
// Keys reach fn with the namespace stripped.
func (p *PrefixDB) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	return p.inner.ForEach(p.prefixed(prefix), func(key, value []byte) error {
		return fn(key[len(p.prefix):], value)
	})
}

// DeleteAll removes every key in the namespace.
func (p *PrefixDB) DeleteAll() error {
	// Collect first; some backends do not allow writes during iteration.
	var keys [][]byte
	err := p.inner.ForEach(p.prefix, func(key, _ []byte) error {
		keys = append(keys, clone(key))
		return nil
	})
	if err != nil {
		return err
	}
	batch := NewBatch(p.inner)
	for _, key := range keys {
		if err := batch.Delete(key); err != nil {
			return err
		}
	}
	return batch.Commit()
}

// Close is a no-op; the inner DB owns its lifecycle.
func (p *PrefixDB) Close() error {
	return nil
}

// NewBatch returns a batch that writes into the namespace. It is atomic
// whenever the inner DB is.
func (p *PrefixDB) NewBatch() Batch {
	inner := NewBatch(p.inner)
	return &prefixBatch{prefixWriter: prefixWriter{w: inner, db: p}, inner: inner}
}

// Wrap returns w with every key moved into the namespace. Stores built on
// different namespaces of one DB stage into a shared batch this way.
func (p *PrefixDB) Wrap(w Writer) Writer {
	return &prefixWriter{w: w, db: p}
}

type prefixWriter struct {
	w  Writer
	db *PrefixDB
}

func (pw *prefixWriter) Put(key, value []byte) error {
	return pw.w.Put(pw.db.prefixed(key), value)
}

func (pw *prefixWriter) Delete(key []byte) error {
	return pw.w.Delete(pw.db.prefixed(key))
}

type prefixBatch struct {
	prefixWriter
	inner Batch
}

func (pb *prefixBatch) Commit() error {
	return pb.inner.Commit()
}
