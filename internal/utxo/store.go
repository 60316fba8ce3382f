package utxo

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Klingon-tech/oneshot/internal/storage"
	"github.com/Klingon-tech/oneshot/pkg/tx"
	"github.com/Klingon-tech/oneshot/pkg/types"
)

// ErrNotFound is returned when an output reference is not in the set.
var ErrNotFound = errors.New("utxo not found")

// Key prefixes for the UTxO store.
var (
	prefixUTxO = []byte("u/") // u/<txid><index> -> UTxO JSON
	prefixAddr = []byte("a/") // a/<address><txid><index> -> empty (index)
)

// Store implements Set backed by a storage.DB.
type Store struct {
	db storage.DB
}

// NewStore creates a new UTxO store backed by the given database.
func NewStore(db storage.DB) *Store {
	return &Store{db: db}
}

// refKey encodes the index big-endian so byte order matches OutputRef order.
func refKey(prefix []byte, ref types.OutputRef) []byte {
	key := make([]byte, 0, len(prefix)+types.HashSize+4)
	key = append(key, prefix...)
	key = append(key, ref.TxID[:]...)
	return binary.BigEndian.AppendUint32(key, ref.Index)
}

func utxoKey(ref types.OutputRef) []byte {
	return refKey(prefixUTxO, ref)
}

func addrPrefix(addr types.Address) []byte {
	return append(append([]byte{}, prefixAddr...), addr.Bytes()...)
}

func addrKey(addr types.Address, ref types.OutputRef) []byte {
	return refKey(addrPrefix(addr), ref)
}

// Get retrieves a UTxO by its output reference.
func (s *Store) Get(ref types.OutputRef) (*UTxO, error) {
	data, err := s.db.Get(utxoKey(ref))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("utxo get: %w", err)
	}
	var u UTxO
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("utxo unmarshal: %w", err)
	}
	return &u, nil
}

// GetOutput implements tx.UTxOProvider.
func (s *Store) GetOutput(ref types.OutputRef) (tx.Output, bool) {
	u, err := s.Get(ref)
	if err != nil {
		return tx.Output{}, false
	}
	return u.Output, true
}

// Put stores a UTxO and updates the address index.
func (s *Store) Put(u *UTxO) error {
	return s.PutTo(s.db, u)
}

// PutTo stages a UTxO and its index entry into w, which may be a batch.
func (s *Store) PutTo(w storage.Writer, u *UTxO) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("utxo marshal: %w", err)
	}
	if err := w.Put(utxoKey(u.Ref), data); err != nil {
		return fmt.Errorf("utxo put: %w", err)
	}
	if err := w.Put(addrKey(u.Output.Address, u.Ref), []byte{}); err != nil {
		return fmt.Errorf("utxo index put: %w", err)
	}
	return nil
}

// Delete removes a UTxO and its address index entry.
func (s *Store) Delete(ref types.OutputRef) error {
	u, err := s.Get(ref)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.DeleteFrom(s.db, u)
}

// DeleteFrom stages the removal of u and its index entry into w.
func (s *Store) DeleteFrom(w storage.Writer, u *UTxO) error {
	if err := w.Delete(addrKey(u.Output.Address, u.Ref)); err != nil {
		return fmt.Errorf("utxo index delete: %w", err)
	}
	if err := w.Delete(utxoKey(u.Ref)); err != nil {
		return fmt.Errorf("utxo delete: %w", err)
	}
	return nil
}

// Has checks if a UTxO exists for the given reference.
func (s *Store) Has(ref types.OutputRef) (bool, error) {
	return s.db.Has(utxoKey(ref))
}

// ForEach iterates over all UTxOs ordered by (TxID, Index).
func (s *Store) ForEach(fn func(*UTxO) error) error {
	return s.db.ForEach(prefixUTxO, func(_, value []byte) error {
		var u UTxO
		if err := json.Unmarshal(value, &u); err != nil {
			return fmt.Errorf("utxo unmarshal: %w", err)
		}
		return fn(&u)
	})
}

// ByAddress returns the UTxOs locked by addr, ordered by (TxID, Index).
func (s *Store) ByAddress(addr types.Address) ([]*UTxO, error) {
	prefix := addrPrefix(addr)
	var utxos []*UTxO
	err := s.db.ForEach(prefix, func(key, _ []byte) error {
		// Key layout: "a/" + address(29) + txid(32) + index(4).
		off := len(prefix)
		if len(key) != off+types.HashSize+4 {
			return nil // Malformed key, skip.
		}
		var ref types.OutputRef
		copy(ref.TxID[:], key[off:off+types.HashSize])
		ref.Index = binary.BigEndian.Uint32(key[off+types.HashSize:])

		u, err := s.Get(ref)
		if errors.Is(err, ErrNotFound) {
			return nil // Stale index entry.
		}
		if err != nil {
			return err
		}
		utxos = append(utxos, u)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan address index: %w", err)
	}
	return utxos, nil
}

// Balance sums the values locked by addr.
func (s *Store) Balance(addr types.Address) (types.Value, error) {
	utxos, err := s.ByAddress(addr)
	if err != nil {
		return types.Value{}, err
	}
	var total types.Value
	for _, u := range utxos {
		if total, err = total.Add(u.Output.Value); err != nil {
			return types.Value{}, fmt.Errorf("balance of %s: %w", addr, err)
		}
	}
	return total, nil
}

// ClearAll removes every UTxO and index entry.
func (s *Store) ClearAll() error {
	batch := storage.NewBatch(s.db)
	for _, prefix := range [][]byte{prefixUTxO, prefixAddr} {
		err := s.db.ForEach(prefix, func(key, _ []byte) error {
			return batch.Delete(key)
		})
		if err != nil {
			return fmt.Errorf("scan prefix %s: %w", prefix, err)
		}
	}
	return batch.Commit()
}

var _ Set = (*Store)(nil)
var _ tx.UTxOProvider = (*Store)(nil)
