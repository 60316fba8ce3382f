package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/Klingon-tech/oneshot/internal/storage"
	"github.com/Klingon-tech/oneshot/pkg/types"
)

var prefixSupply = []byte("t/") // t/<policy(28)><name> -> Record JSON

// Store persists the supply book.
type Store struct {
	db storage.DB
}

// NewStore creates a supply book store.
func NewStore(db storage.DB) *Store {
	return &Store{db: db}
}

func supplyKey(ac types.AssetClass) []byte {
	key := make([]byte, 0, len(prefixSupply)+types.CredentialSize+len(ac.Name))
	key = append(key, prefixSupply...)
	key = append(key, ac.Policy[:]...)
	return append(key, ac.Name...)
}

func policyPrefix(policy types.PolicyID) []byte {
	key := append([]byte{}, prefixSupply...)
	return append(key, policy[:]...)
}

// Get returns the record for an asset class. An asset that was never minted
// has a zero record with ok false.
func (s *Store) Get(ac types.AssetClass) (Record, bool, error) {
	data, err := s.db.Get(supplyKey(ac))
	if errors.Is(err, storage.ErrNotFound) {
		return Record{Asset: ac}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("supply get: %w", err)
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, false, fmt.Errorf("supply unmarshal: %w", err)
	}
	return r, true, nil
}

// Supply returns the net circulating supply of an asset class.
func (s *Store) Supply(ac types.AssetClass) (int64, error) {
	r, _, err := s.Get(ac)
	return r.Supply, err
}

// ByPolicy returns the records of every asset under one policy, ordered by
// asset name.
func (s *Store) ByPolicy(policy types.PolicyID) ([]Record, error) {
	var out []Record
	err := s.db.ForEach(policyPrefix(policy), func(_, value []byte) error {
		var r Record
		if err := json.Unmarshal(value, &r); err != nil {
			return fmt.Errorf("supply unmarshal: %w", err)
		}
		out = append(out, r)
		return nil
	})
	return out, err
}

// ForEach iterates over every record.
// Return a non-nil error from fn to stop iteration early.
func (s *Store) ForEach(fn func(Record) error) error {
	return s.db.ForEach(prefixSupply, func(_, value []byte) error {
		var r Record
		if err := json.Unmarshal(value, &r); err != nil {
			return fmt.Errorf("supply unmarshal: %w", err)
		}
		return fn(r)
	})
}

// Apply folds a block's mint events into the book and stages the updated
// records into w. Nothing is staged when any event would drive a supply
// negative.
func (s *Store) Apply(w storage.Writer, height uint64, events []Event) error {
	touched := make(map[types.AssetClass]*Record)
	var order []types.AssetClass

	for _, ev := range events {
		for _, ac := range ev.Mint.Classes() {
			r, ok := touched[ac]
			if !ok {
				rec, _, err := s.Get(ac)
				if err != nil {
					return err
				}
				r = &rec
				touched[ac] = r
				order = append(order, ac)
			}
			if err := r.apply(ev.TxID, ev.Mint[ac]); err != nil {
				return fmt.Errorf("%s in tx %s: %w", ac, ev.TxID, err)
			}
			r.Height = height
		}
	}

	for _, ac := range order {
		data, err := json.Marshal(touched[ac])
		if err != nil {
			return fmt.Errorf("supply marshal: %w", err)
		}
		if err := w.Put(supplyKey(ac), data); err != nil {
			return fmt.Errorf("supply put: %w", err)
		}
	}
	return nil
}

func (r *Record) apply(txID types.Hash, qty int64) error {
	switch {
	case qty > 0:
		if r.Supply > math.MaxInt64-qty || r.Minted > math.MaxUint64-uint64(qty) {
			return ErrSupplyOverflow
		}
		if r.Minted == 0 {
			r.FirstMint = txID
		}
		r.Supply += qty
		r.Minted += uint64(qty)
	case qty < 0:
		if qty == math.MinInt64 || r.Supply+qty < 0 {
			return ErrNegativeSupply
		}
		r.Supply += qty
		r.Burned += uint64(-qty)
	}
	return nil
}
