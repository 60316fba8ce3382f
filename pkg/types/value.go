package types

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// Value errors.
var (
	ErrValueOverflow  = errors.New("value overflow")
	ErrValueUnderflow = errors.New("value underflow")
)

// MultiAsset maps native assets to non-negative quantities.
type MultiAsset map[AssetClass]uint64

// Value is the content of a ledger output: coin (lovelace) plus any native
// assets. The zero Value is valid and empty.
type Value struct {
	Coin   uint64     `json:"coin"`
	Assets MultiAsset `json:"assets,omitempty"`
}

// Coin returns a Value holding only coin.
func Coin(amount uint64) Value {
	return Value{Coin: amount}
}

// IsZero returns true if the value holds no coin and no assets.
func (v Value) IsZero() bool {
	if v.Coin != 0 {
		return false
	}
	for _, q := range v.Assets {
		if q != 0 {
			return false
		}
	}
	return true
}

// HasAssets reports whether any native asset has a non-zero quantity.
func (v Value) HasAssets() bool {
	for _, q := range v.Assets {
		if q != 0 {
			return true
		}
	}
	return false
}

// Quantity returns the quantity of an asset class (0 if absent).
func (v Value) Quantity(ac AssetClass) uint64 {
	return v.Assets[ac]
}

// Clone returns a deep copy of the value.
func (v Value) Clone() Value {
	out := Value{Coin: v.Coin}
	if len(v.Assets) > 0 {
		out.Assets = make(MultiAsset, len(v.Assets))
		for ac, q := range v.Assets {
			out.Assets[ac] = q
		}
	}
	return out
}

// WithAsset returns a copy of v with q units of ac added.
func (v Value) WithAsset(ac AssetClass, q uint64) Value {
	out := v.Clone()
	if out.Assets == nil {
		out.Assets = make(MultiAsset)
	}
	out.Assets[ac] += q
	return out
}

// Add returns v + other. Fails on overflow.
func (v Value) Add(other Value) (Value, error) {
	if v.Coin > math.MaxUint64-other.Coin {
		return Value{}, fmt.Errorf("%w: coin", ErrValueOverflow)
	}
	out := v.Clone()
	out.Coin += other.Coin
	for ac, q := range other.Assets {
		if q == 0 {
			continue
		}
		if out.Assets == nil {
			out.Assets = make(MultiAsset)
		}
		if out.Assets[ac] > math.MaxUint64-q {
			return Value{}, fmt.Errorf("%w: %s", ErrValueOverflow, ac)
		}
		out.Assets[ac] += q
	}
	return out, nil
}

// Sub returns v - other. Fails if any component would go negative.
func (v Value) Sub(other Value) (Value, error) {
	if v.Coin < other.Coin {
		return Value{}, fmt.Errorf("%w: coin %d < %d", ErrValueUnderflow, v.Coin, other.Coin)
	}
	out := v.Clone()
	out.Coin -= other.Coin
	for ac, q := range other.Assets {
		if q == 0 {
			continue
		}
		have := out.Assets[ac]
		if have < q {
			return Value{}, fmt.Errorf("%w: %s %d < %d", ErrValueUnderflow, ac, have, q)
		}
		if have == q {
			delete(out.Assets, ac)
		} else {
			out.Assets[ac] = have - q
		}
	}
	return out, nil
}

// Covers reports whether v holds at least as much of every component as other.
func (v Value) Covers(other Value) bool {
	if v.Coin < other.Coin {
		return false
	}
	for ac, q := range other.Assets {
		if v.Assets[ac] < q {
			return false
		}
	}
	return true
}

// Equal reports whether both values hold the same coin and asset quantities.
func (v Value) Equal(other Value) bool {
	return v.Covers(other) && other.Covers(v)
}

// Classes returns the asset classes with non-zero quantity, sorted.
func (v Value) Classes() []AssetClass {
	classes := make([]AssetClass, 0, len(v.Assets))
	for ac, q := range v.Assets {
		if q != 0 {
			classes = append(classes, ac)
		}
	}
	slices.SortFunc(classes, AssetClass.Compare)
	return classes
}

// Mint maps asset classes to signed quantities: positive mints, negative burns.
type Mint map[AssetClass]int64

// Classes returns the asset classes with non-zero quantity, sorted.
func (m Mint) Classes() []AssetClass {
	classes := make([]AssetClass, 0, len(m))
	for ac, q := range m {
		if q != 0 {
			classes = append(classes, ac)
		}
	}
	slices.SortFunc(classes, AssetClass.Compare)
	return classes
}

// Policies returns the distinct policy ids touched by the mint, sorted.
func (m Mint) Policies() []PolicyID {
	seen := make(map[PolicyID]bool)
	var out []PolicyID
	for _, ac := range m.Classes() {
		if !seen[ac.Policy] {
			seen[ac.Policy] = true
			out = append(out, ac.Policy)
		}
	}
	return out
}

// ByPolicy returns the entries of the mint that belong to one policy.
func (m Mint) ByPolicy(policy PolicyID) map[AssetName]int64 {
	out := make(map[AssetName]int64)
	for ac, q := range m {
		if ac.Policy == policy && q != 0 {
			out[ac.Name] = q
		}
	}
	return out
}

// Split separates the mint into the minted (positive) and burned (absolute
// value of negative) parts.
func (m Mint) Split() (minted, burned Value) {
	for ac, q := range m {
		switch {
		case q > 0:
			minted = minted.WithAsset(ac, uint64(q))
		case q < 0:
			burned = burned.WithAsset(ac, uint64(-q))
		}
	}
	return minted, burned
}
