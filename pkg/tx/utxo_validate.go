package tx

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/oneshot/config"
	"github.com/Klingon-tech/oneshot/pkg/types"
)

// UTxO-aware validation errors.
var (
	ErrInputNotFound     = errors.New("input UTxO not found")
	ErrMissingWitness    = errors.New("key-locked input has no witness")
	ErrInsufficientFee   = errors.New("insufficient fee")
	ErrInputOverflow     = errors.New("input values overflow")
	ErrCoinNotConserved  = errors.New("coin not conserved")
	ErrAssetNotConserved = errors.New("native asset not conserved")
	ErrMintOverflow      = errors.New("mint quantities overflow")
)

// UTxOProvider provides read-only access to the UTxO set for validation.
type UTxOProvider interface {
	GetOutput(ref types.OutputRef) (Output, bool)
}

// ResolvedInput is an input together with the output it spends.
type ResolvedInput struct {
	Ref    types.OutputRef
	Output Output
}

// ValidateWithUTXOs performs the phase-one checks of a transaction against
// the UTxO set: structure, input existence, witnesses covering every
// key-locked input, minimum fee, and value conservation
//
//	sum(inputs) + minted = sum(outputs) + fee + burned
//
// Scripts are not run here. Returns the resolved inputs in input order.
func (tx *Transaction) ValidateWithUTXOs(p config.Protocol, provider UTxOProvider) ([]ResolvedInput, error) {
	if err := tx.Validate(p); err != nil {
		return nil, err
	}

	resolved := make([]ResolvedInput, 0, len(tx.Inputs))
	var totalIn types.Value
	for i, in := range tx.Inputs {
		out, ok := provider.GetOutput(in)
		if !ok {
			return nil, fmt.Errorf("input %d (%s): %w", i, in, ErrInputNotFound)
		}
		sum, err := totalIn.Add(out.Value)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, ErrInputOverflow)
		}
		totalIn = sum
		resolved = append(resolved, ResolvedInput{Ref: in, Output: out})
	}

	signed, err := tx.VerifyWitnesses()
	if err != nil {
		return nil, err
	}
	for i, r := range resolved {
		if r.Output.Address.IsScript() {
			continue
		}
		if !signed[r.Output.Address.Hash] {
			return nil, fmt.Errorf("input %d (%s): %w", i, r.Ref, ErrMissingWitness)
		}
	}

	if min := RequiredFee(tx, p); tx.Fee < min {
		return nil, fmt.Errorf("%w: fee %d, min %d", ErrInsufficientFee, tx.Fee, min)
	}

	if err := tx.checkConservation(totalIn); err != nil {
		return nil, err
	}
	return resolved, nil
}

func (tx *Transaction) checkConservation(totalIn types.Value) error {
	minted, burned := tx.Mint.Split()
	produced, err := tx.TotalOutputValue()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOutputOverflow, err)
	}

	lhs, err := totalIn.Add(minted)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMintOverflow, err)
	}
	rhs, err := produced.Add(burned)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMintOverflow, err)
	}
	rhs, err = rhs.Add(types.Coin(tx.Fee))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOutputOverflow, err)
	}

	if lhs.Coin != rhs.Coin {
		return fmt.Errorf("%w: consumed %d, produced %d (fee %d)", ErrCoinNotConserved, lhs.Coin, rhs.Coin, tx.Fee)
	}
	seen := make(map[types.AssetClass]bool)
	for _, v := range []types.Value{lhs, rhs} {
		for _, ac := range v.Classes() {
			if seen[ac] {
				continue
			}
			seen[ac] = true
			if lhs.Quantity(ac) != rhs.Quantity(ac) {
				return &AssetImbalance{Asset: ac, Consumed: lhs.Quantity(ac), Produced: rhs.Quantity(ac)}
			}
		}
	}
	return nil
}

// AssetImbalance reports which native asset failed conservation.
type AssetImbalance struct {
	Asset    types.AssetClass
	Consumed uint64
	Produced uint64
}

func (e *AssetImbalance) Error() string {
	return fmt.Sprintf("%v: %s consumed %d, produced %d", ErrAssetNotConserved, e.Asset, e.Consumed, e.Produced)
}

// Unwrap lets errors.Is match ErrAssetNotConserved.
func (e *AssetImbalance) Unwrap() error { return ErrAssetNotConserved }
