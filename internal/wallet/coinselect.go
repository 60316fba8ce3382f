package wallet

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Klingon-tech/oneshot/internal/utxo"
	"github.com/Klingon-tech/oneshot/pkg/types"
)

// Coin selection errors.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNoUTxOs           = errors.New("no UTxOs available")
)

// CoinSelection holds the result of coin selection.
type CoinSelection struct {
	Inputs []utxo.UTxO // Selected UTxOs to spend
	Total  types.Value // Sum of selected input values, assets included
	Change types.Value // Total minus the coin target; carries any assets
}

// SelectCoins chooses UTxOs whose coin covers target. It tries two
// strategies and keeps the one with less coin change:
//  1. Single UTxO: the smallest one that covers the target.
//  2. Largest-first accumulation.
//
// Pure-coin outputs are used first; outputs carrying native assets are only
// drawn on when pure coin cannot cover the target, and their assets flow
// into the change.
func SelectCoins(utxos []utxo.UTxO, target uint64) (*CoinSelection, error) {
	if target == 0 {
		return nil, fmt.Errorf("target must be positive")
	}
	var pure, all []utxo.UTxO
	for _, u := range utxos {
		if u.Output.Value.Coin == 0 {
			continue
		}
		all = append(all, u)
		if !u.Output.Value.HasAssets() {
			pure = append(pure, u)
		}
	}
	if len(all) == 0 {
		return nil, ErrNoUTxOs
	}

	if sel := selectFrom(pure, target); sel != nil {
		return sel.finish(target)
	}
	if sel := selectFrom(all, target); sel != nil {
		return sel.finish(target)
	}
	return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, totalCoin(all), target)
}

func selectFrom(candidates []utxo.UTxO, target uint64) *CoinSelection {
	if len(candidates) == 0 {
		return nil
	}
	sorted := make([]utxo.UTxO, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Output.Value.Coin < sorted[j].Output.Value.Coin
	})

	var single []utxo.UTxO
	var singleTotal uint64
	for _, u := range sorted {
		if u.Output.Value.Coin >= target {
			single, singleTotal = []utxo.UTxO{u}, u.Output.Value.Coin
			break // Sorted ascending, first match is smallest.
		}
	}

	var accum []utxo.UTxO
	var total uint64
	for i := len(sorted) - 1; i >= 0; i-- {
		accum = append(accum, sorted[i])
		total += sorted[i].Output.Value.Coin
		if total >= target {
			break
		}
	}
	if total < target {
		accum = nil
	}

	switch {
	case single != nil && accum != nil:
		if singleTotal <= total {
			return &CoinSelection{Inputs: single}
		}
		return &CoinSelection{Inputs: accum}
	case single != nil:
		return &CoinSelection{Inputs: single}
	case accum != nil:
		return &CoinSelection{Inputs: accum}
	default:
		return nil
	}
}

func (s *CoinSelection) finish(target uint64) (*CoinSelection, error) {
	for _, u := range s.Inputs {
		sum, err := s.Total.Add(u.Output.Value)
		if err != nil {
			return nil, err
		}
		s.Total = sum
	}
	change, err := s.Total.Sub(types.Coin(target))
	if err != nil {
		return nil, err
	}
	s.Change = change
	return s, nil
}

func totalCoin(utxos []utxo.UTxO) uint64 {
	var total uint64
	for _, u := range utxos {
		total += u.Output.Value.Coin
	}
	return total
}

// Refs returns the references of the selected inputs.
func (s *CoinSelection) Refs() []types.OutputRef {
	out := make([]types.OutputRef, len(s.Inputs))
	for i, u := range s.Inputs {
		out[i] = u.Ref
	}
	return out
}
