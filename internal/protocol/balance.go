package protocol

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/oneshot/config"
	"github.com/Klingon-tech/oneshot/internal/ledger"
	"github.com/Klingon-tech/oneshot/internal/wallet"
	"github.com/Klingon-tech/oneshot/pkg/tx"
	"github.com/Klingon-tech/oneshot/pkg/types"
)

// settle balances t: it pulls key-locked inputs from funds until the coin
// consumed covers the outputs, the fee and a change output, then appends
// the change output and sets the fee. consumed is the value of the inputs
// already in t. The fee is priced for a single witness.
//
// Change assets are consumed + minted - burned - produced, clamped at zero
// per asset. A transaction that burns an asset it does not hold is still
// built; the ledger rejects it on conservation.
func settle(t *tx.Transaction, consumed types.Value, funds []ledger.UTxO, change types.Address, p config.Protocol) error {
	used := make(map[types.OutputRef]bool, len(t.Inputs))
	for _, in := range t.Inputs {
		used[in] = true
	}

	produced, err := t.TotalOutputValue()
	if err != nil {
		return err
	}
	minted, burned := t.Mint.Split()

	changeIdx := len(t.Outputs)
	t.Outputs = append(t.Outputs, tx.Output{Address: change})

	for {
		t.Outputs[changeIdx].Value = changeAssets(consumed, minted, burned, produced)
		t.Fee = tx.MinFee(t, p, 1)

		need := produced.Coin + t.Fee + p.MinUTxOCoin
		if consumed.Coin >= need {
			t.Outputs[changeIdx].Value.Coin = consumed.Coin - produced.Coin - t.Fee
			return nil
		}

		var avail []ledger.UTxO
		for _, u := range funds {
			if !used[u.Ref] && !u.Output.Address.IsScript() {
				avail = append(avail, u)
			}
		}
		sel, err := wallet.SelectCoins(avail, need-consumed.Coin)
		if err != nil {
			if errors.Is(err, wallet.ErrNoUTxOs) || errors.Is(err, wallet.ErrInsufficientFunds) {
				return fmt.Errorf("%w: need %d, have %d: %v", ErrInsufficientFunds, need, consumed.Coin, err)
			}
			return err
		}
		for _, u := range sel.Inputs {
			used[u.Ref] = true
			t.Inputs = append(t.Inputs, u.Ref)
		}
		if consumed, err = consumed.Add(sel.Total); err != nil {
			return err
		}
	}
}

func changeAssets(consumed, minted, burned, produced types.Value) types.Value {
	var out types.Value
	seen := make(map[types.AssetClass]bool)
	for _, v := range []types.Value{consumed, minted} {
		for _, ac := range v.Classes() {
			if seen[ac] {
				continue
			}
			seen[ac] = true
			have := consumed.Quantity(ac) + minted.Quantity(ac)
			spent := burned.Quantity(ac) + produced.Quantity(ac)
			if have > spent {
				out = out.WithAsset(ac, have-spent)
			}
		}
	}
	return out
}

func sumValues(utxos []ledger.UTxO) (types.Value, error) {
	var total types.Value
	for _, u := range utxos {
		sum, err := total.Add(u.Output.Value)
		if err != nil {
			return types.Value{}, err
		}
		total = sum
	}
	return total, nil
}
