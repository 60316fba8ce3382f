package token

import (
	"fmt"

	"github.com/Klingon-tech/oneshot/internal/utxo"
	"github.com/Klingon-tech/oneshot/pkg/types"
)

// Held sums the quantity of an asset class across the whole UTxO set. For a
// consistent ledger it equals the book's supply.
func Held(set *utxo.Store, ac types.AssetClass) (uint64, error) {
	var total uint64
	err := set.ForEach(func(u *utxo.UTxO) error {
		q := u.Output.Value.Quantity(ac)
		if total+q < total {
			return fmt.Errorf("%s: %w", ac, ErrSupplyOverflow)
		}
		total += q
		return nil
	})
	return total, err
}

// Audit checks every record against the UTxO set.
func Audit(book *Store, set *utxo.Store) error {
	return book.ForEach(func(r Record) error {
		held, err := Held(set, r.Asset)
		if err != nil {
			return err
		}
		if r.Supply < 0 || uint64(r.Supply) != held {
			return fmt.Errorf("supply book says %d of %s, utxo set holds %d", r.Supply, r.Asset, held)
		}
		return nil
	})
}
