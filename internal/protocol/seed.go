package protocol

import "github.com/Klingon-tech/oneshot/internal/ledger"

// SelectSeed picks the output a mint will consume: the first one, in the
// order the ledger returned them. Assets on the seed go back as change.
func SelectSeed(utxos []ledger.UTxO) (ledger.UTxO, error) {
	if len(utxos) == 0 {
		return ledger.UTxO{}, ErrNoFunds
	}
	return utxos[0], nil
}
