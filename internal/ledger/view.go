// Package ledger implements the ledger the issuance protocol runs against:
// the View interface a client reads and submits through, and an emulator
// that validates transactions, runs the registered scripts and advances in
// blocks.
package ledger

import (
	"context"

	"github.com/Klingon-tech/oneshot/internal/utxo"
	"github.com/Klingon-tech/oneshot/pkg/tx"
	"github.com/Klingon-tech/oneshot/pkg/types"
)

// UTxO is an unspent output as the ledger reports it.
type UTxO = utxo.UTxO

// View is the client's window onto a ledger.
//
// UTxOsAt returns outputs ordered by (TxID, Index). Submit validates a
// transaction and queues it; its outputs become visible only after Advance.
type View interface {
	UTxOsAt(addr types.Address) ([]UTxO, error)
	UTxO(ref types.OutputRef) (UTxO, error)
	Submit(ctx context.Context, t *tx.Transaction) (types.Hash, error)
	Advance(n int) error
	Balance(addr types.Address) (types.Value, error)
	Supply(ac types.AssetClass) (int64, error)
}
