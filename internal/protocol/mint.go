package protocol

import (
	"fmt"

	"github.com/Klingon-tech/oneshot/config"
	"github.com/Klingon-tech/oneshot/internal/ledger"
	"github.com/Klingon-tech/oneshot/pkg/plutus"
	"github.com/Klingon-tech/oneshot/pkg/tx"
	"github.com/Klingon-tech/oneshot/pkg/types"
)

// MintRequest describes the mint transaction of a run.
type MintRequest struct {
	Context     Context
	Seed        ledger.UTxO   // Must be Context.Seed
	Funds       []ledger.UTxO // Owner outputs available for fees and the locked value
	Owner       types.Address // Receives the change and, without Recipient, the token
	LockedValue uint64
	Recipient   *types.Address // Optional; gets the token instead of the owner
	Params      config.Protocol
}

// BuildMint returns the unsigned mint transaction. The seed is always the
// first input and the locked output is always the first output, carrying
// LockedValue and a unit datum. The token goes to its own output when a
// recipient is given, otherwise it rides in the owner's change.
func BuildMint(req MintRequest) (*tx.Transaction, error) {
	if req.LockedValue == 0 {
		return nil, ErrZeroLockedValue
	}
	if req.LockedValue < req.Params.MinUTxOCoin {
		return nil, fmt.Errorf("%w: %d < %d", ErrBelowMinUTxO, req.LockedValue, req.Params.MinUTxOCoin)
	}
	if req.Seed.Ref != req.Context.Seed {
		return nil, fmt.Errorf("%w: have %s, context %s", ErrSeedMismatch, req.Seed.Ref, req.Context.Seed)
	}

	ac := req.Context.AssetClass
	b := tx.NewBuilder().
		AddInput(req.Seed.Ref).
		AddOutputWithDatum(req.Context.LockAddress, types.Coin(req.LockedValue), plutus.Void())
	if req.Recipient != nil {
		b.AddOutput(*req.Recipient, types.Coin(req.Params.MinUTxOCoin).WithAsset(ac, 1))
	}
	t := b.
		MintAsset(ac, 1, plutus.MintRedeemer.Data()).
		AttachScript(req.Context.Minting.Script()).
		Build()

	if err := settle(t, req.Seed.Output.Value, req.Funds, req.Owner, req.Params); err != nil {
		return nil, err
	}
	return t, nil
}
