package protocol

import (
	"fmt"

	"github.com/Klingon-tech/oneshot/config"
	"github.com/Klingon-tech/oneshot/internal/ledger"
	"github.com/Klingon-tech/oneshot/pkg/plutus"
	"github.com/Klingon-tech/oneshot/pkg/tx"
	"github.com/Klingon-tech/oneshot/pkg/types"
)

// RedeemRequest describes the redeem transaction of a run.
type RedeemRequest struct {
	Context     Context
	Locked      []ledger.UTxO // Outputs at the lock address
	Holder      types.Address // Receives everything released
	HolderUTxOs []ledger.UTxO
	Burn        int64 // 0 means -1
	Params      config.Protocol
}

// BuildRedeem returns the unsigned redeem transaction. It spends every
// locked output, burns one unit of the token and pays the released value
// to the holder. The holder output carrying the token is spent first when
// there is one; without it the transaction is still built and the ledger
// refuses it.
func BuildRedeem(req RedeemRequest) (*tx.Transaction, error) {
	if len(req.Locked) == 0 {
		return nil, ErrNoLockedFunds
	}
	burn := req.Burn
	if burn == 0 {
		burn = -1
	}
	if burn != -1 {
		return nil, fmt.Errorf("%w: got %d", ErrBurnMismatch, burn)
	}

	ac := req.Context.AssetClass
	b := tx.NewBuilder()
	for _, u := range req.Locked {
		if u.Output.Address != req.Context.LockAddress {
			return nil, fmt.Errorf("%w: %s at %s", ErrNotLocked, u.Ref, u.Output.Address)
		}
		b.AddScriptInput(u.Ref, plutus.Void())
	}
	consumed, err := sumValues(req.Locked)
	if err != nil {
		return nil, err
	}
	for _, u := range req.HolderUTxOs {
		if u.Output.Value.Quantity(ac) == 0 {
			continue
		}
		b.AddInput(u.Ref)
		if consumed, err = consumed.Add(u.Output.Value); err != nil {
			return nil, err
		}
		break
	}

	t := b.
		MintAsset(ac, burn, plutus.BurnRedeemer.Data()).
		AttachScript(req.Context.Minting.Script()).
		AttachScript(req.Context.Spending.Script()).
		Build()

	if err := settle(t, consumed, req.HolderUTxOs, req.Holder, req.Params); err != nil {
		return nil, err
	}
	return t, nil
}
