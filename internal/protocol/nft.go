package protocol

import (
	"fmt"

	"github.com/Klingon-tech/oneshot/config"
	"github.com/Klingon-tech/oneshot/internal/ledger"
	"github.com/Klingon-tech/oneshot/pkg/plutus"
	"github.com/Klingon-tech/oneshot/pkg/tx"
	"github.com/Klingon-tech/oneshot/pkg/types"
)

// NFTMintRequest describes a stand-alone NFT mint.
type NFTMintRequest struct {
	Context   NFTContext
	Seed      ledger.UTxO
	Funds     []ledger.UTxO
	Owner     types.Address
	Recipient *types.Address // Defaults to Owner
	Quantity  int64          // 0 means 1
	Params    config.Protocol
}

// BuildNFTMint returns the unsigned NFT mint: the seed first, the NFT in
// its own output and change to the owner.
func BuildNFTMint(req NFTMintRequest) (*tx.Transaction, error) {
	q := req.Quantity
	if q == 0 {
		q = 1
	}
	if q != 1 {
		return nil, fmt.Errorf("%w: got %d", ErrMintQuantity, q)
	}
	if req.Seed.Ref != req.Context.Seed {
		return nil, fmt.Errorf("%w: have %s, context %s", ErrSeedMismatch, req.Seed.Ref, req.Context.Seed)
	}
	to := req.Owner
	if req.Recipient != nil {
		to = *req.Recipient
	}

	ac := req.Context.AssetClass
	t := tx.NewBuilder().
		AddInput(req.Seed.Ref).
		AddOutput(to, types.Coin(req.Params.MinUTxOCoin).WithAsset(ac, uint64(q))).
		MintAsset(ac, q, plutus.Void()).
		AttachScript(req.Context.Policy.Script()).
		Build()

	if err := settle(t, req.Seed.Output.Value, req.Funds, req.Owner, req.Params); err != nil {
		return nil, err
	}
	return t, nil
}
