// Package token keeps the ledger's native asset supply book.
//
// Every mint or burn accepted into a block moves the net supply of its asset
// class. The book also keeps lifetime totals, so an asset that was minted
// once and burned once reads as supply 0 with minted 1, burned 1.
package token

import (
	"errors"

	"github.com/Klingon-tech/oneshot/pkg/types"
)

// Supply book errors.
var (
	ErrNegativeSupply = errors.New("burn exceeds circulating supply")
	ErrSupplyOverflow = errors.New("supply overflow")
)

// Record is the supply state of one asset class.
type Record struct {
	Asset     types.AssetClass `json:"asset"`
	Supply    int64            `json:"supply"`
	Minted    uint64           `json:"minted"`
	Burned    uint64           `json:"burned"`
	FirstMint types.Hash       `json:"first_mint"` // Transaction that first minted the asset
	Height    uint64           `json:"height"`     // Height of the last change
}

// Event is one transaction's mint field as it lands in a block.
type Event struct {
	TxID types.Hash
	Mint types.Mint
}
