// Package block defines the blocks the ledger emulator produces when it
// advances: a header committing to the previous block and the merkle root
// of the transactions applied at that height.
package block

import (
	"github.com/Klingon-tech/oneshot/pkg/tx"
	"github.com/Klingon-tech/oneshot/pkg/types"
)

// Block represents one ledger advancement.
type Block struct {
	Header       *Header           `json:"header"`
	Transactions []*tx.Transaction `json:"transactions"`
}

// NewBlock creates a new block with the given header and transactions.
func NewBlock(header *Header, txs []*tx.Transaction) *Block {
	return &Block{
		Header:       header,
		Transactions: txs,
	}
}

// Build assembles a block at height on top of prev, filling the merkle root.
func Build(prev types.Hash, height, timestamp uint64, txs []*tx.Transaction) *Block {
	return NewBlock(&Header{
		Version:    CurrentVersion,
		PrevHash:   prev,
		MerkleRoot: ComputeMerkleRoot(TxHashes(txs)),
		Timestamp:  timestamp,
		Height:     height,
		TxCount:    uint32(len(txs)),
	}, txs)
}

// TxHashes returns the ids of txs in order.
func TxHashes(txs []*tx.Transaction) []types.Hash {
	out := make([]types.Hash, len(txs))
	for i, t := range txs {
		out[i] = t.Hash()
	}
	return out
}

// Hash returns the block header hash.
func (b *Block) Hash() types.Hash {
	if b.Header == nil {
		return types.Hash{}
	}
	return b.Header.Hash()
}
