package block

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/oneshot/config"
	"github.com/Klingon-tech/oneshot/pkg/types"
)

// Validation errors.
var (
	ErrNilHeader           = errors.New("block has nil header")
	ErrBadMerkleRoot       = errors.New("merkle root mismatch")
	ErrBadVersion          = errors.New("unsupported block version")
	ErrBadTxCount          = errors.New("header tx count mismatch")
	ErrDuplicateBlockInput = errors.New("duplicate input across transactions in block")
)

// Block version constants.
const (
	CurrentVersion = 1 // The current block version produced by this software.
	MaxVersion     = 1 // Bump when a new block version is introduced.
)

// Validate checks block structure and internal consistency. Empty blocks
// are valid: the ledger may advance with nothing pending.
func (b *Block) Validate(p config.Protocol) error {
	if b.Header == nil {
		return ErrNilHeader
	}

	if b.Header.Version < 1 || b.Header.Version > MaxVersion {
		return fmt.Errorf("%w: got %d, want 1..%d", ErrBadVersion, b.Header.Version, MaxVersion)
	}

	if int(b.Header.TxCount) != len(b.Transactions) {
		return fmt.Errorf("%w: header=%d body=%d", ErrBadTxCount, b.Header.TxCount, len(b.Transactions))
	}

	// Verify merkle root.
	expectedRoot := ComputeMerkleRoot(TxHashes(b.Transactions))
	if b.Header.MerkleRoot != expectedRoot {
		return fmt.Errorf("%w: header=%s computed=%s", ErrBadMerkleRoot, b.Header.MerkleRoot, expectedRoot)
	}

	// Validate each transaction structurally.
	for i, t := range b.Transactions {
		if err := t.Validate(p); err != nil {
			return fmt.Errorf("tx %d: %w", i, err)
		}
	}

	// Check for duplicate inputs across different transactions in the block.
	// (Per-tx duplicates are caught by tx.Validate above.)
	allInputs := make(map[types.OutputRef]int) // ref -> tx index
	for i, t := range b.Transactions {
		for _, in := range t.Inputs {
			if prevTx, exists := allInputs[in]; exists {
				return fmt.Errorf("tx %d: %w: %s also spent in tx %d",
					i, ErrDuplicateBlockInput, in, prevTx)
			}
			allInputs[in] = i
		}
	}

	return nil
}
