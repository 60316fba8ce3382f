package utxo

import (
	"encoding/binary"
	"fmt"
	"slices"

	"github.com/Klingon-tech/oneshot/pkg/block"
	"github.com/Klingon-tech/oneshot/pkg/crypto"
	"github.com/Klingon-tech/oneshot/pkg/plutus"
	"github.com/Klingon-tech/oneshot/pkg/types"
)

// Commitment computes a merkle root over all UTxOs in the store.
// Each UTxO is hashed deterministically, the hashes are sorted, and
// a merkle tree is built from them. Returns a zero hash for an empty set.
func Commitment(store *Store) (types.Hash, error) {
	var hashes []types.Hash

	err := store.ForEach(func(u *UTxO) error {
		hashes = append(hashes, hashUTxO(u))
		return nil
	})
	if err != nil {
		return types.Hash{}, fmt.Errorf("utxo commitment: %w", err)
	}

	if len(hashes) == 0 {
		return types.Hash{}, nil
	}

	slices.SortFunc(hashes, func(a, b types.Hash) int {
		return slices.Compare(a[:], b[:])
	})
	return block.ComputeMerkleRoot(hashes), nil
}

// hashUTxO produces a deterministic BLAKE3 hash of a UTxO.
// Format: txid(32) | index(4) | address(29) | coin(8) | [asset qty(8)]... | datum
func hashUTxO(u *UTxO) types.Hash {
	var buf []byte
	buf = append(buf, u.Ref.TxID[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, u.Ref.Index)
	buf = append(buf, u.Output.Address.Bytes()...)
	buf = binary.LittleEndian.AppendUint64(buf, u.Output.Value.Coin)
	for _, ac := range u.Output.Value.Classes() {
		buf = append(buf, ac.Unit()...)
		buf = binary.LittleEndian.AppendUint64(buf, u.Output.Value.Assets[ac])
	}
	if u.Output.Datum != nil {
		if d, err := plutus.Encode(u.Output.Datum); err == nil {
			buf = append(buf, d...)
		}
	}
	return crypto.Hash(buf)
}
