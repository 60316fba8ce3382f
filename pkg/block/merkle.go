package block

import (
	"github.com/Klingon-tech/oneshot/pkg/crypto"
	"github.com/Klingon-tech/oneshot/pkg/types"
)

// ComputeMerkleRoot folds transaction ids into a single root. Each level
// hashes adjacent pairs; an unpaired last node is carried up unchanged, so
// a list and the same list with its last id repeated have different roots.
// No ids give the zero hash.
func ComputeMerkleRoot(txHashes []types.Hash) types.Hash {
	if len(txHashes) == 0 {
		return types.Hash{}
	}
	level := append([]types.Hash(nil), txHashes...)
	for len(level) > 1 {
		n := 0
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				level[n] = level[i]
			} else {
				level[n] = crypto.HashConcat(level[i], level[i+1])
			}
			n++
		}
		level = level[:n]
	}
	return level[0]
}
