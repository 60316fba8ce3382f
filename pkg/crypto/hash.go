// Package crypto provides the hashing and signing primitives of the ledger.
//
// Two hash families are used:
//   - BLAKE3-256 for transaction ids, block hashes and merkle trees.
//   - BLAKE2b-224 for payment credentials and script (policy) hashes.
package crypto

import (
	"github.com/Klingon-tech/oneshot/pkg/types"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
)

// Script language tags prefixed to a script before hashing.
const (
	LangNative   byte = 0x00
	LangPlutusV1 byte = 0x01
	LangPlutusV2 byte = 0x02
)

// Hash computes a BLAKE3-256 hash of the input data.
func Hash(data []byte) types.Hash {
	return blake3.Sum256(data)
}

// HashConcat hashes the concatenation of two hashes.
// Used for building merkle trees.
func HashConcat(a, b types.Hash) types.Hash {
	var buf [64]byte
	copy(buf[:32], a[:])
	copy(buf[32:], b[:])
	return Hash(buf[:])
}

// Hash224 computes a BLAKE2b-224 digest.
func Hash224(data []byte) [types.CredentialSize]byte {
	h, err := blake2b.New(types.CredentialSize, nil)
	if err != nil {
		// Only fails for sizes > 64 or oversized keys.
		panic(err)
	}
	h.Write(data)
	var out [types.CredentialSize]byte
	copy(out[:], h.Sum(nil))
	return out
}

// KeyHash derives the payment credential of a compressed public key.
func KeyHash(pubKey []byte) [types.CredentialSize]byte {
	return Hash224(pubKey)
}

// AddressFromPubKey derives the key address of a compressed public key.
func AddressFromPubKey(pubKey []byte) types.Address {
	return types.KeyAddress(KeyHash(pubKey))
}

// ScriptHash computes BLAKE2b-224(lang || script), the ledger's script hash.
// For minting policies the result is the policy id.
func ScriptHash(lang byte, script []byte) types.PolicyID {
	buf := make([]byte, 0, 1+len(script))
	buf = append(buf, lang)
	buf = append(buf, script...)
	return types.PolicyID(Hash224(buf))
}
