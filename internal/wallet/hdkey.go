package wallet

import (
	"fmt"

	"github.com/tyler-smith/go-bip32"

	"github.com/Klingon-tech/oneshot/pkg/crypto"
	"github.com/Klingon-tech/oneshot/pkg/types"
)

// Derivation path constants.
// Full path: m/1852'/1815'/account'/role/index
const (
	PurposeCIP1852 = bip32.FirstHardenedChild + 1852
	CoinTypeADA    = bip32.FirstHardenedChild + 1815

	RoleExternal = 0 // Receiving addresses
	RoleInternal = 1 // Change addresses
)

// HDKey is a hierarchical deterministic key (BIP-32).
type HDKey struct {
	key *bip32.Key
}

// NewMasterKey creates a master HD key from a 64-byte seed.
func NewMasterKey(seed []byte) (*HDKey, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("create master key: %w", err)
	}
	return &HDKey{key: master}, nil
}

// DerivePath derives a key along a sequence of indices. Add
// bip32.FirstHardenedChild to an index for hardened derivation.
func (k *HDKey) DerivePath(indices ...uint32) (*HDKey, error) {
	current := k.key
	for _, idx := range indices {
		child, err := current.NewChildKey(idx)
		if err != nil {
			return nil, fmt.Errorf("derive child %d: %w", idx, err)
		}
		current = child
	}
	return &HDKey{key: current}, nil
}

// DeriveAccountKey derives m/1852'/1815'/account'/role/index.
func (k *HDKey) DeriveAccountKey(account, role, index uint32) (*HDKey, error) {
	return k.DerivePath(
		PurposeCIP1852,
		CoinTypeADA,
		bip32.FirstHardenedChild+account,
		role,
		index,
	)
}

// privateKeyBytes returns the 32-byte scalar, or nil for a public-only key.
func (k *HDKey) privateKeyBytes() []byte {
	if !k.key.IsPrivate {
		return nil
	}
	// bip32 pads private keys to 33 bytes with a leading zero.
	raw := k.key.Key
	if len(raw) == 33 && raw[0] == 0 {
		return raw[1:]
	}
	return raw
}

// PublicKeyBytes returns the compressed 33-byte public key.
func (k *HDKey) PublicKeyBytes() []byte {
	return k.key.PublicKey().Key
}

// Signer returns the Schnorr signer for this key.
func (k *HDKey) Signer() (*crypto.PrivateKey, error) {
	priv := k.privateKeyBytes()
	if priv == nil {
		return nil, fmt.Errorf("cannot create signer from public key")
	}
	return crypto.PrivateKeyFromBytes(priv)
}

// Address returns the key address: the BLAKE2b-224 hash of the public key.
func (k *HDKey) Address() types.Address {
	return crypto.AddressFromPubKey(k.PublicKeyBytes())
}

// IsPrivate reports whether the key holds a private key.
func (k *HDKey) IsPrivate() bool {
	return k.key.IsPrivate
}

// Neuter returns a public-key-only copy.
func (k *HDKey) Neuter() *HDKey {
	return &HDKey{key: k.key.PublicKey()}
}
