package wallet

import (
	"fmt"

	"github.com/Klingon-tech/oneshot/internal/log"
	"github.com/Klingon-tech/oneshot/pkg/crypto"
	"github.com/Klingon-tech/oneshot/pkg/types"
)

// Account is a signing key and the key address it controls. It satisfies
// crypto.Signer, so it can witness transactions directly.
type Account struct {
	Index   uint32
	Name    string
	Address types.Address
	key     *crypto.PrivateKey
}

// NewAccount wraps an existing key.
func NewAccount(name string, key *crypto.PrivateKey) *Account {
	return &Account{Name: name, Address: key.Address(), key: key}
}

// GenerateAccount creates an account with a fresh random key.
func GenerateAccount(name string) (*Account, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return NewAccount(name, key), nil
}

// AccountFromMnemonic derives the external key at the given account index.
func AccountFromMnemonic(mnemonic, passphrase string, index uint32) (*Account, error) {
	accounts, err := AccountsFromMnemonic(mnemonic, passphrase, index+1)
	if err != nil {
		return nil, err
	}
	return accounts[index], nil
}

// AccountsFromMnemonic derives the first n accounts of a mnemonic.
func AccountsFromMnemonic(mnemonic, passphrase string, n uint32) ([]*Account, error) {
	seed, err := SeedFromMnemonic(mnemonic, passphrase)
	if err != nil {
		return nil, err
	}
	master, err := NewMasterKey(seed)
	if err != nil {
		return nil, err
	}

	out := make([]*Account, 0, n)
	for i := uint32(0); i < n; i++ {
		hd, err := master.DeriveAccountKey(i, RoleExternal, 0)
		if err != nil {
			return nil, fmt.Errorf("account %d: %w", i, err)
		}
		key, err := hd.Signer()
		if err != nil {
			return nil, fmt.Errorf("account %d: %w", i, err)
		}
		acc := NewAccount(fmt.Sprintf("account-%d", i), key)
		acc.Index = i
		out = append(out, acc)
		log.Wallet.Debug().Uint32("index", i).Str("address", acc.Address.String()).Msg("derived account")
	}
	return out, nil
}

// Sign implements crypto.Signer.
func (a *Account) Sign(hash []byte) ([]byte, error) {
	return a.key.Sign(hash)
}

// PublicKey implements crypto.Signer.
func (a *Account) PublicKey() []byte {
	return a.key.PublicKey()
}

var _ crypto.Signer = (*Account)(nil)
