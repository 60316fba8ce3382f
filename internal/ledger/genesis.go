package ledger

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Klingon-tech/oneshot/config"
	"github.com/Klingon-tech/oneshot/pkg/block"
	"github.com/Klingon-tech/oneshot/pkg/tx"
	"github.com/Klingon-tech/oneshot/pkg/types"
)

// ErrEmptyAllocation is returned for a genesis account funded with nothing.
var ErrEmptyAllocation = errors.New("genesis account has no value")

// GenesisAccount is one output created before the first block.
type GenesisAccount struct {
	Address types.Address
	Value   types.Value
}

// GenesisFromConfig turns the allocations of a genesis file into accounts,
// sorted by address so the genesis transaction is deterministic.
func GenesisFromConfig(g *config.Genesis) ([]GenesisAccount, error) {
	if g == nil {
		return nil, fmt.Errorf("genesis config is nil")
	}
	addrs := make([]string, 0, len(g.Alloc))
	for addr := range g.Alloc {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	accounts := make([]GenesisAccount, 0, len(addrs))
	for _, s := range addrs {
		addr, err := types.ParseAddress(s)
		if err != nil {
			return nil, fmt.Errorf("invalid alloc address %q: %w", s, err)
		}
		accounts = append(accounts, GenesisAccount{Address: addr, Value: types.Coin(g.Alloc[s])})
	}
	return accounts, nil
}

// genesisTx builds the transaction that creates one output per account, in
// order. It has no inputs, so it only ever appears in block 0 and is never
// run through validation.
func genesisTx(accounts []GenesisAccount) (*tx.Transaction, error) {
	genesis := &tx.Transaction{}
	for i, acc := range accounts {
		if acc.Address.IsZero() {
			return nil, fmt.Errorf("genesis account %d: empty address", i)
		}
		if acc.Value.IsZero() {
			return nil, fmt.Errorf("genesis account %d (%s): %w", i, acc.Address, ErrEmptyAllocation)
		}
		genesis.Outputs = append(genesis.Outputs, tx.Output{Address: acc.Address, Value: acc.Value.Clone()})
	}
	return genesis, nil
}

// genesisBlock builds block 0 with a zero parent.
func genesisBlock(accounts []GenesisAccount, timestamp uint64) (*block.Block, error) {
	genesis, err := genesisTx(accounts)
	if err != nil {
		return nil, err
	}
	return block.Build(types.Hash{}, 0, timestamp, []*tx.Transaction{genesis}), nil
}
