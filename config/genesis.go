package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/Klingon-tech/oneshot/pkg/crypto"
	"github.com/Klingon-tech/oneshot/pkg/types"
)

// Genesis holds the initial ledger state: the protocol parameters and the
// coin allocated to each address before the first block.
type Genesis struct {
	ChainID   string `json:"chain_id"`
	Timestamp uint64 `json:"timestamp"`

	// Initial allocations (bech32 or hex address -> lovelace)
	Alloc map[string]uint64 `json:"alloc"`

	Protocol Protocol `json:"protocol"`
}

// TestnetMnemonic is the well-known BIP-39 test phrase. Accounts derived
// from it are for tests and local emulation only.
const TestnetMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon art"

// MainnetGenesis returns an empty mainnet genesis with default parameters.
func MainnetGenesis() *Genesis {
	return &Genesis{
		ChainID:   "oneshot-mainnet-1",
		Timestamp: 1770734103,
		Alloc:     map[string]uint64{},
		Protocol:  DefaultProtocol(),
	}
}

// TestnetGenesis returns the testnet genesis. Allocations are added by the
// harness that drives the emulator.
func TestnetGenesis() *Genesis {
	g := MainnetGenesis()
	g.ChainID = "oneshot-testnet-1"
	return g
}

// GenesisFor returns the genesis config for the given network.
func GenesisFor(network NetworkType) *Genesis {
	switch network {
	case Mainnet:
		return MainnetGenesis()
	default:
		return TestnetGenesis()
	}
}

// =============================================================================
// Genesis file I/O
// =============================================================================

// LoadGenesis loads genesis configuration from a file.
func LoadGenesis(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading genesis file: %w", err)
	}

	var g Genesis
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parsing genesis file: %w", err)
	}

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid genesis: %w", err)
	}

	return &g, nil
}

// Save writes the genesis configuration to a file.
func (g *Genesis) Save(path string) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding genesis: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing genesis file: %w", err)
	}

	return nil
}

// Validate checks that the genesis configuration is valid.
func (g *Genesis) Validate() error {
	if g.ChainID == "" {
		return fmt.Errorf("chain_id is required")
	}
	if err := g.Protocol.Validate(); err != nil {
		return fmt.Errorf("protocol: %w", err)
	}

	var totalAlloc uint64
	for addrStr, v := range g.Alloc {
		if _, err := types.ParseAddress(addrStr); err != nil {
			return fmt.Errorf("invalid alloc address %q: %w", addrStr, err)
		}
		if v < g.Protocol.MinUTxOCoin {
			return fmt.Errorf("alloc %q: %d below min_utxo %d", addrStr, v, g.Protocol.MinUTxOCoin)
		}
		if totalAlloc > math.MaxUint64-v {
			return fmt.Errorf("genesis allocations overflow")
		}
		totalAlloc += v
	}
	return nil
}

// Hash returns a BLAKE3 hash of the genesis configuration.
// Used as the parent of the first emulated block.
func (g *Genesis) Hash() (types.Hash, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return types.Hash{}, err
	}
	return crypto.Hash(data), nil
}
