// Package config handles ledger and protocol configuration.
//
// Configuration is split into two categories:
//   - Protocol parameters: fee model and limits the ledger enforces
//   - Runtime settings: data directory, storage backend, logging
package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/Klingon-tech/oneshot/pkg/types"
)

// NetworkType identifies mainnet or testnet.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// AddressHRP returns the bech32 prefix used for addresses on the network.
func (n NetworkType) AddressHRP() string {
	if n == Mainnet {
		return types.MainnetHRP
	}
	return types.TestnetHRP
}

// StorageBackend selects the key-value store behind the ledger.
type StorageBackend string

const (
	StorageMemory StorageBackend = "memory"
	StorageBadger StorageBackend = "badger"
)

// Denomination. 1 ADA = 10^6 lovelace; all values are in lovelace.
const (
	Lovelace uint64 = 1
	ADA      uint64 = 1_000_000
)

// =============================================================================
// Protocol parameters
// =============================================================================

// Protocol holds the ledger parameters builders and validators must agree on.
type Protocol struct {
	FeeA        uint64 `json:"fee_a" conf:"protocol.fee_a"`             // Lovelace per byte
	FeeB        uint64 `json:"fee_b" conf:"protocol.fee_b"`             // Constant lovelace per tx
	MinUTxOCoin uint64 `json:"min_utxo" conf:"protocol.min_utxo"`       // Minimum coin carried by any output
	MaxTxSize   int    `json:"max_tx_size" conf:"protocol.max_tx_size"` // Body plus scripts plus witnesses
	MaxInputs   int    `json:"max_inputs" conf:"protocol.max_inputs"`
	MaxOutputs  int    `json:"max_outputs" conf:"protocol.max_outputs"`
}

// MinFee returns FeeA * size + FeeB.
func (p Protocol) MinFee(size int) uint64 {
	return p.FeeA*uint64(size) + p.FeeB
}

// =============================================================================
// Runtime configuration
// =============================================================================

// Config holds the ledger's runtime configuration.
type Config struct {
	// Core
	Network NetworkType    `conf:"network"`
	DataDir string         `conf:"datadir"`
	Storage StorageBackend `conf:"storage"`

	// Ledger parameters
	Protocol Protocol

	// Mempool
	Mempool MempoolConfig

	// Logging
	Log LogConfig
}

// MempoolConfig holds pending-pool settings.
type MempoolConfig struct {
	MaxSize int `conf:"mempool.max_size"` // 0 uses the pool default
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// ApplyNetwork makes the network's address prefix the process default.
func (c *Config) ApplyNetwork() {
	types.SetAddressHRP(c.Network.AddressHRP())
}

// =============================================================================
// Directory helpers
// =============================================================================

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.oneshot
//	macOS:   ~/Library/Application Support/Oneshot
//	Windows: %APPDATA%\Oneshot
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".oneshot"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Oneshot")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Oneshot")
		}
		return filepath.Join(home, "AppData", "Roaming", "Oneshot")
	default:
		return filepath.Join(home, ".oneshot")
	}
}

// ChainDataDir returns the network-specific data directory.
func (c *Config) ChainDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// LedgerDir returns the ledger database directory.
func (c *Config) LedgerDir() string {
	return filepath.Join(c.ChainDataDir(), "ledger")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "oneshot.conf")
}
