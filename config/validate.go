package config

import (
	"fmt"
)

// Validate checks the runtime config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Network != Mainnet && cfg.Network != Testnet {
		return fmt.Errorf("network must be %q or %q", Mainnet, Testnet)
	}

	if cfg.Storage == "" {
		cfg.Storage = StorageMemory
	}
	switch cfg.Storage {
	case StorageMemory:
	case StorageBadger:
		if cfg.DataDir == "" {
			return fmt.Errorf("storage=badger requires datadir")
		}
	default:
		return fmt.Errorf("storage must be %q or %q", StorageMemory, StorageBadger)
	}

	if err := cfg.Protocol.Validate(); err != nil {
		return fmt.Errorf("protocol: %w", err)
	}
	if cfg.Mempool.MaxSize < 0 {
		return fmt.Errorf("mempool.max_size cannot be negative")
	}
	return nil
}

// Validate checks the protocol parameters are usable.
func (p Protocol) Validate() error {
	if p.FeeA == 0 && p.FeeB == 0 {
		return fmt.Errorf("fee_a and fee_b cannot both be zero")
	}
	if p.MinUTxOCoin == 0 {
		return fmt.Errorf("min_utxo must be positive")
	}
	if p.MaxTxSize <= 0 {
		return fmt.Errorf("max_tx_size must be positive")
	}
	if p.MaxInputs <= 0 || p.MaxOutputs <= 0 {
		return fmt.Errorf("max_inputs and max_outputs must be positive")
	}
	return nil
}
