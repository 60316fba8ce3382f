package config

// Default protocol parameters, matching the ledger this protocol targets.
const (
	DefaultFeeA        = 44
	DefaultFeeB        = 155_381
	DefaultMinUTxOCoin = 1 * ADA
	DefaultMaxTxSize   = 16_384
	DefaultMaxInputs   = 512
	DefaultMaxOutputs  = 512
)

// DefaultProtocol returns the default protocol parameters.
func DefaultProtocol() Protocol {
	return Protocol{
		FeeA:        DefaultFeeA,
		FeeB:        DefaultFeeB,
		MinUTxOCoin: DefaultMinUTxOCoin,
		MaxTxSize:   DefaultMaxTxSize,
		MaxInputs:   DefaultMaxInputs,
		MaxOutputs:  DefaultMaxOutputs,
	}
}

// DefaultMainnet returns the default configuration for mainnet.
func DefaultMainnet() *Config {
	return &Config{
		Network:  Mainnet,
		DataDir:  DefaultDataDir(),
		Storage:  StorageBadger,
		Protocol: DefaultProtocol(),
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// DefaultTestnet returns the default configuration for testnet. Testnet
// keeps its ledger in memory.
func DefaultTestnet() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Testnet
	cfg.Storage = StorageMemory
	return cfg
}

// Default returns the default configuration for the given network.
func Default(network NetworkType) *Config {
	switch network {
	case Mainnet:
		return DefaultMainnet()
	default:
		return DefaultTestnet()
	}
}
