package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LoadFile loads configuration from a .conf file.
// Format: key = value (one per line, # for comments)
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse key = value
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// setConfigValue sets a config value by key.
func setConfigValue(cfg *Config, key, value string) error {
	switch key {
	// Core
	case "network":
		cfg.Network = NetworkType(value)
	case "datadir":
		cfg.DataDir = value
	case "storage":
		cfg.Storage = StorageBackend(strings.ToLower(value))

	// Protocol parameters
	case "protocol.fee_a":
		return parseUint(value, &cfg.Protocol.FeeA)
	case "protocol.fee_b":
		return parseUint(value, &cfg.Protocol.FeeB)
	case "protocol.min_utxo":
		return parseUint(value, &cfg.Protocol.MinUTxOCoin)
	case "protocol.max_tx_size":
		return parseInt(value, &cfg.Protocol.MaxTxSize)
	case "protocol.max_inputs":
		return parseInt(value, &cfg.Protocol.MaxInputs)
	case "protocol.max_outputs":
		return parseInt(value, &cfg.Protocol.MaxOutputs)

	// Mempool
	case "mempool.max_size":
		return parseInt(value, &cfg.Mempool.MaxSize)

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)

	default:
		// Unknown keys are ignored
	}
	return nil
}

func parseUint(s string, dst *uint64) error {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func parseInt(s string, dst *int) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

// parseBool parses a boolean value.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// WriteDefaultConfig writes a default configuration file.
func WriteDefaultConfig(path string, network NetworkType) error {
	cfg := Default(network)
	content := `# One-shot ledger configuration

# Network: mainnet or testnet
network = ` + string(network) + `

# Data directory (default: ~/.oneshot)
# datadir = ~/.oneshot

# Storage backend: memory or badger
storage = ` + string(cfg.Storage) + `

# ============================================================================
# Protocol parameters
# ============================================================================

protocol.fee_a = ` + strconv.FormatUint(cfg.Protocol.FeeA, 10) + `
protocol.fee_b = ` + strconv.FormatUint(cfg.Protocol.FeeB, 10) + `
protocol.min_utxo = ` + strconv.FormatUint(cfg.Protocol.MinUTxOCoin, 10) + `
protocol.max_tx_size = ` + strconv.Itoa(cfg.Protocol.MaxTxSize) + `
# protocol.max_inputs = 512
# protocol.max_outputs = 512

# Pending transactions held before Advance (0 = 5000)
mempool.max_size = ` + strconv.Itoa(cfg.Mempool.MaxSize) + `

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file =
log.json = false
`
	return os.WriteFile(path, []byte(content), 0644)
}
