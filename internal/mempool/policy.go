package mempool

import (
	"fmt"

	"github.com/Klingon-tech/oneshot/pkg/plutus"
	"github.com/Klingon-tech/oneshot/pkg/tx"
)

// Default policy limits.
const (
	DefaultMaxDatumSize  = 5000
	DefaultMaxScripts    = 8
	DefaultMaxScriptSize = 16384
)

// Policy defines transaction acceptance rules. These are node-local and sit
// on top of the protocol limits that tx.Validate enforces.
type Policy struct {
	MaxDatumSize  int // Encoded inline datum, per output
	MaxScripts    int // Attached scripts per transaction
	MaxScriptSize int // Bytes per attached script
}

// DefaultPolicy returns a policy with sensible defaults.
func DefaultPolicy() *Policy {
	return &Policy{
		MaxDatumSize:  DefaultMaxDatumSize,
		MaxScripts:    DefaultMaxScripts,
		MaxScriptSize: DefaultMaxScriptSize,
	}
}

// Check validates a transaction against policy rules.
func (p *Policy) Check(transaction *tx.Transaction) error {
	if p.MaxScripts > 0 && len(transaction.Scripts) > p.MaxScripts {
		return fmt.Errorf("too many scripts: %d, max %d", len(transaction.Scripts), p.MaxScripts)
	}
	for i, s := range transaction.Scripts {
		if p.MaxScriptSize > 0 && len(s) > p.MaxScriptSize {
			return fmt.Errorf("script %d too large: %d bytes, max %d", i, len(s), p.MaxScriptSize)
		}
	}
	for i, out := range transaction.Outputs {
		if out.Datum == nil || p.MaxDatumSize <= 0 {
			continue
		}
		enc, err := plutus.Encode(out.Datum)
		if err != nil {
			return fmt.Errorf("output %d datum: %w", i, err)
		}
		if len(enc) > p.MaxDatumSize {
			return fmt.Errorf("output %d datum too large: %d bytes, max %d", i, len(enc), p.MaxDatumSize)
		}
	}
	return nil
}
