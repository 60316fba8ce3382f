package tx

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/oneshot/config"
	"github.com/Klingon-tech/oneshot/pkg/plutus"
	"github.com/Klingon-tech/oneshot/pkg/types"
)

// Validation errors.
var (
	ErrNoInputs           = errors.New("transaction has no inputs")
	ErrNoOutputs          = errors.New("transaction has no outputs")
	ErrDuplicateInput     = errors.New("duplicate input")
	ErrOutputOverflow     = errors.New("output values overflow")
	ErrEmptyOutput        = errors.New("output carries no value")
	ErrOutputBelowMinimum = errors.New("output coin below minimum")
	ErrInvalidAddress     = errors.New("output address is empty")
	ErrBadDatum           = errors.New("datum cannot be encoded")
	ErrZeroMint           = errors.New("mint quantity is zero")
	ErrInvalidAssetName   = errors.New("asset name too long")
	ErrDuplicateScript    = errors.New("duplicate script")
	ErrMalformedScript    = errors.New("malformed script")
	ErrDuplicateRedeemer  = errors.New("duplicate redeemer")
	ErrOrphanRedeemer     = errors.New("redeemer has no target")
	ErrNilRedeemer        = errors.New("redeemer has no data")
	ErrMissingPubKey      = errors.New("witness missing public key")
	ErrMissingSig         = errors.New("witness missing signature")
	ErrInvalidSig         = errors.New("invalid signature")
	ErrTooManyInputs      = errors.New("too many inputs")
	ErrTooManyOutputs     = errors.New("too many outputs")
	ErrTxTooLarge         = errors.New("transaction too large")
)

// Validate checks transaction structure and basic rules against the
// protocol parameters. This does NOT check UTxO existence (that requires
// the UTxO set) nor run scripts.
func (tx *Transaction) Validate(p config.Protocol) error {
	if len(tx.Inputs) == 0 {
		return ErrNoInputs
	}
	if len(tx.Outputs) == 0 {
		return ErrNoOutputs
	}
	if len(tx.Inputs) > p.MaxInputs {
		return fmt.Errorf("%w: %d inputs, max %d", ErrTooManyInputs, len(tx.Inputs), p.MaxInputs)
	}
	if len(tx.Outputs) > p.MaxOutputs {
		return fmt.Errorf("%w: %d outputs, max %d", ErrTooManyOutputs, len(tx.Outputs), p.MaxOutputs)
	}
	if size := tx.Size(len(tx.Witnesses)); size > p.MaxTxSize {
		return fmt.Errorf("%w: %d bytes, max %d", ErrTxTooLarge, size, p.MaxTxSize)
	}

	// Check for duplicate inputs.
	seen := make(map[types.OutputRef]bool, len(tx.Inputs))
	for i, in := range tx.Inputs {
		if seen[in] {
			return fmt.Errorf("input %d: %w", i, ErrDuplicateInput)
		}
		seen[in] = true
	}

	// Validate outputs.
	var total types.Value
	for i, out := range tx.Outputs {
		if out.Address.IsZero() {
			return fmt.Errorf("output %d: %w", i, ErrInvalidAddress)
		}
		if out.Value.IsZero() {
			return fmt.Errorf("output %d: %w", i, ErrEmptyOutput)
		}
		if out.Value.Coin < p.MinUTxOCoin {
			return fmt.Errorf("output %d: %w: %d < %d", i, ErrOutputBelowMinimum, out.Value.Coin, p.MinUTxOCoin)
		}
		if out.Datum != nil {
			if _, err := plutus.Encode(out.Datum); err != nil {
				return fmt.Errorf("output %d: %w: %v", i, ErrBadDatum, err)
			}
		}
		sum, err := total.Add(out.Value)
		if err != nil {
			return fmt.Errorf("output %d: %w", i, ErrOutputOverflow)
		}
		total = sum
	}

	// Validate mint entries.
	for ac, q := range tx.Mint {
		if q == 0 {
			return fmt.Errorf("%s: %w", ac, ErrZeroMint)
		}
		if len(ac.Name) > types.MaxAssetNameSize {
			return fmt.Errorf("%s: %w", ac, ErrInvalidAssetName)
		}
	}

	// Attached scripts must be distinct and well-formed.
	hashes := make(map[types.PolicyID]bool, len(tx.Scripts))
	for i, s := range tx.Scripts {
		if _, _, err := plutus.DecodeScript(s); err != nil {
			return fmt.Errorf("script %d: %w: %v", i, ErrMalformedScript, err)
		}
		h := plutus.ScriptHash(s)
		if hashes[h] {
			return fmt.Errorf("script %d: %w", i, ErrDuplicateScript)
		}
		hashes[h] = true
	}

	// Every redeemer must target something in the transaction, once.
	policies := make(map[types.PolicyID]bool)
	for _, pol := range tx.Mint.Policies() {
		policies[pol] = true
	}
	type target struct {
		purpose Purpose
		input   types.OutputRef
		policy  types.PolicyID
	}
	targets := make(map[target]bool, len(tx.Redeemers))
	for i, r := range tx.Redeemers {
		if r.Data == nil {
			return fmt.Errorf("redeemer %d: %w", i, ErrNilRedeemer)
		}
		var key target
		switch r.Purpose {
		case PurposeSpend:
			if !seen[r.Input] {
				return fmt.Errorf("redeemer %d: %w: input %s", i, ErrOrphanRedeemer, r.Input)
			}
			key = target{purpose: PurposeSpend, input: r.Input}
		case PurposeMint:
			if !policies[r.Policy] {
				return fmt.Errorf("redeemer %d: %w: policy %s", i, ErrOrphanRedeemer, r.Policy)
			}
			key = target{purpose: PurposeMint, policy: r.Policy}
		default:
			return fmt.Errorf("redeemer %d: %w: %s", i, ErrOrphanRedeemer, r.Purpose)
		}
		if targets[key] {
			return fmt.Errorf("redeemer %d: %w", i, ErrDuplicateRedeemer)
		}
		targets[key] = true
	}

	return nil
}
