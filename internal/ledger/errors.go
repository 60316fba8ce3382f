package ledger

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/oneshot/internal/mempool"
	"github.com/Klingon-tech/oneshot/pkg/tx"
	"github.com/Klingon-tech/oneshot/pkg/types"
)

// Code classifies why the ledger refused a transaction.
type Code uint8

const (
	Malformed Code = iota
	InputMissing
	Conflict
	Duplicate
	MissingWitness
	BadSignature
	FeeTooLow
	ValueNotConserved
	ScriptFailed
	MissingScript
	MissingRedeemer
	PoolFull
)

var codeNames = [...]string{
	Malformed:         "malformed",
	InputMissing:      "input_missing",
	Conflict:          "conflict",
	Duplicate:         "duplicate",
	MissingWitness:    "missing_witness",
	BadSignature:      "bad_signature",
	FeeTooLow:         "fee_too_low",
	ValueNotConserved: "value_not_conserved",
	ScriptFailed:      "script_failed",
	MissingScript:     "missing_script",
	MissingRedeemer:   "missing_redeemer",
	PoolFull:          "pool_full",
}

func (c Code) String() string {
	if int(c) < len(codeNames) {
		return codeNames[c]
	}
	return fmt.Sprintf("code(%d)", uint8(c))
}

// ValidationError is returned by Submit when the ledger refuses a
// transaction. Asset is set when ValueNotConserved concerns a native asset
// rather than coin.
type ValidationError struct {
	Code  Code
	Msg   string
	Asset *types.AssetClass
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("ledger rejected transaction (%s): %s", e.Code, e.Msg)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// classify maps a mempool or validation failure onto a ValidationError.
func classify(err error) *ValidationError {
	ve := &ValidationError{Code: Malformed, Msg: err.Error(), Err: err}

	var imbalance *tx.AssetImbalance
	switch {
	case errors.Is(err, mempool.ErrConflict):
		ve.Code = Conflict
	case errors.Is(err, mempool.ErrAlreadyExists):
		ve.Code = Duplicate
	case errors.Is(err, mempool.ErrPoolFull):
		ve.Code = PoolFull
	case errors.Is(err, tx.ErrInputNotFound):
		ve.Code = InputMissing
	case errors.Is(err, tx.ErrMissingWitness):
		ve.Code = MissingWitness
	case errors.Is(err, tx.ErrInvalidSig),
		errors.Is(err, tx.ErrMissingSig),
		errors.Is(err, tx.ErrMissingPubKey):
		ve.Code = BadSignature
	case errors.Is(err, tx.ErrInsufficientFee):
		ve.Code = FeeTooLow
	case errors.As(err, &imbalance):
		ve.Code = ValueNotConserved
		ac := imbalance.Asset
		ve.Asset = &ac
	case errors.Is(err, tx.ErrCoinNotConserved):
		ve.Code = ValueNotConserved
	case errors.Is(err, ErrMissingScript):
		ve.Code = MissingScript
	case errors.Is(err, ErrMissingRedeemer):
		ve.Code = MissingRedeemer
	case errors.Is(err, ErrScriptFailed):
		ve.Code = ScriptFailed
	}
	return ve
}
