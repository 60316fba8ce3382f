package protocol

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/oneshot/internal/ledger"
	"github.com/Klingon-tech/oneshot/pkg/types"
)

// Protocol errors. Builders return them before anything reaches the ledger;
// ErrPolicyRejected and ErrInsufficientFunds are also what a ledger
// rejection is translated into at submit time.
var (
	ErrNoFunds           = errors.New("no spendable output to seed the mint")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrPolicyRejected    = errors.New("rejected by policy")
	ErrNoLockedFunds     = errors.New("nothing locked at the spending address")
	ErrNotLocked         = errors.New("output is not at the spending address")
	ErrBurnMismatch      = errors.New("redeem must burn exactly one unit")
	ErrMintQuantity      = errors.New("mint must create exactly one unit")
	ErrTemplateArity     = errors.New("template arity mismatch")
	ErrInvalidTransition = errors.New("invalid protocol transition")
	ErrBelowMinUTxO      = errors.New("locked value below minimum output coin")
	ErrZeroLockedValue   = errors.New("locked value is zero")
	ErrSeedMismatch      = errors.New("seed output does not match the context")
	ErrNoSigner          = errors.New("no signer")
)

// Stage names a step of the submission pipeline.
type Stage uint8

const (
	StageBuild Stage = iota
	StageSign
	StageSubmit
)

func (s Stage) String() string {
	switch s {
	case StageBuild:
		return "build"
	case StageSign:
		return "sign"
	case StageSubmit:
		return "submit"
	default:
		return fmt.Sprintf("stage(%d)", uint8(s))
	}
}

// StageError reports which pipeline step failed. TxID is set once the
// transaction was built.
type StageError struct {
	Stage Stage
	TxID  types.Hash
	Err   error
}

func (e *StageError) Error() string {
	if e.TxID.IsZero() {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Stage, e.TxID, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Rejected reports whether the ledger saw the transaction and refused it.
// A rejected transaction must not be resubmitted unchanged; any other
// failure happened before the ledger and is safe to fix and retry.
func (e *StageError) Rejected() bool {
	var ve *ledger.ValidationError
	return e.Stage == StageSubmit && errors.As(e.Err, &ve)
}

// translate maps a ledger rejection onto the protocol taxonomy, keeping the
// ledger error reachable with errors.As.
func translate(err error) error {
	var ve *ledger.ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	switch ve.Code {
	// Duplicate covers a run that lost the seed race with a byte-identical
	// transaction: the hash leaves out witnesses.
	case ledger.ScriptFailed, ledger.MissingScript, ledger.MissingRedeemer,
		ledger.InputMissing, ledger.Conflict, ledger.Duplicate:
		return fmt.Errorf("%w: %w", ErrPolicyRejected, err)
	case ledger.ValueNotConserved:
		if ve.Asset != nil {
			return fmt.Errorf("%w: %w", ErrPolicyRejected, err)
		}
		return fmt.Errorf("%w: %w", ErrInsufficientFunds, err)
	case ledger.FeeTooLow:
		return fmt.Errorf("%w: %w", ErrInsufficientFunds, err)
	default:
		return err
	}
}
