package protocol

import (
	"context"
	"errors"

	"github.com/Klingon-tech/oneshot/internal/ledger"
	"github.com/Klingon-tech/oneshot/internal/log"
	"github.com/Klingon-tech/oneshot/pkg/crypto"
	"github.com/Klingon-tech/oneshot/pkg/tx"
	"github.com/Klingon-tech/oneshot/pkg/types"
)

// Pipeline pushes transactions through build, sign and submit. Every
// failure comes back as a *StageError.
type Pipeline struct {
	Ledger ledger.View
}

// Sign adds a witness for each signer and returns t.
func (p *Pipeline) Sign(t *tx.Transaction, signers ...crypto.Signer) (*tx.Transaction, error) {
	if len(signers) == 0 {
		return nil, &StageError{Stage: StageSign, TxID: t.Hash(), Err: ErrNoSigner}
	}
	if err := t.Sign(signers...); err != nil {
		return nil, &StageError{Stage: StageSign, TxID: t.Hash(), Err: err}
	}
	return t, nil
}

// Submit hands a signed transaction to the ledger. Ledger rejections are
// translated into protocol errors; StageError.Rejected tells them apart
// from failures that never reached validation.
func (p *Pipeline) Submit(ctx context.Context, t *tx.Transaction) (types.Hash, error) {
	id, err := p.Ledger.Submit(ctx, t)
	if err != nil {
		return types.Hash{}, &StageError{Stage: StageSubmit, TxID: t.Hash(), Err: translate(err)}
	}
	return id, nil
}

// Execute runs build, then sign, then submit.
func (p *Pipeline) Execute(ctx context.Context, build func() (*tx.Transaction, error), signers ...crypto.Signer) (types.Hash, error) {
	t, err := build()
	if err != nil {
		var se *StageError
		if errors.As(err, &se) {
			return types.Hash{}, err
		}
		return types.Hash{}, &StageError{Stage: StageBuild, Err: err}
	}
	if t, err = p.Sign(t, signers...); err != nil {
		return types.Hash{}, err
	}
	id, err := p.Submit(ctx, t)
	if err != nil {
		log.Protocol.Debug().Err(err).Str("tx", t.Hash().String()).Msg("submit failed")
		return types.Hash{}, err
	}
	return id, nil
}
