package protocol

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"github.com/rs/zerolog"

	"github.com/Klingon-tech/oneshot/config"
	"github.com/Klingon-tech/oneshot/internal/ledger"
	"github.com/Klingon-tech/oneshot/internal/log"
	"github.com/Klingon-tech/oneshot/internal/wallet"
	"github.com/Klingon-tech/oneshot/pkg/tx"
	"github.com/Klingon-tech/oneshot/pkg/types"
)

// Run states.
const (
	StateUnminted = "unminted"
	StateLocked   = "locked"
	StateRedeemed = "redeemed"
)

// Run events.
const (
	EventMint   = "mint"
	EventRedeem = "redeem"
)

// Run drives one issuance: mint once, redeem once. A failed step leaves
// the state unchanged, so it can be retried with a different caller.
type Run struct {
	ID uuid.UUID

	view   ledger.View
	tmpl   Templates
	params config.Protocol
	pipe   *Pipeline
	logger zerolog.Logger

	mu       sync.Mutex
	machine  *fsm.FSM
	issued   Context
	mintTx   types.Hash
	redeemTx types.Hash
}

// NewRun creates a run in the unminted state.
func NewRun(view ledger.View, tmpl Templates, params config.Protocol) *Run {
	id := uuid.New()
	r := &Run{
		ID:     id,
		view:   view,
		tmpl:   tmpl,
		params: params,
		pipe:   &Pipeline{Ledger: view},
		logger: log.WithRun(id.String()),
	}
	r.machine = fsm.NewFSM(
		StateUnminted,
		fsm.Events{
			{Name: EventMint, Src: []string{StateUnminted}, Dst: StateLocked},
			{Name: EventRedeem, Src: []string{StateLocked}, Dst: StateRedeemed},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				r.logger.Info().Str("from", e.Src).Str("to", e.Dst).Msg("run transition")
			},
		},
	)
	return r
}

// State returns the current state.
func (r *Run) State() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.machine.Current()
}

// Context returns the issuance context. It is the zero Context before the
// mint is submitted.
func (r *Run) Context() Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.issued
}

// MintTx and RedeemTx return the submitted transaction ids.
func (r *Run) MintTx() types.Hash {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mintTx
}

func (r *Run) RedeemTx() types.Hash {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.redeemTx
}

// Mint selects a seed from the owner's outputs, derives both policies from
// it and submits the mint: lockedValue goes to the lock address and the
// token to recipient, or to the owner when recipient is nil.
func (r *Run) Mint(ctx context.Context, owner *wallet.Account, name types.AssetName, lockedValue uint64, recipient *types.Address) (types.Hash, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.machine.Can(EventMint) {
		return types.Hash{}, fmt.Errorf("%w: %s in state %s", ErrInvalidTransition, EventMint, r.machine.Current())
	}

	utxos, err := r.view.UTxOsAt(owner.Address)
	if err != nil {
		return types.Hash{}, err
	}
	seed, err := SelectSeed(utxos)
	if err != nil {
		return types.Hash{}, err
	}
	if _, err := r.view.UTxO(seed.Ref); err != nil {
		return types.Hash{}, fmt.Errorf("seed %s: %w", seed.Ref, err)
	}

	ictx, err := Parameterize(r.tmpl, name, seed.Ref)
	if err != nil {
		return types.Hash{}, err
	}
	r.logger.Debug().
		Str("seed", seed.Ref.String()).
		Str("policy", ictx.PolicyID().String()).
		Str("lock", ictx.LockAddress.String()).
		Msg("parameterized")

	id, err := r.pipe.Execute(ctx, func() (*tx.Transaction, error) {
		return BuildMint(MintRequest{
			Context:     ictx,
			Seed:        seed,
			Funds:       utxos,
			Owner:       owner.Address,
			LockedValue: lockedValue,
			Recipient:   recipient,
			Params:      r.params,
		})
	}, owner)
	if err != nil {
		return types.Hash{}, err
	}

	r.issued = ictx
	r.mintTx = id
	if err := r.machine.Event(context.WithoutCancel(ctx), EventMint); err != nil {
		return id, err
	}
	return id, nil
}

// Redeem spends everything at the lock address to holder, burning one unit
// of the token. The mint must have been confirmed first.
func (r *Run) Redeem(ctx context.Context, holder *wallet.Account) (types.Hash, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.machine.Can(EventRedeem) {
		return types.Hash{}, fmt.Errorf("%w: %s in state %s", ErrInvalidTransition, EventRedeem, r.machine.Current())
	}

	locked, err := r.view.UTxOsAt(r.issued.LockAddress)
	if err != nil {
		return types.Hash{}, err
	}
	held, err := r.view.UTxOsAt(holder.Address)
	if err != nil {
		return types.Hash{}, err
	}

	id, err := r.pipe.Execute(ctx, func() (*tx.Transaction, error) {
		return BuildRedeem(RedeemRequest{
			Context:     r.issued,
			Locked:      locked,
			Holder:      holder.Address,
			HolderUTxOs: held,
			Params:      r.params,
		})
	}, holder)
	if err != nil {
		r.logger.Warn().Err(err).Str("holder", holder.Address.String()).Msg("redeem failed")
		return types.Hash{}, err
	}

	r.redeemTx = id
	if err := r.machine.Event(context.WithoutCancel(ctx), EventRedeem); err != nil {
		return id, err
	}
	return id, nil
}
