package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/oneshot/internal/protocol"
	"github.com/Klingon-tech/oneshot/pkg/tx"
	"github.com/Klingon-tech/oneshot/pkg/types"
)

// runLock locks 50 ADA under a fresh master key held by the minter, then
// redeems it back to the minter.
func runLock(ctx context.Context, e *env, logger zerolog.Logger) error {
	run := protocol.NewRun(e.em, e.tmpl, e.em.Params())
	if _, err := run.Mint(ctx, e.alice, "MASTER", 50_000_000, nil); err != nil {
		return fmt.Errorf("mint: %w", err)
	}
	if err := e.em.Advance(1); err != nil {
		return err
	}
	ic := run.Context()
	if err := expectCoin(e, ic.LockAddress, 50_000_000); err != nil {
		return err
	}
	logger.Info().Str("policy", ic.PolicyID().String()).Str("lock", ic.LockAddress.String()).Msg("locked")

	if _, err := run.Redeem(ctx, e.alice); err != nil {
		return fmt.Errorf("redeem: %w", err)
	}
	if err := e.em.Advance(1); err != nil {
		return err
	}
	if err := expectCoin(e, ic.LockAddress, 0); err != nil {
		return err
	}
	return expectSupply(e, ic.AssetClass, 0)
}

// runGift locks 22 ADA and gives the master key to the second account. The
// minter's redeem must fail; the holder's must succeed.
func runGift(ctx context.Context, e *env, logger zerolog.Logger) error {
	run := protocol.NewRun(e.em, e.tmpl, e.em.Params())
	if _, err := run.Mint(ctx, e.alice, "GIFT", 22_000_000, &e.bob.Address); err != nil {
		return fmt.Errorf("mint: %w", err)
	}
	if err := e.em.Advance(1); err != nil {
		return err
	}
	ic := run.Context()

	_, err := run.Redeem(ctx, e.alice)
	if !errors.Is(err, protocol.ErrPolicyRejected) {
		return fmt.Errorf("minter redeem: want policy rejection, got %v", err)
	}
	logger.Info().Err(err).Msg("minter redeem rejected")

	before, err := e.em.Balance(e.bob.Address)
	if err != nil {
		return err
	}
	if _, err := run.Redeem(ctx, e.bob); err != nil {
		return fmt.Errorf("holder redeem: %w", err)
	}
	if err := e.em.Advance(1); err != nil {
		return err
	}
	after, err := e.em.Balance(e.bob.Address)
	if err != nil {
		return err
	}
	logger.Info().
		Uint64("before", before.Coin).
		Uint64("after", after.Coin).
		Msg("holder redeemed")
	if err := expectCoin(e, ic.LockAddress, 0); err != nil {
		return err
	}
	return expectSupply(e, ic.AssetClass, 0)
}

// runNFT mints a stand-alone one-shot NFT to the second account.
func runNFT(ctx context.Context, e *env, logger zerolog.Logger) error {
	utxos, err := e.em.UTxOsAt(e.alice.Address)
	if err != nil {
		return err
	}
	seed, err := protocol.SelectSeed(utxos)
	if err != nil {
		return err
	}
	nc, err := protocol.ParameterizeNFT(e.nft, "ART", seed.Ref)
	if err != nil {
		return err
	}

	pipe := &protocol.Pipeline{Ledger: e.em}
	id, err := pipe.Execute(ctx, func() (*tx.Transaction, error) {
		return protocol.BuildNFTMint(protocol.NFTMintRequest{
			Context:   nc,
			Seed:      seed,
			Funds:     utxos,
			Owner:     e.alice.Address,
			Recipient: &e.bob.Address,
			Params:    e.em.Params(),
		})
	}, e.alice)
	if err != nil {
		return fmt.Errorf("nft mint: %w", err)
	}
	if err := e.em.Advance(1); err != nil {
		return err
	}
	logger.Info().Str("tx", id.String()).Str("asset", nc.AssetClass.String()).Msg("nft minted")
	return expectSupply(e, nc.AssetClass, 1)
}

func expectCoin(e *env, addr types.Address, want uint64) error {
	v, err := e.em.Balance(addr)
	if err != nil {
		return err
	}
	if v.Coin != want {
		return fmt.Errorf("%s holds %d, want %d", addr, v.Coin, want)
	}
	return nil
}

func expectSupply(e *env, ac types.AssetClass, want int64) error {
	n, err := e.em.Supply(ac)
	if err != nil {
		return err
	}
	if n != want {
		return fmt.Errorf("supply of %s is %d, want %d", ac, n, want)
	}
	return nil
}
