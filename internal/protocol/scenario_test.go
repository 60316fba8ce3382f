package protocol

import (
	"context"
	"errors"
	"testing"

	"github.com/Klingon-tech/oneshot/internal/ledger"
	"github.com/Klingon-tech/oneshot/internal/storage"
	"github.com/Klingon-tech/oneshot/internal/validators"
	"github.com/Klingon-tech/oneshot/internal/wallet"
	"github.com/Klingon-tech/oneshot/pkg/tx"
	"github.com/Klingon-tech/oneshot/pkg/types"
)

const startBalance = 100_000_000

type scenario struct {
	em    *ledger.Emulator
	alice *wallet.Account
	bob   *wallet.Account
}

func newScenario(t *testing.T) *scenario {
	t.Helper()
	alice, err := wallet.GenerateAccount("alice")
	if err != nil {
		t.Fatal(err)
	}
	bob, err := wallet.GenerateAccount("bob")
	if err != nil {
		t.Fatal(err)
	}
	reg, err := validators.Registry()
	if err != nil {
		t.Fatalf("Registry: %v", err)
	}
	em, err := ledger.NewEmulator(nil, storage.NewMemory(), []ledger.GenesisAccount{
		{Address: alice.Address, Value: types.Coin(startBalance)},
		{Address: bob.Address, Value: types.Coin(startBalance)},
	}, reg)
	if err != nil {
		t.Fatalf("NewEmulator: %v", err)
	}
	return &scenario{em: em, alice: alice, bob: bob}
}

func (s *scenario) run(t *testing.T) *Run {
	t.Helper()
	return NewRun(s.em, testTemplates(t), s.em.Params())
}

func (s *scenario) advance(t *testing.T) {
	t.Helper()
	if err := s.em.Advance(1); err != nil {
		t.Fatalf("Advance: %v", err)
	}
}

func (s *scenario) balance(t *testing.T, addr types.Address) types.Value {
	t.Helper()
	v, err := s.em.Balance(addr)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	return v
}

func (s *scenario) supply(t *testing.T, ac types.AssetClass) int64 {
	t.Helper()
	n, err := s.em.Supply(ac)
	if err != nil {
		t.Fatalf("Supply: %v", err)
	}
	return n
}

// feeOf returns the fee of a confirmed transaction.
func (s *scenario) feeOf(t *testing.T, id types.Hash) uint64 {
	t.Helper()
	height, ok := s.em.Confirmed(id)
	if !ok {
		t.Fatalf("tx %s not confirmed", id)
	}
	blk, err := s.em.Block(height)
	if err != nil {
		t.Fatalf("Block: %v", err)
	}
	for _, tr := range blk.Transactions {
		if tr.Hash() == id {
			return tr.Fee
		}
	}
	t.Fatalf("tx %s not in block %d", id, height)
	return 0
}

func TestScenario_EndToEnd(t *testing.T) {
	s := newScenario(t)
	ctx := context.Background()
	r := s.run(t)

	mintID, err := r.Mint(ctx, s.alice, "MASTER", 50_000_000, nil)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if r.State() != StateLocked {
		t.Errorf("state = %s, want %s", r.State(), StateLocked)
	}
	ic := r.Context()

	// Pending outputs are invisible until the ledger advances.
	if v := s.balance(t, ic.LockAddress); !v.IsZero() {
		t.Errorf("lock balance before advance = %+v", v)
	}
	s.advance(t)

	if v := s.balance(t, ic.LockAddress); !v.Equal(types.Coin(50_000_000)) {
		t.Errorf("lock balance = %+v, want exactly 50000000", v)
	}
	if n := s.supply(t, ic.AssetClass); n != 1 {
		t.Errorf("supply after mint = %d, want 1", n)
	}
	mintFee := s.feeOf(t, mintID)
	alice := s.balance(t, s.alice.Address)
	if alice.Coin != startBalance-50_000_000-mintFee || alice.Quantity(ic.AssetClass) != 1 {
		t.Errorf("alice after mint = %+v", alice)
	}

	redeemID, err := r.Redeem(ctx, s.alice)
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	s.advance(t)
	if r.State() != StateRedeemed {
		t.Errorf("state = %s, want %s", r.State(), StateRedeemed)
	}
	redeemFee := s.feeOf(t, redeemID)

	if v := s.balance(t, ic.LockAddress); !v.IsZero() {
		t.Errorf("lock balance after redeem = %+v", v)
	}
	alice = s.balance(t, s.alice.Address)
	if alice.Coin != startBalance-mintFee-redeemFee || alice.HasAssets() {
		t.Errorf("alice after redeem = %+v, want %d", alice, startBalance-mintFee-redeemFee)
	}
	if n := s.supply(t, ic.AssetClass); n != 0 {
		t.Errorf("supply after redeem = %d, want 0", n)
	}

	// Nothing but fees left the two accounts.
	bob := s.balance(t, s.bob.Address)
	if total := alice.Coin + bob.Coin; total != 2*startBalance-mintFee-redeemFee {
		t.Errorf("total = %d", total)
	}
	if err := s.em.Audit(); err != nil {
		t.Errorf("Audit: %v", err)
	}
	if r.MintTx() != mintID || r.RedeemTx() != redeemID {
		t.Error("run did not record its transactions")
	}
}

func TestScenario_Gift(t *testing.T) {
	s := newScenario(t)
	ctx := context.Background()
	r := s.run(t)

	if _, err := r.Mint(ctx, s.alice, "MASTER", 22_000_000, &s.bob.Address); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	s.advance(t)
	ic := r.Context()

	if q := s.balance(t, s.bob.Address).Quantity(ic.AssetClass); q != 1 {
		t.Fatalf("bob holds %d tokens, want 1", q)
	}
	if q := s.balance(t, s.alice.Address).Quantity(ic.AssetClass); q != 0 {
		t.Errorf("alice holds %d tokens, want 0", q)
	}

	// The minter does not hold the token and cannot redeem.
	_, err := r.Redeem(ctx, s.alice)
	if !errors.Is(err, ErrPolicyRejected) {
		t.Fatalf("alice redeem: err = %v, want ErrPolicyRejected", err)
	}
	var se *StageError
	if !errors.As(err, &se) || !se.Rejected() {
		t.Errorf("alice redeem should be a ledger rejection: %v", err)
	}
	if r.State() != StateLocked {
		t.Errorf("state after failed redeem = %s", r.State())
	}
	if v := s.balance(t, ic.LockAddress); !v.Equal(types.Coin(22_000_000)) {
		t.Errorf("lock balance = %+v", v)
	}

	bobBefore := s.balance(t, s.bob.Address)
	id, err := r.Redeem(ctx, s.bob)
	if err != nil {
		t.Fatalf("bob redeem: %v", err)
	}
	s.advance(t)
	fee := s.feeOf(t, id)

	bobAfter := s.balance(t, s.bob.Address)
	if want := bobBefore.Coin + 22_000_000 - fee; bobAfter.Coin != want || bobAfter.HasAssets() {
		t.Errorf("bob after redeem = %+v, want coin %d", bobAfter, want)
	}
	if v := s.balance(t, ic.LockAddress); !v.IsZero() {
		t.Errorf("lock balance after redeem = %+v", v)
	}
	if n := s.supply(t, ic.AssetClass); n != 0 {
		t.Errorf("supply = %d", n)
	}
	if r.State() != StateRedeemed {
		t.Errorf("state = %s", r.State())
	}
}

func TestScenario_MintAtMostOnce(t *testing.T) {
	s := newScenario(t)
	ctx := context.Background()
	r := s.run(t)
	if _, err := r.Mint(ctx, s.alice, "MASTER", 5_000_000, nil); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	s.advance(t)
	ic := r.Context()
	params := s.em.Params()
	pipe := &Pipeline{Ledger: s.em}

	// The seed is gone, so replaying the mint cannot be accepted.
	funds, err := s.em.UTxOsAt(s.alice.Address)
	if err != nil {
		t.Fatal(err)
	}
	spentSeed := ledger.UTxO{Ref: ic.Seed, Output: tx.Output{Address: s.alice.Address, Value: types.Coin(startBalance)}}
	_, err = pipe.Execute(ctx, func() (*tx.Transaction, error) {
		return BuildMint(MintRequest{Context: ic, Seed: spentSeed, Funds: funds, Owner: s.alice.Address, LockedValue: 5_000_000, Params: params})
	}, s.alice)
	if !errors.Is(err, ErrPolicyRejected) {
		t.Errorf("replayed seed: err = %v, want ErrPolicyRejected", err)
	}

	// Same policy, different input: the policy itself refuses.
	_, err = pipe.Execute(ctx, func() (*tx.Transaction, error) {
		forged := ic
		forged.Seed = funds[0].Ref
		return BuildMint(MintRequest{Context: forged, Seed: funds[0], Funds: funds, Owner: s.alice.Address, LockedValue: 5_000_000, Params: params})
	}, s.alice)
	if !errors.Is(err, ErrPolicyRejected) {
		t.Errorf("forged seed: err = %v, want ErrPolicyRejected", err)
	}
	var ve *ledger.ValidationError
	if !errors.As(err, &ve) || ve.Code != ledger.ScriptFailed {
		t.Errorf("forged seed: want ScriptFailed, got %v", err)
	}

	if _, err := r.Mint(ctx, s.alice, "MASTER", 5_000_000, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second run mint: err = %v, want ErrInvalidTransition", err)
	}
	if n := s.supply(t, ic.AssetClass); n != 1 {
		t.Errorf("supply = %d, want 1", n)
	}
}

func TestScenario_ConcurrentSeedRuns(t *testing.T) {
	s := newScenario(t)
	ctx := context.Background()
	a, b := s.run(t), s.run(t)

	// Every run picks the same seed. b builds the very same transaction
	// as a; c differs only in the locked value and so conflicts.
	c := s.run(t)
	if _, err := a.Mint(ctx, s.alice, "MASTER", 5_000_000, nil); err != nil {
		t.Fatalf("first mint: %v", err)
	}
	_, err := b.Mint(ctx, s.alice, "MASTER", 5_000_000, nil)
	var ve *ledger.ValidationError
	if !errors.Is(err, ErrPolicyRejected) || !errors.As(err, &ve) || ve.Code != ledger.Duplicate {
		t.Fatalf("identical mint: err = %v, want ErrPolicyRejected (duplicate)", err)
	}
	_, err = c.Mint(ctx, s.alice, "MASTER", 6_000_000, nil)
	if !errors.Is(err, ErrPolicyRejected) || !errors.As(err, &ve) || ve.Code != ledger.Conflict {
		t.Fatalf("conflicting mint: err = %v, want ErrPolicyRejected (conflict)", err)
	}
	for _, r := range []*Run{b, c} {
		if r.State() != StateUnminted {
			t.Errorf("losing run state = %s", r.State())
		}
	}
	if a.ID == b.ID {
		t.Error("runs share an id")
	}
}

func TestScenario_NFT(t *testing.T) {
	s := newScenario(t)
	ctx := context.Background()
	params := s.em.Params()
	pipe := &Pipeline{Ledger: s.em}

	funds, err := s.em.UTxOsAt(s.alice.Address)
	if err != nil {
		t.Fatal(err)
	}
	seed, err := SelectSeed(funds)
	if err != nil {
		t.Fatal(err)
	}
	nc, err := ParameterizeNFT(nftTemplate(t), "ART", seed.Ref)
	if err != nil {
		t.Fatal(err)
	}

	// Two units pass the builder only if forced; the policy refuses them.
	_, err = pipe.Execute(ctx, func() (*tx.Transaction, error) {
		t2, err := BuildNFTMint(NFTMintRequest{Context: nc, Seed: seed, Funds: funds, Owner: s.alice.Address, Params: params})
		if err != nil {
			return nil, err
		}
		t2.Mint[nc.AssetClass] = 2
		t2.Outputs[0].Value = t2.Outputs[0].Value.WithAsset(nc.AssetClass, 1)
		refee(t2, params)
		return t2, nil
	}, s.alice)
	if !errors.Is(err, ErrPolicyRejected) {
		t.Errorf("two units: err = %v, want ErrPolicyRejected", err)
	}

	id, err := pipe.Execute(ctx, func() (*tx.Transaction, error) {
		return BuildNFTMint(NFTMintRequest{Context: nc, Seed: seed, Funds: funds, Owner: s.alice.Address, Recipient: &s.bob.Address, Params: params})
	}, s.alice)
	if err != nil {
		t.Fatalf("NFT mint: %v", err)
	}
	s.advance(t)
	if _, ok := s.em.Confirmed(id); !ok {
		t.Error("NFT mint not confirmed")
	}
	if q := s.balance(t, s.bob.Address).Quantity(nc.AssetClass); q != 1 {
		t.Errorf("bob holds %d, want 1", q)
	}
	if n := s.supply(t, nc.AssetClass); n != 1 {
		t.Errorf("supply = %d", n)
	}
}

// refee recomputes the fee of an edited transaction, keeping the change
// output (always last) balanced.
func refee(t *tx.Transaction, p interface{ MinFee(int) uint64 }) {
	old := t.Fee
	t.Fee = p.MinFee(t.Size(1))
	last := &t.Outputs[len(t.Outputs)-1]
	last.Value.Coin = last.Value.Coin + old - t.Fee
}

func TestRun_Transitions(t *testing.T) {
	s := newScenario(t)
	ctx := context.Background()
	r := s.run(t)

	if r.State() != StateUnminted {
		t.Fatalf("initial state = %s", r.State())
	}
	if _, err := r.Redeem(ctx, s.alice); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("redeem before mint: err = %v", err)
	}

	if _, err := r.Mint(ctx, s.alice, "MASTER", 5_000_000, nil); err != nil {
		t.Fatal(err)
	}
	// The mint is still pending, so nothing is locked yet.
	_, err := r.Redeem(ctx, s.alice)
	if !errors.Is(err, ErrNoLockedFunds) {
		t.Errorf("redeem before advance: err = %v, want ErrNoLockedFunds", err)
	}
	var se *StageError
	if !errors.As(err, &se) || se.Stage != StageBuild || se.Rejected() {
		t.Errorf("want a build-stage failure, got %v", err)
	}

	s.advance(t)
	if _, err := r.Redeem(ctx, s.alice); err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	s.advance(t)

	if _, err := r.Redeem(ctx, s.alice); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("redeem twice: err = %v", err)
	}
	if _, err := r.Mint(ctx, s.alice, "MASTER", 5_000_000, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("mint after redeem: err = %v", err)
	}
}

func TestRun_Errors(t *testing.T) {
	s := newScenario(t)
	stranger, err := wallet.GenerateAccount("stranger")
	if err != nil {
		t.Fatal(err)
	}
	r := s.run(t)

	if _, err := r.Mint(context.Background(), stranger, "MASTER", 5_000_000, nil); !errors.Is(err, ErrNoFunds) {
		t.Errorf("no funds: err = %v", err)
	}
	if _, err := r.Mint(context.Background(), s.alice, "MASTER", 2*startBalance, nil); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("too much: err = %v", err)
	}

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Mint(canceled, s.alice, "MASTER", 5_000_000, nil)
	var se *StageError
	if !errors.As(err, &se) || se.Stage != StageSubmit || se.Rejected() {
		t.Errorf("canceled: err = %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("canceled: want context.Canceled, got %v", err)
	}
	if r.State() != StateUnminted {
		t.Errorf("state = %s", r.State())
	}
}

func TestPipeline_SignErrors(t *testing.T) {
	s := newScenario(t)
	pipe := &Pipeline{Ledger: s.em}
	_, err := pipe.Execute(context.Background(), func() (*tx.Transaction, error) {
		return &tx.Transaction{}, nil
	})
	var se *StageError
	if !errors.As(err, &se) || se.Stage != StageSign || !errors.Is(err, ErrNoSigner) {
		t.Errorf("no signers: err = %v", err)
	}
}
