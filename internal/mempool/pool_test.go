package mempool

import (
	"errors"
	"testing"

	"github.com/Klingon-tech/oneshot/config"
	"github.com/Klingon-tech/oneshot/pkg/crypto"
	"github.com/Klingon-tech/oneshot/pkg/plutus"
	"github.com/Klingon-tech/oneshot/pkg/tx"
	"github.com/Klingon-tech/oneshot/pkg/types"
)

var testParams = config.DefaultProtocol()

// mockUTxOs is a simple in-memory UTxO provider for tests.
type mockUTxOs map[types.OutputRef]tx.Output

func (m mockUTxOs) GetOutput(ref types.OutputRef) (tx.Output, bool) {
	out, ok := m[ref]
	return out, ok
}

func testRef(b byte) types.OutputRef {
	return types.OutputRef{TxID: types.Hash{b}}
}

var payee = types.KeyAddress([types.CredentialSize]byte{0xee})

// buildTx creates a signed transaction spending ref (worth in) that pays
// 2 ADA away and returns the rest minus fee+tip to the owner.
func buildTx(t *testing.T, key *crypto.PrivateKey, ref types.OutputRef, in, tip uint64) *tx.Transaction {
	t.Helper()
	transaction := tx.NewBuilder().
		AddInput(ref).
		AddOutput(payee, types.Coin(2_000_000)).
		AddOutput(key.Address(), types.Coin(0)).
		Build()
	transaction.Fee = tx.MinFee(transaction, testParams, 1) + tip
	transaction.Outputs[1].Value = types.Coin(in - 2_000_000 - transaction.Fee)
	if err := transaction.Sign(key); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return transaction
}

func fundedPool(t *testing.T, n int, maxSize int) (*Pool, *crypto.PrivateKey, []types.OutputRef) {
	t.Helper()
	key, _ := crypto.GenerateKey()
	utxos := mockUTxOs{}
	refs := make([]types.OutputRef, n)
	for i := range refs {
		refs[i] = testRef(byte(i + 1))
		utxos[refs[i]] = tx.Output{Address: key.Address(), Value: types.Coin(10_000_000)}
	}
	return New(utxos, testParams, maxSize), key, refs
}

func TestPool_Add(t *testing.T) {
	pool, key, refs := fundedPool(t, 1, 100)
	transaction := buildTx(t, key, refs[0], 10_000_000, 0)

	fee, err := pool.Add(transaction)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if fee != transaction.Fee || pool.GetFee(transaction.Hash()) != fee {
		t.Errorf("fee = %d, want %d", fee, transaction.Fee)
	}
	if pool.Count() != 1 || !pool.Has(transaction.Hash()) || pool.Get(transaction.Hash()) != transaction {
		t.Error("transaction not tracked")
	}
	if h, ok := pool.Spender(refs[0]); !ok || h != transaction.Hash() {
		t.Error("conflict index not updated")
	}

	if _, err := pool.Add(transaction); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("duplicate: err = %v, want ErrAlreadyExists", err)
	}
}

func TestPool_Add_DoubleSpend(t *testing.T) {
	pool, key, refs := fundedPool(t, 1, 100)
	if _, err := pool.Add(buildTx(t, key, refs[0], 10_000_000, 0)); err != nil {
		t.Fatalf("first Add: %v", err)
	}

	_, err := pool.Add(buildTx(t, key, refs[0], 10_000_000, 1))
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	var ce *ConflictError
	if !errors.As(err, &ce) || ce.Input != refs[0] {
		t.Errorf("conflict detail = %+v", ce)
	}
}

func TestPool_Add_ValidationKeepsCause(t *testing.T) {
	pool, key, _ := fundedPool(t, 1, 100)
	_, err := pool.Add(buildTx(t, key, testRef(0x99), 10_000_000, 0))
	if !errors.Is(err, ErrValidation) || !errors.Is(err, tx.ErrInputNotFound) {
		t.Errorf("err = %v, want ErrValidation wrapping ErrInputNotFound", err)
	}
}

func TestPool_ScriptCheck(t *testing.T) {
	pool, key, refs := fundedPool(t, 2, 100)
	boom := errors.New("script failed")
	var seen []tx.ResolvedInput
	pool.SetScriptCheck(func(_ *tx.Transaction, in []tx.ResolvedInput) error {
		seen = in
		return boom
	})

	_, err := pool.Add(buildTx(t, key, refs[0], 10_000_000, 0))
	if !errors.Is(err, boom) || !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v", err)
	}
	if len(seen) != 1 || seen[0].Ref != refs[0] {
		t.Errorf("script check saw %+v", seen)
	}
	if _, ok := pool.Spender(refs[0]); ok {
		t.Error("rejected transaction must not hold its inputs")
	}

	pool.SetScriptCheck(nil)
	if _, err := pool.Add(buildTx(t, key, refs[1], 10_000_000, 0)); err != nil {
		t.Errorf("Add without script check: %v", err)
	}
}

func TestPool_RemoveClearsConflictIndex(t *testing.T) {
	pool, key, refs := fundedPool(t, 2, 100)
	tx1 := buildTx(t, key, refs[0], 10_000_000, 0)
	tx2 := buildTx(t, key, refs[1], 10_000_000, 0)
	pool.Add(tx1)
	pool.Add(tx2)

	pool.Remove(tx1.Hash())
	if _, err := pool.Add(buildTx(t, key, refs[0], 10_000_000, 5)); err != nil {
		t.Errorf("re-spend after Remove: %v", err)
	}

	pool.RemoveConfirmed([]*tx.Transaction{tx2})
	if pool.Has(tx2.Hash()) || pool.Count() != 1 {
		t.Errorf("RemoveConfirmed left count %d", pool.Count())
	}
}

func TestPool_SelectForBlock(t *testing.T) {
	pool, key, refs := fundedPool(t, 3, 100)
	low := buildTx(t, key, refs[0], 10_000_000, 0)
	high := buildTx(t, key, refs[1], 10_000_000, 50_000)
	mid := buildTx(t, key, refs[2], 10_000_000, 10_000)
	for _, tr := range []*tx.Transaction{low, high, mid} {
		if _, err := pool.Add(tr); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	got := pool.SelectForBlock(0)
	if len(got) != 3 || got[0] != high || got[1] != mid || got[2] != low {
		t.Errorf("SelectForBlock order wrong")
	}
	if got := pool.SelectForBlock(2); len(got) != 2 || got[0] != high {
		t.Errorf("SelectForBlock(2) = %d txs", len(got))
	}
}

func TestPool_FullEvictsLowestRate(t *testing.T) {
	pool, key, refs := fundedPool(t, 3, 2)
	low := buildTx(t, key, refs[0], 10_000_000, 0)
	mid := buildTx(t, key, refs[1], 10_000_000, 10_000)
	pool.Add(low)
	pool.Add(mid)

	if _, err := pool.Add(buildTx(t, key, refs[2], 10_000_000, 0)); !errors.Is(err, ErrPoolFull) {
		t.Errorf("equal-rate tx into full pool: err = %v, want ErrPoolFull", err)
	}
	high := buildTx(t, key, refs[2], 10_000_000, 90_000)
	if _, err := pool.Add(high); err != nil {
		t.Fatalf("Add high: %v", err)
	}
	if pool.Has(low.Hash()) || !pool.Has(mid.Hash()) || !pool.Has(high.Hash()) {
		t.Error("the lowest fee-rate entry should have been evicted")
	}
}

func TestNew_DefaultMaxSize(t *testing.T) {
	pool := New(mockUTxOs{}, testParams, 0)
	if pool.maxSize != 5000 {
		t.Errorf("maxSize = %d, want 5000", pool.maxSize)
	}
}

func TestPolicy_Check(t *testing.T) {
	base := func() *tx.Transaction {
		return tx.NewBuilder().AddInput(testRef(1)).AddOutput(payee, types.Coin(2_000_000)).Build()
	}
	p := DefaultPolicy()
	if err := p.Check(base()); err != nil {
		t.Errorf("plain tx rejected: %v", err)
	}

	big := base()
	big.Outputs[0].Datum = plutus.Bytes(make([]byte, DefaultMaxDatumSize))
	if err := p.Check(big); err == nil {
		t.Error("oversized datum should be rejected")
	}

	many := base()
	for i := 0; i <= DefaultMaxScripts; i++ {
		many.Scripts = append(many.Scripts, []byte{byte(i)})
	}
	if err := p.Check(many); err == nil {
		t.Error("too many scripts should be rejected")
	}

	pool, key, refs := fundedPool(t, 1, 10)
	pool.SetPolicy(&Policy{MaxDatumSize: 1})
	tr := buildTx(t, key, refs[0], 10_000_000, 0)
	tr.Outputs[0].Datum = plutus.Void()
	tr.Witnesses = nil
	tr.Sign(key)
	if _, err := pool.Add(tr); !errors.Is(err, ErrPolicy) {
		t.Errorf("err = %v, want ErrPolicy", err)
	}
}
