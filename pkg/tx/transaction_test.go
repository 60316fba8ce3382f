package tx

import (
	"encoding/json"
	"testing"

	"github.com/Klingon-tech/oneshot/pkg/crypto"
	"github.com/Klingon-tech/oneshot/pkg/plutus"
	"github.com/Klingon-tech/oneshot/pkg/types"
)

func testAddr(b byte) types.Address {
	return types.KeyAddress([types.CredentialSize]byte{b})
}

func testRef(b byte, idx uint32) types.OutputRef {
	return types.OutputRef{TxID: types.Hash{b}, Index: idx}
}

func testScript(t *testing.T, code byte) []byte {
	t.Helper()
	inst, err := plutus.Template{Title: "test", Code: []byte{0x41, code}, Params: 0}.Apply()
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	return inst.Script()
}

func TestTransaction_Hash_Deterministic(t *testing.T) {
	tx := NewBuilder().
		AddInput(testRef(0x01, 0)).
		AddOutput(testAddr(0x02), types.Coin(2_000_000)).
		Build()

	h1 := tx.Hash()
	h2 := tx.Hash()
	if h1 != h2 {
		t.Error("Hash() should be deterministic")
	}
	if h1.IsZero() {
		t.Error("Hash() should not be zero")
	}
}

func TestTransaction_Hash_ChangesWithContent(t *testing.T) {
	base := func() *Builder {
		return NewBuilder().AddInput(testRef(0x01, 0))
	}
	tx1 := base().AddOutput(testAddr(0x02), types.Coin(1000)).Build()
	tx2 := base().AddOutput(testAddr(0x02), types.Coin(2000)).Build()
	tx3 := base().AddOutput(testAddr(0x02), types.Coin(1000)).SetFee(1).Build()
	tx4 := base().AddOutputWithDatum(testAddr(0x02), types.Coin(1000), plutus.Void()).Build()

	ac := types.AssetClass{Policy: types.PolicyID{0x09}, Name: "X"}
	tx5 := base().AddOutput(testAddr(0x02), types.Coin(1000)).MintAsset(ac, 1, plutus.MintRedeemer.Data()).Build()

	seen := map[types.Hash]bool{}
	for i, tx := range []*Transaction{tx1, tx2, tx3, tx4, tx5} {
		h := tx.Hash()
		if seen[h] {
			t.Errorf("tx %d: hash collides with an earlier variant", i)
		}
		seen[h] = true
	}
}

func TestTransaction_Hash_IgnoresWitnesses(t *testing.T) {
	tx := NewBuilder().
		AddInput(testRef(0x01, 0)).
		AddOutput(testAddr(0x02), types.Coin(1000)).
		Build()
	h1 := tx.Hash()

	key, _ := crypto.GenerateKey()
	if err := tx.Sign(key); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if h1 != tx.Hash() {
		t.Error("Hash() should not change when witnesses are added")
	}
}

func TestTransaction_MintOrderIndependent(t *testing.T) {
	x := types.AssetClass{Policy: types.PolicyID{0x01}, Name: "X"}
	y := types.AssetClass{Policy: types.PolicyID{0x02}, Name: "Y"}
	a := &Transaction{Mint: types.Mint{x: 1, y: -1}}
	b := &Transaction{Mint: types.Mint{y: -1, x: 1}}
	if a.Hash() != b.Hash() {
		t.Error("mint map iteration order must not affect the hash")
	}
}

func TestTransaction_Size(t *testing.T) {
	script := testScript(t, 0x01)
	tx := NewBuilder().
		AddInput(testRef(0x01, 0)).
		AddOutput(testAddr(0x02), types.Coin(1000)).
		AttachScript(script).
		Build()
	body := len(tx.BodyBytes())
	if got := tx.Size(0); got != body+len(script) {
		t.Errorf("Size(0) = %d, want %d", got, body+len(script))
	}
	if got := tx.Size(2); got != body+len(script)+2*WitnessSize {
		t.Errorf("Size(2) = %d", got)
	}
}

func TestTransaction_SizeIndependentOfAmounts(t *testing.T) {
	small := NewBuilder().AddInput(testRef(1, 0)).AddOutput(testAddr(2), types.Coin(1)).SetFee(1).Build()
	large := NewBuilder().AddInput(testRef(1, 0)).AddOutput(testAddr(2), types.Coin(1<<60)).SetFee(1 << 40).Build()
	if small.Size(1) != large.Size(1) {
		t.Error("coin and fee amounts must not change the size")
	}
}

func TestTransaction_TotalOutputValue(t *testing.T) {
	ac := types.AssetClass{Policy: types.PolicyID{0x01}, Name: "X"}
	tx := &Transaction{
		Outputs: []Output{
			{Value: types.Coin(1000)},
			{Value: types.Coin(2000).WithAsset(ac, 1)},
			{Value: types.Coin(3000)},
		},
	}
	got, err := tx.TotalOutputValue()
	if err != nil {
		t.Fatalf("TotalOutputValue() error: %v", err)
	}
	if got.Coin != 6000 || got.Quantity(ac) != 1 {
		t.Errorf("TotalOutputValue() = %+v", got)
	}
}

func TestTransaction_TotalOutputValue_Overflow(t *testing.T) {
	tx := &Transaction{
		Outputs: []Output{
			{Value: types.Coin(^uint64(0))},
			{Value: types.Coin(1)},
		},
	}
	if _, err := tx.TotalOutputValue(); err == nil {
		t.Error("expected overflow error")
	}
}

func TestTransaction_Lookups(t *testing.T) {
	script := testScript(t, 0x07)
	policy := plutus.ScriptHash(script)
	ac := types.AssetClass{Policy: policy, Name: "T"}
	locked := testRef(0x05, 1)

	tx := NewBuilder().
		AddScriptInput(locked, plutus.Void()).
		AddOutput(testAddr(0x02), types.Coin(1000)).
		MintAsset(ac, -1, plutus.BurnRedeemer.Data()).
		AttachScript(script).
		AttachScript(script).
		Build()

	if len(tx.Scripts) != 1 {
		t.Errorf("AttachScript should dedupe, got %d scripts", len(tx.Scripts))
	}
	if s, ok := tx.Script(policy); !ok || len(s) == 0 {
		t.Error("Script(policy) should find the attached script")
	}
	if _, ok := tx.Script(types.PolicyID{0xff}); ok {
		t.Error("Script should miss unknown hashes")
	}
	if d, ok := tx.MintRedeemer(policy); !ok || !plutus.Equal(d, plutus.BurnRedeemer.Data()) {
		t.Errorf("MintRedeemer = %v, %v", d, ok)
	}
	if d, ok := tx.SpendRedeemer(locked); !ok || !plutus.Equal(d, plutus.Void()) {
		t.Errorf("SpendRedeemer = %v, %v", d, ok)
	}
	if !tx.SpendsInput(locked) || tx.SpendsInput(testRef(0x05, 2)) {
		t.Error("SpendsInput mismatch")
	}
}

func TestBuilder_MintKeepsFirstRedeemer(t *testing.T) {
	policy := types.PolicyID{0x03}
	tx := NewBuilder().
		MintAsset(types.AssetClass{Policy: policy, Name: "A"}, 1, plutus.MintRedeemer.Data()).
		MintAsset(types.AssetClass{Policy: policy, Name: "B"}, 1, plutus.BurnRedeemer.Data()).
		Build()
	if len(tx.Redeemers) != 1 {
		t.Fatalf("redeemers = %d, want 1 per policy", len(tx.Redeemers))
	}
	if d, _ := tx.MintRedeemer(policy); !plutus.Equal(d, plutus.MintRedeemer.Data()) {
		t.Error("first redeemer should win")
	}
}

func TestTransaction_JSONRoundtrip(t *testing.T) {
	script := testScript(t, 0x02)
	ac := types.AssetClass{Policy: plutus.ScriptHash(script), Name: "TOKEN"}
	tx := NewBuilder().
		AddInput(testRef(0x01, 0)).
		AddOutputWithDatum(types.ScriptAddress(types.PolicyID{0x04}), types.Coin(50_000_000), plutus.Void()).
		AddOutput(testAddr(0x02), types.Coin(2_000_000).WithAsset(ac, 1)).
		MintAsset(ac, 1, plutus.MintRedeemer.Data()).
		AttachScript(script).
		SetFee(200_000).
		Build()
	key, _ := crypto.GenerateKey()
	if err := tx.Sign(key); err != nil {
		t.Fatalf("Sign: %v", err)
	}

	data, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Transaction
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Hash() != tx.Hash() {
		t.Error("JSON roundtrip changed the transaction id")
	}
	if _, err := got.VerifyWitnesses(); err != nil {
		t.Errorf("witness lost in roundtrip: %v", err)
	}
}
