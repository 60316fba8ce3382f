package tx

import (
	"errors"
	"testing"

	"github.com/Klingon-tech/oneshot/config"
	"github.com/Klingon-tech/oneshot/pkg/crypto"
	"github.com/Klingon-tech/oneshot/pkg/plutus"
	"github.com/Klingon-tech/oneshot/pkg/types"
)

var testParams = config.DefaultProtocol()

// validTx creates a minimal valid signed transaction for testing.
func validTx(t *testing.T) *Transaction {
	t.Helper()
	key, _ := crypto.GenerateKey()
	b := NewBuilder().
		AddInput(testRef(0x01, 0)).
		AddOutput(testAddr(0x02), types.Coin(2_000_000))
	if err := b.Sign(key); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return b.Build()
}

func TestValidate_Valid(t *testing.T) {
	tx := validTx(t)
	if err := tx.Validate(testParams); err != nil {
		t.Errorf("valid tx should pass: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	ac := types.AssetClass{Policy: types.PolicyID{0x01}, Name: "X"}
	tests := []struct {
		name string
		tx   *Transaction
		want error
	}{
		{
			name: "no inputs",
			tx:   &Transaction{Outputs: []Output{{Address: testAddr(1), Value: types.Coin(2_000_000)}}},
			want: ErrNoInputs,
		},
		{
			name: "no outputs",
			tx:   &Transaction{Inputs: []types.OutputRef{testRef(1, 0)}},
			want: ErrNoOutputs,
		},
		{
			name: "duplicate input",
			tx: NewBuilder().AddInput(testRef(1, 0)).AddInput(testRef(1, 0)).
				AddOutput(testAddr(2), types.Coin(2_000_000)).Build(),
			want: ErrDuplicateInput,
		},
		{
			name: "zero address",
			tx:   NewBuilder().AddInput(testRef(1, 0)).AddOutput(types.Address{}, types.Coin(2_000_000)).Build(),
			want: ErrInvalidAddress,
		},
		{
			name: "empty output",
			tx:   NewBuilder().AddInput(testRef(1, 0)).AddOutput(testAddr(2), types.Value{}).Build(),
			want: ErrEmptyOutput,
		},
		{
			name: "below min utxo",
			tx:   NewBuilder().AddInput(testRef(1, 0)).AddOutput(testAddr(2), types.Coin(999_999)).Build(),
			want: ErrOutputBelowMinimum,
		},
		{
			name: "token without carrier coin",
			tx: NewBuilder().AddInput(testRef(1, 0)).
				AddOutput(testAddr(2), types.Value{}.WithAsset(ac, 1)).Build(),
			want: ErrOutputBelowMinimum,
		},
		{
			name: "bad datum",
			tx: NewBuilder().AddInput(testRef(1, 0)).
				AddOutputWithDatum(testAddr(2), types.Coin(2_000_000), plutus.List{nil}).Build(),
			want: ErrBadDatum,
		},
		{
			name: "output overflow",
			tx: NewBuilder().AddInput(testRef(1, 0)).
				AddOutput(testAddr(2), types.Coin(^uint64(0))).
				AddOutput(testAddr(3), types.Coin(2_000_000)).Build(),
			want: ErrOutputOverflow,
		},
		{
			name: "zero mint",
			tx: &Transaction{
				Inputs:  []types.OutputRef{testRef(1, 0)},
				Outputs: []Output{{Address: testAddr(2), Value: types.Coin(2_000_000)}},
				Mint:    types.Mint{ac: 0},
			},
			want: ErrZeroMint,
		},
		{
			name: "orphan mint redeemer",
			tx: &Transaction{
				Inputs:    []types.OutputRef{testRef(1, 0)},
				Outputs:   []Output{{Address: testAddr(2), Value: types.Coin(2_000_000)}},
				Redeemers: []Redeemer{{Purpose: PurposeMint, Policy: types.PolicyID{0x09}, Data: plutus.Void()}},
			},
			want: ErrOrphanRedeemer,
		},
		{
			name: "orphan spend redeemer",
			tx: &Transaction{
				Inputs:    []types.OutputRef{testRef(1, 0)},
				Outputs:   []Output{{Address: testAddr(2), Value: types.Coin(2_000_000)}},
				Redeemers: []Redeemer{{Purpose: PurposeSpend, Input: testRef(7, 7), Data: plutus.Void()}},
			},
			want: ErrOrphanRedeemer,
		},
		{
			name: "duplicate redeemer",
			tx: &Transaction{
				Inputs:  []types.OutputRef{testRef(1, 0)},
				Outputs: []Output{{Address: testAddr(2), Value: types.Coin(2_000_000)}},
				Redeemers: []Redeemer{
					{Purpose: PurposeSpend, Input: testRef(1, 0), Data: plutus.Void()},
					{Purpose: PurposeSpend, Input: testRef(1, 0), Data: plutus.Void()},
				},
			},
			want: ErrDuplicateRedeemer,
		},
		{
			name: "nil redeemer data",
			tx: &Transaction{
				Inputs:    []types.OutputRef{testRef(1, 0)},
				Outputs:   []Output{{Address: testAddr(2), Value: types.Coin(2_000_000)}},
				Redeemers: []Redeemer{{Purpose: PurposeSpend, Input: testRef(1, 0)}},
			},
			want: ErrNilRedeemer,
		},
		{
			name: "malformed script",
			tx: &Transaction{
				Inputs:  []types.OutputRef{testRef(1, 0)},
				Outputs: []Output{{Address: testAddr(2), Value: types.Coin(2_000_000)}},
				Scripts: [][]byte{{0x01, 0x02}},
			},
			want: ErrMalformedScript,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tx.Validate(testParams)
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestValidate_DuplicateScript(t *testing.T) {
	s := testScript(t, 0x01)
	tx := &Transaction{
		Inputs:  []types.OutputRef{testRef(1, 0)},
		Outputs: []Output{{Address: testAddr(2), Value: types.Coin(2_000_000)}},
		Scripts: [][]byte{s, s},
	}
	if err := tx.Validate(testParams); !errors.Is(err, ErrDuplicateScript) {
		t.Errorf("err = %v, want ErrDuplicateScript", err)
	}
}

func TestValidate_Limits(t *testing.T) {
	p := testParams
	p.MaxInputs = 1
	tx := NewBuilder().AddInput(testRef(1, 0)).AddInput(testRef(1, 1)).
		AddOutput(testAddr(2), types.Coin(2_000_000)).Build()
	if err := tx.Validate(p); !errors.Is(err, ErrTooManyInputs) {
		t.Errorf("err = %v, want ErrTooManyInputs", err)
	}

	p = testParams
	p.MaxOutputs = 1
	tx = NewBuilder().AddInput(testRef(1, 0)).
		AddOutput(testAddr(2), types.Coin(2_000_000)).
		AddOutput(testAddr(3), types.Coin(2_000_000)).Build()
	if err := tx.Validate(p); !errors.Is(err, ErrTooManyOutputs) {
		t.Errorf("err = %v, want ErrTooManyOutputs", err)
	}

	p = testParams
	p.MaxTxSize = 10
	if err := validTx(t).Validate(p); !errors.Is(err, ErrTxTooLarge) {
		t.Errorf("err = %v, want ErrTxTooLarge", err)
	}
}

func TestSign_DedupesKeys(t *testing.T) {
	key, _ := crypto.GenerateKey()
	tx := NewBuilder().AddInput(testRef(1, 0)).AddOutput(testAddr(2), types.Coin(2_000_000)).Build()
	if err := tx.Sign(key, key); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := tx.Sign(key); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if len(tx.Witnesses) != 1 {
		t.Errorf("witnesses = %d, want 1", len(tx.Witnesses))
	}
}

func TestVerifyWitnesses(t *testing.T) {
	a, _ := crypto.GenerateKey()
	b, _ := crypto.GenerateKey()
	tx := validTx(t)
	tx.Witnesses = nil
	if err := tx.Sign(a, b); err != nil {
		t.Fatalf("Sign: %v", err)
	}

	signed, err := tx.VerifyWitnesses()
	if err != nil {
		t.Fatalf("VerifyWitnesses: %v", err)
	}
	if !signed[crypto.KeyHash(a.PublicKey())] || !signed[crypto.KeyHash(b.PublicKey())] {
		t.Error("both signers should be reported")
	}
}

func TestVerifyWitnesses_Errors(t *testing.T) {
	tx := validTx(t)
	tx.Witnesses[0].Signature[0] ^= 0xff
	if _, err := tx.VerifyWitnesses(); !errors.Is(err, ErrInvalidSig) {
		t.Errorf("tampered sig: err = %v", err)
	}

	tx = validTx(t)
	tx.Fee = 1 // Body changed after signing.
	if _, err := tx.VerifyWitnesses(); !errors.Is(err, ErrInvalidSig) {
		t.Errorf("stale sig: err = %v", err)
	}

	tx = validTx(t)
	tx.Witnesses[0].PubKey = nil
	if _, err := tx.VerifyWitnesses(); !errors.Is(err, ErrMissingPubKey) {
		t.Errorf("no pubkey: err = %v", err)
	}

	tx = validTx(t)
	tx.Witnesses[0].Signature = nil
	if _, err := tx.VerifyWitnesses(); !errors.Is(err, ErrMissingSig) {
		t.Errorf("no sig: err = %v", err)
	}
}

func TestMinFee(t *testing.T) {
	tx := validTx(t)
	want := testParams.FeeA*uint64(tx.Size(1)) + testParams.FeeB
	if got := MinFee(tx, testParams, 1); got != want {
		t.Errorf("MinFee = %d, want %d", got, want)
	}
	if RequiredFee(tx, testParams) != want {
		t.Error("RequiredFee should count the attached witness")
	}
	if MinFee(tx, testParams, 2) <= want {
		t.Error("more witnesses must cost more")
	}
}
