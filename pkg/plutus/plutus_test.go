package plutus

import (
	"bytes"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/Klingon-tech/oneshot/pkg/types"
)

func TestEncode_Vectors(t *testing.T) {
	big64 := new(big.Int).Lsh(big.NewInt(1), 64)
	tests := []struct {
		name string
		data Data
		want string
	}{
		{"void", Void(), "d87980"},
		{"constr 1", NewConstr(1), "d87a80"},
		{"constr 7", NewConstr(7), "d9050080"},
		{"constr 200", NewConstr(200), "d8668218c880"},
		{"int", NewInt(5), "05"},
		{"negative int", NewInt(-1), "20"},
		{"bignum", Int{V: big64}, "c249010000000000000000"},
		{"bytes", Bytes("ab"), "426162"},
		{"nil bytes", Bytes(nil), "40"},
		{"list", List{NewInt(1), Bytes{0xff}}, "820141ff"},
		{"map", Map{{Key: Bytes("a"), Value: NewInt(1)}}, "a1416101"},
		{"nested", NewConstr(0, NewConstr(0, Bytes{0x01}), NewInt(2)), "d87982d879814101" + "02"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.data)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if hex.EncodeToString(got) != tt.want {
				t.Errorf("Encode = %x, want %s", got, tt.want)
			}

			back, err := Decode(got)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !Equal(back, tt.data) {
				t.Errorf("Decode(Encode(x)) = %#v, want %#v", back, tt.data)
			}
		})
	}
}

func TestDecode_IndefiniteList(t *testing.T) {
	// 9f 01 02 ff
	d, err := Decode([]byte{0x9f, 0x01, 0x02, 0xff})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	l, ok := d.(List)
	if !ok || len(l) != 2 {
		t.Fatalf("got %#v, want 2-item list", d)
	}
}

func TestDecode_Rejects(t *testing.T) {
	cases := map[string][]byte{
		"empty":      nil,
		"text":       {0x61, 0x61},
		"float":      {0xf9, 0x3c, 0x00},
		"other tag":  {0xd8, 0x20, 0x00},
		"truncated":  {0x42, 0x01},
		"bad header": {0xbc},
	}
	for name, in := range cases {
		if _, err := Decode(in); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestEncode_NilData(t *testing.T) {
	if _, err := Encode(List{nil}); !errors.Is(err, ErrUnsupportedData) {
		t.Errorf("err = %v, want ErrUnsupportedData", err)
	}
}

func TestOutputRefData_Shape(t *testing.T) {
	ref := types.OutputRef{TxID: types.Hash{0xaa, 0xbb}, Index: 3}
	enc := MustEncode(OutputRefData(ref))

	// Constr 0 [Constr 0 [Bytes(32)], 3]
	wantPrefix := "d87982d879815820aabb"
	if !strings.HasPrefix(hex.EncodeToString(enc), wantPrefix) {
		t.Errorf("encoding %x, want prefix %s", enc, wantPrefix)
	}
	if enc[len(enc)-1] != 0x03 {
		t.Errorf("last byte = %x, want index 03", enc[len(enc)-1])
	}

	back, err := OutputRefFromData(OutputRefData(ref))
	if err != nil {
		t.Fatalf("OutputRefFromData: %v", err)
	}
	if back != ref {
		t.Errorf("got %v, want %v", back, ref)
	}
}

func TestOutputRefFromData_Invalid(t *testing.T) {
	bad := []Data{
		Void(),
		NewConstr(0, NewConstr(0, Bytes{0x01}), NewInt(0)),
		NewConstr(0, NewConstr(0, Bytes(make([]byte, 32))), NewInt(-1)),
		NewConstr(1, NewConstr(0, Bytes(make([]byte, 32))), NewInt(0)),
	}
	for i, d := range bad {
		if _, err := OutputRefFromData(d); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}

func TestRedeemer(t *testing.T) {
	if hex.EncodeToString(MustEncode(MintRedeemer.Data())) != "d87980" {
		t.Error("mint redeemer must encode as Constr 0 []")
	}
	if hex.EncodeToString(MustEncode(BurnRedeemer.Data())) != "d87a80" {
		t.Error("burn redeemer must encode as Constr 1 []")
	}
	var zero Redeemer
	if zero != MintRedeemer {
		t.Error("zero value should be the mint redeemer")
	}
	if !BurnRedeemer.IsBurn() || MintRedeemer.IsBurn() {
		t.Error("IsBurn mismatch")
	}

	for _, r := range []Redeemer{MintRedeemer, BurnRedeemer} {
		got, err := ParseRedeemer(r.Data())
		if err != nil || got != r {
			t.Errorf("ParseRedeemer(%s) = %v, %v", r, got, err)
		}
	}
	for _, d := range []Data{NewConstr(2), NewConstr(0, NewInt(1)), NewInt(0)} {
		if _, err := ParseRedeemer(d); !errors.Is(err, ErrUnknownRedeemer) {
			t.Errorf("ParseRedeemer(%#v) err = %v", d, err)
		}
	}
}

func testTemplate(arity int) Template {
	return Template{Title: "test.policy", Code: []byte{0x4a, 0x01, 0x02, 0x03}, Params: arity}
}

func TestTemplate_ApplyDeterministic(t *testing.T) {
	tmpl := testTemplate(2)
	ref := types.OutputRef{TxID: types.Hash{0x01}, Index: 0}

	a, err := tmpl.Apply(Bytes("TOKEN"), OutputRefData(ref))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	b, err := tmpl.Apply(Bytes("TOKEN"), OutputRefData(ref))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !bytes.Equal(a.Script(), b.Script()) || a.Hash() != b.Hash() {
		t.Error("same inputs must give identical instances")
	}

	other, err := tmpl.Apply(Bytes("TOKEN"), OutputRefData(types.OutputRef{TxID: types.Hash{0x01}, Index: 1}))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if other.Hash() == a.Hash() {
		t.Error("different seeds must give different hashes")
	}
	if a.Hash() != ScriptHash(a.Script()) {
		t.Error("Instance.Hash must equal ScriptHash of the attached script")
	}
	if a.Address() != types.ScriptAddress(a.Hash()) {
		t.Error("Address mismatch")
	}
}

func TestTemplate_ApplyArity(t *testing.T) {
	if _, err := testTemplate(2).Apply(Bytes("x")); !errors.Is(err, ErrArity) {
		t.Errorf("err = %v, want ErrArity", err)
	}
	if _, err := (Template{Title: "empty", Params: 0}).Apply(); !errors.Is(err, ErrEmptyTemplate) {
		t.Errorf("err = %v, want ErrEmptyTemplate", err)
	}
}

func TestInstance_Immutable(t *testing.T) {
	inst, err := testTemplate(1).Apply(Bytes("x"))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	s := inst.Script()
	s[0] ^= 0xff
	if inst.Script()[0] == s[0] {
		t.Error("Script() must return a copy")
	}
	p := inst.Params()
	p[0] = NewInt(9)
	if !Equal(inst.Params()[0], Bytes("x")) {
		t.Error("Params() must return a copy")
	}
}

func TestDecodeScript_Roundtrip(t *testing.T) {
	tmpl := testTemplate(2)
	inst, err := tmpl.Apply(Bytes("N"), NewInt(7))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	code, params, err := DecodeScript(inst.Script())
	if err != nil {
		t.Fatalf("DecodeScript: %v", err)
	}
	if !bytes.Equal(code, tmpl.Code) {
		t.Errorf("code = %x, want %x", code, tmpl.Code)
	}
	if len(params) != 2 || !Equal(params[0], Bytes("N")) || !Equal(params[1], NewInt(7)) {
		t.Errorf("params = %#v", params)
	}
}

func TestDecodeScript_RequiresDoubleWrap(t *testing.T) {
	inst, err := testTemplate(0).Apply()
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	// Strip one layer.
	var single []byte
	single, _, err = unwrap(inst.Script(), 1)
	if err != nil {
		t.Fatalf("unwrap: %v", err)
	}
	if _, _, err := DecodeScript(single); !errors.Is(err, ErrBadScript) {
		t.Errorf("err = %v, want ErrBadScript", err)
	}
}

func TestDoubleEncode_Idempotent(t *testing.T) {
	program := []byte{0x82, 0x41, 0x01, 0x80}
	once, err := DoubleEncode(program)
	if err != nil {
		t.Fatalf("DoubleEncode: %v", err)
	}
	twice, err := DoubleEncode(once)
	if err != nil {
		t.Fatalf("DoubleEncode: %v", err)
	}
	if !bytes.Equal(once, twice) {
		t.Errorf("DoubleEncode not idempotent: %x vs %x", once, twice)
	}
	if got := hex.EncodeToString(once); got != "4544"+hex.EncodeToString(program) {
		t.Errorf("DoubleEncode = %s", got)
	}
}

const testBlueprint = `{
  "preamble": {"title": "test/oneshot", "plutusVersion": "v2"},
  "validators": [
    {"title": "mint.master_key", "compiledCode": "4a0102",
     "parameters": [{"title": "token_name"}, {"title": "utxo_ref"}]},
    {"title": "mint.redeem", "compiledCode": "4a0304"}
  ]
}`

func TestLoadBlueprint(t *testing.T) {
	bp, err := LoadBlueprint(strings.NewReader(testBlueprint))
	if err != nil {
		t.Fatalf("LoadBlueprint: %v", err)
	}
	if bp.Preamble.Title != "test/oneshot" || len(bp.Validators) != 2 {
		t.Fatalf("blueprint = %+v", bp)
	}

	tmpl, err := bp.Template("mint.master_key", 2)
	if err != nil {
		t.Fatalf("Template: %v", err)
	}
	if !bytes.Equal(tmpl.Code, []byte{0x4a, 0x01, 0x02}) || tmpl.Params != 2 {
		t.Errorf("template = %+v", tmpl)
	}

	if _, err := bp.Template("mint.master_key", 3); !errors.Is(err, ErrArity) {
		t.Errorf("arity err = %v", err)
	}
	if _, err := bp.Template("mint.redeem", 2); err != nil {
		t.Errorf("undeclared parameters should accept any arity: %v", err)
	}
	if _, err := bp.Template("nope", 0); !errors.Is(err, ErrValidatorNotFound) {
		t.Errorf("missing err = %v", err)
	}
}

func TestLoadBlueprint_Invalid(t *testing.T) {
	for _, in := range []string{
		`not json`,
		`{"validators": [{"title": "", "compiledCode": "00"}]}`,
		`{"validators": [{"title": "x", "compiledCode": "zz"}]}`,
	} {
		if _, err := LoadBlueprint(strings.NewReader(in)); err == nil {
			t.Errorf("LoadBlueprint(%q): expected error", in)
		}
	}
}
