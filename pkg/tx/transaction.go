// Package tx defines transaction types and validation.
package tx

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/Klingon-tech/oneshot/pkg/crypto"
	"github.com/Klingon-tech/oneshot/pkg/plutus"
	"github.com/Klingon-tech/oneshot/pkg/types"
)

// WitnessSize is the serialized size of one witness: a compressed public
// key and a Schnorr signature.
const WitnessSize = 33 + 64

// Transaction represents a ledger transaction.
type Transaction struct {
	Inputs    []types.OutputRef `json:"inputs"`
	Outputs   []Output          `json:"outputs"`
	Mint      types.Mint        `json:"mint,omitempty"`
	Scripts   [][]byte          `json:"scripts,omitempty"` // Double-wrapped attached scripts
	Redeemers []Redeemer        `json:"redeemers,omitempty"`
	Fee       uint64            `json:"fee"`
	Witnesses []Witness         `json:"witnesses,omitempty"`
}

// Output defines a new UTxO.
type Output struct {
	Address types.Address `json:"address"`
	Value   types.Value   `json:"value"`
	Datum   plutus.Data   `json:"-"` // Inline datum, nil if none
}

type outputJSON struct {
	Address types.Address `json:"address"`
	Value   types.Value   `json:"value"`
	Datum   *string       `json:"datum,omitempty"`
}

// MarshalJSON encodes the output with the datum as hex CBOR.
func (o Output) MarshalJSON() ([]byte, error) {
	j := outputJSON{Address: o.Address, Value: o.Value}
	if o.Datum != nil {
		b, err := plutus.Encode(o.Datum)
		if err != nil {
			return nil, fmt.Errorf("encode datum: %w", err)
		}
		s := hex.EncodeToString(b)
		j.Datum = &s
	}
	return json.Marshal(j)
}

// UnmarshalJSON decodes an output with a hex CBOR datum.
func (o *Output) UnmarshalJSON(data []byte) error {
	var j outputJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	o.Address = j.Address
	o.Value = j.Value
	o.Datum = nil
	if j.Datum != nil {
		b, err := hex.DecodeString(*j.Datum)
		if err != nil {
			return err
		}
		d, err := plutus.Decode(b)
		if err != nil {
			return err
		}
		o.Datum = d
	}
	return nil
}

// Purpose says what a redeemer is for.
type Purpose uint8

const (
	PurposeSpend Purpose = iota
	PurposeMint
)

func (p Purpose) String() string {
	switch p {
	case PurposeSpend:
		return "spend"
	case PurposeMint:
		return "mint"
	default:
		return fmt.Sprintf("purpose(%d)", uint8(p))
	}
}

// Redeemer is the argument passed to a script. Spend redeemers target an
// input, mint redeemers target a policy.
type Redeemer struct {
	Purpose Purpose         `json:"purpose"`
	Input   types.OutputRef `json:"input,omitempty"`
	Policy  types.PolicyID  `json:"policy,omitempty"`
	Data    plutus.Data     `json:"-"` // Encoded by MarshalJSON
}

// Witness is a signature over the transaction id.
type Witness struct {
	PubKey    []byte `json:"pubkey"`
	Signature []byte `json:"signature"`
}

// Hash computes the transaction id (BLAKE3 of the body bytes). Witnesses
// are excluded to avoid a circular dependency.
func (tx *Transaction) Hash() types.Hash {
	return crypto.Hash(tx.BodyBytes())
}

// BodyBytes returns the canonical byte representation used for hashing and
// fee sizing.
//
//	input_count(4) | [txid(32) index(4)]...
//	output_count(4) | [address(29) value datum_len(4) datum]...
//	mint_count(4) | [policy(28) name_len(1) name qty(8)]...
//	fee(8)
//	script_count(4) | [script_hash(28)]...
//	redeemer_count(4) | [purpose(1) target data_len(4) data]...
//
// value = coin(8) asset_count(4) [policy(28) name_len(1) name qty(8)]...
// Assets, mint entries and script hashes are sorted.
func (tx *Transaction) BodyBytes() []byte {
	var buf []byte

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		buf = append(buf, in.TxID[:]...)
		buf = binary.LittleEndian.AppendUint32(buf, in.Index)
	}

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		buf = append(buf, out.Address.Bytes()...)
		buf = appendValue(buf, out.Value)
		var datum []byte
		if out.Datum != nil {
			// Unencodable datums are caught by Validate.
			datum, _ = plutus.Encode(out.Datum)
		}
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(datum)))
		buf = append(buf, datum...)
	}

	classes := tx.Mint.Classes()
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(classes)))
	for _, ac := range classes {
		buf = appendAssetClass(buf, ac)
		buf = binary.LittleEndian.AppendUint64(buf, uint64(tx.Mint[ac]))
	}

	buf = binary.LittleEndian.AppendUint64(buf, tx.Fee)

	hashes := tx.ScriptHashes()
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(hashes)))
	for _, h := range hashes {
		buf = append(buf, h[:]...)
	}

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(tx.Redeemers)))
	for _, r := range tx.Redeemers {
		buf = append(buf, byte(r.Purpose))
		switch r.Purpose {
		case PurposeSpend:
			buf = append(buf, r.Input.TxID[:]...)
			buf = binary.LittleEndian.AppendUint32(buf, r.Input.Index)
		default:
			buf = append(buf, r.Policy[:]...)
		}
		var data []byte
		if r.Data != nil {
			data, _ = plutus.Encode(r.Data)
		}
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(data)))
		buf = append(buf, data...)
	}

	return buf
}

func appendAssetClass(buf []byte, ac types.AssetClass) []byte {
	buf = append(buf, ac.Policy[:]...)
	buf = append(buf, byte(len(ac.Name)))
	return append(buf, ac.Name...)
}

func appendValue(buf []byte, v types.Value) []byte {
	buf = binary.LittleEndian.AppendUint64(buf, v.Coin)
	classes := v.Classes()
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(classes)))
	for _, ac := range classes {
		buf = appendAssetClass(buf, ac)
		buf = binary.LittleEndian.AppendUint64(buf, v.Assets[ac])
	}
	return buf
}

// Size returns the serialized size used for fees: body, attached scripts
// and the given number of witnesses.
func (tx *Transaction) Size(witnesses int) int {
	size := len(tx.BodyBytes())
	for _, s := range tx.Scripts {
		size += len(s)
	}
	return size + witnesses*WitnessSize
}

// ScriptHashes returns the hashes of the attached scripts, sorted.
func (tx *Transaction) ScriptHashes() []types.PolicyID {
	out := make([]types.PolicyID, 0, len(tx.Scripts))
	for _, s := range tx.Scripts {
		out = append(out, plutus.ScriptHash(s))
	}
	slices.SortFunc(out, func(a, b types.PolicyID) int {
		return slices.Compare(a[:], b[:])
	})
	return out
}

// Script returns the attached script with the given hash.
func (tx *Transaction) Script(hash types.PolicyID) ([]byte, bool) {
	for _, s := range tx.Scripts {
		if plutus.ScriptHash(s) == hash {
			return s, true
		}
	}
	return nil, false
}

// MintRedeemer returns the redeemer for a minting policy.
func (tx *Transaction) MintRedeemer(policy types.PolicyID) (plutus.Data, bool) {
	for _, r := range tx.Redeemers {
		if r.Purpose == PurposeMint && r.Policy == policy {
			return r.Data, true
		}
	}
	return nil, false
}

// SpendRedeemer returns the redeemer for a script-locked input.
func (tx *Transaction) SpendRedeemer(ref types.OutputRef) (plutus.Data, bool) {
	for _, r := range tx.Redeemers {
		if r.Purpose == PurposeSpend && r.Input == ref {
			return r.Data, true
		}
	}
	return nil, false
}

// TotalOutputValue returns the sum of all output values.
// Returns an error if the sum overflows.
func (tx *Transaction) TotalOutputValue() (types.Value, error) {
	var total types.Value
	for i, out := range tx.Outputs {
		sum, err := total.Add(out.Value)
		if err != nil {
			return types.Value{}, fmt.Errorf("output %d: %w", i, err)
		}
		total = sum
	}
	return total, nil
}

// SpendsInput reports whether the transaction consumes ref.
func (tx *Transaction) SpendsInput(ref types.OutputRef) bool {
	return slices.Contains(tx.Inputs, ref)
}

type redeemerJSON struct {
	Purpose Purpose         `json:"purpose"`
	Input   types.OutputRef `json:"input"`
	Policy  types.PolicyID  `json:"policy"`
	Data    string          `json:"data"`
}

// MarshalJSON encodes the redeemer with its data as hex CBOR.
func (r Redeemer) MarshalJSON() ([]byte, error) {
	j := redeemerJSON{Purpose: r.Purpose, Input: r.Input, Policy: r.Policy}
	if r.Data != nil {
		b, err := plutus.Encode(r.Data)
		if err != nil {
			return nil, fmt.Errorf("encode redeemer: %w", err)
		}
		j.Data = hex.EncodeToString(b)
	}
	return json.Marshal(j)
}

// UnmarshalJSON decodes a redeemer with hex CBOR data.
func (r *Redeemer) UnmarshalJSON(data []byte) error {
	var j redeemerJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	r.Purpose, r.Input, r.Policy, r.Data = j.Purpose, j.Input, j.Policy, nil
	if j.Data != "" {
		b, err := hex.DecodeString(j.Data)
		if err != nil {
			return err
		}
		d, err := plutus.Decode(b)
		if err != nil {
			return err
		}
		r.Data = d
	}
	return nil
}
