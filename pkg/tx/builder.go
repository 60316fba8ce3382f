package tx

import (
	"bytes"

	"github.com/Klingon-tech/oneshot/pkg/crypto"
	"github.com/Klingon-tech/oneshot/pkg/plutus"
	"github.com/Klingon-tech/oneshot/pkg/types"
)

// Builder constructs transactions incrementally.
type Builder struct {
	tx *Transaction
}

// NewBuilder creates a new transaction builder.
func NewBuilder() *Builder {
	return &Builder{
		tx: &Transaction{},
	}
}

// AddInput adds a key-locked input.
func (b *Builder) AddInput(ref types.OutputRef) *Builder {
	b.tx.Inputs = append(b.tx.Inputs, ref)
	return b
}

// AddScriptInput adds a script-locked input with its spend redeemer.
func (b *Builder) AddScriptInput(ref types.OutputRef, redeemer plutus.Data) *Builder {
	b.tx.Inputs = append(b.tx.Inputs, ref)
	b.tx.Redeemers = append(b.tx.Redeemers, Redeemer{
		Purpose: PurposeSpend,
		Input:   ref,
		Data:    redeemer,
	})
	return b
}

// AddOutput adds an output without a datum.
func (b *Builder) AddOutput(addr types.Address, value types.Value) *Builder {
	b.tx.Outputs = append(b.tx.Outputs, Output{Address: addr, Value: value.Clone()})
	return b
}

// AddOutputWithDatum adds an output carrying an inline datum.
func (b *Builder) AddOutputWithDatum(addr types.Address, value types.Value, datum plutus.Data) *Builder {
	b.tx.Outputs = append(b.tx.Outputs, Output{Address: addr, Value: value.Clone(), Datum: datum})
	return b
}

// MintAsset adds qty of ac to the mint (negative burns) and records the
// policy redeemer. A policy keeps the first redeemer given for it.
func (b *Builder) MintAsset(ac types.AssetClass, qty int64, redeemer plutus.Data) *Builder {
	if b.tx.Mint == nil {
		b.tx.Mint = make(types.Mint)
	}
	b.tx.Mint[ac] += qty
	if _, ok := b.tx.MintRedeemer(ac.Policy); !ok {
		b.tx.Redeemers = append(b.tx.Redeemers, Redeemer{
			Purpose: PurposeMint,
			Policy:  ac.Policy,
			Data:    redeemer,
		})
	}
	return b
}

// AttachScript attaches a double-wrapped script. Attaching the same script
// twice is a no-op.
func (b *Builder) AttachScript(script []byte) *Builder {
	for _, s := range b.tx.Scripts {
		if bytes.Equal(s, script) {
			return b
		}
	}
	b.tx.Scripts = append(b.tx.Scripts, bytes.Clone(script))
	return b
}

// SetFee sets the transaction fee.
func (b *Builder) SetFee(fee uint64) *Builder {
	b.tx.Fee = fee
	return b
}

// Sign signs the transaction with each signer. Call after the body is final.
func (b *Builder) Sign(signers ...crypto.Signer) error {
	return b.tx.Sign(signers...)
}

// Build returns the constructed transaction.
// Does NOT validate; call tx.Validate() separately.
func (b *Builder) Build() *Transaction {
	return b.tx
}
