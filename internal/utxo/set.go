// Package utxo manages the ledger's unspent output set.
package utxo

import (
	"github.com/Klingon-tech/oneshot/pkg/tx"
	"github.com/Klingon-tech/oneshot/pkg/types"
)

// UTxO is an unspent output together with where and when it was created.
type UTxO struct {
	Ref    types.OutputRef `json:"ref"`
	Output tx.Output       `json:"output"`
	Height uint64          `json:"height"`
}

// Address returns the address locking the output.
func (u *UTxO) Address() types.Address {
	return u.Output.Address
}

// Value returns the value held by the output.
func (u *UTxO) Value() types.Value {
	return u.Output.Value
}

// Set is the interface for UTxO storage.
type Set interface {
	Get(ref types.OutputRef) (*UTxO, error)
	Put(u *UTxO) error
	Delete(ref types.OutputRef) error
	Has(ref types.OutputRef) (bool, error)
}
