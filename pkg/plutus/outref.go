package plutus

import (
	"fmt"
	"math/big"

	"github.com/Klingon-tech/oneshot/pkg/types"
)

// OutputRefData encodes an output reference the way validators receive it:
//
//	Constr 0 [Constr 0 [Bytes txid], Int index]
func OutputRefData(ref types.OutputRef) Data {
	return Constr{Index: 0, Fields: []Data{
		Constr{Index: 0, Fields: []Data{Bytes(ref.TxID.Bytes())}},
		NewInt(int64(ref.Index)),
	}}
}

// OutputRefFromData is the inverse of OutputRefData.
func OutputRefFromData(d Data) (types.OutputRef, error) {
	outer, ok := d.(Constr)
	if !ok || outer.Index != 0 || len(outer.Fields) != 2 {
		return types.OutputRef{}, fmt.Errorf("%w: output reference shape", ErrMalformedData)
	}
	txid, ok := outer.Fields[0].(Constr)
	if !ok || txid.Index != 0 || len(txid.Fields) != 1 {
		return types.OutputRef{}, fmt.Errorf("%w: transaction id shape", ErrMalformedData)
	}
	raw, ok := txid.Fields[0].(Bytes)
	if !ok {
		return types.OutputRef{}, fmt.Errorf("%w: transaction id not bytes", ErrMalformedData)
	}
	hash, err := types.HashFromBytes(raw)
	if err != nil {
		return types.OutputRef{}, fmt.Errorf("%w: %v", ErrMalformedData, err)
	}
	idx, ok := outer.Fields[1].(Int)
	if !ok || idx.V == nil || idx.V.Sign() < 0 || idx.V.Cmp(big.NewInt(int64(^uint32(0)))) > 0 {
		return types.OutputRef{}, fmt.Errorf("%w: output index", ErrMalformedData)
	}
	return types.OutputRef{TxID: hash, Index: uint32(idx.V.Uint64())}, nil
}
