package types

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// OutputRef identifies one ledger output by the id of the transaction that
// created it and its position in that transaction's outputs.
//
// A ledger accepts at most one transaction spending a given OutputRef, so a
// reference that has been spent can never be presented as unspent again.
type OutputRef struct {
	TxID  Hash   `json:"tx_id"`
	Index uint32 `json:"index"`
}

// IsZero returns true if the reference has a zero TxID and zero index.
func (o OutputRef) IsZero() bool {
	return o.TxID.IsZero() && o.Index == 0
}

// String returns "txid#index" in hex.
func (o OutputRef) String() string {
	return fmt.Sprintf("%s#%d", o.TxID.String(), o.Index)
}

// Compare orders references by transaction id, then by index.
func (o OutputRef) Compare(other OutputRef) int {
	if c := bytes.Compare(o.TxID[:], other.TxID[:]); c != 0 {
		return c
	}
	switch {
	case o.Index < other.Index:
		return -1
	case o.Index > other.Index:
		return 1
	default:
		return 0
	}
}

// ParseOutputRef parses the "txid#index" form produced by String.
func ParseOutputRef(s string) (OutputRef, error) {
	txPart, idxPart, ok := strings.Cut(s, "#")
	if !ok {
		return OutputRef{}, fmt.Errorf("output reference %q: missing '#'", s)
	}
	txID, err := HexToHash(txPart)
	if err != nil {
		return OutputRef{}, fmt.Errorf("output reference %q: %w", s, err)
	}
	idx, err := strconv.ParseUint(idxPart, 10, 32)
	if err != nil {
		return OutputRef{}, fmt.Errorf("output reference %q: bad index: %w", s, err)
	}
	return OutputRef{TxID: txID, Index: uint32(idx)}, nil
}
