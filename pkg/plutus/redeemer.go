package plutus

import (
	"errors"
	"fmt"
)

// ErrUnknownRedeemer is returned when data does not encode a known action.
var ErrUnknownRedeemer = errors.New("unknown redeemer")

// Redeemer is the action passed to a one-shot minting policy. The only
// values are MintRedeemer and BurnRedeemer; the zero value is MintRedeemer.
type Redeemer struct {
	action uint8
}

// Minting policy actions, encoded as Constr 0 [] and Constr 1 [].
var (
	MintRedeemer = Redeemer{action: 0}
	BurnRedeemer = Redeemer{action: 1}
)

// Data returns the canonical data form of the redeemer.
func (r Redeemer) Data() Data {
	return Constr{Index: uint64(r.action)}
}

// IsBurn reports whether the redeemer requests a burn.
func (r Redeemer) IsBurn() bool {
	return r == BurnRedeemer
}

func (r Redeemer) String() string {
	if r.IsBurn() {
		return "burn"
	}
	return "mint"
}

// ParseRedeemer decodes a minting action. Anything other than a field-less
// constructor 0 or 1 is rejected.
func ParseRedeemer(d Data) (Redeemer, error) {
	c, ok := d.(Constr)
	if !ok || len(c.Fields) != 0 {
		return Redeemer{}, fmt.Errorf("%w: %T", ErrUnknownRedeemer, d)
	}
	switch c.Index {
	case 0:
		return MintRedeemer, nil
	case 1:
		return BurnRedeemer, nil
	default:
		return Redeemer{}, fmt.Errorf("%w: constructor %d", ErrUnknownRedeemer, c.Index)
	}
}
