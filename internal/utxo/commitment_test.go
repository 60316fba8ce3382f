package utxo

import (
	"testing"

	"github.com/Klingon-tech/oneshot/pkg/plutus"
	"github.com/Klingon-tech/oneshot/pkg/types"
)

func TestCommitment_Empty(t *testing.T) {
	root, err := Commitment(testStore(t))
	if err != nil {
		t.Fatalf("Commitment: %v", err)
	}
	if !root.IsZero() {
		t.Error("empty store commitment should be zero hash")
	}
}

func TestCommitment_DeterministicAndOrderIndependent(t *testing.T) {
	a := makeUTxO("tx1", 0, 1000, testAddr(0x01))
	b := makeUTxO("tx2", 1, 2000, testAddr(0x02))

	s1 := testStore(t)
	s1.Put(a)
	s1.Put(b)
	s2 := testStore(t)
	s2.Put(b)
	s2.Put(a)

	r1, _ := Commitment(s1)
	r2, _ := Commitment(s2)
	if r1.IsZero() || r1 != r2 {
		t.Errorf("commitments differ: %s vs %s", r1, r2)
	}
}

func TestCommitment_ChangesWithState(t *testing.T) {
	s := testStore(t)
	u := makeUTxO("tx1", 0, 1000, testAddr(0x01))
	s.Put(u)
	base, _ := Commitment(s)

	u.Output.Datum = plutus.Void()
	s.Put(u)
	withDatum, _ := Commitment(s)
	if withDatum == base {
		t.Error("datum must change the commitment")
	}

	u.Output.Value = u.Output.Value.WithAsset(types.AssetClass{Policy: types.PolicyID{0x01}, Name: "T"}, 1)
	s.Put(u)
	withAsset, _ := Commitment(s)
	if withAsset == withDatum {
		t.Error("assets must change the commitment")
	}

	s.Delete(u.Ref)
	if root, _ := Commitment(s); !root.IsZero() {
		t.Error("deleting the only UTxO should give the empty commitment")
	}
}
