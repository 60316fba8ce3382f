package tx

import (
	"bytes"
	"fmt"

	"github.com/Klingon-tech/oneshot/pkg/crypto"
	"github.com/Klingon-tech/oneshot/pkg/types"
)

// Sign adds one witness per signer. Signers whose key already witnesses
// the transaction are skipped. The body must be final: any later change
// invalidates the witnesses.
func (tx *Transaction) Sign(signers ...crypto.Signer) error {
	hash := tx.Hash()
	for i, s := range signers {
		pub := s.PublicKey()
		if tx.hasWitness(pub) {
			continue
		}
		sig, err := s.Sign(hash[:])
		if err != nil {
			return fmt.Errorf("signer %d: %w", i, err)
		}
		tx.Witnesses = append(tx.Witnesses, Witness{PubKey: pub, Signature: sig})
	}
	return nil
}

func (tx *Transaction) hasWitness(pub []byte) bool {
	for _, w := range tx.Witnesses {
		if bytes.Equal(w.PubKey, pub) {
			return true
		}
	}
	return false
}

// VerifyWitnesses checks every witness signature against the transaction
// id and returns the set of key credentials that signed.
func (tx *Transaction) VerifyWitnesses() (map[[types.CredentialSize]byte]bool, error) {
	hash := tx.Hash()
	signed := make(map[[types.CredentialSize]byte]bool, len(tx.Witnesses))
	for i, w := range tx.Witnesses {
		if len(w.PubKey) == 0 {
			return nil, fmt.Errorf("witness %d: %w", i, ErrMissingPubKey)
		}
		if len(w.Signature) == 0 {
			return nil, fmt.Errorf("witness %d: %w", i, ErrMissingSig)
		}
		if !crypto.VerifySignature(hash[:], w.Signature, w.PubKey) {
			return nil, fmt.Errorf("witness %d: %w", i, ErrInvalidSig)
		}
		signed[crypto.KeyHash(w.PubKey)] = true
	}
	return signed, nil
}
