package tx

import "github.com/Klingon-tech/oneshot/config"

// MinFee returns the minimum fee for a transaction that will carry the
// given number of witnesses:
//
//	FeeA * (body + scripts + witnesses*WitnessSize) + FeeB
//
// Builders call this before signing with the number of distinct keys that
// will sign; the ledger checks it with the witnesses actually present.
func MinFee(transaction *Transaction, p config.Protocol, witnesses int) uint64 {
	return p.MinFee(transaction.Size(witnesses))
}

// RequiredFee returns the minimum fee for a fully signed transaction.
func RequiredFee(transaction *Transaction, p config.Protocol) uint64 {
	return MinFee(transaction, p, len(transaction.Witnesses))
}
