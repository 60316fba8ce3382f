// Package mempool manages pending transactions waiting for block inclusion.
package mempool

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/Klingon-tech/oneshot/config"
	"github.com/Klingon-tech/oneshot/internal/log"
	"github.com/Klingon-tech/oneshot/pkg/tx"
	"github.com/Klingon-tech/oneshot/pkg/types"
)

// Mempool errors.
var (
	ErrAlreadyExists = errors.New("transaction already in mempool")
	ErrConflict      = errors.New("transaction conflicts with existing mempool entry")
	ErrPoolFull      = errors.New("mempool is full")
	ErrValidation    = errors.New("transaction failed validation")
	ErrPolicy        = errors.New("transaction rejected by mempool policy")
)

// ScriptCheck runs the script phase of validation over a transaction whose
// phase-one checks passed.
type ScriptCheck func(transaction *tx.Transaction, inputs []tx.ResolvedInput) error

// entry wraps a transaction with its fee and metadata.
type entry struct {
	tx      *tx.Transaction
	txHash  types.Hash
	fee     uint64
	feeRate float64 // fee per byte of fee-bearing size
	seq     uint64  // arrival order
}

// Pool holds transactions accepted by the ledger but not yet in a block.
type Pool struct {
	mu      sync.RWMutex
	txs     map[types.Hash]*entry          // txHash -> entry
	spends  map[types.OutputRef]types.Hash // ref -> txHash (conflict index)
	maxSize int
	seq     uint64

	params  config.Protocol
	policy  *Policy
	utxos   tx.UTxOProvider
	scripts ScriptCheck // nil = phase one only
}

// New creates a new mempool validating against the given UTxO provider.
func New(utxos tx.UTxOProvider, params config.Protocol, maxSize int) *Pool {
	if maxSize <= 0 {
		maxSize = 5000
	}
	return &Pool{
		txs:     make(map[types.Hash]*entry),
		spends:  make(map[types.OutputRef]types.Hash),
		maxSize: maxSize,
		params:  params,
		policy:  DefaultPolicy(),
		utxos:   utxos,
	}
}

// SetScriptCheck installs the script phase of validation.
func (p *Pool) SetScriptCheck(fn ScriptCheck) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scripts = fn
}

// SetPolicy replaces the acceptance policy.
func (p *Pool) SetPolicy(policy *Policy) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.policy = policy
}

// Add validates and adds a transaction to the mempool.
// Returns the fee. Rejects duplicates and double-spend conflicts; the conflict
// check and the insert happen under one lock, so of two transactions racing
// for the same input exactly one is accepted.
func (p *Pool) Add(transaction *tx.Transaction) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	txHash := transaction.Hash()

	if _, exists := p.txs[txHash]; exists {
		return 0, ErrAlreadyExists
	}

	for _, in := range transaction.Inputs {
		if conflictHash, exists := p.spends[in]; exists {
			return 0, &ConflictError{Input: in, Holder: conflictHash}
		}
	}

	if p.policy != nil {
		if err := p.policy.Check(transaction); err != nil {
			return 0, fmt.Errorf("%w: %w", ErrPolicy, err)
		}
	}

	resolved, err := transaction.ValidateWithUTXOs(p.params, p.utxos)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if p.scripts != nil {
		if err := p.scripts(transaction, resolved); err != nil {
			return 0, fmt.Errorf("%w: %w", ErrValidation, err)
		}
	}

	fee := transaction.Fee
	feeRate := float64(fee) / float64(transaction.Size(len(transaction.Witnesses)))

	// Evict the lowest fee-rate entry if the new one pays more.
	if len(p.txs) >= p.maxSize {
		lowestHash, lowestRate := p.findLowestFeeRate()
		if feeRate <= lowestRate {
			return 0, ErrPoolFull
		}
		p.removeLocked(lowestHash)
	}

	p.seq++
	p.txs[txHash] = &entry{
		tx:      transaction,
		txHash:  txHash,
		fee:     fee,
		feeRate: feeRate,
		seq:     p.seq,
	}
	for _, in := range transaction.Inputs {
		p.spends[in] = txHash
	}

	log.Mempool.Debug().
		Str("tx", txHash.String()).
		Uint64("fee", fee).
		Int("pending", len(p.txs)).
		Msg("transaction accepted")
	return fee, nil
}

// ConflictError reports the pending transaction already spending an input.
type ConflictError struct {
	Input  types.OutputRef
	Holder types.Hash
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%v: input %s already spent by %s", ErrConflict, e.Input, e.Holder)
}

// Unwrap lets errors.Is match ErrConflict.
func (e *ConflictError) Unwrap() error { return ErrConflict }

// Remove removes a transaction from the mempool by hash.
func (p *Pool) Remove(txHash types.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeLocked(txHash)
}

func (p *Pool) removeLocked(txHash types.Hash) {
	e, exists := p.txs[txHash]
	if !exists {
		return
	}
	for _, in := range e.tx.Inputs {
		delete(p.spends, in)
	}
	delete(p.txs, txHash)
}

// RemoveConfirmed removes all transactions that were included in a block.
func (p *Pool) RemoveConfirmed(transactions []*tx.Transaction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range transactions {
		p.removeLocked(t.Hash())
	}
}

// Has checks if a transaction exists in the mempool.
func (p *Pool) Has(txHash types.Hash) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, exists := p.txs[txHash]
	return exists
}

// Get retrieves a transaction from the mempool.
func (p *Pool) Get(txHash types.Hash) *tx.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, exists := p.txs[txHash]
	if !exists {
		return nil
	}
	return e.tx
}

// GetFee returns the fee for a transaction in the mempool (0 if not found).
func (p *Pool) GetFee(txHash types.Hash) uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, exists := p.txs[txHash]
	if !exists {
		return 0
	}
	return e.fee
}

// Spender returns the pending transaction spending ref, if any.
func (p *Pool) Spender(ref types.OutputRef) (types.Hash, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	h, ok := p.spends[ref]
	return h, ok
}

// Count returns the number of transactions in the mempool.
func (p *Pool) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.txs)
}

// findLowestFeeRate returns the hash and fee rate of the lowest fee-rate entry.
// Must be called with p.mu held.
func (p *Pool) findLowestFeeRate() (types.Hash, float64) {
	var lowestHash types.Hash
	lowestRate := math.MaxFloat64
	for h, e := range p.txs {
		if e.feeRate < lowestRate {
			lowestRate = e.feeRate
			lowestHash = h
		}
	}
	return lowestHash, lowestRate
}

// sortedLocked returns entries by fee rate, highest first, ties in arrival
// order. Must be called with p.mu held.
func (p *Pool) sortedLocked() []*entry {
	entries := make([]*entry, 0, len(p.txs))
	for _, e := range p.txs {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].feeRate != entries[j].feeRate {
			return entries[i].feeRate > entries[j].feeRate
		}
		return entries[i].seq < entries[j].seq
	})
	return entries
}

// SelectForBlock returns up to limit transactions, highest fee rate first.
// A limit of zero or less selects everything.
func (p *Pool) SelectForBlock(limit int) []*tx.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entries := p.sortedLocked()
	if limit <= 0 || limit > len(entries) {
		limit = len(entries)
	}
	result := make([]*tx.Transaction, limit)
	for i := 0; i < limit; i++ {
		result[i] = entries[i].tx
	}
	return result
}
