package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Klingon-tech/oneshot/config"
	"github.com/Klingon-tech/oneshot/internal/log"
	"github.com/Klingon-tech/oneshot/internal/mempool"
	"github.com/Klingon-tech/oneshot/internal/storage"
	"github.com/Klingon-tech/oneshot/internal/token"
	"github.com/Klingon-tech/oneshot/internal/utxo"
	"github.com/Klingon-tech/oneshot/pkg/block"
	"github.com/Klingon-tech/oneshot/pkg/tx"
	"github.com/Klingon-tech/oneshot/pkg/types"
)

// SlotSeconds is the emulated time between two blocks.
const SlotSeconds = 20

// Storage namespaces of the ledger's state.
var (
	nsUTxO   = []byte("u:")
	nsSupply = []byte("s:")
	nsChain  = []byte("c:")
)

// ErrBadAdvance is returned when Advance is asked for fewer than one block.
var ErrBadAdvance = errors.New("advance needs at least one block")

// Emulator is an in-process ledger. Accepted transactions wait in a mempool
// until Advance packs them into a block; the block, its UTxO changes and
// the supply book update are committed in one storage batch.
type Emulator struct {
	mu sync.RWMutex // Submit reads under RLock, Advance writes under Lock

	params  config.Protocol
	db      storage.DB
	ns      namespaces
	utxos   *utxo.Store
	supply  *token.Store
	blocks  *BlockStore
	pool    *mempool.Pool
	scripts *ScriptRegistry

	genesisTime uint64
	height      uint64
	tip         types.Hash
}

var _ View = (*Emulator)(nil)

type namespaces struct {
	utxo, supply, chain *storage.PrefixDB
}

// NewEmulator opens an emulator over db. A fresh store is seeded with one
// output per genesis account at height 0; a store that already has a tip is
// resumed and genesis is ignored. A nil registry accepts no scripts.
func NewEmulator(cfg *config.Config, db storage.DB, genesis []GenesisAccount, reg *ScriptRegistry) (*Emulator, error) {
	if db == nil {
		return nil, fmt.Errorf("storage db is nil")
	}
	if cfg == nil {
		cfg = config.Default(config.Testnet)
	}
	if err := cfg.Protocol.Validate(); err != nil {
		return nil, fmt.Errorf("protocol parameters: %w", err)
	}
	if reg == nil {
		reg = NewScriptRegistry()
	}

	ns := namespaces{
		utxo:   storage.NewPrefixDB(db, nsUTxO),
		supply: storage.NewPrefixDB(db, nsSupply),
		chain:  storage.NewPrefixDB(db, nsChain),
	}
	e := &Emulator{
		params:      cfg.Protocol,
		db:          db,
		ns:          ns,
		utxos:       utxo.NewStore(ns.utxo),
		supply:      token.NewStore(ns.supply),
		blocks:      NewBlockStore(ns.chain),
		scripts:     reg,
		genesisTime: config.GenesisFor(cfg.Network).Timestamp,
	}
	e.pool = mempool.New(e.utxos, cfg.Protocol, cfg.Mempool.MaxSize)
	e.pool.SetScriptCheck(reg.Evaluate)

	tip, height, ok, err := e.blocks.GetTip()
	if err != nil {
		return nil, fmt.Errorf("recover tip: %w", err)
	}
	if ok {
		e.tip, e.height = tip, height
		log.Ledger.Info().
			Uint64("height", height).
			Str("tip", tip.String()).
			Msg("resumed ledger")
		return e, nil
	}

	if err := e.initGenesis(genesis); err != nil {
		return nil, fmt.Errorf("apply genesis: %w", err)
	}
	return e, nil
}

// initGenesis commits block 0. Genesis bypasses validation.
func (e *Emulator) initGenesis(accounts []GenesisAccount) error {
	blk, err := genesisBlock(accounts, e.genesisTime)
	if err != nil {
		return err
	}
	batch := storage.NewBatch(e.db)
	utxoW, chainW := e.ns.utxo.Wrap(batch), e.ns.chain.Wrap(batch)
	genesis := blk.Transactions[0]
	id := genesis.Hash()
	for i, out := range genesis.Outputs {
		u := &UTxO{Ref: types.OutputRef{TxID: id, Index: uint32(i)}, Output: out}
		if err := e.utxos.PutTo(utxoW, u); err != nil {
			return err
		}
	}
	if err := e.blocks.PutBlock(chainW, blk); err != nil {
		return err
	}
	hash := blk.Hash()
	if err := e.blocks.SetTip(chainW, hash, 0); err != nil {
		return err
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("commit genesis: %w", err)
	}
	e.tip, e.height = hash, 0

	log.Ledger.Info().
		Int("accounts", len(accounts)).
		Str("genesis_tx", id.String()).
		Msg("ledger initialized")
	return nil
}

// UTxOsAt returns the outputs locked by addr, ordered by (TxID, Index).
func (e *Emulator) UTxOsAt(addr types.Address) ([]UTxO, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	found, err := e.utxos.ByAddress(addr)
	if err != nil {
		return nil, err
	}
	out := make([]UTxO, len(found))
	for i, u := range found {
		out[i] = *u
	}
	return out, nil
}

// UTxO returns one unspent output. The error wraps utxo.ErrNotFound when
// ref is spent or never existed.
func (e *Emulator) UTxO(ref types.OutputRef) (UTxO, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	u, err := e.utxos.Get(ref)
	if err != nil {
		return UTxO{}, err
	}
	return *u, nil
}

// Balance sums the values locked by addr.
func (e *Emulator) Balance(addr types.Address) (types.Value, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.utxos.Balance(addr)
}

// Supply returns the net circulating supply of an asset class.
func (e *Emulator) Supply(ac types.AssetClass) (int64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.supply.Supply(ac)
}

// SupplyRecord returns the full supply book entry of an asset class.
func (e *Emulator) SupplyRecord(ac types.AssetClass) (token.Record, bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.supply.Get(ac)
}

// Submit validates t and queues it for the next block. Rejections are
// returned as *ValidationError.
func (e *Emulator) Submit(ctx context.Context, t *tx.Transaction) (types.Hash, error) {
	if err := ctx.Err(); err != nil {
		return types.Hash{}, err
	}
	if t == nil {
		return types.Hash{}, &ValidationError{Code: Malformed, Msg: "nil transaction"}
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	id := t.Hash()
	if _, err := e.pool.Add(t); err != nil {
		ve := classify(err)
		log.Ledger.Debug().
			Str("tx", id.String()).
			Stringer("code", ve.Code).
			Err(err).
			Msg("transaction rejected")
		return types.Hash{}, ve
	}
	log.Ledger.Debug().Str("tx", id.String()).Uint64("fee", t.Fee).Msg("transaction accepted")
	return id, nil
}

// Advance produces n blocks. Every pending transaction goes into the first
// one; the rest are empty.
func (e *Emulator) Advance(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: got %d", ErrBadAdvance, n)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	pending := e.pool.SelectForBlock(0)
	for i := 0; i < n; i++ {
		var txs []*tx.Transaction
		if i == 0 {
			txs = pending
		}
		if err := e.applyBlock(txs); err != nil {
			return err
		}
	}
	e.pool.RemoveConfirmed(pending)
	return nil
}

// applyBlock commits one block on top of the tip. Must be called with e.mu
// held.
func (e *Emulator) applyBlock(txs []*tx.Transaction) error {
	height := e.height + 1

	// Resolve every input before staging anything, so a failure leaves the
	// batch untouched.
	spent := make([][]*UTxO, len(txs))
	var events []token.Event
	for i, t := range txs {
		for _, in := range t.Inputs {
			u, err := e.utxos.Get(in)
			if err != nil {
				return fmt.Errorf("block %d: tx %s: %w", height, t.Hash(), err)
			}
			spent[i] = append(spent[i], u)
		}
		if len(t.Mint.Classes()) > 0 {
			events = append(events, token.Event{TxID: t.Hash(), Mint: t.Mint})
		}
	}

	blk := block.Build(e.tip, height, e.genesisTime+height*SlotSeconds, txs)
	batch := storage.NewBatch(e.db)
	utxoW, chainW := e.ns.utxo.Wrap(batch), e.ns.chain.Wrap(batch)

	if err := e.supply.Apply(e.ns.supply.Wrap(batch), height, events); err != nil {
		return fmt.Errorf("block %d: supply: %w", height, err)
	}
	for i, t := range txs {
		for _, u := range spent[i] {
			if err := e.utxos.DeleteFrom(utxoW, u); err != nil {
				return err
			}
		}
		id := t.Hash()
		for idx, out := range t.Outputs {
			u := &UTxO{Ref: types.OutputRef{TxID: id, Index: uint32(idx)}, Output: out, Height: height}
			if err := e.utxos.PutTo(utxoW, u); err != nil {
				return err
			}
		}
	}
	if err := e.blocks.PutBlock(chainW, blk); err != nil {
		return err
	}
	hash := blk.Hash()
	if err := e.blocks.SetTip(chainW, hash, height); err != nil {
		return err
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("commit block %d: %w", height, err)
	}

	e.tip, e.height = hash, height
	log.Ledger.Info().
		Uint64("height", height).
		Int("txs", len(txs)).
		Str("hash", hash.String()).
		Msg("block applied")
	return nil
}

// Height returns the height of the tip.
func (e *Emulator) Height() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.height
}

// Tip returns the hash of the last block.
func (e *Emulator) Tip() types.Hash {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tip
}

// Block returns the block at height.
func (e *Emulator) Block(height uint64) (*block.Block, error) {
	return e.blocks.GetBlockByHeight(height)
}

// Confirmed returns the height of the block that included a transaction.
// ok is false while the transaction is pending or unknown.
func (e *Emulator) Confirmed(id types.Hash) (height uint64, ok bool) {
	h, _, err := e.blocks.GetTxLocation(id)
	if err != nil {
		return 0, false
	}
	return h, true
}

// Pending returns the number of accepted transactions waiting for a block.
func (e *Emulator) Pending() int {
	return e.pool.Count()
}

// StateRoot commits to the whole UTxO set.
func (e *Emulator) StateRoot() (types.Hash, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return utxo.Commitment(e.utxos)
}

// Audit checks the supply book against the UTxO set.
func (e *Emulator) Audit() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return token.Audit(e.supply, e.utxos)
}

// Params returns the protocol parameters the emulator enforces.
func (e *Emulator) Params() config.Protocol {
	return e.params
}
