package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Klingon-tech/oneshot/pkg/plutus"
	"github.com/Klingon-tech/oneshot/pkg/tx"
	"github.com/Klingon-tech/oneshot/pkg/types"
)

// Script evaluation errors.
var (
	ErrScriptFailed    = errors.New("script evaluation failed")
	ErrMissingScript   = errors.New("required script not attached")
	ErrMissingRedeemer = errors.New("script has no redeemer")
	ErrUnknownScript   = errors.New("script code is not registered")
)

// ScriptContext is what a script sees when it runs: the whole transaction,
// why the script is running, and its own parameters.
type ScriptContext struct {
	Tx       *tx.Transaction
	Purpose  tx.Purpose
	Own      types.PolicyID // Hash of the running script
	Params   []plutus.Data
	Redeemer plutus.Data

	// Spend only.
	Input types.OutputRef
	Datum plutus.Data

	Inputs []tx.ResolvedInput
}

// Spends reports whether the transaction consumes ref.
func (sc ScriptContext) Spends(ref types.OutputRef) bool {
	return sc.Tx.SpendsInput(ref)
}

// OwnMint returns the mint entries under the running script's policy.
func (sc ScriptContext) OwnMint() map[types.AssetName]int64 {
	return sc.Tx.Mint.ByPolicy(sc.Own)
}

// Evaluator decides whether a script accepts a transaction. It stands in for
// the compiled validator code, which the ledger treats as opaque.
type Evaluator func(sc ScriptContext) error

type registered struct {
	title string
	eval  Evaluator
}

// ScriptRegistry maps template code to the evaluator that implements it.
// Every instance of a template shares its code, so one entry covers all
// parameterizations.
type ScriptRegistry struct {
	mu     sync.RWMutex
	byCode map[string]registered
}

// NewScriptRegistry returns an empty registry. With no entries every script
// fails.
func NewScriptRegistry() *ScriptRegistry {
	return &ScriptRegistry{byCode: make(map[string]registered)}
}

// Register binds template code to an evaluator, replacing any earlier entry.
func (r *ScriptRegistry) Register(title string, code []byte, eval Evaluator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byCode[string(code)] = registered{title: title, eval: eval}
}

// Lookup returns the title and evaluator registered for code.
func (r *ScriptRegistry) Lookup(code []byte) (string, Evaluator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byCode[string(code)]
	return e.title, e.eval, ok
}

// Len returns the number of registered templates.
func (r *ScriptRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byCode)
}

// Evaluate runs every script the transaction exercises: the validator of
// each script-locked input and the policy of each minted or burned asset.
// Attached scripts nothing exercises are ignored.
func (r *ScriptRegistry) Evaluate(t *tx.Transaction, inputs []tx.ResolvedInput) error {
	for _, in := range inputs {
		if !in.Output.Address.IsScript() {
			continue
		}
		hash := types.PolicyID(in.Output.Address.Hash)
		redeemer, ok := t.SpendRedeemer(in.Ref)
		if !ok {
			return fmt.Errorf("spend %s: %w", in.Ref, ErrMissingRedeemer)
		}
		sc := ScriptContext{
			Tx:       t,
			Purpose:  tx.PurposeSpend,
			Own:      hash,
			Redeemer: redeemer,
			Input:    in.Ref,
			Datum:    in.Output.Datum,
			Inputs:   inputs,
		}
		if err := r.run(sc, "spend "+in.Ref.String()); err != nil {
			return err
		}
	}

	for _, policy := range t.Mint.Policies() {
		redeemer, ok := t.MintRedeemer(policy)
		if !ok {
			return fmt.Errorf("mint %s: %w", policy, ErrMissingRedeemer)
		}
		sc := ScriptContext{
			Tx:       t,
			Purpose:  tx.PurposeMint,
			Own:      policy,
			Redeemer: redeemer,
			Inputs:   inputs,
		}
		if err := r.run(sc, "mint "+policy.String()); err != nil {
			return err
		}
	}
	return nil
}

func (r *ScriptRegistry) run(sc ScriptContext, target string) error {
	script, ok := sc.Tx.Script(sc.Own)
	if !ok {
		return fmt.Errorf("%s: %w", target, ErrMissingScript)
	}
	code, params, err := plutus.DecodeScript(script)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrScriptFailed, target, err)
	}
	title, eval, ok := r.Lookup(code)
	if !ok {
		return fmt.Errorf("%w: %s: %w", ErrScriptFailed, target, ErrUnknownScript)
	}
	sc.Params = params
	if err := eval(sc); err != nil {
		return fmt.Errorf("%w: %s (%s): %w", ErrScriptFailed, title, target, err)
	}
	return nil
}
