// Package validators ships the compiled one-shot validators and the
// evaluators the ledger emulator runs in their place.
//
// mint.master_key is parameterized by a token name and a seed output. It
// mints exactly one unit, and only in a transaction that spends the seed;
// it burns exactly one unit at any time. mint.redeem locks value until a
// transaction burns one unit of the master key. ppp_mint.nft_policy is a
// stand-alone one-shot NFT policy with the parameters in the opposite order.
package validators

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"github.com/Klingon-tech/oneshot/internal/ledger"
	"github.com/Klingon-tech/oneshot/pkg/plutus"
	"github.com/Klingon-tech/oneshot/pkg/types"
)

// Validator titles in the blueprint.
const (
	MasterKeyTitle = "mint.master_key"
	RedeemTitle    = "mint.redeem"
	NFTPolicyTitle = "ppp_mint.nft_policy"
)

// Validation failures reported by the evaluators.
var (
	ErrBadParams       = errors.New("script parameters do not match the validator")
	ErrSeedNotSpent    = errors.New("seed output is not spent")
	ErrWrongQuantity   = errors.New("mint must be exactly one unit of the token")
	ErrMasterKeyIntact = errors.New("master key is not burned")
)

//go:embed plutus.json
var blueprintJSON []byte

var (
	loadOnce  sync.Once
	blueprint *plutus.Blueprint
	loadErr   error
)

// Blueprint returns the embedded blueprint.
func Blueprint() (*plutus.Blueprint, error) {
	loadOnce.Do(func() {
		blueprint, loadErr = plutus.LoadBlueprint(bytes.NewReader(blueprintJSON))
	})
	return blueprint, loadErr
}

func template(title string) (plutus.Template, error) {
	bp, err := Blueprint()
	if err != nil {
		return plutus.Template{}, err
	}
	return bp.Template(title, 2)
}

// MasterKey returns the minting template, parameters [name, seed].
func MasterKey() (plutus.Template, error) { return template(MasterKeyTitle) }

// Redeem returns the spending template, parameters [name, policy id].
func Redeem() (plutus.Template, error) { return template(RedeemTitle) }

// NFTPolicy returns the stand-alone NFT template, parameters [seed, name].
func NFTPolicy() (plutus.Template, error) { return template(NFTPolicyTitle) }

// Register adds the evaluators for every embedded validator to reg.
func Register(reg *ledger.ScriptRegistry) error {
	entries := []struct {
		title string
		eval  ledger.Evaluator
	}{
		{MasterKeyTitle, evalMasterKey},
		{RedeemTitle, evalRedeem},
		{NFTPolicyTitle, evalNFT},
	}
	for _, e := range entries {
		tmpl, err := template(e.title)
		if err != nil {
			return err
		}
		reg.Register(e.title, tmpl.Code, e.eval)
	}
	return nil
}

// Registry returns a fresh registry holding the embedded validators.
func Registry() (*ledger.ScriptRegistry, error) {
	reg := ledger.NewScriptRegistry()
	if err := Register(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

func evalMasterKey(sc ledger.ScriptContext) error {
	if len(sc.Params) != 2 {
		return ErrBadParams
	}
	name, ok := sc.Params[0].(plutus.Bytes)
	if !ok {
		return fmt.Errorf("%w: token name", ErrBadParams)
	}
	seed, err := plutus.OutputRefFromData(sc.Params[1])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadParams, err)
	}
	action, err := plutus.ParseRedeemer(sc.Redeemer)
	if err != nil {
		return err
	}

	if action.IsBurn() {
		return onlyEntry(sc.OwnMint(), types.AssetName(name), -1)
	}
	if !sc.Spends(seed) {
		return fmt.Errorf("%w: %s", ErrSeedNotSpent, seed)
	}
	return onlyEntry(sc.OwnMint(), types.AssetName(name), 1)
}

func evalRedeem(sc ledger.ScriptContext) error {
	if len(sc.Params) != 2 {
		return ErrBadParams
	}
	name, ok := sc.Params[0].(plutus.Bytes)
	if !ok {
		return fmt.Errorf("%w: token name", ErrBadParams)
	}
	raw, ok := sc.Params[1].(plutus.Bytes)
	if !ok || len(raw) != types.CredentialSize {
		return fmt.Errorf("%w: policy id", ErrBadParams)
	}
	ac := types.AssetClass{Policy: types.PolicyID(raw), Name: types.AssetName(name)}
	if sc.Tx.Mint[ac] != -1 {
		return fmt.Errorf("%w: %s", ErrMasterKeyIntact, ac)
	}
	return nil
}

func evalNFT(sc ledger.ScriptContext) error {
	if len(sc.Params) != 2 {
		return ErrBadParams
	}
	seed, err := plutus.OutputRefFromData(sc.Params[0])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadParams, err)
	}
	name, ok := sc.Params[1].(plutus.Bytes)
	if !ok {
		return fmt.Errorf("%w: token name", ErrBadParams)
	}
	if !sc.Spends(seed) {
		return fmt.Errorf("%w: %s", ErrSeedNotSpent, seed)
	}
	return onlyEntry(sc.OwnMint(), types.AssetName(name), 1)
}

// onlyEntry requires the policy's mint to be exactly {name: qty}.
func onlyEntry(mint map[types.AssetName]int64, name types.AssetName, qty int64) error {
	if len(mint) != 1 || mint[name] != qty {
		return fmt.Errorf("%w: want %d of %q, got %v", ErrWrongQuantity, qty, name.Hex(), mint)
	}
	return nil
}
