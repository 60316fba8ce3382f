// Package protocol implements one-shot token issuance: a minting policy
// parameterized by an output the mint consumes, so it can mint at most once,
// and a spending policy that releases locked value only to a transaction
// burning that token.
//
// A run selects a seed, derives the policies from it, builds the mint and
// later the redeem transaction, and pushes each through build, sign and
// submit. Builders are pure; only the ledger holds state.
package protocol

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/oneshot/internal/validators"
	"github.com/Klingon-tech/oneshot/pkg/plutus"
	"github.com/Klingon-tech/oneshot/pkg/types"
)

// Templates are the two compiled policies a run parameterizes.
type Templates struct {
	Minting  plutus.Template // [token name, seed]
	Spending plutus.Template // [token name, minting policy id]
}

// DefaultTemplates returns the embedded master key and redeem validators.
func DefaultTemplates() (Templates, error) {
	mint, err := validators.MasterKey()
	if err != nil {
		return Templates{}, err
	}
	spend, err := validators.Redeem()
	if err != nil {
		return Templates{}, err
	}
	return Templates{Minting: mint, Spending: spend}, nil
}

// Context is everything derived from one seed. It is built once by
// Parameterize and passed by value; the instances it holds are immutable.
type Context struct {
	TokenName   types.AssetName
	Seed        types.OutputRef
	Minting     *plutus.Instance
	Spending    *plutus.Instance
	AssetClass  types.AssetClass
	LockAddress types.Address
}

// PolicyID returns the minting policy id.
func (c Context) PolicyID() types.PolicyID {
	return c.AssetClass.Policy
}

// Parameterize binds the minting template to (name, seed) and the spending
// template to (name, policy id). Same inputs give byte-identical scripts.
func Parameterize(tmpl Templates, name types.AssetName, seed types.OutputRef) (Context, error) {
	if _, err := types.NewAssetName([]byte(name)); err != nil {
		return Context{}, err
	}

	minting, err := tmpl.Minting.Apply(plutus.Bytes(name), plutus.OutputRefData(seed))
	if err != nil {
		return Context{}, applyError(err)
	}
	policy := minting.Hash()

	spending, err := tmpl.Spending.Apply(plutus.Bytes(name), plutus.Bytes(policy[:]))
	if err != nil {
		return Context{}, applyError(err)
	}

	return Context{
		TokenName:   name,
		Seed:        seed,
		Minting:     minting,
		Spending:    spending,
		AssetClass:  types.AssetClass{Policy: policy, Name: name},
		LockAddress: spending.Address(),
	}, nil
}

// NFTContext is the derivation of a stand-alone one-shot NFT policy.
type NFTContext struct {
	TokenName  types.AssetName
	Seed       types.OutputRef
	Policy     *plutus.Instance
	AssetClass types.AssetClass
}

// ParameterizeNFT binds the NFT template. Its parameters come in the
// opposite order to the master key: [seed, name].
func ParameterizeNFT(tmpl plutus.Template, name types.AssetName, seed types.OutputRef) (NFTContext, error) {
	if _, err := types.NewAssetName([]byte(name)); err != nil {
		return NFTContext{}, err
	}
	inst, err := tmpl.Apply(plutus.OutputRefData(seed), plutus.Bytes(name))
	if err != nil {
		return NFTContext{}, applyError(err)
	}
	return NFTContext{
		TokenName:  name,
		Seed:       seed,
		Policy:     inst,
		AssetClass: types.AssetClass{Policy: inst.Hash(), Name: name},
	}, nil
}

func applyError(err error) error {
	if errors.Is(err, plutus.ErrArity) {
		return fmt.Errorf("%w: %w", ErrTemplateArity, err)
	}
	return err
}
