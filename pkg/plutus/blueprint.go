package plutus

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrValidatorNotFound is returned when a blueprint has no validator with
// the requested title.
var ErrValidatorNotFound = errors.New("validator not found in blueprint")

// Blueprint is the compiled-contract artifact (plutus.json).
type Blueprint struct {
	Preamble   Preamble    `json:"preamble"`
	Validators []Validator `json:"validators"`
}

// Preamble describes the project a blueprint was compiled from.
type Preamble struct {
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	Version       string `json:"version,omitempty"`
	PlutusVersion string `json:"plutusVersion,omitempty"`
}

// Validator is one compiled validator entry.
type Validator struct {
	Title        string      `json:"title"`
	CompiledCode string      `json:"compiledCode"`
	Hash         string      `json:"hash,omitempty"`
	Parameters   []Parameter `json:"parameters,omitempty"`
}

// Parameter is a declared template parameter.
type Parameter struct {
	Title  string          `json:"title"`
	Schema json.RawMessage `json:"schema,omitempty"`
}

// LoadBlueprint parses a blueprint.
func LoadBlueprint(r io.Reader) (*Blueprint, error) {
	var bp Blueprint
	if err := json.NewDecoder(r).Decode(&bp); err != nil {
		return nil, fmt.Errorf("decode blueprint: %w", err)
	}
	for i, v := range bp.Validators {
		if v.Title == "" {
			return nil, fmt.Errorf("validator %d: missing title", i)
		}
		if _, err := hex.DecodeString(v.CompiledCode); err != nil {
			return nil, fmt.Errorf("validator %s: compiled code: %w", v.Title, err)
		}
	}
	return &bp, nil
}

// Template returns the validator with the given title as a template of the
// given arity. When the blueprint declares parameters their count must
// match.
func (bp *Blueprint) Template(title string, params int) (Template, error) {
	for _, v := range bp.Validators {
		if v.Title != title {
			continue
		}
		if v.Parameters != nil && len(v.Parameters) != params {
			return Template{}, fmt.Errorf("%s: %w: blueprint declares %d, want %d",
				title, ErrArity, len(v.Parameters), params)
		}
		code, err := hex.DecodeString(v.CompiledCode)
		if err != nil {
			return Template{}, fmt.Errorf("%s: compiled code: %w", title, err)
		}
		return Template{Title: title, Code: code, Params: params}, nil
	}
	return Template{}, fmt.Errorf("%w: %s", ErrValidatorNotFound, title)
}
