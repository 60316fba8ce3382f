package plutus

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/Klingon-tech/oneshot/pkg/crypto"
	"github.com/Klingon-tech/oneshot/pkg/types"
	"github.com/fxamacker/cbor/v2"
)

// Script errors.
var (
	ErrArity         = errors.New("parameter count does not match template arity")
	ErrEmptyTemplate = errors.New("template has no code")
	ErrBadScript     = errors.New("malformed script")
)

// Template is a compiled validator that still expects its parameters.
// Code is opaque.
type Template struct {
	Title  string
	Code   []byte
	Params int
}

// Apply binds params to the template. The result is a pure function of the
// template code and the parameter encodings.
func (t Template) Apply(params ...Data) (*Instance, error) {
	if len(t.Code) == 0 {
		return nil, fmt.Errorf("%s: %w", t.Title, ErrEmptyTemplate)
	}
	if len(params) != t.Params {
		return nil, fmt.Errorf("%s: %w: want %d, got %d", t.Title, ErrArity, t.Params, len(params))
	}

	encoded := make([]cbor.RawMessage, 0, len(params))
	for i, p := range params {
		b, err := Encode(p)
		if err != nil {
			return nil, fmt.Errorf("%s: param %d: %w", t.Title, i, err)
		}
		encoded = append(encoded, b)
	}
	program, err := encMode.Marshal([]interface{}{t.Code, encoded})
	if err != nil {
		return nil, fmt.Errorf("%s: encode program: %w", t.Title, err)
	}
	script, err := DoubleEncode(program)
	if err != nil {
		return nil, err
	}

	kept := make([]Data, len(params))
	copy(kept, params)
	return &Instance{
		title:  t.Title,
		code:   bytes.Clone(t.Code),
		params: kept,
		script: script,
		hash:   crypto.ScriptHash(crypto.LangPlutusV2, script),
	}, nil
}

// Instance is a template with its parameters applied. It is immutable;
// accessors return copies.
type Instance struct {
	title  string
	code   []byte
	params []Data
	script []byte
	hash   types.PolicyID
}

// Title returns the title of the template the instance was built from.
func (i *Instance) Title() string { return i.title }

// Params returns the applied parameters.
func (i *Instance) Params() []Data {
	out := make([]Data, len(i.params))
	copy(out, i.params)
	return out
}

// Script returns the double-wrapped script as attached to transactions.
func (i *Instance) Script() []byte { return bytes.Clone(i.script) }

// Hash returns the script hash. For a minting policy it is the policy id.
func (i *Instance) Hash() types.PolicyID { return i.hash }

// Address returns the script address of the instance.
func (i *Instance) Address() types.Address { return types.ScriptAddress(i.hash) }

// DoubleEncode wraps a program in exactly two CBOR byte-string layers.
// Layers already present are peeled first, so the result is the same
// whether the input was raw, single-wrapped or double-wrapped.
func DoubleEncode(program []byte) ([]byte, error) {
	inner, _, err := unwrap(program, 2)
	if err != nil {
		return nil, err
	}
	once, err := encMode.Marshal(inner)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadScript, err)
	}
	return encMode.Marshal(once)
}

// DecodeScript unwraps an attached script and splits the application
// envelope into template code and parameters.
func DecodeScript(script []byte) (code []byte, params []Data, err error) {
	program, layers, err := unwrap(script, 2)
	if err != nil {
		return nil, nil, err
	}
	if layers != 2 {
		return nil, nil, fmt.Errorf("%w: expected 2 byte-string layers, got %d", ErrBadScript, layers)
	}

	var envelope []cbor.RawMessage
	if err := cbor.Unmarshal(program, &envelope); err != nil || len(envelope) != 2 {
		return nil, nil, fmt.Errorf("%w: application envelope", ErrBadScript)
	}
	if err := cbor.Unmarshal(envelope[0], &code); err != nil {
		return nil, nil, fmt.Errorf("%w: code: %v", ErrBadScript, err)
	}
	var raws []cbor.RawMessage
	if err := cbor.Unmarshal(envelope[1], &raws); err != nil {
		return nil, nil, fmt.Errorf("%w: params: %v", ErrBadScript, err)
	}
	params = make([]Data, 0, len(raws))
	for i, r := range raws {
		d, err := Decode(r)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: param %d: %v", ErrBadScript, i, err)
		}
		params = append(params, d)
	}
	return code, params, nil
}

// ScriptHash hashes an attached script the same way Instance.Hash does.
func ScriptHash(script []byte) types.PolicyID {
	return crypto.ScriptHash(crypto.LangPlutusV2, script)
}

// unwrap removes up to max byte-string layers.
func unwrap(b []byte, max int) ([]byte, int, error) {
	if len(b) == 0 {
		return nil, 0, fmt.Errorf("%w: empty", ErrBadScript)
	}
	layers := 0
	for layers < max && len(b) > 0 && b[0]>>5 == 2 {
		var inner []byte
		if err := cbor.Unmarshal(b, &inner); err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrBadScript, err)
		}
		b = inner
		layers++
	}
	return b, layers, nil
}
