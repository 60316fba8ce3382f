package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// MaxAssetNameSize is the largest asset name the ledger accepts.
const MaxAssetNameSize = 32

// PolicyID is the hash of an instantiated minting policy script. Together
// with an AssetName it forms the global identity of a native asset.
type PolicyID [CredentialSize]byte

// IsZero returns true if the policy id is all zeros.
func (p PolicyID) IsZero() bool {
	return p == PolicyID{}
}

// String returns the hex-encoded policy id.
func (p PolicyID) String() string {
	return hex.EncodeToString(p[:])
}

// Bytes returns a copy of the policy id as a byte slice.
func (p PolicyID) Bytes() []byte {
	b := make([]byte, CredentialSize)
	copy(b, p[:])
	return b
}

// MarshalJSON encodes the policy id as a hex string.
func (p PolicyID) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON decodes a hex string into a policy id.
func (p *PolicyID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := HexToPolicyID(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// HexToPolicyID converts a 56-character hex string to a PolicyID.
func HexToPolicyID(s string) (PolicyID, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return PolicyID{}, fmt.Errorf("invalid hex: %w", err)
	}
	if len(b) != CredentialSize {
		return PolicyID{}, fmt.Errorf("policy id must be %d bytes, got %d", CredentialSize, len(b))
	}
	var p PolicyID
	copy(p[:], b)
	return p, nil
}

// AssetName is an application-chosen opaque byte string. It is stored as a
// Go string so that asset classes stay comparable; it need not be UTF-8.
type AssetName string

// NewAssetName validates and converts raw bytes into an AssetName.
func NewAssetName(b []byte) (AssetName, error) {
	if len(b) > MaxAssetNameSize {
		return "", fmt.Errorf("asset name is %d bytes, max %d", len(b), MaxAssetNameSize)
	}
	return AssetName(b), nil
}

// Bytes returns the raw name bytes.
func (n AssetName) Bytes() []byte {
	return []byte(n)
}

// Hex returns the hex encoding of the raw name bytes.
func (n AssetName) Hex() string {
	return hex.EncodeToString([]byte(n))
}

// AssetClass identifies a native asset: PolicyID ++ AssetName.
type AssetClass struct {
	Policy PolicyID
	Name   AssetName
}

// Unit returns the concatenated hex form "<policy><name>".
func (ac AssetClass) Unit() string {
	return ac.Policy.String() + ac.Name.Hex()
}

// String returns "<policy>.<name hex>".
func (ac AssetClass) String() string {
	return ac.Policy.String() + "." + ac.Name.Hex()
}

// Compare orders asset classes by policy id, then by name bytes.
func (ac AssetClass) Compare(other AssetClass) int {
	if c := strings.Compare(string(ac.Policy[:]), string(other.Policy[:])); c != 0 {
		return c
	}
	return strings.Compare(string(ac.Name), string(other.Name))
}

// ParseUnit parses the concatenated hex form produced by Unit.
func ParseUnit(unit string) (AssetClass, error) {
	if len(unit) < 2*CredentialSize {
		return AssetClass{}, fmt.Errorf("unit %q too short", unit)
	}
	policy, err := HexToPolicyID(unit[:2*CredentialSize])
	if err != nil {
		return AssetClass{}, fmt.Errorf("unit %q: %w", unit, err)
	}
	nameBytes, err := hex.DecodeString(unit[2*CredentialSize:])
	if err != nil {
		return AssetClass{}, fmt.Errorf("unit %q: bad name hex: %w", unit, err)
	}
	name, err := NewAssetName(nameBytes)
	if err != nil {
		return AssetClass{}, fmt.Errorf("unit %q: %w", unit, err)
	}
	return AssetClass{Policy: policy, Name: name}, nil
}

// MarshalText encodes the asset class as its unit, so MultiAsset can be a
// JSON object key.
func (ac AssetClass) MarshalText() ([]byte, error) {
	return []byte(ac.Unit()), nil
}

// UnmarshalText decodes a unit string.
func (ac *AssetClass) UnmarshalText(text []byte) error {
	parsed, err := ParseUnit(string(text))
	if err != nil {
		return err
	}
	*ac = parsed
	return nil
}
