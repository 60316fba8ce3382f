package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// CredentialSize is the length of a payment credential hash in bytes.
const CredentialSize = 28

// Address HRP (human-readable part) constants for bech32 encoding.
const (
	MainnetHRP = "addr"
	TestnetHRP = "addr_test"
)

// activeHRP is the address HRP used by String() and MarshalJSON().
// Set once at startup via SetAddressHRP(). Default is testnet.
var activeHRP = TestnetHRP

// SetAddressHRP sets the active address HRP (call once at startup).
func SetAddressHRP(hrp string) {
	activeHRP = hrp
}

// GetAddressHRP returns the currently active address HRP.
func GetAddressHRP() string {
	return activeHRP
}

// CredentialKind says what controls an address: a signing key or a script.
type CredentialKind uint8

const (
	KeyHash    CredentialKind = 0 // Spent by a witness whose key hashes to the credential
	ScriptHash CredentialKind = 1 // Spent by satisfying the script with that hash
)

// String returns a human-readable name for the credential kind.
func (k CredentialKind) String() string {
	switch k {
	case KeyHash:
		return "key"
	case ScriptHash:
		return "script"
	default:
		return "unknown"
	}
}

// Address is an enterprise-style ledger address: a single payment
// credential, no delegation part. Addresses are comparable and usable as
// map keys.
type Address struct {
	Kind CredentialKind
	Hash [CredentialSize]byte
}

// KeyAddress returns the address controlled by the key with the given hash.
func KeyAddress(hash [CredentialSize]byte) Address {
	return Address{Kind: KeyHash, Hash: hash}
}

// ScriptAddress returns the address controlled by the script with the given hash.
func ScriptAddress(policy PolicyID) Address {
	return Address{Kind: ScriptHash, Hash: [CredentialSize]byte(policy)}
}

// IsZero returns true if the address is the zero value.
func (a Address) IsZero() bool {
	return a == Address{}
}

// IsScript reports whether spending from the address requires a script.
func (a Address) IsScript() bool {
	return a.Kind == ScriptHash
}

// header returns the address header byte: 0x60 for key enterprise
// addresses, 0x70 for script enterprise addresses, network in the low nibble.
func (a Address) header() byte {
	network := byte(0)
	if activeHRP == MainnetHRP {
		network = 1
	}
	if a.Kind == ScriptHash {
		return 0x70 | network
	}
	return 0x60 | network
}

// Bytes returns header || credential.
func (a Address) Bytes() []byte {
	b := make([]byte, 1+CredentialSize)
	b[0] = a.header()
	copy(b[1:], a.Hash[:])
	return b
}

// String returns the bech32-encoded address (e.g. "addr_test1...").
func (a Address) String() string {
	s, err := Bech32Encode(activeHRP, a.Bytes())
	if err != nil {
		return activeHRP + ":" + hex.EncodeToString(a.Bytes())
	}
	return s
}

// Hex returns the raw hex-encoded address bytes including the header.
func (a Address) Hex() string {
	return hex.EncodeToString(a.Bytes())
}

// MarshalJSON encodes the address as a bech32 string.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes a bech32 or raw hex string into an address.
func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*a = Address{}
		return nil
	}
	parsed, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress parses a bech32 address or its raw hex form (header included).
func ParseAddress(s string) (Address, error) {
	if s == "" {
		return Address{}, fmt.Errorf("empty address")
	}

	var raw []byte
	if decoded, err := hex.DecodeString(s); err == nil && len(decoded) == 1+CredentialSize {
		raw = decoded
	} else {
		_, data, err := Bech32Decode(s)
		if err != nil {
			return Address{}, fmt.Errorf("invalid bech32 address: %w", err)
		}
		raw = data
	}
	return AddressFromBytes(raw)
}

// AddressFromBytes decodes header || credential.
func AddressFromBytes(raw []byte) (Address, error) {
	if len(raw) != 1+CredentialSize {
		return Address{}, fmt.Errorf("address must be %d bytes, got %d", 1+CredentialSize, len(raw))
	}
	var a Address
	switch raw[0] & 0xf0 {
	case 0x60:
		a.Kind = KeyHash
	case 0x70:
		a.Kind = ScriptHash
	default:
		return Address{}, fmt.Errorf("unsupported address header 0x%02x", raw[0])
	}
	copy(a.Hash[:], raw[1:])
	return a, nil
}
