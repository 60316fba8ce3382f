package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// Bech32 decoding errors.
var (
	ErrBech32Checksum  = errors.New("bech32: invalid checksum")
	ErrBech32MixedCase = errors.New("bech32: mixed case")
	ErrBech32TooLong   = errors.New("bech32: string too long")
)

// bech32MaxLength bounds encoded strings. An address is a header byte and a
// 28-byte credential, well inside the BIP-173 limit.
const bech32MaxLength = 90

// Bech32Encode encodes 8-bit data under the human-readable part.
func Bech32Encode(hrp string, data []byte) (string, error) {
	if hrp == "" {
		return "", fmt.Errorf("bech32: empty HRP")
	}
	// 8 data bits become ceil(8n/5) characters, plus separator and checksum.
	if n := len(hrp) + 1 + (len(data)*8+4)/5 + 6; n > bech32MaxLength {
		return "", fmt.Errorf("%w: %d data bytes", ErrBech32TooLong, len(data))
	}
	s, err := bech32.EncodeFromBase256(hrp, data)
	if err != nil {
		return "", fmt.Errorf("bech32: %w", err)
	}
	return s, nil
}

// Bech32Decode returns the human-readable part and the 8-bit data of s.
// All-uppercase strings are accepted.
func Bech32Decode(s string) (string, []byte, error) {
	if s == "" {
		return "", nil, fmt.Errorf("bech32: empty string")
	}
	if len(s) > bech32MaxLength {
		return "", nil, fmt.Errorf("%w: %d chars", ErrBech32TooLong, len(s))
	}
	if strings.ToLower(s) != s && strings.ToUpper(s) != s {
		return "", nil, ErrBech32MixedCase
	}
	hrp, data, err := bech32.DecodeToBase256(strings.ToLower(s))
	if err != nil {
		var chk bech32.ErrInvalidChecksum
		if errors.As(err, &chk) {
			return "", nil, ErrBech32Checksum
		}
		return "", nil, fmt.Errorf("bech32: %w", err)
	}
	return hrp, data, nil
}
