// Package plutus implements the ledger's canonical data encoding and the
// parts of script handling a client needs: applying parameters to compiled
// templates, wrapping scripts for attachment, hashing them into policy ids,
// and the redeemer values understood by the one-shot policies.
//
// Data is encoded as CBOR following the ledger's conventions:
//
//	Constr 0..6     -> tag 121..127 [fields]
//	Constr 7..127   -> tag 1280..1400 [fields]
//	Constr other    -> tag 102 [index, [fields]]
//	Int             -> major type 0/1, bignum tags 2/3 when large
//	Bytes           -> major type 2
//	List            -> major type 4
//	Map             -> major type 5
package plutus

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

// Decoding errors.
var (
	ErrMalformedData   = errors.New("malformed plutus data")
	ErrUnsupportedData = errors.New("unsupported cbor item in plutus data")
)

// Data is a value of the ledger's universal data type.
type Data interface {
	isData()
}

// Constr is a tagged constructor application.
type Constr struct {
	Index  uint64
	Fields []Data
}

// Bytes is a byte string.
type Bytes []byte

// Int is an arbitrary-precision integer.
type Int struct {
	V *big.Int
}

// List is an ordered sequence of data values.
type List []Data

// Pair is one key/value entry of a Map.
type Pair struct {
	Key   Data
	Value Data
}

// Map is an association list; entry order is preserved.
type Map []Pair

func (Constr) isData() {}
func (Bytes) isData()  {}
func (Int) isData()    {}
func (List) isData()   {}
func (Map) isData()    {}

// NewInt returns an Int holding v.
func NewInt(v int64) Int {
	return Int{V: big.NewInt(v)}
}

// NewConstr builds a constructor value.
func NewConstr(index uint64, fields ...Data) Constr {
	return Constr{Index: index, Fields: fields}
}

// Void is the unit value, Constr 0 with no fields. Used as the placeholder
// datum and spend redeemer where the validator ignores them.
func Void() Data {
	return Constr{Index: 0}
}

var encMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// Encode returns the canonical CBOR encoding of d.
func Encode(d Data) ([]byte, error) {
	v, err := toCBOR(d)
	if err != nil {
		return nil, err
	}
	return encMode.Marshal(v)
}

// MustEncode is Encode for values built in code, where failure is a bug.
func MustEncode(d Data) []byte {
	b, err := Encode(d)
	if err != nil {
		panic(err)
	}
	return b
}

// Equal reports whether two values have the same canonical encoding.
func Equal(a, b Data) bool {
	ea, errA := Encode(a)
	eb, errB := Encode(b)
	return errA == nil && errB == nil && bytes.Equal(ea, eb)
}

func toCBOR(d Data) (interface{}, error) {
	switch v := d.(type) {
	case Constr:
		fields := make([]interface{}, 0, len(v.Fields))
		for _, f := range v.Fields {
			c, err := toCBOR(f)
			if err != nil {
				return nil, err
			}
			fields = append(fields, c)
		}
		switch {
		case v.Index <= 6:
			return cbor.Tag{Number: 121 + v.Index, Content: fields}, nil
		case v.Index <= 127:
			return cbor.Tag{Number: 1280 + v.Index - 7, Content: fields}, nil
		default:
			return cbor.Tag{Number: 102, Content: []interface{}{v.Index, fields}}, nil
		}
	case Bytes:
		if v == nil {
			return []byte{}, nil
		}
		return []byte(v), nil
	case Int:
		if v.V == nil {
			return big.NewInt(0), nil
		}
		return v.V, nil
	case List:
		items := make([]interface{}, 0, len(v))
		for _, item := range v {
			c, err := toCBOR(item)
			if err != nil {
				return nil, err
			}
			items = append(items, c)
		}
		return items, nil
	case Map:
		buf := appendHeader(nil, 5, uint64(len(v)))
		for i, p := range v {
			k, err := Encode(p.Key)
			if err != nil {
				return nil, fmt.Errorf("map key %d: %w", i, err)
			}
			val, err := Encode(p.Value)
			if err != nil {
				return nil, fmt.Errorf("map value %d: %w", i, err)
			}
			buf = append(buf, k...)
			buf = append(buf, val...)
		}
		return cbor.RawMessage(buf), nil
	case nil:
		return nil, fmt.Errorf("%w: nil data", ErrUnsupportedData)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedData, d)
	}
}

// Decode parses a CBOR-encoded data value.
func Decode(b []byte) (Data, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrMalformedData)
	}
	switch b[0] >> 5 {
	case 0, 1:
		return decodeInt(b)
	case 2:
		var raw []byte
		if err := cbor.Unmarshal(b, &raw); err != nil {
			return nil, fmt.Errorf("%w: bytes: %v", ErrMalformedData, err)
		}
		return Bytes(raw), nil
	case 4:
		items, err := decodeArray(b)
		if err != nil {
			return nil, err
		}
		return List(items), nil
	case 5:
		arr, err := mapAsArray(b)
		if err != nil {
			return nil, err
		}
		items, err := decodeArray(arr)
		if err != nil {
			return nil, err
		}
		m := make(Map, 0, len(items)/2)
		for i := 0; i+1 < len(items); i += 2 {
			m = append(m, Pair{Key: items[i], Value: items[i+1]})
		}
		return m, nil
	case 6:
		return decodeTag(b)
	default:
		return nil, fmt.Errorf("%w: major type %d", ErrUnsupportedData, b[0]>>5)
	}
}

func decodeInt(b []byte) (Data, error) {
	var v interface{}
	if err := cbor.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("%w: int: %v", ErrMalformedData, err)
	}
	switch n := v.(type) {
	case uint64:
		return Int{V: new(big.Int).SetUint64(n)}, nil
	case int64:
		return Int{V: big.NewInt(n)}, nil
	case big.Int:
		return Int{V: &n}, nil
	case *big.Int:
		return Int{V: n}, nil
	default:
		return nil, fmt.Errorf("%w: int decoded as %T", ErrMalformedData, v)
	}
}

func decodeArray(b []byte) ([]Data, error) {
	var raws []cbor.RawMessage
	if err := cbor.Unmarshal(b, &raws); err != nil {
		return nil, fmt.Errorf("%w: array: %v", ErrMalformedData, err)
	}
	out := make([]Data, 0, len(raws))
	for i, r := range raws {
		d, err := Decode(r)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out = append(out, d)
	}
	return out, nil
}

func decodeTag(b []byte) (Data, error) {
	var tag cbor.RawTag
	if err := cbor.Unmarshal(b, &tag); err != nil {
		return nil, fmt.Errorf("%w: tag: %v", ErrMalformedData, err)
	}
	switch {
	case tag.Number == 2 || tag.Number == 3:
		return decodeInt(b)
	case tag.Number >= 121 && tag.Number <= 127:
		fields, err := decodeArray(tag.Content)
		if err != nil {
			return nil, err
		}
		return Constr{Index: tag.Number - 121, Fields: fields}, nil
	case tag.Number >= 1280 && tag.Number <= 1400:
		fields, err := decodeArray(tag.Content)
		if err != nil {
			return nil, err
		}
		return Constr{Index: tag.Number - 1280 + 7, Fields: fields}, nil
	case tag.Number == 102:
		var general []cbor.RawMessage
		if err := cbor.Unmarshal(tag.Content, &general); err != nil || len(general) != 2 {
			return nil, fmt.Errorf("%w: general constructor", ErrMalformedData)
		}
		var index uint64
		if err := cbor.Unmarshal(general[0], &index); err != nil {
			return nil, fmt.Errorf("%w: constructor index: %v", ErrMalformedData, err)
		}
		fields, err := decodeArray(general[1])
		if err != nil {
			return nil, err
		}
		return Constr{Index: index, Fields: fields}, nil
	default:
		return nil, fmt.Errorf("%w: tag %d", ErrUnsupportedData, tag.Number)
	}
}

// mapAsArray rewrites a map header into an array header of twice the
// length so the entries can be decoded in order as a flat list.
func mapAsArray(b []byte) ([]byte, error) {
	info := b[0] & 0x1f
	if info == 31 {
		out := make([]byte, len(b))
		copy(out, b)
		out[0] = 0x9f
		return out, nil
	}
	n, hdrLen, err := readArgument(b)
	if err != nil {
		return nil, err
	}
	out := appendHeader(nil, 4, n*2)
	return append(out, b[hdrLen:]...), nil
}

// readArgument returns the argument of a definite-length item header and
// the header length.
func readArgument(b []byte) (uint64, int, error) {
	info := b[0] & 0x1f
	switch {
	case info < 24:
		return uint64(info), 1, nil
	case info == 24 && len(b) >= 2:
		return uint64(b[1]), 2, nil
	case info == 25 && len(b) >= 3:
		return uint64(binary.BigEndian.Uint16(b[1:3])), 3, nil
	case info == 26 && len(b) >= 5:
		return uint64(binary.BigEndian.Uint32(b[1:5])), 5, nil
	case info == 27 && len(b) >= 9:
		return binary.BigEndian.Uint64(b[1:9]), 9, nil
	default:
		return 0, 0, fmt.Errorf("%w: bad header 0x%02x", ErrMalformedData, b[0])
	}
}

// appendHeader appends a definite-length header in its shortest form.
func appendHeader(buf []byte, major byte, n uint64) []byte {
	m := major << 5
	switch {
	case n < 24:
		return append(buf, m|byte(n))
	case n <= 0xff:
		return append(buf, m|24, byte(n))
	case n <= 0xffff:
		return binary.BigEndian.AppendUint16(append(buf, m|25), uint16(n))
	case n <= 0xffffffff:
		return binary.BigEndian.AppendUint32(append(buf, m|26), uint32(n))
	default:
		return binary.BigEndian.AppendUint64(append(buf, m|27), n)
	}
}
