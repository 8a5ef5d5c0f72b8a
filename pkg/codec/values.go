// Package codec encodes graph elements, adjacency entries, and property
// cells into the (row, family, qualifier, value, timestamp) cell shape the
// underlying sorted key-value store deals in, and decodes them back.
//
// Design Principles:
//   - Every encoded value carries a leading tag byte so a reader can tell
//     what kind of value it holds without consulting a schema.
//   - One tag value (TagOpaque) is reserved for values that cannot be
//     matched by a server-side regex filter; every other tag encodes its
//     payload as printable ASCII so literal (QuoteMeta-escaped) regex
//     matching against the raw bytes works.
//   - Row/family/qualifier segments are length-prefixed rather than
//     separator-joined, so element IDs and labels may contain any byte.
//
// Example Usage:
//
//	enc, err := codec.Serialize("alice")
//	v, err := codec.Deserialize(enc)
//	safe := codec.IsRegexSafe(enc)
package codec

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"reflect"
	"strconv"

	"github.com/orneryd/graphkv/pkg/convert"
)

// Tag identifies the wire form of an encoded property value. It is always
// the first byte of the encoded form.
type Tag byte

const (
	// TagOpaque marks a gob-encoded value of arbitrary Go type. Opaque
	// values are never regex-matchable; get_vertices/get_edges key-value
	// lookups against an opaque-tagged value fail with UnsupportedFilter.
	TagOpaque Tag = 0x00
	// TagString marks a UTF-8 string payload.
	TagString Tag = 0x01
	// TagInt64 marks a decimal ASCII-encoded int64.
	TagInt64 Tag = 0x02
	// TagFloat64 marks a decimal ASCII-encoded float64.
	TagFloat64 Tag = 0x03
	// TagBool marks a "true"/"false" ASCII payload.
	TagBool Tag = 0x04
)

// Serialize converts a Go value into its tagged encoded form.
//
// Supported input types: string, bool, every Go integer type (decoded back
// as int64), and float32/float64 (decoded back as float64). Anything else
// is encoded opaque via encoding/gob, which loses regex-matchability
// (§4.1's "opaque tag" forbidding server-side regex filtering). Serialize
// registers an opaque value's concrete type with gob, so Deserialize
// rebuilds it in any process that has serialized that type; values gob
// cannot encode (functions, channels) return an error.
func Serialize(value any) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return append([]byte{byte(TagString)}, []byte(v)...), nil
	case bool:
		payload := "false"
		if v {
			payload = "true"
		}
		return append([]byte{byte(TagBool)}, []byte(payload)...), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		i, ok := convert.ToInt64(v)
		if !ok {
			// convert.ToInt64 has no case for the 8- and 16-bit widths.
			rv := reflect.ValueOf(v)
			if rv.CanInt() {
				i = rv.Int()
			} else {
				i = int64(rv.Uint())
			}
		}
		return append([]byte{byte(TagInt64)}, []byte(strconv.FormatInt(i, 10))...), nil
	case float32, float64:
		f, _ := convert.ToFloat64(v)
		return append([]byte{byte(TagFloat64)}, []byte(strconv.FormatFloat(f, 'g', -1, 64))...), nil
	default:
		if value != nil {
			// gob only carries registered concrete types behind an
			// interface. A type already registered under another name
			// makes Register panic; it is encodable either way.
			func() {
				defer func() { _ = recover() }()
				gob.Register(value)
			}()
		}
		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(&value); err != nil {
			return nil, fmt.Errorf("codec: encoding opaque value: %w", err)
		}
		return append([]byte{byte(TagOpaque)}, buf.Bytes()...), nil
	}
}

// Deserialize reconstructs a Go value from its tagged encoded form.
func Deserialize(encoded []byte) (any, error) {
	if len(encoded) == 0 {
		return nil, fmt.Errorf("codec: empty encoded value")
	}

	tag := Tag(encoded[0])
	payload := encoded[1:]

	switch tag {
	case TagString:
		return string(payload), nil
	case TagBool:
		return string(payload) == "true", nil
	case TagInt64:
		i, err := strconv.ParseInt(string(payload), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("codec: decoding int64: %w", err)
		}
		return i, nil
	case TagFloat64:
		f, err := strconv.ParseFloat(string(payload), 64)
		if err != nil {
			return nil, fmt.Errorf("codec: decoding float64: %w", err)
		}
		return f, nil
	case TagOpaque:
		var value any
		if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&value); err != nil {
			return nil, fmt.Errorf("codec: decoding opaque value: %w", err)
		}
		return value, nil
	default:
		return nil, fmt.Errorf("codec: unknown tag byte 0x%02x", byte(tag))
	}
}

// IsRegexSafe reports whether an encoded value's bytes can be matched
// literally by a server-side regex filter. Only the opaque tag is unsafe.
func IsRegexSafe(encoded []byte) bool {
	if len(encoded) == 0 {
		return false
	}
	return Tag(encoded[0]) != TagOpaque
}
