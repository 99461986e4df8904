package wire

import (
	"errors"
	"fmt"
)

// ValueKind tags the closed set of types a mirrored setting value can
// take. The set is checked at the wire edge; within the process values
// travel as Value, never as untyped bytes.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindBool
	KindInt
	KindBytes
	KindString
	KindStringList
)

// String returns the kind name.
func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindBytes:
		return "bytes"
	case KindString:
		return "string"
	case KindStringList:
		return "stringList"
	default:
		return "unknown"
	}
}

// ErrValueKind indicates an access under the wrong kind or an unknown
// kind on the wire.
var ErrValueKind = errors.New("invalid value kind")

// Value is the tagged variant carried for mirrored driver settings.
// CBOR encoding uses integer keys for compactness.
type Value struct {
	Kind       ValueKind `cbor:"1,keyasint"`
	Bool       bool      `cbor:"2,keyasint,omitempty"`
	Int        int64     `cbor:"3,keyasint,omitempty"`
	Bytes      []byte    `cbor:"4,keyasint,omitempty"`
	Str        string    `cbor:"5,keyasint,omitempty"`
	StringList []string  `cbor:"6,keyasint,omitempty"`
}

// Null returns the null value.
func Null() Value { return Value{Kind: KindNull} }

// BoolValue returns a bool value.
func BoolValue(v bool) Value { return Value{Kind: KindBool, Bool: v} }

// IntValue returns an int value.
func IntValue(v int64) Value { return Value{Kind: KindInt, Int: v} }

// BytesValue returns a bytes value.
func BytesValue(v []byte) Value { return Value{Kind: KindBytes, Bytes: v} }

// StringValue returns a string value.
func StringValue(v string) Value { return Value{Kind: KindString, Str: v} }

// StringListValue returns a list-of-string value.
func StringListValue(v []string) Value { return Value{Kind: KindStringList, StringList: v} }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// String returns a trace-friendly rendering of the value.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindBytes:
		return fmt.Sprintf("%q", v.Bytes)
	case KindString:
		return fmt.Sprintf("%q", v.Str)
	case KindStringList:
		return fmt.Sprintf("%q", v.StringList)
	default:
		return fmt.Sprintf("value(kind=%d)", v.Kind)
	}
}

// EncodeValue serializes a setting value with the versioned codec.
func EncodeValue(v Value) ([]byte, error) {
	if v.Kind > KindStringList {
		return nil, fmt.Errorf("%w: %d", ErrValueKind, v.Kind)
	}
	return Marshal(v)
}

// DecodeValue deserializes a setting value, rejecting unknown kinds at
// the wire edge.
func DecodeValue(data []byte) (Value, error) {
	var v Value
	if err := Unmarshal(data, &v); err != nil {
		return Value{}, err
	}
	if v.Kind > KindStringList {
		return Value{}, fmt.Errorf("%w: %d", ErrValueKind, v.Kind)
	}
	return v, nil
}
