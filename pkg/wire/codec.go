package wire

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Value codec version. The first byte of every serialized value names
// the codec that produced the remaining bytes, so either peer can be
// upgraded independently.
const (
	// ValueCodecVersion is the current codec version.
	ValueCodecVersion byte = 1
)

// Value codec errors.
var (
	// ErrValueEmpty indicates a serialized value with no bytes at all.
	ErrValueEmpty = errors.New("serialized value is empty")

	// ErrValueVersion indicates a serialized value produced by an
	// unknown codec version.
	ErrValueVersion = errors.New("unsupported value codec version")
)

// encMode is the CBOR encoder mode for attribute values.
// Configured for deterministic output.
var encMode cbor.EncMode

// decMode is the CBOR decoder mode for attribute values.
var decMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeUnix,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	// Lenient decoding for forward compatibility with newer peers.
	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// Marshal encodes a value to versioned CBOR bytes. The result carries
// a single leading version byte followed by the CBOR encoding.
func Marshal(v any) ([]byte, error) {
	data, err := encMode.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 1+len(data))
	out = append(out, ValueCodecVersion)
	out = append(out, data...)
	return out, nil
}

// Unmarshal decodes versioned CBOR bytes into a value.
func Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return ErrValueEmpty
	}
	if data[0] != ValueCodecVersion {
		return fmt.Errorf("%w: %d", ErrValueVersion, data[0])
	}
	return decMode.Unmarshal(data[1:], v)
}
