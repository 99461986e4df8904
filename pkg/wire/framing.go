package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Framing constants.
const (
	// HeaderSize is the fixed frame header size: driver type, command
	// and the 2-byte payload length.
	HeaderSize = 4

	// MaxPayloadSize is the largest payload the 2-byte length field
	// can declare.
	MaxPayloadSize = 0xFFFF
)

// Framing errors.
var (
	// ErrPayloadTooLarge indicates a payload exceeding the 16-bit
	// length field. Producing one is a programming defect in the
	// caller, not a recoverable condition.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrDriverTypeMismatch indicates a frame whose leading byte does
	// not match the connection's driver type. The connection must be
	// reset; resynchronization is not attempted.
	ErrDriverTypeMismatch = errors.New("driver type mismatch")

)

// Encode builds a single frame for the given driver type, command and
// payload. Payloads longer than MaxPayloadSize fail fast with
// ErrPayloadTooLarge.
func Encode(driverType DriverType, command Command, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, len(payload), MaxPayloadSize)
	}

	frame := make([]byte, HeaderSize+len(payload))
	frame[0] = byte(driverType)
	frame[1] = byte(command)
	binary.LittleEndian.PutUint16(frame[2:4], uint16(len(payload)))
	copy(frame[HeaderSize:], payload)
	return frame, nil
}

// Decoder incrementally reassembles frames from stream chunks. The
// underlying transport may deliver a frame whole, split at arbitrary
// byte boundaries, or coalesced with the frames behind it; the decoder
// buffers until the declared payload length is reached and carries any
// surplus bytes over as the start of the next frame.
//
// A Decoder belongs to a single connection's receive path and is not
// safe for concurrent use; the receive path is the only writer of the
// buffer, so no lock is needed.
type Decoder struct {
	driverType DriverType
	buf        []byte
}

// NewDecoder creates a decoder expecting frames of the given driver
// type.
func NewDecoder(driverType DriverType) *Decoder {
	return &Decoder{driverType: driverType}
}

// Feed appends a chunk to the reassembly buffer and returns the next
// completed message, if any. A nil message with a nil error means more
// data is needed. A non-nil error is a framing violation: the buffer
// is reset and the caller should tear down the connection.
//
// A single chunk may carry more than one frame. Feed returns them one
// at a time; call Feed(nil) while Pending reports buffered bytes to
// drain the rest.
func (d *Decoder) Feed(chunk []byte) (*Message, error) {
	d.buf = append(d.buf, chunk...)

	if len(d.buf) == 0 {
		return nil, nil
	}
	if DriverType(d.buf[0]) != d.driverType {
		buf := d.buf
		d.Reset()
		return nil, fmt.Errorf("%w: got %q, want %q (buffer %q)",
			ErrDriverTypeMismatch, buf[0], byte(d.driverType), buf)
	}
	if len(d.buf) < HeaderSize {
		return nil, nil
	}

	length := int(binary.LittleEndian.Uint16(d.buf[2:4]))
	if len(d.buf) < HeaderSize+length {
		return nil, nil
	}

	msg := &Message{
		DriverType: DriverType(d.buf[0]),
		Command:    Command(d.buf[1]),
		Payload:    append([]byte(nil), d.buf[HeaderSize:HeaderSize+length]...),
	}
	rest := d.buf[HeaderSize+length:]
	if len(rest) == 0 {
		d.Reset()
	} else {
		// Surplus bytes are the start of the next frame; keep them
		// out of the returned payload's backing array.
		d.buf = append([]byte(nil), rest...)
	}
	return msg, nil
}

// Pending returns the number of buffered bytes awaiting the rest of a
// frame.
func (d *Decoder) Pending() int {
	return len(d.buf)
}

// Reset discards any partially buffered frame.
func (d *Decoder) Reset() {
	d.buf = nil
}
