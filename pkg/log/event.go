package log

import (
	"time"
)

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID uniquely identifies the connection (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// DriverType is the driver kind of the connection ("SPEECH" or
	// "BRAILLE").
	DriverType string `cbor:"6,keyasint,omitempty"`

	// RemoteAddr is the peer address, when the transport knows one.
	RemoteAddr string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"` // Transport layer
	Command     *CommandEvent     `cbor:"11,keyasint,omitempty"` // Protocol layer (decoded)
	Attribute   *AttributeEvent   `cbor:"12,keyasint,omitempty"` // Attribute traffic
	StateChange *StateChangeEvent `cbor:"13,keyasint,omitempty"` // Handler state
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which protocol layer captured the event.
type Layer uint8

const (
	// LayerTransport is the stream layer (raw bytes).
	LayerTransport Layer = 0
	// LayerProtocol is the framing and dispatch layer (decoded commands).
	LayerProtocol Layer = 1
	// LayerHandler is the concrete driver handler layer.
	LayerHandler Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerProtocol:
		return "PROTOCOL"
	case LayerHandler:
		return "HANDLER"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a protocol command message.
	CategoryMessage Category = 0
	// CategoryAttribute indicates attribute request/update traffic.
	CategoryAttribute Category = 1
	// CategoryState indicates a state change.
	CategoryState Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryAttribute:
		return "ATTRIBUTE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw stream data at the transport layer.
type FrameEvent struct {
	// Size is the chunk size in bytes.
	Size int `cbor:"1,keyasint"`

	// Data is the raw bytes (may be truncated for large chunks).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// CommandEvent captures a decoded command at the protocol layer.
type CommandEvent struct {
	// Command is the command byte of the frame.
	Command byte `cbor:"1,keyasint"`

	// PayloadSize is the declared payload length.
	PayloadSize int `cbor:"2,keyasint"`
}

// AttributeEvent captures attribute traffic.
type AttributeEvent struct {
	// Name is the attribute name.
	Name string `cbor:"1,keyasint"`

	// Request is true for an empty-value request, false for an update.
	Request bool `cbor:"2,keyasint,omitempty"`

	// ValueSize is the serialized value length (0 for requests).
	ValueSize int `cbor:"3,keyasint,omitempty"`
}

// StateChangeEvent captures handler state transitions.
type StateChangeEvent struct {
	// Entity names what changed (e.g. "connection", "remoteFocus").
	Entity string `cbor:"1,keyasint"`

	// OldState is the previous state name.
	OldState string `cbor:"2,keyasint"`

	// NewState is the new state name.
	NewState string `cbor:"3,keyasint"`

	// Reason describes why (optional).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// ErrorEventData captures error details.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context provides additional context (e.g. attribute name).
	Context string `cbor:"3,keyasint,omitempty"`
}
