package wire

import (
	"bytes"
	"errors"
	"fmt"
)

// DriverType identifies which driver kind a connection mirrors.
// The byte value is the first byte of every frame on the stream.
type DriverType byte

const (
	// DriverSpeech is a speech synthesizer connection.
	DriverSpeech DriverType = 'S'

	// DriverBraille is a braille display connection.
	DriverBraille DriverType = 'B'
)

// String returns the driver type name.
func (d DriverType) String() string {
	switch d {
	case DriverSpeech:
		return "SPEECH"
	case DriverBraille:
		return "BRAILLE"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether d is a known driver type.
func (d DriverType) Valid() bool {
	return d == DriverSpeech || d == DriverBraille
}

// Command identifies the action carried by a frame. Generic commands
// are valid for every driver type; the speech and braille commands
// only appear on connections of the matching type.
type Command byte

// Generic commands.
const (
	// CmdAttribute carries attribute requests and updates.
	// Its payload format is described by SplitAttribute.
	CmdAttribute Command = '@'

	// CmdInterceptGesture registers gesture identifiers the sender
	// wants delivered to it instead of being handled locally.
	CmdInterceptGesture Command = 'I'
)

// Speech commands.
const (
	// CmdSpeak carries a speech sequence for the local synthesizer.
	CmdSpeak Command = 'S'

	// CmdCancel stops all speech.
	CmdCancel Command = 'C'

	// CmdPause suspends or resumes speech; payload is one byte,
	// nonzero to pause.
	CmdPause Command = 'P'

	// CmdIndexReached reports that the synthesizer reached an index
	// marker; payload is a uint32 LE index.
	CmdIndexReached Command = 'x'
)

// Braille commands.
const (
	// CmdDisplay carries raw cells for the local braille display.
	CmdDisplay Command = 'D'

	// CmdExecuteGesture carries a gesture performed on the remote
	// display that should be executed locally.
	CmdExecuteGesture Command = 'G'
)

// String returns the command name.
func (c Command) String() string {
	switch c {
	case CmdAttribute:
		return "ATTRIBUTE"
	case CmdInterceptGesture:
		return "INTERCEPT_GESTURE"
	case CmdSpeak:
		return "SPEAK"
	case CmdCancel:
		return "CANCEL"
	case CmdPause:
		return "PAUSE"
	case CmdIndexReached:
		return "INDEX_REACHED"
	case CmdDisplay:
		return "DISPLAY"
	case CmdExecuteGesture:
		return "EXECUTE_GESTURE"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02x)", byte(c))
	}
}

// Attribute is a byte-string attribute name. When used as a
// registration pattern it may contain the wildcard marker '*'; wire
// values never do.
type Attribute string

// AttributeWildcard is the wildcard marker valid in registration
// patterns.
const AttributeWildcard = '*'

// IsPattern reports whether the attribute contains the wildcard marker
// and therefore names a family of attributes rather than a single one.
func (a Attribute) IsPattern() bool {
	for i := 0; i < len(a); i++ {
		if a[i] == AttributeWildcard {
			return true
		}
	}
	return false
}

// Generic attributes, present for every driver type.
const (
	// AttrHasFocus mirrors whether the remote session has focus.
	AttrHasFocus Attribute = "hasFocus"

	// AttrSupportedSettings mirrors the driver's setting descriptors.
	AttrSupportedSettings Attribute = "supportedSettings"

	// AttrTimeSinceInput is the milliseconds since the peer last saw
	// user input, used for the remote focus decision.
	AttrTimeSinceInput Attribute = "timeSinceInput"
)

// Braille attributes.
const (
	// AttrNumCells is the cell count of the remote display.
	AttrNumCells Attribute = "numCells"

	// AttrGestureMap is the gesture map of the remote display.
	AttrGestureMap Attribute = "gestureMap"
)

// SettingAttributePrefix prefixes attributes that mirror a single
// driver setting; the remainder of the name is the setting id.
const SettingAttributePrefix = "setting_"

// AttrSettingWildcard is the registration pattern matching every
// setting attribute; register it behind any exact setting handlers.
const AttrSettingWildcard = Attribute(SettingAttributePrefix + string(AttributeWildcard))

// SettingAttribute returns the attribute mirroring the driver setting
// with the given id.
func SettingAttribute(settingID string) Attribute {
	return Attribute(SettingAttributePrefix + settingID)
}

// SettingID returns the setting id for a setting_* attribute, or false
// if the attribute does not carry the setting prefix.
func (a Attribute) SettingID() (string, bool) {
	if len(a) <= len(SettingAttributePrefix) {
		return "", false
	}
	if a[:len(SettingAttributePrefix)] != SettingAttributePrefix {
		return "", false
	}
	return string(a[len(SettingAttributePrefix):]), true
}

// AttributeSeparator delimits the attribute name and value inside a
// CmdAttribute payload. Kept to a single printable byte so raw traces
// stay readable.
const AttributeSeparator = '`'

// ErrMalformedAttribute indicates a CmdAttribute payload that does not
// follow the SEP|name|SEP|value layout.
var ErrMalformedAttribute = errors.New("malformed attribute payload")

// JoinAttribute builds a CmdAttribute payload from an attribute name
// and a value. An empty value produces a request for the attribute.
func JoinAttribute(attribute Attribute, value []byte) []byte {
	payload := make([]byte, 0, 2+len(attribute)+len(value))
	payload = append(payload, AttributeSeparator)
	payload = append(payload, attribute...)
	payload = append(payload, AttributeSeparator)
	payload = append(payload, value...)
	return payload
}

// SplitAttribute parses a CmdAttribute payload into the attribute name
// and its value. The value may be empty, which marks the payload as a
// request for the attribute rather than an update.
func SplitAttribute(payload []byte) (Attribute, []byte, error) {
	if len(payload) < 2 || payload[0] != AttributeSeparator {
		return "", nil, fmt.Errorf("%w: %q", ErrMalformedAttribute, payload)
	}
	rest := payload[1:]
	idx := bytes.IndexByte(rest, AttributeSeparator)
	if idx < 0 {
		return "", nil, fmt.Errorf("%w: missing separator in %q", ErrMalformedAttribute, payload)
	}
	return Attribute(rest[:idx]), rest[idx+1:], nil
}

// Message is one complete decoded frame.
type Message struct {
	// DriverType is the driver kind of the connection the frame
	// arrived on.
	DriverType DriverType

	// Command identifies the action to dispatch.
	Command Command

	// Payload is the command payload; exactly as long as the frame's
	// declared length.
	Payload []byte
}
