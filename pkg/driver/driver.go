package driver

import (
	"errors"

	"github.com/rdpipe-protocol/rdpipe-go/pkg/wire"
)

// Driver errors.
var (
	// ErrUnknownSetting indicates a by-name setting access for a
	// setting the driver does not support.
	ErrUnknownSetting = errors.New("unknown driver setting")

	// ErrUnknownValueSet indicates an available-values lookup for a
	// name the driver does not expose.
	ErrUnknownValueSet = errors.New("unknown available value set")
)

// Setting describes one mirrored driver setting.
type Setting struct {
	// ID is the setting identifier used in attribute names
	// ("setting_" + ID).
	ID string `cbor:"1,keyasint"`

	// DisplayName is the human readable label.
	DisplayName string `cbor:"2,keyasint"`

	// Available reports whether the driver exposes an enumerable
	// value set for this setting ("available" + ID + "s").
	Available bool `cbor:"3,keyasint,omitempty"`
}

// Driver is a local device whose settings are mirrored to the peer.
// Implementations must be safe for calls from the connection's read
// goroutine concurrently with the host application.
type Driver interface {
	// SupportedSettings returns the settings the driver exposes, in
	// presentation order.
	SupportedSettings() []Setting

	// SettingValue returns the current value of the setting with the
	// given id, or ErrUnknownSetting.
	SettingValue(id string) (wire.Value, error)

	// SetSettingValue applies a value to the setting with the given
	// id, or returns ErrUnknownSetting.
	SetSettingValue(id string, value wire.Value) error

	// AvailableValues returns the enumerable value set with the given
	// name (e.g. "availableVoices"), keyed by value id with display
	// names as values, or ErrUnknownValueSet.
	AvailableValues(name string) (map[string]string, error)
}

// SpeechItemKind discriminates the variants of a speech sequence item.
type SpeechItemKind uint8

const (
	// SpeechText is a chunk of text to synthesize.
	SpeechText SpeechItemKind = 1

	// SpeechIndex is an index marker; the synthesizer reports it back
	// when speech output passes the marker.
	SpeechIndex SpeechItemKind = 2
)

// SpeechItem is one element of a speech sequence.
type SpeechItem struct {
	Kind  SpeechItemKind `cbor:"1,keyasint"`
	Text  string         `cbor:"2,keyasint,omitempty"`
	Index int            `cbor:"3,keyasint,omitempty"`
}

// TextItem builds a text speech item.
func TextItem(text string) SpeechItem {
	return SpeechItem{Kind: SpeechText, Text: text}
}

// IndexItem builds an index marker speech item.
func IndexItem(index int) SpeechItem {
	return SpeechItem{Kind: SpeechIndex, Index: index}
}

// SpeechDriver is a local speech synthesizer.
type SpeechDriver interface {
	Driver

	// Speak queues a speech sequence.
	Speak(sequence []SpeechItem) error

	// Cancel stops all queued and ongoing speech.
	Cancel() error

	// Pause suspends or resumes speech output.
	Pause(paused bool) error

	// SetIndexCallback registers the function the driver calls when
	// output passes an index marker. One callback per driver; a later
	// call replaces the earlier one.
	SetIndexCallback(fn func(index int))
}

// Gesture is an input gesture performed on a braille display, routed
// to the peer for execution.
type Gesture struct {
	// ID identifies the gesture (e.g. "br(display):routing").
	ID string `cbor:"1,keyasint"`

	// Route is the routing cell index for cursor routing gestures,
	// -1 otherwise.
	Route int `cbor:"2,keyasint,omitempty"`
}

// BrailleDriver is a local braille display.
type BrailleDriver interface {
	Driver

	// NumCells returns the display size in cells.
	NumCells() int

	// Display writes raw cells to the display.
	Display(cells []byte) error

	// GestureMap returns the gesture identifiers the display can
	// produce, keyed by gesture id with bound action names as values.
	GestureMap() map[string]string
}
