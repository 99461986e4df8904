package handler

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/rdpipe-protocol/rdpipe-go/pkg/configuration"
	"github.com/rdpipe-protocol/rdpipe-go/pkg/driver"
	"github.com/rdpipe-protocol/rdpipe-go/pkg/log"
	"github.com/rdpipe-protocol/rdpipe-go/pkg/protocol"
	"github.com/rdpipe-protocol/rdpipe-go/pkg/wire"
)

// MaxTimeSinceInputForFocus is the largest reported peer input age
// that still counts as the remote session having focus.
const MaxTimeSinceInputForFocus = 200 * time.Millisecond

// timeSinceInputSize is the fixed payload size of the time-since-input
// attribute: an unsigned 32-bit millisecond count, little-endian.
const timeSinceInputSize = 4

// Config configures a RemoteHandler.
type Config struct {
	// Configuration provides the runtime toggles. Nil uses defaults.
	Configuration *configuration.Store

	// Logger receives protocol trace events. Nil disables tracing.
	Logger log.Logger

	// FocusedProcessID reports the process id owning the global
	// focus. Nil disables the focus layer; HasFocus returns false.
	FocusedProcessID func() int

	// TimeSinceInput reports the time since the last local user
	// input. When set, the handler answers the peer's time-since-input
	// requests from it.
	TimeSinceInput func() time.Duration
}

// RemoteHandler mirrors a local driver's settings to a remote peer and
// tracks whether the remote session has focus. SpeechHandler and
// BrailleHandler embed it.
type RemoteHandler struct {
	*protocol.Handler

	config *configuration.Store
	drv    driver.Driver

	focusedProcessID func() int

	focusMu       sync.Mutex
	focusDecision *bool

	// onRemoteSessionGainFocus runs when the peer's input age first
	// decides the remote session has focus.
	onRemoteSessionGainFocus func()
}

func newRemoteHandler(driverType wire.DriverType, drv driver.Driver, config Config) *RemoteHandler {
	store := config.Configuration
	if store == nil {
		store = configuration.NewStore("")
	}

	h := &RemoteHandler{
		Handler: protocol.NewHandler(protocol.Config{
			DriverType:       driverType,
			AttributeTimeout: store.AttributeTimeout(),
			Logger:           config.Logger,
		}),
		config:           store,
		drv:              drv,
		focusedProcessID: config.FocusedProcessID,
	}

	h.RegisterAttributeSender(protocol.NewAttributeSender(wire.AttrSupportedSettings, h.sendSupportedSettings))
	h.RegisterAttributeSender(protocol.NewAttributeSender(wire.AttrHasFocus, h.sendHasFocus))
	if config.TimeSinceInput != nil {
		timeSinceInput := config.TimeSinceInput
		h.RegisterAttributeSender(protocol.NewAttributeSender(wire.AttrTimeSinceInput, func() ([]byte, error) {
			return encodeTimeSinceInput(timeSinceInput()), nil
		}))
	}
	h.RegisterAttributeSender(protocol.NewWildcardAttributeSender("available*s", h.sendAvailableValues))
	h.RegisterAttributeSender(protocol.NewWildcardAttributeSender(
		wire.AttrSettingWildcard, h.sendSetting))

	h.RegisterAttributeReceiver(protocol.NewAttributeReceiver(
		wire.AttrTimeSinceInput,
		decodeTimeSinceInput,
		protocol.StaticDefault(time.Duration(0)),
	).WithUpdateCallback(h.updateFocusDecision))
	h.RegisterAttributeReceiver(protocol.NewWildcardAttributeReceiver(
		wire.AttrSettingWildcard,
		func(attribute wire.Attribute, payload []byte) (any, error) {
			return wire.DecodeValue(payload)
		},
		func(attribute wire.Attribute) (any, error) { return wire.Null(), nil },
	).WithUpdateCallback(h.applySettingToDriver))

	return h
}

// Driver returns the mirrored local driver.
func (h *RemoteHandler) Driver() driver.Driver {
	return h.drv
}

// Configuration returns the runtime configuration store.
func (h *RemoteHandler) Configuration() *configuration.Store {
	return h.config
}

func (h *RemoteHandler) sendSupportedSettings() ([]byte, error) {
	settings := h.drv.SupportedSettings()
	if !h.config.DriverSettingsManagement() {
		settings = []driver.Setting{}
	}
	return wire.Marshal(settings)
}

func (h *RemoteHandler) sendHasFocus() ([]byte, error) {
	if h.HasFocus() {
		return []byte{1}, nil
	}
	return []byte{0}, nil
}

func (h *RemoteHandler) sendAvailableValues(attribute wire.Attribute) ([]byte, error) {
	if !h.config.DriverSettingsManagement() {
		return wire.Marshal(map[string]string{})
	}
	values, err := h.drv.AvailableValues(string(attribute))
	if err != nil {
		return nil, err
	}
	return wire.Marshal(values)
}

func (h *RemoteHandler) sendSetting(attribute wire.Attribute) ([]byte, error) {
	id, ok := attribute.SettingID()
	if !ok {
		return nil, fmt.Errorf("%w: %q", driver.ErrUnknownSetting, attribute)
	}
	if !h.config.DriverSettingsManagement() {
		return wire.EncodeValue(wire.Null())
	}
	value, err := h.drv.SettingValue(id)
	if err != nil {
		return nil, err
	}
	return wire.EncodeValue(value)
}

func (h *RemoteHandler) applySettingToDriver(attribute wire.Attribute, value any) {
	if !h.config.DriverSettingsManagement() {
		return
	}
	id, ok := attribute.SettingID()
	if !ok {
		return
	}
	v, ok := value.(wire.Value)
	if !ok || v.IsNull() {
		return
	}
	if err := h.drv.SetSettingValue(id, v); err != nil {
		h.logHandlerError(err, string(attribute))
	}
}

// SetRemoteSettingValue pushes a setting value to the peer's driver.
func (h *RemoteHandler) SetRemoteSettingValue(id string, value wire.Value) error {
	payload, err := wire.EncodeValue(value)
	if err != nil {
		return err
	}
	return h.SetRemoteAttribute(wire.SettingAttribute(id), payload)
}

// GetRemoteSettingValue fetches a setting value from the peer's
// driver, waiting up to timeout.
func (h *RemoteHandler) GetRemoteSettingValue(id string, timeout time.Duration) (wire.Value, error) {
	v, err := h.GetRemoteAttribute(wire.SettingAttribute(id), timeout)
	if err != nil {
		return wire.Null(), err
	}
	value, ok := v.(wire.Value)
	if !ok {
		return wire.Null(), fmt.Errorf("%w: setting %q", wire.ErrValueKind, id)
	}
	return value, nil
}

// HasFocus reports whether the remote session has focus. A process id
// mismatch decides immediately. On a match the cached decision is
// used; without one the peer's input age is requested asynchronously
// and this call reports false until the reply decides.
func (h *RemoteHandler) HasFocus() bool {
	if h.focusedProcessID == nil {
		return false
	}
	dev := h.Transport()
	if dev == nil || h.focusedProcessID() != dev.PeerProcessID() {
		return false
	}

	h.focusMu.Lock()
	decision := h.focusDecision
	h.focusMu.Unlock()
	if decision != nil {
		return *decision
	}

	if err := h.RequestRemoteAttribute(wire.AttrTimeSinceInput); err != nil {
		h.logHandlerError(err, string(wire.AttrTimeSinceInput))
	}
	return false
}

// EventGainFocus reports an external focus change. It clears the
// cached focus decision so the next HasFocus call re-evaluates; cached
// attribute values stay.
func (h *RemoteHandler) EventGainFocus() {
	h.focusMu.Lock()
	h.focusDecision = nil
	h.focusMu.Unlock()
}

// SetRemoteSessionGainFocusCallback registers the hook run when the
// focus decision first turns positive.
func (h *RemoteHandler) SetRemoteSessionGainFocusCallback(fn func()) {
	h.onRemoteSessionGainFocus = fn
}

func (h *RemoteHandler) updateFocusDecision(attribute wire.Attribute, value any) {
	age, ok := value.(time.Duration)
	if !ok {
		return
	}
	hasFocus := age <= MaxTimeSinceInputForFocus

	h.focusMu.Lock()
	h.focusDecision = &hasFocus
	h.focusMu.Unlock()

	if hasFocus && h.onRemoteSessionGainFocus != nil {
		h.onRemoteSessionGainFocus()
	}
}

func (h *RemoteHandler) logHandlerError(err error, context string) {
	logger := h.Logger()
	logger.Log(log.Event{
		Timestamp:  time.Now(),
		Layer:      log.LayerHandler,
		Category:   log.CategoryError,
		DriverType: h.DriverType().String(),
		Error: &log.ErrorEventData{
			Layer:   log.LayerHandler,
			Message: err.Error(),
			Context: context,
		},
	})
}

func encodeTimeSinceInput(age time.Duration) []byte {
	ms := age.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	if ms > 0xFFFFFFFF {
		ms = 0xFFFFFFFF
	}
	payload := make([]byte, timeSinceInputSize)
	binary.LittleEndian.PutUint32(payload, uint32(ms))
	return payload
}

func decodeTimeSinceInput(payload []byte) (any, error) {
	if len(payload) != timeSinceInputSize {
		return nil, fmt.Errorf("time since input payload is %d bytes, want %d",
			len(payload), timeSinceInputSize)
	}
	ms := binary.LittleEndian.Uint32(payload)
	return time.Duration(ms) * time.Millisecond, nil
}
