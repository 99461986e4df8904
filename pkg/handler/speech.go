package handler

import (
	"encoding/binary"
	"fmt"

	"github.com/rdpipe-protocol/rdpipe-go/pkg/driver"
	"github.com/rdpipe-protocol/rdpipe-go/pkg/wire"
)

// indexPayloadSize is the fixed payload size of an index-reached
// report: an unsigned 32-bit index, little-endian.
const indexPayloadSize = 4

// SpeechHandler mirrors a local speech synthesizer. Incoming speak,
// cancel and pause commands drive the local driver; index markers the
// driver reaches are reported back to the peer. The send-side methods
// let the same handler drive the peer's synthesizer.
type SpeechHandler struct {
	*RemoteHandler

	speechDriver driver.SpeechDriver

	// onIndexReached runs when the peer reports a reached index
	// marker.
	onIndexReached func(index int)
}

// NewSpeechHandler creates a speech handler for the given driver.
// Register callbacks and bind a transport before traffic starts.
func NewSpeechHandler(drv driver.SpeechDriver, config Config) *SpeechHandler {
	h := &SpeechHandler{
		RemoteHandler: newRemoteHandler(wire.DriverSpeech, drv, config),
		speechDriver:  drv,
	}

	h.RegisterCommand(wire.CmdSpeak, h.handleSpeak)
	h.RegisterCommand(wire.CmdCancel, h.handleCancel)
	h.RegisterCommand(wire.CmdPause, h.handlePause)
	h.RegisterCommand(wire.CmdIndexReached, h.handleIndexReached)

	drv.SetIndexCallback(h.reportIndexReached)
	return h
}

// SetIndexReachedCallback registers the hook run when the peer reports
// a reached index marker.
func (h *SpeechHandler) SetIndexReachedCallback(fn func(index int)) {
	h.onIndexReached = fn
}

func (h *SpeechHandler) handleSpeak(payload []byte) error {
	var sequence []driver.SpeechItem
	if err := wire.Unmarshal(payload, &sequence); err != nil {
		return fmt.Errorf("decode speech sequence: %w", err)
	}
	return h.speechDriver.Speak(sequence)
}

func (h *SpeechHandler) handleCancel([]byte) error {
	return h.speechDriver.Cancel()
}

func (h *SpeechHandler) handlePause(payload []byte) error {
	if len(payload) != 1 {
		return fmt.Errorf("pause payload is %d bytes, want 1", len(payload))
	}
	return h.speechDriver.Pause(payload[0] != 0)
}

func (h *SpeechHandler) handleIndexReached(payload []byte) error {
	if len(payload) != indexPayloadSize {
		return fmt.Errorf("index payload is %d bytes, want %d", len(payload), indexPayloadSize)
	}
	if h.onIndexReached != nil {
		h.onIndexReached(int(binary.LittleEndian.Uint32(payload)))
	}
	return nil
}

func (h *SpeechHandler) reportIndexReached(index int) {
	payload := make([]byte, indexPayloadSize)
	binary.LittleEndian.PutUint32(payload, uint32(index))
	if err := h.WriteMessage(wire.CmdIndexReached, payload); err != nil {
		h.logHandlerError(err, "index reached")
	}
}

// SpeakRemote queues a speech sequence on the peer's synthesizer.
func (h *SpeechHandler) SpeakRemote(sequence []driver.SpeechItem) error {
	payload, err := wire.Marshal(sequence)
	if err != nil {
		return err
	}
	return h.WriteMessage(wire.CmdSpeak, payload)
}

// CancelRemote stops the peer's speech.
func (h *SpeechHandler) CancelRemote() error {
	return h.WriteMessage(wire.CmdCancel, nil)
}

// PauseRemote suspends or resumes the peer's speech.
func (h *SpeechHandler) PauseRemote(paused bool) error {
	b := byte(0)
	if paused {
		b = 1
	}
	return h.WriteMessage(wire.CmdPause, []byte{b})
}
