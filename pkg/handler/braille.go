package handler

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rdpipe-protocol/rdpipe-go/pkg/driver"
	"github.com/rdpipe-protocol/rdpipe-go/pkg/protocol"
	"github.com/rdpipe-protocol/rdpipe-go/pkg/wire"
)

// ErrGestureNotIntercepted indicates a gesture sent to a peer that
// never registered interest in it.
var ErrGestureNotIntercepted = errors.New("gesture not intercepted by peer")

// BrailleHandler mirrors a local braille display. Incoming display
// commands write cells to the local driver; gestures performed locally
// are forwarded to the peer when the peer registered them for
// interception.
type BrailleHandler struct {
	*RemoteHandler

	brailleDriver driver.BrailleDriver

	// onExecuteGesture runs a gesture the peer forwarded for local
	// execution.
	onExecuteGesture func(gesture driver.Gesture) error

	interceptMu  sync.Mutex
	interception map[string]struct{}
}

// NewBrailleHandler creates a braille handler for the given driver.
func NewBrailleHandler(drv driver.BrailleDriver, config Config) *BrailleHandler {
	h := &BrailleHandler{
		RemoteHandler: newRemoteHandler(wire.DriverBraille, drv, config),
		brailleDriver: drv,
		interception:  make(map[string]struct{}),
	}

	h.RegisterAttributeSender(protocol.NewAttributeSender(wire.AttrNumCells, h.sendNumCells))
	h.RegisterAttributeSender(protocol.NewAttributeSender(wire.AttrGestureMap, h.sendGestureMap))
	h.RegisterAttributeReceiver(protocol.NewAttributeReceiver(
		wire.AttrNumCells,
		decodeNumCells,
		protocol.StaticDefault(0),
	))
	h.RegisterAttributeReceiver(protocol.NewAttributeReceiver(
		wire.AttrGestureMap,
		decodeGestureMap,
		protocol.StaticDefault(map[string]string{}),
	))

	h.RegisterCommand(wire.CmdDisplay, h.handleDisplay)
	h.RegisterCommand(wire.CmdExecuteGesture, h.handleExecuteGesture)
	h.RegisterCommand(wire.CmdInterceptGesture, h.handleInterceptGesture)
	return h
}

// SetExecuteGestureCallback registers the function that performs a
// gesture the peer forwarded. Without one, forwarded gestures are
// reported as errors and dropped.
func (h *BrailleHandler) SetExecuteGestureCallback(fn func(gesture driver.Gesture) error) {
	h.onExecuteGesture = fn
}

func (h *BrailleHandler) sendNumCells() ([]byte, error) {
	return []byte{byte(h.brailleDriver.NumCells())}, nil
}

func (h *BrailleHandler) sendGestureMap() ([]byte, error) {
	return wire.Marshal(h.brailleDriver.GestureMap())
}

func decodeNumCells(payload []byte) (any, error) {
	if len(payload) != 1 {
		return nil, fmt.Errorf("cell count payload is %d bytes, want 1", len(payload))
	}
	return int(payload[0]), nil
}

func decodeGestureMap(payload []byte) (any, error) {
	var m map[string]string
	if err := wire.Unmarshal(payload, &m); err != nil {
		return nil, fmt.Errorf("decode gesture map: %w", err)
	}
	return m, nil
}

func (h *BrailleHandler) handleDisplay(payload []byte) error {
	return h.brailleDriver.Display(payload)
}

func (h *BrailleHandler) handleExecuteGesture(payload []byte) error {
	var gesture driver.Gesture
	if err := wire.Unmarshal(payload, &gesture); err != nil {
		return fmt.Errorf("decode gesture: %w", err)
	}
	if h.onExecuteGesture == nil {
		return fmt.Errorf("no executor for gesture %q", gesture.ID)
	}
	return h.onExecuteGesture(gesture)
}

func (h *BrailleHandler) handleInterceptGesture(payload []byte) error {
	var ids []string
	if err := wire.Unmarshal(payload, &ids); err != nil {
		return fmt.Errorf("decode gesture intercept list: %w", err)
	}
	h.interceptMu.Lock()
	h.interception = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		h.interception[id] = struct{}{}
	}
	h.interceptMu.Unlock()
	return nil
}

// GestureIntercepted reports whether the peer registered the gesture
// id for interception.
func (h *BrailleHandler) GestureIntercepted(id string) bool {
	h.interceptMu.Lock()
	defer h.interceptMu.Unlock()
	_, ok := h.interception[id]
	return ok
}

// InterceptRemoteGestures tells the peer which gesture ids to forward
// instead of handling locally. The list replaces any earlier one.
func (h *BrailleHandler) InterceptRemoteGestures(ids []string) error {
	payload, err := wire.Marshal(ids)
	if err != nil {
		return err
	}
	return h.WriteMessage(wire.CmdInterceptGesture, payload)
}

// ForwardGesture sends a locally performed gesture to the peer for
// execution. Gestures the peer never registered are rejected.
func (h *BrailleHandler) ForwardGesture(gesture driver.Gesture) error {
	if !h.GestureIntercepted(gesture.ID) {
		return fmt.Errorf("%w: %q", ErrGestureNotIntercepted, gesture.ID)
	}
	payload, err := wire.Marshal(gesture)
	if err != nil {
		return err
	}
	return h.WriteMessage(wire.CmdExecuteGesture, payload)
}

// DisplayRemote writes raw cells to the peer's display.
func (h *BrailleHandler) DisplayRemote(cells []byte) error {
	return h.WriteMessage(wire.CmdDisplay, cells)
}

// RemoteNumCells fetches the peer display's size.
func (h *BrailleHandler) RemoteNumCells(timeout time.Duration) (int, error) {
	v, err := h.GetRemoteAttribute(wire.AttrNumCells, timeout)
	if err != nil {
		return 0, err
	}
	cells, ok := v.(int)
	if !ok {
		return 0, fmt.Errorf("%w: %q", wire.ErrValueKind, wire.AttrNumCells)
	}
	return cells, nil
}
