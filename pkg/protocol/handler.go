package protocol

import (
	"errors"
	"fmt"
	"time"

	"github.com/rdpipe-protocol/rdpipe-go/pkg/log"
	"github.com/rdpipe-protocol/rdpipe-go/pkg/transport"
	"github.com/rdpipe-protocol/rdpipe-go/pkg/wire"
)

// DefaultAttributeTimeout bounds the synchronous remote attribute
// fetch when the caller does not pass an explicit budget.
const DefaultAttributeTimeout = 3 * time.Second

// Handler errors.
var (
	// ErrAttributeTimeout indicates a remote attribute fetch whose
	// reply did not arrive within the budget.
	ErrAttributeTimeout = errors.New("wait for remote attribute timed out")

	// ErrNotBound indicates a send before a transport was bound.
	ErrNotBound = errors.New("handler is not bound to a transport")
)

// CommandFunc handles one decoded command payload. It runs on the
// transport's read goroutine; a returned error is logged as a defect
// and dropped, it never tears the connection down.
type CommandFunc func(payload []byte) error

// Config configures a protocol handler.
type Config struct {
	// DriverType selects the driver kind the connection mirrors.
	DriverType wire.DriverType

	// AttributeTimeout is the default budget for GetRemoteAttribute.
	// Zero means DefaultAttributeTimeout.
	AttributeTimeout time.Duration

	// Logger receives protocol-layer trace events. Nil disables
	// tracing.
	Logger log.Logger
}

// Handler is the protocol engine for one connection: framing decode,
// command dispatch, attribute stores and the synchronous fetch. It is
// composed by a concrete driver handler which registers its command
// and attribute callbacks at construction time, before the transport
// is bound.
type Handler struct {
	driverType wire.DriverType
	timeout    time.Duration
	logger     log.Logger

	dev     transport.Transport
	decoder *wire.Decoder

	commands  map[wire.Command]CommandFunc
	senders   *AttributeSenderStore
	receivers *AttributeValueProcessor

	disconnect *transport.Decider
}

// NewHandler creates a handler for the given driver type. The reserved
// attribute command is registered automatically.
func NewHandler(config Config) *Handler {
	timeout := config.AttributeTimeout
	if timeout == 0 {
		timeout = DefaultAttributeTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = log.NoopLogger{}
	}

	h := &Handler{
		driverType: config.DriverType,
		timeout:    timeout,
		logger:     logger,
		decoder:    wire.NewDecoder(config.DriverType),
		commands:   make(map[wire.Command]CommandFunc),
		senders:    NewAttributeSenderStore(),
		receivers:  NewAttributeValueProcessor(),
		disconnect: transport.NewDecider(false),
	}
	h.commands[wire.CmdAttribute] = h.handleAttribute
	return h
}

// DriverType returns the driver kind of the connection.
func (h *Handler) DriverType() wire.DriverType {
	return h.driverType
}

// RegisterCommand maps a command id to its handler. Registration must
// complete before the transport is bound; the map is read lock-free by
// the read goroutine afterwards.
func (h *Handler) RegisterCommand(command wire.Command, fn CommandFunc) {
	h.commands[command] = fn
}

// RegisterAttributeSender appends a sender to the sender store.
// Specific patterns must be registered before catch-all patterns.
func (h *Handler) RegisterAttributeSender(sender *AttributeSender) {
	h.senders.Register(sender)
}

// RegisterAttributeReceiver appends a receiver to the value processor.
// Specific patterns must be registered before catch-all patterns.
func (h *Handler) RegisterAttributeReceiver(receiver *AttributeReceiver) {
	h.receivers.Register(receiver)
}

// Logger returns the handler's event logger, never nil.
func (h *Handler) Logger() log.Logger {
	return h.logger
}

// Values exposes the receive-side value cache.
func (h *Handler) Values() *AttributeValueProcessor {
	return h.receivers
}

// DisconnectDecider exposes the accumulating vote deciding whether a
// transport read error tears the connection down.
func (h *Handler) DisconnectDecider() *transport.Decider {
	return h.disconnect
}

// Bind attaches the transport the handler owns. Call once, after all
// registrations.
func (h *Handler) Bind(dev transport.Transport) {
	h.dev = dev
}

// Transport returns the bound transport, or nil.
func (h *Handler) Transport() transport.Transport {
	return h.dev
}

// Callbacks returns the transport callbacks wired to this handler.
// Pass them to the transport constructor.
func (h *Handler) Callbacks() transport.Callbacks {
	return transport.Callbacks{
		OnReceive:   h.OnReceive,
		OnReadError: h.OnReadError,
	}
}

// Close tears down the bound transport.
func (h *Handler) Close() error {
	if h.dev == nil {
		return nil
	}
	return h.dev.Close()
}

// OnReceive feeds an incoming chunk to the frame decoder and
// dispatches every completed message it yields. A coalesced read may
// carry several frames back-to-back, so the decoder is drained until
// only a partial frame remains. It runs on the transport's read
// goroutine. A framing violation is fatal: the connection is reset
// rather than resynchronized.
func (h *Handler) OnReceive(data []byte) {
	chunk := data
	for {
		msg, err := h.decoder.Feed(chunk)
		if err != nil {
			h.logError(log.LayerProtocol, err, "framing violation")
			if h.dev != nil {
				h.dev.Close()
			}
			return
		}
		if msg == nil {
			return // Partial frame, keep buffering
		}
		h.dispatch(msg)
		if h.decoder.Pending() == 0 {
			return
		}
		chunk = nil
	}
}

// OnReadError routes a transport read error through the disconnect
// vote.
func (h *Handler) OnReadError(err error) bool {
	return h.disconnect.Decide(err)
}

// dispatch invokes the registered handler for a decoded message.
// An unknown command is logged and dropped; the connection continues.
func (h *Handler) dispatch(msg *wire.Message) {
	h.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: h.connID(),
		Direction:    log.DirectionIn,
		Layer:        log.LayerProtocol,
		Category:     log.CategoryMessage,
		DriverType:   h.driverType.String(),
		Command: &log.CommandEvent{
			Command:     byte(msg.Command),
			PayloadSize: len(msg.Payload),
		},
	})

	fn, ok := h.commands[msg.Command]
	if !ok {
		h.logError(log.LayerProtocol, fmt.Errorf("no handler for command %q", byte(msg.Command)), "")
		return
	}
	if err := fn(msg.Payload); err != nil {
		h.logError(log.LayerProtocol, err, fmt.Sprintf("command %q", byte(msg.Command)))
	}
}

// handleAttribute serves the reserved attribute command. An empty
// value is a request: the sender store computes a reply attribute-set
// message. A non-empty value is an update for the value processor.
// Unknown attributes are logged and dropped.
func (h *Handler) handleAttribute(payload []byte) error {
	attribute, value, err := wire.SplitAttribute(payload)
	if err != nil {
		return err
	}

	h.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: h.connID(),
		Direction:    log.DirectionIn,
		Layer:        log.LayerProtocol,
		Category:     log.CategoryAttribute,
		DriverType:   h.driverType.String(),
		Attribute: &log.AttributeEvent{
			Name:      string(attribute),
			Request:   len(value) == 0,
			ValueSize: len(value),
		},
	})

	if len(value) == 0 {
		sender, err := h.senders.Resolve(attribute)
		if err != nil {
			h.logError(log.LayerProtocol, err, string(attribute))
			return nil
		}
		out, err := sender.Fetch(attribute)
		if err != nil {
			return fmt.Errorf("fetch %q: %w", attribute, err)
		}
		return h.SetRemoteAttribute(attribute, out)
	}

	if _, err := h.receivers.Resolve(attribute); err != nil {
		// An attribute nobody registered for is peer noise, not a
		// defect on our side.
		h.logError(log.LayerProtocol, err, string(attribute))
		return nil
	}
	return h.receivers.HandleIncoming(attribute, value)
}

// WriteMessage encodes and sends one frame.
func (h *Handler) WriteMessage(command wire.Command, payload []byte) error {
	if h.dev == nil {
		return ErrNotBound
	}
	frame, err := wire.Encode(h.driverType, command, payload)
	if err != nil {
		return err
	}
	if _, err := h.dev.Write(frame); err != nil {
		return err
	}

	h.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: h.connID(),
		Direction:    log.DirectionOut,
		Layer:        log.LayerProtocol,
		Category:     log.CategoryMessage,
		DriverType:   h.driverType.String(),
		Command: &log.CommandEvent{
			Command:     byte(command),
			PayloadSize: len(payload),
		},
	})
	return nil
}

// SetRemoteAttribute sends an attribute update to the peer.
func (h *Handler) SetRemoteAttribute(attribute wire.Attribute, value []byte) error {
	return h.WriteMessage(wire.CmdAttribute, wire.JoinAttribute(attribute, value))
}

// RequestRemoteAttribute sends an empty-value request for the
// attribute. The reply arrives as an ordinary attribute update on the
// receive path.
func (h *Handler) RequestRemoteAttribute(attribute wire.Attribute) error {
	return h.WriteMessage(wire.CmdAttribute, wire.JoinAttribute(attribute, nil))
}

// safeWait polls the predicate, blocking on the transport's read-wait
// primitive for the remaining budget between checks. It stops once the
// read-wait reports no activity or the budget is exhausted, and checks
// the predicate once more afterwards: data may arrive synchronously
// with the last wake. The budget is a best-effort floor, not an exact
// bound.
func (h *Handler) safeWait(predicate func() bool, timeout time.Duration) bool {
	for timeout > 0 {
		if predicate() {
			return true
		}
		start := time.Now()
		if !h.dev.WaitForRead(timeout) {
			break
		}
		timeout -= time.Since(start)
	}
	return predicate()
}

// GetRemoteAttribute requests the attribute from the peer and blocks
// until a fresh value lands in the cache or the timeout elapses. The
// receive path may satisfy the wait with any update for the attribute,
// not only the reply to this request.
func (h *Handler) GetRemoteAttribute(attribute wire.Attribute, timeout time.Duration) (any, error) {
	if h.dev == nil {
		return nil, ErrNotBound
	}
	if timeout <= 0 {
		timeout = h.timeout
	}

	initial := time.Now()
	if err := h.RequestRemoteAttribute(attribute); err != nil {
		return nil, err
	}
	if h.safeWait(func() bool { return h.receivers.HasNewValueSince(attribute, initial) }, timeout) {
		return h.receivers.GetValue(attribute)
	}
	return nil, fmt.Errorf("%w: %q", ErrAttributeTimeout, attribute)
}

// connID returns the bound transport's connection id, or "".
func (h *Handler) connID() string {
	if h.dev == nil {
		return ""
	}
	return h.dev.ID()
}

// logError records an error event at the given layer.
func (h *Handler) logError(layer log.Layer, err error, context string) {
	h.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: h.connID(),
		Direction:    log.DirectionIn,
		Layer:        layer,
		Category:     log.CategoryError,
		DriverType:   h.driverType.String(),
		Error: &log.ErrorEventData{
			Layer:   layer,
			Message: err.Error(),
			Context: context,
		},
	})
}
