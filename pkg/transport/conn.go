package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rdpipe-protocol/rdpipe-go/pkg/log"
)

// Transport constants.
const (
	// ReadBufferSize is the size of the chunk buffer handed to each
	// read. Matches the largest frame a peer can send.
	ReadBufferSize = 64 * 1024

	// MaxLogChunkSize is the maximum chunk size to include in log
	// events. Larger chunks are truncated in the trace.
	MaxLogChunkSize = 4096
)

// Transport errors.
var (
	// ErrConnClosed indicates an operation on a closed connection.
	ErrConnClosed = errors.New("connection closed")
)

// ConnConfig configures a Conn.
type ConnConfig struct {
	// PeerProcessID is the process id of the peer, when the stream
	// kind exposes one (named pipes do; plain TCP does not).
	PeerProcessID int

	// Logger receives transport-layer trace events. Nil disables
	// tracing.
	Logger log.Logger
}

// Conn runs a byte stream with a dedicated background read goroutine,
// delivering chunks to the handler callbacks and providing the
// read-wait primitive the synchronous attribute fetch blocks on.
type Conn struct {
	rwc io.ReadWriteCloser
	cb  Callbacks

	id            string
	remoteAddr    string
	peerProcessID int
	logger        log.Logger

	// readSignal is pulsed after each OnReceive returns. Buffered so
	// pulses coalesce instead of blocking the read goroutine.
	readSignal chan struct{}

	done      chan struct{}
	closeOnce sync.Once

	writeMu sync.Mutex
}

// NewConn wraps an open stream and starts its read goroutine. The
// callbacks run on that goroutine until the connection is closed or a
// read error is approved for disconnect.
func NewConn(rwc io.ReadWriteCloser, cb Callbacks, config ConnConfig) *Conn {
	c := &Conn{
		rwc:           rwc,
		cb:            cb,
		id:            uuid.NewString(),
		peerProcessID: config.PeerProcessID,
		logger:        config.Logger,
		readSignal:    make(chan struct{}, 1),
		done:          make(chan struct{}),
	}
	if nc, ok := rwc.(net.Conn); ok {
		if addr := nc.RemoteAddr(); addr != nil {
			c.remoteAddr = addr.String()
		}
	}

	go c.readLoop()

	return c
}

// Dial connects to the given address and wraps the connection.
func Dial(ctx context.Context, network, address string, cb Callbacks, config ConnConfig) (*Conn, error) {
	dialer := &net.Dialer{}
	nc, err := dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}
	return NewConn(nc, cb, config), nil
}

// ID returns the connection's unique identifier.
func (c *Conn) ID() string {
	return c.id
}

// RemoteAddr returns the peer address, or "" if the stream has none.
func (c *Conn) RemoteAddr() string {
	return c.remoteAddr
}

// PeerProcessID returns the process id of the peer, or 0 when unknown.
func (c *Conn) PeerProcessID() int {
	return c.peerProcessID
}

// Write sends raw bytes to the peer.
// Thread-safe: can be called from multiple goroutines.
func (c *Conn) Write(data []byte) (int, error) {
	select {
	case <-c.done:
		return 0, ErrConnClosed
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	n, err := c.rwc.Write(data)
	if err != nil {
		return n, fmt.Errorf("failed to write: %w", err)
	}

	if c.logger != nil {
		c.logger.Log(c.makeChunkEvent(data, log.DirectionOut))
	}
	return n, nil
}

// WaitForRead blocks until the next chunk has been delivered or the
// timeout elapses.
func (c *Conn) WaitForRead(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-c.readSignal:
		return true
	case <-timer.C:
		return false
	case <-c.done:
		return false
	}
}

// Close tears the connection down and stops the read goroutine.
// Safe to call multiple times.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.rwc.Close()
	})
	return err
}

// Closed reports whether the connection has been closed.
func (c *Conn) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// readLoop reads chunks from the stream until the connection closes.
func (c *Conn) readLoop() {
	buf := make([]byte, ReadBufferSize)

	for {
		select {
		case <-c.done:
			return
		default:
		}

		n, err := c.rwc.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])

			if c.logger != nil {
				c.logger.Log(c.makeChunkEvent(chunk, log.DirectionIn))
			}
			if c.cb.OnReceive != nil {
				c.cb.OnReceive(chunk)
			}
			c.pulse()
		}
		if err != nil {
			if c.Closed() {
				return // Expected during close
			}
			if c.handleReadError(err) {
				c.Close()
				return
			}
			// The voters want to keep the handler alive for
			// reconnection; stop reading, the handler owns the next
			// step.
			return
		}
	}
}

// handleReadError routes a read error to the handler's vote, returning
// whether the connection should disconnect.
func (c *Conn) handleReadError(err error) bool {
	if c.logger != nil {
		c.logger.Log(log.Event{
			Timestamp:    time.Now(),
			ConnectionID: c.id,
			Direction:    log.DirectionIn,
			Layer:        log.LayerTransport,
			Category:     log.CategoryError,
			RemoteAddr:   c.remoteAddr,
			Error: &log.ErrorEventData{
				Layer:   log.LayerTransport,
				Message: err.Error(),
			},
		})
	}

	if c.cb.OnReadError == nil {
		return true
	}
	return c.cb.OnReadError(err)
}

// pulse signals a waiting WaitForRead caller. Non-blocking: an already
// pending pulse is enough, the waiter re-checks its predicate anyway.
func (c *Conn) pulse() {
	select {
	case c.readSignal <- struct{}{}:
	default:
	}
}

// makeChunkEvent creates a log event for a raw chunk.
func (c *Conn) makeChunkEvent(data []byte, direction log.Direction) log.Event {
	chunk := data
	truncated := false
	if len(data) > MaxLogChunkSize {
		chunk = data[:MaxLogChunkSize]
		truncated = true
	}

	return log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		Direction:    direction,
		Layer:        log.LayerTransport,
		Category:     log.CategoryMessage,
		RemoteAddr:   c.remoteAddr,
		Frame: &log.FrameEvent{
			Size:      len(data),
			Data:      chunk,
			Truncated: truncated,
		},
	}
}
