package transport

import (
	"time"
)

// Transport is the byte-stream channel a protocol handler owns. The
// concrete stream may be a TCP connection, a unix socket or an
// in-process pipe; handlers only depend on this contract.
type Transport interface {
	// Write sends raw bytes to the peer, returning the byte count.
	Write(data []byte) (int, error)

	// WaitForRead blocks until the read goroutine delivers the next
	// chunk or the timeout elapses. It returns true when a chunk
	// arrived; every state change caused by that chunk is visible to
	// the caller before WaitForRead returns.
	WaitForRead(timeout time.Duration) bool

	// ID returns the connection's unique identifier.
	ID() string

	// RemoteAddr returns the peer address, or "" if the stream has
	// none.
	RemoteAddr() string

	// PeerProcessID returns the process id of the peer, or 0 when
	// unknown. Used by the focus layer to compare against the
	// globally focused process.
	PeerProcessID() int

	// Close tears the connection down and stops the read goroutine.
	// Safe to call multiple times.
	Close() error
}

// Callbacks are the asynchronous upcalls a connection makes from its
// read goroutine.
type Callbacks struct {
	// OnReceive is invoked with every chunk read from the stream.
	// All protocol state mutation driven by incoming data happens
	// inside this callback, on the read goroutine.
	OnReceive func(data []byte)

	// OnReadError is invoked when a read fails. Returning true
	// approves tearing down the connection; the connection stops
	// reading once it is approved. A nil OnReadError approves every
	// error.
	OnReadError func(err error) bool
}

// Compile-time interface satisfaction check.
var _ Transport = (*Conn)(nil)
