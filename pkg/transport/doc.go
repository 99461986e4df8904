// Package transport provides the byte-stream transport the protocol
// handlers run on.
//
// The transport layer handles:
//   - Background reads on a dedicated goroutine per connection,
//     delivering raw chunks to the handler's receive callback
//   - A read-wait primitive the synchronous attribute fetch blocks on
//   - Read-error routing through an accumulating multi-vote decider
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│     rdpipe frames              │
//	├────────────────────────────────┤
//	│     Conn (this package)        │
//	├────────────────────────────────┤
//	│  any io.ReadWriteCloser        │
//	│  (TCP, unix socket, pipe)      │
//	└────────────────────────────────┘
//
// Each Conn owns its read goroutine with a scoped lifetime: started
// by NewConn, stopped by Close. There is no shared I/O thread and no
// hidden global state.
//
// # Read ordering
//
// The read goroutine invokes OnReceive before pulsing the read-wait
// channel, so a caller woken by WaitForRead observes every state
// change the chunk caused. Delivery order is preserved per connection;
// nothing is guaranteed across two distinct connections.
package transport
