// Package protocol implements the rdpipe protocol engine: command
// dispatch, pattern-matched attribute handler stores, the receive-side
// attribute value cache, and the synchronous remote-attribute fetch.
//
// A Handler owns one transport connection and one set of registries.
// Registries are populated during construction by the concrete driver
// handler and are immutable once the transport is bound; resolution is
// therefore lock-free.
//
// # Attribute traffic
//
// There are no per-message correlation ids. A GET is an attribute-set
// message with an empty value sent in the reverse direction; the reply
// is an ordinary attribute-set message matched purely by attribute
// name. The newest received value always overwrites the cache,
// regardless of which outstanding request triggered it.
//
// # Threading
//
// OnReceive runs on the transport's read goroutine and performs all
// receive-driven state mutation. Callers invoke the send and fetch
// operations from their own goroutines; GetRemoteAttribute is the
// single intentional rendezvous, blocking the caller on the
// transport's read-wait primitive while the read goroutine fills the
// cache.
package protocol
