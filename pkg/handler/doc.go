// Package handler provides the concrete protocol handlers that mirror
// a local speech or braille driver to a remote peer.
//
// RemoteHandler carries the behavior both driver kinds share: setting
// attribute senders and receivers gated by the configuration toggle,
// the time-since-input exchange and the derived "remote session has
// focus" decision. SpeechHandler and BrailleHandler add the command
// callbacks and attributes of their driver kind.
//
// The focus decision compares the globally focused process id against
// the transport's peer process id, then refines a match with the
// peer's time since last input. The decision is cached until the host
// reports a focus change through EventGainFocus; the underlying
// attribute cache is left alone.
package handler
