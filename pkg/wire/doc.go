// Package wire implements the rdpipe wire format: the framed message
// layout exchanged between a local driver process and its remote peer,
// the incremental decoder that reassembles messages from partial
// stream chunks, and the versioned CBOR codec used for attribute
// values.
//
// A message on the stream is laid out as:
//
//	driverType (1 byte) | command (1 byte) | length (uint16 LE) | payload
//
// The driver type byte doubles as a sanity check: both peers of a
// connection speak on behalf of exactly one driver kind, so a leading
// byte that does not match is a framing violation and the connection
// must be reset rather than resynchronized.
//
// Attribute traffic rides on the reserved AttributeCommand. Its payload
// is the attribute name and value joined by AttributeSeparator; an
// empty value turns the message into a request for the named attribute.
package wire
