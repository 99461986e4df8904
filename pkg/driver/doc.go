// Package driver defines the contracts a local speech or braille
// device implementation satisfies so its state can be mirrored to a
// peer: supported settings with by-name access, speech output with
// index markers, braille cell output and gesture routing.
//
// The package holds contracts and plain data types only. Concrete
// device bindings live with the host application; the protocol
// handlers in pkg/handler accept these interfaces.
package driver
