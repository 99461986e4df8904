package protocol

import (
	"errors"
	"fmt"

	"github.com/rdpipe-protocol/rdpipe-go/pkg/wire"
)

// Attribute store errors.
var (
	// ErrNoSenderForAttribute indicates no registered sender pattern
	// matches the attribute.
	ErrNoSenderForAttribute = errors.New("no attribute sender for attribute")

	// ErrNoReceiverForAttribute indicates no registered receiver
	// pattern matches the attribute.
	ErrNoReceiverForAttribute = errors.New("no attribute receiver for attribute")
)

// matchAttribute reports whether name matches pattern. An exact
// pattern matches only itself; the wildcard marker matches any run of
// bytes, including an empty one.
func matchAttribute(pattern, name wire.Attribute) bool {
	p, n := 0, 0
	star, mark := -1, 0
	for n < len(name) {
		switch {
		case p < len(pattern) && (pattern[p] == name[n]):
			p++
			n++
		case p < len(pattern) && pattern[p] == wire.AttributeWildcard:
			star, mark = p, n
			p++
		case star >= 0:
			// Backtrack: let the last wildcard swallow one more byte.
			mark++
			p, n = star+1, mark
		default:
			return false
		}
	}
	for p < len(pattern) && pattern[p] == wire.AttributeWildcard {
		p++
	}
	return p == len(pattern)
}

// FetchFunc computes the serialized outgoing value of an attribute.
type FetchFunc func(attribute wire.Attribute) ([]byte, error)

// ConvertFunc parses an incoming serialized payload into a typed
// value. Conversion failures propagate on the receive path: the
// payload is peer-controlled input and a failing conversion is a
// defect in the receiver, never silently dropped.
type ConvertFunc func(attribute wire.Attribute, payload []byte) (any, error)

// DefaultFunc supplies the value reported for an attribute before any
// update arrived from the peer.
type DefaultFunc func(attribute wire.Attribute) (any, error)

// UpdateFunc runs after an incoming update has been parsed and cached.
type UpdateFunc func(attribute wire.Attribute, value any)

// AttributeSender computes outgoing attribute values in reply to
// requests from the peer.
type AttributeSender struct {
	pattern  wire.Attribute
	fetch    FetchFunc
	catchAll bool
}

// NewAttributeSender creates a sender for a single exact attribute.
// The fetch callback does not receive the attribute name.
func NewAttributeSender(attribute wire.Attribute, fetch func() ([]byte, error)) *AttributeSender {
	return &AttributeSender{
		pattern: attribute,
		fetch:   func(wire.Attribute) ([]byte, error) { return fetch() },
	}
}

// NewWildcardAttributeSender creates a catch-all sender whose pattern
// names a family of attributes. The fetch callback receives the
// matched name explicitly.
func NewWildcardAttributeSender(pattern wire.Attribute, fetch FetchFunc) *AttributeSender {
	return &AttributeSender{
		pattern:  pattern,
		fetch:    fetch,
		catchAll: pattern.IsPattern(),
	}
}

// Pattern returns the registration pattern.
func (s *AttributeSender) Pattern() wire.Attribute { return s.pattern }

// IsCatchAll reports whether the sender serves a family of attributes.
func (s *AttributeSender) IsCatchAll() bool { return s.catchAll }

// Fetch computes the serialized value for the given attribute.
func (s *AttributeSender) Fetch(attribute wire.Attribute) ([]byte, error) {
	return s.fetch(attribute)
}

// AttributeSenderStore is the ordered registry of attribute senders.
// Registration order is the caller contract: specific patterns must be
// registered before catch-all patterns, since resolution is
// first-match. The store is write-once at construction; Resolve is
// lock-free.
type AttributeSenderStore struct {
	handlers []*AttributeSender
}

// NewAttributeSenderStore creates an empty sender store.
func NewAttributeSenderStore() *AttributeSenderStore {
	return &AttributeSenderStore{}
}

// Register appends a sender to the registry.
func (s *AttributeSenderStore) Register(sender *AttributeSender) {
	s.handlers = append(s.handlers, sender)
}

// Resolve returns the first registered sender whose pattern matches
// the attribute.
func (s *AttributeSenderStore) Resolve(attribute wire.Attribute) (*AttributeSender, error) {
	for _, h := range s.handlers {
		if matchAttribute(h.pattern, attribute) {
			return h, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNoSenderForAttribute, attribute)
}

// AttributeReceiver parses incoming attribute payloads into typed
// values, paired with a default-value supplier and an optional
// post-update hook.
type AttributeReceiver struct {
	pattern      wire.Attribute
	convert      ConvertFunc
	defaultValue DefaultFunc
	update       UpdateFunc
	catchAll     bool
}

// NewAttributeReceiver creates a receiver for a single exact
// attribute. The conversion and default callbacks do not receive the
// attribute name.
func NewAttributeReceiver(
	attribute wire.Attribute,
	convert func(payload []byte) (any, error),
	defaultValue func() (any, error),
) *AttributeReceiver {
	return &AttributeReceiver{
		pattern:      attribute,
		convert:      func(_ wire.Attribute, payload []byte) (any, error) { return convert(payload) },
		defaultValue: func(wire.Attribute) (any, error) { return defaultValue() },
	}
}

// NewWildcardAttributeReceiver creates a catch-all receiver whose
// pattern names a family of attributes. The callbacks receive the
// matched name explicitly.
func NewWildcardAttributeReceiver(
	pattern wire.Attribute,
	convert ConvertFunc,
	defaultValue DefaultFunc,
) *AttributeReceiver {
	return &AttributeReceiver{
		pattern:      pattern,
		convert:      convert,
		defaultValue: defaultValue,
		catchAll:     pattern.IsPattern(),
	}
}

// StaticDefault adapts a fixed value into a default supplier.
func StaticDefault(value any) func() (any, error) {
	return func() (any, error) { return value, nil }
}

// WithUpdateCallback attaches a hook that runs after each incoming
// update has been parsed and cached, and returns the receiver for
// chaining during registration.
func (r *AttributeReceiver) WithUpdateCallback(update UpdateFunc) *AttributeReceiver {
	r.update = update
	return r
}

// Pattern returns the registration pattern.
func (r *AttributeReceiver) Pattern() wire.Attribute { return r.pattern }

// IsCatchAll reports whether the receiver serves a family of
// attributes.
func (r *AttributeReceiver) IsCatchAll() bool { return r.catchAll }

// Convert parses a serialized payload into the receiver's typed value.
func (r *AttributeReceiver) Convert(attribute wire.Attribute, payload []byte) (any, error) {
	return r.convert(attribute, payload)
}
