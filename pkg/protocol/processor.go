package protocol

import (
	"fmt"
	"sync"
	"time"

	"github.com/rdpipe-protocol/rdpipe-go/pkg/wire"
)

// attributeState is the cached value of one attribute. Created lazily
// on first access, one per attribute, owned by the processor for the
// handler's lifetime. Values are overwritten, never invalidated.
type attributeState struct {
	mu      sync.Mutex
	value   any
	lastSet time.Time
	cached  bool
}

// AttributeValueProcessor is the receiver store combined with the
// receive-side value cache. Receivers are registered once at handler
// construction; cached values are written by the transport's read
// goroutine and read by caller goroutines, guarded per attribute so
// unrelated attributes never contend.
type AttributeValueProcessor struct {
	receivers []*AttributeReceiver

	mu     sync.Mutex
	states map[wire.Attribute]*attributeState
}

// NewAttributeValueProcessor creates an empty processor.
func NewAttributeValueProcessor() *AttributeValueProcessor {
	return &AttributeValueProcessor{
		states: make(map[wire.Attribute]*attributeState),
	}
}

// Register appends a receiver to the registry. Specific patterns must
// be registered before catch-all patterns; resolution is first-match.
func (p *AttributeValueProcessor) Register(receiver *AttributeReceiver) {
	p.receivers = append(p.receivers, receiver)
}

// Resolve returns the first registered receiver whose pattern matches
// the attribute.
func (p *AttributeValueProcessor) Resolve(attribute wire.Attribute) (*AttributeReceiver, error) {
	for _, r := range p.receivers {
		if matchAttribute(r.pattern, attribute) {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNoReceiverForAttribute, attribute)
}

// state returns the attribute's cache slot, creating it on demand.
func (p *AttributeValueProcessor) state(attribute wire.Attribute) *attributeState {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.states[attribute]
	if !ok {
		s = &attributeState{}
		p.states[attribute] = s
	}
	return s
}

// GetValue returns the cached value for the attribute. On first access
// the resolved receiver's default supplier runs exactly once, under
// the attribute's lock, and its result is cached with the current
// timestamp; later calls return the cache without recomputation.
func (p *AttributeValueProcessor) GetValue(attribute wire.Attribute) (any, error) {
	s := p.state(attribute)
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cached {
		receiver, err := p.Resolve(attribute)
		if err != nil {
			return nil, err
		}
		value, err := receiver.defaultValue(attribute)
		if err != nil {
			return nil, fmt.Errorf("default value for %q: %w", attribute, err)
		}
		s.value = value
		s.lastSet = time.Now()
		s.cached = true
	}
	return s.value, nil
}

// SetValue overwrites the cached value and its timestamp.
func (p *AttributeValueProcessor) SetValue(attribute wire.Attribute, value any) {
	s := p.state(attribute)
	s.mu.Lock()
	s.value = value
	s.lastSet = time.Now()
	s.cached = true
	s.mu.Unlock()
}

// HasNewValueSince reports whether the attribute's cached timestamp is
// strictly after t. A never-set attribute has no timestamp and reports
// false.
func (p *AttributeValueProcessor) HasNewValueSince(attribute wire.Attribute, t time.Time) bool {
	s := p.state(attribute)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cached && s.lastSet.After(t)
}

// HandleIncoming parses an incoming payload with the resolved
// receiver, caches the result, and runs the receiver's update hook.
// Conversion errors propagate to the caller; the payload is
// peer-controlled input and a failing conversion is a receiver defect.
func (p *AttributeValueProcessor) HandleIncoming(attribute wire.Attribute, payload []byte) error {
	receiver, err := p.Resolve(attribute)
	if err != nil {
		return err
	}

	value, err := receiver.convert(attribute, payload)
	if err != nil {
		return fmt.Errorf("convert %q: %w", attribute, err)
	}

	p.SetValue(attribute, value)

	// The hook runs outside the cache lock: it may fetch other
	// attributes or write back to the driver.
	if receiver.update != nil {
		receiver.update(attribute, value)
	}
	return nil
}
