package protocol

import (
	"errors"
	"testing"
	"time"

	"github.com/rdpipe-protocol/rdpipe-go/pkg/wire"
)

func intReceiver(attribute wire.Attribute) *AttributeReceiver {
	return NewAttributeReceiver(attribute,
		func(payload []byte) (any, error) {
			if len(payload) != 1 {
				return nil, errors.New("want one byte")
			}
			return int(payload[0]), nil
		},
		StaticDefault(0),
	)
}

func TestGetValueDefaultSupplierRunsOnce(t *testing.T) {
	calls := 0
	p := NewAttributeValueProcessor()
	p.Register(NewAttributeReceiver("numCells",
		func(payload []byte) (any, error) { return nil, nil },
		func() (any, error) {
			calls++
			return 40, nil
		},
	))

	for i := 0; i < 3; i++ {
		v, err := p.GetValue("numCells")
		if err != nil {
			t.Fatalf("GetValue: %v", err)
		}
		if v != 40 {
			t.Fatalf("GetValue = %v, want 40", v)
		}
	}
	if calls != 1 {
		t.Errorf("default supplier ran %d times, want 1", calls)
	}
}

func TestGetValueNoReceiver(t *testing.T) {
	p := NewAttributeValueProcessor()
	_, err := p.GetValue("numCells")
	if !errors.Is(err, ErrNoReceiverForAttribute) {
		t.Errorf("GetValue = %v, want ErrNoReceiverForAttribute", err)
	}
}

func TestHasNewValueSince(t *testing.T) {
	p := NewAttributeValueProcessor()
	p.Register(intReceiver("numCells"))

	before := time.Now()
	if p.HasNewValueSince("numCells", before) {
		t.Error("never-set attribute must not report a new value")
	}

	p.SetValue("numCells", 80)
	if !p.HasNewValueSince("numCells", before) {
		t.Error("set after the reference time must report a new value")
	}

	after := time.Now()
	if p.HasNewValueSince("numCells", after) {
		t.Error("reference time at or past the set time must not report a new value")
	}
}

func TestHasNewValueSinceAfterDefault(t *testing.T) {
	p := NewAttributeValueProcessor()
	p.Register(intReceiver("numCells"))

	before := time.Now()
	if _, err := p.GetValue("numCells"); err != nil {
		t.Fatalf("GetValue: %v", err)
	}
	if !p.HasNewValueSince("numCells", before) {
		t.Error("caching the default stamps the value time")
	}
}

func TestHandleIncomingConvertsAndCaches(t *testing.T) {
	p := NewAttributeValueProcessor()
	var gotAttr wire.Attribute
	var gotValue any
	p.Register(intReceiver("numCells").WithUpdateCallback(func(attribute wire.Attribute, value any) {
		gotAttr = attribute
		gotValue = value
	}))

	before := time.Now()
	if err := p.HandleIncoming("numCells", []byte{0x28}); err != nil {
		t.Fatalf("HandleIncoming: %v", err)
	}

	v, err := p.GetValue("numCells")
	if err != nil {
		t.Fatalf("GetValue: %v", err)
	}
	if v != 40 {
		t.Errorf("GetValue = %v, want 40", v)
	}
	if !p.HasNewValueSince("numCells", before) {
		t.Error("HandleIncoming must refresh the value timestamp")
	}
	if gotAttr != "numCells" || gotValue != 40 {
		t.Errorf("update callback saw (%q, %v), want (numCells, 40)", gotAttr, gotValue)
	}
}

func TestHandleIncomingConvertError(t *testing.T) {
	p := NewAttributeValueProcessor()
	p.Register(intReceiver("numCells"))

	before := time.Now()
	if err := p.HandleIncoming("numCells", []byte{1, 2, 3}); err == nil {
		t.Fatal("HandleIncoming with a bad payload must fail")
	}
	if p.HasNewValueSince("numCells", before) {
		t.Error("a failed conversion must not touch the cache")
	}
}

func TestHandleIncomingWildcardReceiver(t *testing.T) {
	p := NewAttributeValueProcessor()
	var seen []wire.Attribute
	p.Register(NewWildcardAttributeReceiver("setting_*",
		func(attribute wire.Attribute, payload []byte) (any, error) {
			seen = append(seen, attribute)
			return string(payload), nil
		},
		func(attribute wire.Attribute) (any, error) { return "", nil },
	))

	if err := p.HandleIncoming("setting_rate", []byte("50")); err != nil {
		t.Fatalf("HandleIncoming: %v", err)
	}
	if err := p.HandleIncoming("setting_pitch", []byte("30")); err != nil {
		t.Fatalf("HandleIncoming: %v", err)
	}

	if len(seen) != 2 || seen[0] != "setting_rate" || seen[1] != "setting_pitch" {
		t.Errorf("wildcard convert saw %v", seen)
	}

	rate, err := p.GetValue("setting_rate")
	if err != nil {
		t.Fatalf("GetValue: %v", err)
	}
	pitch, err := p.GetValue("setting_pitch")
	if err != nil {
		t.Fatalf("GetValue: %v", err)
	}
	if rate != "50" || pitch != "30" {
		t.Errorf("per-attribute values = (%v, %v), want (50, 30)", rate, pitch)
	}
}

func TestConcurrentDistinctAttributes(t *testing.T) {
	p := NewAttributeValueProcessor()
	p.Register(NewWildcardAttributeReceiver("*",
		func(attribute wire.Attribute, payload []byte) (any, error) {
			return len(payload), nil
		},
		func(attribute wire.Attribute) (any, error) { return 0, nil },
	))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			p.SetValue("a", i)
		}
	}()
	for i := 0; i < 200; i++ {
		p.SetValue("b", i)
		if _, err := p.GetValue("b"); err != nil {
			t.Fatalf("GetValue: %v", err)
		}
	}
	<-done

	a, err := p.GetValue("a")
	if err != nil {
		t.Fatalf("GetValue: %v", err)
	}
	if a != 199 {
		t.Errorf("GetValue(a) = %v, want 199", a)
	}
}
