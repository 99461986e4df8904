package log

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func sampleEvent() Event {
	return Event{
		Timestamp:    time.Now(),
		ConnectionID: "11111111-2222-3333-4444-555555555555",
		Direction:    DirectionIn,
		Layer:        LayerProtocol,
		Category:     CategoryAttribute,
		DriverType:   "SPEECH",
		Attribute: &AttributeEvent{
			Name:      "numCells",
			Request:   false,
			ValueSize: 1,
		},
	}
}

func TestEncodeDecodeEvent(t *testing.T) {
	in := sampleEvent()

	data, err := EncodeEvent(in)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	out, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if out.ConnectionID != in.ConnectionID {
		t.Errorf("connection id = %q, want %q", out.ConnectionID, in.ConnectionID)
	}
	if out.Attribute == nil || out.Attribute.Name != "numCells" {
		t.Errorf("attribute event not preserved: %+v", out.Attribute)
	}
	if out.Direction != DirectionIn || out.Layer != LayerProtocol || out.Category != CategoryAttribute {
		t.Errorf("classification not preserved: %+v", out)
	}
}

func TestFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.rlog")

	l, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	l.Log(sampleEvent())
	l.Log(sampleEvent())
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Log after close is a no-op.
	l.Log(sampleEvent())

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	dec := NewDecoder(f)
	count := 0
	for {
		var ev Event
		if err := dec.Decode(&ev); err != nil {
			break
		}
		count++
	}
	if count != 2 {
		t.Errorf("decoded %d events, want 2", count)
	}
}

func TestMultiLogger(t *testing.T) {
	a := &countingLogger{}
	b := &countingLogger{}

	m := NewMultiLogger(a, b, NoopLogger{})
	m.Log(sampleEvent())
	m.Log(sampleEvent())

	if a.count != 2 || b.count != 2 {
		t.Errorf("counts = %d, %d, want 2, 2", a.count, b.count)
	}
}

func TestSlogAdapter(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	NewSlogAdapter(logger).Log(sampleEvent())

	out := buf.String()
	for _, want := range []string{"attribute=numCells", "direction=IN", "layer=PROTOCOL"} {
		if !bytes.Contains([]byte(out), []byte(want)) {
			t.Errorf("slog output missing %q: %s", want, out)
		}
	}
}

type countingLogger struct {
	count int
}

func (c *countingLogger) Log(Event) { c.count++ }
