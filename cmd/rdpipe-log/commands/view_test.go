package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rdpipe-protocol/rdpipe-go/pkg/log"
)

func TestViewFormatsAttributeRequest(t *testing.T) {
	ts := time.Date(2026, 8, 30, 10, 15, 32, 0, time.UTC)
	events := []log.Event{
		{
			Timestamp:    ts,
			ConnectionID: "conn-1234-5678",
			Direction:    log.DirectionOut,
			Layer:        log.LayerProtocol,
			Category:     log.CategoryAttribute,
			Attribute:    &log.AttributeEvent{Name: "numCells", Request: true},
		},
	}

	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	if err := RunView(path, ViewFilter{}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}

	output := buf.String()

	if !strings.Contains(output, "AttrRequest") {
		t.Errorf("expected AttrRequest label, got:\n%s", output)
	}
	if !strings.Contains(output, "Attribute: numCells") {
		t.Errorf("expected attribute name, got:\n%s", output)
	}
	if !strings.Contains(output, "[conn:conn-123]") {
		t.Errorf("expected shortened connection ID, got:\n%s", output)
	}
	if !strings.Contains(output, "OUT") {
		t.Errorf("expected OUT direction, got:\n%s", output)
	}
}

func TestViewFormatsAttributeUpdate(t *testing.T) {
	ts := time.Date(2026, 8, 30, 10, 15, 32, 0, time.UTC)
	events := []log.Event{
		{
			Timestamp: ts,
			Direction: log.DirectionIn,
			Layer:     log.LayerProtocol,
			Category:  log.CategoryAttribute,
			Attribute: &log.AttributeEvent{Name: "timeSinceInput", ValueSize: 4},
		},
	}

	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	if err := RunView(path, ViewFilter{}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}

	output := buf.String()

	if !strings.Contains(output, "AttrUpdate") {
		t.Errorf("expected AttrUpdate label, got:\n%s", output)
	}
	if !strings.Contains(output, "ValueSize: 4") {
		t.Errorf("expected value size, got:\n%s", output)
	}
}

func TestViewFormatsCommand(t *testing.T) {
	ts := time.Date(2026, 8, 30, 10, 15, 32, 0, time.UTC)
	events := []log.Event{
		{
			Timestamp: ts,
			Direction: log.DirectionIn,
			Layer:     log.LayerProtocol,
			Category:  log.CategoryMessage,
			Command:   &log.CommandEvent{Command: 'S', PayloadSize: 64},
		},
	}

	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	if err := RunView(path, ViewFilter{}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}

	output := buf.String()

	if !strings.Contains(output, "SPEAK") {
		t.Errorf("expected SPEAK label, got:\n%s", output)
	}
	if !strings.Contains(output, "PayloadSize: 64") {
		t.Errorf("expected payload size, got:\n%s", output)
	}
}

func TestViewFormatsFrame(t *testing.T) {
	ts := time.Date(2026, 8, 30, 10, 15, 32, 0, time.UTC)
	events := []log.Event{
		{
			Timestamp: ts,
			Direction: log.DirectionIn,
			Layer:     log.LayerTransport,
			Category:  log.CategoryMessage,
			Frame:     &log.FrameEvent{Size: 4, Data: []byte{0x53, 0x43, 0x00, 0x00}},
		},
	}

	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	if err := RunView(path, ViewFilter{}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}

	output := buf.String()

	if !strings.Contains(output, "Frame") {
		t.Errorf("expected Frame label, got:\n%s", output)
	}
	if !strings.Contains(output, "Size: 4 bytes") {
		t.Errorf("expected frame size, got:\n%s", output)
	}
	if !strings.Contains(output, "53430000") {
		t.Errorf("expected hex data, got:\n%s", output)
	}
}

func TestViewFormatsError(t *testing.T) {
	ts := time.Date(2026, 8, 30, 10, 15, 32, 0, time.UTC)
	events := []log.Event{
		{
			Timestamp: ts,
			Direction: log.DirectionIn,
			Layer:     log.LayerProtocol,
			Category:  log.CategoryError,
			Error: &log.ErrorEventData{
				Layer:   log.LayerProtocol,
				Message: "frame for driver type BRAILLE on SPEECH connection",
				Context: "decode",
			},
		},
	}

	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	if err := RunView(path, ViewFilter{}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}

	output := buf.String()

	if !strings.Contains(output, "Error") {
		t.Errorf("expected Error label, got:\n%s", output)
	}
	if !strings.Contains(output, "Context: decode") {
		t.Errorf("expected error context, got:\n%s", output)
	}
}

func TestViewFiltersByLayer(t *testing.T) {
	ts := time.Date(2026, 8, 30, 10, 15, 32, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, Layer: log.LayerTransport, Category: log.CategoryMessage, Frame: &log.FrameEvent{Size: 1}},
		{Timestamp: ts, Layer: log.LayerProtocol, Category: log.CategoryMessage, Command: &log.CommandEvent{Command: 'C'}},
	}

	path := createTestLogFile(t, events)

	layer := log.LayerProtocol
	var buf bytes.Buffer
	if err := RunView(path, ViewFilter{Layer: &layer}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}

	output := buf.String()

	if strings.Contains(output, "Frame") {
		t.Errorf("expected transport events filtered out, got:\n%s", output)
	}
	if !strings.Contains(output, "CANCEL") {
		t.Errorf("expected protocol event in output, got:\n%s", output)
	}
}

func TestViewFiltersByDirection(t *testing.T) {
	ts := time.Date(2026, 8, 30, 10, 15, 32, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, Direction: log.DirectionIn, Category: log.CategoryAttribute, Attribute: &log.AttributeEvent{Name: "inbound"}},
		{Timestamp: ts, Direction: log.DirectionOut, Category: log.CategoryAttribute, Attribute: &log.AttributeEvent{Name: "outbound"}},
	}

	path := createTestLogFile(t, events)

	dir := log.DirectionOut
	var buf bytes.Buffer
	if err := RunView(path, ViewFilter{Direction: &dir}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}

	output := buf.String()

	if strings.Contains(output, "inbound") {
		t.Errorf("expected inbound events filtered out, got:\n%s", output)
	}
	if !strings.Contains(output, "outbound") {
		t.Errorf("expected outbound event in output, got:\n%s", output)
	}
}

func TestParseLayerFlag(t *testing.T) {
	tests := []struct {
		input   string
		want    log.Layer
		wantErr bool
	}{
		{"transport", log.LayerTransport, false},
		{"protocol", log.LayerProtocol, false},
		{"handler", log.LayerHandler, false},
		{"TRANSPORT", log.LayerTransport, false},
		{"wire", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseLayerFlag(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseLayerFlag(%q): expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseLayerFlag(%q): unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLayerFlag(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseCategoryFlag(t *testing.T) {
	tests := []struct {
		input   string
		want    log.Category
		wantErr bool
	}{
		{"message", log.CategoryMessage, false},
		{"attribute", log.CategoryAttribute, false},
		{"state", log.CategoryState, false},
		{"error", log.CategoryError, false},
		{"snapshot", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseCategoryFlag(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseCategoryFlag(%q): expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseCategoryFlag(%q): unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCategoryFlag(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
