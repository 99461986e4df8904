package commands

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/rdpipe-protocol/rdpipe-go/pkg/log"
)

func readAllEvents(t *testing.T, path string) []log.Event {
	t.Helper()
	reader, err := log.NewReader(path)
	if err != nil {
		t.Fatalf("failed to open filtered file: %v", err)
	}
	defer reader.Close()

	var events []log.Event
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("failed to read event: %v", err)
		}
		events = append(events, event)
	}
	return events
}

func TestFilterByConnectionID(t *testing.T) {
	ts := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, ConnectionID: "conn-a", Category: log.CategoryMessage},
		{Timestamp: ts, ConnectionID: "conn-b", Category: log.CategoryMessage},
		{Timestamp: ts, ConnectionID: "conn-a", Category: log.CategoryMessage},
	}

	path := createTestLogFile(t, events)
	out := filepath.Join(t.TempDir(), "filtered.rlog")

	opts := FilterOptions{Output: out, ConnID: "conn-a"}
	if err := RunFilter(path, opts); err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}

	filtered := readAllEvents(t, out)
	if len(filtered) != 2 {
		t.Fatalf("expected 2 filtered events, got %d", len(filtered))
	}
	for _, e := range filtered {
		if e.ConnectionID != "conn-a" {
			t.Errorf("unexpected connection ID %q in filtered output", e.ConnectionID)
		}
	}
}

func TestFilterByAttribute(t *testing.T) {
	ts := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, Category: log.CategoryAttribute, Attribute: &log.AttributeEvent{Name: "numCells"}},
		{Timestamp: ts, Category: log.CategoryAttribute, Attribute: &log.AttributeEvent{Name: "hasFocus"}},
		{Timestamp: ts, Category: log.CategoryMessage},
	}

	path := createTestLogFile(t, events)
	out := filepath.Join(t.TempDir(), "filtered.rlog")

	opts := FilterOptions{Output: out, Attribute: "hasFocus"}
	if err := RunFilter(path, opts); err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}

	filtered := readAllEvents(t, out)
	if len(filtered) != 1 {
		t.Fatalf("expected 1 filtered event, got %d", len(filtered))
	}
	if filtered[0].Attribute.Name != "hasFocus" {
		t.Errorf("unexpected attribute %q", filtered[0].Attribute.Name)
	}
}

func TestFilterByTimeRange(t *testing.T) {
	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: base, Category: log.CategoryMessage},
		{Timestamp: base.Add(time.Hour), Category: log.CategoryMessage},
		{Timestamp: base.Add(2 * time.Hour), Category: log.CategoryMessage},
	}

	path := createTestLogFile(t, events)
	out := filepath.Join(t.TempDir(), "filtered.rlog")

	opts := FilterOptions{
		Output:    out,
		TimeStart: base.Add(30 * time.Minute).Format(time.RFC3339),
		TimeEnd:   base.Add(90 * time.Minute).Format(time.RFC3339),
	}
	if err := RunFilter(path, opts); err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}

	filtered := readAllEvents(t, out)
	if len(filtered) != 1 {
		t.Fatalf("expected 1 filtered event, got %d", len(filtered))
	}
	if !filtered[0].Timestamp.Equal(base.Add(time.Hour)) {
		t.Errorf("unexpected timestamp %v", filtered[0].Timestamp)
	}
}

func TestFilterInvalidTime(t *testing.T) {
	path := createTestLogFile(t, []log.Event{
		{Timestamp: time.Now(), Category: log.CategoryMessage},
	})
	out := filepath.Join(t.TempDir(), "filtered.rlog")

	opts := FilterOptions{Output: out, TimeStart: "not-a-time"}
	if err := RunFilter(path, opts); err == nil {
		t.Error("expected error for invalid time format")
	}
}

func TestFilterByDirection(t *testing.T) {
	ts := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, Direction: log.DirectionIn, Category: log.CategoryMessage},
		{Timestamp: ts, Direction: log.DirectionOut, Category: log.CategoryMessage},
	}

	path := createTestLogFile(t, events)
	out := filepath.Join(t.TempDir(), "filtered.rlog")

	opts := FilterOptions{Output: out, Direction: "out"}
	if err := RunFilter(path, opts); err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}

	filtered := readAllEvents(t, out)
	if len(filtered) != 1 {
		t.Fatalf("expected 1 filtered event, got %d", len(filtered))
	}
	if filtered[0].Direction != log.DirectionOut {
		t.Errorf("unexpected direction %v", filtered[0].Direction)
	}
}
