package log

// Logger receives protocol trace events from the transport, protocol
// and handler layers of a driver mirror session.
type Logger interface {
	// Log records one trace event. Implementations must be safe for
	// concurrent use; they run on the connection's read goroutine and
	// should not block.
	Log(event Event)
}

// NoopLogger discards every event. It is the logger used when tracing
// is disabled and is usable as a zero value.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

var _ Logger = NoopLogger{}
