package log

// MultiLogger fans one trace stream out to several loggers, typically
// a console SlogAdapter next to a FileLogger capture.
type MultiLogger struct {
	sinks []Logger
}

// NewMultiLogger creates a MultiLogger delivering to every given sink.
func NewMultiLogger(sinks ...Logger) *MultiLogger {
	return &MultiLogger{sinks: sinks}
}

// Log delivers the event to every sink in registration order.
func (m *MultiLogger) Log(event Event) {
	for _, sink := range m.sinks {
		sink.Log(event)
	}
}

var _ Logger = (*MultiLogger)(nil)
