// Package log provides structured protocol logging for rdpipe.
//
// This package defines the Logger interface and Event types for
// capturing protocol-level events at multiple layers (transport,
// protocol, handler). It is separate from operational logging (slog) -
// protocol capture provides a complete machine-readable event trace
// for debugging attribute traffic and framing problems.
//
// # Basic Usage
//
// Applications configure logging by providing a Logger implementation:
//
//	// For development: log to console via slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.ProtocolLogger, _ = log.NewFileLogger("/var/log/rdpipe/speech.rlog")
//
//	// Both: use MultiLogger
//	cfg.ProtocolLogger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    log.NewFileLogger("/var/log/rdpipe/speech.rlog"),
//	)
//
// # Event Types
//
// Events are captured at multiple layers:
//   - Transport: raw stream chunks (FrameEvent)
//   - Protocol: decoded commands and attribute traffic (CommandEvent,
//     AttributeEvent)
//   - Handler: state changes such as the remote focus decision
//     (StateChangeEvent)
//
// Errors at any layer use a dedicated event type.
//
// # File Format
//
// Log files use CBOR encoding with the .rlog extension.
package log
