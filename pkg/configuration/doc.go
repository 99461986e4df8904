// Package configuration provides YAML-backed runtime configuration
// for protocol handlers: the driver settings management toggle, the
// remote attribute fetch timeout and the trace log location.
//
// A Store is safe for concurrent readers; handlers read the current
// snapshot on every decision instead of caching it, so edits take
// effect without a reconnect.
package configuration
