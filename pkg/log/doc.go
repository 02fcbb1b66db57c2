// Package log provides structured capture of Aware control-plane events.
//
// The control plane emits an Event for every command dispatch, response,
// notification and timeout it processes. Applications plug in a Logger to
// observe the protocol: NoopLogger discards everything, MultiLogger fans
// out, and SlogAdapter forwards to a standard slog.Logger for development.
// Events marshal to compact CBOR with integer keys for offline capture.
package log
