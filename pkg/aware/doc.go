// Package aware implements the control plane for Aware (neighbor-awareness
// networking) discovery, messaging, pairing and data-path establishment.
//
// The heart of the package is StateManager: a single-goroutine state machine
// that owns every piece of mutable state (attached clients, discovery
// sessions, peer registries, pending requests, outbound message queues) and
// serializes all radio access so that at most one firmware command is
// outstanding at any time. External callers never touch that state directly;
// they post commands into the event loop and receive results through the
// callback interfaces they registered.
//
// Firmware responses are correlated by transaction ID and guarded by
// per-command timeouts; uncorrelated firmware notifications are dispatched
// immediately to the owning client, session and peer regardless of whether a
// command is in flight.
package aware
