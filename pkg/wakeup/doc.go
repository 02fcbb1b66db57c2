// Package wakeup provides cancelable scheduled wake-ups for the control
// plane's event loop.
//
// A Scheduler turns "wait with timeout" into a message: scheduling returns a
// Handle, and when the delay elapses the scheduler invokes the wake-up
// function (which typically posts a timeout message into an event queue).
// Canceling after the function has fired is a harmless no-op, which lets the
// event loop race completion against timeout without locks.
package wakeup
