// Package hal defines the contract between the Aware control plane and the
// firmware/hardware abstraction layer that performs the actual radio
// operations.
//
// The contract is asymmetric and fully asynchronous: every radio operation
// on Api is accepted or rejected synchronously, and its outcome is delivered
// later through the EventHandler the control plane registers once at
// startup. Responses carry the transaction ID of the command they complete;
// notifications are uncorrelated events originating in the firmware.
//
// Implementations of Api must not call back into EventHandler from within an
// Api method; callbacks are delivered from the binding's own dispatch
// context.
package hal
