package hal

// Status is the reason code reported by the firmware for command responses
// and protocol events. StatusSuccess is the only success value; everything
// else is a failure reason surfaced to the application callback.
type Status uint8

const (
	StatusSuccess Status = iota
	StatusInternalFailure
	StatusProtocolFailure
	StatusInvalidSessionID
	StatusNoResourcesAvailable
	StatusInvalidArgs
	StatusInvalidPeerID
	StatusInvalidNdpID
	StatusNotAllowed
	StatusNoOtaAck
	StatusAlreadyEnabled
	StatusFollowupTxQueueFull
	StatusUnsupportedConcurrency
	StatusInvalidPairingID
	StatusInvalidBootstrappingID
	StatusRedundantRequest
	StatusNotSupported
	StatusNoConnection
)

// IsSuccess returns true if the status indicates success.
func (s Status) IsSuccess() bool {
	return s == StatusSuccess
}

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusInternalFailure:
		return "INTERNAL_FAILURE"
	case StatusProtocolFailure:
		return "PROTOCOL_FAILURE"
	case StatusInvalidSessionID:
		return "INVALID_SESSION_ID"
	case StatusNoResourcesAvailable:
		return "NO_RESOURCES_AVAILABLE"
	case StatusInvalidArgs:
		return "INVALID_ARGS"
	case StatusInvalidPeerID:
		return "INVALID_PEER_ID"
	case StatusInvalidNdpID:
		return "INVALID_NDP_ID"
	case StatusNotAllowed:
		return "NOT_ALLOWED"
	case StatusNoOtaAck:
		return "NO_OTA_ACK"
	case StatusAlreadyEnabled:
		return "ALREADY_ENABLED"
	case StatusFollowupTxQueueFull:
		return "FOLLOWUP_TX_QUEUE_FULL"
	case StatusUnsupportedConcurrency:
		return "UNSUPPORTED_CONCURRENCY"
	case StatusInvalidPairingID:
		return "INVALID_PAIRING_ID"
	case StatusInvalidBootstrappingID:
		return "INVALID_BOOTSTRAPPING_ID"
	case StatusRedundantRequest:
		return "REDUNDANT_REQUEST"
	case StatusNotSupported:
		return "NOT_SUPPORTED"
	case StatusNoConnection:
		return "NO_CONNECTION"
	default:
		return "UNKNOWN"
	}
}
