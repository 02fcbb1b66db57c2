package hal

import "net"

// ClusterEventType classifies cluster membership notifications.
type ClusterEventType uint8

const (
	// ClusterEventDiscoveryMacChanged reports a new discovery-interface MAC.
	ClusterEventDiscoveryMacChanged ClusterEventType = 0
	// ClusterEventStartedCluster reports this device started a new cluster.
	ClusterEventStartedCluster ClusterEventType = 1
	// ClusterEventJoinedCluster reports this device joined an existing cluster.
	ClusterEventJoinedCluster ClusterEventType = 2
)

// MatchEvent reports a discovery match on a subscribe (or a solicited
// publish) session.
type MatchEvent struct {
	PubSubID            uint8
	RequesterInstanceID uint32
	PeerMac             net.HardwareAddr
	ServiceSpecificInfo []byte
	MatchFilter         []byte
	// DistanceMM is valid only when RangingIndication is non-zero.
	RangingIndication int
	DistanceMM        int
	PeerCipherSuite   uint32
	Scid              []byte
	// PairingInfo present when the peer advertises pairing support. Nira
	// carries the peer's identity-resolution attribute (nonce then tag)
	// when the peer supports pairing caching.
	PairingRequestType  PairingRequestType
	PairingCacheEnabled bool
	Nira                []byte
}

// ReceivedMessage reports an inbound follow-on message.
type ReceivedMessage struct {
	PubSubID            uint8
	RequesterInstanceID uint32
	PeerMac             net.HardwareAddr
	Message             []byte
}

// DataPathRequestEvent reports a peer-initiated NDP setup request.
type DataPathRequestEvent struct {
	PubSubID uint8
	PeerMac  net.HardwareAddr
	NdpID    uint32
	AppInfo  []byte
}

// DataPathChannelInfo describes one channel in use by a confirmed NDP.
type DataPathChannelInfo struct {
	ChannelFreqMHz    int
	Bandwidth         int
	NumSpatialStreams int
}

// DataPathConfirmEvent reports the completion (or failure) of an NDP setup.
type DataPathConfirmEvent struct {
	NdpID        uint32
	PeerNdiMac   net.HardwareAddr
	Accepted     bool
	Reason       Status
	AppInfo      []byte
	ChannelInfos []DataPathChannelInfo
}

// PairingRequestEvent reports a peer-initiated pairing setup or
// verification.
type PairingRequestEvent struct {
	PubSubID            uint8
	RequesterInstanceID uint32
	PeerMac             net.HardwareAddr
	PairingID           uint32
	RequestType         PairingRequestType
	CacheEnabled        bool
	Nira                []byte
}

// PairingConfirmEvent reports the completion (or failure) of a pairing
// exchange.
type PairingConfirmEvent struct {
	PairingID    uint32
	Accepted     bool
	Reason       Status
	RequestType  PairingRequestType
	CacheEnabled bool
	// Npk is the negotiated pairing key and PeerNik the peer's identity
	// key, both valid when Accepted.
	Npk     []byte
	PeerNik []byte
}

// BootstrappingRequestEvent reports a peer-initiated bootstrapping request.
type BootstrappingRequestEvent struct {
	PubSubID            uint8
	RequesterInstanceID uint32
	PeerMac             net.HardwareAddr
	BootstrappingID     uint32
	Method              uint32
}

// BootstrappingConfirmEvent reports the outcome of a bootstrapping request.
type BootstrappingConfirmEvent struct {
	BootstrappingID  uint32
	ResponseCode     BootstrappingResponseCode
	Reason           Status
	ComebackDelaySec int
	Cookie           []byte
}

// EventHandler receives all asynchronous completions and notifications from
// the firmware. The control plane registers exactly one handler before
// issuing any command; implementations must be safe to call from the
// binding's dispatch goroutine and must not block.
type EventHandler interface {
	// Command responses, correlated by transaction ID.

	OnCapabilitiesResponse(transactionID uint16, status Status, caps Capabilities)
	OnConfigResponse(transactionID uint16, status Status)
	OnDisableResponse(transactionID uint16, status Status)
	OnSessionConfigResponse(transactionID uint16, status Status, isPublish bool, pubSubID uint8)
	OnMessageSendQueuedResponse(transactionID uint16, status Status)
	OnDataPathInterfaceResponse(transactionID uint16, status Status)
	OnInitiateDataPathResponse(transactionID uint16, status Status, ndpID uint32)
	OnRespondToDataPathResponse(transactionID uint16, status Status)
	OnEndDataPathResponse(transactionID uint16, status Status)
	OnPairingResponse(transactionID uint16, status Status, pairingID uint32)
	OnEndPairingResponse(transactionID uint16, status Status)
	OnBootstrappingResponse(transactionID uint16, status Status, bootstrappingID uint32)
	OnSuspendResponse(transactionID uint16, status Status)
	OnResumeResponse(transactionID uint16, status Status)

	// Notifications, uncorrelated.

	OnClusterChange(eventType ClusterEventType, addr net.HardwareAddr)
	OnInterfaceAddressChange(addr net.HardwareAddr)
	OnMatch(event MatchEvent)
	OnMatchExpired(pubSubID uint8, requesterInstanceID uint32)
	OnSessionTerminated(pubSubID uint8, isPublish bool, reason Status)
	OnMessageReceived(msg ReceivedMessage)
	OnMessageSendSuccess(transactionID uint16)
	OnMessageSendFail(transactionID uint16, reason Status)
	OnDataPathRequest(event DataPathRequestEvent)
	OnDataPathConfirm(event DataPathConfirmEvent)
	OnDataPathEnd(ndpID uint32)
	OnPairingRequest(event PairingRequestEvent)
	OnPairingConfirm(event PairingConfirmEvent)
	OnBootstrappingRequest(event BootstrappingRequestEvent)
	OnBootstrappingConfirm(event BootstrappingConfirmEvent)
	OnSuspensionStatusChange(pubSubID uint8, suspended bool)
	OnAwareDown(reason Status)
}
