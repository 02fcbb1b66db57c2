package hal

import "net"

// DiscoveryWindowUnset marks a per-band discovery-window interval that no
// participant has configured. DiscoveryWindowDisabled requests no wakeups on
// that band.
const (
	DiscoveryWindowUnset    = -1
	DiscoveryWindowDisabled = 0
)

// InstantMode selects the instant-communication mode for the radio.
type InstantMode uint8

const (
	InstantModeDisabled InstantMode = 0
	InstantMode24GHz    InstantMode = 1
	InstantMode5GHz     InstantMode = 3
)

// Config is the effective radio configuration sent to the firmware: the
// deterministic merge of all attached clients' configuration requests plus
// the aggregate feature flags derived from live discovery sessions.
type Config struct {
	Support5GHz bool
	Support6GHz bool

	// MasterPreference in [0, 255].
	MasterPreference int

	// ClusterLow/ClusterHigh bound the cluster ID range.
	ClusterLow  int
	ClusterHigh int

	// DiscoveryWindowInterval per band (index by Band), each
	// DiscoveryWindowUnset, DiscoveryWindowDisabled, or a concrete interval.
	DiscoveryWindowInterval [3]int

	// NotifyIdentityChange requests identity-change events.
	NotifyIdentityChange bool

	// RangingEnabled is set while any live session has ranging on.
	RangingEnabled bool

	// InstantMode aggregates the instant-communication request of all live
	// sessions.
	InstantMode InstantMode
}

// PublishType selects the publish flavor.
type PublishType uint8

const (
	PublishTypeUnsolicited PublishType = 0
	PublishTypeSolicited   PublishType = 1
	PublishTypeBoth        PublishType = 2
)

// SubscribeType selects the subscribe flavor.
type SubscribeType uint8

const (
	SubscribeTypePassive SubscribeType = 0
	SubscribeTypeActive  SubscribeType = 1
)

// PairingConfig carries per-session pairing settings.
type PairingConfig struct {
	PairingSetupEnabled        bool
	PairingCacheEnabled        bool
	PairingVerificationEnabled bool
	BootstrappingMethods       uint32
}

// PublishConfig is the session configuration for publish and update-publish.
type PublishConfig struct {
	ServiceName         string
	ServiceSpecificInfo []byte
	MatchFilter         []byte
	Type                PublishType
	TTLSec              int
	RangingEnabled      bool
	InstantMode         InstantMode
	Suspendable         bool
	Pairing             PairingConfig
}

// SubscribeConfig is the session configuration for subscribe and
// update-subscribe.
type SubscribeConfig struct {
	ServiceName         string
	ServiceSpecificInfo []byte
	MatchFilter         []byte
	Type                SubscribeType
	TTLSec              int
	MinDistanceMM       int
	MaxDistanceMM       int
	RangingRequired     bool
	InstantMode         InstantMode
	Suspendable         bool
	Pairing             PairingConfig
}

// PairingRequestType distinguishes initial setup from verification of a
// previously paired peer.
type PairingRequestType uint8

const (
	PairingRequestTypeSetup        PairingRequestType = 0
	PairingRequestTypeVerification PairingRequestType = 1
)

// BootstrappingResponseCode is the device decision on a bootstrapping
// request.
type BootstrappingResponseCode uint8

const (
	BootstrappingAccept   BootstrappingResponseCode = 0
	BootstrappingReject   BootstrappingResponseCode = 1
	BootstrappingComeback BootstrappingResponseCode = 2
)

// PairingSecurity carries the keying material for a pairing exchange.
type PairingSecurity struct {
	RequestType PairingRequestType
	Password    string
	// Nik is the local Nan Identity Key.
	Nik []byte
	// Pmk is the pairing master key for verification requests.
	Pmk []byte
}

// DataPathSecurity carries the keying material for a data-path exchange.
type DataPathSecurity struct {
	CipherSuite uint32
	Pmk         []byte
	Passphrase  string
}

// Api is the set of radio operations the control plane may request. Every
// method either rejects synchronously (returns a non-nil error, nothing else
// happens) or accepts and later completes through the registered
// EventHandler with the same transaction ID. At most one accepted command is
// outstanding at any time; callers enforce this.
type Api interface {
	// GetCapabilities queries firmware limits.
	GetCapabilities(transactionID uint16) error

	// EnableAndConfigure brings the radio up (or reconfigures it) with the
	// merged configuration. initialConfiguration is true for the first
	// enable after the radio was down.
	EnableAndConfigure(transactionID uint16, config Config, initialConfiguration bool) error

	// Disable brings the radio down.
	Disable(transactionID uint16) error

	// Publish starts a new publish session (pubSubID == 0) or updates an
	// existing one (pubSubID != 0).
	Publish(transactionID uint16, pubSubID uint8, config PublishConfig) error

	// Subscribe starts a new subscribe session (pubSubID == 0) or updates
	// an existing one (pubSubID != 0).
	Subscribe(transactionID uint16, pubSubID uint8, config SubscribeConfig) error

	// StopPublish / StopSubscribe cancel a live session. Callers treat
	// these as fire-and-forget; the response is not correlated.
	StopPublish(transactionID uint16, pubSubID uint8) error
	StopSubscribe(transactionID uint16, pubSubID uint8) error

	// SendMessage queues a follow-on message for over-the-air transmission
	// to the peer identified by (pubSubID, requesterInstanceID, dest).
	SendMessage(transactionID uint16, pubSubID uint8, requesterInstanceID uint32,
		dest net.HardwareAddr, message []byte, messageID int) error

	// CreateDataPathInterface / DeleteDataPathInterface manage NDI
	// interfaces by name.
	CreateDataPathInterface(transactionID uint16, ifaceName string) error
	DeleteDataPathInterface(transactionID uint16, ifaceName string) error

	// InitiateDataPath requests an NDP to the given peer.
	InitiateDataPath(transactionID uint16, peerInstanceID uint32, peer net.HardwareAddr,
		ifaceName string, security DataPathSecurity, appInfo []byte) error

	// RespondToDataPathRequest accepts or rejects a peer-initiated NDP.
	RespondToDataPathRequest(transactionID uint16, accept bool, ndpID uint32,
		ifaceName string, security DataPathSecurity, appInfo []byte) error

	// EndDataPath tears down an NDP.
	EndDataPath(transactionID uint16, ndpID uint32) error

	// InitiatePairing starts a pairing setup or verification with a peer.
	InitiatePairing(transactionID uint16, peerInstanceID uint32, peer net.HardwareAddr,
		security PairingSecurity, cipherSuites uint32) error

	// RespondToPairingRequest accepts or rejects a peer-initiated pairing.
	RespondToPairingRequest(transactionID uint16, pairingID uint32, accept bool,
		security PairingSecurity, cipherSuites uint32) error

	// EndPairing terminates a paired relationship with a peer.
	EndPairing(transactionID uint16, pairingID uint32) error

	// InitiateBootstrapping requests a bootstrapping method from a peer.
	InitiateBootstrapping(transactionID uint16, peerInstanceID uint32, peer net.HardwareAddr,
		method uint32, cookie []byte) error

	// RespondToBootstrapping answers a peer's bootstrapping request.
	RespondToBootstrapping(transactionID uint16, bootstrappingID uint32,
		code BootstrappingResponseCode, comebackDelaySec int) error

	// SuspendRequest suspends a discovery session by its hardware ID.
	SuspendRequest(transactionID uint16, pubSubID uint8) error

	// ResumeRequest resumes a suspended discovery session.
	ResumeRequest(transactionID uint16, pubSubID uint8) error
}
