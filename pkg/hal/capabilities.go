package hal

import "fmt"

// Band identifies a radio band for discovery-window and instant-mode
// configuration.
type Band uint8

const (
	// Band24GHz is the 2.4 GHz band.
	Band24GHz Band = 0
	// Band5GHz is the 5 GHz band.
	Band5GHz Band = 1
	// Band6GHz is the 6 GHz band.
	Band6GHz Band = 2
)

// String returns the band name.
func (b Band) String() string {
	switch b {
	case Band24GHz:
		return "2.4GHz"
	case Band5GHz:
		return "5GHz"
	case Band6GHz:
		return "6GHz"
	default:
		return "UNKNOWN"
	}
}

// CipherSuite bit flags for data-path and pairing security.
const (
	CipherSuiteNone         uint32 = 0
	CipherSuiteShared128    uint32 = 1 << 0
	CipherSuiteShared256    uint32 = 1 << 1
	CipherSuitePublicKey128 uint32 = 1 << 2
	CipherSuitePublicKey256 uint32 = 1 << 3
)

// Capabilities is the immutable snapshot of firmware limits and supported
// features. It is produced once by the capabilities-query response and read
// only thereafter; a refresh replaces the whole record.
type Capabilities struct {
	MaxClusters                       int
	MaxPublishes                      int
	MaxSubscribes                     int
	MaxServiceNameLen                 int
	MaxMatchFilterLen                 int
	MaxTotalMatchFilterLen            int
	MaxServiceSpecificInfoLen         int
	MaxExtendedServiceSpecificInfoLen int
	MaxNdiInterfaces                  int
	MaxNdpSessions                    int
	MaxAppInfoLen                     int
	MaxQueuedTransmitMessages         int
	MaxSubscribeInterfaceAddresses    int
	SupportedDataPathCipherSuites     uint32
	SupportedPairingCipherSuites      uint32

	InstantCommunicationSupported bool
	PairingSupported              bool
	SetClusterIDSupported         bool
	SuspensionSupported           bool
	Band6Supported                bool
}

// String returns a compact summary, useful in debug logs.
func (c Capabilities) String() string {
	return fmt.Sprintf(
		"Capabilities{clusters=%d pub=%d sub=%d ndi=%d ndp=%d txQueue=%d pairing=%t suspension=%t 6ghz=%t}",
		c.MaxClusters, c.MaxPublishes, c.MaxSubscribes, c.MaxNdiInterfaces,
		c.MaxNdpSessions, c.MaxQueuedTransmitMessages, c.PairingSupported,
		c.SuspensionSupported, c.Band6Supported)
}

// Characteristics is the public projection of Capabilities exposed to
// applications. It hides firmware-internal limits and reports only what an
// application needs to size its requests.
type Characteristics struct {
	MaxServiceNameLen             int
	MaxServiceSpecificInfoLen     int
	MaxMatchFilterLen             int
	SupportedDataPathCipherSuites uint32
	SupportedPairingCipherSuites  uint32
	InstantCommunicationSupported bool
	PairingSupported              bool
	SuspensionSupported           bool
}

// ToCharacteristics derives the public projection.
func (c Capabilities) ToCharacteristics() Characteristics {
	return Characteristics{
		MaxServiceNameLen:             c.MaxServiceNameLen,
		MaxServiceSpecificInfoLen:     c.MaxServiceSpecificInfoLen,
		MaxMatchFilterLen:             c.MaxMatchFilterLen,
		SupportedDataPathCipherSuites: c.SupportedDataPathCipherSuites,
		SupportedPairingCipherSuites:  c.SupportedPairingCipherSuites,
		InstantCommunicationSupported: c.InstantCommunicationSupported,
		PairingSupported:              c.PairingSupported,
		SuspensionSupported:           c.SuspensionSupported,
	}
}
