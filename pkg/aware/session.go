package aware

import (
	"bytes"
	"net"

	"github.com/aware-protocol/aware-go/pkg/hal"
)

// peerHandleSeed is the first value handed out by the peer handle counter.
const peerHandleSeed = 100

// peerInfo is one discovered peer within a session.
type peerInfo struct {
	peerID     int
	instanceID uint32
	mac        net.HardwareAddr
}

// discoverySession is one publish or subscribe session. All fields are owned
// by the state machine goroutine.
type discoverySession struct {
	clientID  int
	sessionID int
	pubSubID  uint8
	isPublish bool

	rangingEnabled bool
	instantMode    hal.InstantMode
	suspendable    bool
	suspended      bool
	pairingConfig  *hal.PairingConfig

	callback SessionCallback

	// peers maps peer handle to peer identity; nextPeerID is shared across
	// all sessions via the state machine so handles never collide.
	peers      map[int]*peerInfo
	nextPeerID *int

	terminated bool
}

func newDiscoverySession(clientID, sessionID int, pubSubID uint8, isPublish bool,
	cfg sessionConfig, cb SessionCallback, nextPeerID *int) *discoverySession {
	return &discoverySession{
		clientID:       clientID,
		sessionID:      sessionID,
		pubSubID:       pubSubID,
		isPublish:      isPublish,
		rangingEnabled: cfg.rangingEnabled,
		instantMode:    cfg.instantMode,
		suspendable:    cfg.suspendable,
		pairingConfig:  cfg.pairing,
		callback:       cb,
		peers:          make(map[int]*peerInfo),
		nextPeerID:     nextPeerID,
	}
}

// sessionConfig carries the per-session attributes the state machine tracks
// out of a publish or subscribe configuration.
type sessionConfig struct {
	rangingEnabled bool
	instantMode    hal.InstantMode
	suspendable    bool
	pairing        *hal.PairingConfig
}

func publishSessionConfig(cfg hal.PublishConfig) sessionConfig {
	p := cfg.Pairing
	return sessionConfig{
		rangingEnabled: cfg.RangingEnabled,
		instantMode:    cfg.InstantMode,
		suspendable:    cfg.Suspendable,
		pairing:        &p,
	}
}

func subscribeSessionConfig(cfg hal.SubscribeConfig) sessionConfig {
	p := cfg.Pairing
	return sessionConfig{
		rangingEnabled: cfg.RangingRequired,
		instantMode:    cfg.InstantMode,
		suspendable:    cfg.Suspendable,
		pairing:        &p,
	}
}

func (s *discoverySession) applyUpdate(cfg sessionConfig) {
	s.rangingEnabled = cfg.rangingEnabled
	s.instantMode = cfg.instantMode
	s.suspendable = cfg.suspendable
	s.pairingConfig = cfg.pairing
}

// peerIDFor returns the stable handle for (instanceID, mac), allocating a
// fresh one on first sight. Handles are never reused within the registry's
// lifetime.
func (s *discoverySession) peerIDFor(instanceID uint32, mac net.HardwareAddr) int {
	for _, p := range s.peers {
		if p.instanceID == instanceID && bytes.Equal(p.mac, mac) {
			return p.peerID
		}
	}
	id := *s.nextPeerID
	*s.nextPeerID++
	s.peers[id] = &peerInfo{
		peerID:     id,
		instanceID: instanceID,
		mac:        append(net.HardwareAddr(nil), mac...),
	}
	return id
}

// peer returns the registered peer for a handle.
func (s *discoverySession) peer(peerID int) (*peerInfo, bool) {
	p, ok := s.peers[peerID]
	return p, ok
}

// peerByInstanceID looks up an already-registered peer by firmware instance
// ID without allocating.
func (s *discoverySession) peerByInstanceID(instanceID uint32) (*peerInfo, bool) {
	for _, p := range s.peers {
		if p.instanceID == instanceID {
			return p, true
		}
	}
	return nil, false
}

// peerByMac looks up an already-registered peer by MAC without allocating.
func (s *discoverySession) peerByMac(mac net.HardwareAddr) (*peerInfo, bool) {
	for _, p := range s.peers {
		if bytes.Equal(p.mac, mac) {
			return p, true
		}
	}
	return nil, false
}

// removePeerByInstanceID drops a peer on match-expired and returns its
// handle.
func (s *discoverySession) removePeerByInstanceID(instanceID uint32) (int, bool) {
	for id, p := range s.peers {
		if p.instanceID == instanceID {
			delete(s.peers, id)
			return id, true
		}
	}
	return 0, false
}

// terminate fires the terminated callback exactly once.
func (s *discoverySession) terminate(reason hal.Status, _ bool) {
	if s.terminated {
		return
	}
	s.terminated = true
	s.callback.OnSessionTerminated(reason)
}
