package aware

import (
	"net"

	"github.com/aware-protocol/aware-go/pkg/hal"
)

// AvailableResources reports the remaining firmware capacity, derived from
// the cached capabilities minus the sessions and data paths in use.
type AvailableResources struct {
	PublishSessions   int
	SubscribeSessions int
	DataPathSessions  int
}

// Capabilities returns the cached firmware limits. The second return is
// false until the first capabilities query completed.
func (m *StateManager) Capabilities() (hal.Capabilities, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snapCaps == nil {
		return hal.Capabilities{}, false
	}
	return *m.snapCaps, true
}

// Characteristics returns the public projection of the capabilities,
// computed lazily and cached until the capabilities refresh.
func (m *StateManager) Characteristics() (hal.Characteristics, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snapCaps == nil {
		return hal.Characteristics{}, false
	}
	if m.snapChars == nil {
		chars := m.snapCaps.ToCharacteristics()
		m.snapChars = &chars
	}
	return *m.snapChars, true
}

// UsageEnabled reports whether attaches are currently allowed.
func (m *StateManager) UsageEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapUsage
}

// AvailableAwareResources returns the remaining session and data-path
// capacity. The second return is false until capabilities are known.
func (m *StateManager) AvailableAwareResources() (AvailableResources, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snapCaps == nil {
		return AvailableResources{}, false
	}
	res := AvailableResources{
		PublishSessions:   m.snapCaps.MaxPublishes - m.snapPublishes,
		SubscribeSessions: m.snapCaps.MaxSubscribes - m.snapSubscribes,
		DataPathSessions:  m.snapCaps.MaxNdpSessions - m.snapNdps,
	}
	if res.PublishSessions < 0 {
		res.PublishSessions = 0
	}
	if res.SubscribeSessions < 0 {
		res.SubscribeSessions = 0
	}
	if res.DataPathSessions < 0 {
		res.DataPathSessions = 0
	}
	return res, true
}

// RequestMacAddresses resolves peer handles owned by the client to their
// discovery MAC addresses. Handles owned by other clients are omitted.
func (m *StateManager) RequestMacAddresses(clientID int, peerIDs []int) map[int]net.HardwareAddr {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int]net.HardwareAddr, len(peerIDs))
	perClient, ok := m.snapPeerMACs[clientID]
	if !ok {
		return out
	}
	for _, id := range peerIDs {
		if mac, found := perClient[id]; found {
			out[id] = mac
		}
	}
	return out
}
