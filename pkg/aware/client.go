package aware

import (
	"bytes"
	"net"

	"github.com/aware-protocol/aware-go/pkg/hal"
)

// client is one attached application. All fields are owned by the state
// machine goroutine.
type client struct {
	clientID       int
	uid            int
	pid            int
	callingPackage string
	featureID      string

	config               ConfigRequest
	notifyIdentityChange bool
	awareOffload         bool

	callback ClientCallback

	sessions map[int]*discoverySession

	// lastIdentityMAC / lastClusterID dedupe identity-change callbacks.
	lastIdentityMAC net.HardwareAddr
	lastClusterID   net.HardwareAddr
}

func newClient(clientID, uid, pid int, callingPackage, featureID string,
	config ConfigRequest, notifyIdentityChange, awareOffload bool, cb ClientCallback) *client {
	return &client{
		clientID:             clientID,
		uid:                  uid,
		pid:                  pid,
		callingPackage:       callingPackage,
		featureID:            featureID,
		config:               config,
		notifyIdentityChange: notifyIdentityChange,
		awareOffload:         awareOffload,
		callback:             cb,
		sessions:             make(map[int]*discoverySession),
	}
}

func (c *client) session(sessionID int) (*discoverySession, bool) {
	s, ok := c.sessions[sessionID]
	return s, ok
}

func (c *client) addSession(s *discoverySession) {
	c.sessions[s.sessionID] = s
}

func (c *client) removeSession(sessionID int) {
	delete(c.sessions, sessionID)
}

// sessionByPubSubID finds the session the firmware addressed.
func (c *client) sessionByPubSubID(pubSubID uint8) (*discoverySession, bool) {
	for _, s := range c.sessions {
		if s.pubSubID == pubSubID {
			return s, true
		}
	}
	return nil, false
}

// notifyIdentity delivers MAC and cluster updates, suppressing repeats.
func (c *client) notifyIdentity(mac net.HardwareAddr) {
	if !c.notifyIdentityChange {
		return
	}
	if bytes.Equal(c.lastIdentityMAC, mac) {
		return
	}
	c.lastIdentityMAC = append(net.HardwareAddr(nil), mac...)
	c.callback.OnIdentityChanged(c.lastIdentityMAC)
}

func (c *client) notifyCluster(eventType hal.ClusterEventType, clusterID net.HardwareAddr) {
	if !c.notifyIdentityChange {
		return
	}
	c.lastClusterID = append(net.HardwareAddr(nil), clusterID...)
	c.callback.OnClusterChange(eventType, c.lastClusterID)
}

// destroy terminates all sessions and reports the attach teardown when the
// radio went away underneath the client.
func (c *client) destroy(radioDown bool) {
	for id, s := range c.sessions {
		s.terminate(hal.StatusSuccess, false)
		delete(c.sessions, id)
	}
	if radioDown {
		c.callback.OnAttachTerminated()
	}
}
