package aware

import (
	"fmt"

	"github.com/aware-protocol/aware-go/pkg/hal"
	"github.com/aware-protocol/aware-go/pkg/pairing"
)

// niraNonceSize is the nonce length inside a NIRA attribute; the resolution
// tag follows it.
const niraNonceSize = 8

// handleNotification processes an uncorrelated event immediately, even while
// a transaction is outstanding.
func (m *StateManager) handleNotification(n notification) {
	m.logNotification(n.notificationKind())

	switch ev := n.(type) {
	case clusterChangeNotif:
		for _, cl := range m.clients {
			cl.notifyCluster(ev.eventType, ev.addr)
		}

	case interfaceAddressChangeNotif:
		for _, cl := range m.clients {
			cl.notifyIdentity(ev.addr)
		}

	case matchNotif:
		m.matchLocal(ev.event)

	case matchExpiredNotif:
		_, s, ok := m.sessionByPubSub(ev.pubSubID)
		if !ok {
			m.debugf("match expired for unknown session", "pubSubID", ev.pubSubID)
			return
		}
		if peerID, found := s.removePeerByInstanceID(ev.requesterInstanceID); found {
			s.callback.OnMatchExpired(peerID)
			m.updateSnapshot()
		}

	case sessionTerminatedNotif:
		cl, s, ok := m.sessionByPubSub(ev.pubSubID)
		if !ok || s.isPublish != ev.isPublish {
			m.debugf("terminate for unknown session", "pubSubID", ev.pubSubID)
			return
		}
		m.dropSessionMessages(s)
		s.terminate(ev.reason, false)
		cl.removeSession(s.sessionID)
		m.updateSnapshot()
		m.handleCommand(reconfigureCmd{})

	case messageReceivedNotif:
		_, s, ok := m.sessionByPubSub(ev.msg.PubSubID)
		if !ok {
			m.debugf("message for unknown session", "pubSubID", ev.msg.PubSubID)
			return
		}
		peerID := s.peerIDFor(ev.msg.RequesterInstanceID, ev.msg.PeerMac)
		m.updateSnapshot()
		s.callback.OnMessageReceived(peerID, ev.msg.Message)

	case messageSendSuccessNotif:
		m.sendQ.blocked = false
		if msg, ok := m.sendQ.takeFw(ev.txn); ok {
			if _, s, found := m.resolveSession(msg.clientID, msg.sessionID); found {
				s.callback.OnMessageSendSuccess(msg.messageID)
			}
			m.rescheduleSendTimeout()
		}
		m.handleCommand(transmitNextMessageCmd{})

	case messageSendFailNotif:
		m.sendQ.blocked = false
		if msg, ok := m.sendQ.takeFw(ev.txn); ok {
			if shouldRetrySend(msg, ev.reason) {
				msg.retriesLeft--
				m.sendQ.requeueHost(msg)
			} else if _, s, found := m.resolveSession(msg.clientID, msg.sessionID); found {
				s.callback.OnMessageSendFail(msg.messageID, ev.reason)
			}
			m.rescheduleSendTimeout()
		}
		m.handleCommand(transmitNextMessageCmd{})

	case sendMessageTimeoutNotif:
		if ev.gen != m.sendTimeoutGen {
			// A completion already re-armed the timer. This firing is stale.
			return
		}
		m.sendQ.blocked = false
		cutoff := m.now().Add(-m.sendTimeoutDur)
		for _, msg := range m.sendQ.expireFw(cutoff) {
			m.logTimeout("sendMessage", 0)
			if _, s, found := m.resolveSession(msg.clientID, msg.sessionID); found {
				s.callback.OnMessageSendFail(msg.messageID, hal.StatusInternalFailure)
			}
		}
		m.rescheduleSendTimeout()
		m.handleCommand(transmitNextMessageCmd{})

	case dataPathRequestNotif:
		cl, s, ok := m.sessionByPubSub(ev.event.PubSubID)
		if !ok {
			m.debugf("data path request for unknown session", "pubSubID", ev.event.PubSubID)
			return
		}
		p, found := s.peerByMac(ev.event.PeerMac)
		var peerID int
		if found {
			peerID = p.peerID
		} else {
			peerID = s.peerIDFor(0, ev.event.PeerMac)
			m.updateSnapshot()
		}
		m.dataPath.OnDataPathRequest(cl.clientID, s.sessionID, peerID, ev.event.NdpID, ev.event.AppInfo)

	case dataPathConfirmNotif:
		m.takeConfirm(m.pendingDataPaths, ev.event.NdpID)
		if ev.event.Accepted && ev.event.Reason.IsSuccess() {
			m.establishedNdps[ev.event.NdpID] = true
		}
		m.updateSnapshot()
		m.dataPath.OnDataPathConfirm(ev.event.NdpID, ev.event.Accepted, ev.event.Reason, ev.event.ChannelInfos)

	case dataPathEndNotif:
		delete(m.establishedNdps, ev.ndpID)
		m.takeConfirm(m.pendingDataPaths, ev.ndpID)
		m.updateSnapshot()
		m.dataPath.OnDataPathEnd(ev.ndpID)

	case dataPathConfirmTimeoutNotif:
		if _, ok := m.pendingDataPaths[ev.ndpID]; !ok {
			return
		}
		delete(m.pendingDataPaths, ev.ndpID)
		m.logTimeout("dataPathConfirm", 0)
		m.dataPath.OnDataPathConfirm(ev.ndpID, false, hal.StatusInternalFailure, nil)

	case pairingRequestNotif:
		m.pairingRequestLocal(ev.event)

	case pairingConfirmNotif:
		m.pairingConfirmLocal(ev.event)

	case pairingConfirmTimeoutNotif:
		pc, ok := m.pendingPairings[ev.pairingID]
		if !ok {
			return
		}
		delete(m.pendingPairings, ev.pairingID)
		m.logTimeout("pairingConfirm", 0)
		if _, s, found := m.resolveSession(pc.clientID, pc.sessionID); found {
			m.pairingConfirmFailed(s, pc.peerID, pc.requestType, pc.alias)
		}

	case bootstrappingRequestNotif:
		m.bootstrappingRequestLocal(ev.event)

	case bootstrappingConfirmNotif:
		pc, ok := m.takeConfirm(m.pendingBootstraps, ev.event.BootstrappingID)
		if !ok {
			m.defect(fmt.Sprintf("unsolicited bootstrapping confirm %d", ev.event.BootstrappingID))
			return
		}
		if _, s, found := m.resolveSession(pc.clientID, pc.sessionID); found {
			accepted := ev.event.ResponseCode == hal.BootstrappingAccept && ev.event.Reason.IsSuccess()
			s.callback.OnBootstrappingVerificationConfirmed(pc.peerID, accepted, pc.method)
		}

	case bootstrappingConfirmTimeoutNotif:
		pc, ok := m.pendingBootstraps[ev.bootstrappingID]
		if !ok {
			return
		}
		delete(m.pendingBootstraps, ev.bootstrappingID)
		m.logTimeout("bootstrappingConfirm", 0)
		if _, s, found := m.resolveSession(pc.clientID, pc.sessionID); found {
			s.callback.OnBootstrappingVerificationConfirmed(pc.peerID, false, pc.method)
		}

	case suspensionStatusNotif:
		_, s, ok := m.sessionByPubSub(ev.pubSubID)
		if !ok {
			m.debugf("suspension change for unknown session", "pubSubID", ev.pubSubID)
			return
		}
		s.suspended = ev.suspended
		s.callback.OnSessionSuspensionStatusChanged(ev.suspended)

	case awareDownNotif:
		m.radioDownLocal(ev.reason)

	default:
		m.defect(fmt.Sprintf("unknown notification %q", n.notificationKind()))
	}
}

func (m *StateManager) matchLocal(event hal.MatchEvent) {
	cl, s, ok := m.sessionByPubSub(event.PubSubID)
	if !ok {
		m.debugf("match for unknown session", "pubSubID", event.PubSubID)
		return
	}
	peerID := s.peerIDFor(event.RequesterInstanceID, event.PeerMac)
	m.updateSnapshot()

	distanceMM := -1
	if event.RangingIndication != 0 {
		distanceMM = event.DistanceMM
	}
	alias := ""
	if m.pairing != nil && len(event.Nira) >= niraNonceSize+pairing.TagSize {
		nonce := event.Nira[:niraNonceSize]
		tag := event.Nira[niraNonceSize : niraNonceSize+pairing.TagSize]
		alias = m.pairing.PairedDeviceAlias(cl.callingPackage, nonce, tag, event.PeerMac)
	}
	s.callback.OnMatch(peerID, event.ServiceSpecificInfo, event.MatchFilter, distanceMM, alias)
}

// pairingRequestLocal surfaces setup requests to the session owner and
// answers verification requests from the pairing cache.
func (m *StateManager) pairingRequestLocal(event hal.PairingRequestEvent) {
	cl, s, ok := m.sessionByPubSub(event.PubSubID)
	if !ok {
		m.debugf("pairing request for unknown session", "pubSubID", event.PubSubID)
		return
	}
	peerID := s.peerIDFor(event.RequesterInstanceID, event.PeerMac)
	m.updateSnapshot()

	if event.RequestType == hal.PairingRequestTypeSetup {
		s.callback.OnPairingSetupRequestReceived(peerID, event.PairingID)
		return
	}

	alias := ""
	if m.pairing != nil && len(event.Nira) >= niraNonceSize+pairing.TagSize {
		nonce := event.Nira[:niraNonceSize]
		tag := event.Nira[niraNonceSize : niraNonceSize+pairing.TagSize]
		alias = m.pairing.PairedDeviceAlias(cl.callingPackage, nonce, tag, event.PeerMac)
	}
	m.handleCommand(respondToPairingCmd{
		clientID:    cl.clientID,
		sessionID:   s.sessionID,
		peerID:      peerID,
		pairingID:   event.PairingID,
		accept:      alias != "",
		alias:       alias,
		requestType: hal.PairingRequestTypeVerification,
	})
}

// pairingConfirmLocal completes a pending pairing exchange, caching the
// security association on success.
func (m *StateManager) pairingConfirmLocal(event hal.PairingConfirmEvent) {
	pc, ok := m.takeConfirm(m.pendingPairings, event.PairingID)
	if !ok {
		m.defect(fmt.Sprintf("unsolicited pairing confirm %d", event.PairingID))
		return
	}
	cl, s, found := m.resolveSession(pc.clientID, pc.sessionID)
	if !found {
		return
	}
	accepted := event.Accepted && event.Reason.IsSuccess()
	if accepted && event.CacheEnabled && m.pairing != nil && len(event.Npk) > 0 && pc.alias != "" {
		m.pairing.AddPairedDevice(cl.callingPackage, pc.alias, &pairing.SecurityAssociation{
			PeerNik:     event.PeerNik,
			LocalNik:    m.pairing.NikForCallingPackage(cl.callingPackage),
			Npk:         event.Npk,
			CipherSuite: 0,
		})
	}
	if pc.requestType == hal.PairingRequestTypeVerification {
		s.callback.OnPairingVerificationConfirmed(pc.peerID, accepted, pc.alias)
	} else {
		s.callback.OnPairingSetupConfirmed(pc.peerID, accepted, pc.alias)
	}
}

// bootstrappingRequestLocal answers a peer's bootstrapping request from the
// session's advertised method set.
func (m *StateManager) bootstrappingRequestLocal(event hal.BootstrappingRequestEvent) {
	cl, s, ok := m.sessionByPubSub(event.PubSubID)
	if !ok {
		m.debugf("bootstrapping request for unknown session", "pubSubID", event.PubSubID)
		return
	}
	peerID := s.peerIDFor(event.RequesterInstanceID, event.PeerMac)
	m.updateSnapshot()

	accept := s.pairingConfig != nil && s.pairingConfig.BootstrappingMethods&event.Method != 0
	m.handleCommand(respondToBootstrappingCmd{
		clientID:        cl.clientID,
		sessionID:       s.sessionID,
		peerID:          peerID,
		bootstrappingID: event.BootstrappingID,
		accept:          accept,
		method:          event.Method,
	})
}

// radioDownLocal resets all firmware-derived state. A down with a success
// reason is the expected end of a disable; anything else tears the clients
// down with a terminated callback.
func (m *StateManager) radioDownLocal(reason hal.Status) {
	unexpected := !reason.IsSuccess()
	m.awareUp = false
	m.disablePending = false
	m.activeMerged = mergedConfig{}
	m.activeNotify = false
	m.activeRang = false
	m.activeInst = hal.InstantModeDisabled

	for id, cl := range m.clients {
		cl.destroy(unexpected)
		delete(m.clients, id)
	}
	m.sendQ.dropAll()
	if m.sendTimeout != nil {
		m.sendTimeout.Cancel()
		m.sendTimeout = nil
	}
	m.sendTimeoutGen++
	for id, pc := range m.pendingPairings {
		if pc.timeout != nil {
			pc.timeout.Cancel()
		}
		delete(m.pendingPairings, id)
	}
	for id, pc := range m.pendingBootstraps {
		if pc.timeout != nil {
			pc.timeout.Cancel()
		}
		delete(m.pendingBootstraps, id)
	}
	for id, pc := range m.pendingDataPaths {
		if pc.timeout != nil {
			pc.timeout.Cancel()
		}
		delete(m.pendingDataPaths, id)
	}
	m.establishedNdps = make(map[uint32]bool)
	m.ndiNames = make(map[string]bool)

	if m.ifaceHeld {
		m.ifOwner.Release()
		m.ifaceHeld = false
	}
	m.updateSnapshot()

	held := m.heldForDisable
	m.heldForDisable = nil
	for _, c := range held {
		m.handleCommand(c)
	}
}
