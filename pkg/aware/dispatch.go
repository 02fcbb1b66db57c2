package aware

import (
	"fmt"
	"net"

	"github.com/aware-protocol/aware-go/pkg/hal"
)

// dispatchCommand processes one command in the Wait state. Handlers either
// complete locally or issue exactly one transaction via beginTransaction.
func (m *StateManager) dispatchCommand(c command) {
	m.logCommand(c.commandKind(), 0)

	switch cmd := c.(type) {
	case connectCmd:
		m.connectLocal(cmd)
	case arbitrationResultCmd:
		m.arbitrationResultLocal(cmd)
	case disconnectCmd:
		m.disconnectLocal(cmd)
	case reconfigureCmd:
		m.reconfigureLocal()
	case terminateSessionCmd:
		m.terminateSessionLocal(cmd)
	case publishCmd:
		m.publishLocal(cmd)
	case updatePublishCmd:
		m.updatePublishLocal(cmd)
	case subscribeCmd:
		m.subscribeLocal(cmd)
	case updateSubscribeCmd:
		m.updateSubscribeLocal(cmd)
	case enqueueSendMessageCmd:
		m.enqueueSendMessageLocal(cmd)
	case transmitNextMessageCmd:
		m.transmitNextLocal()
	case enableUsageCmd:
		m.enableUsageLocal()
	case disableUsageCmd:
		m.disableUsageLocal()
	case getCapabilitiesCmd:
		m.getCapabilitiesLocal()
	case createDataPathInterfaceCmd:
		m.createDataPathInterfaceLocal(cmd)
	case deleteDataPathInterfaceCmd:
		m.deleteDataPathInterfaceLocal(cmd)
	case deleteAllDataPathInterfacesCmd:
		m.deleteAllDataPathInterfacesLocal()
	case initiateDataPathCmd:
		m.initiateDataPathLocal(cmd)
	case respondToDataPathRequestCmd:
		m.respondToDataPathRequestLocal(cmd)
	case endDataPathCmd:
		m.endDataPathLocal(cmd)
	case initiatePairingCmd:
		m.initiatePairingLocal(cmd)
	case respondToPairingCmd:
		m.respondToPairingLocal(cmd)
	case endPairingCmd:
		m.endPairingLocal(cmd)
	case initiateBootstrappingCmd:
		m.initiateBootstrappingLocal(cmd)
	case respondToBootstrappingCmd:
		m.respondToBootstrappingLocal(cmd)
	case suspendSessionCmd:
		m.suspendLocal(cmd)
	case resumeSessionCmd:
		m.resumeLocal(cmd)
	case delayedInitializationCmd:
		m.enqueueInternal(getCapabilitiesCmd{})
	case getAwareInterfaceCmd:
		if !m.ifaceHeld {
			m.ifOwner.Acquire()
			m.ifaceHeld = true
		}
	case releaseAwareInterfaceCmd:
		if m.ifaceHeld && len(m.clients) == 0 {
			m.ifOwner.Release()
			m.ifaceHeld = false
		}
	case disableCmd:
		m.disableRadio()
	default:
		m.defect(fmt.Sprintf("unknown command %q", c.commandKind()))
	}
}

func (m *StateManager) connectLocal(cmd connectCmd) {
	if !m.usageEnabled {
		cmd.callback.OnConnectFail(hal.StatusInternalFailure)
		return
	}
	if m.disablePending {
		m.heldForDisable = append(m.heldForDisable, cmd)
		return
	}
	switch m.arbiter.DecideConnect(cmd.clientID, cmd.uid, cmd.callingPackage) {
	case ArbitrationAbort:
		cmd.callback.OnConnectFail(hal.StatusNoResourcesAvailable)
	case ArbitrationDefer:
		m.parked = append(m.parked, cmd)
	default:
		m.executeConnect(cmd)
	}
}

func (m *StateManager) arbitrationResultLocal(cmd arbitrationResultCmd) {
	for i, parked := range m.parked {
		if parked.clientID != cmd.clientID {
			continue
		}
		m.parked = append(m.parked[:i], m.parked[i+1:]...)
		if !cmd.proceed {
			parked.callback.OnConnectFail(hal.StatusNoResourcesAvailable)
			return
		}
		if m.disablePending {
			m.heldForDisable = append(m.heldForDisable, parked)
			return
		}
		m.executeConnect(parked)
		return
	}
	m.defect(fmt.Sprintf("arbitration result for unknown client %d", cmd.clientID))
}

// executeConnect merges the new client's request with the existing ones and
// either admits the client without touching the firmware or pushes the new
// configuration.
func (m *StateManager) executeConnect(cmd connectCmd) {
	requests := make([]ConfigRequest, 0, len(m.clients)+1)
	notify := cmd.notifyIdentityChange
	for _, cl := range m.clients {
		requests = append(requests, cl.config)
		notify = notify || cl.notifyIdentityChange
	}
	requests = append(requests, cmd.config)

	merged, err := mergeConfigRequests(requests)
	if err != nil {
		m.debugf("connect rejected, incompatible configuration", "clientID", cmd.clientID)
		cmd.callback.OnConnectFail(hal.StatusInternalFailure)
		return
	}

	_, ranging, instant := m.aggregates()
	if m.awareUp && merged == m.activeMerged && notify == m.activeNotify {
		m.admitClient(cmd)
		return
	}

	acquired := false
	if !m.ifaceHeld {
		m.ifOwner.Acquire()
		m.ifaceHeld = true
		acquired = true
	}
	txn := m.allocTxn()
	cfg := merged.halConfig(notify, ranging, instant)
	if err := m.hal.EnableAndConfigure(txn, cfg, !m.awareUp); err != nil {
		m.defect(fmt.Sprintf("enable rejected: %v", err))
		cmd.callback.OnConnectFail(hal.StatusInternalFailure)
		if acquired && len(m.clients) == 0 {
			m.ifOwner.Release()
			m.ifaceHeld = false
		}
		return
	}
	m.pendingMerged = merged
	m.pendingNotify = notify
	m.pendingRang = ranging
	m.pendingInst = instant
	m.beginTransaction(txn, cmd)
}

// admitClient creates the client record and reports the attach.
func (m *StateManager) admitClient(cmd connectCmd) {
	cl := newClient(cmd.clientID, cmd.uid, cmd.pid, cmd.callingPackage, cmd.featureID,
		cmd.config, cmd.notifyIdentityChange, cmd.awareOffload, cmd.callback)
	m.clients[cmd.clientID] = cl
	cmd.callback.OnConnectSuccess(cmd.clientID)
	m.updateSnapshot()
	if m.capabilities == nil {
		m.enqueueInternal(getCapabilitiesCmd{})
	}
}

func (m *StateManager) disconnectLocal(cmd disconnectCmd) {
	cl, ok := m.clients[cmd.clientID]
	if !ok {
		m.defect(fmt.Sprintf("disconnect: unknown client %d", cmd.clientID))
		return
	}
	delete(m.clients, cmd.clientID)
	for id, s := range cl.sessions {
		m.dropSessionMessages(s)
		m.stopSessionFirmware(s)
		s.terminate(hal.StatusSuccess, false)
		delete(cl.sessions, id)
	}
	m.updateSnapshot()
	if len(m.clients) == 0 {
		m.disableRadio()
		return
	}
	m.reconfigureLocal()
}

// reconfigureLocal re-merges all clients and pushes the result to the
// firmware unless nothing observable changed.
func (m *StateManager) reconfigureLocal() {
	if len(m.clients) == 0 {
		return
	}
	requests := make([]ConfigRequest, 0, len(m.clients))
	for _, cl := range m.clients {
		requests = append(requests, cl.config)
	}
	merged, err := mergeConfigRequests(requests)
	if err != nil {
		// Admitted clients are mutually compatible; this cannot happen.
		m.defect("reconfigure: merge of admitted clients failed")
		return
	}
	notify, ranging, instant := m.aggregates()
	if m.awareUp && merged == m.activeMerged && notify == m.activeNotify &&
		ranging == m.activeRang && instant == m.activeInst {
		return
	}
	txn := m.allocTxn()
	cfg := merged.halConfig(notify, ranging, instant)
	if err := m.hal.EnableAndConfigure(txn, cfg, !m.awareUp); err != nil {
		m.defect(fmt.Sprintf("reconfigure rejected: %v", err))
		return
	}
	m.pendingMerged = merged
	m.pendingNotify = notify
	m.pendingRang = ranging
	m.pendingInst = instant
	m.beginTransaction(txn, reconfigureCmd{})
}

// disableRadio brings the firmware down once the last client is gone.
func (m *StateManager) disableRadio() {
	if !m.awareUp {
		if m.ifaceHeld && len(m.clients) == 0 {
			m.ifOwner.Release()
			m.ifaceHeld = false
		}
		return
	}
	txn := m.allocTxn()
	if err := m.hal.Disable(txn); err != nil {
		m.defect(fmt.Sprintf("disable rejected: %v", err))
		m.radioDownLocal(hal.StatusInternalFailure)
		return
	}
	m.disablePending = true
	m.beginTransaction(txn, disableCmd{})
}

func (m *StateManager) terminateSessionLocal(cmd terminateSessionCmd) {
	cl, s, ok := m.resolveSession(cmd.clientID, cmd.sessionID)
	if !ok {
		m.defect(fmt.Sprintf("terminate: unknown session %d/%d", cmd.clientID, cmd.sessionID))
		return
	}
	m.dropSessionMessages(s)
	m.stopSessionFirmware(s)
	s.terminate(hal.StatusSuccess, false)
	cl.removeSession(cmd.sessionID)
	m.updateSnapshot()
	m.reconfigureLocal()
}

// stopSessionFirmware cancels the firmware side of a session. The response
// is not correlated; a late arrival is dropped as stale.
func (m *StateManager) stopSessionFirmware(s *discoverySession) {
	if s.pubSubID == 0 {
		return
	}
	txn := m.allocTxn()
	var err error
	if s.isPublish {
		err = m.hal.StopPublish(txn, s.pubSubID)
	} else {
		err = m.hal.StopSubscribe(txn, s.pubSubID)
	}
	if err != nil {
		m.debugf("session stop rejected", "pubSubID", s.pubSubID, "err", err)
	}
}

func (m *StateManager) publishLocal(cmd publishCmd) {
	_, ok := m.clients[cmd.clientID]
	if !ok || !m.awareUp {
		cmd.callback.OnSessionConfigFail(hal.StatusInternalFailure)
		return
	}
	txn := m.allocTxn()
	if err := m.hal.Publish(txn, 0, cmd.config); err != nil {
		m.debugf("publish rejected", "err", err)
		cmd.callback.OnSessionConfigFail(hal.StatusInternalFailure)
		return
	}
	m.beginTransaction(txn, cmd)
}

func (m *StateManager) updatePublishLocal(cmd updatePublishCmd) {
	_, s, ok := m.resolveSession(cmd.clientID, cmd.sessionID)
	if !ok || !s.isPublish {
		m.defect(fmt.Sprintf("update publish: unknown session %d/%d", cmd.clientID, cmd.sessionID))
		if ok {
			s.callback.OnSessionConfigFail(hal.StatusInternalFailure)
		}
		return
	}
	txn := m.allocTxn()
	if err := m.hal.Publish(txn, s.pubSubID, cmd.config); err != nil {
		s.callback.OnSessionConfigFail(hal.StatusInternalFailure)
		return
	}
	m.beginTransaction(txn, cmd)
}

func (m *StateManager) subscribeLocal(cmd subscribeCmd) {
	_, ok := m.clients[cmd.clientID]
	if !ok || !m.awareUp {
		cmd.callback.OnSessionConfigFail(hal.StatusInternalFailure)
		return
	}
	txn := m.allocTxn()
	if err := m.hal.Subscribe(txn, 0, cmd.config); err != nil {
		m.debugf("subscribe rejected", "err", err)
		cmd.callback.OnSessionConfigFail(hal.StatusInternalFailure)
		return
	}
	m.beginTransaction(txn, cmd)
}

func (m *StateManager) updateSubscribeLocal(cmd updateSubscribeCmd) {
	_, s, ok := m.resolveSession(cmd.clientID, cmd.sessionID)
	if !ok || s.isPublish {
		m.defect(fmt.Sprintf("update subscribe: unknown session %d/%d", cmd.clientID, cmd.sessionID))
		if ok {
			s.callback.OnSessionConfigFail(hal.StatusInternalFailure)
		}
		return
	}
	txn := m.allocTxn()
	if err := m.hal.Subscribe(txn, s.pubSubID, cmd.config); err != nil {
		s.callback.OnSessionConfigFail(hal.StatusInternalFailure)
		return
	}
	m.beginTransaction(txn, cmd)
}

func (m *StateManager) enqueueSendMessageLocal(cmd enqueueSendMessageCmd) {
	cl, s, ok := m.resolveSession(cmd.clientID, cmd.sessionID)
	if !ok {
		m.defect(fmt.Sprintf("send: unknown session %d/%d", cmd.clientID, cmd.sessionID))
		return
	}
	if _, ok := s.peer(cmd.peerID); !ok {
		s.callback.OnMessageSendFail(cmd.messageID, hal.StatusInvalidPeerID)
		return
	}
	if m.sendQ.depthForUID(cl.uid) >= maxQueuedMessagesPerUID {
		s.callback.OnMessageSendFail(cmd.messageID, hal.StatusNoResourcesAvailable)
		return
	}
	m.sendQ.enqueue(&queuedMessage{
		clientID:    cmd.clientID,
		sessionID:   cmd.sessionID,
		peerID:      cmd.peerID,
		uid:         cl.uid,
		messageID:   cmd.messageID,
		message:     cmd.message,
		retriesLeft: cmd.retryCount,
	})
	m.transmitNextLocal()
}

// transmitNextLocal hands the head of the host queue to the firmware unless
// the firmware queue is blocked. Messages whose session disappeared are
// failed and skipped.
func (m *StateManager) transmitNextLocal() {
	for !m.sendQ.blocked {
		msg, ok := m.sendQ.peekHost()
		if !ok {
			return
		}
		m.sendQ.popHost()
		_, s, ok := m.resolveSession(msg.clientID, msg.sessionID)
		if !ok {
			continue
		}
		p, ok := s.peer(msg.peerID)
		if !ok {
			s.callback.OnMessageSendFail(msg.messageID, hal.StatusInvalidPeerID)
			continue
		}
		txn := m.allocTxn()
		if err := m.hal.SendMessage(txn, s.pubSubID, p.instanceID, p.mac, msg.message, msg.messageID); err != nil {
			s.callback.OnMessageSendFail(msg.messageID, hal.StatusInternalFailure)
			continue
		}
		m.beginTransaction(txn, transmitNextMessageCmd{})
		m.pendingSend = msg
		return
	}
}

func (m *StateManager) enableUsageLocal() {
	if m.usageEnabled {
		return
	}
	m.usageEnabled = true
	m.updateSnapshot()
	m.enqueueInternal(getCapabilitiesCmd{})
}

func (m *StateManager) disableUsageLocal() {
	if !m.usageEnabled {
		return
	}
	m.usageEnabled = false
	for id, cl := range m.clients {
		for _, s := range cl.sessions {
			m.dropSessionMessages(s)
		}
		cl.destroy(true)
		delete(m.clients, id)
	}
	m.updateSnapshot()
	m.disableRadio()
}

func (m *StateManager) getCapabilitiesLocal() {
	if m.capabilities != nil {
		return
	}
	txn := m.allocTxn()
	if err := m.hal.GetCapabilities(txn); err != nil {
		m.debugf("capabilities query rejected", "err", err)
		return
	}
	m.beginTransaction(txn, getCapabilitiesCmd{})
}

func (m *StateManager) createDataPathInterfaceLocal(cmd createDataPathInterfaceCmd) {
	txn := m.allocTxn()
	if err := m.hal.CreateDataPathInterface(txn, cmd.ifaceName); err != nil {
		m.defect(fmt.Sprintf("create interface rejected: %v", err))
		return
	}
	m.beginTransaction(txn, cmd)
}

func (m *StateManager) deleteDataPathInterfaceLocal(cmd deleteDataPathInterfaceCmd) {
	txn := m.allocTxn()
	if err := m.hal.DeleteDataPathInterface(txn, cmd.ifaceName); err != nil {
		m.defect(fmt.Sprintf("delete interface rejected: %v", err))
		return
	}
	m.beginTransaction(txn, cmd)
}

func (m *StateManager) deleteAllDataPathInterfacesLocal() {
	for name := range m.ndiNames {
		m.enqueueInternal(deleteDataPathInterfaceCmd{ifaceName: name})
	}
}

func (m *StateManager) initiateDataPathLocal(cmd initiateDataPathCmd) {
	_, s, ok := m.resolveSession(cmd.clientID, cmd.sessionID)
	if !ok {
		m.dataPath.OnDataPathInitiateFail(hal.StatusInternalFailure)
		return
	}
	p, ok := s.peer(cmd.peerID)
	if !ok {
		m.dataPath.OnDataPathInitiateFail(hal.StatusInvalidPeerID)
		return
	}
	txn := m.allocTxn()
	if err := m.hal.InitiateDataPath(txn, p.instanceID, p.mac, cmd.ifaceName, cmd.security, cmd.appInfo); err != nil {
		m.dataPath.OnDataPathInitiateFail(hal.StatusInternalFailure)
		return
	}
	m.beginTransaction(txn, cmd)
}

func (m *StateManager) respondToDataPathRequestLocal(cmd respondToDataPathRequestCmd) {
	txn := m.allocTxn()
	if err := m.hal.RespondToDataPathRequest(txn, cmd.accept, cmd.ndpID, cmd.ifaceName, cmd.security, cmd.appInfo); err != nil {
		m.defect(fmt.Sprintf("data path respond rejected: %v", err))
		return
	}
	m.beginTransaction(txn, cmd)
}

func (m *StateManager) endDataPathLocal(cmd endDataPathCmd) {
	txn := m.allocTxn()
	if err := m.hal.EndDataPath(txn, cmd.ndpID); err != nil {
		m.defect(fmt.Sprintf("end data path rejected: %v", err))
		return
	}
	m.beginTransaction(txn, cmd)
}

// pairingSecurity assembles the keying material for a pairing exchange from
// the identity-key cache.
func (m *StateManager) pairingSecurity(cl *client, alias, password string,
	requestType hal.PairingRequestType) hal.PairingSecurity {
	sec := hal.PairingSecurity{RequestType: requestType, Password: password}
	if m.pairing == nil {
		return sec
	}
	sec.Nik = m.pairing.NikForCallingPackage(cl.callingPackage)
	if requestType == hal.PairingRequestTypeVerification {
		if sa := m.pairing.SecurityInfoForAlias(alias); sa != nil {
			sec.Pmk = sa.Npk
		}
	}
	return sec
}

func (m *StateManager) initiatePairingLocal(cmd initiatePairingCmd) {
	cl, s, ok := m.resolveSession(cmd.clientID, cmd.sessionID)
	if !ok {
		m.defect(fmt.Sprintf("initiate pairing: unknown session %d/%d", cmd.clientID, cmd.sessionID))
		return
	}
	p, ok := s.peer(cmd.peerID)
	if !ok {
		m.pairingConfirmFailed(s, cmd.peerID, cmd.requestType, cmd.alias)
		return
	}
	txn := m.allocTxn()
	sec := m.pairingSecurity(cl, cmd.alias, cmd.password, cmd.requestType)
	if err := m.hal.InitiatePairing(txn, p.instanceID, p.mac, sec, cmd.cipherSuites); err != nil {
		m.pairingConfirmFailed(s, cmd.peerID, cmd.requestType, cmd.alias)
		return
	}
	m.beginTransaction(txn, cmd)
}

func (m *StateManager) respondToPairingLocal(cmd respondToPairingCmd) {
	cl, _, ok := m.resolveSession(cmd.clientID, cmd.sessionID)
	if !ok {
		m.defect(fmt.Sprintf("respond pairing: unknown session %d/%d", cmd.clientID, cmd.sessionID))
		return
	}
	txn := m.allocTxn()
	sec := m.pairingSecurity(cl, cmd.alias, cmd.password, cmd.requestType)
	if err := m.hal.RespondToPairingRequest(txn, cmd.pairingID, cmd.accept, sec, cmd.cipherSuites); err != nil {
		m.defect(fmt.Sprintf("pairing respond rejected: %v", err))
		return
	}
	m.beginTransaction(txn, cmd)
}

func (m *StateManager) endPairingLocal(cmd endPairingCmd) {
	txn := m.allocTxn()
	if err := m.hal.EndPairing(txn, cmd.pairingID); err != nil {
		m.defect(fmt.Sprintf("end pairing rejected: %v", err))
		return
	}
	m.beginTransaction(txn, cmd)
}

func (m *StateManager) initiateBootstrappingLocal(cmd initiateBootstrappingCmd) {
	_, s, ok := m.resolveSession(cmd.clientID, cmd.sessionID)
	if !ok {
		m.defect(fmt.Sprintf("initiate bootstrapping: unknown session %d/%d", cmd.clientID, cmd.sessionID))
		return
	}
	p, ok := s.peer(cmd.peerID)
	if !ok {
		s.callback.OnBootstrappingVerificationConfirmed(cmd.peerID, false, cmd.method)
		return
	}
	txn := m.allocTxn()
	if err := m.hal.InitiateBootstrapping(txn, p.instanceID, p.mac, cmd.method, cmd.cookie); err != nil {
		s.callback.OnBootstrappingVerificationConfirmed(cmd.peerID, false, cmd.method)
		return
	}
	m.beginTransaction(txn, cmd)
}

func (m *StateManager) respondToBootstrappingLocal(cmd respondToBootstrappingCmd) {
	code := hal.BootstrappingReject
	if cmd.accept {
		code = hal.BootstrappingAccept
	}
	txn := m.allocTxn()
	if err := m.hal.RespondToBootstrapping(txn, cmd.bootstrappingID, code, 0); err != nil {
		m.defect(fmt.Sprintf("bootstrapping respond rejected: %v", err))
		return
	}
	m.beginTransaction(txn, cmd)
}

func (m *StateManager) suspendLocal(cmd suspendSessionCmd) {
	_, s, ok := m.resolveSession(cmd.clientID, cmd.sessionID)
	if !ok {
		m.defect(fmt.Sprintf("suspend: unknown session %d/%d", cmd.clientID, cmd.sessionID))
		return
	}
	if !s.suspendable {
		s.callback.OnSessionSuspendFail(hal.StatusInvalidSessionID)
		return
	}
	if s.suspended {
		s.callback.OnSessionSuspendFail(hal.StatusRedundantRequest)
		return
	}
	txn := m.allocTxn()
	if err := m.hal.SuspendRequest(txn, s.pubSubID); err != nil {
		s.callback.OnSessionSuspendFail(hal.StatusInternalFailure)
		return
	}
	m.beginTransaction(txn, cmd)
}

func (m *StateManager) resumeLocal(cmd resumeSessionCmd) {
	_, s, ok := m.resolveSession(cmd.clientID, cmd.sessionID)
	if !ok {
		m.defect(fmt.Sprintf("resume: unknown session %d/%d", cmd.clientID, cmd.sessionID))
		return
	}
	if !s.suspendable {
		s.callback.OnSessionResumeFail(hal.StatusInvalidSessionID)
		return
	}
	if !s.suspended {
		s.callback.OnSessionResumeFail(hal.StatusRedundantRequest)
		return
	}
	txn := m.allocTxn()
	if err := m.hal.ResumeRequest(txn, s.pubSubID); err != nil {
		s.callback.OnSessionResumeFail(hal.StatusInternalFailure)
		return
	}
	m.beginTransaction(txn, cmd)
}

// Shared helpers.

func (m *StateManager) resolveSession(clientID, sessionID int) (*client, *discoverySession, bool) {
	cl, ok := m.clients[clientID]
	if !ok {
		return nil, nil, false
	}
	s, ok := cl.session(sessionID)
	if !ok {
		return cl, nil, false
	}
	return cl, s, true
}

// sessionByPubSub finds the owning client and session for a firmware
// session ID.
func (m *StateManager) sessionByPubSub(pubSubID uint8) (*client, *discoverySession, bool) {
	for _, cl := range m.clients {
		if s, ok := cl.sessionByPubSubID(pubSubID); ok {
			return cl, s, true
		}
	}
	return nil, nil, false
}

// aggregates derives the session-driven configuration flags.
func (m *StateManager) aggregates() (notify, ranging bool, instant hal.InstantMode) {
	for _, cl := range m.clients {
		if cl.notifyIdentityChange {
			notify = true
		}
		for _, s := range cl.sessions {
			if s.rangingEnabled {
				ranging = true
			}
			switch s.instantMode {
			case hal.InstantMode5GHz:
				instant = hal.InstantMode5GHz
			case hal.InstantMode24GHz:
				if instant == hal.InstantModeDisabled {
					instant = hal.InstantMode24GHz
				}
			}
		}
	}
	return notify, ranging, instant
}

// dropSessionMessages fails every queued message of a session.
func (m *StateManager) dropSessionMessages(s *discoverySession) {
	dropped := m.sendQ.dropForSession(s.clientID, s.sessionID)
	for _, msg := range dropped {
		s.callback.OnMessageSendFail(msg.messageID, hal.StatusInternalFailure)
	}
	if len(dropped) > 0 {
		m.rescheduleSendTimeout()
	}
}

// rescheduleSendTimeout re-arms the shared send-message timeout for the
// oldest firmware-queued message. Advancing the generation invalidates any
// firing from the previous arming that is still sitting in the loop channel.
func (m *StateManager) rescheduleSendTimeout() {
	if m.sendTimeout != nil {
		m.sendTimeout.Cancel()
		m.sendTimeout = nil
	}
	m.sendTimeoutGen++
	earliest, ok := m.sendQ.earliestFw()
	if !ok {
		return
	}
	d := earliest.Add(m.sendTimeoutDur).Sub(m.now())
	if d < 0 {
		d = 0
	}
	gen := m.sendTimeoutGen
	m.sendTimeout = m.sched.Schedule(d, func() {
		m.post(sendMessageTimeoutNotif{gen: gen})
	})
}

func (m *StateManager) pairingConfirmFailed(s *discoverySession, peerID int,
	requestType hal.PairingRequestType, alias string) {
	if requestType == hal.PairingRequestTypeVerification {
		s.callback.OnPairingVerificationConfirmed(peerID, false, alias)
	} else {
		s.callback.OnPairingSetupConfirmed(peerID, false, alias)
	}
}

// updateSnapshot republishes the query-side view of the loop state.
func (m *StateManager) updateSnapshot() {
	publishes, subscribes := 0, 0
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snapCaps != m.capabilities {
		m.snapChars = nil
	}
	m.snapCaps = m.capabilities
	m.snapUsage = m.usageEnabled
	m.snapPeerMACs = make(map[int]map[int]net.HardwareAddr)
	for cid, cl := range m.clients {
		for _, s := range cl.sessions {
			if s.isPublish {
				publishes++
			} else {
				subscribes++
			}
			for pid, p := range s.peers {
				perClient := m.snapPeerMACs[cid]
				if perClient == nil {
					perClient = make(map[int]net.HardwareAddr)
					m.snapPeerMACs[cid] = perClient
				}
				perClient[pid] = append(net.HardwareAddr(nil), p.mac...)
			}
		}
	}
	m.snapPublishes = publishes
	m.snapSubscribes = subscribes
	m.snapNdps = len(m.establishedNdps)
}
