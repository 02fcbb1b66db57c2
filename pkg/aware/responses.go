package aware

import (
	"fmt"

	"github.com/aware-protocol/aware-go/pkg/hal"
)

// handleResponse correlates an asynchronous completion with the outstanding
// transaction. Stale completions (wrong or no transaction) are logged and
// dropped.
func (m *StateManager) handleResponse(r response) {
	txn := r.transactionID()
	if m.currentTxn == 0 || txn != m.currentTxn {
		m.debugf("dropping stale completion", "kind", r.responseKind(), "txn", txn)
		return
	}
	cmd := m.currentCommand
	pendingSend := m.pendingSend
	m.completeTransaction()
	m.processResponse(txn, cmd, pendingSend, r)
	m.drainDeferred()
}

func (m *StateManager) processResponse(txn uint16, cmd command, pendingSend *queuedMessage, r response) {
	if _, ok := r.(responseTimeout); ok {
		m.logTimeout(cmd.commandKind(), txn)
		m.commandFailed(cmd, pendingSend, hal.StatusInternalFailure)
		return
	}

	switch resp := r.(type) {
	case capabilitiesResponse:
		m.logResponse(resp.responseKind(), txn, resp.status)
		if resp.status.IsSuccess() {
			caps := resp.caps
			m.capabilities = &caps
			m.updateSnapshot()
		}

	case configResponse:
		m.logResponse(resp.responseKind(), txn, resp.status)
		m.configResponseLocal(cmd, resp.status)

	case disableResponse:
		m.logResponse(resp.responseKind(), txn, resp.status)
		if !resp.status.IsSuccess() {
			m.defect(fmt.Sprintf("disable failed: %s", resp.status))
			m.radioDownLocal(hal.StatusInternalFailure)
		}

	case sessionConfigResponse:
		m.logResponse(resp.responseKind(), txn, resp.status)
		m.sessionConfigResponseLocal(cmd, resp)

	case messageQueuedResponse:
		m.logResponse(resp.responseKind(), txn, resp.status)
		m.messageQueuedResponseLocal(txn, pendingSend, resp.status)

	case dataPathInterfaceResponse:
		m.logResponse(resp.responseKind(), txn, resp.status)
		m.dataPathInterfaceResponseLocal(cmd, resp.status)

	case initiateDataPathResponse:
		m.logResponse(resp.responseKind(), txn, resp.status)
		dp, ok := cmd.(initiateDataPathCmd)
		if !ok {
			m.defect("initiate data path response without matching command")
			return
		}
		if !resp.status.IsSuccess() {
			m.dataPath.OnDataPathInitiateFail(resp.status)
			return
		}
		m.dataPath.OnDataPathInitiateSuccess(resp.ndpID)
		m.armConfirmTimeout(m.pendingDataPaths, resp.ndpID, &pendingConfirm{
			clientID:  dp.clientID,
			sessionID: dp.sessionID,
			peerID:    dp.peerID,
		}, func(id uint32) { m.post(dataPathConfirmTimeoutNotif{ndpID: id}) })

	case respondToDataPathResponse:
		m.logResponse(resp.responseKind(), txn, resp.status)
		dp, ok := cmd.(respondToDataPathRequestCmd)
		if !ok {
			m.defect("data path respond response without matching command")
			return
		}
		if !resp.status.IsSuccess() {
			m.defect(fmt.Sprintf("data path respond failed: %s", resp.status))
			return
		}
		if dp.accept {
			m.armConfirmTimeout(m.pendingDataPaths, dp.ndpID, &pendingConfirm{},
				func(id uint32) { m.post(dataPathConfirmTimeoutNotif{ndpID: id}) })
		}

	case endDataPathResponse:
		m.logResponse(resp.responseKind(), txn, resp.status)
		if !resp.status.IsSuccess() {
			m.defect(fmt.Sprintf("end data path failed: %s", resp.status))
		}

	case pairingResponse:
		m.logResponse(resp.responseKind(), txn, resp.status)
		m.pairingResponseLocal(cmd, resp)

	case endPairingResponse:
		m.logResponse(resp.responseKind(), txn, resp.status)
		if !resp.status.IsSuccess() {
			m.defect(fmt.Sprintf("end pairing failed: %s", resp.status))
		}

	case bootstrappingResponse:
		m.logResponse(resp.responseKind(), txn, resp.status)
		m.bootstrappingResponseLocal(cmd, resp)

	case suspendResponse:
		m.logResponse(resp.responseKind(), txn, resp.status)
		sc, ok := cmd.(suspendSessionCmd)
		if !ok {
			m.defect("suspend response without matching command")
			return
		}
		_, s, found := m.resolveSession(sc.clientID, sc.sessionID)
		if !found {
			return
		}
		if resp.status.IsSuccess() {
			s.suspended = true
			s.callback.OnSessionSuspendSucceeded()
		} else {
			s.callback.OnSessionSuspendFail(resp.status)
		}

	case resumeResponse:
		m.logResponse(resp.responseKind(), txn, resp.status)
		rc, ok := cmd.(resumeSessionCmd)
		if !ok {
			m.defect("resume response without matching command")
			return
		}
		if !resp.status.IsSuccess() {
			if _, s, found := m.resolveSession(rc.clientID, rc.sessionID); found {
				s.callback.OnSessionResumeFail(resp.status)
			}
		}
		// Resume success surfaces through the suspension status
		// notification.

	default:
		m.defect(fmt.Sprintf("unknown response %q", r.responseKind()))
	}
}

// configResponseLocal completes an enable-and-configure issued for a
// connect or a reconfigure.
func (m *StateManager) configResponseLocal(cmd command, status hal.Status) {
	if cc, ok := cmd.(connectCmd); ok {
		if !status.IsSuccess() {
			cc.callback.OnConnectFail(status)
			if len(m.clients) == 0 && m.ifaceHeld && !m.awareUp {
				m.ifOwner.Release()
				m.ifaceHeld = false
			}
			return
		}
		m.awareUp = true
		m.activeMerged = m.pendingMerged
		m.activeNotify = m.pendingNotify
		m.activeRang = m.pendingRang
		m.activeInst = m.pendingInst
		m.admitClient(cc)
		return
	}
	if !status.IsSuccess() {
		m.defect(fmt.Sprintf("reconfigure failed: %s", status))
		return
	}
	m.awareUp = true
	m.activeMerged = m.pendingMerged
	m.activeNotify = m.pendingNotify
	m.activeRang = m.pendingRang
	m.activeInst = m.pendingInst
}

func (m *StateManager) sessionConfigResponseLocal(cmd command, resp sessionConfigResponse) {
	switch sc := cmd.(type) {
	case publishCmd:
		m.newSessionLocal(sc.clientID, resp, publishSessionConfig(sc.config), sc.callback, true)
	case subscribeCmd:
		m.newSessionLocal(sc.clientID, resp, subscribeSessionConfig(sc.config), sc.callback, false)
	case updatePublishCmd:
		m.updatedSessionLocal(sc.clientID, sc.sessionID, resp, publishSessionConfig(sc.config))
	case updateSubscribeCmd:
		m.updatedSessionLocal(sc.clientID, sc.sessionID, resp, subscribeSessionConfig(sc.config))
	default:
		m.defect("session config response without matching command")
	}
}

func (m *StateManager) newSessionLocal(clientID int, resp sessionConfigResponse,
	cfg sessionConfig, cb SessionCallback, isPublish bool) {
	if !resp.status.IsSuccess() {
		cb.OnSessionConfigFail(resp.status)
		return
	}
	cl, ok := m.clients[clientID]
	if !ok {
		// Client disconnected while the create was in flight; the
		// firmware session is orphaned, cancel it.
		m.stopSessionFirmware(&discoverySession{pubSubID: resp.pubSubID, isPublish: isPublish})
		return
	}
	sessionID := m.nextSession
	m.nextSession++
	s := newDiscoverySession(clientID, sessionID, resp.pubSubID, isPublish, cfg, cb, &m.nextPeerID)
	cl.addSession(s)
	cb.OnSessionStarted(sessionID)
	m.updateSnapshot()
	if cfg.rangingEnabled || cfg.instantMode != hal.InstantModeDisabled {
		m.enqueueInternal(reconfigureCmd{})
	}
}

func (m *StateManager) updatedSessionLocal(clientID, sessionID int,
	resp sessionConfigResponse, cfg sessionConfig) {
	_, s, ok := m.resolveSession(clientID, sessionID)
	if !ok {
		return
	}
	if !resp.status.IsSuccess() {
		s.callback.OnSessionConfigFail(resp.status)
		return
	}
	// The firmware may reassign the session ID on update.
	if resp.pubSubID != 0 {
		s.pubSubID = resp.pubSubID
	}
	aggregatesChanged := s.rangingEnabled != cfg.rangingEnabled || s.instantMode != cfg.instantMode
	s.applyUpdate(cfg)
	s.callback.OnSessionConfigSuccess()
	if aggregatesChanged {
		m.enqueueInternal(reconfigureCmd{})
	}
}

// messageQueuedResponseLocal moves the in-flight message to the firmware
// queue or back to the host queue.
func (m *StateManager) messageQueuedResponseLocal(txn uint16, msg *queuedMessage, status hal.Status) {
	if msg == nil {
		m.defect("message queued response without in-flight message")
		return
	}
	switch {
	case status.IsSuccess():
		m.sendQ.moveToFw(txn, msg, m.now())
		if m.sendTimeout == nil {
			m.rescheduleSendTimeout()
		}
		m.enqueueInternal(transmitNextMessageCmd{})
	case status == hal.StatusFollowupTxQueueFull:
		m.sendQ.blocked = true
		m.sendQ.requeueHost(msg)
	default:
		if _, s, ok := m.resolveSession(msg.clientID, msg.sessionID); ok {
			s.callback.OnMessageSendFail(msg.messageID, status)
		}
		m.enqueueInternal(transmitNextMessageCmd{})
	}
}

func (m *StateManager) dataPathInterfaceResponseLocal(cmd command, status hal.Status) {
	switch dc := cmd.(type) {
	case createDataPathInterfaceCmd:
		if !status.IsSuccess() {
			m.defect(fmt.Sprintf("create interface %q failed: %s", dc.ifaceName, status))
			return
		}
		m.ndiNames[dc.ifaceName] = true
		m.dataPath.OnDataPathInterfaceCreated(dc.ifaceName)
	case deleteDataPathInterfaceCmd:
		if !status.IsSuccess() {
			m.defect(fmt.Sprintf("delete interface %q failed: %s", dc.ifaceName, status))
			return
		}
		delete(m.ndiNames, dc.ifaceName)
		m.dataPath.OnDataPathInterfaceDeleted(dc.ifaceName)
	default:
		m.defect("interface response without matching command")
	}
}

func (m *StateManager) pairingResponseLocal(cmd command, resp pairingResponse) {
	fire := func(id uint32) { m.post(pairingConfirmTimeoutNotif{pairingID: id}) }
	switch c := cmd.(type) {
	case initiatePairingCmd:
		if !resp.status.IsSuccess() {
			if _, s, ok := m.resolveSession(c.clientID, c.sessionID); ok {
				m.pairingConfirmFailed(s, c.peerID, c.requestType, c.alias)
			}
			return
		}
		m.armConfirmTimeout(m.pendingPairings, resp.pairingID, &pendingConfirm{
			clientID:    c.clientID,
			sessionID:   c.sessionID,
			peerID:      c.peerID,
			alias:       c.alias,
			requestType: c.requestType,
		}, fire)
	case respondToPairingCmd:
		if !resp.status.IsSuccess() {
			m.defect(fmt.Sprintf("pairing respond failed: %s", resp.status))
			return
		}
		if !c.accept {
			return
		}
		// Responder confirms arrive under the peer-assigned request ID.
		m.armConfirmTimeout(m.pendingPairings, c.pairingID, &pendingConfirm{
			clientID:    c.clientID,
			sessionID:   c.sessionID,
			peerID:      c.peerID,
			alias:       c.alias,
			requestType: c.requestType,
		}, fire)
	default:
		m.defect("pairing response without matching command")
	}
}

func (m *StateManager) bootstrappingResponseLocal(cmd command, resp bootstrappingResponse) {
	switch bc := cmd.(type) {
	case initiateBootstrappingCmd:
		if !resp.status.IsSuccess() {
			if _, s, ok := m.resolveSession(bc.clientID, bc.sessionID); ok {
				s.callback.OnBootstrappingVerificationConfirmed(bc.peerID, false, bc.method)
			}
			return
		}
		m.armConfirmTimeout(m.pendingBootstraps, resp.bootstrappingID, &pendingConfirm{
			clientID:  bc.clientID,
			sessionID: bc.sessionID,
			peerID:    bc.peerID,
			method:    bc.method,
		}, func(id uint32) { m.post(bootstrappingConfirmTimeoutNotif{bootstrappingID: id}) })
	case respondToBootstrappingCmd:
		if !resp.status.IsSuccess() {
			m.defect(fmt.Sprintf("bootstrapping respond failed: %s", resp.status))
		}
	default:
		m.defect("bootstrapping response without matching command")
	}
}

// armConfirmTimeout registers a pending confirm and schedules its timeout.
func (m *StateManager) armConfirmTimeout(table map[uint32]*pendingConfirm, id uint32,
	pc *pendingConfirm, fire func(uint32)) {
	if old, ok := table[id]; ok && old.timeout != nil {
		old.timeout.Cancel()
	}
	pc.timeout = m.sched.Schedule(m.confirmDur, func() { fire(id) })
	table[id] = pc
}

// takeConfirm consumes a pending confirm entry, canceling its timeout.
func (m *StateManager) takeConfirm(table map[uint32]*pendingConfirm, id uint32) (*pendingConfirm, bool) {
	pc, ok := table[id]
	if !ok {
		return nil, false
	}
	delete(table, id)
	if pc.timeout != nil {
		pc.timeout.Cancel()
	}
	return pc, true
}

// commandFailed synthesizes the terminal failure for a timed-out or
// otherwise failed outstanding command.
func (m *StateManager) commandFailed(cmd command, pendingSend *queuedMessage, status hal.Status) {
	switch c := cmd.(type) {
	case connectCmd:
		c.callback.OnConnectFail(status)
		if len(m.clients) == 0 && m.ifaceHeld && !m.awareUp {
			m.ifOwner.Release()
			m.ifaceHeld = false
		}
	case reconfigureCmd:
		m.defect(fmt.Sprintf("reconfigure did not complete: %s", status))
	case disableCmd:
		m.radioDownLocal(hal.StatusInternalFailure)
	case publishCmd:
		c.callback.OnSessionConfigFail(status)
	case subscribeCmd:
		c.callback.OnSessionConfigFail(status)
	case updatePublishCmd:
		if _, s, ok := m.resolveSession(c.clientID, c.sessionID); ok {
			s.callback.OnSessionConfigFail(status)
		}
	case updateSubscribeCmd:
		if _, s, ok := m.resolveSession(c.clientID, c.sessionID); ok {
			s.callback.OnSessionConfigFail(status)
		}
	case transmitNextMessageCmd:
		if pendingSend != nil {
			if _, s, ok := m.resolveSession(pendingSend.clientID, pendingSend.sessionID); ok {
				s.callback.OnMessageSendFail(pendingSend.messageID, status)
			}
		}
		m.sendQ.blocked = false
		m.enqueueInternal(transmitNextMessageCmd{})
	case getCapabilitiesCmd:
		m.debugf("capabilities query did not complete")
	case suspendSessionCmd:
		if _, s, ok := m.resolveSession(c.clientID, c.sessionID); ok {
			s.callback.OnSessionSuspendFail(status)
		}
	case resumeSessionCmd:
		if _, s, ok := m.resolveSession(c.clientID, c.sessionID); ok {
			s.callback.OnSessionResumeFail(status)
		}
	case initiatePairingCmd:
		if _, s, ok := m.resolveSession(c.clientID, c.sessionID); ok {
			m.pairingConfirmFailed(s, c.peerID, c.requestType, c.alias)
		}
	case respondToPairingCmd:
		m.defect(fmt.Sprintf("pairing respond did not complete: %s", status))
	case initiateBootstrappingCmd:
		if _, s, ok := m.resolveSession(c.clientID, c.sessionID); ok {
			s.callback.OnBootstrappingVerificationConfirmed(c.peerID, false, c.method)
		}
	case initiateDataPathCmd:
		m.dataPath.OnDataPathInitiateFail(status)
	default:
		m.defect(fmt.Sprintf("command %q did not complete: %s", cmd.commandKind(), status))
	}
}
