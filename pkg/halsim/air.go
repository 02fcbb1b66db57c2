package halsim

import (
	"crypto/rand"
	"net"
	"sync"

	"github.com/aware-protocol/aware-go/pkg/hal"
	"github.com/aware-protocol/aware-go/pkg/pairing"
)

// Bridge connects an Air to remote peers. Air invokes it for local session
// changes and for follow-ups addressed to remote sessions; implementations
// feed remote state back through AddRemoteSession and related methods.
type Bridge interface {
	// LocalSessionAdded / LocalSessionRemoved mirror local publish
	// sessions to remote peers.
	LocalSessionAdded(service string, instanceID uint32, ssi []byte)
	LocalSessionRemoved(instanceID uint32)

	// LocalFollowup carries a follow-on message to a remote session.
	// sendID identifies the transmission for the later ack.
	LocalFollowup(destInstanceID, srcInstanceID uint32, sendID uint32, message []byte) bool
}

// matchRecord remembers which subscriber saw which publisher, so removing a
// publish session can expire the match.
type matchRecord struct {
	subscriber *Radio
	subPubSub  uint8
	pubInst    uint32
}

// pairingExchange is one in-flight pairing across two radios.
type pairingExchange struct {
	id        uint32
	initiator *Radio
	responder *Radio
	initSec   hal.PairingSecurity
}

// bootstrapExchange is one in-flight bootstrapping request.
type bootstrapExchange struct {
	id        uint32
	initiator *Radio
	responder *Radio
	method    uint32
}

// ndpExchange is one in-flight or established data path.
type ndpExchange struct {
	id        uint32
	initiator *Radio
	responder *Radio
}

// Air is the shared medium radios attach to. All exported methods are safe
// for concurrent use.
type Air struct {
	mu sync.Mutex

	radios       map[string]*Radio
	nextInstance uint32
	nextSendID   uint32

	matches    []matchRecord
	pairings   map[uint32]*pairingExchange
	bootstraps map[uint32]*bootstrapExchange
	ndps       map[uint32]*ndpExchange

	nextPairingID   uint32
	nextBootstrapID uint32
	nextNdpID       uint32

	bridge Bridge

	// remote holds sessions mirrored from other processes, keyed by the
	// locally assigned instance ID.
	remote map[uint32]*remoteSession
}

// remoteSession is a publish session announced by another process.
type remoteSession struct {
	instanceID uint32
	service    string
	ssi        []byte
	mac        net.HardwareAddr
}

// NewAir creates an empty medium.
func NewAir() *Air {
	return &Air{
		radios:          make(map[string]*Radio),
		nextInstance:    1,
		nextSendID:      1,
		pairings:        make(map[uint32]*pairingExchange),
		bootstraps:      make(map[uint32]*bootstrapExchange),
		ndps:            make(map[uint32]*ndpExchange),
		nextPairingID:   1,
		nextBootstrapID: 1,
		nextNdpID:       1,
		remote:          make(map[uint32]*remoteSession),
	}
}

// SetBridge attaches a cross-process bridge. Must be called before any
// session is registered.
func (a *Air) SetBridge(b Bridge) {
	a.mu.Lock()
	a.bridge = b
	a.mu.Unlock()
}

func (a *Air) attach(r *Radio) {
	a.mu.Lock()
	a.radios[r.name] = r
	a.mu.Unlock()
}

func (a *Air) detach(r *Radio) {
	a.mu.Lock()
	delete(a.radios, r.name)
	a.mu.Unlock()
}

func (a *Air) allocInstance() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.nextInstance
	a.nextInstance++
	return id
}

// allocSendID issues medium-wide unique follow-up transmission IDs, so the
// bridge can route acks without knowing which radio sent the message.
func (a *Air) allocSendID() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.nextSendID
	a.nextSendID++
	return id
}

// AckFollowup completes a bridged follow-up transmission. The bridge calls
// it when the remote peer acknowledges, or when waiting for the ack timed
// out.
func (a *Air) AckFollowup(sendID uint32, ok bool) {
	a.mu.Lock()
	radios := make([]*Radio, 0, len(a.radios))
	for _, r := range a.radios {
		radios = append(radios, r)
	}
	a.mu.Unlock()
	for _, r := range radios {
		if r.ackRemoteSend(sendID, ok) {
			return
		}
	}
}

func randomMac() net.HardwareAddr {
	mac := make(net.HardwareAddr, 6)
	if _, err := rand.Read(mac); err != nil {
		panic(err)
	}
	// Locally administered unicast.
	mac[0] = mac[0]&0xFE | 0x02
	return mac
}

// registerSession announces a new session on the medium and emits matches
// for every counterpart with the same service name.
func (a *Air) registerSession(s *simSession) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if s.isPublish {
		for _, other := range a.radios {
			if other == s.radio {
				continue
			}
			for _, sub := range other.subscribesLocked(s.service) {
				a.emitMatchLocked(other, sub, s.instanceID, s.radio.mac, s.ssi, s.pairingInfo())
			}
		}
		if a.bridge != nil {
			a.bridge.LocalSessionAdded(s.service, s.instanceID, s.ssi)
		}
		return
	}

	for _, other := range a.radios {
		if other == s.radio {
			continue
		}
		for _, pub := range other.publishesLocked(s.service) {
			a.emitMatchLocked(s.radio, s, pub.instanceID, other.mac, pub.ssi, pub.pairingInfo())
		}
	}
	for _, rs := range a.remote {
		if rs.service == s.service {
			a.emitMatchLocked(s.radio, s, rs.instanceID, rs.mac, rs.ssi, nil)
		}
	}
}

func (a *Air) emitMatchLocked(subscriber *Radio, sub *simSession, pubInst uint32,
	pubMac net.HardwareAddr, ssi []byte, nira []byte) {
	a.matches = append(a.matches, matchRecord{
		subscriber: subscriber,
		subPubSub:  sub.pubSubID,
		pubInst:    pubInst,
	})
	event := hal.MatchEvent{
		PubSubID:            sub.pubSubID,
		RequesterInstanceID: pubInst,
		PeerMac:             pubMac,
		ServiceSpecificInfo: ssi,
		Nira:                nira,
	}
	subscriber.deliver(func(h hal.EventHandler) { h.OnMatch(event) })
}

// removeSession withdraws a session, expiring any matches it produced.
func (a *Air) removeSession(s *simSession) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if s.isPublish {
		kept := a.matches[:0]
		for _, rec := range a.matches {
			if rec.pubInst == s.instanceID {
				rec := rec
				rec.subscriber.deliver(func(h hal.EventHandler) {
					h.OnMatchExpired(rec.subPubSub, rec.pubInst)
				})
				continue
			}
			kept = append(kept, rec)
		}
		a.matches = kept
		if a.bridge != nil {
			a.bridge.LocalSessionRemoved(s.instanceID)
		}
		return
	}

	kept := a.matches[:0]
	for _, rec := range a.matches {
		if rec.subscriber == s.radio && rec.subPubSub == s.pubSubID {
			continue
		}
		kept = append(kept, rec)
	}
	a.matches = kept
}

// sessionByInstance finds a local session by its discovery instance ID.
func (a *Air) sessionByInstance(instanceID uint32) (*Radio, *simSession, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sessionByInstanceLocked(instanceID)
}

func (a *Air) sessionByInstanceLocked(instanceID uint32) (*Radio, *simSession, bool) {
	for _, r := range a.radios {
		if s, ok := r.sessionByInstanceLocked(instanceID); ok {
			return r, s, true
		}
	}
	return nil, nil, false
}

// AddRemoteSession mirrors a publish session announced by another process
// and sends matches to interested local subscribers. The returned instance
// ID identifies the remote session locally.
func (a *Air) AddRemoteSession(service string, ssi []byte) uint32 {
	id := a.allocInstance()
	a.mu.Lock()
	defer a.mu.Unlock()
	rs := &remoteSession{instanceID: id, service: service, ssi: ssi, mac: randomMac()}
	a.remote[id] = rs
	for _, r := range a.radios {
		for _, sub := range r.subscribesLocked(service) {
			a.emitMatchLocked(r, sub, rs.instanceID, rs.mac, rs.ssi, nil)
		}
	}
	return id
}

// RemoveRemoteSession withdraws a mirrored session.
func (a *Air) RemoveRemoteSession(instanceID uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.remote, instanceID)
	kept := a.matches[:0]
	for _, rec := range a.matches {
		if rec.pubInst == instanceID {
			rec := rec
			rec.subscriber.deliver(func(h hal.EventHandler) {
				h.OnMatchExpired(rec.subPubSub, rec.pubInst)
			})
			continue
		}
		kept = append(kept, rec)
	}
	a.matches = kept
}

// DeliverRemoteFollowup hands a follow-on message received from another
// process to the local session addressed by destInstanceID.
func (a *Air) DeliverRemoteFollowup(destInstanceID, srcInstanceID uint32, message []byte) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, s, ok := a.sessionByInstanceLocked(destInstanceID)
	if !ok {
		return false
	}
	srcMac := randomMac()
	if rs, found := a.remote[srcInstanceID]; found {
		srcMac = rs.mac
	}
	msg := hal.ReceivedMessage{
		PubSubID:            s.pubSubID,
		RequesterInstanceID: srcInstanceID,
		PeerMac:             srcMac,
		Message:             message,
	}
	r.deliver(func(h hal.EventHandler) { h.OnMessageReceived(msg) })
	return true
}

// sendFollowup routes a follow-on message to the session owning the
// destination instance ID, locally or across the bridge. Returns false when
// no such destination exists.
func (a *Air) sendFollowup(src *simSession, destInstanceID, sendID uint32, message []byte) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if dest, s, ok := a.sessionByInstanceLocked(destInstanceID); ok {
		msg := hal.ReceivedMessage{
			PubSubID:            s.pubSubID,
			RequesterInstanceID: src.instanceID,
			PeerMac:             src.radio.mac,
			Message:             message,
		}
		dest.deliver(func(h hal.EventHandler) { h.OnMessageReceived(msg) })
		return true
	}
	if _, ok := a.remote[destInstanceID]; ok && a.bridge != nil {
		return a.bridge.LocalFollowup(destInstanceID, src.instanceID, sendID, message)
	}
	return false
}

// beginPairing records an exchange and notifies the peer radio.
func (a *Air) beginPairing(initiator *Radio, peerInstanceID uint32, sec hal.PairingSecurity) (uint32, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	responder, target, ok := a.sessionByInstanceLocked(peerInstanceID)
	if !ok {
		return 0, false
	}
	id := a.nextPairingID
	a.nextPairingID++
	a.pairings[id] = &pairingExchange{
		id:        id,
		initiator: initiator,
		responder: responder,
		initSec:   sec,
	}

	initInst := initiator.instanceForServiceLocked(target.service)
	var nira []byte
	if sec.RequestType == hal.PairingRequestTypeVerification && len(sec.Nik) > 0 {
		nonce := make([]byte, 8)
		if _, err := rand.Read(nonce); err != nil {
			panic(err)
		}
		nira = append(nonce, pairing.ResolutionTag(sec.Nik, nonce, initiator.mac)...)
	}
	event := hal.PairingRequestEvent{
		PubSubID:            target.pubSubID,
		RequesterInstanceID: initInst,
		PeerMac:             initiator.mac,
		PairingID:           id,
		RequestType:         sec.RequestType,
		CacheEnabled:        true,
		Nira:                nira,
	}
	responder.deliver(func(h hal.EventHandler) { h.OnPairingRequest(event) })
	return id, true
}

// finishPairing completes an exchange and sends confirms to both sides.
func (a *Air) finishPairing(id uint32, accept bool, respSec hal.PairingSecurity) bool {
	a.mu.Lock()
	ex, ok := a.pairings[id]
	if ok {
		delete(a.pairings, id)
	}
	a.mu.Unlock()
	if !ok {
		return false
	}

	var npk []byte
	if accept {
		secret := []byte(ex.initSec.Password)
		if len(secret) == 0 {
			secret = ex.initSec.Pmk
		}
		derived, err := pairing.DeriveNpk(secret, ex.initSec.Nik, respSec.Nik)
		if err == nil {
			npk = derived
		}
	}
	cache := len(ex.initSec.Nik) > 0 && len(respSec.Nik) > 0

	initConfirm := hal.PairingConfirmEvent{
		PairingID:    id,
		Accepted:     accept,
		Reason:       pairingReason(accept),
		RequestType:  ex.initSec.RequestType,
		CacheEnabled: cache,
		Npk:          npk,
		PeerNik:      respSec.Nik,
	}
	respConfirm := hal.PairingConfirmEvent{
		PairingID:    id,
		Accepted:     accept,
		Reason:       pairingReason(accept),
		RequestType:  ex.initSec.RequestType,
		CacheEnabled: cache,
		Npk:          npk,
		PeerNik:      ex.initSec.Nik,
	}
	ex.initiator.deliver(func(h hal.EventHandler) { h.OnPairingConfirm(initConfirm) })
	ex.responder.deliver(func(h hal.EventHandler) { h.OnPairingConfirm(respConfirm) })
	return true
}

func pairingReason(accept bool) hal.Status {
	if accept {
		return hal.StatusSuccess
	}
	return hal.StatusNotAllowed
}

// beginBootstrapping records an exchange and notifies the peer radio.
func (a *Air) beginBootstrapping(initiator *Radio, peerInstanceID, method uint32) (uint32, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	responder, target, ok := a.sessionByInstanceLocked(peerInstanceID)
	if !ok {
		return 0, false
	}
	id := a.nextBootstrapID
	a.nextBootstrapID++
	a.bootstraps[id] = &bootstrapExchange{
		id:        id,
		initiator: initiator,
		responder: responder,
		method:    method,
	}
	event := hal.BootstrappingRequestEvent{
		PubSubID:            target.pubSubID,
		RequesterInstanceID: initiator.instanceForServiceLocked(target.service),
		PeerMac:             initiator.mac,
		BootstrappingID:     id,
		Method:              method,
	}
	responder.deliver(func(h hal.EventHandler) { h.OnBootstrappingRequest(event) })
	return id, true
}

// finishBootstrapping sends the confirm to the initiator.
func (a *Air) finishBootstrapping(id uint32, code hal.BootstrappingResponseCode, delaySec int) bool {
	a.mu.Lock()
	ex, ok := a.bootstraps[id]
	if ok {
		delete(a.bootstraps, id)
	}
	a.mu.Unlock()
	if !ok {
		return false
	}
	confirm := hal.BootstrappingConfirmEvent{
		BootstrappingID:  id,
		ResponseCode:     code,
		Reason:           hal.StatusSuccess,
		ComebackDelaySec: delaySec,
	}
	ex.initiator.deliver(func(h hal.EventHandler) { h.OnBootstrappingConfirm(confirm) })
	return true
}

// beginDataPath records an NDP request and notifies the peer radio.
func (a *Air) beginDataPath(initiator *Radio, peerInstanceID uint32, appInfo []byte) (uint32, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	responder, target, ok := a.sessionByInstanceLocked(peerInstanceID)
	if !ok {
		return 0, false
	}
	id := a.nextNdpID
	a.nextNdpID++
	a.ndps[id] = &ndpExchange{id: id, initiator: initiator, responder: responder}
	event := hal.DataPathRequestEvent{
		PubSubID: target.pubSubID,
		PeerMac:  initiator.mac,
		NdpID:    id,
		AppInfo:  appInfo,
	}
	responder.deliver(func(h hal.EventHandler) { h.OnDataPathRequest(event) })
	return id, true
}

// finishDataPath confirms or rejects an NDP on both sides.
func (a *Air) finishDataPath(id uint32, accept bool, appInfo []byte) bool {
	a.mu.Lock()
	ex, ok := a.ndps[id]
	if ok && !accept {
		delete(a.ndps, id)
	}
	a.mu.Unlock()
	if !ok {
		return false
	}
	reason := hal.StatusSuccess
	if !accept {
		reason = hal.StatusNotAllowed
	}
	channels := []hal.DataPathChannelInfo{{ChannelFreqMHz: 5745, Bandwidth: 80, NumSpatialStreams: 2}}
	if !accept {
		channels = nil
	}
	initConfirm := hal.DataPathConfirmEvent{
		NdpID:        id,
		PeerNdiMac:   ex.responder.mac,
		Accepted:     accept,
		Reason:       reason,
		AppInfo:      appInfo,
		ChannelInfos: channels,
	}
	respConfirm := hal.DataPathConfirmEvent{
		NdpID:        id,
		PeerNdiMac:   ex.initiator.mac,
		Accepted:     accept,
		Reason:       reason,
		AppInfo:      appInfo,
		ChannelInfos: channels,
	}
	ex.initiator.deliver(func(h hal.EventHandler) { h.OnDataPathConfirm(initConfirm) })
	ex.responder.deliver(func(h hal.EventHandler) { h.OnDataPathConfirm(respConfirm) })
	return true
}

// endDataPath tears an NDP down on both sides.
func (a *Air) endDataPath(id uint32) bool {
	a.mu.Lock()
	ex, ok := a.ndps[id]
	if ok {
		delete(a.ndps, id)
	}
	a.mu.Unlock()
	if !ok {
		return false
	}
	ex.initiator.deliver(func(h hal.EventHandler) { h.OnDataPathEnd(id) })
	ex.responder.deliver(func(h hal.EventHandler) { h.OnDataPathEnd(id) })
	return true
}

// dropRadioState expires matches and exchanges involving a radio that went
// down.
func (a *Air) dropRadioState(r *Radio) {
	a.mu.Lock()
	defer a.mu.Unlock()
	kept := a.matches[:0]
	for _, rec := range a.matches {
		if rec.subscriber == r {
			continue
		}
		kept = append(kept, rec)
	}
	a.matches = kept
	for id, ex := range a.pairings {
		if ex.initiator == r || ex.responder == r {
			delete(a.pairings, id)
		}
	}
	for id, ex := range a.bootstraps {
		if ex.initiator == r || ex.responder == r {
			delete(a.bootstraps, id)
		}
	}
	for id, ex := range a.ndps {
		if ex.initiator == r || ex.responder == r {
			delete(a.ndps, id)
		}
	}
}
