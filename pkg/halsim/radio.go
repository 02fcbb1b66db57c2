package halsim

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/aware-protocol/aware-go/pkg/hal"
	"github.com/aware-protocol/aware-go/pkg/pairing"
)

// Operation names for failure injection.
const (
	OpCapabilities   = "capabilities"
	OpEnable         = "enable"
	OpDisable        = "disable"
	OpPublish        = "publish"
	OpSubscribe      = "subscribe"
	OpSendMessage    = "sendMessage"
	OpSendMessageOta = "sendMessageOta"
	OpInterface      = "interface"
	OpDataPath       = "dataPath"
	OpPairing        = "pairing"
	OpBootstrapping  = "bootstrapping"
	OpSuspend        = "suspend"
	OpResume         = "resume"
)

// ErrRadioClosed is returned for commands issued after Close.
var ErrRadioClosed = errors.New("halsim: radio closed")

// ErrNoHandler is returned for commands issued before RegisterHandler.
var ErrNoHandler = errors.New("halsim: no event handler registered")

// simSession is one live publish or subscribe session on a radio.
type simSession struct {
	radio      *Radio
	pubSubID   uint8
	instanceID uint32
	isPublish  bool
	service    string
	ssi        []byte
	pairingCfg hal.PairingConfig
	suspended  bool
}

// pairingInfo builds the NIRA attribute a pairing-capable publisher
// advertises, when the radio has an identity key set.
func (s *simSession) pairingInfo() []byte {
	r := s.radio
	r.mu.Lock()
	nik, mac := r.nik, r.mac
	r.mu.Unlock()
	if !s.isPublish || !s.pairingCfg.PairingCacheEnabled || len(nik) == 0 {
		return nil
	}
	nonce := make([]byte, 8)
	if _, err := rand.Read(nonce); err != nil {
		panic(err)
	}
	return append(nonce, pairing.ResolutionTag(nik, nonce, mac)...)
}

// Radio simulates one device's firmware. Commands complete asynchronously
// on a dedicated dispatch goroutine, preserving order.
type Radio struct {
	name string
	air  *Air

	mu       sync.Mutex
	handler  hal.EventHandler
	caps     hal.Capabilities
	mac      net.HardwareAddr
	nik      []byte
	up       bool
	closed   bool
	delay    time.Duration
	failures map[string][]hal.Status
	drops    map[string]int

	nextPubSub uint8
	sessions   map[uint8]*simSession
	ndis       map[string]bool

	// pendingRemoteSends awaits follow-up acks from the bridge.
	pendingRemoteSends map[uint32]uint16

	events chan func(hal.EventHandler)
	done   chan struct{}
}

// NewRadio attaches a new radio to the medium.
func (a *Air) NewRadio(name string, caps hal.Capabilities) *Radio {
	r := &Radio{
		name:               name,
		air:                a,
		caps:               caps,
		mac:                randomMac(),
		failures:           make(map[string][]hal.Status),
		drops:              make(map[string]int),
		nextPubSub:         1,
		sessions:           make(map[uint8]*simSession),
		ndis:               make(map[string]bool),
		pendingRemoteSends: make(map[uint32]uint16),
		events:             make(chan func(hal.EventHandler), 128),
		done:               make(chan struct{}),
	}
	a.attach(r)
	go r.dispatch()
	return r
}

// DefaultCapabilities returns limits typical of a mid-range chipset.
func DefaultCapabilities() hal.Capabilities {
	return hal.Capabilities{
		MaxClusters:                       1,
		MaxPublishes:                      8,
		MaxSubscribes:                     8,
		MaxServiceNameLen:                 255,
		MaxMatchFilterLen:                 255,
		MaxTotalMatchFilterLen:            255,
		MaxServiceSpecificInfoLen:         1024,
		MaxExtendedServiceSpecificInfoLen: 1024,
		MaxNdiInterfaces:                  2,
		MaxNdpSessions:                    8,
		MaxAppInfoLen:                     255,
		MaxQueuedTransmitMessages:         16,
		MaxSubscribeInterfaceAddresses:    8,
		SupportedDataPathCipherSuites:     hal.CipherSuiteShared128,
		SupportedPairingCipherSuites:      hal.CipherSuitePublicKey128,
		InstantCommunicationSupported:     true,
		PairingSupported:                  true,
		SuspensionSupported:               true,
		Band6Supported:                    false,
	}
}

// RegisterHandler sets the event handler; required before any command.
func (r *Radio) RegisterHandler(h hal.EventHandler) {
	r.mu.Lock()
	r.handler = h
	r.mu.Unlock()
}

// SetIdentityKey gives the radio a pairing identity key so its
// pairing-capable publishes advertise a resolvable NIRA.
func (r *Radio) SetIdentityKey(nik []byte) {
	r.mu.Lock()
	r.nik = nik
	r.mu.Unlock()
}

// SetResponseDelay delays every subsequent event delivery by d.
func (r *Radio) SetResponseDelay(d time.Duration) {
	r.mu.Lock()
	r.delay = d
	r.mu.Unlock()
}

// FailNext makes the next command of the given operation complete with the
// given status instead of succeeding.
func (r *Radio) FailNext(op string, status hal.Status) {
	r.mu.Lock()
	r.failures[op] = append(r.failures[op], status)
	r.mu.Unlock()
}

// DropNext makes the next command of the given operation produce no
// response at all, for timeout testing.
func (r *Radio) DropNext(op string) {
	r.mu.Lock()
	r.drops[op]++
	r.mu.Unlock()
}

// Mac returns the radio's discovery MAC address.
func (r *Radio) Mac() net.HardwareAddr {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mac
}

// Close detaches the radio and stops event delivery.
func (r *Radio) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()
	r.air.dropRadioState(r)
	r.air.detach(r)
	close(r.done)
}

func (r *Radio) dispatch() {
	for {
		select {
		case <-r.done:
			return
		case fn := <-r.events:
			r.mu.Lock()
			h := r.handler
			d := r.delay
			r.mu.Unlock()
			if d > 0 {
				time.Sleep(d)
			}
			if h != nil {
				fn(h)
			}
		}
	}
}

// deliver queues an event for ordered delivery.
func (r *Radio) deliver(fn func(hal.EventHandler)) {
	select {
	case r.events <- fn:
	case <-r.done:
	}
}

// accept validates a command and consumes any injected drop or failure for
// the operation. The returned status is what the response should carry.
func (r *Radio) accept(op string) (status hal.Status, dropped bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, false, ErrRadioClosed
	}
	if r.handler == nil {
		return 0, false, ErrNoHandler
	}
	if r.drops[op] > 0 {
		r.drops[op]--
		return 0, true, nil
	}
	if queue := r.failures[op]; len(queue) > 0 {
		r.failures[op] = queue[1:]
		return queue[0], false, nil
	}
	return hal.StatusSuccess, false, nil
}

// The Locked helpers are called with the medium lock held; they take the
// radio lock themselves. The medium lock is always acquired first, so this
// ordering cannot deadlock.

func (r *Radio) subscribesLocked(service string) []*simSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*simSession
	for _, s := range r.sessions {
		if !s.isPublish && s.service == service {
			out = append(out, s)
		}
	}
	return out
}

func (r *Radio) publishesLocked(service string) []*simSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*simSession
	for _, s := range r.sessions {
		if s.isPublish && s.service == service {
			out = append(out, s)
		}
	}
	return out
}

func (r *Radio) sessionByInstanceLocked(instanceID uint32) (*simSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.instanceID == instanceID {
			return s, true
		}
	}
	return nil, false
}

// instanceForServiceLocked finds this radio's own session for a service, so
// the peer can attribute requests to a discovery instance.
func (r *Radio) instanceForServiceLocked(service string) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.service == service {
			return s.instanceID
		}
	}
	return 0
}

// hal.Api implementation.

var _ hal.Api = (*Radio)(nil)

func (r *Radio) GetCapabilities(txn uint16) error {
	status, dropped, err := r.accept(OpCapabilities)
	if err != nil || dropped {
		return err
	}
	caps := r.caps
	r.deliver(func(h hal.EventHandler) { h.OnCapabilitiesResponse(txn, status, caps) })
	return nil
}

func (r *Radio) EnableAndConfigure(txn uint16, config hal.Config, initial bool) error {
	status, dropped, err := r.accept(OpEnable)
	if err != nil || dropped {
		return err
	}
	r.mu.Lock()
	wasUp := r.up
	if status.IsSuccess() {
		r.up = true
	}
	mac := r.mac
	r.mu.Unlock()

	r.deliver(func(h hal.EventHandler) { h.OnConfigResponse(txn, status) })
	if status.IsSuccess() && !wasUp {
		clusterID := randomMac()
		r.deliver(func(h hal.EventHandler) {
			h.OnInterfaceAddressChange(mac)
			h.OnClusterChange(hal.ClusterEventStartedCluster, clusterID)
		})
	}
	return nil
}

func (r *Radio) Disable(txn uint16) error {
	status, dropped, err := r.accept(OpDisable)
	if err != nil || dropped {
		return err
	}
	r.mu.Lock()
	r.up = false
	sessions := r.sessions
	r.sessions = make(map[uint8]*simSession)
	r.mu.Unlock()
	for _, s := range sessions {
		r.air.removeSession(s)
	}
	r.air.dropRadioState(r)

	r.deliver(func(h hal.EventHandler) {
		h.OnDisableResponse(txn, status)
		h.OnAwareDown(hal.StatusSuccess)
	})
	return nil
}

func (r *Radio) Publish(txn uint16, pubSubID uint8, config hal.PublishConfig) error {
	return r.startSession(txn, OpPublish, pubSubID, true, config.ServiceName,
		config.ServiceSpecificInfo, config.Pairing)
}

func (r *Radio) Subscribe(txn uint16, pubSubID uint8, config hal.SubscribeConfig) error {
	return r.startSession(txn, OpSubscribe, pubSubID, false, config.ServiceName,
		config.ServiceSpecificInfo, config.Pairing)
}

func (r *Radio) startSession(txn uint16, op string, pubSubID uint8, isPublish bool,
	service string, ssi []byte, pairingCfg hal.PairingConfig) error {
	status, dropped, err := r.accept(op)
	if err != nil || dropped {
		return err
	}
	if !status.IsSuccess() {
		r.deliver(func(h hal.EventHandler) {
			h.OnSessionConfigResponse(txn, status, isPublish, 0)
		})
		return nil
	}

	r.mu.Lock()
	if !r.up {
		r.mu.Unlock()
		r.deliver(func(h hal.EventHandler) {
			h.OnSessionConfigResponse(txn, hal.StatusInternalFailure, isPublish, 0)
		})
		return nil
	}
	var s *simSession
	isUpdate := pubSubID != 0
	if isUpdate {
		existing, ok := r.sessions[pubSubID]
		if !ok || existing.isPublish != isPublish {
			r.mu.Unlock()
			r.deliver(func(h hal.EventHandler) {
				h.OnSessionConfigResponse(txn, hal.StatusInvalidSessionID, isPublish, 0)
			})
			return nil
		}
		existing.service = service
		existing.ssi = ssi
		existing.pairingCfg = pairingCfg
		s = existing
	} else {
		id := r.nextPubSub
		r.nextPubSub++
		s = &simSession{
			radio:      r,
			pubSubID:   id,
			instanceID: 0,
			isPublish:  isPublish,
			service:    service,
			ssi:        ssi,
			pairingCfg: pairingCfg,
		}
		r.sessions[id] = s
	}
	assigned := s.pubSubID
	r.mu.Unlock()

	if !isUpdate {
		s.instanceID = r.air.allocInstance()
	}
	r.deliver(func(h hal.EventHandler) {
		h.OnSessionConfigResponse(txn, hal.StatusSuccess, isPublish, assigned)
	})
	if !isUpdate {
		r.air.registerSession(s)
	}
	return nil
}

func (r *Radio) StopPublish(txn uint16, pubSubID uint8) error {
	return r.stopSession(txn, pubSubID, true)
}

func (r *Radio) StopSubscribe(txn uint16, pubSubID uint8) error {
	return r.stopSession(txn, pubSubID, false)
}

func (r *Radio) stopSession(txn uint16, pubSubID uint8, isPublish bool) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRadioClosed
	}
	s, ok := r.sessions[pubSubID]
	if ok && s.isPublish == isPublish {
		delete(r.sessions, pubSubID)
	} else {
		ok = false
	}
	r.mu.Unlock()
	if ok {
		r.air.removeSession(s)
	}
	r.deliver(func(h hal.EventHandler) {
		h.OnSessionConfigResponse(txn, hal.StatusSuccess, isPublish, pubSubID)
	})
	return nil
}

func (r *Radio) SendMessage(txn uint16, pubSubID uint8, requesterInstanceID uint32,
	dest net.HardwareAddr, message []byte, messageID int) error {
	status, dropped, err := r.accept(OpSendMessage)
	if err != nil || dropped {
		return err
	}
	if !status.IsSuccess() {
		r.deliver(func(h hal.EventHandler) { h.OnMessageSendQueuedResponse(txn, status) })
		return nil
	}

	r.mu.Lock()
	src, ok := r.sessions[pubSubID]
	r.mu.Unlock()
	if !ok {
		r.deliver(func(h hal.EventHandler) {
			h.OnMessageSendQueuedResponse(txn, hal.StatusInvalidSessionID)
		})
		return nil
	}

	r.deliver(func(h hal.EventHandler) { h.OnMessageSendQueuedResponse(txn, hal.StatusSuccess) })

	if otaStatus, otaDropped, _ := r.accept(OpSendMessageOta); otaDropped {
		return nil
	} else if !otaStatus.IsSuccess() {
		r.deliver(func(h hal.EventHandler) { h.OnMessageSendFail(txn, otaStatus) })
		return nil
	}

	sendID := r.air.allocSendID()
	r.mu.Lock()
	r.pendingRemoteSends[sendID] = txn
	r.mu.Unlock()

	if r.air.sendFollowup(src, requesterInstanceID, sendID, message) {
		// Local deliveries ack immediately; remote acks arrive through
		// the bridge via Air.AckFollowup.
		if _, _, local := r.air.sessionByInstance(requesterInstanceID); local {
			r.ackRemoteSend(sendID, true)
		}
	} else {
		r.ackRemoteSend(sendID, false)
	}
	return nil
}

// ackRemoteSend completes an over-the-air transmission, successfully or
// not. Reports whether this radio owned the transmission.
func (r *Radio) ackRemoteSend(sendID uint32, ok bool) bool {
	r.mu.Lock()
	txn, found := r.pendingRemoteSends[sendID]
	if found {
		delete(r.pendingRemoteSends, sendID)
	}
	r.mu.Unlock()
	if !found {
		return false
	}
	if ok {
		r.deliver(func(h hal.EventHandler) { h.OnMessageSendSuccess(txn) })
	} else {
		r.deliver(func(h hal.EventHandler) { h.OnMessageSendFail(txn, hal.StatusNoOtaAck) })
	}
	return true
}

func (r *Radio) CreateDataPathInterface(txn uint16, ifaceName string) error {
	status, dropped, err := r.accept(OpInterface)
	if err != nil || dropped {
		return err
	}
	r.mu.Lock()
	if status.IsSuccess() {
		if r.ndis[ifaceName] || len(r.ndis) >= r.caps.MaxNdiInterfaces {
			status = hal.StatusInvalidArgs
		} else {
			r.ndis[ifaceName] = true
		}
	}
	r.mu.Unlock()
	r.deliver(func(h hal.EventHandler) { h.OnDataPathInterfaceResponse(txn, status) })
	return nil
}

func (r *Radio) DeleteDataPathInterface(txn uint16, ifaceName string) error {
	status, dropped, err := r.accept(OpInterface)
	if err != nil || dropped {
		return err
	}
	r.mu.Lock()
	if status.IsSuccess() {
		if !r.ndis[ifaceName] {
			status = hal.StatusInvalidArgs
		} else {
			delete(r.ndis, ifaceName)
		}
	}
	r.mu.Unlock()
	r.deliver(func(h hal.EventHandler) { h.OnDataPathInterfaceResponse(txn, status) })
	return nil
}

func (r *Radio) InitiateDataPath(txn uint16, peerInstanceID uint32, peer net.HardwareAddr,
	ifaceName string, security hal.DataPathSecurity, appInfo []byte) error {
	status, dropped, err := r.accept(OpDataPath)
	if err != nil || dropped {
		return err
	}
	if !status.IsSuccess() {
		r.deliver(func(h hal.EventHandler) { h.OnInitiateDataPathResponse(txn, status, 0) })
		return nil
	}
	id, ok := r.air.beginDataPath(r, peerInstanceID, appInfo)
	if !ok {
		r.deliver(func(h hal.EventHandler) {
			h.OnInitiateDataPathResponse(txn, hal.StatusInvalidPeerID, 0)
		})
		return nil
	}
	r.deliver(func(h hal.EventHandler) { h.OnInitiateDataPathResponse(txn, hal.StatusSuccess, id) })
	return nil
}

func (r *Radio) RespondToDataPathRequest(txn uint16, accept bool, ndpID uint32,
	ifaceName string, security hal.DataPathSecurity, appInfo []byte) error {
	status, dropped, err := r.accept(OpDataPath)
	if err != nil || dropped {
		return err
	}
	if status.IsSuccess() && !r.air.hasNdp(ndpID) {
		status = hal.StatusInvalidNdpID
	}
	r.deliver(func(h hal.EventHandler) { h.OnRespondToDataPathResponse(txn, status) })
	if status.IsSuccess() {
		r.air.finishDataPath(ndpID, accept, appInfo)
	}
	return nil
}

func (r *Radio) EndDataPath(txn uint16, ndpID uint32) error {
	status, dropped, err := r.accept(OpDataPath)
	if err != nil || dropped {
		return err
	}
	if status.IsSuccess() && !r.air.endDataPath(ndpID) {
		status = hal.StatusInvalidNdpID
	}
	r.deliver(func(h hal.EventHandler) { h.OnEndDataPathResponse(txn, status) })
	return nil
}

func (r *Radio) InitiatePairing(txn uint16, peerInstanceID uint32, peer net.HardwareAddr,
	security hal.PairingSecurity, cipherSuites uint32) error {
	status, dropped, err := r.accept(OpPairing)
	if err != nil || dropped {
		return err
	}
	if !status.IsSuccess() {
		r.deliver(func(h hal.EventHandler) { h.OnPairingResponse(txn, status, 0) })
		return nil
	}
	id, ok := r.air.beginPairing(r, peerInstanceID, security)
	if !ok {
		r.deliver(func(h hal.EventHandler) {
			h.OnPairingResponse(txn, hal.StatusInvalidPeerID, 0)
		})
		return nil
	}
	r.deliver(func(h hal.EventHandler) { h.OnPairingResponse(txn, hal.StatusSuccess, id) })
	return nil
}

func (r *Radio) RespondToPairingRequest(txn uint16, pairingID uint32, accept bool,
	security hal.PairingSecurity, cipherSuites uint32) error {
	status, dropped, err := r.accept(OpPairing)
	if err != nil || dropped {
		return err
	}
	r.deliver(func(h hal.EventHandler) { h.OnPairingResponse(txn, status, pairingID) })
	if status.IsSuccess() {
		if !r.air.finishPairing(pairingID, accept, security) {
			r.deliver(func(h hal.EventHandler) {
				h.OnPairingConfirm(hal.PairingConfirmEvent{
					PairingID: pairingID,
					Accepted:  false,
					Reason:    hal.StatusInvalidPairingID,
				})
			})
		}
	}
	return nil
}

func (r *Radio) EndPairing(txn uint16, pairingID uint32) error {
	status, dropped, err := r.accept(OpPairing)
	if err != nil || dropped {
		return err
	}
	r.deliver(func(h hal.EventHandler) { h.OnEndPairingResponse(txn, status) })
	return nil
}

func (r *Radio) InitiateBootstrapping(txn uint16, peerInstanceID uint32, peer net.HardwareAddr,
	method uint32, cookie []byte) error {
	status, dropped, err := r.accept(OpBootstrapping)
	if err != nil || dropped {
		return err
	}
	if !status.IsSuccess() {
		r.deliver(func(h hal.EventHandler) { h.OnBootstrappingResponse(txn, status, 0) })
		return nil
	}
	id, ok := r.air.beginBootstrapping(r, peerInstanceID, method)
	if !ok {
		r.deliver(func(h hal.EventHandler) {
			h.OnBootstrappingResponse(txn, hal.StatusInvalidPeerID, 0)
		})
		return nil
	}
	r.deliver(func(h hal.EventHandler) { h.OnBootstrappingResponse(txn, hal.StatusSuccess, id) })
	return nil
}

func (r *Radio) RespondToBootstrapping(txn uint16, bootstrappingID uint32,
	code hal.BootstrappingResponseCode, comebackDelaySec int) error {
	status, dropped, err := r.accept(OpBootstrapping)
	if err != nil || dropped {
		return err
	}
	if status.IsSuccess() && !r.air.finishBootstrapping(bootstrappingID, code, comebackDelaySec) {
		status = hal.StatusInvalidBootstrappingID
	}
	r.deliver(func(h hal.EventHandler) { h.OnBootstrappingResponse(txn, status, bootstrappingID) })
	return nil
}

func (r *Radio) SuspendRequest(txn uint16, pubSubID uint8) error {
	status, dropped, err := r.accept(OpSuspend)
	if err != nil || dropped {
		return err
	}
	r.mu.Lock()
	s, ok := r.sessions[pubSubID]
	if status.IsSuccess() && !ok {
		status = hal.StatusInvalidSessionID
	}
	if status.IsSuccess() {
		s.suspended = true
	}
	r.mu.Unlock()
	final := status
	r.deliver(func(h hal.EventHandler) { h.OnSuspendResponse(txn, final) })
	if final.IsSuccess() {
		r.deliver(func(h hal.EventHandler) { h.OnSuspensionStatusChange(pubSubID, true) })
	}
	return nil
}

func (r *Radio) ResumeRequest(txn uint16, pubSubID uint8) error {
	status, dropped, err := r.accept(OpResume)
	if err != nil || dropped {
		return err
	}
	r.mu.Lock()
	s, ok := r.sessions[pubSubID]
	if status.IsSuccess() && !ok {
		status = hal.StatusInvalidSessionID
	}
	if status.IsSuccess() {
		s.suspended = false
	}
	r.mu.Unlock()
	final := status
	r.deliver(func(h hal.EventHandler) { h.OnResumeResponse(txn, final) })
	if final.IsSuccess() {
		r.deliver(func(h hal.EventHandler) { h.OnSuspensionStatusChange(pubSubID, false) })
	}
	return nil
}

// hasNdp reports whether an NDP exchange is known.
func (a *Air) hasNdp(id uint32) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.ndps[id]
	return ok
}

func (r *Radio) String() string {
	return fmt.Sprintf("halsim.Radio(%s)", r.name)
}
