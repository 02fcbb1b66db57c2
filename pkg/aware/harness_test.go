package aware_test

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/aware-protocol/aware-go/pkg/aware"
	"github.com/aware-protocol/aware-go/pkg/hal"
	"github.com/aware-protocol/aware-go/pkg/pairing"
	"github.com/aware-protocol/aware-go/pkg/wakeup"
)

const waitTimeout = 2 * time.Second

// settleDelay is how long negative assertions wait for an event that must
// not arrive.
const settleDelay = 50 * time.Millisecond

var peerMac = net.HardwareAddr{0x02, 0xaa, 0xbb, 0xcc, 0xdd, 0x01}

// halCall records one firmware command issued by the state machine.
type halCall struct {
	op      string
	txn     uint16
	initial bool

	config    hal.Config
	pubSubID  uint8
	publish   hal.PublishConfig
	subscribe hal.SubscribeConfig

	instanceID uint32
	mac        net.HardwareAddr
	message    []byte
	messageID  int

	ifaceName       string
	ndpID           uint32
	accept          bool
	pairingID       uint32
	pairingSecurity hal.PairingSecurity
	method          uint32
	bootstrappingID uint32
	code            hal.BootstrappingResponseCode
}

// fakeHal records every accepted command. A per-op error can be armed to
// exercise the synchronous rejection paths.
type fakeHal struct {
	mu      sync.Mutex
	rejects map[string]error
	calls   chan halCall
}

func newFakeHal() *fakeHal {
	return &fakeHal{
		rejects: make(map[string]error),
		calls:   make(chan halCall, 64),
	}
}

func (f *fakeHal) rejectNext(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejects[op] = err
}

func (f *fakeHal) record(c halCall) error {
	f.mu.Lock()
	err, armed := f.rejects[c.op]
	if armed {
		delete(f.rejects, c.op)
	}
	f.mu.Unlock()
	if armed {
		return err
	}
	f.calls <- c
	return nil
}

func (f *fakeHal) GetCapabilities(txn uint16) error {
	return f.record(halCall{op: "getCapabilities", txn: txn})
}

func (f *fakeHal) EnableAndConfigure(txn uint16, config hal.Config, initial bool) error {
	return f.record(halCall{op: "enable", txn: txn, config: config, initial: initial})
}

func (f *fakeHal) Disable(txn uint16) error {
	return f.record(halCall{op: "disable", txn: txn})
}

func (f *fakeHal) Publish(txn uint16, pubSubID uint8, config hal.PublishConfig) error {
	return f.record(halCall{op: "publish", txn: txn, pubSubID: pubSubID, publish: config})
}

func (f *fakeHal) Subscribe(txn uint16, pubSubID uint8, config hal.SubscribeConfig) error {
	return f.record(halCall{op: "subscribe", txn: txn, pubSubID: pubSubID, subscribe: config})
}

func (f *fakeHal) StopPublish(txn uint16, pubSubID uint8) error {
	return f.record(halCall{op: "stopPublish", txn: txn, pubSubID: pubSubID})
}

func (f *fakeHal) StopSubscribe(txn uint16, pubSubID uint8) error {
	return f.record(halCall{op: "stopSubscribe", txn: txn, pubSubID: pubSubID})
}

func (f *fakeHal) SendMessage(txn uint16, pubSubID uint8, requesterInstanceID uint32,
	dest net.HardwareAddr, message []byte, messageID int) error {
	return f.record(halCall{
		op:         "sendMessage",
		txn:        txn,
		pubSubID:   pubSubID,
		instanceID: requesterInstanceID,
		mac:        dest,
		message:    message,
		messageID:  messageID,
	})
}

func (f *fakeHal) CreateDataPathInterface(txn uint16, ifaceName string) error {
	return f.record(halCall{op: "createInterface", txn: txn, ifaceName: ifaceName})
}

func (f *fakeHal) DeleteDataPathInterface(txn uint16, ifaceName string) error {
	return f.record(halCall{op: "deleteInterface", txn: txn, ifaceName: ifaceName})
}

func (f *fakeHal) InitiateDataPath(txn uint16, peerInstanceID uint32, peer net.HardwareAddr,
	ifaceName string, security hal.DataPathSecurity, appInfo []byte) error {
	return f.record(halCall{
		op: "initiateDataPath", txn: txn, instanceID: peerInstanceID, mac: peer, ifaceName: ifaceName,
	})
}

func (f *fakeHal) RespondToDataPathRequest(txn uint16, accept bool, ndpID uint32,
	ifaceName string, security hal.DataPathSecurity, appInfo []byte) error {
	return f.record(halCall{op: "respondDataPath", txn: txn, accept: accept, ndpID: ndpID, ifaceName: ifaceName})
}

func (f *fakeHal) EndDataPath(txn uint16, ndpID uint32) error {
	return f.record(halCall{op: "endDataPath", txn: txn, ndpID: ndpID})
}

func (f *fakeHal) InitiatePairing(txn uint16, peerInstanceID uint32, peer net.HardwareAddr,
	security hal.PairingSecurity, cipherSuites uint32) error {
	return f.record(halCall{
		op: "initiatePairing", txn: txn, instanceID: peerInstanceID, mac: peer, pairingSecurity: security,
	})
}

func (f *fakeHal) RespondToPairingRequest(txn uint16, pairingID uint32, accept bool,
	security hal.PairingSecurity, cipherSuites uint32) error {
	return f.record(halCall{
		op: "respondPairing", txn: txn, pairingID: pairingID, accept: accept, pairingSecurity: security,
	})
}

func (f *fakeHal) EndPairing(txn uint16, pairingID uint32) error {
	return f.record(halCall{op: "endPairing", txn: txn, pairingID: pairingID})
}

func (f *fakeHal) InitiateBootstrapping(txn uint16, peerInstanceID uint32, peer net.HardwareAddr,
	method uint32, cookie []byte) error {
	return f.record(halCall{op: "initiateBootstrapping", txn: txn, instanceID: peerInstanceID, mac: peer, method: method})
}

func (f *fakeHal) RespondToBootstrapping(txn uint16, bootstrappingID uint32,
	code hal.BootstrappingResponseCode, comebackDelaySec int) error {
	return f.record(halCall{op: "respondBootstrapping", txn: txn, bootstrappingID: bootstrappingID, code: code})
}

func (f *fakeHal) SuspendRequest(txn uint16, pubSubID uint8) error {
	return f.record(halCall{op: "suspend", txn: txn, pubSubID: pubSubID})
}

func (f *fakeHal) ResumeRequest(txn uint16, pubSubID uint8) error {
	return f.record(halCall{op: "resume", txn: txn, pubSubID: pubSubID})
}

var _ hal.Api = (*fakeHal)(nil)

// testCaps is what the fake firmware reports on a capabilities query.
func testCaps() hal.Capabilities {
	return hal.Capabilities{
		MaxClusters:                   1,
		MaxPublishes:                  8,
		MaxSubscribes:                 8,
		MaxServiceNameLen:             255,
		MaxServiceSpecificInfoLen:     1024,
		MaxNdiInterfaces:              2,
		MaxNdpSessions:                4,
		MaxQueuedTransmitMessages:     16,
		SupportedDataPathCipherSuites: hal.CipherSuiteShared128,
		SupportedPairingCipherSuites:  hal.CipherSuitePublicKey128,
		PairingSupported:              true,
		SuspensionSupported:           true,
	}
}

// env wires a state manager to the fake firmware and a manual scheduler.
type env struct {
	t        *testing.T
	hal      *fakeHal
	sched    *wakeup.Scheduler
	pairing  *pairing.Manager
	dataPath *dataPathCb
	mgr      *aware.StateManager
	events   hal.EventHandler
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		t:        t,
		hal:      newFakeHal(),
		sched:    wakeup.NewManualScheduler(),
		pairing:  pairing.NewManager(),
		dataPath: newDataPathCb(),
	}
	e.mgr = aware.NewStateManager(aware.Options{
		Hal:       e.hal,
		Scheduler: e.sched,
		Pairing:   e.pairing,
		DataPath:  e.dataPath,
	})
	e.events = e.mgr.Events()
	e.mgr.Start()
	t.Cleanup(e.mgr.Stop)
	return e
}

// expectCall waits for the next firmware command and checks its op.
func (e *env) expectCall(op string) halCall {
	e.t.Helper()
	select {
	case c := <-e.hal.calls:
		if c.op != op {
			e.t.Fatalf("firmware call = %q, want %q", c.op, op)
		}
		return c
	case <-time.After(waitTimeout):
		e.t.Fatalf("timed out waiting for firmware call %q", op)
		return halCall{}
	}
}

// expectNoCall asserts the firmware stays quiet for a short settle window.
func (e *env) expectNoCall() {
	e.t.Helper()
	select {
	case c := <-e.hal.calls:
		e.t.Fatalf("unexpected firmware call %q", c.op)
	case <-time.After(settleDelay):
	}
}

// enableUsage turns usage on and answers the capabilities query it triggers.
func (e *env) enableUsage() {
	e.t.Helper()
	e.mgr.EnableUsage()
	c := e.expectCall("getCapabilities")
	e.events.OnCapabilitiesResponse(c.txn, hal.StatusSuccess, testCaps())
}

// attach runs a full connect handshake and returns the client ID.
func (e *env) attach(cfg aware.ConfigRequest, cb *clientCb) int {
	e.t.Helper()
	id, err := e.mgr.Connect(1000, 1, "com.example.app", "", cfg, false, false, cb)
	if err != nil {
		e.t.Fatalf("Connect: %v", err)
	}
	c := e.expectCall("enable")
	e.events.OnConfigResponse(c.txn, hal.StatusSuccess)
	if got := recv(e.t, cb.success, "connect success"); got != id {
		e.t.Fatalf("OnConnectSuccess(%d), want %d", got, id)
	}
	return id
}

// startSession runs a publish or subscribe handshake and returns the session
// ID the client sees.
func (e *env) startSession(clientID int, isPublish bool, pubSubID uint8,
	cfg any, cb *sessionCb) int {
	e.t.Helper()
	var op string
	var err error
	switch v := cfg.(type) {
	case hal.PublishConfig:
		op = "publish"
		err = e.mgr.Publish(clientID, v, cb)
	case hal.SubscribeConfig:
		op = "subscribe"
		err = e.mgr.Subscribe(clientID, v, cb)
	default:
		e.t.Fatalf("bad session config %T", cfg)
	}
	if err != nil {
		e.t.Fatalf("session start: %v", err)
	}
	c := e.expectCall(op)
	e.events.OnSessionConfigResponse(c.txn, hal.StatusSuccess, isPublish, pubSubID)
	return recv(e.t, cb.started, "session started")
}

// matchPeer injects a discovery match and returns the allocated peer handle.
func (e *env) matchPeer(cb *sessionCb, pubSubID uint8, instanceID uint32) int {
	e.t.Helper()
	e.events.OnMatch(hal.MatchEvent{
		PubSubID:            pubSubID,
		RequesterInstanceID: instanceID,
		PeerMac:             peerMac,
	})
	return recv(e.t, cb.match, "match").peerID
}

// settle round-trips a repeat discovery match through the manager goroutine.
// Timers are armed while the loop handles a response, so a test that posted
// a response must wait for the loop to catch up before firing the manual
// scheduler, or the snapshot misses the freshly armed wake-up.
func (e *env) settle(cb *sessionCb, pubSubID uint8, instanceID uint32) {
	e.t.Helper()
	e.events.OnMatch(hal.MatchEvent{
		PubSubID:            pubSubID,
		RequesterInstanceID: instanceID,
		PeerMac:             peerMac,
	})
	recv(e.t, cb.match, "repeat match")
}

// awaitPending blocks until the manual scheduler holds a live wake-up. Only
// safe when no earlier command timeout can still be armed.
func (e *env) awaitPending() {
	e.t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for e.sched.PendingCount() == 0 {
		if time.Now().After(deadline) {
			e.t.Fatal("timed out waiting for a scheduled wake-up")
		}
		time.Sleep(time.Millisecond)
	}
}

// recv waits for one event on ch.
func recv[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(waitTimeout):
		t.Fatalf("timed out waiting for %s", what)
		panic("unreachable")
	}
}

// expectSilent asserts no event arrives on ch within the settle window.
func expectSilent[T any](t *testing.T, ch <-chan T, what string) {
	t.Helper()
	select {
	case <-ch:
		t.Fatalf("unexpected %s", what)
	case <-time.After(settleDelay):
	}
}

// clientCb records attach-level callbacks on channels.
type clientCb struct {
	success    chan int
	fail       chan hal.Status
	identity   chan net.HardwareAddr
	cluster    chan hal.ClusterEventType
	terminated chan struct{}
}

func newClientCb() *clientCb {
	return &clientCb{
		success:    make(chan int, 4),
		fail:       make(chan hal.Status, 4),
		identity:   make(chan net.HardwareAddr, 4),
		cluster:    make(chan hal.ClusterEventType, 4),
		terminated: make(chan struct{}, 4),
	}
}

func (c *clientCb) OnConnectSuccess(clientID int)   { c.success <- clientID }
func (c *clientCb) OnConnectFail(reason hal.Status) { c.fail <- reason }
func (c *clientCb) OnIdentityChanged(mac net.HardwareAddr) {
	c.identity <- mac
}
func (c *clientCb) OnClusterChange(eventType hal.ClusterEventType, clusterID net.HardwareAddr) {
	c.cluster <- eventType
}
func (c *clientCb) OnAttachTerminated() { c.terminated <- struct{}{} }

var _ aware.ClientCallback = (*clientCb)(nil)

type matchEvt struct {
	peerID     int
	ssi        []byte
	distanceMM int
	alias      string
}

type receivedEvt struct {
	peerID  int
	message []byte
}

type sendFailEvt struct {
	messageID int
	reason    hal.Status
}

type pairReqEvt struct {
	peerID    int
	pairingID uint32
}

type pairConfirmEvt struct {
	peerID       int
	accepted     bool
	alias        string
	verification bool
}

type bootConfirmEvt struct {
	peerID   int
	accepted bool
	method   uint32
}

// sessionCb records session-level callbacks on channels.
type sessionCb struct {
	started     chan int
	configOK    chan struct{}
	configFail  chan hal.Status
	terminated  chan hal.Status
	suspendOK   chan struct{}
	suspendFail chan hal.Status
	resumeFail  chan hal.Status
	suspChange  chan bool
	match       chan matchEvt
	expired     chan int
	received    chan receivedEvt
	sendOK      chan int
	sendFail    chan sendFailEvt
	pairReq     chan pairReqEvt
	pairConfirm chan pairConfirmEvt
	bootConfirm chan bootConfirmEvt
}

func newSessionCb() *sessionCb {
	return &sessionCb{
		started:     make(chan int, 4),
		configOK:    make(chan struct{}, 4),
		configFail:  make(chan hal.Status, 4),
		terminated:  make(chan hal.Status, 4),
		suspendOK:   make(chan struct{}, 4),
		suspendFail: make(chan hal.Status, 4),
		resumeFail:  make(chan hal.Status, 4),
		suspChange:  make(chan bool, 4),
		match:       make(chan matchEvt, 16),
		expired:     make(chan int, 16),
		received:    make(chan receivedEvt, 16),
		sendOK:      make(chan int, 64),
		sendFail:    make(chan sendFailEvt, 64),
		pairReq:     make(chan pairReqEvt, 4),
		pairConfirm: make(chan pairConfirmEvt, 4),
		bootConfirm: make(chan bootConfirmEvt, 4),
	}
}

func (c *sessionCb) OnSessionStarted(sessionID int)        { c.started <- sessionID }
func (c *sessionCb) OnSessionConfigSuccess()               { c.configOK <- struct{}{} }
func (c *sessionCb) OnSessionConfigFail(reason hal.Status) { c.configFail <- reason }
func (c *sessionCb) OnSessionTerminated(reason hal.Status) { c.terminated <- reason }
func (c *sessionCb) OnSessionSuspendSucceeded()            { c.suspendOK <- struct{}{} }
func (c *sessionCb) OnSessionSuspendFail(reason hal.Status) {
	c.suspendFail <- reason
}
func (c *sessionCb) OnSessionResumeFail(reason hal.Status) { c.resumeFail <- reason }
func (c *sessionCb) OnSessionSuspensionStatusChanged(suspended bool) {
	c.suspChange <- suspended
}

func (c *sessionCb) OnMatch(peerID int, ssi, matchFilter []byte, distanceMM int, alias string) {
	c.match <- matchEvt{peerID: peerID, ssi: ssi, distanceMM: distanceMM, alias: alias}
}
func (c *sessionCb) OnMatchExpired(peerID int) { c.expired <- peerID }
func (c *sessionCb) OnMessageReceived(peerID int, message []byte) {
	c.received <- receivedEvt{peerID: peerID, message: message}
}
func (c *sessionCb) OnMessageSendSuccess(messageID int) { c.sendOK <- messageID }
func (c *sessionCb) OnMessageSendFail(messageID int, reason hal.Status) {
	c.sendFail <- sendFailEvt{messageID: messageID, reason: reason}
}

func (c *sessionCb) OnPairingSetupRequestReceived(peerID int, pairingID uint32) {
	c.pairReq <- pairReqEvt{peerID: peerID, pairingID: pairingID}
}
func (c *sessionCb) OnPairingSetupConfirmed(peerID int, accepted bool, alias string) {
	c.pairConfirm <- pairConfirmEvt{peerID: peerID, accepted: accepted, alias: alias}
}
func (c *sessionCb) OnPairingVerificationConfirmed(peerID int, accepted bool, alias string) {
	c.pairConfirm <- pairConfirmEvt{peerID: peerID, accepted: accepted, alias: alias, verification: true}
}
func (c *sessionCb) OnBootstrappingVerificationConfirmed(peerID int, accepted bool, method uint32) {
	c.bootConfirm <- bootConfirmEvt{peerID: peerID, accepted: accepted, method: method}
}

var _ aware.SessionCallback = (*sessionCb)(nil)

type ndpRequestEvt struct {
	clientID  int
	sessionID int
	peerID    int
	ndpID     uint32
}

type ndpConfirmEvt struct {
	ndpID    uint32
	accepted bool
	reason   hal.Status
	channels []hal.DataPathChannelInfo
}

// dataPathCb records data-path events on channels.
type dataPathCb struct {
	ifaceCreated chan string
	ifaceDeleted chan string
	initiateOK   chan uint32
	initiateFail chan hal.Status
	request      chan ndpRequestEvt
	confirm      chan ndpConfirmEvt
	ended        chan uint32
}

func newDataPathCb() *dataPathCb {
	return &dataPathCb{
		ifaceCreated: make(chan string, 4),
		ifaceDeleted: make(chan string, 4),
		initiateOK:   make(chan uint32, 4),
		initiateFail: make(chan hal.Status, 4),
		request:      make(chan ndpRequestEvt, 4),
		confirm:      make(chan ndpConfirmEvt, 4),
		ended:        make(chan uint32, 4),
	}
}

func (d *dataPathCb) OnDataPathInterfaceCreated(ifaceName string) { d.ifaceCreated <- ifaceName }
func (d *dataPathCb) OnDataPathInterfaceDeleted(ifaceName string) { d.ifaceDeleted <- ifaceName }
func (d *dataPathCb) OnDataPathInitiateSuccess(ndpID uint32)      { d.initiateOK <- ndpID }
func (d *dataPathCb) OnDataPathInitiateFail(reason hal.Status)    { d.initiateFail <- reason }
func (d *dataPathCb) OnDataPathRequest(clientID, sessionID, peerID int, ndpID uint32, appInfo []byte) {
	d.request <- ndpRequestEvt{clientID: clientID, sessionID: sessionID, peerID: peerID, ndpID: ndpID}
}
func (d *dataPathCb) OnDataPathConfirm(ndpID uint32, accepted bool, reason hal.Status, channels []hal.DataPathChannelInfo) {
	d.confirm <- ndpConfirmEvt{ndpID: ndpID, accepted: accepted, reason: reason, channels: channels}
}
func (d *dataPathCb) OnDataPathEnd(ndpID uint32) { d.ended <- ndpID }

var _ aware.DataPathEvents = (*dataPathCb)(nil)
