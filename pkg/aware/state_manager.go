package aware

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/aware-protocol/aware-go/pkg/hal"
	"github.com/aware-protocol/aware-go/pkg/log"
	"github.com/aware-protocol/aware-go/pkg/pairing"
	"github.com/aware-protocol/aware-go/pkg/wakeup"
)

// Default timeouts.
const (
	// DefaultCommandTimeout bounds a single outstanding transaction.
	DefaultCommandTimeout = 5 * time.Second

	// DefaultSendMessageTimeout bounds a follow-on message's stay in the
	// firmware transmit queue.
	DefaultSendMessageTimeout = 10 * time.Second

	// DefaultConfirmTimeout bounds the wait for a data-path, pairing or
	// bootstrapping confirm notification.
	DefaultConfirmTimeout = 20 * time.Second
)

var (
	// ErrStopped is returned when the state manager is not running.
	ErrStopped = errors.New("aware: state manager stopped")

	// ErrMissingCallback is returned when a required callback is nil.
	ErrMissingCallback = errors.New("aware: missing callback")

	// ErrInvalidArgument is returned for synchronously detectable bad
	// parameters.
	ErrInvalidArgument = errors.New("aware: invalid argument")
)

// Options configures a StateManager. Hal is required; everything else has a
// working default.
type Options struct {
	Hal hal.Api

	// Scheduler drives timeouts. Defaults to a real-time scheduler.
	Scheduler *wakeup.Scheduler

	// Logger is the optional debug logger.
	Logger *slog.Logger

	// EventLog receives structured control-plane events. Defaults to
	// log.NoopLogger.
	EventLog log.Logger

	// Pairing caches identity keys and paired-device aliases. Optional;
	// without it pairing confirms are delivered but never cached.
	Pairing *pairing.Manager

	// DataPath receives data-path events. Optional.
	DataPath DataPathEvents

	// Arbiter decides interface conflicts on connect. Defaults to always
	// execute.
	Arbiter InterfaceArbiter

	// InterfaceOwner tracks the shared radio interface reservation.
	InterfaceOwner InterfaceOwner

	CommandTimeout     time.Duration
	SendMessageTimeout time.Duration
	ConfirmTimeout     time.Duration
}

// pendingConfirm tracks an accepted pairing, bootstrapping or data-path
// exchange until its confirm notification (or timeout) arrives.
type pendingConfirm struct {
	clientID  int
	sessionID int
	peerID    int

	alias       string
	requestType hal.PairingRequestType
	method      uint32

	timeout *wakeup.Handle
}

// StateManager owns the complete control-plane state. A single goroutine
// (run) processes commands, responses and notifications; external methods
// only post messages and read cached snapshots.
type StateManager struct {
	hal      hal.Api
	sched    *wakeup.Scheduler
	logger   *slog.Logger
	events   log.Logger
	pairing  *pairing.Manager
	dataPath DataPathEvents
	arbiter  InterfaceArbiter
	ifOwner  InterfaceOwner

	cmdTimeoutDur  time.Duration
	sendTimeoutDur time.Duration
	confirmDur     time.Duration

	now func() time.Time

	msgs   chan loopMessage
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// Everything below is owned by the run goroutine.

	usageEnabled   bool
	awareUp        bool
	disablePending bool
	ifaceHeld      bool

	activeMerged mergedConfig
	activeNotify bool
	activeRang   bool
	activeInst   hal.InstantMode

	nextTxn        uint16
	currentTxn     uint16
	currentCommand command
	cmdTimeout     *wakeup.Handle
	pendingSend    *queuedMessage
	pendingMerged  mergedConfig
	pendingNotify  bool
	pendingRang    bool
	pendingInst    hal.InstantMode

	deferred       []command
	heldForDisable []command
	parked         []connectCmd

	clients      map[int]*client
	nextClientID int
	nextSession  int
	nextPeerID   int

	sendQ *sendQueue

	// sendTimeout is the shared timer for the oldest firmware-queued message.
	// sendTimeoutGen advances every time the timer is re-armed or cancelled so
	// a firing that raced a completion can be recognised as stale and dropped.
	sendTimeout    *wakeup.Handle
	sendTimeoutGen uint64

	capabilities *hal.Capabilities

	pendingPairings   map[uint32]*pendingConfirm
	pendingBootstraps map[uint32]*pendingConfirm
	pendingDataPaths  map[uint32]*pendingConfirm

	ndiNames        map[string]bool
	establishedNdps map[uint32]bool

	// mu guards the snapshot read by the synchronous query methods.
	mu             sync.Mutex
	snapCaps       *hal.Capabilities
	snapChars      *hal.Characteristics
	snapUsage      bool
	snapPublishes  int
	snapSubscribes int
	snapNdps       int
	snapPeerMACs   map[int]map[int]net.HardwareAddr
}

// NewStateManager creates a stopped state manager; call Start before posting
// commands.
func NewStateManager(opts Options) *StateManager {
	if opts.Hal == nil {
		panic("aware: Options.Hal is required")
	}
	m := &StateManager{
		hal:            opts.Hal,
		sched:          opts.Scheduler,
		logger:         opts.Logger,
		events:         opts.EventLog,
		pairing:        opts.Pairing,
		dataPath:       opts.DataPath,
		arbiter:        opts.Arbiter,
		ifOwner:        opts.InterfaceOwner,
		cmdTimeoutDur:  opts.CommandTimeout,
		sendTimeoutDur: opts.SendMessageTimeout,
		confirmDur:     opts.ConfirmTimeout,
		now:            time.Now,
		msgs:           make(chan loopMessage, 256),
		done:           make(chan struct{}),

		nextTxn:           1,
		clients:           make(map[int]*client),
		nextClientID:      1,
		nextSession:       1,
		nextPeerID:        peerHandleSeed,
		sendQ:             newSendQueue(),
		pendingPairings:   make(map[uint32]*pendingConfirm),
		pendingBootstraps: make(map[uint32]*pendingConfirm),
		pendingDataPaths:  make(map[uint32]*pendingConfirm),
		ndiNames:          make(map[string]bool),
		establishedNdps:   make(map[uint32]bool),
		snapPeerMACs:      make(map[int]map[int]net.HardwareAddr),
	}
	if m.sched == nil {
		m.sched = wakeup.NewScheduler()
	}
	if m.events == nil {
		m.events = log.NoopLogger{}
	}
	if m.dataPath == nil {
		m.dataPath = noopDataPathEvents{}
	}
	if m.arbiter == nil {
		m.arbiter = executeArbiter{}
	}
	if m.ifOwner == nil {
		m.ifOwner = noopInterfaceOwner{}
	}
	if m.cmdTimeoutDur <= 0 {
		m.cmdTimeoutDur = DefaultCommandTimeout
	}
	if m.sendTimeoutDur <= 0 {
		m.sendTimeoutDur = DefaultSendMessageTimeout
	}
	if m.confirmDur <= 0 {
		m.confirmDur = DefaultConfirmTimeout
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	return m
}

// Start launches the event loop.
func (m *StateManager) Start() {
	go m.run()
}

// Stop terminates the event loop and waits for it to exit. Stop must only
// be called after Start.
func (m *StateManager) Stop() {
	m.cancel()
	<-m.done
}

func (m *StateManager) run() {
	defer close(m.done)
	for {
		select {
		case <-m.ctx.Done():
			return
		case msg := <-m.msgs:
			m.handle(msg)
		}
	}
}

// post delivers a message to the loop; drops it when stopped.
func (m *StateManager) post(msg loopMessage) {
	select {
	case m.msgs <- msg:
	case <-m.ctx.Done():
	}
}

func (m *StateManager) handle(msg loopMessage) {
	switch v := msg.(type) {
	case command:
		m.handleCommand(v)
	case response:
		m.handleResponse(v)
	case notification:
		m.handleNotification(v)
	default:
		m.defect("unknown loop message")
	}
}

// handleCommand defers the command while a transaction is outstanding,
// otherwise dispatches it immediately.
func (m *StateManager) handleCommand(c command) {
	if m.currentTxn != 0 {
		m.deferred = append(m.deferred, c)
		return
	}
	m.dispatchCommand(c)
	m.drainDeferred()
}

// drainDeferred replays deferred commands until one issues a transaction or
// the queue empties.
func (m *StateManager) drainDeferred() {
	for m.currentTxn == 0 && len(m.deferred) > 0 {
		c := m.deferred[0]
		m.deferred = m.deferred[1:]
		m.dispatchCommand(c)
	}
}

// enqueueInternal appends a command for processing after the current one
// completes, without going through the channel.
func (m *StateManager) enqueueInternal(c command) {
	m.deferred = append(m.deferred, c)
}

// allocTxn returns the next transaction ID, skipping zero on wrap.
func (m *StateManager) allocTxn() uint16 {
	t := m.nextTxn
	m.nextTxn++
	if m.nextTxn == 0 {
		m.nextTxn = 1
	}
	return t
}

// beginTransaction records the outstanding command and arms the command
// timeout.
func (m *StateManager) beginTransaction(txn uint16, c command) {
	m.currentTxn = txn
	m.currentCommand = c
	m.cmdTimeout = m.sched.Schedule(m.cmdTimeoutDur, func() {
		m.post(responseTimeout{txn: txn})
	})
}

// completeTransaction clears the outstanding command state.
func (m *StateManager) completeTransaction() {
	if m.cmdTimeout != nil {
		m.cmdTimeout.Cancel()
		m.cmdTimeout = nil
	}
	m.currentTxn = 0
	m.currentCommand = nil
	m.pendingSend = nil
}

func (m *StateManager) debugf(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Debug(msg, args...)
	}
}

func (m *StateManager) defect(detail string) {
	m.events.Log(log.Event{
		Timestamp: m.now(),
		Category:  log.CategoryDefect,
		Detail:    detail,
	})
	if m.logger != nil {
		m.logger.Error("control plane defect", "detail", detail)
	}
}

func (m *StateManager) logCommand(kind string, txn uint16) {
	m.events.Log(log.Event{
		Timestamp:     m.now(),
		Category:      log.CategoryCommand,
		Kind:          kind,
		TransactionID: txn,
	})
}

func (m *StateManager) logResponse(kind string, txn uint16, status hal.Status) {
	m.events.Log(log.Event{
		Timestamp:     m.now(),
		Category:      log.CategoryResponse,
		Kind:          kind,
		TransactionID: txn,
		Status:        status.String(),
	})
}

func (m *StateManager) logNotification(kind string) {
	m.events.Log(log.Event{
		Timestamp: m.now(),
		Category:  log.CategoryNotification,
		Kind:      kind,
	})
}

func (m *StateManager) logTimeout(kind string, txn uint16) {
	m.events.Log(log.Event{
		Timestamp:     m.now(),
		Category:      log.CategoryTimeout,
		Kind:          kind,
		TransactionID: txn,
	})
}

// External command API. Every method posts a message and returns; outcomes
// arrive through the callbacks registered with the command.

// Connect attaches a new client. The assigned client ID is returned
// immediately; the attach outcome arrives via cb.
func (m *StateManager) Connect(uid, pid int, callingPackage, featureID string,
	config ConfigRequest, notifyIdentityChange, awareOffload bool, cb ClientCallback) (int, error) {
	if cb == nil {
		return 0, ErrMissingCallback
	}
	if config.ClusterRangeSet && (config.ClusterLow < 0 || config.ClusterHigh > 0xFFFF ||
		config.ClusterLow > config.ClusterHigh) {
		return 0, ErrInvalidArgument
	}
	m.mu.Lock()
	clientID := m.nextClientID
	m.nextClientID++
	m.mu.Unlock()
	m.post(connectCmd{
		clientID:             clientID,
		uid:                  uid,
		pid:                  pid,
		callingPackage:       callingPackage,
		featureID:            featureID,
		config:               config,
		notifyIdentityChange: notifyIdentityChange,
		awareOffload:         awareOffload,
		callback:             cb,
	})
	return clientID, nil
}

// Disconnect detaches a client and terminates all its sessions.
func (m *StateManager) Disconnect(clientID int) {
	m.post(disconnectCmd{clientID: clientID})
}

// ResolveConnectArbitration delivers the arbiter's verdict for a parked
// connect.
func (m *StateManager) ResolveConnectArbitration(clientID int, proceed bool) {
	m.post(arbitrationResultCmd{clientID: clientID, proceed: proceed})
}

// Publish starts a publish session for the client.
func (m *StateManager) Publish(clientID int, config hal.PublishConfig, cb SessionCallback) error {
	if cb == nil {
		return ErrMissingCallback
	}
	if config.ServiceName == "" {
		return ErrInvalidArgument
	}
	m.post(publishCmd{clientID: clientID, config: config, callback: cb})
	return nil
}

// UpdatePublish reconfigures a live publish session.
func (m *StateManager) UpdatePublish(clientID, sessionID int, config hal.PublishConfig) error {
	if config.ServiceName == "" {
		return ErrInvalidArgument
	}
	m.post(updatePublishCmd{clientID: clientID, sessionID: sessionID, config: config})
	return nil
}

// Subscribe starts a subscribe session for the client.
func (m *StateManager) Subscribe(clientID int, config hal.SubscribeConfig, cb SessionCallback) error {
	if cb == nil {
		return ErrMissingCallback
	}
	if config.ServiceName == "" {
		return ErrInvalidArgument
	}
	m.post(subscribeCmd{clientID: clientID, config: config, callback: cb})
	return nil
}

// UpdateSubscribe reconfigures a live subscribe session.
func (m *StateManager) UpdateSubscribe(clientID, sessionID int, config hal.SubscribeConfig) error {
	if config.ServiceName == "" {
		return ErrInvalidArgument
	}
	m.post(updateSubscribeCmd{clientID: clientID, sessionID: sessionID, config: config})
	return nil
}

// TerminateSession ends a discovery session.
func (m *StateManager) TerminateSession(clientID, sessionID int) {
	m.post(terminateSessionCmd{clientID: clientID, sessionID: sessionID})
}

// SendMessage queues a follow-on message to a matched peer. retryCount is
// the number of extra over-the-air attempts after a missing ack.
func (m *StateManager) SendMessage(clientID, sessionID, peerID, messageID int,
	message []byte, retryCount int) error {
	if retryCount < 0 {
		return ErrInvalidArgument
	}
	if caps, ok := m.Capabilities(); ok && len(message) > caps.MaxServiceSpecificInfoLen {
		return ErrInvalidArgument
	}
	m.post(enqueueSendMessageCmd{
		clientID:   clientID,
		sessionID:  sessionID,
		peerID:     peerID,
		messageID:  messageID,
		message:    message,
		retryCount: retryCount,
	})
	return nil
}

// EnableUsage allows attaches; DisableUsage tears everything down and
// rejects attaches until re-enabled.
func (m *StateManager) EnableUsage()  { m.post(enableUsageCmd{}) }
func (m *StateManager) DisableUsage() { m.post(disableUsageCmd{}) }

// RefreshCapabilities fetches firmware limits if not cached yet.
func (m *StateManager) RefreshCapabilities() { m.post(getCapabilitiesCmd{}) }

// CreateDataPathInterface / DeleteDataPathInterface manage NDI interfaces.
func (m *StateManager) CreateDataPathInterface(name string) error {
	if name == "" {
		return ErrInvalidArgument
	}
	m.post(createDataPathInterfaceCmd{ifaceName: name})
	return nil
}

func (m *StateManager) DeleteDataPathInterface(name string) error {
	if name == "" {
		return ErrInvalidArgument
	}
	m.post(deleteDataPathInterfaceCmd{ifaceName: name})
	return nil
}

// DeleteAllDataPathInterfaces removes every NDI created through this
// manager.
func (m *StateManager) DeleteAllDataPathInterfaces() {
	m.post(deleteAllDataPathInterfacesCmd{})
}

// InitiateDataPath requests an NDP to a matched peer over the named NDI.
func (m *StateManager) InitiateDataPath(clientID, sessionID, peerID int,
	ifaceName string, security hal.DataPathSecurity, appInfo []byte) error {
	if ifaceName == "" {
		return ErrInvalidArgument
	}
	m.post(initiateDataPathCmd{
		clientID:  clientID,
		sessionID: sessionID,
		peerID:    peerID,
		ifaceName: ifaceName,
		security:  security,
		appInfo:   appInfo,
	})
	return nil
}

// RespondToDataPathRequest accepts or rejects a peer-initiated NDP.
func (m *StateManager) RespondToDataPathRequest(ndpID uint32, accept bool,
	ifaceName string, security hal.DataPathSecurity, appInfo []byte) {
	m.post(respondToDataPathRequestCmd{
		ndpID:     ndpID,
		accept:    accept,
		ifaceName: ifaceName,
		security:  security,
		appInfo:   appInfo,
	})
}

// EndDataPath tears down an NDP.
func (m *StateManager) EndDataPath(ndpID uint32) {
	m.post(endDataPathCmd{ndpID: ndpID})
}

// InitiatePairing starts a pairing setup or verification with a matched
// peer. alias names the peer in the local pairing cache.
func (m *StateManager) InitiatePairing(clientID, sessionID, peerID int,
	alias, password string, requestType hal.PairingRequestType, cipherSuites uint32) {
	m.post(initiatePairingCmd{
		clientID:     clientID,
		sessionID:    sessionID,
		peerID:       peerID,
		alias:        alias,
		password:     password,
		requestType:  requestType,
		cipherSuites: cipherSuites,
	})
}

// RespondToPairing answers a peer-initiated pairing request.
func (m *StateManager) RespondToPairing(clientID, sessionID, peerID int,
	pairingID uint32, accept bool, alias, password string,
	requestType hal.PairingRequestType, cipherSuites uint32) {
	m.post(respondToPairingCmd{
		clientID:     clientID,
		sessionID:    sessionID,
		peerID:       peerID,
		pairingID:    pairingID,
		accept:       accept,
		alias:        alias,
		password:     password,
		requestType:  requestType,
		cipherSuites: cipherSuites,
	})
}

// EndPairing terminates a pairing exchange.
func (m *StateManager) EndPairing(pairingID uint32) {
	m.post(endPairingCmd{pairingID: pairingID})
}

// InitiateBootstrapping requests a bootstrapping method from a peer.
func (m *StateManager) InitiateBootstrapping(clientID, sessionID, peerID int,
	method uint32, cookie []byte) {
	m.post(initiateBootstrappingCmd{
		clientID:  clientID,
		sessionID: sessionID,
		peerID:    peerID,
		method:    method,
		cookie:    cookie,
	})
}

// RespondToBootstrapping answers a peer's bootstrapping request.
func (m *StateManager) RespondToBootstrapping(clientID, sessionID, peerID int,
	bootstrappingID uint32, accept bool, method uint32) {
	m.post(respondToBootstrappingCmd{
		clientID:        clientID,
		sessionID:       sessionID,
		peerID:          peerID,
		bootstrappingID: bootstrappingID,
		accept:          accept,
		method:          method,
	})
}

// Suspend pauses a suspendable discovery session.
func (m *StateManager) Suspend(clientID, sessionID int) {
	m.post(suspendSessionCmd{clientID: clientID, sessionID: sessionID})
}

// Resume resumes a suspended discovery session.
func (m *StateManager) Resume(clientID, sessionID int) {
	m.post(resumeSessionCmd{clientID: clientID, sessionID: sessionID})
}

// Reconfigure re-runs the configuration merge and pushes it to the firmware
// if it changed.
func (m *StateManager) Reconfigure() { m.post(reconfigureCmd{}) }

// arbitrationResultCmd delivers the external arbiter verdict for a parked
// connect.
type arbitrationResultCmd struct {
	clientID int
	proceed  bool
}

func (arbitrationResultCmd) commandKind() string { return "arbitrationResult" }
func (arbitrationResultCmd) isLoopMessage()      {}
