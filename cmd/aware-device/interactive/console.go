// Package interactive provides the interactive command-line interface for
// the aware-device command.
package interactive

import (
	"fmt"
	"io"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"

	"github.com/aware-protocol/aware-go/pkg/aware"
	"github.com/aware-protocol/aware-go/pkg/hal"
)

// BootstrapOpportunistic is the only bootstrapping method the console
// offers; the flag value follows the pairing bootstrapping bitmask.
const BootstrapOpportunistic uint32 = 1 << 0

// Config provides device settings to the console.
type Config struct {
	DeviceName       string
	MasterPreference int
	Band5GHz         bool
}

// sessionState tracks one live discovery session and its matched peers.
type sessionState struct {
	id        int
	service   string
	isPublish bool
	peers     map[int]bool
}

// pairingRequest is a peer-initiated pairing awaiting a respond command.
type pairingRequest struct {
	pairingID uint32
	sessionID int
	peerID    int
}

// Console handles interactive mode for aware-device.
type Console struct {
	mgr *aware.StateManager
	cfg Config
	rl  *readline.Instance

	mu            sync.Mutex
	attached      bool
	clientID      int
	sessions      map[int]*sessionState
	pending       []pairingRequest
	nextMessageID int
}

// New creates the console. Run starts the command loop.
func New(mgr *aware.StateManager, cfg Config) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          cfg.DeviceName + "> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Console{
		mgr:           mgr,
		cfg:           cfg,
		rl:            rl,
		sessions:      make(map[int]*sessionState),
		nextMessageID: 1,
	}, nil
}

// Stdout returns a writer coordinated with the prompt.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Close interrupts the command loop.
func (c *Console) Close() {
	c.rl.Close()
}

// Run processes commands until quit or EOF.
func (c *Console) Run() {
	defer c.rl.Close()

	c.printHelp()

	for {
		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			c.printHelp()

		case "attach", "a":
			c.cmdAttach()

		case "detach", "d":
			c.cmdDetach()

		case "publish", "pub", "p":
			c.cmdPublish(args)

		case "subscribe", "sub", "s":
			c.cmdSubscribe(args)

		case "sessions":
			c.cmdSessions()

		case "end":
			c.cmdEnd(args)

		case "send":
			c.cmdSend(args)

		case "pair":
			c.cmdPair(args, hal.PairingRequestTypeSetup)

		case "verify":
			c.cmdPair(args, hal.PairingRequestTypeVerification)

		case "respond":
			c.cmdRespond(args)

		case "requests":
			c.cmdRequests()

		case "bootstrap":
			c.cmdBootstrap(args)

		case "suspend":
			c.cmdSuspend(args, true)

		case "resume":
			c.cmdSuspend(args, false)

		case "caps":
			c.cmdCaps()

		case "resources":
			c.cmdResources()

		case "macs":
			c.cmdMacs(args)

		case "status":
			c.cmdStatus()

		case "quit", "exit", "q":
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			return

		default:
			fmt.Fprintf(c.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.rl.Stdout(), `
Aware Device Commands:
  Attach:
    attach                 - Attach to the discovery service
    detach                 - Detach (terminates all sessions)

  Discovery:
    publish <service> [info]   - Start a publish session
    subscribe <service>        - Start a subscribe session
    sessions                   - List sessions and matched peers
    end <session>              - Terminate a session
    send <session> <peer> <text> - Send a follow-on message

  Pairing:
    pair <session> <peer> <alias> <password>  - Initiate pairing setup
    verify <session> <peer> <alias>           - Verify a cached pairing
    requests                                  - List pending pairing requests
    respond <pairing-id> accept <alias> <password> - Answer a request
    respond <pairing-id> reject                   - Reject a request
    bootstrap <session> <peer>                - Request opportunistic bootstrapping

  Power:
    suspend <session>      - Suspend a session
    resume <session>       - Resume a suspended session

  Info:
    caps                   - Show firmware characteristics
    resources              - Show available discovery resources
    macs <session>         - Show matched peers' MAC addresses
    status                 - Show device status

  General:
    help                   - Show this help
    quit                   - Exit`)
}

func (c *Console) cmdAttach() {
	c.mu.Lock()
	if c.attached {
		c.mu.Unlock()
		fmt.Fprintln(c.rl.Stdout(), "Already attached")
		return
	}
	c.mu.Unlock()

	cfg := aware.DefaultConfigRequest()
	cfg.Support5GHz = c.cfg.Band5GHz
	cfg.MasterPreference = uint8(c.cfg.MasterPreference)

	_, err := c.mgr.Connect(1000, 1, c.cfg.DeviceName, "console", cfg, true, false, c)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Attach failed: %v\n", err)
	}
}

func (c *Console) cmdDetach() {
	c.mu.Lock()
	attached := c.attached
	clientID := c.clientID
	c.attached = false
	c.sessions = make(map[int]*sessionState)
	c.pending = nil
	c.mu.Unlock()

	if !attached {
		fmt.Fprintln(c.rl.Stdout(), "Not attached")
		return
	}
	c.mgr.Disconnect(clientID)
	fmt.Fprintln(c.rl.Stdout(), "Detached")
}

func (c *Console) requireAttach() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.attached {
		fmt.Fprintln(c.rl.Stdout(), "Not attached (use 'attach' first)")
		return 0, false
	}
	return c.clientID, true
}

func (c *Console) cmdPublish(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: publish <service> [info]")
		return
	}
	clientID, ok := c.requireAttach()
	if !ok {
		return
	}
	var ssi []byte
	if len(args) > 1 {
		ssi = []byte(strings.Join(args[1:], " "))
	}
	config := hal.PublishConfig{
		ServiceName:         args[0],
		ServiceSpecificInfo: ssi,
		Type:                hal.PublishTypeUnsolicited,
		Suspendable:         true,
		Pairing: hal.PairingConfig{
			PairingSetupEnabled:        true,
			PairingCacheEnabled:        true,
			PairingVerificationEnabled: true,
			BootstrappingMethods:       BootstrapOpportunistic,
		},
	}
	h := &sessionHandler{console: c, service: args[0], isPublish: true}
	if err := c.mgr.Publish(clientID, config, h); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Publish failed: %v\n", err)
	}
}

func (c *Console) cmdSubscribe(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: subscribe <service>")
		return
	}
	clientID, ok := c.requireAttach()
	if !ok {
		return
	}
	config := hal.SubscribeConfig{
		ServiceName: args[0],
		Type:        hal.SubscribeTypePassive,
		Suspendable: true,
		Pairing: hal.PairingConfig{
			PairingSetupEnabled:        true,
			PairingCacheEnabled:        true,
			PairingVerificationEnabled: true,
			BootstrappingMethods:       BootstrapOpportunistic,
		},
	}
	h := &sessionHandler{console: c, service: args[0]}
	if err := c.mgr.Subscribe(clientID, config, h); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Subscribe failed: %v\n", err)
	}
}

func (c *Console) cmdSessions() {
	c.mu.Lock()
	ids := make([]int, 0, len(c.sessions))
	for id := range c.sessions {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	lines := make([]string, 0, len(ids))
	for _, id := range ids {
		s := c.sessions[id]
		kind := "subscribe"
		if s.isPublish {
			kind = "publish"
		}
		peers := make([]int, 0, len(s.peers))
		for p := range s.peers {
			peers = append(peers, p)
		}
		sort.Ints(peers)
		lines = append(lines, fmt.Sprintf("  %d: %s %q peers=%v", id, kind, s.service, peers))
	}
	c.mu.Unlock()

	if len(lines) == 0 {
		fmt.Fprintln(c.rl.Stdout(), "No sessions")
		return
	}
	fmt.Fprintln(c.rl.Stdout(), "Sessions:")
	for _, l := range lines {
		fmt.Fprintln(c.rl.Stdout(), l)
	}
}

func (c *Console) parseSession(arg string) (int, bool) {
	id, err := strconv.Atoi(arg)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Invalid session ID: %s\n", arg)
		return 0, false
	}
	c.mu.Lock()
	_, known := c.sessions[id]
	c.mu.Unlock()
	if !known {
		fmt.Fprintf(c.rl.Stdout(), "Unknown session: %d (use 'sessions')\n", id)
		return 0, false
	}
	return id, true
}

func (c *Console) cmdEnd(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: end <session>")
		return
	}
	clientID, ok := c.requireAttach()
	if !ok {
		return
	}
	id, ok := c.parseSession(args[0])
	if !ok {
		return
	}
	c.mgr.TerminateSession(clientID, id)
}

func (c *Console) cmdSend(args []string) {
	if len(args) < 3 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: send <session> <peer> <text>")
		return
	}
	clientID, ok := c.requireAttach()
	if !ok {
		return
	}
	sessionID, ok := c.parseSession(args[0])
	if !ok {
		return
	}
	peerID, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Invalid peer ID: %s\n", args[1])
		return
	}

	c.mu.Lock()
	messageID := c.nextMessageID
	c.nextMessageID++
	c.mu.Unlock()

	text := strings.Join(args[2:], " ")
	if err := c.mgr.SendMessage(clientID, sessionID, peerID, messageID, []byte(text), 2); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Send failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.rl.Stdout(), "Message %d queued\n", messageID)
}

func (c *Console) cmdPair(args []string, requestType hal.PairingRequestType) {
	usage := "Usage: pair <session> <peer> <alias> <password>"
	want := 4
	if requestType == hal.PairingRequestTypeVerification {
		usage = "Usage: verify <session> <peer> <alias>"
		want = 3
	}
	if len(args) < want {
		fmt.Fprintln(c.rl.Stdout(), usage)
		return
	}
	clientID, ok := c.requireAttach()
	if !ok {
		return
	}
	sessionID, ok := c.parseSession(args[0])
	if !ok {
		return
	}
	peerID, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Invalid peer ID: %s\n", args[1])
		return
	}
	alias := args[2]
	password := ""
	if requestType == hal.PairingRequestTypeSetup {
		password = args[3]
	}
	c.mgr.InitiatePairing(clientID, sessionID, peerID, alias, password,
		requestType, hal.CipherSuitePublicKey128)
}

func (c *Console) cmdRequests() {
	c.mu.Lock()
	pending := make([]pairingRequest, len(c.pending))
	copy(pending, c.pending)
	c.mu.Unlock()

	if len(pending) == 0 {
		fmt.Fprintln(c.rl.Stdout(), "No pending pairing requests")
		return
	}
	for _, p := range pending {
		fmt.Fprintf(c.rl.Stdout(), "  pairing %d: session %d peer %d\n",
			p.pairingID, p.sessionID, p.peerID)
	}
}

func (c *Console) cmdRespond(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: respond <pairing-id> accept <alias> <password> | respond <pairing-id> reject")
		return
	}
	clientID, ok := c.requireAttach()
	if !ok {
		return
	}
	id64, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Invalid pairing ID: %s\n", args[0])
		return
	}
	pairingID := uint32(id64)

	c.mu.Lock()
	var req *pairingRequest
	for i := range c.pending {
		if c.pending[i].pairingID == pairingID {
			req = &c.pending[i]
			break
		}
	}
	if req == nil {
		c.mu.Unlock()
		fmt.Fprintf(c.rl.Stdout(), "No pending request with ID %d\n", pairingID)
		return
	}
	sessionID, peerID := req.sessionID, req.peerID
	kept := c.pending[:0]
	for _, p := range c.pending {
		if p.pairingID != pairingID {
			kept = append(kept, p)
		}
	}
	c.pending = kept
	c.mu.Unlock()

	switch args[1] {
	case "accept":
		if len(args) < 4 {
			fmt.Fprintln(c.rl.Stdout(), "Usage: respond <pairing-id> accept <alias> <password>")
			return
		}
		c.mgr.RespondToPairing(clientID, sessionID, peerID, pairingID, true,
			args[2], args[3], hal.PairingRequestTypeSetup, hal.CipherSuitePublicKey128)
	case "reject":
		c.mgr.RespondToPairing(clientID, sessionID, peerID, pairingID, false,
			"", "", hal.PairingRequestTypeSetup, hal.CipherSuitePublicKey128)
	default:
		fmt.Fprintf(c.rl.Stdout(), "Unknown verdict: %s (accept or reject)\n", args[1])
	}
}

func (c *Console) cmdBootstrap(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: bootstrap <session> <peer>")
		return
	}
	clientID, ok := c.requireAttach()
	if !ok {
		return
	}
	sessionID, ok := c.parseSession(args[0])
	if !ok {
		return
	}
	peerID, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Invalid peer ID: %s\n", args[1])
		return
	}
	c.mgr.InitiateBootstrapping(clientID, sessionID, peerID, BootstrapOpportunistic, nil)
}

func (c *Console) cmdSuspend(args []string, suspend bool) {
	verb := "suspend"
	if !suspend {
		verb = "resume"
	}
	if len(args) < 1 {
		fmt.Fprintf(c.rl.Stdout(), "Usage: %s <session>\n", verb)
		return
	}
	clientID, ok := c.requireAttach()
	if !ok {
		return
	}
	id, ok := c.parseSession(args[0])
	if !ok {
		return
	}
	if suspend {
		c.mgr.Suspend(clientID, id)
	} else {
		c.mgr.Resume(clientID, id)
	}
}

func (c *Console) cmdCaps() {
	chars, ok := c.mgr.Characteristics()
	if !ok {
		fmt.Fprintln(c.rl.Stdout(), "Characteristics not available yet (attach first)")
		return
	}
	fmt.Fprintln(c.rl.Stdout(), "Characteristics:")
	fmt.Fprintf(c.rl.Stdout(), "  Max service name length: %d\n", chars.MaxServiceNameLen)
	fmt.Fprintf(c.rl.Stdout(), "  Max service info length: %d\n", chars.MaxServiceSpecificInfoLen)
	fmt.Fprintf(c.rl.Stdout(), "  Max match filter length: %d\n", chars.MaxMatchFilterLen)
	fmt.Fprintf(c.rl.Stdout(), "  Instant communication:   %t\n", chars.InstantCommunicationSupported)
	fmt.Fprintf(c.rl.Stdout(), "  Pairing:                 %t\n", chars.PairingSupported)
	fmt.Fprintf(c.rl.Stdout(), "  Suspension:              %t\n", chars.SuspensionSupported)
}

func (c *Console) cmdResources() {
	res, ok := c.mgr.AvailableAwareResources()
	if !ok {
		fmt.Fprintln(c.rl.Stdout(), "Resources not available yet (attach first)")
		return
	}
	fmt.Fprintf(c.rl.Stdout(), "Available: %d publish, %d subscribe, %d data-path sessions\n",
		res.PublishSessions, res.SubscribeSessions, res.DataPathSessions)
}

func (c *Console) cmdMacs(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: macs <session>")
		return
	}
	clientID, ok := c.requireAttach()
	if !ok {
		return
	}
	id, ok := c.parseSession(args[0])
	if !ok {
		return
	}
	c.mu.Lock()
	peers := make([]int, 0, len(c.sessions[id].peers))
	for p := range c.sessions[id].peers {
		peers = append(peers, p)
	}
	c.mu.Unlock()
	sort.Ints(peers)

	macs := c.mgr.RequestMacAddresses(clientID, peers)
	if len(macs) == 0 {
		fmt.Fprintln(c.rl.Stdout(), "No peer addresses known")
		return
	}
	for _, p := range peers {
		if mac, found := macs[p]; found {
			fmt.Fprintf(c.rl.Stdout(), "  peer %d: %s\n", p, mac)
		}
	}
}

func (c *Console) cmdStatus() {
	c.mu.Lock()
	attached := c.attached
	clientID := c.clientID
	sessionCount := len(c.sessions)
	c.mu.Unlock()

	fmt.Fprintln(c.rl.Stdout(), "\nDevice Status")
	fmt.Fprintln(c.rl.Stdout(), "-------------------------------------------")
	fmt.Fprintf(c.rl.Stdout(), "  Name:          %s\n", c.cfg.DeviceName)
	fmt.Fprintf(c.rl.Stdout(), "  Usage enabled: %t\n", c.mgr.UsageEnabled())
	if attached {
		fmt.Fprintf(c.rl.Stdout(), "  Attached:      yes (client %d)\n", clientID)
	} else {
		fmt.Fprintf(c.rl.Stdout(), "  Attached:      no\n")
	}
	fmt.Fprintf(c.rl.Stdout(), "  Sessions:      %d\n", sessionCount)
	if caps, ok := c.mgr.Capabilities(); ok {
		fmt.Fprintf(c.rl.Stdout(), "  Firmware:      %s\n", caps)
	}
	fmt.Fprintln(c.rl.Stdout())
}

// notify prints an asynchronous event above the prompt.
func (c *Console) notify(format string, args ...any) {
	fmt.Fprintf(c.rl.Stdout(), "\n[%s] %s\n", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	c.rl.Refresh()
}

// ClientCallback implementation.

var _ aware.ClientCallback = (*Console)(nil)

func (c *Console) OnConnectSuccess(clientID int) {
	c.mu.Lock()
	c.attached = true
	c.clientID = clientID
	c.mu.Unlock()
	c.notify("Attached (client %d)", clientID)
}

func (c *Console) OnConnectFail(reason hal.Status) {
	c.notify("Attach failed: %s", reason)
}

func (c *Console) OnIdentityChanged(mac net.HardwareAddr) {
	c.notify("Discovery address: %s", mac)
}

func (c *Console) OnClusterChange(eventType hal.ClusterEventType, clusterID net.HardwareAddr) {
	switch eventType {
	case hal.ClusterEventStartedCluster:
		c.notify("Started cluster %s", clusterID)
	case hal.ClusterEventJoinedCluster:
		c.notify("Joined cluster %s", clusterID)
	}
}

func (c *Console) OnAttachTerminated() {
	c.mu.Lock()
	c.attached = false
	c.sessions = make(map[int]*sessionState)
	c.pending = nil
	c.mu.Unlock()
	c.notify("Attach terminated (radio down)")
}

// sessionHandler receives events for one discovery session.
type sessionHandler struct {
	console   *Console
	service   string
	isPublish bool
	sessionID int
}

var _ aware.SessionCallback = (*sessionHandler)(nil)

func (h *sessionHandler) OnSessionStarted(sessionID int) {
	h.sessionID = sessionID
	c := h.console
	c.mu.Lock()
	c.sessions[sessionID] = &sessionState{
		id:        sessionID,
		service:   h.service,
		isPublish: h.isPublish,
		peers:     make(map[int]bool),
	}
	c.mu.Unlock()
	c.notify("Session %d started (%s)", sessionID, h.service)
}

func (h *sessionHandler) OnSessionConfigSuccess() {
	h.console.notify("Session %d updated", h.sessionID)
}

func (h *sessionHandler) OnSessionConfigFail(reason hal.Status) {
	h.console.notify("Session config failed for %q: %s", h.service, reason)
}

func (h *sessionHandler) OnSessionTerminated(reason hal.Status) {
	c := h.console
	c.mu.Lock()
	delete(c.sessions, h.sessionID)
	c.mu.Unlock()
	c.notify("Session %d terminated: %s", h.sessionID, reason)
}

func (h *sessionHandler) OnSessionSuspendSucceeded() {
	h.console.notify("Session %d suspended", h.sessionID)
}

func (h *sessionHandler) OnSessionSuspendFail(reason hal.Status) {
	h.console.notify("Suspend failed for session %d: %s", h.sessionID, reason)
}

func (h *sessionHandler) OnSessionResumeFail(reason hal.Status) {
	h.console.notify("Resume failed for session %d: %s", h.sessionID, reason)
}

func (h *sessionHandler) OnSessionSuspensionStatusChanged(suspended bool) {
	state := "resumed"
	if suspended {
		state = "suspended"
	}
	h.console.notify("Session %d %s", h.sessionID, state)
}

func (h *sessionHandler) OnMatch(peerID int, ssi, matchFilter []byte, distanceMM int, pairingAlias string) {
	c := h.console
	c.mu.Lock()
	if s, ok := c.sessions[h.sessionID]; ok {
		s.peers[peerID] = true
	}
	c.mu.Unlock()

	detail := ""
	if len(ssi) > 0 {
		detail = fmt.Sprintf(" info=%q", ssi)
	}
	if distanceMM >= 0 {
		detail += fmt.Sprintf(" distance=%dmm", distanceMM)
	}
	if pairingAlias != "" {
		detail += fmt.Sprintf(" paired-as=%q", pairingAlias)
	}
	c.notify("Session %d matched peer %d%s", h.sessionID, peerID, detail)
}

func (h *sessionHandler) OnMatchExpired(peerID int) {
	c := h.console
	c.mu.Lock()
	if s, ok := c.sessions[h.sessionID]; ok {
		delete(s.peers, peerID)
	}
	c.mu.Unlock()
	c.notify("Session %d lost peer %d", h.sessionID, peerID)
}

func (h *sessionHandler) OnMessageReceived(peerID int, message []byte) {
	h.console.notify("Session %d peer %d: %q", h.sessionID, peerID, message)
}

func (h *sessionHandler) OnMessageSendSuccess(messageID int) {
	h.console.notify("Message %d delivered", messageID)
}

func (h *sessionHandler) OnMessageSendFail(messageID int, reason hal.Status) {
	h.console.notify("Message %d failed: %s", messageID, reason)
}

func (h *sessionHandler) OnPairingSetupRequestReceived(peerID int, pairingID uint32) {
	c := h.console
	c.mu.Lock()
	c.pending = append(c.pending, pairingRequest{
		pairingID: pairingID,
		sessionID: h.sessionID,
		peerID:    peerID,
	})
	c.mu.Unlock()
	c.notify("Pairing request %d from peer %d (use 'respond %d accept <alias> <password>')",
		pairingID, peerID, pairingID)
}

func (h *sessionHandler) OnPairingSetupConfirmed(peerID int, accepted bool, alias string) {
	if accepted {
		h.console.notify("Paired with peer %d as %q", peerID, alias)
	} else {
		h.console.notify("Pairing with peer %d rejected", peerID)
	}
}

func (h *sessionHandler) OnPairingVerificationConfirmed(peerID int, accepted bool, alias string) {
	if accepted {
		h.console.notify("Verified peer %d as %q", peerID, alias)
	} else {
		h.console.notify("Verification of peer %d failed", peerID)
	}
}

func (h *sessionHandler) OnBootstrappingVerificationConfirmed(peerID int, accepted bool, method uint32) {
	if accepted {
		h.console.notify("Bootstrapping agreed with peer %d (method %#x)", peerID, method)
	} else {
		h.console.notify("Bootstrapping rejected by peer %d", peerID)
	}
}
