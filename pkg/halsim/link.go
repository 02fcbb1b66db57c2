package halsim

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
	"github.com/google/uuid"

	"github.com/aware-protocol/aware-go/pkg/wire"
)

// Link mDNS parameters.
const (
	LinkServiceType = "_aware-sim._udp"
	LinkDomain      = "local."
)

// DefaultAckTimeout bounds how long a bridged follow-up waits for the
// peer's acknowledgement before it is reported as not acknowledged.
const DefaultAckTimeout = 2 * time.Second

// followupPayload is the frame payload for KindFollowup.
type followupPayload struct {
	Dest    uint32 `cbor:"1,keyasint"`
	Src     uint32 `cbor:"2,keyasint"`
	SendID  uint32 `cbor:"3,keyasint"`
	Message []byte `cbor:"4,keyasint,omitempty"`
}

// ackPayload is the frame payload for KindFollowupAck.
type ackPayload struct {
	SendID uint32 `cbor:"1,keyasint"`
	Ok     bool   `cbor:"2,keyasint"`
}

// remoteKey identifies a session in a peer process by the peer's address
// and the instance ID the peer assigned.
type remoteKey struct {
	peer   string
	origin uint32
}

// remoteRef is the reverse mapping for a mirrored session.
type remoteRef struct {
	peer   string
	addr   *net.UDPAddr
	origin uint32
}

// announcedSession is a local publish session replayed to newly discovered
// peers.
type announcedSession struct {
	service string
	ssi     []byte
}

// Link connects an Air to peer processes on the local network. Peers find
// each other over mDNS and exchange CBOR frames over UDP: publish sessions
// are announced and mirrored, follow-on messages are forwarded and
// acknowledged.
type Link struct {
	air    *Air
	log    *slog.Logger
	conn   *net.UDPConn
	server *zeroconf.Server
	cancel context.CancelFunc

	// instance is this process's mDNS instance name; linkID is a non-zero
	// origin for frames not tied to a session.
	instance string
	linkID   uint32

	ackTimeout time.Duration

	mu          sync.Mutex
	closed      bool
	peers       map[string]*net.UDPAddr
	announced   map[uint32]announcedSession
	remoteIDs   map[remoteKey]uint32
	remoteRefs  map[uint32]remoteRef
	pendingAcks map[uint32]*time.Timer
}

// NewLink opens a UDP socket, advertises it over mDNS, browses for peers
// and installs itself as the medium's bridge.
func NewLink(a *Air, logger *slog.Logger) (*Link, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	port := conn.LocalAddr().(*net.UDPAddr).Port

	id := uuid.New()
	instance := "aware-" + id.String()[:8]
	var linkID uint32
	for _, b := range id[:4] {
		linkID = linkID<<8 | uint32(b)
	}
	if linkID == 0 {
		linkID = 1
	}

	server, err := zeroconf.Register(instance, LinkServiceType, LinkDomain,
		port, []string{"id=" + instance}, nil)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("mdns register: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &Link{
		air:         a,
		log:         logger.With("component", "halsim.link", "instance", instance),
		conn:        conn,
		server:      server,
		cancel:      cancel,
		instance:    instance,
		linkID:      linkID,
		ackTimeout:  DefaultAckTimeout,
		peers:       make(map[string]*net.UDPAddr),
		announced:   make(map[uint32]announcedSession),
		remoteIDs:   make(map[remoteKey]uint32),
		remoteRefs:  make(map[uint32]remoteRef),
		pendingAcks: make(map[uint32]*time.Timer),
	}
	a.SetBridge(l)
	go l.readLoop()
	go l.browse(ctx)
	l.log.Info("link up", "port", port)
	return l, nil
}

// Close withdraws the mDNS advertisement and stops forwarding.
func (l *Link) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	for id, t := range l.pendingAcks {
		t.Stop()
		delete(l.pendingAcks, id)
	}
	l.mu.Unlock()

	l.cancel()
	l.server.Shutdown()
	l.conn.Close()
}

func (l *Link) browse(ctx context.Context) {
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go func() {
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				l.peerFound(entry)
			case entry, ok := <-removed:
				if !ok {
					continue
				}
				l.peerLost(entry)
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := zeroconf.Browse(ctx, LinkServiceType, LinkDomain, entries, removed); err != nil {
		l.log.Warn("mdns browse stopped", "err", err)
	}
}

func (l *Link) peerFound(entry *zeroconf.ServiceEntry) {
	if entry.Instance == l.instance || len(entry.AddrIPv4) == 0 {
		return
	}
	addr := &net.UDPAddr{IP: entry.AddrIPv4[0], Port: entry.Port}
	key := addr.String()

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	if _, known := l.peers[key]; known {
		l.mu.Unlock()
		return
	}
	l.peers[key] = addr
	replay := make(map[uint32]announcedSession, len(l.announced))
	for id, s := range l.announced {
		replay[id] = s
	}
	l.mu.Unlock()

	l.log.Info("peer found", "peer", entry.Instance, "addr", key)
	l.send(addr, &wire.Frame{Kind: wire.KindProbe, Origin: l.linkID})
	for id, s := range replay {
		l.send(addr, &wire.Frame{
			Kind:    wire.KindAnnounce,
			Origin:  id,
			Service: s.service,
			Payload: s.ssi,
		})
	}
}

func (l *Link) peerLost(entry *zeroconf.ServiceEntry) {
	if entry.Instance == l.instance || len(entry.AddrIPv4) == 0 {
		return
	}
	key := (&net.UDPAddr{IP: entry.AddrIPv4[0], Port: entry.Port}).String()

	l.mu.Lock()
	delete(l.peers, key)
	var dropped []uint32
	for rk, localID := range l.remoteIDs {
		if rk.peer == key {
			dropped = append(dropped, localID)
			delete(l.remoteIDs, rk)
			delete(l.remoteRefs, localID)
		}
	}
	l.mu.Unlock()

	for _, localID := range dropped {
		l.air.RemoveRemoteSession(localID)
	}
	if len(dropped) > 0 {
		l.log.Info("peer lost", "addr", key, "sessions", len(dropped))
	}
}

func (l *Link) readLoop() {
	buf := make([]byte, wire.DefaultMaxFrameSize)
	for {
		n, addr, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		frame, err := wire.DecodeFrame(buf[:n])
		if err != nil {
			l.log.Debug("bad frame", "from", addr, "err", err)
			continue
		}
		l.handleFrame(addr, frame)
	}
}

func (l *Link) handleFrame(addr *net.UDPAddr, f *wire.Frame) {
	switch f.Kind {
	case wire.KindAnnounce:
		l.handleAnnounce(addr, f)
	case wire.KindBye:
		l.handleBye(addr, f)
	case wire.KindProbe:
		l.handleProbe(addr)
	case wire.KindFollowup:
		l.handleFollowup(addr, f)
	case wire.KindFollowupAck:
		l.handleAck(f)
	}
}

func (l *Link) handleAnnounce(addr *net.UDPAddr, f *wire.Frame) {
	key := remoteKey{peer: addr.String(), origin: f.Origin}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	if _, known := l.peers[key.peer]; !known {
		// Frames can arrive before mDNS resolution completes.
		l.peers[key.peer] = addr
	}
	if _, known := l.remoteIDs[key]; known {
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()

	localID := l.air.AddRemoteSession(f.Service, f.Payload)

	l.mu.Lock()
	l.remoteIDs[key] = localID
	l.remoteRefs[localID] = remoteRef{peer: key.peer, addr: addr, origin: f.Origin}
	l.mu.Unlock()

	l.log.Debug("remote session mirrored", "service", f.Service, "local", localID)
}

func (l *Link) handleBye(addr *net.UDPAddr, f *wire.Frame) {
	key := remoteKey{peer: addr.String(), origin: f.Origin}

	l.mu.Lock()
	localID, known := l.remoteIDs[key]
	if known {
		delete(l.remoteIDs, key)
		delete(l.remoteRefs, localID)
	}
	l.mu.Unlock()

	if known {
		l.air.RemoveRemoteSession(localID)
	}
}

func (l *Link) handleProbe(addr *net.UDPAddr) {
	l.mu.Lock()
	if _, known := l.peers[addr.String()]; !known {
		l.peers[addr.String()] = addr
	}
	replay := make(map[uint32]announcedSession, len(l.announced))
	for id, s := range l.announced {
		replay[id] = s
	}
	l.mu.Unlock()

	for id, s := range replay {
		l.send(addr, &wire.Frame{
			Kind:    wire.KindAnnounce,
			Origin:  id,
			Service: s.service,
			Payload: s.ssi,
		})
	}
}

func (l *Link) handleFollowup(addr *net.UDPAddr, f *wire.Frame) {
	var p followupPayload
	if err := wire.Unmarshal(f.Payload, &p); err != nil {
		l.log.Debug("bad followup payload", "from", addr, "err", err)
		return
	}

	// Translate the sender's session to its local mirror when known, so
	// the receiving radio attributes the message to the matched peer.
	srcKey := remoteKey{peer: addr.String(), origin: p.Src}
	l.mu.Lock()
	src, known := l.remoteIDs[srcKey]
	l.mu.Unlock()
	if !known {
		src = p.Src
	}

	delivered := l.air.DeliverRemoteFollowup(p.Dest, src, p.Message)

	ack, err := wire.Marshal(ackPayload{SendID: p.SendID, Ok: delivered})
	if err != nil {
		return
	}
	l.send(addr, &wire.Frame{Kind: wire.KindFollowupAck, Origin: l.linkID, Payload: ack})
}

func (l *Link) handleAck(f *wire.Frame) {
	var p ackPayload
	if err := wire.Unmarshal(f.Payload, &p); err != nil {
		return
	}

	l.mu.Lock()
	t, pending := l.pendingAcks[p.SendID]
	if pending {
		t.Stop()
		delete(l.pendingAcks, p.SendID)
	}
	l.mu.Unlock()

	if pending {
		l.air.AckFollowup(p.SendID, p.Ok)
	}
}

func (l *Link) send(addr *net.UDPAddr, f *wire.Frame) {
	data, err := wire.EncodeFrame(f)
	if err != nil {
		l.log.Warn("encode frame", "kind", f.Kind, "err", err)
		return
	}
	if _, err := l.conn.WriteToUDP(data, addr); err != nil {
		l.log.Debug("send frame", "to", addr, "err", err)
	}
}

func (l *Link) broadcast(f *wire.Frame) {
	l.mu.Lock()
	addrs := make([]*net.UDPAddr, 0, len(l.peers))
	for _, a := range l.peers {
		addrs = append(addrs, a)
	}
	l.mu.Unlock()
	for _, a := range addrs {
		l.send(a, f)
	}
}

// Bridge implementation, invoked by Air.

var _ Bridge = (*Link)(nil)

func (l *Link) LocalSessionAdded(service string, instanceID uint32, ssi []byte) {
	l.mu.Lock()
	l.announced[instanceID] = announcedSession{service: service, ssi: ssi}
	l.mu.Unlock()
	l.broadcast(&wire.Frame{
		Kind:    wire.KindAnnounce,
		Origin:  instanceID,
		Service: service,
		Payload: ssi,
	})
}

func (l *Link) LocalSessionRemoved(instanceID uint32) {
	l.mu.Lock()
	delete(l.announced, instanceID)
	l.mu.Unlock()
	l.broadcast(&wire.Frame{Kind: wire.KindBye, Origin: instanceID})
}

func (l *Link) LocalFollowup(destInstanceID, srcInstanceID, sendID uint32, message []byte) bool {
	l.mu.Lock()
	ref, known := l.remoteRefs[destInstanceID]
	if !known || l.closed {
		l.mu.Unlock()
		return false
	}
	l.pendingAcks[sendID] = time.AfterFunc(l.ackTimeout, func() { l.ackTimedOut(sendID) })
	l.mu.Unlock()

	payload, err := wire.Marshal(followupPayload{
		Dest:    ref.origin,
		Src:     srcInstanceID,
		SendID:  sendID,
		Message: message,
	})
	if err != nil {
		l.mu.Lock()
		if t, pending := l.pendingAcks[sendID]; pending {
			t.Stop()
			delete(l.pendingAcks, sendID)
		}
		l.mu.Unlock()
		return false
	}
	l.send(ref.addr, &wire.Frame{Kind: wire.KindFollowup, Origin: srcInstanceID, Payload: payload})
	return true
}

func (l *Link) ackTimedOut(sendID uint32) {
	l.mu.Lock()
	_, pending := l.pendingAcks[sendID]
	delete(l.pendingAcks, sendID)
	l.mu.Unlock()
	if pending {
		l.air.AckFollowup(sendID, false)
	}
}
