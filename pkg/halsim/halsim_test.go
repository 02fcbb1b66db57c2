package halsim_test

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aware-protocol/aware-go/pkg/hal"
	"github.com/aware-protocol/aware-go/pkg/halsim"
	"github.com/aware-protocol/aware-go/pkg/pairing"
)

// recorder funnels every firmware event into one channel so tests can await
// them in order without caring which callback delivered them.
type recorder struct {
	events chan any
}

func newRecorder() *recorder { return &recorder{events: make(chan any, 256)} }

type capsResp struct {
	txn    uint16
	status hal.Status
	caps   hal.Capabilities
}

type configResp struct {
	txn    uint16
	status hal.Status
}

type disableResp struct {
	txn    uint16
	status hal.Status
}

type sessionResp struct {
	txn       uint16
	status    hal.Status
	isPublish bool
	pubSubID  uint8
}

type queuedResp struct {
	txn    uint16
	status hal.Status
}

type ifaceResp struct {
	txn    uint16
	status hal.Status
}

type initDataPathResp struct {
	txn    uint16
	status hal.Status
	ndpID  uint32
}

type respondDataPathResp struct {
	txn    uint16
	status hal.Status
}

type endDataPathResp struct {
	txn    uint16
	status hal.Status
}

type pairResp struct {
	txn       uint16
	status    hal.Status
	pairingID uint32
}

type endPairResp struct {
	txn    uint16
	status hal.Status
}

type bootResp struct {
	txn             uint16
	status          hal.Status
	bootstrappingID uint32
}

type suspendResp struct {
	txn    uint16
	status hal.Status
}

type resumeResp struct {
	txn    uint16
	status hal.Status
}

type clusterChange struct {
	eventType hal.ClusterEventType
	addr      net.HardwareAddr
}

type addrChange struct {
	addr net.HardwareAddr
}

type matchExpired struct {
	pubSubID   uint8
	instanceID uint32
}

type sessionTerminated struct {
	pubSubID  uint8
	isPublish bool
	reason    hal.Status
}

type sendSuccess struct {
	txn uint16
}

type sendFail struct {
	txn    uint16
	reason hal.Status
}

type dataPathEnd struct {
	ndpID uint32
}

type suspensionChange struct {
	pubSubID  uint8
	suspended bool
}

type awareDown struct {
	reason hal.Status
}

func (r *recorder) push(ev any) { r.events <- ev }

func (r *recorder) OnCapabilitiesResponse(txn uint16, status hal.Status, caps hal.Capabilities) {
	r.push(capsResp{txn, status, caps})
}
func (r *recorder) OnConfigResponse(txn uint16, status hal.Status)  { r.push(configResp{txn, status}) }
func (r *recorder) OnDisableResponse(txn uint16, status hal.Status) { r.push(disableResp{txn, status}) }
func (r *recorder) OnSessionConfigResponse(txn uint16, status hal.Status, isPublish bool, pubSubID uint8) {
	r.push(sessionResp{txn, status, isPublish, pubSubID})
}
func (r *recorder) OnMessageSendQueuedResponse(txn uint16, status hal.Status) {
	r.push(queuedResp{txn, status})
}
func (r *recorder) OnDataPathInterfaceResponse(txn uint16, status hal.Status) {
	r.push(ifaceResp{txn, status})
}
func (r *recorder) OnInitiateDataPathResponse(txn uint16, status hal.Status, ndpID uint32) {
	r.push(initDataPathResp{txn, status, ndpID})
}
func (r *recorder) OnRespondToDataPathResponse(txn uint16, status hal.Status) {
	r.push(respondDataPathResp{txn, status})
}
func (r *recorder) OnEndDataPathResponse(txn uint16, status hal.Status) {
	r.push(endDataPathResp{txn, status})
}
func (r *recorder) OnPairingResponse(txn uint16, status hal.Status, pairingID uint32) {
	r.push(pairResp{txn, status, pairingID})
}
func (r *recorder) OnEndPairingResponse(txn uint16, status hal.Status) {
	r.push(endPairResp{txn, status})
}
func (r *recorder) OnBootstrappingResponse(txn uint16, status hal.Status, bootstrappingID uint32) {
	r.push(bootResp{txn, status, bootstrappingID})
}
func (r *recorder) OnSuspendResponse(txn uint16, status hal.Status) {
	r.push(suspendResp{txn, status})
}
func (r *recorder) OnResumeResponse(txn uint16, status hal.Status) {
	r.push(resumeResp{txn, status})
}

func (r *recorder) OnClusterChange(eventType hal.ClusterEventType, addr net.HardwareAddr) {
	r.push(clusterChange{eventType, addr})
}
func (r *recorder) OnInterfaceAddressChange(addr net.HardwareAddr) { r.push(addrChange{addr}) }
func (r *recorder) OnMatch(event hal.MatchEvent)                   { r.push(event) }
func (r *recorder) OnMatchExpired(pubSubID uint8, requesterInstanceID uint32) {
	r.push(matchExpired{pubSubID, requesterInstanceID})
}
func (r *recorder) OnSessionTerminated(pubSubID uint8, isPublish bool, reason hal.Status) {
	r.push(sessionTerminated{pubSubID, isPublish, reason})
}
func (r *recorder) OnMessageReceived(msg hal.ReceivedMessage) { r.push(msg) }
func (r *recorder) OnMessageSendSuccess(txn uint16)           { r.push(sendSuccess{txn}) }
func (r *recorder) OnMessageSendFail(txn uint16, reason hal.Status) {
	r.push(sendFail{txn, reason})
}
func (r *recorder) OnDataPathRequest(event hal.DataPathRequestEvent)           { r.push(event) }
func (r *recorder) OnDataPathConfirm(event hal.DataPathConfirmEvent)           { r.push(event) }
func (r *recorder) OnDataPathEnd(ndpID uint32)                                 { r.push(dataPathEnd{ndpID}) }
func (r *recorder) OnPairingRequest(event hal.PairingRequestEvent)             { r.push(event) }
func (r *recorder) OnPairingConfirm(event hal.PairingConfirmEvent)             { r.push(event) }
func (r *recorder) OnBootstrappingRequest(event hal.BootstrappingRequestEvent) { r.push(event) }
func (r *recorder) OnBootstrappingConfirm(event hal.BootstrappingConfirmEvent) { r.push(event) }
func (r *recorder) OnSuspensionStatusChange(pubSubID uint8, suspended bool) {
	r.push(suspensionChange{pubSubID, suspended})
}
func (r *recorder) OnAwareDown(reason hal.Status) { r.push(awareDown{reason}) }

var _ hal.EventHandler = (*recorder)(nil)

// await returns the next event of type T, discarding events of other types.
func await[T any](t *testing.T, r *recorder) T {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-r.events:
			if v, ok := ev.(T); ok {
				return v
			}
		case <-deadline:
			var zero T
			t.Fatalf("timed out waiting for %T", zero)
			return zero
		}
	}
}

// upRadio attaches a radio to the medium, registers a recorder, and brings
// the radio up, consuming the startup events.
func upRadio(t *testing.T, air *halsim.Air, name string) (*halsim.Radio, *recorder) {
	t.Helper()
	r := air.NewRadio(name, halsim.DefaultCapabilities())
	t.Cleanup(r.Close)
	rec := newRecorder()
	r.RegisterHandler(rec)
	require.NoError(t, r.EnableAndConfigure(1, hal.Config{}, true))
	resp := await[configResp](t, rec)
	require.True(t, resp.status.IsSuccess())
	await[addrChange](t, rec)
	await[clusterChange](t, rec)
	return r, rec
}

func startPublish(t *testing.T, r *halsim.Radio, rec *recorder, service string, ssi []byte, cfg hal.PairingConfig) uint8 {
	t.Helper()
	require.NoError(t, r.Publish(10, 0, hal.PublishConfig{
		ServiceName:         service,
		ServiceSpecificInfo: ssi,
		Pairing:             cfg,
	}))
	resp := await[sessionResp](t, rec)
	require.True(t, resp.status.IsSuccess())
	require.True(t, resp.isPublish)
	require.NotZero(t, resp.pubSubID)
	return resp.pubSubID
}

func startSubscribe(t *testing.T, r *halsim.Radio, rec *recorder, service string) uint8 {
	t.Helper()
	require.NoError(t, r.Subscribe(11, 0, hal.SubscribeConfig{ServiceName: service}))
	resp := await[sessionResp](t, rec)
	require.True(t, resp.status.IsSuccess())
	require.False(t, resp.isPublish)
	require.NotZero(t, resp.pubSubID)
	return resp.pubSubID
}

func TestRadioStartupEvents(t *testing.T) {
	air := halsim.NewAir()
	r := air.NewRadio("dut", halsim.DefaultCapabilities())
	t.Cleanup(r.Close)
	rec := newRecorder()
	r.RegisterHandler(rec)

	require.NoError(t, r.EnableAndConfigure(7, hal.Config{Support5GHz: true}, true))

	resp := await[configResp](t, rec)
	assert.EqualValues(t, 7, resp.txn)
	assert.Equal(t, hal.StatusSuccess, resp.status)

	addr := await[addrChange](t, rec)
	assert.Equal(t, r.Mac(), addr.addr)

	cluster := await[clusterChange](t, rec)
	assert.Equal(t, hal.ClusterEventStartedCluster, cluster.eventType)
	assert.Len(t, cluster.addr, 6)
}

func TestCommandsRejectedWithoutHandler(t *testing.T) {
	air := halsim.NewAir()
	r := air.NewRadio("dut", halsim.DefaultCapabilities())
	require.ErrorIs(t, r.GetCapabilities(1), halsim.ErrNoHandler)

	r.Close()
	require.ErrorIs(t, r.GetCapabilities(2), halsim.ErrRadioClosed)
}

func TestCapabilitiesQuery(t *testing.T) {
	air := halsim.NewAir()
	r, rec := upRadio(t, air, "dut")

	require.NoError(t, r.GetCapabilities(3))
	resp := await[capsResp](t, rec)
	assert.EqualValues(t, 3, resp.txn)
	assert.Equal(t, hal.StatusSuccess, resp.status)
	assert.Equal(t, halsim.DefaultCapabilities(), resp.caps)
}

func TestDropNextSwallowsResponse(t *testing.T) {
	air := halsim.NewAir()
	r, rec := upRadio(t, air, "dut")

	r.DropNext(halsim.OpCapabilities)
	require.NoError(t, r.GetCapabilities(4))
	require.NoError(t, r.GetCapabilities(5))

	resp := await[capsResp](t, rec)
	assert.EqualValues(t, 5, resp.txn)
}

func TestFailNextInjectsStatus(t *testing.T) {
	air := halsim.NewAir()
	r, rec := upRadio(t, air, "dut")

	r.FailNext(halsim.OpPublish, hal.StatusNoResourcesAvailable)
	require.NoError(t, r.Publish(12, 0, hal.PublishConfig{ServiceName: "printer"}))
	resp := await[sessionResp](t, rec)
	assert.Equal(t, hal.StatusNoResourcesAvailable, resp.status)
	assert.Zero(t, resp.pubSubID)

	// The injection is consumed; the retry goes through.
	startPublish(t, r, rec, "printer", nil, hal.PairingConfig{})
}

func TestPublishSubscribeMatch(t *testing.T) {
	air := halsim.NewAir()
	pub, pubRec := upRadio(t, air, "publisher")
	sub, subRec := upRadio(t, air, "subscriber")

	startPublish(t, pub, pubRec, "aware.demo", []byte("hello"), hal.PairingConfig{})
	subID := startSubscribe(t, sub, subRec, "aware.demo")

	match := await[hal.MatchEvent](t, subRec)
	assert.Equal(t, subID, match.PubSubID)
	assert.NotZero(t, match.RequesterInstanceID)
	assert.Equal(t, pub.Mac(), match.PeerMac)
	assert.Equal(t, []byte("hello"), match.ServiceSpecificInfo)
	assert.Empty(t, match.Nira)
}

func TestMatchCarriesResolvableNira(t *testing.T) {
	air := halsim.NewAir()
	pub, pubRec := upRadio(t, air, "publisher")
	sub, subRec := upRadio(t, air, "subscriber")

	nik := []byte("0123456789abcdef")
	pub.SetIdentityKey(nik)
	startPublish(t, pub, pubRec, "aware.tv", nil, hal.PairingConfig{
		PairingSetupEnabled: true,
		PairingCacheEnabled: true,
	})
	startSubscribe(t, sub, subRec, "aware.tv")

	match := await[hal.MatchEvent](t, subRec)
	require.Len(t, match.Nira, 8+pairing.TagSize)
	nonce, tag := match.Nira[:8], match.Nira[8:]
	assert.Equal(t, pairing.ResolutionTag(nik, nonce, pub.Mac()), tag)
}

func TestFollowupDeliveryAndAck(t *testing.T) {
	air := halsim.NewAir()
	pub, pubRec := upRadio(t, air, "publisher")
	sub, subRec := upRadio(t, air, "subscriber")

	pubID := startPublish(t, pub, pubRec, "aware.chat", nil, hal.PairingConfig{})
	subID := startSubscribe(t, sub, subRec, "aware.chat")
	match := await[hal.MatchEvent](t, subRec)

	require.NoError(t, sub.SendMessage(20, subID, match.RequesterInstanceID, match.PeerMac, []byte("ping"), 1))

	queued := await[queuedResp](t, subRec)
	assert.EqualValues(t, 20, queued.txn)
	assert.Equal(t, hal.StatusSuccess, queued.status)

	got := await[hal.ReceivedMessage](t, pubRec)
	assert.Equal(t, pubID, got.PubSubID)
	assert.Equal(t, sub.Mac(), got.PeerMac)
	assert.Equal(t, []byte("ping"), got.Message)
	assert.NotZero(t, got.RequesterInstanceID)

	ack := await[sendSuccess](t, subRec)
	assert.EqualValues(t, 20, ack.txn)

	// The publisher can answer the sender through the reported instance.
	require.NoError(t, pub.SendMessage(21, pubID, got.RequesterInstanceID, got.PeerMac, []byte("pong"), 2))
	reply := await[hal.ReceivedMessage](t, subRec)
	assert.Equal(t, subID, reply.PubSubID)
	assert.Equal(t, []byte("pong"), reply.Message)
}

func TestFollowupOtaFailure(t *testing.T) {
	air := halsim.NewAir()
	pub, pubRec := upRadio(t, air, "publisher")
	sub, subRec := upRadio(t, air, "subscriber")

	startPublish(t, pub, pubRec, "aware.chat", nil, hal.PairingConfig{})
	subID := startSubscribe(t, sub, subRec, "aware.chat")
	match := await[hal.MatchEvent](t, subRec)

	sub.FailNext(halsim.OpSendMessageOta, hal.StatusNoOtaAck)
	require.NoError(t, sub.SendMessage(22, subID, match.RequesterInstanceID, match.PeerMac, []byte("lost"), 3))

	queued := await[queuedResp](t, subRec)
	assert.Equal(t, hal.StatusSuccess, queued.status)
	fail := await[sendFail](t, subRec)
	assert.EqualValues(t, 22, fail.txn)
	assert.Equal(t, hal.StatusNoOtaAck, fail.reason)
}

func TestFollowupToUnknownPeerFails(t *testing.T) {
	air := halsim.NewAir()
	sub, subRec := upRadio(t, air, "subscriber")
	subID := startSubscribe(t, sub, subRec, "aware.chat")

	require.NoError(t, sub.SendMessage(23, subID, 9999, nil, []byte("void"), 4))
	await[queuedResp](t, subRec)
	fail := await[sendFail](t, subRec)
	assert.Equal(t, hal.StatusNoOtaAck, fail.reason)
}

func TestStopPublishExpiresMatch(t *testing.T) {
	air := halsim.NewAir()
	pub, pubRec := upRadio(t, air, "publisher")
	sub, subRec := upRadio(t, air, "subscriber")

	pubID := startPublish(t, pub, pubRec, "aware.demo", nil, hal.PairingConfig{})
	subID := startSubscribe(t, sub, subRec, "aware.demo")
	match := await[hal.MatchEvent](t, subRec)

	require.NoError(t, pub.StopPublish(30, pubID))
	resp := await[sessionResp](t, pubRec)
	assert.Equal(t, hal.StatusSuccess, resp.status)

	expired := await[matchExpired](t, subRec)
	assert.Equal(t, subID, expired.pubSubID)
	assert.Equal(t, match.RequesterInstanceID, expired.instanceID)
}

func TestDisableExpiresPeerMatches(t *testing.T) {
	air := halsim.NewAir()
	pub, pubRec := upRadio(t, air, "publisher")
	sub, subRec := upRadio(t, air, "subscriber")

	startPublish(t, pub, pubRec, "aware.demo", nil, hal.PairingConfig{})
	startSubscribe(t, sub, subRec, "aware.demo")
	await[hal.MatchEvent](t, subRec)

	require.NoError(t, pub.Disable(31))
	resp := await[disableResp](t, pubRec)
	assert.Equal(t, hal.StatusSuccess, resp.status)
	down := await[awareDown](t, pubRec)
	assert.Equal(t, hal.StatusSuccess, down.reason)

	await[matchExpired](t, subRec)
}

// pairedSessions brings up a publisher and a subscriber on one service and
// returns the subscriber-side match.
func pairedSessions(t *testing.T, air *halsim.Air, service string) (pub *halsim.Radio, pubRec *recorder, sub *halsim.Radio, subRec *recorder, match hal.MatchEvent) {
	t.Helper()
	pub, pubRec = upRadio(t, air, "publisher")
	sub, subRec = upRadio(t, air, "subscriber")
	startPublish(t, pub, pubRec, service, nil, hal.PairingConfig{PairingSetupEnabled: true})
	startSubscribe(t, sub, subRec, service)
	match = await[hal.MatchEvent](t, subRec)
	return pub, pubRec, sub, subRec, match
}

func TestPairingExchange(t *testing.T) {
	air := halsim.NewAir()
	pub, pubRec, sub, subRec, match := pairedSessions(t, air, "aware.tv")

	initNik := []byte("init-nik-0123456")
	respNik := []byte("resp-nik-0123456")

	require.NoError(t, sub.InitiatePairing(40, match.RequesterInstanceID, match.PeerMac, hal.PairingSecurity{
		RequestType: hal.PairingRequestTypeSetup,
		Password:    "hunter2",
		Nik:         initNik,
	}, hal.CipherSuitePublicKey128))

	initResp := await[pairResp](t, subRec)
	require.Equal(t, hal.StatusSuccess, initResp.status)
	require.NotZero(t, initResp.pairingID)

	req := await[hal.PairingRequestEvent](t, pubRec)
	assert.Equal(t, initResp.pairingID, req.PairingID)
	assert.Equal(t, hal.PairingRequestTypeSetup, req.RequestType)
	assert.Equal(t, sub.Mac(), req.PeerMac)
	assert.True(t, req.CacheEnabled)
	assert.Empty(t, req.Nira)

	require.NoError(t, pub.RespondToPairingRequest(41, req.PairingID, true, hal.PairingSecurity{
		RequestType: hal.PairingRequestTypeSetup,
		Nik:         respNik,
	}, hal.CipherSuitePublicKey128))
	await[pairResp](t, pubRec)

	wantNpk, err := pairing.DeriveNpk([]byte("hunter2"), initNik, respNik)
	require.NoError(t, err)

	initConfirm := await[hal.PairingConfirmEvent](t, subRec)
	assert.True(t, initConfirm.Accepted)
	assert.Equal(t, hal.StatusSuccess, initConfirm.Reason)
	assert.True(t, initConfirm.CacheEnabled)
	assert.Equal(t, wantNpk, initConfirm.Npk)
	assert.Equal(t, respNik, initConfirm.PeerNik)

	respConfirm := await[hal.PairingConfirmEvent](t, pubRec)
	assert.True(t, respConfirm.Accepted)
	assert.Equal(t, wantNpk, respConfirm.Npk)
	assert.Equal(t, initNik, respConfirm.PeerNik)
}

func TestPairingRejected(t *testing.T) {
	air := halsim.NewAir()
	pub, pubRec, sub, subRec, match := pairedSessions(t, air, "aware.tv")

	require.NoError(t, sub.InitiatePairing(42, match.RequesterInstanceID, match.PeerMac, hal.PairingSecurity{
		RequestType: hal.PairingRequestTypeSetup,
		Password:    "hunter2",
	}, hal.CipherSuitePublicKey128))
	await[pairResp](t, subRec)
	req := await[hal.PairingRequestEvent](t, pubRec)

	require.NoError(t, pub.RespondToPairingRequest(43, req.PairingID, false, hal.PairingSecurity{}, 0))
	await[pairResp](t, pubRec)

	confirm := await[hal.PairingConfirmEvent](t, subRec)
	assert.False(t, confirm.Accepted)
	assert.Equal(t, hal.StatusNotAllowed, confirm.Reason)
	assert.Empty(t, confirm.Npk)
}

func TestPairingVerificationRequestCarriesNira(t *testing.T) {
	air := halsim.NewAir()
	_, pubRec, sub, subRec, match := pairedSessions(t, air, "aware.tv")

	nik := []byte("verify-nik-01234")
	require.NoError(t, sub.InitiatePairing(44, match.RequesterInstanceID, match.PeerMac, hal.PairingSecurity{
		RequestType: hal.PairingRequestTypeVerification,
		Pmk:         []byte("cached-npk"),
		Nik:         nik,
	}, hal.CipherSuitePublicKey128))
	await[pairResp](t, subRec)

	req := await[hal.PairingRequestEvent](t, pubRec)
	assert.Equal(t, hal.PairingRequestTypeVerification, req.RequestType)
	require.Len(t, req.Nira, 8+pairing.TagSize)
	nonce, tag := req.Nira[:8], req.Nira[8:]
	assert.Equal(t, pairing.ResolutionTag(nik, nonce, sub.Mac()), tag)
}

func TestRespondToUnknownPairingConfirmsFailure(t *testing.T) {
	air := halsim.NewAir()
	pub, pubRec := upRadio(t, air, "publisher")

	require.NoError(t, pub.RespondToPairingRequest(45, 777, true, hal.PairingSecurity{}, 0))
	await[pairResp](t, pubRec)

	confirm := await[hal.PairingConfirmEvent](t, pubRec)
	assert.False(t, confirm.Accepted)
	assert.Equal(t, hal.StatusInvalidPairingID, confirm.Reason)
}

func TestBootstrappingExchange(t *testing.T) {
	air := halsim.NewAir()
	pub, pubRec, sub, subRec, match := pairedSessions(t, air, "aware.tv")

	require.NoError(t, sub.InitiateBootstrapping(50, match.RequesterInstanceID, match.PeerMac, 1<<2, nil))
	initResp := await[bootResp](t, subRec)
	require.Equal(t, hal.StatusSuccess, initResp.status)
	require.NotZero(t, initResp.bootstrappingID)

	req := await[hal.BootstrappingRequestEvent](t, pubRec)
	assert.Equal(t, initResp.bootstrappingID, req.BootstrappingID)
	assert.EqualValues(t, 1<<2, req.Method)
	assert.Equal(t, sub.Mac(), req.PeerMac)

	require.NoError(t, pub.RespondToBootstrapping(51, req.BootstrappingID, hal.BootstrappingAccept, 0))
	await[bootResp](t, pubRec)

	confirm := await[hal.BootstrappingConfirmEvent](t, subRec)
	assert.Equal(t, req.BootstrappingID, confirm.BootstrappingID)
	assert.Equal(t, hal.BootstrappingAccept, confirm.ResponseCode)
	assert.Equal(t, hal.StatusSuccess, confirm.Reason)
}

func TestRespondToUnknownBootstrappingFails(t *testing.T) {
	air := halsim.NewAir()
	pub, pubRec := upRadio(t, air, "publisher")

	require.NoError(t, pub.RespondToBootstrapping(52, 888, hal.BootstrappingAccept, 0))
	resp := await[bootResp](t, pubRec)
	assert.Equal(t, hal.StatusInvalidBootstrappingID, resp.status)
}

func TestDataPathExchange(t *testing.T) {
	air := halsim.NewAir()
	pub, pubRec, sub, subRec, match := pairedSessions(t, air, "aware.files")

	require.NoError(t, sub.CreateDataPathInterface(60, "aware_data0"))
	iface := await[ifaceResp](t, subRec)
	require.Equal(t, hal.StatusSuccess, iface.status)

	require.NoError(t, sub.InitiateDataPath(61, match.RequesterInstanceID, match.PeerMac,
		"aware_data0", hal.DataPathSecurity{}, []byte("open")))
	initResp := await[initDataPathResp](t, subRec)
	require.Equal(t, hal.StatusSuccess, initResp.status)
	require.NotZero(t, initResp.ndpID)

	req := await[hal.DataPathRequestEvent](t, pubRec)
	assert.Equal(t, initResp.ndpID, req.NdpID)
	assert.Equal(t, sub.Mac(), req.PeerMac)
	assert.Equal(t, []byte("open"), req.AppInfo)

	require.NoError(t, pub.RespondToDataPathRequest(62, true, req.NdpID, "aware_data0",
		hal.DataPathSecurity{}, []byte("welcome")))
	resp := await[respondDataPathResp](t, pubRec)
	require.Equal(t, hal.StatusSuccess, resp.status)

	for _, rec := range []*recorder{subRec, pubRec} {
		confirm := await[hal.DataPathConfirmEvent](t, rec)
		assert.Equal(t, initResp.ndpID, confirm.NdpID)
		assert.True(t, confirm.Accepted)
		require.Len(t, confirm.ChannelInfos, 1)
		assert.Equal(t, 5745, confirm.ChannelInfos[0].ChannelFreqMHz)
		assert.Equal(t, 80, confirm.ChannelInfos[0].Bandwidth)
	}

	require.NoError(t, sub.EndDataPath(63, initResp.ndpID))
	endResp := await[endDataPathResp](t, subRec)
	assert.Equal(t, hal.StatusSuccess, endResp.status)
	assert.Equal(t, dataPathEnd{initResp.ndpID}, await[dataPathEnd](t, subRec))
	assert.Equal(t, dataPathEnd{initResp.ndpID}, await[dataPathEnd](t, pubRec))
}

func TestDataPathRejected(t *testing.T) {
	air := halsim.NewAir()
	pub, pubRec, sub, subRec, match := pairedSessions(t, air, "aware.files")

	require.NoError(t, sub.InitiateDataPath(64, match.RequesterInstanceID, match.PeerMac,
		"aware_data0", hal.DataPathSecurity{}, nil))
	initResp := await[initDataPathResp](t, subRec)
	req := await[hal.DataPathRequestEvent](t, pubRec)

	require.NoError(t, pub.RespondToDataPathRequest(65, false, req.NdpID, "aware_data0",
		hal.DataPathSecurity{}, nil))
	await[respondDataPathResp](t, pubRec)

	confirm := await[hal.DataPathConfirmEvent](t, subRec)
	assert.Equal(t, initResp.ndpID, confirm.NdpID)
	assert.False(t, confirm.Accepted)
	assert.Equal(t, hal.StatusNotAllowed, confirm.Reason)
	assert.Empty(t, confirm.ChannelInfos)
}

func TestInterfaceLimits(t *testing.T) {
	air := halsim.NewAir()
	r, rec := upRadio(t, air, "dut")

	require.NoError(t, r.CreateDataPathInterface(70, "aware_data0"))
	require.Equal(t, hal.StatusSuccess, await[ifaceResp](t, rec).status)

	// Duplicate names are rejected.
	require.NoError(t, r.CreateDataPathInterface(71, "aware_data0"))
	assert.Equal(t, hal.StatusInvalidArgs, await[ifaceResp](t, rec).status)

	require.NoError(t, r.DeleteDataPathInterface(72, "aware_data0"))
	require.Equal(t, hal.StatusSuccess, await[ifaceResp](t, rec).status)

	require.NoError(t, r.DeleteDataPathInterface(73, "aware_data0"))
	assert.Equal(t, hal.StatusInvalidArgs, await[ifaceResp](t, rec).status)
}

func TestSuspendResume(t *testing.T) {
	air := halsim.NewAir()
	r, rec := upRadio(t, air, "dut")
	pubID := startPublish(t, r, rec, "aware.demo", nil, hal.PairingConfig{})

	require.NoError(t, r.SuspendRequest(80, pubID))
	resp := await[suspendResp](t, rec)
	assert.Equal(t, hal.StatusSuccess, resp.status)
	change := await[suspensionChange](t, rec)
	assert.Equal(t, pubID, change.pubSubID)
	assert.True(t, change.suspended)

	require.NoError(t, r.ResumeRequest(81, pubID))
	rresp := await[resumeResp](t, rec)
	assert.Equal(t, hal.StatusSuccess, rresp.status)
	change = await[suspensionChange](t, rec)
	assert.False(t, change.suspended)

	require.NoError(t, r.SuspendRequest(82, 99))
	resp = await[suspendResp](t, rec)
	assert.Equal(t, hal.StatusInvalidSessionID, resp.status)
}

func TestRemoteSessionMatchAndWithdraw(t *testing.T) {
	air := halsim.NewAir()
	sub, subRec := upRadio(t, air, "subscriber")
	subID := startSubscribe(t, sub, subRec, "aware.remote")

	inst := air.AddRemoteSession("aware.remote", []byte("far away"))
	match := await[hal.MatchEvent](t, subRec)
	assert.Equal(t, subID, match.PubSubID)
	assert.Equal(t, inst, match.RequesterInstanceID)
	assert.Equal(t, []byte("far away"), match.ServiceSpecificInfo)
	assert.Empty(t, match.Nira)

	air.RemoveRemoteSession(inst)
	expired := await[matchExpired](t, subRec)
	assert.Equal(t, inst, expired.instanceID)
}

func TestDeliverRemoteFollowup(t *testing.T) {
	air := halsim.NewAir()
	pub, pubRec := upRadio(t, air, "publisher")
	startPublish(t, pub, pubRec, "aware.remote", nil, hal.PairingConfig{})

	// Route a bridged follow-up to the publish session through its
	// own instance ID, discovered via a helper subscriber.
	sub, subRec := upRadio(t, air, "prober")
	startSubscribe(t, sub, subRec, "aware.remote")
	match := await[hal.MatchEvent](t, subRec)

	require.True(t, air.DeliverRemoteFollowup(match.RequesterInstanceID, 12345, []byte("from afar")))
	got := await[hal.ReceivedMessage](t, pubRec)
	assert.Equal(t, []byte("from afar"), got.Message)
	assert.EqualValues(t, 12345, got.RequesterInstanceID)

	assert.False(t, air.DeliverRemoteFollowup(99999, 12345, nil))
}
