package aware

import (
	"net"

	"github.com/aware-protocol/aware-go/pkg/hal"
)

// ClientCallback receives attach-level events for one client. Callbacks are
// invoked from the state machine goroutine and must not block.
type ClientCallback interface {
	// OnConnectSuccess reports a completed attach; exactly one of
	// OnConnectSuccess/OnConnectFail fires per Connect call.
	OnConnectSuccess(clientID int)

	// OnConnectFail reports a rejected or failed attach.
	OnConnectFail(reason hal.Status)

	// OnIdentityChanged reports the discovery interface MAC. Only invoked
	// for clients that requested identity-change notifications.
	OnIdentityChanged(mac net.HardwareAddr)

	// OnClusterChange reports cluster membership changes. Only invoked for
	// clients that requested identity-change notifications.
	OnClusterChange(eventType hal.ClusterEventType, clusterID net.HardwareAddr)

	// OnAttachTerminated reports that the attach ended without a Disconnect
	// call (radio went down).
	OnAttachTerminated()
}

// SessionCallback receives discovery-session events. Callbacks are invoked
// from the state machine goroutine and must not block.
type SessionCallback interface {
	// OnSessionStarted reports a successfully created session; exactly one
	// of OnSessionStarted/OnSessionConfigFail fires per Publish/Subscribe.
	OnSessionStarted(sessionID int)

	// OnSessionConfigSuccess reports a completed update.
	OnSessionConfigSuccess()

	// OnSessionConfigFail reports a failed create or update.
	OnSessionConfigFail(reason hal.Status)

	// OnSessionTerminated fires exactly once when the session ends.
	OnSessionTerminated(reason hal.Status)

	// OnSessionSuspendSucceeded / OnSessionSuspendFail report the outcome
	// of a Suspend request. OnSessionResumeFail reports a failed Resume;
	// resume success surfaces via OnSessionSuspensionStatusChanged.
	OnSessionSuspendSucceeded()
	OnSessionSuspendFail(reason hal.Status)
	OnSessionResumeFail(reason hal.Status)

	// OnSessionSuspensionStatusChanged reports firmware-driven suspension
	// state changes.
	OnSessionSuspensionStatusChanged(suspended bool)

	// OnMatch reports a discovered peer. distanceMM is negative when no
	// ranging result is attached. pairingAlias is non-empty when the peer
	// matched a cached pairing identity.
	OnMatch(peerID int, serviceSpecificInfo, matchFilter []byte, distanceMM int, pairingAlias string)

	// OnMatchExpired reports that a previously matched peer is gone.
	OnMatchExpired(peerID int)

	// OnMessageReceived reports an inbound follow-on message.
	OnMessageReceived(peerID int, message []byte)

	// OnMessageSendSuccess / OnMessageSendFail report the terminal outcome
	// of one SendMessage call, identified by the caller-supplied message
	// ID. Exactly one of the two fires per message.
	OnMessageSendSuccess(messageID int)
	OnMessageSendFail(messageID int, reason hal.Status)

	// OnPairingSetupRequestReceived reports a peer-initiated pairing setup.
	OnPairingSetupRequestReceived(peerID int, pairingID uint32)

	// OnPairingSetupConfirmed / OnPairingVerificationConfirmed report the
	// completion of a pairing exchange with the peer.
	OnPairingSetupConfirmed(peerID int, accepted bool, alias string)
	OnPairingVerificationConfirmed(peerID int, accepted bool, alias string)

	// OnBootstrappingVerificationConfirmed reports the agreed
	// bootstrapping method (or rejection) for a bootstrapping exchange.
	OnBootstrappingVerificationConfirmed(peerID int, accepted bool, method uint32)
}

// DataPathEvents is the collaborator contract for the data-path manager
// layered above the state machine (network-interface plumbing is out of
// scope here).
type DataPathEvents interface {
	// OnDataPathInterfaceCreated / Deleted report NDI lifecycle.
	OnDataPathInterfaceCreated(ifaceName string)
	OnDataPathInterfaceDeleted(ifaceName string)

	// OnDataPathInitiateSuccess reports firmware acceptance of an
	// initiator request; the NDP is not up until OnDataPathConfirm.
	OnDataPathInitiateSuccess(ndpID uint32)
	OnDataPathInitiateFail(reason hal.Status)

	// OnDataPathRequest reports a peer-initiated NDP request.
	OnDataPathRequest(clientID, sessionID, peerID int, ndpID uint32, appInfo []byte)

	// OnDataPathConfirm reports NDP establishment (or failure, including
	// confirm timeout, with reason != StatusSuccess).
	OnDataPathConfirm(ndpID uint32, accepted bool, reason hal.Status, channels []hal.DataPathChannelInfo)

	// OnDataPathEnd reports NDP teardown.
	OnDataPathEnd(ndpID uint32)
}

// ArbitrationDecision is the interface-conflict arbiter's verdict on a
// pending connect.
type ArbitrationDecision int

const (
	// ArbitrationExecute lets the connect proceed immediately.
	ArbitrationExecute ArbitrationDecision = iota
	// ArbitrationAbort rejects the connect (no resources).
	ArbitrationAbort
	// ArbitrationDefer parks the connect until ResolveArbitration.
	ArbitrationDefer
)

// InterfaceArbiter decides whether a connect may claim the radio interface
// when another subsystem holds a conflicting interface. The default arbiter
// always returns ArbitrationExecute.
type InterfaceArbiter interface {
	DecideConnect(clientID, uid int, callingPackage string) ArbitrationDecision
}

// InterfaceOwner reference-counts the shared radio interface. Acquire is
// called when the first client needs the radio, Release when the last one
// lets go or an enable attempt fails.
type InterfaceOwner interface {
	Acquire()
	Release()
}

type executeArbiter struct{}

func (executeArbiter) DecideConnect(int, int, string) ArbitrationDecision {
	return ArbitrationExecute
}

type noopInterfaceOwner struct{}

func (noopInterfaceOwner) Acquire() {}
func (noopInterfaceOwner) Release() {}

type noopDataPathEvents struct{}

func (noopDataPathEvents) OnDataPathInterfaceCreated(string)                                     {}
func (noopDataPathEvents) OnDataPathInterfaceDeleted(string)                                     {}
func (noopDataPathEvents) OnDataPathInitiateSuccess(uint32)                                      {}
func (noopDataPathEvents) OnDataPathInitiateFail(hal.Status)                                     {}
func (noopDataPathEvents) OnDataPathRequest(int, int, int, uint32, []byte)                       {}
func (noopDataPathEvents) OnDataPathConfirm(uint32, bool, hal.Status, []hal.DataPathChannelInfo) {}
func (noopDataPathEvents) OnDataPathEnd(uint32)                                                  {}
