package aware

import (
	"net"

	"github.com/aware-protocol/aware-go/pkg/hal"
)

// Events returns the handler to register with the firmware binding. Every
// callback posts into the event loop; none of them block.
func (m *StateManager) Events() hal.EventHandler {
	return halEvents{m: m}
}

type halEvents struct {
	m *StateManager
}

var _ hal.EventHandler = halEvents{}

func (h halEvents) OnCapabilitiesResponse(txn uint16, status hal.Status, caps hal.Capabilities) {
	h.m.post(capabilitiesResponse{baseResponse: baseResponse{txn: txn, status: status}, caps: caps})
}

func (h halEvents) OnConfigResponse(txn uint16, status hal.Status) {
	h.m.post(configResponse{baseResponse{txn: txn, status: status}})
}

func (h halEvents) OnDisableResponse(txn uint16, status hal.Status) {
	h.m.post(disableResponse{baseResponse{txn: txn, status: status}})
}

func (h halEvents) OnSessionConfigResponse(txn uint16, status hal.Status, isPublish bool, pubSubID uint8) {
	h.m.post(sessionConfigResponse{
		baseResponse: baseResponse{txn: txn, status: status},
		isPublish:    isPublish,
		pubSubID:     pubSubID,
	})
}

func (h halEvents) OnMessageSendQueuedResponse(txn uint16, status hal.Status) {
	h.m.post(messageQueuedResponse{baseResponse{txn: txn, status: status}})
}

func (h halEvents) OnDataPathInterfaceResponse(txn uint16, status hal.Status) {
	h.m.post(dataPathInterfaceResponse{baseResponse{txn: txn, status: status}})
}

func (h halEvents) OnInitiateDataPathResponse(txn uint16, status hal.Status, ndpID uint32) {
	h.m.post(initiateDataPathResponse{baseResponse: baseResponse{txn: txn, status: status}, ndpID: ndpID})
}

func (h halEvents) OnRespondToDataPathResponse(txn uint16, status hal.Status) {
	h.m.post(respondToDataPathResponse{baseResponse{txn: txn, status: status}})
}

func (h halEvents) OnEndDataPathResponse(txn uint16, status hal.Status) {
	h.m.post(endDataPathResponse{baseResponse{txn: txn, status: status}})
}

func (h halEvents) OnPairingResponse(txn uint16, status hal.Status, pairingID uint32) {
	h.m.post(pairingResponse{baseResponse: baseResponse{txn: txn, status: status}, pairingID: pairingID})
}

func (h halEvents) OnEndPairingResponse(txn uint16, status hal.Status) {
	h.m.post(endPairingResponse{baseResponse{txn: txn, status: status}})
}

func (h halEvents) OnBootstrappingResponse(txn uint16, status hal.Status, bootstrappingID uint32) {
	h.m.post(bootstrappingResponse{
		baseResponse:    baseResponse{txn: txn, status: status},
		bootstrappingID: bootstrappingID,
	})
}

func (h halEvents) OnSuspendResponse(txn uint16, status hal.Status) {
	h.m.post(suspendResponse{baseResponse{txn: txn, status: status}})
}

func (h halEvents) OnResumeResponse(txn uint16, status hal.Status) {
	h.m.post(resumeResponse{baseResponse{txn: txn, status: status}})
}

func (h halEvents) OnClusterChange(eventType hal.ClusterEventType, addr net.HardwareAddr) {
	h.m.post(clusterChangeNotif{eventType: eventType, addr: addr})
}

func (h halEvents) OnInterfaceAddressChange(addr net.HardwareAddr) {
	h.m.post(interfaceAddressChangeNotif{addr: addr})
}

func (h halEvents) OnMatch(event hal.MatchEvent) {
	h.m.post(matchNotif{event: event})
}

func (h halEvents) OnMatchExpired(pubSubID uint8, requesterInstanceID uint32) {
	h.m.post(matchExpiredNotif{pubSubID: pubSubID, requesterInstanceID: requesterInstanceID})
}

func (h halEvents) OnSessionTerminated(pubSubID uint8, isPublish bool, reason hal.Status) {
	h.m.post(sessionTerminatedNotif{pubSubID: pubSubID, isPublish: isPublish, reason: reason})
}

func (h halEvents) OnMessageReceived(msg hal.ReceivedMessage) {
	h.m.post(messageReceivedNotif{msg: msg})
}

func (h halEvents) OnMessageSendSuccess(txn uint16) {
	h.m.post(messageSendSuccessNotif{txn: txn})
}

func (h halEvents) OnMessageSendFail(txn uint16, reason hal.Status) {
	h.m.post(messageSendFailNotif{txn: txn, reason: reason})
}

func (h halEvents) OnDataPathRequest(event hal.DataPathRequestEvent) {
	h.m.post(dataPathRequestNotif{event: event})
}

func (h halEvents) OnDataPathConfirm(event hal.DataPathConfirmEvent) {
	h.m.post(dataPathConfirmNotif{event: event})
}

func (h halEvents) OnDataPathEnd(ndpID uint32) {
	h.m.post(dataPathEndNotif{ndpID: ndpID})
}

func (h halEvents) OnPairingRequest(event hal.PairingRequestEvent) {
	h.m.post(pairingRequestNotif{event: event})
}

func (h halEvents) OnPairingConfirm(event hal.PairingConfirmEvent) {
	h.m.post(pairingConfirmNotif{event: event})
}

func (h halEvents) OnBootstrappingRequest(event hal.BootstrappingRequestEvent) {
	h.m.post(bootstrappingRequestNotif{event: event})
}

func (h halEvents) OnBootstrappingConfirm(event hal.BootstrappingConfirmEvent) {
	h.m.post(bootstrappingConfirmNotif{event: event})
}

func (h halEvents) OnSuspensionStatusChange(pubSubID uint8, suspended bool) {
	h.m.post(suspensionStatusNotif{pubSubID: pubSubID, suspended: suspended})
}

func (h halEvents) OnAwareDown(reason hal.Status) {
	h.m.post(awareDownNotif{reason: reason})
}
