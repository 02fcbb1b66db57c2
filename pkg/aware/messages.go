package aware

import "github.com/aware-protocol/aware-go/pkg/hal"

// The event loop consumes exactly three message families: commands posted by
// the external API, responses correlated by transaction ID, and uncorrelated
// notifications. Dispatch is a type switch over the concrete payload types.

type loopMessage interface {
	isLoopMessage()
}

// command is a request for the state machine to act. Commands are processed
// one at a time; while a transaction is outstanding they are deferred in
// arrival order.
type command interface {
	loopMessage
	commandKind() string
}

// response is an asynchronous completion for an issued transaction.
type response interface {
	loopMessage
	transactionID() uint16
	responseKind() string
}

// notification is an uncorrelated firmware event, processed immediately.
type notification interface {
	loopMessage
	notificationKind() string
}

// Commands.

type connectCmd struct {
	clientID             int
	uid                  int
	pid                  int
	callingPackage       string
	featureID            string
	config               ConfigRequest
	notifyIdentityChange bool
	awareOffload         bool
	callback             ClientCallback
}

type disconnectCmd struct {
	clientID int
}

type reconfigureCmd struct{}

type terminateSessionCmd struct {
	clientID  int
	sessionID int
}

type publishCmd struct {
	clientID int
	config   hal.PublishConfig
	callback SessionCallback
}

type updatePublishCmd struct {
	clientID  int
	sessionID int
	config    hal.PublishConfig
}

type subscribeCmd struct {
	clientID int
	config   hal.SubscribeConfig
	callback SessionCallback
}

type updateSubscribeCmd struct {
	clientID  int
	sessionID int
	config    hal.SubscribeConfig
}

type enqueueSendMessageCmd struct {
	clientID   int
	sessionID  int
	peerID     int
	messageID  int
	message    []byte
	retryCount int
}

// transmitNextMessageCmd asks the loop to push the head of the host queue to
// the firmware. It is idempotent; redundant posts are no-ops.
type transmitNextMessageCmd struct{}

type enableUsageCmd struct{}

type disableUsageCmd struct{}

type getCapabilitiesCmd struct{}

type createDataPathInterfaceCmd struct {
	ifaceName string
}

type deleteDataPathInterfaceCmd struct {
	ifaceName string
}

type deleteAllDataPathInterfacesCmd struct{}

type initiateDataPathCmd struct {
	clientID  int
	sessionID int
	peerID    int
	ifaceName string
	security  hal.DataPathSecurity
	appInfo   []byte
}

type respondToDataPathRequestCmd struct {
	ndpID     uint32
	accept    bool
	ifaceName string
	security  hal.DataPathSecurity
	appInfo   []byte
}

type endDataPathCmd struct {
	ndpID uint32
}

type initiatePairingCmd struct {
	clientID     int
	sessionID    int
	peerID       int
	alias        string
	password     string
	requestType  hal.PairingRequestType
	cipherSuites uint32
}

type respondToPairingCmd struct {
	clientID     int
	sessionID    int
	peerID       int
	pairingID    uint32
	accept       bool
	alias        string
	password     string
	requestType  hal.PairingRequestType
	cipherSuites uint32
}

type endPairingCmd struct {
	pairingID uint32
}

type initiateBootstrappingCmd struct {
	clientID  int
	sessionID int
	peerID    int
	method    uint32
	cookie    []byte
}

type respondToBootstrappingCmd struct {
	clientID        int
	sessionID       int
	peerID          int
	bootstrappingID uint32
	accept          bool
	method          uint32
}

type suspendSessionCmd struct {
	clientID  int
	sessionID int
}

type resumeSessionCmd struct {
	clientID  int
	sessionID int
}

// Infrastructure commands. These never issue a transaction and never wait.

type delayedInitializationCmd struct{}

type getAwareInterfaceCmd struct{}

type releaseAwareInterfaceCmd struct{}

type disableCmd struct{}

func (connectCmd) commandKind() string                     { return "connect" }
func (disconnectCmd) commandKind() string                  { return "disconnect" }
func (reconfigureCmd) commandKind() string                 { return "reconfigure" }
func (terminateSessionCmd) commandKind() string            { return "terminateSession" }
func (publishCmd) commandKind() string                     { return "publish" }
func (updatePublishCmd) commandKind() string               { return "updatePublish" }
func (subscribeCmd) commandKind() string                   { return "subscribe" }
func (updateSubscribeCmd) commandKind() string             { return "updateSubscribe" }
func (enqueueSendMessageCmd) commandKind() string          { return "enqueueSendMessage" }
func (transmitNextMessageCmd) commandKind() string         { return "transmitNextMessage" }
func (enableUsageCmd) commandKind() string                 { return "enableUsage" }
func (disableUsageCmd) commandKind() string                { return "disableUsage" }
func (getCapabilitiesCmd) commandKind() string             { return "getCapabilities" }
func (createDataPathInterfaceCmd) commandKind() string     { return "createDataPathInterface" }
func (deleteDataPathInterfaceCmd) commandKind() string     { return "deleteDataPathInterface" }
func (deleteAllDataPathInterfacesCmd) commandKind() string { return "deleteAllDataPathInterfaces" }
func (initiateDataPathCmd) commandKind() string            { return "initiateDataPath" }
func (respondToDataPathRequestCmd) commandKind() string    { return "respondToDataPathRequest" }
func (endDataPathCmd) commandKind() string                 { return "endDataPath" }
func (initiatePairingCmd) commandKind() string             { return "initiatePairing" }
func (respondToPairingCmd) commandKind() string            { return "respondToPairing" }
func (endPairingCmd) commandKind() string                  { return "endPairing" }
func (initiateBootstrappingCmd) commandKind() string       { return "initiateBootstrapping" }
func (respondToBootstrappingCmd) commandKind() string      { return "respondToBootstrapping" }
func (suspendSessionCmd) commandKind() string              { return "suspendSession" }
func (resumeSessionCmd) commandKind() string               { return "resumeSession" }
func (delayedInitializationCmd) commandKind() string       { return "delayedInitialization" }
func (getAwareInterfaceCmd) commandKind() string           { return "getAwareInterface" }
func (releaseAwareInterfaceCmd) commandKind() string       { return "releaseAwareInterface" }
func (disableCmd) commandKind() string                     { return "disable" }

func (connectCmd) isLoopMessage()                     {}
func (disconnectCmd) isLoopMessage()                  {}
func (reconfigureCmd) isLoopMessage()                 {}
func (terminateSessionCmd) isLoopMessage()            {}
func (publishCmd) isLoopMessage()                     {}
func (updatePublishCmd) isLoopMessage()               {}
func (subscribeCmd) isLoopMessage()                   {}
func (updateSubscribeCmd) isLoopMessage()             {}
func (enqueueSendMessageCmd) isLoopMessage()          {}
func (transmitNextMessageCmd) isLoopMessage()         {}
func (enableUsageCmd) isLoopMessage()                 {}
func (disableUsageCmd) isLoopMessage()                {}
func (getCapabilitiesCmd) isLoopMessage()             {}
func (createDataPathInterfaceCmd) isLoopMessage()     {}
func (deleteDataPathInterfaceCmd) isLoopMessage()     {}
func (deleteAllDataPathInterfacesCmd) isLoopMessage() {}
func (initiateDataPathCmd) isLoopMessage()            {}
func (respondToDataPathRequestCmd) isLoopMessage()    {}
func (endDataPathCmd) isLoopMessage()                 {}
func (initiatePairingCmd) isLoopMessage()             {}
func (respondToPairingCmd) isLoopMessage()            {}
func (endPairingCmd) isLoopMessage()                  {}
func (initiateBootstrappingCmd) isLoopMessage()       {}
func (respondToBootstrappingCmd) isLoopMessage()      {}
func (suspendSessionCmd) isLoopMessage()              {}
func (resumeSessionCmd) isLoopMessage()               {}
func (delayedInitializationCmd) isLoopMessage()       {}
func (getAwareInterfaceCmd) isLoopMessage()           {}
func (releaseAwareInterfaceCmd) isLoopMessage()       {}
func (disableCmd) isLoopMessage()                     {}

// Responses.

type baseResponse struct {
	txn    uint16
	status hal.Status
}

func (r baseResponse) transactionID() uint16 { return r.txn }
func (baseResponse) isLoopMessage()          {}

type capabilitiesResponse struct {
	baseResponse
	caps hal.Capabilities
}

type configResponse struct{ baseResponse }

type disableResponse struct{ baseResponse }

type sessionConfigResponse struct {
	baseResponse
	isPublish bool
	pubSubID  uint8
}

type messageQueuedResponse struct{ baseResponse }

type dataPathInterfaceResponse struct{ baseResponse }

type initiateDataPathResponse struct {
	baseResponse
	ndpID uint32
}

type respondToDataPathResponse struct{ baseResponse }

type endDataPathResponse struct{ baseResponse }

type pairingResponse struct {
	baseResponse
	pairingID uint32
}

type endPairingResponse struct{ baseResponse }

type bootstrappingResponse struct {
	baseResponse
	bootstrappingID uint32
}

type suspendResponse struct{ baseResponse }

type resumeResponse struct{ baseResponse }

// responseTimeout is synthesized by the command wake-up when no response
// arrived in time.
type responseTimeout struct {
	txn uint16
}

func (r responseTimeout) transactionID() uint16 { return r.txn }
func (responseTimeout) isLoopMessage()          {}
func (responseTimeout) responseKind() string    { return "timeout" }

func (capabilitiesResponse) responseKind() string      { return "capabilities" }
func (configResponse) responseKind() string            { return "config" }
func (disableResponse) responseKind() string           { return "disable" }
func (sessionConfigResponse) responseKind() string     { return "sessionConfig" }
func (messageQueuedResponse) responseKind() string     { return "messageQueued" }
func (dataPathInterfaceResponse) responseKind() string { return "dataPathInterface" }
func (initiateDataPathResponse) responseKind() string  { return "initiateDataPath" }
func (respondToDataPathResponse) responseKind() string { return "respondToDataPath" }
func (endDataPathResponse) responseKind() string       { return "endDataPath" }
func (pairingResponse) responseKind() string           { return "pairing" }
func (endPairingResponse) responseKind() string        { return "endPairing" }
func (bootstrappingResponse) responseKind() string     { return "bootstrapping" }
func (suspendResponse) responseKind() string           { return "suspend" }
func (resumeResponse) responseKind() string            { return "resume" }

// Notifications.

type clusterChangeNotif struct {
	eventType hal.ClusterEventType
	addr      []byte
}

type interfaceAddressChangeNotif struct {
	addr []byte
}

type matchNotif struct {
	event hal.MatchEvent
}

type matchExpiredNotif struct {
	pubSubID            uint8
	requesterInstanceID uint32
}

type sessionTerminatedNotif struct {
	pubSubID  uint8
	isPublish bool
	reason    hal.Status
}

type messageReceivedNotif struct {
	msg hal.ReceivedMessage
}

type messageSendSuccessNotif struct {
	txn uint16
}

type messageSendFailNotif struct {
	txn    uint16
	reason hal.Status
}

type dataPathRequestNotif struct {
	event hal.DataPathRequestEvent
}

type dataPathConfirmNotif struct {
	event hal.DataPathConfirmEvent
}

type dataPathEndNotif struct {
	ndpID uint32
}

type pairingRequestNotif struct {
	event hal.PairingRequestEvent
}

type pairingConfirmNotif struct {
	event hal.PairingConfirmEvent
}

type bootstrappingRequestNotif struct {
	event hal.BootstrappingRequestEvent
}

type bootstrappingConfirmNotif struct {
	event hal.BootstrappingConfirmEvent
}

type suspensionStatusNotif struct {
	pubSubID  uint8
	suspended bool
}

type awareDownNotif struct {
	reason hal.Status
}

// Internal timer notifications.

type sendMessageTimeoutNotif struct {
	gen uint64
}

type dataPathConfirmTimeoutNotif struct {
	ndpID uint32
}

type pairingConfirmTimeoutNotif struct {
	pairingID uint32
}

type bootstrappingConfirmTimeoutNotif struct {
	bootstrappingID uint32
}

func (clusterChangeNotif) notificationKind() string          { return "clusterChange" }
func (interfaceAddressChangeNotif) notificationKind() string { return "interfaceAddressChange" }
func (matchNotif) notificationKind() string                  { return "match" }
func (matchExpiredNotif) notificationKind() string           { return "matchExpired" }
func (sessionTerminatedNotif) notificationKind() string      { return "sessionTerminated" }
func (messageReceivedNotif) notificationKind() string        { return "messageReceived" }
func (messageSendSuccessNotif) notificationKind() string     { return "messageSendSuccess" }
func (messageSendFailNotif) notificationKind() string        { return "messageSendFail" }
func (dataPathRequestNotif) notificationKind() string        { return "dataPathRequest" }
func (dataPathConfirmNotif) notificationKind() string        { return "dataPathConfirm" }
func (dataPathEndNotif) notificationKind() string            { return "dataPathEnd" }
func (pairingRequestNotif) notificationKind() string         { return "pairingRequest" }
func (pairingConfirmNotif) notificationKind() string         { return "pairingConfirm" }
func (bootstrappingRequestNotif) notificationKind() string   { return "bootstrappingRequest" }
func (bootstrappingConfirmNotif) notificationKind() string   { return "bootstrappingConfirm" }
func (suspensionStatusNotif) notificationKind() string       { return "suspensionStatus" }
func (awareDownNotif) notificationKind() string              { return "awareDown" }
func (sendMessageTimeoutNotif) notificationKind() string     { return "sendMessageTimeout" }
func (dataPathConfirmTimeoutNotif) notificationKind() string { return "dataPathConfirmTimeout" }
func (pairingConfirmTimeoutNotif) notificationKind() string  { return "pairingConfirmTimeout" }
func (bootstrappingConfirmTimeoutNotif) notificationKind() string {
	return "bootstrappingConfirmTimeout"
}

func (clusterChangeNotif) isLoopMessage()               {}
func (interfaceAddressChangeNotif) isLoopMessage()      {}
func (matchNotif) isLoopMessage()                       {}
func (matchExpiredNotif) isLoopMessage()                {}
func (sessionTerminatedNotif) isLoopMessage()           {}
func (messageReceivedNotif) isLoopMessage()             {}
func (messageSendSuccessNotif) isLoopMessage()          {}
func (messageSendFailNotif) isLoopMessage()             {}
func (dataPathRequestNotif) isLoopMessage()             {}
func (dataPathConfirmNotif) isLoopMessage()             {}
func (dataPathEndNotif) isLoopMessage()                 {}
func (pairingRequestNotif) isLoopMessage()              {}
func (pairingConfirmNotif) isLoopMessage()              {}
func (bootstrappingRequestNotif) isLoopMessage()        {}
func (bootstrappingConfirmNotif) isLoopMessage()        {}
func (suspensionStatusNotif) isLoopMessage()            {}
func (awareDownNotif) isLoopMessage()                   {}
func (sendMessageTimeoutNotif) isLoopMessage()          {}
func (dataPathConfirmTimeoutNotif) isLoopMessage()      {}
func (pairingConfirmTimeoutNotif) isLoopMessage()       {}
func (bootstrappingConfirmTimeoutNotif) isLoopMessage() {}
