package aware

import (
	"time"

	"github.com/aware-protocol/aware-go/pkg/hal"
)

// maxQueuedMessagesPerUID caps the number of not-yet-completed follow-on
// messages a single UID may hold across the host and firmware queues.
const maxQueuedMessagesPerUID = 50

// queuedMessage is one follow-on message from enqueue to terminal callback.
type queuedMessage struct {
	clientID  int
	sessionID int
	peerID    int
	uid       int
	messageID int
	message   []byte

	// retriesLeft counts remaining over-the-air retries after a NoOtaAck.
	retriesLeft int

	arrivalSeq uint64
	enqueuedAt time.Time
}

// sendQueue holds follow-on messages in two stages: the host queue (ordered
// by arrival, head next to hand to the firmware) and the firmware queue
// (keyed by the transaction ID the firmware will complete with, ordered by
// hand-off time). blocked is set while the firmware reports its transmit
// queue full.
type sendQueue struct {
	host    []*queuedMessage
	fwOrder []uint16
	fw      map[uint16]*queuedMessage
	blocked bool

	nextArrivalSeq uint64
}

func newSendQueue() *sendQueue {
	return &sendQueue{fw: make(map[uint16]*queuedMessage)}
}

// depthForUID counts live messages owned by uid across both stages.
func (q *sendQueue) depthForUID(uid int) int {
	n := 0
	for _, m := range q.host {
		if m.uid == uid {
			n++
		}
	}
	for _, m := range q.fw {
		if m.uid == uid {
			n++
		}
	}
	return n
}

// enqueue appends a message to the host queue in arrival order.
func (q *sendQueue) enqueue(m *queuedMessage) {
	m.arrivalSeq = q.nextArrivalSeq
	q.nextArrivalSeq++
	q.host = append(q.host, m)
}

// peekHost returns the next message to hand to the firmware, if any.
func (q *sendQueue) peekHost() (*queuedMessage, bool) {
	if len(q.host) == 0 {
		return nil, false
	}
	return q.host[0], true
}

// popHost removes the head of the host queue.
func (q *sendQueue) popHost() (*queuedMessage, bool) {
	if len(q.host) == 0 {
		return nil, false
	}
	m := q.host[0]
	q.host = q.host[1:]
	return m, true
}

// requeueHost puts a message back into the host queue keeping arrival order
// relative to the messages still there.
func (q *sendQueue) requeueHost(m *queuedMessage) {
	at := len(q.host)
	for i, existing := range q.host {
		if m.arrivalSeq < existing.arrivalSeq {
			at = i
			break
		}
	}
	q.host = append(q.host, nil)
	copy(q.host[at+1:], q.host[at:])
	q.host[at] = m
}

// moveToFw records a message the firmware accepted for transmission under
// the transaction ID it will complete with.
func (q *sendQueue) moveToFw(txn uint16, m *queuedMessage, now time.Time) {
	m.enqueuedAt = now
	q.fw[txn] = m
	q.fwOrder = append(q.fwOrder, txn)
}

// takeFw removes and returns the firmware-queued message for txn.
func (q *sendQueue) takeFw(txn uint16) (*queuedMessage, bool) {
	m, ok := q.fw[txn]
	if !ok {
		return nil, false
	}
	delete(q.fw, txn)
	for i, t := range q.fwOrder {
		if t == txn {
			q.fwOrder = append(q.fwOrder[:i], q.fwOrder[i+1:]...)
			break
		}
	}
	return m, true
}

// earliestFw returns the hand-off time of the oldest firmware-queued
// message.
func (q *sendQueue) earliestFw() (time.Time, bool) {
	if len(q.fwOrder) == 0 {
		return time.Time{}, false
	}
	return q.fw[q.fwOrder[0]].enqueuedAt, true
}

// expireFw removes every firmware-queued message handed off at or before
// cutoff. The oldest message is removed unconditionally so a fired timeout
// always expires at least one.
func (q *sendQueue) expireFw(cutoff time.Time) []*queuedMessage {
	var expired []*queuedMessage
	for len(q.fwOrder) > 0 {
		txn := q.fwOrder[0]
		m := q.fw[txn]
		if len(expired) > 0 && m.enqueuedAt.After(cutoff) {
			break
		}
		delete(q.fw, txn)
		q.fwOrder = q.fwOrder[1:]
		expired = append(expired, m)
	}
	return expired
}

// dropForSession discards all queued messages belonging to a session and
// returns them so callers can fire terminal callbacks.
func (q *sendQueue) dropForSession(clientID, sessionID int) []*queuedMessage {
	var dropped []*queuedMessage
	kept := q.host[:0]
	for _, m := range q.host {
		if m.clientID == clientID && m.sessionID == sessionID {
			dropped = append(dropped, m)
		} else {
			kept = append(kept, m)
		}
	}
	q.host = kept
	keptOrder := q.fwOrder[:0]
	for _, txn := range q.fwOrder {
		m := q.fw[txn]
		if m.clientID == clientID && m.sessionID == sessionID {
			delete(q.fw, txn)
			dropped = append(dropped, m)
		} else {
			keptOrder = append(keptOrder, txn)
		}
	}
	q.fwOrder = keptOrder
	return dropped
}

// dropAll empties both stages, returning every message for terminal
// callbacks.
func (q *sendQueue) dropAll() []*queuedMessage {
	var dropped []*queuedMessage
	dropped = append(dropped, q.host...)
	q.host = nil
	for _, txn := range q.fwOrder {
		dropped = append(dropped, q.fw[txn])
		delete(q.fw, txn)
	}
	q.fwOrder = nil
	q.blocked = false
	return dropped
}

// retryStatus reports whether a send failure with the given reason should go
// back to the host queue instead of failing terminally.
func shouldRetrySend(m *queuedMessage, reason hal.Status) bool {
	return reason == hal.StatusNoOtaAck && m.retriesLeft > 0
}
