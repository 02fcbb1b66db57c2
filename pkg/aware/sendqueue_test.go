package aware

import (
	"testing"
	"time"

	"github.com/aware-protocol/aware-go/pkg/hal"
)

func qm(uid, messageID int) *queuedMessage {
	return &queuedMessage{clientID: 1, sessionID: 1, uid: uid, messageID: messageID}
}

func TestSendQueueArrivalOrder(t *testing.T) {
	q := newSendQueue()
	q.enqueue(qm(1, 10))
	q.enqueue(qm(1, 11))
	q.enqueue(qm(1, 12))

	for _, want := range []int{10, 11, 12} {
		m, ok := q.popHost()
		if !ok || m.messageID != want {
			t.Fatalf("popHost = %v, want messageID %d", m, want)
		}
	}
	if _, ok := q.popHost(); ok {
		t.Fatalf("popHost on empty queue succeeded")
	}
}

func TestSendQueueRequeueKeepsArrivalOrder(t *testing.T) {
	q := newSendQueue()
	q.enqueue(qm(1, 10))
	q.enqueue(qm(1, 11))
	q.enqueue(qm(1, 12))

	first, _ := q.popHost()
	second, _ := q.popHost()

	// Requeue out of pop order; arrival order must win.
	q.requeueHost(second)
	q.requeueHost(first)

	for _, want := range []int{10, 11, 12} {
		m, _ := q.popHost()
		if m.messageID != want {
			t.Fatalf("after requeue got %d, want %d", m.messageID, want)
		}
	}
}

func TestSendQueueDepthForUIDSpansBothStages(t *testing.T) {
	q := newSendQueue()
	q.enqueue(qm(1, 10))
	q.enqueue(qm(2, 20))
	m, _ := q.popHost()
	q.moveToFw(7, m, time.Now())

	if got := q.depthForUID(1); got != 1 {
		t.Fatalf("depthForUID(1) = %d, want 1", got)
	}
	if got := q.depthForUID(2); got != 1 {
		t.Fatalf("depthForUID(2) = %d, want 1", got)
	}
	if got := q.depthForUID(3); got != 0 {
		t.Fatalf("depthForUID(3) = %d, want 0", got)
	}
}

func TestSendQueueTakeFw(t *testing.T) {
	q := newSendQueue()
	m := qm(1, 10)
	q.moveToFw(3, m, time.Now())

	if _, ok := q.takeFw(4); ok {
		t.Fatalf("takeFw with unknown txn succeeded")
	}
	got, ok := q.takeFw(3)
	if !ok || got != m {
		t.Fatalf("takeFw(3) = %v, %v", got, ok)
	}
	if _, ok := q.takeFw(3); ok {
		t.Fatalf("takeFw consumed message twice")
	}
	if _, ok := q.earliestFw(); ok {
		t.Fatalf("earliestFw on empty firmware queue succeeded")
	}
}

func TestSendQueueExpireFwAlwaysExpiresOldest(t *testing.T) {
	q := newSendQueue()
	base := time.Now()
	q.moveToFw(1, qm(1, 10), base)
	q.moveToFw(2, qm(1, 11), base.Add(time.Second))

	// Cutoff before both hand-off times: the oldest still expires.
	expired := q.expireFw(base.Add(-time.Minute))
	if len(expired) != 1 || expired[0].messageID != 10 {
		t.Fatalf("expired = %v, want just messageID 10", expired)
	}
	if at, ok := q.earliestFw(); !ok || !at.Equal(base.Add(time.Second)) {
		t.Fatalf("earliestFw = %v, %v", at, ok)
	}
}

func TestSendQueueExpireFwBatch(t *testing.T) {
	q := newSendQueue()
	base := time.Now()
	q.moveToFw(1, qm(1, 10), base)
	q.moveToFw(2, qm(1, 11), base.Add(time.Second))
	q.moveToFw(3, qm(1, 12), base.Add(time.Hour))

	expired := q.expireFw(base.Add(time.Second))
	if len(expired) != 2 {
		t.Fatalf("expired %d messages, want 2", len(expired))
	}
}

func TestSendQueueDropForSession(t *testing.T) {
	q := newSendQueue()
	mine := &queuedMessage{clientID: 1, sessionID: 2, uid: 1, messageID: 10}
	other := &queuedMessage{clientID: 1, sessionID: 3, uid: 1, messageID: 20}
	q.enqueue(mine)
	q.enqueue(other)
	fwMine := &queuedMessage{clientID: 1, sessionID: 2, uid: 1, messageID: 11}
	q.moveToFw(5, fwMine, time.Now())

	dropped := q.dropForSession(1, 2)
	if len(dropped) != 2 {
		t.Fatalf("dropped %d messages, want 2", len(dropped))
	}
	if got := q.depthForUID(1); got != 1 {
		t.Fatalf("remaining depth = %d, want 1", got)
	}
	if m, _ := q.popHost(); m.messageID != 20 {
		t.Fatalf("survivor = %d, want 20", m.messageID)
	}
}

func TestSendQueueDropAllClearsBlocked(t *testing.T) {
	q := newSendQueue()
	q.enqueue(qm(1, 10))
	q.moveToFw(9, qm(1, 11), time.Now())
	q.blocked = true

	dropped := q.dropAll()
	if len(dropped) != 2 {
		t.Fatalf("dropped %d messages, want 2", len(dropped))
	}
	if q.blocked {
		t.Fatalf("blocked flag survived dropAll")
	}
	if got := q.depthForUID(1); got != 0 {
		t.Fatalf("depth after dropAll = %d", got)
	}
}

func TestShouldRetrySend(t *testing.T) {
	withRetries := &queuedMessage{retriesLeft: 1}
	if !shouldRetrySend(withRetries, hal.StatusNoOtaAck) {
		t.Fatalf("NoOtaAck with retries left should retry")
	}
	if shouldRetrySend(&queuedMessage{retriesLeft: 0}, hal.StatusNoOtaAck) {
		t.Fatalf("NoOtaAck without retries must not retry")
	}
	if shouldRetrySend(withRetries, hal.StatusInternalFailure) {
		t.Fatalf("non-ack failures must not retry")
	}
}
