package hub

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

type testEvent struct {
	Type string `json:"type"`
	Note string `json:"note"`
}

func receive(t *testing.T, c *Client) testEvent {
	t.Helper()
	select {
	case payload := <-c.Events():
		var event testEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			t.Fatalf("bad payload: %v", err)
		}
		return event
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return testEvent{}
	}
}

func TestPublishToRecipientsOnly(t *testing.T) {
	h := New()
	alice := h.Register(1)
	bob := h.Register(2)
	carol := h.Register(3)

	h.Publish([]int64{1, 2}, testEvent{Type: "ping", Note: "hi"})

	if got := receive(t, alice); got.Note != "hi" {
		t.Errorf("alice got %+v", got)
	}
	if got := receive(t, bob); got.Note != "hi" {
		t.Errorf("bob got %+v", got)
	}
	select {
	case payload := <-carol.Events():
		t.Errorf("carol received %s despite not being a recipient", payload)
	default:
	}
}

func TestPublishReachesEverySocketOfAUser(t *testing.T) {
	h := New()
	first := h.Register(7)
	second := h.Register(7)

	h.Publish([]int64{7}, testEvent{Type: "ping"})

	receive(t, first)
	receive(t, second)
}

func TestSlowClientIsSkippedNotBlocked(t *testing.T) {
	h := New()
	slow := h.Register(1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < sendBuffer+5; i++ {
			h.Publish([]int64{1}, testEvent{Type: "flood"})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow client")
	}

	if got := len(slow.Events()); got != sendBuffer {
		t.Errorf("buffered %d events, want %d", got, sendBuffer)
	}
}

func TestUnregisterClosesChannel(t *testing.T) {
	h := New()
	client := h.Register(1)

	h.Unregister(client)
	if h.ClientCount() != 0 {
		t.Errorf("client count = %d, want 0", h.ClientCount())
	}
	if _, ok := <-client.Events(); ok {
		t.Error("channel still open after unregister")
	}

	// Idempotent
	h.Unregister(client)

	// Publishing after disconnect must not panic on the closed channel
	h.Publish([]int64{1}, testEvent{Type: "late"})
}

type recordingMirror struct {
	mu         sync.Mutex
	delivered  [][]int64
	deliveries chan struct{}
}

func (m *recordingMirror) Deliver(recipients []int64, event interface{}) {
	m.mu.Lock()
	m.delivered = append(m.delivered, recipients)
	m.mu.Unlock()
	m.deliveries <- struct{}{}
}

func TestMirrorReceivesEveryEvent(t *testing.T) {
	h := New()
	mirror := &recordingMirror{deliveries: make(chan struct{}, 1)}
	h.SetMirror(mirror)

	// No connected clients: the mirror is still notified
	h.Publish([]int64{42}, testEvent{Type: "ping"})

	select {
	case <-mirror.deliveries:
	case <-time.After(time.Second):
		t.Fatal("mirror not notified")
	}

	mirror.mu.Lock()
	defer mirror.mu.Unlock()
	if len(mirror.delivered) != 1 || len(mirror.delivered[0]) != 1 || mirror.delivered[0][0] != 42 {
		t.Errorf("mirror deliveries = %v", mirror.delivered)
	}
}
