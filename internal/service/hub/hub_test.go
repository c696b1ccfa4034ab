package hub

import (
	"errors"
	"sync"
	"testing"

	"github.com/ymgch/slack-pulse/backend/internal/model/event"
)

type fakeConn struct {
	mu       sync.Mutex
	received []event.Payload
	fail     bool
	closed   bool
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("broken pipe")
	}
	c.received = append(c.received, v.(event.Payload))
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.received)
}

func testPayload() event.Payload {
	return event.NewMessagePayload(event.Message{
		User:    "U1",
		Text:    "server down",
		Channel: "C1",
		TS:      "1700000000.000100",
	}, "high")
}

func TestBroadcastReachesAllConnections(t *testing.T) {
	h := New(nil)
	conns := []*fakeConn{{}, {}, {}}
	for _, c := range conns {
		h.Register(c)
	}

	h.Broadcast(testPayload())

	for i, c := range conns {
		if c.count() != 1 {
			t.Fatalf("conn %d: expected 1 payload, got %d", i, c.count())
		}
	}
	if h.Len() != 3 {
		t.Fatalf("expected 3 live connections, got %d", h.Len())
	}
}

func TestBroadcastPrunesFailedConnection(t *testing.T) {
	h := New(nil)
	healthy1 := &fakeConn{}
	broken := &fakeConn{fail: true}
	healthy2 := &fakeConn{}
	h.Register(healthy1)
	h.Register(broken)
	h.Register(healthy2)

	h.Broadcast(testPayload())

	if healthy1.count() != 1 || healthy2.count() != 1 {
		t.Fatalf("healthy connections must each receive exactly one payload, got %d and %d",
			healthy1.count(), healthy2.count())
	}
	if h.Len() != 2 {
		t.Fatalf("expected broken connection pruned, registry size %d", h.Len())
	}
	if !broken.closed {
		t.Fatal("expected pruned connection to be closed")
	}

	// Next pass only reaches the survivors.
	h.Broadcast(testPayload())
	if healthy1.count() != 2 || healthy2.count() != 2 {
		t.Fatal("expected second broadcast to reach survivors once each")
	}
}

func TestUnregisterIdempotent(t *testing.T) {
	h := New(nil)
	c := &fakeConn{}
	h.Register(c)

	h.Unregister(c)
	h.Unregister(c)

	if h.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", h.Len())
	}
}

func TestBroadcastEmptyRegistry(t *testing.T) {
	h := New(nil)
	h.Broadcast(testPayload()) // must not panic
}

func TestConcurrentRegisterAndBroadcast(t *testing.T) {
	h := New(nil)
	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := &fakeConn{}
			h.Register(c)
			h.Broadcast(testPayload())
			h.Unregister(c)
		}()
	}

	wg.Wait()
	if h.Len() != 0 {
		t.Fatalf("expected all connections unregistered, got %d", h.Len())
	}
}
