package chat

import (
	"errors"
	"sync"
	"testing"
)

type recordingConn struct {
	mu       sync.Mutex
	payloads []any
}

func (c *recordingConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads = append(c.payloads, v)
	return nil
}

func TestConnectAssignsUniqueSessions(t *testing.T) {
	m := NewManager()

	a := m.Connect(&recordingConn{})
	b := m.Connect(&recordingConn{})
	if a == b {
		t.Fatalf("Connect() reused session id %q", a)
	}
	if got := m.ActiveCount(); got != 2 {
		t.Fatalf("ActiveCount() = %d, want 2", got)
	}
}

func TestSendRoutesToSessionConn(t *testing.T) {
	m := NewManager()
	conn := &recordingConn{}
	id := m.Connect(conn)

	if err := m.Send(id, "hello"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if len(conn.payloads) != 1 || conn.payloads[0] != "hello" {
		t.Fatalf("payloads = %v", conn.payloads)
	}
}

func TestSendUnknownSession(t *testing.T) {
	m := NewManager()
	if err := m.Send("missing", "hello"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Send() error = %v, want ErrNotFound", err)
	}
}

func TestDisconnectEvictsSession(t *testing.T) {
	m := NewManager()
	id := m.Connect(&recordingConn{})

	m.Disconnect(id)
	if got := m.ActiveCount(); got != 0 {
		t.Fatalf("ActiveCount() = %d, want 0", got)
	}
	if err := m.Send(id, "hello"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Send() after disconnect error = %v, want ErrNotFound", err)
	}

	// Unknown ids are a no-op.
	m.Disconnect("missing")
}

func TestManagerConcurrentUse(t *testing.T) {
	m := NewManager()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := m.Connect(&recordingConn{})
			_ = m.Send(id, "ping")
			m.Disconnect(id)
		}()
	}
	wg.Wait()

	if got := m.ActiveCount(); got != 0 {
		t.Fatalf("ActiveCount() = %d, want 0", got)
	}
}
