package chat

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("chat session not found")

// Conn is the slice of a websocket connection the manager writes to.
// *websocket.Conn satisfies it.
type Conn interface {
	WriteJSON(v any) error
}

// Manager holds the active chat-widget connections keyed by a generated
// session id. Sessions exist only while the socket is up and are never
// persisted.
type Manager struct {
	mu    sync.RWMutex
	conns map[string]Conn
}

func NewManager() *Manager {
	return &Manager{conns: make(map[string]Conn)}
}

// Connect registers a connection and returns its session id.
func (m *Manager) Connect(c Conn) string {
	id := uuid.NewString()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conns[id] = c
	return id
}

// Disconnect evicts a session. Evicting an unknown id is a no-op.
func (m *Manager) Disconnect(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.conns, id)
}

// Send writes a payload to the session's connection.
func (m *Manager) Send(id string, v any) error {
	m.mu.RLock()
	c, ok := m.conns[id]
	m.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	return c.WriteJSON(v)
}

// ActiveCount reports how many sessions are connected.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns)
}
