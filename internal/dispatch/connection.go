package dispatch

import "sync"

// Connection is the identity a transport connection acquires after a
// successful login: which user is speaking, which client declared itself,
// which domain the session was issued for, and the session-id itself.
type Connection struct {
	UserID    string
	ClientID  string
	DomainID  string
	SessionID string
}

// connections tracks one Connection per transport-assigned connection id
// (e.g. a websocket's remote addr + stream, or any other opaque handle the
// transport chooses). Looked up and mutated under its own lock, independent
// of the entity store's lock.
type connections struct {
	mu sync.RWMutex
	m  map[string]*Connection
}

func newConnections() *connections {
	return &connections{m: map[string]*Connection{}}
}

func (c *connections) get(connID string) (*Connection, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	conn, ok := c.m[connID]
	return conn, ok
}

func (c *connections) set(connID string, conn *Connection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[connID] = conn
}

func (c *connections) delete(connID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, connID)
}
