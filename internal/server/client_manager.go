package server

import (
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/michaelbrown/opencompiler/internal/events"
)

// client is one connected websocket subscriber. Only its writeLoop writes
// to conn.
type client struct {
	id        string
	conn      *websocket.Conn
	sub       *events.Subscription
	closeOnce sync.Once
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		c.sub.Close()
		c.conn.Close()
	})
}

// ClientManager tracks the connected websocket subscribers.
type ClientManager struct {
	mu      sync.RWMutex
	clients map[string]*client
}

// NewClientManager creates an empty ClientManager.
func NewClientManager() *ClientManager {
	return &ClientManager{
		clients: make(map[string]*client),
	}
}

// Add registers a connection with its event subscription.
func (cm *ClientManager) Add(conn *websocket.Conn, sub *events.Subscription) *client {
	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		sub:  sub,
	}
	cm.mu.Lock()
	cm.clients[c.id] = c
	cm.mu.Unlock()
	return c
}

// Len returns the number of connected clients.
func (cm *ClientManager) Len() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.clients)
}

// Remove unsubscribes and closes a client.
func (cm *ClientManager) Remove(id string) {
	cm.mu.Lock()
	c, ok := cm.clients[id]
	delete(cm.clients, id)
	cm.mu.Unlock()
	if ok {
		c.close()
	}
}

// CloseAll disconnects every client.
func (cm *ClientManager) CloseAll() {
	cm.mu.Lock()
	all := cm.clients
	cm.clients = make(map[string]*client)
	cm.mu.Unlock()
	for _, c := range all {
		c.close()
	}
}
