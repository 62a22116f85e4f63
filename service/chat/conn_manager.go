package chat

import (
	"sync"

	"github.com/pkg/errors"
)

// ConnManager indexes the gateway's live clients three ways: by connection
// id (primary), by user id, and by subscribed group. Group membership is the
// local half of room fanout; the cross-node half rides NATS.
type ConnManager struct {
	mu     sync.RWMutex
	byConn map[string]*Client
	byUser map[string]map[string]*Client // userID -> connID -> client
	groups map[string]map[string]*Client // groupName -> connID -> client

	gatewayID string
}

func NewConnManager(gatewayID string) *ConnManager {
	return &ConnManager{
		byConn:    make(map[string]*Client),
		byUser:    make(map[string]map[string]*Client),
		groups:    make(map[string]map[string]*Client),
		gatewayID: gatewayID,
	}
}

func (m *ConnManager) GatewayID() string { return m.gatewayID }

func (m *ConnManager) Add(c *Client) error {
	if c == nil || c.ConnID == "" {
		return errors.New("nil client or empty conn id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byConn[c.ConnID]; exists {
		return errors.Errorf("conn id %s already registered", c.ConnID)
	}
	m.byConn[c.ConnID] = c
	if c.UserID != "" {
		if m.byUser[c.UserID] == nil {
			m.byUser[c.UserID] = make(map[string]*Client)
		}
		m.byUser[c.UserID][c.ConnID] = c
	}
	return nil
}

// Remove drops the client from every index, including all groups. Returns
// the client so the caller can finish teardown outside the lock.
func (m *ConnManager) Remove(connID string) *Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byConn[connID]
	if !ok {
		return nil
	}
	delete(m.byConn, connID)
	if c.UserID != "" {
		if mm := m.byUser[c.UserID]; mm != nil {
			delete(mm, connID)
			if len(mm) == 0 {
				delete(m.byUser, c.UserID)
			}
		}
	}
	for name, members := range m.groups {
		delete(members, connID)
		if len(members) == 0 {
			delete(m.groups, name)
		}
	}
	return c
}

func (m *ConnManager) Get(connID string) (*Client, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.byConn[connID]
	return c, ok
}

// Subscribe adds the client to a fanout group. Idempotent.
func (m *ConnManager) Subscribe(group string, c *Client) {
	if group == "" || c == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.groups[group] == nil {
		m.groups[group] = make(map[string]*Client)
	}
	m.groups[group][c.ConnID] = c
}

func (m *ConnManager) Unsubscribe(group string, c *Client) {
	if group == "" || c == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if members := m.groups[group]; members != nil {
		delete(members, c.ConnID)
		if len(members) == 0 {
			delete(m.groups, group)
		}
	}
}

// GroupClients snapshots a group's members for fanout.
func (m *ConnManager) GroupClients(group string) []*Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	members := m.groups[group]
	out := make([]*Client, 0, len(members))
	for _, c := range members {
		out = append(out, c)
	}
	return out
}

// UserClients returns every live client for a user, across devices.
func (m *ConnManager) UserClients(userID string) []*Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mm := m.byUser[userID]
	out := make([]*Client, 0, len(mm))
	for _, c := range mm {
		out = append(out, c)
	}
	return out
}

func (m *ConnManager) Close() {
	m.mu.Lock()
	conns := make([]*Client, 0, len(m.byConn))
	for _, c := range m.byConn {
		conns = append(conns, c)
	}
	m.byConn = make(map[string]*Client)
	m.byUser = make(map[string]map[string]*Client)
	m.groups = make(map[string]map[string]*Client)
	m.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}
