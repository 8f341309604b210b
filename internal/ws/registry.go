package ws

import "sync"

// Registry maps an authenticated user to its single live connection. It is
// the only shared mutable state between connection handlers and the
// broadcast path.
type Registry struct {
	mu      sync.RWMutex
	clients map[int]*Client
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[int]*Client)}
}

// Put registers client as the connection for userID and returns the entry
// it replaced, if any. The caller is responsible for closing the prior
// connection.
func (r *Registry) Put(userID int, client *Client) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	prior := r.clients[userID]
	r.clients[userID] = client
	return prior
}

// Remove deletes the mapping for userID only if it still points at client,
// so a stale close from a superseded connection never evicts its
// replacement. Returns whether an entry was removed.
func (r *Registry) Remove(userID int, client *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.clients[userID] != client {
		return false
	}
	delete(r.clients, userID)
	return true
}

// Snapshot returns a point-in-time view of the registered connections, safe
// to iterate while other goroutines mutate the registry.
func (r *Registry) Snapshot() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]*Client, 0, len(r.clients))
	for _, client := range r.clients {
		clients = append(clients, client)
	}
	return clients
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
