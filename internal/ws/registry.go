package ws

import "sync"

// Registry maps identities to their live websocket connection. It holds at
// most one connection per identity; a newer join evicts the previous one.
// The registry is advisory, process-local state used only for push delivery.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Conn
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]Conn)}
}

// Join registers a connection for the identity. Last join wins; the evicted
// connection, if any, is returned so the caller can close it.
func (r *Registry) Join(identity string, conn Conn) Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.conns[identity]
	r.conns[identity] = conn
	if prev == conn {
		return nil
	}
	return prev
}

// Lookup returns the live connection for an identity.
func (r *Registry) Lookup(identity string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[identity]
	return conn, ok
}

// Leave removes whatever identity currently maps to the connection. Reverse
// lookup by value is O(n), acceptable at this scale (one admin, few users).
func (r *Registry) Leave(conn Conn) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for identity, c := range r.conns {
		if c == conn {
			delete(r.conns, identity)
			return identity, true
		}
	}
	return "", false
}

// Identities returns a snapshot of all currently connected identities.
func (r *Registry) Identities() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.conns))
	for identity := range r.conns {
		out = append(out, identity)
	}
	return out
}
