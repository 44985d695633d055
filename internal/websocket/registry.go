package websocket

import "sync"

// Record binds one live connection to its verified identity
type Record struct {
	ConnID    string
	UserID    string
	SessionID string
}

// Registry is the in-memory connection table: the only shared mutable
// state in the relay. A record exists exactly while its transport
// connection is open; a user may own any number of records at once.
type Registry struct {
	mu     sync.RWMutex
	byConn map[string]Record
	byUser map[string]map[string]struct{}
}

// NewRegistry creates an empty Registry
func NewRegistry() *Registry {
	return &Registry{
		byConn: make(map[string]Record),
		byUser: make(map[string]map[string]struct{}),
	}
}

// Put registers a connection under its user. Called exactly once per
// connection, immediately after authentication; the transport guarantees
// connection id uniqueness.
func (r *Registry) Put(connID, userID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byConn[connID] = Record{ConnID: connID, UserID: userID, SessionID: sessionID}

	if r.byUser[userID] == nil {
		r.byUser[userID] = make(map[string]struct{})
	}
	r.byUser[userID][connID] = struct{}{}
}

// Remove deletes a connection's record. Idempotent: removing an absent
// id is a no-op. Returns the removed record when one existed.
func (r *Registry) Remove(connID string) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byConn[connID]
	if !ok {
		return Record{}, false
	}
	delete(r.byConn, connID)

	if conns, ok := r.byUser[rec.UserID]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(r.byUser, rec.UserID)
		}
	}

	return rec, true
}

// Get returns the record for a connection id
func (r *Registry) Get(connID string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byConn[connID]
	return rec, ok
}

// FindByUser returns the connection ids currently registered for a user.
// Returns an empty slice, never an error, when the user has none.
func (r *Registry) FindByUser(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := r.byUser[userID]
	ids := make([]string, 0, len(conns))
	for id := range conns {
		ids = append(ids, id)
	}
	return ids
}

// Size returns the number of live connections
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}

// Users returns the ids of all users with at least one live connection
func (r *Registry) Users() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]string, 0, len(r.byUser))
	for userID := range r.byUser {
		users = append(users, userID)
	}
	return users
}
