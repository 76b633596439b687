package realtime

import (
	"slices"
	"sync"
)

// Registry tracks which users are reachable and through which connections.
// A user may hold several connections; the most recent one is last in order.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]*Conn
	byUser map[int64][]string
	groups map[string]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		conns:  make(map[string]*Conn),
		byUser: make(map[int64][]string),
		groups: make(map[string]map[string]struct{}),
	}
}

func (r *Registry) Register(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[c.ID]; ok {
		return
	}
	r.conns[c.ID] = c
	r.byUser[c.UserID] = append(r.byUser[c.UserID], c.ID)
}

// Unregister drops the connection from the user view and from every group.
func (r *Registry) Unregister(connID string) *Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[connID]
	if !ok {
		return nil
	}
	delete(r.conns, connID)

	ids := slices.DeleteFunc(r.byUser[c.UserID], func(id string) bool { return id == connID })
	if len(ids) == 0 {
		delete(r.byUser, c.UserID)
	} else {
		r.byUser[c.UserID] = ids
	}

	for name, members := range r.groups {
		delete(members, connID)
		if len(members) == 0 {
			delete(r.groups, name)
		}
	}
	return c
}

// ConnectionIDFor returns the user's most recently registered connection.
func (r *Registry) ConnectionIDFor(userID int64) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byUser[userID]
	if len(ids) == 0 {
		return "", false
	}
	return ids[len(ids)-1], true
}

func (r *Registry) ConnectionIDs(userID int64) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.byUser[userID])
}

func (r *Registry) IsOnline(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}

// Count is the number of live connections, not users.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func (r *Registry) OnlineUsers() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}

// Join reports false for unknown connections.
func (r *Registry) Join(connID, group string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[connID]; !ok {
		return false
	}
	members, ok := r.groups[group]
	if !ok {
		members = make(map[string]struct{})
		r.groups[group] = members
	}
	members[connID] = struct{}{}
	return true
}

func (r *Registry) Leave(connID, group string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if members, ok := r.groups[group]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(r.groups, group)
		}
	}
}

func (r *Registry) InGroup(connID, group string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.groups[group][connID]
	return ok
}

func (r *Registry) GroupSize(group string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groups[group])
}

func (r *Registry) userConns(userID int64) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byUser[userID]
	out := make([]*Conn, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.conns[id])
	}
	return out
}

func (r *Registry) groupConns(group string) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.groups[group]
	out := make([]*Conn, 0, len(members))
	for id := range members {
		out = append(out, r.conns[id])
	}
	return out
}

func (r *Registry) allConns() []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Conn, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}
