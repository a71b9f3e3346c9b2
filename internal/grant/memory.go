package grant

import (
	"context"
	"sync"
)

var _ Repository = (*InMemory)(nil)

// InMemory holds grants in process memory. Used by tests and by the DSN-less
// development mode of the API binary.
type InMemory struct {
	mu     sync.RWMutex
	grants map[string]Grant
	access map[string][]Access
}

func NewInMemory() *InMemory {
	return &InMemory{
		grants: make(map[string]Grant),
		access: make(map[string][]Access),
	}
}

// Put registers a grant and its access set. The negotiation subsystem owns
// grant writes in production; this exists for the in-memory mode only.
func (r *InMemory) Put(g Grant, access []Access) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grants[g.ID] = g
	r.access[g.ID] = append([]Access(nil), access...)
}

func (r *InMemory) FindWithAccess(ctx context.Context, grantID string) (Grant, []Access, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.grants[grantID]
	if !ok {
		return Grant{}, nil, ErrNotFound
	}
	return g, append([]Access(nil), r.access[grantID]...), nil
}
