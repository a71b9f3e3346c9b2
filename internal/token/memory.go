package token

import (
	"context"
	"sync"
)

var _ Store = (*InMemory)(nil)

// InMemory implements Store with in-process concurrency safety. Used by tests
// and by the DSN-less development mode of the API binary.
type InMemory struct {
	mu      sync.RWMutex
	byValue map[string]AccessToken
	byMgmt  map[string]AccessToken
}

func NewInMemory() *InMemory {
	return &InMemory{
		byValue: make(map[string]AccessToken),
		byMgmt:  make(map[string]AccessToken),
	}
}

func (s *InMemory) Create(ctx context.Context, tok *AccessToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(*tok)
}

func (s *InMemory) FindByValue(ctx context.Context, value string) (AccessToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tok, ok := s.byValue[value]
	if !ok {
		return AccessToken{}, ErrNotFound
	}
	return tok, nil
}

func (s *InMemory) FindByManagementID(ctx context.Context, managementID string) (AccessToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tok, ok := s.byMgmt[managementID]
	if !ok {
		return AccessToken{}, ErrNotFound
	}
	return tok, nil
}

func (s *InMemory) Delete(ctx context.Context, managementID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remove(managementID)
	return nil
}

func (s *InMemory) Replace(ctx context.Context, managementID string, next *AccessToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byMgmt[managementID]; !ok {
		return ErrNotFound
	}
	if err := s.insert(*next); err != nil {
		return err
	}
	s.remove(managementID)
	return nil
}

// insert enforces the same uniqueness the relational schema does.
func (s *InMemory) insert(tok AccessToken) error {
	if _, ok := s.byValue[tok.Value]; ok {
		return ErrDuplicate
	}
	if _, ok := s.byMgmt[tok.ManagementID]; ok {
		return ErrDuplicate
	}
	s.byValue[tok.Value] = tok
	s.byMgmt[tok.ManagementID] = tok
	return nil
}

func (s *InMemory) remove(managementID string) {
	tok, ok := s.byMgmt[managementID]
	if !ok {
		return
	}
	delete(s.byMgmt, managementID)
	delete(s.byValue, tok.Value)
}
