package foreground

import (
	"context"
	"fmt"
	"sync"

	"github.com/viant/authbridge"
)

// MemoryStore keeps requests in memory for the lifetime of the popup.
type MemoryStore struct {
	mux   sync.RWMutex
	byID  map[string]*authbridge.Request
	order []string
}

func (s *MemoryStore) Put(_ context.Context, request *authbridge.Request) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	if _, ok := s.byID[request.AuthID]; !ok {
		s.order = append(s.order, request.AuthID)
	}
	s.byID[request.AuthID] = request.Clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, authID string) (*authbridge.Request, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	request, ok := s.byID[authID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", authbridge.ErrNotFound, authID)
	}
	return request.Clone(), nil
}

func (s *MemoryStore) List(_ context.Context) ([]*authbridge.Request, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	ret := make([]*authbridge.Request, 0, len(s.order))
	for _, authID := range s.order {
		ret = append(ret, s.byID[authID].Clone())
	}
	return ret, nil
}

func (s *MemoryStore) Delete(_ context.Context, authID string) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	if _, ok := s.byID[authID]; !ok {
		return fmt.Errorf("%w: %s", authbridge.ErrNotFound, authID)
	}
	delete(s.byID, authID)
	for i, candidate := range s.order {
		if candidate == authID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: map[string]*authbridge.Request{}}
}
