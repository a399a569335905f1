// Package session stores placement carts between chat interactions. Carts
// expire after a TTL of inactivity and are never part of the durable store.
package session

import (
	"context"
	"sync"
	"time"

	"adboard-backend/internal/domain"
)

type entry struct {
	sel       domain.PlacementSelection
	expiresAt time.Time
}

// MemoryStore keeps carts in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	carts map[int64]entry
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, carts: map[int64]entry{}}
}

func (s *MemoryStore) Load(ctx context.Context, accountID int64) (*domain.PlacementSelection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.carts[accountID]
	if !ok {
		return nil, nil
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.carts, accountID)
		return nil, nil
	}
	sel := e.sel
	sel.Picks = append([]domain.Pick(nil), e.sel.Picks...)
	return &sel, nil
}

// Save stores the cart and restarts its TTL.
func (s *MemoryStore) Save(ctx context.Context, sel *domain.PlacementSelection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sel
	cp.Picks = append([]domain.Pick(nil), sel.Picks...)
	s.carts[sel.AccountID] = entry{sel: cp, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, accountID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, accountID)
	return nil
}

// Sweep drops expired carts and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for id, e := range s.carts {
		if !now.Before(e.expiresAt) {
			delete(s.carts, id)
			n++
		}
	}
	return n
}
