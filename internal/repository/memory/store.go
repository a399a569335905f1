// Package memory keeps every repository in process memory. It backs local
// development runs and service tests; WithinTx is serialized and rolls back by
// restoring a snapshot.
package memory

import (
	"context"
	"sync"

	"adboard-backend/internal/domain"
	"adboard-backend/internal/repository"
)

type state struct {
	accounts    map[int64]domain.Account
	adjustments []domain.BalanceAdjustment
	ads         map[int64]domain.Ad
	extensions  map[int64]domain.ExtensionRequest
	channels    map[int64]domain.Channel
	sales       map[int64]domain.Sale
	funding     map[int64]domain.FundingRequest
	reposts     map[int64]domain.ScheduledRepost
	seq         int64
}

func newState() *state {
	return &state{
		accounts:   map[int64]domain.Account{},
		ads:        map[int64]domain.Ad{},
		extensions: map[int64]domain.ExtensionRequest{},
		channels:   map[int64]domain.Channel{},
		sales:      map[int64]domain.Sale{},
		funding:    map[int64]domain.FundingRequest{},
		reposts:    map[int64]domain.ScheduledRepost{},
	}
}

func (s *state) clone() *state {
	c := &state{
		accounts:    cloneMap(s.accounts),
		adjustments: append([]domain.BalanceAdjustment(nil), s.adjustments...),
		ads:         cloneMap(s.ads),
		extensions:  cloneMap(s.extensions),
		channels:    cloneMap(s.channels),
		sales:       cloneMap(s.sales),
		funding:     cloneMap(s.funding),
		reposts:     cloneMap(s.reposts),
		seq:         s.seq,
	}
	for id, ad := range c.ads {
		ad.Photos = append([]string(nil), ad.Photos...)
		c.ads[id] = ad
	}
	return c
}

func cloneMap[V any](m map[int64]V) map[int64]V {
	out := make(map[int64]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

type Store struct {
	mu    sync.Mutex
	state *state

	lockMu sync.Mutex
	held   map[string]bool
}

func NewStore() *Store {
	return &Store{state: newState(), held: map[string]bool{}}
}

// TryLock grants name to one holder at a time within this process.
func (s *Store) TryLock(ctx context.Context, name string) (func(), bool, error) {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	if s.held[name] {
		return nil, false, nil
	}
	s.held[name] = true
	return func() {
		s.lockMu.Lock()
		delete(s.held, name)
		s.lockMu.Unlock()
	}, true, nil
}

// Repos returns repositories that lock the store around every call.
func (s *Store) Repos() repository.Repositories {
	return s.bind(false)
}

func (s *Store) WithinTx(ctx context.Context, fn func(repos repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(s.bind(true)); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

func (s *Store) bind(inTx bool) repository.Repositories {
	b := binding{store: s, inTx: inTx}
	return repository.Repositories{
		Accounts:   &accountRepository{b},
		Ledger:     &ledgerRepository{b},
		Ads:        &adRepository{b},
		Extensions: &extensionRepository{b},
		Channels:   &channelRepository{b},
		Sales:      &saleRepository{b},
		Funding:    &fundingRepository{b},
		Reposts:    &repostRepository{b},
	}
}

// binding gives repositories access to the state, taking the lock unless the
// caller already holds it inside WithinTx.
type binding struct {
	store *Store
	inTx  bool
}

func (b binding) lock() func() {
	if b.inTx {
		return func() {}
	}
	b.store.mu.Lock()
	return b.store.mu.Unlock
}

func (b binding) st() *state {
	return b.store.state
}
