package store

import (
	"sync"
	"time"

	sessionserrors "roomly/internal/sessions/errors"
	"roomly/pkg/model"

	"github.com/google/uuid"
)

// Store holds pairing sessions in memory. It is an owned object constructed
// at startup and injected into the service layer, so tests get isolated
// instances.
//
// Locking discipline: the store mutex only guards the map structure; every
// session mutation happens under that session's own mutex. Two concurrent
// approvals of the same token serialize on the entry lock, and operations on
// different tokens never contend.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry

	ttl time.Duration
	now func() time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
}

type entry struct {
	mu      sync.Mutex
	session model.ClaimSession
}

func New(ttl time.Duration) *Store {
	return &Store{
		entries: make(map[string]*entry),
		ttl:     ttl,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
}

// Start creates a fresh pending session and returns a copy of it.
func (s *Store) Start() model.ClaimSession {
	session := model.ClaimSession{
		Token:     uuid.NewString(),
		Status:    model.SessionPending,
		CreatedAt: s.now(),
		TTL:       s.ttl,
	}

	s.mu.Lock()
	s.entries[session.Token] = &entry{session: session}
	s.mu.Unlock()

	return session
}

// Get returns the session for the token, applying lazy expiry: a pending
// session past its TTL is marked expired before being returned. Expiry is
// therefore visible on the very next read with no background sweep.
func (s *Store) Get(token string) (model.ClaimSession, error) {
	e := s.lookup(token)
	if e == nil {
		return model.ClaimSession{}, sessionserrors.ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	s.touchExpiryLocked(e)
	return e.session, nil
}

// Approve attaches the user to a pending session. It fails without mutating
// when the token is unknown, the session was already approved, or the session
// expired, including expiry discovered during this very call. The entry lock
// makes the read-modify-write atomic per token: of N concurrent approvals at
// most one observes pending and wins.
func (s *Store) Approve(token, userID string) (model.ClaimSession, error) {
	e := s.lookup(token)
	if e == nil {
		return model.ClaimSession{}, sessionserrors.ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	s.touchExpiryLocked(e)

	switch e.session.Status {
	case model.SessionExpired:
		return model.ClaimSession{}, sessionserrors.ErrExpired
	case model.SessionApproved:
		return model.ClaimSession{}, sessionserrors.ErrAlreadyResolved
	}

	e.session.Status = model.SessionApproved
	e.session.UserID = userID
	return e.session, nil
}

// Len reports how many sessions the store currently holds.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// StartJanitor periodically drops sessions that expired more than a TTL ago.
// Purely a resource-growth valve: lazy expiry alone already guarantees the
// observable semantics, and a zero interval disables the sweep entirely.
func (s *Store) StartJanitor(interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stopCh:
				return
			}
		}
	}()
}

func (s *Store) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func (s *Store) sweep() {
	cutoff := s.now().Add(-2 * s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	for token, e := range s.entries {
		e.mu.Lock()
		stale := e.session.Status != model.SessionApproved && e.session.CreatedAt.Before(cutoff)
		e.mu.Unlock()
		if stale {
			delete(s.entries, token)
		}
	}
}

func (s *Store) lookup(token string) *entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[token]
}

// touchExpiryLocked must be called with the entry lock held.
func (s *Store) touchExpiryLocked(e *entry) {
	if e.session.ExpiredBy(s.now()) {
		e.session.Status = model.SessionExpired
	}
}
