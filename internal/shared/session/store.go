// Package session provides the in-memory store for per-user connection
// flow state. Sessions are keyed by opaque IDs carried in an HttpOnly
// cookie and expire after a period of inactivity.
package session

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"financefly/internal/domain/connect"
)

type Store struct {
	mu       sync.RWMutex
	sessions map[string]*connect.Session
	ttl      time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

// NewStore creates a store and starts the background sweeper that
// evicts idle sessions. Call Stop on shutdown.
func NewStore(ttl time.Duration) *Store {
	s := &Store{
		sessions: make(map[string]*connect.Session),
		ttl:      ttl,
		stop:     make(chan struct{}),
	}
	go s.sweeper()
	return s
}

// Create registers a new session in the AwaitingForm state.
func (s *Store) Create() *connect.Session {
	sess := connect.NewSession(uuid.NewString())

	s.mu.Lock()
	s.sessions[sess.ID()] = sess
	s.mu.Unlock()

	return sess
}

// Get returns the session for id, refreshing its idle timer.
func (s *Store) Get(id string) (*connect.Session, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if sess.Expired(s.ttl) {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return nil, false
	}

	sess.Touch()
	return sess, true
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Stop terminates the background sweeper. Safe to call more than once.
func (s *Store) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Store) sweeper() {
	interval := s.ttl / 2
	if interval < time.Minute {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.sweep(); n > 0 {
				log.Printf("Swept %d expired sessions", n)
			}
		case <-s.stop:
			return
		}
	}
}

// sweep removes every expired session and returns how many were evicted.
func (s *Store) sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted int
	for id, sess := range s.sessions {
		if sess.Expired(s.ttl) {
			delete(s.sessions, id)
			evicted++
		}
	}
	return evicted
}
