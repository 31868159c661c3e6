package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/bimakw/lighter-tracker/internal/domain/entities"
)

// Session owns one dashboard's display state and its check guard
type Session struct {
	ID string

	mu       sync.RWMutex
	state    entities.DisplayState
	lastSeen time.Time

	// at most one check in flight
	inflight *semaphore.Weighted
}

// NewSession creates a session with a fresh display state
func NewSession(id string) *Session {
	return &Session{
		ID:       id,
		state:    entities.NewDisplayState(),
		lastSeen: time.Now(),
		inflight: semaphore.NewWeighted(1),
	}
}

// State returns a copy of the display state
func (s *Session) State() entities.DisplayState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// SetView switches the view mode and returns the updated state
func (s *Session) SetView(view entities.ViewMode) entities.DisplayState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.CurrentView = view
	return s.state
}

func (s *Session) remember(addresses []string, resp *entities.AccountsResponse) entities.DisplayState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LastAccounts = resp.Accounts
	s.state.LastPositionSummary = resp.PositionSummary
	s.state.LastMarketPrices = resp.MarketPrices
	s.state.LastAddresses = append([]string(nil), addresses...)
	return s.state
}

func (s *Session) tryBegin() bool {
	return s.inflight.TryAcquire(1)
}

func (s *Session) end() {
	s.inflight.Release(1)
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen
}

// SessionRegistry keeps process-local sessions by id
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionRegistry creates an empty registry
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]*Session)}
}

// Get returns the session for id, creating one (with a new id when id is
// empty or unknown).
func (r *SessionRegistry) Get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok && id != "" {
		s.touch()
		return s
	}

	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	s := NewSession(id)
	r.sessions[id] = s
	return s
}

// Len returns the number of live sessions
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Expire drops sessions idle for longer than maxIdle and returns how many
func (r *SessionRegistry) Expire(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, s := range r.sessions {
		if s.idleSince().Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}
