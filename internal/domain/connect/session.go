package connect

import (
	"sync"
	"time"
)

// State is the position of a session in the connection flow.
type State int

const (
	StateAwaitingForm State = iota
	StateTokenRequested
	StateWidgetOpen
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateAwaitingForm:
		return "awaiting_form"
	case StateTokenRequested:
		return "token_requested"
	case StateWidgetOpen:
		return "widget_open"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Session holds the per-user flow state that the original widget page
// needs across renders: the pending form values, the issued connect
// token, and the one-shot processed flag. Each session is owned by one
// browser; its mutex only guards against double-submits from the same
// browser, not cross-session sharing.
type Session struct {
	mu sync.Mutex

	id        string
	state     State
	name      string
	email     string
	token     string
	processed bool
	savedID   *int64

	createdAt time.Time
	lastSeen  time.Time
}

// NewSession creates a session in the AwaitingForm state.
func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		id:        id,
		state:     StateAwaitingForm,
		createdAt: now,
		lastSeen:  now,
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Touch refreshes the idle timer. The session store calls it on every
// lookup so active sessions are not swept.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()
}

// Expired reports whether the session has been idle longer than ttl.
func (s *Session) Expired(ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastSeen) > ttl
}

// Snapshot is a copy of the session state safe for rendering.
type Snapshot struct {
	State     string `json:"state"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	HasToken  bool   `json:"has_token"`
	Processed bool   `json:"processed"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		State:     s.state.String(),
		Name:      s.name,
		Email:     s.email,
		HasToken:  s.token != "",
		Processed: s.processed,
	}
}

// Token returns the issued connect token, empty until the flow reaches
// WidgetOpen.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}
