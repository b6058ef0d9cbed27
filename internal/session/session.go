// Package session holds one conversation's history. A Session is owned by
// its caller and is passed explicitly to every answer it should remember.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// Role is the author of a turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one message in the history.
type Turn struct {
	Role Role      `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Session is an append-only, ordered history.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu    sync.RWMutex
	turns []Turn
}

// New starts an empty session with a random id.
func New() *Session {
	return &Session{ID: uuid.NewString(), CreatedAt: time.Now()}
}

// Turns returns a copy of the history.
func (s *Session) Turns() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Turn(nil), s.turns...)
}

// Len is the number of turns.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// AppendExchange records a user turn and the model's reply together, so the
// history never holds an unanswered question.
func (s *Session) AppendExchange(user, model string) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns,
		Turn{Role: RoleUser, Text: user, At: now},
		Turn{Role: RoleModel, Text: model, At: now},
	)
}

// DefaultIdleTTL is how long an unused session is kept by a Store.
const DefaultIdleTTL = time.Hour

// Store keeps sessions by id for surfaces that serve many conversations.
// A session is registered by Save and expires after it has not been saved
// for the idle TTL.
type Store struct {
	sessions *gocache.Cache
	ttl      time.Duration
}

// NewStore returns an empty Store with DefaultIdleTTL.
func NewStore() *Store {
	return NewStoreWithTTL(DefaultIdleTTL)
}

// NewStoreWithTTL returns an empty Store whose sessions expire after ttl
// without a Save.
func NewStoreWithTTL(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	return &Store{sessions: gocache.New(ttl, ttl), ttl: ttl}
}

// Get returns the session with id. An empty, unknown or expired id yields a
// new session that is not stored until Save. The returned session's ID is
// authoritative.
func (st *Store) Get(id string) *Session {
	if id != "" {
		if v, ok := st.sessions.Get(id); ok {
			return v.(*Session)
		}
	}
	return New()
}

// Save registers s and restarts its idle timer.
func (st *Store) Save(s *Session) {
	st.sessions.Set(s.ID, s, st.ttl)
}

// Len is the number of stored sessions, including expired ones not yet
// cleaned up.
func (st *Store) Len() int {
	return st.sessions.ItemCount()
}
