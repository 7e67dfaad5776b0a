package api

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionTable maps issued bearer tokens to user IDs. Sessions are
// in-memory only; a restart logs everyone out.
type SessionTable struct {
	mu       sync.RWMutex
	sessions map[string]session
	ttl      time.Duration
}

type session struct {
	userID    string
	expiresAt time.Time
}

// NewSessionTable creates a session table with the given token lifetime
func NewSessionTable(ttl time.Duration) *SessionTable {
	return &SessionTable{
		sessions: make(map[string]session),
		ttl:      ttl,
	}
}

// Issue creates a fresh token for the user. Expired tokens are swept on
// each issue so abandoned sessions do not accumulate.
func (t *SessionTable) Issue(userID string) string {
	token := uuid.New().String()
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	for tok, s := range t.sessions {
		if now.After(s.expiresAt) {
			delete(t.sessions, tok)
		}
	}

	t.sessions[token] = session{
		userID:    userID,
		expiresAt: now.Add(t.ttl),
	}
	return token
}

// Resolve returns the user ID for a live token
func (t *SessionTable) Resolve(token string) (string, bool) {
	t.mu.RLock()
	s, ok := t.sessions[token]
	t.mu.RUnlock()
	if !ok {
		return "", false
	}
	if time.Now().After(s.expiresAt) {
		t.Revoke(token)
		return "", false
	}
	return s.userID, true
}

// Revoke drops a token
func (t *SessionTable) Revoke(token string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, token)
}
