// Package store owns the process-lifetime session and detection-cache
// maps. Both are keyed by session id; operations on different ids never
// block each other. Nothing here survives a process restart, by design.
package store

import (
	"sync"
	"time"

	"github.com/fwojciec/segchat"
)

// SessionStore is an in-memory session container. Each session carries
// its own mutex so whole turns can be serialized per session id without
// a global lock.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

type sessionEntry struct {
	mu   sync.Mutex
	sess *segchat.Session
}

// NewSessionStore creates an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*sessionEntry)}
}

// Create initializes a session bound to the stored image. The system
// prompt embeds the image's location so the reasoning engine can
// reference it in later tool calls. The result counter starts at zero.
func (s *SessionStore) Create(id, imagePath, systemPrompt string) *segchat.Session {
	now := time.Now()
	sess := &segchat.Session{
		ID:           id,
		SystemPrompt: systemPrompt,
		ImagePath:    imagePath,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.mu.Lock()
	s.sessions[id] = &sessionEntry{sess: sess}
	s.mu.Unlock()
	return sess
}

// Get returns the session for id, or ErrSessionNotFound. The returned
// session must be treated as read-only unless it was obtained through
// Acquire.
func (s *SessionStore) Get(id string) (*segchat.Session, error) {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, segchat.ErrSessionNotFound
	}
	return e.sess, nil
}

// Acquire locks the session for exclusive use and returns it together
// with a release func. All turn-scope mutation (transcript appends, the
// artifact counter) goes through the acquired handle; concurrent turns
// against the same session id serialize here, while other sessions
// proceed unblocked.
func (s *SessionStore) Acquire(id string) (*segchat.Session, func(), error) {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, segchat.ErrSessionNotFound
	}
	e.mu.Lock()
	return e.sess, e.mu.Unlock, nil
}

// Delete removes all state for id. Deleting an unknown id reports
// ErrSessionNotFound; callers treat that as non-fatal.
func (s *SessionStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return segchat.ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

// Len returns the number of active sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
