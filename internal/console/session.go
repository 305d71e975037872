// Package console is the operator-side client of the watchtower API: the
// persisted session, the route guard and menu filter that mirror the server
// policy, and an HTTP client that renews expired access tokens.
package console

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"watchtower.dev/internal/auth"
)

// SessionKey is the storage key the session is persisted under.
const SessionKey = "watchtower.session"

// Session is the signed-in state of the console.
type Session struct {
	AccessToken  string        `json:"accessToken,omitempty"`
	RefreshToken string        `json:"refreshToken,omitempty"`
	User         *auth.Profile `json:"user,omitempty"`
}

// Role returns the signed-in role, or "" when nobody is signed in.
func (s Session) Role() auth.Role {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}

// SessionStore owns the current session. Every change is persisted first
// and only then applied in memory, so a failed write changes nothing.
type SessionStore struct {
	mu        sync.Mutex
	storage   Storage
	current   Session
	listeners []func(Session)
}

// Open reads any persisted session once. An unreadable entry is discarded
// rather than failing startup.
func Open(storage Storage) (*SessionStore, error) {
	if storage == nil {
		return nil, errors.New("storage is required")
	}
	s := &SessionStore{storage: storage}
	raw, ok, err := storage.Get(SessionKey)
	if err != nil {
		return nil, err
	}
	if ok && strings.TrimSpace(raw) != "" {
		var persisted Session
		if err := json.Unmarshal([]byte(raw), &persisted); err != nil {
			_ = storage.Delete(SessionKey)
		} else {
			if persisted.User != nil {
				persisted.User.Role = auth.NormalizeRole(string(persisted.User.Role))
			}
			s.current = persisted
		}
	}
	return s, nil
}

// Login replaces the session with a freshly issued one.
func (s *SessionStore) Login(access, refresh string, user auth.Profile) error {
	user.Role = auth.NormalizeRole(string(user.Role))
	return s.apply(func(cur Session) Session {
		return Session{AccessToken: access, RefreshToken: refresh, User: &user}
	})
}

// UpdateTokens swaps the token pair and keeps the user.
func (s *SessionStore) UpdateTokens(access, refresh string) error {
	return s.apply(func(cur Session) Session {
		cur.AccessToken = access
		cur.RefreshToken = refresh
		return cur
	})
}

// Logout clears the session.
func (s *SessionStore) Logout() error {
	return s.apply(func(Session) Session { return Session{} })
}

// IsAuthenticated reports whether an access token is held.
func (s *SessionStore) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.AccessToken != ""
}

// Current returns a copy of the session.
func (s *SessionStore) Current() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copySession(s.current)
}

// Subscribe registers fn to run after every change. The returned func
// removes it.
func (s *SessionStore) Subscribe(fn func(Session)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
	idx := len(s.listeners) - 1
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if idx < len(s.listeners) {
			s.listeners[idx] = nil
		}
	}
}

func (s *SessionStore) apply(change func(Session) Session) error {
	s.mu.Lock()
	next := change(copySession(s.current))
	if err := s.persist(next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.current = next
	listeners := make([]func(Session), 0, len(s.listeners))
	for _, fn := range s.listeners {
		if fn != nil {
			listeners = append(listeners, fn)
		}
	}
	snapshot := copySession(next)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
	return nil
}

func (s *SessionStore) persist(sess Session) error {
	if sess.AccessToken == "" && sess.RefreshToken == "" && sess.User == nil {
		return s.storage.Delete(SessionKey)
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.storage.Set(SessionKey, string(data))
}

func copySession(s Session) Session {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}
