// Package identity provides in-process identity and group-membership
// sources for the record store.
package identity

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/mycelian/rinku/internal/types"
)

// Session is an IdentityProvider driven by explicit SignIn / SignOut calls.
type Session struct {
	mu      sync.RWMutex
	current *types.Identity
	bus     broadcaster[types.AuthEvent]
	pubMu   sync.Mutex // keeps publish order equal to transition order
	log     zerolog.Logger
}

var _ types.IdentityProvider = (*Session)(nil)

// NewSession starts signed out.
func NewSession(log zerolog.Logger) *Session {
	return &Session{log: log.With().Str("component", "identity").Logger()}
}

// Current returns a copy of the signed-in identity, nil when signed out.
func (s *Session) Current() *types.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	cp := *s.current
	return &cp
}

// Subscribe returns auth transitions as they happen.
func (s *Session) Subscribe() (<-chan types.AuthEvent, func()) {
	return s.bus.subscribe()
}

// SignIn switches to id and notifies subscribers. Signing in as the
// already-current identity is a no-op.
func (s *Session) SignIn(id types.Identity) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	if s.current != nil && s.current.ID == id.ID {
		s.mu.Unlock()
		return
	}
	cp := id
	s.current = &cp
	s.mu.Unlock()

	s.log.Info().Str("user_id", id.ID).Msg("signed in")
	ev := cp
	s.bus.publish(types.AuthEvent{SignedIn: true, Identity: &ev})
}

// SignOut clears the identity and notifies subscribers.
func (s *Session) SignOut() {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return
	}
	prev := s.current.ID
	s.current = nil
	s.mu.Unlock()

	s.log.Info().Str("user_id", prev).Msg("signed out")
	s.bus.publish(types.AuthEvent{SignedIn: false})
}
