package fightsvc

import (
	"context"
	"sync"
)

// TokenSource mints a fresh bearer token. It is called once per session
// lifetime and again after each Invalidate.
type TokenSource func(ctx context.Context) (string, error)

// Session holds the bearer token for the fight service. Tokens are fetched
// lazily and reused until invalidated.
type Session struct {
	mu     sync.Mutex
	token  string
	valid  bool
	source TokenSource
}

// NewSession builds a Session around a token source.
func NewSession(source TokenSource) *Session {
	return &Session{source: source}
}

// NewStaticSession wraps a fixed token, for services using long-lived API
// keys. Invalidate is a no-op beyond forcing the next Token call to re-read
// the same value.
func NewStaticSession(token string) *Session {
	return NewSession(func(context.Context) (string, error) {
		return token, nil
	})
}

// Token returns the current token, minting one if needed.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.valid {
		return s.token, nil
	}
	token, err := s.source(ctx)
	if err != nil {
		return "", err
	}
	s.token = token
	s.valid = true
	return token, nil
}

// Invalidate discards the cached token so the next request authenticates
// afresh.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.valid = false
	s.token = ""
}
