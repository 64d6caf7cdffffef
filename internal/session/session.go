// Package session owns the signed-in state of the client: the bearer
// token, the cached user profile, and a stable per-install client id.
// It is always injected into its consumers rather than reached through
// a package global, so tests can substitute a fake credential store.
package session

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/signnatural/academy-cli/internal/model"
)

// Keyring keys used for persisted session state.
const (
	tokenKey    = "auth-token"
	userKey     = "auth-user"
	clientIDKey = "client-id"
)

// CredentialStore persists session secrets. The credential package
// provides the system-keyring implementation.
type CredentialStore interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// Service holds the current session. All methods are safe for
// concurrent use; the token is read by the API client and the
// notification engine while the UI may be signing in or out.
type Service struct {
	mu        sync.RWMutex
	token     string
	user      *model.User
	clientID  string
	creds     CredentialStore
	onSignOut []func()
}

// New creates a Service backed by the given credential store and
// restores any persisted session.
func New(creds CredentialStore) *Service {
	s := &Service{creds: creds}
	s.restore()
	return s
}

// restore loads a previously persisted token, user, and client id.
// A missing or unreadable entry just leaves the session signed out.
func (s *Service) restore() {
	if tok, err := s.creds.Get(tokenKey); err == nil && tok != "" {
		s.token = tok
	}
	if raw, err := s.creds.Get(userKey); err == nil && raw != "" {
		var u model.User
		if json.Unmarshal([]byte(raw), &u) == nil {
			s.user = &u
		}
	}
	if id, err := s.creds.Get(clientIDKey); err == nil && id != "" {
		s.clientID = id
		return
	}
	s.clientID = uuid.New().String()
	_ = s.creds.Set(clientIDKey, s.clientID)
}

// Token returns the current bearer token, or "" when signed out.
func (s *Service) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns the cached profile of the signed-in user, or nil.
func (s *Service) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// ClientID returns the stable per-install identifier sent with requests.
func (s *Service) ClientID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clientID
}

// Authenticated reports whether a bearer token is present.
func (s *Service) Authenticated() bool {
	return s.Token() != ""
}

// SignIn stores the token and user profile in memory and in the
// credential store.
func (s *Service) SignIn(token string, user model.User) {
	s.mu.Lock()
	s.token = token
	s.user = &user
	s.mu.Unlock()

	_ = s.creds.Set(tokenKey, token)
	if raw, err := json.Marshal(user); err == nil {
		_ = s.creds.Set(userKey, string(raw))
	}
}

// SignOut clears the session and fires the registered teardown hooks.
// It is idempotent; hooks fire only on the transition out of a
// signed-in state.
func (s *Service) SignOut() {
	s.mu.Lock()
	wasSignedIn := s.token != ""
	s.token = ""
	s.user = nil
	hooks := make([]func(), len(s.onSignOut))
	copy(hooks, s.onSignOut)
	s.mu.Unlock()

	_ = s.creds.Delete(tokenKey)
	_ = s.creds.Delete(userKey)

	if !wasSignedIn {
		return
	}
	for _, hook := range hooks {
		hook()
	}
}

// Invalidate is the forced teardown entrypoint used by the API client's
// unauthorized-response interceptor.
func (s *Service) Invalidate() {
	s.SignOut()
}

// OnSignOut registers a hook invoked whenever the session is torn down,
// whether by the user or by an unauthorized backend response.
func (s *Service) OnSignOut(hook func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSignOut = append(s.onSignOut, hook)
}
