/*
Package user models the signed-in account the chat client acts for.

Authentication itself belongs to the store's auth service; the client only
consumes the current identity and can end the session with Logout.
*/
package user

import (
	"fmt"
	"sync"

	gojwt "github.com/golang-jwt/jwt"

	"chatsync/internal/pkg/auth/jwt"
	"chatsync/internal/pkg/logx"
	"chatsync/internal/pkg/randx"
)

// Identity is the signed-in account.
type Identity struct {
	// ID is the account id; it is the user_id on every message the account sends.
	ID string `json:"id"`

	// Email is the account email, possibly empty.
	Email string `json:"email,omitempty"`
}

// Provider supplies the current identity. CurrentUser returns nil once the
// account has logged out.
type Provider interface {
	CurrentUser() *Identity
	Logout()
}

// AccountSession is a Provider backed by an access token.
type AccountSession struct {
	mu       sync.RWMutex
	identity *Identity
	token    string
}

// NewAccountSession wraps an already verified identity and its token.
func NewAccountSession(identity Identity, token string) *AccountSession {
	return &AccountSession{identity: &identity, token: token}
}

// FromToken verifies an access token and returns the session it describes.
// The subject must be an account uuid, the id type of every store row.
func FromToken(token, secret string) (*AccountSession, error) {
	claims, err := jwt.ParseToken(token, secret)
	if err != nil {
		return nil, fmt.Errorf("invalid access token: %w", err)
	}
	if !randx.IsRowID(claims.Subject) {
		return nil, fmt.Errorf("invalid access token: subject %q is not an account id", claims.Subject)
	}

	return NewAccountSession(Identity{ID: claims.Subject, Email: claims.Email}, token), nil
}

// NewDevelopmentSession mints a fresh identity and a token for it. Used only
// when no access token is configured in development.
func NewDevelopmentSession(email, secret string) (*AccountSession, error) {
	identity := Identity{ID: randx.RowID(), Email: email}

	token, err := jwt.GenerateToken(&jwt.Claims{
		StandardClaims: gojwt.StandardClaims{Subject: identity.ID},
		Email:          identity.Email,
		Role:           jwt.RoleAuthenticated,
	}, secret, jwt.DevTokenExpiration)
	if err != nil {
		return nil, fmt.Errorf("failed to sign development token: %w", err)
	}

	return NewAccountSession(identity, token), nil
}

// CurrentUser returns a copy of the identity, or nil after Logout.
func (s *AccountSession) CurrentUser() *Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.identity == nil {
		return nil
	}
	identity := *s.identity
	return &identity
}

// Token returns the access token, or "" after Logout.
func (s *AccountSession) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Logout forgets the identity and token.
func (s *AccountSession) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identity != nil {
		logx.Info("Account logged out", "user_id", s.identity.ID)
	}
	s.identity = nil
	s.token = ""
}
