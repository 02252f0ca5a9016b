package services

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/HussamZG/shakaoy-650/internal/auth"
)

// Navigation targets returned alongside guard outcomes.
const (
	RedirectLogin     = "/admin/login"
	RedirectDashboard = "/admin/dashboard"
	RedirectLanding   = "/"
)

// Authenticator is the password-auth backend the guard talks to.
type Authenticator interface {
	SignInWithPassword(ctx context.Context, email, password string) (*auth.Session, error)
	GetSession(ctx context.Context, token string) (*auth.Session, error)
	SignOut(ctx context.Context, token string) error
}

// SessionGuard gates the admin views.
//
// The allow-list is Allowed plus, when AllowSessionIdentity is set, the
// session's own email. With that flag on every valid session passes.
type SessionGuard struct {
	Auth                 Authenticator
	Allowed              []string
	AllowSessionIdentity bool
}

// NewSessionGuard returns a guard with the given allow-list.
func NewSessionGuard(a Authenticator, allowed []string, allowSessionIdentity bool) *SessionGuard {
	norm := make([]string, 0, len(allowed))
	for _, e := range allowed {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			norm = append(norm, e)
		}
	}
	return &SessionGuard{Auth: a, Allowed: norm, AllowSessionIdentity: allowSessionIdentity}
}

// Check resolves token to a live, allowed session. A missing or dead
// session yields ErrNoSession. A session outside the allow-list is signed
// out and yields an *UnauthorizedError.
func (g *SessionGuard) Check(ctx context.Context, token string) (*auth.Session, error) {
	sess, err := g.Auth.GetSession(ctx, token)
	if err != nil {
		if !errors.Is(err, auth.ErrNoSession) {
			log.Warn().Err(err).Msg("guard: session lookup failed")
		}
		return nil, ErrNoSession
	}
	if sess == nil {
		return nil, ErrNoSession
	}
	if !g.allowed(sess) {
		if err := g.Auth.SignOut(ctx, token); err != nil {
			log.Warn().Err(err).Str("email", sess.Email).Msg("guard: forced sign-out failed")
		}
		return nil, &UnauthorizedError{Email: sess.Email}
	}
	return sess, nil
}

func (g *SessionGuard) allowed(sess *auth.Session) bool {
	email := strings.ToLower(strings.TrimSpace(sess.Email))
	list := g.Allowed
	if g.AllowSessionIdentity {
		list = append(append([]string(nil), list...), email)
	}
	for _, a := range list {
		if a == email {
			return true
		}
	}
	return false
}

// Login signs in with a password. Backend errors are returned unchanged so
// their message can be shown verbatim.
func (g *SessionGuard) Login(ctx context.Context, email, password string) (*auth.Session, error) {
	return g.Auth.SignInWithPassword(ctx, email, password)
}

// Logout ends the session named by token.
func (g *SessionGuard) Logout(ctx context.Context, token string) error {
	return g.Auth.SignOut(ctx, token)
}
