package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"cognetex/api/internal/authpw"
	"cognetex/api/internal/session"
	"cognetex/api/internal/store"
	"github.com/google/uuid"
)

var (
	ErrNotConfigured      = errors.New("admin authentication is not configured")
	ErrInvalidCredentials = errors.New("invalid admin credentials")
)

type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticating  State = "authenticating"
	StateAuthenticated   State = "authenticated"
)

// PasswordBackend verifies an email and password pair.
type PasswordBackend interface {
	SignIn(ctx context.Context, email, password string) (store.AdminAccount, error)
}

// Session is an authenticated admin session.
type Session struct {
	Email     string    `json:"email"`
	ID        string    `json:"-"`
	Token     string    `json:"token,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Gate is the single authorization boundary of the admin panel: a caller
// either holds a live admin session or it does not.
type Gate struct {
	adminEmail string
	backend    PasswordBackend
	sessions   session.Store
	secret     []byte
	ttl        time.Duration
	now        func() time.Time
}

type GateConfig struct {
	AdminEmail string
	Secret     string
	TTL        time.Duration
}

func NewGate(cfg GateConfig, backend PasswordBackend, sessions session.Store) *Gate {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Gate{
		adminEmail: strings.TrimSpace(cfg.AdminEmail),
		backend:    backend,
		sessions:   sessions,
		secret:     []byte(cfg.Secret),
		ttl:        ttl,
		now:        time.Now,
	}
}

// Configured reports whether Login can succeed at all.
func (g *Gate) Configured() bool {
	return g.adminEmail != "" && g.backend != nil && g.sessions != nil && len(g.secret) > 0
}

// Login signs in the configured admin with password. It is the
// authenticating transition: success yields an authenticated session, any
// error leaves the caller unauthenticated.
func (g *Gate) Login(ctx context.Context, password string) (Session, error) {
	if g.adminEmail == "" {
		return Session{}, fmt.Errorf("%w: missing admin email", ErrNotConfigured)
	}
	if g.backend == nil || g.sessions == nil || len(g.secret) == 0 {
		return Session{}, fmt.Errorf("%w: missing authentication backend", ErrNotConfigured)
	}

	account, err := g.backend.SignIn(ctx, g.adminEmail, password)
	if errors.Is(err, authpw.ErrInvalidCredentials) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("sign in: %w", err)
	}

	email := account.Email
	if email == "" {
		email = g.adminEmail
	}
	issued := Session{
		Email:     email,
		ID:        uuid.NewString(),
		ExpiresAt: g.now().Add(g.ttl),
	}
	token, err := IssueToken(g.secret, Claims{Sub: issued.Email, JTI: issued.ID, Exp: issued.ExpiresAt})
	if err != nil {
		return Session{}, err
	}
	if err := g.sessions.Save(ctx, issued.ID, session.Record{Email: issued.Email, CreatedAt: g.now()}, issued.ExpiresAt); err != nil {
		return Session{}, fmt.Errorf("save session: %w", err)
	}
	issued.Token = token
	return issued, nil
}

// Authenticate returns the live session behind token.
func (g *Gate) Authenticate(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, ErrInvalidToken
	}
	claims, err := ParseToken(g.secret, token)
	if err != nil {
		return Session{}, err
	}
	if g.sessions == nil {
		return Session{}, ErrInvalidToken
	}
	record, err := g.sessions.Lookup(ctx, claims.JTI)
	if errors.Is(err, session.ErrNotFound) {
		return Session{}, ErrInvalidToken
	}
	if err != nil {
		return Session{}, fmt.Errorf("lookup session: %w", err)
	}
	if !strings.EqualFold(record.Email, claims.Sub) {
		return Session{}, ErrInvalidToken
	}
	return Session{Email: record.Email, ID: claims.JTI, ExpiresAt: claims.Exp}, nil
}

// State reports whether token belongs to a live session.
func (g *Gate) State(ctx context.Context, token string) State {
	if _, err := g.Authenticate(ctx, token); err != nil {
		return StateUnauthenticated
	}
	return StateAuthenticated
}

// Logout ends the session behind token. It never fails: unknown, expired
// and malformed tokens are already logged out.
func (g *Gate) Logout(ctx context.Context, token string) {
	claims, err := ParseToken(g.secret, token)
	if err != nil || g.sessions == nil {
		return
	}
	if err := g.sessions.Revoke(ctx, claims.JTI); err != nil {
		log.Printf("auth: revoke session %s: %v", claims.JTI, err)
	}
}
