// Package authpw checks admin passwords against bcrypt hashes.
package authpw

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"cognetex/api/internal/store"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
)

const minPasswordLength = 8

// AccountStore looks up the stored hash for an admin email.
type AccountStore interface {
	GetAdminAccount(ctx context.Context, email string) (store.AdminAccount, error)
}

// Service provides email/password sign-in
type Service struct {
	accounts AccountStore
}

func NewService(accounts AccountStore) *Service {
	return &Service{accounts: accounts}
}

// SignIn verifies password for email. Unknown accounts and wrong passwords
// both return ErrInvalidCredentials.
func (s *Service) SignIn(ctx context.Context, email, password string) (store.AdminAccount, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return store.AdminAccount{}, ErrInvalidCredentials
	}

	account, err := s.accounts.GetAdminAccount(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		return store.AdminAccount{}, ErrInvalidCredentials
	}
	if err != nil {
		return store.AdminAccount{}, fmt.Errorf("lookup admin account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return store.AdminAccount{}, ErrInvalidCredentials
	}
	return account, nil
}

// HashPassword returns a bcrypt hash suitable for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// StaticAccounts serves accounts from configuration.
type StaticAccounts map[string]string

func (a StaticAccounts) GetAdminAccount(ctx context.Context, email string) (store.AdminAccount, error) {
	key := strings.ToLower(strings.TrimSpace(email))
	hash, ok := a[key]
	if !ok || hash == "" {
		return store.AdminAccount{}, sql.ErrNoRows
	}
	return store.AdminAccount{Email: key, PasswordHash: hash}, nil
}

// NewStaticAccounts returns a single configured account.
func NewStaticAccounts(email, passwordHash string) StaticAccounts {
	return StaticAccounts{strings.ToLower(strings.TrimSpace(email)): passwordHash}
}

// Chain tries each store in order until one knows the email.
type Chain []AccountStore

func (c Chain) GetAdminAccount(ctx context.Context, email string) (store.AdminAccount, error) {
	for _, accounts := range c {
		account, err := accounts.GetAdminAccount(ctx, email)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		return account, err
	}
	return store.AdminAccount{}, sql.ErrNoRows
}
