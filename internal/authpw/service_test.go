package authpw

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"cognetex/api/internal/store"
)

type mockAccountStore struct {
	getFn func(ctx context.Context, email string) (store.AdminAccount, error)
}

func (m *mockAccountStore) GetAdminAccount(ctx context.Context, email string) (store.AdminAccount, error) {
	return m.getFn(ctx, email)
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	return hash
}

func TestSignInSuccess(t *testing.T) {
	svc := NewService(NewStaticAccounts("Admin@Cognetex.test", mustHash(t, "correct horse")))

	account, err := svc.SignIn(context.Background(), "admin@cognetex.test", "correct horse")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if account.Email != "admin@cognetex.test" {
		t.Errorf("expected normalized email, got %q", account.Email)
	}
}

func TestSignInWrongPassword(t *testing.T) {
	svc := NewService(NewStaticAccounts("admin@cognetex.test", mustHash(t, "correct horse")))

	_, err := svc.SignIn(context.Background(), "admin@cognetex.test", "battery staple")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestSignInUnknownAccount(t *testing.T) {
	svc := NewService(NewStaticAccounts("admin@cognetex.test", mustHash(t, "correct horse")))

	_, err := svc.SignIn(context.Background(), "someone@else.test", "correct horse")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestSignInStoreFailureIsNotCredentialError(t *testing.T) {
	boom := errors.New("connection reset")
	svc := NewService(&mockAccountStore{getFn: func(ctx context.Context, email string) (store.AdminAccount, error) {
		return store.AdminAccount{}, boom
	}})

	_, err := svc.SignIn(context.Background(), "admin@cognetex.test", "whatever1")
	if errors.Is(err, ErrInvalidCredentials) || !errors.Is(err, boom) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

func TestSignInEmptyInput(t *testing.T) {
	svc := NewService(StaticAccounts{})
	if _, err := svc.SignIn(context.Background(), "", "x"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for empty email, got %v", err)
	}
	if _, err := svc.SignIn(context.Background(), "admin@cognetex.test", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for empty password, got %v", err)
	}
}

func TestHashPasswordRejectsShortPasswords(t *testing.T) {
	if _, err := HashPassword("short"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
}

func TestChainFallsThroughUnknownEmails(t *testing.T) {
	database := &mockAccountStore{getFn: func(ctx context.Context, email string) (store.AdminAccount, error) {
		return store.AdminAccount{}, sql.ErrNoRows
	}}
	chain := Chain{database, NewStaticAccounts("admin@cognetex.test", mustHash(t, "correct horse"))}
	svc := NewService(chain)

	if _, err := svc.SignIn(context.Background(), "admin@cognetex.test", "correct horse"); err != nil {
		t.Fatalf("expected chained lookup to succeed, got %v", err)
	}
}
