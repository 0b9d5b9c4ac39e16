package app

import (
	"net/http"
	"testing"
)

func TestLoginWithoutAccountsIsNotConfigured(t *testing.T) {
	svc := New(testConfig(), Deps{})
	h := NewHTTPServer(svc, "*").Handler()

	rr := doJSON(t, h, http.MethodPost, "/api/session/login", "", map[string]string{"password": testPassword})
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
	response := decodeResponse(t, rr)
	if response["code"] != "AUTH_NOT_CONFIGURED" || response["error"] != "Admin login is not configured." {
		t.Errorf("unexpected response %v", response)
	}

	rr = doJSON(t, h, http.MethodGet, "/api/session", "", nil)
	if configured := decodeResponse(t, rr)["configured"]; configured != false {
		t.Errorf("expected configured=false, got %v", configured)
	}
}

func TestLoginWithWrongPassword(t *testing.T) {
	_, h := newTestServer(t, Deps{})

	rr := doJSON(t, h, http.MethodPost, "/api/session/login", "", map[string]string{"password": "guess"})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
	if code := decodeResponse(t, rr)["code"]; code != "INVALID_CREDENTIALS" {
		t.Errorf("expected INVALID_CREDENTIALS, got %v", code)
	}
}

func TestLoginSessionLogoutLifecycle(t *testing.T) {
	_, h := newTestServer(t, Deps{})

	rr := doJSON(t, h, http.MethodGet, "/api/session", "", nil)
	if state := decodeResponse(t, rr)["state"]; state != "unauthenticated" {
		t.Fatalf("expected unauthenticated before login, got %v", state)
	}

	token := login(t, h)

	rr = doJSON(t, h, http.MethodGet, "/api/session", token, nil)
	response := decodeResponse(t, rr)
	if response["state"] != "authenticated" || response["email"] != testAdminEmail {
		t.Fatalf("unexpected session %v", response)
	}

	rr = doJSON(t, h, http.MethodPost, "/api/session/logout", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("logout status = %d", rr.Code)
	}

	rr = doJSON(t, h, http.MethodGet, "/api/session", token, nil)
	if state := decodeResponse(t, rr)["state"]; state != "unauthenticated" {
		t.Errorf("expected unauthenticated after logout, got %v", state)
	}
	rr = doJSON(t, h, http.MethodGet, "/api/admin/services", token, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected revoked token to be rejected, got %d", rr.Code)
	}
}

func TestLogoutWithoutSessionSucceeds(t *testing.T) {
	_, h := newTestServer(t, Deps{})

	rr := doJSON(t, h, http.MethodPost, "/api/session/logout", "not-a-token", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
}

func TestAdminRoutesRequireSession(t *testing.T) {
	_, h := newTestServer(t, Deps{})

	for _, path := range []string{"/api/admin/services", "/api/admin/history", "/api/admin"} {
		rr := doJSON(t, h, http.MethodGet, path, "", nil)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected status 401, got %d", path, rr.Code)
		}
	}
	rr := doJSON(t, h, http.MethodGet, "/api/admin/services", "forged.token.value", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected forged token to be rejected, got %d", rr.Code)
	}
}
