package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lumeo-studio/site-auth/app/entity"
	"github.com/lumeo-studio/site-auth/app/middleware"
	"github.com/lumeo-studio/site-auth/app/service"
	"github.com/lumeo-studio/site-auth/config"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeAccountChecker struct {
	disabled map[string]bool
	err      error
}

func (f *fakeAccountChecker) IsDisabled(_ context.Context, userID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.disabled[userID], nil
}

func newTokens(t *testing.T) *service.TokenService {
	t.Helper()

	svc, err := service.NewTokenService(&config.Config{
		JWTSecret:          "test-secret",
		SessionTokenTTL:    15 * time.Minute,
		CapabilityTokenTTL: 5 * time.Minute,
	})
	if err != nil {
		t.Fatalf("failed to create token service: %v", err)
	}
	return svc
}

func issueToken(t *testing.T, tokens *service.TokenService, user *entity.User) string {
	t.Helper()

	token, _, err := tokens.IssueSession(user)
	if err != nil {
		t.Fatalf("failed to issue session: %v", err)
	}
	return token
}

func okHandler(c echo.Context) error {
	identity := middleware.IdentityFromContext(c)
	return c.String(http.StatusOK, identity.Email)
}

func doRequest(handler echo.HandlerFunc, mutate func(*http.Request)) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	_ = handler(e.NewContext(req, rec))
	return rec
}

func TestRequireAuth_CookieToken(t *testing.T) {
	tokens := newTokens(t)
	m := middleware.NewAuthMiddleware(tokens, &fakeAccountChecker{})
	user := &entity.User{ID: primitive.NewObjectID(), Email: "user@example.com"}
	token := issueToken(t, tokens, user)

	rec := doRequest(m.RequireAuth(okHandler), func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: token})
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "user@example.com" {
		t.Fatalf("expected identity in context, got %q", rec.Body.String())
	}
}

func TestRequireAuth_BearerFallback(t *testing.T) {
	tokens := newTokens(t)
	m := middleware.NewAuthMiddleware(tokens, &fakeAccountChecker{})
	token := issueToken(t, tokens, &entity.User{ID: primitive.NewObjectID(), Email: "user@example.com"})

	rec := doRequest(m.RequireAuth(okHandler), func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRequireAuth_MissingToken(t *testing.T) {
	m := middleware.NewAuthMiddleware(newTokens(t), &fakeAccountChecker{})

	rec := doRequest(m.RequireAuth(okHandler), nil)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	m := middleware.NewAuthMiddleware(newTokens(t), &fakeAccountChecker{})

	rec := doRequest(m.RequireAuth(okHandler), func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "garbage"})
	})

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireAuth_MalformedBearer(t *testing.T) {
	m := middleware.NewAuthMiddleware(newTokens(t), &fakeAccountChecker{})

	rec := doRequest(m.RequireAuth(okHandler), func(req *http.Request) {
		req.Header.Set("Authorization", "Token abc def")
	})

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	tokens := newTokens(t)
	m := middleware.NewAuthMiddleware(tokens, &fakeAccountChecker{})
	handler := m.RequireAuth(m.RequireAdmin(okHandler))

	adminToken := issueToken(t, tokens, &entity.User{ID: primitive.NewObjectID(), Email: "admin@example.com", IsAdmin: true})
	rec := doRequest(handler, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: adminToken})
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", rec.Code)
	}

	userToken := issueToken(t, tokens, &entity.User{ID: primitive.NewObjectID(), Email: "user@example.com"})
	rec = doRequest(handler, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: userToken})
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", rec.Code)
	}
}

func TestRequireActiveAccount(t *testing.T) {
	tokens := newTokens(t)
	user := &entity.User{ID: primitive.NewObjectID(), Email: "user@example.com"}
	token := issueToken(t, tokens, user)

	checker := &fakeAccountChecker{disabled: map[string]bool{}}
	m := middleware.NewAuthMiddleware(tokens, checker)
	handler := m.RequireAuth(m.RequireActiveAccount(okHandler))

	withCookie := func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: token})
	}

	rec := doRequest(handler, withCookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for active account, got %d", rec.Code)
	}

	// The token stays valid; only the live store check rejects it.
	checker.disabled[user.ID.Hex()] = true
	rec = doRequest(handler, withCookie)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for disabled account, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "account is disabled") {
		t.Fatalf("expected disabled message, got %s", rec.Body.String())
	}
}

func TestRequireActiveAccount_StoreError(t *testing.T) {
	tokens := newTokens(t)
	token := issueToken(t, tokens, &entity.User{ID: primitive.NewObjectID(), Email: "user@example.com"})

	m := middleware.NewAuthMiddleware(tokens, &fakeAccountChecker{err: errors.New("store unavailable")})
	handler := m.RequireAuth(m.RequireActiveAccount(okHandler))

	rec := doRequest(handler, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: token})
	})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 on store failure, got %d", rec.Code)
	}
}

func TestAuthenticate_CapabilityTokenRejected(t *testing.T) {
	tokens := newTokens(t)
	m := middleware.NewAuthMiddleware(tokens, &fakeAccountChecker{})

	sessionToken := issueToken(t, tokens, &entity.User{ID: primitive.NewObjectID(), Email: "user@example.com"})
	session, err := tokens.VerifySession(sessionToken)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	capability, _, err := tokens.IssueCapability(session, service.PurposeVideo, "standup")
	if err != nil {
		t.Fatalf("issue capability failed: %v", err)
	}

	rec := doRequest(m.RequireAuth(okHandler), func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: capability})
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected capability token to be rejected, got %d", rec.Code)
	}
}
