package controller_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lumeo-studio/site-auth/app/controller"
	appdto "github.com/lumeo-studio/site-auth/app/dto"
	"github.com/lumeo-studio/site-auth/app/entity"
	"github.com/lumeo-studio/site-auth/app/service"
	"github.com/lumeo-studio/site-auth/config"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeAuthService struct {
	registerErr error
	loginErr    error
	verifyErr   error
	user        *entity.User
	result      *appdto.LoginResult
}

func (f *fakeAuthService) Register(_ context.Context, email, _, name string) (*entity.User, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &entity.User{ID: primitive.NewObjectID(), Email: email, Name: name}, nil
}

func (f *fakeAuthService) Login(_ context.Context, _, _ string) (*appdto.LoginResult, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.result, nil
}

func (f *fakeAuthService) Verify(_ context.Context, _ string) (*entity.User, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.user, nil
}

func (f *fakeAuthService) ChangePassword(_ context.Context, _, _, _ string) error {
	return nil
}

func (f *fakeAuthService) UpdateEmail(_ context.Context, _, _, _ string) (*appdto.LoginResult, error) {
	return f.result, nil
}

type fakeResetService struct {
	requested []string
	err       error
}

func (f *fakeResetService) RequestReset(_ context.Context, email string) error {
	if f.err != nil {
		return f.err
	}
	f.requested = append(f.requested, email)
	return nil
}

func (f *fakeResetService) ValidateToken(_ context.Context, _ string) error { return f.err }
func (f *fakeResetService) CompleteReset(_ context.Context, _, _ string) error { return f.err }

type fakeCapabilityIssuer struct {
	err error
}

func (f *fakeCapabilityIssuer) IssueCapability(_ *service.SessionClaims, purpose, room string) (string, int64, error) {
	if f.err != nil {
		return "", 0, f.err
	}
	return "capability-" + purpose + "-" + room, 300, nil
}

func loginResultFor(user *entity.User) *appdto.LoginResult {
	return &appdto.LoginResult{User: user, Token: "session-token", ExpiresIn: 900}
}

func newAuthController(auth *fakeAuthService, reset *fakeResetService) *controller.AuthController {
	return controller.NewAuthController(auth, reset, &fakeCapabilityIssuer{}, &config.Config{})
}

func postJSON(handler echo.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	_ = handler(e.NewContext(req, rec))
	return rec
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func TestAuthController_Login_SetsCookies(t *testing.T) {
	user := &entity.User{ID: primitive.NewObjectID(), Email: "user@example.com", Name: "User"}
	ctrl := newAuthController(&fakeAuthService{result: loginResultFor(user)}, &fakeResetService{})

	rec := postJSON(ctrl.Login, "/api/auth/login", `{"email":"user@example.com","password":"password"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	session := cookieByName(rec, "authToken")
	if session == nil {
		t.Fatalf("expected authToken cookie")
	}
	if session.Value != "session-token" {
		t.Fatalf("expected session token in cookie, got %q", session.Value)
	}
	if !session.HttpOnly {
		t.Fatalf("authToken must be HTTP-only")
	}
	if session.MaxAge != 900 {
		t.Fatalf("expected cookie MaxAge 900, got %d", session.MaxAge)
	}

	email := cookieByName(rec, "userEmail")
	if email == nil || email.Value != "user@example.com" {
		t.Fatalf("expected userEmail companion cookie, got %v", email)
	}
	if email.HttpOnly {
		t.Fatalf("userEmail must be readable by the client")
	}
}

func TestAuthController_Login_InvalidCredentials(t *testing.T) {
	ctrl := newAuthController(&fakeAuthService{loginErr: service.ErrInvalidCredentials}, &fakeResetService{})

	rec := postJSON(ctrl.Login, "/api/auth/login", `{"email":"user@example.com","password":"wrong"}`)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if cookieByName(rec, "authToken") != nil {
		t.Fatalf("no cookie must be set on failed login")
	}
}

func TestAuthController_Login_DisabledAccount(t *testing.T) {
	ctrl := newAuthController(&fakeAuthService{loginErr: service.ErrAccountDisabled}, &fakeResetService{})

	rec := postJSON(ctrl.Login, "/api/auth/login", `{"email":"user@example.com","password":"password"}`)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestAuthController_Login_MissingFields(t *testing.T) {
	ctrl := newAuthController(&fakeAuthService{}, &fakeResetService{})

	rec := postJSON(ctrl.Login, "/api/auth/login", `{"email":"user@example.com"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAuthController_Logout_ClearsCookies(t *testing.T) {
	ctrl := newAuthController(&fakeAuthService{}, &fakeResetService{})

	rec := postJSON(ctrl.Logout, "/api/auth/logout", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	for _, name := range []string{"authToken", "userEmail"} {
		cookie := cookieByName(rec, name)
		if cookie == nil {
			t.Fatalf("expected %s cookie to be rewritten", name)
		}
		if cookie.MaxAge >= 0 || cookie.Value != "" {
			t.Fatalf("expected %s to be cleared, got MaxAge=%d Value=%q", name, cookie.MaxAge, cookie.Value)
		}
	}
}

func TestAuthController_Register_DuplicateEmail(t *testing.T) {
	ctrl := newAuthController(&fakeAuthService{registerErr: service.ErrUserExists}, &fakeResetService{})

	rec := postJSON(ctrl.Register, "/api/auth/register", `{"email":"user@example.com","password":"password"}`)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestAuthController_Register_WeakPassword(t *testing.T) {
	ctrl := newAuthController(&fakeAuthService{registerErr: service.ErrWeakPassword}, &fakeResetService{})

	rec := postJSON(ctrl.Register, "/api/auth/register", `{"email":"user@example.com","password":"x"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAuthController_Verify_MapsAuthFailuresTo401(t *testing.T) {
	for _, err := range []error{service.ErrInvalidToken, service.ErrTokenExpired, service.ErrAccountDisabled} {
		ctrl := newAuthController(&fakeAuthService{verifyErr: err}, &fakeResetService{})

		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/api/auth/verify", nil)
		req.AddCookie(&http.Cookie{Name: "authToken", Value: "some-token"})
		rec := httptest.NewRecorder()
		_ = ctrl.Verify(e.NewContext(req, rec))

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for %v, got %d", err, rec.Code)
		}
	}
}

func TestAuthController_Verify_NoToken(t *testing.T) {
	ctrl := newAuthController(&fakeAuthService{}, &fakeResetService{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/auth/verify", nil)
	rec := httptest.NewRecorder()
	_ = ctrl.Verify(e.NewContext(req, rec))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

// The response must not reveal whether the address is registered.
func TestAuthController_ForgotPassword_UniformResponse(t *testing.T) {
	reset := &fakeResetService{}
	ctrl := newAuthController(&fakeAuthService{}, reset)

	known := postJSON(ctrl.ForgotPassword, "/api/auth/forgot-password", `{"email":"known@example.com"}`)
	unknown := postJSON(ctrl.ForgotPassword, "/api/auth/forgot-password", `{"email":"unknown@example.com"}`)

	if known.Code != http.StatusOK || unknown.Code != http.StatusOK {
		t.Fatalf("expected 200 for both, got %d and %d", known.Code, unknown.Code)
	}
	if known.Body.String() != unknown.Body.String() {
		t.Fatalf("expected identical bodies, got %q vs %q", known.Body.String(), unknown.Body.String())
	}
	if len(reset.requested) != 2 {
		t.Fatalf("expected both requests to reach the service, got %d", len(reset.requested))
	}
}

func TestAuthController_ResetPassword_InvalidToken(t *testing.T) {
	ctrl := newAuthController(&fakeAuthService{}, &fakeResetService{err: service.ErrInvalidOrExpired})

	rec := postJSON(ctrl.ResetPassword, "/api/auth/reset-password", `{"token":"deadbeef","new_password":"newpass123"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAuthController_VideoToken(t *testing.T) {
	ctrl := newAuthController(&fakeAuthService{}, &fakeResetService{})

	rec := postJSON(ctrl.VideoToken, "/api/auth/video-token", `{"room":"standup"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "capability-video-standup") {
		t.Fatalf("expected minted capability token in response, got %s", rec.Body.String())
	}

	rec = postJSON(ctrl.VideoToken, "/api/auth/video-token", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing room, got %d", rec.Code)
	}
}
