package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/lumeo-studio/site-auth/app/policy"
	"github.com/lumeo-studio/site-auth/app/service"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const (
	// SessionCookieName carries the signed session token (HTTP-only).
	SessionCookieName = "authToken"
	// EmailCookieName is the companion presence cookie read by the
	// route gate and client code; it carries no authority.
	EmailCookieName = "userEmail"

	identityContextKey = "identity"
)

type sessionVerifier interface {
	VerifySession(tokenString string) (*service.SessionClaims, error)
}

type accountChecker interface {
	IsDisabled(ctx context.Context, userID string) (bool, error)
}

type AuthMiddleware struct {
	tokens   sessionVerifier
	accounts accountChecker
}

func NewAuthMiddleware(tokens sessionVerifier, accounts accountChecker) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, accounts: accounts}
}

// ExtractToken reads the session token from the authToken cookie, with
// an Authorization: Bearer fallback for non-browser clients.
func ExtractToken(c echo.Context) string {
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

// Authenticate produces an identity for the request. An absent or
// invalid token yields an anonymous identity, not an error; most
// callers branch on the result.
func (m *AuthMiddleware) Authenticate(c echo.Context) policy.Identity {
	token := ExtractToken(c)
	if token == "" {
		return policy.Identity{}
	}

	claims, err := m.tokens.VerifySession(token)
	if err != nil {
		logrus.WithError(err).Debug("Session token rejected")
		return policy.Identity{}
	}

	return policy.Identity{
		IsAuthenticated: true,
		UserID:          claims.UserID,
		Email:           claims.Email,
		IsAdmin:         claims.IsAdmin,
	}
}

func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		identity := m.Authenticate(c)
		if !identity.IsAuthenticated {
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "authentication required",
			})
		}

		c.Set(identityContextKey, identity)
		return next(c)
	}
}

// RequireActiveAccount consults the store for a live disabled-account
// record. Security-sensitive operations use this so that a valid,
// unexpired token for a now-disabled account is still rejected.
func (m *AuthMiddleware) RequireActiveAccount(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		identity := IdentityFromContext(c)
		if !identity.IsAuthenticated {
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "authentication required",
			})
		}

		disabled, err := m.accounts.IsDisabled(c.Request().Context(), identity.UserID)
		if err != nil {
			logrus.WithError(err).WithField("user_id", identity.UserID).Error("Disabled-account check failed")
			return c.JSON(http.StatusInternalServerError, map[string]string{
				"error": "internal server error",
			})
		}
		if disabled {
			logrus.WithField("user_id", identity.UserID).Warn("Rejected session for disabled account")
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "account is disabled",
			})
		}

		return next(c)
	}
}

func (m *AuthMiddleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		identity := IdentityFromContext(c)
		if !identity.IsAuthenticated {
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "authentication required",
			})
		}
		if !identity.IsAdmin {
			return c.JSON(http.StatusForbidden, map[string]string{
				"error": "admin access required",
			})
		}

		return next(c)
	}
}

// IdentityFromContext returns the identity stored by RequireAuth, or
// an anonymous identity when the middleware did not run.
func IdentityFromContext(c echo.Context) policy.Identity {
	identity, ok := c.Get(identityContextKey).(policy.Identity)
	if !ok {
		return policy.Identity{}
	}
	return identity
}
