package controller

import (
	"context"
	"errors"
	"net/http"

	appdto "github.com/lumeo-studio/site-auth/app/dto"
	dto "github.com/lumeo-studio/site-auth/app/dto/http"
	"github.com/lumeo-studio/site-auth/app/entity"
	"github.com/lumeo-studio/site-auth/app/middleware"
	"github.com/lumeo-studio/site-auth/app/service"
	"github.com/lumeo-studio/site-auth/config"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type authService interface {
	Register(ctx context.Context, email, password, name string) (*entity.User, error)
	Login(ctx context.Context, email, password string) (*appdto.LoginResult, error)
	Verify(ctx context.Context, tokenString string) (*entity.User, error)
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	UpdateEmail(ctx context.Context, userID, newEmail, password string) (*appdto.LoginResult, error)
}

type resetService interface {
	RequestReset(ctx context.Context, email string) error
	ValidateToken(ctx context.Context, token string) error
	CompleteReset(ctx context.Context, token, newPassword string) error
}

type capabilityIssuer interface {
	IssueCapability(session *service.SessionClaims, purpose, room string) (string, int64, error)
}

type AuthController struct {
	auth   authService
	reset  resetService
	tokens capabilityIssuer
	cfg    *config.Config
}

func NewAuthController(auth authService, reset resetService, tokens capabilityIssuer, cfg *config.Config) *AuthController {
	return &AuthController{auth: auth, reset: reset, tokens: tokens, cfg: cfg}
}

func (c *AuthController) Register(ctx echo.Context) error {
	var req dto.RegisterRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if req.Email == "" || req.Password == "" {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "email and password are required"})
	}

	user, err := c.auth.Register(ctx.Request().Context(), req.Email, req.Password, req.Name)
	if err != nil {
		if errors.Is(err, service.ErrUserExists) {
			return ctx.JSON(http.StatusConflict, dto.ErrorResponse{Error: "user already exists"})
		}
		if errors.Is(err, service.ErrWeakPassword) {
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		}
		logrus.WithError(err).WithField("email", req.Email).Error("Register failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	return ctx.JSON(http.StatusCreated, dto.RegisterResponse{
		UserID:  user.ID.Hex(),
		Email:   user.Email,
		Name:    user.Name,
		Message: "registration successful",
	})
}

func (c *AuthController) Login(ctx echo.Context) error {
	var req dto.LoginRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if req.Email == "" || req.Password == "" {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "email and password are required"})
	}

	result, err := c.auth.Login(ctx.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "invalid credentials"})
		}
		if errors.Is(err, service.ErrAccountDisabled) {
			return ctx.JSON(http.StatusForbidden, dto.ErrorResponse{Error: "account is disabled"})
		}
		logrus.WithError(err).WithField("email", req.Email).Error("Login failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	c.setSessionCookies(ctx, result.Token, result.User.Email, result.ExpiresIn)

	return ctx.JSON(http.StatusOK, dto.LoginResponse{
		UserID:    result.User.ID.Hex(),
		Email:     result.User.Email,
		Name:      result.User.Name,
		IsAdmin:   result.User.IsAdmin,
		ExpiresIn: result.ExpiresIn,
	})
}

func (c *AuthController) Logout(ctx echo.Context) error {
	c.clearSessionCookies(ctx)
	return ctx.JSON(http.StatusOK, dto.MessageResponse{Message: "logged out successfully"})
}

func (c *AuthController) Verify(ctx echo.Context) error {
	token := middleware.ExtractToken(ctx)
	if token == "" {
		return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "not authenticated"})
	}

	user, err := c.auth.Verify(ctx.Request().Context(), token)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) ||
			errors.Is(err, service.ErrTokenExpired) ||
			errors.Is(err, service.ErrAccountDisabled) {
			return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "not authenticated"})
		}
		logrus.WithError(err).Error("Session verification failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	return ctx.JSON(http.StatusOK, dto.VerifyResponse{
		UserID:  user.ID.Hex(),
		Email:   user.Email,
		Name:    user.Name,
		IsAdmin: user.IsAdmin,
	})
}

func (c *AuthController) ForgotPassword(ctx echo.Context) error {
	var req dto.ForgotPasswordRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if req.Email == "" {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "email is required"})
	}

	if err := c.reset.RequestReset(ctx.Request().Context(), req.Email); err != nil {
		logrus.WithError(err).Error("Password reset request failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	// Same body whether or not the email is registered.
	return ctx.JSON(http.StatusOK, dto.MessageResponse{
		Message: "if the email exists, a reset link has been sent",
	})
}

func (c *AuthController) ValidateResetToken(ctx echo.Context) error {
	var req dto.ValidateResetTokenRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if req.Token == "" {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "token is required"})
	}

	if err := c.reset.ValidateToken(ctx.Request().Context(), req.Token); err != nil {
		if errors.Is(err, service.ErrInvalidOrExpired) {
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid or expired token"})
		}
		logrus.WithError(err).Error("Reset token validation failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	return ctx.JSON(http.StatusOK, dto.MessageResponse{Message: "token is valid"})
}

func (c *AuthController) ResetPassword(ctx echo.Context) error {
	var req dto.ResetPasswordRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if req.Token == "" || req.NewPassword == "" {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "token and new_password are required"})
	}

	if err := c.reset.CompleteReset(ctx.Request().Context(), req.Token, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrInvalidOrExpired) {
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid or expired token"})
		}
		if errors.Is(err, service.ErrWeakPassword) {
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		}
		logrus.WithError(err).Error("Password reset failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	return ctx.JSON(http.StatusOK, dto.MessageResponse{Message: "password reset successfully"})
}

func (c *AuthController) ChangePassword(ctx echo.Context) error {
	var req dto.ChangePasswordRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if req.OldPassword == "" || req.NewPassword == "" {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "old_password and new_password are required"})
	}

	identity := middleware.IdentityFromContext(ctx)
	err := c.auth.ChangePassword(ctx.Request().Context(), identity.UserID, req.OldPassword, req.NewPassword)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "user not found"})
		}
		if errors.Is(err, service.ErrPasswordMismatch) {
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "old password is incorrect"})
		}
		if errors.Is(err, service.ErrWeakPassword) {
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		}
		if errors.Is(err, service.ErrAccountDisabled) {
			return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "account is disabled"})
		}
		logrus.WithError(err).WithField("user_id", identity.UserID).Error("Change password failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	return ctx.JSON(http.StatusOK, dto.MessageResponse{Message: "password changed successfully"})
}

func (c *AuthController) UpdateEmail(ctx echo.Context) error {
	var req dto.UpdateEmailRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if req.NewEmail == "" || req.Password == "" {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "new_email and password are required"})
	}

	identity := middleware.IdentityFromContext(ctx)
	result, err := c.auth.UpdateEmail(ctx.Request().Context(), identity.UserID, req.NewEmail, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "user not found"})
		}
		if errors.Is(err, service.ErrUserExists) {
			return ctx.JSON(http.StatusConflict, dto.ErrorResponse{Error: "email is already in use"})
		}
		if errors.Is(err, service.ErrPasswordMismatch) {
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "password is incorrect"})
		}
		if errors.Is(err, service.ErrAccountDisabled) {
			return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "account is disabled"})
		}
		logrus.WithError(err).WithField("user_id", identity.UserID).Error("Update email failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	// The claims embed the email, so the session cookies are reissued.
	c.setSessionCookies(ctx, result.Token, result.User.Email, result.ExpiresIn)

	return ctx.JSON(http.StatusOK, dto.LoginResponse{
		UserID:    result.User.ID.Hex(),
		Email:     result.User.Email,
		Name:      result.User.Name,
		IsAdmin:   result.User.IsAdmin,
		ExpiresIn: result.ExpiresIn,
	})
}

func (c *AuthController) VideoToken(ctx echo.Context) error {
	var req dto.VideoTokenRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if req.Room == "" {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "room is required"})
	}

	identity := middleware.IdentityFromContext(ctx)
	session := &service.SessionClaims{
		UserID:  identity.UserID,
		Email:   identity.Email,
		IsAdmin: identity.IsAdmin,
	}

	token, expiresIn, err := c.tokens.IssueCapability(session, service.PurposeVideo, req.Room)
	if err != nil {
		logrus.WithError(err).WithField("user_id", identity.UserID).Error("Video token minting failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	return ctx.JSON(http.StatusOK, dto.VideoTokenResponse{
		Token:     token,
		Room:      req.Room,
		ExpiresIn: expiresIn,
	})
}

func (c *AuthController) setSessionCookies(ctx echo.Context, token, email string, expiresIn int64) {
	ctx.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		Domain:   c.cfg.CookieDomain,
		MaxAge:   int(expiresIn),
		HttpOnly: true,
		Secure:   c.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	ctx.SetCookie(&http.Cookie{
		Name:     middleware.EmailCookieName,
		Value:    email,
		Path:     "/",
		Domain:   c.cfg.CookieDomain,
		MaxAge:   int(expiresIn),
		Secure:   c.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c *AuthController) clearSessionCookies(ctx echo.Context) {
	for _, name := range []string{middleware.SessionCookieName, middleware.EmailCookieName} {
		ctx.SetCookie(&http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   c.cfg.CookieDomain,
			MaxAge:   -1,
			HttpOnly: name == middleware.SessionCookieName,
			Secure:   c.cfg.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
