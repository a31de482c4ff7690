package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lumeo-studio/site-auth/app/dto"
	"github.com/lumeo-studio/site-auth/app/entity"
	"github.com/lumeo-studio/site-auth/app/repository"
	"github.com/lumeo-studio/site-auth/config"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token has expired")
	ErrPasswordMismatch   = errors.New("password is incorrect")
	ErrWeakPassword       = errors.New("password does not meet policy requirements")
	ErrInvalidOrExpired   = errors.New("invalid or expired reset token")
	ErrMissingSecret      = errors.New("jwt secret is not configured")
	ErrNotAuthorized      = errors.New("not authorized")
	ErrAlreadyDisabled    = errors.New("account is already disabled")
	ErrNotDisabled        = errors.New("account is not disabled")
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByID(ctx context.Context, id string) (*entity.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateEmail(ctx context.Context, id, email string) error
	SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	ClearResetToken(ctx context.Context, id string) error
	FindByResetTokenHash(ctx context.Context, tokenHash string) (*entity.User, error)
	ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) (*entity.User, error)
	SetDisabled(ctx context.Context, id string, disabled bool) error
}

type DisabledAccountRepository interface {
	Create(ctx context.Context, record *entity.DisabledAccount) error
	FindByUserID(ctx context.Context, userID string) (*entity.DisabledAccount, error)
	Delete(ctx context.Context, userID string) (int64, error)
	List(ctx context.Context) ([]*entity.DisabledAccount, error)
}

// NormalizeEmail lowercases and trims an address. Emails are stored
// normalized so the unique index is effectively case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

type AuthService struct {
	users    UserRepository
	disabled DisabledAccountRepository
	tokens   *TokenService
	email    EmailSender
	cfg      *config.Config
}

func NewAuthService(
	users UserRepository,
	disabled DisabledAccountRepository,
	tokens *TokenService,
	email EmailSender,
	cfg *config.Config,
) *AuthService {
	return &AuthService{
		users:    users,
		disabled: disabled,
		tokens:   tokens,
		email:    email,
		cfg:      cfg,
	}
}

func (s *AuthService) Register(ctx context.Context, email, password, name string) (*entity.User, error) {
	email = NormalizeEmail(email)

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUserExists
	}

	if err := s.cfg.PasswordPolicy.Validate(password); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrWeakPassword, err.Error())
	}

	hashedPassword, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &entity.User{
		Email:        email,
		Name:         name,
		PasswordHash: hashedPassword,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	if err := s.email.SendWelcomeEmail(user.Email, user.Name); err != nil {
		logrus.WithError(err).WithField("email", user.Email).Warn("Failed to send welcome email")
	}

	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*dto.LoginResult, error) {
	user, err := s.users.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := s.ensureActive(ctx, user.ID.Hex()); err != nil {
		return nil, err
	}

	token, expiresIn, err := s.tokens.IssueSession(user)
	if err != nil {
		return nil, err
	}

	return &dto.LoginResult{
		User:      user,
		Token:     token,
		ExpiresIn: expiresIn,
	}, nil
}

// Verify decodes a session token and checks the user still exists and
// is not disabled. The disabled check hits the store on purpose: a
// syntactically valid token for a disabled account must be rejected.
func (s *AuthService) Verify(ctx context.Context, tokenString string) (*entity.User, error) {
	claims, err := s.tokens.VerifySession(tokenString)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidToken
	}

	if err := s.ensureActive(ctx, claims.UserID); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	if err := s.ensureActive(ctx, userID); err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return ErrPasswordMismatch
	}

	if err := s.cfg.PasswordPolicy.Validate(newPassword); err != nil {
		return fmt.Errorf("%w: %s", ErrWeakPassword, err.Error())
	}

	hashedPassword, err := hashPassword(newPassword)
	if err != nil {
		return err
	}

	return s.users.UpdatePassword(ctx, userID, hashedPassword)
}

// UpdateEmail re-authenticates with the current password and returns a
// fresh session token, since the claims embed the address.
func (s *AuthService) UpdateEmail(ctx context.Context, userID, newEmail, password string) (*dto.LoginResult, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if err := s.ensureActive(ctx, userID); err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrPasswordMismatch
	}

	newEmail = NormalizeEmail(newEmail)
	if newEmail != user.Email {
		existing, err := s.users.FindByEmail(ctx, newEmail)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, ErrUserExists
		}

		if err := s.users.UpdateEmail(ctx, userID, newEmail); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return nil, ErrUserExists
			}
			return nil, err
		}
		user.Email = newEmail
	}

	token, expiresIn, err := s.tokens.IssueSession(user)
	if err != nil {
		return nil, err
	}

	return &dto.LoginResult{
		User:      user,
		Token:     token,
		ExpiresIn: expiresIn,
	}, nil
}

func (s *AuthService) ensureActive(ctx context.Context, userID string) error {
	record, err := s.disabled.FindByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if record != nil {
		return ErrAccountDisabled
	}
	return nil
}
