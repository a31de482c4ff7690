package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/lumeo-studio/site-auth/config"

	"github.com/sirupsen/logrus"
)

type ResetService struct {
	users UserRepository
	email EmailSender
	cfg   *config.Config
}

func NewResetService(users UserRepository, email EmailSender, cfg *config.Config) *ResetService {
	return &ResetService{users: users, email: email, cfg: cfg}
}

// RequestReset issues a one-time reset token for the address if it is
// registered. The caller gets the same nil result either way, so the
// endpoint cannot be used to enumerate accounts. A new request
// overwrites any prior pending token.
func (s *ResetService) RequestReset(ctx context.Context, email string) error {
	email = NormalizeEmail(email)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		logrus.WithField("email", email).Debug("Password reset requested for unknown email")
		return nil
	}

	rawToken, tokenHash, err := generateResetToken()
	if err != nil {
		return err
	}

	expiresAt := time.Now().Add(s.cfg.ResetTokenTTL)
	if err := s.users.SetResetToken(ctx, user.ID.Hex(), tokenHash, expiresAt); err != nil {
		return err
	}

	resetLink := fmt.Sprintf("%s/reset-password?token=%s", s.cfg.PublicBaseURL, rawToken)
	if err := s.email.SendPasswordResetEmail(user.Email, resetLink); err != nil {
		logrus.WithError(err).WithField("email", user.Email).Warn("Failed to send password reset email")
	}

	return nil
}

// ValidateToken checks a reset token without consuming it. Expired
// reset fields are cleared when encountered.
func (s *ResetService) ValidateToken(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidOrExpired
	}

	user, err := s.users.FindByResetTokenHash(ctx, hashResetToken(token))
	if err != nil {
		return err
	}
	if user == nil {
		return ErrInvalidOrExpired
	}

	if user.ResetTokenExpiresAt == nil || user.ResetTokenExpiresAt.Before(time.Now()) {
		if err := s.users.ClearResetToken(ctx, user.ID.Hex()); err != nil {
			logrus.WithError(err).WithField("user_id", user.ID.Hex()).Warn("Failed to clear expired reset token")
		}
		return ErrInvalidOrExpired
	}

	return nil
}

// CompleteReset rotates the password and consumes the token in one
// atomic store operation, so a token already consumed or expired since
// validation fails here too.
func (s *ResetService) CompleteReset(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return ErrInvalidOrExpired
	}

	if err := s.cfg.PasswordPolicy.Validate(newPassword); err != nil {
		return fmt.Errorf("%w: %s", ErrWeakPassword, err.Error())
	}

	hashedPassword, err := hashPassword(newPassword)
	if err != nil {
		return err
	}

	user, err := s.users.ConsumeResetToken(ctx, hashResetToken(token), hashedPassword, time.Now())
	if err != nil {
		return err
	}
	if user == nil {
		return ErrInvalidOrExpired
	}

	logrus.WithField("user_id", user.ID.Hex()).Info("Password reset completed")
	return nil
}

func generateResetToken() (string, string, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return "", "", err
	}

	rawToken := hex.EncodeToString(secret)
	return rawToken, hashResetToken(rawToken), nil
}

func hashResetToken(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return hex.EncodeToString(sum[:])
}
