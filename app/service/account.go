package service

import (
	"context"
	"errors"

	"github.com/lumeo-studio/site-auth/app/entity"
	"github.com/lumeo-studio/site-auth/app/policy"
	"github.com/lumeo-studio/site-auth/app/repository"
	"github.com/lumeo-studio/site-auth/config"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AccountService struct {
	users    UserRepository
	disabled DisabledAccountRepository
	email    EmailSender
	cfg      *config.Config
}

func NewAccountService(
	users UserRepository,
	disabled DisabledAccountRepository,
	email EmailSender,
	cfg *config.Config,
) *AccountService {
	return &AccountService{
		users:    users,
		disabled: disabled,
		email:    email,
		cfg:      cfg,
	}
}

// Disable writes the authoritative disabled-account record first and
// the denormalized user flag second. A crash in between leaves the
// record in place, so the security check still fails closed.
func (s *AccountService) Disable(ctx context.Context, actor policy.Identity, targetID, reason string) (*entity.DisabledAccount, error) {
	if !policy.CanDisable(actor, targetID, s.cfg.AllowSelfDisable) {
		return nil, ErrNotAuthorized
	}

	user, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	existing, err := s.disabled.FindByUserID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyDisabled
	}

	disabledBy, err := primitive.ObjectIDFromHex(actor.UserID)
	if err != nil {
		return nil, ErrNotAuthorized
	}

	record := &entity.DisabledAccount{
		UserID:     user.ID,
		Email:      user.Email,
		Reason:     reason,
		DisabledBy: disabledBy,
	}
	if err := s.disabled.Create(ctx, record); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyDisabled
		}
		return nil, err
	}

	if err := s.users.SetDisabled(ctx, targetID, true); err != nil {
		return nil, err
	}

	if err := s.email.SendAccountDisabledEmail(user.Email, reason); err != nil {
		logrus.WithError(err).WithField("email", user.Email).Warn("Failed to send account disabled email")
	}

	logrus.WithFields(logrus.Fields{
		"user_id":     targetID,
		"disabled_by": actor.UserID,
		"reason":      reason,
	}).Info("Account disabled")

	return record, nil
}

func (s *AccountService) Enable(ctx context.Context, actor policy.Identity, targetID string) error {
	if !actor.IsAuthenticated || !actor.IsAdmin {
		return ErrNotAuthorized
	}

	deleted, err := s.disabled.Delete(ctx, targetID)
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrNotDisabled
	}

	if err := s.users.SetDisabled(ctx, targetID, false); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":    targetID,
		"enabled_by": actor.UserID,
	}).Info("Account enabled")

	return nil
}

func (s *AccountService) ListDisabled(ctx context.Context, actor policy.Identity) ([]*entity.DisabledAccount, error) {
	if !actor.IsAuthenticated || !actor.IsAdmin {
		return nil, ErrNotAuthorized
	}
	return s.disabled.List(ctx)
}

// IsDisabled reports whether an authoritative disabled record exists
// for the user. Used by the security-sensitive request gate.
func (s *AccountService) IsDisabled(ctx context.Context, userID string) (bool, error) {
	record, err := s.disabled.FindByUserID(ctx, userID)
	if err != nil {
		return false, err
	}
	return record != nil, nil
}
