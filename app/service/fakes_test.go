package service_test

import (
	"context"
	"errors"
	"time"

	"github.com/lumeo-studio/site-auth/app/entity"
	"github.com/lumeo-studio/site-auth/app/repository"
	"github.com/lumeo-studio/site-auth/config"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestConfig() *config.Config {
	return &config.Config{
		JWTSecret:          "test-secret",
		SessionTokenTTL:    15 * time.Minute,
		CapabilityTokenTTL: 5 * time.Minute,
		ResetTokenTTL:      time.Hour,
		PublicBaseURL:      "http://localhost:3000",
		PasswordPolicy: config.PasswordPolicy{
			MinLength:        1,
			RequireUppercase: false,
			RequireLowercase: false,
			RequireNumber:    false,
			RequireSpecial:   false,
		},
	}
}

type fakeUserRepo struct {
	byID map[string]*entity.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: make(map[string]*entity.User)}
}

func (f *fakeUserRepo) add(user *entity.User) *entity.User {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	f.byID[user.ID.Hex()] = user
	return user
}

func (f *fakeUserRepo) Create(_ context.Context, user *entity.User) error {
	for _, existing := range f.byID {
		if existing.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	f.byID[user.ID.Hex()] = user
	return nil
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	for _, user := range f.byID {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) FindByID(_ context.Context, id string) (*entity.User, error) {
	return f.byID[id], nil
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	user, ok := f.byID[id]
	if !ok {
		return errors.New("user not found")
	}
	user.PasswordHash = passwordHash
	return nil
}

func (f *fakeUserRepo) UpdateEmail(_ context.Context, id, email string) error {
	for otherID, other := range f.byID {
		if otherID != id && other.Email == email {
			return repository.ErrDuplicate
		}
	}
	user, ok := f.byID[id]
	if !ok {
		return errors.New("user not found")
	}
	user.Email = email
	return nil
}

func (f *fakeUserRepo) SetResetToken(_ context.Context, id, tokenHash string, expiresAt time.Time) error {
	user, ok := f.byID[id]
	if !ok {
		return errors.New("user not found")
	}
	user.ResetTokenHash = tokenHash
	user.ResetTokenExpiresAt = &expiresAt
	return nil
}

func (f *fakeUserRepo) ClearResetToken(_ context.Context, id string) error {
	user, ok := f.byID[id]
	if !ok {
		return errors.New("user not found")
	}
	user.ResetTokenHash = ""
	user.ResetTokenExpiresAt = nil
	return nil
}

func (f *fakeUserRepo) FindByResetTokenHash(_ context.Context, tokenHash string) (*entity.User, error) {
	for _, user := range f.byID {
		if user.ResetTokenHash != "" && user.ResetTokenHash == tokenHash {
			return user, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) ConsumeResetToken(_ context.Context, tokenHash, passwordHash string, now time.Time) (*entity.User, error) {
	for _, user := range f.byID {
		if user.ResetTokenHash == "" || user.ResetTokenHash != tokenHash {
			continue
		}
		if user.ResetTokenExpiresAt == nil || !user.ResetTokenExpiresAt.After(now) {
			continue
		}
		user.PasswordHash = passwordHash
		user.ResetTokenHash = ""
		user.ResetTokenExpiresAt = nil
		return user, nil
	}
	return nil, nil
}

func (f *fakeUserRepo) SetDisabled(_ context.Context, id string, disabled bool) error {
	user, ok := f.byID[id]
	if !ok {
		return errors.New("user not found")
	}
	user.Disabled = disabled
	return nil
}

type fakeDisabledRepo struct {
	byUserID map[string]*entity.DisabledAccount
}

func newFakeDisabledRepo() *fakeDisabledRepo {
	return &fakeDisabledRepo{byUserID: make(map[string]*entity.DisabledAccount)}
}

func (f *fakeDisabledRepo) Create(_ context.Context, record *entity.DisabledAccount) error {
	key := record.UserID.Hex()
	if _, ok := f.byUserID[key]; ok {
		return repository.ErrDuplicate
	}
	record.ID = primitive.NewObjectID()
	record.DisabledAt = time.Now()
	f.byUserID[key] = record
	return nil
}

func (f *fakeDisabledRepo) FindByUserID(_ context.Context, userID string) (*entity.DisabledAccount, error) {
	return f.byUserID[userID], nil
}

func (f *fakeDisabledRepo) Delete(_ context.Context, userID string) (int64, error) {
	if _, ok := f.byUserID[userID]; !ok {
		return 0, nil
	}
	delete(f.byUserID, userID)
	return 1, nil
}

func (f *fakeDisabledRepo) List(_ context.Context) ([]*entity.DisabledAccount, error) {
	records := make([]*entity.DisabledAccount, 0, len(f.byUserID))
	for _, record := range f.byUserID {
		records = append(records, record)
	}
	return records, nil
}

type fakeEmailSender struct {
	failAll    bool
	welcomeTo  []string
	resetLinks []string
	disabledTo []string
}

func (f *fakeEmailSender) SendWelcomeEmail(toEmail, _ string) error {
	if f.failAll {
		return errors.New("email provider unavailable")
	}
	f.welcomeTo = append(f.welcomeTo, toEmail)
	return nil
}

func (f *fakeEmailSender) SendPasswordResetEmail(toEmail, resetLink string) error {
	if f.failAll {
		return errors.New("email provider unavailable")
	}
	f.resetLinks = append(f.resetLinks, resetLink)
	return nil
}

func (f *fakeEmailSender) SendAccountDisabledEmail(toEmail, _ string) error {
	if f.failAll {
		return errors.New("email provider unavailable")
	}
	f.disabledTo = append(f.disabledTo, toEmail)
	return nil
}
