package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty"`
	Email               string             `bson:"email"`
	Name                string             `bson:"name"`
	PasswordHash        string             `bson:"password_hash"`
	IsAdmin             bool               `bson:"is_admin"`
	Disabled            bool               `bson:"disabled"`
	ResetTokenHash      string             `bson:"reset_token_hash,omitempty"`
	ResetTokenExpiresAt *time.Time         `bson:"reset_token_expires_at,omitempty"`
	CreatedAt           time.Time          `bson:"created_at"`
	UpdatedAt           time.Time          `bson:"updated_at"`
}

// DisabledAccount is the authoritative record of a disabled user.
// The Disabled flag on User is a denormalized copy kept in sync by
// the account service.
type DisabledAccount struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	UserID     primitive.ObjectID `bson:"user_id"`
	Email      string             `bson:"email"`
	Reason     string             `bson:"reason"`
	DisabledBy primitive.ObjectID `bson:"disabled_by"`
	DisabledAt time.Time          `bson:"disabled_at"`
}
