package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/lumeo-studio/site-auth/app/entity"
	"github.com/lumeo-studio/site-auth/config"

	"github.com/golang-jwt/jwt/v5"
)

// Capability token purposes. A capability token is minted from an
// already-verified session and is scoped to one external integration;
// it is never accepted as a session.
const (
	PurposeVideo  = "video"
	PurposeSocket = "socket"
)

type SessionClaims struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
	Purpose string `json:"purpose,omitempty"`
	Room    string `json:"room,omitempty"`
	jwt.RegisteredClaims
}

type TokenService struct {
	secret []byte
	cfg    *config.Config
}

func NewTokenService(cfg *config.Config) (*TokenService, error) {
	if cfg.JWTSecret == "" {
		return nil, ErrMissingSecret
	}
	return &TokenService{secret: []byte(cfg.JWTSecret), cfg: cfg}, nil
}

func (s *TokenService) IssueSession(user *entity.User) (string, int64, error) {
	now := time.Now()
	claims := &SessionClaims{
		UserID:  user.ID.Hex(),
		Email:   user.Email,
		IsAdmin: user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.SessionTokenTTL)),
			Subject:   user.Email,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", 0, err
	}
	return signed, int64(s.cfg.SessionTokenTTL.Seconds()), nil
}

func (s *TokenService) VerifySession(tokenString string) (*SessionClaims, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Purpose != "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// IssueCapability derives a narrow-purpose token from verified session
// claims. The capability carries the same identity but a shorter TTL.
func (s *TokenService) IssueCapability(session *SessionClaims, purpose, room string) (string, int64, error) {
	now := time.Now()
	claims := &SessionClaims{
		UserID:  session.UserID,
		Email:   session.Email,
		IsAdmin: session.IsAdmin,
		Purpose: purpose,
		Room:    room,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.CapabilityTokenTTL)),
			Subject:   session.Email,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", 0, err
	}
	return signed, int64(s.cfg.CapabilityTokenTTL.Seconds()), nil
}

func (s *TokenService) VerifyCapability(tokenString, purpose string) (*SessionClaims, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Purpose != purpose {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *TokenService) parse(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
