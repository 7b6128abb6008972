package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgrijalva/jwt-go"

	"supermock/internal/storage"
)

const (
	AuthTypeTelegram = "telegram"
	AuthTypeEmail    = "email"
)

// Claims is the JWT payload. Tokens issued by this service always set
// UserDBID; older tokens carry only UserID and AuthType.
type Claims struct {
	UserID    int64  `json:"userId"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	AuthType  string `json:"authType,omitempty"`
	UserDBID  int64  `json:"userDbId,omitempty"`
	jwt.StandardClaims
}

// UserLookup is the read access token resolution needs.
type UserLookup interface {
	GetUserByID(ctx context.Context, id int64) (*storage.User, error)
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*storage.User, error)
}

// Subject is one recognised claim shape. Each shape knows how to find the
// user it refers to.
type Subject interface {
	Resolve(ctx context.Context, users UserLookup) (*storage.User, error)
}

// ExtendedClaims refers to a user by database id.
type ExtendedClaims struct {
	UserDBID int64
}

// LegacyEmailClaims is an email-login token whose userId is the database id.
type LegacyEmailClaims struct {
	UserID int64
}

// LegacyTelegramClaims is a Telegram-login token whose userId is the
// Telegram id.
type LegacyTelegramClaims struct {
	TelegramID int64
}

func (c ExtendedClaims) Resolve(ctx context.Context, users UserLookup) (*storage.User, error) {
	return lookup(users.GetUserByID(ctx, c.UserDBID))
}

func (c LegacyEmailClaims) Resolve(ctx context.Context, users UserLookup) (*storage.User, error) {
	return lookup(users.GetUserByID(ctx, c.UserID))
}

func (c LegacyTelegramClaims) Resolve(ctx context.Context, users UserLookup) (*storage.User, error) {
	return lookup(users.GetUserByTelegramID(ctx, c.TelegramID))
}

func lookup(u *storage.User, err error) (*storage.User, error) {
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve token subject: %w", err)
	}
	return u, nil
}

// Classify picks the claim shape. userDbId wins whenever it is present;
// otherwise authType decides how userId is read.
func Classify(c *Claims) (Subject, error) {
	switch {
	case c.UserDBID > 0:
		return ExtendedClaims{UserDBID: c.UserDBID}, nil
	case c.UserID <= 0:
		return nil, fmt.Errorf("%w: no subject", ErrInvalidToken)
	case c.AuthType == AuthTypeEmail:
		return LegacyEmailClaims{UserID: c.UserID}, nil
	case c.AuthType == AuthTypeTelegram:
		return LegacyTelegramClaims{TelegramID: c.UserID}, nil
	default:
		return nil, fmt.Errorf("%w: unknown auth type %q", ErrInvalidToken, c.AuthType)
	}
}
