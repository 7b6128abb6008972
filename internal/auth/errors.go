package auth

import "errors"

var (
	// ErrInvalidInput is returned for malformed requests.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidToken covers bad signatures, unexpected algorithms, expired
	// tokens and payloads no claim variant recognises.
	ErrInvalidToken = errors.New("invalid token")
	// ErrUserNotFound is returned for a valid token whose user row is gone.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	// ErrTelegramAuth wraps a rejected Web App or Login Widget payload.
	ErrTelegramAuth = errors.New("telegram authentication failed")
	// ErrBotAuthNotFound is returned when no live pending bot login exists.
	ErrBotAuthNotFound = errors.New("bot authentication not found or expired")
	// ErrBotAuthPending is returned while the user has not started the bot yet.
	ErrBotAuthPending = errors.New("bot authentication not confirmed yet")
	// ErrBotAuthMismatch is returned when the auth ID belongs to another user.
	ErrBotAuthMismatch = errors.New("bot authentication belongs to another user")
)
