package telegram

import "errors"

var (
	// ErrMalformed is returned when a payload cannot be parsed or lacks required fields.
	ErrMalformed = errors.New("malformed telegram payload")
	// ErrMissingHash is returned when the payload carries no hash.
	ErrMissingHash = errors.New("telegram payload has no hash")
	// ErrHashMismatch is returned when the signature does not verify.
	ErrHashMismatch = errors.New("telegram hash verification failed")
	// ErrAuthExpired is returned when auth_date is older than the freshness window.
	ErrAuthExpired = errors.New("telegram auth_date is too old")
	// ErrBotAccount is returned when the signed user is a bot.
	ErrBotAccount = errors.New("telegram bot accounts cannot sign in")
)
