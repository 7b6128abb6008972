package pendingauth

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned for an unknown auth ID.
	ErrNotFound = errors.New("pending auth not found")
	// ErrExpired is returned for an auth ID older than the store's TTL.
	ErrExpired = errors.New("pending auth expired")
)

// Profile is the Telegram identity seen by the bot when the user pressed Start.
type Profile struct {
	TelegramID int64
	Username   string
	FirstName  string
	LastName   string
}

// Entry is one pending bot deep-link authentication.
type Entry struct {
	AuthID    string
	UserID    int64
	CreatedAt time.Time
	Confirmed bool
	Profile   *Profile
}

// Store is a TTL key-value store of pending authentications. Expired entries
// are never returned; Sweep removes them eagerly.
//
// Implementations are process-local unless stated otherwise, so several
// backend instances behind a balancer will not see each other's entries.
type Store interface {
	// Put stores or replaces an entry.
	Put(ctx context.Context, entry Entry) error
	// Get returns the entry, or ErrNotFound / ErrExpired. Expired entries are evicted.
	Get(ctx context.Context, authID string) (Entry, error)
	// Take atomically removes and returns a live entry. Only one caller can
	// take a given ID; the others get ErrNotFound.
	Take(ctx context.Context, authID string) (Entry, error)
	// LatestForUser returns the newest live entry created for userID.
	LatestForUser(ctx context.Context, userID int64) (Entry, error)
	// Sweep evicts every expired entry and reports how many were removed.
	Sweep(ctx context.Context) (int, error)
	// Len returns the number of stored entries, expired or not.
	Len() int
}
