package pendingauth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"supermock/internal/metrics"
)

// StartPrefix marks a bot /start payload as a login request.
const StartPrefix = "auth_"

var (
	// ErrUnknownAuth is returned by Confirm for unknown or expired IDs.
	ErrUnknownAuth = errors.New("auth request not found or expired")
	// ErrUserMismatch is returned by Confirm when someone other than the
	// requesting user pressed Start.
	ErrUserMismatch = errors.New("auth request belongs to another user")
)

// Prober checks whether the bot can write to a user.
type Prober interface {
	CanMessage(ctx context.Context, userID int64) (bool, error)
}

// Result is the outcome of CheckPendingAuth for a known, live auth ID.
type Result struct {
	AuthID  string
	UserID  int64
	Valid   bool
	Profile *Profile
}

// Registry correlates a browser's login request with the user's later
// interaction with the bot.
type Registry struct {
	store  Store
	prober Prober
	logger logrus.FieldLogger
	now    func() time.Time
}

// NewRegistry creates a Registry. prober may be nil, in which case only a
// confirmed /start makes an entry valid.
func NewRegistry(store Store, prober Prober, logger logrus.FieldLogger) *Registry {
	return &Registry{
		store:  store,
		prober: prober,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock replaces the time source used for new IDs. Used in tests.
func (r *Registry) SetClock(now func() time.Time) {
	r.now = now
}

// CreateAuthID registers a pending login for userID and returns its ID.
func (r *Registry) CreateAuthID(ctx context.Context, userID int64) (string, error) {
	if userID <= 0 {
		return "", fmt.Errorf("user id must be positive, got %d", userID)
	}
	now := r.now()
	authID := fmt.Sprintf("%d_%d", userID, now.UnixMilli())

	if err := r.store.Put(ctx, Entry{AuthID: authID, UserID: userID, CreatedAt: now}); err != nil {
		return "", fmt.Errorf("store pending auth: %w", err)
	}
	r.updateGauge()

	r.logger.WithFields(logrus.Fields{"auth_id": authID, "user_id": userID}).Debug("Pending auth created")
	return authID, nil
}

// CheckPendingAuth returns nil for unknown or expired IDs. Otherwise the
// entry is valid when the user confirmed via /start or the bot can message
// the user. A valid result consumes the entry, and among concurrent callers
// only the one that consumes it sees it; the rest get nil. An invalid result
// leaves the entry in place so the user can still press Start.
func (r *Registry) CheckPendingAuth(ctx context.Context, authID string) (*Result, error) {
	entry, err := r.store.Get(ctx, authID)
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrExpired) {
		r.updateGauge()
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load pending auth: %w", err)
	}

	valid := entry.Confirmed
	if !valid && r.prober != nil {
		ok, err := r.prober.CanMessage(ctx, entry.UserID)
		if err != nil {
			r.logger.WithError(err).WithField("auth_id", authID).Warn("Bot capability probe failed")
		}
		valid = ok
	}

	if !valid {
		return &Result{AuthID: entry.AuthID, UserID: entry.UserID}, nil
	}

	// Take again: a /start may have added the profile since the first read,
	// and a concurrent check may already have consumed the entry.
	taken, err := r.store.Take(ctx, authID)
	r.updateGauge()
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrExpired) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("consume pending auth: %w", err)
	}

	return &Result{
		AuthID:  taken.AuthID,
		UserID:  taken.UserID,
		Valid:   true,
		Profile: taken.Profile,
	}, nil
}

// Confirm marks authID as confirmed by the Telegram user in from.
func (r *Registry) Confirm(ctx context.Context, authID string, from Profile) error {
	entry, err := r.store.Get(ctx, authID)
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrExpired) {
		return ErrUnknownAuth
	}
	if err != nil {
		return fmt.Errorf("load pending auth: %w", err)
	}
	if entry.UserID != from.TelegramID {
		return ErrUserMismatch
	}

	entry.Confirmed = true
	entry.Profile = &from
	if err := r.store.Put(ctx, entry); err != nil {
		return fmt.Errorf("store pending auth: %w", err)
	}
	return nil
}

// LatestForUser returns the newest live auth ID for userID.
func (r *Registry) LatestForUser(ctx context.Context, userID int64) (string, bool) {
	entry, err := r.store.LatestForUser(ctx, userID)
	if err != nil {
		return "", false
	}
	return entry.AuthID, true
}

// Sweep evicts expired entries.
func (r *Registry) Sweep(ctx context.Context) (int, error) {
	removed, err := r.store.Sweep(ctx)
	if err != nil {
		return 0, err
	}
	r.updateGauge()
	if removed > 0 {
		r.logger.WithField("removed", removed).Debug("Swept expired pending auths")
	}
	return removed, nil
}

// Pending returns the number of stored entries.
func (r *Registry) Pending() int {
	return r.store.Len()
}

func (r *Registry) updateGauge() {
	metrics.PendingAuths.Set(float64(r.store.Len()))
}

// AuthIDFromStart extracts the auth ID from a /start payload.
func AuthIDFromStart(payload string) (string, bool) {
	if !strings.HasPrefix(payload, StartPrefix) {
		return "", false
	}
	authID := strings.TrimPrefix(payload, StartPrefix)
	return authID, authID != ""
}

// DeepLink builds the t.me link that opens the bot with the login payload.
func DeepLink(botUsername, authID string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", strings.TrimPrefix(botUsername, "@"), url.QueryEscape(StartPrefix+authID))
}
