package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"supermock/internal/metrics"
	"supermock/internal/pendingauth"
	"supermock/internal/storage"
	"supermock/internal/telegram"
)

// Authentication channels, used as log fields and metric labels.
const (
	ChannelEmail  = "email"
	ChannelWebApp = "webapp"
	ChannelWidget = "widget"
	ChannelBot    = "bot"
	ChannelTest   = "test"
	ChannelToken  = "token"
)

// DefaultTestTelegramID is used by TestToken when no id is given.
const DefaultTestTelegramID int64 = 123456789

// Storage is the persistence the auth service needs.
type Storage interface {
	UserLookup
	GetUserByEmail(ctx context.Context, email string) (*storage.User, error)
	CreateUser(ctx context.Context, u *storage.User) error
	UpdateUserStatus(ctx context.Context, id int64, status storage.Status) (*storage.User, error)
	FindOrCreateTelegramUser(ctx context.Context, p storage.TelegramProfile) (*storage.User, bool, error)
}

// Result is a successful login: the stored user and a fresh token.
type Result struct {
	Token   string
	User    *storage.User
	Created bool
}

// RegisterRequest holds the fields of an email sign-up.
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
}

// Service authenticates users over every supported channel and issues tokens.
type Service struct {
	store       Storage
	tokens      *TokenManager
	verifier    *telegram.Verifier
	registry    *pendingauth.Registry
	botUsername string
	logger      logrus.FieldLogger
}

// NewService creates a new auth Service.
func NewService(
	store Storage,
	tokens *TokenManager,
	verifier *telegram.Verifier,
	registry *pendingauth.Registry,
	botUsername string,
	logger logrus.FieldLogger,
) *Service {
	return &Service{
		store:       store,
		tokens:      tokens,
		verifier:    verifier,
		registry:    registry,
		botUsername: strings.TrimPrefix(botUsername, "@"),
		logger:      logger,
	}
}

func (s *Service) record(channel string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	metrics.AuthAttempts.WithLabelValues(channel, outcome).Inc()
}

func (s *Service) issue(channel string, u *storage.User, created bool) (*Result, error) {
	token, err := s.tokens.Issue(u)
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"channel": channel,
		"user_id": u.ID,
		"created": created,
	}).Info("User authenticated")
	return &Result{Token: token, User: u, Created: created}, nil
}

// Register creates an email/password account.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (res *Result, err error) {
	defer func() { s.record(ChannelEmail, err) }()

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: a valid email is required", ErrInvalidInput)
	}
	if strings.TrimSpace(req.FirstName) == "" {
		return nil, fmt.Errorf("%w: first name is required", ErrInvalidInput)
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	u := &storage.User{
		Email:        sql.NullString{String: email, Valid: true},
		PasswordHash: hash,
		Username:     req.Username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Status:       storage.StatusInterviewer,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.issue(ChannelEmail, u, true)
}

// Login checks an email/password pair. Unknown emails and wrong passwords
// produce the same error.
func (s *Service) Login(ctx context.Context, email, password string) (res *Result, err error) {
	defer func() { s.record(ChannelEmail, err) }()

	if strings.TrimSpace(email) == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidInput) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err := CheckPassword(u.PasswordHash, password); err != nil {
		return nil, err
	}

	return s.issue(ChannelEmail, u, false)
}

func (s *Service) telegramLogin(ctx context.Context, channel string, tgUser *telegram.User) (*Result, error) {
	u, created, err := s.store.FindOrCreateTelegramUser(ctx, storage.TelegramProfile{
		TelegramID: tgUser.ID,
		Username:   tgUser.Username,
		FirstName:  tgUser.FirstName,
		LastName:   tgUser.LastName,
	})
	if err != nil {
		return nil, fmt.Errorf("find or create user: %w", err)
	}
	return s.issue(channel, u, created)
}

// TelegramWebApp signs in with Web App initData.
func (s *Service) TelegramWebApp(ctx context.Context, initData string) (res *Result, err error) {
	defer func() { s.record(ChannelWebApp, err) }()

	if strings.TrimSpace(initData) == "" {
		return nil, fmt.Errorf("%w: initData is required", ErrInvalidInput)
	}
	tgUser, err := s.verifier.VerifyInitData(initData)
	if err != nil {
		s.logger.WithField("channel", ChannelWebApp).WithError(err).Info("Telegram payload rejected")
		return nil, fmt.Errorf("%w: %w", ErrTelegramAuth, err)
	}
	return s.telegramLogin(ctx, ChannelWebApp, tgUser)
}

// TelegramWidget signs in with a Login Widget payload delivered as JSON.
func (s *Service) TelegramWidget(ctx context.Context, p telegram.WidgetPayload) (res *Result, err error) {
	defer func() { s.record(ChannelWidget, err) }()

	tgUser, err := s.verifier.VerifyWidgetPayload(p)
	if err != nil {
		s.logger.WithField("channel", ChannelWidget).WithError(err).Info("Telegram payload rejected")
		return nil, fmt.Errorf("%w: %w", ErrTelegramAuth, err)
	}
	return s.telegramLogin(ctx, ChannelWidget, tgUser)
}

// TelegramWidgetValues signs in with a Login Widget payload delivered as
// redirect query parameters.
func (s *Service) TelegramWidgetValues(ctx context.Context, values url.Values) (res *Result, err error) {
	defer func() { s.record(ChannelWidget, err) }()

	tgUser, err := s.verifier.VerifyWidget(values)
	if err != nil {
		s.logger.WithField("channel", ChannelWidget).WithError(err).Info("Telegram payload rejected")
		return nil, fmt.Errorf("%w: %w", ErrTelegramAuth, err)
	}
	return s.telegramLogin(ctx, ChannelWidget, tgUser)
}

// TestToken signs in a fixed test identity without any Telegram proof.
// Zero telegramID uses DefaultTestTelegramID; an empty status keeps the
// stored one. Callers must not expose this in production.
func (s *Service) TestToken(ctx context.Context, telegramID int64, status storage.Status) (res *Result, err error) {
	defer func() { s.record(ChannelTest, err) }()

	if telegramID == 0 {
		telegramID = DefaultTestTelegramID
	}
	if telegramID < 0 {
		return nil, fmt.Errorf("%w: telegramId must be positive", ErrInvalidInput)
	}
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}

	u, created, err := s.store.FindOrCreateTelegramUser(ctx, storage.TelegramProfile{
		TelegramID: telegramID,
		Username:   "test_user_" + strconv.FormatInt(telegramID, 10),
		FirstName:  "Test",
		LastName:   "User",
	})
	if err != nil {
		return nil, fmt.Errorf("find or create test user: %w", err)
	}
	if status != "" && status != u.Status {
		if u, err = s.store.UpdateUserStatus(ctx, u.ID, status); err != nil {
			return nil, fmt.Errorf("set test user status: %w", err)
		}
	}
	return s.issue(ChannelTest, u, created)
}

// VerifyToken parses tokenString and loads the user it refers to.
func (s *Service) VerifyToken(ctx context.Context, tokenString string) (*storage.User, error) {
	claims, err := s.tokens.Parse(tokenString)
	if err != nil {
		s.record(ChannelToken, err)
		return nil, err
	}
	subject, err := Classify(claims)
	if err != nil {
		s.record(ChannelToken, err)
		return nil, err
	}
	u, err := subject.Resolve(ctx, s.store)
	s.record(ChannelToken, err)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.logger.WithFields(logrus.Fields{
				"channel": ChannelToken,
				"subject": fmt.Sprintf("%T", subject),
			}).Warn("Valid token for missing user")
		}
		return nil, err
	}
	return u, nil
}

// BotAuthURL registers a pending bot login for the Telegram user userID and
// returns the deep link that opens the bot. redirectURL, when set, is
// carried on the link for the client to use after verification.
func (s *Service) BotAuthURL(ctx context.Context, userID int64, redirectURL string) (authURL, authID string, err error) {
	if userID <= 0 {
		return "", "", fmt.Errorf("%w: userId must be positive", ErrInvalidInput)
	}
	if redirectURL != "" {
		if u, err := url.Parse(redirectURL); err != nil || !u.IsAbs() {
			return "", "", fmt.Errorf("%w: redirectUrl must be an absolute URL", ErrInvalidInput)
		}
	}

	authID, err = s.registry.CreateAuthID(ctx, userID)
	if err != nil {
		return "", "", err
	}
	authURL = pendingauth.DeepLink(s.botUsername, authID)
	if redirectURL != "" {
		authURL += "&redirect_url=" + url.QueryEscape(redirectURL)
	}
	return authURL, authID, nil
}

// BotVerifyUser completes a bot deep-link login. An empty authID picks the
// newest pending login of userID.
func (s *Service) BotVerifyUser(ctx context.Context, userID int64, authID string) (res *Result, err error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: userId must be positive", ErrInvalidInput)
	}
	defer func() { s.record(ChannelBot, err) }()

	if authID == "" {
		latest, ok := s.registry.LatestForUser(ctx, userID)
		if !ok {
			return nil, ErrBotAuthNotFound
		}
		authID = latest
	}
	if !strings.HasPrefix(authID, strconv.FormatInt(userID, 10)+"_") {
		return nil, ErrBotAuthMismatch
	}

	check, err := s.registry.CheckPendingAuth(ctx, authID)
	if err != nil {
		return nil, err
	}
	if check == nil {
		return nil, ErrBotAuthNotFound
	}
	if check.UserID != userID {
		return nil, ErrBotAuthMismatch
	}
	if !check.Valid {
		s.logger.WithFields(logrus.Fields{"channel": ChannelBot, "auth_id": authID}).Debug("Bot auth not confirmed yet")
		return nil, ErrBotAuthPending
	}

	profile := storage.TelegramProfile{TelegramID: userID}
	if check.Profile != nil {
		profile.Username = check.Profile.Username
		profile.FirstName = check.Profile.FirstName
		profile.LastName = check.Profile.LastName
	}
	u, created, err := s.store.FindOrCreateTelegramUser(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("find or create user: %w", err)
	}
	return s.issue(ChannelBot, u, created)
}

// HandleBotStart confirms a pending login when the bot receives
// "/start auth_<id>". It returns the reply to send; plain starts get the
// default greeting.
func (s *Service) HandleBotStart(ctx context.Context, payload string, from telegram.User) string {
	authID, ok := pendingauth.AuthIDFromStart(payload)
	if !ok {
		return "Hi! Open SuperMock and press \"Log in with Telegram\" to sign in."
	}

	err := s.registry.Confirm(ctx, authID, pendingauth.Profile{
		TelegramID: from.ID,
		Username:   from.Username,
		FirstName:  from.FirstName,
		LastName:   from.LastName,
	})
	logger := s.logger.WithFields(logrus.Fields{"channel": ChannelBot, "auth_id": authID, "user_id": from.ID})
	switch {
	case err == nil:
		logger.Info("Bot auth confirmed")
		return "You are signed in. Return to SuperMock to continue."
	case errors.Is(err, pendingauth.ErrUnknownAuth):
		return "This login link has expired. Please request a new one."
	case errors.Is(err, pendingauth.ErrUserMismatch):
		logger.Warn("Bot auth confirmed by another account")
		return "This login link was created for another Telegram account."
	default:
		logger.WithError(err).Error("Failed to confirm bot auth")
		return "Something went wrong. Please try again."
	}
}
