package auth

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supermock/internal/logging"
	"supermock/internal/pendingauth"
	"supermock/internal/storage"
	"supermock/internal/telegram"
)

const testBotToken = "123456:ABC-DEF1234ghIkl-zyx57W2v1u123ew11"

type stubProber struct {
	reachable map[int64]bool
}

func (p *stubProber) CanMessage(ctx context.Context, userID int64) (bool, error) {
	return p.reachable[userID], nil
}

type testEnv struct {
	svc    *Service
	store  *storage.SQLiteStorage
	tokens *TokenManager
	prober *stubProber
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := storage.DefaultConfig()
	cfg.Path = filepath.Join(t.TempDir(), "auth.db")
	store, err := storage.OpenDatabase(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	prober := &stubProber{reachable: map[int64]bool{}}
	registry := pendingauth.NewRegistry(pendingauth.NewInMemoryStore(5*time.Minute), prober, logging.Discard())
	tokens := NewTokenManager(testSecret, time.Hour)
	verifier := telegram.NewVerifier(testBotToken, 5*time.Minute)

	return &testEnv{
		svc:    NewService(store, tokens, verifier, registry, "@supermock_bot", logging.Discard()),
		store:  store,
		tokens: tokens,
		prober: prober,
	}
}

func signedWidget(id int64, firstName, username string, authDate time.Time) telegram.WidgetPayload {
	p := telegram.WidgetPayload{
		ID:        id,
		FirstName: firstName,
		Username:  username,
		AuthDate:  authDate.Unix(),
	}
	p.Hash = telegram.SignWidgetData(testBotToken, p.Values())
	return p
}

func signedInitData(id int64, authDate time.Time) string {
	values := url.Values{}
	values.Set("user", fmt.Sprintf(`{"id":%d,"first_name":"Web","username":"webapp"}`, id))
	values.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	values.Set("hash", telegram.SignWebAppData(testBotToken, values))
	return values.Encode()
}

func TestService_RegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req := RegisterRequest{Email: "Ann@Example.com", Password: "secret1", FirstName: "Ann", LastName: "Smith"}
	res, err := env.svc.Register(ctx, req)
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, storage.StatusInterviewer, res.User.Status)
	assert.NotEmpty(t, res.Token)

	_, err = env.svc.Register(ctx, req)
	assert.ErrorIs(t, err, ErrEmailTaken)

	short := req
	short.Email = "other@example.com"
	short.Password = "12345"
	_, err = env.svc.Register(ctx, short)
	assert.ErrorIs(t, err, ErrInvalidInput)

	bad := req
	bad.Email = "not-an-email"
	_, err = env.svc.Register(ctx, bad)
	assert.ErrorIs(t, err, ErrInvalidInput)

	login, err := env.svc.Login(ctx, "ann@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, login.User.ID)

	_, wrongPassword := env.svc.Login(ctx, "ann@example.com", "wrong-password")
	_, unknownEmail := env.svc.Login(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error(), "bad email and bad password look the same")

	u, err := env.svc.VerifyToken(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, u.ID)
}

func TestService_TelegramWebApp(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.svc.TelegramWebApp(ctx, signedInitData(1001, time.Now()))
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, int64(1001), res.User.TelegramID.Int64)
	assert.Equal(t, "webapp", res.User.Username)

	again, err := env.svc.TelegramWebApp(ctx, signedInitData(1001, time.Now()))
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, res.User.ID, again.User.ID)

	_, err = env.svc.TelegramWebApp(ctx, signedInitData(1001, time.Now().Add(-10*time.Minute)))
	assert.ErrorIs(t, err, ErrTelegramAuth)
	assert.ErrorIs(t, err, telegram.ErrAuthExpired)

	_, err = env.svc.TelegramWebApp(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestService_TelegramWidget(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p := signedWidget(2002, "Widget", "widget_user", time.Now())
	res, err := env.svc.TelegramWidget(ctx, p)
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, storage.StatusInterviewer, res.User.Status)

	// The redirect form carries the same fields as query parameters.
	again, err := env.svc.TelegramWidgetValues(ctx, p.Values())
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, res.User.ID, again.User.ID)

	p.FirstName = "Tampered"
	_, err = env.svc.TelegramWidget(ctx, p)
	assert.ErrorIs(t, err, ErrTelegramAuth)
	assert.ErrorIs(t, err, telegram.ErrHashMismatch)
}

func TestService_VerifyToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.svc.TelegramWidget(ctx, signedWidget(3003, "Del", "", time.Now()))
	require.NoError(t, err)

	// Legacy telegram tokens resolve by Telegram id.
	legacy := signClaims(t, jwt.SigningMethodHS256, &Claims{
		UserID:         3003,
		AuthType:       AuthTypeTelegram,
		StandardClaims: jwt.StandardClaims{ExpiresAt: time.Now().Add(time.Hour).Unix()},
	}, testSecret)
	u, err := env.svc.VerifyToken(ctx, legacy)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, u.ID)

	_, err = env.svc.VerifyToken(ctx, res.Token+"x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	require.NoError(t, env.store.DeleteUser(ctx, res.User.ID))
	_, err = env.svc.VerifyToken(ctx, res.Token)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NotErrorIs(t, err, ErrInvalidToken)
}

func TestService_TestToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.svc.TestToken(ctx, 0, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultTestTelegramID, res.User.TelegramID.Int64)
	assert.Equal(t, storage.StatusInterviewer, res.User.Status)

	res, err = env.svc.TestToken(ctx, 0, storage.StatusCandidate)
	require.NoError(t, err)
	assert.Equal(t, storage.StatusCandidate, res.User.Status)
	assert.False(t, res.Created)

	_, err = env.svc.TestToken(ctx, 5, "BOSS")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestService_BotFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	authURL, authID, err := env.svc.BotAuthURL(ctx, 4004, "https://app.example.com/after")
	require.NoError(t, err)
	assert.Contains(t, authURL, "https://t.me/supermock_bot?start=auth_"+authID)
	assert.Contains(t, authURL, "redirect_url=https%3A%2F%2Fapp.example.com%2Fafter")

	_, err = env.svc.BotVerifyUser(ctx, 4004, authID)
	assert.ErrorIs(t, err, ErrBotAuthPending, "not confirmed and bot cannot write yet")

	_, err = env.svc.BotVerifyUser(ctx, 5005, authID)
	assert.ErrorIs(t, err, ErrBotAuthMismatch)

	reply := env.svc.HandleBotStart(ctx, "auth_"+authID, telegram.User{ID: 4004, FirstName: "Bot", Username: "botuser"})
	assert.Contains(t, reply, "signed in")

	res, err := env.svc.BotVerifyUser(ctx, 4004, "")
	require.NoError(t, err, "empty authId uses the newest entry")
	assert.True(t, res.Created)
	assert.Equal(t, "botuser", res.User.Username)

	_, err = env.svc.BotVerifyUser(ctx, 4004, authID)
	assert.ErrorIs(t, err, ErrBotAuthNotFound, "entries are single use")
}

func TestService_BotFlow_Probe(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, authID, err := env.svc.BotAuthURL(ctx, 6006, "")
	require.NoError(t, err)

	env.prober.reachable[6006] = true
	res, err := env.svc.BotVerifyUser(ctx, 6006, authID)
	require.NoError(t, err)
	assert.Equal(t, int64(6006), res.User.TelegramID.Int64)

	_, _, err = env.svc.BotAuthURL(ctx, 1, "not a url")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestService_HandleBotStart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	assert.Contains(t, env.svc.HandleBotStart(ctx, "", telegram.User{ID: 1}), "Hi!")
	assert.Contains(t, env.svc.HandleBotStart(ctx, "auth_1_123", telegram.User{ID: 1}), "expired")

	_, authID, err := env.svc.BotAuthURL(ctx, 7007, "")
	require.NoError(t, err)
	assert.Contains(t, env.svc.HandleBotStart(ctx, "auth_"+authID, telegram.User{ID: 8008}), "another Telegram account")
}
