package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supermock/internal/logging"
)

// fakeBotAPI emulates the few Bot API methods the service calls.
type fakeBotAPI struct {
	mu        sync.Mutex
	reachable map[string]bool // chat_id -> bot may write
	sent      []string        // "chat_id:text"
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		fmt.Fprint(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"SuperMock","username":"supermock_bot"}}`)
	case strings.HasSuffix(r.URL.Path, "/sendChatAction"):
		f.mu.Lock()
		ok := f.reachable[r.FormValue("chat_id")]
		f.mu.Unlock()
		if ok {
			fmt.Fprint(w, `{"ok":true,"result":true}`)
			return
		}
		fmt.Fprint(w, `{"ok":false,"error_code":403,"description":"Forbidden: bot can't initiate conversation with a user"}`)
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		f.mu.Lock()
		f.sent = append(f.sent, r.FormValue("chat_id")+":"+r.FormValue("text"))
		f.mu.Unlock()
		fmt.Fprintf(w, `{"ok":true,"result":{"message_id":1,"date":1700000000,"chat":{"id":%s,"type":"private"},"text":"ok"}}`, r.FormValue("chat_id"))
	default:
		fmt.Fprint(w, `{"ok":false,"error_code":404,"description":"Not Found"}`)
	}
}

func (f *fakeBotAPI) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func newTestService(t *testing.T, fake *fakeBotAPI) *Service {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	svc, err := NewServiceWithEndpoint("123:token", server.URL+"/bot%s/%s", server.Client(), logging.Discard())
	require.NoError(t, err)
	return svc
}

func startUpdate(userID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			From:     &tgbotapi.User{ID: userID, FirstName: "Ann", UserName: "ann"},
			Chat:     &tgbotapi.Chat{ID: userID, Type: "private"},
			Text:     text,
			Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len("/start")}},
		},
	}
}

func TestService_Username(t *testing.T) {
	svc := newTestService(t, &fakeBotAPI{})
	assert.Equal(t, "supermock_bot", svc.Username())
}

func TestService_CanMessage(t *testing.T) {
	fake := &fakeBotAPI{reachable: map[string]bool{"100": true}}
	svc := newTestService(t, fake)
	ctx := context.Background()

	ok, err := svc.CanMessage(ctx, 100)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.CanMessage(ctx, 200)
	require.NoError(t, err, "a Telegram refusal is not a transport error")
	assert.False(t, ok)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = svc.CanMessage(cancelled, 100)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestService_HandleStart(t *testing.T) {
	fake := &fakeBotAPI{}
	svc := newTestService(t, fake)

	var gotPayload string
	var gotFrom int64
	var gotUsername string
	svc.SetStartHandler(func(ctx context.Context, payload string, from User) string {
		gotPayload = payload
		gotFrom = from.ID
		gotUsername = from.Username
		return "You are signed in"
	})

	svc.HandleUpdate(context.Background(), startUpdate(100, "/start auth_100_1700000000000"))

	assert.Equal(t, "auth_100_1700000000000", gotPayload)
	assert.Equal(t, int64(100), gotFrom)
	assert.Equal(t, "ann", gotUsername)
	assert.Equal(t, []string{"100:You are signed in"}, fake.messages())
}

func TestService_HandleStart_DefaultReplyAndIgnoredUpdates(t *testing.T) {
	fake := &fakeBotAPI{}
	svc := newTestService(t, fake)
	ctx := context.Background()

	svc.HandleUpdate(ctx, tgbotapi.Update{})
	plain := startUpdate(7, "hello")
	plain.Message.Entities = nil
	svc.HandleUpdate(ctx, plain)
	assert.Empty(t, fake.messages(), "non-command updates are ignored")

	svc.HandleUpdate(ctx, startUpdate(7, "/start"))
	assert.Equal(t, []string{"7:" + defaultStartReply}, fake.messages())

	svc.SetStartHandler(func(ctx context.Context, payload string, from User) string { return "" })
	svc.HandleUpdate(ctx, startUpdate(7, "/start"))
	assert.Len(t, fake.messages(), 1, "empty reply sends nothing")
}
