package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"supermock/internal/storage"
)

type sentMessage struct {
	chatID int64
	text   string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (r *recordingNotifier) Notify(chatID int64, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentMessage{chatID, text})
}

func (r *recordingNotifier) messages() []sentMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentMessage(nil), r.sent...)
}

func newTestStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	cfg := storage.DefaultConfig()
	cfg.Path = filepath.Join(t.TempDir(), "service.db")
	s, err := storage.OpenDatabase(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func createUser(t *testing.T, s *storage.SQLiteStorage, telegramID int64, first string, status storage.Status) *storage.User {
	t.Helper()
	u := &storage.User{
		TelegramID: sql.NullInt64{Int64: telegramID, Valid: true},
		FirstName:  first,
		Status:     status,
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}
