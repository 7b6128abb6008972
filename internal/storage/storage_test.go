package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Path = filepath.Join(t.TempDir(), "test.db")

	s, err := OpenDatabase(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func createTelegramUser(t *testing.T, s *SQLiteStorage, telegramID int64, status Status) *User {
	t.Helper()
	u := &User{
		TelegramID: sql.NullInt64{Int64: telegramID, Valid: true},
		FirstName:  "User",
		Status:     status,
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}
