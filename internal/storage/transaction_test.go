package storage

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransaction_CommitAndRollback(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.CreateUser(ctx, &User{TelegramID: sql.NullInt64{Int64: 10, Valid: true}}))
	require.NoError(t, tx.Rollback())

	_, err = s.GetUserByTelegramID(ctx, 10)
	assert.ErrorIs(t, err, ErrNotFound, "rolled back insert is gone")

	tx, err = s.BeginTx(ctx)
	require.NoError(t, err)
	u := &User{TelegramID: sql.NullInt64{Int64: 10, Valid: true}, FirstName: "A"}
	require.NoError(t, tx.CreateUser(ctx, u))
	got, err := tx.GetUserByTelegramID(ctx, 10)
	require.NoError(t, err)
	got.FirstName = "B"
	require.NoError(t, tx.UpdateUser(ctx, got))
	require.NoError(t, tx.Commit())

	stored, err := s.GetUserByTelegramID(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "B", stored.FirstName)
}

func TestTransaction_Closed(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.ErrorIs(t, tx.Commit(), ErrTransactionClosed)
	assert.ErrorIs(t, tx.Rollback(), ErrTransactionClosed)
	assert.ErrorIs(t, tx.CreateUser(ctx, &User{}), ErrTransactionClosed)
	_, err = tx.GetUserByTelegramID(ctx, 1)
	assert.ErrorIs(t, err, ErrTransactionClosed)
	assert.ErrorIs(t, tx.UpdateUser(ctx, &User{}), ErrTransactionClosed)
}
