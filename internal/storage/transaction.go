package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var (
	ErrTransactionClosed = errors.New("transaction is already closed")
)

// Transaction represents a database transaction
type Transaction struct {
	tx     *sql.Tx
	closed bool
}

// BeginTx starts a new database transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (*Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Transaction{tx: tx}, nil
}

// Commit commits the transaction
func (t *Transaction) Commit() error {
	if t.closed {
		return ErrTransactionClosed
	}
	t.closed = true
	return t.tx.Commit()
}

// Rollback rolls back the transaction. Calling it after Commit is harmless
// and returns ErrTransactionClosed.
func (t *Transaction) Rollback() error {
	if t.closed {
		return ErrTransactionClosed
	}
	t.closed = true
	return t.tx.Rollback()
}

// CreateUser creates a new user within the transaction
func (t *Transaction) CreateUser(ctx context.Context, u *User) error {
	if t.closed {
		return ErrTransactionClosed
	}
	return insertUser(ctx, t.tx, u)
}

// GetUserByTelegramID retrieves a user by Telegram ID within the transaction
func (t *Transaction) GetUserByTelegramID(ctx context.Context, telegramID int64) (*User, error) {
	if t.closed {
		return nil, ErrTransactionClosed
	}
	return getUser(ctx, t.tx, "telegram_id", telegramID)
}

// UpdateUser writes a user's profile and status within the transaction
func (t *Transaction) UpdateUser(ctx context.Context, u *User) error {
	if t.closed {
		return ErrTransactionClosed
	}
	return updateUser(ctx, t.tx, u)
}
