package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// SQLiteStorage handles all database operations
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage wraps an open database handle.
func NewSQLiteStorage(db *sql.DB) *SQLiteStorage {
	return &SQLiteStorage{db: db}
}

// DB exposes the underlying handle.
func (s *SQLiteStorage) DB() *sql.DB {
	return s.db
}

// Ping checks that the database is reachable.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
}

const userColumns = `id, telegram_id, email, password_hash, username, first_name, last_name, status, created_at, updated_at`

func scanUser(row rowScanner) (*User, error) {
	u := &User{}
	var status string
	err := row.Scan(
		&u.ID,
		&u.TelegramID,
		&u.Email,
		&u.PasswordHash,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&status,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Status = Status(status)
	return u, nil
}

func getUser(ctx context.Context, q querier, column string, value interface{}) (*User, error) {
	row := q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user with %s %v", ErrNotFound, column, value)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// validateUser checks a user before it is written.
func validateUser(u *User) error {
	if u == nil {
		return fmt.Errorf("%w: user cannot be nil", ErrInvalidInput)
	}
	if u.Status == "" {
		u.Status = StatusInterviewer
	}
	if !u.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, u.Status)
	}
	if !u.TelegramID.Valid && !u.Email.Valid {
		return fmt.Errorf("%w: user needs a telegram id or an email", ErrInvalidInput)
	}
	if u.TelegramID.Valid && u.TelegramID.Int64 <= 0 {
		return fmt.Errorf("%w: telegram ID must be positive", ErrInvalidInput)
	}
	return nil
}

func insertUser(ctx context.Context, q querier, u *User) error {
	if err := validateUser(u); err != nil {
		return err
	}
	if u.Email.Valid {
		u.Email.String = strings.ToLower(strings.TrimSpace(u.Email.String))
	}

	ts := now()
	result, err := q.ExecContext(ctx, `
		INSERT INTO users (
			telegram_id, email, password_hash, username, first_name, last_name,
			status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.TelegramID, u.Email, u.PasswordHash, u.Username, u.FirstName, u.LastName,
		string(u.Status), ts, ts,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: user already exists", ErrConflict)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get user id: %w", err)
	}
	u.ID = id
	u.CreatedAt = ts
	u.UpdatedAt = ts
	return nil
}

func updateUser(ctx context.Context, q querier, u *User) error {
	if err := validateUser(u); err != nil {
		return err
	}

	ts := now()
	result, err := q.ExecContext(ctx, `
		UPDATE users
		SET username = ?, first_name = ?, last_name = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		u.Username, u.FirstName, u.LastName, string(u.Status), ts, u.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: user not found with ID %d", ErrNotFound, u.ID)
	}
	u.UpdatedAt = ts
	return nil
}

// CreateUser inserts u and fills in its ID and timestamps.
// An empty status defaults to INTERVIEWER.
func (s *SQLiteStorage) CreateUser(ctx context.Context, u *User) error {
	return insertUser(ctx, s.db, u)
}

// GetUserByID retrieves a user by database ID.
func (s *SQLiteStorage) GetUserByID(ctx context.Context, id int64) (*User, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: user ID must be positive", ErrInvalidInput)
	}
	return getUser(ctx, s.db, "id", id)
}

// GetUserByTelegramID retrieves a user by Telegram ID.
func (s *SQLiteStorage) GetUserByTelegramID(ctx context.Context, telegramID int64) (*User, error) {
	if telegramID <= 0 {
		return nil, fmt.Errorf("%w: telegram ID must be positive", ErrInvalidInput)
	}
	return getUser(ctx, s.db, "telegram_id", telegramID)
}

// GetUserByEmail retrieves a user by email, case-insensitively.
func (s *SQLiteStorage) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("%w: email cannot be empty", ErrInvalidInput)
	}
	return getUser(ctx, s.db, "email", email)
}

// UpdateUser writes the profile fields and status of u.
func (s *SQLiteStorage) UpdateUser(ctx context.Context, u *User) error {
	return updateUser(ctx, s.db, u)
}

// UpdateUserStatus changes a user's status and returns the updated row.
func (s *SQLiteStorage) UpdateUserStatus(ctx context.Context, id int64, status Status) (*User, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), now(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update user status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("%w: user not found with ID %d", ErrNotFound, id)
	}
	return s.GetUserByID(ctx, id)
}

// ListUsersByStatus returns users with the given status, newest first,
// leaving out excludeID.
func (s *SQLiteStorage) ListUsersByStatus(ctx context.Context, status Status, excludeID int64) ([]User, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE status = ? AND id != ?
		ORDER BY created_at DESC, id DESC`,
		string(status), excludeID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

// DeleteUser removes a user and, by cascade, their interviews.
func (s *SQLiteStorage) DeleteUser(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: user not found with ID %d", ErrNotFound, id)
	}
	return nil
}

// MergeTelegramProfile copies every non-empty field of p into u and reports
// whether anything changed. Empty incoming fields never erase stored ones.
func MergeTelegramProfile(u *User, p TelegramProfile) bool {
	changed := false
	merge := func(dst *string, src string) {
		if src != "" && *dst != src {
			*dst = src
			changed = true
		}
	}
	merge(&u.Username, p.Username)
	merge(&u.FirstName, p.FirstName)
	merge(&u.LastName, p.LastName)
	return changed
}

// FindOrCreateTelegramUser returns the user owning p.TelegramID, merging in
// any newer profile fields, or creates one with status INTERVIEWER. created
// reports whether a row was inserted.
func (s *SQLiteStorage) FindOrCreateTelegramUser(ctx context.Context, p TelegramProfile) (user *User, created bool, err error) {
	if p.TelegramID <= 0 {
		return nil, false, fmt.Errorf("%w: telegram ID must be positive", ErrInvalidInput)
	}

	// A second attempt only happens when another request inserted the same
	// telegram_id between our read and our insert.
	for attempt := 0; attempt < 2; attempt++ {
		user, created, err = s.findOrCreateTelegramUserTx(ctx, p)
		if !errors.Is(err, ErrConflict) {
			return user, created, err
		}
	}
	return user, created, err
}

func (s *SQLiteStorage) findOrCreateTelegramUserTx(ctx context.Context, p TelegramProfile) (*User, bool, error) {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	user, err := tx.GetUserByTelegramID(ctx, p.TelegramID)
	switch {
	case err == nil:
		if MergeTelegramProfile(user, p) {
			if err := tx.UpdateUser(ctx, user); err != nil {
				return nil, false, err
			}
		}
		if err := tx.Commit(); err != nil {
			return nil, false, fmt.Errorf("failed to commit: %w", err)
		}
		return user, false, nil

	case errors.Is(err, ErrNotFound):
		user = &User{
			TelegramID: sql.NullInt64{Int64: p.TelegramID, Valid: true},
			Username:   p.Username,
			FirstName:  p.FirstName,
			LastName:   p.LastName,
			Status:     StatusInterviewer,
		}
		if err := tx.CreateUser(ctx, user); err != nil {
			return nil, false, err
		}
		if err := tx.Commit(); err != nil {
			return nil, false, fmt.Errorf("failed to commit: %w", err)
		}
		return user, true, nil

	default:
		return nil, false, err
	}
}
