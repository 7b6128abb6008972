package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	// ErrConflict is returned when a unique constraint rejects a write.
	ErrConflict = errors.New("conflict")
	// ErrInvalidTransition is returned when an interview is not in the
	// status an update requires.
	ErrInvalidTransition = errors.New("invalid interview status transition")
)

// Status is the role a user currently plays.
type Status string

const (
	StatusInterviewer Status = "INTERVIEWER"
	StatusCandidate   Status = "CANDIDATE"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusInterviewer || s == StatusCandidate
}

// InterviewStatus is the lifecycle stage of an interview.
type InterviewStatus string

const (
	InterviewPending          InterviewStatus = "PENDING"
	InterviewCompleted        InterviewStatus = "COMPLETED"
	InterviewFeedbackReceived InterviewStatus = "FEEDBACK_RECEIVED"
)

// User represents a user in the system. Empty strings stand for absent
// optional fields.
type User struct {
	ID           int64
	TelegramID   sql.NullInt64
	Email        sql.NullString
	PasswordHash string
	Username     string
	FirstName    string
	LastName     string
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TelegramProfile is a Telegram identity as delivered by any auth channel.
type TelegramProfile struct {
	TelegramID int64
	Username   string
	FirstName  string
	LastName   string
}

// Participant is the slice of a user shown alongside an interview.
type Participant struct {
	ID         int64
	TelegramID sql.NullInt64
	Username   string
	FirstName  string
	LastName   string
}

// Interview links an interviewer with a candidate.
type Interview struct {
	ID                 int64
	InterviewerID      int64
	CandidateID        int64
	Status             InterviewStatus
	Feedback           sql.NullString
	FeedbackReceivedAt sql.NullTime
	CreatedAt          time.Time
	UpdatedAt          time.Time

	// Populated by listing queries only.
	Interviewer *Participant
	Candidate   *Participant
}

// querier is the subset of *sql.DB and *sql.Tx the queries need.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// now returns the timestamp written to created_at/updated_at columns.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
