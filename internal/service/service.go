// Package service holds the user and interview use cases behind the
// user-status HTTP endpoints.
package service

import (
	"context"
	"errors"
	"strings"

	"supermock/internal/storage"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	// ErrForbidden is returned when the caller's role or participation does
	// not allow the operation.
	ErrForbidden = errors.New("forbidden")
)

// Store is the persistence both services need.
type Store interface {
	GetUserByID(ctx context.Context, id int64) (*storage.User, error)
	UpdateUser(ctx context.Context, u *storage.User) error
	UpdateUserStatus(ctx context.Context, id int64, status storage.Status) (*storage.User, error)
	ListUsersByStatus(ctx context.Context, status storage.Status, excludeID int64) ([]storage.User, error)

	CreateInterview(ctx context.Context, interviewerID, candidateID int64) (*storage.Interview, error)
	GetInterview(ctx context.Context, id int64) (*storage.Interview, error)
	ListInterviewsForUser(ctx context.Context, userID int64) ([]storage.Interview, error)
	CompleteInterview(ctx context.Context, id int64) (*storage.Interview, error)
	AddFeedback(ctx context.Context, id int64, feedback string) (*storage.Interview, error)
}

// displayName is how a user is named in bot messages.
func displayName(u *storage.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	switch {
	case name != "":
		return name
	case u.Username != "":
		return "@" + u.Username
	default:
		return "a SuperMock user"
	}
}
