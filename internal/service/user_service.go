package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"supermock/internal/storage"
)

// ProfileUpdate lists the profile fields to change. Nil fields are kept.
type ProfileUpdate struct {
	Username  *string `json:"username"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
}

// UserService manages user profiles and statuses.
type UserService struct {
	store  Store
	logger logrus.FieldLogger
}

func NewUserService(store Store, logger logrus.FieldLogger) *UserService {
	return &UserService{store: store, logger: logger}
}

// Get returns the user with the given id.
func (s *UserService) Get(ctx context.Context, id int64) (*storage.User, error) {
	return s.store.GetUserByID(ctx, id)
}

// UpdateStatus switches a user between INTERVIEWER and CANDIDATE.
func (s *UserService) UpdateStatus(ctx context.Context, id int64, status storage.Status) (*storage.User, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: status must be %s or %s", ErrInvalidInput, storage.StatusInterviewer, storage.StatusCandidate)
	}
	u, err := s.store.UpdateUserStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"user_id": id, "status": status}).Info("User status changed")
	return u, nil
}

// UpdateProfile applies the non-nil fields of upd. The first name cannot be
// cleared.
func (s *UserService) UpdateProfile(ctx context.Context, id int64, upd ProfileUpdate) (*storage.User, error) {
	u, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.FirstName != nil {
		first := strings.TrimSpace(*upd.FirstName)
		if first == "" {
			return nil, fmt.Errorf("%w: first name cannot be empty", ErrInvalidInput)
		}
		u.FirstName = first
	}
	if upd.LastName != nil {
		u.LastName = strings.TrimSpace(*upd.LastName)
	}
	if upd.Username != nil {
		u.Username = strings.TrimPrefix(strings.TrimSpace(*upd.Username), "@")
	}

	if err := s.store.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Candidates lists users with status CANDIDATE other than the caller.
func (s *UserService) Candidates(ctx context.Context, callerID int64) ([]storage.User, error) {
	return s.store.ListUsersByStatus(ctx, storage.StatusCandidate, callerID)
}
