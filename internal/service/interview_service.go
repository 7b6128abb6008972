package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"supermock/internal/storage"
)

// InterviewService runs the interview lifecycle and tells participants
// about it.
type InterviewService struct {
	store    Store
	notifier Notifier
	logger   logrus.FieldLogger
}

func NewInterviewService(store Store, notifier Notifier, logger logrus.FieldLogger) *InterviewService {
	return &InterviewService{store: store, notifier: notifier, logger: logger}
}

// Create schedules an interview between the calling interviewer and a
// candidate.
func (s *InterviewService) Create(ctx context.Context, callerID, candidateID int64) (*storage.Interview, error) {
	caller, err := s.store.GetUserByID(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if caller.Status != storage.StatusInterviewer {
		return nil, fmt.Errorf("%w: only interviewers can create interviews", ErrForbidden)
	}

	if candidateID <= 0 {
		return nil, fmt.Errorf("%w: candidateId must be positive", ErrInvalidInput)
	}
	if candidateID == callerID {
		return nil, fmt.Errorf("%w: cannot interview yourself", ErrInvalidInput)
	}

	candidate, err := s.store.GetUserByID(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if candidate.Status != storage.StatusCandidate {
		return nil, fmt.Errorf("%w: user %d is not a candidate", ErrInvalidInput, candidateID)
	}

	iv, err := s.store.CreateInterview(ctx, caller.ID, candidate.ID)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"interview_id":   iv.ID,
		"interviewer_id": caller.ID,
		"candidate_id":   candidate.ID,
	}).Info("Interview created")

	s.notify(candidate, fmt.Sprintf("%s scheduled a mock interview with you.", displayName(caller)))
	return iv, nil
}

// List returns the caller's interviews, newest first.
func (s *InterviewService) List(ctx context.Context, callerID int64) ([]storage.Interview, error) {
	return s.store.ListInterviewsForUser(ctx, callerID)
}

// participantInterview loads an interview and checks that callerID takes
// part in it. It returns the other participant's id.
func (s *InterviewService) participantInterview(ctx context.Context, callerID, interviewID int64) (*storage.Interview, int64, error) {
	iv, err := s.store.GetInterview(ctx, interviewID)
	if err != nil {
		return nil, 0, err
	}
	switch callerID {
	case iv.InterviewerID:
		return iv, iv.CandidateID, nil
	case iv.CandidateID:
		return iv, iv.InterviewerID, nil
	default:
		return nil, 0, fmt.Errorf("%w: not a participant of interview %d", ErrForbidden, interviewID)
	}
}

// Complete marks a PENDING interview as COMPLETED.
func (s *InterviewService) Complete(ctx context.Context, callerID, interviewID int64) (*storage.Interview, error) {
	_, otherID, err := s.participantInterview(ctx, callerID, interviewID)
	if err != nil {
		return nil, err
	}

	iv, err := s.store.CompleteInterview(ctx, interviewID)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"interview_id": iv.ID, "user_id": callerID}).Info("Interview completed")
	s.notifyUser(ctx, otherID, "Your mock interview was marked as completed. You can now leave feedback.")
	return iv, nil
}

// AddFeedback attaches feedback to a COMPLETED interview.
func (s *InterviewService) AddFeedback(ctx context.Context, callerID, interviewID int64, feedback string) (*storage.Interview, error) {
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		return nil, fmt.Errorf("%w: feedback cannot be empty", ErrInvalidInput)
	}

	_, otherID, err := s.participantInterview(ctx, callerID, interviewID)
	if err != nil {
		return nil, err
	}

	iv, err := s.store.AddFeedback(ctx, interviewID, feedback)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"interview_id": iv.ID, "user_id": callerID}).Info("Interview feedback received")
	s.notifyUser(ctx, otherID, "You received feedback on your mock interview.")
	return iv, nil
}

func (s *InterviewService) notifyUser(ctx context.Context, userID int64, text string) {
	u, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("Cannot load user to notify")
		return
	}
	s.notify(u, text)
}

func (s *InterviewService) notify(u *storage.User, text string) {
	if s.notifier == nil || !u.TelegramID.Valid {
		return
	}
	s.notifier.Notify(u.TelegramID.Int64, text)
}
