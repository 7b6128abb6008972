package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supermock/internal/logging"
	"supermock/internal/storage"
)

func TestInterviewService_Lifecycle(t *testing.T) {
	store := newTestStore(t)
	notifier := &recordingNotifier{}
	svc := NewInterviewService(store, notifier, logging.Discard())
	ctx := context.Background()

	interviewer := createUser(t, store, 100, "Ivan", storage.StatusInterviewer)
	candidate := createUser(t, store, 200, "Carla", storage.StatusCandidate)

	iv, err := svc.Create(ctx, interviewer.ID, candidate.ID)
	require.NoError(t, err)
	assert.Equal(t, storage.InterviewPending, iv.Status)

	msgs := notifier.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(200), msgs[0].chatID, "candidate is told about the new interview")
	assert.Contains(t, msgs[0].text, "Ivan")

	_, err = svc.AddFeedback(ctx, candidate.ID, iv.ID, "too early")
	assert.ErrorIs(t, err, storage.ErrInvalidTransition)

	completed, err := svc.Complete(ctx, candidate.ID, iv.ID)
	require.NoError(t, err)
	assert.Equal(t, storage.InterviewCompleted, completed.Status)
	msgs = notifier.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, int64(100), msgs[1].chatID, "the other participant is told")

	done, err := svc.AddFeedback(ctx, interviewer.ID, iv.ID, "Good job")
	require.NoError(t, err)
	assert.Equal(t, storage.InterviewFeedbackReceived, done.Status)
	assert.Equal(t, "Good job", done.Feedback.String)
	msgs = notifier.messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, int64(200), msgs[2].chatID)

	list, err := svc.List(ctx, candidate.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Ivan", list[0].Interviewer.FirstName)
}

func TestInterviewService_CreateRules(t *testing.T) {
	store := newTestStore(t)
	svc := NewInterviewService(store, &recordingNotifier{}, logging.Discard())
	ctx := context.Background()

	interviewer := createUser(t, store, 1, "I", storage.StatusInterviewer)
	otherInterviewer := createUser(t, store, 2, "J", storage.StatusInterviewer)
	candidate := createUser(t, store, 3, "C", storage.StatusCandidate)

	tests := []struct {
		name        string
		callerID    int64
		candidateID int64
		wantErr     error
	}{
		{"candidate cannot create", candidate.ID, interviewer.ID, ErrForbidden},
		{"candidate targeting themselves", candidate.ID, candidate.ID, ErrForbidden},
		{"candidate with missing target", candidate.ID, 0, ErrForbidden},
		{"self interview", interviewer.ID, interviewer.ID, ErrInvalidInput},
		{"target not a candidate", interviewer.ID, otherInterviewer.ID, ErrInvalidInput},
		{"unknown target", interviewer.ID, 999, storage.ErrNotFound},
		{"missing target", interviewer.ID, 0, ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.callerID, tt.candidateID)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestInterviewService_ParticipantsOnly(t *testing.T) {
	store := newTestStore(t)
	svc := NewInterviewService(store, nil, logging.Discard())
	ctx := context.Background()

	interviewer := createUser(t, store, 1, "I", storage.StatusInterviewer)
	candidate := createUser(t, store, 2, "C", storage.StatusCandidate)
	outsider := createUser(t, store, 3, "O", storage.StatusInterviewer)

	iv, err := svc.Create(ctx, interviewer.ID, candidate.ID)
	require.NoError(t, err)

	_, err = svc.Complete(ctx, outsider.ID, iv.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.AddFeedback(ctx, outsider.ID, iv.ID, "sneaky")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.AddFeedback(ctx, interviewer.ID, iv.ID, " ")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Complete(ctx, interviewer.ID, 999)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = svc.Complete(ctx, interviewer.ID, iv.ID)
	require.NoError(t, err)
	_, err = svc.Complete(ctx, candidate.ID, iv.ID)
	assert.ErrorIs(t, err, storage.ErrInvalidTransition)
}
