package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supermock/internal/logging"
	"supermock/internal/storage"
)

func TestUserService_UpdateStatus(t *testing.T) {
	store := newTestStore(t)
	svc := NewUserService(store, logging.Discard())
	ctx := context.Background()
	u := createUser(t, store, 1, "Ann", storage.StatusInterviewer)

	updated, err := svc.UpdateStatus(ctx, u.ID, storage.StatusCandidate)
	require.NoError(t, err)
	assert.Equal(t, storage.StatusCandidate, updated.Status)

	_, err = svc.UpdateStatus(ctx, u.ID, "manager")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.UpdateStatus(ctx, 999, storage.StatusCandidate)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUserService_UpdateProfile(t *testing.T) {
	store := newTestStore(t)
	svc := NewUserService(store, logging.Discard())
	ctx := context.Background()
	u := createUser(t, store, 1, "Ann", storage.StatusInterviewer)

	last := "Smith"
	username := "@ann"
	updated, err := svc.UpdateProfile(ctx, u.ID, ProfileUpdate{LastName: &last, Username: &username})
	require.NoError(t, err)
	assert.Equal(t, "Ann", updated.FirstName, "nil fields are kept")
	assert.Equal(t, "Smith", updated.LastName)
	assert.Equal(t, "ann", updated.Username)

	empty := "  "
	_, err = svc.UpdateProfile(ctx, u.ID, ProfileUpdate{FirstName: &empty})
	assert.ErrorIs(t, err, ErrInvalidInput)

	stored, err := svc.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", stored.FirstName)
	assert.Equal(t, "Smith", stored.LastName)
}

func TestUserService_Candidates(t *testing.T) {
	store := newTestStore(t)
	svc := NewUserService(store, logging.Discard())
	ctx := context.Background()

	me := createUser(t, store, 1, "Me", storage.StatusInterviewer)
	other := createUser(t, store, 2, "Other", storage.StatusInterviewer)

	list, err := svc.Candidates(ctx, me.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	// A status change makes the user show up for everyone else.
	_, err = svc.UpdateStatus(ctx, other.ID, storage.StatusCandidate)
	require.NoError(t, err)
	list, err = svc.Candidates(ctx, me.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, other.ID, list[0].ID)

	// The caller never sees themselves.
	_, err = svc.UpdateStatus(ctx, me.ID, storage.StatusCandidate)
	require.NoError(t, err)
	list, err = svc.Candidates(ctx, me.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, other.ID, list[0].ID)
}
