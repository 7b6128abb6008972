package pendingauth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supermock/internal/logging"
)

type stubProber struct {
	reachable map[int64]bool
	err       error
	calls     int
}

func (p *stubProber) CanMessage(ctx context.Context, userID int64) (bool, error) {
	p.calls++
	if p.err != nil {
		return false, p.err
	}
	return p.reachable[userID], nil
}

// slowProber reports every user reachable after a delay, so concurrent
// checks overlap.
type slowProber struct {
	delay time.Duration
	calls atomic.Int32
}

func (p *slowProber) CanMessage(ctx context.Context, userID int64) (bool, error) {
	p.calls.Add(1)
	time.Sleep(p.delay)
	return true, nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestRegistry(prober Prober) (*Registry, *clock) {
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	store := NewInMemoryStore(5 * time.Minute)
	store.SetClock(c.now)
	reg := NewRegistry(store, prober, logging.Discard())
	reg.SetClock(c.now)
	return reg, c
}

func TestRegistry_CreateAuthID(t *testing.T) {
	reg, c := newTestRegistry(nil)
	ctx := context.Background()

	authID, err := reg.CreateAuthID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "42_1700000000000", authID)
	assert.Equal(t, 1, reg.Pending())

	c.t = c.t.Add(time.Millisecond)
	second, err := reg.CreateAuthID(ctx, 42)
	require.NoError(t, err)
	assert.NotEqual(t, authID, second)

	latest, ok := reg.LatestForUser(ctx, 42)
	require.True(t, ok)
	assert.Equal(t, second, latest)

	_, err = reg.CreateAuthID(ctx, 0)
	assert.Error(t, err)
}

func TestRegistry_CheckPendingAuth_UnknownAndExpired(t *testing.T) {
	reg, c := newTestRegistry(&stubProber{reachable: map[int64]bool{42: true}})
	ctx := context.Background()

	res, err := reg.CheckPendingAuth(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, res)

	authID, err := reg.CreateAuthID(ctx, 42)
	require.NoError(t, err)

	c.t = c.t.Add(5*time.Minute + time.Second)
	res, err = reg.CheckPendingAuth(ctx, authID)
	require.NoError(t, err)
	assert.Nil(t, res, "expired ids look exactly like unknown ids")
	assert.Equal(t, 0, reg.Pending(), "expired entry is evicted")
}

func TestRegistry_CheckPendingAuth_SingleUse(t *testing.T) {
	prober := &stubProber{reachable: map[int64]bool{42: true}}
	reg, _ := newTestRegistry(prober)
	ctx := context.Background()

	authID, err := reg.CreateAuthID(ctx, 42)
	require.NoError(t, err)

	res, err := reg.CheckPendingAuth(ctx, authID)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.Valid)
	assert.Equal(t, int64(42), res.UserID)

	res, err = reg.CheckPendingAuth(ctx, authID)
	require.NoError(t, err)
	assert.Nil(t, res, "a consumed id is gone")
}

func TestRegistry_CheckPendingAuth_ConcurrentChecksConsumeOnce(t *testing.T) {
	prober := &slowProber{delay: 50 * time.Millisecond}
	store := NewInMemoryStore(5 * time.Minute)
	reg := NewRegistry(store, prober, logging.Discard())
	ctx := context.Background()

	authID, err := reg.CreateAuthID(ctx, 42)
	require.NoError(t, err)

	const callers = 5
	var (
		wg    sync.WaitGroup
		valid atomic.Int32
		start = make(chan struct{})
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			res, err := reg.CheckPendingAuth(ctx, authID)
			assert.NoError(t, err)
			if res != nil && res.Valid {
				valid.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), valid.Load(), "one valid result per auth id")
	assert.Equal(t, 0, reg.Pending())
}

func TestRegistry_CheckPendingAuth_ConfirmedWhileProbing(t *testing.T) {
	prober := &slowProber{delay: 50 * time.Millisecond}
	reg := NewRegistry(NewInMemoryStore(5*time.Minute), prober, logging.Discard())
	ctx := context.Background()

	authID, err := reg.CreateAuthID(ctx, 42)
	require.NoError(t, err)

	done := make(chan *Result, 1)
	go func() {
		res, err := reg.CheckPendingAuth(ctx, authID)
		assert.NoError(t, err)
		done <- res
	}()
	require.Eventually(t, func() bool { return prober.calls.Load() == 1 }, time.Second, time.Millisecond)
	require.NoError(t, reg.Confirm(ctx, authID, Profile{TelegramID: 42, Username: "late"}))

	res := <-done
	require.NotNil(t, res)
	assert.True(t, res.Valid)
	require.NotNil(t, res.Profile, "the consumed entry carries the newest profile")
	assert.Equal(t, "late", res.Profile.Username)
}

func TestRegistry_CheckPendingAuth_Unreachable(t *testing.T) {
	prober := &stubProber{reachable: map[int64]bool{}}
	reg, _ := newTestRegistry(prober)
	ctx := context.Background()

	authID, err := reg.CreateAuthID(ctx, 42)
	require.NoError(t, err)

	res, err := reg.CheckPendingAuth(ctx, authID)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.False(t, res.Valid)

	// The user presses Start afterwards; the entry is still there.
	prober.reachable[42] = true
	res, err = reg.CheckPendingAuth(ctx, authID)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.Valid)
}

func TestRegistry_CheckPendingAuth_ProbeError(t *testing.T) {
	reg, _ := newTestRegistry(&stubProber{err: errors.New("network down")})
	ctx := context.Background()

	authID, err := reg.CreateAuthID(ctx, 42)
	require.NoError(t, err)

	res, err := reg.CheckPendingAuth(ctx, authID)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.False(t, res.Valid)
}

func TestRegistry_Confirm(t *testing.T) {
	prober := &stubProber{}
	reg, _ := newTestRegistry(prober)
	ctx := context.Background()

	authID, err := reg.CreateAuthID(ctx, 42)
	require.NoError(t, err)

	err = reg.Confirm(ctx, authID, Profile{TelegramID: 43})
	assert.ErrorIs(t, err, ErrUserMismatch)

	err = reg.Confirm(ctx, "unknown", Profile{TelegramID: 42})
	assert.ErrorIs(t, err, ErrUnknownAuth)

	profile := Profile{TelegramID: 42, Username: "ann", FirstName: "Ann"}
	require.NoError(t, reg.Confirm(ctx, authID, profile))

	res, err := reg.CheckPendingAuth(ctx, authID)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.Valid)
	require.NotNil(t, res.Profile)
	assert.Equal(t, "ann", res.Profile.Username)
	assert.Zero(t, prober.calls, "a confirmed entry needs no probe")
}

func TestRegistry_Sweep(t *testing.T) {
	reg, c := newTestRegistry(nil)
	ctx := context.Background()

	_, err := reg.CreateAuthID(ctx, 1)
	require.NoError(t, err)
	c.t = c.t.Add(4 * time.Minute)
	_, err = reg.CreateAuthID(ctx, 2)
	require.NoError(t, err)
	c.t = c.t.Add(2 * time.Minute)

	removed, err := reg.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, reg.Pending())
}

func TestAuthIDFromStart(t *testing.T) {
	id, ok := AuthIDFromStart("auth_42_1700000000000")
	assert.True(t, ok)
	assert.Equal(t, "42_1700000000000", id)

	_, ok = AuthIDFromStart("auth_")
	assert.False(t, ok)

	_, ok = AuthIDFromStart("promo")
	assert.False(t, ok)
}

func TestDeepLink(t *testing.T) {
	assert.Equal(t, "https://t.me/supermock_bot?start=auth_42_1", DeepLink("@supermock_bot", "42_1"))
}
