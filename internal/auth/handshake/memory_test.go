package handshake_test

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/veilauth/veil/internal/auth/domain"
	"github.com/veilauth/veil/internal/auth/handshake"
)

func testHandshake(userID string) *domain.Handshake {
	return &domain.Handshake{
		UserID:       userID,
		Username:     "alice",
		ServerSecret: big.NewInt(12345),
		ServerPublic: big.NewInt(67890),
		CreatedAt:    time.Now().UTC(),
	}
}

func TestMemoryPutTakeOnce(t *testing.T) {
	s := handshake.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "sess-1", testHandshake("u1"), time.Minute))

	got, err := s.TakeOnce(ctx, "sess-1")
	require.NoError(t, err)
	require.Equal(t, "u1", got.UserID)
	require.Equal(t, int64(12345), got.ServerSecret.Int64())

	// Second take must fail; the state is gone.
	_, err = s.TakeOnce(ctx, "sess-1")
	require.ErrorIs(t, err, handshake.ErrNotFound)
}

func TestMemoryUnknownSession(t *testing.T) {
	s := handshake.NewMemoryStore()

	_, err := s.TakeOnce(context.Background(), "never-created")
	require.ErrorIs(t, err, handshake.ErrNotFound)
}

func TestMemoryExpiry(t *testing.T) {
	clock := newFakeClock()
	s := handshake.NewMemoryStoreWithClock(clock.Now)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "sess-1", testHandshake("u1"), time.Minute))

	clock.Advance(2 * time.Minute)

	_, err := s.TakeOnce(ctx, "sess-1")
	require.ErrorIs(t, err, handshake.ErrNotFound)
}

func TestMemorySweep(t *testing.T) {
	clock := newFakeClock()
	s := handshake.NewMemoryStoreWithClock(clock.Now)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "short", testHandshake("u1"), time.Minute))
	require.NoError(t, s.Put(ctx, "long", testHandshake("u2"), time.Hour))
	require.Equal(t, 2, s.Len())

	clock.Advance(5 * time.Minute)

	dropped, err := s.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, dropped)
	require.Equal(t, 1, s.Len())

	// The surviving entry is still takeable.
	got, err := s.TakeOnce(ctx, "long")
	require.NoError(t, err)
	require.Equal(t, "u2", got.UserID)
}

// fakeClock lets tests step time forward deterministically.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
