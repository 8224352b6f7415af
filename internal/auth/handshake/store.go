// Package handshake holds the ephemeral store for in-flight login
// handshakes. State parked here between the start and complete phases is
// short-lived, consumed at most once, and safe to lose on restart (the
// client just logs in again).
package handshake

import (
	"context"
	"errors"
	"time"

	"github.com/veilauth/veil/internal/auth/domain"
)

// ErrNotFound is returned when a handshake is absent: never created,
// already consumed, or expired. Callers cannot tell which, on purpose.
var ErrNotFound = errors.New("handshake: not found")

// Store is the ephemeral handshake state boundary.
type Store interface {
	// Put parks a handshake under the session ID for at most ttl.
	Put(ctx context.Context, sessionID string, hs *domain.Handshake, ttl time.Duration) error

	// TakeOnce atomically removes and returns the handshake. A second
	// call with the same session ID fails with ErrNotFound, so a proof
	// can never be replayed against live state.
	TakeOnce(ctx context.Context, sessionID string) (*domain.Handshake, error)

	// Sweep evicts expired entries and reports how many were dropped.
	// Drivers whose backend expires keys natively may return 0.
	Sweep(ctx context.Context) (int, error)

	Close() error
}
