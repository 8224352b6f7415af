package store

import (
	"context"
	"errors"

	"github.com/veilauth/veil/internal/auth/domain"
)

var (
	ErrNotFound          = errors.New("store: not found")
	ErrDuplicateUsername = errors.New("store: username already taken")
	ErrDuplicateEmail    = errors.New("store: email already registered")
)

// Store is the persistence boundary for the auth service. Drivers live
// under store/drivers and implement this against their backing engine.
type Store interface {
	Users() UserRepo

	// Ping verifies the backing store is reachable. Used by readiness.
	Ping(ctx context.Context) error

	Close() error
}

// UserRepo covers everything the service needs to do with accounts.
type UserRepo interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// UpdateSessionToken binds a new token fingerprint to the user,
	// replacing whatever was there. The previous session, if any, is
	// dead from this point on.
	UpdateSessionToken(ctx context.Context, userID, fingerprint string) error

	// ClearSessionToken drops the bound fingerprint, leaving the user
	// with no active session.
	ClearSessionToken(ctx context.Context, userID string) error
}
