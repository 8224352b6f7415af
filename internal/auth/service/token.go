package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/veilauth/veil/internal/auth/domain"
	"github.com/veilauth/veil/internal/auth/store"
	"github.com/veilauth/veil/pkg/cryptox"
	"github.com/veilauth/veil/pkg/jwtx"
	"github.com/veilauth/veil/pkg/slogx"
)

// TokenService issues, verifies and refreshes session tokens. A user has
// at most one live token; its fingerprint sits on the credential record
// and issuing a new one silently kills the old session.
type TokenService struct {
	KeyManager *jwtx.KeyManager
	Store      store.Store
	Issuer     string
	AccessTTL  time.Duration
}

func (s *TokenService) accessTTL() time.Duration {
	if s.AccessTTL > 0 {
		return s.AccessTTL
	}
	return jwtx.DefaultAccessTokenTTL
}

// Issue signs a fresh token for the user and binds its fingerprint to the
// record, superseding any previous session.
func (s *TokenService) Issue(ctx context.Context, user *domain.User) (string, error) {
	claims := jwtx.NewAccessClaims(
		user.ID, user.Username, user.Email,
		s.Issuer, s.accessTTL(), time.Now().UTC(),
	)

	token, err := s.KeyManager.GetSigner().Sign(claims)
	if err != nil {
		return "", err
	}

	fp := cryptox.FingerprintToken(token)
	if err := s.Store.Users().UpdateSessionToken(ctx, user.ID, fp); err != nil {
		return "", err
	}
	return token, nil
}

// Verify authenticates a bearer token and authorizes it against the
// record's current session. Both steps must pass; the caller cannot tell
// which one failed.
func (s *TokenService) Verify(ctx context.Context, token string) (*domain.User, jwtx.Claims, error) {
	claims, err := s.KeyManager.Verifier.Verify(token)
	if err != nil {
		return nil, jwtx.Claims{}, ErrTokenInvalid
	}

	user, err := s.authorizeCurrent(ctx, claims.Subject, token)
	if err != nil {
		return nil, jwtx.Claims{}, err
	}
	return user, claims, nil
}

// Refresh exchanges a token for a fresh one. The old token may be past its
// expiry, but its signature must hold and it must still be the record's
// current session; a superseded or logged-out token cannot be revived.
func (s *TokenService) Refresh(ctx context.Context, oldToken string) (string, error) {
	l := slogx.FromContext(ctx)

	claims, err := s.KeyManager.Verifier.VerifyIgnoringExpiry(oldToken)
	if err != nil {
		return "", ErrTokenInvalid
	}

	user, err := s.authorizeCurrent(ctx, claims.Subject, oldToken)
	if err != nil {
		return "", err
	}

	// Claims are re-derived from the record, not copied from the old
	// token, so a renamed account refreshes into accurate claims.
	token, err := s.Issue(ctx, user)
	if err != nil {
		return "", err
	}

	l.Info("session refreshed", slog.String("user_id", user.ID))
	return token, nil
}

// Logout clears the record's session marker. Outstanding tokens keep a
// valid signature but fail the session check from here on.
func (s *TokenService) Logout(ctx context.Context, userID string) error {
	l := slogx.FromContext(ctx)

	if err := s.Store.Users().ClearSessionToken(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrTokenInvalid
		}
		return err
	}

	l.Info("session cleared", slog.String("user_id", userID))
	return nil
}

// authorizeCurrent loads the user and checks the presented token is the
// record's one live session. A NULL marker rejects: logout must durably
// kill outstanding tokens.
func (s *TokenService) authorizeCurrent(ctx context.Context, userID, token string) (*domain.User, error) {
	user, err := s.Store.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}

	if !user.HasActiveSession() {
		return nil, ErrTokenInvalid
	}
	if !cryptox.FingerprintsEqual(cryptox.FingerprintToken(token), *user.CurrentTokenHash) {
		return nil, ErrTokenInvalid
	}
	return user, nil
}
