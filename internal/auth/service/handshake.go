package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/veilauth/veil/internal/auth/domain"
	"github.com/veilauth/veil/internal/auth/handshake"
	"github.com/veilauth/veil/internal/auth/store"
	"github.com/veilauth/veil/pkg/cryptox"
	"github.com/veilauth/veil/pkg/slogx"
	"github.com/veilauth/veil/pkg/srp"
)

// DefaultHandshakeTTL bounds how long a started login may wait for its
// proof before the parked state evaporates.
const DefaultHandshakeTTL = 5 * time.Minute

// HandshakeService drives the two-phase password-authenticated key
// exchange. Start parks server state under an opaque session ID; Complete
// consumes it exactly once and settles mutual authentication.
type HandshakeService struct {
	Store      store.Store
	Handshakes handshake.Store
	Tokens     *TokenService
	TTL        time.Duration
}

// StartResult is what the client needs to compute its proof.
type StartResult struct {
	SessionID    string
	Salt         string
	ServerPublic string
}

// CompleteResult carries the settled session back to the handler.
type CompleteResult struct {
	Token       string
	ServerProof string
	User        *domain.User
}

func (s *HandshakeService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultHandshakeTTL
}

// Start runs phase one. The client's ephemeral public value arrives here
// but is only validated in phase two, where it is resent; phase one needs
// nothing from it to compute B.
//
// An unknown username is not an error at this phase. A decoy record is
// exercised through the same arithmetic so the response timing and shape
// match a real account, and the inevitable failure surfaces at Complete as
// a plain ErrInvalidCredentials.
func (s *HandshakeService) Start(ctx context.Context, username, clientPublicHex string) (*StartResult, error) {
	l := slogx.FromContext(ctx)

	if _, err := srp.FromHex(clientPublicHex); err != nil {
		return nil, fmt.Errorf("%w: client ephemeral is not hex", ErrInvalidInput)
	}

	hs := &domain.Handshake{CreatedAt: time.Now().UTC()}

	var saltHex string
	user, err := s.Store.Users().GetByUsername(ctx, username)
	switch {
	case err == nil:
		hs.UserID = user.ID
		hs.Username = username
		saltHex = user.Salt
	case errors.Is(err, store.ErrNotFound):
		hs.Decoy = true
		hs.Username = username
		saltHex = decoySalt(username)
	default:
		return nil, err
	}

	verifier, err := s.verifierFor(hs, user)
	if err != nil {
		return nil, err
	}

	b, B, err := srp.GenerateServerEphemeral(verifier)
	if err != nil {
		return nil, err
	}
	hs.ServerSecret = b
	hs.ServerPublic = B

	sessionID, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}

	if err := s.Handshakes.Put(ctx, sessionID, hs, s.ttl()); err != nil {
		return nil, err
	}

	l.Debug("handshake started", slog.String("username", username), slog.Bool("known", !hs.Decoy))

	return &StartResult{
		SessionID:    sessionID,
		Salt:         saltHex,
		ServerPublic: srp.ToHex(B),
	}, nil
}

// Complete runs phase two. The handshake is consumed before any
// verification so a failed proof can never be retried against the same
// server ephemeral.
func (s *HandshakeService) Complete(ctx context.Context, sessionID, clientPublicHex, clientProofHex string) (*CompleteResult, error) {
	l := slogx.FromContext(ctx)

	hs, err := s.Handshakes.TakeOnce(ctx, sessionID)
	if errors.Is(err, handshake.ErrNotFound) {
		return nil, ErrSessionExpired
	}
	if err != nil {
		return nil, err
	}

	A, err := srp.FromHex(clientPublicHex)
	if err != nil {
		return nil, fmt.Errorf("%w: client ephemeral is not hex", ErrInvalidInput)
	}
	m1, err := hex.DecodeString(clientProofHex)
	if err != nil {
		return nil, fmt.Errorf("%w: client proof is not hex", ErrInvalidInput)
	}

	var user *domain.User
	if !hs.Decoy {
		user, err = s.Store.Users().GetByID(ctx, hs.UserID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		if errors.Is(err, store.ErrNotFound) {
			// Account deleted mid-handshake. Fall through as a decoy so
			// the failure mode stays uniform.
			hs.Decoy = true
			user = nil
		}
	}

	verifier, err := s.verifierFor(hs, user)
	if err != nil {
		return nil, err
	}
	salt, err := s.saltFor(hs, user)
	if err != nil {
		return nil, err
	}

	key, err := srp.ServerKey(hs.ServerSecret, A, hs.ServerPublic, verifier)
	if errors.Is(err, srp.ErrInvalidClientPublic) || errors.Is(err, srp.ErrInvalidScramble) {
		return nil, ErrInvalidHandshake
	}
	if err != nil {
		return nil, err
	}

	expected := srp.ClientProof(hs.Username, salt, A, hs.ServerPublic, key)
	if !srp.CheckProof(m1, expected) || hs.Decoy {
		l.Info("handshake proof rejected", slog.String("username", hs.Username))
		return nil, ErrInvalidCredentials
	}

	token, err := s.Tokens.Issue(ctx, user)
	if err != nil {
		return nil, err
	}

	m2 := srp.ServerProof(A, m1, key)

	l.Info("handshake completed",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return &CompleteResult{
		Token:       token,
		ServerProof: hex.EncodeToString(m2),
		User:        user,
	}, nil
}

// verifierFor resolves the SRP verifier for a handshake: the stored one
// for a real account, a deterministic decoy otherwise.
func (s *HandshakeService) verifierFor(hs *domain.Handshake, user *domain.User) (*big.Int, error) {
	if hs.Decoy {
		return decoyVerifier(hs.Username), nil
	}
	return srp.FromHex(user.Verifier)
}

func (s *HandshakeService) saltFor(hs *domain.Handshake, user *domain.User) ([]byte, error) {
	if hs.Decoy {
		return hex.DecodeString(decoySalt(hs.Username))
	}
	return hex.DecodeString(user.Salt)
}
