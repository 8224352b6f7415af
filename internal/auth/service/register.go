package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"

	"github.com/veilauth/veil/internal/auth/domain"
	"github.com/veilauth/veil/internal/auth/store"
	"github.com/veilauth/veil/pkg/idx"
	"github.com/veilauth/veil/pkg/slogx"
	"github.com/veilauth/veil/pkg/srp"
)

// initialCredits maps an account tier to its starting compute allowance.
// The core treats both fields as opaque; only registration assigns them.
var initialCredits = map[string]int64{
	domain.TierFree:    100,
	domain.TierPro:     1000,
	domain.TierPremium: 10000,
}

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,64}$`)

type RegistrationService struct {
	Store store.Store
}

// Register creates an account from client-derived credential material. The
// salt and verifier arrive hex encoded, produced on the client; the plain
// password never reaches this service.
func (s *RegistrationService) Register(
	ctx context.Context,
	email, username, saltHex, verifierHex, tier string,
) (string, error) {
	l := slogx.FromContext(ctx)

	email = strings.TrimSpace(email)
	username = strings.TrimSpace(username)

	if err := validateRegistration(email, username, saltHex, verifierHex); err != nil {
		return "", err
	}

	if tier == "" {
		tier = domain.TierFree
	}
	credits, ok := initialCredits[tier]
	if !ok {
		return "", fmt.Errorf("%w: unknown tier %q", ErrInvalidInput, tier)
	}

	user := &domain.User{
		ID:             idx.New().String(),
		Username:       username,
		Email:          email,
		Salt:           strings.ToLower(saltHex),
		Verifier:       strings.ToLower(verifierHex),
		Tier:           tier,
		ComputeCredits: credits,
	}

	if err := s.Store.Users().Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateUsername):
			return "", ErrDuplicateUsername
		case errors.Is(err, store.ErrDuplicateEmail):
			return "", ErrDuplicateEmail
		default:
			return "", err
		}
	}

	l.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("username", username),
		slog.String("tier", tier),
	)
	return user.ID, nil
}

func validateRegistration(email, username, saltHex, verifierHex string) error {
	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("%w: username must be 3-64 chars of [a-zA-Z0-9_.-]", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: invalid email address", ErrInvalidInput)
	}
	if _, err := srp.FromHex(saltHex); err != nil || saltHex == "" {
		return fmt.Errorf("%w: salt must be a hex string", ErrInvalidInput)
	}
	v, err := srp.FromHex(verifierHex)
	if err != nil || v.Sign() == 0 {
		return fmt.Errorf("%w: verifier must be a non-zero hex string", ErrInvalidInput)
	}
	return nil
}
