package jwtx

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier validates a JWT and gives back the claims if it's legit.
type Verifier interface {
	// Verify checks signature, issuer and expiry.
	Verify(token string) (Claims, error)

	// VerifyIgnoringExpiry checks signature and issuer but tolerates an
	// elapsed exp. Used by the refresh path, which exchanges a stale
	// token for a fresh one.
	VerifyIgnoringExpiry(token string) (Claims, error)
}

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")
	ErrIssuer      = errors.New("jwtx: issuer mismatch")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")
)

// EdDSAVerifier validates JWTs signed using EdDSA (Ed25519).
type EdDSAVerifier struct {
	keys   *KeySet
	issuer string
}

// NewVerifierEdDSA creates a verifier backed by a KeySet of Ed25519 public keys.
func NewVerifierEdDSA(keys *KeySet, issuer string) *EdDSAVerifier {
	return &EdDSAVerifier{keys: keys, issuer: issuer}
}

// Verify validates the JWT string and returns its parsed Claims.
func (v *EdDSAVerifier) Verify(tokenStr string) (Claims, error) {
	claims, err := v.parse(tokenStr)
	if err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateIssuer(v.issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateExpiry(); err != nil {
		return Claims{}, err
	}
	return *claims, nil
}

// VerifyIgnoringExpiry validates signature and issuer only.
func (v *EdDSAVerifier) VerifyIgnoringExpiry(tokenStr string) (Claims, error) {
	claims, err := v.parse(tokenStr)
	if err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateIssuer(v.issuer); err != nil {
		return Claims{}, err
	}
	return *claims, nil
}

// parse checks the signature against the KeySet without claim validation.
func (v *EdDSAVerifier) parse(tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("jwtx: missing kid")
		}

		pub, err := v.keys.Get(kid)
		if err != nil {
			return nil, fmt.Errorf("jwtx: unknown kid %q: %w", kid, err)
		}

		ed25519Pub, ok := pub.(ed25519.PublicKey)
		if !ok {
			return nil, errors.New("jwtx: invalid Ed25519 key type")
		}
		return ed25519Pub, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSig, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, ErrMalformed
	}
	return claims, nil
}
