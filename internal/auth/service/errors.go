package service

import "errors"

var (
	// ErrInvalidCredentials covers both an unknown username and a failed
	// proof. The two are deliberately indistinguishable to callers.
	ErrInvalidCredentials = errors.New("invalid_credentials")

	// ErrSessionExpired means the handshake session is gone: expired,
	// already consumed, or never started.
	ErrSessionExpired = errors.New("session_expired")

	// ErrInvalidHandshake flags degenerate protocol values (A mod N == 0,
	// zero scrambler) that a well-behaved client never produces.
	ErrInvalidHandshake = errors.New("invalid_handshake")

	ErrDuplicateUsername = errors.New("username_taken")
	ErrDuplicateEmail    = errors.New("email_registered")
	ErrInvalidInput      = errors.New("invalid_input")

	// ErrTokenInvalid is any bearer failure: bad signature, expiry,
	// unknown user, or a fingerprint that no longer matches the record.
	ErrTokenInvalid = errors.New("invalid_token")
)
