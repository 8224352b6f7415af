package domain

import "time"

// Tier names the account tier assigned at registration.
const (
	TierFree    = "free"
	TierPro     = "pro"
	TierPremium = "premium"
)

// User is a registered account. The server never holds the password; only
// the salt and the password verifier derived by the client at registration
// time are stored.
type User struct {
	ID       string
	Username string
	Email    string

	// Salt and Verifier are hex encoded, exactly as received on the wire.
	Salt     string
	Verifier string

	// CurrentTokenHash is the fingerprint of the single active session
	// token, or nil when the user has no live session. Bearer checks
	// compare against this so a newer login invalidates older tokens.
	CurrentTokenHash *string

	Tier           string
	ComputeCredits int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasActiveSession reports whether a session token is currently bound to
// the account.
func (u *User) HasActiveSession() bool {
	return u.CurrentTokenHash != nil && *u.CurrentTokenHash != ""
}
