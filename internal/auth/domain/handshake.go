package domain

import (
	"math/big"
	"time"
)

// Handshake is the server-side state parked between the start and complete
// phases of a login. It lives in the ephemeral handshake store under an
// opaque session ID and is consumed exactly once.
type Handshake struct {
	UserID   string
	Username string

	// Decoy marks a handshake started for an unknown username. The
	// complete phase runs the full computation and then fails, so an
	// attacker cannot tell a wrong password from a missing account.
	Decoy bool

	// ServerSecret is b, the server's ephemeral private value.
	ServerSecret *big.Int

	// ServerPublic is B, already sent to the client during start.
	ServerPublic *big.Int

	CreatedAt time.Time
}
