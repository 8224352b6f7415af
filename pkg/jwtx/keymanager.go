package jwtx

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	mrand "math/rand/v2"
	"sync"

	"github.com/veilauth/veil/pkg/cryptox"
)

// KeyManager holds the instance's signing and verification keys. Keys are
// ephemeral: generated at startup, never persisted, so every restart
// invalidates all outstanding tokens.
//
// Multiple signing keys are kept and selected randomly per token to
// distribute signing load; all of them verify through the shared KeySet.
type KeyManager struct {
	Verifier Verifier
	KeySet   *KeySet

	mu      sync.RWMutex
	signers []Signer
}

// KeyManagerOptions configures the KeyManager.
type KeyManagerOptions struct {
	// Issuer is the issuer claim (iss) validated in tokens.
	Issuer string

	// NumKeys is how many signing keys to generate (default 3, max 10).
	NumKeys int
}

// NewEphemeralKeyManager generates NumKeys fresh Ed25519 keypairs in memory
// and wires signer, verifier and KeySet together.
func NewEphemeralKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	if opts.Issuer == "" {
		return nil, fmt.Errorf("jwtx: Issuer is required")
	}

	numKeys := opts.NumKeys
	if numKeys <= 0 {
		numKeys = 3
	}
	if numKeys > 10 {
		numKeys = 10
	}

	keyset := NewKeySet()
	signers := make([]Signer, 0, numKeys)

	for i := 0; i < numKeys; i++ {
		kid, err := generateRandomKeyID()
		if err != nil {
			return nil, fmt.Errorf("jwtx: failed to generate key ID: %w", err)
		}

		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("jwtx: failed to generate key %d: %w", i+1, err)
		}

		signer, err := NewSignerEdDSA(kid, priv)
		if err != nil {
			return nil, fmt.Errorf("jwtx: failed to build signer %d: %w", i+1, err)
		}
		signers = append(signers, signer)

		if err := keyset.AddSigner(signer); err != nil {
			return nil, fmt.Errorf("jwtx: failed to add signer %d to keyset: %w", i+1, err)
		}
	}

	return &KeyManager{
		Verifier: NewVerifierEdDSA(keyset, opts.Issuer),
		KeySet:   keyset,
		signers:  signers,
	}, nil
}

// GetSigner returns a randomly selected signer from the available keys.
func (km *KeyManager) GetSigner() Signer {
	km.mu.RLock()
	defer km.mu.RUnlock()

	if len(km.signers) == 0 {
		return nil
	}
	if len(km.signers) == 1 {
		return km.signers[0]
	}
	return km.signers[mrand.IntN(len(km.signers))]
}

// NumSigners returns the number of active signing keys.
func (km *KeyManager) NumSigners() int {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return len(km.signers)
}

// IsReady returns true once the KeyManager has valid keys loaded.
func (km *KeyManager) IsReady() bool {
	return km.KeySet.IsReady()
}

// generateRandomKeyID creates a random key identifier.
func generateRandomKeyID() (string, error) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return "", fmt.Errorf("failed to generate random key ID: %w", err)
	}
	return fmt.Sprintf("veil-%s", token), nil
}
