package srp

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for the private key derivation x = KDF(password, salt).
// These only matter to clients; the server is KDF-agnostic and sees the
// resulting verifier alone.
const (
	kdfTime    = 2
	kdfMemory  = 19 * 1024
	kdfThreads = 1
	kdfKeyLen  = 32
)

// SaltSize is the recommended salt length clients generate at registration.
const SaltSize = 16

// ErrInvalidServerPublic reports a degenerate server ephemeral (B mod N == 0).
var ErrInvalidServerPublic = errors.New("srp: invalid server ephemeral")

// ErrNoSessionKey is returned when a proof is requested before the exchange
// has progressed far enough to derive one.
var ErrNoSessionKey = errors.New("srp: session key not derived")

// NewSalt generates a random registration salt.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("srp: generate salt: %w", err)
	}
	return salt, nil
}

// deriveX computes the client's private key x from the password and salt.
func deriveX(password string, salt []byte) *big.Int {
	key := argon2.IDKey([]byte(password), salt, kdfTime, kdfMemory, kdfThreads, kdfKeyLen)
	return new(big.Int).SetBytes(key)
}

// DeriveVerifier computes v = g^x mod N. Run client-side at registration;
// the verifier is one-way and never reveals the password.
func DeriveVerifier(password string, salt []byte) *big.Int {
	N, g, _ := Group()
	return new(big.Int).Exp(g, deriveX(password, salt), N)
}

// ClientSession holds the client side of one handshake attempt.
type ClientSession struct {
	username string
	password string

	a *big.Int // secret ephemeral
	A *big.Int // public ephemeral

	key []byte // session key K, set by ComputeProof
	m1  []byte
}

// NewClientSession draws a fresh client ephemeral for one login attempt.
func NewClientSession(username, password string) (*ClientSession, error) {
	N, g, _ := Group()

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("srp: generate ephemeral: %w", err)
	}
	a := new(big.Int).SetBytes(raw)
	A := new(big.Int).Exp(g, a, N)

	return &ClientSession{
		username: username,
		password: password,
		a:        a,
		A:        A,
	}, nil
}

// PublicEphemeral returns A, sent to the server in phase 1.
func (c *ClientSession) PublicEphemeral() *big.Int {
	return c.A
}

// ComputeProof derives the shared key from the server's (salt, B) response
// and returns the client evidence M1:
//
//	x = KDF(password, salt)
//	u = H(PAD(A)|PAD(B))
//	S = (B - k*g^x)^(a + u*x) mod N
//	K = H(S)
func (c *ClientSession) ComputeProof(salt []byte, B *big.Int) ([]byte, error) {
	N, g, k := Group()

	if new(big.Int).Mod(B, N).Sign() == 0 {
		return nil, ErrInvalidServerPublic
	}

	u := scramble(c.A, B)
	if u.Sign() == 0 {
		return nil, ErrInvalidScramble
	}

	x := deriveX(c.password, salt)

	gx := new(big.Int).Exp(g, x, N)
	kgx := new(big.Int).Mul(k, gx)
	kgx.Mod(kgx, N)

	base := new(big.Int).Sub(B, kgx)
	base.Mod(base, N)

	exp := new(big.Int).Mul(u, x)
	exp.Add(exp, c.a)

	S := new(big.Int).Exp(base, exp, N)
	K := sha256.Sum256(S.Bytes())
	c.key = K[:]

	c.m1 = ClientProof(c.username, salt, c.A, B, c.key)
	return c.m1, nil
}

// VerifyServerProof checks the server evidence M2, completing mutual
// authentication. Valid only after ComputeProof.
func (c *ClientSession) VerifyServerProof(m2 []byte) (bool, error) {
	if c.key == nil {
		return false, ErrNoSessionKey
	}
	return CheckProof(m2, ServerProof(c.A, c.m1, c.key)), nil
}

// Key returns the derived session key K, or nil before ComputeProof.
func (c *ClientSession) Key() []byte {
	return c.key
}
