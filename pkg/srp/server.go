package srp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrInvalidClientPublic reports a degenerate client ephemeral
	// (A mod N == 0) that would allow trivial authentication bypass.
	ErrInvalidClientPublic = errors.New("srp: invalid client ephemeral")

	// ErrInvalidScramble reports u == 0, which would cancel the verifier
	// out of the shared secret.
	ErrInvalidScramble = errors.New("srp: invalid scrambling parameter")
)

// GenerateServerEphemeral draws a fresh 256-bit secret scalar b and computes
// the server's public value B = (k*v + g^b) mod N for the given verifier.
func GenerateServerEphemeral(v *big.Int) (b, B *big.Int, err error) {
	N, g, k := Group()

	for {
		raw := make([]byte, 32)
		if _, err := rand.Read(raw); err != nil {
			return nil, nil, fmt.Errorf("srp: generate ephemeral: %w", err)
		}
		b = new(big.Int).SetBytes(raw)

		kv := new(big.Int).Mul(k, v)
		kv.Mod(kv, N)

		gb := new(big.Int).Exp(g, b, N)

		B = new(big.Int).Add(kv, gb)
		B.Mod(B, N)

		// B == 0 mod N is unusable; redraw b.
		if B.Sign() != 0 {
			return b, B, nil
		}
	}
}

// ServerKey derives the shared session key on the server side:
// u = H(PAD(A)|PAD(B)), S = (A * v^u)^b mod N, K = H(S).
func ServerKey(b, A, B, v *big.Int) ([]byte, error) {
	N, _, _ := Group()

	if new(big.Int).Mod(A, N).Sign() == 0 {
		return nil, ErrInvalidClientPublic
	}

	u := scramble(A, B)
	if u.Sign() == 0 {
		return nil, ErrInvalidScramble
	}

	vu := new(big.Int).Exp(v, u, N)
	avu := new(big.Int).Mul(A, vu)
	avu.Mod(avu, N)
	S := new(big.Int).Exp(avu, b, N)

	K := sha256.Sum256(S.Bytes())
	return K[:], nil
}

// ClientProof computes the expected client evidence
// M1 = H(H(N) XOR H(g) | H(username) | salt | A | B | K).
func ClientProof(username string, salt []byte, A, B *big.Int, K []byte) []byte {
	N, g, _ := Group()

	hn := sha256.Sum256(N.Bytes())
	hg := sha256.Sum256(g.Bytes())
	for i := range hn {
		hn[i] ^= hg[i]
	}
	hu := sha256.Sum256([]byte(username))

	h := sha256.New()
	h.Write(hn[:])
	h.Write(hu[:])
	h.Write(salt)
	h.Write(A.Bytes())
	h.Write(B.Bytes())
	h.Write(K)
	return h.Sum(nil)
}

// ServerProof computes the server evidence M2 = H(A | M1 | K).
func ServerProof(A *big.Int, m1, K []byte) []byte {
	h := sha256.New()
	h.Write(A.Bytes())
	h.Write(m1)
	h.Write(K)
	return h.Sum(nil)
}

// CheckProof compares two evidence values in constant time. Ordinary
// equality short-circuits and leaks the mismatch position.
func CheckProof(got, want []byte) bool {
	return subtle.ConstantTimeCompare(got, want) == 1
}
