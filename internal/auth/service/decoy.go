package service

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
	"sync"

	"github.com/veilauth/veil/pkg/srp"
)

// The decoy material must be deterministic per username within a process.
// If the same unknown name drew a different salt on every start, an
// attacker could distinguish missing accounts from real ones, whose salt
// is stable. Keyed with a per-process secret so decoy values are not
// precomputable offline.
var (
	decoyKeyOnce sync.Once
	decoyKey     []byte
)

func decoySecret() []byte {
	decoyKeyOnce.Do(func() {
		decoyKey = make([]byte, 32)
		if _, err := rand.Read(decoyKey); err != nil {
			panic("service: cannot seed decoy key: " + err.Error())
		}
	})
	return decoyKey
}

func decoyMAC(label, username string) []byte {
	mac := hmac.New(sha256.New, decoySecret())
	mac.Write([]byte(label))
	mac.Write([]byte(username))
	return mac.Sum(nil)
}

// decoySalt yields a stable fake salt for an unknown username, shaped like
// a real client-generated one.
func decoySalt(username string) string {
	return hex.EncodeToString(decoyMAC("salt", username)[:srp.SaltSize])
}

// decoyVerifier yields a stable fake verifier, v = g^x mod N for a secret
// x no client can know.
func decoyVerifier(username string) *big.Int {
	N, g, _ := srp.Group()
	x := new(big.Int).SetBytes(decoyMAC("verifier", username))
	return new(big.Int).Exp(g, x, N)
}
