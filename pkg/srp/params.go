// Package srp implements the SRP-6a password-authenticated key exchange
// over the RFC 5054 2048-bit group. The server side never sees a password:
// it works with a client-derived verifier and proves knowledge of the same
// session key back to the client.
package srp

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
	"sync"
)

// ErrInvalidHex reports a protocol value that is not a valid hex integer.
var ErrInvalidHex = errors.New("srp: invalid hex value")

var (
	groupOnce sync.Once
	groupN    *big.Int
	groupG    *big.Int
	groupK    *big.Int
)

// initGroup sets up the RFC 5054 Appendix A 2048-bit safe prime, the
// generator g=2 and the SRP-6a multiplier k = H(N | PAD(g)).
func initGroup() {
	groupN = new(big.Int)
	groupN.SetString(
		"AC6BDB41324A9A9BF166DE5E1389582FAF72B6651987EE07FC3192943DB56050"+
			"A37329CBB4A099ED8193E0757767A13DD52312AB4B03310DCD7F48A9DA04FD50"+
			"E8083969EDB767B0CF6095179A163AB3661A05FBD5FAAAE82918A9962F0B93B8"+
			"55F97993EC975EEAA80D740ADBF4FF747359D041D5C33EA71D281E446B14773B"+
			"CA97B43A23FB801676BD207A436C6481F1D2B9078717461A5B9D32E688F87748"+
			"544523B524B0D57D5EA77A2775D2ECFA032CFBDBF52FB3786160279004E57AE6"+
			"AF874E7303CE53299CCC041C7BC308D82A5698F3A8D0C38271AE35F8E9DBFBB6"+
			"94B5C803D89F7AE435DE236D525F54759B65E372FCD68EF20FA7111F9E4AFF73", 16)

	groupG = big.NewInt(2)

	h := sha256.New()
	h.Write(groupN.Bytes())
	h.Write(pad(groupG))
	groupK = new(big.Int).SetBytes(h.Sum(nil))
}

// Group returns the shared system parameters (N, g, k).
func Group() (N, g, k *big.Int) {
	groupOnce.Do(initGroup)
	return groupN, groupG, groupK
}

// pad left-pads the big-endian bytes of v to the byte length of N so that
// hashed transcript values are position-stable regardless of leading zeros.
func pad(v *big.Int) []byte {
	size := len(groupN.Bytes())
	out := make([]byte, size)
	b := v.Bytes()
	copy(out[size-len(b):], b)
	return out
}

// scramble computes u = H(PAD(A) | PAD(B)).
func scramble(A, B *big.Int) *big.Int {
	Group()
	h := sha256.New()
	h.Write(pad(A))
	h.Write(pad(B))
	return new(big.Int).SetBytes(h.Sum(nil))
}

// FromHex parses a protocol value sent over the wire as a hex string.
func FromHex(s string) (*big.Int, error) {
	s = strings.TrimSpace(strings.TrimPrefix(s, "0x"))
	if s == "" {
		return nil, ErrInvalidHex
	}
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return nil, ErrInvalidHex
	}
	return v, nil
}

// ToHex renders a protocol value for the wire.
func ToHex(v *big.Int) string {
	return hex.EncodeToString(v.Bytes())
}
