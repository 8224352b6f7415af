package http

import (
	"net/http"

	"github.com/veilauth/veil/pkg/httpx"
	"github.com/veilauth/veil/pkg/jwtx"
)

// JWKSHandler publishes the public verification keys so other services
// can validate session tokens without calling back.
func JWKSHandler(keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, keys.PublicJWKS())
	}
}
