package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/veilauth/veil/internal/auth/service"
	"github.com/veilauth/veil/pkg/authsdk"
	"github.com/veilauth/veil/pkg/httpx"
	"github.com/veilauth/veil/pkg/slogx"
)

// SessionGate guards endpoints that require a live session. It runs two
// distinct checks in order:
//
//  1. authentication: the bearer token parses, its signature holds and it
//     has not expired;
//  2. authorization: the token's fingerprint still matches the credential
//     record's current session marker.
//
// A token can pass the first and fail the second, which is exactly what
// happens after a logout or a newer login elsewhere. Either failure is a
// uniform 401.
func SessionGate(tokens *service.TokenService) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw := httpx.BearerToken(r)
			if raw == "" {
				authsdk.ErrInvalidToken.WriteError(w)
				return
			}

			user, claims, err := tokens.Verify(ctx, raw)
			if err != nil {
				if !errors.Is(err, service.ErrTokenInvalid) {
					slogx.FromContext(ctx).Error("session check failed", "err", err)
					authsdk.ErrServerError.WriteError(w)
					return
				}
				authsdk.ErrInvalidToken.WriteError(w)
				return
			}

			ctx = context.WithValue(ctx, httpx.CtxKeyUserID, user.ID)
			ctx = context.WithValue(ctx, httpx.CtxKeyUsername, claims.Username)
			ctx = context.WithValue(ctx, httpx.CtxKeyToken, raw)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
