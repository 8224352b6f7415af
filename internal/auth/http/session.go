package http

import (
	"errors"
	"net/http"

	"github.com/veilauth/veil/internal/auth/service"
	"github.com/veilauth/veil/pkg/authsdk"
	"github.com/veilauth/veil/pkg/httpx"
	"github.com/veilauth/veil/pkg/slogx"
)

// RefreshHandler exchanges a possibly expired bearer token for a fresh
// one. It sits outside the SessionGate because the gate enforces expiry;
// the service re-checks everything else itself.
type RefreshHandler struct {
	TokenService *service.TokenService
}

func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	raw := httpx.BearerToken(r)
	if raw == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	token, err := h.TokenService.Refresh(ctx, raw)
	if err != nil {
		if errors.Is(err, service.ErrTokenInvalid) {
			authsdk.ErrInvalidToken.WriteError(w)
			return
		}
		log.Error("refresh failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.RefreshResponse{
		Success: true,
		Token:   token,
	})
}

type LogoutHandler struct {
	TokenService *service.TokenService
}

func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := ctx.Value(httpx.CtxKeyUserID).(string)
	if !ok || userID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	if err := h.TokenService.Logout(ctx, userID); err != nil {
		if errors.Is(err, service.ErrTokenInvalid) {
			authsdk.ErrInvalidToken.WriteError(w)
			return
		}
		log.Error("logout failed", "user_id", userID, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.LogoutResponse{Success: true})
}
