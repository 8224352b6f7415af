package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/veilauth/veil/internal/auth/service"
	"github.com/veilauth/veil/pkg/authsdk"
	"github.com/veilauth/veil/pkg/httpx"
	"github.com/veilauth/veil/pkg/slogx"
)

type RegisterHandler struct {
	RegistrationService *service.RegistrationService
}

func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	userID, err := h.RegistrationService.Register(ctx,
		req.Email, req.Username, req.Salt, req.Verifier, req.Tier)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDuplicateUsername):
			authsdk.ErrUsernameTaken.WriteError(w)
		case errors.Is(err, service.ErrDuplicateEmail):
			authsdk.ErrEmailRegistered.WriteError(w)
		case errors.Is(err, service.ErrInvalidInput):
			authsdk.ErrInvalidRequest.WriteError(w)
		default:
			log.Error("registration failed", "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.RegisterResponse{
		Success: true,
		UserID:  userID,
		Message: "account created",
	})
}
