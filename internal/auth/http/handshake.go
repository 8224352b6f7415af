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

type HandshakeStartHandler struct {
	HandshakeService *service.HandshakeService
}

func (h *HandshakeStartHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}
	if req.Username == "" || req.ClientEphemeralPublic == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	result, err := h.HandshakeService.Start(ctx, req.Username, req.ClientEphemeralPublic)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			authsdk.ErrInvalidRequest.WriteError(w)
			return
		}
		log.Error("handshake start failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.StartResponse{
		SessionID:             result.SessionID,
		Salt:                  result.Salt,
		ServerEphemeralPublic: result.ServerPublic,
	})
}

type HandshakeCompleteHandler struct {
	HandshakeService *service.HandshakeService
}

func (h *HandshakeCompleteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.CompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}
	if req.SessionID == "" || req.ClientEphemeralPublic == "" || req.ClientProof == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	result, err := h.HandshakeService.Complete(ctx,
		req.SessionID, req.ClientEphemeralPublic, req.ClientProof)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionExpired):
			authsdk.ErrSessionExpired.WriteError(w)
		case errors.Is(err, service.ErrInvalidCredentials),
			errors.Is(err, service.ErrInvalidHandshake):
			// Degenerate protocol values are presented as a plain
			// authentication failure; no extra detail for probers.
			authsdk.ErrInvalidCredentials.WriteError(w)
		case errors.Is(err, service.ErrInvalidInput):
			authsdk.ErrInvalidRequest.WriteError(w)
		default:
			log.Error("handshake complete failed", "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.CompleteResponse{
		Success:     true,
		Token:       result.Token,
		ServerProof: result.ServerProof,
		User: authsdk.UserProfile{
			ID:       result.User.ID,
			Username: result.User.Username,
			Email:    result.User.Email,
			Tier:     result.User.Tier,
		},
	})
}
