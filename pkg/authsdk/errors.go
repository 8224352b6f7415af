package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/veilauth/veil/pkg/httpx"
)

const (
	ErrorCodeInvalidRequest     = "invalid_request"
	ErrorCodeInvalidCredentials = "invalid_credentials"
	ErrorCodeSessionExpired     = "session_expired"
	ErrorCodeInvalidToken       = "invalid_token"
	ErrorCodeUsernameTaken      = "username_taken"
	ErrorCodeEmailRegistered    = "email_registered"
	ErrorCodeServerError        = "server_error"
)

// APIError is the error body every endpoint returns. It implements the
// error interface so both server handlers (to write responses) and the SDK
// client (to surface failures) share one type.
type APIError struct {
	StatusCode int `json:"-"`

	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WriteError writes this APIError to an HTTP response writer.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             e.Code,
		"error_description": e.Description,
	})
}

var (
	// ErrInvalidRequest covers malformed bodies and failed validation.
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	// ErrInvalidCredentials is deliberately shared by unknown-username
	// and wrong-password failures.
	ErrInvalidCredentials = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidCredentials,
		Description: "authentication failed",
	}

	// ErrSessionExpired means the handshake session is gone and the login
	// must be restarted.
	ErrSessionExpired = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeSessionExpired,
		Description: "handshake session expired or already used",
	}

	// ErrInvalidToken covers every bearer failure, superseded sessions
	// included.
	ErrInvalidToken = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidToken,
		Description: "the session token is missing, invalid or no longer active",
	}

	ErrUsernameTaken = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeUsernameTaken,
		Description: "that username is already registered",
	}

	ErrEmailRegistered = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeEmailRegistered,
		Description: "that email is already registered",
	}

	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}
)

// parseAPIError decodes an error body from a non-2xx response.
func parseAPIError(status int, body []byte) error {
	var e APIError
	if err := json.Unmarshal(body, &e); err != nil || e.Code == "" {
		return &APIError{
			StatusCode:  status,
			Code:        ErrorCodeServerError,
			Description: fmt.Sprintf("unexpected response (status %d)", status),
		}
	}
	e.StatusCode = status
	return &e
}
