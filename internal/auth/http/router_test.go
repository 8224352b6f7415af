package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/veilauth/veil/internal/auth/handshake"
	authhttp "github.com/veilauth/veil/internal/auth/http"
	"github.com/veilauth/veil/internal/auth/service"
	"github.com/veilauth/veil/internal/auth/store/drivers/sqlite"
	"github.com/veilauth/veil/pkg/authsdk"
	"github.com/veilauth/veil/pkg/jwtx"
	"github.com/veilauth/veil/pkg/slogx"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "veil.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{Issuer: "veil-test"})
	require.NoError(t, err)

	tokens := &service.TokenService{
		KeyManager: km,
		Store:      st,
		Issuer:     "veil-test",
		AccessTTL:  time.Hour,
	}

	logger := slogx.New(slogx.Config{Service: "veil-auth", Level: "error", Format: "text"})

	router := authhttp.NewRouter(km.KeySet, "test", st, logger)
	router.RegistrationService = &service.RegistrationService{Store: st}
	router.HandshakeService = &service.HandshakeService{
		Store:      st,
		Handshakes: handshake.NewMemoryStore(),
		Tokens:     tokens,
	}
	router.TokenService = tokens
	router.UserService = &service.UserService{Store: st}
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func TestFullAuthenticationFlow(t *testing.T) {
	srv := newTestServer(t)
	sdk := authsdk.NewClient(srv.URL)
	ctx := context.Background()

	// Register.
	reg, err := sdk.Register(ctx, "alice@example.com", "alice", "correct horse", "")
	require.NoError(t, err)
	require.True(t, reg.Success)
	require.NotEmpty(t, reg.UserID)

	// Login; the SDK verifies the server proof internally.
	login, err := sdk.Login(ctx, "alice", "correct horse")
	require.NoError(t, err)
	require.True(t, login.Success)
	require.NotEmpty(t, login.Token)
	require.Equal(t, "alice", login.User.Username)

	// The token opens the gated profile endpoint.
	profile, err := sdk.User(ctx, login.Token)
	require.NoError(t, err)
	require.Equal(t, reg.UserID, profile.ID)
	require.Equal(t, "free", profile.Tier)

	// A second login supersedes the first session.
	second, err := sdk.Login(ctx, "alice", "correct horse")
	require.NoError(t, err)

	_, err = sdk.User(ctx, login.Token)
	requireAPIError(t, err, authsdk.ErrorCodeInvalidToken)

	// Refresh rotates the surviving session's token.
	refreshed, err := sdk.Refresh(ctx, second.Token)
	require.NoError(t, err)
	require.NotEqual(t, second.Token, refreshed.Token)

	_, err = sdk.User(ctx, second.Token)
	requireAPIError(t, err, authsdk.ErrorCodeInvalidToken)

	// Logout kills the current token for good.
	require.NoError(t, sdk.Logout(ctx, refreshed.Token))

	_, err = sdk.User(ctx, refreshed.Token)
	requireAPIError(t, err, authsdk.ErrorCodeInvalidToken)

	_, err = sdk.Refresh(ctx, refreshed.Token)
	requireAPIError(t, err, authsdk.ErrorCodeInvalidToken)
}

func TestRegisterDuplicates(t *testing.T) {
	srv := newTestServer(t)
	sdk := authsdk.NewClient(srv.URL)
	ctx := context.Background()

	_, err := sdk.Register(ctx, "alice@example.com", "alice", "pw", "")
	require.NoError(t, err)

	_, err = sdk.Register(ctx, "other@example.com", "alice", "pw", "")
	requireAPIError(t, err, authsdk.ErrorCodeUsernameTaken)

	_, err = sdk.Register(ctx, "alice@example.com", "bob", "pw", "")
	requireAPIError(t, err, authsdk.ErrorCodeEmailRegistered)
}

func TestLoginWrongPasswordOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	sdk := authsdk.NewClient(srv.URL)
	ctx := context.Background()

	_, err := sdk.Register(ctx, "alice@example.com", "alice", "correct horse", "")
	require.NoError(t, err)

	_, err = sdk.Login(ctx, "alice", "wrong horse")
	requireAPIError(t, err, authsdk.ErrorCodeInvalidCredentials)

	// Unknown user fails with the exact same error code.
	_, err = sdk.Login(ctx, "ghost", "whatever")
	requireAPIError(t, err, authsdk.ErrorCodeInvalidCredentials)
}

func TestGateRejectsMissingAndGarbageTokens(t *testing.T) {
	srv := newTestServer(t)
	sdk := authsdk.NewClient(srv.URL)
	ctx := context.Background()

	_, err := sdk.User(ctx, "")
	requireAPIError(t, err, authsdk.ErrorCodeInvalidToken)

	_, err = sdk.User(ctx, "garbage.token.here")
	requireAPIError(t, err, authsdk.ErrorCodeInvalidToken)
}

func TestMalformedBodies(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/v1/register", "/v1/auth/start", "/v1/auth/complete"} {
		resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader("{not json"))
		require.NoError(t, err)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
		_ = resp.Body.Close()
	}
}

func TestJWKSEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/.well-known/jwks.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var jwks jwtx.JWKS
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&jwks))
	require.NotEmpty(t, jwks.Keys)
	for _, k := range jwks.Keys {
		require.Equal(t, "OKP", k.Kty)
		require.Equal(t, "Ed25519", k.Crv)
		require.NotEmpty(t, k.X)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/livez", "/readyz"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode, path)

		var health authsdk.HealthResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
		_ = resp.Body.Close()
		require.Equal(t, "ok", health.Status)
	}
}

func requireAPIError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, code, apiErr.Code)
}
