package service_test

import (
	"context"
	"encoding/hex"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/veilauth/veil/internal/auth/handshake"
	"github.com/veilauth/veil/internal/auth/service"
	"github.com/veilauth/veil/internal/auth/store"
	"github.com/veilauth/veil/internal/auth/store/drivers/sqlite"
	"github.com/veilauth/veil/pkg/jwtx"
	"github.com/veilauth/veil/pkg/srp"
)

type testEnv struct {
	store      *sqlite.Store
	handshakes *handshake.MemoryStore
	register   *service.RegistrationService
	hs         *service.HandshakeService
	tokens     *service.TokenService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	s, err := sqlite.NewStore(filepath.Join(t.TempDir(), "veil.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())

	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{Issuer: "veil-test"})
	require.NoError(t, err)

	hsStore := handshake.NewMemoryStore()

	tokens := &service.TokenService{
		KeyManager: km,
		Store:      s,
		Issuer:     "veil-test",
		AccessTTL:  time.Hour,
	}

	return &testEnv{
		store:      s,
		handshakes: hsStore,
		register:   &service.RegistrationService{Store: s},
		hs: &service.HandshakeService{
			Store:      s,
			Handshakes: hsStore,
			Tokens:     tokens,
			TTL:        time.Minute,
		},
		tokens: tokens,
	}
}

// registerUser runs client-side enrollment: salt + verifier derivation.
func registerUser(t *testing.T, env *testEnv, username, email, password string) string {
	t.Helper()

	salt, err := srp.NewSalt()
	require.NoError(t, err)
	verifier := srp.DeriveVerifier(password, salt)

	userID, err := env.register.Register(context.Background(),
		email, username, hex.EncodeToString(salt), srp.ToHex(verifier), "")
	require.NoError(t, err)
	return userID
}

// login drives a full client-side handshake and returns the issued token.
func login(t *testing.T, env *testEnv, username, password string) string {
	t.Helper()
	ctx := context.Background()

	client, err := srp.NewClientSession(username, password)
	require.NoError(t, err)
	aHex := srp.ToHex(client.PublicEphemeral())

	start, err := env.hs.Start(ctx, username, aHex)
	require.NoError(t, err)

	salt, err := hex.DecodeString(start.Salt)
	require.NoError(t, err)
	B, err := srp.FromHex(start.ServerPublic)
	require.NoError(t, err)

	m1, err := client.ComputeProof(salt, B)
	require.NoError(t, err)

	result, err := env.hs.Complete(ctx, start.SessionID, aHex, hex.EncodeToString(m1))
	require.NoError(t, err)

	m2, err := hex.DecodeString(result.ServerProof)
	require.NoError(t, err)
	ok, err := client.VerifyServerProof(m2)
	require.NoError(t, err)
	require.True(t, ok, "server must prove knowledge of the session key")

	return result.Token
}

func TestRegisterAssignsTierCredits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	salt, _ := srp.NewSalt()
	v := srp.DeriveVerifier("pw", salt)

	userID, err := env.register.Register(ctx,
		"pro@example.com", "prouser", hex.EncodeToString(salt), srp.ToHex(v), "pro")
	require.NoError(t, err)

	u, err := env.store.Users().GetByID(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, "pro", u.Tier)
	require.EqualValues(t, 1000, u.ComputeCredits)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	userID := registerUser(t, env, "alice", "alice@example.com", "pw")

	original, err := env.store.Users().GetByUsername(ctx, "alice")
	require.NoError(t, err)

	salt, _ := srp.NewSalt()
	v := srp.DeriveVerifier("other", salt)

	_, err = env.register.Register(ctx,
		"fresh@example.com", "alice", hex.EncodeToString(salt), srp.ToHex(v), "")
	require.ErrorIs(t, err, service.ErrDuplicateUsername)

	_, err = env.register.Register(ctx,
		"alice@example.com", "bob", hex.EncodeToString(salt), srp.ToHex(v), "")
	require.ErrorIs(t, err, service.ErrDuplicateEmail)

	// Exactly one record survives, untouched by the failed attempts.
	got, err := env.store.Users().GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, userID, got.ID)
	require.Equal(t, original.Email, got.Email)
	require.Equal(t, original.Salt, got.Salt)
	require.Equal(t, original.Verifier, got.Verifier)

	// And no partial row landed under the rejected username.
	_, err = env.store.Users().GetByUsername(ctx, "bob")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := []struct {
		name                            string
		email, username, salt, verifier string
	}{
		{"short username", "a@b.c", "ab", "aabb", "0bad"},
		{"bad email", "not-an-email", "alice", "aabb", "0bad"},
		{"non-hex salt", "a@b.c", "alice", "zzzz", "0bad"},
		{"zero verifier", "a@b.c", "alice", "aabb", "0"},
		{"empty verifier", "a@b.c", "alice", "aabb", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.register.Register(ctx, tc.email, tc.username, tc.salt, tc.verifier, "")
			require.ErrorIs(t, err, service.ErrInvalidInput)
		})
	}

	_, err := env.register.Register(ctx, "a@b.c", "alice", "aabb", "0bad", "platinum")
	require.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestLoginHappyPath(t *testing.T) {
	env := newTestEnv(t)

	userID := registerUser(t, env, "alice", "alice@example.com", "correct horse")
	token := login(t, env, "alice", "correct horse")
	require.NotEmpty(t, token)

	user, claims, err := env.tokens.Verify(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, userID, user.ID)
	require.Equal(t, "alice", claims.Username)
	require.Equal(t, "alice@example.com", claims.Email)
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	registerUser(t, env, "alice", "alice@example.com", "correct horse")

	client, err := srp.NewClientSession("alice", "wrong horse")
	require.NoError(t, err)
	aHex := srp.ToHex(client.PublicEphemeral())

	start, err := env.hs.Start(ctx, "alice", aHex)
	require.NoError(t, err)

	salt, _ := hex.DecodeString(start.Salt)
	B, _ := srp.FromHex(start.ServerPublic)
	m1, err := client.ComputeProof(salt, B)
	require.NoError(t, err)

	_, err = env.hs.Complete(ctx, start.SessionID, aHex, hex.EncodeToString(m1))
	require.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestFailedProofConsumesSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	registerUser(t, env, "alice", "alice@example.com", "correct horse")

	wrong, err := srp.NewClientSession("alice", "wrong horse")
	require.NoError(t, err)
	wrongAHex := srp.ToHex(wrong.PublicEphemeral())

	start, err := env.hs.Start(ctx, "alice", wrongAHex)
	require.NoError(t, err)

	salt, _ := hex.DecodeString(start.Salt)
	B, _ := srp.FromHex(start.ServerPublic)

	badM1, err := wrong.ComputeProof(salt, B)
	require.NoError(t, err)

	_, err = env.hs.Complete(ctx, start.SessionID, wrongAHex, hex.EncodeToString(badM1))
	require.ErrorIs(t, err, service.ErrInvalidCredentials)

	// The failure consumed the session. Even a correctly derived proof
	// against the same transcript cannot reuse the sessionID.
	right, err := srp.NewClientSession("alice", "correct horse")
	require.NoError(t, err)
	rightAHex := srp.ToHex(right.PublicEphemeral())

	goodM1, err := right.ComputeProof(salt, B)
	require.NoError(t, err)

	_, err = env.hs.Complete(ctx, start.SessionID, rightAHex, hex.EncodeToString(goodM1))
	require.ErrorIs(t, err, service.ErrSessionExpired)
}

func TestLoginUnknownUserLooksLikeWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	client, err := srp.NewClientSession("ghost", "any password")
	require.NoError(t, err)
	aHex := srp.ToHex(client.PublicEphemeral())

	// Start succeeds and hands out a plausible salt and B.
	start, err := env.hs.Start(ctx, "ghost", aHex)
	require.NoError(t, err)
	require.NotEmpty(t, start.Salt)
	require.NotEmpty(t, start.ServerPublic)

	salt, _ := hex.DecodeString(start.Salt)
	B, _ := srp.FromHex(start.ServerPublic)
	m1, err := client.ComputeProof(salt, B)
	require.NoError(t, err)

	_, err = env.hs.Complete(ctx, start.SessionID, aHex, hex.EncodeToString(m1))
	require.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestUnknownUserSaltIsStable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	client, _ := srp.NewClientSession("ghost", "pw")
	aHex := srp.ToHex(client.PublicEphemeral())

	first, err := env.hs.Start(ctx, "ghost", aHex)
	require.NoError(t, err)
	second, err := env.hs.Start(ctx, "ghost", aHex)
	require.NoError(t, err)

	// A salt that changed between starts would reveal the account does
	// not exist.
	require.Equal(t, first.Salt, second.Salt)
}

func TestHandshakeSessionSingleUse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	registerUser(t, env, "alice", "alice@example.com", "pw")

	client, _ := srp.NewClientSession("alice", "pw")
	aHex := srp.ToHex(client.PublicEphemeral())

	start, err := env.hs.Start(ctx, "alice", aHex)
	require.NoError(t, err)

	salt, _ := hex.DecodeString(start.Salt)
	B, _ := srp.FromHex(start.ServerPublic)
	m1, _ := client.ComputeProof(salt, B)

	_, err = env.hs.Complete(ctx, start.SessionID, aHex, hex.EncodeToString(m1))
	require.NoError(t, err)

	// Replaying the same proof against a consumed session fails.
	_, err = env.hs.Complete(ctx, start.SessionID, aHex, hex.EncodeToString(m1))
	require.ErrorIs(t, err, service.ErrSessionExpired)
}

func TestHandshakeUnknownSession(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.hs.Complete(context.Background(), "no-such-session", "2", "aa")
	require.ErrorIs(t, err, service.ErrSessionExpired)
}

func TestHandshakeRejectsDegenerateClientPublic(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	registerUser(t, env, "alice", "alice@example.com", "pw")

	client, _ := srp.NewClientSession("alice", "pw")
	start, err := env.hs.Start(ctx, "alice", srp.ToHex(client.PublicEphemeral()))
	require.NoError(t, err)

	// A = 0 would fix the shared secret regardless of the password.
	N, _, _ := srp.Group()
	_, err = env.hs.Complete(ctx, start.SessionID, srp.ToHex(N), "aa")
	require.ErrorIs(t, err, service.ErrInvalidHandshake)
}

func TestSecondLoginSupersedesFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	registerUser(t, env, "alice", "alice@example.com", "pw")

	first := login(t, env, "alice", "pw")
	second := login(t, env, "alice", "pw")

	_, _, err := env.tokens.Verify(ctx, first)
	require.ErrorIs(t, err, service.ErrTokenInvalid)

	_, _, err = env.tokens.Verify(ctx, second)
	require.NoError(t, err)
}

func TestRefreshRotatesToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	registerUser(t, env, "alice", "alice@example.com", "pw")
	old := login(t, env, "alice", "pw")

	fresh, err := env.tokens.Refresh(ctx, old)
	require.NoError(t, err)
	require.NotEqual(t, old, fresh)

	// The old token lost its session slot to the new one.
	_, _, err = env.tokens.Verify(ctx, old)
	require.ErrorIs(t, err, service.ErrTokenInvalid)

	_, _, err = env.tokens.Verify(ctx, fresh)
	require.NoError(t, err)

	// The superseded token cannot be refreshed either.
	_, err = env.tokens.Refresh(ctx, old)
	require.ErrorIs(t, err, service.ErrTokenInvalid)
}

func TestLogoutKillsToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	userID := registerUser(t, env, "alice", "alice@example.com", "pw")
	token := login(t, env, "alice", "pw")

	require.NoError(t, env.tokens.Logout(ctx, userID))

	_, _, err := env.tokens.Verify(ctx, token)
	require.ErrorIs(t, err, service.ErrTokenInvalid)

	_, err = env.tokens.Refresh(ctx, token)
	require.ErrorIs(t, err, service.ErrTokenInvalid)

	// A fresh login works fine afterwards.
	again := login(t, env, "alice", "pw")
	_, _, err = env.tokens.Verify(ctx, again)
	require.NoError(t, err)
}

func TestVerifyGarbageToken(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.tokens.Verify(context.Background(), "not.a.jwt")
	require.ErrorIs(t, err, service.ErrTokenInvalid)
}

func TestHandshakeExpiry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	registerUser(t, env, "alice", "alice@example.com", "pw")

	// Shrink the TTL so the session is already dead when the proof lands.
	env.hs.TTL = time.Nanosecond

	client, _ := srp.NewClientSession("alice", "pw")
	aHex := srp.ToHex(client.PublicEphemeral())

	start, err := env.hs.Start(ctx, "alice", aHex)
	require.NoError(t, err)

	salt, _ := hex.DecodeString(start.Salt)
	B, _ := srp.FromHex(start.ServerPublic)
	m1, _ := client.ComputeProof(salt, B)

	time.Sleep(time.Millisecond)

	_, err = env.hs.Complete(ctx, start.SessionID, aHex, hex.EncodeToString(m1))
	require.ErrorIs(t, err, service.ErrSessionExpired)
}
