package authsdk

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/veilauth/veil/pkg/srp"
)

// Client talks to a veil authentication service. It owns the client side
// of the zero-knowledge handshake: callers hand it a password and get a
// session token back, with the password never leaving the process.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Register enrolls a new account. The salt and verifier are derived here,
// client-side, from the password.
func (c *Client) Register(ctx context.Context, email, username, password, tier string) (*RegisterResponse, error) {
	salt, err := srp.NewSalt()
	if err != nil {
		return nil, err
	}
	verifier := srp.DeriveVerifier(password, salt)

	var out RegisterResponse
	err = c.postJSON(ctx, "/v1/register", "", RegisterRequest{
		Email:    email,
		Username: username,
		Salt:     hex.EncodeToString(salt),
		Verifier: srp.ToHex(verifier),
		Tier:     tier,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Login runs the full two-phase handshake and verifies the server's proof
// before trusting the issued token. Mutual authentication: a server that
// does not know the verifier cannot produce a valid proof, so a spoofed
// endpoint gets caught here.
func (c *Client) Login(ctx context.Context, username, password string) (*CompleteResponse, error) {
	session, err := srp.NewClientSession(username, password)
	if err != nil {
		return nil, err
	}
	aHex := srp.ToHex(session.PublicEphemeral())

	var start StartResponse
	err = c.postJSON(ctx, "/v1/auth/start", "", StartRequest{
		Username:              username,
		ClientEphemeralPublic: aHex,
	}, &start)
	if err != nil {
		return nil, err
	}

	salt, err := hex.DecodeString(start.Salt)
	if err != nil {
		return nil, fmt.Errorf("authsdk: server sent invalid salt: %w", err)
	}
	B, err := srp.FromHex(start.ServerEphemeralPublic)
	if err != nil {
		return nil, fmt.Errorf("authsdk: server sent invalid ephemeral: %w", err)
	}

	m1, err := session.ComputeProof(salt, B)
	if err != nil {
		return nil, err
	}

	var complete CompleteResponse
	err = c.postJSON(ctx, "/v1/auth/complete", "", CompleteRequest{
		SessionID:             start.SessionID,
		ClientEphemeralPublic: aHex,
		ClientProof:           hex.EncodeToString(m1),
	}, &complete)
	if err != nil {
		return nil, err
	}

	m2, err := hex.DecodeString(complete.ServerProof)
	if err != nil {
		return nil, fmt.Errorf("authsdk: server sent invalid proof: %w", err)
	}
	ok, err := session.VerifyServerProof(m2)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("authsdk: server failed mutual authentication")
	}

	return &complete, nil
}

// Refresh exchanges a session token for a fresh one.
func (c *Client) Refresh(ctx context.Context, token string) (*RefreshResponse, error) {
	var out RefreshResponse
	if err := c.postJSON(ctx, "/v1/auth/refresh", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout ends the session. Outstanding copies of the token die with it.
func (c *Client) Logout(ctx context.Context, token string) error {
	var out LogoutResponse
	return c.postJSON(ctx, "/v1/auth/logout", token, nil, &out)
}

// User fetches the authenticated account's profile.
func (c *Client) User(ctx context.Context, token string) (*UserProfile, error) {
	var out UserProfile
	if err := c.getJSON(ctx, "/v1/auth/user", token, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) postJSON(ctx context.Context, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.do(req, out)
}

func (c *Client) getJSON(ctx context.Context, path, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("authsdk: request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("authsdk: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseAPIError(resp.StatusCode, payload)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("authsdk: decode response: %w", err)
	}
	return nil
}
