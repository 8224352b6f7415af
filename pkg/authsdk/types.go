package authsdk

// RegisterRequest enrolls a new account. Salt and Verifier are derived on
// the client from the password; the password itself never goes over the
// wire. Both are lowercase hex.
type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Salt     string `json:"salt"`
	Verifier string `json:"verifier"`
	Tier     string `json:"tier,omitempty"`
}

type RegisterResponse struct {
	Success bool   `json:"success"`
	UserID  string `json:"userId"`
	Message string `json:"message,omitempty"`
}

// StartRequest opens a login handshake. ClientEphemeralPublic is A, hex.
type StartRequest struct {
	Username              string `json:"username"`
	ClientEphemeralPublic string `json:"clientEphemeralPublic"`
}

type StartResponse struct {
	SessionID             string `json:"sessionId"`
	Salt                  string `json:"salt"`
	ServerEphemeralPublic string `json:"serverEphemeralPublic"`
}

// CompleteRequest settles the handshake. The client resends A alongside
// its proof M1, both hex.
type CompleteRequest struct {
	SessionID             string `json:"sessionId"`
	ClientEphemeralPublic string `json:"clientEphemeralPublic"`
	ClientProof           string `json:"clientProof"`
}

type CompleteResponse struct {
	Success     bool        `json:"success"`
	Token       string      `json:"token"`
	ServerProof string      `json:"serverProof"`
	User        UserProfile `json:"user"`
}

// UserProfile is the public view of an account.
type UserProfile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Tier     string `json:"tier"`
}

type RefreshResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
}

type LogoutResponse struct {
	Success bool `json:"success"`
}

// HealthResponse is returned by the /livez and /readyz probes.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

type HealthChecks struct {
	Database  string `json:"database"`
	Signer    string `json:"signer"`
	Handshake string `json:"handshake,omitempty"`
}
