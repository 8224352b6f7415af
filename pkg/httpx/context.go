package httpx

import "context"

type ctxKey string

const (
	CtxKeyUserID   ctxKey = "user_id"
	CtxKeyUsername ctxKey = "username"
	CtxKeyToken    ctxKey = "token"
)

// UserIDFromContext returns the authenticated user id set by the session
// gate, or "" for unauthenticated requests.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUserID).(string); ok {
		return v
	}
	return ""
}

// TokenFromContext returns the raw bearer token the session gate accepted.
func TokenFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyToken).(string); ok {
		return v
	}
	return ""
}
