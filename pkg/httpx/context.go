package httpx

import "context"

type ctxKey string

const (
	CtxKeyUserID        ctxKey = "user_id"
	CtxKeyIdentityToken ctxKey = "identity_token"
)

// UserIDFromContext returns the authenticated internal user id, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(CtxKeyUserID).(string)
	return v, ok
}

// IdentityTokenFromContext returns the verified upstream identity token
// carried by the current session, if any. Proxy handlers forward it as the
// downstream bearer credential.
func IdentityTokenFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(CtxKeyIdentityToken).(string)
	return v, ok
}

// ContextWithSession attaches the session's user id and identity token.
func ContextWithSession(ctx context.Context, userID, identityToken string) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, userID)
	ctx = context.WithValue(ctx, CtxKeyIdentityToken, identityToken)
	return ctx
}
