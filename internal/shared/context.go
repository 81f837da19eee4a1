package shared

import "context"

type sessionContextKey struct{}

type principalContextKey struct{}

// Principal is the authenticated actor of a single request.
type Principal struct {
	UserID int64
	Email  string
	Role   Role
}

// Authenticated reports whether the principal belongs to a logged-in user.
func (p *Principal) Authenticated() bool {
	return p != nil && p.UserID != 0 && p.Role.Valid()
}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// ContextWithPrincipal stores the request principal in context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext returns the request principal or nil for anonymous requests.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}
