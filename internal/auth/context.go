package auth

import (
	"context"

	"github.com/mtmsolution/site/internal/token"
)

type visitorKey struct{}
type adminKey struct{}

// AdminContext identifies an authenticated admin session for downstream
// handlers, including the CSRF token bound to the session at lookup time.
type AdminContext struct {
	AdminID   int64
	Username  string
	Role      Role
	SessionID int64
	CSRFToken string
}

func WithClaims(ctx context.Context, c *token.Claims) context.Context {
	return context.WithValue(ctx, visitorKey{}, c)
}

// ClaimsFromContext returns the visitor claims placed by the access gate, or
// nil when the request was not gated.
func ClaimsFromContext(ctx context.Context) *token.Claims {
	c, _ := ctx.Value(visitorKey{}).(*token.Claims)
	return c
}

// SubjectFromContext is a best-effort subject id, "" when unauthenticated.
func SubjectFromContext(ctx context.Context) string {
	if c := ClaimsFromContext(ctx); c != nil {
		return c.Subject
	}
	return ""
}

func WithAdmin(ctx context.Context, ac AdminContext) context.Context {
	return context.WithValue(ctx, adminKey{}, ac)
}

func AdminFromContext(ctx context.Context) (AdminContext, bool) {
	ac, ok := ctx.Value(adminKey{}).(AdminContext)
	return ac, ok
}
