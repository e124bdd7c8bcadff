package auth

import (
	"context"

	"github.com/ovaphlow/pitchfork/service-directory/internal/user/entity"
)

// Identity is the caller as resolved for one request. It is derived once
// per request and not modified afterwards.
type Identity struct {
	ID        string
	CognitoID string
	Email     string
	Role      entity.Role
}

func identityFromUser(u *entity.User) *Identity {
	return &Identity{ID: u.ID, CognitoID: u.CognitoID, Email: u.Email, Role: entity.ParseRole(string(u.Role))}
}

// RequestContext is the per-request state handed to resolvers. A nil
// Identity means an anonymous caller.
type RequestContext struct {
	Identity *Identity
}

// unexported, collision-proof context key
type requestContextKey struct{}

// WithRequestContext stores rc in ctx.
func WithRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// FromContext returns the request context stored in ctx, or an anonymous
// one when none was attached.
func FromContext(ctx context.Context) *RequestContext {
	if rc, ok := ctx.Value(requestContextKey{}).(*RequestContext); ok && rc != nil {
		return rc
	}
	return &RequestContext{}
}
