package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-directory/internal/user/entity"
)

// UserResolver maps a token subject to a persisted user, creating it on
// first sight. *user.UserService satisfies it.
type UserResolver interface {
	Resolve(ctx context.Context, p entity.Profile) (*entity.User, error)
}

// devProfile is the fixed identity attached to every request when the
// local development bypass is on.
var devProfile = entity.Profile{
	CognitoID: "dev-user",
	Email:     "dev@example.com",
	FirstName: "Dev",
	LastName:  "User",
	Role:      entity.RoleAdmin,
}

// Builder derives the caller identity of each request.
type Builder struct {
	decoder   Decoder
	users     UserResolver
	devBypass bool
	logger    *zap.SugaredLogger
	now       func() time.Time
}

// NewBuilder constructs a Builder. devBypass is fixed for the lifetime of
// the process; callers decide it once at startup.
func NewBuilder(decoder Decoder, users UserResolver, devBypass bool, logger *zap.SugaredLogger) *Builder {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Builder{decoder: decoder, users: users, devBypass: devBypass, logger: logger, now: time.Now}
}

// Build never fails: anything that prevents resolving an identity yields
// an anonymous context, and guarded operations then refuse the caller.
func (b *Builder) Build(ctx context.Context, h http.Header) *RequestContext {
	rc := &RequestContext{}

	if b.devBypass {
		u, err := b.users.Resolve(ctx, devProfile)
		if err == nil {
			id := identityFromUser(u)
			id.Role = entity.RoleAdmin
			rc.Identity = id
			return rc
		}
		b.logger.Errorw("dev bypass failed to attach user", "err", err)
	}

	header := h.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return rc
	}
	raw := strings.TrimSpace(header[len("Bearer "):])
	if raw == "" {
		return rc
	}

	claims, err := b.decoder.Decode(ctx, raw)
	if err != nil {
		b.logger.Debugw("token rejected", "err", err)
		return rc
	}
	if claims.Subject == "" {
		b.logger.Debugw("token has no subject")
		return rc
	}
	if claims.Expired(b.now()) {
		b.logger.Debugw("token expired", "sub", claims.Subject, "exp", claims.ExpiresAt)
		return rc
	}

	u, err := b.users.Resolve(ctx, entity.Profile{
		CognitoID: claims.Subject,
		Email:     claims.Email,
		FirstName: claims.GivenName,
		LastName:  claims.FamilyName,
		Role:      entity.RolePublic,
	})
	if err != nil {
		b.logger.Errorw("resolve user failed", "sub", claims.Subject, "err", err)
		return rc
	}
	rc.Identity = identityFromUser(u)
	return rc
}

// Middleware attaches the built RequestContext to every request.
func (b *Builder) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc := b.Build(r.Context(), r.Header)
		next.ServeHTTP(w, r.WithContext(WithRequestContext(r.Context(), rc)))
	})
}
