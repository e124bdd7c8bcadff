package graph

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-directory/internal/auth"
	"github.com/ovaphlow/pitchfork/service-directory/internal/business"
	"github.com/ovaphlow/pitchfork/service-directory/internal/storage"
	"github.com/ovaphlow/pitchfork/service-directory/internal/user"
)

// error codes carried in the "code" member of every response error
const (
	CodeUnauthenticated       = "UNAUTHENTICATED"
	CodeForbidden             = "FORBIDDEN"
	CodeNotFound              = "NOT_FOUND"
	CodeDependencyUnavailable = "DEPENDENCY_UNAVAILABLE"
	CodeBadUserInput          = "BAD_USER_INPUT"
	CodeInternal              = "INTERNAL_SERVER_ERROR"
)

// Error is a resolver failure with a client-facing code. It satisfies the
// graphql-go ResolverError interface so the code reaches the response.
type Error struct {
	Code    string
	Message string
	err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.err }

func (e *Error) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": e.Code}
}

func newError(code, msg string, err error) *Error {
	return &Error{Code: code, Message: msg, err: err}
}

// toError maps domain errors to coded errors. Anything unrecognised is
// logged and hidden behind a generic message.
func toError(logger *zap.SugaredLogger, op string, err error) error {
	if err == nil {
		return nil
	}
	var coded *Error
	if errors.As(err, &coded) {
		return coded
	}
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		return newError(CodeUnauthenticated, "Authentication required", err)
	case errors.Is(err, auth.ErrForbidden):
		return newError(CodeForbidden, "Not authorized", err)
	case errors.Is(err, business.ErrNotFound):
		return newError(CodeNotFound, "Business not found", err)
	case errors.Is(err, business.ErrImageNotFound):
		return newError(CodeNotFound, "Image not found", err)
	case errors.Is(err, user.ErrUserNotFound):
		return newError(CodeNotFound, "User not found", err)
	case errors.Is(err, business.ErrValidation):
		return newError(CodeBadUserInput, err.Error(), err)
	case errors.Is(err, business.ErrUnavailable):
		return newError(CodeDependencyUnavailable, "Database connection failed", err)
	case errors.Is(err, storage.ErrNotConfigured):
		return newError(CodeDependencyUnavailable, "Object storage is not configured", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return newError(CodeDependencyUnavailable, "Request cancelled", err)
	}
	logger.Errorw("resolver failed", "op", op, "err", err)
	return newError(CodeInternal, "Internal server error", err)
}
