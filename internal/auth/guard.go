package auth

import (
	"errors"

	"github.com/ovaphlow/pitchfork/service-directory/internal/user/entity"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("not authorized")
)

// RequireIdentified returns the caller or ErrUnauthenticated.
func RequireIdentified(rc *RequestContext) (*Identity, error) {
	if rc == nil || rc.Identity == nil {
		return nil, ErrUnauthenticated
	}
	return rc.Identity, nil
}

// RequireElevated returns the caller if it holds the ADMIN role.
func RequireElevated(rc *RequestContext) (*Identity, error) {
	id, err := RequireIdentified(rc)
	if err != nil {
		return nil, err
	}
	if id.Role != entity.RoleAdmin {
		return nil, ErrForbidden
	}
	return id, nil
}

// CheckOwnership allows the owner of a resource and admins.
func CheckOwnership(id *Identity, ownerID string) error {
	if id == nil {
		return ErrUnauthenticated
	}
	if id.ID == ownerID || id.Role == entity.RoleAdmin {
		return nil
	}
	return ErrForbidden
}
