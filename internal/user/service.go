package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/singleflight"

	"github.com/ovaphlow/pitchfork/service-directory/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-directory/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-directory/pkg/utilities"
)

// Store is the persistence surface the service needs. *repo.UserRepo
// satisfies it; tests use an in-memory version.
type Store interface {
	Upsert(ctx context.Context, id string, p entity.Profile) (*entity.User, error)
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByCognitoID(ctx context.Context, cognitoID string) (*entity.User, error)
}

// UserService maps identity-provider subjects to persisted users.
type UserService struct {
	repo  Store
	group singleflight.Group
	newID func() string
}

func NewUserService(db *sqlx.DB, r Store) *UserService {
	if r == nil {
		r = userrepo.NewUserRepo(db)
	}
	return &UserService{repo: r, newID: utilities.NewKSUID}
}

// resolveTimeout bounds a shared lookup, which outlives any one caller.
const resolveTimeout = 10 * time.Second

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrMissingSubject = errors.New("missing subject")
)

// Resolve returns the user for p.CognitoID, creating it on first sight.
// Creation goes through the store's atomic upsert; concurrent calls in this
// process for the same subject share one round trip.
func (s *UserService) Resolve(ctx context.Context, p entity.Profile) (*entity.User, error) {
	if p.CognitoID == "" {
		return nil, ErrMissingSubject
	}
	if p.Role == "" {
		p.Role = entity.RolePublic
	}
	ch := s.group.DoChan(p.CognitoID, func() (any, error) {
		// callers share this lookup, so one of them going away must not
		// cancel it for the rest
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), resolveTimeout)
		defer cancel()
		u, err := s.repo.GetByCognitoID(ctx, p.CognitoID)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("lookup user: %w", err)
		}
		u, err = s.repo.Upsert(ctx, s.newID(), p)
		if err != nil {
			return nil, fmt.Errorf("upsert user: %w", err)
		}
		return u, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*entity.User), nil
	}
}

// Get returns the user by internal id.
func (s *UserService) Get(ctx context.Context, id string) (*entity.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}
