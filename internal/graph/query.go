package graph

import (
	"context"

	"github.com/graph-gophers/graphql-go"

	"github.com/ovaphlow/pitchfork/service-directory/internal/auth"
	bizentity "github.com/ovaphlow/pitchfork/service-directory/internal/business/entity"
)

func (r *Resolver) Health() string {
	return "GraphQL API is running!"
}

func (r *Resolver) HealthDB(ctx context.Context) (string, error) {
	if err := r.businesses.Health(ctx); err != nil {
		r.logger.Warnw("database health check failed", "err", err)
		return "", r.fail("healthDb", err)
	}
	return "Database connection successful!", nil
}

// Me returns the caller with every business they own, active or not.
func (r *Resolver) Me(ctx context.Context) (*userResolver, error) {
	id, err := auth.RequireIdentified(auth.FromContext(ctx))
	if err != nil {
		return nil, r.fail("me", err)
	}
	u, err := r.users.Get(ctx, id.ID)
	if err != nil {
		return nil, r.fail("me", err)
	}
	owned, err := r.businesses.ListByOwner(ctx, u.ID)
	if err != nil {
		return nil, r.fail("me", err)
	}
	return &userResolver{u: u, businesses: owned}, nil
}

type BusinessFilters struct {
	Category *string
	Search   *string
	City     *string
	State    *string
}

func (f *BusinessFilters) toEntity() bizentity.Filters {
	if f == nil {
		return bizentity.Filters{}
	}
	return bizentity.Filters{
		Category: deref(f.Category),
		City:     deref(f.City),
		State:    deref(f.State),
		Search:   deref(f.Search),
	}
}

// BusinessesArgs mirrors businesses(first: Int = 10, filters). An argument
// with a default is never null, so First is a plain int32.
type BusinessesArgs struct {
	First   int32
	Filters *BusinessFilters
}

func (r *Resolver) Businesses(ctx context.Context, args BusinessesArgs) (*connectionResolver, error) {
	page, err := r.businesses.List(ctx, args.Filters.toEntity(), int(args.First))
	if err != nil {
		return nil, r.fail("businesses", err)
	}
	return &connectionResolver{page: page}, nil
}

type BusinessArgs struct {
	ID graphql.ID
}

func (r *Resolver) Business(ctx context.Context, args BusinessArgs) (*businessResolver, error) {
	b, err := r.businesses.Get(ctx, string(args.ID))
	if err != nil {
		return nil, r.fail("business", err)
	}
	return &businessResolver{b: b}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
