package graph

import (
	"time"

	"github.com/graph-gophers/graphql-go"

	"github.com/ovaphlow/pitchfork/service-directory/internal/business"
	bizentity "github.com/ovaphlow/pitchfork/service-directory/internal/business/entity"
	"github.com/ovaphlow/pitchfork/service-directory/internal/user/entity"
)

// timestamps go out as ISO-8601 UTC with millisecond precision
const isoMillis = "2006-01-02T15:04:05.000Z"

func isoTime(t time.Time) string { return t.UTC().Format(isoMillis) }

type userResolver struct {
	u *entity.User
	// nil for owners nested under a business; they expose no businesses
	businesses []*bizentity.Business
}

func (r *userResolver) ID() graphql.ID { return graphql.ID(r.u.ID) }
func (r *userResolver) Email() string { return r.u.Email }
func (r *userResolver) CognitoID() string { return r.u.CognitoID }
func (r *userResolver) FirstName() string { return r.u.FirstName }
func (r *userResolver) LastName() string { return r.u.LastName }
func (r *userResolver) Role() string { return string(entity.ParseRole(string(r.u.Role))) }
func (r *userResolver) CreatedAt() string { return isoTime(r.u.CreatedAt) }
func (r *userResolver) UpdatedAt() string { return isoTime(r.u.UpdatedAt) }

func (r *userResolver) Businesses() []*businessResolver {
	out := make([]*businessResolver, 0, len(r.businesses))
	for _, b := range r.businesses {
		out = append(out, &businessResolver{b: b})
	}
	return out
}

type businessResolver struct {
	b *bizentity.Business
}

func (r *businessResolver) ID() graphql.ID { return graphql.ID(r.b.ID) }
func (r *businessResolver) Name() string { return r.b.Name }
func (r *businessResolver) Description() *string { return r.b.Description }
func (r *businessResolver) Category() *string { return r.b.Category }
func (r *businessResolver) Address() *string { return r.b.Address }
func (r *businessResolver) City() *string { return r.b.City }
func (r *businessResolver) State() *string { return r.b.State }
func (r *businessResolver) ZipCode() *string { return r.b.ZipCode }
func (r *businessResolver) Phone() *string { return r.b.Phone }
func (r *businessResolver) Email() *string { return r.b.Email }
func (r *businessResolver) Website() *string { return r.b.Website }
func (r *businessResolver) IsActive() bool { return r.b.IsActive }
func (r *businessResolver) IsClaimed() bool { return r.b.IsClaimed }
func (r *businessResolver) CreatedAt() string { return isoTime(r.b.CreatedAt) }
func (r *businessResolver) UpdatedAt() string { return isoTime(r.b.UpdatedAt) }

func (r *businessResolver) Owner() *userResolver {
	if r.b.Owner == nil {
		return &userResolver{u: &entity.User{ID: r.b.OwnerID, Role: entity.RolePublic}}
	}
	return &userResolver{u: r.b.Owner}
}

func (r *businessResolver) Images() []*imageResolver {
	out := make([]*imageResolver, 0, len(r.b.Images))
	for _, img := range r.b.Images {
		out = append(out, &imageResolver{img: img})
	}
	return out
}

type imageResolver struct {
	img *bizentity.Image
}

func (r *imageResolver) ID() graphql.ID { return graphql.ID(r.img.ID) }
func (r *imageResolver) URL() string { return r.img.URL }
func (r *imageResolver) Key() string { return r.img.Key }
func (r *imageResolver) Alt() *string { return r.img.Alt }
func (r *imageResolver) IsPrimary() bool { return r.img.IsPrimary }
func (r *imageResolver) CreatedAt() string { return isoTime(r.img.CreatedAt) }
func (r *imageResolver) UpdatedAt() string { return isoTime(r.img.UpdatedAt) }

type connectionResolver struct {
	page *business.Page
}

func (r *connectionResolver) Edges() []*edgeResolver {
	out := make([]*edgeResolver, 0, len(r.page.Items))
	for _, b := range r.page.Items {
		out = append(out, &edgeResolver{b: b})
	}
	return out
}

func (r *connectionResolver) PageInfo() *pageInfoResolver {
	return &pageInfoResolver{hasNext: r.page.HasNextPage}
}

func (r *connectionResolver) TotalCount() int32 { return int32(r.page.TotalCount) }

type edgeResolver struct {
	b *bizentity.Business
}

func (r *edgeResolver) Node() *businessResolver { return &businessResolver{b: r.b} }
func (r *edgeResolver) Cursor() string { return r.b.ID }

type pageInfoResolver struct {
	hasNext bool
}

func (r *pageInfoResolver) HasNextPage() bool { return r.hasNext }
func (r *pageInfoResolver) HasPreviousPage() bool { return false }

type uploadResolver struct {
	url, key string
}

func (r *uploadResolver) UploadURL() string { return r.url }
func (r *uploadResolver) Key() string { return r.key }
