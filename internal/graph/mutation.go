package graph

import (
	"context"

	"github.com/graph-gophers/graphql-go"

	"github.com/ovaphlow/pitchfork/service-directory/internal/auth"
	"github.com/ovaphlow/pitchfork/service-directory/internal/business"
	bizentity "github.com/ovaphlow/pitchfork/service-directory/internal/business/entity"
	"github.com/ovaphlow/pitchfork/service-directory/internal/storage"
)

type CreateBusinessInput struct {
	Name        string
	Description *string
	Category    *string
	Address     *string
	City        *string
	State       *string
	ZipCode     *string
	Phone       *string
	Email       *string
	Website     *string
}

type CreateBusinessArgs struct {
	Input CreateBusinessInput
}

func (r *Resolver) CreateBusiness(ctx context.Context, args CreateBusinessArgs) (*businessResolver, error) {
	caller, err := auth.RequireIdentified(auth.FromContext(ctx))
	if err != nil {
		return nil, r.fail("createBusiness", err)
	}
	in := args.Input
	b, err := r.businesses.Create(ctx, caller, bizentity.Fields{
		Name:        &in.Name,
		Description: in.Description,
		Category:    in.Category,
		Address:     in.Address,
		City:        in.City,
		State:       in.State,
		ZipCode:     in.ZipCode,
		Phone:       in.Phone,
		Email:       in.Email,
		Website:     in.Website,
	})
	if err != nil {
		return nil, r.fail("createBusiness", err)
	}
	r.logger.Infow("business created", "id", b.ID, "owner", caller.ID)
	return &businessResolver{b: b}, nil
}

// UpdateBusinessInput keeps omitted fields apart from explicit nulls: an
// omitted field is left alone, a null one is cleared.
type UpdateBusinessInput struct {
	Name        graphql.NullString
	Description graphql.NullString
	Category    graphql.NullString
	Address     graphql.NullString
	City        graphql.NullString
	State       graphql.NullString
	ZipCode     graphql.NullString
	Phone       graphql.NullString
	Email       graphql.NullString
	Website     graphql.NullString
	IsActive    graphql.NullBool
}

func (in UpdateBusinessInput) toPatch() bizentity.Patch {
	str := func(v graphql.NullString) bizentity.Optional[string] {
		return bizentity.Optional[string]{Set: v.Set, Value: v.Value}
	}
	return bizentity.Patch{
		Name:        str(in.Name),
		Description: str(in.Description),
		Category:    str(in.Category),
		Address:     str(in.Address),
		City:        str(in.City),
		State:       str(in.State),
		ZipCode:     str(in.ZipCode),
		Phone:       str(in.Phone),
		Email:       str(in.Email),
		Website:     str(in.Website),
		IsActive:    bizentity.Optional[bool]{Set: in.IsActive.Set, Value: in.IsActive.Value},
	}
}

type UpdateBusinessArgs struct {
	ID    graphql.ID
	Input UpdateBusinessInput
}

func (r *Resolver) UpdateBusiness(ctx context.Context, args UpdateBusinessArgs) (*businessResolver, error) {
	caller, err := auth.RequireIdentified(auth.FromContext(ctx))
	if err != nil {
		return nil, r.fail("updateBusiness", err)
	}
	b, err := r.businesses.Update(ctx, caller, string(args.ID), args.Input.toPatch())
	if err != nil {
		return nil, r.fail("updateBusiness", err)
	}
	return &businessResolver{b: b}, nil
}

type IDArgs struct {
	ID graphql.ID
}

func (r *Resolver) DeleteBusiness(ctx context.Context, args IDArgs) (bool, error) {
	caller, err := auth.RequireIdentified(auth.FromContext(ctx))
	if err != nil {
		return false, r.fail("deleteBusiness", err)
	}
	if err := r.businesses.Delete(ctx, caller, string(args.ID)); err != nil {
		return false, r.fail("deleteBusiness", err)
	}
	r.logger.Infow("business deleted", "id", args.ID, "by", caller.ID)
	return true, nil
}

type GenerateUploadURLArgs struct {
	BusinessID  graphql.ID
	FileName    string
	ContentType string
}

// GenerateUploadURL hands out a one hour PUT URL. Nothing is recorded until
// the client calls addBusinessImage with the returned key.
func (r *Resolver) GenerateUploadURL(ctx context.Context, args GenerateUploadURLArgs) (*uploadResolver, error) {
	if _, err := auth.RequireIdentified(auth.FromContext(ctx)); err != nil {
		return nil, r.fail("generateUploadUrl", err)
	}
	if r.uploads == nil {
		return nil, r.fail("generateUploadUrl", storage.ErrNotConfigured)
	}
	up, err := r.uploads.PresignUpload(ctx, string(args.BusinessID), args.FileName, args.ContentType, r.now())
	if err != nil {
		r.logger.Errorw("generate upload url failed", "business", args.BusinessID, "err", err)
		return nil, newError(CodeInternal, "Failed to generate upload URL", err)
	}
	return &uploadResolver{url: up.URL, key: up.Key}, nil
}

type AddBusinessImageArgs struct {
	BusinessID graphql.ID
	Key        string
	Alt        *string
	IsPrimary  *bool
}

func (r *Resolver) AddBusinessImage(ctx context.Context, args AddBusinessImageArgs) (*imageResolver, error) {
	caller, err := auth.RequireIdentified(auth.FromContext(ctx))
	if err != nil {
		return nil, r.fail("addBusinessImage", err)
	}
	if r.uploads == nil {
		return nil, r.fail("addBusinessImage", storage.ErrNotConfigured)
	}
	img, err := r.businesses.AddImage(ctx, caller, business.NewImage{
		BusinessID: string(args.BusinessID),
		Key:        args.Key,
		URL:        r.uploads.PublicURL(args.Key),
		Alt:        args.Alt,
		IsPrimary:  args.IsPrimary != nil && *args.IsPrimary,
	})
	if err != nil {
		return nil, r.fail("addBusinessImage", err)
	}
	return &imageResolver{img: img}, nil
}

func (r *Resolver) DeleteBusinessImage(ctx context.Context, args IDArgs) (bool, error) {
	caller, err := auth.RequireIdentified(auth.FromContext(ctx))
	if err != nil {
		return false, r.fail("deleteBusinessImage", err)
	}
	if err := r.businesses.DeleteImage(ctx, caller, string(args.ID)); err != nil {
		return false, r.fail("deleteBusinessImage", err)
	}
	return true, nil
}
