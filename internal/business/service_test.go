package business_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-directory/internal/auth"
	"github.com/ovaphlow/pitchfork/service-directory/internal/business"
	"github.com/ovaphlow/pitchfork/service-directory/internal/business/entity"
	"github.com/ovaphlow/pitchfork/service-directory/internal/testutil"
	userentity "github.com/ovaphlow/pitchfork/service-directory/internal/user/entity"
)

type fixture struct {
	svc   *business.Service
	store *testutil.BusinessStore
	owner *auth.Identity
	other *auth.Identity
	admin *auth.Identity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := testutil.NewUserStore()
	users.Put(&userentity.User{ID: "owner", CognitoID: "c-owner", Email: "owner@example.com", Role: userentity.RoleBusinessOwner})
	users.Put(&userentity.User{ID: "other", CognitoID: "c-other", Email: "other@example.com", Role: userentity.RolePublic})
	users.Put(&userentity.User{ID: "admin", CognitoID: "c-admin", Email: "admin@example.com", Role: userentity.RoleAdmin})
	store := testutil.NewBusinessStore(users)
	return &fixture{
		svc:   business.NewService(nil, store),
		store: store,
		owner: &auth.Identity{ID: "owner", Role: userentity.RoleBusinessOwner},
		other: &auth.Identity{ID: "other", Role: userentity.RolePublic},
		admin: &auth.Identity{ID: "admin", Role: userentity.RoleAdmin},
	}
}

func str(s string) *string { return &s }

func (f *fixture) create(t *testing.T, in entity.Fields) *entity.Business {
	t.Helper()
	b, err := f.svc.Create(context.Background(), f.owner, in)
	require.NoError(t, err)
	return b
}

func TestListPaging(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 5; i++ {
		f.create(t, entity.Fields{Name: str(fmt.Sprintf("Shop %d", i))})
	}

	page, err := f.svc.List(context.Background(), entity.Filters{}, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.Equal(t, 5, page.TotalCount)
	require.True(t, page.HasNextPage)
	// newest first
	require.Equal(t, "Shop 4", page.Items[0].Name)
	require.Equal(t, "Shop 3", page.Items[1].Name)

	page, err = f.svc.List(context.Background(), entity.Filters{}, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 5)
	require.False(t, page.HasNextPage)
}

func TestListRejectsNonPositiveFirst(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.List(context.Background(), entity.Filters{}, 0)
	require.ErrorIs(t, err, business.ErrValidation)
	_, err = f.svc.List(context.Background(), entity.Filters{}, -3)
	require.ErrorIs(t, err, business.ErrValidation)
}

func TestListSearchMatchesNameOrDescription(t *testing.T) {
	f := newFixture(t)
	f.create(t, entity.Fields{Name: str("Blue Cafe")})
	f.create(t, entity.Fields{Name: str("Bakery"), Description: str("A small CAFE and bakery")})
	f.create(t, entity.Fields{Name: str("Hardware Store"), Description: str("Tools")})

	page, err := f.svc.List(context.Background(), entity.Filters{Search: " cafe "}, 10)
	require.NoError(t, err)
	require.Equal(t, 2, page.TotalCount)
	names := []string{page.Items[0].Name, page.Items[1].Name}
	require.ElementsMatch(t, []string{"Blue Cafe", "Bakery"}, names)
}

func TestListFiltersAndHidesInactive(t *testing.T) {
	f := newFixture(t)
	f.create(t, entity.Fields{Name: str("A"), Category: str("Restaurant"), City: str("Austin"), State: str("TX")})
	f.create(t, entity.Fields{Name: str("B"), Category: str("Retail"), City: str("Austin"), State: str("TX")})
	hidden := f.create(t, entity.Fields{Name: str("C"), Category: str("Restaurant"), City: str("Austin")})
	_, err := f.svc.Update(context.Background(), f.owner, hidden.ID, entity.Patch{IsActive: entity.Some(false)})
	require.NoError(t, err)

	page, err := f.svc.List(context.Background(), entity.Filters{Category: "restaurant", City: "aus"}, 10)
	require.NoError(t, err)
	require.Equal(t, 1, page.TotalCount)
	require.Equal(t, "A", page.Items[0].Name)

	// the owner still sees the inactive one
	mine, err := f.svc.ListByOwner(context.Background(), "owner")
	require.NoError(t, err)
	require.Len(t, mine, 3)
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	b := f.create(t, entity.Fields{Name: str("  Corner Shop  "), City: str("Denver")})
	require.NotEmpty(t, b.ID)
	require.Equal(t, "Corner Shop", b.Name)
	require.Equal(t, "owner", b.OwnerID)
	require.True(t, b.IsActive)
	require.True(t, b.IsClaimed)
	require.NotNil(t, b.Owner)
	require.Equal(t, "owner@example.com", b.Owner.Email)
	require.NotNil(t, b.Images)
	require.Empty(t, b.Images)
}

func TestCreateRejectsBlankNameBeforePersisting(t *testing.T) {
	f := newFixture(t)
	for _, name := range []*string{nil, str(""), str("   ")} {
		_, err := f.svc.Create(context.Background(), f.owner, entity.Fields{Name: name})
		require.ErrorIs(t, err, business.ErrValidation)
	}
	require.Equal(t, 0, f.store.Len())

	_, err := f.svc.Create(context.Background(), nil, entity.Fields{Name: str("x")})
	require.ErrorIs(t, err, auth.ErrUnauthenticated)
	require.Equal(t, 0, f.store.Len())
}

func TestUpdateOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, entity.Fields{Name: str("Original"), Phone: str("555-0100")})

	_, err := f.svc.Update(ctx, f.other, b.ID, entity.Patch{Name: entity.Some("Hijacked")})
	require.ErrorIs(t, err, auth.ErrForbidden)
	got, err := f.svc.Get(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, "Original", got.Name)

	_, err = f.svc.Update(ctx, nil, b.ID, entity.Patch{Name: entity.Some("Anon")})
	require.ErrorIs(t, err, auth.ErrUnauthenticated)

	updated, err := f.svc.Update(ctx, f.owner, b.ID, entity.Patch{Name: entity.Some("Renamed")})
	require.NoError(t, err)
	require.Equal(t, "Renamed", updated.Name)
	require.Equal(t, "555-0100", *updated.Phone)

	updated, err = f.svc.Update(ctx, f.admin, b.ID, entity.Patch{City: entity.Some("Boise")})
	require.NoError(t, err)
	require.Equal(t, "Boise", *updated.City)
	require.Equal(t, "Renamed", updated.Name)
}

func TestUpdateValidation(t *testing.T) {
	f := newFixture(t)
	b := f.create(t, entity.Fields{Name: str("Keep")})

	_, err := f.svc.Update(context.Background(), f.owner, b.ID, entity.Patch{Name: entity.Some(" ")})
	require.ErrorIs(t, err, business.ErrValidation)
	got, err := f.svc.Get(context.Background(), b.ID)
	require.NoError(t, err)
	require.Equal(t, "Keep", got.Name)

	_, err = f.svc.Update(context.Background(), f.owner, b.ID, entity.Patch{Name: entity.Null[string]()})
	require.ErrorIs(t, err, business.ErrValidation)

	_, err = f.svc.Update(context.Background(), f.owner, "missing", entity.Patch{Name: entity.Some("x")})
	require.ErrorIs(t, err, business.ErrNotFound)
}

func TestUpdateClearsSuppliedNulls(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, entity.Fields{Name: str("Shop"), Description: str("old desc"), Phone: str("555-0100")})

	updated, err := f.svc.Update(ctx, f.owner, b.ID, entity.Patch{Description: entity.Null[string]()})
	require.NoError(t, err)
	require.Nil(t, updated.Description)
	require.Equal(t, "555-0100", *updated.Phone)
	require.Equal(t, "Shop", updated.Name)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, entity.Fields{Name: str("Gone Soon")})

	require.ErrorIs(t, f.svc.Delete(ctx, f.other, b.ID), auth.ErrForbidden)
	require.Equal(t, 1, f.store.Len())

	require.NoError(t, f.svc.Delete(ctx, f.owner, b.ID))
	_, err := f.svc.Get(ctx, b.ID)
	require.ErrorIs(t, err, business.ErrNotFound)

	require.ErrorIs(t, f.svc.Delete(ctx, f.owner, b.ID), business.ErrNotFound)
}

func TestImages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, entity.Fields{Name: str("Gallery")})

	_, err := f.svc.AddImage(ctx, f.other, business.NewImage{BusinessID: b.ID, Key: "k", URL: "u"})
	require.ErrorIs(t, err, auth.ErrForbidden)

	_, err = f.svc.AddImage(ctx, f.owner, business.NewImage{BusinessID: "missing", Key: "k", URL: "u"})
	require.ErrorIs(t, err, business.ErrNotFound)

	_, err = f.svc.AddImage(ctx, f.owner, business.NewImage{BusinessID: b.ID, URL: "u"})
	require.ErrorIs(t, err, business.ErrValidation)
	require.Equal(t, 0, f.store.ImageCount())

	img, err := f.svc.AddImage(ctx, f.owner, business.NewImage{
		BusinessID: b.ID, Key: "businesses/x/1.jpg", URL: "https://cdn/x.jpg", Alt: str("front"), IsPrimary: true,
	})
	require.NoError(t, err)
	require.True(t, img.IsPrimary)

	got, err := f.svc.Get(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, got.Images, 1)
	require.Equal(t, img.ID, got.Images[0].ID)

	require.ErrorIs(t, f.svc.DeleteImage(ctx, f.other, img.ID), auth.ErrForbidden)
	require.NoError(t, f.svc.DeleteImage(ctx, f.admin, img.ID))
	require.ErrorIs(t, f.svc.DeleteImage(ctx, f.owner, img.ID), business.ErrImageNotFound)
}

func TestDeleteCascadesImages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, entity.Fields{Name: str("Cascade")})
	_, err := f.svc.AddImage(ctx, f.owner, business.NewImage{BusinessID: b.ID, Key: "k1", URL: "u1"})
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, f.owner, b.ID))
	require.Equal(t, 0, f.store.ImageCount())
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.Health(context.Background()))
	f.store.PingErr = errors.New("dial tcp: refused")
	require.ErrorIs(t, f.svc.Health(context.Background()), business.ErrUnavailable)
}
