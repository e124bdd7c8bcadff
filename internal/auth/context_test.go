package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-directory/internal/testutil"
	"github.com/ovaphlow/pitchfork/service-directory/internal/user"
	"github.com/ovaphlow/pitchfork/service-directory/internal/user/entity"
)

type failingResolver struct{ calls int }

func (f *failingResolver) Resolve(context.Context, entity.Profile) (*entity.User, error) {
	f.calls++
	return nil, errors.New("connection refused")
}

func bearer(tok string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+tok)
	return h
}

func newTestBuilder(t *testing.T, devBypass bool) (*Builder, *testutil.UserStore) {
	t.Helper()
	store := testutil.NewUserStore()
	return NewBuilder(UnverifiedDecoder{}, user.NewUserService(nil, store), devBypass, nil), store
}

func TestBuildAnonymous(t *testing.T) {
	b, store := newTestBuilder(t, false)
	ctx := context.Background()

	cases := map[string]http.Header{
		"no header":     {},
		"basic scheme":  {"Authorization": []string{"Basic dXNlcjpwYXNz"}},
		"empty bearer":  {"Authorization": []string{"Bearer "}},
		"malformed":     bearer("not-a-jwt"),
		"no subject":    bearer(hsToken(t, jwt.MapClaims{"email": "a@example.com"})),
		"expired token": bearer(hsToken(t, jwt.MapClaims{"sub": "s1", "exp": time.Now().Add(-time.Minute).Unix()})),
	}
	for name, h := range cases {
		rc := b.Build(ctx, h)
		require.NotNil(t, rc, name)
		require.Nil(t, rc.Identity, name)
	}
	require.Equal(t, 0, store.Len())
}

func TestBuildValidToken(t *testing.T) {
	b, store := newTestBuilder(t, false)
	tok := hsToken(t, jwt.MapClaims{
		"sub":         "cog-1",
		"email":       "owner@example.com",
		"given_name":  "Olive",
		"family_name": "Owner",
		"exp":         time.Now().Add(time.Hour).Unix(),
	})

	rc := b.Build(context.Background(), bearer(tok))
	require.NotNil(t, rc.Identity)
	require.Equal(t, "cog-1", rc.Identity.CognitoID)
	require.Equal(t, "owner@example.com", rc.Identity.Email)
	require.Equal(t, entity.RolePublic, rc.Identity.Role)
	require.NotEmpty(t, rc.Identity.ID)

	again := b.Build(context.Background(), bearer(tok))
	require.Equal(t, rc.Identity.ID, again.Identity.ID)
	require.Equal(t, 1, store.Len())
}

func TestBuildKeepsStoredRole(t *testing.T) {
	b, store := newTestBuilder(t, false)
	store.Put(&entity.User{ID: "u-admin", CognitoID: "cog-admin", Email: "root@example.com", Role: entity.RoleAdmin})

	rc := b.Build(context.Background(), bearer(hsToken(t, jwt.MapClaims{"sub": "cog-admin"})))
	require.NotNil(t, rc.Identity)
	require.Equal(t, "u-admin", rc.Identity.ID)
	require.Equal(t, entity.RoleAdmin, rc.Identity.Role)
}

func TestBuildDevBypass(t *testing.T) {
	b, store := newTestBuilder(t, true)
	rc := b.Build(context.Background(), http.Header{})
	require.NotNil(t, rc.Identity)
	require.Equal(t, "dev-user", rc.Identity.CognitoID)
	require.Equal(t, entity.RoleAdmin, rc.Identity.Role)

	// A stale stored role does not downgrade the bypass identity.
	u, err := store.GetByCognitoID(context.Background(), "dev-user")
	require.NoError(t, err)
	u.Role = entity.RolePublic
	store.Remove(u.ID)
	store.Put(u)
	rc = b.Build(context.Background(), http.Header{})
	require.Equal(t, entity.RoleAdmin, rc.Identity.Role)
}

func TestBuildStoreFailureDegradesToAnonymous(t *testing.T) {
	res := &failingResolver{}
	b := NewBuilder(UnverifiedDecoder{}, res, false, nil)
	rc := b.Build(context.Background(), bearer(hsToken(t, jwt.MapClaims{"sub": "s1"})))
	require.Nil(t, rc.Identity)
	require.Equal(t, 1, res.calls)

	// dev bypass failure falls through to token handling
	res = &failingResolver{}
	b = NewBuilder(UnverifiedDecoder{}, res, true, nil)
	rc = b.Build(context.Background(), http.Header{})
	require.Nil(t, rc.Identity)
	require.Equal(t, 1, res.calls)
}

func TestMiddlewareAttachesContext(t *testing.T) {
	b, _ := newTestBuilder(t, false)
	var got *RequestContext
	h := b.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/graphql", nil)
	req.Header.Set("Authorization", "Bearer "+hsToken(t, jwt.MapClaims{"sub": "mw-1"}))
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.NotNil(t, got)
	require.NotNil(t, got.Identity)
	require.Equal(t, "mw-1", got.Identity.CognitoID)
}

func TestFromContextDefaultsToAnonymous(t *testing.T) {
	rc := FromContext(context.Background())
	require.NotNil(t, rc)
	require.Nil(t, rc.Identity)
}
