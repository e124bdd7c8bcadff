package storage

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, base string) *Client {
	t.Helper()
	c, err := New(Config{
		Bucket:          "directory-images",
		Region:          "us-west-2",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
		PublicBaseURL:   base,
	})
	require.NoError(t, err)
	return c
}

func TestObjectKey(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	require.Equal(t, "businesses/b1/1700000000123.jpg", ObjectKey("b1", "photo.jpg", now))
	require.Equal(t, "businesses/b1/1700000000123.gz", ObjectKey("b1", "archive.tar.gz", now))
	require.Equal(t, "businesses/b1/1700000000123.README", ObjectKey("b1", "README", now))
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(Config{})
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestPresignUpload(t *testing.T) {
	c := testClient(t, "")
	now := time.UnixMilli(1700000000000)
	up, err := c.PresignUpload(context.Background(), "b1", "front.png", "image/png", now)
	require.NoError(t, err)
	require.Equal(t, "businesses/b1/1700000000000.png", up.Key)

	u, err := url.Parse(up.URL)
	require.NoError(t, err)
	require.Equal(t, "https", u.Scheme)
	require.True(t, strings.HasSuffix(u.Path, "/"+up.Key), u.Path)
	q := u.Query()
	require.Equal(t, "3600", q.Get("X-Amz-Expires"))
	require.Contains(t, q.Get("X-Amz-Credential"), "us-west-2")
	require.Contains(t, q.Get("X-Amz-SignedHeaders"), "content-type")
	require.NotEmpty(t, q.Get("X-Amz-Signature"))
}

func TestPublicURL(t *testing.T) {
	require.Equal(t, "https://directory-images.s3.amazonaws.com/businesses/b1/1.jpg",
		testClient(t, "").PublicURL("businesses/b1/1.jpg"))
	require.Equal(t, "https://cdn.example.com/businesses/b1/1.jpg",
		testClient(t, "https://cdn.example.com/").PublicURL("businesses/b1/1.jpg"))
}
