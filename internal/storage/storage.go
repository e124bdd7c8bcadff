// Package storage hands out pre-signed upload URLs for business images and
// builds the public URL of an uploaded object.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// UploadTTL is how long a pre-signed upload URL stays valid.
const UploadTTL = time.Hour

var ErrNotConfigured = errors.New("object storage is not configured")

type Config struct {
	Bucket string
	Region string
	// Endpoint is host[:port]; empty means AWS S3.
	Endpoint string
	// Secure selects https for a custom endpoint.
	Secure          bool
	AccessKeyID     string
	SecretAccessKey string
	// PublicBaseURL overrides https://<bucket>.s3.amazonaws.com.
	PublicBaseURL string
}

// Upload is what a client needs to PUT an object.
type Upload struct {
	URL string
	Key string
}

type Client struct {
	mc      *minio.Client
	bucket  string
	baseURL string
}

func New(cfg Config) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, ErrNotConfigured
	}
	endpoint := cfg.Endpoint
	secure := cfg.Secure
	if endpoint == "" {
		endpoint = "s3.amazonaws.com"
		secure = true
	}

	// Static keys when given, otherwise the usual AWS environment and
	// instance-role chain.
	var creds *credentials.Credentials
	if cfg.AccessKeyID != "" {
		creds = credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	} else {
		creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.EnvMinio{},
			&credentials.FileAWSCredentials{},
			&credentials.IAM{},
		})
	}

	// With Region set, presigning is computed locally and never asks the
	// server for the bucket location.
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	mc, err := minio.New(endpoint, &minio.Options{
		Creds:  creds,
		Secure: secure,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	base := strings.TrimSuffix(cfg.PublicBaseURL, "/")
	if base == "" {
		base = fmt.Sprintf("https://%s.s3.amazonaws.com", cfg.Bucket)
	}
	return &Client{mc: mc, bucket: cfg.Bucket, baseURL: base}, nil
}

// ObjectKey builds businesses/<businessID>/<unixMillis>.<ext>. ext is the
// text after the last dot of fileName, or the whole name when it has none.
func ObjectKey(businessID, fileName string, now time.Time) string {
	ext := fileName
	if i := strings.LastIndex(fileName, "."); i >= 0 {
		ext = fileName[i+1:]
	}
	return fmt.Sprintf("businesses/%s/%d.%s", businessID, now.UnixMilli(), ext)
}

// PresignUpload returns a PUT URL valid for UploadTTL. The content type is
// part of the signature, so the client must send the same header.
func (c *Client) PresignUpload(ctx context.Context, businessID, fileName, contentType string, now time.Time) (*Upload, error) {
	key := ObjectKey(businessID, fileName, now)
	var headers http.Header
	if contentType != "" {
		headers = http.Header{"Content-Type": []string{contentType}}
	}
	u, err := c.mc.PresignHeader(ctx, http.MethodPut, c.bucket, key, UploadTTL, url.Values{}, headers)
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w", err)
	}
	return &Upload{URL: u.String(), Key: key}, nil
}

// PublicURL is where an uploaded object is served from.
func (c *Client) PublicURL(key string) string {
	return c.baseURL + "/" + strings.TrimPrefix(key, "/")
}
