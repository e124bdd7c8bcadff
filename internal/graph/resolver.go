// Package graph serves the directory GraphQL API.
package graph

import (
	"context"
	_ "embed"
	"time"

	"github.com/graph-gophers/graphql-go"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-directory/internal/business"
	"github.com/ovaphlow/pitchfork/service-directory/internal/storage"
	"github.com/ovaphlow/pitchfork/service-directory/internal/user"
)

//go:embed schema.graphql
var schemaSDL string

// Uploads is the object storage surface resolvers use. *storage.Client
// satisfies it.
type Uploads interface {
	PresignUpload(ctx context.Context, businessID, fileName, contentType string, now time.Time) (*storage.Upload, error)
	PublicURL(key string) string
}

// Resolver is the root of both Query and Mutation. Its collaborators are
// constructed once at startup and shared by all requests.
type Resolver struct {
	businesses *business.Service
	users      *user.UserService
	uploads    Uploads
	logger     *zap.SugaredLogger
	now        func() time.Time
}

// NewResolver builds the root resolver. uploads may be nil when no bucket is
// configured; upload operations then fail with DEPENDENCY_UNAVAILABLE.
func NewResolver(businesses *business.Service, users *user.UserService, uploads Uploads, logger *zap.SugaredLogger) *Resolver {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Resolver{businesses: businesses, users: users, uploads: uploads, logger: logger, now: time.Now}
}

// NewSchema parses the embedded SDL against r.
func NewSchema(r *Resolver) (*graphql.Schema, error) {
	return graphql.ParseSchema(schemaSDL, r, graphql.MaxDepth(12))
}

func (r *Resolver) fail(op string, err error) error {
	return toError(r.logger, op, err)
}
