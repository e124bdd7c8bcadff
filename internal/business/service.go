package business

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-directory/internal/auth"
	"github.com/ovaphlow/pitchfork/service-directory/internal/business/entity"
	"github.com/ovaphlow/pitchfork/service-directory/internal/business/repo"
	userentity "github.com/ovaphlow/pitchfork/service-directory/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-directory/pkg/utilities"
)

// Store is the persistence surface of the service. *repo.BusinessRepo
// satisfies it.
type Store interface {
	Ping(ctx context.Context) error
	List(ctx context.Context, f entity.Filters, limit int) ([]*entity.Business, error)
	Count(ctx context.Context, f entity.Filters) (int, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*entity.Business, error)
	GetByID(ctx context.Context, id string) (*entity.Business, error)
	Create(ctx context.Context, b *entity.Business) error
	Update(ctx context.Context, id string, p entity.Patch) (*entity.Business, error)
	Delete(ctx context.Context, id string) (int64, error)
	ImagesFor(ctx context.Context, businessIDs []string) (map[string][]*entity.Image, error)
	OwnersFor(ctx context.Context, ownerIDs []string) (map[string]*userentity.User, error)
	CreateImage(ctx context.Context, img *entity.Image) error
	GetImage(ctx context.Context, id string) (*entity.Image, error)
	DeleteImage(ctx context.Context, id string) (int64, error)
}

// MaxPageSize caps first. The default page size lives in the schema.
const MaxPageSize = 100

// sentinel errors for common failure modes
var (
	ErrNotFound      = errors.New("business not found")
	ErrImageNotFound = errors.New("image not found")
	ErrValidation    = errors.New("invalid input")
	ErrUnavailable   = errors.New("database unavailable")
)

// Service encapsulates the directory rules: listing filters, ownership and
// input validation.
type Service struct {
	repo  Store
	newID func() string
}

func NewService(db *sqlx.DB, r Store) *Service {
	if r == nil {
		r = repo.NewBusinessRepo(db)
	}
	return &Service{repo: r, newID: utilities.NewKSUID}
}

// Page is one slice of a listing. HasNextPage is true when the page is
// full, which may be a false positive when the total is an exact multiple.
type Page struct {
	Items       []*entity.Business
	TotalCount  int
	HasNextPage bool
}

// Health probes the store.
func (s *Service) Health(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// List returns the first `first` active businesses matching f.
func (s *Service) List(ctx context.Context, f entity.Filters, first int) (*Page, error) {
	if first <= 0 {
		return nil, fmt.Errorf("%w: first must be positive", ErrValidation)
	}
	if first > MaxPageSize {
		first = MaxPageSize
	}
	f = entity.Filters{
		Category: strings.TrimSpace(f.Category),
		City:     strings.TrimSpace(f.City),
		State:    strings.TrimSpace(f.State),
		Search:   strings.TrimSpace(f.Search),
	}
	items, err := s.repo.List(ctx, f, first)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.Count(ctx, f)
	if err != nil {
		return nil, err
	}
	if err := s.hydrate(ctx, items); err != nil {
		return nil, err
	}
	return &Page{Items: items, TotalCount: total, HasNextPage: len(items) == first}, nil
}

// Get returns the business with its owner and images. Reads are not
// restricted by ownership.
func (s *Service) Get(ctx context.Context, id string) (*entity.Business, error) {
	b, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.hydrate(ctx, []*entity.Business{b}); err != nil {
		return nil, err
	}
	return b, nil
}

// ListByOwner returns all businesses of a user, including inactive ones.
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]*entity.Business, error) {
	items, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if err := s.hydrate(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

// Create stores a new claimed, active business owned by the caller.
func (s *Service) Create(ctx context.Context, caller *auth.Identity, in entity.Fields) (*entity.Business, error) {
	if caller == nil {
		return nil, auth.ErrUnauthenticated
	}
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	b := &entity.Business{
		ID:          s.newID(),
		OwnerID:     caller.ID,
		Name:        strings.TrimSpace(*in.Name),
		Description: in.Description,
		Category:    in.Category,
		Address:     in.Address,
		City:        in.City,
		State:       in.State,
		ZipCode:     in.ZipCode,
		Phone:       in.Phone,
		Email:       in.Email,
		Website:     in.Website,
		IsActive:    true,
		IsClaimed:   true,
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}
	if err := s.hydrate(ctx, []*entity.Business{b}); err != nil {
		return nil, err
	}
	return b, nil
}

// Update applies a partial update after the ownership check. A null clears
// a nullable column; name may not be cleared or blanked.
func (s *Service) Update(ctx context.Context, caller *auth.Identity, id string, in entity.Patch) (*entity.Business, error) {
	existing, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.CheckOwnership(caller, existing.OwnerID); err != nil {
		return nil, err
	}
	if in.Name.Set {
		if in.Name.Value == nil || strings.TrimSpace(*in.Name.Value) == "" {
			return nil, fmt.Errorf("%w: name cannot be blank", ErrValidation)
		}
		in.Name = entity.Some(strings.TrimSpace(*in.Name.Value))
	}
	b, err := s.repo.Update(ctx, id, in)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := s.hydrate(ctx, []*entity.Business{b}); err != nil {
		return nil, err
	}
	return b, nil
}

// Delete removes a business after the ownership check.
func (s *Service) Delete(ctx context.Context, caller *auth.Identity, id string) error {
	existing, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := auth.CheckOwnership(caller, existing.OwnerID); err != nil {
		return err
	}
	n, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// NewImage describes an uploaded object to attach to a business.
type NewImage struct {
	BusinessID string
	Key        string
	URL        string
	Alt        *string
	IsPrimary  bool
}

// AddImage attaches an uploaded object to a business the caller owns.
func (s *Service) AddImage(ctx context.Context, caller *auth.Identity, in NewImage) (*entity.Image, error) {
	if strings.TrimSpace(in.Key) == "" {
		return nil, fmt.Errorf("%w: key is required", ErrValidation)
	}
	b, err := s.find(ctx, in.BusinessID)
	if err != nil {
		return nil, err
	}
	if err := auth.CheckOwnership(caller, b.OwnerID); err != nil {
		return nil, err
	}
	img := &entity.Image{
		ID:         s.newID(),
		BusinessID: b.ID,
		URL:        in.URL,
		Key:        in.Key,
		Alt:        in.Alt,
		IsPrimary:  in.IsPrimary,
	}
	if err := s.repo.CreateImage(ctx, img); err != nil {
		return nil, err
	}
	return img, nil
}

// DeleteImage removes an image; the caller must own its business.
func (s *Service) DeleteImage(ctx context.Context, caller *auth.Identity, id string) error {
	img, err := s.repo.GetImage(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrImageNotFound
		}
		return err
	}
	b, err := s.find(ctx, img.BusinessID)
	if err != nil {
		return err
	}
	if err := auth.CheckOwnership(caller, b.OwnerID); err != nil {
		return err
	}
	n, err := s.repo.DeleteImage(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrImageNotFound
	}
	return nil
}

func (s *Service) find(ctx context.Context, id string) (*entity.Business, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

// hydrate loads owners and images for items with one query each.
func (s *Service) hydrate(ctx context.Context, items []*entity.Business) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]string, 0, len(items))
	ownerIDs := make([]string, 0, len(items))
	seen := make(map[string]bool)
	for _, b := range items {
		ids = append(ids, b.ID)
		if !seen[b.OwnerID] {
			seen[b.OwnerID] = true
			ownerIDs = append(ownerIDs, b.OwnerID)
		}
	}
	images, err := s.repo.ImagesFor(ctx, ids)
	if err != nil {
		return err
	}
	owners, err := s.repo.OwnersFor(ctx, ownerIDs)
	if err != nil {
		return err
	}
	for _, b := range items {
		b.Images = images[b.ID]
		if b.Images == nil {
			b.Images = []*entity.Image{}
		}
		b.Owner = owners[b.OwnerID]
	}
	return nil
}
