// Package testutil holds in-memory stores that stand in for PostgreSQL in
// service, auth and GraphQL tests.
package testutil

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	bizentity "github.com/ovaphlow/pitchfork/service-directory/internal/business/entity"
	"github.com/ovaphlow/pitchfork/service-directory/internal/user/entity"
)

// clock hands out strictly increasing timestamps so creation order is
// deterministic.
type clock struct {
	mu   sync.Mutex
	next time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.next.IsZero() {
		c.next = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	c.next = c.next.Add(time.Second)
	return c.next
}

// UserStore is an in-memory user.Store. Upsert is atomic under one mutex,
// mirroring the unique index on cognito_id.
type UserStore struct {
	mu      sync.Mutex
	clock   clock
	byID    map[string]*entity.User
	bySub   map[string]string
	Inserts int
	// Err, when set, is returned by every call.
	Err error
}

func NewUserStore() *UserStore {
	return &UserStore{byID: map[string]*entity.User{}, bySub: map[string]string{}}
}

func (s *UserStore) Upsert(_ context.Context, id string, p entity.Profile) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if existing, ok := s.bySub[p.CognitoID]; ok {
		u := *s.byID[existing]
		return &u, nil
	}
	now := s.clock.now()
	u := &entity.User{
		ID: id, CognitoID: p.CognitoID, Email: p.Email, FirstName: p.FirstName, LastName: p.LastName,
		Role: p.Role, CreatedAt: now, UpdatedAt: now,
	}
	s.byID[id] = u
	s.bySub[p.CognitoID] = id
	s.Inserts++
	cp := *u
	return &cp, nil
}

func (s *UserStore) GetByID(_ context.Context, id string) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	u, ok := s.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (s *UserStore) GetByCognitoID(ctx context.Context, cognitoID string) (*entity.User, error) {
	s.mu.Lock()
	id, ok := s.bySub[cognitoID]
	err := s.Err
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, sql.ErrNoRows
	}
	return s.GetByID(ctx, id)
}

// Put seeds a user directly.
func (s *UserStore) Put(u *entity.User) *entity.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.clock.now()
		u.UpdatedAt = u.CreatedAt
	}
	s.byID[u.ID] = u
	s.bySub[u.CognitoID] = u.ID
	return u
}

// Remove deletes a user, simulating a concurrent deletion elsewhere.
func (s *UserStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.byID[id]; ok {
		delete(s.bySub, u.CognitoID)
		delete(s.byID, id)
	}
}

// Len returns the number of stored users.
func (s *UserStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// BusinessStore is an in-memory business.Store.
type BusinessStore struct {
	mu         sync.Mutex
	clock      clock
	users      *UserStore
	businesses map[string]*bizentity.Business
	images     map[string]*bizentity.Image
	// PingErr is returned by Ping when set.
	PingErr error
}

func NewBusinessStore(users *UserStore) *BusinessStore {
	return &BusinessStore{
		users:      users,
		businesses: map[string]*bizentity.Business{},
		images:     map[string]*bizentity.Image{},
	}
}

func (s *BusinessStore) Ping(context.Context) error { return s.PingErr }

func containsFold(field *string, v string) bool {
	if field == nil {
		return false
	}
	return strings.Contains(strings.ToLower(*field), strings.ToLower(v))
}

func matches(b *bizentity.Business, f bizentity.Filters) bool {
	if !b.IsActive {
		return false
	}
	if f.Category != "" && !containsFold(b.Category, f.Category) {
		return false
	}
	if f.City != "" && !containsFold(b.City, f.City) {
		return false
	}
	if f.State != "" && !containsFold(b.State, f.State) {
		return false
	}
	if f.Search != "" && !containsFold(&b.Name, f.Search) && !containsFold(b.Description, f.Search) {
		return false
	}
	return true
}

// sorted returns copies of the rows accepted by keep, newest first.
func (s *BusinessStore) sorted(keep func(*bizentity.Business) bool) []*bizentity.Business {
	var out []*bizentity.Business
	for _, b := range s.businesses {
		if keep(b) {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *BusinessStore) List(_ context.Context, f bizentity.Filters, limit int) ([]*bizentity.Business, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.sorted(func(b *bizentity.Business) bool { return matches(b, f) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *BusinessStore) Count(_ context.Context, f bizentity.Filters) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sorted(func(b *bizentity.Business) bool { return matches(b, f) })), nil
}

func (s *BusinessStore) ListByOwner(_ context.Context, ownerID string) ([]*bizentity.Business, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(func(b *bizentity.Business) bool { return b.OwnerID == ownerID }), nil
}

func (s *BusinessStore) GetByID(_ context.Context, id string) (*bizentity.Business, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.businesses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *b
	return &cp, nil
}

func (s *BusinessStore) Create(_ context.Context, b *bizentity.Business) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.now()
	b.CreatedAt, b.UpdatedAt = now, now
	cp := *b
	s.businesses[b.ID] = &cp
	return nil
}

func (s *BusinessStore) Update(_ context.Context, id string, p bizentity.Patch) (*bizentity.Business, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.businesses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if p.Name.Set && p.Name.Value != nil {
		b.Name = *p.Name.Value
	}
	setStr := func(dst **string, o bizentity.Optional[string]) {
		if !o.Set {
			return
		}
		if o.Value == nil {
			*dst = nil
			return
		}
		val := *o.Value
		*dst = &val
	}
	setStr(&b.Description, p.Description)
	setStr(&b.Category, p.Category)
	setStr(&b.Address, p.Address)
	setStr(&b.City, p.City)
	setStr(&b.State, p.State)
	setStr(&b.ZipCode, p.ZipCode)
	setStr(&b.Phone, p.Phone)
	setStr(&b.Email, p.Email)
	setStr(&b.Website, p.Website)
	if p.IsActive.Set && p.IsActive.Value != nil {
		b.IsActive = *p.IsActive.Value
	}
	b.UpdatedAt = s.clock.now()
	cp := *b
	return &cp, nil
}

func (s *BusinessStore) Delete(_ context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.businesses[id]; !ok {
		return 0, nil
	}
	delete(s.businesses, id)
	for imgID, img := range s.images {
		if img.BusinessID == id {
			delete(s.images, imgID)
		}
	}
	return 1, nil
}

func (s *BusinessStore) ImagesFor(_ context.Context, businessIDs []string) (map[string][]*bizentity.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[string]bool, len(businessIDs))
	for _, id := range businessIDs {
		want[id] = true
	}
	var all []*bizentity.Image
	for _, img := range s.images {
		if want[img.BusinessID] {
			cp := *img
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	out := make(map[string][]*bizentity.Image)
	for _, img := range all {
		out[img.BusinessID] = append(out[img.BusinessID], img)
	}
	return out, nil
}

func (s *BusinessStore) OwnersFor(ctx context.Context, ownerIDs []string) (map[string]*entity.User, error) {
	out := make(map[string]*entity.User, len(ownerIDs))
	for _, id := range ownerIDs {
		u, err := s.users.GetByID(ctx, id)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[id] = u
	}
	return out, nil
}

func (s *BusinessStore) CreateImage(_ context.Context, img *bizentity.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.now()
	img.CreatedAt, img.UpdatedAt = now, now
	cp := *img
	s.images[img.ID] = &cp
	return nil
}

func (s *BusinessStore) GetImage(_ context.Context, id string) (*bizentity.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	img, ok := s.images[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *img
	return &cp, nil
}

func (s *BusinessStore) DeleteImage(_ context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.images[id]; !ok {
		return 0, nil
	}
	delete(s.images, id)
	return 1, nil
}

// ImageCount returns the number of stored images.
func (s *BusinessStore) ImageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.images)
}

// Len returns the number of stored businesses.
func (s *BusinessStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.businesses)
}
