package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-directory/internal/business/entity"
	userentity "github.com/ovaphlow/pitchfork/service-directory/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-directory/pkg/database"
)

// BusinessRepo provides data access for businesses and business_images.
type BusinessRepo struct {
	db *sqlx.DB
}

func NewBusinessRepo(db *sqlx.DB) *BusinessRepo { return &BusinessRepo{db: db} }

// EnsureTable creates the businesses and business_images tables (idempotent).
// users must exist first because of the owner foreign key.
func (r *BusinessRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS businesses (
  id varchar(32) PRIMARY KEY,
  owner_id varchar(32) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  name TEXT NOT NULL,
  description TEXT,
  category TEXT,
  address TEXT,
  city TEXT,
  state TEXT,
  zip_code TEXT,
  phone TEXT,
  email TEXT,
  website TEXT,
  is_active BOOLEAN NOT NULL DEFAULT true,
  is_claimed BOOLEAN NOT NULL DEFAULT false,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_businesses_owner_id ON businesses(owner_id);
CREATE INDEX IF NOT EXISTS idx_businesses_created_at ON businesses(created_at DESC);
CREATE TABLE IF NOT EXISTS business_images (
  id varchar(32) PRIMARY KEY,
  business_id varchar(32) NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
  image_url TEXT NOT NULL,
  image_key TEXT NOT NULL,
  alt_text TEXT,
  is_primary BOOLEAN NOT NULL DEFAULT false,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_business_images_business_id ON business_images(business_id);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

const businessColumns = `id, owner_id, name, description, category, address, city, state, zip_code,
	phone, email, website, is_active, is_claimed, created_at, updated_at`

const imageColumns = `id, business_id, image_url, image_key, alt_text, is_primary, created_at, updated_at`

// Ping answers a trivial query; used by the database health probe.
func (r *BusinessRepo) Ping(ctx context.Context) error {
	return database.Probe(ctx, r.db)
}

// escapeLike escapes LIKE metacharacters so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// buildWhere returns the WHERE clause for a listing and its $n arguments.
// Only active businesses are listed; every supplied filter narrows further.
func buildWhere(f entity.Filters) (string, []any) {
	clauses := []string{"is_active = true"}
	var args []any
	like := func(v string) int {
		args = append(args, "%"+escapeLike(v)+"%")
		return len(args)
	}
	if f.Category != "" {
		clauses = append(clauses, fmt.Sprintf("category ILIKE $%d", like(f.Category)))
	}
	if f.City != "" {
		clauses = append(clauses, fmt.Sprintf("city ILIKE $%d", like(f.City)))
	}
	if f.State != "" {
		clauses = append(clauses, fmt.Sprintf("state ILIKE $%d", like(f.State)))
	}
	if f.Search != "" {
		n := like(f.Search)
		clauses = append(clauses, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", n, n))
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// List returns up to limit matching businesses, newest first.
func (r *BusinessRepo) List(ctx context.Context, f entity.Filters, limit int) ([]*entity.Business, error) {
	where, args := buildWhere(f)
	args = append(args, limit)
	q := `SELECT ` + businessColumns + ` FROM businesses` + where +
		fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, len(args))
	var out []*entity.Business
	if err := r.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of businesses matching f, ignoring any limit.
func (r *BusinessRepo) Count(ctx context.Context, f entity.Filters) (int, error) {
	where, args := buildWhere(f)
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM businesses`+where, args...); err != nil {
		return 0, err
	}
	return n, nil
}

// ListByOwner returns every business owned by ownerID, newest first,
// active or not.
func (r *BusinessRepo) ListByOwner(ctx context.Context, ownerID string) ([]*entity.Business, error) {
	q := `SELECT ` + businessColumns + ` FROM businesses WHERE owner_id=$1 ORDER BY created_at DESC, id DESC`
	var out []*entity.Business
	if err := r.db.SelectContext(ctx, &out, q, ownerID); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID fetches one business row or sql.ErrNoRows.
func (r *BusinessRepo) GetByID(ctx context.Context, id string) (*entity.Business, error) {
	var b entity.Business
	if err := r.db.GetContext(ctx, &b, `SELECT `+businessColumns+` FROM businesses WHERE id=$1`, id); err != nil {
		return nil, err
	}
	return &b, nil
}

// Create inserts b and fills in the database timestamps.
func (r *BusinessRepo) Create(ctx context.Context, b *entity.Business) error {
	q := `INSERT INTO businesses (id, owner_id, name, description, category, address, city, state,
			zip_code, phone, email, website, is_active, is_claimed, updated_at)
		  VALUES (:id, :owner_id, :name, :description, :category, :address, :city, :state,
			:zip_code, :phone, :email, :website, :is_active, :is_claimed, NOW())
		  RETURNING created_at, updated_at`
	rows, err := r.db.NamedQueryContext(ctx, q, b)
	if err != nil {
		return err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return fmt.Errorf("insert business: no row returned")
	}
	return rows.Scan(&b.CreatedAt, &b.UpdatedAt)
}

// Update writes the set fields of p and bumps updated_at. A set field with
// no value stores NULL. Returns sql.ErrNoRows when id does not exist.
func (r *BusinessRepo) Update(ctx context.Context, id string, p entity.Patch) (*entity.Business, error) {
	var sets []string
	var args []any
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s=$%d", col, len(args)))
	}
	str := func(col string, o entity.Optional[string]) {
		if o.Set {
			set(col, o.Value)
		}
	}
	if p.Name.Set && p.Name.Value != nil {
		set("name", *p.Name.Value)
	}
	str("description", p.Description)
	str("category", p.Category)
	str("address", p.Address)
	str("city", p.City)
	str("state", p.State)
	str("zip_code", p.ZipCode)
	str("phone", p.Phone)
	str("email", p.Email)
	str("website", p.Website)
	if p.IsActive.Set && p.IsActive.Value != nil {
		set("is_active", *p.IsActive.Value)
	}
	sets = append(sets, "updated_at=NOW()")
	args = append(args, id)
	q := fmt.Sprintf(`UPDATE businesses SET %s WHERE id=$%d RETURNING `+businessColumns,
		strings.Join(sets, ", "), len(args))
	var b entity.Business
	if err := r.db.GetContext(ctx, &b, q, args...); err != nil {
		return nil, err
	}
	return &b, nil
}

// Delete removes the business; images go with it through the cascade.
func (r *BusinessRepo) Delete(ctx context.Context, id string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM businesses WHERE id=$1`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ImagesFor loads the images of the given businesses keyed by business id,
// each list in creation order.
func (r *BusinessRepo) ImagesFor(ctx context.Context, businessIDs []string) (map[string][]*entity.Image, error) {
	out := make(map[string][]*entity.Image, len(businessIDs))
	if len(businessIDs) == 0 {
		return out, nil
	}
	q, args, err := sqlx.In(`SELECT `+imageColumns+` FROM business_images WHERE business_id IN (?) ORDER BY created_at ASC, id ASC`, businessIDs)
	if err != nil {
		return nil, err
	}
	var imgs []*entity.Image
	if err := r.db.SelectContext(ctx, &imgs, r.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	for _, img := range imgs {
		out[img.BusinessID] = append(out[img.BusinessID], img)
	}
	return out, nil
}

// OwnersFor loads the users with the given ids keyed by id.
func (r *BusinessRepo) OwnersFor(ctx context.Context, ownerIDs []string) (map[string]*userentity.User, error) {
	out := make(map[string]*userentity.User, len(ownerIDs))
	if len(ownerIDs) == 0 {
		return out, nil
	}
	q, args, err := sqlx.In(`SELECT id, cognito_id, email, first_name, last_name, role, created_at, updated_at
		FROM users WHERE id IN (?)`, ownerIDs)
	if err != nil {
		return nil, err
	}
	var users []*userentity.User
	if err := r.db.SelectContext(ctx, &users, r.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// CreateImage inserts an image row and fills in the database timestamps.
func (r *BusinessRepo) CreateImage(ctx context.Context, img *entity.Image) error {
	q := `INSERT INTO business_images (id, business_id, image_url, image_key, alt_text, is_primary, updated_at)
		  VALUES ($1, $2, $3, $4, $5, $6, NOW()) RETURNING created_at, updated_at`
	row := r.db.QueryRowxContext(ctx, q, img.ID, img.BusinessID, img.URL, img.Key, img.Alt, img.IsPrimary)
	return row.Scan(&img.CreatedAt, &img.UpdatedAt)
}

// GetImage fetches one image row or sql.ErrNoRows.
func (r *BusinessRepo) GetImage(ctx context.Context, id string) (*entity.Image, error) {
	var img entity.Image
	if err := r.db.GetContext(ctx, &img, `SELECT `+imageColumns+` FROM business_images WHERE id=$1`, id); err != nil {
		return nil, err
	}
	return &img, nil
}

// DeleteImage removes one image row.
func (r *BusinessRepo) DeleteImage(ctx context.Context, id string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM business_images WHERE id=$1`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
