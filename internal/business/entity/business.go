package entity

import (
	"time"

	userentity "github.com/ovaphlow/pitchfork/service-directory/internal/user/entity"
)

// Business is a directory listing. Every business has exactly one owner,
// the user that created it.
type Business struct {
	ID          string    `db:"id"`
	OwnerID     string    `db:"owner_id"`
	Name        string    `db:"name"`
	Description *string   `db:"description"`
	Category    *string   `db:"category"`
	Address     *string   `db:"address"`
	City        *string   `db:"city"`
	State       *string   `db:"state"`
	ZipCode     *string   `db:"zip_code"`
	Phone       *string   `db:"phone"`
	Email       *string   `db:"email"`
	Website     *string   `db:"website"`
	IsActive    bool      `db:"is_active"`
	IsClaimed   bool      `db:"is_claimed"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`

	// Owner and Images are loaded alongside the row for read paths.
	Owner  *userentity.User `db:"-"`
	Images []*Image         `db:"-"`
}

// Image is an uploaded picture attached to a business. Rows go away with
// their business (ON DELETE CASCADE).
type Image struct {
	ID         string    `db:"id"`
	BusinessID string    `db:"business_id"`
	URL        string    `db:"image_url"`
	Key        string    `db:"image_key"`
	Alt        *string   `db:"alt_text"`
	IsPrimary  bool      `db:"is_primary"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// Filters narrows business listings. Empty fields do not filter.
type Filters struct {
	Category string
	City     string
	State    string
	// Search matches name OR description, case-insensitive substring.
	Search string
}

// Fields carries the editable columns of a new business. A nil pointer
// stores NULL.
type Fields struct {
	Name        *string
	Description *string
	Category    *string
	Address     *string
	City        *string
	State       *string
	ZipCode     *string
	Phone       *string
	Email       *string
	Website     *string
	IsActive    *bool
}

// Optional is one field of a Patch. The column is written only when Set is
// true; a set field with a nil Value clears it.
type Optional[T any] struct {
	Set   bool
	Value *T
}

// Some returns a set Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

// Null returns a set Optional that clears the column.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

// Patch is a partial update: unset fields are left unchanged.
type Patch struct {
	Name        Optional[string]
	Description Optional[string]
	Category    Optional[string]
	Address     Optional[string]
	City        Optional[string]
	State       Optional[string]
	ZipCode     Optional[string]
	Phone       Optional[string]
	Email       Optional[string]
	Website     Optional[string]
	IsActive    Optional[bool]
}
