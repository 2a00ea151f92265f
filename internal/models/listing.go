package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// ListingStatusActive is the only status visible to browsing, detail and counts.
const ListingStatusActive = "active"

// CategoryData holds category specific attributes of a listing (condition, bedrooms, term...).
// Values are always strings. Stored as JSONB.
type CategoryData map[string]string

// Value implements driver.Valuer.
func (d CategoryData) Value() (driver.Value, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(map[string]string(d))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal category data: %w", err)
	}
	return b, nil
}

// Scan implements sql.Scanner. Non-string JSON values are stringified.
func (d *CategoryData) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*d = CategoryData{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into CategoryData", src)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("failed to unmarshal category data: %w", err)
	}
	out := make(CategoryData, len(decoded))
	for k, val := range decoded {
		switch tv := val.(type) {
		case string:
			out[k] = tv
		case nil:
			// dropped
		default:
			out[k] = fmt.Sprint(tv)
		}
	}
	*d = out
	return nil
}

// Listing is a row of the listings table.
type Listing struct {
	ID            int64          `db:"id" json:"id"`
	Title         string         `db:"title" json:"title"`
	Description   string         `db:"description" json:"description"`
	CountrySlug   string         `db:"country_slug" json:"country_slug"`
	CitySlug      string         `db:"city_slug" json:"city_slug"`
	CategorySlug  string         `db:"category_slug" json:"category_slug"`
	Location      *string        `db:"location" json:"location,omitempty"`
	SubCategories pq.StringArray `db:"subcategories" json:"subcategories"`
	Price         *string        `db:"price" json:"price,omitempty"` // Display text, e.g. "$1,200" or "negotiable"
	Currency      *string        `db:"currency" json:"currency,omitempty"`
	Images        pq.StringArray `db:"images" json:"images"` // Public URLs
	ContactEmail  string         `db:"contact_email" json:"contact_email"`
	ContactPhone  *string        `db:"contact_phone" json:"contact_phone,omitempty"`
	CategoryData  CategoryData   `db:"category_data" json:"category_data"`
	Status        string         `db:"status" json:"status"`
	Featured      bool           `db:"featured" json:"featured"`
	Views         int            `db:"views" json:"views"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
	ExpiresAt     *time.Time     `db:"expires_at" json:"expires_at,omitempty"`
}

// DetailPath is the browse path of the listing detail page.
func (l *Listing) DetailPath() string {
	return ListingPath(l.CountrySlug, l.CitySlug, l.CategorySlug, l.ID)
}

// ListingPath builds /{country}/{city}/{category}/{id}.
func ListingPath(country, city, category string, id int64) string {
	return fmt.Sprintf("/%s/%s/%s/%d", country, city, category, id)
}
