package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/omarcisse97/sopo/internal/db"
	"github.com/omarcisse97/sopo/internal/models"
	"github.com/omarcisse97/sopo/internal/query"
)

// ErrListingNotFound is returned for unknown or inactive listings.
var ErrListingNotFound = errors.New("listing not found")

// Attributes keyword search looks into besides the text columns.
var searchAttributes = []string{"term", "type", "condition", "brand"}

// IListingService defines the interface for listing-related operations.
type IListingService interface {
	FilterListings(ctx context.Context, scope ListingScope, filters map[string]string, limit, offset int) ([]models.Listing, error)
	CountListings(ctx context.Context, count query.Count) (int, error)
	SearchListings(ctx context.Context, params SearchParams) ([]models.Listing, error)
	FindListingByID(ctx context.Context, id int64) (*models.Listing, error)
	FindListingsByEmail(ctx context.Context, email string) ([]models.Listing, error)
	InsertListing(ctx context.Context, insert query.Insert) (int64, error)
	SetListingImages(ctx context.Context, id int64, urls []string) error
	IncrementViews(ctx context.Context, id int64) error
}

// SearchParams narrows a keyword search. Empty Category or City search everywhere.
type SearchParams struct {
	Keyword  string
	Category string
	City     string
	Limit    int
}

// listingService implements IListingService on the listings table.
type listingService struct {
	pg  *sqlx.DB
	tax SubCategoryResolver
}

// NewListingService creates a new ListingService.
func NewListingService(pg *sqlx.DB, tax SubCategoryResolver) IListingService {
	return &listingService{pg: pg, tax: tax}
}

// FilterListings returns one page of active listings of a scope. Taxonomy and
// filter problems come back as ErrSubCategoryMismatch or *FilterError, anything
// else is a store failure.
func (s *listingService) FilterListings(ctx context.Context, scope ListingScope, filters map[string]string, limit, offset int) ([]models.Listing, error) {
	sel, err := BuildListingQuery(s.tax, scope, filters, limit, offset)
	if err != nil {
		return nil, err
	}
	listings, err := s.selectListings(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("failed to filter listings in %s/%s/%s: %w", scope.Country, scope.City, scope.Category, err)
	}
	return listings, nil
}

func (s *listingService) CountListings(ctx context.Context, count query.Count) (int, error) {
	stmt, args, err := count.SQL()
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.pg.GetContext(ctx, &n, stmt, args...); err != nil {
		return 0, fmt.Errorf("failed to count listings: %w", err)
	}
	return n, nil
}

// SearchListings matches a keyword against title, description, location,
// common attributes and subcategory names of active listings.
func (s *listingService) SearchListings(ctx context.Context, params SearchParams) ([]models.Listing, error) {
	keyword := strings.TrimSpace(params.Keyword)
	if keyword == "" {
		return []models.Listing{}, nil
	}

	where := []query.Predicate{
		query.Eq{Column: query.ColStatus, Value: models.ListingStatusActive},
		query.TextMatch{
			Term:         keyword,
			Columns:      []query.Column{query.ColTitle, query.ColDescription, query.ColLocation},
			Attrs:        searchAttributes,
			ArrayColumns: []query.Column{query.ColSubCategory},
		},
	}
	if params.Category != "" {
		where = append(where, query.Eq{Column: query.ColCategorySlug, Value: params.Category, Fold: true})
	}
	if params.City != "" {
		where = append(where, query.Eq{Column: query.ColCitySlug, Value: params.City, Fold: true})
	}

	limit := params.Limit
	if limit <= 0 {
		limit = DefaultListingLimit
	}
	listings, err := s.selectListings(ctx, query.Select{Where: where, Order: query.OrderFeatured, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("failed to search listings for %q: %w", keyword, err)
	}
	return listings, nil
}

// FindListingByID finds an active listing.
func (s *listingService) FindListingByID(ctx context.Context, id int64) (*models.Listing, error) {
	stmt, args, err := query.Select{
		Where: []query.Predicate{
			query.Eq{Column: query.ColID, Value: id},
			query.Eq{Column: query.ColStatus, Value: models.ListingStatusActive},
		},
		Limit: 1,
	}.SQL()
	if err != nil {
		return nil, err
	}

	var listing models.Listing
	if err := s.pg.GetContext(ctx, &listing, stmt, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("error finding listing by ID %d: %w", id, err)
	}
	return &listing, nil
}

// FindListingsByEmail returns every listing posted with a contact email, newest first.
func (s *listingService) FindListingsByEmail(ctx context.Context, email string) ([]models.Listing, error) {
	listings, err := s.selectListings(ctx, query.Select{
		Where: []query.Predicate{query.Eq{Column: query.ColContactEmail, Value: strings.TrimSpace(email), Fold: true}},
		Order: query.OrderDate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find listings of %s: %w", email, err)
	}
	return listings, nil
}

// InsertListing runs a validated insert and returns the new listing id.
// Transient Postgres errors are retried.
func (s *listingService) InsertListing(ctx context.Context, insert query.Insert) (int64, error) {
	stmt, args, err := insert.SQL()
	if err != nil {
		return 0, err
	}

	var id int64
	err = db.Try(func() error {
		return s.pg.QueryRowxContext(ctx, stmt, args...).Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to insert listing: %w", err)
	}
	return id, nil
}

// SetListingImages replaces the image URLs of a listing.
func (s *listingService) SetListingImages(ctx context.Context, id int64, urls []string) error {
	res, err := s.pg.ExecContext(ctx,
		`UPDATE listings SET images = $1, updated_at = now() WHERE id = $2`, pq.Array(urls), id)
	if err != nil {
		return fmt.Errorf("failed to set images of listing %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrListingNotFound
	}
	return nil
}

// IncrementViews adds one view to a listing.
func (s *listingService) IncrementViews(ctx context.Context, id int64) error {
	if _, err := s.pg.ExecContext(ctx, `UPDATE listings SET views = views + 1 WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to increment views of listing %d: %w", id, err)
	}
	return nil
}

func (s *listingService) selectListings(ctx context.Context, sel query.Select) ([]models.Listing, error) {
	stmt, args, err := sel.SQL()
	if err != nil {
		return nil, err
	}
	listings := []models.Listing{}
	if err := s.pg.SelectContext(ctx, &listings, stmt, args...); err != nil {
		return nil, err
	}
	return listings, nil
}
