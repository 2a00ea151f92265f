package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarcisse97/sopo/internal/models"
	"github.com/omarcisse97/sopo/internal/query"
	"github.com/omarcisse97/sopo/internal/taxonomy"
)

func TestBuildListingQuery_Housing(t *testing.T) {
	tax := taxonomy.MustLoad()
	scope := ListingScope{Country: "nigeria", City: "lagos", Category: "housing"}

	sel, err := BuildListingQuery(tax, scope, map[string]string{
		"categories": "apartments",
		"type":       "rent",
		"bedrooms":   "2",
		"minPrice":   "100",
		"maxPrice":   "",
		"sort":       models.SortPriceLow,
	}, 0, -5)
	require.NoError(t, err)

	minPrice := 100.0
	assert.Equal(t, []query.Predicate{
		query.Eq{Column: query.ColStatus, Value: models.ListingStatusActive},
		query.Eq{Column: query.ColCountrySlug, Value: "nigeria"},
		query.Eq{Column: query.ColCitySlug, Value: "lagos"},
		query.Eq{Column: query.ColCategorySlug, Value: "housing"},
		query.AnyOf{Column: query.ColSubCategory, Value: "Apartments"},
		query.Attr{Key: "bedrooms", Value: "2"},
		query.Attr{Key: "type", Value: "rent"},
		query.PriceRange{Min: &minPrice},
	}, sel.Where)
	assert.Equal(t, query.OrderPriceAsc, sel.Order)
	assert.Equal(t, DefaultListingLimit, sel.Limit)
	assert.Equal(t, 0, sel.Offset)
}

func TestBuildListingQuery_SubCategoryByNameIgnoresCase(t *testing.T) {
	sel, err := BuildListingQuery(taxonomy.MustLoad(), ListingScope{Category: "housing"},
		map[string]string{"categories": "VACATION RENTALS"}, 10, 20)
	require.NoError(t, err)
	assert.Contains(t, sel.Where, query.Predicate(query.AnyOf{Column: query.ColSubCategory, Value: "Vacation Rentals"}))
	assert.Equal(t, 10, sel.Limit)
	assert.Equal(t, 20, sel.Offset)
}

func TestBuildListingQuery_Errors(t *testing.T) {
	tax := taxonomy.MustLoad()
	scope := ListingScope{Country: "nigeria", City: "lagos", Category: "housing"}

	_, err := BuildListingQuery(tax, scope, map[string]string{"categories": "nonexistent-sub"}, 0, 0)
	assert.ErrorIs(t, err, ErrSubCategoryMismatch)

	// a subcategory of another category is a mismatch too
	_, err = BuildListingQuery(tax, scope, map[string]string{"categories": "full-time"}, 0, 0)
	assert.ErrorIs(t, err, ErrSubCategoryMismatch)

	_, err = BuildListingQuery(tax, scope, map[string]string{"maxPrice": "cheap"}, 0, 0)
	var ferr *FilterError
	require.True(t, errors.As(err, &ferr))
	assert.Equal(t, models.ParamMaxPrice, ferr.Key)
}

func TestBuildListingQuery_SortOptions(t *testing.T) {
	tax := taxonomy.MustLoad()
	tests := map[string]query.Order{
		"":                   query.OrderFeatured,
		models.SortFeatured:  query.OrderFeatured,
		models.SortDate:      query.OrderDate,
		models.SortPriceLow:  query.OrderPriceAsc,
		models.SortPriceHigh: query.OrderPriceDesc,
		"PRICE-HIGH":         query.OrderPriceDesc,
	}
	for option, want := range tests {
		sel, err := BuildListingQuery(tax, ListingScope{}, map[string]string{"sort": option}, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, want, sel.Order, "sort=%q", option)
	}
}

func TestBuildCountQuery(t *testing.T) {
	tax := taxonomy.MustLoad()

	count, err := BuildCountQuery(tax, ListingScope{Country: "ghana", City: "accra", Category: "jobs"}, "gigs")
	require.NoError(t, err)
	assert.Equal(t, []query.Predicate{
		query.Eq{Column: query.ColStatus, Value: models.ListingStatusActive},
		query.Eq{Column: query.ColCountrySlug, Value: "ghana"},
		query.Eq{Column: query.ColCitySlug, Value: "accra"},
		query.Eq{Column: query.ColCategorySlug, Value: "jobs"},
		query.AnyOf{Column: query.ColSubCategory, Value: "Gigs"},
	}, count.Where)

	whole, err := BuildCountQuery(tax, ListingScope{Country: "ghana"}, "")
	require.NoError(t, err)
	assert.Len(t, whole.Where, 2)

	_, err = BuildCountQuery(tax, ListingScope{Category: "jobs"}, "apartments")
	assert.ErrorIs(t, err, ErrSubCategoryMismatch)
}
