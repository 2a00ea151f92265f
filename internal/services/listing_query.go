package services

import (
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/omarcisse97/sopo/internal/models"
	"github.com/omarcisse97/sopo/internal/query"
)

// DefaultListingLimit is the page size when none is requested.
const DefaultListingLimit = 50

// ErrSubCategoryMismatch means the categories filter names no subcategory of the browsed category.
var ErrSubCategoryMismatch = errors.New("subcategory not found in category")

// ListingScope is the browse location. Empty fields are not constrained.
type ListingScope struct {
	Country  string
	City     string
	Category string
}

// SubCategoryResolver resolves a subcategory slug or name within a category.
type SubCategoryResolver interface {
	SubCategory(categorySlug, sub string) (models.SubCategory, bool)
}

// BuildListingQuery turns a browse scope and validated filters into a listing select.
// Only active listings are ever selected.
func BuildListingQuery(tax SubCategoryResolver, scope ListingScope, filters map[string]string, limit, offset int) (query.Select, error) {
	where, err := scopePredicates(tax, scope, filters[models.ParamCategories])
	if err != nil {
		return query.Select{}, err
	}

	attrKeys := make([]string, 0, len(filters))
	for key, value := range filters {
		switch key {
		case models.ParamCategories, models.ParamSort, models.ParamMinPrice, models.ParamMaxPrice:
			continue
		}
		if value != "" {
			attrKeys = append(attrKeys, key)
		}
	}
	sort.Strings(attrKeys)
	for _, key := range attrKeys {
		where = append(where, query.Attr{Key: key, Value: filters[key]})
	}

	priceRange, err := parsePriceRange(filters[models.ParamMinPrice], filters[models.ParamMaxPrice])
	if err != nil {
		return query.Select{}, err
	}
	if priceRange != nil {
		where = append(where, *priceRange)
	}

	if limit <= 0 {
		limit = DefaultListingLimit
	}
	if offset < 0 {
		offset = 0
	}

	return query.Select{
		Where:  where,
		Order:  sortOrder(filters[models.ParamSort]),
		Limit:  limit,
		Offset: offset,
	}, nil
}

// BuildCountQuery counts active listings of a scope, optionally within one subcategory.
func BuildCountQuery(tax SubCategoryResolver, scope ListingScope, subCategory string) (query.Count, error) {
	where, err := scopePredicates(tax, scope, subCategory)
	if err != nil {
		return query.Count{}, err
	}
	return query.Count{Where: where}, nil
}

func scopePredicates(tax SubCategoryResolver, scope ListingScope, subCategory string) ([]query.Predicate, error) {
	where := []query.Predicate{query.Eq{Column: query.ColStatus, Value: models.ListingStatusActive}}
	if scope.Country != "" {
		where = append(where, query.Eq{Column: query.ColCountrySlug, Value: scope.Country})
	}
	if scope.City != "" {
		where = append(where, query.Eq{Column: query.ColCitySlug, Value: scope.City})
	}
	if scope.Category != "" {
		where = append(where, query.Eq{Column: query.ColCategorySlug, Value: scope.Category})
	}
	if subCategory != "" {
		sub, ok := tax.SubCategory(scope.Category, subCategory)
		if !ok {
			return nil, ErrSubCategoryMismatch
		}
		// listings store subcategory display names
		where = append(where, query.AnyOf{Column: query.ColSubCategory, Value: sub.Name})
	}
	return where, nil
}

func parsePriceRange(minRaw, maxRaw string) (*query.PriceRange, error) {
	var pr query.PriceRange
	var err error
	if pr.Min, err = parsePriceBound(models.ParamMinPrice, minRaw); err != nil {
		return nil, err
	}
	if pr.Max, err = parsePriceBound(models.ParamMaxPrice, maxRaw); err != nil {
		return nil, err
	}
	if pr.Min == nil && pr.Max == nil {
		return nil, nil
	}
	return &pr, nil
}

func parsePriceBound(key, raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, &FilterError{Key: key, Value: raw, Reason: "not a number"}
	}
	return &v, nil
}

func sortOrder(option string) query.Order {
	switch strings.ToLower(option) {
	case models.SortPriceLow:
		return query.OrderPriceAsc
	case models.SortPriceHigh:
		return query.OrderPriceDesc
	case models.SortDate:
		return query.OrderDate
	default:
		return query.OrderFeatured
	}
}
