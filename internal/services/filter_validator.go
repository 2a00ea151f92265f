package services

import (
	"fmt"
	"strings"

	"github.com/omarcisse97/sopo/internal/models"
)

// FilterError reports the first browse parameter a FilterConfig does not accept.
type FilterError struct {
	Key    string
	Value  string
	Reason string
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("invalid filter %s=%q: %s", e.Key, e.Value, e.Reason)
}

// ValidateFilters checks browse parameters against a category's FilterConfig.
// Empty values count as not provided. minPrice and maxPrice are accepted here;
// their numeric form is checked when the query is built.
func ValidateFilters(cfg models.FilterConfig, params map[string]string) error {
	for key, value := range params {
		if value == "" {
			continue
		}
		switch key {
		case models.ParamMinPrice, models.ParamMaxPrice:
			continue
		case models.ParamSort:
			if !cfg.AllowsSort(value) {
				return &FilterError{Key: key, Value: value, Reason: "unsupported sort"}
			}
			continue
		}

		def, ok := cfg.Filter(key)
		if !ok {
			return &FilterError{Key: key, Value: value, Reason: "unknown filter"}
		}
		if !def.HasOption(value) {
			return &FilterError{Key: key, Value: value, Reason: "unknown option"}
		}
	}
	return nil
}

// WithSubCategoryFilter derives the request scoped FilterConfig of a category:
// its own filters plus a "categories" select filter listing the subcategories.
// The category itself is left untouched.
func WithSubCategoryFilter(category models.Category) models.FilterConfig {
	derived := category.FilterConfig.Clone()
	if _, exists := derived.Filter(models.ParamCategories); exists || len(category.SubCategories) == 0 {
		return derived
	}

	options := make([]models.FilterOption, len(category.SubCategories))
	for i, sub := range category.SubCategories {
		options[i] = models.FilterOption{Value: sub.Slug, Label: sub.Name}
	}
	derived.Filters = append(derived.Filters, models.FilterDefinition{
		Type:    models.FilterTypeSelect,
		Key:     models.ParamCategories,
		Label:   "Categories",
		Options: options,
	})
	return derived
}

// FilterParams picks the browse parameters out of a query string: every key
// except pagination, first value only, trimmed.
func FilterParams(query map[string][]string) map[string]string {
	params := make(map[string]string, len(query))
	for key, values := range query {
		if key == "limit" || key == "offset" || len(values) == 0 {
			continue
		}
		params[key] = strings.TrimSpace(values[0])
	}
	return params
}
