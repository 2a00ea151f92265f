package models

import "strings"

// Reserved browse parameters. They are never declared as category filters.
const (
	ParamCategories = "categories"
	ParamSort       = "sort"
	ParamMinPrice   = "minPrice"
	ParamMaxPrice   = "maxPrice"
)

// Sort options a FilterConfig may offer.
const (
	SortFeatured  = "featured"
	SortDate      = "date"
	SortPriceLow  = "price-low"
	SortPriceHigh = "price-high"
)

// FilterType is the UI control a filter renders as. It does not affect validation.
type FilterType string

const (
	FilterTypeSelect   FilterType = "select"
	FilterTypeRadio    FilterType = "radio"
	FilterTypeCheckbox FilterType = "checkbox"
)

// FilterOption is one accepted value of a filter.
type FilterOption struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

// FilterDefinition declares a filter key and the values it accepts.
type FilterDefinition struct {
	Type    FilterType     `yaml:"type" json:"type"`
	Key     string         `yaml:"key" json:"key"`
	Label   string         `yaml:"label" json:"label"`
	Options []FilterOption `yaml:"options" json:"options"`
}

// HasOption reports whether value matches one of the declared option values, ignoring case.
func (d FilterDefinition) HasOption(value string) bool {
	for _, opt := range d.Options {
		if strings.EqualFold(opt.Value, value) {
			return true
		}
	}
	return false
}

// FilterConfig is the set of filters, price range support and sort options of a category.
type FilterConfig struct {
	Filters    []FilterDefinition `yaml:"filters" json:"filters"`
	PriceRange bool               `yaml:"price_range" json:"price_range"`
	Sort       []string           `yaml:"sort" json:"sort"`
}

// Filter looks up a filter definition by key.
func (f FilterConfig) Filter(key string) (FilterDefinition, bool) {
	for _, def := range f.Filters {
		if def.Key == key {
			return def, true
		}
	}
	return FilterDefinition{}, false
}

// AllowsSort reports whether sort is one of the configured sort options, ignoring case.
func (f FilterConfig) AllowsSort(sort string) bool {
	for _, s := range f.Sort {
		if strings.EqualFold(s, sort) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the config.
func (f FilterConfig) Clone() FilterConfig {
	out := FilterConfig{
		PriceRange: f.PriceRange,
		Sort:       append([]string(nil), f.Sort...),
		Filters:    make([]FilterDefinition, len(f.Filters)),
	}
	for i, def := range f.Filters {
		def.Options = append([]FilterOption(nil), def.Options...)
		out.Filters[i] = def
	}
	return out
}

// PostConfig holds the creation form hints of a category.
// Attributes documents the category_data keys listings of the category usually carry.
type PostConfig struct {
	Title                  string   `yaml:"title" json:"title"`
	Attributes             []string `yaml:"attributes" json:"attributes"`
	PriceLabel             string   `yaml:"price_label" json:"price_label,omitempty"`
	PricePlaceholder       string   `yaml:"price_placeholder" json:"price_placeholder,omitempty"`
	DescriptionPlaceholder string   `yaml:"description_placeholder" json:"description_placeholder"`
	ShowImages             bool     `yaml:"show_images" json:"show_images"`
	MaxImages              int      `yaml:"max_images" json:"max_images"`
}

// SubCategory belongs to exactly one category. Count is filled per request and never stored.
type SubCategory struct {
	Slug  string `yaml:"slug" json:"slug"`
	Name  string `yaml:"name" json:"name"`
	Count *int   `yaml:"-" json:"count,omitempty"`
}

// Category is a listing category with its subcategories and browse configuration.
type Category struct {
	Slug          string        `yaml:"slug" json:"slug"`
	Name          string        `yaml:"name" json:"name"`
	Icon          string        `yaml:"icon" json:"icon,omitempty"`
	SubCategories []SubCategory `yaml:"subcategories" json:"subcategories"`
	FilterConfig  FilterConfig  `yaml:"filter_config" json:"filter_config"`
	PostConfig    PostConfig    `yaml:"post_config" json:"post_config"`
	Count         *int          `yaml:"-" json:"count,omitempty"`
}

// Clone returns a deep copy of the category.
func (c Category) Clone() Category {
	out := c
	out.SubCategories = make([]SubCategory, len(c.SubCategories))
	for i, sub := range c.SubCategories {
		if sub.Count != nil {
			n := *sub.Count
			sub.Count = &n
		}
		out.SubCategories[i] = sub
	}
	out.FilterConfig = c.FilterConfig.Clone()
	out.PostConfig.Attributes = append([]string(nil), c.PostConfig.Attributes...)
	if c.Count != nil {
		n := *c.Count
		out.Count = &n
	}
	return out
}
