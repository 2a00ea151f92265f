// Package taxonomy holds the static country, city and category reference data.
//
// The dataset is compiled into the binary and never changes at runtime. Every
// lookup returns copies, so callers are free to annotate what they get back
// (counts, derived filter configs) without affecting other requests.
package taxonomy

import (
	"embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/omarcisse97/sopo/internal/models"
)

//go:embed data/*.yaml
var dataFS embed.FS

type countriesFile struct {
	Countries []models.Country `yaml:"countries"`
}

type categoriesFile struct {
	Categories []models.Category `yaml:"categories"`
}

// Store is an immutable, goroutine-safe taxonomy.
type Store struct {
	countries  []models.Country
	categories []models.Category
}

// Load parses the embedded dataset.
func Load() (*Store, error) {
	countriesRaw, err := dataFS.ReadFile("data/countries.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read countries dataset: %w", err)
	}
	categoriesRaw, err := dataFS.ReadFile("data/categories.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read categories dataset: %w", err)
	}
	return Parse(countriesRaw, categoriesRaw)
}

// MustLoad is Load for process start-up.
func MustLoad() *Store {
	s, err := Load()
	if err != nil {
		panic(err)
	}
	return s
}

// Parse builds a store from YAML documents shaped like the embedded dataset.
func Parse(countriesYAML, categoriesYAML []byte) (*Store, error) {
	var cf countriesFile
	if err := yaml.Unmarshal(countriesYAML, &cf); err != nil {
		return nil, fmt.Errorf("invalid countries dataset: %w", err)
	}
	var kf categoriesFile
	if err := yaml.Unmarshal(categoriesYAML, &kf); err != nil {
		return nil, fmt.Errorf("invalid categories dataset: %w", err)
	}
	s := &Store{countries: cf.Countries, categories: kf.Categories}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) validate() error {
	countrySlugs := make(map[string]bool)
	for _, c := range s.countries {
		key := strings.ToLower(c.Slug)
		if key == "" {
			return fmt.Errorf("country %q has no slug", c.Name)
		}
		if countrySlugs[key] {
			return fmt.Errorf("duplicate country slug %q", c.Slug)
		}
		countrySlugs[key] = true

		citySlugs := make(map[string]bool)
		for _, city := range c.Cities {
			ck := strings.ToLower(city.Slug)
			if ck == "" || citySlugs[ck] {
				return fmt.Errorf("country %q: missing or duplicate city slug %q", c.Slug, city.Slug)
			}
			citySlugs[ck] = true
		}
	}

	categorySlugs := make(map[string]bool)
	for _, cat := range s.categories {
		key := strings.ToLower(cat.Slug)
		if key == "" || categorySlugs[key] {
			return fmt.Errorf("missing or duplicate category slug %q", cat.Slug)
		}
		categorySlugs[key] = true

		subSlugs := make(map[string]bool)
		for _, sub := range cat.SubCategories {
			sk := strings.ToLower(sub.Slug)
			if sk == "" || subSlugs[sk] {
				return fmt.Errorf("category %q: missing or duplicate subcategory slug %q", cat.Slug, sub.Slug)
			}
			subSlugs[sk] = true
		}

		filterKeys := make(map[string]bool)
		for _, def := range cat.FilterConfig.Filters {
			switch def.Key {
			case models.ParamCategories, models.ParamSort, models.ParamMinPrice, models.ParamMaxPrice:
				return fmt.Errorf("category %q: filter key %q is reserved", cat.Slug, def.Key)
			}
			if def.Key == "" || filterKeys[def.Key] {
				return fmt.Errorf("category %q: missing or duplicate filter key %q", cat.Slug, def.Key)
			}
			filterKeys[def.Key] = true
		}
	}
	return nil
}

// Countries returns every country in dataset order.
func (s *Store) Countries() []models.Country {
	out := make([]models.Country, len(s.countries))
	for i, c := range s.countries {
		out[i] = c.Clone()
	}
	return out
}

// Country looks up a country by slug.
func (s *Store) Country(slug string) (models.Country, bool) {
	c := s.findCountry(slug)
	if c == nil {
		return models.Country{}, false
	}
	return c.Clone(), true
}

// AllCities returns the cities of every country keyed by country slug.
func (s *Store) AllCities() map[string][]models.City {
	out := make(map[string][]models.City, len(s.countries))
	for _, c := range s.countries {
		out[c.Slug] = append([]models.City(nil), c.Cities...)
	}
	return out
}

// Cities returns the cities of a country.
func (s *Store) Cities(countrySlug string) ([]models.City, bool) {
	c := s.findCountry(countrySlug)
	if c == nil {
		return nil, false
	}
	return append([]models.City(nil), c.Cities...), true
}

// City looks up a city by slug. An empty countrySlug searches every country and
// returns the first match in dataset order.
func (s *Store) City(countrySlug, citySlug string) (models.City, bool) {
	if countrySlug != "" {
		c := s.findCountry(countrySlug)
		if c == nil {
			return models.City{}, false
		}
		return findCity(c.Cities, citySlug)
	}
	for _, c := range s.countries {
		if city, ok := findCity(c.Cities, citySlug); ok {
			return city, true
		}
	}
	return models.City{}, false
}

// Categories returns every category in dataset order.
func (s *Store) Categories() []models.Category {
	out := make([]models.Category, len(s.categories))
	for i, c := range s.categories {
		out[i] = c.Clone()
	}
	return out
}

// Category looks up a category by slug.
func (s *Store) Category(slug string) (models.Category, bool) {
	c := s.findCategory(slug)
	if c == nil {
		return models.Category{}, false
	}
	return c.Clone(), true
}

// SubCategories returns the subcategories of a category.
func (s *Store) SubCategories(categorySlug string) ([]models.SubCategory, bool) {
	c := s.findCategory(categorySlug)
	if c == nil {
		return nil, false
	}
	return append([]models.SubCategory(nil), c.SubCategories...), true
}

// SubCategory looks up a subcategory by slug or display name. An empty
// categorySlug searches every category in dataset order.
func (s *Store) SubCategory(categorySlug, sub string) (models.SubCategory, bool) {
	if sub == "" {
		return models.SubCategory{}, false
	}
	if categorySlug != "" {
		c := s.findCategory(categorySlug)
		if c == nil {
			return models.SubCategory{}, false
		}
		return findSubCategory(c.SubCategories, sub)
	}
	for i := range s.categories {
		if found, ok := findSubCategory(s.categories[i].SubCategories, sub); ok {
			return found, true
		}
	}
	return models.SubCategory{}, false
}

func (s *Store) findCountry(slug string) *models.Country {
	for i := range s.countries {
		if strings.EqualFold(s.countries[i].Slug, slug) {
			return &s.countries[i]
		}
	}
	return nil
}

func (s *Store) findCategory(slug string) *models.Category {
	for i := range s.categories {
		if strings.EqualFold(s.categories[i].Slug, slug) {
			return &s.categories[i]
		}
	}
	return nil
}

func findCity(cities []models.City, slug string) (models.City, bool) {
	for _, city := range cities {
		if strings.EqualFold(city.Slug, slug) {
			return city, true
		}
	}
	return models.City{}, false
}

func findSubCategory(subs []models.SubCategory, sub string) (models.SubCategory, bool) {
	for _, sc := range subs {
		if strings.EqualFold(sc.Slug, sub) || strings.EqualFold(sc.Name, sub) {
			return models.SubCategory{Slug: sc.Slug, Name: sc.Name}, true
		}
	}
	return models.SubCategory{}, false
}
