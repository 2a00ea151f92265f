package taxonomy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarcisse97/sopo/internal/taxonomy"
)

func TestLoad_EmbeddedDataset(t *testing.T) {
	s, err := taxonomy.Load()
	require.NoError(t, err)

	countries := s.Countries()
	assert.Len(t, countries, 23)
	assert.Equal(t, "nigeria", countries[0].Slug)
	assert.Equal(t, "NG", countries[0].Code)

	total := 0
	for _, cities := range s.AllCities() {
		total += len(cities)
	}
	assert.Equal(t, 87, total)

	cats := s.Categories()
	require.Len(t, cats, 8)
	assert.Equal(t, "for-sale", cats[0].Slug)
	assert.Equal(t, "p2p-lending", cats[7].Slug)
}

func TestStore_CountryAndCityLookups(t *testing.T) {
	s := taxonomy.MustLoad()

	c, ok := s.Country("Nigeria")
	require.True(t, ok, "slug lookups ignore case")
	assert.Equal(t, "Nigeria", c.Name)
	assert.Len(t, c.Cities, 6)

	_, ok = s.Country("atlantis")
	assert.False(t, ok)

	cities, ok := s.Cities("ghana")
	require.True(t, ok)
	assert.Equal(t, "accra", cities[0].Slug)

	city, ok := s.City("nigeria", "port-harcourt")
	require.True(t, ok)
	assert.Equal(t, "Port Harcourt", city.Name)

	_, ok = s.City("ghana", "lagos")
	assert.False(t, ok, "city must belong to the given country")

	city, ok = s.City("", "DAKAR")
	require.True(t, ok, "empty country searches every country")
	assert.Equal(t, "dakar", city.Slug)
}

func TestStore_CategoryLookups(t *testing.T) {
	s := taxonomy.MustLoad()

	housing, ok := s.Category("housing")
	require.True(t, ok)
	assert.True(t, housing.FilterConfig.PriceRange)
	bedrooms, ok := housing.FilterConfig.Filter("bedrooms")
	require.True(t, ok)
	assert.True(t, bedrooms.HasOption("4+"))

	jobs, _ := s.Category("jobs")
	assert.Equal(t, []string{"featured", "date"}, jobs.FilterConfig.Sort)

	personal, _ := s.Category("personal")
	assert.False(t, personal.FilterConfig.PriceRange)
	assert.Empty(t, personal.FilterConfig.Filters)

	subs, ok := s.SubCategories("for-sale")
	require.True(t, ok)
	assert.Len(t, subs, 6)

	_, ok = s.SubCategories("nope")
	assert.False(t, ok)
}

func TestStore_SubCategoryMatchesSlugOrName(t *testing.T) {
	s := taxonomy.MustLoad()

	sub, ok := s.SubCategory("for-sale", "cars-trucks")
	require.True(t, ok)
	assert.Equal(t, "Cars & Trucks", sub.Name)

	sub, ok = s.SubCategory("for-sale", "cars & trucks")
	require.True(t, ok)
	assert.Equal(t, "cars-trucks", sub.Slug)

	_, ok = s.SubCategory("housing", "electronics")
	assert.False(t, ok)

	sub, ok = s.SubCategory("", "gigs")
	require.True(t, ok, "empty category searches every category")
	assert.Equal(t, "Gigs", sub.Name)

	_, ok = s.SubCategory("for-sale", "nonexistent-sub")
	assert.False(t, ok)
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := taxonomy.MustLoad()

	cat, _ := s.Category("for-sale")
	n := 3
	cat.Count = &n
	cat.SubCategories[0].Name = "Mutated"
	cat.FilterConfig.Filters[0].Options[0].Value = "mutated"
	cat.FilterConfig.Sort[0] = "mutated"

	fresh, _ := s.Category("for-sale")
	assert.Nil(t, fresh.Count)
	assert.Equal(t, "Electronics", fresh.SubCategories[0].Name)
	assert.Equal(t, "new", fresh.FilterConfig.Filters[0].Options[0].Value)
	assert.Equal(t, "featured", fresh.FilterConfig.Sort[0])

	country, _ := s.Country("ghana")
	country.Cities[0].Name = "Mutated"
	again, _ := s.Country("ghana")
	assert.Equal(t, "Accra", again.Cities[0].Name)
}

func TestParse_RejectsInvalidDatasets(t *testing.T) {
	countries := []byte("countries:\n  - {id: 1, code: NG, name: Nigeria, slug: nigeria, cities: []}\n")

	tests := []struct {
		name       string
		categories string
	}{
		{
			name: "duplicate category slug",
			categories: `categories:
  - {slug: jobs, name: Jobs}
  - {slug: JOBS, name: Jobs again}
`,
		},
		{
			name: "reserved filter key",
			categories: `categories:
  - slug: jobs
    name: Jobs
    filter_config:
      filters:
        - {type: select, key: sort, label: Sort}
`,
		},
		{
			name: "duplicate filter key",
			categories: `categories:
  - slug: jobs
    name: Jobs
    filter_config:
      filters:
        - {type: select, key: type, label: Type}
        - {type: radio, key: type, label: Type}
`,
		},
		{
			name: "duplicate subcategory slug",
			categories: `categories:
  - slug: jobs
    name: Jobs
    subcategories:
      - {slug: gigs, name: Gigs}
      - {slug: gigs, name: More gigs}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := taxonomy.Parse(countries, []byte(tt.categories))
			assert.Error(t, err)
		})
	}
}
