package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/omarcisse97/sopo/internal/models"
	"github.com/omarcisse97/sopo/internal/services"
)

// TaxonomyLookup is the read side of the location and category taxonomy.
type TaxonomyLookup interface {
	Countries() []models.Country
	Country(slug string) (models.Country, bool)
	City(countrySlug, citySlug string) (models.City, bool)
	Categories() []models.Category
	Category(slug string) (models.Category, bool)
	SubCategory(categorySlug, sub string) (models.SubCategory, bool)
}

// browseScope is a resolved country/city[/category] path.
type browseScope struct {
	Country  models.Country
	City     models.City
	Category models.Category
}

// resolveScope resolves the :country, :city and, when withCategory is set,
// :category path params. It writes the 404 itself and reports false on a miss.
func resolveScope(c *gin.Context, tax TaxonomyLookup, withCategory bool) (browseScope, bool) {
	var scope browseScope
	var ok bool
	if scope.Country, ok = tax.Country(c.Param("country")); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Country not found"})
		return scope, false
	}
	if scope.City, ok = tax.City(scope.Country.Slug, c.Param("city")); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "City not found"})
		return scope, false
	}
	if !withCategory {
		return scope, true
	}
	if scope.Category, ok = tax.Category(c.Param("category")); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return scope, false
	}
	return scope, true
}

// RestTaxonomyHandler serves countries, cities and categories.
type RestTaxonomyHandler struct {
	tax    TaxonomyLookup
	counts services.ICountService
}

// NewRestTaxonomyHandler creates a new RestTaxonomyHandler.
func NewRestTaxonomyHandler(tax TaxonomyLookup, counts services.ICountService) *RestTaxonomyHandler {
	return &RestTaxonomyHandler{tax: tax, counts: counts}
}

// ListCountries handles GET /v1/countries
func (h *RestTaxonomyHandler) ListCountries(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.tax.Countries()})
}

// GetCountry handles GET /v1/countries/:country
func (h *RestTaxonomyHandler) GetCountry(c *gin.Context) {
	country, ok := h.tax.Country(c.Param("country"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Country not found"})
		return
	}
	c.JSON(http.StatusOK, country)
}

// GetCity handles GET /v1/countries/:country/cities/:city. Categories carry
// listing counts for the city; a count is null when it could not be computed.
func (h *RestTaxonomyHandler) GetCity(c *gin.Context) {
	scope, ok := resolveScope(c, h.tax, false)
	if !ok {
		return
	}
	categories := h.counts.AnnotateCategories(c.Request.Context(), scope.Country.Slug, scope.City.Slug, h.tax.Categories())

	c.JSON(http.StatusOK, gin.H{
		"country":    countrySummary(scope.Country),
		"city":       scope.City,
		"categories": categories,
	})
}

// ListCategories handles GET /v1/categories
func (h *RestTaxonomyHandler) ListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.tax.Categories()})
}

// GetCategory handles GET /v1/countries/:country/cities/:city/categories/:category.
// filter_config is the category's own config plus the subcategory filter.
func (h *RestTaxonomyHandler) GetCategory(c *gin.Context) {
	scope, ok := resolveScope(c, h.tax, true)
	if !ok {
		return
	}
	category := h.counts.AnnotateCategory(c.Request.Context(), scope.Country.Slug, scope.City.Slug, scope.Category)

	c.JSON(http.StatusOK, gin.H{
		"country":       countrySummary(scope.Country),
		"city":          scope.City,
		"category":      category,
		"filter_config": services.WithSubCategoryFilter(scope.Category),
	})
}

func countrySummary(country models.Country) gin.H {
	return gin.H{
		"id":   country.ID,
		"code": country.Code,
		"name": country.Name,
		"slug": country.Slug,
	}
}
