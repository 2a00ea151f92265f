package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/omarcisse97/sopo/internal/config"
	"github.com/omarcisse97/sopo/internal/services"
)

// multipart overhead allowed on top of the image payload
const formOverheadBytes = 1 << 20

// ViewRecorder counts a listing view without blocking the request.
type ViewRecorder interface {
	RecordView(listingID int64)
}

// RestListingHandler handles REST requests for listings.
type RestListingHandler struct {
	cfg            *config.Config
	tax            TaxonomyLookup
	listingService services.IListingService
	creation       services.ICreationService
	views          ViewRecorder
}

// NewRestListingHandler creates a new RestListingHandler.
func NewRestListingHandler(cfg *config.Config, tax TaxonomyLookup, listingService services.IListingService, creation services.ICreationService, views ViewRecorder) *RestListingHandler {
	return &RestListingHandler{
		cfg:            cfg,
		tax:            tax,
		listingService: listingService,
		creation:       creation,
		views:          views,
	}
}

// BrowseListings handles GET /v1/countries/:country/cities/:city/categories/:category/listings
func (h *RestListingHandler) BrowseListings(c *gin.Context) {
	scope, ok := resolveScope(c, h.tax, true)
	if !ok {
		return
	}

	filters := services.FilterParams(c.Request.URL.Query())
	if err := services.ValidateFilters(services.WithSubCategoryFilter(scope.Category), filters); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	limit, offset := h.pagination(c)
	listings, err := h.listingService.FilterListings(c.Request.Context(), services.ListingScope{
		Country:  scope.Country.Slug,
		City:     scope.City.Slug,
		Category: scope.Category.Slug,
	}, filters, limit, offset)
	if err != nil {
		var ferr *services.FilterError
		if errors.Is(err, services.ErrSubCategoryMismatch) || errors.As(err, &ferr) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		log.Printf("Error loading listings for %s/%s/%s: %v", scope.Country.Slug, scope.City.Slug, scope.Category.Slug, err)
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to load listings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":   listings,
		"limit":  limit,
		"offset": offset,
	})
}

// GetListingByID handles GET /v1/listings/:id
func (h *RestListingHandler) GetListingByID(c *gin.Context) {
	listingID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || listingID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID format"})
		return
	}

	listing, err := h.listingService.FindListingByID(c.Request.Context(), listingID)
	if err != nil {
		if errors.Is(err, services.ErrListingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
		} else {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve listing"})
		}
		return
	}

	if h.views != nil {
		h.views.RecordView(listing.ID)
	}
	c.JSON(http.StatusOK, listing)
}

// SearchListings handles GET /v1/listings/search
func (h *RestListingHandler) SearchListings(c *gin.Context) {
	keyword := strings.TrimSpace(c.Query("q"))
	if keyword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing search query parameter 'q'"})
		return
	}
	limit, _ := h.pagination(c)

	listings, err := h.listingService.SearchListings(c.Request.Context(), services.SearchParams{
		Keyword:  keyword,
		Category: strings.TrimSpace(c.Query("category")),
		City:     strings.TrimSpace(c.Query("city")),
		Limit:    limit,
	})
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to search listings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": listings})
}

// ListingsByEmail handles GET /v1/listings/by-email
func (h *RestListingHandler) ListingsByEmail(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing query parameter 'email'"})
		return
	}

	listings, err := h.listingService.FindListingsByEmail(c.Request.Context(), email)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to load listings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": listings})
}

// CreateListing handles POST /v1/listings with a multipart or urlencoded form.
func (h *RestListingHandler) CreateListing(c *gin.Context) {
	maxBody := int64(h.cfg.ImageMaxCount)*h.cfg.ImageMaxSizeBytes() + formOverheadBytes
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBody)

	form, err := readListingForm(c)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid form"})
		return
	}

	result, err := h.creation.CreateListing(c.Request.Context(), form)
	if err != nil {
		var cerr *services.CreateError
		if errors.As(err, &cerr) && cerr.IsValidation() {
			c.JSON(http.StatusBadRequest, cerr)
			return
		}
		_ = c.Error(err)
		msg := services.MsgCreateFailed
		if cerr != nil {
			msg = cerr.Message
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
		return
	}

	c.Header("Location", result.Location)
	c.JSON(http.StatusCreated, result)
}

func readListingForm(c *gin.Context) (services.ListingForm, error) {
	mf, err := c.MultipartForm()
	if errors.Is(err, http.ErrNotMultipart) {
		if err := c.Request.ParseForm(); err != nil {
			return services.ListingForm{}, err
		}
		return services.ListingForm{Values: c.Request.PostForm}, nil
	}
	if err != nil {
		return services.ListingForm{}, err
	}

	form := services.ListingForm{Values: mf.Value}
	for _, key := range []string{"images", "images[]"} {
		for _, fh := range mf.File[key] {
			// empty file inputs submit a part without a filename
			if fh.Filename == "" && fh.Size == 0 {
				continue
			}
			form.Images = append(form.Images, services.ImageFileFromHeader(fh))
		}
	}
	return form, nil
}

// pagination reads limit/offset. Invalid values fall back to defaults; limit is capped.
func (h *RestListingHandler) pagination(c *gin.Context) (int, int) {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		limit = h.cfg.DefaultPageSize
	}
	if h.cfg.MaxPageSize > 0 && limit > h.cfg.MaxPageSize {
		limit = h.cfg.MaxPageSize
	}
	offset, err := strconv.Atoi(c.Query("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
