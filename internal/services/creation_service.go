package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"

	"github.com/omarcisse97/sopo/internal/config"
	"github.com/omarcisse97/sopo/internal/models"
	"github.com/omarcisse97/sopo/internal/query"
	"github.com/omarcisse97/sopo/internal/storage"
)

// Messages shown to the poster when creation fails.
const (
	MsgFixErrors      = "Failed to create listing. Fix all errors and try again"
	MsgCreateFailed   = "Failed to create listing. Try again or contact SoPo Support"
	MsgCreateConflict = "An error occurred while creating the listing. Try again or contact SoPo Support"
)

// Form keys with a dedicated column. Every other non-blank key is a category attribute.
var fixedFormKeys = map[string]bool{
	"title": true, "description": true, "country_slug": true, "city_slug": true,
	"location": true, "category_slug": true, "expires_at": true, "subcategories": true,
	"subcategories[]": true, "price": true, "currency": true, "images": true,
	"contact_email": true, "contact_phone": true,
}

// ImageFile is one uploaded image of a creation form.
type ImageFile struct {
	Filename    string
	ContentType string // declared by the client
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// ImageFileFromHeader adapts a multipart file part.
func ImageFileFromHeader(fh *multipart.FileHeader) ImageFile {
	return ImageFile{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// ListingForm is a submitted creation form.
type ListingForm struct {
	Values url.Values
	Images []ImageFile
}

// CreateResult describes a created listing.
type CreateResult struct {
	ID       int64  `json:"id"`
	Location string `json:"location"`
	Images   int    `json:"images"`
}

// CreateError is a failed creation. FieldErrors is set only for validation
// failures; nothing was persisted in that case.
type CreateError struct {
	Message     string              `json:"message"`
	FieldErrors map[string][]string `json:"errors,omitempty"`
	Err         error               `json:"-"`
}

func (e *CreateError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *CreateError) Unwrap() error { return e.Err }

// IsValidation reports whether the poster can fix the error.
func (e *CreateError) IsValidation() bool { return len(e.FieldErrors) > 0 }

// ThumbnailScheduler queues thumbnail generation for uploaded images.
type ThumbnailScheduler interface {
	ScheduleThumbnails(ctx context.Context, listingID int64, imageKeys []string)
}

// ICreationService turns a submitted form into a listing.
type ICreationService interface {
	CreateListing(ctx context.Context, form ListingForm) (*CreateResult, error)
}

type creationService struct {
	listings IListingService
	images   storage.IImageStorage
	cfg      *config.Config
	thumbs   ThumbnailScheduler // optional
}

// NewCreationService creates the listing creation pipeline. thumbs may be nil.
func NewCreationService(listings IListingService, images storage.IImageStorage, cfg *config.Config, thumbs ThumbnailScheduler) ICreationService {
	return &creationService{listings: listings, images: images, cfg: cfg, thumbs: thumbs}
}

type listingInput struct {
	Title         string   `form:"title" validate:"required"`
	Description   string   `form:"description" validate:"required"`
	CountrySlug   string   `form:"country_slug" validate:"required"`
	CitySlug      string   `form:"city_slug" validate:"required"`
	CategorySlug  string   `form:"category_slug" validate:"required"`
	Location      string   `form:"location"`
	SubCategories []string `form:"subcategories"`
	Price         string   `form:"price"`
	Currency      string   `form:"currency" validate:"omitempty,max=8"`
	ContactEmail  string   `form:"contact_email" validate:"required,email"`
	ContactPhone  string   `form:"contact_phone"`
	ExpiresAt     string   `form:"expires_at"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("form")
	})
	return v
}

// CreateListing runs validate, persist, upload and finalize. Upload problems
// never fail the creation; the listing is kept without images.
func (s *creationService) CreateListing(ctx context.Context, form ListingForm) (*CreateResult, error) {
	in, expiresAt, fieldErrors := s.validateForm(form)
	if len(fieldErrors) > 0 {
		return nil, &CreateError{Message: MsgFixErrors, FieldErrors: fieldErrors}
	}

	insert := buildListingInsert(in, expiresAt, extractCategoryData(form.Values))
	id, err := s.listings.InsertListing(ctx, *insert)
	if err != nil {
		log.Printf("Listing creation failed at persist stage (%s/%s/%s): %v", in.CountrySlug, in.CitySlug, in.CategorySlug, err)
		if errors.Is(err, query.ErrColumnValueMismatch) || errors.Is(err, query.ErrUnknownColumn) {
			return nil, &CreateError{Message: MsgCreateConflict, Err: err}
		}
		return nil, &CreateError{Message: MsgCreateFailed, Err: err}
	}

	keys, urls := s.uploadImages(ctx, id, form.Images)
	if len(urls) > 0 {
		if err := s.listings.SetListingImages(ctx, id, urls); err != nil {
			log.Printf("Listing %d created but attaching %d images failed: %v", id, len(urls), err)
			urls = nil
		} else if s.thumbs != nil {
			s.thumbs.ScheduleThumbnails(ctx, id, keys)
		}
	}

	return &CreateResult{
		ID:       id,
		Location: models.ListingPath(in.CountrySlug, in.CitySlug, in.CategorySlug, id),
		Images:   len(urls),
	}, nil
}

func (s *creationService) validateForm(form ListingForm) (listingInput, *time.Time, map[string][]string) {
	in := listingInput{
		Title:        formValue(form.Values, "title"),
		Description:  formValue(form.Values, "description"),
		CountrySlug:  formValue(form.Values, "country_slug"),
		CitySlug:     formValue(form.Values, "city_slug"),
		CategorySlug: formValue(form.Values, "category_slug"),
		Location:     formValue(form.Values, "location"),
		Price:        formValue(form.Values, "price"),
		Currency:     formValue(form.Values, "currency"),
		ContactEmail: formValue(form.Values, "contact_email"),
		ContactPhone: formValue(form.Values, "contact_phone"),
		ExpiresAt:    formValue(form.Values, "expires_at"),
	}
	for _, key := range []string{"subcategories", "subcategories[]"} {
		for _, sub := range form.Values[key] {
			if sub = strings.TrimSpace(sub); sub != "" {
				in.SubCategories = append(in.SubCategories, sub)
			}
		}
	}

	fieldErrors := make(map[string][]string)
	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			fieldErrors["form"] = append(fieldErrors["form"], "Invalid form")
		}
		for _, fe := range verrs {
			fieldErrors[fe.Field()] = append(fieldErrors[fe.Field()], validationMessage(fe))
		}
	}

	var expiresAt *time.Time
	if in.ExpiresAt != "" {
		t, err := parseExpiresAt(in.ExpiresAt)
		if err != nil {
			fieldErrors["expires_at"] = append(fieldErrors["expires_at"], "Invalid date")
		} else {
			expiresAt = &t
		}
	}

	for _, msg := range s.validateImages(form.Images) {
		fieldErrors["images"] = append(fieldErrors["images"], msg)
	}
	return in, expiresAt, fieldErrors
}

func (s *creationService) validateImages(images []ImageFile) []string {
	var msgs []string
	if len(images) > s.cfg.ImageMaxCount {
		msgs = append(msgs, fmt.Sprintf("Maximum %d images allowed", s.cfg.ImageMaxCount))
	}
	for _, img := range images {
		switch {
		case !strings.HasPrefix(strings.ToLower(img.ContentType), "image/"):
			msgs = append(msgs, fmt.Sprintf("%s: file must be an image", img.Filename))
		case img.Size <= 0:
			msgs = append(msgs, fmt.Sprintf("%s: file is empty", img.Filename))
		case img.Size > s.cfg.ImageMaxSizeBytes():
			msgs = append(msgs, fmt.Sprintf("%s: image must be %dMB or smaller", img.Filename, s.cfg.ImageMaxSizeMB))
		}
	}
	return msgs
}

// uploadImages stores images in submission order. The first failure aborts
// the batch, removes whatever reached the listing's namespace, and yields no images.
func (s *creationService) uploadImages(ctx context.Context, id int64, images []ImageFile) ([]string, []string) {
	if len(images) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(images))
	urls := make([]string, 0, len(images))
	for i, img := range images {
		key := storage.ListingImageKey(id, i+1, img.Filename)
		if err := s.putImage(ctx, key, img); err != nil {
			log.Printf("Image %d of %d for listing %d failed, discarding the batch: %v", i+1, len(images), id, err)
			s.cleanupImages(ctx, id)
			return nil, nil
		}
		keys = append(keys, key)
		urls = append(urls, s.images.PublicURL(key))
	}
	return keys, urls
}

func (s *creationService) putImage(ctx context.Context, key string, img ImageFile) error {
	rc, err := img.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", img.Filename, err)
	}
	defer rc.Close()
	return s.images.PutObject(ctx, key, img.ContentType, rc, img.Size)
}

func (s *creationService) cleanupImages(ctx context.Context, id int64) {
	prefix := storage.ListingPrefix(id) + "/"
	keys, err := s.images.ListObjects(ctx, prefix)
	if err != nil {
		log.Printf("Cleanup of %s: listing failed: %v", prefix, err)
		return
	}
	if err := s.images.DeleteObjects(ctx, keys); err != nil {
		log.Printf("Cleanup of %s: delete failed: %v", prefix, err)
	}
}

func buildListingInsert(in listingInput, expiresAt *time.Time, data models.CategoryData) *query.Insert {
	insert := &query.Insert{}
	insert.Set(query.ColTitle, in.Title).
		Set(query.ColDescription, in.Description).
		Set(query.ColCountrySlug, in.CountrySlug).
		Set(query.ColCitySlug, in.CitySlug).
		Set(query.ColCategorySlug, in.CategorySlug).
		Set(query.ColContactEmail, in.ContactEmail)

	optional := []struct {
		col   query.Column
		value string
	}{
		{query.ColLocation, in.Location},
		{query.ColPrice, in.Price},
		{query.ColCurrency, in.Currency},
		{query.ColContactPhone, in.ContactPhone},
	}
	for _, o := range optional {
		if o.value != "" {
			insert.Set(o.col, o.value)
		}
	}
	if expiresAt != nil {
		insert.Set(query.ColExpiresAt, *expiresAt)
	}

	subs := pq.StringArray(in.SubCategories)
	if subs == nil {
		subs = pq.StringArray{}
	}
	insert.Set(query.ColSubCategory, subs)
	insert.Set(query.ColCategoryData, data)
	return insert
}

// extractCategoryData collects every non-fixed, non-blank form key.
func extractCategoryData(values url.Values) models.CategoryData {
	data := models.CategoryData{}
	for key := range values {
		if fixedFormKeys[key] {
			continue
		}
		if v := formValue(values, key); v != "" {
			data[key] = v
		}
	}
	return data
}

func formValue(values url.Values, key string) string {
	return strings.TrimSpace(values.Get(key))
}

func parseExpiresAt(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email address"
	case "max":
		return fmt.Sprintf("Must be at most %s characters", fe.Param())
	default:
		return "Invalid value"
	}
}
