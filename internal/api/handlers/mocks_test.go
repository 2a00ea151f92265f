package handlers_test

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/omarcisse97/sopo/internal/models"
	"github.com/omarcisse97/sopo/internal/query"
	"github.com/omarcisse97/sopo/internal/services"
)

// --- Mocks ---

// MockListingService
type MockListingService struct {
	mock.Mock
}

func (m *MockListingService) FilterListings(ctx context.Context, scope services.ListingScope, filters map[string]string, limit, offset int) ([]models.Listing, error) {
	args := m.Called(ctx, scope, filters, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}
func (m *MockListingService) CountListings(ctx context.Context, count query.Count) (int, error) {
	args := m.Called(ctx, count)
	return args.Int(0), args.Error(1)
}
func (m *MockListingService) SearchListings(ctx context.Context, params services.SearchParams) ([]models.Listing, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}
func (m *MockListingService) FindListingByID(ctx context.Context, id int64) (*models.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}
func (m *MockListingService) FindListingsByEmail(ctx context.Context, email string) ([]models.Listing, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}
func (m *MockListingService) InsertListing(ctx context.Context, insert query.Insert) (int64, error) {
	args := m.Called(ctx, insert)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockListingService) SetListingImages(ctx context.Context, id int64, urls []string) error {
	args := m.Called(ctx, id, urls)
	return args.Error(0)
}
func (m *MockListingService) IncrementViews(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockCountService
type MockCountService struct {
	mock.Mock
}

func (m *MockCountService) Count(ctx context.Context, scope services.CountScope) *int {
	args := m.Called(ctx, scope)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*int)
}
func (m *MockCountService) AnnotateCategory(ctx context.Context, country, city string, category models.Category) models.Category {
	args := m.Called(ctx, country, city, category)
	return args.Get(0).(models.Category)
}
func (m *MockCountService) AnnotateCategories(ctx context.Context, country, city string, categories []models.Category) []models.Category {
	args := m.Called(ctx, country, city, categories)
	return args.Get(0).([]models.Category)
}
func (m *MockCountService) FlushCache(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// MockCreationService
type MockCreationService struct {
	mock.Mock
}

func (m *MockCreationService) CreateListing(ctx context.Context, form services.ListingForm) (*services.CreateResult, error) {
	args := m.Called(ctx, form)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.CreateResult), args.Error(1)
}

// MockViewRecorder
type MockViewRecorder struct {
	mock.Mock
}

func (m *MockViewRecorder) RecordView(listingID int64) {
	m.Called(listingID)
}

// MockImageStorage
type MockImageStorage struct {
	mock.Mock
}

func (m *MockImageStorage) PutObject(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	args := m.Called(ctx, key, contentType, body, size)
	return args.Error(0)
}
func (m *MockImageStorage) GetObject(ctx context.Context, key string) (io.ReadCloser, string, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.String(1), args.Error(2)
}
func (m *MockImageStorage) PublicURL(key string) string {
	return "http://localhost:8080/v1/images/" + key
}
func (m *MockImageStorage) ListObjects(ctx context.Context, prefix string) ([]string, error) {
	args := m.Called(ctx, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
func (m *MockImageStorage) DeleteObjects(ctx context.Context, keys []string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}
