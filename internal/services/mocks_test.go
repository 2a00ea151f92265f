package services

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/omarcisse97/sopo/internal/models"
	"github.com/omarcisse97/sopo/internal/query"
)

// --- Mock IListingService ---
type mockListingService struct {
	mock.Mock
}

func (m *mockListingService) FilterListings(ctx context.Context, scope ListingScope, filters map[string]string, limit, offset int) ([]models.Listing, error) {
	args := m.Called(ctx, scope, filters, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}
func (m *mockListingService) CountListings(ctx context.Context, count query.Count) (int, error) {
	args := m.Called(ctx, count)
	return args.Int(0), args.Error(1)
}
func (m *mockListingService) SearchListings(ctx context.Context, params SearchParams) ([]models.Listing, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}
func (m *mockListingService) FindListingByID(ctx context.Context, id int64) (*models.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}
func (m *mockListingService) FindListingsByEmail(ctx context.Context, email string) ([]models.Listing, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}
func (m *mockListingService) InsertListing(ctx context.Context, insert query.Insert) (int64, error) {
	args := m.Called(ctx, insert)
	return args.Get(0).(int64), args.Error(1)
}
func (m *mockListingService) SetListingImages(ctx context.Context, id int64, urls []string) error {
	args := m.Called(ctx, id, urls)
	return args.Error(0)
}
func (m *mockListingService) IncrementViews(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// --- Mock ICountCache ---
type mockCountCache struct {
	mock.Mock
}

func (m *mockCountCache) Get(ctx context.Context, scope ...string) (int, bool) {
	args := m.Called(ctx, scope)
	return args.Int(0), args.Bool(1)
}
func (m *mockCountCache) Set(ctx context.Context, n int, scope ...string) {
	m.Called(ctx, n, scope)
}
func (m *mockCountCache) Flush(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// --- Mock IImageStorage ---
type mockImageStorage struct {
	mock.Mock
}

func (m *mockImageStorage) PutObject(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	args := m.Called(ctx, key, contentType, body, size)
	return args.Error(0)
}
func (m *mockImageStorage) GetObject(ctx context.Context, key string) (io.ReadCloser, string, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.String(1), args.Error(2)
}
func (m *mockImageStorage) PublicURL(key string) string {
	return "https://img.example.com/" + key
}
func (m *mockImageStorage) ListObjects(ctx context.Context, prefix string) ([]string, error) {
	args := m.Called(ctx, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
func (m *mockImageStorage) DeleteObjects(ctx context.Context, keys []string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

// --- Mock ThumbnailScheduler ---
type mockThumbnailScheduler struct {
	mock.Mock
}

func (m *mockThumbnailScheduler) ScheduleThumbnails(ctx context.Context, listingID int64, imageKeys []string) {
	m.Called(ctx, listingID, imageKeys)
}
