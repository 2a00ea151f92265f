package services

import (
	"context"
	"log"

	"github.com/omarcisse97/sopo/internal/cache"
	"github.com/omarcisse97/sopo/internal/models"
)

// CountScope selects the active listings to count. SubCategory is a slug or
// display name of a subcategory of Category.
type CountScope struct {
	Country     string
	City        string
	Category    string
	SubCategory string
}

// ICountService aggregates listing counts for browse pages.
type ICountService interface {
	// Count returns nil when the count is unknown (store or taxonomy failure).
	Count(ctx context.Context, scope CountScope) *int
	AnnotateCategory(ctx context.Context, country, city string, category models.Category) models.Category
	AnnotateCategories(ctx context.Context, country, city string, categories []models.Category) []models.Category
	FlushCache(ctx context.Context) (int, error)
}

type countService struct {
	listings IListingService
	tax      SubCategoryResolver
	cache    cache.ICountCache // optional
}

// NewCountService creates a count aggregator. countCache may be nil.
func NewCountService(listings IListingService, tax SubCategoryResolver, countCache cache.ICountCache) ICountService {
	return &countService{listings: listings, tax: tax, cache: countCache}
}

func (s *countService) Count(ctx context.Context, scope CountScope) *int {
	key := []string{scope.Country, scope.City, scope.Category, scope.SubCategory}
	if s.cache != nil {
		if n, ok := s.cache.Get(ctx, key...); ok {
			return &n
		}
	}

	count, err := BuildCountQuery(s.tax, ListingScope{Country: scope.Country, City: scope.City, Category: scope.Category}, scope.SubCategory)
	if err != nil {
		log.Printf("Cannot count listings for %v: %v", key, err)
		return nil
	}
	n, err := s.listings.CountListings(ctx, count)
	if err != nil {
		log.Printf("Error counting listings for %v: %v", key, err)
		return nil
	}

	if s.cache != nil {
		s.cache.Set(ctx, n, key...)
	}
	return &n
}

// AnnotateCategory returns a copy of category carrying its own count and the
// count of each subcategory within country/city.
func (s *countService) AnnotateCategory(ctx context.Context, country, city string, category models.Category) models.Category {
	out := category.Clone()
	out.Count = s.Count(ctx, CountScope{Country: country, City: city, Category: category.Slug})
	for i, sub := range out.SubCategories {
		out.SubCategories[i].Count = s.Count(ctx, CountScope{
			Country:     country,
			City:        city,
			Category:    category.Slug,
			SubCategory: sub.Slug,
		})
	}
	return out
}

func (s *countService) AnnotateCategories(ctx context.Context, country, city string, categories []models.Category) []models.Category {
	out := make([]models.Category, len(categories))
	for i, c := range categories {
		out[i] = s.AnnotateCategory(ctx, country, city, c)
	}
	return out
}

// FlushCache drops cached counts so the next reads hit the store.
func (s *countService) FlushCache(ctx context.Context) (int, error) {
	if s.cache == nil {
		return 0, nil
	}
	return s.cache.Flush(ctx)
}
