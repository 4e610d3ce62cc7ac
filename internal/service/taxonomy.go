package service

import (
	"context"

	"github.com/content-dashboard/internal/cache"
	"github.com/content-dashboard/internal/client"
	"github.com/content-dashboard/internal/models"
	"github.com/rs/zerolog"
)

// taxonomyService reads categories for the form's pickers, cached under
// their own keys. Content mutations never invalidate them.
type taxonomyService struct {
	store client.ContentStore
	cache *cache.QueryCache
	log   zerolog.Logger
}

func newTaxonomyService(store client.ContentStore, qc *cache.QueryCache, log zerolog.Logger) *taxonomyService {
	return &taxonomyService{
		store: store,
		cache: qc,
		log:   log.With().Str("service", "taxonomy").Logger(),
	}
}

func (s *taxonomyService) Categories(ctx context.Context, session models.Session) ([]models.Category, error) {
	return cache.Fetch(ctx, s.cache, cache.CategoriesKey(), func(ctx context.Context) ([]models.Category, error) {
		return s.store.ListCategories(ctx, session)
	})
}

func (s *taxonomyService) Subcategories(ctx context.Context, session models.Session, categoryID int64) ([]models.Subcategory, error) {
	if categoryID < 1 {
		return nil, ErrInvalidScope
	}
	return cache.Fetch(ctx, s.cache, cache.SubcategoriesKey(categoryID), func(ctx context.Context) ([]models.Subcategory, error) {
		return s.store.ListSubcategories(ctx, session, categoryID)
	})
}
