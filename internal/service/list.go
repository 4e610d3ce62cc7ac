package service

import (
	"context"
	"fmt"

	"github.com/content-dashboard/internal/cache"
	"github.com/content-dashboard/internal/client"
	"github.com/content-dashboard/internal/models"
	"github.com/rs/zerolog"
)

type listService struct {
	store    client.ContentStore
	cache    *cache.QueryCache
	statuses StatusService
	perPage  int
	log      zerolog.Logger
}

func newListService(store client.ContentStore, qc *cache.QueryCache, statuses StatusService, perPage int, log zerolog.Logger) *listService {
	if perPage < 1 {
		perPage = models.DefaultPerPage
	}
	return &listService{
		store:    store,
		cache:    qc,
		statuses: statuses,
		perPage:  perPage,
		log:      log.With().Str("service", "list").Logger(),
	}
}

// Page renders one page of a subcategory through the query cache
func (s *listService) Page(ctx context.Context, session models.Session, categoryID, subcategoryID int64, page int) (*models.ListView, error) {
	if categoryID < 1 || subcategoryID < 1 {
		return nil, ErrInvalidScope
	}
	if page < 1 {
		page = 1
	}

	key := cache.ContentsKey(categoryID, subcategoryID, page)
	result, err := cache.Fetch(ctx, s.cache, key, func(ctx context.Context) (*models.ContentPage, error) {
		return s.store.ListContents(ctx, session, categoryID, subcategoryID, page, s.perPage)
	})
	if err != nil {
		s.log.Warn().Err(err).Str("key", key.String()).Msg("Failed to load content page")
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	if result == nil {
		result = &models.ContentPage{CurrentPage: page, PerPage: s.perPage}
	}

	s.statuses.Observe(result.Data)
	return s.render(categoryID, subcategoryID, page, result), nil
}

// Retry drops the cached page and requests it again
func (s *listService) Retry(ctx context.Context, session models.Session, categoryID, subcategoryID int64, page int) (*models.ListView, error) {
	if page < 1 {
		page = 1
	}
	if err := s.cache.Invalidate(ctx, cache.ContentsKey(categoryID, subcategoryID, page)); err != nil {
		s.log.Warn().Err(err).Msg("Failed to invalidate page before retry")
	}
	return s.Page(ctx, session, categoryID, subcategoryID, page)
}

// EditForm pre-fills the edit form from a row of the given page
func (s *listService) EditForm(ctx context.Context, session models.Session, categoryID, subcategoryID int64, page int, id int64) (*models.ContentForm, error) {
	if !session.CanEdit() {
		return nil, ErrForbidden
	}

	view, err := s.Page(ctx, session, categoryID, subcategoryID, page)
	if err != nil {
		return nil, err
	}
	for i := range view.Rows {
		if view.Rows[i].Item.ID == id {
			form := models.FormFromItem(&view.Rows[i].Item)
			// Rows from the dashboard listing may omit the taxonomy ids
			if form.CategoryID == 0 {
				form.CategoryID = categoryID
			}
			if form.SubcategoryID == 0 {
				form.SubcategoryID = subcategoryID
			}
			if form.OriginalCategoryID == 0 || form.OriginalSubcategoryID == 0 {
				form.OriginalCategoryID, form.OriginalSubcategoryID = categoryID, subcategoryID
			}
			return form, nil
		}
	}
	return nil, fmt.Errorf("%w: id %d", ErrContentNotFound, id)
}

func (s *listService) render(categoryID, subcategoryID int64, page int, result *models.ContentPage) *models.ListView {
	totalPages := result.Pages()
	view := &models.ListView{
		CategoryID:    categoryID,
		SubcategoryID: subcategoryID,
		Rows:          make([]models.ListRow, 0, len(result.Data)),
		Page:          page,
		PerPage:       result.PerPage,
		Total:         result.Total,
		TotalPages:    totalPages,
		Summary:       result.Summary(),
		Pages:         make([]int, 0, totalPages),
		Statuses:      models.AllStatuses(),
	}

	for _, item := range result.Data {
		row := models.ListRow{Item: item, StatusKnown: item.Status.Valid()}
		if !row.StatusKnown {
			// Never show a value outside the enumeration
			row.Item.Status = ""
		}
		if state, ok := s.statuses.State(item.ID); ok && state.Pending {
			row.Item.Status = state.Displayed
			row.StatusKnown = true
			row.Pending = true
		}
		view.Rows = append(view.Rows, row)
	}
	for p := 1; p <= totalPages; p++ {
		view.Pages = append(view.Pages, p)
	}
	return view
}
