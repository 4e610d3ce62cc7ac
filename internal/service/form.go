package service

import (
	"context"

	"github.com/content-dashboard/internal/cache"
	"github.com/content-dashboard/internal/client"
	"github.com/content-dashboard/internal/metrics"
	"github.com/content-dashboard/internal/models"
	"github.com/content-dashboard/internal/validation"
	"github.com/rs/zerolog"
)

type formService struct {
	store     client.ContentStore
	cache     *cache.QueryCache
	validator *validation.Validator
	uploads   ImageStager
	notifier  Notifier
	metrics   *metrics.Metrics
	log       zerolog.Logger
}

func newFormService(store client.ContentStore, qc *cache.QueryCache, v *validation.Validator, uploads ImageStager, notifier Notifier, m *metrics.Metrics, log zerolog.Logger) *formService {
	return &formService{
		store:     store,
		cache:     qc,
		validator: v,
		uploads:   uploads,
		notifier:  notifier,
		metrics:   m,
		log:       log.With().Str("service", "form").Logger(),
	}
}

// Submit validates the form and creates or updates the item. Validation
// failures return a *validation.FormError and send nothing. On success the
// form is reset, its staged images released and the listing invalidated. On
// failure the form is left as it was.
func (s *formService) Submit(ctx context.Context, session models.Session, form *models.ContentForm) (*models.ContentItem, error) {
	if !session.CanEdit() {
		return nil, ErrForbidden
	}
	if err := s.validator.Check(form); err != nil {
		return nil, err
	}

	done, err := s.uploads.Hold(form)
	if err != nil {
		s.notifier.Error("An image expired before it was sent, please add it again")
		return nil, err
	}
	defer done()

	op := cache.OpCreate
	var item *models.ContentItem
	if form.IsEdit() {
		op = cache.OpUpdate
		item, err = s.store.UpdateContent(ctx, session, form)
	} else {
		item, err = s.store.CreateContent(ctx, session, form)
	}
	s.metrics.RecordMutation(string(op), err)

	if err != nil {
		s.log.Warn().Err(err).Str("operation", string(op)).Int64("content_id", form.ID).Msg("Content submission failed")
		s.notifier.Error(client.UserMessage(err, fallbackMessage))
		return nil, err
	}

	if item == nil {
		item = models.ItemFromForm(form)
	}
	s.invalidate(ctx, op, form, item)
	s.uploads.ReleaseForm(form)

	message := "Content created"
	if op == cache.OpUpdate {
		message = "Content updated"
	}
	s.log.Info().Str("operation", string(op)).Int64("content_id", form.ID).Msg(message)
	s.notifier.Success(message)

	form.Reset()
	return item, nil
}

func (s *formService) invalidate(ctx context.Context, op cache.Operation, form *models.ContentForm, item *models.ContentItem) {
	scopes := []cache.Scope{{CategoryID: form.CategoryID, SubcategoryID: form.SubcategoryID}}
	addScope := func(categoryID, subcategoryID int64) {
		if categoryID < 1 || subcategoryID < 1 {
			return
		}
		for _, seen := range scopes {
			if seen.CategoryID == categoryID && seen.SubcategoryID == subcategoryID {
				return
			}
		}
		scopes = append(scopes, cache.Scope{CategoryID: categoryID, SubcategoryID: subcategoryID})
	}
	// An edit may move the item; the listing it left is stale too
	if form.IsEdit() {
		addScope(form.OriginalScope())
	}
	if item != nil {
		addScope(item.CategoryID, item.SubcategoryID)
	}

	for _, scope := range scopes {
		if err := s.cache.InvalidateFor(ctx, op, scope); err != nil {
			s.log.Warn().Err(err).Msg("Failed to invalidate list cache")
		}
	}
}
