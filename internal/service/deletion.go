package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/content-dashboard/internal/cache"
	"github.com/content-dashboard/internal/client"
	"github.com/content-dashboard/internal/metrics"
	"github.com/content-dashboard/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type deletionService struct {
	store    client.ContentStore
	cache    *cache.QueryCache
	notifier Notifier
	metrics  *metrics.Metrics
	ttl      time.Duration
	log      zerolog.Logger
	now      func() time.Time

	mu      sync.Mutex
	pending map[string]*models.PendingDeletion
}

func newDeletionService(store client.ContentStore, qc *cache.QueryCache, notifier Notifier, m *metrics.Metrics, ttl time.Duration, log zerolog.Logger) *deletionService {
	return &deletionService{
		store:    store,
		cache:    qc,
		notifier: notifier,
		metrics:  m,
		ttl:      ttl,
		log:      log.With().Str("service", "deletion").Logger(),
		now:      time.Now,
		pending:  make(map[string]*models.PendingDeletion),
	}
}

// Request records the target of a delete and returns the token that
// confirms or cancels it. No request is sent yet.
func (s *deletionService) Request(session models.Session, contentID, categoryID, subcategoryID int64) (*models.PendingDeletion, error) {
	if !session.CanEdit() {
		return nil, ErrForbidden
	}
	if contentID < 1 {
		return nil, fmt.Errorf("invalid content id %d", contentID)
	}

	pd := &models.PendingDeletion{
		Token:         uuid.New().String(),
		ContentID:     contentID,
		CategoryID:    categoryID,
		SubcategoryID: subcategoryID,
		RequestedAt:   s.now(),
	}

	s.mu.Lock()
	s.pending[pd.Token] = pd
	s.mu.Unlock()

	s.log.Debug().Str("token", pd.Token).Int64("content_id", contentID).Msg("Deletion requested")
	return pd, nil
}

// Confirm issues the delete. The pending entry is cleared whatever the
// outcome and failures are not retried.
func (s *deletionService) Confirm(ctx context.Context, session models.Session, token string) error {
	if !session.CanEdit() {
		return ErrForbidden
	}
	pd, ok := s.take(token)
	if !ok {
		return ErrDeletionNotFound
	}

	err := s.store.DeleteContent(ctx, session, pd.ContentID)
	s.metrics.RecordMutation(string(cache.OpDelete), err)
	if err != nil {
		s.log.Warn().Err(err).Int64("content_id", pd.ContentID).Msg("Delete failed")
		s.notifier.Error(client.UserMessage(err, fallbackMessage))
		return err
	}

	scope := cache.Scope{CategoryID: pd.CategoryID, SubcategoryID: pd.SubcategoryID}
	if err := s.cache.InvalidateFor(ctx, cache.OpDelete, scope); err != nil {
		s.log.Warn().Err(err).Msg("Failed to invalidate list cache")
	}
	s.log.Info().Int64("content_id", pd.ContentID).Msg("Content deleted")
	s.notifier.Success("Content deleted")
	return nil
}

// Cancel clears the pending entry without any request
func (s *deletionService) Cancel(token string) error {
	if _, ok := s.take(token); !ok {
		return ErrDeletionNotFound
	}
	return nil
}

// Sweep drops requests left unconfirmed past the TTL
func (s *deletionService) Sweep(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, pd := range s.pending {
		if now.Sub(pd.RequestedAt) > s.ttl {
			delete(s.pending, token)
			removed++
		}
	}
	return removed
}

func (s *deletionService) take(token string) (*models.PendingDeletion, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pd, ok := s.pending[token]
	delete(s.pending, token)
	return pd, ok
}
