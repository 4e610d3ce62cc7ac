package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/content-dashboard/internal/cache"
	"github.com/content-dashboard/internal/client"
	"github.com/content-dashboard/internal/metrics"
	"github.com/content-dashboard/internal/models"
	"github.com/rs/zerolog"
)

// statusService applies status changes optimistically to a display board and
// reconciles the board with the content API's answer.
type statusService struct {
	store    client.ContentStore
	cache    *cache.QueryCache
	notifier Notifier
	metrics  *metrics.Metrics
	log      zerolog.Logger

	mu    sync.Mutex
	seq   uint64
	board map[int64]*boardEntry
}

// boardEntry tracks the changes in flight for one item. Each change gets a
// sequence number so only the newest unresolved one decides the display.
type boardEntry struct {
	state        models.StatusState
	inflight     map[uint64]models.Status
	confirmedSeq uint64
}

// latestInflight returns the newest change still awaiting an answer
func (e *boardEntry) latestInflight() (uint64, models.Status, bool) {
	var (
		seq    uint64
		target models.Status
	)
	for n, t := range e.inflight {
		if n > seq {
			seq, target = n, t
		}
	}
	return seq, target, seq > 0
}

func newStatusService(store client.ContentStore, qc *cache.QueryCache, notifier Notifier, m *metrics.Metrics, log zerolog.Logger) *statusService {
	return &statusService{
		store:    store,
		cache:    qc,
		notifier: notifier,
		metrics:  m,
		log:      log.With().Str("service", "status").Logger(),
		board:    make(map[int64]*boardEntry),
	}
}

// Options lists every status as a choice. known is false when current is
// outside the enumeration, in which case it must not be shown as selected.
func (s *statusService) Options(current models.Status) ([]models.Status, bool) {
	return models.AllStatuses(), current.Valid()
}

// Observe records the server's statuses for freshly fetched items. Items
// with a change in flight keep their optimistic value.
func (s *statusService) Observe(items []models.ContentItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range items {
		if !item.Status.Valid() {
			continue
		}
		entry, ok := s.board[item.ID]
		if ok && len(entry.inflight) > 0 {
			continue
		}
		s.board[item.ID] = &boardEntry{
			state: models.StatusState{
				ContentID: item.ID,
				Displayed: item.Status,
				Confirmed: item.Status,
			},
			inflight: make(map[uint64]models.Status),
		}
	}
}

// State returns what the control displays for id
func (s *statusService) State(id int64) (models.StatusState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.board[id]
	if !ok {
		return models.StatusState{}, false
	}
	return entry.state, true
}

// Change moves an item to change.Target. Any status may move to any other.
// On failure the board rolls back to the last confirmed status.
func (s *statusService) Change(ctx context.Context, session models.Session, change models.StatusChange) (models.StatusState, error) {
	if !session.CanEdit() {
		return models.StatusState{}, ErrForbidden
	}
	if !change.Target.Valid() {
		return models.StatusState{}, fmt.Errorf("%w: %q", models.ErrInvalidStatus, change.Target)
	}

	seq := s.apply(change)

	err := s.store.ChangeStatus(ctx, session, change.ContentID, change.Target)
	s.metrics.RecordMutation(string(cache.OpStatus), err)
	scope := cache.Scope{CategoryID: change.CategoryID, SubcategoryID: change.SubcategoryID}

	if err != nil {
		state, known := s.rollback(change, seq)
		s.log.Warn().Err(err).Int64("content_id", change.ContentID).Str("target", string(change.Target)).Msg("Status change failed")
		s.notifier.Error(client.UserMessage(err, fallbackMessage))
		if !known {
			// Nothing to roll back to; let the next list fetch supply the truth
			s.invalidate(ctx, scope)
		}
		return state, err
	}

	state := s.confirm(change, seq)
	s.log.Info().Int64("content_id", change.ContentID).Str("status", string(change.Target)).Msg("Status changed")
	s.notifier.Success(fmt.Sprintf("Status updated to %s", change.Target))
	s.invalidate(ctx, scope)
	return state, nil
}

func (s *statusService) apply(change models.StatusChange) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.board[change.ContentID]
	if !ok {
		entry = &boardEntry{
			state:    models.StatusState{ContentID: change.ContentID},
			inflight: make(map[uint64]models.Status),
		}
		if change.Current.Valid() {
			entry.state.Confirmed = change.Current
		}
		s.board[change.ContentID] = entry
	}

	s.seq++
	entry.inflight[s.seq] = change.Target
	entry.state.Displayed = change.Target
	entry.state.Pending = true
	return s.seq
}

// rollback resolves a failed change. The display falls back to the newest
// change still in flight, or to the last confirmed status when none is.
func (s *statusService) rollback(change models.StatusChange, seq uint64) (models.StatusState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.board[change.ContentID]
	if !ok {
		return models.StatusState{ContentID: change.ContentID}, false
	}
	delete(entry.inflight, seq)

	if latest, target, pending := entry.latestInflight(); pending {
		if latest > seq {
			// A newer change owns the display
			return entry.state, true
		}
		entry.state.Displayed = target
		return entry.state, true
	}

	if !entry.state.Confirmed.Valid() {
		delete(s.board, change.ContentID)
		return models.StatusState{ContentID: change.ContentID}, false
	}
	entry.state.Displayed = entry.state.Confirmed
	entry.state.Pending = false
	return entry.state, true
}

// confirm resolves a successful change. An answer older than one already
// confirmed does not override it.
func (s *statusService) confirm(change models.StatusChange, seq uint64) models.StatusState {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.board[change.ContentID]
	if !ok {
		entry = &boardEntry{
			state:    models.StatusState{ContentID: change.ContentID},
			inflight: make(map[uint64]models.Status),
		}
		s.board[change.ContentID] = entry
	}
	delete(entry.inflight, seq)

	if seq > entry.confirmedSeq {
		entry.confirmedSeq = seq
		entry.state.Confirmed = change.Target
	}

	latest, _, pending := entry.latestInflight()
	if !pending || latest < seq {
		entry.state.Displayed = entry.state.Confirmed
	}
	entry.state.Pending = pending
	return entry.state
}

func (s *statusService) invalidate(ctx context.Context, scope cache.Scope) {
	if err := s.cache.InvalidateFor(ctx, cache.OpStatus, scope); err != nil {
		s.log.Warn().Err(err).Msg("Failed to invalidate list cache")
	}
}
