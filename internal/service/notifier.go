package service

import (
	"sync"
	"time"

	"github.com/content-dashboard/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultNotificationCapacity = 50

// notifier keeps the most recent notifications in a ring buffer
type notifier struct {
	mu    sync.Mutex
	items []models.Notification
	next  int
	full  bool
	now   func() time.Time
	log   zerolog.Logger
}

func newNotifier(capacity int, log zerolog.Logger) *notifier {
	if capacity < 1 {
		capacity = defaultNotificationCapacity
	}
	return &notifier{
		items: make([]models.Notification, capacity),
		now:   time.Now,
		log:   log.With().Str("service", "notifier").Logger(),
	}
}

func (n *notifier) Notify(level models.NotificationLevel, message string) models.Notification {
	note := models.Notification{
		ID:        uuid.New().String(),
		Level:     level,
		Message:   message,
		CreatedAt: n.now(),
	}

	n.mu.Lock()
	n.items[n.next] = note
	n.next = (n.next + 1) % len(n.items)
	if n.next == 0 {
		n.full = true
	}
	n.mu.Unlock()

	event := n.log.Info()
	if level == models.NotificationError {
		event = n.log.Warn()
	}
	event.Str("level", string(level)).Str("notification_id", note.ID).Msg(message)
	return note
}

func (n *notifier) Success(message string) models.Notification {
	return n.Notify(models.NotificationSuccess, message)
}

func (n *notifier) Error(message string) models.Notification {
	return n.Notify(models.NotificationError, message)
}

// Recent returns up to limit notifications, newest first. A limit of zero
// or less returns everything held.
func (n *notifier) Recent(limit int) []models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	size := n.next
	if n.full {
		size = len(n.items)
	}
	if limit <= 0 || limit > size {
		limit = size
	}

	out := make([]models.Notification, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (n.next - 1 - i + len(n.items)) % len(n.items)
		out = append(out, n.items[idx])
	}
	return out
}
