package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"returns-backend/internal/domains/notification/model"
)

type memoryNotificationRepository struct {
	mu            sync.RWMutex
	notifications map[uuid.UUID]*model.Notification
	recipients    map[uuid.UUID]model.Recipient
}

// MemoryNotificationRepository adds recipient seeding for local runs and tests
type MemoryNotificationRepository interface {
	NotificationRepository
	SeedRecipient(rec model.Recipient)
}

func NewMemoryNotificationRepository() MemoryNotificationRepository {
	return &memoryNotificationRepository{
		notifications: make(map[uuid.UUID]*model.Notification),
		recipients:    make(map[uuid.UUID]model.Recipient),
	}
}

func (r *memoryNotificationRepository) SeedRecipient(rec model.Recipient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recipients[rec.UserID] = rec
}

func (r *memoryNotificationRepository) GetRecipient(ctx context.Context, userID uuid.UUID) (*model.Recipient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.recipients[userID]
	if !ok {
		return nil, model.ErrRecipientNotFound
	}
	return &rec, nil
}

func copyNotification(n *model.Notification) *model.Notification {
	c := *n
	if n.Data != nil {
		c.Data = make(model.JSONB, len(n.Data))
		for k, v := range n.Data {
			c.Data[k] = v
		}
	}
	return &c
}

func (r *memoryNotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	r.notifications[n.ID] = copyNotification(n)
	return nil
}

func (r *memoryNotificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.notifications[id]
	if !ok {
		return nil, model.ErrNotificationNotFound
	}
	return copyNotification(n), nil
}

func (r *memoryNotificationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Notification, 0)
	for _, n := range r.notifications {
		if n.UserID == userID {
			out = append(out, *copyNotification(n))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() > out[j].ID.String()
	})
	return out, nil
}

func (r *memoryNotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, n := range r.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *memoryNotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var updated int64
	for _, n := range r.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			readAt := at
			n.ReadAt = &readAt
			updated++
		}
	}
	return updated, nil
}

func (r *memoryNotificationRepository) MarkEmailed(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n, ok := r.notifications[id]; ok {
		sentAt := at
		n.EmailSentAt = &sentAt
	}
	return nil
}

func (r *memoryNotificationRepository) DeleteOne(ctx context.Context, id, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.notifications[id]
	if !ok || n.UserID != userID {
		return model.ErrNotificationNotFound
	}
	delete(r.notifications, id)
	return nil
}

func (r *memoryNotificationRepository) DeleteMany(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(ids) == 0 {
		var deleted int64
		for id, n := range r.notifications {
			if n.UserID == userID {
				delete(r.notifications, id)
				deleted++
			}
		}
		return deleted, nil
	}

	unique := dedupe(ids)
	for _, id := range unique {
		n, ok := r.notifications[id]
		if !ok || n.UserID != userID {
			return 0, model.ErrNotificationNotFound
		}
	}
	for _, id := range unique {
		delete(r.notifications, id)
	}
	return int64(len(unique)), nil
}

func (r *memoryNotificationRepository) DeleteReadOlderThan(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, n := range r.notifications {
		if n.IsRead && n.CreatedAt.Before(before) {
			delete(r.notifications, id)
			deleted++
		}
	}
	return deleted, nil
}
