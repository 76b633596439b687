// Package memory keeps notifications and users in process memory. It backs
// the dev profile (store.driver=memory) and the service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/NordCoder/Skywatch/internal/domain/notification"
)

var _ notification.Repo = (*NotificationRepo)(nil)

type NotificationRepo struct {
	mu   sync.RWMutex
	byID map[string]*notification.Notification

	// FailMarkSent makes MarkSent return this error; used to simulate a
	// store outage between push and persist.
	FailMarkSent error
}

func NewNotificationRepo() *NotificationRepo {
	return &NotificationRepo{byID: make(map[string]*notification.Notification)}
}

func (r *NotificationRepo) Create(_ context.Context, n *notification.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.put(n)
	return nil
}

func (r *NotificationRepo) CreateBatch(_ context.Context, ns []*notification.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range ns {
		r.put(n)
	}
	return nil
}

func (r *NotificationRepo) put(n *notification.Notification) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	n.UpdatedAt = n.CreatedAt
	r.byID[n.ID] = clone(n)
}

func (r *NotificationRepo) GetByID(_ context.Context, id string) (*notification.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.byID[id]
	if !ok {
		return nil, notification.ErrNotFound
	}
	return clone(n), nil
}

func (r *NotificationRepo) List(_ context.Context, f notification.Filter) ([]*notification.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]*notification.Notification, 0)
	for _, n := range r.byID {
		if n.UserID != f.UserID {
			continue
		}
		if f.UnreadOnly && n.Read {
			continue
		}
		if f.Type != "" && n.Type != f.Type {
			continue
		}
		matched = append(matched, n)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	limit := f.Limit
	if limit <= 0 {
		limit = notification.DefaultListLimit
	}
	from := min(max(f.Offset, 0), len(matched))
	to := min(from+limit, len(matched))

	out := make([]*notification.Notification, 0, to-from)
	for _, n := range matched[from:to] {
		out = append(out, clone(n))
	}
	return out, nil
}

func (r *NotificationRepo) CountUnread(_ context.Context, userID int64) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c := 0
	for _, n := range r.byID {
		if n.UserID == userID && !n.Read {
			c++
		}
	}
	return c, nil
}

func (r *NotificationRepo) MarkRead(_ context.Context, id string, userID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.byID[id]
	if !ok || n.UserID != userID {
		return false, nil
	}
	n.Read = true
	n.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *NotificationRepo) FetchDue(_ context.Context, now time.Time, limit int) ([]*notification.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	due := make([]*notification.Notification, 0)
	for _, n := range r.byID {
		if n.Due(now) {
			due = append(due, clone(n))
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledFor.Before(*due[j].ScheduledFor) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (r *NotificationRepo) MarkSent(_ context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailMarkSent != nil {
		return false, r.FailMarkSent
	}
	n, ok := r.byID[id]
	if !ok || n.SentAt != nil {
		return false, nil
	}
	t := at.UTC()
	n.SentAt = &t
	n.UpdatedAt = t
	return true, nil
}

func (r *NotificationRepo) DeleteReadBefore(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var c int64
	for id, n := range r.byID {
		if n.Read && n.CreatedAt.Before(before) {
			delete(r.byID, id)
			c++
		}
	}
	return c, nil
}

func (r *NotificationRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var c int64
	for id, n := range r.byID {
		if n.Expired(now) {
			delete(r.byID, id)
			c++
		}
	}
	return c, nil
}

// All returns a snapshot of every stored record.
func (r *NotificationRepo) All() []*notification.Notification {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*notification.Notification, 0, len(r.byID))
	for _, n := range r.byID {
		out = append(out, clone(n))
	}
	return out
}

func clone(n *notification.Notification) *notification.Notification {
	c := *n
	c.ScheduledFor = copyTime(n.ScheduledFor)
	c.SentAt = copyTime(n.SentAt)
	c.ExpiresAt = copyTime(n.ExpiresAt)
	c.Actions = append([]notification.Action{}, n.Actions...)
	c.Metadata = make(map[string]any, len(n.Metadata))
	for k, v := range n.Metadata {
		c.Metadata[k] = v
	}
	return &c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
