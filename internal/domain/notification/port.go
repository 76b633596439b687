package notification

import (
	"context"
	"time"
)

type Repo interface {
	Create(ctx context.Context, n *Notification) error
	CreateBatch(ctx context.Context, ns []*Notification) error
	GetByID(ctx context.Context, id string) (*Notification, error)
	List(ctx context.Context, f Filter) ([]*Notification, error)
	CountUnread(ctx context.Context, userID int64) (int, error)
	// MarkRead reports false when no record matches both id and userID.
	MarkRead(ctx context.Context, id string, userID int64) (bool, error)
	FetchDue(ctx context.Context, now time.Time, limit int) ([]*Notification, error)
	// MarkSent reports false when the record was already sent or is gone.
	MarkSent(ctx context.Context, id string, at time.Time) (bool, error)
	DeleteReadBefore(ctx context.Context, before time.Time) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Dispatcher is best-effort fan-out to live connections. Implementations never
// block on slow receivers and never touch the Repo.
type Dispatcher interface {
	ToUser(userID int64, event string, payload any)
	ToGroup(group, event string, payload any)
	Broadcast(event string, payload any)
}
