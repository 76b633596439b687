package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/NordCoder/Skywatch/internal/domain/notification"
)

var _ notification.Repo = (*NotificationRepo)(nil)

type NotificationRepo struct {
	db *DB
	tx Transactor
}

func NewNotificationRepo(db *DB, tx Transactor) *NotificationRepo {
	return &NotificationRepo{db: db, tx: tx}
}

const notifColumns = `id::text, user_id, type, title, message, priority, category, read,
       scheduled_for, sent_at, expires_at, actions, metadata, created_at, updated_at`

const (
	qNotifInsert = `
INSERT INTO notifications (id, user_id, type, title, message, priority, category, read,
                           scheduled_for, sent_at, expires_at, actions, metadata, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14);`

	qNotifByID = `
SELECT ` + notifColumns + `
FROM notifications
WHERE id = $1;`

	qNotifCountUnread = `
SELECT count(*)
FROM notifications
WHERE user_id = $1 AND read = FALSE;`

	qNotifMarkRead = `
UPDATE notifications
SET read = TRUE, updated_at = NOW()
WHERE id = $1 AND user_id = $2;`

	qNotifFetchDue = `
SELECT ` + notifColumns + `
FROM notifications
WHERE scheduled_for IS NOT NULL
  AND scheduled_for <= $1
  AND sent_at IS NULL
  AND (expires_at IS NULL OR expires_at > $1)
ORDER BY scheduled_for
LIMIT $2;`

	qNotifMarkSent = `
UPDATE notifications
SET sent_at = $2, updated_at = NOW()
WHERE id = $1 AND sent_at IS NULL;`

	qNotifDeleteRead = `
DELETE FROM notifications
WHERE read = TRUE AND created_at < $1;`

	qNotifDeleteExpired = `
DELETE FROM notifications
WHERE expires_at IS NOT NULL AND expires_at <= $1;`
)

func (r *NotificationRepo) Create(ctx context.Context, n *notification.Notification) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()
	return r.insert(ctx, n)
}

// CreateBatch stores all records or none.
func (r *NotificationRepo) CreateBatch(ctx context.Context, ns []*notification.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	return r.tx.WithTx(ctx, func(ctx context.Context) error {
		for _, n := range ns {
			if err := r.insert(ctx, n); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *NotificationRepo) insert(ctx context.Context, n *notification.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	n.UpdatedAt = n.CreatedAt

	actions, err := marshalJSON(n.Actions, "[]")
	if err != nil {
		return err
	}
	md, err := marshalJSON(n.Metadata, "{}")
	if err != nil {
		return err
	}

	if _, err := r.db.execQueryer(ctx).Exec(ctx, qNotifInsert,
		n.ID,
		n.UserID,
		string(n.Type),
		n.Title,
		n.Message,
		string(n.Priority),
		n.Category,
		n.Read,
		nullTime(n.ScheduledFor),
		nullTime(n.SentAt),
		nullTime(n.ExpiresAt),
		actions,
		md,
		n.CreatedAt.UTC(),
	); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *NotificationRepo) GetByID(ctx context.Context, id string) (*notification.Notification, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, notification.ErrNotFound
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	n, err := scanNotification(r.db.execQueryer(ctx).QueryRow(ctx, qNotifByID, id))
	if err != nil {
		return nil, mapNoRows(err, notification.ErrNotFound)
	}
	return n, nil
}

func (r *NotificationRepo) List(ctx context.Context, f notification.Filter) ([]*notification.Notification, error) {
	var (
		sb   strings.Builder
		args = []any{f.UserID}
	)
	sb.WriteString("SELECT " + notifColumns + "\nFROM notifications\nWHERE user_id = $1")
	if f.UnreadOnly {
		sb.WriteString(" AND read = FALSE")
	}
	if f.Type != "" {
		args = append(args, string(f.Type))
		fmt.Fprintf(&sb, " AND type = $%d", len(args))
	}
	limit := f.Limit
	if limit <= 0 {
		limit = notification.DefaultListLimit
	}
	args = append(args, limit, max(f.Offset, 0))
	fmt.Fprintf(&sb, "\nORDER BY created_at DESC, id\nLIMIT $%d OFFSET $%d;", len(args)-1, len(args))

	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.execQueryer(ctx).Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	return collect(rows)
}

func (r *NotificationRepo) CountUnread(ctx context.Context, userID int64) (int, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var n int
	if err := r.db.execQueryer(ctx).QueryRow(ctx, qNotifCountUnread, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

func (r *NotificationRepo) MarkRead(ctx context.Context, id string, userID int64) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qNotifMarkRead, id, userID)
	if err != nil {
		if isInvalidText(err) {
			return false, nil
		}
		return false, fmt.Errorf("mark read: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *NotificationRepo) FetchDue(ctx context.Context, now time.Time, limit int) ([]*notification.Notification, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.execQueryer(ctx).Query(ctx, qNotifFetchDue, now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("fetch due: %w", err)
	}
	return collect(rows)
}

func (r *NotificationRepo) MarkSent(ctx context.Context, id string, at time.Time) (bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qNotifMarkSent, id, at.UTC())
	if err != nil {
		return false, fmt.Errorf("mark sent: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *NotificationRepo) DeleteReadBefore(ctx context.Context, before time.Time) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qNotifDeleteRead, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete read: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *NotificationRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qNotifDeleteExpired, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired: %w", err)
	}
	return tag.RowsAffected(), nil
}

func collect(rows pgx.Rows) ([]*notification.Notification, error) {
	defer rows.Close()

	out := make([]*notification.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return out, nil
}

func scanNotification(row pgx.Row) (*notification.Notification, error) {
	var (
		n                notification.Notification
		typ, prio        string
		actions, md      []byte
		sched, sent, exp *time.Time
	)
	if err := row.Scan(
		&n.ID, &n.UserID, &typ, &n.Title, &n.Message, &prio, &n.Category, &n.Read,
		&sched, &sent, &exp, &actions, &md, &n.CreatedAt, &n.UpdatedAt,
	); err != nil {
		return nil, err
	}
	n.Type = notification.Type(typ)
	n.Priority = notification.Priority(prio)
	n.ScheduledFor, n.SentAt, n.ExpiresAt = nullTime(sched), nullTime(sent), nullTime(exp)

	n.Actions = []notification.Action{}
	if len(actions) > 0 {
		if err := json.Unmarshal(actions, &n.Actions); err != nil {
			return nil, fmt.Errorf("decode actions: %w", err)
		}
	}
	n.Metadata = map[string]any{}
	if len(md) > 0 {
		if err := json.Unmarshal(md, &n.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return &n, nil
}
