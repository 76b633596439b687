package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/NordCoder/Skywatch/internal/domain/user"
)

var _ user.Directory = (*UserRepo)(nil)

type UserRepo struct {
	db *DB
}

func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const (
	qUserActiveByID = `
SELECT id, username, email, is_active, iss_alerts, created_at, updated_at
FROM users
WHERE id = $1 AND is_active = TRUE;`

	qUserISSSubscribers = `
SELECT id
FROM users
WHERE is_active = TRUE AND iss_alerts = TRUE
ORDER BY id;`
)

func (r *UserRepo) GetActiveByID(ctx context.Context, id int64) (*user.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var u user.User
	if err := r.db.execQueryer(ctx).QueryRow(ctx, qUserActiveByID, id).
		Scan(&u.ID, &u.Username, &u.Email, &u.IsActive, &u.ISSAlerts, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if err = mapNoRows(err, user.ErrNotFound); errors.Is(err, user.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("user by id: %w", err)
	}
	return &u, nil
}

func (r *UserRepo) ListISSAlertSubscribers(ctx context.Context) ([]int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.execQueryer(ctx).Query(ctx, qUserISSSubscribers)
	if err != nil {
		return nil, fmt.Errorf("iss subscribers: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscribers: %w", err)
	}
	return ids, nil
}
