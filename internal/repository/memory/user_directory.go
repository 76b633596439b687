package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/NordCoder/Skywatch/internal/domain/user"
)

var _ user.Directory = (*UserDirectory)(nil)

type UserDirectory struct {
	mu    sync.RWMutex
	users map[int64]user.User
}

func NewUserDirectory(users ...user.User) *UserDirectory {
	d := &UserDirectory{users: make(map[int64]user.User, len(users))}
	for _, u := range users {
		d.Put(u)
	}
	return d
}

func (d *UserDirectory) Put(u user.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
		u.UpdatedAt = u.CreatedAt
	}
	d.users[u.ID] = u
}

func (d *UserDirectory) GetActiveByID(_ context.Context, id int64) (*user.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[id]
	if !ok || !u.IsActive {
		return nil, user.ErrNotFound
	}
	return &u, nil
}

func (d *UserDirectory) ListISSAlertSubscribers(_ context.Context) ([]int64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := make([]int64, 0)
	for id, u := range d.users {
		if u.IsActive && u.ISSAlerts {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
