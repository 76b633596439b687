package user

import "context"

// Directory is the read-only view of the account store this service needs.
type Directory interface {
	// GetActiveByID fails with a not-found error for unknown or inactive users.
	GetActiveByID(ctx context.Context, id int64) (*User, error)
	ListISSAlertSubscribers(ctx context.Context) ([]int64, error)
}
