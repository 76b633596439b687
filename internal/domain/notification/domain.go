package notification

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

type Type string

const (
	TypeISSPass          Type = "iss_pass"
	TypeMissionUpdate    Type = "mission_update"
	TypeTrainingReminder Type = "training_reminder"
	TypeAchievement      Type = "achievement"
	TypeSpaceWeather     Type = "space_weather"
	TypeCommunity        Type = "community"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

const (
	MaxTitleLen   = 100
	MaxMessageLen = 500
)

var (
	ErrInvalid  = errors.New("invalid notification")
	ErrNotFound = errors.New("notification not found")
)

type Action struct {
	Label  string `json:"label" validate:"required"`
	Action string `json:"action" validate:"required"`
	URL    string `json:"url,omitempty" validate:"omitempty,uri"`
}

type Notification struct {
	ID           string         `json:"id"`
	UserID       int64          `json:"userId" validate:"gt=0"`
	Type         Type           `json:"type" validate:"oneof=iss_pass mission_update training_reminder achievement space_weather community"`
	Title        string         `json:"title" validate:"required,max=100"`
	Message      string         `json:"message" validate:"required,max=500"`
	Priority     Priority       `json:"priority" validate:"oneof=low medium high urgent"`
	Category     string         `json:"category"`
	Read         bool           `json:"read"`
	ScheduledFor *time.Time     `json:"scheduledFor,omitempty"`
	SentAt       *time.Time     `json:"sentAt,omitempty"`
	ExpiresAt    *time.Time     `json:"expiresAt,omitempty"`
	Actions      []Action       `json:"actions" validate:"dive"`
	Metadata     map[string]any `json:"metadata"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// Pending: scheduled and not yet delivered.
func (n *Notification) Pending() bool { return n.ScheduledFor != nil && n.SentAt == nil }

func (n *Notification) Sent() bool { return n.SentAt != nil }

func (n *Notification) Expired(now time.Time) bool {
	return n.ExpiresAt != nil && !n.ExpiresAt.After(now)
}

// Due reports whether the due sweep may deliver n at now.
func (n *Notification) Due(now time.Time) bool {
	return n.Pending() && !n.ScheduledFor.After(now) && !n.Expired(now)
}

var validate = validator.New()

func (n *Notification) Validate() error {
	if err := validate.Struct(n); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed on '%s'", ErrInvalid, fe.Field(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Filter selects one user's notifications, newest first.
type Filter struct {
	UserID     int64
	UnreadOnly bool
	Type       Type
	Limit      int
	Offset     int
}

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
