package notifier

import (
	"time"

	"github.com/NordCoder/Skywatch/internal/domain/notification"
)

// Event kinds accepted on the ingest topic and the internal API.
const (
	KindNotification     = "notification"
	KindMissionUpdate    = "mission_update"
	KindAchievement      = "achievement"
	KindTrainingReminder = "training_reminder"
	KindSpaceWeather     = "space_weather"
)

// Event is the JSON envelope producers publish. Exactly one body field
// matching Kind is expected.
type Event struct {
	Kind    string  `json:"kind" validate:"required,oneof=notification mission_update achievement training_reminder space_weather"`
	UserID  int64   `json:"userId,omitempty" validate:"gte=0"`
	UserIDs []int64 `json:"userIds,omitempty" validate:"dive,gt=0"`

	Notification *NotificationInput              `json:"notification,omitempty"`
	Mission      *notification.MissionUpdate    `json:"mission,omitempty"`
	Achievement  *notification.Achievement      `json:"achievement,omitempty"`
	Training     *notification.TrainingReminder `json:"training,omitempty"`
	SpaceWeather *notification.SpaceWeather    `json:"spaceWeather,omitempty"`
}

// NotificationInput is a free-form notification from an external producer.
type NotificationInput struct {
	UserID       int64                 `json:"userId" validate:"gt=0"`
	Type         notification.Type     `json:"type" validate:"required,oneof=iss_pass mission_update training_reminder achievement space_weather community"`
	Title        string                `json:"title" validate:"required"`
	Message      string                `json:"message" validate:"required"`
	Priority     notification.Priority `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Category     string                `json:"category"`
	ScheduledFor *time.Time            `json:"scheduledFor,omitempty"`
	ExpiresAt    *time.Time            `json:"expiresAt,omitempty"`
	Actions      []notification.Action `json:"actions" validate:"dive"`
	Metadata     map[string]any        `json:"metadata"`
}

func (in NotificationInput) ToNotification(now time.Time) *notification.Notification {
	n := notification.NewCommunity(in.UserID, in.Title, in.Message, now)
	n.Type = in.Type
	n.Priority = in.Priority
	if n.Priority == "" {
		n.Priority = notification.PriorityMedium
	}
	n.Category = in.Category
	n.ScheduledFor = in.ScheduledFor
	n.ExpiresAt = in.ExpiresAt
	if in.Actions != nil {
		n.Actions = in.Actions
	}
	if in.Metadata != nil {
		n.Metadata = in.Metadata
	}
	return n
}
