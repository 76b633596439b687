package notification

import "time"

// Outbound event names.
const (
	EventConnectionEstablished = "connection_established"
	EventCount                 = "notification_count"
	EventList                  = "notifications_list"
	EventMarkedRead            = "notification_marked_read"
	EventISSSubscribed         = "iss_alerts_subscribed"
	EventISSUnsubscribed       = "iss_alerts_unsubscribed"
	EventISSPassAlert          = "iss_pass_alert"
	EventMissionUpdate         = "mission_update"
	EventAchievementUnlocked   = "achievement_unlocked"
	EventSpaceWeatherAlert     = "space_weather_alert"
	EventTrainingReminder      = "training_reminder"
	EventScheduled             = "scheduled_notification"
	EventError                 = "error"
)

// Inbound event names.
const (
	CmdMarkRead       = "mark_notification_read"
	CmdList           = "get_notifications"
	CmdSubscribeISS   = "subscribe_iss_alerts"
	CmdUnsubscribeISS = "unsubscribe_iss_alerts"
	CmdRequestCount   = "request_notification_count"
)

const (
	GroupISSAlerts = "iss_alerts"

	StatusSubscribed   = "subscribed"
	StatusUnsubscribed = "unsubscribed"

	DefaultListLimit = 20
	MaxListLimit     = 100
)

type ConnectionEstablished struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type CountPayload struct {
	UnreadCount int `json:"unreadCount"`
}

type ListPayload struct {
	Notifications []*Notification `json:"notifications"`
	HasMore       bool            `json:"hasMore"`
}

type MarkedReadPayload struct {
	NotificationID string `json:"notificationId"`
}

type StatusPayload struct {
	Status string `json:"status"`
}

type ErrorPayload struct {
	Event   string `json:"event"`
	Message string `json:"message"`
}

type ISSPassAlert struct {
	StartTime    time.Time `json:"startTime"`
	EndTime      time.Time `json:"endTime"`
	Duration     int       `json:"duration"`
	MaxElevation float64   `json:"maxElevation"`
	Direction    string    `json:"direction"`
	Message      string    `json:"message"`
	Type         Type      `json:"type"`
}

type MissionUpdatePayload struct {
	MissionID string    `json:"missionId"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Type      Type      `json:"type"`
}

type AchievementPayload struct {
	AchievementID   string    `json:"achievementId"`
	AchievementName string    `json:"achievementName"`
	Message         string    `json:"message"`
	Timestamp       time.Time `json:"timestamp"`
	Type            Type      `json:"type"`
}

type SpaceWeatherPayload struct {
	Severity  string     `json:"severity"`
	Region    string     `json:"region"`
	Details   string     `json:"details"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	Type      Type       `json:"type"`
}

type TrainingReminderPayload struct {
	TrainingName string    `json:"trainingName"`
	Message      string    `json:"message"`
	Timestamp    time.Time `json:"timestamp"`
	Type         Type      `json:"type"`
}

type ScheduledPayload struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      Type      `json:"type"`
	Priority  Priority  `json:"priority"`
	Actions   []Action  `json:"actions"`
	Timestamp time.Time `json:"timestamp"`
}

func NewScheduledPayload(n *Notification, now time.Time) ScheduledPayload {
	actions := n.Actions
	if actions == nil {
		actions = []Action{}
	}
	return ScheduledPayload{
		ID:        n.ID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      n.Type,
		Priority:  n.Priority,
		Actions:   actions,
		Timestamp: now,
	}
}
