package notification

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	trainingReminderTTL = 24 * time.Hour
	spaceWeatherTTL     = 72 * time.Hour
	missionUpdateTTL    = 7 * 24 * time.Hour
	communityTTL        = 7 * 24 * time.Hour
)

type ISSPass struct {
	StartTime    time.Time `json:"startTime"`
	EndTime      time.Time `json:"endTime"`
	MaxElevation float64   `json:"maxElevation"`
	Direction    string    `json:"direction"`
}

func (p ISSPass) Duration() time.Duration { return p.EndTime.Sub(p.StartTime) }

func (p ISSPass) Message(now time.Time) string {
	in := int(math.Round(p.StartTime.Sub(now).Minutes()))
	if in < 0 {
		in = 0
	}
	return fmt.Sprintf("The ISS will be visible in %d minutes! Max elevation %.0f°, heading %s.",
		in, p.MaxElevation, p.Direction)
}

func (p ISSPass) Alert(now time.Time) ISSPassAlert {
	return ISSPassAlert{
		StartTime:    p.StartTime,
		EndTime:      p.EndTime,
		Duration:     int(p.Duration().Seconds()),
		MaxElevation: p.MaxElevation,
		Direction:    p.Direction,
		Message:      p.Message(now),
		Type:         TypeISSPass,
	}
}

type MissionUpdate struct {
	MissionID string `json:"missionId" validate:"required"`
	Title     string `json:"title" validate:"required"`
	Message   string `json:"message" validate:"required"`
}

type Achievement struct {
	ID          string `json:"achievementId" validate:"required"`
	Name        string `json:"achievementName" validate:"required"`
	Description string `json:"description"`
}

type TrainingReminder struct {
	TrainingName string     `json:"trainingName" validate:"required"`
	At           *time.Time `json:"at,omitempty"`
}

type SpaceWeather struct {
	Severity  string     `json:"severity" validate:"required"`
	Region    string     `json:"region" validate:"required"`
	Details   string     `json:"details"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
}

func NewISSPass(userID int64, p ISSPass, now time.Time) *Notification {
	end := p.EndTime
	return build(userID, TypeISSPass, PriorityHigh, "iss",
		"ISS Pass Alert", p.Message(now), now, &end,
		[]Action{{Label: "View pass", Action: "view_iss_pass"}},
		map[string]any{
			"passTime":     p.StartTime,
			"endTime":      p.EndTime,
			"maxElevation": p.MaxElevation,
			"direction":    p.Direction,
		})
}

func NewMissionUpdate(userID int64, m MissionUpdate, now time.Time) *Notification {
	exp := now.Add(missionUpdateTTL)
	return build(userID, TypeMissionUpdate, PriorityMedium, "mission",
		m.Title, m.Message, now, &exp,
		[]Action{{Label: "Open mission", Action: "open_mission", URL: "/missions/" + m.MissionID}},
		map[string]any{"missionId": m.MissionID})
}

func NewAchievement(userID int64, a Achievement, now time.Time) *Notification {
	msg := a.Description
	if msg == "" {
		msg = fmt.Sprintf("You unlocked %q!", a.Name)
	}
	return build(userID, TypeAchievement, PriorityHigh, "achievement",
		"Achievement Unlocked: "+a.Name, msg, now, nil,
		[]Action{{Label: "View achievements", Action: "view_achievements"}},
		map[string]any{"achievementId": a.ID, "achievementName": a.Name})
}

func NewTrainingReminder(userID int64, r TrainingReminder, now time.Time) *Notification {
	base := now
	if r.At != nil && r.At.After(now) {
		base = *r.At
	}
	exp := base.Add(trainingReminderTTL)
	n := build(userID, TypeTrainingReminder, PriorityLow, "training",
		"Training Reminder", fmt.Sprintf("Time for your %s session.", r.TrainingName), now, &exp,
		[]Action{{Label: "Start training", Action: "start_training"}},
		map[string]any{"trainingName": r.TrainingName})
	if r.At != nil && r.At.After(now) {
		at := *r.At
		n.ScheduledFor = &at
	}
	return n
}

func NewSpaceWeather(userID int64, w SpaceWeather, now time.Time) *Notification {
	exp := now.Add(spaceWeatherTTL)
	md := map[string]any{"severity": w.Severity, "region": w.Region, "startTime": w.StartTime}
	if w.EndTime != nil {
		md["endTime"] = *w.EndTime
	}
	msg := w.Details
	if msg == "" {
		msg = fmt.Sprintf("%s space weather event affecting %s.", titleCase(w.Severity), w.Region)
	}
	return build(userID, TypeSpaceWeather, SeverityPriority(w.Severity), "space_weather",
		"Space Weather Alert: "+titleCase(w.Severity), msg, now, &exp, nil, md)
}

func NewCommunity(userID int64, title, message string, now time.Time) *Notification {
	exp := now.Add(communityTTL)
	return build(userID, TypeCommunity, PriorityLow, "community", title, message, now, &exp, nil, nil)
}

// SeverityPriority maps a NOAA-style severity onto a priority.
func SeverityPriority(severity string) Priority {
	switch strings.ToLower(strings.TrimSpace(severity)) {
	case "minor", "low":
		return PriorityMedium
	case "moderate", "strong":
		return PriorityHigh
	case "severe", "extreme", "high":
		return PriorityUrgent
	default:
		return PriorityMedium
	}
}

func build(userID int64, t Type, p Priority, category, title, message string, now time.Time, expires *time.Time, actions []Action, md map[string]any) *Notification {
	if actions == nil {
		actions = []Action{}
	}
	if md == nil {
		md = map[string]any{}
	}
	return &Notification{
		UserID:    userID,
		Type:      t,
		Title:     truncate(title, MaxTitleLen),
		Message:   truncate(message, MaxMessageLen),
		Priority:  p,
		Category:  category,
		ExpiresAt: expires,
		Actions:   actions,
		Metadata:  md,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max])
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return strings.ToUpper(string(r)) + s[size:]
}
