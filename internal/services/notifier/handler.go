package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/NordCoder/Skywatch/internal/domain/notification"
)

var (
	ErrInvalidEvent = errors.New("invalid event")
	ErrExpired      = errors.New("notification already expired")
)

var (
	mCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skywatch_notifications_created_total", Help: "Notifications persisted by producers",
	}, []string{"type", "mode"})
	mEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skywatch_producer_events_total", Help: "Producer events by kind and result",
	}, []string{"kind", "result"})
)

// Handler is the producer side: it persists notifications and pushes them
// live. A notification scheduled for the future is only stored; the due
// sweep delivers it later.
type Handler struct {
	Store    notification.Repo
	Out      notification.Dispatcher
	Clock    notification.Clock
	Log      *zap.Logger
	validate *validator.Validate
}

func NewHandler(store notification.Repo, out notification.Dispatcher, clock notification.Clock, log *zap.Logger) *Handler {
	if clock == nil {
		clock = notification.SystemClock{}
	}
	return &Handler{
		Store:    store,
		Out:      out,
		Clock:    clock,
		Log:      log.With(zap.String("component", "notifier")),
		validate: validator.New(),
	}
}

// Publish stores n and, unless it is scheduled for later, pushes it to the
// owner with sentAt set at creation.
func (h *Handler) Publish(ctx context.Context, n *notification.Notification) error {
	now := h.Clock.Now()
	if err := n.Validate(); err != nil {
		return err
	}
	if n.Expired(now) {
		return ErrExpired
	}
	if n.ScheduledFor != nil && n.ScheduledFor.After(now) {
		n.SentAt = nil
		if err := h.Store.Create(ctx, n); err != nil {
			return fmt.Errorf("store scheduled: %w", err)
		}
		mCreated.WithLabelValues(string(n.Type), "scheduled").Inc()
		return nil
	}

	n.SentAt = &now
	if err := h.Store.Create(ctx, n); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	mCreated.WithLabelValues(string(n.Type), "immediate").Inc()

	h.Out.ToUser(n.UserID, notification.EventScheduled, notification.NewScheduledPayload(n, now))
	h.pushCount(ctx, n.UserID)
	return nil
}

func (h *Handler) MissionUpdate(ctx context.Context, userID int64, m notification.MissionUpdate) error {
	if err := h.check(m); err != nil {
		return err
	}
	now := h.Clock.Now()
	n := notification.NewMissionUpdate(userID, m, now)
	if err := h.storeSent(ctx, n, now); err != nil {
		return err
	}
	h.Out.ToUser(userID, notification.EventMissionUpdate, notification.MissionUpdatePayload{
		MissionID: m.MissionID,
		Title:     m.Title,
		Message:   m.Message,
		Timestamp: now,
		Type:      notification.TypeMissionUpdate,
	})
	h.pushCount(ctx, userID)
	return nil
}

func (h *Handler) AchievementUnlocked(ctx context.Context, userID int64, a notification.Achievement) error {
	if err := h.check(a); err != nil {
		return err
	}
	now := h.Clock.Now()
	n := notification.NewAchievement(userID, a, now)
	if err := h.storeSent(ctx, n, now); err != nil {
		return err
	}
	h.Out.ToUser(userID, notification.EventAchievementUnlocked, notification.AchievementPayload{
		AchievementID:   a.ID,
		AchievementName: a.Name,
		Message:         n.Message,
		Timestamp:       now,
		Type:            notification.TypeAchievement,
	})
	h.pushCount(ctx, userID)
	return nil
}

// TrainingReminder pushes now, or stores a pending record when r.At is in
// the future.
func (h *Handler) TrainingReminder(ctx context.Context, userID int64, r notification.TrainingReminder) error {
	if err := h.check(r); err != nil {
		return err
	}
	now := h.Clock.Now()
	n := notification.NewTrainingReminder(userID, r, now)
	if n.ScheduledFor != nil {
		return h.Publish(ctx, n)
	}
	if err := h.storeSent(ctx, n, now); err != nil {
		return err
	}
	h.Out.ToUser(userID, notification.EventTrainingReminder, notification.TrainingReminderPayload{
		TrainingName: r.TrainingName,
		Message:      n.Message,
		Timestamp:    now,
		Type:         notification.TypeTrainingReminder,
	})
	h.pushCount(ctx, userID)
	return nil
}

// SpaceWeather broadcasts to every live connection and keeps a record for
// each listed user.
func (h *Handler) SpaceWeather(ctx context.Context, w notification.SpaceWeather, userIDs []int64) error {
	if err := h.check(w); err != nil {
		return err
	}
	now := h.Clock.Now()
	if w.StartTime.IsZero() {
		w.StartTime = now
	}
	h.Out.Broadcast(notification.EventSpaceWeatherAlert, notification.SpaceWeatherPayload{
		Severity:  w.Severity,
		Region:    w.Region,
		Details:   w.Details,
		StartTime: w.StartTime,
		EndTime:   w.EndTime,
		Timestamp: now,
		Type:      notification.TypeSpaceWeather,
	})
	if len(userIDs) == 0 {
		return nil
	}

	// Records are stored one by one. The event fails only when none could be
	// stored, so a redelivery never duplicates the ones that made it.
	var (
		stored  int
		lastErr error
	)
	for _, id := range userIDs {
		if err := h.storeSent(ctx, notification.NewSpaceWeather(id, w, now), now); err != nil {
			lastErr = err
			h.Log.Warn("store space weather", zap.Int64("user_id", id), zap.Error(err))
			continue
		}
		stored++
		h.pushCount(ctx, id)
	}
	if stored == 0 {
		return lastErr
	}
	return nil
}

// Handle routes a producer event to the matching operation.
func (h *Handler) Handle(ctx context.Context, ev Event) (err error) {
	defer func() {
		result := "ok"
		switch {
		case err == nil:
		case errors.Is(err, ErrInvalidEvent), errors.Is(err, notification.ErrInvalid), errors.Is(err, ErrExpired):
			result = "invalid"
		default:
			result = "error"
		}
		mEvents.WithLabelValues(kindLabel(ev.Kind), result).Inc()
	}()

	if err := h.check(ev); err != nil {
		return err
	}

	switch ev.Kind {
	case KindNotification:
		if ev.Notification == nil {
			return missing(ev.Kind, "notification")
		}
		if err := h.check(ev.Notification); err != nil {
			return err
		}
		return h.Publish(ctx, ev.Notification.ToNotification(h.Clock.Now()))
	case KindMissionUpdate:
		if ev.Mission == nil || ev.UserID <= 0 {
			return missing(ev.Kind, "mission and userId")
		}
		return h.MissionUpdate(ctx, ev.UserID, *ev.Mission)
	case KindAchievement:
		if ev.Achievement == nil || ev.UserID <= 0 {
			return missing(ev.Kind, "achievement and userId")
		}
		return h.AchievementUnlocked(ctx, ev.UserID, *ev.Achievement)
	case KindTrainingReminder:
		if ev.Training == nil || ev.UserID <= 0 {
			return missing(ev.Kind, "training and userId")
		}
		return h.TrainingReminder(ctx, ev.UserID, *ev.Training)
	case KindSpaceWeather:
		if ev.SpaceWeather == nil {
			return missing(ev.Kind, "spaceWeather")
		}
		return h.SpaceWeather(ctx, *ev.SpaceWeather, ev.UserIDs)
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, ev.Kind)
	}
}

func (h *Handler) storeSent(ctx context.Context, n *notification.Notification, now time.Time) error {
	n.SentAt = &now
	if err := n.Validate(); err != nil {
		return err
	}
	if err := h.Store.Create(ctx, n); err != nil {
		return fmt.Errorf("store %s: %w", n.Type, err)
	}
	mCreated.WithLabelValues(string(n.Type), "immediate").Inc()
	return nil
}

// pushCount is best effort: a failed count only costs the badge refresh.
func (h *Handler) pushCount(ctx context.Context, userID int64) {
	c, err := h.Store.CountUnread(ctx, userID)
	if err != nil {
		h.Log.Warn("count unread", zap.Int64("user_id", userID), zap.Error(err))
		return
	}
	h.Out.ToUser(userID, notification.EventCount, notification.CountPayload{UnreadCount: c})
}

func (h *Handler) check(v any) error {
	if err := h.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed on '%s'", ErrInvalidEvent, fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	return nil
}

func kindLabel(kind string) string {
	switch kind {
	case KindNotification, KindMissionUpdate, KindAchievement, KindTrainingReminder, KindSpaceWeather:
		return kind
	default:
		return "unknown"
	}
}

func missing(kind, what string) error {
	return fmt.Errorf("%w: %s requires %s", ErrInvalidEvent, kind, what)
}

// NopDispatcher drops every push. Processes without live connections use it
// so records are only persisted.
type NopDispatcher struct{}

func (NopDispatcher) ToUser(int64, string, any)   {}
func (NopDispatcher) ToGroup(string, string, any) {}
func (NopDispatcher) Broadcast(string, any)       {}
