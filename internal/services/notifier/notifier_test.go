package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NordCoder/Skywatch/internal/domain/notification"
	kafkax "github.com/NordCoder/Skywatch/internal/repository/kafka"
	"github.com/NordCoder/Skywatch/internal/repository/memory"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type push struct {
	target string
	userID int64
	event  string
}

type recorder struct {
	mu    sync.Mutex
	calls []push
}

func (r *recorder) ToUser(userID int64, event string, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, push{target: "user", userID: userID, event: event})
}

func (r *recorder) ToGroup(group, event string, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, push{target: group, event: event})
}

func (r *recorder) Broadcast(event string, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, push{target: "*", event: event})
}

func (r *recorder) events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.calls))
	for _, c := range r.calls {
		out = append(out, c.event)
	}
	return out
}

type failingStore struct {
	*memory.NotificationRepo
}

func (failingStore) Create(context.Context, *notification.Notification) error {
	return errors.New("connection refused")
}

func newHandler() (*Handler, *memory.NotificationRepo, *recorder) {
	repo := memory.NewNotificationRepo()
	rec := &recorder{}
	return NewHandler(repo, rec, fixedClock{t0}, zap.NewNop()), repo, rec
}

func TestPublishImmediate(t *testing.T) {
	h, repo, rec := newHandler()
	n := notification.NewCommunity(5, "Meetup", "Telescope night", t0)

	require.NoError(t, h.Publish(context.Background(), n))
	require.NotEmpty(t, n.ID)

	stored, err := repo.GetByID(context.Background(), n.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.SentAt)
	assert.Equal(t, t0, *stored.SentAt)
	assert.Equal(t, []string{notification.EventScheduled, notification.EventCount}, rec.events())
}

func TestPublishScheduledOnlyStores(t *testing.T) {
	h, repo, rec := newHandler()
	n := notification.NewCommunity(5, "Later", "See you soon", t0)
	at := t0.Add(time.Hour)
	n.ScheduledFor = &at

	require.NoError(t, h.Publish(context.Background(), n))
	assert.Empty(t, rec.events())

	due, err := repo.FetchDue(context.Background(), t0.Add(2*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, n.ID, due[0].ID)
}

func TestPublishRejects(t *testing.T) {
	h, repo, rec := newHandler()

	expired := notification.NewCommunity(5, "Old", "Gone", t0.Add(-time.Hour))
	past := t0.Add(-time.Minute)
	expired.ExpiresAt = &past
	assert.ErrorIs(t, h.Publish(context.Background(), expired), ErrExpired)

	bad := notification.NewCommunity(0, "No user", "x", t0)
	assert.ErrorIs(t, h.Publish(context.Background(), bad), notification.ErrInvalid)

	assert.Empty(t, repo.All())
	assert.Empty(t, rec.events())
}

func TestPublishStoreFailureSkipsPush(t *testing.T) {
	rec := &recorder{}
	h := NewHandler(failingStore{memory.NewNotificationRepo()}, rec, fixedClock{t0}, zap.NewNop())
	err := h.Publish(context.Background(), notification.NewCommunity(5, "t", "m", t0))
	require.Error(t, err)
	assert.Empty(t, rec.events())
}

func TestTypedProducers(t *testing.T) {
	h, repo, rec := newHandler()
	ctx := context.Background()

	require.NoError(t, h.MissionUpdate(ctx, 3, notification.MissionUpdate{MissionID: "artemis-3", Title: "Launch window", Message: "Moved to Friday"}))
	require.NoError(t, h.AchievementUnlocked(ctx, 3, notification.Achievement{ID: "a1", Name: "First Orbit"}))
	require.NoError(t, h.TrainingReminder(ctx, 3, notification.TrainingReminder{TrainingName: "EVA"}))

	assert.Equal(t, []string{
		notification.EventMissionUpdate, notification.EventCount,
		notification.EventAchievementUnlocked, notification.EventCount,
		notification.EventTrainingReminder, notification.EventCount,
	}, rec.events())

	c, err := repo.CountUnread(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, c)

	assert.ErrorIs(t, h.MissionUpdate(ctx, 3, notification.MissionUpdate{MissionID: "x"}), ErrInvalidEvent)
}

func TestTrainingReminderInFutureIsScheduled(t *testing.T) {
	h, repo, rec := newHandler()
	at := t0.Add(3 * time.Hour)
	require.NoError(t, h.TrainingReminder(context.Background(), 3, notification.TrainingReminder{TrainingName: "EVA", At: &at}))
	assert.Empty(t, rec.events())

	all := repo.All()
	require.Len(t, all, 1)
	assert.True(t, all[0].Pending())
	assert.Equal(t, at, *all[0].ScheduledFor)
}

func TestSpaceWeatherBroadcastsAndStores(t *testing.T) {
	h, repo, rec := newHandler()
	w := notification.SpaceWeather{Severity: "severe", Region: "Northern Europe"}

	require.NoError(t, h.SpaceWeather(context.Background(), w, []int64{1, 2}))

	ev := rec.events()
	require.NotEmpty(t, ev)
	assert.Equal(t, notification.EventSpaceWeatherAlert, ev[0])
	assert.Equal(t, []string{notification.EventCount, notification.EventCount}, ev[1:])

	all := repo.All()
	require.Len(t, all, 2)
	for _, n := range all {
		assert.Equal(t, notification.PriorityUrgent, n.Priority)
		assert.NotNil(t, n.SentAt)
	}
}

type rejectUserStore struct {
	*memory.NotificationRepo
	reject int64
}

func (s rejectUserStore) Create(ctx context.Context, n *notification.Notification) error {
	if n.UserID == s.reject {
		return errors.New("insert violates foreign key")
	}
	return s.NotificationRepo.Create(ctx, n)
}

func TestSpaceWeatherStoresPerRecipient(t *testing.T) {
	repo := memory.NewNotificationRepo()
	rec := &recorder{}
	h := NewHandler(rejectUserStore{NotificationRepo: repo, reject: 2}, rec, fixedClock{t0}, zap.NewNop())
	w := notification.SpaceWeather{Severity: "minor", Region: "Arctic"}

	require.NoError(t, h.SpaceWeather(context.Background(), w, []int64{1, 2, 3}))

	var owners []int64
	for _, n := range repo.All() {
		owners = append(owners, n.UserID)
	}
	assert.ElementsMatch(t, []int64{1, 3}, owners)
	assert.Equal(t, []string{notification.EventSpaceWeatherAlert, notification.EventCount, notification.EventCount}, rec.events())
}

func TestSpaceWeatherAllStoresFailed(t *testing.T) {
	h := NewHandler(failingStore{memory.NewNotificationRepo()}, &recorder{}, fixedClock{t0}, zap.NewNop())
	w := notification.SpaceWeather{Severity: "minor", Region: "Arctic"}
	assert.Error(t, h.SpaceWeather(context.Background(), w, []int64{1, 2}))
}

func TestHandleRoutesEvents(t *testing.T) {
	h, repo, _ := newHandler()
	ctx := context.Background()

	require.NoError(t, h.Handle(ctx, Event{Kind: KindAchievement, UserID: 4, Achievement: &notification.Achievement{ID: "a", Name: "Night Owl"}}))
	require.NoError(t, h.Handle(ctx, Event{Kind: KindNotification, Notification: &NotificationInput{
		UserID: 4, Type: notification.TypeMissionUpdate, Title: "T", Message: "M", Priority: notification.PriorityHigh,
	}}))
	assert.Len(t, repo.All(), 2)

	assert.ErrorIs(t, h.Handle(ctx, Event{Kind: "telegram"}), ErrInvalidEvent)
	assert.ErrorIs(t, h.Handle(ctx, Event{Kind: KindMissionUpdate, UserID: 4}), ErrInvalidEvent)
	assert.ErrorIs(t, h.Handle(ctx, Event{Kind: KindNotification, Notification: &NotificationInput{UserID: 4, Type: "x", Title: "T", Message: "M"}}), ErrInvalidEvent)
}

func TestControllerHandlerSkipsInvalid(t *testing.T) {
	h, repo, _ := newHandler()
	c := &Controller{Log: zap.NewNop(), UC: h}
	kh := c.Handler()
	ctx := context.Background()

	assert.ErrorIs(t, kh(ctx, nil, []byte(`{"kind":"bogus"}`)), kafkax.ErrSkip)
	assert.ErrorIs(t, kh(ctx, nil, []byte(`garbage`)), kafkax.ErrSkip)

	body, err := json.Marshal(Event{Kind: KindMissionUpdate, UserID: 9, Mission: &notification.MissionUpdate{MissionID: "m", Title: "t", Message: "m"}})
	require.NoError(t, err)
	require.NoError(t, kh(ctx, kafkax.KeyFromInt64(9), body))
	assert.Len(t, repo.All(), 1)
}

func TestControllerHandlerKeepsStoreErrors(t *testing.T) {
	h := NewHandler(failingStore{memory.NewNotificationRepo()}, &recorder{}, fixedClock{t0}, zap.NewNop())
	kh := (&Controller{Log: zap.NewNop(), UC: h}).Handler()
	body := []byte(`{"kind":"achievement","userId":2,"achievement":{"achievementId":"a","achievementName":"n"}}`)
	err := kh(context.Background(), nil, body)
	require.Error(t, err)
	assert.NotErrorIs(t, err, kafkax.ErrSkip)
}

func TestPartitionKey(t *testing.T) {
	assert.Equal(t, int64(3), Event{UserID: 3}.partitionKey())
	assert.Equal(t, int64(8), Event{Notification: &NotificationInput{UserID: 8}}.partitionKey())
	assert.Equal(t, int64(0), Event{Kind: KindSpaceWeather}.partitionKey())
}

func TestHTTPRoutes(t *testing.T) {
	h, repo, _ := newHandler()
	mux := http.NewServeMux()
	h.Routes(mux, "s3cret")

	post := func(path, token, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
		if token != "" {
			req.Header.Set(tokenHeader, token)
		}
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)
		return rr
	}

	rr := post(PathNotifications, "", `{}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = post(PathNotifications, "s3cret", `{"userId":2,"type":"community","title":"Hi","message":"there"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created createdResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.Scheduled)

	at := t0.Add(time.Hour).Format(time.RFC3339)
	rr = post(PathNotifications, "s3cret", `{"userId":2,"type":"community","title":"Hi","message":"later","scheduledFor":"`+at+`"}`)
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())

	rr = post(PathNotifications, "s3cret", `{"userId":2,"type":"telegram","title":"Hi","message":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = post(PathNotifications, "s3cret", `{"userId":2,"extra":true}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = post(PathEvents, "s3cret", `{"kind":"space_weather","userIds":[2],"spaceWeather":{"severity":"minor","region":"Arctic"}}`)
	assert.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())

	assert.Len(t, repo.All(), 3)
}
