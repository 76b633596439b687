package realtime

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NordCoder/Skywatch/internal/domain/notification"
	"github.com/NordCoder/Skywatch/internal/repository/memory"
)

type routerFixture struct {
	repo   *memory.NotificationRepo
	reg    *Registry
	router *Router
}

func newRouterFixture() *routerFixture {
	repo := memory.NewNotificationRepo()
	reg, hub := newTestHub()
	return &routerFixture{repo: repo, reg: reg, router: NewRouter(repo, hub, reg, zap.NewNop())}
}

func (f *routerFixture) seed(t *testing.T, userID int64, n int) []*notification.Notification {
	t.Helper()
	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	out := make([]*notification.Notification, 0, n)
	for i := 0; i < n; i++ {
		rec := notification.NewCommunity(userID, fmt.Sprintf("n%d", i), "m", base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, f.repo.Create(context.Background(), rec))
		out = append(out, rec)
	}
	return out
}

func (f *routerFixture) send(c *Conn, frame string) {
	f.router.Handle(context.Background(), c, []byte(frame))
}

func TestRouter_MarkReadThenCount(t *testing.T) {
	f := newRouterFixture()
	c := newConn("a", 1)
	f.reg.Register(c)
	recs := f.seed(t, 1, 3)

	f.send(c, fmt.Sprintf(`{"event":"mark_notification_read","data":%q}`, recs[0].ID))
	fs := drain(t, c)
	require.Equal(t, []string{notification.EventMarkedRead, notification.EventCount}, events(fs))
	assert.Equal(t, recs[0].ID, decode[notification.MarkedReadPayload](t, fs[0]).NotificationID)
	assert.Equal(t, 2, decode[notification.CountPayload](t, fs[1]).UnreadCount)

	// second ack for the same id is the same state
	f.send(c, fmt.Sprintf(`{"event":"mark_notification_read","data":{"notificationId":%q}}`, recs[0].ID))
	fs = drain(t, c)
	require.Equal(t, []string{notification.EventMarkedRead, notification.EventCount}, events(fs))
	assert.Equal(t, 2, decode[notification.CountPayload](t, fs[1]).UnreadCount)
}

func TestRouter_MarkReadOtherUsersRecord(t *testing.T) {
	f := newRouterFixture()
	c := newConn("b", 2)
	f.reg.Register(c)
	recs := f.seed(t, 1, 1)

	f.send(c, fmt.Sprintf(`{"event":"mark_notification_read","data":%q}`, recs[0].ID))
	fs := drain(t, c)
	require.Equal(t, []string{notification.EventError}, events(fs))

	got, err := f.repo.GetByID(context.Background(), recs[0].ID)
	require.NoError(t, err)
	assert.False(t, got.Read)
}

func TestRouter_ListPaging(t *testing.T) {
	f := newRouterFixture()
	c := newConn("a", 1)
	f.reg.Register(c)
	f.seed(t, 1, 5)

	f.send(c, `{"event":"get_notifications","data":{"limit":2}}`)
	fs := drain(t, c)
	require.Len(t, fs, 1)
	page := decode[notification.ListPayload](t, fs[0])
	require.Len(t, page.Notifications, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, "n4", page.Notifications[0].Title)
	assert.Equal(t, "n3", page.Notifications[1].Title)

	f.send(c, `{"event":"get_notifications","data":{"limit":2,"offset":4}}`)
	page = decode[notification.ListPayload](t, drain(t, c)[0])
	assert.Len(t, page.Notifications, 1)
	assert.False(t, page.HasMore)

	f.send(c, `{"event":"get_notifications"}`)
	page = decode[notification.ListPayload](t, drain(t, c)[0])
	assert.Len(t, page.Notifications, 5)
	assert.False(t, page.HasMore)
}

func TestRouter_ListClampsLimit(t *testing.T) {
	f := newRouterFixture()
	c := newConn("a", 1)
	f.reg.Register(c)
	f.seed(t, 1, notification.MaxListLimit+5)

	f.send(c, `{"event":"get_notifications","data":{"limit":200}}`)
	fs := drain(t, c)
	require.Equal(t, []string{notification.EventList}, events(fs))
	page := decode[notification.ListPayload](t, fs[0])
	assert.Len(t, page.Notifications, notification.MaxListLimit)
	assert.True(t, page.HasMore)
}

func TestRouter_ListUnreadOnly(t *testing.T) {
	f := newRouterFixture()
	c := newConn("a", 1)
	f.reg.Register(c)
	recs := f.seed(t, 1, 3)
	_, err := f.repo.MarkRead(context.Background(), recs[1].ID, 1)
	require.NoError(t, err)

	f.send(c, `{"event":"get_notifications","data":{"unreadOnly":true}}`)
	page := decode[notification.ListPayload](t, drain(t, c)[0])
	assert.Len(t, page.Notifications, 2)
}

func TestRouter_InvalidPayloads(t *testing.T) {
	f := newRouterFixture()
	c := newConn("a", 1)
	f.reg.Register(c)

	for _, frame := range []string{
		`not json`,
		`{"event":"get_notifications","data":{"limit":-1}}`,
		`{"event":"get_notifications","data":{"offset":-1}}`,
		`{"event":"mark_notification_read","data":42}`,
		`{"event":"mark_notification_read"}`,
		`{"event":"launch_rocket"}`,
	} {
		f.send(c, frame)
		fs := drain(t, c)
		require.Len(t, fs, 1, frame)
		assert.Equal(t, notification.EventError, fs[0].Event, frame)
	}
}

func TestRouter_SubscribeUnsubscribe(t *testing.T) {
	f := newRouterFixture()
	c := newConn("a", 1)
	f.reg.Register(c)

	f.send(c, `{"event":"subscribe_iss_alerts"}`)
	fs := drain(t, c)
	require.Equal(t, []string{notification.EventISSSubscribed}, events(fs))
	assert.Equal(t, notification.StatusSubscribed, decode[notification.StatusPayload](t, fs[0]).Status)
	assert.True(t, f.reg.InGroup("a", notification.GroupISSAlerts))

	f.send(c, `{"event":"unsubscribe_iss_alerts"}`)
	fs = drain(t, c)
	require.Equal(t, []string{notification.EventISSUnsubscribed}, events(fs))
	assert.False(t, f.reg.InGroup("a", notification.GroupISSAlerts))
}

func TestRouter_RequestCount(t *testing.T) {
	f := newRouterFixture()
	c := newConn("a", 1)
	f.reg.Register(c)
	f.seed(t, 1, 4)
	f.seed(t, 2, 2)

	f.send(c, `{"event":"request_notification_count"}`)
	fs := drain(t, c)
	require.Len(t, fs, 1)
	assert.Equal(t, 4, decode[notification.CountPayload](t, fs[0]).UnreadCount)
}

type failingRepo struct{ notification.Repo }

func (failingRepo) CountUnread(context.Context, int64) (int, error) {
	return 0, errors.New("store down")
}

type panickyRepo struct{ notification.Repo }

func (panickyRepo) CountUnread(context.Context, int64) (int, error) { panic("boom") }

func TestRouter_StoreFailureIsSilent(t *testing.T) {
	reg, hub := newTestHub()
	r := NewRouter(failingRepo{memory.NewNotificationRepo()}, hub, reg, zap.NewNop())
	c := newConn("a", 1)
	reg.Register(c)

	r.Handle(context.Background(), c, []byte(`{"event":"request_notification_count"}`))
	assert.Empty(t, drain(t, c))
}

func TestRouter_RecoversFromPanic(t *testing.T) {
	reg, hub := newTestHub()
	r := NewRouter(panickyRepo{memory.NewNotificationRepo()}, hub, reg, zap.NewNop())
	c := newConn("a", 1)
	reg.Register(c)

	assert.NotPanics(t, func() {
		r.Handle(context.Background(), c, []byte(`{"event":"request_notification_count"}`))
	})
}
