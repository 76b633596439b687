package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/NordCoder/Skywatch/internal/domain/notification"
	"github.com/NordCoder/Skywatch/internal/obs"
)

var (
	errInvalidCommand = errors.New("invalid command")
	errNotFound       = errors.New("notification not found")
)

type markReadReq struct {
	NotificationID string `json:"notificationId" validate:"required,max=64"`
}

type listReq struct {
	Limit      int  `json:"limit" validate:"gte=0"`
	Offset     int  `json:"offset" validate:"gte=0"`
	UnreadOnly bool `json:"unreadOnly"`
}

// Router executes inbound commands for one authenticated connection. Every
// side effect is scoped to that connection's user.
type Router struct {
	repo     notification.Repo
	hub      *Hub
	reg      *Registry
	log      *zap.Logger
	validate *validator.Validate
}

func NewRouter(repo notification.Repo, hub *Hub, reg *Registry, log *zap.Logger) *Router {
	return &Router{
		repo:     repo,
		hub:      hub,
		reg:      reg,
		log:      log.With(zap.String("component", "realtime.router")),
		validate: validator.New(),
	}
}

// Handle decodes one frame and runs it. Panics in a handler are recovered so
// one bad command cannot take the connection or the process down.
func (r *Router) Handle(ctx context.Context, c *Conn, raw []byte) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil || f.Event == "" {
		mCommands.WithLabelValues("unknown", "invalid").Inc()
		r.sendError(c, "", "malformed frame")
		return
	}

	ctx, span := obs.Tracer().Start(ctx, "ws.command", trace.WithAttributes(
		attribute.String("ws.event", f.Event),
		attribute.Int64("user.id", c.UserID),
	))
	defer span.End()

	defer func() {
		if p := recover(); p != nil {
			mCommands.WithLabelValues(f.Event, "panic").Inc()
			span.SetStatus(codes.Error, "panic")
			obs.WithTrace(ctx, r.log).Error("command panic",
				zap.String("event", f.Event),
				zap.Any("panic", p),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()

	err := r.dispatch(ctx, c, f)
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, errInvalidCommand):
		result = "invalid"
		r.sendError(c, f.Event, err.Error())
	case errors.Is(err, errNotFound):
		result = "not_found"
		r.sendError(c, f.Event, err.Error())
	default:
		// store trouble: log only, the client may re-request
		result = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		obs.WithTrace(ctx, r.log).Warn("command failed",
			zap.String("event", f.Event),
			zap.String("conn_id", c.ID),
			zap.Int64("user_id", c.UserID),
			zap.Error(err),
		)
	}
	mCommands.WithLabelValues(f.Event, result).Inc()
}

func (r *Router) dispatch(ctx context.Context, c *Conn, f Frame) error {
	switch f.Event {
	case notification.CmdMarkRead:
		return r.markRead(ctx, c, f.Data)
	case notification.CmdList:
		return r.list(ctx, c, f.Data)
	case notification.CmdSubscribeISS:
		r.reg.Join(c.ID, notification.GroupISSAlerts)
		r.hub.Send(c, notification.EventISSSubscribed, notification.StatusPayload{Status: notification.StatusSubscribed})
		return nil
	case notification.CmdUnsubscribeISS:
		r.reg.Leave(c.ID, notification.GroupISSAlerts)
		r.hub.Send(c, notification.EventISSUnsubscribed, notification.StatusPayload{Status: notification.StatusUnsubscribed})
		return nil
	case notification.CmdRequestCount:
		return r.PushCount(ctx, c.UserID)
	default:
		return fmt.Errorf("%w: unknown event %q", errInvalidCommand, f.Event)
	}
}

// markRead accepts either a bare id string or {"notificationId": "..."}.
func (r *Router) markRead(ctx context.Context, c *Conn, data json.RawMessage) error {
	var req markReadReq
	if err := json.Unmarshal(data, &req.NotificationID); err != nil {
		if err := json.Unmarshal(data, &req); err != nil {
			return fmt.Errorf("%w: notification id must be a string", errInvalidCommand)
		}
	}
	if err := r.check(req); err != nil {
		return err
	}

	ok, err := r.repo.MarkRead(ctx, req.NotificationID, c.UserID)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if !ok {
		return errNotFound
	}

	r.hub.Send(c, notification.EventMarkedRead, notification.MarkedReadPayload{NotificationID: req.NotificationID})
	return r.PushCount(ctx, c.UserID)
}

func (r *Router) list(ctx context.Context, c *Conn, data json.RawMessage) error {
	var req listReq
	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, &req); err != nil {
			return fmt.Errorf("%w: bad get_notifications payload", errInvalidCommand)
		}
	}
	if err := r.check(req); err != nil {
		return err
	}
	switch {
	case req.Limit == 0:
		req.Limit = notification.DefaultListLimit
	case req.Limit > notification.MaxListLimit:
		req.Limit = notification.MaxListLimit
	}

	items, err := r.repo.List(ctx, notification.Filter{
		UserID:     c.UserID,
		UnreadOnly: req.UnreadOnly,
		Limit:      req.Limit,
		Offset:     req.Offset,
	})
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}

	r.hub.Send(c, notification.EventList, notification.ListPayload{
		Notifications: items,
		HasMore:       len(items) == req.Limit,
	})
	return nil
}

// PushCount recomputes the unread count and sends it to every connection of
// the user.
func (r *Router) PushCount(ctx context.Context, userID int64) error {
	n, err := r.repo.CountUnread(ctx, userID)
	if err != nil {
		return fmt.Errorf("count unread: %w", err)
	}
	r.hub.ToUser(userID, notification.EventCount, notification.CountPayload{UnreadCount: n})
	return nil
}

// SendCount is PushCount for one connection only.
func (r *Router) SendCount(ctx context.Context, c *Conn) error {
	n, err := r.repo.CountUnread(ctx, c.UserID)
	if err != nil {
		return fmt.Errorf("count unread: %w", err)
	}
	r.hub.Send(c, notification.EventCount, notification.CountPayload{UnreadCount: n})
	return nil
}

func (r *Router) check(v any) error {
	if err := r.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed on '%s'", errInvalidCommand, fe.Field(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", errInvalidCommand, err)
	}
	return nil
}

func (r *Router) sendError(c *Conn, event, msg string) {
	r.hub.Send(c, notification.EventError, notification.ErrorPayload{Event: event, Message: msg})
}
