package realtime

import (
	"go.uber.org/zap"

	"github.com/NordCoder/Skywatch/internal/domain/notification"
)

var _ notification.Dispatcher = (*Hub)(nil)

// Hub is the live Dispatcher. Every send is fire-and-forget: offline users,
// empty groups and full queues are silent no-ops.
type Hub struct {
	reg *Registry
	log *zap.Logger
}

func NewHub(reg *Registry, log *zap.Logger) *Hub {
	return &Hub{reg: reg, log: log.With(zap.String("component", "realtime.hub"))}
}

func (h *Hub) ToUser(userID int64, event string, payload any) {
	h.fanOut(h.reg.userConns(userID), event, payload)
}

func (h *Hub) ToGroup(group, event string, payload any) {
	h.fanOut(h.reg.groupConns(group), event, payload)
}

func (h *Hub) Broadcast(event string, payload any) {
	h.fanOut(h.reg.allConns(), event, payload)
}

// Send targets exactly one connection.
func (h *Hub) Send(c *Conn, event string, payload any) bool {
	msg, err := encodeFrame(event, payload)
	if err != nil {
		h.log.Error("encode frame", zap.String("event", event), zap.Error(err))
		return false
	}
	return h.enqueue(c, event, msg)
}

func (h *Hub) fanOut(conns []*Conn, event string, payload any) {
	if len(conns) == 0 {
		return
	}
	msg, err := encodeFrame(event, payload)
	if err != nil {
		h.log.Error("encode frame", zap.String("event", event), zap.Error(err))
		return
	}
	for _, c := range conns {
		h.enqueue(c, event, msg)
	}
}

func (h *Hub) enqueue(c *Conn, event string, msg []byte) bool {
	if c.Enqueue(msg) {
		mFramesQueued.WithLabelValues(event).Inc()
		return true
	}
	mFramesDropped.WithLabelValues(event).Inc()
	h.log.Debug("frame dropped",
		zap.String("event", event),
		zap.String("conn_id", c.ID),
		zap.Int64("user_id", c.UserID),
	)
	return false
}
