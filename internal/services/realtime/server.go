package realtime

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/NordCoder/Skywatch/internal/auth"
	"github.com/NordCoder/Skywatch/internal/domain/notification"
)

type Config struct {
	Path            string        `mapstructure:"path"`
	SendBuffer      int           `mapstructure:"send_buffer"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	PongTimeout     time.Duration `mapstructure:"pong_timeout"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	MaxMessageBytes int64         `mapstructure:"max_message_bytes"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

func (c *Config) withDefaults() {
	if c.SendBuffer <= 0 {
		c.SendBuffer = 32
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.PongTimeout <= 0 {
		c.PongTimeout = 60 * time.Second
	}
	if c.PingInterval <= 0 || c.PingInterval >= c.PongTimeout {
		c.PingInterval = c.PongTimeout * 9 / 10
	}
	if c.MaxMessageBytes <= 0 {
		c.MaxMessageBytes = 64 << 10
	}
}

type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) (*auth.Identity, error)
}

// Server upgrades authenticated requests and runs the read and write pumps of
// each connection.
type Server struct {
	cfg      Config
	authn    Authenticator
	reg      *Registry
	hub      *Hub
	router   *Router
	log      *zap.Logger
	upgrader websocket.Upgrader
	now      func() time.Time
}

func NewServer(cfg Config, authn Authenticator, reg *Registry, hub *Hub, router *Router, log *zap.Logger) *Server {
	cfg.withDefaults()
	s := &Server{
		cfg:    cfg,
		authn:  authn,
		reg:    reg,
		hub:    hub,
		router: router,
		log:    log.With(zap.String("component", "realtime.server")),
		now:    func() time.Time { return time.Now().UTC() },
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || slices.Contains(s.cfg.AllowedOrigins, origin)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ident, err := s.authn.Authenticate(r.Context(), r)
	if err != nil {
		mHandshakeRejected.Inc()
		s.log.Info("handshake rejected", zap.String("remote", r.RemoteAddr), zap.Error(err))
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader already replied with an HTTP error
		s.log.Warn("upgrade failed", zap.Int64("user_id", ident.UserID), zap.Error(err))
		return
	}

	c := NewConn(uuid.NewString(), *ident, s.cfg.SendBuffer)
	s.reg.Register(c)
	mConnections.Inc()
	log := s.log.With(zap.String("conn_id", c.ID), zap.Int64("user_id", c.UserID))
	log.Info("connected", zap.String("username", c.Username), zap.Int("connections", s.reg.Count()))

	// store calls started by this connection outlive the disconnect
	ctx := context.WithoutCancel(r.Context())

	s.hub.Send(c, notification.EventConnectionEstablished, notification.ConnectionEstablished{
		Message:   "Connected to notification service",
		Timestamp: s.now(),
	})
	if err := s.router.SendCount(ctx, c); err != nil {
		log.Warn("initial count", zap.Error(err))
	}

	go s.writePump(ws, c, log)
	s.readPump(ctx, ws, c, log)

	s.reg.Unregister(c.ID)
	c.Close()
	mConnections.Dec()
	log.Info("disconnected", zap.Int("connections", s.reg.Count()))
}

func (s *Server) readPump(ctx context.Context, ws *websocket.Conn, c *Conn, log *zap.Logger) {
	ws.SetReadLimit(s.cfg.MaxMessageBytes)
	_ = ws.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
	})

	for {
		typ, msg, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) &&
				!errors.Is(err, websocket.ErrCloseSent) {
				log.Debug("read", zap.Error(err))
			}
			return
		}
		if typ != websocket.TextMessage {
			continue
		}
		_ = ws.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
		s.router.Handle(ctx, c, msg)
	}
}

// writePump is the only writer of ws. It exits when the connection is closed
// from either side and closes the socket, which unblocks readPump.
func (s *Server) writePump(ws *websocket.Conn, c *Conn, log *zap.Logger) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = ws.Close()
	}()

	for {
		select {
		case msg := <-c.Outbound():
			_ = ws.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Debug("write", zap.Error(err))
				c.Close()
				return
			}
			mFramesWritten.Inc()
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.cfg.WriteTimeout)); err != nil {
				c.Close()
				return
			}
		case <-c.Done():
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closing"),
				time.Now().Add(time.Second))
			return
		}
	}
}

// CloseAll asks every live connection to close; used on shutdown.
func (s *Server) CloseAll() {
	for _, c := range s.reg.allConns() {
		c.Close()
	}
}
