package realtime

import (
	"sync"

	"github.com/NordCoder/Skywatch/internal/auth"
)

// Conn is the registry's handle for one admitted websocket. Frames go through
// a bounded queue drained by the connection's writer; a full queue drops.
type Conn struct {
	ID       string
	UserID   int64
	Username string

	out       chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewConn(id string, ident auth.Identity, buffer int) *Conn {
	if buffer <= 0 {
		buffer = 32
	}
	return &Conn{
		ID:       id,
		UserID:   ident.UserID,
		Username: ident.Username,
		out:      make(chan []byte, buffer),
		done:     make(chan struct{}),
	}
}

// Enqueue never blocks. It reports false when the frame was dropped.
func (c *Conn) Enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.out <- msg:
		return true
	default:
		return false
	}
}

func (c *Conn) Outbound() <-chan []byte { return c.out }

func (c *Conn) Done() <-chan struct{} { return c.done }

func (c *Conn) Close() { c.closeOnce.Do(func() { close(c.done) }) }
