package realtime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NordCoder/Skywatch/internal/auth"
)

func newConn(id string, userID int64) *Conn {
	return NewConn(id, auth.Identity{UserID: userID, Username: "u"}, 16)
}

// drain returns every frame currently queued on c.
func drain(t *testing.T, c *Conn) []Frame {
	t.Helper()
	var out []Frame
	for {
		select {
		case msg := <-c.Outbound():
			var f Frame
			require.NoError(t, json.Unmarshal(msg, &f))
			out = append(out, f)
		default:
			return out
		}
	}
}

func events(fs []Frame) []string {
	out := make([]string, 0, len(fs))
	for _, f := range fs {
		out = append(out, f.Event)
	}
	return out
}

func decode[T any](t *testing.T, f Frame) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(f.Data, &v))
	return v
}

func newTestHub() (*Registry, *Hub) {
	reg := NewRegistry()
	return reg, NewHub(reg, zap.NewNop())
}
