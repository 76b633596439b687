package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "skywatch_ws_connections", Help: "Live websocket connections",
	})
	mHandshakeRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skywatch_ws_handshake_rejected_total", Help: "Connections refused by the auth handshake",
	})
	mFramesQueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skywatch_ws_frames_queued_total", Help: "Outbound frames accepted into a connection queue",
	}, []string{"event"})
	mFramesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skywatch_ws_frames_dropped_total", Help: "Outbound frames dropped on a full or closed connection",
	}, []string{"event"})
	mFramesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skywatch_ws_frames_written_total", Help: "Frames written to the socket",
	})
	mCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skywatch_ws_commands_total", Help: "Inbound commands by result",
	}, []string{"event", "result"})
)
