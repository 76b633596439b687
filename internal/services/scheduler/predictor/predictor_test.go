package predictor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSimulatedIsBoundedAndDeterministic(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	a, b := NewSimulated(7), NewSimulated(7)
	for i := 0; i < 50; i++ {
		p1, err := a.NextPass(context.Background(), now)
		require.NoError(t, err)
		p2, _ := b.NextPass(context.Background(), now)
		assert.Equal(t, p1, p2)

		assert.False(t, p1.StartTime.Before(now.Truncate(time.Second)))
		assert.True(t, p1.StartTime.Before(now.Add(24*time.Hour)))
		d := p1.Duration()
		assert.GreaterOrEqual(t, d, 4*time.Minute)
		assert.LessOrEqual(t, d, 11*time.Minute)
		assert.GreaterOrEqual(t, p1.MaxElevation, 0.0)
		assert.Less(t, p1.MaxElevation, 91.0)
		assert.Contains(t, directions, p1.Direction)
	}
}

func TestHTTPPredictor(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "skywatch-test", r.UserAgent())
		_, _ = w.Write([]byte(`{"startTime":"2026-06-01T13:00:00Z","endTime":"2026-06-01T13:06:00Z","maxElevation":61.5,"direction":"SW"}`))
	})
	mux.HandleFunc("/none", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	mux.HandleFunc("/down", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusBadGateway) })
	mux.HandleFunc("/malformed", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"startTime":"2026-06-01T13:00:00Z","endTime":"2026-06-01T12:00:00Z"}`))
	})
	mux.HandleFunc("/stale", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"startTime":"2026-06-01T10:00:00Z","endTime":"2026-06-01T10:06:00Z","maxElevation":80}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	get := func(path string) Predictor {
		cfg := Config{Kind: KindHTTP, URL: srv.URL + path, UserAgent: "skywatch-test"}
		p, err := New(cfg, zap.NewNop())
		require.NoError(t, err)
		return p
	}

	p := get("/ok")
	pass, err := p.NextPass(context.Background(), now)
	require.NoError(t, err)
	require.NotNil(t, pass)
	assert.Equal(t, 61.5, pass.MaxElevation)
	assert.Equal(t, 6*time.Minute, pass.Duration())

	p = get("/none")
	pass, err = p.NextPass(context.Background(), now)
	require.NoError(t, err)
	assert.Nil(t, pass)

	p = get("/stale")
	pass, err = p.NextPass(context.Background(), now)
	require.NoError(t, err)
	assert.Nil(t, pass)

	p = get("/down")
	_, err = p.NextPass(context.Background(), now)
	assert.Error(t, err)

	p = get("/malformed")
	_, err = p.NextPass(context.Background(), now)
	assert.Error(t, err)
}

func TestNewRejectsUnknownKind(t *testing.T) {
	_, err := New(Config{Kind: "tle"}, zap.NewNop())
	assert.Error(t, err)
	_, err = New(Config{Kind: KindHTTP}, zap.NewNop())
	assert.Error(t, err)
	p, err := New(Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &Simulated{}, p)
}
