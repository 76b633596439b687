package predictor

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/NordCoder/Skywatch/internal/domain/notification"
)

var directions = []string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// Simulated draws a pass starting within the next day, lasting five to ten
// minutes, with an elevation anywhere above the horizon.
type Simulated struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewSimulated(seed int64) *Simulated {
	return &Simulated{rnd: rand.New(rand.NewSource(seed))}
}

func (s *Simulated) NextPass(_ context.Context, now time.Time) (*notification.ISSPass, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := now.Add(time.Duration(s.rnd.Int63n(int64(24 * time.Hour))))
	dur := 5*time.Minute + time.Duration(s.rnd.Int63n(int64(5*time.Minute)))
	return &notification.ISSPass{
		StartTime:    start.UTC().Truncate(time.Second),
		EndTime:      start.Add(dur).UTC().Truncate(time.Second),
		MaxElevation: float64(s.rnd.Intn(90)) + s.rnd.Float64(),
		Direction:    directions[s.rnd.Intn(len(directions))],
	}, nil
}
