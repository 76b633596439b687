package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/NordCoder/Skywatch/internal/obs"
	kafkax "github.com/NordCoder/Skywatch/internal/repository/kafka"
	"github.com/NordCoder/Skywatch/internal/services/notifier"
)

// event-emitter publishes one producer event, read from -event or stdin, to
// the notification ingest topic.
func main() {
	brokers := flag.String("brokers", env("KAFKA_BROKER", "localhost:9092"), "comma separated kafka brokers")
	topic := flag.String("topic", env("KAFKA_TOPIC", "skywatch.notifications.events"), "ingest topic")
	raw := flag.String("event", "", "event JSON; stdin when empty")
	timeout := flag.Duration("timeout", 10*time.Second, "publish timeout")
	flag.Parse()

	l, err := obs.NewLogger(obs.LogConfig{Level: env("LOG_LEVEL", "info"), Pretty: true, App: "event-emitter"})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = l.Sync() }()

	ev, err := readEvent(*raw, os.Stdin)
	if err != nil {
		l.Fatal("read event", zap.Error(err))
	}

	p := kafkax.NewProducer(strings.Split(*brokers, ","), *topic).WithLogger(l)
	defer func() { _ = p.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := (&notifier.Publisher{P: p}).Publish(ctx, ev); err != nil {
		l.Fatal("publish", zap.Error(err))
	}
	l.Info("event published", zap.String("kind", ev.Kind), zap.Int64("user_id", ev.UserID))
}

func readEvent(raw string, stdin io.Reader) (notifier.Event, error) {
	var ev notifier.Event
	var src io.Reader = strings.NewReader(raw)
	if raw == "" {
		src = stdin
	}
	dec := json.NewDecoder(src)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&ev); err != nil {
		return ev, fmt.Errorf("decode: %w", err)
	}
	if ev.Kind == "" {
		return ev, fmt.Errorf("event kind is required")
	}
	return ev, nil
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
