package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var ErrTopicNotReady = errors.New("topic not ready")

const (
	defaultTopicWait = 5 * time.Second
	topicPoll        = 200 * time.Millisecond
)

// EnsureTopic creates cfg.Topic with the configured partitions and replication
// factor, then waits up to cfg.TopicWait for its partitions to be readable.
// An existing topic is left untouched.
func EnsureTopic(ctx context.Context, cfg Config, log *zap.Logger) error {
	tc, err := cfg.topicConfig()
	if err != nil {
		return err
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("topic", tc.Topic))

	conn, err := dialAny(ctx, cfg.Brokers)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctrl, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("lookup controller: %w", err)
	}
	cc, err := kafka.DialContext(ctx, "tcp", net.JoinHostPort(ctrl.Host, strconv.Itoa(ctrl.Port)))
	if err != nil {
		return fmt.Errorf("dial controller: %w", err)
	}
	defer cc.Close()

	switch err := cc.CreateTopics(tc); {
	case err == nil:
		log.Info("topic created", zap.Int("partitions", tc.NumPartitions), zap.Int("replication", tc.ReplicationFactor))
	case errors.Is(err, kafka.TopicAlreadyExists):
		log.Debug("topic exists")
	default:
		return fmt.Errorf("create topic %s: %w", tc.Topic, err)
	}

	wait := cfg.TopicWait
	if wait <= 0 {
		wait = defaultTopicWait
	}
	return waitPartitions(ctx, conn, tc.Topic, wait)
}

func (c Config) topicConfig() (kafka.TopicConfig, error) {
	if len(c.Brokers) == 0 {
		return kafka.TopicConfig{}, errors.New("kafka: no brokers configured")
	}
	if strings.TrimSpace(c.Topic) == "" {
		return kafka.TopicConfig{}, errors.New("kafka: no topic configured")
	}
	return kafka.TopicConfig{
		Topic:             strings.TrimSpace(c.Topic),
		NumPartitions:     max(c.Partitions, 1),
		ReplicationFactor: max(c.Replication, 1),
	}, nil
}

func dialAny(ctx context.Context, brokers []string) (*kafka.Conn, error) {
	var errs []error
	for _, b := range brokers {
		conn, err := kafka.DialContext(ctx, "tcp", strings.TrimSpace(b))
		if err == nil {
			return conn, nil
		}
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("dial kafka: %w", errors.Join(errs...))
}

func waitPartitions(ctx context.Context, conn *kafka.Conn, topic string, wait time.Duration) error {
	wctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	t := time.NewTicker(topicPoll)
	defer t.Stop()
	for {
		if ps, err := conn.ReadPartitions(topic); err == nil && len(ps) > 0 {
			return nil
		}
		select {
		case <-wctx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %s after %s", ErrTopicNotReady, topic, wait)
		case <-t.C:
		}
	}
}
