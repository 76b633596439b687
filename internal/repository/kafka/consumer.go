package kafka

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/NordCoder/Skywatch/internal/obs/retry"
)

// ErrSkip marks a message that can never be handled. It is logged and
// committed instead of being redelivered.
var ErrSkip = errors.New("skip message")

type Handler func(ctx context.Context, key, value []byte) error

var mConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "skywatch_kafka_consumed_total",
	Help: "Messages fetched from kafka by topic and result",
}, []string{"topic", "result"})

type Consumer struct {
	reader *kafka.Reader
	log    *zap.Logger
	cfg    *ConsumerConfig
	policy retry.Policy
}

type ConsumerConfig struct {
	Brokers       []string
	GroupID       string
	Topic         string
	FromBeginning bool
	Logger        *zap.Logger
}

func NewConsumer(cfg *ConsumerConfig) *Consumer {
	if cfg.Logger == nil {
		cfg.Logger = zap.L()
	}

	start := kafka.LastOffset
	if cfg.FromBeginning {
		start = kafka.FirstOffset
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:               cfg.Brokers,
		GroupID:               cfg.GroupID,
		Topic:                 cfg.Topic,
		StartOffset:           start,
		WatchPartitionChanges: true,

		MinBytes:          1,
		MaxBytes:          10e6,
		MaxWait:           500 * time.Millisecond,
		SessionTimeout:    10 * time.Second,
		RebalanceTimeout:  15 * time.Second,
		HeartbeatInterval: 3 * time.Second,
	})

	log := consumerLog(cfg.Logger, cfg)
	return &Consumer{reader: r, log: log, cfg: cfg, policy: handlePolicy(log)}
}

func handlePolicy(log *zap.Logger) retry.Policy {
	p := retry.HandlePolicy(log)
	base := p.Retryable
	p.Retryable = func(err error) bool { return !errors.Is(err, ErrSkip) && base(err) }
	return p
}

func consumerLog(l *zap.Logger, cfg *ConsumerConfig) *zap.Logger {
	return l.With(
		zap.String("component", "kafka.consumer"),
		zap.String("topic", cfg.Topic),
		zap.String("group", cfg.GroupID),
	)
}

func (c *Consumer) WithLogger(l *zap.Logger) *Consumer {
	if l == nil {
		return c
	}
	cp := *c
	cp.log = consumerLog(l, c.cfg)
	cp.policy = handlePolicy(cp.log)
	return &cp
}

// Consume runs h for every message until ctx is done. Other errors than ErrSkip
// are retried in place. Offsets in a group only move forward, so a message
// that still fails after the retries is committed and counted as failed.
func (c *Consumer) Consume(ctx context.Context, h Handler) error {
	log := c.log
	log.Info("consumer started")

	backoff := 200 * time.Millisecond
	const maxBackoff = 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			log.Info("consumer stopped (ctx canceled)")
			return ctx.Err()
		default:
		}

		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("consumer stopped (ctx canceled)")
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				log.Debug("fetch EOF; retry", zap.Duration("backoff", backoff))
			} else {
				log.Warn("fetch failed; retry", zap.Error(err), zap.Duration("backoff", backoff))
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		backoff = 200 * time.Millisecond

		if !c.handle(ctx, h, msg) {
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				log.Info("commit interrupted by context cancel")
				return ctx.Err()
			}
			log.Warn("commit failed; will retry later", zap.Error(err))
		}
	}
}

// handle reports whether msg should be committed. It is false only when ctx
// ends first, leaving the message for the next owner of the partition.
func (c *Consumer) handle(ctx context.Context, h Handler, msg kafka.Message) bool {
	ctx = extractTrace(ctx, msg.Headers)
	ctx, span := otel.Tracer("kafka.consumer").Start(ctx, "kafka.consume "+msg.Topic,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingDestinationName(msg.Topic),
			semconv.MessagingOperationReceive,
			attribute.Int("messaging.kafka.partition", msg.Partition),
			attribute.Int64("messaging.kafka.offset", msg.Offset),
		),
	)
	defer span.End()

	err := retry.Do(ctx, func() error { return h(ctx, msg.Key, msg.Value) }, c.policy)
	switch {
	case err == nil:
		mConsumed.WithLabelValues(msg.Topic, "ok").Inc()
		return true
	case errors.Is(err, ErrSkip):
		mConsumed.WithLabelValues(msg.Topic, "skipped").Inc()
		span.RecordError(err)
		c.log.Warn("message skipped", zap.Int("partition", msg.Partition), zap.Int64("offset", msg.Offset), zap.Error(err))
		return true
	case ctx.Err() != nil:
		span.RecordError(err)
		return false
	default:
		mConsumed.WithLabelValues(msg.Topic, "failed").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.log.Error("message dropped after retries", zap.Int("partition", msg.Partition), zap.Int64("offset", msg.Offset), zap.Error(err))
		return true
	}
}

func (c *Consumer) Close() error { return c.reader.Close() }
