package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"horsemarket-web/internal/config"
	"horsemarket-web/internal/payment"

	"github.com/VictoriaMetrics/metrics"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

const (
	DefaultBatchSize          = 100
	DefaultBatchTimeout       = 100
	DefaultMaxPublishAttempts = 3
	DefaultRetryDelayMs       = 500
)

var (
	outcomePublishedCounter   = metrics.GetOrCreateCounter(`kafka_writer_total{result="published",type="payment_outcome"}`)
	outcomeRetriedCounter     = metrics.GetOrCreateCounter(`kafka_writer_total{result="retried",type="payment_outcome"}`)
	outcomeMaxAttemptsCounter = metrics.GetOrCreateCounter(`kafka_writer_total{result="max_attempts_reached",type="payment_outcome"}`)
)

func NewWriter(cfg config.Kafka) *kafka.Writer {
	batchSize := cfg.Writer.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	batchTimeout := cfg.Writer.BatchTimeoutMs
	if batchTimeout <= 0 {
		batchTimeout = DefaultBatchTimeout
	}

	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Broker.URL),
		Topic:                  cfg.Topic.PaymentOutcomes,
		Balancer:               &kafka.ReferenceHash{},
		BatchSize:              batchSize,
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           time.Duration(batchTimeout) * time.Millisecond,
		Async:                  false,
		AllowAutoTopicCreation: false,
	}
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// OutcomePublisher writes terminal payment outcomes keyed by payment id, so
// every outcome of one payment lands on the same partition.
type OutcomePublisher struct {
	writer      MessageWriter
	timeout     time.Duration
	maxAttempts int
	retryDelay  time.Duration
	logger      *slog.Logger
}

func NewOutcomePublisher(writer MessageWriter, cfg config.KafkaWriter, logger *slog.Logger) *OutcomePublisher {
	maxAttempts := cfg.MaxPublishAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxPublishAttempts
	}
	retryDelayMs := cfg.RetryDelayMs
	if retryDelayMs <= 0 {
		retryDelayMs = DefaultRetryDelayMs
	}
	return &OutcomePublisher{
		writer:      writer,
		timeout:     5 * time.Second,
		maxAttempts: maxAttempts,
		retryDelay:  time.Duration(retryDelayMs) * time.Millisecond,
		logger:      logger,
	}
}

func (p *OutcomePublisher) PublishOutcome(ctx context.Context, outcome payment.Outcome) error {
	value, err := json.Marshal(outcome)
	if err != nil {
		return errors.Wrap(err, "encode payment outcome")
	}

	msg := kafka.Message{
		Key:   []byte(outcome.PaymentID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "flow", Value: []byte(outcome.Flow)},
			{Key: "state", Value: []byte(outcome.State)},
		},
	}

	// the n-th retry waits n times the retry delay
	for attempt := 1; ; attempt++ {
		err = p.write(ctx, msg)
		if err == nil {
			outcomePublishedCounter.Inc()
			p.logger.InfoContext(ctx, "Published payment outcome", "paymentId", outcome.PaymentID, "state", outcome.State, "attempt", attempt)
			return nil
		}

		if attempt >= p.maxAttempts {
			outcomeMaxAttemptsCounter.Inc()
			return errors.Wrapf(err, "publish outcome of payment %s after %d attempts", outcome.PaymentID, attempt)
		}

		outcomeRetriedCounter.Inc()
		p.logger.WarnContext(ctx, "Error publishing payment outcome, retrying", "error", err, "paymentId", outcome.PaymentID, "attempt", attempt)

		select {
		case <-time.After(time.Duration(attempt) * p.retryDelay):
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "publish outcome of payment %s", outcome.PaymentID)
		}
	}
}

func (p *OutcomePublisher) write(ctx context.Context, msg kafka.Message) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.writer.WriteMessages(ctx, msg)
}
