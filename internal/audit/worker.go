package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Outbox is the slice of the postgres store the relay needs.
type Outbox interface {
	NextBatch(ctx context.Context, limit int) ([]OutboxRow, error)
	MarkPublished(ctx context.Context, ids []int64) error
}

// Producer is the kafka client seam; satisfied by *kgo.Client.
type Producer interface {
	ProduceSync(ctx context.Context, records ...*kgo.Record) kgo.ProduceResults
}

// Relay drains the audit outbox into Kafka. Rows are marked published only
// after the broker acknowledges them, so delivery is at-least-once and
// consumers must dedupe on event id.
type Relay struct {
	outbox   Outbox
	producer Producer
	topic    string
	logger   *slog.Logger

	interval  time.Duration
	batchSize int
}

// RelayOption configures a Relay.
type RelayOption func(*Relay)

// WithInterval overrides the poll interval.
func WithInterval(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithBatchSize overrides the per-poll batch size.
func WithBatchSize(n int) RelayOption {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func NewRelay(outbox Outbox, producer Producer, topic string, logger *slog.Logger, opts ...RelayOption) *Relay {
	r := &Relay{
		outbox:    outbox,
		producer:  producer,
		topic:     topic,
		logger:    logger,
		interval:  time.Second,
		batchSize: 100,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run polls the outbox until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.RelayOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				r.logger.ErrorContext(ctx, "audit relay pass failed", "error", err.Error())
			}
		}
	}
}

// RelayOnce publishes one batch of unpublished events. Exported so tests can
// drive the relay without the ticker.
func (r *Relay) RelayOnce(ctx context.Context) error {
	batch, err := r.outbox.NextBatch(ctx, r.batchSize)
	if err != nil {
		return err
	}
	if len(batch) == 0 {
		return nil
	}

	records := make([]*kgo.Record, 0, len(batch))
	for _, row := range batch {
		records = append(records, &kgo.Record{
			Topic: r.topic,
			Key:   []byte(row.EventID),
			Value: row.Payload,
		})
	}
	if err := r.producer.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce audit batch: %w", err)
	}

	ids := make([]int64, 0, len(batch))
	for _, row := range batch {
		ids = append(ids, row.ID)
	}
	return r.outbox.MarkPublished(ctx, ids)
}

// NewKafkaClient builds the franz-go client used by the relay.
func NewKafkaClient(brokers []string) (*kgo.Client, error) {
	return kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.AllowAutoTopicCreation(),
	)
}

// EnsureTopic creates the audit topic if the cluster doesn't have it yet.
func EnsureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopics(ctx, 1, 1, nil, topic)
	if err != nil {
		return fmt.Errorf("create audit topic: %w", err)
	}
	for _, res := range resp {
		if res.Err != nil && !errors.Is(res.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create audit topic %s: %w", res.Topic, res.Err)
		}
	}
	return nil
}
