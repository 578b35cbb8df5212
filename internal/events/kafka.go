package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
)

// DefaultTopic carries comparison lifecycle events.
const DefaultTopic = "regentroute.comparisons"

// KafkaConfig holds configuration for Kafka publishing and consuming.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
	Logger  zerolog.Logger
}

// KafkaPublisher writes events to a Kafka topic, keyed by subject.
type KafkaPublisher struct {
	writer *kafkago.Writer
	logger zerolog.Logger
}

var _ Publisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher creates a publisher for cfg.Topic.
func NewKafkaPublisher(cfg KafkaConfig) *KafkaPublisher {
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	return &KafkaPublisher{
		writer: &kafkago.Writer{
			Addr:                   kafkago.TCP(cfg.Brokers...),
			Topic:                  topic,
			Balancer:               &kafkago.Hash{},
			RequiredAcks:           kafkago.RequireOne,
			BatchTimeout:           10 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
		logger: cfg.Logger,
	}
}

// Publish writes ev synchronously.
func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := kafkago.Message{
		Key:   []byte(ev.Subject),
		Value: value,
		Headers: []kafkago.Header{
			{Key: "ce_type", Value: []byte(ev.Type)},
			{Key: "ce_id", Value: []byte(ev.ID)},
			{Key: "content-type", Value: []byte("application/cloudevents+json")},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s event: %w", ev.Type, err)
	}

	p.logger.Debug().
		Str("event_type", ev.Type).
		Str("event_id", ev.ID).
		Str("topic", p.writer.Topic).
		Msg("published event")
	return nil
}

// Close flushes pending writes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Handler processes one event. Returning an error stops consumption.
type Handler func(ctx context.Context, ev Event) error

// KafkaConsumer reads events from a topic as part of a consumer group.
type KafkaConsumer struct {
	reader *kafkago.Reader
	logger zerolog.Logger
}

// NewKafkaConsumer creates a consumer for cfg.Topic in group cfg.GroupID.
func NewKafkaConsumer(cfg KafkaConfig) *KafkaConsumer {
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	return &KafkaConsumer{
		reader: kafkago.NewReader(kafkago.ReaderConfig{
			Brokers:  cfg.Brokers,
			GroupID:  cfg.GroupID,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
		logger: cfg.Logger,
	}
}

// Consume blocks, passing each event to handle, until ctx is cancelled.
// Malformed messages are logged and committed so they are not redelivered.
func (c *KafkaConsumer) Consume(ctx context.Context, handle Handler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		ev, err := Parse(msg.Value)
		if err != nil {
			c.logger.Error().Err(err).
				Int64("offset", msg.Offset).
				Int("partition", msg.Partition).
				Msg("dropping malformed event")
		} else if err := handle(ctx, ev); err != nil {
			return fmt.Errorf("handle %s event: %w", ev.Type, err)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return fmt.Errorf("commit offset: %w", err)
		}
	}
}

// Close closes the reader.
func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}
