package worker

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// Warm-up runs take minutes, so few messages are leased at once and leases
// are extended long enough to cover a full run.
const (
	maxOutstandingJobs = 2
	maxLeaseExtension  = 10 * time.Minute
)

type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Dispatcher       *Dispatcher
	Logger           zerolog.Logger
}

// PubSubHandler receives job messages from a Pub/Sub subscription.
type PubSubHandler struct {
	client *pubsub.Client
	sub    *pubsub.Subscriber
	name   string
	jobs   *Dispatcher
	log    zerolog.Logger
}

func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client for %s: %w", cfg.ProjectID, err)
	}
	sub := client.Subscriber(cfg.SubscriptionName)
	sub.ReceiveSettings.MaxOutstandingMessages = maxOutstandingJobs
	sub.ReceiveSettings.MaxExtension = maxLeaseExtension

	return &PubSubHandler{
		client: client,
		sub:    sub,
		name:   cfg.SubscriptionName,
		jobs:   cfg.Dispatcher,
		log:    cfg.Logger.With().Str("subscription", cfg.SubscriptionName).Logger(),
	}, nil
}

// Start receives until ctx is cancelled.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.log.Info().Msg("receiving jobs")
	return h.sub.Receive(ctx, func(ctx context.Context, m *pubsub.Message) {
		log := h.log.With().
			Str("message_id", m.ID).
			Time("published_at", m.PublishTime).
			Logger()
		if handleJob(ctx, h.jobs, m.Data, log) {
			m.Ack()
			return
		}
		m.Nack()
	})
}

func (h *PubSubHandler) Close() error { return h.client.Close() }
