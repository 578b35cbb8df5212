package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Job types accepted in JobMessage.JobType.
const (
	JobGeocodeWarmup = "geocode_warmup"
	JobHealthCheck   = "health_check"
)

var ErrUnknownJob = errors.New("unknown job type")

// JobMessage is the JSON body of a job request. Places, when set, replaces
// the configured warm-up list for that run only.
type JobMessage struct {
	JobType string   `json:"job_type"`
	Places  []string `json:"places,omitempty"`
}

// Dispatcher routes job messages to the warm-up job.
type Dispatcher struct {
	warmup *WarmupJob
	log    zerolog.Logger
}

func NewDispatcher(warmup *WarmupJob, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{warmup: warmup, log: logger}
}

// Dispatch runs one job. A warm-up run fails only when hard failures
// outnumber places resolved by any means, fallbacks included.
func (d *Dispatcher) Dispatch(ctx context.Context, msg JobMessage) error {
	switch msg.JobType {
	case JobGeocodeWarmup:
		r := d.warmup.RunPlaces(ctx, msg.Places)
		if r.Failed > r.Resolved+r.Fallback {
			return fmt.Errorf("warm-up failed for %d of %d places", r.Failed, r.TotalPlaces)
		}
		return nil
	case JobHealthCheck:
		return d.warmup.HealthCheck(ctx)
	}
	return fmt.Errorf("%w: %q", ErrUnknownJob, msg.JobType)
}

// handleJob decodes and dispatches a raw message and reports whether to
// acknowledge it. Only jobs that ran and failed are redelivered; a message
// that can never succeed is acknowledged and dropped.
func handleJob(ctx context.Context, d *Dispatcher, data []byte, log zerolog.Logger) (ack bool) {
	var msg JobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Error().Err(err).Int("bytes", len(data)).Msg("dropping undecodable job message")
		return true
	}

	log = log.With().Str("job_type", msg.JobType).Logger()
	start := time.Now()
	err := d.Dispatch(ctx, msg)
	switch {
	case errors.Is(err, ErrUnknownJob):
		log.Warn().Msg("dropping job of unknown type")
		return true
	case err != nil:
		log.Error().Err(err).Dur("duration", time.Since(start)).Msg("job failed, leaving for redelivery")
		return false
	}
	log.Info().Dur("duration", time.Since(start)).Msg("job completed")
	return true
}
