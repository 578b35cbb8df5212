package worker

import (
	"context"
	"time"

	"github.com/regentroute/regentroute/internal/events"
)

// RunEvery runs the warm-up job immediately and then once per interval until
// ctx is cancelled. Runs never overlap.
func (j *WarmupJob) RunEvery(ctx context.Context, interval time.Duration) {
	j.Run(ctx)
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.Run(ctx)
		}
	}
}

// ComparisonEventHandler warms the geocode cache for the addresses of newly
// saved comparisons. Failures are logged and never stop consumption.
func (j *WarmupJob) ComparisonEventHandler() events.Handler {
	return func(ctx context.Context, ev events.Event) error {
		if ev.Type != events.TypeComparisonSaved {
			return nil
		}

		var saved events.ComparisonSaved
		if err := ev.DecodeData(&saved); err != nil {
			j.logger.Warn().Err(err).Str("event_id", ev.ID).Msg("undecodable comparison event")
			return nil
		}

		var places []string
		for _, addr := range []string{saved.OriginAddress, saved.DestinationAddress} {
			if addr != "" {
				places = append(places, addr)
			}
		}
		if len(places) == 0 {
			return nil
		}

		result := j.run(ctx, places)
		if result.Failed > 0 {
			j.logger.Warn().
				Str("comparison_id", saved.ComparisonID).
				Int("failed", result.Failed).
				Msg("could not warm comparison addresses")
		}
		return nil
	}
}
