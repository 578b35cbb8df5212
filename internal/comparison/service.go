package comparison

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/regentroute/regentroute/internal/events"
	"github.com/regentroute/regentroute/internal/trip"
)

// Validation constants.
const (
	MaxNameLength    = 80
	MaxAddressLength = 300
	MaxListLimit     = 100
)

// SaveInput is the data needed to save a comparison.
type SaveInput struct {
	Name               string
	OriginAddress      string
	DestinationAddress string
	Car                *trip.Estimate
	Ferry              *trip.Estimate
	Plane              *trip.Estimate
	// Display defaults to trip.DefaultCurve when nil.
	Display *Display
}

// ServiceConfig holds configuration for the comparison service.
type ServiceConfig struct {
	Repository Repository
	// Publisher receives lifecycle events. Defaults to events.NopPublisher.
	Publisher events.Publisher
	Logger    zerolog.Logger
	Now       func() time.Time
}

// Service provides saved comparison operations.
type Service struct {
	repo      Repository
	publisher events.Publisher
	logger    zerolog.Logger
	now       func() time.Time
}

// NewService creates a new comparison service.
func NewService(cfg ServiceConfig) *Service {
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:      cfg.Repository,
		publisher: publisher,
		logger:    cfg.Logger,
		now:       now,
	}
}

// Save validates input and stores a new comparison. An empty name becomes
// "Comparison N", where N is one more than the number stored at insert time;
// deletions can make N repeat an earlier name.
func (s *Service) Save(ctx context.Context, input SaveInput) (*SavedComparison, error) {
	if fieldErrors := validateSaveInput(&input); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	name := strings.TrimSpace(input.Name)

	display := Display{
		FerryCurveDirection: trip.DefaultCurve.Direction,
		FerryCurveWidth:     trip.DefaultCurve.Width,
	}
	if input.Display != nil {
		display = *input.Display
	}

	c := &SavedComparison{
		ID:                 "cmp_" + uuid.New().String()[:22],
		Name:               name,
		OriginAddress:      strings.TrimSpace(input.OriginAddress),
		DestinationAddress: strings.TrimSpace(input.DestinationAddress),
		Car:                cloneEstimate(input.Car),
		Ferry:              cloneEstimate(input.Ferry),
		Plane:              cloneEstimate(input.Plane),
		Display:            display,
		CreatedAt:          s.now().UTC(),
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	modes := make([]string, 0, 3)
	for _, m := range c.Modes() {
		modes = append(modes, string(m))
	}
	s.publish(ctx, events.TypeComparisonSaved, c.ID, events.ComparisonSaved{
		ComparisonID:       c.ID,
		Name:               c.Name,
		OriginAddress:      c.OriginAddress,
		DestinationAddress: c.DestinationAddress,
		Modes:              modes,
	})

	s.logger.Info().
		Str("comparison_id", c.ID).
		Int("modes", len(modes)).
		Msg("comparison saved")
	return c, nil
}

// Get retrieves a comparison by ID.
func (s *Service) Get(ctx context.Context, id string) (*SavedComparison, error) {
	return s.repo.Get(ctx, id)
}

// List retrieves saved comparisons newest first. The limit is clamped to MaxListLimit.
func (s *Service) List(ctx context.Context, limit int, cursor string) (*ListResult, error) {
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return s.repo.List(ctx, ListOptions{Limit: limit, Cursor: cursor})
}

// Delete removes a comparison. Returns ErrComparisonNotFound if it doesn't exist.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.publish(ctx, events.TypeComparisonDeleted, id, events.ComparisonDeleted{ComparisonID: id})
	s.logger.Info().Str("comparison_id", id).Msg("comparison deleted")
	return nil
}

// publish emits an event. Failures are logged; the stored state is already final.
func (s *Service) publish(ctx context.Context, eventType, subject string, data interface{}) {
	ev, err := events.New(events.DefaultSource, eventType, subject, data)
	if err == nil {
		err = s.publisher.Publish(ctx, ev)
	}
	if err != nil {
		s.logger.Warn().Err(err).
			Str("event_type", eventType).
			Str("comparison_id", subject).
			Msg("failed to publish comparison event")
	}
}

func validateSaveInput(input *SaveInput) []FieldError {
	var errs []FieldError

	if len(strings.TrimSpace(input.Name)) > MaxNameLength {
		errs = append(errs, FieldError{
			Field:   "name",
			Message: fmt.Sprintf("must be at most %d characters", MaxNameLength),
		})
	}

	for _, f := range []struct {
		field, value string
	}{
		{"originAddress", input.OriginAddress},
		{"destinationAddress", input.DestinationAddress},
	} {
		v := strings.TrimSpace(f.value)
		switch {
		case v == "":
			errs = append(errs, FieldError{Field: f.field, Message: "is required"})
		case len(v) > MaxAddressLength:
			errs = append(errs, FieldError{
				Field:   f.field,
				Message: fmt.Sprintf("must be at most %d characters", MaxAddressLength),
			})
		}
	}

	if input.Car == nil && input.Ferry == nil && input.Plane == nil {
		errs = append(errs, FieldError{Field: "results", Message: "at least one mode result is required"})
	}
	for _, slot := range []struct {
		mode trip.Mode
		est  *trip.Estimate
	}{
		{trip.ModeCar, input.Car},
		{trip.ModeFerry, input.Ferry},
		{trip.ModePlane, input.Plane},
	} {
		if slot.est == nil {
			continue
		}
		field := "results." + string(slot.mode)
		if slot.est.Mode != slot.mode {
			errs = append(errs, FieldError{
				Field:   field,
				Message: fmt.Sprintf("estimate is for mode %q", slot.est.Mode),
			})
			continue
		}
		if want := trip.CostOf(slot.mode, 0); slot.est.Cost.Kind != want.Kind || slot.est.Cost.Currency != want.Currency {
			errs = append(errs, FieldError{
				Field:   field + ".cost",
				Message: fmt.Sprintf("must be a %s cost in %s", want.Kind, want.Currency),
			})
		}
	}

	if input.Display != nil {
		if err := input.Display.Curve().Validate(); err != nil {
			errs = append(errs, FieldError{Field: "display", Message: err.Error()})
		}
	}

	return errs
}
