package geocode

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// Chain tries a primary geocoder and falls back to a secondary one.
// Results produced by the fallback are always flagged as such.
type Chain struct {
	primary  Geocoder
	fallback Geocoder
	logger   zerolog.Logger
}

var _ Geocoder = (*Chain)(nil)

// NewChain creates a chain. A nil primary means only the fallback is used.
func NewChain(primary, fallback Geocoder, logger zerolog.Logger) *Chain {
	return &Chain{primary: primary, fallback: fallback, logger: logger}
}

// Name returns the primary geocoder name, or the fallback's when there is no primary.
func (c *Chain) Name() string {
	if c.primary != nil {
		return c.primary.Name()
	}
	if c.fallback != nil {
		return c.fallback.Name()
	}
	return "none"
}

// Geocode resolves with the primary and, on any failure, with the fallback.
// When both fail the primary's error is returned.
func (c *Chain) Geocode(ctx context.Context, address string) (*Result, error) {
	var primaryErr error
	if c.primary != nil {
		res, err := c.primary.Geocode(ctx, address)
		if err == nil {
			return res, nil
		}
		primaryErr = err
		if ctx.Err() != nil {
			return nil, primaryErr
		}
		c.logger.Warn().Err(err).
			Str("address", address).
			Str("primary", c.primary.Name()).
			Msg("primary geocoder failed, trying fallback")
	}

	if c.fallback == nil {
		if primaryErr == nil {
			primaryErr = &Error{Address: address, Err: ErrGeocodeFailure}
		}
		return nil, primaryErr
	}

	res, err := c.fallback.Geocode(ctx, address)
	if err != nil {
		if primaryErr != nil {
			return nil, primaryErr
		}
		return nil, err
	}

	res.Fallback = true
	return res, nil
}

// asFailure wraps any resolution error so callers can match ErrGeocodeFailure.
func asFailure(address, provider string, err error) error {
	var geoErr *Error
	if errors.As(err, &geoErr) {
		if errors.Is(geoErr, ErrGeocodeFailure) {
			return geoErr
		}
		return &Error{Address: address, Provider: geoErr.Provider, Err: errors.Join(ErrGeocodeFailure, geoErr.Err)}
	}
	if errors.Is(err, ErrGeocodeFailure) {
		return &Error{Address: address, Provider: provider, Err: err}
	}
	return &Error{Address: address, Provider: provider, Err: errors.Join(ErrGeocodeFailure, err)}
}
