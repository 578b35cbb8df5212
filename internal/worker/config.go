// Package worker provides background job processing for RegentRoute.
package worker

import (
	"time"

	"github.com/regentroute/regentroute/internal/geocode"
)

// WarmupConfig holds configuration for the cache warm-up job.
type WarmupConfig struct {
	// Places are the addresses to resolve.
	// If empty, uses DefaultWarmupPlaces.
	Places []string

	// Concurrency is the number of places processed at once.
	// Default: 4
	Concurrency int

	// Timeout bounds the work for a single place.
	// Default: 20 seconds
	Timeout time.Duration

	// AirportLimit is how many nearby airports to look up per place.
	// Zero skips the airport lookup.
	AirportLimit int
}

// DefaultWarmupConfig returns the default warm-up configuration.
func DefaultWarmupConfig() WarmupConfig {
	return WarmupConfig{
		Places:       DefaultWarmupPlaces(),
		Concurrency:  4,
		Timeout:      20 * time.Second,
		AirportLimit: 3,
	}
}

// DefaultWarmupPlaces returns the built-in gazetteer city names, which are the
// addresses users most often compare between.
func DefaultWarmupPlaces() []string {
	places := geocode.NewGazetteer().Places()
	names := make([]string, len(places))
	for i, p := range places {
		names[i] = p.Name
	}
	return names
}

func (c WarmupConfig) withDefaults() WarmupConfig {
	def := DefaultWarmupConfig()
	if len(c.Places) == 0 {
		c.Places = def.Places
	}
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	return c
}
