package trip

import (
	"context"

	"github.com/regentroute/regentroute/internal/geo"
)

// LiveRoute is distance, duration and geometry reported by an external provider.
// Zero fields are ignored and the formula value is kept.
type LiveRoute struct {
	DistanceMiles   float64
	DurationMinutes float64
	Path            []geo.Coordinate
	Provider        string
}

// LiveData overrides formula estimates with provider data. Lookup returns
// (nil, nil) when the provider has nothing for the request.
type LiveData interface {
	Lookup(ctx context.Context, req Request) (*LiveRoute, error)
}

// FormulaOnly never has live data.
type FormulaOnly struct{}

// Lookup always returns nil.
func (FormulaOnly) Lookup(context.Context, Request) (*LiveRoute, error) {
	return nil, nil
}

// LiveDataFunc adapts a function to LiveData.
type LiveDataFunc func(ctx context.Context, req Request) (*LiveRoute, error)

// Lookup calls f.
func (f LiveDataFunc) Lookup(ctx context.Context, req Request) (*LiveRoute, error) {
	return f(ctx, req)
}
